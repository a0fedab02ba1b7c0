package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/orgsupport/ticketd/internal/store"
)

// GuildConfigHandler exposes the authorization/watcher config document.
type GuildConfigHandler struct {
	store *store.Service
}

func NewGuildConfigHandler(s *store.Service) *GuildConfigHandler {
	return &GuildConfigHandler{store: s}
}

func (h *GuildConfigHandler) Register(e *echo.Echo) {
	e.GET("/config", h.Get)
	e.PUT("/config", h.Put)
}

func (h *GuildConfigHandler) Get(c echo.Context) error {
	cfg, err := h.store.Guild()
	if err != nil && !errors.Is(err, store.ErrMalformedDocument) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, cfg)
}

func (h *GuildConfigHandler) Put(c echo.Context) error {
	var cfg store.GuildConfig
	if err := c.Bind(&cfg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.store.SaveGuild(cfg); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, cfg)
}
