package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/orgsupport/ticketd/internal/store"
)

// StreamersHandler exposes the watched-streamer list for the dashboard.
type StreamersHandler struct {
	store *store.Service
}

func NewStreamersHandler(s *store.Service) *StreamersHandler {
	return &StreamersHandler{store: s}
}

func (h *StreamersHandler) Register(e *echo.Echo) {
	e.GET("/streamers", h.List)
	e.PUT("/streamers", h.Put)
}

func (h *StreamersHandler) List(c echo.Context) error {
	list, err := h.store.Streamers()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, list)
}

func (h *StreamersHandler) Put(c echo.Context) error {
	var list []store.Streamer
	if err := c.Bind(&list); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.store.SaveStreamers(list); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, list)
}
