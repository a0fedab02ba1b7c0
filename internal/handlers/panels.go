package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/orgsupport/ticketd/internal/store"
)

// PanelsHandler exposes the panel documents to the external dashboard.
// The engine itself only ever reads them.
type PanelsHandler struct {
	store    *store.Service
	validate *validator.Validate
}

func NewPanelsHandler(s *store.Service) *PanelsHandler {
	return &PanelsHandler{
		store:    s,
		validate: validator.New(),
	}
}

func (h *PanelsHandler) Register(e *echo.Echo) {
	group := e.Group("/panels")
	group.GET("/:id", h.Get)
	group.PUT("/:id", h.Put)
}

func (h *PanelsHandler) Get(c echo.Context) error {
	n, err := panelID(c)
	if err != nil {
		return err
	}
	panel, err := h.store.Panel(n)
	if err != nil && !errors.Is(err, store.ErrMalformedDocument) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, panel)
}

func (h *PanelsHandler) Put(c echo.Context) error {
	n, err := panelID(c)
	if err != nil {
		return err
	}
	var panel store.PanelConfig
	if err := c.Bind(&panel); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(panel); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.store.SavePanel(n, panel); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	saved, err := h.store.Panel(n)
	if err != nil && !errors.Is(err, store.ErrMalformedDocument) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, saved)
}

func panelID(c echo.Context) (int, error) {
	n, err := strconv.Atoi(c.Param("id"))
	if err != nil || (n != 1 && n != 2) {
		return 0, echo.NewHTTPError(http.StatusNotFound, "unknown panel")
	}
	return n, nil
}
