package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/orgsupport/ticketd/internal/auth"
	"github.com/orgsupport/ticketd/internal/handlers"
)

type Server struct {
	echo *echo.Echo
	addr string
}

func NewServer(log *slog.Logger, addr string, jwtSecret string, pingHandler *handlers.PingHandler, authHandler *handlers.AuthHandler, panelsHandler *handlers.PanelsHandler, guildConfigHandler *handlers.GuildConfigHandler, streamersHandler *handlers.StreamersHandler) *Server {
	if log == nil {
		log = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = errorHandler(log)
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
			)
			return nil
		},
	}))
	e.Use(auth.JWTMiddleware(jwtSecret, func(c echo.Context) bool {
		path := c.Request().URL.Path
		return path == "/ping" || path == "/auth/login"
	}))

	if pingHandler != nil {
		pingHandler.Register(e)
	}
	if authHandler != nil {
		authHandler.Register(e)
	}
	if panelsHandler != nil {
		panelsHandler.Register(e)
	}
	if guildConfigHandler != nil {
		guildConfigHandler.Register(e)
	}
	if streamersHandler != nil {
		streamersHandler.Register(e)
	}

	return &Server{
		echo: e,
		addr: addr,
	}
}

// errorHandler renders every error as a flat JSON error document.
func errorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		msg := http.StatusText(code)
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			code = httpErr.Code
			if s, isString := httpErr.Message.(string); isString {
				msg = s
			}
		}
		if code >= http.StatusInternalServerError {
			log.Error("request failed", slog.Any("error", err))
		}
		if writeErr := c.JSON(code, handlers.ErrorResponse{Error: msg}); writeErr != nil {
			log.Error("error response failed", slog.Any("error", writeErr))
		}
	}
}

func (s *Server) Start() error {
	return s.echo.Start(s.addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
