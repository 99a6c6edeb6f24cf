// Package http provides the HTTP server implementation for the marketplace.
package http

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/gogo/marketplace/internal/config"
	"github.com/xiaot623/gogo/marketplace/internal/hub"
	"github.com/xiaot623/gogo/marketplace/internal/service"
	v1 "github.com/xiaot623/gogo/marketplace/internal/transport/http/v1"
)

// NewServer creates and configures the public HTTP server.
func NewServer(svc *service.Service, h *hub.Hub, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			v1.HeaderViewerID,
			v1.HeaderViewerRole,
		},
	}))

	// Handlers
	v1Handler := v1.NewHandler(svc, h, cfg)

	// Register Routes
	v1Handler.RegisterRoutes(e)

	return e
}
