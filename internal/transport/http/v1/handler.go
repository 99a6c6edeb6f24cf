// Package v1 provides the versioned HTTP handlers for the marketplace.
package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/marketplace/internal/config"
	"github.com/xiaot623/gogo/marketplace/internal/domain"
	"github.com/xiaot623/gogo/marketplace/internal/hub"
	"github.com/xiaot623/gogo/marketplace/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service  *service.Service
	hub      *hub.Hub
	cfg      *config.Config
	upgrader websocket.Upgrader
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service, h *hub.Hub, cfg *config.Config) *Handler {
	return &Handler{
		service: service,
		hub:     h,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	// Accounts
	e.POST("/v1/clients", h.RegisterClient)
	e.GET("/v1/clients/check_username", h.CheckUsername(domain.RoleClient))
	e.GET("/v1/clients/check_email", h.CheckEmail(domain.RoleClient))
	e.POST("/v1/freelancers", h.RegisterFreelancer)
	e.GET("/v1/freelancers", h.ListFreelancers)
	e.GET("/v1/freelancers/check_username", h.CheckUsername(domain.RoleFreelancer))
	e.GET("/v1/freelancers/check_email", h.CheckEmail(domain.RoleFreelancer))

	// Viewer-scoped API
	g := e.Group("/v1", h.RequireViewer)
	g.GET("/me", h.Me)
	g.DELETE("/me", h.DeleteMe)

	g.POST("/conversations/start/:freelancer_id", h.StartConversation)
	g.GET("/conversations", h.ListConversations)
	g.GET("/conversations/:conversation_id", h.GetConversation)
	g.POST("/conversations/:conversation_id/messages", h.SendMessage)
	g.POST("/conversations/:conversation_id/auto_reply", h.AutoReply)

	g.POST("/roles/predict", h.PredictRoles)
	g.GET("/roles", h.DrainRoles)

	g.GET("/ws", h.HandleWebSocket)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// writeError maps service errors onto status codes.
func writeError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	msg := err.Error()
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUpstream):
		status = http.StatusBadGateway
		msg = "Error fetching predictions from prediction service"
	}
	return c.JSON(status, map[string]string{"error": msg})
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError(name, "must be a positive integer")
	}
	return id, nil
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}
