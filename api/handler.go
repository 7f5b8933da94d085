// Package api provides the HTTP and WebSocket surface of the chat backend.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/everyshare/tripbot/config"
	"github.com/everyshare/tripbot/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	cfg *config.Config
	svc *service.Service
	hub *Hub
}

// NewHandler creates a new handler.
func NewHandler(cfg *config.Config, svc *service.Service, hub *Hub) *Handler {
	return &Handler{cfg: cfg, svc: svc, hub: hub}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/session", h.IssueSession)
	e.GET("/ws/chat", h.HandleChat)
	e.GET("/healthz", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "healthy",
		"version":  "0.1.0",
		"sessions": h.hub.SessionCount(),
	})
}
