package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// sessionCookieName carries the chat session identity across the cookie
// endpoint and the WebSocket handshake.
const sessionCookieName = "session_id"

// IssueSession hands out the session cookie. An existing cookie is reused so
// a page reload keeps its history; otherwise a fresh id is minted.
func (h *Handler) IssueSession(c echo.Context) error {
	if cookie, err := c.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return c.JSON(http.StatusOK, map[string]string{"session_id": cookie.Value})
	}

	id := uuid.New().String()
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(h.cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(http.StatusOK, map[string]string{"session_id": id})
}
