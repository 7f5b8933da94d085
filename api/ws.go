package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/everyshare/tripbot/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// Inline base64 images ride on the same frame.
	maxMessageSize = 8 << 20

	// One turn may cross two model calls plus one external lookup.
	processTimeout = 90 * time.Second

	badMessageText = "메시지를 해석하지 못했습니다. 다시 보내주세요."
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS policy is enforced at the echo middleware layer.
		return true
	},
}

// HandleChat upgrades the connection and runs the chat loop. The session
// cookie is mandatory; a connection without one is closed with a policy
// violation right after the handshake.
func (h *Handler) HandleChat(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("WARN: websocket upgrade failed: %v", err)
		return err
	}

	cookie, err := c.Request().Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session cookie required")
		ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		ws.Close()
		return nil
	}

	conn := h.hub.NewConnection(ws, cookie.Value)
	h.hub.Register(conn)

	ws.SetReadLimit(maxMessageSize)

	go h.writePump(conn)
	h.readPump(conn)
	return nil
}

// readPump reads inbound turns and processes them one by one. Per-connection
// processing is serial so replies arrive in the order the user asked.
func (h *Handler) readPump(conn *Connection) {
	defer func() {
		if h.hub.Unregister(conn) {
			h.svc.EndSession(conn.SessionID)
		}
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WARN: websocket read error: %v", err)
			}
			return
		}
		h.handleTurn(conn, data)
	}
}

// writePump drains the connection's send queue and keeps the peer alive with
// pings.
func (h *Handler) writePump(conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case data, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("WARN: websocket write failed: %v", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleTurn decodes one inbound frame and replies on the same connection.
// Malformed frames get an error turn; the connection stays up.
func (h *Handler) handleTurn(conn *Connection, data []byte) {
	var turn domain.Turn
	if err := json.Unmarshal(data, &turn); err != nil {
		h.hub.SendJSON(conn, domain.Turn{
			SessionID: conn.SessionID,
			Kind:      domain.KindPlain,
			Sender:    domain.SenderBot,
			Text:      badMessageText,
			Timestamp: time.Now().UTC(),
		})
		return
	}

	// The cookie, not the client payload, decides the session.
	turn.SessionID = conn.SessionID
	turn.Sender = domain.SenderUser

	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()
	out, err := h.svc.Process(ctx, turn)
	if err != nil {
		log.Printf("WARN: turn processing failed for %s: %v", conn.SessionID, err)
		out = domain.Turn{
			SessionID: conn.SessionID,
			Kind:      domain.KindPlain,
			Sender:    domain.SenderBot,
			Text:      badMessageText,
			Timestamp: time.Now().UTC(),
		}
	}

	// Replies fan out to every connection of the session, so a second tab
	// sees the same conversation.
	if err := h.hub.BroadcastJSON(conn.SessionID, out); err != nil {
		log.Printf("WARN: failed to queue reply for %s: %v", conn.SessionID, err)
	}
}
