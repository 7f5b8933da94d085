package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/everyshare/tripbot/domain"
	"github.com/everyshare/tripbot/internal/adapter/llm"
)

func newChatServer(t *testing.T) (*httptest.Server, *llm.MockClient) {
	t.Helper()
	e := echo.New()
	h, mock := newTestHandler(t)
	h.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv, mock
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
}

func dialChat(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	if sessionID != "" {
		header.Set("Cookie", sessionCookieName+"="+sessionID)
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestChatRejectsMissingSessionCookie(t *testing.T) {
	srv, _ := newChatServer(t)

	conn := dialChat(t, srv, "")
	_, _, err := conn.ReadMessage()
	closeErr, ok := err.(*websocket.CloseError)
	if !ok {
		t.Fatalf("expected close error, got %v", err)
	}
	if closeErr.Code != websocket.ClosePolicyViolation {
		t.Fatalf("expected close code %d, got %d", websocket.ClosePolicyViolation, closeErr.Code)
	}
}

func TestChatRoundTrip(t *testing.T) {
	srv, mock := newChatServer(t)
	mock.Enqueue(`{"kind": "plain", "sender": "bot", "text": "안녕하세요!"}`)

	conn := dialChat(t, srv, "ws-session")
	if err := conn.WriteJSON(map[string]string{"text": "안녕"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	var out domain.Turn
	if err := conn.ReadJSON(&out); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if out.SessionID != "ws-session" {
		t.Fatalf("expected cookie session id, got %q", out.SessionID)
	}
	if out.Kind != domain.KindPlain || out.Sender != domain.SenderBot {
		t.Fatalf("unexpected reply: %+v", out)
	}
	if out.Text != "안녕하세요!" {
		t.Fatalf("unexpected text: %q", out.Text)
	}
}

func TestChatIgnoresClientSessionID(t *testing.T) {
	srv, mock := newChatServer(t)
	mock.Enqueue(`{"kind": "plain", "sender": "bot", "text": "네"}`)

	conn := dialChat(t, srv, "cookie-session")
	if err := conn.WriteJSON(map[string]string{"session_id": "spoofed", "text": "안녕"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	var out domain.Turn
	if err := conn.ReadJSON(&out); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if out.SessionID != "cookie-session" {
		t.Fatalf("client-supplied session id must be ignored, got %q", out.SessionID)
	}
}

func TestChatSurvivesMalformedFrame(t *testing.T) {
	srv, mock := newChatServer(t)

	conn := dialChat(t, srv, "ws-session")
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{{{not json`)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	data, err := readText(t, conn)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var out domain.Turn
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("invalid error turn: %v", err)
	}
	if out.Text != badMessageText {
		t.Fatalf("expected error turn, got %q", out.Text)
	}

	// The connection stays up and the next turn goes through.
	mock.Enqueue(`{"kind": "plain", "sender": "bot", "text": "안녕하세요!"}`)
	if err := conn.WriteJSON(map[string]string{"text": "안녕"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := conn.ReadJSON(&out); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if out.Text != "안녕하세요!" {
		t.Fatalf("unexpected text: %q", out.Text)
	}
}

func readText(t *testing.T, conn *websocket.Conn) ([]byte, error) {
	t.Helper()
	_, data, err := conn.ReadMessage()
	return data, err
}
