package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/everyshare/tripbot/config"
	"github.com/everyshare/tripbot/domain"
	"github.com/everyshare/tripbot/internal/adapter/llm"
	"github.com/everyshare/tripbot/internal/decoder"
	"github.com/everyshare/tripbot/internal/memory"
	"github.com/everyshare/tripbot/internal/service"
	"github.com/everyshare/tripbot/policy"
	"github.com/everyshare/tripbot/tests/helpers"
)

type fareStub struct{}

func (fareStub) SearchLowestFare(context.Context, domain.FlightSlots) (string, error) {
	return "최저가 항공편", nil
}

type visionStub struct{}

func (visionStub) Annotate(context.Context, string) (string, error) {
	return `{"url":"","image_url":"","entities":[]}`, nil
}

func newTestHandler(t *testing.T) (*Handler, *llm.MockClient) {
	t.Helper()
	durable := helpers.NewTestHistory(t)

	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	cfg := &config.Config{
		SessionMaxAge: 24 * time.Hour,
		LLMTimeout:    time.Second,
		ToolTimeout:   time.Second,
	}
	mock := llm.NewMockClient()
	svc := service.New(cfg, mock, durable, decoder.New(nil), fareStub{}, visionStub{},
		memory.NewIndex(llm.MockEmbedder{}), engine)
	return NewHandler(cfg, svc, NewHub()), mock
}

func TestHealth(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Health(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body["status"] != "healthy" {
		t.Fatalf("unexpected status: %v", body["status"])
	}
}

func TestIssueSessionMintsCookie(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.IssueSession(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	cookie := cookies[0]
	if cookie.Name != sessionCookieName {
		t.Fatalf("unexpected cookie name: %s", cookie.Name)
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		t.Fatalf("cookie value is not a uuid: %q", cookie.Value)
	}
	if !cookie.HttpOnly {
		t.Fatalf("cookie must be http-only")
	}
	if cookie.MaxAge != 86400 {
		t.Fatalf("expected 24h max-age, got %d", cookie.MaxAge)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body["session_id"] != cookie.Value {
		t.Fatalf("body session_id %q does not match cookie %q", body["session_id"], cookie.Value)
	}
}

func TestIssueSessionReusesCookie(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "existing-session"})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.IssueSession(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("existing session must not be re-issued")
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body["session_id"] != "existing-session" {
		t.Fatalf("expected existing session id, got %q", body["session_id"])
	}
}

func TestHubTracksSessionConnections(t *testing.T) {
	hub := NewHub()

	c1 := hub.NewConnection(nil, "s1")
	c2 := hub.NewConnection(nil, "s1")
	hub.Register(c1)
	hub.Register(c2)

	if !hub.HasActiveConnections("s1") {
		t.Fatalf("expected active connections for s1")
	}
	if hub.ConnectionCount() != 2 || hub.SessionCount() != 1 {
		t.Fatalf("unexpected counts: %d conns, %d sessions", hub.ConnectionCount(), hub.SessionCount())
	}

	if gone := hub.Unregister(c1); gone {
		t.Fatalf("session must survive while a connection remains")
	}
	if gone := hub.Unregister(c2); !gone {
		t.Fatalf("expected session gone after last unregister")
	}
	if hub.HasActiveConnections("s1") {
		t.Fatalf("expected no active connections for s1")
	}

	// Double unregister is a no-op.
	if gone := hub.Unregister(c2); gone {
		t.Fatalf("second unregister must be a no-op")
	}
}
