package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clinicflow/clinicflow/internal/conversation"
	"github.com/clinicflow/clinicflow/internal/scheduling"
	"github.com/clinicflow/clinicflow/internal/webchat"
	"github.com/clinicflow/clinicflow/pkg/logging"
)

type scriptedController struct {
	reply conversation.Reply
}

func (s *scriptedController) Start(ctx context.Context, patient scheduling.Patient) (conversation.Reply, error) {
	return s.reply, nil
}

func (s *scriptedController) Handle(ctx context.Context, sessionID string, input conversation.Input) (conversation.Reply, error) {
	reply := s.reply
	reply.SessionID = sessionID
	return reply, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := logging.New("error")
	controller := &scriptedController{reply: conversation.Reply{
		SessionID: "sess1",
		State:     conversation.StateCollectingSymptoms,
		Messages:  []string{"Hello! Please describe your symptoms."},
	}}
	chat := webchat.NewHandler(controller, nil, logger)

	return New(&Config{
		Logger:      logger,
		ChatHandler: chat,
	})
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterChatStartEndpoint(t *testing.T) {
	router := newTestRouter(t)

	body := `{"name":"Ravi Kumar","email":"ravi@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/chat/start", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var reply conversation.Reply
	if err := json.NewDecoder(rr.Body).Decode(&reply); err != nil {
		t.Fatalf("failed to decode reply: %v", err)
	}
	if reply.SessionID != "sess1" {
		t.Errorf("expected session 'sess1', got %q", reply.SessionID)
	}
}

func TestRouterChatMessageEndpoint(t *testing.T) {
	router := newTestRouter(t)

	body := `{"session_id":"sess1","type":"message","text":"chest pain"}`
	req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
}

func TestRouterWidgetEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/chat/widget.js", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/javascript" {
		t.Fatalf("expected javascript response, got %s", ct)
	}
}

// Chat routes are absent when no handler is configured; the server can still
// come up for health checks while dependencies are missing.
func TestRouterChatRoutesMissingWithoutHandler(t *testing.T) {
	r := New(&Config{Logger: logging.New("error")})

	req := httptest.NewRequest(http.MethodPost, "/chat/start", strings.NewReader("{}"))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound && rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 404/405 when ChatHandler is nil, got %d", rr.Code)
	}
}

func TestRouterChatRateLimit(t *testing.T) {
	logger := logging.New("error")
	controller := &scriptedController{reply: conversation.Reply{SessionID: "sess1"}}
	r := New(&Config{
		Logger:        logger,
		ChatHandler:   webchat.NewHandler(controller, nil, logger),
		ChatRateLimit: 1,
		ChatRateBurst: 1,
	})

	body := `{"session_id":"sess1","type":"message","text":"hi"}`
	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(body)))
	if first.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(body)))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be limited, got %d", second.Code)
	}
}
