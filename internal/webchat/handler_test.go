package webchat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/clinicflow/clinicflow/internal/conversation"
	"github.com/clinicflow/clinicflow/internal/scheduling"
	"github.com/clinicflow/clinicflow/pkg/logging"
)

// mockController scripts replies and records the inputs it saw.
type mockController struct {
	startReply  conversation.Reply
	handleReply conversation.Reply
	handleErr   error

	started []scheduling.Patient
	inputs  []conversation.Input
}

func (m *mockController) Start(_ context.Context, patient scheduling.Patient) (conversation.Reply, error) {
	m.started = append(m.started, patient)
	return m.startReply, nil
}

func (m *mockController) Handle(_ context.Context, sessionID string, input conversation.Input) (conversation.Reply, error) {
	m.inputs = append(m.inputs, input)
	if m.handleErr != nil {
		return conversation.Reply{}, m.handleErr
	}
	reply := m.handleReply
	reply.SessionID = sessionID
	return reply, nil
}

func TestHandleStart_HTTP(t *testing.T) {
	mc := &mockController{startReply: conversation.Reply{
		SessionID: "sess1",
		State:     conversation.StateCollectingSymptoms,
		Messages:  []string{"Hello Ravi Kumar! Please describe your symptoms."},
	}}
	h := NewHandler(mc, nil, logging.New("error"))

	body := `{"name":"Ravi Kumar","email":"ravi@example.com","phone":"+91 55510 12345"}`
	req := httptest.NewRequest(http.MethodPost, "/chat/start", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleStart(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var reply conversation.Reply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	assert.Equal(t, "sess1", reply.SessionID)
	assert.Equal(t, conversation.StateCollectingSymptoms, reply.State)

	require.Len(t, mc.started, 1)
	assert.Equal(t, "Ravi Kumar", mc.started[0].Name)
	assert.Equal(t, "ravi@example.com", mc.started[0].Email)
}

func TestHandleMessage_HTTP(t *testing.T) {
	mc := &mockController{handleReply: conversation.Reply{
		State:      conversation.StateAwaitingSpecialist,
		Messages:   []string{"Please pick a specialist:"},
		ChoiceKind: conversation.ChoiceSpecialists,
		Choices:    []string{"Dr. Asha Rao"},
	}}
	h := NewHandler(mc, nil, logging.New("error"))

	body := `{"session_id":"sess1","type":"message","text":"chest pain"}`
	req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleMessage(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var reply conversation.Reply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	assert.Equal(t, "sess1", reply.SessionID)
	assert.Equal(t, []string{"Dr. Asha Rao"}, reply.Choices)

	require.Len(t, mc.inputs, 1)
	assert.Equal(t, conversation.InputMessage, mc.inputs[0].Type)
	assert.Equal(t, "chest pain", mc.inputs[0].Text)
}

func TestHandleMessage_ChoiceAction(t *testing.T) {
	mc := &mockController{handleReply: conversation.Reply{State: conversation.StateAwaitingSlot}}
	h := NewHandler(mc, nil, logging.New("error"))

	body := `{"session_id":"sess1","type":"choice","choice":2}`
	req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleMessage(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, mc.inputs, 1)
	assert.Equal(t, conversation.InputChoice, mc.inputs[0].Type)
	assert.Equal(t, 2, mc.inputs[0].Choice)
}

func TestHandleMessage_MissingSession(t *testing.T) {
	h := NewHandler(&mockController{}, nil, logging.New("error"))

	body := `{"type":"message","text":"hi"}`
	req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleMessage(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleMessage_UnknownSession(t *testing.T) {
	mc := &mockController{handleErr: conversation.ErrSessionNotFound}
	h := NewHandler(mc, nil, logging.New("error"))

	body := `{"session_id":"gone","type":"message","text":"hi"}`
	req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleMessage(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleMessage_UnsupportedType(t *testing.T) {
	h := NewHandler(&mockController{}, nil, logging.New("error"))

	body := `{"session_id":"sess1","type":"bogus"}`
	req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleMessage(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleWidgetJS(t *testing.T) {
	h := NewHandler(&mockController{}, []byte("// widget"), logging.New("error"))

	req := httptest.NewRequest(http.MethodGet, "/chat/widget.js", nil)
	w := httptest.NewRecorder()

	h.HandleWidgetJS(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/javascript", w.Header().Get("Content-Type"))
	assert.Equal(t, "// widget", w.Body.String())
}

func TestHandleWidgetJS_EmbeddedDefault(t *testing.T) {
	h := NewHandler(&mockController{}, nil, logging.New("error"))

	req := httptest.NewRequest(http.MethodGet, "/chat/widget.js", nil)
	w := httptest.NewRecorder()

	h.HandleWidgetJS(w, req)
	assert.Contains(t, w.Body.String(), "clinicflow-widget")
}

func TestWebSocketStartAndMessage(t *testing.T) {
	mc := &mockController{
		startReply: conversation.Reply{
			SessionID: "sess1",
			State:     conversation.StateCollectingSymptoms,
			Messages:  []string{"Hello! Please describe your symptoms."},
		},
		handleReply: conversation.Reply{
			State:      conversation.StateAwaitingSpecialist,
			Messages:   []string{"Pick a specialist:"},
			ChoiceKind: conversation.ChoiceSpecialists,
			Choices:    []string{"Dr. Asha Rao", "Dr. Nikhil Menon"},
		},
	}
	h := NewHandler(mc, nil, logging.New("error"))

	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws"
	conn, err := websocket.Dial(wsURL, "", srv.URL)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{
		Type: "start", Name: "Ravi Kumar", Email: "ravi@example.com",
	}))

	var session OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &session))
	assert.Equal(t, "session", session.Type)
	assert.Equal(t, "sess1", session.SessionID)

	var greeting OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &greeting))
	assert.Equal(t, "message", greeting.Type)
	assert.Equal(t, "assistant", greeting.Role)
	assert.Contains(t, greeting.Text, "describe your symptoms")

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: "chest pain"}))

	var msg OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, "message", msg.Type)

	var choices OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &choices))
	assert.Equal(t, "choices", choices.Type)
	assert.Equal(t, string(conversation.ChoiceSpecialists), choices.ChoiceKind)
	assert.Len(t, choices.Choices, 2)
}

func TestWebSocketPing(t *testing.T) {
	h := NewHandler(&mockController{}, nil, logging.New("error"))
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws"
	conn, err := websocket.Dial(wsURL, "", srv.URL)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "ping"}))
	var out OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &out))
	assert.Equal(t, "pong", out.Type)
}

func TestWebSocketMessageWithoutSession(t *testing.T) {
	h := NewHandler(&mockController{}, nil, logging.New("error"))
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws"
	conn, err := websocket.Dial(wsURL, "", srv.URL)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: "hello"}))
	var out OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &out))
	assert.Equal(t, "error", out.Type)
	assert.Contains(t, out.Text, "start a session")
}
