package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/websocket"

	"github.com/clinicflow/clinicflow/internal/conversation"
	"github.com/clinicflow/clinicflow/internal/scheduling"
	"github.com/clinicflow/clinicflow/pkg/logging"
)

// Conversationalist drives one chat turn at a time. Transitions are
// synchronous: the reply for an action comes back on the same call.
type Conversationalist interface {
	Start(ctx context.Context, patient scheduling.Patient) (conversation.Reply, error)
	Handle(ctx context.Context, sessionID string, input conversation.Input) (conversation.Reply, error)
}

// Handler serves the patient-facing chat over WebSocket, with an HTTP
// fallback for clients that cannot hold a socket open.
type Handler struct {
	controller Conversationalist
	logger     *logging.Logger
	widgetJS   []byte
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type   string `json:"type"` // "start", "message", "done", "choice", "retry", "reset", "ping"
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Text   string `json:"text,omitempty"`
	Choice int    `json:"choice,omitempty"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type        string                  `json:"type"` // "session", "message", "choices", "appointment", "error", "pong"
	Text        string                  `json:"text,omitempty"`
	Role        string                  `json:"role,omitempty"`
	SessionID   string                  `json:"session_id,omitempty"`
	State       string                  `json:"state,omitempty"`
	ChoiceKind  string                  `json:"choice_kind,omitempty"`
	Choices     []string                `json:"choices,omitempty"`
	Appointment *scheduling.Appointment `json:"appointment,omitempty"`
	Timestamp   string                  `json:"timestamp,omitempty"`
}

// NewHandler creates a web chat handler. A nil widgetJS falls back to the
// embedded widget.
func NewHandler(controller Conversationalist, widgetJS []byte, logger *logging.Logger) *Handler {
	if controller == nil {
		panic("webchat: controller cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if widgetJS == nil {
		widgetJS = defaultWidgetJS
	}
	return &Handler{
		controller: controller,
		logger:     logger,
		widgetJS:   widgetJS,
	}
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	// A returning visitor reconnects with its previous session ID.
	sessionID := r.URL.Query().Get("session")

	h.logger.Info("webchat: connection opened", "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", sessionID, "error", err)
			return
		}

		switch msg.Type {
		case "ping":
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})

		case "start":
			reply, err := h.controller.Start(r.Context(), scheduling.Patient{
				Name:  strings.TrimSpace(msg.Name),
				Email: strings.TrimSpace(msg.Email),
				Phone: strings.TrimSpace(msg.Phone),
			})
			if err != nil {
				h.logger.Error("webchat: failed to start session", "error", err)
				_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "Sorry, something went wrong. Please try again."})
				continue
			}
			sessionID = reply.SessionID
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: sessionID})
			h.push(conn, reply)

		default:
			if sessionID == "" {
				_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "Please start a session first."})
				continue
			}
			input, ok := toInput(msg)
			if !ok {
				continue
			}
			reply, err := h.controller.Handle(r.Context(), sessionID, input)
			if err != nil {
				h.replyError(conn, sessionID, err)
				continue
			}
			h.push(conn, reply)
		}
	}
}

func toInput(msg InboundMessage) (conversation.Input, bool) {
	switch msg.Type {
	case "message":
		if strings.TrimSpace(msg.Text) == "" {
			return conversation.Input{}, false
		}
		return conversation.Input{Type: conversation.InputMessage, Text: msg.Text}, true
	case "done":
		return conversation.Input{Type: conversation.InputDone}, true
	case "choice":
		return conversation.Input{Type: conversation.InputChoice, Choice: msg.Choice}, true
	case "retry":
		return conversation.Input{Type: conversation.InputRetry}, true
	case "reset":
		return conversation.Input{Type: conversation.InputReset}, true
	default:
		return conversation.Input{}, false
	}
}

// push fans one controller reply out as widget messages.
func (h *Handler) push(conn *websocket.Conn, reply conversation.Reply) {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, text := range reply.Messages {
		_ = websocket.JSON.Send(conn, OutboundMessage{
			Type:      "message",
			Role:      "assistant",
			Text:      text,
			SessionID: reply.SessionID,
			State:     string(reply.State),
			Timestamp: now,
		})
	}
	if len(reply.Choices) > 0 {
		_ = websocket.JSON.Send(conn, OutboundMessage{
			Type:       "choices",
			SessionID:  reply.SessionID,
			State:      string(reply.State),
			ChoiceKind: string(reply.ChoiceKind),
			Choices:    reply.Choices,
		})
	}
	if reply.Appointment != nil {
		_ = websocket.JSON.Send(conn, OutboundMessage{
			Type:        "appointment",
			SessionID:   reply.SessionID,
			State:       string(reply.State),
			Appointment: reply.Appointment,
		})
	}
}

func (h *Handler) replyError(conn *websocket.Conn, sessionID string, err error) {
	if errors.Is(err, conversation.ErrSessionNotFound) {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "Your session has expired. Please start again."})
		return
	}
	h.logger.Error("webchat: failed to handle message", "error", err, "session_id", sessionID)
	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "Sorry, something went wrong. Please try again."})
}

// startRequest is the HTTP fallback body for opening a chat.
type startRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// HandleStart is the HTTP fallback for opening a session.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	reply, err := h.controller.Start(r.Context(), scheduling.Patient{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
		Phone: strings.TrimSpace(req.Phone),
	})
	if err != nil {
		h.logger.Error("webchat: failed to start session", "error", err)
		http.Error(w, "failed to start session", http.StatusInternalServerError)
		return
	}
	h.writeReply(w, reply)
}

// HandleMessage is the HTTP fallback for sending one chat action.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		InboundMessage
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	input, ok := toInput(req.InboundMessage)
	if !ok {
		http.Error(w, "unsupported message type", http.StatusBadRequest)
		return
	}

	reply, err := h.controller.Handle(r.Context(), req.SessionID, input)
	if err != nil {
		if errors.Is(err, conversation.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		h.logger.Error("webchat: failed to handle message", "error", err, "session_id", req.SessionID)
		http.Error(w, "failed to handle message", http.StatusInternalServerError)
		return
	}
	h.writeReply(w, reply)
}

func (h *Handler) writeReply(w http.ResponseWriter, reply conversation.Reply) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(reply)
}

// HandleWidgetJS serves the embeddable widget JavaScript.
func (h *Handler) HandleWidgetJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_, _ = w.Write(h.widgetJS)
}
