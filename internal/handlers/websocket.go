package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"promptmatch-backend/internal/middleware"
	"promptmatch-backend/internal/models"
	"promptmatch-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = (pongWait * 9) / 10
	maxFrameBytes = 8 << 10
)

// WebSocket frame types
const (
	frameSendMessage = "send_message"
	frameMessage     = "message"
	frameMessageSent = "message_sent"
	frameError       = "error"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins
	},
}

// WSMessage represents a WebSocket frame
type WSMessage struct {
	Type    string          `json:"type"`
	Content string          `json:"content,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    *models.Message `json:"data,omitempty"`
}

// WebSocketHandler streams match chats over WebSocket connections
type WebSocketHandler struct {
	identity    middleware.TokenResolver
	chatService *services.ChatService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(identity middleware.TokenResolver, chatService *services.ChatService) *WebSocketHandler {
	return &WebSocketHandler{
		identity:    identity,
		chatService: chatService,
	}
}

// HandleChat handles GET /api/v1/ws/matches/{match_id}?token=
func (h *WebSocketHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on WebSocket requests, so the token comes in the query
	userID, err := h.identity.Resolve(r.URL.Query().Get("token"))
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}
	matchID := chi.URLParam(r, "match_id")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub, err := h.chatService.Subscribe(ctx, matchID, userID)
	if err != nil {
		respondServiceError(w, err, logFor(err).Str("user_id", userID).Str("match_id", matchID), "Failed to subscribe to chat")
		return
	}
	defer sub.Close()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	log.Info().Str("user_id", userID).Str("match_id", matchID).Msg("WebSocket connection established")

	outbound := make(chan WSMessage, 8)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writePump(ctx, cancel, conn, sub, outbound)
	}()

	h.readPump(ctx, conn, matchID, userID, outbound)
	cancel()
	<-writerDone

	log.Info().Str("user_id", userID).Str("match_id", matchID).Msg("WebSocket connection closed")
}

// readPump handles inbound frames until the connection fails
func (h *WebSocketHandler) readPump(ctx context.Context, conn *websocket.Conn, matchID, userID string, outbound chan<- WSMessage) {
	conn.SetReadLimit(maxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	reply := func(msg WSMessage) bool {
		select {
		case outbound <- msg:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			return
		}

		var in WSMessage
		if err := json.Unmarshal(data, &in); err != nil {
			if !reply(WSMessage{Type: frameError, Message: "Invalid message format"}) {
				return
			}
			continue
		}

		var out WSMessage
		switch in.Type {
		case frameSendMessage:
			msg, err := h.chatService.SendMessage(ctx, matchID, userID, in.Content)
			if err != nil {
				logFor(err).Err(err).Str("user_id", userID).Str("match_id", matchID).Msg("Failed to send message")
				out = WSMessage{Type: frameError, Message: clientMessage(err, statusFor(err))}
			} else {
				out = WSMessage{Type: frameMessageSent, Data: msg}
			}
		default:
			out = WSMessage{Type: frameError, Message: "Unknown message type"}
		}
		if !reply(out) {
			return
		}
	}
}

// writePump is the only writer of conn. It stops when ctx is done or a write fails.
func (h *WebSocketHandler) writePump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, sub *services.Subscription, outbound <-chan WSMessage) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	// Closing unblocks the reader
	defer conn.Close()
	defer cancel()

	write := func(msg WSMessage) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(msg) == nil
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case msg, ok := <-sub.Messages():
			if !ok || !write(WSMessage{Type: frameMessage, Data: msg}) {
				return
			}
		case msg := <-outbound:
			if !write(msg) {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
