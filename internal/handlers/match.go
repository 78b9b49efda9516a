package handlers

import (
	"net/http"

	"promptmatch-backend/internal/middleware"
	"promptmatch-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// MatchHandler handles match and chat HTTP requests
type MatchHandler struct {
	matchService *services.MatchService
	chatService  *services.ChatService
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(matchService *services.MatchService, chatService *services.ChatService) *MatchHandler {
	return &MatchHandler{
		matchService: matchService,
		chatService:  chatService,
	}
}

// ListMatches handles GET /api/v1/matches
func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	matches, err := h.matchService.ListMatches(ctx, userID)
	if err != nil {
		respondServiceError(w, err, logFor(err).Str("user_id", userID), "Failed to list matches")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

// GetMatch handles GET /api/v1/matches/{match_id}
func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	matchID := chi.URLParam(r, "match_id")

	match, err := h.matchService.GetMatch(ctx, matchID, userID)
	if err != nil {
		respondServiceError(w, err, logFor(err).Str("user_id", userID).Str("match_id", matchID), "Failed to get match")
		return
	}

	respondJSON(w, http.StatusOK, match)
}

// ListMessages handles GET /api/v1/matches/{match_id}/messages
func (h *MatchHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	matchID := chi.URLParam(r, "match_id")

	messages, err := h.chatService.ListMessages(ctx, matchID, userID)
	if err != nil {
		respondServiceError(w, err, logFor(err).Str("user_id", userID).Str("match_id", matchID), "Failed to list messages")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// SendMessage handles POST /api/v1/matches/{match_id}/messages
func (h *MatchHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	matchID := chi.URLParam(r, "match_id")

	var req services.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.chatService.SendMessage(ctx, matchID, userID, req.Content)
	if err != nil {
		respondServiceError(w, err, logFor(err).Str("user_id", userID).Str("match_id", matchID), "Failed to send message")
		return
	}

	log.Debug().
		Str("user_id", userID).
		Str("match_id", matchID).
		Int64("position", msg.Position).
		Msg("Message sent")

	respondJSON(w, http.StatusCreated, msg)
}
