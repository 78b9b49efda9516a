package handlers

import (
	"net/http"

	"promptmatch-backend/internal/middleware"
	"promptmatch-backend/internal/services"
)

// PromptHandler handles daily prompt HTTP requests
type PromptHandler struct {
	promptService *services.PromptService
}

// NewPromptHandler creates a new prompt handler
func NewPromptHandler(promptService *services.PromptService) *PromptHandler {
	return &PromptHandler{
		promptService: promptService,
	}
}

// Today handles GET /api/v1/prompts/today
func (h *PromptHandler) Today(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	today, err := h.promptService.Today(ctx, userID)
	if err != nil {
		respondServiceError(w, err, logFor(err).Str("user_id", userID), "Failed to get today's prompt")
		return
	}

	respondJSON(w, http.StatusOK, today)
}

// Answer handles PUT /api/v1/prompts/today/response
func (h *PromptHandler) Answer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req services.AnswerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.promptService.Answer(ctx, userID, req.Content)
	if err != nil {
		respondServiceError(w, err, logFor(err).Str("user_id", userID), "Failed to answer prompt")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}
