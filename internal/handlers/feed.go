package handlers

import (
	"net/http"

	"promptmatch-backend/internal/middleware"
	"promptmatch-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// FeedHandler handles feed and swipe HTTP requests
type FeedHandler struct {
	feedService  *services.FeedService
	swipeService *services.SwipeService
}

// NewFeedHandler creates a new feed handler
func NewFeedHandler(feedService *services.FeedService, swipeService *services.SwipeService) *FeedHandler {
	return &FeedHandler{
		feedService:  feedService,
		swipeService: swipeService,
	}
}

// GetFeed handles GET /api/v1/feed
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	feed, err := h.feedService.Feed(ctx, userID)
	if err != nil {
		respondServiceError(w, err, logFor(err).Str("user_id", userID), "Failed to build feed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"candidates": feed})
}

// RecordSwipe handles POST /api/v1/swipes
func (h *FeedHandler) RecordSwipe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req services.SwipeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.swipeService.RecordSwipe(ctx, userID, req.SwipedID, req.Direction)
	if err != nil {
		respondServiceError(w, err, logFor(err).
			Str("user_id", userID).
			Str("swiped_id", req.SwipedID).
			Str("direction", req.Direction), "Failed to record swipe")
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("swiped_id", req.SwipedID).
		Str("direction", req.Direction).
		Bool("matched", result.Matched).
		Msg("Swipe recorded")

	respondJSON(w, http.StatusOK, result)
}
