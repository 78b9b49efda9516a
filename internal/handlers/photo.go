package handlers

import (
	"net/http"

	"promptmatch-backend/internal/middleware"
	"promptmatch-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// PhotoHandler handles photo-related HTTP requests
type PhotoHandler struct {
	photoService *services.PhotoService
}

// NewPhotoHandler creates a new photo handler
func NewPhotoHandler(photoService *services.PhotoService) *PhotoHandler {
	return &PhotoHandler{
		photoService: photoService,
	}
}

// UploadRequest represents a request for a pre-signed upload URL
type UploadRequest struct {
	ContentType string `json:"content_type"`
}

// RequestUpload handles POST /api/v1/me/photo
func (h *PhotoHandler) RequestUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req UploadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	upload, err := h.photoService.RequestUpload(ctx, userID, req.ContentType)
	if err != nil {
		respondServiceError(w, err, logFor(err).Str("user_id", userID).Str("content_type", req.ContentType), "Failed to generate upload URL")
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("photo_ref", upload.PhotoRef).
		Msg("Upload URL generated")

	respondJSON(w, http.StatusOK, upload)
}
