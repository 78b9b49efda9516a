package handlers

import (
	"net/http"

	"promptmatch-backend/internal/middleware"
	"promptmatch-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// AccountHandler handles account, profile and invite HTTP requests
type AccountHandler struct {
	accountService *services.AccountService
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accountService *services.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

// CreateAccount handles POST /api/v1/accounts
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req services.CreateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.accountService.CreateAccount(ctx, userID, req.InviteCode, req.Name, req.School)
	if err != nil {
		respondServiceError(w, err, logFor(err).Str("user_id", userID), "Failed to create account")
		return
	}

	log.Info().
		Str("user_id", user.ID).
		Str("school", user.School).
		Msg("Account created")

	respondJSON(w, http.StatusCreated, user)
}

// GetProfile handles GET /api/v1/me
func (h *AccountHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	profile, err := h.accountService.GetProfile(ctx, userID)
	if err != nil {
		respondServiceError(w, err, logFor(err).Str("user_id", userID), "Failed to get profile")
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// UpdateProfile handles PATCH /api/v1/me
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var patch services.ProfilePatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	profile, err := h.accountService.UpdateProfile(ctx, userID, patch)
	if err != nil {
		respondServiceError(w, err, logFor(err).Str("user_id", userID), "Failed to update profile")
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// ListInvites handles GET /api/v1/invites
func (h *AccountHandler) ListInvites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	invites, err := h.accountService.ListInvites(ctx, userID)
	if err != nil {
		respondServiceError(w, err, logFor(err).Str("user_id", userID), "Failed to list invites")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"invites": invites})
}

// CreateInvite handles POST /api/v1/invites
func (h *AccountHandler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	invite, err := h.accountService.CreateInvite(ctx, userID)
	if err != nil {
		respondServiceError(w, err, logFor(err).Str("user_id", userID), "Failed to create invite")
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("code", invite.Code).
		Msg("Invite created")

	respondJSON(w, http.StatusCreated, invite)
}
