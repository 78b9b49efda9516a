package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
	"unicode/utf8"

	"promptmatch-backend/internal/models"
	"promptmatch-backend/internal/repository"
)

const (
	codeLength       = 8
	codeChars        = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeAttempts  = 10
	maxProfileField  = 100
	profileResponses = 7
)

// AccountService handles accounts, invites and profiles
type AccountService struct {
	tx      Transactor
	users   UserStore
	invites InviteStore
	prompts PromptStore
	photos  PhotoResolver
	now     func() time.Time
}

// NewAccountService creates a new account service
func NewAccountService(tx Transactor, users UserStore, invites InviteStore, prompts PromptStore, photos PhotoResolver) *AccountService {
	return &AccountService{
		tx:      tx,
		users:   users,
		invites: invites,
		prompts: prompts,
		photos:  photos,
		now:     time.Now,
	}
}

// CreateAccountRequest represents a request to create an account
type CreateAccountRequest struct {
	InviteCode string `json:"invite_code"`
	Name       string `json:"name"`
	School     string `json:"school"`
}

// ProfilePatch holds the profile fields to change. Nil fields stay untouched; an empty
// photo ref or push token clears it.
type ProfilePatch struct {
	Name      *string `json:"name"`
	School    *string `json:"school"`
	PhotoRef  *string `json:"photo_ref"`
	PushToken *string `json:"push_token"`
}

// Profile is the requester's own view of their account
type Profile struct {
	models.User
	PhotoURL  string                `json:"photo_url,omitempty"`
	Responses []models.ResponseView `json:"responses"`
}

// CreateInvite creates a single-use invite code. An empty creatorID creates an operator invite.
func (s *AccountService) CreateInvite(ctx context.Context, creatorID string) (*models.Invite, error) {
	var createdBy *string
	if creatorID != "" {
		if _, err := s.users.GetByID(ctx, creatorID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: account %s", ErrNotFound, creatorID)
			}
			return nil, fmt.Errorf("failed to get invite creator: %w", err)
		}
		createdBy = &creatorID
	}

	for i := 0; i < maxCodeAttempts; i++ {
		invite := &models.Invite{
			Code:      generateCode(),
			CreatedBy: createdBy,
			CreatedAt: s.now(),
		}
		err := s.invites.Create(ctx, invite)
		if err == nil {
			return invite, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("failed to create invite: %w", err)
		}
	}
	return nil, fmt.Errorf("failed to generate unique invite code after %d attempts", maxCodeAttempts)
}

// ListInvites returns the invites created by creatorID, newest first
func (s *AccountService) ListInvites(ctx context.Context, creatorID string) ([]*models.Invite, error) {
	invites, err := s.invites.ListByCreator(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	return invites, nil
}

// generateCode generates a random invite code
func generateCode() string {
	code := make([]byte, codeLength)
	for i := range code {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(codeChars))))
		code[i] = codeChars[n.Int64()]
	}
	return string(code)
}

// CreateAccount redeems an invite and creates the account of userID in one transaction
func (s *AccountService) CreateAccount(ctx context.Context, userID, inviteCode, name, school string) (*models.User, error) {
	name = strings.TrimSpace(name)
	school = strings.TrimSpace(school)
	if err := validateProfileField("name", name); err != nil {
		return nil, err
	}
	if err := validateProfileField("school", school); err != nil {
		return nil, err
	}
	inviteCode = strings.ToUpper(strings.TrimSpace(inviteCode))
	if len(inviteCode) != codeLength {
		return nil, ErrInvalidInvite
	}

	now := s.now()
	user := &models.User{
		ID:        userID,
		Name:      name,
		School:    school,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// Checked first: the invite must stay unused when the account already exists.
		_, err := s.users.GetByID(ctx, userID)
		switch {
		case err == nil:
			return ErrAccountExists
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}

		if _, err := s.invites.Consume(ctx, inviteCode, userID, now); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInvalidInvite
			}
			return err
		}

		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrAccountExists
			}
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAccountExists) || errors.Is(err, ErrInvalidInvite) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return user, nil
}

// GetProfile returns the profile of userID with its latest prompt responses
func (s *AccountService) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.profile(ctx, user)
}

// UpdateProfile applies patch to the profile of userID
func (s *AccountService) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (*Profile, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if err := validateProfileField("name", name); err != nil {
			return nil, err
		}
		user.Name = name
	}
	if patch.School != nil {
		school := strings.TrimSpace(*patch.School)
		if err := validateProfileField("school", school); err != nil {
			return nil, err
		}
		user.School = school
	}
	if patch.PhotoRef != nil {
		switch ref := *patch.PhotoRef; {
		case ref == "":
			user.PhotoRef = nil
		case ownsPhotoRef(userID, ref):
			user.PhotoRef = &ref
		default:
			return nil, fmt.Errorf("%w: photo_ref must be an upload of this account", ErrValidation)
		}
	}
	if patch.PushToken != nil {
		if token := strings.TrimSpace(*patch.PushToken); token == "" {
			user.PushToken = nil
		} else {
			user.PushToken = &token
		}
	}
	user.UpdatedAt = s.now()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return s.profile(ctx, user)
}

func (s *AccountService) getUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: account %s", ErrNotFound, userID)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return user, nil
}

func (s *AccountService) profile(ctx context.Context, user *models.User) (*Profile, error) {
	public, err := publicProfile(ctx, s.photos, user)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve profile photo: %w", err)
	}

	responses, err := s.prompts.ListRecentResponses(ctx, []string{user.ID}, time.Time{}, profileResponses)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile responses: %w", err)
	}

	profile := &Profile{
		User:      *user,
		PhotoURL:  public.PhotoURL,
		Responses: responses[user.ID],
	}
	if profile.Responses == nil {
		profile.Responses = []models.ResponseView{}
	}
	return profile, nil
}

func validateProfileField(field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s is required", ErrValidation, field)
	}
	if utf8.RuneCountInString(value) > maxProfileField {
		return fmt.Errorf("%w: %s is limited to %d characters", ErrValidation, field, maxProfileField)
	}
	return nil
}
