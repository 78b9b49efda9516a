package services

import "errors"

// Domain errors returned by the services. Storage outages surface as repository.ErrUnavailable.
var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("invalid request")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrDuplicateSwipe  = errors.New("user already swiped on this candidate")
	ErrNotParticipant  = errors.New("user is not a participant of this match")
	ErrEmptyContent    = errors.New("message content is empty")
	ErrContentTooLong  = errors.New("message content is too long")
	ErrInvalidInvite   = errors.New("invite code is invalid or already used")
	ErrAccountExists   = errors.New("account already exists")
	ErrPhotosDisabled  = errors.New("photo storage is not configured")
)
