package services

import (
	"context"
	"errors"
	"fmt"

	"promptmatch-backend/internal/models"
	"promptmatch-backend/internal/repository"
)

// MatchService exposes the matches of a user
type MatchService struct {
	matches MatchStore
	users   UserStore
	photos  PhotoResolver
}

// NewMatchService creates a new match service
func NewMatchService(matches MatchStore, users UserStore, photos PhotoResolver) *MatchService {
	return &MatchService{
		matches: matches,
		users:   users,
		photos:  photos,
	}
}

// ListMatches returns the matches of userID, newest first
func (s *MatchService) ListMatches(ctx context.Context, userID string) ([]models.MatchView, error) {
	matches, err := s.matches.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	otherIDs := make([]string, 0, len(matches))
	for _, match := range matches {
		otherID, _ := match.OtherUserID(userID)
		otherIDs = append(otherIDs, otherID)
	}
	users, err := s.users.GetByIDs(ctx, otherIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load matched users: %w", err)
	}
	byID := make(map[string]*models.User, len(users))
	for _, user := range users {
		byID[user.ID] = user
	}

	views := make([]models.MatchView, 0, len(matches))
	for i, match := range matches {
		other, ok := byID[otherIDs[i]]
		if !ok {
			continue
		}
		view, err := s.view(ctx, match, other)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// GetMatch returns a single match of userID
func (s *MatchService) GetMatch(ctx context.Context, matchID, userID string) (*models.MatchView, error) {
	match, err := authorizeMatch(ctx, s.matches, matchID, userID)
	if err != nil {
		return nil, err
	}

	otherID, _ := match.OtherUserID(userID)
	other, err := s.users.GetByID(ctx, otherID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, otherID)
		}
		return nil, fmt.Errorf("failed to get matched user: %w", err)
	}

	view, err := s.view(ctx, match, other)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *MatchService) view(ctx context.Context, match *models.Match, other *models.User) (models.MatchView, error) {
	profile, err := publicProfile(ctx, s.photos, other)
	if err != nil {
		return models.MatchView{}, fmt.Errorf("failed to resolve matched user photo: %w", err)
	}
	return models.MatchView{
		ID:        match.ID,
		MatchedAt: match.CreatedAt,
		OtherUser: profile,
	}, nil
}

// authorizeMatch loads a match and checks that userID takes part in it
func authorizeMatch(ctx context.Context, matches MatchStore, matchID, userID string) (*models.Match, error) {
	match, err := matches.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: match %s", ErrNotFound, matchID)
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if !match.HasUser(userID) {
		return nil, ErrNotParticipant
	}
	return match, nil
}
