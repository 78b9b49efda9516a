package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"promptmatch-backend/internal/models"
	"promptmatch-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const notifyTimeout = 10 * time.Second

// SwipeResult reports whether a swipe completed a match
type SwipeResult struct {
	Matched bool   `json:"matched"`
	MatchID string `json:"match_id,omitempty"`
}

// SwipeService records swipes and forms matches on mutual likes
type SwipeService struct {
	tx       Transactor
	swipes   SwipeStore
	users    UserStore
	matches  MatchStore
	notifier MatchNotifier
	now      func() time.Time
}

// NewSwipeService creates a new swipe service. A nil notifier disables match notifications.
func NewSwipeService(tx Transactor, swipes SwipeStore, users UserStore, matches MatchStore, notifier MatchNotifier) *SwipeService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &SwipeService{
		tx:       tx,
		swipes:   swipes,
		users:    users,
		matches:  matches,
		notifier: notifier,
		now:      time.Now,
	}
}

// SwipeRequest represents a request to swipe on a candidate
type SwipeRequest struct {
	SwipedID  string `json:"swiped_id"`
	Direction string `json:"direction"`
}

// RecordSwipe stores the decision of swiperID about swipedID. A like answering an earlier like
// creates the match for the pair, at most once even when both likes race.
func (s *SwipeService) RecordSwipe(ctx context.Context, swiperID, swipedID, direction string) (*SwipeResult, error) {
	if direction != models.DirectionLike && direction != models.DirectionPass {
		return nil, fmt.Errorf("%w: direction must be %q or %q", ErrValidation, models.DirectionLike, models.DirectionPass)
	}
	if swipedID == "" {
		return nil, fmt.Errorf("%w: swiped_id is required", ErrValidation)
	}
	if swiperID == swipedID {
		return nil, fmt.Errorf("%w: cannot swipe on yourself", ErrValidation)
	}

	if _, err := s.users.GetByID(ctx, swipedID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, swipedID)
		}
		return nil, fmt.Errorf("failed to get swiped user: %w", err)
	}

	now := s.now()
	swipe := &models.Swipe{
		ID:        uuid.New().String(),
		SwiperID:  swiperID,
		SwipedID:  swipedID,
		Direction: direction,
		CreatedAt: now,
	}

	result := &SwipeResult{}
	var created *models.Match
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		userA, userB := models.CanonicalPair(swiperID, swipedID)
		if err := s.swipes.LockPair(ctx, userA, userB); err != nil {
			return err
		}

		if err := s.swipes.Create(ctx, swipe); err != nil {
			switch {
			case errors.Is(err, repository.ErrConflict):
				return ErrDuplicateSwipe
			case errors.Is(err, repository.ErrNotFound):
				return fmt.Errorf("%w: %w", ErrNotFound, err)
			}
			return err
		}

		if direction != models.DirectionLike {
			return nil
		}

		liked, err := s.swipes.HasLike(ctx, swipedID, swiperID)
		if err != nil || !liked {
			return err
		}

		match, isNew, err := s.matches.CreateIfAbsent(ctx, &models.Match{
			ID:        uuid.New().String(),
			UserAID:   userA,
			UserBID:   userB,
			CreatedAt: now,
		})
		if err != nil {
			return err
		}

		result.Matched = true
		result.MatchID = match.ID
		if isNew {
			created = match
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateSwipe) || errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to record swipe: %w", err)
	}

	if created != nil {
		log.Info().
			Str("match_id", created.ID).
			Str("user_a_id", created.UserAID).
			Str("user_b_id", created.UserBID).
			Msg("Match created")
		go s.notifyMatch(created)
	}

	return result, nil
}

func (s *SwipeService) notifyMatch(match *models.Match) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	users, err := s.users.GetByIDs(ctx, []string{match.UserAID, match.UserBID})
	if err != nil {
		log.Error().Err(err).Str("match_id", match.ID).Msg("Failed to load match participants for notification")
		return
	}

	if err := s.notifier.NotifyMatch(ctx, match, users); err != nil {
		log.Error().Err(err).Str("match_id", match.ID).Msg("Failed to notify match")
	}
}
