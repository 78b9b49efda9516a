package services

import (
	"context"
	"fmt"
	"time"

	"promptmatch-backend/internal/models"
)

// FeedOptions bounds the feed
type FeedOptions struct {
	CandidateLimit        int
	ResponsesPerCandidate int
	RecencyWindow         time.Duration
}

func (o *FeedOptions) applyDefaults() {
	if o.CandidateLimit <= 0 {
		o.CandidateLimit = 20
	}
	if o.ResponsesPerCandidate <= 0 {
		o.ResponsesPerCandidate = 7
	}
	if o.RecencyWindow <= 0 {
		o.RecencyWindow = 7 * 24 * time.Hour
	}
}

// FeedService selects and assembles candidate profiles
type FeedService struct {
	candidates CandidateStore
	users      UserStore
	prompts    PromptStore
	photos     PhotoResolver
	opts       FeedOptions
	now        func() time.Time
}

// NewFeedService creates a new feed service
func NewFeedService(candidates CandidateStore, users UserStore, prompts PromptStore, photos PhotoResolver, opts FeedOptions) *FeedService {
	opts.applyDefaults()
	return &FeedService{
		candidates: candidates,
		users:      users,
		prompts:    prompts,
		photos:     photos,
		opts:       opts,
		now:        time.Now,
	}
}

// Feed returns the candidate cards for userID
func (s *FeedService) Feed(ctx context.Context, userID string) ([]models.CandidateView, error) {
	ids, err := s.ComputeEligible(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.BuildFeed(ctx, ids)
}

// ComputeEligible returns the users userID may be shown: not userID, never swiped by userID,
// and with a prompt response inside the recency window. Ordered by account creation.
func (s *FeedService) ComputeEligible(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.candidates.ListEligible(ctx, userID, s.since(), s.opts.CandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to compute eligible candidates: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// BuildFeed turns candidate ids into cards, preserving their order. Candidates without a
// recent response are left out.
func (s *FeedService) BuildFeed(ctx context.Context, candidateIDs []string) ([]models.CandidateView, error) {
	feed := []models.CandidateView{}
	if len(candidateIDs) == 0 {
		return feed, nil
	}

	users, err := s.users.GetByIDs(ctx, candidateIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}
	byID := make(map[string]*models.User, len(users))
	for _, user := range users {
		byID[user.ID] = user
	}

	responses, err := s.prompts.ListRecentResponses(ctx, candidateIDs, s.since(), s.opts.ResponsesPerCandidate)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate responses: %w", err)
	}

	for _, id := range candidateIDs {
		user, ok := byID[id]
		if !ok || len(responses[id]) == 0 {
			continue
		}
		profile, err := publicProfile(ctx, s.photos, user)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve candidate photo: %w", err)
		}
		feed = append(feed, models.CandidateView{
			PublicProfile: profile,
			Responses:     responses[id],
		})
	}

	return feed, nil
}

func (s *FeedService) since() time.Time {
	return s.now().Add(-s.opts.RecencyWindow)
}
