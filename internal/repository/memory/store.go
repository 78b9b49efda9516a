// Package memory keeps every entity in process memory. It backs local runs with
// database.driver=memory and the service tests, and honors the same uniqueness rules
// as the Postgres schema.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"promptmatch-backend/internal/models"
	"promptmatch-backend/internal/repository"
)

type pairKey struct {
	a, b string
}

// Store holds all state behind one mutex
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	users     map[string]models.User
	userOrder []string

	prompts      map[string]models.Prompt // by day
	promptByID   map[string]string        // id -> day
	responses    map[pairKey]models.PromptResponse
	swipes       map[pairKey]models.Swipe
	matches      map[string]models.Match
	matchByPair  map[pairKey]string
	messages     map[string][]models.Message
	lastPosition map[string]int64
	nextMsgID    int64
	invites      map[string]models.Invite
}

// New creates an empty store
func New() *Store {
	return &Store{
		users:        make(map[string]models.User),
		prompts:      make(map[string]models.Prompt),
		promptByID:   make(map[string]string),
		responses:    make(map[pairKey]models.PromptResponse),
		swipes:       make(map[pairKey]models.Swipe),
		matches:      make(map[string]models.Match),
		matchByPair:  make(map[pairKey]string),
		messages:     make(map[string][]models.Message),
		lastPosition: make(map[string]int64),
		invites:      make(map[string]models.Invite),
	}
}

type txKey struct{}

// txLog collects the undo steps of the writes made inside one transaction
type txLog struct {
	undo []func()
}

// WithinTx serializes fn against every other transaction. When fn fails, the writes it made
// through ctx are undone in reverse order; writes made outside the transaction are kept.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to begin transaction: %w: %w", repository.ErrUnavailable, err)
	}

	tx := &txLog{}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		s.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// onRollback registers undo for a write made with ctx. It runs with s.mu held.
func onRollback(ctx context.Context, undo func()) {
	if tx, ok := ctx.Value(txKey{}).(*txLog); ok {
		tx.undo = append(tx.undo, undo)
	}
}

func notFound(op string) error {
	return fmt.Errorf("failed to %s: %w", op, repository.ErrNotFound)
}

func conflict(op string) error {
	return fmt.Errorf("failed to %s: %w", op, repository.ErrConflict)
}

func checkCtx(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to %s: %w: %w", op, repository.ErrUnavailable, err)
	}
	return nil
}

// Users returns the user store view
func (s *Store) Users() *UserRepository { return &UserRepository{s} }

// Prompts returns the prompt store view
func (s *Store) Prompts() *PromptRepository { return &PromptRepository{s} }

// Candidates returns the eligibility store view
func (s *Store) Candidates() *CandidateRepository { return &CandidateRepository{s} }

// Swipes returns the swipe store view
func (s *Store) Swipes() *SwipeRepository { return &SwipeRepository{s} }

// Matches returns the match store view
func (s *Store) Matches() *MatchRepository { return &MatchRepository{s} }

// Messages returns the message store view
func (s *Store) Messages() *MessageRepository { return &MessageRepository{s} }

// Invites returns the invite store view
func (s *Store) Invites() *InviteRepository { return &InviteRepository{s} }

// UserRepository stores users
type UserRepository struct{ s *Store }

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := checkCtx(ctx, "create user"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.users[user.ID]; exists {
		return conflict("create user")
	}
	r.s.users[user.ID] = *user
	r.s.userOrder = append(r.s.userOrder, user.ID)
	onRollback(ctx, func() {
		delete(r.s.users, user.ID)
		r.s.userOrder = slices.DeleteFunc(r.s.userOrder, func(id string) bool { return id == user.ID })
	})
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if err := checkCtx(ctx, "get user"); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, notFound("get user")
	}
	return &user, nil
}

// GetByIDs retrieves the users that exist among ids
func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	if err := checkCtx(ctx, "get users"); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	users := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		if user, ok := r.s.users[id]; ok {
			users = append(users, &user)
		}
	}
	return users, nil
}

// Update overwrites the mutable profile fields of a user
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	if err := checkCtx(ctx, "update user"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.users[user.ID]
	if !ok {
		return notFound("update user")
	}
	current.Name = user.Name
	current.School = user.School
	current.PhotoRef = user.PhotoRef
	current.PushToken = user.PushToken
	current.UpdatedAt = user.UpdatedAt
	r.s.users[user.ID] = current
	return nil
}

// PromptRepository stores prompts and responses
type PromptRepository struct{ s *Store }

// Upsert stores the question of a day, replacing an existing one
func (r *PromptRepository) Upsert(ctx context.Context, prompt *models.Prompt) error {
	if err := checkCtx(ctx, "upsert prompt"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if existing, ok := r.s.prompts[prompt.Day]; ok {
		existing.Question = prompt.Question
		r.s.prompts[prompt.Day] = existing
		prompt.ID = existing.ID
		prompt.CreatedAt = existing.CreatedAt
		return nil
	}
	r.s.prompts[prompt.Day] = *prompt
	r.s.promptByID[prompt.ID] = prompt.Day
	return nil
}

// GetByDay retrieves the prompt of a day
func (r *PromptRepository) GetByDay(ctx context.Context, day string) (*models.Prompt, error) {
	if err := checkCtx(ctx, "get prompt"); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	prompt, ok := r.s.prompts[day]
	if !ok {
		return nil, notFound("get prompt")
	}
	return &prompt, nil
}

// UpsertResponse stores the answer of a user to a prompt, keeping the original creation time
func (r *PromptRepository) UpsertResponse(ctx context.Context, resp *models.PromptResponse) error {
	if err := checkCtx(ctx, "upsert prompt response"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[resp.UserID]; !ok {
		return notFound("upsert prompt response")
	}
	if _, ok := r.s.promptByID[resp.PromptID]; !ok {
		return notFound("upsert prompt response")
	}

	key := pairKey{resp.UserID, resp.PromptID}
	if existing, ok := r.s.responses[key]; ok {
		existing.Content = resp.Content
		existing.UpdatedAt = resp.UpdatedAt
		r.s.responses[key] = existing
		*resp = existing
		return nil
	}
	r.s.responses[key] = *resp
	return nil
}

// GetResponse retrieves the answer of a user to a prompt
func (r *PromptRepository) GetResponse(ctx context.Context, userID, promptID string) (*models.PromptResponse, error) {
	if err := checkCtx(ctx, "get prompt response"); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	resp, ok := r.s.responses[pairKey{userID, promptID}]
	if !ok {
		return nil, notFound("get prompt response")
	}
	return &resp, nil
}

// ListRecentResponses returns, per user, up to perUser responses created at or after since, newest first
func (r *PromptRepository) ListRecentResponses(ctx context.Context, userIDs []string, since time.Time, perUser int) (map[string][]models.ResponseView, error) {
	if err := checkCtx(ctx, "list recent responses"); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	wanted := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}

	type ranked struct {
		resp     models.PromptResponse
		question string
	}
	byUser := make(map[string][]ranked)
	for _, resp := range r.s.responses {
		if !wanted[resp.UserID] || resp.CreatedAt.Before(since) {
			continue
		}
		question := r.s.prompts[r.s.promptByID[resp.PromptID]].Question
		byUser[resp.UserID] = append(byUser[resp.UserID], ranked{resp: resp, question: question})
	}

	result := make(map[string][]models.ResponseView, len(byUser))
	if perUser <= 0 {
		return result, nil
	}
	for userID, items := range byUser {
		sort.Slice(items, func(i, j int) bool {
			if items[i].resp.CreatedAt.Equal(items[j].resp.CreatedAt) {
				return items[i].resp.ID > items[j].resp.ID
			}
			return items[i].resp.CreatedAt.After(items[j].resp.CreatedAt)
		})
		if len(items) > perUser {
			items = items[:perUser]
		}
		views := make([]models.ResponseView, 0, len(items))
		for _, item := range items {
			views = append(views, models.ResponseView{
				Question:  item.question,
				Content:   item.resp.Content,
				CreatedAt: item.resp.CreatedAt,
			})
		}
		result[userID] = views
	}
	return result, nil
}

// CandidateRepository answers eligibility queries
type CandidateRepository struct{ s *Store }

// ListEligible returns ids of users other than userID that userID never swiped and that
// answered a prompt at or after since, in account creation order.
func (r *CandidateRepository) ListEligible(ctx context.Context, userID string, since time.Time, limit int) ([]string, error) {
	if err := checkCtx(ctx, "list eligible candidates"); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	recent := make(map[string]bool)
	for _, resp := range r.s.responses {
		if !resp.CreatedAt.Before(since) {
			recent[resp.UserID] = true
		}
	}

	ids := []string{}
	for _, id := range r.s.userOrder {
		if len(ids) >= limit {
			break
		}
		if id == userID || !recent[id] {
			continue
		}
		if _, swiped := r.s.swipes[pairKey{userID, id}]; swiped {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// SwipeRepository stores swipes
type SwipeRepository struct{ s *Store }

// LockPair is a no-op: WithinTx already serializes transactions
func (r *SwipeRepository) LockPair(ctx context.Context, a, b string) error {
	return checkCtx(ctx, "lock swipe pair")
}

// Create records a swipe. A second swipe for the same (swiper, swiped) fails with ErrConflict.
func (r *SwipeRepository) Create(ctx context.Context, swipe *models.Swipe) error {
	if err := checkCtx(ctx, "create swipe"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[swipe.SwiperID]; !ok {
		return notFound("create swipe")
	}
	if _, ok := r.s.users[swipe.SwipedID]; !ok {
		return notFound("create swipe")
	}
	key := pairKey{swipe.SwiperID, swipe.SwipedID}
	if _, exists := r.s.swipes[key]; exists {
		return conflict("create swipe")
	}
	r.s.swipes[key] = *swipe
	onRollback(ctx, func() { delete(r.s.swipes, key) })
	return nil
}

// HasLike checks whether swiperID liked swipedID
func (r *SwipeRepository) HasLike(ctx context.Context, swiperID, swipedID string) (bool, error) {
	if err := checkCtx(ctx, "check like"); err != nil {
		return false, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	swipe, ok := r.s.swipes[pairKey{swiperID, swipedID}]
	return ok && swipe.Direction == models.DirectionLike, nil
}

// MatchRepository stores matches
type MatchRepository struct{ s *Store }

// CreateIfAbsent inserts the match unless its canonical pair already has one
func (r *MatchRepository) CreateIfAbsent(ctx context.Context, match *models.Match) (*models.Match, bool, error) {
	if err := checkCtx(ctx, "create match"); err != nil {
		return nil, false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	userA, userB := models.CanonicalPair(match.UserAID, match.UserBID)
	key := pairKey{userA, userB}
	if id, exists := r.s.matchByPair[key]; exists {
		existing := r.s.matches[id]
		return &existing, false, nil
	}

	created := *match
	created.UserAID, created.UserBID = userA, userB
	r.s.matches[created.ID] = created
	r.s.matchByPair[key] = created.ID
	onRollback(ctx, func() {
		delete(r.s.matches, created.ID)
		delete(r.s.matchByPair, key)
	})
	return &created, true, nil
}

// GetByID retrieves a match by ID
func (r *MatchRepository) GetByID(ctx context.Context, id string) (*models.Match, error) {
	if err := checkCtx(ctx, "get match"); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	match, ok := r.s.matches[id]
	if !ok {
		return nil, notFound("get match")
	}
	return &match, nil
}

// ListByUser retrieves the matches of a user, newest first
func (r *MatchRepository) ListByUser(ctx context.Context, userID string) ([]*models.Match, error) {
	if err := checkCtx(ctx, "list matches"); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matches := []*models.Match{}
	for _, match := range r.s.matches {
		if match.HasUser(userID) {
			match := match
			matches = append(matches, &match)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID > matches[j].ID
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches, nil
}

// MessageRepository stores chat messages
type MessageRepository struct{ s *Store }

// Append stores a message and fills in its ID and Position
func (r *MessageRepository) Append(ctx context.Context, msg *models.Message) error {
	if err := checkCtx(ctx, "append message"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.matches[msg.MatchID]; !ok {
		return notFound("append message")
	}
	r.s.nextMsgID++
	r.s.lastPosition[msg.MatchID]++
	msg.ID = r.s.nextMsgID
	msg.Position = r.s.lastPosition[msg.MatchID]
	r.s.messages[msg.MatchID] = append(r.s.messages[msg.MatchID], *msg)
	return nil
}

// ListByMatch retrieves messages of a match with Position greater than after, oldest first
func (r *MessageRepository) ListByMatch(ctx context.Context, matchID string, after int64) ([]*models.Message, error) {
	if err := checkCtx(ctx, "list messages"); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	messages := []*models.Message{}
	for _, msg := range r.s.messages[matchID] {
		if msg.Position > after {
			msg := msg
			messages = append(messages, &msg)
		}
	}
	return messages, nil
}

// LastPosition returns the position of the newest message of a match
func (r *MessageRepository) LastPosition(ctx context.Context, matchID string) (int64, error) {
	if err := checkCtx(ctx, "get last message position"); err != nil {
		return 0, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if _, ok := r.s.matches[matchID]; !ok {
		return 0, notFound("get last message position")
	}
	return r.s.lastPosition[matchID], nil
}

// InviteRepository stores invites
type InviteRepository struct{ s *Store }

// Create creates a new invite
func (r *InviteRepository) Create(ctx context.Context, invite *models.Invite) error {
	if err := checkCtx(ctx, "create invite"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.invites[invite.Code]; exists {
		return conflict("create invite")
	}
	r.s.invites[invite.Code] = *invite
	return nil
}

// Consume marks an unused invite as used by userID
func (r *InviteRepository) Consume(ctx context.Context, code, userID string, at time.Time) (*models.Invite, error) {
	if err := checkCtx(ctx, "consume invite"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	invite, ok := r.s.invites[code]
	if !ok || invite.UsedBy != nil || (invite.CreatedBy != nil && *invite.CreatedBy == userID) {
		return nil, notFound("consume invite")
	}
	unused := invite
	usedBy := userID
	usedAt := at
	invite.UsedBy = &usedBy
	invite.UsedAt = &usedAt
	r.s.invites[code] = invite
	onRollback(ctx, func() { r.s.invites[code] = unused })
	return &invite, nil
}

// ListByCreator retrieves the invites created by a user, newest first
func (r *InviteRepository) ListByCreator(ctx context.Context, creatorID string) ([]*models.Invite, error) {
	if err := checkCtx(ctx, "list invites"); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	invites := []*models.Invite{}
	for _, invite := range r.s.invites {
		if invite.CreatedBy != nil && *invite.CreatedBy == creatorID {
			invite := invite
			invites = append(invites, &invite)
		}
	}
	sort.Slice(invites, func(i, j int) bool {
		if invites[i].CreatedAt.Equal(invites[j].CreatedAt) {
			return invites[i].Code < invites[j].Code
		}
		return invites[i].CreatedAt.After(invites[j].CreatedAt)
	})
	return invites, nil
}
