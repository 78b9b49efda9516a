package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"promptmatch-backend/internal/models"

	"github.com/rs/zerolog/log"
)

const (
	catchUpRetryMin = 50 * time.Millisecond
	catchUpRetryMax = 2 * time.Second
)

// ChatOptions bounds chat messages and subscriber buffers
type ChatOptions struct {
	SubscriberBuffer int
	MaxMessageLength int
}

// ChatService sends, lists and streams the messages of a match
type ChatService struct {
	matches  MatchStore
	messages MessageStore
	broker   Broker
	opts     ChatOptions
	now      func() time.Time
}

// NewChatService creates a new chat service
func NewChatService(matches MatchStore, messages MessageStore, broker Broker, opts ChatOptions) *ChatService {
	if opts.SubscriberBuffer <= 0 {
		opts.SubscriberBuffer = 32
	}
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = 2000
	}
	return &ChatService{
		matches:  matches,
		messages: messages,
		broker:   broker,
		opts:     opts,
		now:      time.Now,
	}
}

// SendMessageRequest represents a request to send a chat message
type SendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessage stores a message from senderID and publishes it to live subscribers
func (s *ChatService) SendMessage(ctx context.Context, matchID, senderID, content string) (*models.Message, error) {
	if _, err := authorizeMatch(ctx, s.matches, matchID, senderID); err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > s.opts.MaxMessageLength {
		return nil, fmt.Errorf("%w: limit is %d characters", ErrContentTooLong, s.opts.MaxMessageLength)
	}

	msg := &models.Message{
		MatchID:   matchID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	// Subscribers catch up from the store, so a lost publish only delays delivery.
	if err := s.broker.Publish(ctx, msg); err != nil {
		log.Warn().
			Err(err).
			Str("match_id", matchID).
			Int64("position", msg.Position).
			Msg("Failed to publish chat message")
	}

	return msg, nil
}

// ListMessages returns the messages of a match, oldest first
func (s *ChatService) ListMessages(ctx context.Context, matchID, userID string) ([]*models.Message, error) {
	if _, err := authorizeMatch(ctx, s.matches, matchID, userID); err != nil {
		return nil, err
	}

	messages, err := s.messages.ListByMatch(ctx, matchID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// Subscribe streams every message of the match stored after the call, in position order.
// The stream ends when ctx is cancelled or Close is called.
func (s *ChatService) Subscribe(ctx context.Context, matchID, userID string) (*Subscription, error) {
	if _, err := authorizeMatch(ctx, s.matches, matchID, userID); err != nil {
		return nil, err
	}

	// Listen before reading the baseline so nothing stored after it can be missed.
	listener := s.broker.Listen(matchID, s.opts.SubscriberBuffer)
	last, err := s.messages.LastPosition(ctx, matchID)
	if err != nil {
		s.broker.Unlisten(listener)
		return nil, fmt.Errorf("failed to read chat position: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		matchID:  matchID,
		userID:   userID,
		listener: listener,
		broker:   s.broker,
		store:    s.messages,
		last:     last,
		out:      make(chan *models.Message),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go sub.run(ctx)

	log.Info().Str("match_id", matchID).Str("user_id", userID).Int64("position", last).Msg("Chat subscription opened")
	return sub, nil
}

// Subscription is a live, ordered stream of the messages of one match
type Subscription struct {
	matchID  string
	userID   string
	listener *Listener
	broker   Broker
	store    MessageStore
	last     int64

	out       chan *models.Message
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// Messages returns the stream. It is closed when the subscription ends.
func (s *Subscription) Messages() <-chan *models.Message {
	return s.out
}

// Done is closed once the subscription stopped
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close stops the subscription and waits for it to release its listener
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
		log.Info().Str("match_id", s.matchID).Str("user_id", s.userID).Msg("Chat subscription closed")
	})
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.out)
	defer s.broker.Unlisten(s.listener)

	// retry fires while a failed catch up still owes messages
	var retry <-chan time.Time
	backoff := catchUpRetryMin
	catchUp := func() bool {
		err := s.catchUp(ctx)
		if err == nil {
			retry = nil
			backoff = catchUpRetryMin
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		log.Warn().Err(err).
			Str("match_id", s.matchID).
			Int64("position", s.last).
			Dur("retry_in", backoff).
			Msg("Failed to catch up chat subscription")
		retry = time.After(backoff)
		backoff = min(backoff*2, catchUpRetryMax)
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.listener.Messages:
			switch {
			case msg.Position <= s.last:
				// duplicate or older than the baseline
			case msg.Position == s.last+1:
				if !s.emit(ctx, msg) {
					return
				}
			default:
				if !catchUp() {
					return
				}
			}
		case <-s.listener.Lagged:
			if !catchUp() {
				return
			}
		case <-retry:
			if !catchUp() {
				return
			}
		}
	}
}

// catchUp emits the stored messages after the last delivered position
func (s *Subscription) catchUp(ctx context.Context) error {
	missed, err := s.store.ListByMatch(ctx, s.matchID, s.last)
	if err != nil {
		return err
	}

	for _, msg := range missed {
		if msg.Position != s.last+1 {
			break
		}
		if !s.emit(ctx, msg) {
			return ctx.Err()
		}
	}
	return nil
}

func (s *Subscription) emit(ctx context.Context, msg *models.Message) bool {
	select {
	case s.out <- msg:
		s.last = msg.Position
		return true
	case <-ctx.Done():
		return false
	}
}
