package services

import (
	"context"
	"sync"

	"promptmatch-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// Broker fans chat messages out to the listeners of a match
type Broker interface {
	Publish(ctx context.Context, msg *models.Message) error
	Listen(matchID string, buffer int) *Listener
	Unlisten(l *Listener)
}

// Listener receives the messages published to one match. Deliveries to a full buffer are
// dropped and reported on Lagged instead.
type Listener struct {
	MatchID  string
	Messages <-chan *models.Message
	Lagged   <-chan struct{}

	messages chan *models.Message
	lagged   chan struct{}
}

// Hub is the in-process broker. It serves a single instance, or relays for RedisBroker.
type Hub struct {
	mu        sync.RWMutex
	listeners map[string]map[*Listener]struct{}
}

// NewHub creates a new hub
func NewHub() *Hub {
	return &Hub{
		listeners: make(map[string]map[*Listener]struct{}),
	}
}

// Listen registers a listener for matchID
func (h *Hub) Listen(matchID string, buffer int) *Listener {
	if buffer <= 0 {
		buffer = 1
	}
	messages := make(chan *models.Message, buffer)
	lagged := make(chan struct{}, 1)
	l := &Listener{
		MatchID:  matchID,
		Messages: messages,
		Lagged:   lagged,
		messages: messages,
		lagged:   lagged,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.listeners[matchID] == nil {
		h.listeners[matchID] = make(map[*Listener]struct{})
	}
	h.listeners[matchID][l] = struct{}{}

	log.Debug().Str("match_id", matchID).Int("listeners", len(h.listeners[matchID])).Msg("Chat listener registered")
	return l
}

// Unlisten removes a listener. Its channels are left open; the owner stops reading.
func (h *Hub) Unlisten(l *Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, exists := h.listeners[l.MatchID]
	if !exists {
		return
	}
	delete(set, l)
	if len(set) == 0 {
		delete(h.listeners, l.MatchID)
	}
	log.Debug().Str("match_id", l.MatchID).Msg("Chat listener unregistered")
}

// Publish delivers msg to every listener of its match without blocking
func (h *Hub) Publish(_ context.Context, msg *models.Message) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for l := range h.listeners[msg.MatchID] {
		select {
		case l.messages <- msg:
		default:
			select {
			case l.lagged <- struct{}{}:
			default:
			}
		}
	}
	return nil
}

// ListenerCount returns the number of listeners of matchID
func (h *Hub) ListenerCount(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners[matchID])
}
