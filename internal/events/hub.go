package events

import (
	"sync"

	"mlbattle/internal/logger"

	"go.uber.org/zap"
)

const (
	SubmissionAccepted = "submission.accepted"
	LeaderboardUpdated = "leaderboard.updated"
	ProblemUpdated     = "problem.updated"
	ProblemCompleted   = "problem.completed"
)

type Handler func(payload any)

type subscription struct {
	id      int
	handler Handler
}

// Hub is a synchronous in-process pub/sub. Handlers run in subscription order
// on the publishing goroutine; a panicking handler is recovered and logged so
// it cannot starve the rest. There is no replay: late subscribers miss past
// events.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[string][]subscription
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string][]subscription)}
}

// Subscribe registers a handler for the event and returns a token for
// Unsubscribe.
func (h *Hub) Subscribe(event string, handler Handler) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	h.subs[event] = append(h.subs[event], subscription{id: h.nextID, handler: handler})
	return h.nextID
}

func (h *Hub) Unsubscribe(event string, id int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subs[event]
	for i, sub := range subs {
		if sub.id == id {
			h.subs[event] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

func (h *Hub) Publish(event string, payload any) {
	h.mu.Lock()
	subs := make([]subscription, len(h.subs[event]))
	copy(subs, h.subs[event])
	h.mu.Unlock()

	for _, sub := range subs {
		invoke(event, sub, payload)
	}
}

func invoke(event string, sub subscription, payload any) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Log.Error("Event handler panicked",
				zap.String("event", event),
				zap.Int("subscription_id", sub.id),
				zap.Any("error", recovered))
		}
	}()
	sub.handler(payload)
}
