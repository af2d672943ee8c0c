package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Event struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

// Hub fans events out to in-process subscribers (SSE connections).
// A subscriber that cannot keep up loses events rather than stalling
// publishers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]chan Event
	buffer      int
	log         zerolog.Logger
}

func NewHub(buffer int, log zerolog.Logger) *Hub {
	if buffer <= 0 {
		buffer = 32
	}
	return &Hub{
		subscribers: make(map[uuid.UUID]chan Event),
		buffer:      buffer,
		log:         log,
	}
}

func (h *Hub) Publish(_ context.Context, topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", topic, err)
	}
	event := Event{Topic: topic, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			h.log.Warn().Str("subscriber", id.String()).Str("topic", topic).Msg("subscriber buffer full, event dropped")
		}
	}
	return nil
}

// Subscribe registers a subscriber; call the returned function to leave.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	id := uuid.New()
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	h.subscribers[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
