package events

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event is one change notification fanned out to stream subscribers.
type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"data"`
}

// Hub is the broadcast registry behind the SSE and websocket endpoints.
// Publish never blocks: a subscriber whose buffer is full loses the event and
// the drop is counted. Subscriber lifecycle is tied to the connection.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]chan Event
	buf     int
	dropped uint64
	logger  *zap.Logger
}

func NewHub(buf int, logger *zap.Logger) *Hub {
	if buf <= 0 {
		buf = 32
	}
	return &Hub{
		subs:   map[string]chan Event{},
		buf:    buf,
		logger: logger,
	}
}

// Subscribe registers a new subscriber and returns its id and channel. The
// channel is closed by Unsubscribe.
func (h *Hub) Subscribe() (string, <-chan Event) {
	id := uuid.NewString()
	ch := make(chan Event, h.buf)
	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()
	return id, ch
}

func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	ch, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
	}
	h.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Publish fans the event out to every subscriber, dropping for slow ones.
func (h *Hub) Publish(name string, payload any) {
	if h == nil {
		return
	}
	ev := Event{Name: name, Payload: payload}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			atomic.AddUint64(&h.dropped, 1)
			if h.logger != nil {
				h.logger.Debug("event dropped for slow subscriber", zap.String("event", name))
			}
		}
	}
}

func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) Dropped() uint64 {
	return atomic.LoadUint64(&h.dropped)
}
