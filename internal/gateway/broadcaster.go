package gateway

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

const subscriberBuffer = 32

// subscriber is one GET /events connection. pr narrows the stream to a single
// pull request; 0 receives everything.
type subscriber struct {
	frames chan []byte
	pr     int
}

// wants reports whether evt belongs on this subscriber's stream. Events not
// tied to a pull request (gateway and mirror notices) reach every stream.
func (s *subscriber) wants(evt SSEEvent) bool {
	return s.pr == 0 || evt.PR == 0 || evt.PR == s.pr
}

// Broadcaster numbers delivery and gateway notices and fans them out to the
// matching GET /events streams. A stream whose buffer is full loses the frame
// and the loss is counted.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}

	seq     atomic.Uint64
	dropped atomic.Int64
}

// NewBroadcaster returns a broadcaster with no subscribers.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[*subscriber]struct{})}
}

func (b *Broadcaster) subscribe(pr int) *subscriber {
	s := &subscriber{frames: make(chan []byte, subscriberBuffer), pr: pr}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

func (b *Broadcaster) unsubscribe(s *subscriber) {
	b.mu.Lock()
	delete(b.subs, s)
	b.mu.Unlock()
}

// stats reports the connected streams and the frames lost to slow ones.
func (b *Broadcaster) stats() (subscribers int, dropped int64) {
	b.mu.RLock()
	subscribers = len(b.subs)
	b.mu.RUnlock()
	return subscribers, b.dropped.Load()
}

// encode renders evt as an SSE frame carrying the next sequence id, so a
// client can tell from gaps that it missed notices.
func (b *Broadcaster) encode(evt SSEEvent) ([]byte, error) {
	raw, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "id: %d\ndata: %s\n\n", b.seq.Add(1), raw), nil
}

func (b *Broadcaster) send(evt SSEEvent) {
	frame, err := b.encode(evt)
	if err != nil {
		slog.Warn("Failed to marshal SSE event", "type", evt.Type, "error", err)
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs {
		if !s.wants(evt) {
			continue
		}
		select {
		case s.frames <- frame:
		default:
			b.dropped.Add(1)
			slog.Debug("Dropped SSE frame for slow subscriber", "type", evt.Type, "pr", evt.PR)
		}
	}
}
