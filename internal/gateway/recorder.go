package gateway

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/temper-mc/prforum/internal/events"
	"github.com/temper-mc/prforum/models"
)

const recordTimeout = 5 * time.Second

// Recorder counts delivery outcomes, appends them to the delivery log when
// one is configured and announces them on the SSE stream. It doubles as the
// projector's observer. Write failures are logged and otherwise ignored.
type Recorder struct {
	store       DeliveryStore
	broadcaster *Broadcaster

	mu     sync.Mutex
	counts map[string]int64
}

// NewRecorder returns a recorder. store may be nil.
func NewRecorder(store DeliveryStore, broadcaster *Broadcaster) *Recorder {
	if broadcaster == nil {
		broadcaster = NewBroadcaster()
	}
	return &Recorder{store: store, broadcaster: broadcaster, counts: make(map[string]int64)}
}

// Applied records a successfully projected event.
func (r *Recorder) Applied(evt events.Event) {
	r.record(models.Delivery{
		Kind:     "projection",
		PRNumber: evt.PRNumber(),
		Event:    evt.Name(),
		Outcome:  models.OutcomeApplied,
	})
}

// Failed records an event the projector gave up on.
func (r *Recorder) Failed(evt events.Event, err error) {
	d := models.Delivery{Kind: "projection", Outcome: models.OutcomeFailed}
	if evt != nil {
		d.PRNumber = evt.PRNumber()
		d.Event = evt.Name()
	}
	if err != nil {
		d.Detail = err.Error()
	}
	r.record(d)
}

// Counts returns a copy of the per-outcome counters.
func (r *Recorder) Counts() map[string]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.counts)
}

func (r *Recorder) record(d models.Delivery) {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	r.counts[d.Outcome]++
	r.mu.Unlock()

	if r.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		id, err := r.store.Record(ctx, d)
		cancel()
		if err != nil {
			slog.Warn("Failed to write delivery log", "outcome", d.Outcome, "pr", d.PRNumber, "error", err)
		} else {
			d.ID = id
		}
	}

	r.broadcaster.send(SSEEvent{Type: "delivery." + d.Outcome, PR: d.PRNumber, Payload: d})
}
