package gateway

import (
	"context"
	"time"

	"github.com/temper-mc/prforum/models"
)

// SSEEvent is serialised as JSON and pushed over the GET /events SSE stream.
// PR is set for delivery notices and lets GET /events?pr=N filter on it.
type SSEEvent struct {
	Type    string `json:"type"`
	PR      int    `json:"pr,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Status is a live snapshot of intake and projection.
type Status struct {
	QueueDepth       int              `json:"queue_depth"`
	QueueCapacity    int              `json:"queue_capacity"`
	ProjectorRunning bool             `json:"projector_running"`
	Outcomes         map[string]int64 `json:"outcomes"`
	DeliveryLog      bool             `json:"delivery_log"`
	LastMirrorSyncAt string           `json:"last_mirror_sync_at,omitempty"`
	StreamClients    int              `json:"stream_clients"`
	StreamDropped    int64            `json:"stream_dropped"`
	StartedAt        string           `json:"started_at"`
	UptimeSeconds    int64            `json:"uptime_seconds"`
}

// DeliveryStore persists the delivery log.
type DeliveryStore interface {
	Record(ctx context.Context, d models.Delivery) (int64, error)
	Recent(ctx context.Context, limit int) ([]models.Delivery, error)
}

// ProjectorState reports whether the projector task is alive.
type ProjectorState interface {
	Running() bool
}

// Syncer refreshes the search mirror.
type Syncer interface {
	Sync(ctx context.Context) error
}

// mirrorSyncTimeout bounds one scheduled refresh.
const mirrorSyncTimeout = 10 * time.Minute
