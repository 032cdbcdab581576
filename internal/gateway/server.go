package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/temper-mc/prforum/internal/events"
)

// DefaultShutdownTimeout bounds graceful HTTP shutdown.
const DefaultShutdownTimeout = 5 * time.Second

// Options wires the gateway to the rest of the process.
type Options struct {
	Addr            string
	ShutdownTimeout time.Duration

	// Secret is the path component of the intake URL.
	Secret string
	// HMACSecret, when set, requires a valid X-Hub-Signature-256 header.
	HMACSecret string

	Queue     *events.Queue
	Projector ProjectorState
	Recorder  *Recorder
	Store     DeliveryStore

	// Mirror and RefreshSchedule drive the cron refresh of the search
	// checkout. Either may be empty.
	Mirror          Syncer
	RefreshSchedule string
}

// Gateway is the long-running HTTP side of the process. It combines:
//   - the webhook intake endpoint feeding the event queue
//   - a cron Scheduler refreshing the search mirror
//   - read-only status, delivery log and SSE endpoints
type Gateway struct {
	opts        Options
	recorder    *Recorder
	broadcaster *Broadcaster
	scheduler   *Scheduler

	mu        sync.RWMutex
	startedAt time.Time
	lastSync  time.Time
}

// New creates a Gateway. Call Start to begin serving.
func New(opts Options) *Gateway {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}
	rec := opts.Recorder
	if rec == nil {
		rec = NewRecorder(opts.Store, nil)
	}
	gw := &Gateway{
		opts:        opts,
		recorder:    rec,
		broadcaster: rec.broadcaster,
		startedAt:   time.Now(),
	}
	gw.scheduler = newScheduler(opts.Mirror, opts.RefreshSchedule, gw.mirrorSynced, gw.broadcaster.send)
	return gw
}

// Handler returns the HTTP routes without binding a listener.
func (gw *Gateway) Handler() http.Handler {
	return buildHandler(gw)
}

// Start runs the gateway until ctx is cancelled. It starts the scheduler,
// then binds the HTTP server and blocks until shutdown.
func (gw *Gateway) Start(ctx context.Context) error {
	if err := gw.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}

	srv := &http.Server{
		Addr:              gw.opts.Addr,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		gw.scheduler.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), gw.opts.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Gateway listening", "addr", gw.opts.Addr)
	gw.broadcaster.send(SSEEvent{Type: "gateway.started", Payload: map[string]string{"addr": gw.opts.Addr}})

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (gw *Gateway) mirrorSynced(at time.Time) {
	gw.mu.Lock()
	gw.lastSync = at
	gw.mu.Unlock()
}

func (gw *Gateway) currentStatus() Status {
	gw.mu.RLock()
	startedAt, lastSync := gw.startedAt, gw.lastSync
	gw.mu.RUnlock()

	s := Status{
		Outcomes:      gw.recorder.Counts(),
		DeliveryLog:   gw.opts.Store != nil,
		StartedAt:     startedAt.UTC().Format(time.RFC3339),
		UptimeSeconds: int64(time.Since(startedAt).Seconds()),
	}
	s.StreamClients, s.StreamDropped = gw.broadcaster.stats()
	if q := gw.opts.Queue; q != nil {
		s.QueueDepth = q.Len()
		s.QueueCapacity = q.Cap()
	}
	if gw.opts.Projector != nil {
		s.ProjectorRunning = gw.opts.Projector.Running()
	}
	if !lastSync.IsZero() {
		s.LastMirrorSyncAt = lastSync.UTC().Format(time.RFC3339)
	}
	return s
}
