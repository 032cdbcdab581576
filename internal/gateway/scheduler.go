package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler refreshes the search mirror on a cron expression so slash
// commands rarely have to wait for a pull. A missing mirror or empty
// expression leaves it idle.
type Scheduler struct {
	mirror    Syncer
	expr      string
	cron      *cron.Cron
	onSynced  func(time.Time)
	broadcast func(SSEEvent)

	mu      sync.Mutex
	entry   cron.EntryID
	running bool
}

func newScheduler(mirror Syncer, expr string, onSynced func(time.Time), broadcast func(SSEEvent)) *Scheduler {
	return &Scheduler{
		mirror:    mirror,
		expr:      expr,
		cron:      cron.New(),
		onSynced:  onSynced,
		broadcast: broadcast,
	}
}

// ValidateSchedule checks that expr is parseable by robfig/cron without
// adding it to any runner.
func ValidateSchedule(expr string) error {
	_, err := cron.ParseStandard(expr)
	return err
}

// Start registers the refresh job and starts the cron runner.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.mirror == nil || s.expr == "" {
		slog.Info("Mirror refresh schedule disabled")
		return nil
	}
	if err := ValidateSchedule(s.expr); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", s.expr, err)
	}

	entry, err := s.cron.AddFunc(s.expr, func() { s.refresh(ctx) })
	if err != nil {
		return fmt.Errorf("registering refresh schedule %q: %w", s.expr, err)
	}

	s.mu.Lock()
	s.entry = entry
	s.running = true
	s.mu.Unlock()

	s.cron.Start()
	slog.Info("Mirror refresh scheduled", "expr", s.expr, "next", s.cron.Entry(entry).Next)
	return nil
}

// Stop halts the cron runner. A refresh in flight is allowed to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	<-s.cron.Stop().Done()
}

// refresh runs one mirror sync and reports the result.
func (s *Scheduler) refresh(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, mirrorSyncTimeout)
	defer cancel()

	start := time.Now()
	if err := s.mirror.Sync(ctx); err != nil {
		slog.Warn("Mirror refresh failed", "error", err)
		s.broadcast(SSEEvent{Type: "mirror.failed", Payload: map[string]string{"error": err.Error()}})
		return
	}
	now := time.Now()
	if s.onSynced != nil {
		s.onSynced(now)
	}
	slog.Debug("Mirror refreshed", "took", now.Sub(start))
	s.broadcast(SSEEvent{Type: "mirror.synced", Payload: map[string]string{"at": now.UTC().Format(time.RFC3339)}})
}
