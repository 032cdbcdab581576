package discussion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/temper-mc/prforum/internal/events"
)

// DefaultRestartDelay is how long the supervisor waits before restarting a
// projector loop that stopped while the queue was still open.
const DefaultRestartDelay = 100 * time.Millisecond

// Supervisor owns the projector loop. The loop is installed at most once per
// process, on the first ready signal from the discussion platform.
type Supervisor struct {
	projector *Projector
	queue     *events.Queue
	delay     time.Duration

	once    sync.Once
	running atomic.Bool
	done    chan struct{}
}

// NewSupervisor creates a Supervisor that feeds queue into projector.
func NewSupervisor(projector *Projector, queue *events.Queue, restartDelay time.Duration) *Supervisor {
	if restartDelay <= 0 {
		restartDelay = DefaultRestartDelay
	}
	return &Supervisor{
		projector: projector,
		queue:     queue,
		delay:     restartDelay,
		done:      make(chan struct{}),
	}
}

// Install starts the projector loop unless it was already started. It
// reports whether this call installed it.
func (s *Supervisor) Install(ctx context.Context) bool {
	installed := false
	s.once.Do(func() {
		installed = true
		s.running.Store(true)
		go s.loop(ctx)
	})
	if !installed {
		slog.Debug("Projector already installed, ignoring ready signal")
	}
	return installed
}

// Running reports whether the projector loop is installed and has not
// stopped for good.
func (s *Supervisor) Running() bool {
	return s.running.Load()
}

// Done is closed once the loop stops for good.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

func (s *Supervisor) loop(ctx context.Context) {
	defer close(s.done)
	defer s.running.Store(false)

	slog.Info("Projector installed", "capacity", s.queue.Cap())
	in := s.queue.Events()
	for {
		closed, err := s.runOnce(ctx, in)
		if closed || ctx.Err() != nil {
			slog.Info("Projector stopped")
			return
		}
		if err != nil {
			slog.Error("Projector loop crashed, restarting", "error", err, "delay", s.delay)
		} else {
			slog.Warn("Projector loop exited, restarting", "delay", s.delay)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.delay):
		}
	}
}

// runOnce runs the projector until it returns and reports whether the queue
// was closed.
func (s *Supervisor) runOnce(ctx context.Context, in <-chan events.Event) (closed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	s.projector.Run(ctx, in)
	return s.queue.Closed(), nil
}
