package discussion

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temper-mc/prforum/internal/events"
)

func waitFor(t *testing.T, obs *recordingObserver, n int) {
	t.Helper()
	for range n {
		select {
		case <-obs.notify:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for projection")
		}
	}
}

func TestSupervisorInstallsOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	surface := &fakeSurface{}
	obs := newRecordingObserver()
	queue := events.NewQueue(4)
	sup := NewSupervisor(NewProjector(surface, "forum", testTags, obs), queue, 0)

	assert.False(t, sup.Running())
	assert.True(t, sup.Install(ctx))
	assert.False(t, sup.Install(ctx))
	assert.True(t, sup.Running())

	require.NoError(t, queue.Submit(ctx, events.Opened{PR: testPR(1, false)}))
	waitFor(t, obs, 1)

	// A second consumer would race for events and could create the thread twice.
	require.NoError(t, queue.Submit(ctx, events.Opened{PR: testPR(2, false)}))
	waitFor(t, obs, 1)
	applied, failed := obs.counts()
	assert.Equal(t, 2, applied)
	assert.Zero(t, failed)
	assert.Len(t, surface.threads, 2)
}

func TestSupervisorStopsWhenQueueCloses(t *testing.T) {
	queue := events.NewQueue(1)
	sup := NewSupervisor(NewProjector(&fakeSurface{}, "forum", testTags, nil), queue, time.Millisecond)
	require.True(t, sup.Install(context.Background()))

	queue.Close()
	select {
	case <-sup.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop after queue closed")
	}
	assert.False(t, sup.Running())
}

func TestSupervisorStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sup := NewSupervisor(NewProjector(&fakeSurface{}, "forum", testTags, nil), events.NewQueue(1), time.Millisecond)
	require.True(t, sup.Install(ctx))

	cancel()
	select {
	case <-sup.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop after cancel")
	}
}

type panickingSurface struct {
	*fakeSurface
	panicFor string
}

func (p panickingSurface) CreateThread(ctx context.Context, forumID, name, content string, tags []string) (Thread, error) {
	if name == p.panicFor {
		panic("surface exploded")
	}
	return p.fakeSurface.CreateThread(ctx, forumID, name, content, tags)
}

func TestSupervisorSurvivesPanickingEvent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fake := &fakeSurface{}
	surface := panickingSurface{fakeSurface: fake, panicFor: ThreadName(1, "Add chunk cache", "alice")}
	obs := newRecordingObserver()
	queue := events.NewQueue(4)
	sup := NewSupervisor(NewProjector(surface, "forum", testTags, obs), queue, time.Millisecond)
	require.True(t, sup.Install(ctx))

	require.NoError(t, queue.Submit(ctx, events.Opened{PR: testPR(1, false)}))
	require.NoError(t, queue.Submit(ctx, events.Opened{PR: testPR(2, false)}))
	waitFor(t, obs, 2)

	applied, failed := obs.counts()
	assert.Equal(t, 1, applied)
	assert.Equal(t, 1, failed)
	assert.True(t, sup.Running())
	require.Len(t, fake.threads, 1)
	assert.Equal(t, "#2 - Add chunk cache by alice", fake.threads[0].Name)
}

// gatedSurface holds every SendMessage until gate is closed.
type gatedSurface struct {
	*fakeSurface
	entered chan struct{}
	gate    chan struct{}
}

func (g gatedSurface) SendMessage(ctx context.Context, threadID, content string) error {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	select {
	case <-g.gate:
	case <-ctx.Done():
		return ctx.Err()
	}
	return g.fakeSurface.SendMessage(ctx, threadID, content)
}

func TestSupervisorBackpressureWhileProjectorBlocked(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fake := &fakeSurface{threads: []Thread{{ID: "t", ParentID: "forum", Name: "#3 - x by y"}}}
	surface := gatedSurface{fakeSurface: fake, entered: make(chan struct{}, 1), gate: make(chan struct{})}
	obs := newRecordingObserver()
	queue := events.NewQueue(1)
	sup := NewSupervisor(NewProjector(surface, "forum", testTags, obs), queue, time.Millisecond)
	require.True(t, sup.Install(ctx))

	comment := func(i int) events.Event {
		return events.Comment{Number: 3, Body: fmt.Sprintf("c%d", i), Author: "dave"}
	}

	require.NoError(t, queue.Submit(ctx, comment(1)))
	select {
	case <-surface.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("projector never reached the surface")
	}

	// The projector is parked inside SendMessage; one more event fills the queue.
	require.NoError(t, queue.Submit(ctx, comment(2)))

	submitted := make(chan error, 1)
	go func() { submitted <- queue.Submit(ctx, comment(3)) }()

	select {
	case err := <-submitted:
		t.Fatalf("submit beyond capacity returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 1, queue.Len())

	close(surface.gate)
	select {
	case err := <-submitted:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked submit never resumed")
	}

	waitFor(t, obs, 3)
	applied, failed := obs.counts()
	assert.Equal(t, 3, applied)
	assert.Zero(t, failed)

	var bodies []string
	for _, m := range fake.sent() {
		bodies = append(bodies, m.Content)
	}
	assert.Equal(t, []string{"> c1\n~ dave", "> c2\n~ dave", "> c3\n~ dave"}, bodies)
}
