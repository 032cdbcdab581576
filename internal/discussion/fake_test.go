package discussion

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/temper-mc/prforum/internal/events"
)

type sentMessage struct {
	ThreadID string
	Content  string
}

type tagEdit struct {
	ThreadID string
	Tags     []string
}

// fakeSurface records every mutation in memory.
type fakeSurface struct {
	mu       sync.Mutex
	threads  []Thread
	messages []sentMessage
	edits    []tagEdit
	lists    int

	listErr error
	editErr error
	sendErr error
	nextID  int
}

func (f *fakeSurface) ListActiveThreads(context.Context) ([]Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]Thread(nil), f.threads...), nil
}

func (f *fakeSurface) CreateThread(_ context.Context, forumID, name, content string, tags []string) (Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t := Thread{ID: fmt.Sprintf("t%d", f.nextID), ParentID: forumID, Name: name, Tags: tags}
	f.threads = append(f.threads, t)
	f.messages = append(f.messages, sentMessage{ThreadID: t.ID, Content: content})
	return t, nil
}

func (f *fakeSurface) EditThreadTags(_ context.Context, threadID string, tags []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, tagEdit{ThreadID: threadID, Tags: tags})
	for i := range f.threads {
		if f.threads[i].ID == threadID {
			f.threads[i].Tags = tags
		}
	}
	return nil
}

func (f *fakeSurface) SendMessage(_ context.Context, threadID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.messages = append(f.messages, sentMessage{ThreadID: threadID, Content: content})
	return nil
}

func (f *fakeSurface) thread(id string) Thread {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.threads {
		if t.ID == id {
			return t
		}
	}
	return Thread{}
}

func (f *fakeSurface) sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.messages...)
}

// recordingObserver collects projection outcomes.
type recordingObserver struct {
	mu      sync.Mutex
	applied []events.Event
	failed  []error
	notify  chan struct{}
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{notify: make(chan struct{}, 64)}
}

func (o *recordingObserver) Applied(evt events.Event) {
	o.mu.Lock()
	o.applied = append(o.applied, evt)
	o.mu.Unlock()
	o.notify <- struct{}{}
}

func (o *recordingObserver) Failed(_ events.Event, err error) {
	o.mu.Lock()
	o.failed = append(o.failed, err)
	o.mu.Unlock()
	o.notify <- struct{}{}
}

func (o *recordingObserver) counts() (applied, failed int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.applied), len(o.failed)
}

var errBoom = errors.New("boom")
