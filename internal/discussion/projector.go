package discussion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/temper-mc/prforum/internal/events"
	"github.com/temper-mc/prforum/models"
)

// ErrThreadNotFound is returned when an event refers to a pull request whose
// thread does not exist among the forum's active threads.
var ErrThreadNotFound = errors.New("thread not found")

// Observer is notified of the result of every projected event.
type Observer interface {
	Applied(evt events.Event)
	Failed(evt events.Event, err error)
}

// Projector applies canonical events to the forum, one at a time.
type Projector struct {
	surface  Surface
	resolver *Resolver
	forumID  string
	tags     Tags
	observer Observer
}

// NewProjector creates a Projector that mutates threads under forumID.
// observer may be nil.
func NewProjector(surface Surface, forumID string, tags Tags, observer Observer) *Projector {
	return &Projector{
		surface:  surface,
		resolver: NewResolver(surface, forumID),
		forumID:  forumID,
		tags:     tags,
		observer: observer,
	}
}

// Run consumes events until in is closed or ctx is done. A failing or
// panicking event is logged and skipped.
func (p *Projector) Run(ctx context.Context, in <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-in:
			if !ok {
				return
			}
			p.handle(ctx, evt)
		}
	}
}

func (p *Projector) handle(ctx context.Context, evt events.Event) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			slog.Error("Projector panicked", "pr", evt.PRNumber(), "op", evt.Name(), "error", err, "stack", string(debug.Stack()))
			p.failed(evt, err)
		}
	}()

	if err := p.Apply(ctx, evt); err != nil {
		slog.Error("Failed to project event", "pr", evt.PRNumber(), "op", evt.Name(), "error", err)
		p.failed(evt, err)
		return
	}
	slog.Debug("Projected event", "pr", evt.PRNumber(), "op", evt.Name())
	if p.observer != nil {
		p.observer.Applied(evt)
	}
}

func (p *Projector) failed(evt events.Event, err error) {
	if p.observer != nil {
		p.observer.Failed(evt, err)
	}
}

// Apply performs the forum mutations for a single event.
func (p *Projector) Apply(ctx context.Context, evt events.Event) error {
	switch e := evt.(type) {
	case events.Opened:
		return p.open(ctx, e.PR)
	case events.ReadyForReview:
		return p.transition(ctx, e.PR.Number, models.TagReviewNeeded, readyMessage(e.PR.Number))
	case events.Drafted:
		return p.transition(ctx, e.PR.Number, models.TagDraft, "")
	case events.Approved:
		return p.transition(ctx, e.PR.Number, models.TagApproved, approvedMessage(e.PR.Number, e.Reviewer))
	case events.Merged:
		return p.transition(ctx, e.PR.Number, models.TagMerged, mergedMessage(e.PR.Number, e.PR.MergedBy))
	case events.Closed:
		return p.transition(ctx, e.PR.Number, models.TagClosed, closedMessage(e.PR.Number))
	case events.Comment:
		thread, err := p.thread(ctx, e.Number)
		if err != nil {
			return err
		}
		if err := p.surface.SendMessage(ctx, thread.ID, commentMessage(e.Body, e.Author)); err != nil {
			return fmt.Errorf("sending comment: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported event %T", evt)
	}
}

// open creates the thread for pr. A pull request already owning a thread
// keeps it; redelivered opened webhooks are dropped.
func (p *Projector) open(ctx context.Context, pr models.PullRequest) error {
	existing, ok, err := p.resolver.Resolve(ctx, pr.Number)
	if err != nil {
		return err
	}
	if ok {
		slog.Warn("Thread already exists, not creating another", "pr", pr.Number, "thread", existing.ID)
		return nil
	}

	name := ThreadName(pr.Number, pr.Title, pr.Author)
	tags := p.tagSet(pr.InitialTag())
	if _, err := p.surface.CreateThread(ctx, p.forumID, name, truncate(pr.URL, maxMessageLen), tags); err != nil {
		return fmt.Errorf("creating thread: %w", err)
	}
	return nil
}

// transition replaces the thread's tags with tag and, when message is not
// empty, posts it. A failed tag edit does not prevent the message.
func (p *Projector) transition(ctx context.Context, number int, tag models.Tag, message string) error {
	thread, err := p.thread(ctx, number)
	if err != nil {
		return err
	}

	var errs []error
	if err := p.surface.EditThreadTags(ctx, thread.ID, p.tagSet(tag)); err != nil {
		errs = append(errs, fmt.Errorf("editing tags: %w", err))
	}
	if message != "" {
		if err := p.surface.SendMessage(ctx, thread.ID, truncate(message, maxMessageLen)); err != nil {
			errs = append(errs, fmt.Errorf("sending message: %w", err))
		}
	}
	if tag.Terminal() {
		slog.Info("Pull request finished", "pr", number, "tag", tag)
	}
	return errors.Join(errs...)
}

func (p *Projector) thread(ctx context.Context, number int) (Thread, error) {
	thread, ok, err := p.resolver.Resolve(ctx, number)
	if err != nil {
		return Thread{}, err
	}
	if !ok {
		return Thread{}, fmt.Errorf("pull request #%d: %w", number, ErrThreadNotFound)
	}
	return thread, nil
}

func (p *Projector) tagSet(tag models.Tag) []string {
	id := p.tags.ID(tag)
	if id == "" {
		return []string{}
	}
	return []string{id}
}
