// Package discussion projects pull request lifecycle events onto forum
// threads: one thread per pull request, tagged with its current state.
package discussion

import (
	"context"

	"github.com/temper-mc/prforum/models"
)

// Thread is a forum thread as seen by the projector.
type Thread struct {
	ID       string
	ParentID string
	Name     string
	Tags     []string
}

// Surface is the discussion platform the projector mutates.
type Surface interface {
	// ListActiveThreads returns every active thread the bot can see.
	ListActiveThreads(ctx context.Context) ([]Thread, error)
	// CreateThread starts a thread in the forum with an initial message.
	CreateThread(ctx context.Context, forumID, name, content string, tags []string) (Thread, error)
	// EditThreadTags replaces the thread's applied tags.
	EditThreadTags(ctx context.Context, threadID string, tags []string) error
	// SendMessage posts a message in the thread.
	SendMessage(ctx context.Context, threadID, content string) error
}

// Tags maps lifecycle tags to the platform's tag identifiers.
type Tags struct {
	Draft        string
	ReviewNeeded string
	Approved     string
	Merged       string
	Closed       string
}

// ID returns the platform identifier for tag.
func (t Tags) ID(tag models.Tag) string {
	switch tag {
	case models.TagDraft:
		return t.Draft
	case models.TagReviewNeeded:
		return t.ReviewNeeded
	case models.TagApproved:
		return t.Approved
	case models.TagMerged:
		return t.Merged
	case models.TagClosed:
		return t.Closed
	default:
		return ""
	}
}
