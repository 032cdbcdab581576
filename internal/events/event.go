// Package events defines the canonical pull request lifecycle vocabulary and
// the bounded queue that carries it from webhook intake to the projector.
package events

import "github.com/temper-mc/prforum/models"

// Event is a pull request lifecycle transition, independent of the webhook
// payload it was decoded from. The set of implementations is closed.
type Event interface {
	// Name is a stable identifier used in logs and the delivery log.
	Name() string
	// PRNumber identifies the pull request and therefore the forum thread.
	PRNumber() int

	isEvent()
}

func (Opened) isEvent()         {}
func (ReadyForReview) isEvent() {}
func (Drafted) isEvent()        {}
func (Closed) isEvent()         {}
func (Merged) isEvent()         {}
func (Approved) isEvent()       {}
func (Comment) isEvent()        {}

// Opened is sent once, when the pull request is created.
type Opened struct {
	PR models.PullRequest
}

// ReadyForReview is sent when a draft is marked ready, or when a non-draft
// pull request is reopened.
type ReadyForReview struct {
	PR models.PullRequest
}

// Drafted is sent when a pull request is converted to a draft, or when a
// draft is reopened.
type Drafted struct {
	PR models.PullRequest
}

// Closed is sent when a pull request is closed without merging.
type Closed struct {
	PR models.PullRequest
}

// Merged is sent when a pull request is closed by merging it.
type Merged struct {
	PR models.PullRequest
}

// Approved is sent when a trusted reviewer submits an approving review.
type Approved struct {
	PR       models.PullRequest
	Reviewer string
}

// Comment carries a comment made on the pull request. Issue comments only
// know the pull request number, so no snapshot is attached.
type Comment struct {
	Number int
	Body   string
	Author string
}

func (e Opened) Name() string         { return "opened" }
func (e ReadyForReview) Name() string { return "ready_for_review" }
func (e Drafted) Name() string        { return "drafted" }
func (e Closed) Name() string         { return "closed" }
func (e Merged) Name() string         { return "merged" }
func (e Approved) Name() string       { return "approved" }
func (e Comment) Name() string        { return "comment" }

func (e Opened) PRNumber() int         { return e.PR.Number }
func (e ReadyForReview) PRNumber() int { return e.PR.Number }
func (e Drafted) PRNumber() int        { return e.PR.Number }
func (e Closed) PRNumber() int         { return e.PR.Number }
func (e Merged) PRNumber() int         { return e.PR.Number }
func (e Approved) PRNumber() int       { return e.PR.Number }
func (e Comment) PRNumber() int        { return e.Number }
