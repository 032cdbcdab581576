// Package webhook turns GitHub webhook deliveries into canonical lifecycle
// events.
package webhook

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/google/go-github/v68/github"

	"github.com/temper-mc/prforum/internal/events"
	"github.com/temper-mc/prforum/models"
)

// GitHub event categories handled by Normalize.
const (
	KindPullRequest              = "pull_request"
	KindPullRequestReview        = "pull_request_review"
	KindPullRequestReviewComment = "pull_request_review_comment"
	KindPullRequestReviewThread  = "pull_request_review_thread"
	KindIssueComment             = "issue_comment"
)

// ErrMalformedPayload is returned when a payload cannot be decoded for its
// declared event category.
var ErrMalformedPayload = errors.New("malformed webhook payload")

// trustedAssociations are the author associations allowed to move a pull
// request to approved. Reviews from first-time or unassociated accounts are
// ignored.
var trustedAssociations = map[string]bool{
	"COLLABORATOR": true,
	"CONTRIBUTOR":  true,
	"MEMBER":       true,
	"OWNER":        true,
}

// Result is the outcome of normalizing one delivery. A nil Event means the
// delivery was understood but does not represent a transition we track;
// Reason says why.
type Result struct {
	Event  events.Event
	Action string
	Reason string
}

// Ignored reports whether the delivery produced no event.
func (r Result) Ignored() bool { return r.Event == nil }

func ignored(action, format string, args ...any) Result {
	return Result{Action: action, Reason: fmt.Sprintf(format, args...)}
}

func emit(action string, evt events.Event) Result {
	return Result{Action: action, Event: evt}
}

// Normalize decodes payload as a delivery of the given event category and
// maps it to at most one canonical event. Unknown categories and untracked
// actions are ignored rather than treated as errors.
func Normalize(kind string, payload []byte) (Result, error) {
	switch kind {
	case KindPullRequest, KindPullRequestReview, KindPullRequestReviewComment,
		KindPullRequestReviewThread, KindIssueComment:
	default:
		return ignored("", "unhandled event kind %q", kind), nil
	}

	raw, err := github.ParseWebHook(kind, payload)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, kind, err)
	}

	switch e := raw.(type) {
	case *github.PullRequestEvent:
		return fromPullRequest(e)
	case *github.PullRequestReviewEvent:
		return fromReview(e)
	case *github.PullRequestReviewCommentEvent:
		return fromReviewComment(e)
	case *github.PullRequestReviewThreadEvent:
		return fromReviewThread(e)
	case *github.IssueCommentEvent:
		return fromIssueComment(e)
	default:
		return Result{}, fmt.Errorf("%w: %s decoded as %T", ErrMalformedPayload, kind, raw)
	}
}

func fromPullRequest(e *github.PullRequestEvent) (Result, error) {
	action := e.GetAction()
	if e.PullRequest == nil {
		return Result{}, fmt.Errorf("%w: pull_request event without pull_request", ErrMalformedPayload)
	}
	pr := snapshot(e.PullRequest, e.GetNumber())

	switch action {
	case "opened":
		return emit(action, events.Opened{PR: pr}), nil
	case "ready_for_review":
		return emit(action, events.ReadyForReview{PR: pr}), nil
	case "converted_to_draft":
		return emit(action, events.Drafted{PR: pr}), nil
	case "closed":
		if e.PullRequest.GetMerged() {
			return emit(action, events.Merged{PR: pr}), nil
		}
		return emit(action, events.Closed{PR: pr}), nil
	case "reopened":
		if pr.Draft {
			return emit(action, events.Drafted{PR: pr}), nil
		}
		return emit(action, events.ReadyForReview{PR: pr}), nil
	default:
		return ignored(action, "pull_request action %q not tracked", action), nil
	}
}

func fromReview(e *github.PullRequestReviewEvent) (Result, error) {
	action := e.GetAction()
	if action != "submitted" {
		return ignored(action, "pull_request_review action %q not tracked", action), nil
	}
	if e.PullRequest == nil || e.Review == nil {
		return Result{}, fmt.Errorf("%w: pull_request_review event without review or pull_request", ErrMalformedPayload)
	}

	review := e.Review
	if !strings.EqualFold(review.GetState(), "approved") {
		return ignored(action, "review state %q", review.GetState()), nil
	}
	association := strings.ToUpper(review.GetAuthorAssociation())
	if !trustedAssociations[association] {
		return ignored(action, "approval from untrusted association %q", association), nil
	}

	return emit(action, events.Approved{
		PR:       snapshot(e.PullRequest, 0),
		Reviewer: loginOr(review.GetUser(), "unknown"),
	}), nil
}

func fromReviewComment(e *github.PullRequestReviewCommentEvent) (Result, error) {
	action := e.GetAction()
	if action != "created" {
		return ignored(action, "pull_request_review_comment action %q not tracked", action), nil
	}
	if e.PullRequest == nil || e.Comment == nil {
		return Result{}, fmt.Errorf("%w: review comment event without comment or pull_request", ErrMalformedPayload)
	}
	return emit(action, events.Comment{
		Number: e.PullRequest.GetNumber(),
		Body:   e.Comment.GetBody(),
		Author: loginOr(e.Comment.GetUser(), "unknown"),
	}), nil
}

func fromReviewThread(e *github.PullRequestReviewThreadEvent) (Result, error) {
	action := e.GetAction()
	if e.PullRequest == nil {
		return Result{}, fmt.Errorf("%w: review thread event without pull_request", ErrMalformedPayload)
	}
	if e.Thread == nil || len(e.Thread.Comments) == 0 {
		return Result{}, fmt.Errorf("%w: review thread without comments", ErrMalformedPayload)
	}
	last := e.Thread.Comments[len(e.Thread.Comments)-1]
	return emit(action, events.Comment{
		Number: e.PullRequest.GetNumber(),
		Body:   last.GetBody(),
		Author: loginOr(last.GetUser(), "unknown"),
	}), nil
}

// fromIssueComment handles comments on the pull request conversation, which
// GitHub delivers as issue comments. The pull request number is recovered
// from the pull request URL.
func fromIssueComment(e *github.IssueCommentEvent) (Result, error) {
	action := e.GetAction()
	if action != "created" {
		return ignored(action, "issue_comment action %q not tracked", action), nil
	}
	if e.Issue == nil || e.Comment == nil {
		return Result{}, fmt.Errorf("%w: issue_comment event without issue or comment", ErrMalformedPayload)
	}
	if !e.Issue.IsPullRequest() {
		return ignored(action, "comment on a plain issue"), nil
	}

	htmlURL := e.Issue.GetPullRequestLinks().GetHTMLURL()
	number, err := NumberFromURL(htmlURL)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return emit(action, events.Comment{
		Number: number,
		Body:   e.Comment.GetBody(),
		Author: loginOr(e.Comment.GetUser(), "unknown"),
	}), nil
}

// NumberFromURL parses the trailing numeric path segment of a pull request
// URL such as https://github.com/owner/repo/pull/42.
func NumberFromURL(raw string) (int, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return 0, err
	}
	last := path.Base(strings.TrimSuffix(u.Path, "/"))
	n, err := strconv.Atoi(last)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("no pull request number in %q", raw)
	}
	return n, nil
}

func snapshot(pr *github.PullRequest, fallbackNumber int) models.PullRequest {
	number := pr.GetNumber()
	if number == 0 {
		number = fallbackNumber
	}
	title := pr.GetTitle()
	if title == "" {
		title = "Unnamed"
	}
	s := models.PullRequest{
		Number: number,
		Title:  title,
		Author: loginOr(pr.GetUser(), "Unknown"),
		Draft:  pr.GetDraft(),
		URL:    pr.GetHTMLURL(),
	}
	if pr.GetMerged() {
		s.MergedBy = loginOr(pr.GetMergedBy(), "unknown")
	}
	return s
}

func loginOr(u *github.User, fallback string) string {
	if login := u.GetLogin(); login != "" {
		return login
	}
	return fallback
}
