package discussion

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temper-mc/prforum/internal/events"
	"github.com/temper-mc/prforum/models"
)

var testTags = Tags{
	Draft:        "tag-draft",
	ReviewNeeded: "tag-review",
	Approved:     "tag-approved",
	Merged:       "tag-merged",
	Closed:       "tag-closed",
}

func testPR(n int, draft bool) models.PullRequest {
	return models.PullRequest{
		Number: n,
		Title:  "Add chunk cache",
		Author: "alice",
		Draft:  draft,
		URL:    "https://github.com/o/r/pull/42",
	}
}

func TestProjectorLifecycle(t *testing.T) {
	surface := &fakeSurface{}
	p := NewProjector(surface, "forum", testTags, nil)
	ctx := context.Background()
	pr := testPR(42, true)

	require.NoError(t, p.Apply(ctx, events.Opened{PR: pr}))
	require.Len(t, surface.threads, 1)
	th := surface.threads[0]
	assert.Equal(t, "#42 - Add chunk cache by alice", th.Name)
	assert.Equal(t, "forum", th.ParentID)
	assert.Equal(t, []string{"tag-draft"}, th.Tags)
	assert.Equal(t, pr.URL, surface.sent()[0].Content)

	require.NoError(t, p.Apply(ctx, events.ReadyForReview{PR: pr}))
	assert.Equal(t, []string{"tag-review"}, surface.thread(th.ID).Tags)

	require.NoError(t, p.Apply(ctx, events.Approved{PR: pr, Reviewer: "bob"}))
	assert.Equal(t, []string{"tag-approved"}, surface.thread(th.ID).Tags)

	pr.MergedBy = "carol"
	require.NoError(t, p.Apply(ctx, events.Merged{PR: pr}))
	assert.Equal(t, []string{"tag-merged"}, surface.thread(th.ID).Tags)

	var contents []string
	for _, m := range surface.sent() {
		assert.Equal(t, th.ID, m.ThreadID)
		contents = append(contents, m.Content)
	}
	assert.Equal(t, []string{
		pr.URL,
		"Pull request #42 **ready for review**!",
		"Pull request #42 was approved by **bob**!",
		"Pull request #42 was merged by **carol** :tada:!",
	}, contents)
}

func TestProjectorOpenedNonDraftIsReviewNeeded(t *testing.T) {
	surface := &fakeSurface{}
	p := NewProjector(surface, "forum", testTags, nil)
	require.NoError(t, p.Apply(context.Background(), events.Opened{PR: testPR(1, false)}))
	assert.Equal(t, []string{"tag-review"}, surface.threads[0].Tags)
}

func TestProjectorOpenedTwiceKeepsOneThread(t *testing.T) {
	surface := &fakeSurface{}
	p := NewProjector(surface, "forum", testTags, nil)
	ctx := context.Background()
	evt := events.Opened{PR: testPR(42, false)}

	require.NoError(t, p.Apply(ctx, evt))
	require.NoError(t, p.Apply(ctx, evt))

	require.Len(t, surface.threads, 1)
	assert.Equal(t, "#42 - Add chunk cache by alice", surface.threads[0].Name)
	assert.Len(t, surface.sent(), 1)
}

func TestProjectorOpenedListErrorCreatesNothing(t *testing.T) {
	surface := &fakeSurface{listErr: errBoom}
	p := NewProjector(surface, "forum", testTags, nil)

	err := p.Apply(context.Background(), events.Opened{PR: testPR(42, false)})
	require.ErrorIs(t, err, errBoom)
	assert.Empty(t, surface.threads)
}

func TestProjectorDraftedOnlyRetags(t *testing.T) {
	surface := &fakeSurface{threads: []Thread{{ID: "t", ParentID: "forum", Name: "#9 - x by y"}}}
	p := NewProjector(surface, "forum", testTags, nil)
	require.NoError(t, p.Apply(context.Background(), events.Drafted{PR: testPR(9, true)}))
	assert.Equal(t, []string{"tag-draft"}, surface.thread("t").Tags)
	assert.Empty(t, surface.sent())
}

func TestProjectorClosed(t *testing.T) {
	surface := &fakeSurface{threads: []Thread{{ID: "t", ParentID: "forum", Name: "#9 - x by y"}}}
	p := NewProjector(surface, "forum", testTags, nil)
	require.NoError(t, p.Apply(context.Background(), events.Closed{PR: testPR(9, false)}))
	assert.Equal(t, []string{"tag-closed"}, surface.thread("t").Tags)
	assert.Equal(t, "Pull request #9 was closed!", surface.sent()[0].Content)
}

func TestProjectorDoubleApprovalIsIdempotentOnTags(t *testing.T) {
	surface := &fakeSurface{threads: []Thread{{ID: "t", ParentID: "forum", Name: "#5 - x by y"}}}
	p := NewProjector(surface, "forum", testTags, nil)
	ctx := context.Background()
	evt := events.Approved{PR: testPR(5, false), Reviewer: "bob"}

	require.NoError(t, p.Apply(ctx, evt))
	require.NoError(t, p.Apply(ctx, evt))

	assert.Equal(t, []string{"tag-approved"}, surface.thread("t").Tags)
	assert.Len(t, surface.sent(), 2)
}

func TestProjectorComment(t *testing.T) {
	surface := &fakeSurface{threads: []Thread{{ID: "t", ParentID: "forum", Name: "#3 - x by y"}}}
	p := NewProjector(surface, "forum", testTags, nil)

	evt := events.Comment{Number: 3, Body: "looks good\nship it", Author: "dave"}
	require.NoError(t, p.Apply(context.Background(), evt))

	assert.Equal(t, "> looks good\n> ship it\n~ dave", surface.sent()[0].Content)
	assert.Empty(t, surface.edits)
}

func TestProjectorCommentTruncated(t *testing.T) {
	surface := &fakeSurface{threads: []Thread{{ID: "t", ParentID: "forum", Name: "#3 - x by y"}}}
	p := NewProjector(surface, "forum", testTags, nil)

	evt := events.Comment{Number: 3, Body: strings.Repeat("a", 5000), Author: "dave"}
	require.NoError(t, p.Apply(context.Background(), evt))

	content := surface.sent()[0].Content
	assert.Equal(t, maxMessageLen, utf8.RuneCountInString(content))
	assert.True(t, strings.HasSuffix(content, "…"))
}

func TestProjectorMissingThread(t *testing.T) {
	surface := &fakeSurface{}
	p := NewProjector(surface, "forum", testTags, nil)

	err := p.Apply(context.Background(), events.Approved{PR: testPR(99, false), Reviewer: "bob"})
	require.ErrorIs(t, err, ErrThreadNotFound)
	assert.Empty(t, surface.edits)
	assert.Empty(t, surface.sent())
}

func TestProjectorTagFailureStillSendsMessage(t *testing.T) {
	surface := &fakeSurface{
		threads: []Thread{{ID: "t", ParentID: "forum", Name: "#4 - x by y"}},
		editErr: errBoom,
	}
	p := NewProjector(surface, "forum", testTags, nil)

	err := p.Apply(context.Background(), events.Closed{PR: testPR(4, false)})
	require.ErrorIs(t, err, errBoom)
	assert.Len(t, surface.sent(), 1)
	assert.Equal(t, 1, surface.lists)
}

func TestProjectorRunContinuesAfterFailure(t *testing.T) {
	surface := &fakeSurface{threads: []Thread{{ID: "t", ParentID: "forum", Name: "#2 - x by y"}}}
	obs := newRecordingObserver()
	p := NewProjector(surface, "forum", testTags, obs)

	in := make(chan events.Event, 3)
	in <- events.Closed{PR: testPR(404, false)}
	in <- events.Closed{PR: testPR(2, false)}
	close(in)

	p.Run(context.Background(), in)

	applied, failed := obs.counts()
	assert.Equal(t, 1, applied)
	assert.Equal(t, 1, failed)
	assert.ErrorIs(t, obs.failed[0], ErrThreadNotFound)
}

func TestMergedMessageDefaultsMerger(t *testing.T) {
	assert.Equal(t, "Pull request #1 was merged by **unknown** :tada:!", mergedMessage(1, ""))
}
