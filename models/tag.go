package models

// Tag is a forum tag describing where a pull request sits in its lifecycle.
// A thread carries exactly one of these at a time.
type Tag string

const (
	TagDraft        Tag = "draft"
	TagReviewNeeded Tag = "review-needed"
	TagApproved     Tag = "approved"
	TagMerged       Tag = "merged"
	TagClosed       Tag = "closed"
)

// AllTags returns the tags in lifecycle order.
func AllTags() []Tag {
	return []Tag{TagDraft, TagReviewNeeded, TagApproved, TagMerged, TagClosed}
}

// Terminal reports whether no further lifecycle transition is expected
// (short of a reopen).
func (t Tag) Terminal() bool {
	return t == TagMerged || t == TagClosed
}

func (t Tag) String() string {
	return string(t)
}
