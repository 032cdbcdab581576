package models

// PullRequest is the snapshot of a pull request taken when its webhook was
// normalized. It is never refreshed afterwards.
type PullRequest struct {
	Number   int    `json:"number"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Draft    bool   `json:"draft"`
	MergedBy string `json:"merged_by,omitempty"` // empty until merged
	URL      string `json:"url"`
}

// InitialTag is the tag a freshly opened (or reopened) pull request gets.
func (pr PullRequest) InitialTag() Tag {
	if pr.Draft {
		return TagDraft
	}
	return TagReviewNeeded
}
