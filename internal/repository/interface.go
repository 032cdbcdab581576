package repository

import (
	"fmt"
	"strings"
)

// MergeMethod is how GitHub combines a pull request into its base branch.
type MergeMethod string

const (
	MergeMethodMerge  MergeMethod = "merge"
	MergeMethodSquash MergeMethod = "squash"
	MergeMethodRebase MergeMethod = "rebase"
)

// ParseMergeMethod accepts "merge", "squash" or "rebase" in any case. An
// empty string means MergeMethodMerge.
func ParseMergeMethod(s string) (MergeMethod, error) {
	switch MergeMethod(strings.ToLower(strings.TrimSpace(s))) {
	case "", MergeMethodMerge:
		return MergeMethodMerge, nil
	case MergeMethodSquash:
		return MergeMethodSquash, nil
	case MergeMethodRebase:
		return MergeMethodRebase, nil
	default:
		return "", fmt.Errorf("unsupported merge method %q; use merge, squash or rebase", s)
	}
}

// MergeOptions contains the fields sent with a merge request.
type MergeOptions struct {
	Method MergeMethod
	// Title overrides the commit title; GitHub's default is used when empty.
	Title   string
	Message string
}

// MergeResult is GitHub's answer to a successful merge.
type MergeResult struct {
	SHA     string
	Message string
}
