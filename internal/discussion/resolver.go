package discussion

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Resolver locates the thread that belongs to a pull request by scanning the
// forum's active threads for the "#<number> - " naming convention.
//
// Every call lists all active threads; there is no cache.
type Resolver struct {
	surface Surface
	forumID string
}

// NewResolver creates a Resolver for threads under forumID.
func NewResolver(surface Surface, forumID string) *Resolver {
	return &Resolver{surface: surface, forumID: forumID}
}

// Resolve returns the first active thread in the forum named for number.
// ok is false when no such thread exists.
func (r *Resolver) Resolve(ctx context.Context, number int) (thread Thread, ok bool, err error) {
	threads, err := r.surface.ListActiveThreads(ctx)
	if err != nil {
		return Thread{}, false, fmt.Errorf("listing active threads: %w", err)
	}
	for _, t := range threads {
		if t.ParentID != r.forumID {
			continue
		}
		if n, found := ThreadNumber(t.Name); found && n == number {
			return t, true, nil
		}
	}
	return Thread{}, false, nil
}

// ThreadName renders the name of the thread created for a pull request.
func ThreadName(number int, title, author string) string {
	return fmt.Sprintf("#%d - %s by %s", number, title, author)
}

// threadSeparator follows the number in every thread name.
const threadSeparator = " - "

// ThreadNumber extracts the pull request number from a thread name of the
// form "#<number> - <rest>". "#7 - x" yields 7 and never matches a lookup
// for 70 or 17; "#7x" is not a pull request thread.
func ThreadNumber(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, "#")
	if !ok {
		return 0, false
	}
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	if end == 0 || !strings.HasPrefix(rest[end:], threadSeparator) {
		return 0, false
	}
	n, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
