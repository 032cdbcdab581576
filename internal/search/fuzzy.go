// Package search finds files and text in the local repository mirror.
package search

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// excludedDirs are never offered as file search results.
var excludedDirs = map[string]bool{
	".git":   true,
	"target": true,
	".etc":   true,
}

// Excluded reports whether path lies inside an excluded directory.
func Excluded(path string) bool {
	for _, part := range strings.Split(strings.ReplaceAll(path, `\`, "/"), "/") {
		if excludedDirs[part] {
			return true
		}
	}
	return false
}

// RankPaths fuzzy matches query against paths and returns the matching
// paths, best first. Contiguous runs and matches at the start of a path
// segment rank higher.
func RankPaths(query string, paths []string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	candidates := make([]string, 0, len(paths))
	for _, p := range paths {
		if !Excluded(p) {
			candidates = append(candidates, p)
		}
	}

	matches := fuzzy.Find(query, candidates)
	ranked := make([]string, 0, len(matches))
	for _, m := range matches {
		ranked = append(ranked, m.Str)
	}
	return ranked
}
