package discussion

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxMessageLen is Discord's limit on message content.
const maxMessageLen = 2000

func readyMessage(number int) string {
	return fmt.Sprintf("Pull request #%d **ready for review**!", number)
}

func approvedMessage(number int, reviewer string) string {
	return fmt.Sprintf("Pull request #%d was approved by **%s**!", number, reviewer)
}

func mergedMessage(number int, merger string) string {
	if merger == "" {
		merger = "unknown"
	}
	return fmt.Sprintf("Pull request #%d was merged by **%s** :tada:!", number, merger)
}

func closedMessage(number int) string {
	return fmt.Sprintf("Pull request #%d was closed!", number)
}

// commentMessage quotes every line of body and attributes it to author.
func commentMessage(body, author string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	lines := strings.Split(strings.TrimSuffix(body, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "> " + l
	}
	return truncate(strings.Join(lines, "\n")+"\n~ "+author, maxMessageLen)
}

// truncate shortens s to at most limit runes, marking the cut with an ellipsis.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
