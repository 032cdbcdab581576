package search

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// ErrRipgrepMissing is returned when rg is not on PATH.
var ErrRipgrepMissing = errors.New("ripgrep (rg) is not installed or not in PATH")

// TextMatch is one line matched by ripgrep.
type TextMatch struct {
	Path       string `json:"path"`
	LineNumber int    `json:"line_number"`
	Line       string `json:"line"`
}

// RipgrepAvailable reports whether rg can be found on PATH.
func RipgrepAvailable() bool {
	_, err := exec.LookPath("rg")
	return err == nil
}

// Grep runs ripgrep for pattern inside dir and returns every matched line
// with paths relative to dir.
func Grep(ctx context.Context, dir, pattern string) ([]TextMatch, error) {
	rg, err := exec.LookPath("rg")
	if err != nil {
		return nil, ErrRipgrepMissing
	}

	// nosemgrep: go.lang.security.audit.dangerous-exec-command.dangerous-exec-command
	cmd := exec.CommandContext(ctx, rg, "--json", "--", pattern, ".")
	cmd.Dir = dir

	out, err := cmd.Output()
	if err != nil {
		// rg exits 1 when nothing matched.
		if !isExitCode(err, 1) {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				slog.Debug("rg stderr", "output", string(exitErr.Stderr))
			}
			return nil, fmt.Errorf("executing rg: %w", err)
		}
	}
	return parseRipgrepJSON(bytes.NewReader(out))
}

type rgText struct {
	Text string `json:"text"`
}

type rgEvent struct {
	Type string `json:"type"`
	Data struct {
		Path       rgText `json:"path"`
		Lines      rgText `json:"lines"`
		LineNumber int    `json:"line_number"`
	} `json:"data"`
}

// parseRipgrepJSON reads rg --json output, keeping only match events.
// Lines that are not valid JSON are skipped.
func parseRipgrepJSON(r io.Reader) ([]TextMatch, error) {
	var matches []TextMatch
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var evt rgEvent
		if err := json.Unmarshal(sc.Bytes(), &evt); err != nil {
			continue
		}
		if evt.Type != "match" || evt.Data.Path.Text == "" {
			continue
		}
		path := strings.ReplaceAll(evt.Data.Path.Text, `\`, "/")
		matches = append(matches, TextMatch{
			Path:       strings.TrimPrefix(path, "./"),
			LineNumber: evt.Data.LineNumber,
			Line:       strings.TrimRight(evt.Data.Lines.Text, "\r\n \t"),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading rg output: %w", err)
	}
	return matches, nil
}

func isExitCode(err error, code int) bool {
	var e *exec.ExitError
	if errors.As(err, &e) {
		return e.ExitCode() == code
	}
	return false
}
