package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTraceHiddenByDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	Setup(&buf, false, false)
	Trace("dropped", "kind", "push")
	slog.Debug("debugging")
	slog.Info("hello")

	assert.NotContains(t, buf.String(), "dropped")
	assert.NotContains(t, buf.String(), "debugging")
	assert.Contains(t, buf.String(), "hello")
}

func TestTraceLevelLabel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	Setup(&buf, false, true)
	Trace("dropped", "kind", "push")

	assert.Contains(t, buf.String(), "level=TRACE")
	assert.Contains(t, buf.String(), "kind=push")
}
