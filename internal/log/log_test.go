package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests swap the package logger, so they do not run in parallel.

func capture(t *testing.T, lvl Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf, false)
	SetLevel(lvl)
	t.Cleanup(func() { SetLevel(LevelInfo) })
	return &buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, l := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if l == "" {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(l), &m))
		out = append(out, m)
	}
	return out
}

func TestInfoFields(t *testing.T) {
	buf := capture(t, LevelInfo)

	Info("calendar created", "name", "work", "events", 3, 42, "ignored", "dangling")

	got := lines(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, "info", got[0]["level"])
	assert.Equal(t, "calendar created", got[0]["message"])
	assert.Equal(t, "work", got[0]["name"])
	assert.EqualValues(t, 3, got[0]["events"])
	assert.NotContains(t, got[0], "dangling")
}

func TestErrorCarriesErr(t *testing.T) {
	buf := capture(t, LevelInfo)

	Error("import failed", errors.New("boom"), "file", "a.ics")

	got := lines(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, "error", got[0]["level"])
	assert.Equal(t, "boom", got[0]["error"])
	assert.Equal(t, "a.ics", got[0]["file"])
}

func TestWarnCarriesError(t *testing.T) {
	buf := capture(t, LevelWarn)

	Info("hidden")
	Warn("ics rrule ignored", "error", errors.New("bad freq"), "uid", "a")

	got := lines(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, "warn", got[0]["level"])
	assert.Equal(t, "bad freq", got[0]["error"])
	assert.Equal(t, "a", got[0]["uid"])
}

func TestLevelFilter(t *testing.T) {
	buf := capture(t, LevelError)

	Debug("hidden")
	Info("hidden")
	Warn("hidden")
	Error("shown", nil)

	got := lines(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, "shown", got[0]["message"])
}

func TestParseLevel(t *testing.T) {
	l, ok := ParseLevel(" debug ")
	assert.True(t, ok)
	assert.Equal(t, LevelDebug, l)

	l, ok = ParseLevel("loud")
	assert.False(t, ok)
	assert.Equal(t, LevelInfo, l)
}
