package observability

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, data string) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(strings.NewReader(data))
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m), sc.Text())
		out = append(out, m)
	}
	return out
}

func TestLoggerEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, Options{})

	l.LogPlan("login_instagram", "create", 5, nil)
	l.LogSecret("login_instagram", "PASSWORD_INSTAGRAM")
	l.LogWarning("login_instagram", "credential substitution: missing credential")
	require.NoError(t, l.Sync())

	events := decodeLines(t, buf.String())
	require.Len(t, events, 3)
	assert.Equal(t, "plan", events[0]["type"])
	assert.Equal(t, "login_instagram", events[0]["task"])
	assert.Equal(t, "warn", events[2]["level"])
	assert.Contains(t, buf.String(), "PASSWORD_INSTAGRAM")
}

func TestLLMEventsGoToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "llm.jsonl")
	var buf bytes.Buffer
	l := NewLogger(&buf, Options{LLMLogPath: path, MaxSize: 64})

	l.LogLLM("t", "gemini", "prompt one", "response one")
	l.LogLLM("t", "gemini", "prompt two", "response two")

	// Debug level is off, so stdout stays quiet for LLM payloads.
	assert.Empty(t, buf.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "prompt two")

	old, err := os.ReadFile(path + ".old")
	require.NoError(t, err)
	assert.Contains(t, string(old), "prompt one")
}

func TestRedact(t *testing.T) {
	got := Redact("login with password Secret123 and user bob", "Secret123", "")
	assert.Equal(t, "login with password [REDACTED] and user bob", got)
}

func TestStatus(t *testing.T) {
	s := NewStatus()
	s.Set(PhaseGenerating, "book_flight")
	snap := s.Get()
	assert.Equal(t, PhaseGenerating, snap.Phase)
	assert.Equal(t, "book_flight", snap.ActiveTask)

	s.Idle()
	assert.Equal(t, PhaseIdle, s.Get().Phase)

	var nilStatus *SystemStatus
	nilStatus.Set(PhaseSaving, "x")
}

func TestPrintBannerPlain(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "instruction to action plan")
	assert.Contains(t, buf.String(), ">> instruction to action plan <<")
	assert.NotContains(t, buf.String(), colorNeonCyan)
	assert.Equal(t, "x", Highlight(&buf, "x"))
}
