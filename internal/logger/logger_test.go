package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, "warn")

	l.Info("BOOKING", "hidden")
	l.Warn("BOOKING", "shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "[BOOKING")
}

func TestCategoryHelpers(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, "info")

	l.LogDatabase("CONNECT", "postgres", "connected, pool of 25")
	l.LogKafka("SUBSCRIBE", "samba.changes", "joining group samba-tours-live-web1")

	out := buf.String()
	assert.Contains(t, out, "[DATABASE")
	assert.Contains(t, out, "[CONNECT] postgres - connected, pool of 25")
	assert.Contains(t, out, "[KAFKA")
	assert.Contains(t, out, "[SUBSCRIBE] samba.changes - joining group samba-tours-live-web1")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("WARNING"))
	assert.Equal(t, ERROR, ParseLevel(" error "))
	assert.Equal(t, INFO, ParseLevel("nonsense"))
}

func TestFileOutputIsJSON(t *testing.T) {
	dir := t.TempDir()
	l := NewLogger(dir, "debug")
	l.terminal = &bytes.Buffer{}
	l.LogBooking("CREATE", "SMB-ABCD1234", "booking created")
	l.Close()

	files, err := filepath.Glob(filepath.Join(dir, "samba-tours-*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Contains(t, string(data), `"category":"BOOKING"`)
	assert.Contains(t, string(data), `SMB-ABCD1234`)
}

func TestFatalUsesExitHook(t *testing.T) {
	code := -1
	l := NewNopLogger()
	l.exit = func(c int) { code = c }
	l.Fatal("APP", "boom")
	assert.Equal(t, 1, code)
}
