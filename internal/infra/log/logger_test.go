package log

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitWritesLineFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "monitor.log")
	require.NoError(t, Init(Options{File: path, Level: "debug"}))
	t.Cleanup(func() { Logger = zap.NewNop(); consoleLogger = zap.NewNop() })

	LogInfo("holding opened", zap.String("mint", "Mint111"), zap.Int64("amount", 42))
	LogDebug("raw notification")
	LogWarn("send failed", zap.Error(errors.New("boom")))
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)

	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} \[INFO\] holding opened\t`, lines[0])
	assert.Contains(t, lines[0], `"mint":"Mint111"`)
	assert.Contains(t, lines[0], `"amount":42`)
	assert.Contains(t, lines[1], "[DEBUG] raw notification")
	assert.Contains(t, lines[2], `"error":"boom"`)
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	err := Init(Options{File: filepath.Join(t.TempDir(), "m.log"), Level: "loud"})
	require.Error(t, err)
}

func TestLevelFiltersFileCore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.log")
	require.NoError(t, Init(Options{File: path, Level: "warn"}))
	t.Cleanup(func() { Logger = zap.NewNop(); consoleLogger = zap.NewNop() })

	LogInfo("dropped")
	LogWarn("kept")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "[WARN] kept")
}
