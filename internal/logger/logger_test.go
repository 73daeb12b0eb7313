package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleLoggerWritesFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelDebug).Module("encoder").Module("worker")

	log.With(Int("worker_id", 2)).Info("task finished",
		String("result", "success"),
		Duration("elapsed", 1500*time.Millisecond),
		Bool("cancelled", false))

	out := buf.String()
	assert.Contains(t, out, "module=encoder.worker")
	assert.Contains(t, out, "worker_id=2")
	assert.Contains(t, out, "result=success")
	assert.Contains(t, out, "elapsed=1.5s")
	assert.Contains(t, out, "cancelled=false")
	assert.NotContains(t, out, "time=")
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelWarn)

	log.Debug("hidden debug")
	log.Info("hidden info")
	log.Warn("visible warn")
	log.Error("visible error", Error(assert.AnError))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible warn")
	assert.Contains(t, out, "visible error")
	assert.Contains(t, out, assert.AnError.Error())
}

func TestWithDoesNotLeakIntoParent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	parent := NewSlogLogger(&buf, LogLevelInfo)
	_ = parent.With(String("run_id", "abc"))

	parent.Info("plain")
	assert.NotContains(t, buf.String(), "run_id")
}

func TestCentralLoggerFileOutputIsJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "wavenc.log")
	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: true, Path: path, Level: "debug"},
		ModuleLevels: map[string]string{"queue": "error"},
	})
	require.NoError(t, err)

	cl.Module("batch").Info("run complete", Int("succeeded", 4), Float64("ratio", 0.123456))
	cl.Module("queue").Info("suppressed by module level")
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "run complete", record["msg"])
	assert.Equal(t, "batch", record["module"])
	assert.InDelta(t, 4, record["succeeded"], 0)
	assert.InDelta(t, 0.123, record["ratio"], 1e-9)
	assert.True(t, strings.HasSuffix(record["time"].(string), "Z"))
}

func TestInvalidTimezoneFails(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(&LoggingConfig{Timezone: "Not/AZone"})
	assert.Error(t, err)
}
