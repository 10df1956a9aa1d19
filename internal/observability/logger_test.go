// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/finding-dedup/internal/config"
)

// bufferSink returns a buffer-backed write syncer and resets the global
// logger for the duration of the test.
func bufferSink(t *testing.T) (*bytes.Buffer, zapcore.WriteSyncer) {
	t.Helper()
	ResetForTest()
	t.Cleanup(ResetForTest)
	buf := &bytes.Buffer{}
	return buf, zapcore.AddSync(buf)
}

func TestInitialize(t *testing.T) {
	t.Run("console format colorizes levels", func(t *testing.T) {
		buf, sink := bufferSink(t)

		Initialize(config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "finding-dedup",
			Colors:      config.ColorConfig{Info: "green"},
		}, sink)
		GetLogger().Named("runner").Info("run case finished")

		output := buf.String()
		assert.Contains(t, output, colorMap["green"]+"INFO"+colorReset)
		assert.Contains(t, output, "finding-dedup.runner.")
		assert.Contains(t, output, "run case finished")
	})

	t.Run("unknown color leaves level plain", func(t *testing.T) {
		buf, sink := bufferSink(t)

		Initialize(config.LoggerConfig{Level: "info", Format: "console", Colors: config.ColorConfig{Warn: "chartreuse"}}, sink)
		GetLogger().Warn("plain")

		assert.Contains(t, buf.String(), "WARN")
		assert.NotContains(t, buf.String(), colorReset)
	})

	t.Run("json format emits structured entries", func(t *testing.T) {
		buf, sink := bufferSink(t)

		Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "JSONTest"}, sink)
		GetLogger().Warn("threshold out of range", zap.Float64("threshold", 1.5))

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "WARN", entry["level"])
		assert.Equal(t, "JSONTest", entry["logger"])
		assert.Equal(t, "threshold out of range", entry["msg"])
		assert.Equal(t, 1.5, entry["threshold"])
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		buf, sink := bufferSink(t)

		Initialize(config.LoggerConfig{Level: "verbose", Format: "json"}, sink)
		GetLogger().Debug("hidden")
		GetLogger().Info("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("log file receives json lines", func(t *testing.T) {
		_, sink := bufferSink(t)
		logFile := filepath.Join(t.TempDir(), "finding-dedup.log")

		Initialize(config.LoggerConfig{Level: "debug", Format: "console", LogFile: logFile, MaxSize: 1}, sink)
		GetLogger().Error("written to file")
		Sync()

		content, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(content), `"msg":"written to file"`)
	})

	t.Run("only the first call takes effect", func(t *testing.T) {
		buf, sink := bufferSink(t)

		Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "First"}, sink)
		first := GetLogger()
		Initialize(config.LoggerConfig{Level: "debug", Format: "json", ServiceName: "Second"}, sink)

		assert.Same(t, first, GetLogger())
		GetLogger().Info("test")
		assert.Contains(t, buf.String(), "First")
		assert.NotContains(t, buf.String(), "Second")
	})
}

func TestGetLogger(t *testing.T) {
	t.Run("fallback before initialization", func(t *testing.T) {
		ResetForTest()
		assert.NotNil(t, GetLogger())
		assert.Nil(t, globalLogger.Load(), "fallback must not be stored globally")
	})

	t.Run("global logger after initialization", func(t *testing.T) {
		_, sink := bufferSink(t)
		Initialize(config.LoggerConfig{Level: "info", ServiceName: "GlobalTest"}, sink)
		assert.Same(t, globalLogger.Load(), GetLogger())
	})
}
