package log_test

import (
	"bytes"
	"os"
	"testing"

	"github.com/kataras/golog"
	"github.com/stretchr/testify/assert"

	"github.com/smallnest/textflow/log"
)

func TestDefaultLoggerLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := log.NewCustomLogger(&buf, log.LogLevelInfo)

	logger.Debug("hidden %d", 1)
	logger.Info("shown %d", 2)
	logger.Error("also shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[INFO] shown 2")
	assert.Contains(t, out, "[ERROR] also shown")
	assert.Contains(t, out, "[textflow]")
}

func TestNoOpLogger(t *testing.T) {
	t.Parallel()

	// must not panic
	logger := &log.NoOpLogger{}
	logger.Debug("a")
	logger.Info("b")
	logger.Warn("c")
	logger.Error("d")
}

func TestLogLevelString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "DEBUG", log.LogLevelDebug.String())
	assert.Equal(t, "INFO", log.LogLevelInfo.String())
	assert.Equal(t, "WARN", log.LogLevelWarn.String())
	assert.Equal(t, "ERROR", log.LogLevelError.String())
	assert.Equal(t, "NONE", log.LogLevelNone.String())
}

func TestGologLoggerLevel(t *testing.T) {
	t.Parallel()

	gl := golog.New()
	gl.SetOutput(os.Stderr)

	logger := log.NewGologLogger(gl)
	assert.Equal(t, log.LogLevelInfo, logger.GetLevel())

	logger.SetLevel(log.LogLevelError)
	assert.Equal(t, log.LogLevelError, logger.GetLevel())
}

func TestSetDefaultLogger(t *testing.T) {
	original := log.GetDefaultLogger()
	defer log.SetDefaultLogger(original)

	var buf bytes.Buffer
	log.SetDefaultLogger(log.NewCustomLogger(&buf, log.LogLevelDebug))

	log.Debug("through the package logger")
	assert.Contains(t, buf.String(), "through the package logger")
}
