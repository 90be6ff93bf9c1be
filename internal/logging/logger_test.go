package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/greenfield-academy/website/pkg"
)

func TestGetLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, GetLevel("debug"))
	assert.Equal(t, logrus.ErrorLevel, GetLevel("ERROR"))
	assert.Equal(t, logrus.FatalLevel, GetLevel("fatal"))
	assert.Equal(t, logrus.InfoLevel, GetLevel("info"))
	assert.Equal(t, logrus.TraceLevel, GetLevel("trace"))
	assert.Equal(t, logrus.WarnLevel, GetLevel("warn"))
	assert.Equal(t, logrus.WarnLevel, GetLevel("warning"))
	assert.Equal(t, logrus.InfoLevel, GetLevel("whatever"))
	assert.Equal(t, logrus.PanicLevel, GetLevel(" panic "))
}

func TestSetup_LogFile(t *testing.T) {
	defer logrus.SetOutput(os.Stderr)

	logFile := filepath.Join(t.TempDir(), "service")
	Setup(LoggerSetupParams{
		LogFileName: logFile,
		LogLevel:    "debug",
	})
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	logrus.Debug("hello from test")

	content, err := os.ReadFile(logFile + ".log")
	require.NoError(t, err)
	assert.Contains(t, string(content), "hello from test")
}

func TestSentryLevel(t *testing.T) {
	assert.Equal(t, sentry.LevelFatal, sentryLevel(logrus.PanicLevel))
	assert.Equal(t, sentry.LevelFatal, sentryLevel(logrus.FatalLevel))
	assert.Equal(t, sentry.LevelError, sentryLevel(logrus.ErrorLevel))
	assert.Equal(t, sentry.LevelWarning, sentryLevel(logrus.WarnLevel))
	assert.Equal(t, sentry.LevelDebug, sentryLevel(logrus.TraceLevel))
}

func TestSentryHook_Levels(t *testing.T) {
	hook := NewSentryHook([]logrus.Level{logrus.ErrorLevel})
	assert.Equal(t, []logrus.Level{logrus.ErrorLevel}, hook.Levels())
}

func TestNewOutput(t *testing.T) {
	out, desc := newOutput(LoggerSetupParams{})
	assert.Equal(t, os.Stdout, out)
	assert.Equal(t, "STDOUT", desc)

	logFile := filepath.Join(t.TempDir(), "service.log")
	out, desc = newOutput(LoggerSetupParams{LogFileName: logFile})
	fileLogger, ok := out.(*lumberjack.Logger)
	require.True(t, ok)
	assert.Equal(t, logFile, fileLogger.Filename)
	assert.Equal(t, defaultMaxSizeMB, fileLogger.MaxSize)
	assert.Equal(t, defaultMaxBackups, fileLogger.MaxBackups)
	assert.Equal(t, logFile, desc)

	out, _ = newOutput(LoggerSetupParams{
		LogFileName:   logFile,
		LogToStdout:   true,
		LogMaxSizeMB:  5,
		LogMaxBackups: 2,
	})
	_, ok = out.(*pkg.CombinedWriter)
	assert.True(t, ok)
}

func TestRedactHook(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.AddHook(NewRedactHook(DefaultRedactedFields))

	logger.WithFields(logrus.Fields{
		"username": "admin",
		"Password": "hunter2",
		"session":  "eyJhbGciOiJIUzI1NiJ9.payload.sig",
	}).Info("login")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "admin", entry["username"])
	assert.Equal(t, redacted, entry["Password"])
	assert.Equal(t, redacted, entry["session"])
	assert.NotContains(t, buf.String(), "hunter2")
	assert.NotContains(t, buf.String(), "payload.sig")
}
