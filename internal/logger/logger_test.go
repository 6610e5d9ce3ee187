package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestAppLogger_LevelFallback(t *testing.T) {
	l := NewAppLogger(&Config{LogLevel: "verbose"})
	assert.Equal(t, zapcore.DebugLevel, l.getLoggerLevel())

	l = NewAppLogger(&Config{LogLevel: "warn"})
	assert.Equal(t, zapcore.WarnLevel, l.getLoggerLevel())
}

func TestAppLogger_With(t *testing.T) {
	l := NewAppLogger(&Config{LogLevel: "info", Encoder: "json"})
	l.InitLogger()

	child := l.With("account_id", "macc_1")
	assert.NotNil(t, child.Logger())
	assert.NotSame(t, l.Logger(), child.Logger())
	child.Infow("sync started", "folder", "INBOX")
}
