package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(t *testing.T, observeAt zapcore.Level, level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	t.Helper()
	core, recorded := observer.New(observeAt)
	return NewGormLogger(zap.New(core), level, opts...), recorded
}

func TestNewGormLogger(t *testing.T) {
	gl, _ := newObservedGormLogger(t, zapcore.InfoLevel, gormlogger.Info)

	assert.NotNil(t, gl)
	assert.Equal(t, gormlogger.Info, gl.level)
	assert.Equal(t, 200*time.Millisecond, gl.slowThreshold)
	assert.True(t, gl.ignoreNotFoundErrs)
}

func TestGormLoggerOptions(t *testing.T) {
	gl, _ := newObservedGormLogger(t, zapcore.InfoLevel, gormlogger.Info,
		WithSlowThreshold(500*time.Millisecond),
		WithIgnoreRecordNotFoundError(false),
	)

	assert.Equal(t, 500*time.Millisecond, gl.slowThreshold)
	assert.False(t, gl.ignoreNotFoundErrs)
}

func TestGormLogger_LogMode(t *testing.T) {
	gl, _ := newObservedGormLogger(t, zapcore.InfoLevel, gormlogger.Info)

	clone := gl.LogMode(gormlogger.Warn)

	// the original must keep its level
	assert.Equal(t, gormlogger.Info, gl.level)

	cloned, ok := clone.(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Warn, cloned.level)
}

func TestGormLogger_Levels(t *testing.T) {
	t.Run("info passes through", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(t, zapcore.InfoLevel, gormlogger.Info)
		gl.Info(context.Background(), "migrated %s", "invoices")

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Contains(t, logs[0].Message, "migrated invoices")
	})

	t.Run("silent suppresses info", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(t, zapcore.InfoLevel, gormlogger.Silent)
		gl.Info(context.Background(), "should not appear")

		assert.Empty(t, recorded.All())
	})

	t.Run("warn", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(t, zapcore.WarnLevel, gormlogger.Warn)
		gl.Warn(context.Background(), "retrying after %d failures", 2)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
	})

	t.Run("error", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(t, zapcore.ErrorLevel, gormlogger.Error)
		gl.Error(context.Background(), "connection lost")

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.ErrorLevel, logs[0].Level)
	})
}

func TestGormLogger_Trace_Error(t *testing.T) {
	gl, recorded := newObservedGormLogger(t, zapcore.ErrorLevel, gormlogger.Error)

	gl.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT * FROM orders", 0
	}, errors.New("relation does not exist"))

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].Message, "sql error")
}

func TestGormLogger_Trace_RecordNotFoundIgnored(t *testing.T) {
	gl, recorded := newObservedGormLogger(t, zapcore.ErrorLevel, gormlogger.Error,
		WithIgnoreRecordNotFoundError(true))

	gl.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT * FROM orders WHERE id = ?", 0
	}, gormlogger.ErrRecordNotFound)

	assert.Empty(t, recorded.All())
}

func TestGormLogger_Trace_SlowQuery(t *testing.T) {
	gl, recorded := newObservedGormLogger(t, zapcore.WarnLevel, gormlogger.Warn,
		WithSlowThreshold(time.Nanosecond))

	began := time.Now().Add(-time.Second)
	gl.Trace(context.Background(), began, func() (string, int64) {
		return "SELECT * FROM invoices", 10
	}, nil)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].Message, "slow sql")
}

func TestGormLogger_Trace_Normal(t *testing.T) {
	gl, recorded := newObservedGormLogger(t, zapcore.DebugLevel, gormlogger.Info)

	gl.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT * FROM invoices", 5
	}, nil)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].Message, "sql trace")
}

func TestGormLogger_Trace_Silent(t *testing.T) {
	gl, recorded := newObservedGormLogger(t, zapcore.DebugLevel, gormlogger.Silent)

	gl.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT * FROM invoices", 5
	}, nil)

	assert.Empty(t, recorded.All())
}

func TestGormLogger_Trace_CarriesRequestID(t *testing.T) {
	gl, recorded := newObservedGormLogger(t, zapcore.DebugLevel, gormlogger.Info)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-42")
	gl.Trace(ctx, time.Now(), func() (string, int64) {
		return "SELECT * FROM orders", 5
	}, nil)

	logs := recorded.All()
	require.Len(t, logs, 1)

	found := false
	for _, field := range logs[0].Context {
		if field.Key == "request_id" {
			found = true
			assert.Equal(t, "req-42", field.String)
		}
	}
	assert.True(t, found, "request_id should be attached to the sql trace")
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"unknown", gormlogger.Warn},
		{"", gormlogger.Warn},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapGormLogLevel(tt.level))
		})
	}
}

func TestGormLoggerImplementsInterface(t *testing.T) {
	gl, _ := newObservedGormLogger(t, zapcore.InfoLevel, gormlogger.Info)
	var _ gormlogger.Interface = gl
}
