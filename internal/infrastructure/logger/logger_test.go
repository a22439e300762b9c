package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
	assert.NotEmpty(t, cfg.TimeFormat)
}

func TestProductionConfig(t *testing.T) {
	cfg := ProductionConfig()

	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{name: "default config", cfg: DefaultConfig()},
		{name: "production config", cfg: ProductionConfig()},
		{
			name: "debug console",
			cfg:  &Config{Level: "debug", Format: "console", Output: "stdout", TimeFormat: defaultTimeLayout},
		},
		{
			name: "json to stderr",
			cfg:  &Config{Level: "info", Format: "json", Output: "stderr", TimeFormat: defaultTimeLayout},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg)
			require.NoError(t, err)
			assert.NotNil(t, log)
		})
	}
}

func TestNewForEnvironment(t *testing.T) {
	for _, env := range []string{"development", "production", "staging"} {
		t.Run(env, func(t *testing.T) {
			log, err := NewForEnvironment(env)
			require.NoError(t, err)
			assert.NotNil(t, log)
		})
	}
}

func TestZapLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"unknown", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, zapLevel(tt.level))
		})
	}
}

func TestSync(t *testing.T) {
	log, err := NewForEnvironment("development")
	require.NoError(t, err)

	// Sync on stdout may return an error on some platforms; it must
	// not panic either way.
	_ = Sync(log)
}

func TestNewSink(t *testing.T) {
	for _, output := range []string{"stdout", "stderr", "STDOUT"} {
		t.Run(output, func(t *testing.T) {
			assert.NotNil(t, newSink(output))
		})
	}
}

func TestNewSinkFile(t *testing.T) {
	tmp, err := os.CreateTemp("", "beton-log-*.log")
	require.NoError(t, err)
	defer os.Remove(tmp.Name())
	tmp.Close()

	assert.NotNil(t, newSink(tmp.Name()))
}

func TestEncoders(t *testing.T) {
	console := newEncoder(&Config{Format: "console", TimeFormat: defaultTimeLayout})
	assert.NotNil(t, console)

	jsonEnc := newEncoder(&Config{Format: "json", TimeFormat: defaultTimeLayout})
	assert.NotNil(t, jsonEnc)
}

func TestJSONOutputShape(t *testing.T) {
	var buf bytes.Buffer

	core := zapcore.NewCore(
		newEncoder(&Config{Format: "json", TimeFormat: defaultTimeLayout}),
		zapcore.AddSync(&buf),
		zapcore.InfoLevel,
	)
	log := zap.New(core)

	log.Info("order created", zap.String("order_number", "ORD-2026-00001"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "order created", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "ORD-2026-00001", entry["order_number"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	enc := newEncoder(&Config{Format: "json", TimeFormat: defaultTimeLayout})

	log := zap.New(zapcore.NewCore(enc, zapcore.AddSync(&buf), zapcore.InfoLevel))

	log.Debug("weighing detail")
	assert.False(t, strings.Contains(buf.String(), "weighing detail"))

	log.Info("weighing captured")
	assert.True(t, strings.Contains(buf.String(), "weighing captured"))
}
