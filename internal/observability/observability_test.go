package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/couchcryptid/almanac-etl-service/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Level(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	tests := []struct {
		level string
		want  slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := NewLogger(&config.Config{LogLevel: tt.level, LogFormat: "json"})
			ctx := context.Background()
			assert.True(t, logger.Enabled(ctx, tt.want))
			if tt.want > slog.LevelDebug {
				assert.False(t, logger.Enabled(ctx, tt.want-4))
			}
		})
	}
}

func TestNewLogger_SetsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := NewLogger(&config.Config{LogLevel: "info", LogFormat: "text"})
	assert.Same(t, logger, slog.Default())
	_, isText := logger.Handler().(*slog.TextHandler)
	assert.True(t, isText)
}

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.Commentary.WithLabelValues("success").Inc()

	assert.InDelta(t, 1, counterValue(t, a.Commentary.WithLabelValues("success")), 1e-9)
	assert.InDelta(t, 0, counterValue(t, b.Commentary.WithLabelValues("success")), 1e-9)
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}
