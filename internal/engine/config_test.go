package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/churn/internal/record"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 30, cfg.UpdatePercent)
	assert.Equal(t, record.ModeSimple, cfg.PayloadMode)
	assert.False(t, cfg.Running, "a fresh engine starts paused")
}

func TestClampTickInterval(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want time.Duration
	}{
		{"below minimum", 0, MinTickInterval},
		{"negative", -5 * time.Millisecond, MinTickInterval},
		{"sub-millisecond", 500 * time.Microsecond, MinTickInterval},
		{"at minimum", time.Millisecond, time.Millisecond},
		{"in range", 250 * time.Millisecond, 250 * time.Millisecond},
		{"at maximum", time.Second, time.Second},
		{"above maximum", 2 * time.Second, MaxTickInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampTickInterval(tt.in))
		})
	}
}

func TestClampBatchSize(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"zero", 0, MinBatchSize},
		{"negative", -3, MinBatchSize},
		{"at minimum", 1, 1},
		{"in range", 250, 250},
		{"at maximum", 500, 500},
		{"above maximum", 501, MaxBatchSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampBatchSize(tt.in))
		})
	}
}

func TestClampUpdatePercent(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"negative", -1, MinUpdatePercent},
		{"zero stays", 0, 0},
		{"in range", 55, 55},
		{"hundred stays", 100, 100},
		{"above maximum", 101, MaxUpdatePercent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampUpdatePercent(tt.in))
		})
	}
}

func TestConfig_Clamp_NormalizesAllFields(t *testing.T) {
	cfg := Config{
		TickInterval:  5 * time.Second,
		BatchSize:     -1,
		UpdatePercent: 900,
		PayloadMode:   record.Mode("bogus"),
	}

	got := cfg.Clamp()

	assert.Equal(t, MaxTickInterval, got.TickInterval)
	assert.Equal(t, MinBatchSize, got.BatchSize)
	assert.Equal(t, MaxUpdatePercent, got.UpdatePercent)
	assert.Equal(t, record.ModeSimple, got.PayloadMode, "unknown mode falls back to simple")
}

func TestConfig_State(t *testing.T) {
	assert.Equal(t, StatePaused, Config{Running: false}.State())
	assert.Equal(t, StateRunning, Config{Running: true}.State())
}
