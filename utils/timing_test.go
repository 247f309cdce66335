package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationUS(t *testing.T) {
	d := 1234*time.Microsecond + 567*time.Nanosecond
	got := DurationUS(d)
	if math.Abs(got-1234.567) > 0.001 {
		t.Fatalf("want 1234.567µs, got %.3f", got)
	}
}

func TestTrackAccumulates(t *testing.T) {
	var d time.Duration
	boom := errors.New("boom")
	require.NoError(t, Track(&d, func() error { time.Sleep(time.Millisecond); return nil }))
	first := d
	assert.GreaterOrEqual(t, first, time.Millisecond)
	assert.ErrorIs(t, Track(&d, func() error { return boom }), boom)
	assert.GreaterOrEqual(t, d, first)
}

func TestLogTimingStats(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger("info", &buf)
	require.NoError(t, err)

	LogTimingStats(log, &TimingStats{
		TotalTime:     10 * time.Millisecond,
		ModelInitTime: 5 * time.Millisecond,
		ExportTime:    time.Millisecond,
	})

	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	assert.Equal(t, "timing", event["message"])
	assert.InDelta(t, 50.0, event["model_init_pct"], 1e-9)
	assert.InDelta(t, 1000.0, event["export_us"], 1e-9)
}

func TestLogTimingStatsZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger("info", &buf)
	require.NoError(t, err)
	LogTimingStats(log, &TimingStats{})

	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	assert.Equal(t, 0.0, event["model_init_pct"])
}
