package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// TimingStats holds timing information for the phases of an export.
type TimingStats struct {
	TotalTime     time.Duration
	ConfigTime    time.Duration
	ModelInitTime time.Duration
	ExportTime    time.Duration
	VerifyTime    time.Duration
}

// Track runs fn and adds its wall time to *d.
func Track(d *time.Duration, fn func() error) error {
	start := time.Now()
	err := fn()
	*d += time.Since(start)
	return err
}

// LogTimingStats writes one structured event with every phase and its share
// of the total.
func LogTimingStats(log zerolog.Logger, stats *TimingStats) {
	share := func(d time.Duration) float64 {
		if stats.TotalTime <= 0 {
			return 0
		}
		return float64(d) / float64(stats.TotalTime) * 100
	}
	log.Info().
		Dur("total", stats.TotalTime).
		Float64("config_us", DurationUS(stats.ConfigTime)).
		Float64("model_init_us", DurationUS(stats.ModelInitTime)).
		Float64("model_init_pct", share(stats.ModelInitTime)).
		Float64("export_us", DurationUS(stats.ExportTime)).
		Float64("export_pct", share(stats.ExportTime)).
		Float64("verify_us", DurationUS(stats.VerifyTime)).
		Msg("timing")
}

// DurationUS converts any time.Duration to micro-seconds as float64
func DurationUS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1_000.0
}
