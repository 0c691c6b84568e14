package iax2

import "time"

// AdjustThresholds are the per-transaction outbound-timestamp-drift
// parameters of spec.md §4.10, ported from engine.cpp's
// m_adjustTsOut{Threshold,Overrun,Underrun} defaults (120/120/60 ms).
type AdjustThresholds struct {
	Threshold time.Duration
	Over      time.Duration
	Under     time.Duration
}

const (
	DefaultAdjustThreshold = 120 * time.Millisecond
	DefaultAdjustOver      = 120 * time.Millisecond
	DefaultAdjustUnder     = 60 * time.Millisecond
)

func roundTo10ms(d time.Duration) time.Duration {
	const step = 10 * time.Millisecond
	return ((d + step/2) / step) * step
}

// SanitizeAdjustThresholds rounds each value to the nearest 10ms, clamps
// Over <= Threshold, and clamps Under < 2*Threshold (reducing by 10ms if
// violated), reproducing the sanitization described in spec.md §4.10.
func SanitizeAdjustThresholds(in AdjustThresholds) AdjustThresholds {
	out := AdjustThresholds{
		Threshold: roundTo10ms(in.Threshold),
		Over:      roundTo10ms(in.Over),
		Under:     roundTo10ms(in.Under),
	}
	if out.Over > out.Threshold {
		out.Over = out.Threshold
	}
	if out.Under >= 2*out.Threshold {
		out.Under = 2*out.Threshold - 10*time.Millisecond
		if out.Under < 0 {
			out.Under = 0
		}
	}
	return out
}

// TimestampShift reports how the next outbound frame's timestamp should
// move given the observed drift, per spec.md §4.10's semantics. The
// engine only validates configuration; transactions consume this.
func (a AdjustThresholds) TimestampShift(drift time.Duration) (shift time.Duration) {
	if drift > a.Threshold+a.Over {
		return drift - a.Threshold
	}
	if drift < a.Threshold-a.Under {
		return drift - a.Threshold
	}
	return 0
}
