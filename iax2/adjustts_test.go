package iax2

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSanitizeAdjustThresholdsDefaults(t *testing.T) {
	out := SanitizeAdjustThresholds(AdjustThresholds{
		Threshold: DefaultAdjustThreshold,
		Over:      DefaultAdjustOver,
		Under:     DefaultAdjustUnder,
	})
	require.Equal(t, 120*time.Millisecond, out.Threshold)
	require.Equal(t, 120*time.Millisecond, out.Over)
	require.Equal(t, 60*time.Millisecond, out.Under)
}

func TestSanitizeAdjustThresholdsRoundsTo10ms(t *testing.T) {
	out := SanitizeAdjustThresholds(AdjustThresholds{
		Threshold: 123 * time.Millisecond,
		Over:      47 * time.Millisecond,
		Under:     24 * time.Millisecond,
	})
	require.Equal(t, 120*time.Millisecond, out.Threshold)
	require.Equal(t, 50*time.Millisecond, out.Over)
	require.Equal(t, 20*time.Millisecond, out.Under)
}

func TestSanitizeAdjustThresholdsClampsOver(t *testing.T) {
	out := SanitizeAdjustThresholds(AdjustThresholds{
		Threshold: 50 * time.Millisecond,
		Over:      200 * time.Millisecond,
		Under:     10 * time.Millisecond,
	})
	require.Equal(t, 50*time.Millisecond, out.Threshold)
	require.Equal(t, 50*time.Millisecond, out.Over, "over must be clamped to threshold")
}

func TestSanitizeAdjustThresholdsClampsUnder(t *testing.T) {
	out := SanitizeAdjustThresholds(AdjustThresholds{
		Threshold: 50 * time.Millisecond,
		Over:      50 * time.Millisecond,
		Under:     150 * time.Millisecond, // >= 2*threshold (100ms)
	})
	require.Less(t, out.Under, 2*out.Threshold)
	require.Equal(t, 90*time.Millisecond, out.Under) // 2*50 - 10
}

func TestTimestampShift(t *testing.T) {
	a := AdjustThresholds{Threshold: 100 * time.Millisecond, Over: 50 * time.Millisecond, Under: 30 * time.Millisecond}

	require.Zero(t, a.TimestampShift(90*time.Millisecond))
	require.Equal(t, 60*time.Millisecond, a.TimestampShift(160*time.Millisecond))
	require.Equal(t, -40*time.Millisecond, a.TimestampShift(60*time.Millisecond))
}
