package blocktime

import "time"

const (
	// DefaultCadence is used while the calibrator has no estimate yet.
	DefaultCadence = 10 * time.Second
	// MinCadence and MaxCadence clamp the derived cadence so exotic chains
	// cannot drive polling absurdly fast or slow.
	MinCadence = 5 * time.Second
	MaxCadence = 30 * time.Second

	// cadenceFactor stretches the average block time slightly so polling
	// lands roughly once per block without racing it.
	cadenceFactor = 1.25
)

// ComputePollInterval turns a calibrated estimate into a clamped,
// chain-agnostic polling period, rounded to the nearest millisecond.
func ComputePollInterval(est Estimate) time.Duration {
	if est.Calibrating || est.AvgBlockTime <= 0 {
		return DefaultCadence
	}
	cadence := time.Duration(float64(est.AvgBlockTime) * cadenceFactor).Round(time.Millisecond)
	if cadence < MinCadence {
		return MinCadence
	}
	if cadence > MaxCadence {
		return MaxCadence
	}
	return cadence
}
