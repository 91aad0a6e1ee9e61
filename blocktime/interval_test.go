package blocktime

import (
	"testing"
	"time"
)

func TestComputePollInterval(t *testing.T) {
	cases := []struct {
		name string
		est  Estimate
		want time.Duration
	}{
		{"calibrating", Estimate{Calibrating: true}, DefaultCadence},
		{"zero average", Estimate{}, DefaultCadence},
		{"twelve second blocks", Estimate{AvgBlockTime: 12 * time.Second}, 15 * time.Second},
		{"sub-second blocks clamp up", Estimate{AvgBlockTime: time.Second}, MinCadence},
		{"slow chain clamps down", Estimate{AvgBlockTime: 100 * time.Second}, MaxCadence},
		{"rounds to millisecond", Estimate{AvgBlockTime: 6001 * time.Millisecond}, 7501 * time.Millisecond},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ComputePollInterval(tc.est); got != tc.want {
				t.Fatalf("ComputePollInterval(%+v) = %v, want %v", tc.est, got, tc.want)
			}
		})
	}
}
