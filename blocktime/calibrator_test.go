package blocktime

import (
	"testing"
	"time"
)

func TestCalibratorNeedsMinimumSamples(t *testing.T) {
	cal := NewCalibrator()
	start := time.Unix(1700000000, 0).UTC()

	cal.AddSample(100, start)
	cal.AddSample(101, start.Add(12*time.Second))

	est := cal.Estimate()
	if !est.Calibrating {
		t.Fatalf("expected calibrating below the minimum sample count")
	}
	if est.AvgBlockTime != 0 {
		t.Fatalf("expected zero average while calibrating, got %v", est.AvgBlockTime)
	}

	cal.AddSample(102, start.Add(24*time.Second))
	est = cal.Estimate()
	if est.Calibrating {
		t.Fatalf("expected estimate after %d samples", DefaultMinSamples)
	}
	if est.AvgBlockTime != 12*time.Second {
		t.Fatalf("average = %v, want 12s", est.AvgBlockTime)
	}
}

func TestCalibratorIgnoresRepeatedHeads(t *testing.T) {
	cal := NewCalibrator(WithSampleBounds(2, 4))
	start := time.Unix(1700000000, 0).UTC()

	cal.AddSample(100, start)
	cal.AddSample(100, start.Add(5*time.Second))
	cal.AddSample(100, start.Add(10*time.Second))
	cal.AddSample(101, start.Add(12*time.Second))

	est := cal.Estimate()
	if est.Calibrating {
		t.Fatalf("expected estimate, still calibrating")
	}
	if est.AvgBlockTime != 12*time.Second {
		t.Fatalf("average = %v, want 12s (repeat heads discarded)", est.AvgBlockTime)
	}
}

func TestCalibratorSlidingWindowEvictsOldest(t *testing.T) {
	cal := NewCalibrator(WithSampleBounds(2, 3))
	start := time.Unix(1700000000, 0).UTC()

	// Slow early blocks, then a faster regime; once the window slides past
	// the slow samples only the fast cadence remains.
	cal.AddSample(100, start)
	cal.AddSample(101, start.Add(60*time.Second))
	cal.AddSample(102, start.Add(62*time.Second))
	cal.AddSample(103, start.Add(64*time.Second))
	cal.AddSample(104, start.Add(66*time.Second))

	est := cal.Estimate()
	if est.Calibrating {
		t.Fatalf("expected estimate, still calibrating")
	}
	if est.AvgBlockTime != 2*time.Second {
		t.Fatalf("average = %v, want 2s after the slow samples were evicted", est.AvgBlockTime)
	}
}

func TestCalibratorResetsOnLowerBlockNumber(t *testing.T) {
	cal := NewCalibrator(WithSampleBounds(2, 4))
	start := time.Unix(1700000000, 0).UTC()

	cal.AddSample(100, start)
	cal.AddSample(101, start.Add(10*time.Second))
	cal.AddSample(50, start.Add(20*time.Second))

	if est := cal.Estimate(); !est.Calibrating {
		t.Fatalf("expected recalibration after block number regressed, got %+v", est)
	}
}

func TestCalibratorSpansMultiBlockGaps(t *testing.T) {
	cal := NewCalibrator(WithSampleBounds(2, 4))
	start := time.Unix(1700000000, 0).UTC()

	cal.AddSample(100, start)
	cal.AddSample(104, start.Add(48*time.Second))

	est := cal.Estimate()
	if est.Calibrating {
		t.Fatalf("expected estimate, still calibrating")
	}
	if est.AvgBlockTime != 12*time.Second {
		t.Fatalf("average = %v, want 12s (48s across 4 blocks)", est.AvgBlockTime)
	}
}
