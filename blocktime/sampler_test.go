package blocktime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chainwatch/ledger"
)

type fakeAdapter struct {
	mu      sync.Mutex
	heads   []ledger.Head
	idx     int
	err     error
	sampled chan struct{}
}

func (f *fakeAdapter) NetworkID() uint64 { return 31337 }

func (f *fakeAdapter) Head(ctx context.Context) (ledger.Head, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sampled != nil {
		select {
		case f.sampled <- struct{}{}:
		default:
		}
	}
	if f.err != nil {
		return ledger.Head{}, f.err
	}
	head := f.heads[f.idx]
	if f.idx < len(f.heads)-1 {
		f.idx++
	}
	return head, nil
}

func TestSampleOnceFeedsCalibrator(t *testing.T) {
	start := time.Unix(1700000000, 0).UTC()
	adapter := &fakeAdapter{heads: []ledger.Head{
		{Number: 100, Time: start},
		{Number: 101, Time: start.Add(12 * time.Second)},
		{Number: 102, Time: start.Add(24 * time.Second)},
	}}
	cal := NewCalibrator()
	sampler := NewSampler(adapter, cal, nil)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		sampler.sampleOnce(ctx)
	}

	est := cal.Estimate()
	if est.Calibrating {
		t.Fatalf("expected estimate after three samples")
	}
	if est.AvgBlockTime != 12*time.Second {
		t.Fatalf("average = %v, want 12s", est.AvgBlockTime)
	}
}

func TestSampleOnceToleratesReadErrors(t *testing.T) {
	adapter := &fakeAdapter{err: errors.New("rpc down")}
	cal := NewCalibrator()
	sampler := NewSampler(adapter, cal, nil)

	sampler.sampleOnce(context.Background())

	if est := cal.Estimate(); !est.Calibrating {
		t.Fatalf("a failed read must not feed the calibrator")
	}
}

func TestSamplerInterestLifecycle(t *testing.T) {
	start := time.Unix(1700000000, 0).UTC()
	adapter := &fakeAdapter{
		heads:   []ledger.Head{{Number: 100, Time: start}},
		sampled: make(chan struct{}, 1),
	}
	sampler := NewSampler(adapter, NewCalibrator(), nil)

	sampler.Acquire()
	select {
	case <-adapter.sampled:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected an immediate sample after Acquire")
	}

	// A second interest must not spawn a second loop.
	sampler.Acquire()
	sampler.Release()
	sampler.mu.Lock()
	running := sampler.cancel != nil
	sampler.mu.Unlock()
	if !running {
		t.Fatalf("loop must keep running while an interest remains")
	}

	sampler.Release()
	sampler.mu.Lock()
	stopped := sampler.cancel == nil
	sampler.mu.Unlock()
	if !stopped {
		t.Fatalf("loop must stop once the last interest is released")
	}

	// Releasing with no interest held is a no-op.
	sampler.Release()
}
