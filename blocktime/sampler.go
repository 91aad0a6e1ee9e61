package blocktime

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"chainwatch/ledger"
	"chainwatch/observability"
)

// Sampler feeds a calibrator from a ledger adapter while at least one
// consumer holds an interest. Calibration is externally driven: the first
// Acquire starts the polling goroutine, the last Release stops it.
type Sampler struct {
	adapter    ledger.Adapter
	calibrator *Calibrator
	logger     *slog.Logger
	metrics    *observability.EngineMetrics

	mu     sync.Mutex
	refs   int
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSampler binds a calibrator to one ledger adapter. A nil logger mutes
// sampling diagnostics.
func NewSampler(adapter ledger.Adapter, calibrator *Calibrator, logger *slog.Logger) *Sampler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Sampler{
		adapter:    adapter,
		calibrator: calibrator,
		logger:     logger,
		metrics:    observability.Engine(),
	}
}

// Acquire registers interest in calibration, starting the polling loop on
// the first call.
func (s *Sampler) Acquire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs++
	if s.refs > 1 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
}

// Release drops one interest; the loop stops when none remain. Release
// blocks until the loop has exited so tests observe a quiesced sampler.
func (s *Sampler) Release() {
	s.mu.Lock()
	if s.refs == 0 {
		s.mu.Unlock()
		return
	}
	s.refs--
	if s.refs > 0 {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	cancel()
	<-done
}

func (s *Sampler) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		s.sampleOnce(ctx)
		cadence := ComputePollInterval(s.calibrator.Estimate())
		timer := time.NewTimer(cadence)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (s *Sampler) sampleOnce(ctx context.Context) {
	head, err := s.adapter.Head(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("head sample failed",
				slog.Uint64("network", s.adapter.NetworkID()),
				slog.Any("error", err))
		}
		return
	}
	s.calibrator.AddSample(head.Number, head.Time)
	s.metrics.RecordBlockTimeSample()
}
