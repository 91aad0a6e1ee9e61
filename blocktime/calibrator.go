// Package blocktime calibrates a chain-agnostic polling cadence from
// observed block production times.
package blocktime

import (
	"sync"
	"time"
)

const (
	// DefaultMinSamples is the number of head observations required before
	// an average is reported.
	DefaultMinSamples = 3
	// DefaultMaxSamples bounds the sliding sample window.
	DefaultMaxSamples = 12
)

type sample struct {
	number uint64
	at     time.Time
}

// Estimate is the calibrator's current view of block production.
// AvgBlockTime is zero while Calibrating is true.
type Estimate struct {
	AvgBlockTime time.Duration
	Calibrating  bool
}

// CalibratorOption adjusts a Calibrator.
type CalibratorOption func(*calibratorConfig)

type calibratorConfig struct {
	minSamples int
	maxSamples int
}

// WithSampleBounds overrides the [min, max] sample window. Values out of
// range fall back to the defaults.
func WithSampleBounds(minSamples, maxSamples int) CalibratorOption {
	return func(cfg *calibratorConfig) {
		if minSamples >= 2 {
			cfg.minSamples = minSamples
		}
		if maxSamples >= cfg.minSamples {
			cfg.maxSamples = maxSamples
		}
	}
}

// Calibrator keeps a bounded window of head observations and derives the
// rolling average block interval. One instance is shared process-wide for a
// session; it is safe for concurrent use.
type Calibrator struct {
	mu      sync.Mutex
	samples sampleRing
	min     int
}

// NewCalibrator constructs a calibrator with an empty window.
func NewCalibrator(opts ...CalibratorOption) *Calibrator {
	cfg := calibratorConfig{minSamples: DefaultMinSamples, maxSamples: DefaultMaxSamples}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Calibrator{
		samples: newSampleRing(cfg.maxSamples),
		min:     cfg.minSamples,
	}
}

// AddSample records one head observation. Observations that do not advance
// the block number are discarded; a lower number (reorg or endpoint switch)
// resets the window. Once the window is full the oldest sample is dropped.
func (c *Calibrator) AddSample(blockNumber uint64, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if last, ok := c.samples.last(); ok {
		if blockNumber == last.number {
			return
		}
		if blockNumber < last.number {
			c.samples.reset()
		}
	}
	c.samples.push(sample{number: blockNumber, at: at})
}

// Estimate derives the average interval between consecutive blocks across
// the current window.
func (c *Calibrator) Estimate() Estimate {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.samples.len() < c.min {
		return Estimate{Calibrating: true}
	}
	first, _ := c.samples.first()
	last, _ := c.samples.last()
	blocks := last.number - first.number
	if blocks == 0 || !last.at.After(first.at) {
		return Estimate{Calibrating: true}
	}
	return Estimate{AvgBlockTime: last.at.Sub(first.at) / time.Duration(blocks)}
}

// Reset clears the window, e.g. after the watched network changes.
func (c *Calibrator) Reset() {
	c.mu.Lock()
	c.samples.reset()
	c.mu.Unlock()
}

// sampleRing is a fixed-capacity FIFO over samples; pushing into a full ring
// evicts the oldest element.
type sampleRing struct {
	buf  []sample
	head int
	size int
}

func newSampleRing(capacity int) sampleRing {
	if capacity < 2 {
		capacity = 2
	}
	return sampleRing{buf: make([]sample, capacity)}
}

func (r *sampleRing) push(s sample) {
	idx := (r.head + r.size) % len(r.buf)
	r.buf[idx] = s
	if r.size < len(r.buf) {
		r.size++
		return
	}
	r.head = (r.head + 1) % len(r.buf)
}

func (r *sampleRing) first() (sample, bool) {
	if r.size == 0 {
		return sample{}, false
	}
	return r.buf[r.head], true
}

func (r *sampleRing) last() (sample, bool) {
	if r.size == 0 {
		return sample{}, false
	}
	return r.buf[(r.head+r.size-1)%len(r.buf)], true
}

func (r *sampleRing) len() int {
	return r.size
}

func (r *sampleRing) reset() {
	r.head = 0
	r.size = 0
}
