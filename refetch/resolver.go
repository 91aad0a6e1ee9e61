// Package refetch picks one polling cadence per read query per fetch cycle,
// composing the post-mutation staleness signal with countdowns to scheduled
// ledger events.
package refetch

import (
	"time"

	"chainwatch/observability"
	"chainwatch/staleness"
)

const (
	// ConfirmInterval applies once a scheduled effect time has passed and the
	// query is waiting for the ledger to confirm it.
	ConfirmInterval = 5 * time.Second
	// NearInterval applies while the effect time is inside NearWindow.
	NearInterval = 15 * time.Second
	// FarInterval applies while the effect time is further out.
	FarInterval = 60 * time.Second
	// NearWindow separates near-term from far-term countdown polling.
	NearWindow = 2 * time.Minute
)

// Layer inspects query data and reports the wall-clock time a scheduled
// effect lands, or ok=false when the layer does not apply. Layers are
// evaluated in registration order and the first applicable one wins.
type Layer func(data any) (effectAt time.Time, ok bool)

// ResolverOption adjusts a Resolver.
type ResolverOption func(*resolverConfig)

type resolverConfig struct {
	layers []Layer
	now    func() time.Time
}

// WithLayers sets the ordered countdown layers.
func WithLayers(layers ...Layer) ResolverOption {
	return func(cfg *resolverConfig) {
		cfg.layers = layers
	}
}

// withResolverClock overrides the clock (test only).
func withResolverClock(now func() time.Time) ResolverOption {
	return func(cfg *resolverConfig) {
		if now != nil {
			cfg.now = now
		}
	}
}

// Resolver layers the post-mutation poll decision over data-driven countdown
// polling. ComputeInterval never returns an error and never blocks.
type Resolver struct {
	registry *staleness.Registry
	layers   []Layer
	now      func() time.Time
	metrics  *observability.EngineMetrics
}

// NewResolver builds a resolver over the given registry. A nil registry
// disables the post-mutation layer.
func NewResolver(registry *staleness.Registry, opts ...ResolverOption) *Resolver {
	cfg := resolverConfig{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Resolver{
		registry: registry,
		layers:   cfg.layers,
		now:      cfg.now,
		metrics:  observability.Engine(),
	}
}

// ComputeInterval returns the next poll delay for one query, or ok=false when
// no polling is needed. The post-mutation signal overrides everything; the
// countdown layers follow in order; silence means stop.
func (r *Resolver) ComputeInterval(key staleness.EntityKey, queryName string, data any, dataUpdatedAt time.Time) (time.Duration, bool) {
	if r.registry != nil {
		if interval, ok := r.registry.Decide(key, queryName, data, dataUpdatedAt); ok {
			r.metrics.RecordPollDecision("poll")
			return interval, true
		}
	}
	now := r.now()
	for _, layer := range r.layers {
		effectAt, ok := layer(data)
		if !ok {
			continue
		}
		r.metrics.RecordPollDecision("poll")
		return countdownInterval(now, effectAt), true
	}
	r.metrics.RecordPollDecision("stop")
	return 0, false
}

func countdownInterval(now, effectAt time.Time) time.Duration {
	remaining := effectAt.Sub(now)
	switch {
	case remaining <= 0:
		return ConfirmInterval
	case remaining <= NearWindow:
		return NearInterval
	default:
		return FarInterval
	}
}
