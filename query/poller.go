package query

import (
	"context"
	"io"
	"log/slog"
	"time"

	"chainwatch/staleness"
)

// FetchFunc performs one read of the underlying source.
type FetchFunc func(ctx context.Context) (any, error)

// IntervalFunc picks the delay before the next fetch, or ok=false to park
// the poller. The refetch resolver's ComputeInterval, closed over the entity
// and query name, is the intended implementation.
type IntervalFunc func(data any, updatedAt time.Time) (time.Duration, bool)

const errRetryInterval = 5 * time.Second

// PollerOption adjusts a Poller.
type PollerOption func(*pollerConfig)

type pollerConfig struct {
	logger *slog.Logger
}

// WithPollerLogger attaches a logger for fetch diagnostics.
func WithPollerLogger(logger *slog.Logger) PollerOption {
	return func(cfg *pollerConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// Poller drives one query's fetch cycle. After every fetch it consults the
// interval function; a park verdict suspends polling until Poke or context
// cancellation. Stopping the poller is the caller's resource-hygiene duty:
// cancel the context when the query is no longer observed.
type Poller struct {
	cache    *Cache
	entity   staleness.EntityKey
	query    string
	fetch    FetchFunc
	interval IntervalFunc
	logger   *slog.Logger
	wake     chan struct{}
}

// NewPoller binds a fetch function to one (entity, query) slot of the cache.
func NewPoller(cache *Cache, entity staleness.EntityKey, queryName string, fetch FetchFunc, interval IntervalFunc, opts ...PollerOption) *Poller {
	cfg := pollerConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Poller{
		cache:    cache,
		entity:   entity,
		query:    queryName,
		fetch:    fetch,
		interval: interval,
		logger: cfg.logger.With(
			slog.String("entity", entity.String()),
			slog.String("query", queryName),
		),
		wake: make(chan struct{}, 1),
	}
}

// Poke wakes a parked poller (or cuts the current delay short), typically
// after a mutation opened a staleness window for this entity.
func (p *Poller) Poke() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Run fetches until the context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	for {
		delay, active := p.cycle(ctx)
		if ctx.Err() != nil {
			return
		}
		if !active {
			select {
			case <-ctx.Done():
				return
			case <-p.wake:
			}
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-p.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// cycle runs one fetch and returns the chosen delay, or active=false to
// park.
func (p *Poller) cycle(ctx context.Context) (time.Duration, bool) {
	data, err := p.fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return 0, false
		}
		p.logger.Warn("fetch failed", slog.Any("error", err))
		if result, ok := p.cache.Get(p.entity, p.query); ok {
			if delay, active := p.interval(result.Data, result.UpdatedAt); active {
				return delay, true
			}
			return 0, false
		}
		return errRetryInterval, true
	}
	result := p.cache.Update(p.entity, p.query, data)
	return p.interval(result.Data, result.UpdatedAt)
}
