package staleness

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

var (
	metricsOnce   sync.Once
	sharedCounter *registryMetrics
)

type registryMetrics struct {
	opened  metric.Int64Counter
	deduped metric.Int64Counter
	retired metric.Int64Counter
}

func sharedMetrics() *registryMetrics {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("chainwatch/staleness")
		opened, err := meter.Int64Counter("chainwatch.staleness.windows.opened")
		if err != nil {
			meter = noop.NewMeterProvider().Meter("chainwatch/staleness")
			opened, _ = meter.Int64Counter("chainwatch.staleness.windows.opened")
		}
		deduped, _ := meter.Int64Counter("chainwatch.staleness.mutations.deduped")
		retired, _ := meter.Int64Counter("chainwatch.staleness.windows.retired")
		sharedCounter = &registryMetrics{opened: opened, deduped: deduped, retired: retired}
	})
	return sharedCounter
}

func (m *registryMetrics) recordOpened(key EntityKey) {
	if m == nil || m.opened == nil {
		return
	}
	m.opened.Add(context.Background(), 1, metric.WithAttributes(attribute.String("ecosystem", key.Ecosystem)))
}

func (m *registryMetrics) recordDeduped(key EntityKey) {
	if m == nil || m.deduped == nil {
		return
	}
	m.deduped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("ecosystem", key.Ecosystem)))
}

func (m *registryMetrics) recordRetired(key EntityKey, reason string) {
	if m == nil || m.retired == nil {
		return
	}
	m.retired.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("ecosystem", key.Ecosystem),
		attribute.String("reason", reason),
	))
}
