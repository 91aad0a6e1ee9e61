package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics aggregates the counters describing the reconciliation
// engine's activity: poll decisions, transaction lifecycles, network
// switches, and block-time calibration.
type EngineMetrics struct {
	pollDecisions    *prometheus.CounterVec
	txOutcomes       *prometheus.CounterVec
	networkSwitches  *prometheus.CounterVec
	blockTimeSamples prometheus.Counter
}

var (
	engineMetricsOnce sync.Once
	engineRegistry    *EngineMetrics
)

// Engine returns the lazily-initialised engine metrics registry. Metrics are
// registered against the default Prometheus registerer exactly once.
func Engine() *EngineMetrics {
	engineMetricsOnce.Do(func() {
		engineRegistry = &EngineMetrics{
			pollDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "chainwatch",
				Subsystem: "refetch",
				Name:      "poll_decisions_total",
				Help:      "Refetch-interval decisions, segmented by verdict.",
			}, []string{"verdict"}),
			txOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "chainwatch",
				Subsystem: "txexec",
				Name:      "outcomes_total",
				Help:      "Transaction execution outcomes.",
			}, []string{"outcome"}),
			networkSwitches: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "chainwatch",
				Subsystem: "netswitch",
				Name:      "transitions_total",
				Help:      "Network reconciler transitions, segmented by phase.",
			}, []string{"phase"}),
			blockTimeSamples: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "chainwatch",
				Subsystem: "blocktime",
				Name:      "samples_total",
				Help:      "Block production samples fed to the calibrator.",
			}),
		}
		prometheus.MustRegister(
			engineRegistry.pollDecisions,
			engineRegistry.txOutcomes,
			engineRegistry.networkSwitches,
			engineRegistry.blockTimeSamples,
		)
	})
	return engineRegistry
}

// RecordPollDecision counts one refetch-interval verdict ("poll" or "stop").
func (m *EngineMetrics) RecordPollDecision(verdict string) {
	if m == nil {
		return
	}
	m.pollDecisions.WithLabelValues(verdict).Inc()
}

// RecordTxOutcome counts a transaction lifecycle outcome.
func (m *EngineMetrics) RecordTxOutcome(outcome string) {
	if m == nil {
		return
	}
	m.txOutcomes.WithLabelValues(outcome).Inc()
}

// RecordSwitch counts a reconciler phase transition.
func (m *EngineMetrics) RecordSwitch(phase string) {
	if m == nil {
		return
	}
	m.networkSwitches.WithLabelValues(phase).Inc()
}

// RecordBlockTimeSample counts one calibrator sample.
func (m *EngineMetrics) RecordBlockTimeSample() {
	if m == nil {
		return
	}
	m.blockTimeSamples.Inc()
}
