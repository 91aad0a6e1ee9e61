// Package netswitch sequences changes of the active network with the
// readiness of its connection adapter, so in-flight polling and the wallet's
// active chain stay consistent.
package netswitch

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"chainwatch/ledger"
	"chainwatch/observability"
)

// Phase is the reconciler's position in one switch sequence.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseTargetSet Phase = "targetSet"
	PhaseWaiting   Phase = "waitingForAdapter"
	PhaseReady     Phase = "ready"
	PhaseSwitching Phase = "switching"
)

// AdapterLoader is the read layer's hook for bringing up the adapter bound
// to a network.
type AdapterLoader interface {
	Load(networkID uint64)
}

// ReconcilerOption adjusts a Reconciler.
type ReconcilerOption func(*reconcilerConfig)

type reconcilerConfig struct {
	wallet ledger.Wallet
	logger *slog.Logger
}

// WithWallet attaches the connected wallet so completed adapter loads
// trigger an in-place chain switch. Without a wallet the reconciler only
// tracks adapter readiness.
func WithWallet(wallet ledger.Wallet) ReconcilerOption {
	return func(cfg *reconcilerConfig) {
		cfg.wallet = wallet
	}
}

// WithReconcilerLogger attaches a logger for switch diagnostics.
func WithReconcilerLogger(logger *slog.Logger) ReconcilerOption {
	return func(cfg *reconcilerConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// Reconciler tracks one session's pending network target. It never mutates
// the externally-owned selection; it only reacts to it.
type Reconciler struct {
	mu            sync.Mutex
	phase         Phase
	target        uint64
	hasTarget     bool
	adapterReady  bool
	lastSynced    uint64
	hasSynced     bool
	lastRequested uint64
	hasRequested  bool

	loader  AdapterLoader
	wallet  ledger.Wallet
	logger  *slog.Logger
	metrics *observability.EngineMetrics
}

// NewReconciler builds an idle reconciler over the given adapter loader.
func NewReconciler(loader AdapterLoader, opts ...ReconcilerOption) *Reconciler {
	cfg := reconcilerConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Reconciler{
		phase:   PhaseIdle,
		loader:  loader,
		wallet:  cfg.wallet,
		logger:  cfg.logger,
		metrics: observability.Engine(),
	}
}

// Phase returns the current reconciliation phase.
func (r *Reconciler) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// SelectNetwork reacts to an external network-selection change, including
// the very first selection. Selecting the network that was last actually
// synced is a no-op, which suppresses redundant re-syncs from unrelated
// re-initialisation.
func (r *Reconciler) SelectNetwork(ctx context.Context, networkID uint64) {
	r.setTarget(ctx, networkID, false)
}

func (r *Reconciler) setTarget(ctx context.Context, networkID uint64, force bool) {
	r.mu.Lock()
	if !force && r.hasSynced && r.lastSynced == networkID && !r.hasTarget {
		r.mu.Unlock()
		return
	}
	if !force && r.hasTarget && r.target == networkID {
		r.mu.Unlock()
		return
	}
	r.target = networkID
	r.hasTarget = true
	r.adapterReady = false
	r.lastRequested = networkID
	r.hasRequested = true
	r.transitionLocked(PhaseTargetSet)
	r.transitionLocked(PhaseWaiting)
	r.mu.Unlock()

	r.logger.Info("network target set", slog.Uint64("network", networkID))
	if r.loader != nil {
		r.loader.Load(networkID)
	}
}

// AdapterChanged reports the active adapter's bound network and whether it
// is still loading. Readiness requires the bound network to equal the target
// and the adapter to be settled; a ready adapter triggers the wallet switch.
func (r *Reconciler) AdapterChanged(ctx context.Context, networkID uint64, loading bool) {
	r.mu.Lock()
	if !r.hasTarget {
		r.mu.Unlock()
		return
	}
	ready := networkID == r.target && !loading
	r.adapterReady = ready
	if !ready {
		r.mu.Unlock()
		return
	}
	target := r.target
	r.transitionLocked(PhaseReady)
	r.transitionLocked(PhaseSwitching)
	r.mu.Unlock()

	r.completeSwitch(ctx, target)
}

func (r *Reconciler) completeSwitch(ctx context.Context, target uint64) {
	if r.wallet != nil {
		if err := r.wallet.SwitchChain(ctx, target); err != nil {
			r.logger.Warn("wallet chain switch failed",
				slog.Uint64("network", target),
				slog.Any("error", err))
			r.mu.Lock()
			// Stay armed: a later adapter event or wallet reconnect retries.
			r.transitionLocked(PhaseReady)
			r.mu.Unlock()
			return
		}
	}
	r.mu.Lock()
	completed := r.hasTarget && r.target == target
	if completed {
		r.hasTarget = false
		r.adapterReady = false
		r.lastSynced = target
		r.hasSynced = true
		r.transitionLocked(PhaseIdle)
	}
	r.mu.Unlock()
	if completed {
		r.logger.Info("network switch completed", slog.Uint64("network", target))
	}
}

// WalletChainChanged reacts to the wallet reconnecting on a chain of its
// own choosing. Landing somewhere other than the last requested network
// re-queues the original target instead of silently abandoning it.
func (r *Reconciler) WalletChainChanged(ctx context.Context, networkID uint64) {
	r.mu.Lock()
	requeue := r.hasRequested && networkID != r.lastRequested
	target := r.lastRequested
	r.mu.Unlock()
	if !requeue {
		return
	}
	r.logger.Info("wallet reconnected off target, re-queueing switch",
		slog.Uint64("wallet_network", networkID),
		slog.Uint64("target", target))
	r.setTarget(ctx, target, true)
}

// transitionLocked records a phase change. Callers hold the lock.
func (r *Reconciler) transitionLocked(phase Phase) {
	if r.phase == phase {
		return
	}
	r.phase = phase
	r.metrics.RecordSwitch(string(phase))
}
