// Package txexec drives one user-initiated write through its lifecycle:
// submission, outcome classification, retry, and the deferred close of the
// hosting surface after success.
package txexec

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"chainwatch/observability"
)

// Step is the lifecycle position of a transaction execution.
type Step string

const (
	StepForm       Step = "form"
	StepPending    Step = "pending"
	StepConfirming Step = "confirming"
	StepSuccess    Step = "success"
	StepError      Step = "error"
	StepCancelled  Step = "cancelled"
)

// DefaultCloseDelay is how long a successful execution lingers before the
// close callback fires.
const DefaultCloseDelay = 1500 * time.Millisecond

// Submitter is the underlying write mechanism: wallet plus chain adapter.
type Submitter interface {
	// Submit performs the write and resolves with its result.
	Submit(ctx context.Context, args any) (any, error)
	// Reset clears the mechanism's own status.
	Reset()
}

// State is a snapshot of an executor. ErrorMessage is set only in StepError;
// a user rejection surfaces as StepCancelled with no message.
type State struct {
	Step         Step
	ErrorMessage string
}

// ExecutorOption adjusts an Executor.
type ExecutorOption func(*executorConfig)

type executorConfig struct {
	closeDelay time.Duration
	onSuccess  func(result any)
	onClose    func()
	confirm    func(ctx context.Context, result any) error
	logger     *slog.Logger
	schedule   func(d time.Duration, fn func()) func()
}

// WithCloseDelay overrides how long success lingers before the close
// callback.
func WithCloseDelay(d time.Duration) ExecutorOption {
	return func(cfg *executorConfig) {
		if d >= 0 {
			cfg.closeDelay = d
		}
	}
}

// WithOnSuccess installs a callback invoked with the write's result as soon
// as it lands.
func WithOnSuccess(fn func(result any)) ExecutorOption {
	return func(cfg *executorConfig) {
		cfg.onSuccess = fn
	}
}

// WithOnClose installs the deferred close callback.
func WithOnClose(fn func()) ExecutorOption {
	return func(cfg *executorConfig) {
		cfg.onClose = fn
	}
}

// WithConfirm installs an optional confirmation phase run between submission
// and success; executions pass through StepConfirming while it runs.
func WithConfirm(fn func(ctx context.Context, result any) error) ExecutorOption {
	return func(cfg *executorConfig) {
		cfg.confirm = fn
	}
}

// WithLogger attaches a logger for lifecycle diagnostics.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(cfg *executorConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// withScheduler overrides deferred-close scheduling (test only).
func withScheduler(fn func(d time.Duration, f func()) func()) ExecutorOption {
	return func(cfg *executorConfig) {
		if fn != nil {
			cfg.schedule = fn
		}
	}
}

// Executor is the state machine for one mutation surface. All side effects
// are local to the executor; no timer survives a Reset.
type Executor struct {
	mu          sync.Mutex
	submitter   Submitter
	step        Step
	errMessage  string
	lastArgs    any
	hasArgs     bool
	closeDelay  time.Duration
	onSuccess   func(result any)
	onClose     func()
	confirm     func(ctx context.Context, result any) error
	logger      *slog.Logger
	schedule    func(d time.Duration, fn func()) func()
	cancelClose func()
	metrics     *observability.EngineMetrics
}

// NewExecutor builds an executor in StepForm.
func NewExecutor(submitter Submitter, opts ...ExecutorOption) *Executor {
	cfg := executorConfig{
		closeDelay: DefaultCloseDelay,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		schedule: func(d time.Duration, fn func()) func() {
			timer := time.AfterFunc(d, fn)
			return func() { timer.Stop() }
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Executor{
		submitter:  submitter,
		step:       StepForm,
		closeDelay: cfg.closeDelay,
		onSuccess:  cfg.onSuccess,
		onClose:    cfg.onClose,
		confirm:    cfg.confirm,
		logger:     cfg.logger,
		schedule:   cfg.schedule,
		metrics:    observability.Engine(),
	}
}

// State returns the current lifecycle snapshot.
func (e *Executor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{Step: e.step, ErrorMessage: e.errMessage}
}

// Execute stores args for retry, moves to StepPending, and performs the
// write. It blocks until the write resolves and returns the terminal step. A
// call while a write is already in flight is a no-op.
func (e *Executor) Execute(ctx context.Context, args any) Step {
	e.mu.Lock()
	if e.step == StepPending || e.step == StepConfirming {
		step := e.step
		e.mu.Unlock()
		return step
	}
	e.lastArgs = args
	e.hasArgs = true
	e.beginLocked()
	e.mu.Unlock()

	return e.run(ctx, args)
}

// Retry re-invokes the write with the previously stored args. It only acts
// from a failed or cancelled attempt; anywhere else it is a no-op.
func (e *Executor) Retry(ctx context.Context) Step {
	e.mu.Lock()
	if !e.hasArgs || (e.step != StepError && e.step != StepCancelled) {
		step := e.step
		e.mu.Unlock()
		return step
	}
	args := e.lastArgs
	e.beginLocked()
	e.mu.Unlock()

	e.metrics.RecordTxOutcome("retried")
	return e.run(ctx, args)
}

// Reset returns to StepForm, clears the error and stored args, cancels any
// outstanding close timer, and tells the write mechanism to clear its own
// status.
func (e *Executor) Reset() {
	e.mu.Lock()
	e.step = StepForm
	e.errMessage = ""
	e.lastArgs = nil
	e.hasArgs = false
	cancel := e.cancelClose
	e.cancelClose = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if e.submitter != nil {
		e.submitter.Reset()
	}
}

// beginLocked moves to StepPending and cancels a pending close. Callers hold
// the lock.
func (e *Executor) beginLocked() {
	e.step = StepPending
	e.errMessage = ""
	if e.cancelClose != nil {
		e.cancelClose()
		e.cancelClose = nil
	}
}

func (e *Executor) run(ctx context.Context, args any) Step {
	runID := uuid.NewString()
	e.logger.Debug("transaction submitted", slog.String("run", runID))

	result, err := e.submitter.Submit(ctx, args)
	if err == nil && e.confirm != nil {
		e.mu.Lock()
		e.step = StepConfirming
		e.mu.Unlock()
		err = e.confirm(ctx, result)
	}
	if err != nil {
		return e.finishFailure(runID, err)
	}
	return e.finishSuccess(runID, result)
}

func (e *Executor) finishSuccess(runID string, result any) Step {
	e.mu.Lock()
	e.step = StepSuccess
	e.errMessage = ""
	e.mu.Unlock()

	e.metrics.RecordTxOutcome("success")
	e.logger.Debug("transaction succeeded", slog.String("run", runID))
	if e.onSuccess != nil {
		e.onSuccess(result)
	}
	if e.onClose != nil {
		cancel := e.schedule(e.closeDelay, func() {
			e.mu.Lock()
			if e.step != StepSuccess {
				e.mu.Unlock()
				return
			}
			e.cancelClose = nil
			e.mu.Unlock()
			e.onClose()
		})
		e.mu.Lock()
		e.cancelClose = cancel
		e.mu.Unlock()
	}
	return StepSuccess
}

func (e *Executor) finishFailure(runID string, err error) Step {
	if IsUserRejection(err) {
		e.mu.Lock()
		e.step = StepCancelled
		e.errMessage = ""
		e.mu.Unlock()
		e.metrics.RecordTxOutcome("cancelled")
		e.logger.Debug("transaction cancelled by user", slog.String("run", runID))
		return StepCancelled
	}
	e.mu.Lock()
	e.step = StepError
	e.errMessage = err.Error()
	e.mu.Unlock()
	e.metrics.RecordTxOutcome("error")
	e.logger.Warn("transaction failed", slog.String("run", runID), slog.Any("error", err))
	return StepError
}
