package txexec

import "context"

// Thunk is a self-contained write: a no-argument async operation prepared by
// the caller, typically closing over several mutation handles.
type Thunk func(ctx context.Context) (any, error)

// Resetter is the subset of a write mechanism needed for cleanup.
type Resetter interface {
	Reset()
}

// thunkSubmitter adapts a Thunk-shaped write to the Submitter interface and
// fans Reset out to every participating mechanism.
type thunkSubmitter struct {
	resetters []Resetter
}

func (s *thunkSubmitter) Submit(ctx context.Context, args any) (any, error) {
	return args.(Thunk)(ctx)
}

func (s *thunkSubmitter) Reset() {
	for _, r := range s.resetters {
		r.Reset()
	}
}

// MultiExecutor generalises Executor to composite writes: Execute takes an
// arbitrary thunk instead of fixed args plus a mutation handle, and Reset
// clears every independent write mechanism involved. Lifecycle behaviour is
// otherwise identical.
type MultiExecutor struct {
	inner *Executor
}

// NewMultiExecutor builds a multi-mutation executor over the given write
// mechanisms.
func NewMultiExecutor(resetters []Resetter, opts ...ExecutorOption) *MultiExecutor {
	return &MultiExecutor{
		inner: NewExecutor(&thunkSubmitter{resetters: resetters}, opts...),
	}
}

// State returns the current lifecycle snapshot.
func (m *MultiExecutor) State() State { return m.inner.State() }

// Execute runs the thunk, retaining it for Retry.
func (m *MultiExecutor) Execute(ctx context.Context, run Thunk) Step {
	if run == nil {
		return m.inner.State().Step
	}
	return m.inner.Execute(ctx, run)
}

// Retry re-runs the previously executed thunk; no-op if none is stored.
func (m *MultiExecutor) Retry(ctx context.Context) Step { return m.inner.Retry(ctx) }

// Reset returns to the form step and resets all write mechanisms.
func (m *MultiExecutor) Reset() { m.inner.Reset() }
