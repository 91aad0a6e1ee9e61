package staleness

import (
	"reflect"
	"sync"
	"time"
	"unsafe"
)

const (
	// DefaultDedupWindow coalesces repeated mutation notifications for the
	// same entity into one staleness window.
	DefaultDedupWindow = time.Second
	// DefaultPollWindow bounds how long an entity may remain awaiting an
	// update before its window is force-expired.
	DefaultPollWindow = 2 * time.Minute
	// DefaultPollInterval is the fixed cadence used while a tracked read is
	// known or presumed stale.
	DefaultPollInterval = 5 * time.Second
)

// Preview describes the expected effect of a recorded mutation, retained for
// optimistic rendering until fresh data arrives. Last writer wins across
// dedup windows; within one window the first writer's preview is kept.
type Preview struct {
	Operation string
	Args      map[string]string
}

type entry struct {
	timestamp time.Time
	preview   *Preview
	snapshots map[string]any
}

// RegistryOption adjusts the behaviour of a Registry.
type RegistryOption func(*registryConfig)

type registryConfig struct {
	dedupWindow  time.Duration
	pollWindow   time.Duration
	pollInterval time.Duration
	notify       func(EntityKey)
	now          func() time.Time
}

// WithDedupWindow overrides the mutation dedup window.
func WithDedupWindow(d time.Duration) RegistryOption {
	return func(cfg *registryConfig) {
		if d > 0 {
			cfg.dedupWindow = d
		}
	}
}

// WithPollWindow overrides the safety ceiling after which a staleness window
// is retired regardless of observed data.
func WithPollWindow(d time.Duration) RegistryOption {
	return func(cfg *registryConfig) {
		if d > 0 {
			cfg.pollWindow = d
		}
	}
}

// WithPollInterval overrides the fixed post-mutation poll interval.
func WithPollInterval(d time.Duration) RegistryOption {
	return func(cfg *registryConfig) {
		if d > 0 {
			cfg.pollInterval = d
		}
	}
}

// WithNotify installs a callback invoked, outside the registry lock, whenever
// a staleness window opens or reopens. Consumers use it to wake parked
// pollers.
func WithNotify(fn func(EntityKey)) RegistryOption {
	return func(cfg *registryConfig) {
		if fn != nil {
			cfg.notify = fn
		}
	}
}

// withClock overrides the clock used for window arithmetic (test only).
func withClock(now func() time.Time) RegistryOption {
	return func(cfg *registryConfig) {
		if now != nil {
			cfg.now = now
		}
	}
}

// Registry tracks, per entity, that a write just happened and which cached
// reads have been observed since. All methods are safe for concurrent use;
// within one entity key, RecordMutation calls are ordered by lock acquisition.
type Registry struct {
	mu           sync.Mutex
	entries      map[EntityKey]*entry
	dedupWindow  time.Duration
	pollWindow   time.Duration
	pollInterval time.Duration
	notify       func(EntityKey)
	now          func() time.Time
	metrics      *registryMetrics
}

// NewRegistry constructs an isolated registry instance.
func NewRegistry(opts ...RegistryOption) *Registry {
	cfg := registryConfig{
		dedupWindow:  DefaultDedupWindow,
		pollWindow:   DefaultPollWindow,
		pollInterval: DefaultPollInterval,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Registry{
		entries:      make(map[EntityKey]*entry),
		dedupWindow:  cfg.dedupWindow,
		pollWindow:   cfg.pollWindow,
		pollInterval: cfg.pollInterval,
		notify:       cfg.notify,
		now:          cfg.now,
		metrics:      sharedMetrics(),
	}
}

// RecordMutation marks the entity as awaiting an update. Repeated calls
// within the dedup window are no-ops: the first writer's timestamp and
// preview win. A call after the window elapses restarts the window and, when
// a preview is present, replaces the stored one.
func (r *Registry) RecordMutation(key EntityKey, preview *Preview) {
	now := r.now()
	r.mu.Lock()
	state, ok := r.entries[key]
	if ok && now.Sub(state.timestamp) < r.dedupWindow {
		r.mu.Unlock()
		r.metrics.recordDeduped(key)
		return
	}
	if !ok {
		state = &entry{snapshots: make(map[string]any)}
		r.entries[key] = state
	}
	state.timestamp = now
	if preview != nil {
		state.preview = preview
	}
	r.mu.Unlock()

	r.metrics.recordOpened(key)
	if r.notify != nil {
		r.notify(key)
	}
}

// Decide reports whether the named query should keep polling for entity key.
// It returns the fixed post-mutation interval while the read is stale or
// unproven, and (0, false) once fresh data was observed, the safety window
// elapsed, or no window exists. A change observed by any one query retires
// the whole entity's window.
func (r *Registry) Decide(key EntityKey, queryName string, data any, dataUpdatedAt time.Time) (time.Duration, bool) {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.entries[key]
	if !ok {
		return 0, false
	}
	if now.Sub(state.timestamp) > r.pollWindow {
		delete(r.entries, key)
		r.metrics.recordRetired(key, "timeout")
		return 0, false
	}
	// The cached read predates the write: known-stale, snapshots untouched.
	if !dataUpdatedAt.After(state.timestamp) {
		return r.pollInterval, true
	}
	snapshot, seen := state.snapshots[queryName]
	if !seen {
		// First fetch after the write may be racing it; treat as still stale.
		state.snapshots[queryName] = data
		return r.pollInterval, true
	}
	if sameReference(snapshot, data) {
		return r.pollInterval, true
	}
	delete(r.entries, key)
	r.metrics.recordRetired(key, "observed")
	return 0, false
}

// Preview returns the stored preview for the entity, if a staleness window is
// open and a preview was recorded.
func (r *Registry) Preview(key EntityKey) (Preview, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.entries[key]
	if !ok || state.preview == nil {
		return Preview{}, false
	}
	return *state.preview, true
}

// Pending reports whether the entity currently has an open staleness window.
func (r *Registry) Pending(key EntityKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[key]
	return ok
}

// sameReference compares two query payloads by identity, not deep equality.
// Reference kinds compare their pointers; comparable scalars fall back to ==.
// The read layer contract is to hand back the same value until it re-fetches
// genuinely new data.
func sameReference(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Type() != rb.Type() {
		return false
	}
	switch ra.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return ra.UnsafePointer() == rb.UnsafePointer()
	}
	if !ra.Type().Comparable() {
		// Non-comparable values are boxed when stored in an interface; the
		// same interface value shares the box, a re-boxed copy does not.
		return boxPointer(a) == boxPointer(b)
	}
	return a == b
}

// boxPointer returns the interface's data word. The pointer-shaped kinds are
// handled before this is reached, so the word always points at the box.
func boxPointer(v any) unsafe.Pointer {
	return (*[2]unsafe.Pointer)(unsafe.Pointer(&v))[1]
}
