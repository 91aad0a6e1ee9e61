package query

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"chainwatch/staleness"
)

func cacheEntity() staleness.EntityKey {
	return staleness.NewEntityKey("evm", common.HexToAddress("0x00000000000000000000000000000000000000cc"))
}

type admins struct {
	Members []string
}

func TestCachePreservesReferenceForEqualPayloads(t *testing.T) {
	cache := NewCache()
	entity := cacheEntity()

	first := cache.Update(entity, "roles", &admins{Members: []string{"0xaa"}})
	second := cache.Update(entity, "roles", &admins{Members: []string{"0xaa"}})
	if first.Data != second.Data {
		t.Fatalf("deeply equal payloads must keep the stored reference")
	}
	if !second.UpdatedAt.After(first.UpdatedAt) && second.UpdatedAt != first.UpdatedAt {
		t.Fatalf("UpdatedAt must advance on every refresh")
	}

	third := cache.Update(entity, "roles", &admins{Members: []string{"0xaa", "0xbb"}})
	if third.Data == second.Data {
		t.Fatalf("a changed payload must produce a new reference")
	}
}

func TestCacheInvalidateDropsEntityQueries(t *testing.T) {
	cache := NewCache()
	entity := cacheEntity()
	other := staleness.NewEntityKey("evm", common.HexToAddress("0x01"))

	cache.Update(entity, "roles", 1)
	cache.Update(entity, "delay", 2)
	cache.Update(other, "roles", 3)

	cache.Invalidate(entity)
	if _, ok := cache.Get(entity, "roles"); ok {
		t.Fatalf("expected roles dropped")
	}
	if _, ok := cache.Get(entity, "delay"); ok {
		t.Fatalf("expected delay dropped")
	}
	if _, ok := cache.Get(other, "roles"); !ok {
		t.Fatalf("other entities must be untouched")
	}
}

func TestPollerParksAndWakes(t *testing.T) {
	cache := NewCache()
	entity := cacheEntity()

	var mu sync.Mutex
	fetches := 0
	fetched := make(chan int, 16)
	fetch := func(ctx context.Context) (any, error) {
		mu.Lock()
		fetches++
		n := fetches
		mu.Unlock()
		fetched <- n
		return &admins{Members: []string{"0xaa"}}, nil
	}
	// First verdict parks; after a poke the poller polls once more and parks
	// again.
	interval := func(data any, updatedAt time.Time) (time.Duration, bool) {
		return 0, false
	}

	poller := NewPoller(cache, entity, "roles", fetch, interval)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	waitFetch := func(want int) {
		select {
		case n := <-fetched:
			if n != want {
				t.Fatalf("fetch %d, want %d", n, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for fetch %d", want)
		}
	}

	waitFetch(1)
	poller.Poke()
	waitFetch(2)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("poller did not stop on cancellation")
	}
}

func TestPollerContinuesAtChosenCadence(t *testing.T) {
	cache := NewCache()
	entity := cacheEntity()

	fetched := make(chan struct{}, 16)
	fetch := func(ctx context.Context) (any, error) {
		fetched <- struct{}{}
		return 1, nil
	}
	interval := func(data any, updatedAt time.Time) (time.Duration, bool) {
		return time.Millisecond, true
	}

	poller := NewPoller(cache, entity, "roles", fetch, interval)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Run(ctx)

	for i := 0; i < 3; i++ {
		select {
		case <-fetched:
		case <-time.After(2 * time.Second):
			t.Fatalf("expected continuous polling, stalled at fetch %d", i+1)
		}
	}
}

func TestPollerRetriesAfterFetchError(t *testing.T) {
	cache := NewCache()
	entity := cacheEntity()

	// Seed the cache so the error path consults the interval function.
	cache.Update(entity, "roles", 1)

	calls := make(chan int, 16)
	n := 0
	fetch := func(ctx context.Context) (any, error) {
		n++
		calls <- n
		return nil, errors.New("rpc down")
	}
	interval := func(data any, updatedAt time.Time) (time.Duration, bool) {
		return time.Millisecond, true
	}

	poller := NewPoller(cache, entity, "roles", fetch, interval)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Run(ctx)

	for want := 1; want <= 2; want++ {
		select {
		case <-calls:
		case <-time.After(2 * time.Second):
			t.Fatalf("expected retry after fetch error (attempt %d)", want)
		}
	}
}
