// Package query is the engine's read-layer surface: a per-(entity, query)
// result cache whose updates preserve reference identity for unchanged
// payloads, and a poller that drives fetches at the cadence an interval
// function picks.
package query

import (
	"reflect"
	"sync"
	"time"

	"chainwatch/staleness"
)

// Result is one cached read: the decoded payload and the time of the last
// successful fetch.
type Result struct {
	Data      any
	UpdatedAt time.Time
}

type cacheKey struct {
	entity staleness.EntityKey
	query  string
}

// Cache stores the latest result per (entity, query). When a refresh decodes
// a payload deeply equal to the stored one, the previous reference is kept,
// so identity comparison downstream detects genuine change only.
type Cache struct {
	mu      sync.RWMutex
	results map[cacheKey]Result
	now     func() time.Time
}

// NewCache constructs an empty cache.
func NewCache() *Cache {
	return &Cache{
		results: make(map[cacheKey]Result),
		now:     time.Now,
	}
}

// Update stores a freshly fetched payload and returns the resulting entry.
// UpdatedAt advances on every call; Data keeps its previous reference unless
// the payload genuinely changed.
func (c *Cache) Update(entity staleness.EntityKey, query string, data any) Result {
	key := cacheKey{entity: entity, query: query}
	c.mu.Lock()
	defer c.mu.Unlock()
	previous, ok := c.results[key]
	if ok && reflect.DeepEqual(previous.Data, data) {
		data = previous.Data
	}
	result := Result{Data: data, UpdatedAt: c.now()}
	c.results[key] = result
	return result
}

// Get returns the cached result for (entity, query), if any.
func (c *Cache) Get(entity staleness.EntityKey, query string) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result, ok := c.results[cacheKey{entity: entity, query: query}]
	return result, ok
}

// Invalidate drops every cached query of the entity, e.g. when the user
// deselects the contract.
func (c *Cache) Invalidate(entity staleness.EntityKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.results {
		if key.entity == entity {
			delete(c.results, key)
		}
	}
}
