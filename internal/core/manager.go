package core

import (
	"context"
	"sync"
)

// EngineManager hands out one CollectionEngine per collection name. Each
// engine exclusively owns its collection's cache; switching collections
// means switching engines, never merging caches.
type EngineManager struct {
	deps EngineDeps

	mu      sync.Mutex
	engines map[string]*CollectionEngine
}

// NewEngineManager creates a manager that builds engines from deps.
func NewEngineManager(deps EngineDeps) *EngineManager {
	return &EngineManager{deps: deps, engines: make(map[string]*CollectionEngine)}
}

// Engine returns the engine bound to a collection, constructing it and
// priming its cache on first use. A failed initial fetch is not cached so
// the next request retries from scratch.
func (m *EngineManager) Engine(ctx context.Context, collection string) (*CollectionEngine, error) {
	m.mu.Lock()
	engine, ok := m.engines[collection]
	m.mu.Unlock()
	if ok {
		return engine, nil
	}

	engine = NewCollectionEngine(ctx, collection, m.deps)
	if err := engine.Refresh(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.engines[collection]; ok {
		// Another request won the race; its engine owns the cache.
		return existing, nil
	}
	m.engines[collection] = engine
	return engine, nil
}

// Drop discards a collection's engine and cache entirely.
func (m *EngineManager) Drop(collection string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.engines, collection)
}
