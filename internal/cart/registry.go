package cart

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registry hands out the single shared Store of each session so every view
// of the storefront reads and writes the same instance.
type Registry struct {
	kv     KV
	logger *zap.Logger

	mu     sync.Mutex
	stores map[string]*Store
}

// NewRegistry creates a registry backed by kv
func NewRegistry(kv KV, logger *zap.Logger) *Registry {
	return &Registry{
		kv:     kv,
		logger: logger,
		stores: make(map[string]*Store),
	}
}

// Open returns the session's store, hydrating it from kv on first use.
func (r *Registry) Open(ctx context.Context, sessionID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[sessionID]; ok {
		return s
	}
	s := Load(ctx, r.kv, KeyPrefix+sessionID, r.logger)
	r.stores[sessionID] = s
	return s
}

// Sweep drops stores idle for longer than idle, except those of the keep
// sessions. Their contents stay in kv and are hydrated again on the next Open.
func (r *Registry) Sweep(idle time.Duration, keep ...string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := make(map[string]bool, len(keep))
	for _, id := range keep {
		kept[id] = true
	}

	cutoff := time.Now().Add(-idle)
	dropped := 0
	for id, s := range r.stores {
		if !kept[id] && s.idleSince().Before(cutoff) {
			delete(r.stores, id)
			dropped++
		}
	}
	return dropped
}
