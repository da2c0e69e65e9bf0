package checkout

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lumenstudio/fotofacil/internal/cart"
)

// Manager keeps one checkout flow per session on top of the session's
// shared cart.
type Manager struct {
	carts *cart.Registry
	deps  *Deps

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	flows map[string]*Flow
}

// NewManager creates a flow manager
func NewManager(carts *cart.Registry, deps Deps) *Manager {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		carts:  carts,
		deps:   &deps,
		ctx:    ctx,
		cancel: cancel,
		flows:  make(map[string]*Flow),
	}
}

// Cart returns the session's shared cart store.
func (m *Manager) Cart(ctx context.Context, sessionID string) *cart.Store {
	return m.carts.Open(ctx, sessionID)
}

// Flow returns the session's flow. A flow whose payment wait has ended is
// replaced by a fresh one, so the next checkout starts without a coupon.
func (m *Manager) Flow(ctx context.Context, sessionID string) *Flow {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f, ok := m.flows[sessionID]; ok {
		if !f.Finished() {
			return f
		}
		f.Close()
	}

	f := newFlow(m.ctx, m.carts.Open(ctx, sessionID), m.deps)
	m.flows[sessionID] = f
	return f
}

// Current returns the session's flow as is, finished or not, so the
// outcome of the last payment stays readable until the next change.
func (m *Manager) Current(ctx context.Context, sessionID string) *Flow {
	m.mu.Lock()
	f, ok := m.flows[sessionID]
	m.mu.Unlock()
	if ok {
		return f
	}
	return m.Flow(ctx, sessionID)
}

// Leave drops the session's flow and cancels its payment wait.
func (m *Manager) Leave(sessionID string) {
	m.mu.Lock()
	f, ok := m.flows[sessionID]
	delete(m.flows, sessionID)
	m.mu.Unlock()

	if ok {
		f.Close()
		m.deps.Logger.Debug("Checkout flow left", zap.String("session_id", sessionID))
	}
}

// Sweep drops flows idle for longer than idle that are not waiting for a
// payment, then the idle cart stores no remaining flow holds.
func (m *Manager) Sweep(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)

	m.mu.Lock()
	var stale []*Flow
	live := make([]string, 0, len(m.flows))
	for id, f := range m.flows {
		if f.idle(cutoff) {
			stale = append(stale, f)
			delete(m.flows, id)
			continue
		}
		live = append(live, id)
	}
	m.mu.Unlock()

	for _, f := range stale {
		f.Close()
	}
	carts := m.carts.Sweep(idle, live...)
	if len(stale) > 0 || carts > 0 {
		m.deps.Logger.Debug("Swept idle sessions", zap.Int("flows", len(stale)), zap.Int("carts", carts))
	}
	return len(stale)
}

// Shutdown cancels every payment wait and waits for them to stop.
func (m *Manager) Shutdown() {
	m.cancel()

	m.mu.Lock()
	flows := make([]*Flow, 0, len(m.flows))
	for _, f := range m.flows {
		flows = append(flows, f)
	}
	m.flows = make(map[string]*Flow)
	m.mu.Unlock()

	for _, f := range flows {
		f.Close()
	}
	m.deps.Logger.Info("Checkout flows stopped", zap.Int("flows", len(flows)))
}
