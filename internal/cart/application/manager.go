package application

import (
	"context"
	"log/slog"
	"sync"
)

// Manager hands out one Store per cart session, loading each lazily on
// first use.
type Manager struct {
	log  *slog.Logger
	slot Slot

	mu     sync.Mutex
	stores map[string]*Store
}

func NewManager(log *slog.Logger, slot Slot) *Manager {
	return &Manager{log: log, slot: slot, stores: make(map[string]*Store)}
}

func (m *Manager) ForSession(ctx context.Context, sessionID string) (*Store, error) {
	m.mu.Lock()
	store, ok := m.stores[sessionID]
	if !ok {
		store = NewStore(m.log, m.slot, "cart:"+sessionID)
		m.stores[sessionID] = store
	}
	m.mu.Unlock()

	if err := store.Load(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// FlushAll forces every pending debounced mirror write, used on shutdown.
func (m *Manager) FlushAll(ctx context.Context) {
	m.mu.Lock()
	stores := make([]*Store, 0, len(m.stores))
	for _, s := range m.stores {
		stores = append(stores, s)
	}
	m.mu.Unlock()

	for _, s := range stores {
		if err := s.Flush(ctx); err != nil {
			m.log.Error("cart flush failed", "err", err)
		}
	}
}
