package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/repairlink/ui-gateway/internal/ports"
)

const (
	defaultIdleTimeout    = 30 * time.Minute
	initialCheckTimeout   = 15 * time.Second
	defaultReaperInterval = 5 * time.Minute
)

// ManagerOptions groups dependencies for a Manager.
type ManagerOptions struct {
	// NewTokenCache builds the refresh-credential cache for one session.
	// Optional; when nil, stores run without a token cache.
	NewTokenCache func(id string) ports.TokenCache

	// NewAPI builds a backend client scoped to one session. The token cache
	// passed in is the one the store of that session shares.
	NewAPI func(id string, tokens ports.TokenCache) (ports.AuthAPI, error)

	// Snapshots persists user snapshots for all sessions, keyed by session ID.
	Snapshots ports.SnapshotStore

	// IdleTimeout is how long a session store may go untouched before the
	// reaper closes it. Zero selects the default.
	IdleTimeout time.Duration

	Config Config
	Logger *slog.Logger
}

type managerEntry struct {
	store    *Store
	lastSeen time.Time
}

// Manager is the registry of per-browser-session stores. Each session ID
// maps to exactly one Store for the lifetime of that session; idle stores
// are reaped so repeated visits do not leak revalidation timers.
type Manager struct {
	opts    ManagerOptions
	logger  *slog.Logger
	nowFunc func() time.Time

	mu         sync.Mutex
	entries    map[string]*managerEntry
	evictHooks []func(id string)
	closed     bool
}

// NewManager constructs a session manager.
func NewManager(opts ManagerOptions) (*Manager, error) {
	if opts.NewAPI == nil {
		return nil, errors.New("backend client factory is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = defaultIdleTimeout
	}

	return &Manager{
		opts:    opts,
		logger:  logger,
		nowFunc: time.Now,
		entries: make(map[string]*managerEntry),
	}, nil
}

// Get returns the store for the given session ID, creating and hydrating it
// on first sight. New stores immediately reconcile with the backend in the
// background.
func (m *Manager) Get(ctx context.Context, id string) (*Store, error) {
	if id == "" {
		return nil, errors.New("session ID is required")
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, errors.New("session manager is closed")
	}
	if entry, ok := m.entries[id]; ok {
		entry.lastSeen = m.nowFunc()
		store := entry.store
		m.mu.Unlock()
		return store, nil
	}
	m.mu.Unlock()

	store, err := m.buildStore(ctx, id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		store.Close()
		return nil, errors.New("session manager is closed")
	}
	// Another request may have created the store while we were hydrating.
	if entry, ok := m.entries[id]; ok {
		store.Close()
		entry.lastSeen = m.nowFunc()
		return entry.store, nil
	}
	m.entries[id] = &managerEntry{store: store, lastSeen: m.nowFunc()}
	return store, nil
}

func (m *Manager) buildStore(ctx context.Context, id string) (*Store, error) {
	var tokens ports.TokenCache
	if m.opts.NewTokenCache != nil {
		tokens = m.opts.NewTokenCache(id)
	}

	api, err := m.opts.NewAPI(id, tokens)
	if err != nil {
		return nil, err
	}

	store, err := NewStore(StoreOptions{
		ID:        id,
		API:       api,
		Snapshots: m.opts.Snapshots,
		Tokens:    tokens,
		Config:    m.opts.Config,
		Logger:    m.logger,
	})
	if err != nil {
		return nil, err
	}

	store.Hydrate(ctx)

	// Reconcile with the backend without blocking the request that created
	// the store. The guard will pick up the result on its own check.
	go func() {
		checkCtx, cancel := context.WithTimeout(context.Background(), initialCheckTimeout)
		defer cancel()
		store.CheckAuthStatus(checkCtx, false)
	}()

	return store, nil
}

// OnEvict registers a hook invoked with the session ID whenever a store is
// removed by Reap or Close. Components that track per-session state outside
// the manager use it to release that state with the store.
func (m *Manager) OnEvict(fn func(id string)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictHooks = append(m.evictHooks, fn)
}

func (m *Manager) notifyEvicted(ids []string) {
	m.mu.Lock()
	hooks := m.evictHooks
	m.mu.Unlock()

	for _, id := range ids {
		for _, hook := range hooks {
			hook(id)
		}
	}
}

// Len reports the number of live session stores.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Reap closes and removes stores that have been idle for longer than the
// configured timeout, returning how many were reaped.
func (m *Manager) Reap() int {
	cutoff := m.nowFunc().Add(-m.opts.IdleTimeout)

	m.mu.Lock()
	var victims []*Store
	var victimIDs []string
	for id, entry := range m.entries {
		if entry.lastSeen.Before(cutoff) {
			victims = append(victims, entry.store)
			victimIDs = append(victimIDs, id)
			delete(m.entries, id)
		}
	}
	m.mu.Unlock()

	for _, store := range victims {
		store.Close()
	}
	m.notifyEvicted(victimIDs)
	if len(victims) > 0 {
		m.logger.Info("reaped idle session stores", "count", len(victims))
	}
	return len(victims)
}

// RunReaper periodically reaps idle stores until the context is canceled.
// A non-positive interval selects the default.
func (m *Manager) RunReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultReaperInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Reap()
		}
	}
}

// Close tears down all stores. The manager rejects Get afterward.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	stores := make([]*Store, 0, len(m.entries))
	ids := make([]string, 0, len(m.entries))
	for id, entry := range m.entries {
		stores = append(stores, entry.store)
		ids = append(ids, id)
	}
	m.entries = make(map[string]*managerEntry)
	m.mu.Unlock()

	for _, store := range stores {
		store.Close()
	}
	m.notifyEvicted(ids)
}
