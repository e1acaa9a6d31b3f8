package auth

// Package auth contains simple hand-written test doubles for session ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"net/http"
	"sync"

	domainauth "github.com/repairlink/ui-gateway/internal/domain/auth"
	"github.com/repairlink/ui-gateway/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AuthAPI            = (*MockAuthAPI)(nil)
	_ ports.CredentialAttacher = (*MockAuthAPI)(nil)
	_ ports.SnapshotStore      = (*MemorySnapshotStore)(nil)
	_ ports.TokenCache         = (*MemoryTokenCache)(nil)
)

// MockAuthAPI simulates the backend auth API. Each method delegates to its
// Func field when set and otherwise succeeds with DefaultUser. Call counts
// are tracked so tests can assert how many network requests were made.
type MockAuthAPI struct {
	MeFunc       func(ctx context.Context) (domainauth.SessionUser, error)
	LoginFunc    func(ctx context.Context, creds ports.Credentials) (domainauth.SessionUser, error)
	LogoutFunc   func(ctx context.Context) error
	RegisterFunc func(ctx context.Context, reg ports.Registration) (map[string]any, error)
	AttachFunc   func(req *http.Request)

	DefaultUser domainauth.SessionUser

	mu            sync.Mutex
	meCalls       int
	loginCalls    int
	logoutCalls   int
	registerCalls int
}

// NewMockAuthAPI creates a MockAuthAPI with a sensible default identity.
func NewMockAuthAPI() *MockAuthAPI {
	return &MockAuthAPI{
		DefaultUser: domainauth.SessionUser{
			Email:       "mock.user@example.com",
			Name:        "Mock",
			Surname:     "User",
			PhoneNumber: "555-0100",
			Roles:       []domainauth.RoleRef{{Authority: domainauth.RoleCustomer}},
		},
	}
}

func (m *MockAuthAPI) Me(ctx context.Context) (domainauth.SessionUser, error) {
	m.mu.Lock()
	m.meCalls++
	m.mu.Unlock()

	if m.MeFunc != nil {
		return m.MeFunc(ctx)
	}
	return m.DefaultUser, nil
}

func (m *MockAuthAPI) Login(ctx context.Context, creds ports.Credentials) (domainauth.SessionUser, error) {
	m.mu.Lock()
	m.loginCalls++
	m.mu.Unlock()

	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, creds)
	}
	user := m.DefaultUser
	user.Email = creds.Email
	return user, nil
}

func (m *MockAuthAPI) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.logoutCalls++
	m.mu.Unlock()

	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx)
	}
	return nil
}

func (m *MockAuthAPI) Register(ctx context.Context, reg ports.Registration) (map[string]any, error) {
	m.mu.Lock()
	m.registerCalls++
	m.mu.Unlock()

	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, reg)
	}
	return map[string]any{"email": reg.Email()}, nil
}

// AttachCredentials delegates to AttachFunc when set and is otherwise a
// no-op.
func (m *MockAuthAPI) AttachCredentials(req *http.Request) {
	if m.AttachFunc != nil {
		m.AttachFunc(req)
	}
}

// MeCalls reports how many identity checks reached the network layer.
func (m *MockAuthAPI) MeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meCalls
}

// LoginCalls reports how many login requests were made.
func (m *MockAuthAPI) LoginCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loginCalls
}

// LogoutCalls reports how many logout requests were made.
func (m *MockAuthAPI) LogoutCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logoutCalls
}

// MemorySnapshotStore is an in-memory SnapshotStore for tests.
type MemorySnapshotStore struct {
	mu    sync.Mutex
	snaps map[string]domainauth.SessionUser
}

// NewMemorySnapshotStore creates an empty in-memory snapshot store.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{snaps: make(map[string]domainauth.SessionUser)}
}

func (m *MemorySnapshotStore) Save(_ context.Context, id string, user domainauth.SessionUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[id] = user
	return nil
}

func (m *MemorySnapshotStore) Load(_ context.Context, id string) (domainauth.SessionUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.snaps[id]
	if !ok {
		return domainauth.SessionUser{}, ports.ErrSnapshotNotFound
	}
	return user, nil
}

func (m *MemorySnapshotStore) Clear(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, id)
	return nil
}

// Has reports whether a snapshot exists for the given ID.
func (m *MemorySnapshotStore) Has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.snaps[id]
	return ok
}

// MemoryTokenCache is an in-memory TokenCache for tests.
type MemoryTokenCache struct {
	mu      sync.Mutex
	token   string
	cleared int
}

func (m *MemoryTokenCache) SaveRefreshToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryTokenCache) RefreshToken(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "", ports.ErrNoRefreshToken
	}
	return m.token, nil
}

func (m *MemoryTokenCache) ClearRefreshToken(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.cleared++
	return nil
}

// ClearCalls reports how many times the refresh credential was cleared.
func (m *MemoryTokenCache) ClearCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cleared
}
