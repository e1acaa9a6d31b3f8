// Package session owns the authenticated-user state for one browser
// session: who is logged in, the durable snapshot of that identity, and the
// throttled revalidation loop that keeps it honest against the backend.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	domainauth "github.com/repairlink/ui-gateway/internal/domain/auth"
	"github.com/repairlink/ui-gateway/internal/ports"
)

// User-facing messages for normalized login/register failures.
const (
	MsgInvalidCredentials = "Invalid email or password. Please try again."
	MsgAccountLocked      = "Your account is locked or you do not have permission to sign in."
	MsgAccountNotFound    = "No account found for this email address."
	MsgBackendUnreachable = "Unable to reach the server. Please check your connection and try again."
	MsgGenericFailure     = "Something went wrong. Please try again later."
)

const (
	defaultCheckThrottle   = 5 * time.Second
	defaultRevalidateEvery = 4 * time.Minute
)

// Config holds the tunables for a session store.
type Config struct {
	// CheckThrottle is the minimum interval between remote identity checks.
	// Zero selects the default; negative disables throttling.
	CheckThrottle time.Duration

	// RevalidateEvery is the background revalidation cadence while a user is
	// present. Zero selects the default; negative disables the background
	// timer entirely.
	RevalidateEvery time.Duration
}

// StoreOptions groups dependencies for a Store.
type StoreOptions struct {
	// ID is the opaque session identifier the snapshot is keyed by.
	ID string

	// API is the backend auth client for this session.
	API ports.AuthAPI

	// Snapshots persists the SessionUser mirror. Optional; without it the
	// store is memory-only.
	Snapshots ports.SnapshotStore

	// Tokens is the refresh-credential cache shared with the API client.
	// Optional.
	Tokens ports.TokenCache

	Config Config
	Logger *slog.Logger
}

// Store is the single source of truth for "who is logged in" within one
// browser session. All methods are safe for concurrent use.
type Store struct {
	id      string
	api     ports.AuthAPI
	snaps   ports.SnapshotStore
	tokens  ports.TokenCache
	cfg     Config
	logger  *slog.Logger
	nowFunc func() time.Time

	mu        sync.Mutex
	user      *domainauth.SessionUser
	loading   bool
	checking  bool
	lastCheck time.Time
	// epoch is bumped whenever logout clears the user so that a check that
	// was already in flight cannot re-populate the slot afterward.
	epoch  uint64
	closed bool

	pollCancel context.CancelFunc
}

// NewStore constructs a session store. Call Hydrate to restore a persisted
// snapshot before first use.
func NewStore(opts StoreOptions) (*Store, error) {
	if opts.ID == "" {
		return nil, errors.New("session ID is required")
	}
	if opts.API == nil {
		return nil, errors.New("auth API client is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg := opts.Config
	if cfg.CheckThrottle == 0 {
		cfg.CheckThrottle = defaultCheckThrottle
	}
	if cfg.RevalidateEvery == 0 {
		cfg.RevalidateEvery = defaultRevalidateEvery
	}

	return &Store{
		id:      opts.ID,
		api:     opts.API,
		snaps:   opts.Snapshots,
		tokens:  opts.Tokens,
		cfg:     cfg,
		logger:  logger,
		nowFunc: time.Now,
		loading: true,
	}, nil
}

// ID returns the opaque session identifier.
func (s *Store) ID() string { return s.id }

// API exposes this session's backend client, letting the guarded proxy
// attach the session's upstream credential to forwarded requests.
func (s *Store) API() ports.AuthAPI { return s.api }

// Hydrate restores the user from the persisted snapshot, best-effort. A
// missing or unreadable snapshot leaves the store signed out; it is never
// fatal. Callers should follow up with an asynchronous CheckAuthStatus to
// reconcile with the backend.
func (s *Store) Hydrate(ctx context.Context) {
	if s.snaps == nil {
		return
	}

	user, err := s.snaps.Load(ctx, s.id)
	if err != nil {
		if !errors.Is(err, ports.ErrSnapshotNotFound) {
			s.logger.WarnContext(ctx, "session snapshot unreadable, starting signed out",
				"session_id", s.id, "error", err)
		}
		return
	}

	s.mu.Lock()
	s.setUserLocked(ctx, user, false)
	s.mu.Unlock()
}

// CheckAuthStatus revalidates the session against the backend and reports
// whether a user is authenticated afterward.
//
// At most one check is in flight at a time: a concurrent caller returns
// false immediately without starting a second request, so callers must rely
// on store state rather than the return value. Checks within the throttle
// window skip the network and return the cached answer. An explicit 401/403
// clears the user and snapshot; any other failure retains the last-known-good
// user. The loading flag is cleared when the call resolves unless
// skipLoadingIndicator is set (background polls).
func (s *Store) CheckAuthStatus(ctx context.Context, skipLoadingIndicator bool) bool {
	s.mu.Lock()
	if s.checking || s.closed {
		s.mu.Unlock()
		return false
	}
	if !s.lastCheck.IsZero() && s.cfg.CheckThrottle > 0 && s.nowFunc().Sub(s.lastCheck) < s.cfg.CheckThrottle {
		authenticated := s.user != nil
		if !skipLoadingIndicator {
			s.loading = false
		}
		s.mu.Unlock()
		return authenticated
	}
	s.checking = true
	epoch := s.epoch
	s.mu.Unlock()

	user, err := s.api.Me(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.checking = false
	s.lastCheck = s.nowFunc()
	if !skipLoadingIndicator {
		s.loading = false
	}
	if s.epoch != epoch {
		// A logout completed while this check was in flight; its clear wins.
		return false
	}
	if err != nil {
		switch ports.StatusOf(err) {
		case http.StatusUnauthorized, http.StatusForbidden:
			s.clearUserLocked(ctx)
		default:
			// Transient failure: retain the last-known-good user and let the
			// next poll or navigation retry.
			s.logger.WarnContext(ctx, "session check failed",
				"session_id", s.id, "error", err)
		}
		return false
	}

	s.setUserLocked(ctx, user, true)
	return true
}

// LoginResult is the normalized outcome of a login attempt. Failures carry a
// user-presentable Message instead of an error.
type LoginResult struct {
	Success bool
	User    *domainauth.SessionUser
	Message string
}

// Login exchanges credentials for a session. It never returns an error; all
// failure paths are normalized into a LoginResult message. Login is an
// explicit user action and is not subject to the check throttle.
func (s *Store) Login(ctx context.Context, email, password string) LoginResult {
	user, err := s.api.Login(ctx, ports.Credentials{Email: email, Password: password})
	if err != nil {
		return s.loginFailure(ctx, err)
	}

	s.mu.Lock()
	s.setUserLocked(ctx, user, true)
	s.loading = false
	s.mu.Unlock()

	u := user
	return LoginResult{Success: true, User: &u}
}

func (s *Store) loginFailure(ctx context.Context, err error) LoginResult {
	switch ports.StatusOf(err) {
	case http.StatusUnauthorized:
		// Drop the cached refresh credential so the next request does not
		// attempt a doomed automatic refresh.
		if s.tokens != nil {
			if clearErr := s.tokens.ClearRefreshToken(ctx); clearErr != nil {
				s.logger.WarnContext(ctx, "clear refresh token failed",
					"session_id", s.id, "error", clearErr)
			}
		}
		return LoginResult{Message: MsgInvalidCredentials}
	case http.StatusForbidden:
		return LoginResult{Message: MsgAccountLocked}
	case http.StatusNotFound:
		return LoginResult{Message: MsgAccountNotFound}
	case 0:
		return LoginResult{Message: MsgBackendUnreachable}
	default:
		if msg := ports.MessageOf(err); msg != "" {
			return LoginResult{Message: msg}
		}
		return LoginResult{Message: MsgGenericFailure}
	}
}

// Logout terminates the session. Local state and the persisted snapshot are
// cleared unconditionally; a remote failure is returned to the caller after
// the clear so the session is already gone client-side by the time the error
// surfaces. The in-flight guard is held for the duration to serialize
// against a concurrent background check.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.checking = true
	s.mu.Unlock()

	err := s.api.Logout(ctx)

	s.mu.Lock()
	s.checking = false
	s.epoch++
	s.clearUserLocked(ctx)
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("remote logout: %w", err)
	}
	return nil
}

// RegisterResult is the normalized outcome of a registration attempt.
type RegisterResult struct {
	Success bool
	Data    map[string]any
	Message string
}

// Register passes the registration payload through to the backend. It never
// mutates the session user; registration does not imply login.
func (s *Store) Register(ctx context.Context, reg ports.Registration) RegisterResult {
	data, err := s.api.Register(ctx, reg)
	if err != nil {
		if ports.StatusOf(err) == 0 {
			return RegisterResult{Message: MsgBackendUnreachable}
		}
		if msg := ports.MessageOf(err); msg != "" {
			return RegisterResult{Message: msg}
		}
		return RegisterResult{Message: MsgGenericFailure}
	}
	return RegisterResult{Success: true, Data: data}
}

// User returns a copy of the current session user, or nil when signed out.
func (s *Store) User() *domainauth.SessionUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsAuthenticated reports whether a user is currently present.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil
}

// Loading reports whether the first check has yet to resolve.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// HasRole reports whether the current user carries the named role.
func (s *Store) HasRole(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user.HasRole(name)
}

// GetCurrentUser returns the cached user if present; otherwise it performs
// one CheckAuthStatus and returns whatever that produced.
func (s *Store) GetCurrentUser(ctx context.Context) *domainauth.SessionUser {
	if u := s.User(); u != nil {
		return u
	}
	s.CheckAuthStatus(ctx, false)
	return s.User()
}

// Close tears the store down, stopping the background revalidation timer.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.stopPollLocked()
}

// setUserLocked replaces the session user and mirrors it to the snapshot
// store (write-through) when persist is set. Caller holds s.mu.
func (s *Store) setUserLocked(ctx context.Context, user domainauth.SessionUser, persist bool) {
	u := user
	s.user = &u
	if persist && s.snaps != nil {
		if err := s.snaps.Save(ctx, s.id, u); err != nil {
			s.logger.WarnContext(ctx, "persist session snapshot failed",
				"session_id", s.id, "error", err)
		}
	}
	s.startPollLocked()
}

// clearUserLocked removes the session user and its persisted mirror and
// stops background revalidation. Caller holds s.mu.
func (s *Store) clearUserLocked(ctx context.Context) {
	s.user = nil
	if s.snaps != nil {
		if err := s.snaps.Clear(ctx, s.id); err != nil {
			s.logger.WarnContext(ctx, "clear session snapshot failed",
				"session_id", s.id, "error", err)
		}
	}
	s.stopPollLocked()
}

func (s *Store) startPollLocked() {
	if s.pollCancel != nil || s.closed || s.cfg.RevalidateEvery <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.pollCancel = cancel
	go s.pollLoop(ctx)
}

func (s *Store) stopPollLocked() {
	if s.pollCancel == nil {
		return
	}
	s.pollCancel()
	s.pollCancel = nil
}

// pollLoop revalidates the session in the background while a user is
// present. Polls never touch the loading flag so the UI does not flash a
// spinner for them.
func (s *Store) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RevalidateEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CheckAuthStatus(ctx, true)
		}
	}
}
