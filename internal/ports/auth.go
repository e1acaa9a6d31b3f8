package ports

// Package ports defines interfaces (hexagonal ports) for session-related
// behavior. Implementations live in internal/adapters; orchestration in
// internal/session.

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	domainauth "github.com/repairlink/ui-gateway/internal/domain/auth"
)

// Credentials carries a login request.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the payload for creating a new account. It is forwarded
// to the backend verbatim, so fields beyond the core identity set (email,
// password, name, surname, phoneNumber, roles) survive the trip.
type Registration map[string]any

// Email returns the payload's email when present.
func (r Registration) Email() string {
	v, _ := r["email"].(string)
	return v
}

// Password returns the payload's password when present.
func (r Registration) Password() string {
	v, _ := r["password"].(string)
	return v
}

// AuthAPI is the consumed HTTP collaborator for the RepairLink auth
// endpoints. Implementations attach credentials automatically and attempt a
// silent token refresh on a 401 before surfacing it; an ultimately
// unrecoverable 401/403 is returned as an *APIError with Status set.
type AuthAPI interface {
	// Me fetches the authoritative identity for the current session.
	Me(ctx context.Context) (domainauth.SessionUser, error)

	// Login exchanges credentials for an authenticated identity.
	Login(ctx context.Context, creds Credentials) (domainauth.SessionUser, error)

	// Logout invalidates the server-side session.
	Logout(ctx context.Context) error

	// Register creates an account and returns the backend's response body.
	Register(ctx context.Context, reg Registration) (map[string]any, error)
}

// CredentialAttacher is implemented by AuthAPI clients that can copy their
// backend credential onto an outbound request, so proxied traffic reaches
// the upstream authenticated like the client's own calls do.
type CredentialAttacher interface {
	AttachCredentials(req *http.Request)
}

// SnapshotStore persists the denormalized SessionUser snapshot under an
// opaque session ID. A missing or unreadable snapshot is reported via
// ErrSnapshotNotFound; callers treat any load failure as "no session".
type SnapshotStore interface {
	Save(ctx context.Context, id string, user domainauth.SessionUser) error
	Load(ctx context.Context, id string) (domainauth.SessionUser, error)
	Clear(ctx context.Context, id string) error
}

// ErrSnapshotNotFound is returned by SnapshotStore.Load when no snapshot
// exists for the given ID.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// TokenCache owns the long-lived refresh credential. Its lifecycle belongs
// to the HTTP client layer; the session store only clears it after a login
// rejected with 401 to prevent a doomed automatic refresh on the next
// request.
type TokenCache interface {
	SaveRefreshToken(ctx context.Context, token string) error
	RefreshToken(ctx context.Context) (string, error)
	ClearRefreshToken(ctx context.Context) error
}

// ErrNoRefreshToken is returned by TokenCache.RefreshToken when no
// credential is cached.
var ErrNoRefreshToken = errors.New("no refresh token cached")

// APIError is a backend response with a non-2xx status. Message carries the
// backend-provided error text when the body had one.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

// StatusOf extracts the HTTP status from an AuthAPI error. It returns 0 when
// the error did not carry a response (network failure, timeout).
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// MessageOf extracts the backend-provided error message, if any.
func MessageOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}
