package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/repairlink/ui-gateway/internal/session"
)

// Guard enforces authentication on protected route groups. Each navigation to
// a new path triggers one auth check against the session store; repeat
// requests to the same path reuse the store's cached state (the store's own
// throttle bounds revalidation either way). The guard cannot tell a failed
// check from a signed-out session: both fall back to the login redirect.
type Guard struct {
	logger *slog.Logger

	mu sync.Mutex
	// lastPath tracks the most recently verified path per session. A change
	// of path re-triggers verification; returning to an earlier path does
	// too, matching navigation semantics rather than a visited set.
	lastPath map[string]string
}

// NewGuard creates a route guard.
func NewGuard(logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		logger:   logger,
		lastPath: make(map[string]string),
	}
}

// RequireAuth wraps next so only authenticated sessions reach it. Browser
// requests are redirected to the login page with the original location in
// redirect_uri; API requests get a 401 JSON body.
func (g *Guard) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store, ok := StoreFromContext(r.Context())
		if !ok {
			g.reject(w, r, http.StatusUnauthorized)
			return
		}

		if !g.verify(r, store) {
			g.reject(w, r, http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireRole wraps next so only sessions holding the given role reach it.
// Authenticated sessions missing the role are sent to their landing page for
// browser requests (customers and vendors to /dashboard, anyone else to /)
// and get a 403 JSON body for API requests.
func (g *Guard) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store, ok := StoreFromContext(r.Context())
			if !ok {
				g.reject(w, r, http.StatusUnauthorized)
				return
			}

			if !g.verify(r, store) {
				g.reject(w, r, http.StatusUnauthorized)
				return
			}

			if !store.HasRole(role) {
				g.logger.WarnContext(r.Context(), "role denied",
					"session_id", store.ID(), "path", r.URL.Path, "required_role", role)
				g.rejectRole(w, r, store)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Forget drops the guard's navigation state for a session. Called on logout
// so the next navigation re-verifies from scratch.
func (g *Guard) Forget(sessionID string) {
	g.mu.Lock()
	delete(g.lastPath, sessionID)
	g.mu.Unlock()
}

// verify triggers an auth check when the session navigates to a new path and
// reports whether a user is present afterwards. The check's boolean result is
// deliberately ignored: a throttled or in-flight check returns false even for
// a signed-in user, and the store's user state is what the decision is about.
func (g *Guard) verify(r *http.Request, store *session.Store) bool {
	path := r.URL.Path

	g.mu.Lock()
	samePath := g.lastPath[store.ID()] == path
	g.lastPath[store.ID()] = path
	g.mu.Unlock()

	if !samePath {
		store.CheckAuthStatus(r.Context(), false)
	}
	return store.IsAuthenticated()
}

func (g *Guard) reject(w http.ResponseWriter, r *http.Request, code int) {
	if isBrowserRequest(r) {
		redirectToLogin(w, r)
		return
	}
	WriteError(w, ErrorParams{
		Code:    code,
		ErrCode: "authentication_required",
		Err:     errors.New("authentication required"),
	})
}

func (g *Guard) rejectRole(w http.ResponseWriter, r *http.Request, store *session.Store) {
	if isBrowserRequest(r) {
		http.Redirect(w, r, landingPathFor(store), http.StatusSeeOther)
		return
	}
	WriteError(w, ErrorParams{
		Code:    http.StatusForbidden,
		ErrCode: "insufficient_permissions",
		Err:     errors.New("insufficient permissions"),
	})
}

// landingPathFor picks where a session lands after a role denial.
func landingPathFor(store *session.Store) string {
	user := store.User()
	if user == nil {
		return "/"
	}
	if user.IsCustomer() || user.IsVendor() {
		return "/dashboard"
	}
	return "/"
}

// redirectToLogin sends the browser to the login page with the attempted
// location carried in redirect_uri.
func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	redirectPath := safeRedirectPath(r.URL.RequestURI())
	loginURL := "/login?redirect_uri=" + url.QueryEscape(redirectPath)
	http.Redirect(w, r, loginURL, http.StatusSeeOther)
}

// isBrowserRequest splits browser navigations from API calls. API routes are
// always JSON; otherwise the Accept header decides, with no header treated
// as a browser.
func isBrowserRequest(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return false
	}
	accept := r.Header.Get("Accept")
	if accept == "" {
		return true
	}
	return strings.Contains(accept, "text/html")
}

// safeRedirectPath ensures the provided redirect is a same-origin relative
// path starting with "/" and not an absolute URL. Returns "/" when invalid.
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	return candidate
}
