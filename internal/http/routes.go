package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/repairlink/ui-gateway/internal/domain/auth"
	"github.com/repairlink/ui-gateway/internal/session"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Manager *session.Manager
	// Backend serves guarded traffic, normally a reverse proxy to the
	// RepairLink backend.
	Backend http.Handler
	Logger  *slog.Logger
}

// NewRouter builds the gateway's handler tree. Guarded route groups:
//
//	/dashboard, /account, /api/   authenticated sessions
//	/vendor/                      ROLE_VENDOR
//	/admin/                       ROLE_ADMIN
//
// Everything else passes through unguarded.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	guard := NewGuard(logger)
	authHandlers := &AuthHandlers{Guard: guard, Logger: logger}
	if services.Manager != nil {
		// Reaped or closed sessions release their navigation state too.
		services.Manager.OnEvict(guard.Forget)
	}

	// Session resolution wraps only the routes that need a store. Health
	// probes and stray paths never mint sessions or touch the backend.
	withSession := WithSession(services.Manager, logger)
	authRoute := func(h http.HandlerFunc) http.Handler { return withSession(h) }

	mux := http.NewServeMux()

	mux.Handle("POST /auth/login", authRoute(authHandlers.Login))
	mux.Handle("POST /auth/logout", authRoute(authHandlers.Logout))
	mux.Handle("POST /auth/register", authRoute(authHandlers.Register))
	mux.Handle("GET /auth/me", authRoute(authHandlers.Me))

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	backend := services.Backend
	if backend == nil {
		backend = http.NotFoundHandler()
	}

	requireAuth := func(h http.Handler) http.Handler { return withSession(guard.RequireAuth(h)) }
	requireVendor := func(h http.Handler) http.Handler { return withSession(guard.RequireRole(domainauth.RoleVendor)(h)) }
	requireAdmin := func(h http.Handler) http.Handler { return withSession(guard.RequireRole(domainauth.RoleAdmin)(h)) }

	mux.Handle("/dashboard", requireAuth(backend))
	mux.Handle("/dashboard/", requireAuth(backend))
	mux.Handle("/account", requireAuth(backend))
	mux.Handle("/account/", requireAuth(backend))
	mux.Handle("/api/", requireAuth(backend))
	mux.Handle("/vendor/", requireVendor(backend))
	mux.Handle("/admin/", requireAdmin(backend))

	return mux
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
