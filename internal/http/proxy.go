package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/repairlink/ui-gateway/internal/ports"
)

// NewBackendProxy returns a reverse proxy to the RepairLink backend for
// guarded traffic. Each forwarded request carries the session's upstream
// credential, and upstream failures surface as a 502 JSON body instead of
// the default bare error.
func NewBackendProxy(target *url.URL, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.ErrorContext(r.Context(), "backend proxy failed",
			"path", r.URL.Path, "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusBadGateway,
			ErrCode: "backend_unavailable",
			Err:     errors.New("backend unavailable"),
		})
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The browser holds only the gateway cookie; the backend session
		// lives in this session's client. Copy it onto the forwarded request.
		if store, ok := StoreFromContext(r.Context()); ok {
			if attacher, ok := store.API().(ports.CredentialAttacher); ok {
				attacher.AttachCredentials(r)
			}
		}
		proxy.ServeHTTP(w, r)
	})
}
