package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/repairlink/ui-gateway/internal/ports"
)

// AuthHandlers provides the auth endpoints the SPA talks to. Login, logout,
// and register outcomes are normalized by the session store, so every
// response here is a 200 with a success flag and an optional user-facing
// message; transport-level failures never leak raw errors to the SPA.
type AuthHandlers struct {
	Guard  *Guard
	Logger *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	store, ok := StoreFromContext(r.Context())
	if !ok {
		writeNoSession(w)
		return
	}

	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_credentials",
			Err:     errors.New("email and password are required"),
		})
		return
	}

	result := store.Login(r.Context(), req.Email, req.Password)
	if !result.Success {
		WriteJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"message": result.Message,
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    result.User,
	})
}

// Logout handles POST /auth/logout. The session is cleared locally whether or
// not the backend acknowledged, so the response is always a success.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	store, ok := StoreFromContext(r.Context())
	if !ok {
		writeNoSession(w)
		return
	}

	if err := store.Logout(r.Context()); err != nil {
		h.logger().WarnContext(r.Context(), "remote logout failed",
			"session_id", store.ID(), "error", err)
	}
	if h.Guard != nil {
		h.Guard.Forget(store.ID())
	}

	WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Register handles POST /auth/register.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	store, ok := StoreFromContext(r.Context())
	if !ok {
		writeNoSession(w)
		return
	}

	// Registration is forwarded verbatim, so the body is decoded leniently:
	// fields this gateway does not know about still reach the backend.
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var reg ports.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return
	}
	if reg.Email() == "" || reg.Password() == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_credentials",
			Err:     errors.New("email and password are required"),
		})
		return
	}

	result := store.Register(r.Context(), reg)
	if !result.Success {
		WriteJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"message": result.Message,
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    result.Data,
	})
}

// Me handles GET /auth/me: the SPA's view of the current session.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	store, ok := StoreFromContext(r.Context())
	if !ok {
		writeNoSession(w)
		return
	}

	user := store.GetCurrentUser(r.Context())
	if user == nil {
		WriteJSON(w, http.StatusOK, map[string]any{
			"authenticated": false,
			"loading":       store.Loading(),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"loading":       store.Loading(),
		"user":          user,
	})
}

func writeNoSession(w http.ResponseWriter) {
	WriteError(w, ErrorParams{
		Code:    http.StatusInternalServerError,
		ErrCode: "session_unavailable",
		Err:     errors.New("session unavailable"),
	})
}
