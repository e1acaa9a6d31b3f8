package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/repairlink/ui-gateway/internal/domain/auth"
	mocks "github.com/repairlink/ui-gateway/internal/mocks/auth"
	"github.com/repairlink/ui-gateway/internal/ports"
	"github.com/repairlink/ui-gateway/internal/session"
)

func postJSON(store *session.Store, path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(SetStoreInContext(req.Context(), store))
}

func TestAuthHandlers_LoginSuccess(t *testing.T) {
	api := mocks.NewMockAuthAPI()
	store := newGuardStore(t, api)
	handlers := &AuthHandlers{}

	w := httptest.NewRecorder()
	handlers.Login(w, postJSON(store, "/auth/login", `{"email":"a@x.com","password":"secret"}`))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
	// The mock echoes the submitted email back in the session user.
	assert.Contains(t, w.Body.String(), `"email":"a@x.com"`)
	assert.True(t, store.IsAuthenticated())
}

func TestAuthHandlers_LoginFailureCarriesMessage(t *testing.T) {
	api := &mocks.MockAuthAPI{
		LoginFunc: func(context.Context, ports.Credentials) (domainauth.SessionUser, error) {
			return domainauth.SessionUser{}, &ports.APIError{Status: http.StatusUnauthorized}
		},
	}
	store := newGuardStore(t, api)
	handlers := &AuthHandlers{}

	w := httptest.NewRecorder()
	handlers.Login(w, postJSON(store, "/auth/login", `{"email":"a@x.com","password":"bad"}`))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
	assert.Contains(t, w.Body.String(), session.MsgInvalidCredentials)
	assert.False(t, store.IsAuthenticated())
}

func TestAuthHandlers_LoginRejectsMissingFields(t *testing.T) {
	store := newGuardStore(t, mocks.NewMockAuthAPI())
	handlers := &AuthHandlers{}

	for _, body := range []string{`{}`, `{"email":"a@x.com"}`, `{"password":"x"}`, `not json`} {
		w := httptest.NewRecorder()
		handlers.Login(w, postJSON(store, "/auth/login", body))
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
	}
}

func TestAuthHandlers_LogoutClearsSessionEvenOnRemoteFailure(t *testing.T) {
	api := mocks.NewMockAuthAPI()
	store := newGuardStore(t, api)
	require.True(t, store.Login(context.Background(), "a@x.com", "secret").Success)

	api.LogoutFunc = func(context.Context) error {
		return errors.New("backend down")
	}

	guard := NewGuard(nil)
	handlers := &AuthHandlers{Guard: guard}

	w := httptest.NewRecorder()
	handlers.Logout(w, postJSON(store, "/auth/logout", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
	assert.False(t, store.IsAuthenticated())
}

func TestAuthHandlers_RegisterSuccess(t *testing.T) {
	api := &mocks.MockAuthAPI{
		RegisterFunc: func(_ context.Context, reg ports.Registration) (map[string]any, error) {
			return map[string]any{"email": reg.Email()}, nil
		},
	}
	store := newGuardStore(t, api)
	handlers := &AuthHandlers{}

	w := httptest.NewRecorder()
	handlers.Register(w, postJSON(store, "/auth/register",
		`{"email":"new@x.com","password":"secret","name":"New","surname":"User","phoneNumber":"555"}`))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
	assert.Contains(t, w.Body.String(), "new@x.com")
	// Registration never mutates the session.
	assert.False(t, store.IsAuthenticated())
}

func TestAuthHandlers_RegisterForwardsUnknownFields(t *testing.T) {
	var forwarded ports.Registration
	api := &mocks.MockAuthAPI{
		RegisterFunc: func(_ context.Context, reg ports.Registration) (map[string]any, error) {
			forwarded = reg
			return map[string]any{"email": reg.Email()}, nil
		},
	}
	store := newGuardStore(t, api)
	handlers := &AuthHandlers{}

	w := httptest.NewRecorder()
	handlers.Register(w, postJSON(store, "/auth/register",
		`{"email":"new@x.com","password":"secret","companyName":"Fix-It Ltd","vatNumber":"BG123"}`))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
	// Fields the gateway does not model still reach the backend.
	assert.Equal(t, "Fix-It Ltd", forwarded["companyName"])
	assert.Equal(t, "BG123", forwarded["vatNumber"])
}

func TestAuthHandlers_RegisterConflictCarriesBackendMessage(t *testing.T) {
	api := &mocks.MockAuthAPI{
		RegisterFunc: func(context.Context, ports.Registration) (map[string]any, error) {
			return nil, &ports.APIError{Status: http.StatusConflict, Message: "Email already registered"}
		},
	}
	store := newGuardStore(t, api)
	handlers := &AuthHandlers{}

	w := httptest.NewRecorder()
	handlers.Register(w, postJSON(store, "/auth/register",
		`{"email":"dup@x.com","password":"secret"}`))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
	assert.Contains(t, w.Body.String(), "Email already registered")
}

func TestAuthHandlers_MeReflectsSessionState(t *testing.T) {
	api := mocks.NewMockAuthAPI()
	store := newGuardStore(t, api)
	handlers := &AuthHandlers{}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = req.WithContext(SetStoreInContext(req.Context(), store))

	w := httptest.NewRecorder()
	handlers.Me(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":true`)
	assert.Contains(t, w.Body.String(), api.DefaultUser.Email)
}

func TestAuthHandlers_MeUnauthenticated(t *testing.T) {
	api := &mocks.MockAuthAPI{
		MeFunc: func(context.Context) (domainauth.SessionUser, error) {
			return domainauth.SessionUser{}, &ports.APIError{Status: http.StatusUnauthorized}
		},
	}
	store := newGuardStore(t, api)
	handlers := &AuthHandlers{}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = req.WithContext(SetStoreInContext(req.Context(), store))

	w := httptest.NewRecorder()
	handlers.Me(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)
}

func TestAuthHandlers_MissingStoreIs500(t *testing.T) {
	handlers := &AuthHandlers{}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()
	handlers.Me(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "session_unavailable")
}
