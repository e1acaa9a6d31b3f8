package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mocks "github.com/repairlink/ui-gateway/internal/mocks/auth"
	"github.com/repairlink/ui-gateway/internal/ports"
	"github.com/repairlink/ui-gateway/internal/session"
)

func newTestManager(t *testing.T) *session.Manager {
	t.Helper()
	manager, err := session.NewManager(session.ManagerOptions{
		NewAPI: func(_ string, _ ports.TokenCache) (ports.AuthAPI, error) {
			return mocks.NewMockAuthAPI(), nil
		},
		Snapshots: mocks.NewMemorySnapshotStore(),
		Config:    noThrottle,
	})
	require.NoError(t, err)
	t.Cleanup(manager.Close)
	return manager
}

func TestWithSession_MintsCookieForNewBrowser(t *testing.T) {
	manager := newTestManager(t)

	var captured *session.Store
	handler := WithSession(manager, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = StoreFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.NotNil(t, captured)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, SessionCookieName, cookie.Name)
	assert.True(t, cookie.HttpOnly)
	_, err := uuid.Parse(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, cookie.Value, captured.ID())
}

func TestWithSession_ReusesStoreForSameCookie(t *testing.T) {
	manager := newTestManager(t)

	var stores []*session.Store
	handler := WithSession(manager, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store, _ := StoreFromContext(r.Context())
		stores = append(stores, store)
		w.WriteHeader(http.StatusOK)
	}))

	id := uuid.NewString()
	for range 2 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: id})
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	require.Len(t, stores, 2)
	assert.Same(t, stores[0], stores[1])
	assert.Equal(t, 1, manager.Len())
}

func TestWithSession_ReplacesMalformedCookie(t *testing.T) {
	manager := newTestManager(t)

	handler := WithSession(manager, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "not-a-uuid"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	_, err := uuid.Parse(cookies[0].Value)
	require.NoError(t, err)
}

func TestWithSession_ManagerClosedIs500(t *testing.T) {
	manager := newTestManager(t)
	manager.Close()

	handler := WithSession(manager, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "session_unavailable")
}
