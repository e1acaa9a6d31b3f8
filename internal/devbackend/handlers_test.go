package devbackend

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestServer(t *testing.T) (*Server, *MemoryUserRepository) {
	t.Helper()

	repo := NewMemoryUserRepository()
	srv, err := NewServer(ServerOptions{
		Users:          repo,
		AccessTokens:   NewJWTManager("test-secret", 15*time.Minute),
		RefreshTokens:  NewRefreshTokenStore(time.Hour),
		AccessTokenTTL: 15 * time.Minute,
	})
	require.NoError(t, err)
	return srv, repo
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func accessCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == AccessCookieName {
			return c
		}
	}
	return nil
}

func registerAndLogin(t *testing.T, h http.Handler) (*http.Cookie, string) {
	t.Helper()

	rec := doJSON(t, h, http.MethodPost, "/auth/register", map[string]string{
		"email":    "ana@example.com",
		"password": "hunter22",
		"name":     "Ana",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/auth/login", map[string]string{
		"email":    "ana@example.com",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	cookie := accessCookie(rec)
	require.NotNil(t, cookie, "login must set an access cookie")

	body := decodeBody(t, rec)
	refresh, _ := body["refreshToken"].(string)
	require.NotEmpty(t, refresh)
	return cookie, refresh
}

func TestRegister_DefaultsRoleAndReturnsIdentity(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()

	rec := doJSON(t, h, http.MethodPost, "/auth/register", map[string]string{
		"email":       "  New@Example.COM ",
		"password":    "hunter22",
		"name":        "Ana",
		"surname":     "Petrova",
		"phoneNumber": "+359888123456",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "new@example.com", body["email"])
	assert.Equal(t, "Ana", body["name"])
	assert.Equal(t, "Petrova", body["surname"])
	assert.Equal(t, []any{"ROLE_CUSTOMER"}, body["roles"])
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()

	payload := map[string]string{"email": "dup@example.com", "password": "hunter22"}
	rec := doJSON(t, h, http.MethodPost, "/auth/register", payload)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/auth/register", payload)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", decodeBody(t, rec)["error"])
}

func TestRegister_IgnoresUnknownFields(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()

	rec := doJSON(t, h, http.MethodPost, "/auth/register", map[string]string{
		"email":       "extra@example.com",
		"password":    "hunter22",
		"companyName": "Fix-It Ltd",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRegister_MissingFields(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()

	rec := doJSON(t, h, http.MethodPost, "/auth/register", map[string]string{"email": "a@b.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_UnknownEmail(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()

	rec := doJSON(t, h, http.MethodPost, "/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "whatever",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()

	rec := doJSON(t, h, http.MethodPost, "/auth/register", map[string]string{
		"email":    "ana@example.com",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/auth/login", map[string]string{
		"email":    "ana@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", decodeBody(t, rec)["error"])
}

func TestLogin_LockedAccount(t *testing.T) {
	srv, repo := newTestServer(t)
	h := srv.Routes()

	hashed, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, repo.Create(t.Context(), &User{
		ID:           uuid.New(),
		Email:        "locked@example.com",
		PasswordHash: string(hashed),
		Roles:        []string{"ROLE_CUSTOMER"},
		Locked:       true,
	}))

	rec := doJSON(t, h, http.MethodPost, "/auth/login", map[string]string{
		"email":    "locked@example.com",
		"password": "hunter22",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "account_locked", decodeBody(t, rec)["error"])
}

func TestMe_WithAccessCookie(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()
	cookie, _ := registerAndLogin(t, h)

	rec := doJSON(t, h, http.MethodGet, "/auth/me", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "ana@example.com", body["email"])
	assert.Equal(t, "Ana", body["name"])
}

func TestMe_BearerHeader(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()
	cookie, _ := registerAndLogin(t, h)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+cookie.Value)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMe_MissingToken(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()

	rec := doJSON(t, h, http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_token", decodeBody(t, rec)["error"])
}

func TestMe_ExpiredToken(t *testing.T) {
	repo := NewMemoryUserRepository()
	srv, err := NewServer(ServerOptions{
		Users:         repo,
		AccessTokens:  NewJWTManager("test-secret", -time.Minute),
		RefreshTokens: NewRefreshTokenStore(time.Hour),
	})
	require.NoError(t, err)
	h := srv.Routes()
	cookie, _ := registerAndLogin(t, h)

	rec := doJSON(t, h, http.MethodGet, "/auth/me", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefresh_RotatesToken(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()
	_, refresh := registerAndLogin(t, h)

	rec := doJSON(t, h, http.MethodPost, "/auth/refresh", map[string]string{"refreshToken": refresh})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, accessCookie(rec), "refresh must set a fresh access cookie")

	replacement, _ := decodeBody(t, rec)["refreshToken"].(string)
	require.NotEmpty(t, replacement)
	assert.NotEqual(t, refresh, replacement)

	// The consumed token is dead after rotation.
	rec = doJSON(t, h, http.MethodPost, "/auth/refresh", map[string]string{"refreshToken": refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/auth/refresh", map[string]string{"refreshToken": replacement})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRefresh_UnknownToken(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()

	rec := doJSON(t, h, http.MethodPost, "/auth/refresh", map[string]string{"refreshToken": "made-up"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_refresh_token", decodeBody(t, rec)["error"])
}

func TestLogout_RevokesRefreshAndClearsCookie(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()
	_, refresh := registerAndLogin(t, h)

	rec := doJSON(t, h, http.MethodPost, "/auth/logout", map[string]string{"refreshToken": refresh})
	require.Equal(t, http.StatusOK, rec.Code)

	cleared := accessCookie(rec)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)

	rec = doJSON(t, h, http.MethodPost, "/auth/refresh", map[string]string{"refreshToken": refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_EmptyBodyIsFine(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
