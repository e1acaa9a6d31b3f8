// Package backend provides the HTTP client for the RepairLink auth API.
// One client is scoped to one browser session: it carries that session's
// cookies and refresh credential, attempts a silent token refresh when a
// request comes back 401, and only surfaces the 401 once refresh is hopeless.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	domainauth "github.com/repairlink/ui-gateway/internal/domain/auth"
	"github.com/repairlink/ui-gateway/internal/ports"
)

const defaultTimeout = 10 * time.Second

// Paths of the consumed auth endpoints.
const (
	pathMe       = "/auth/me"
	pathLogin    = "/auth/login"
	pathLogout   = "/auth/logout"
	pathRegister = "/auth/register"
	pathRefresh  = "/auth/refresh"
)

// ClientOptions groups dependencies for a Client.
type ClientOptions struct {
	// BaseURL is the RepairLink backend base URL (e.g. "http://localhost:9090").
	BaseURL string

	// Tokens caches the long-lived refresh credential. Optional; without it
	// no silent refresh is attempted.
	Tokens ports.TokenCache

	// Timeout bounds each request. Zero selects the default.
	Timeout time.Duration

	// HTTPClient overrides the underlying client (tests). When nil a client
	// with a fresh cookie jar is built so credentials attach automatically.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client implements ports.AuthAPI against the RepairLink backend.
type Client struct {
	baseURL *url.URL
	httpc   *http.Client
	tokens  ports.TokenCache
	logger  *slog.Logger
	refresh singleflight.Group
}

var (
	_ ports.AuthAPI            = (*Client)(nil)
	_ ports.CredentialAttacher = (*Client)(nil)
)

// NewClient constructs a backend client with its own cookie jar.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("backend base URL is required")
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend base URL %q must be absolute", opts.BaseURL)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpc := opts.HTTPClient
	if httpc == nil {
		jar, jarErr := cookiejar.New(nil)
		if jarErr != nil {
			return nil, fmt.Errorf("create cookie jar: %w", jarErr)
		}
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpc = &http.Client{Jar: jar, Timeout: timeout}
	}

	return &Client{
		baseURL: base,
		httpc:   httpc,
		tokens:  opts.Tokens,
		logger:  logger,
	}, nil
}

// Me fetches the authoritative identity for the current session.
func (c *Client) Me(ctx context.Context) (domainauth.SessionUser, error) {
	var user domainauth.SessionUser
	if err := c.call(ctx, http.MethodGet, pathMe, nil, &user); err != nil {
		return domainauth.SessionUser{}, err
	}
	return user, nil
}

type loginResponse struct {
	domainauth.SessionUser
	RefreshToken string `json:"refreshToken"`
}

// Login exchanges credentials for a session. The returned user is taken from
// the response body as-is; the refresh credential, when present, is cached
// for later silent refreshes.
func (c *Client) Login(ctx context.Context, creds ports.Credentials) (domainauth.SessionUser, error) {
	var resp loginResponse
	if err := c.call(ctx, http.MethodPost, pathLogin, creds, &resp); err != nil {
		return domainauth.SessionUser{}, err
	}

	if resp.RefreshToken != "" && c.tokens != nil {
		if err := c.tokens.SaveRefreshToken(ctx, resp.RefreshToken); err != nil {
			c.logger.WarnContext(ctx, "cache refresh token failed", "error", err)
		}
	}
	return resp.SessionUser, nil
}

// AttachCredentials copies the backend cookies this client holds onto an
// outbound request, so proxied traffic carries the same session the client's
// own calls do.
func (c *Client) AttachCredentials(req *http.Request) {
	if c.httpc.Jar == nil {
		return
	}
	for _, cookie := range c.httpc.Jar.Cookies(c.baseURL) {
		req.AddCookie(cookie)
	}
}

// Logout invalidates the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, pathLogout, struct{}{}, nil)
}

// Register creates an account and returns the backend's response body.
func (c *Client) Register(ctx context.Context, reg ports.Registration) (map[string]any, error) {
	var data map[string]any
	if err := c.call(ctx, http.MethodPost, pathRegister, reg, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// call performs one request and, for refreshable endpoints, retries exactly
// once after a successful silent token refresh.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		payload = data
	}

	err := c.doOnce(ctx, method, path, payload, out)
	if err == nil || ports.StatusOf(err) != http.StatusUnauthorized || !refreshable(path) {
		return err
	}

	if refreshErr := c.refreshAccessToken(ctx); refreshErr != nil {
		// Refresh failed; surface the original 401.
		return err
	}
	return c.doOnce(ctx, method, path, payload, out)
}

// refreshable reports whether a 401 on the given path may be recovered by a
// token refresh. Login and refresh 401s are final; logout is best-effort.
func refreshable(path string) bool {
	switch path {
	case pathLogin, pathRefresh, pathLogout:
		return false
	default:
		return true
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	RefreshToken string `json:"refreshToken"`
}

// refreshAccessToken exchanges the cached refresh credential for a new
// access cookie. Concurrent 401s collapse into a single refresh request.
func (c *Client) refreshAccessToken(ctx context.Context) error {
	_, err, _ := c.refresh.Do("refresh", func() (any, error) {
		if c.tokens == nil {
			return nil, ports.ErrNoRefreshToken
		}
		token, err := c.tokens.RefreshToken(ctx)
		if err != nil {
			return nil, err
		}

		payload, err := json.Marshal(refreshRequest{RefreshToken: token})
		if err != nil {
			return nil, fmt.Errorf("marshal refresh request: %w", err)
		}

		var resp refreshResponse
		if doErr := c.doOnce(ctx, http.MethodPost, pathRefresh, payload, &resp); doErr != nil {
			switch ports.StatusOf(doErr) {
			case http.StatusUnauthorized, http.StatusForbidden:
				// The credential is dead; drop it so we stop trying.
				if clearErr := c.tokens.ClearRefreshToken(ctx); clearErr != nil {
					c.logger.WarnContext(ctx, "clear dead refresh token failed", "error", clearErr)
				}
			}
			return nil, doErr
		}

		if resp.RefreshToken != "" {
			if saveErr := c.tokens.SaveRefreshToken(ctx, resp.RefreshToken); saveErr != nil {
				c.logger.WarnContext(ctx, "cache rotated refresh token failed", "error", saveErr)
			}
		}
		return nil, nil
	})
	return err
}

// doOnce performs a single request. Non-2xx responses come back as
// *ports.APIError carrying the status and the backend's message, when the
// body had one; transport failures come back as plain errors.
func (c *Client) doOnce(ctx context.Context, method, path string, payload []byte, out any) error {
	target := c.baseURL.JoinPath(path)

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.WarnContext(ctx, "close response body failed", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ports.APIError{Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// readErrorMessage extracts a human-readable message from an error body.
// Backends emit either {"message": ...} or {"error": ..., "message": ...}.
func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(payload.Error)
}
