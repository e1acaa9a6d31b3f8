package devbackend

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/repairlink/ui-gateway/internal/errors"
	httpx "github.com/repairlink/ui-gateway/internal/http"
)

// AccessCookieName carries the short-lived JWT access token.
const AccessCookieName = "rl_access"

const defaultRole = "ROLE_CUSTOMER"

// ServerOptions groups the dependencies for a dev backend server.
type ServerOptions struct {
	Users          UserRepository
	AccessTokens   *JWTManager
	RefreshTokens  *RefreshTokenStore
	AccessTokenTTL time.Duration
	Logger         *slog.Logger
}

// Server implements the auth endpoints the gateway consumes.
type Server struct {
	users     UserRepository
	access    *JWTManager
	refresh   *RefreshTokenStore
	accessTTL time.Duration
	logger    *slog.Logger
}

// NewServer constructs a dev backend server.
func NewServer(opts ServerOptions) (*Server, error) {
	if opts.Users == nil {
		return nil, errors.New("user repository is required")
	}
	if opts.AccessTokens == nil || opts.RefreshTokens == nil {
		return nil, errors.New("token managers are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	accessTTL := opts.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	return &Server{
		users:     opts.Users,
		access:    opts.AccessTokens,
		refresh:   opts.RefreshTokens,
		accessTTL: accessTTL,
		logger:    logger,
	}, nil
}

// Routes returns the dev backend's handler tree.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("GET /auth/me", s.handleMe)
	mux.HandleFunc("POST /auth/refresh", s.handleRefresh)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

type registerRequest struct {
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	Name        string   `json:"name"`
	Surname     string   `json:"surname"`
	PhoneNumber string   `json:"phoneNumber"`
	Roles       []string `json:"roles"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	// The gateway forwards registration payloads verbatim; unrecognized
	// fields are ignored rather than rejected.
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, httpx.ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_json",
			Err:     err,
		})
		return
	}

	email := NormalizeEmail(req.Email)
	if email == "" || strings.TrimSpace(req.Password) == "" {
		httpx.WriteError(w, httpx.ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "validation",
			Err:     errors.New("email and password are required"),
		})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.writeAppError(w, r, apperrors.Internal("hash password"))
		return
	}

	roles := req.Roles
	if len(roles) == 0 {
		roles = []string{defaultRole}
	}

	now := time.Now().UTC()
	user := &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hashed),
		Name:         strings.TrimSpace(req.Name),
		Surname:      strings.TrimSpace(req.Surname),
		PhoneNumber:  strings.TrimSpace(req.PhoneNumber),
		Roles:        roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if createErr := s.users.Create(r.Context(), user); createErr != nil {
		s.writeAppError(w, r, createErr)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, identityBody(user))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}

	user, err := s.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	if user.Locked {
		httpx.WriteError(w, httpx.ErrorParams{
			Code:    http.StatusForbidden,
			ErrCode: "account_locked",
			Err:     errors.New("account is locked"),
		})
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		httpx.WriteError(w, httpx.ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "invalid_credentials",
			Err:     errors.New("invalid credentials"),
		})
		return
	}

	refreshToken, err := s.refresh.Issue(user.ID)
	if err != nil {
		s.writeAppError(w, r, apperrors.Internal("issue refresh token"))
		return
	}
	if !s.setAccessCookie(w, r, user.ID) {
		return
	}

	body := identityBody(user)
	body["refreshToken"] = refreshToken
	httpx.WriteJSON(w, http.StatusOK, body)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(r)
	if !ok {
		httpx.WriteError(w, httpx.ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "invalid_token",
			Err:     errors.New("missing or invalid access token"),
		})
		return
	}

	user, err := s.users.GetByID(r.Context(), userID)
	if err != nil {
		// The account vanished under a live token.
		httpx.WriteError(w, httpx.ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "invalid_token",
			Err:     errors.New("unknown account"),
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, identityBody(user))
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}

	userID, replacement, err := s.refresh.Rotate(req.RefreshToken)
	if err != nil {
		httpx.WriteError(w, httpx.ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "invalid_refresh_token",
			Err:     ErrRefreshTokenInvalid,
		})
		return
	}
	if !s.setAccessCookie(w, r, userID) {
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"refreshToken": replacement})
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	// Body is optional on logout.
	if r.Body != nil && r.ContentLength != 0 {
		if !httpx.DecodeJSON(w, r, &req) {
			return
		}
	}
	if req.RefreshToken != "" {
		s.refresh.Revoke(req.RefreshToken)
	}
	clearAccessCookie(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

// authenticate extracts the user id from the access cookie or a bearer header.
func (s *Server) authenticate(r *http.Request) (uuid.UUID, bool) {
	token := ""
	if cookie, err := r.Cookie(AccessCookieName); err == nil {
		token = cookie.Value
	} else if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		token = strings.TrimPrefix(auth, "Bearer ")
	}
	if token == "" {
		return uuid.Nil, false
	}

	userID, err := s.access.Validate(token)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}

func (s *Server) setAccessCookie(w http.ResponseWriter, r *http.Request, userID uuid.UUID) bool {
	token, err := s.access.Generate(userID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "generate access token failed", "error", err)
		s.writeAppError(w, r, apperrors.Internal("generate access token"))
		return false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     AccessCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.accessTTL.Seconds()),
	})
	return true
}

func clearAccessCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func identityBody(u *User) map[string]any {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return map[string]any{
		"email":       u.Email,
		"name":        u.Name,
		"surname":     u.Surname,
		"phoneNumber": u.PhoneNumber,
		"roles":       roles,
	}
}

// writeAppError maps the errors package taxonomy onto HTTP statuses.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case apperrors.IsNotFound(err):
		httpx.WriteError(w, httpx.ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: err})
	case apperrors.IsConflict(err):
		httpx.WriteError(w, httpx.ErrorParams{Code: http.StatusConflict, ErrCode: "conflict", Err: err})
	case apperrors.IsValidation(err):
		httpx.WriteError(w, httpx.ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation", Err: err})
	default:
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		httpx.WriteError(w, httpx.ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "internal",
			Err:     errors.New("internal error"),
		})
	}
}
