// Package handler contains the JSON HTTP handlers for the fiscaliza service.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/fiscaliza-obras/fiscaliza/internal/auth"
	"github.com/fiscaliza-obras/fiscaliza/internal/domain"
	"github.com/fiscaliza-obras/fiscaliza/internal/service"
)

// =============================================================================
// Session Cookie Configuration
// =============================================================================

// Session cookie constants - these match the values in middleware/auth.go
// to ensure consistency. If these change, update both locations.
//
// NOTE: duplicated from middleware/auth.go to avoid an import cycle. The
// middleware package imports handler for error responses, so handler
// cannot import middleware.
const (
	// sessionCookieName is the name of the cookie that stores the session token.
	sessionCookieName = "fiscaliza_session"

	// sessionCookiePath ensures the cookie is sent with all requests.
	sessionCookiePath = "/"

	// sessionCookieMaxAge matches SessionDuration in the user service.
	// 7 days = 604800 seconds
	sessionCookieMaxAge = 7 * 24 * 60 * 60
)

// =============================================================================
// Auth Handler
// =============================================================================

// LoginLimiter records login attempt outcomes for per-IP rate limiting.
// Implemented by middleware.LoginRateLimiter; injected as an interface to
// avoid the handler -> middleware import cycle.
type LoginLimiter interface {
	RecordFailure(ip string)
	Reset(ip string)
}

// AuthHandler handles authentication requests.
//
// Routes handled:
//   - POST /api/login
//   - POST /api/logout
//   - GET  /api/me
type AuthHandler struct {
	userService service.UserService
	limiter     LoginLimiter // may be nil
	logger      *slog.Logger
	isSecure    bool // Secure flag on cookies, true in production
}

// NewAuthHandler creates a new AuthHandler with the required dependencies.
func NewAuthHandler(userService service.UserService, limiter LoginLimiter, logger *slog.Logger, isSecure bool) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		limiter:     limiter,
		logger:      logger,
		isSecure:    isSecure,
	}
}

// RegisterRoutes registers the auth routes with the provided mux.
// Login and logout are public; /api/me requires an authenticated user.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler, limitLogin func(http.Handler) http.Handler) {
	login := http.Handler(http.HandlerFunc(h.Login))
	if limitLogin != nil {
		login = limitLogin(login)
	}
	mux.Handle("POST /api/login", login)
	mux.Handle("POST /api/logout", http.HandlerFunc(h.Logout))
	mux.Handle("GET /api/me", requireUser(http.HandlerFunc(h.Me)))
}

// =============================================================================
// POST /api/login
// =============================================================================

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// Login authenticates a user and establishes a session.
//
// The session token is returned both as an HttpOnly cookie (browser
// clients) and in the response body (API clients using bearer auth).
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.userService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if h.limiter != nil {
			h.limiter.RecordFailure(clientIP(r))
		}
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if h.limiter != nil {
		h.limiter.Reset(clientIP(r))
	}

	setSessionCookie(w, result.Token, h.isSecure)

	h.logger.Info("user logged in", "user_id", result.User.ID, "username", result.User.Username)

	respondJSON(w, h.logger, http.StatusOK, loginResponse{
		User:  result.User,
		Token: result.Token,
	})
}

// =============================================================================
// POST /api/logout
// =============================================================================

// Logout invalidates the current session and clears the cookie.
// Safe to call without a valid session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		if err := h.userService.Logout(r.Context(), token); err != nil {
			h.logger.Warn("logout failed", "error", err)
		}
	}

	clearSessionCookie(w, h.isSecure)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// GET /api/me
// =============================================================================

// Me returns the currently authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, user)
}

// =============================================================================
// Helpers
// =============================================================================

func setSessionCookie(w http.ResponseWriter, token string, isSecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     sessionCookiePath,
		MaxAge:   sessionCookieMaxAge,
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, isSecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     sessionCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionToken extracts the raw session token from the bearer header or
// the session cookie.
func sessionToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); len(header) > 7 && header[:7] == "Bearer " {
		return header[7:]
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
