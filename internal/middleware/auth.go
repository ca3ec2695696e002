// Package middleware contains HTTP middleware for the fiscaliza service.
//
// Middleware functions follow the standard Go pattern of wrapping
// http.Handler and are composed with Stack.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fiscaliza-obras/fiscaliza/internal/auth"
	"github.com/fiscaliza-obras/fiscaliza/internal/domain"
	"github.com/fiscaliza-obras/fiscaliza/internal/handler"
	"github.com/fiscaliza-obras/fiscaliza/internal/service"
)

// =============================================================================
// Session Cookie
// =============================================================================

const (
	// SessionCookieName is the name of the cookie that stores the session token.
	SessionCookieName = "fiscaliza_session"

	// SessionCookiePath ensures the cookie is sent with all requests.
	SessionCookiePath = "/"

	// SessionCookieMaxAge matches SessionDuration in the user service.
	// 7 days = 604800 seconds
	SessionCookieMaxAge = 7 * 24 * 60 * 60
)

// SetSessionCookie sets the session cookie on the response.
func SetSessionCookie(w http.ResponseWriter, token string, isSecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     SessionCookiePath,
		MaxAge:   SessionCookieMaxAge,
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie removes the session cookie from the client.
func ClearSessionCookie(w http.ResponseWriter, isSecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     SessionCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// =============================================================================
// Context Helpers
// =============================================================================

// GetUser retrieves the authenticated user from the request context.
// Returns nil if no valid session was found.
//
// Thin wrapper around the auth package so existing callers keep working;
// handlers should use auth.GetUser directly.
func GetUser(ctx context.Context) *domain.User {
	return auth.GetUser(ctx)
}

// =============================================================================
// Auth Middleware
// =============================================================================

// AuthMiddleware resolves session tokens to users.
//
// Tokens arrive either as a session cookie (browser clients) or an
// Authorization bearer header (API clients). Both carry the same raw token.
type AuthMiddleware struct {
	userService service.UserService
	logger      *slog.Logger
	isSecure    bool // Secure flag on cookies, true in production
}

// NewAuthMiddleware creates a new AuthMiddleware instance.
func NewAuthMiddleware(userService service.UserService, logger *slog.Logger, isSecure bool) *AuthMiddleware {
	return &AuthMiddleware{
		userService: userService,
		logger:      logger,
		isSecure:    isSecure,
	}
}

// WithUser attempts to load the user for the request's session token and
// stores it in the context. The request continues regardless of whether
// authentication succeeded; use RequireUser to gate access.
func (m *AuthMiddleware) WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, fromCookie := requestToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.userService.GetBySessionToken(r.Context(), token)
		if err != nil {
			// Invalid or expired session. Clear a stale cookie so the
			// client stops sending it.
			if fromCookie {
				ClearSessionCookie(w, m.isSecure)
			}
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.SetUser(r.Context(), user)))
	})
}

// RequireUser rejects unauthenticated requests with 401.
// Must run after WithUser in the middleware chain.
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUser(r.Context()) == nil {
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests from non-admin users with 403.
// Must run after RequireUser in the middleware chain.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUser(r.Context())
		if user == nil {
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}
		if !user.IsAdmin() {
			handler.ForbiddenResponse(w, r, m.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestToken extracts the raw session token from the request. The bool
// reports whether it came from the session cookie.
func requestToken(r *http.Request) (string, bool) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token), false
		}
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value, true
	}
	return "", false
}

// =============================================================================
// Middleware Stack
// =============================================================================

// Stack composes middleware functions into a single middleware. The first
// middleware in the list is the outermost.
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// Compile-time checks
var (
	_ func(http.Handler) http.Handler = (&AuthMiddleware{}).WithUser
	_ func(http.Handler) http.Handler = (&AuthMiddleware{}).RequireUser
	_ func(http.Handler) http.Handler = (&AuthMiddleware{}).RequireAdmin
)
