package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// =============================================================================
// Metrics Auth Middleware
// =============================================================================

// MetricsAuthMiddleware protects the metrics endpoint with HTTP basic auth.
type MetricsAuthMiddleware struct {
	username string
	password string
	logger   *slog.Logger
}

// NewMetricsAuthMiddleware creates a new metrics auth middleware.
// If username or password is empty, the endpoint is left unprotected.
func NewMetricsAuthMiddleware(username, password string, logger *slog.Logger) *MetricsAuthMiddleware {
	return &MetricsAuthMiddleware{
		username: username,
		password: password,
		logger:   logger,
	}
}

// Handler wraps the metrics handler with basic auth.
func (m *MetricsAuthMiddleware) Handler(next http.Handler) http.Handler {
	if m.username == "" || m.password == "" {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(username), []byte(m.username)) != 1 ||
			subtle.ConstantTimeCompare([]byte(password), []byte(m.password)) != 1 {
			m.logger.Warn("metrics auth failed", "ip", getClientIP(r))
			w.Header().Set("WWW-Authenticate", `Basic realm="metrics"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
