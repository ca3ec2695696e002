package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fiscaliza-obras/fiscaliza/internal/domain"
)

// maxJSONBodySize caps request bodies. Photos arrive as base64 data URIs,
// so the limit is generous.
const maxJSONBodySize = 25 << 20 // 25 MB

// respondJSON writes v as a JSON response with the given status.
func respondJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// decodeJSON decodes the request body into v, rejecting unknown fields
// and oversized payloads.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxJSONBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.Invalid("handler.decode", "Corpo da requisição inválido.")
	}
	return nil
}

// clientIP extracts the client IP from proxy headers or the remote address.
//
// NOTE: duplicated from middleware to avoid an import cycle; the middleware
// package imports handler for error responses.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip, _, found := strings.Cut(xff, ","); found || ip != "" {
			return strings.TrimSpace(ip)
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if idx := strings.LastIndex(r.RemoteAddr, ":"); idx > 0 {
		return r.RemoteAddr[:idx]
	}
	return r.RemoteAddr
}
