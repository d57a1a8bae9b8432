package middleware

import (
	"crypto/subtle"
	"net/http"

	"go.uber.org/zap"
)

// TokenHeader carries the API token
const TokenHeader = "x-api-token"

// AuthMiddleware validates the API token
type AuthMiddleware struct {
	apiToken string
	logger   *zap.Logger
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(apiToken string, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		apiToken: apiToken,
		logger:   logger,
	}
}

// Middleware validates the x-api-token header
func (m *AuthMiddleware) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(TokenHeader)
		if token == "" {
			m.logger.Warn("Missing API token", zap.String("path", r.URL.Path))
			http.Error(w, "Unauthorized: missing API token", http.StatusUnauthorized)
			return
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(m.apiToken)) != 1 {
			m.logger.Warn("Invalid API token", zap.String("path", r.URL.Path))
			http.Error(w, "Unauthorized: invalid API token", http.StatusUnauthorized)
			return
		}

		next(w, r)
	}
}
