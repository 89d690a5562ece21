package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/prudhvinik1/schoolsync/internal/services"
	"github.com/prudhvinik1/schoolsync/internal/syncclient"
)

type contextKey int

const ctxKeyClaims contextKey = iota

// TokenVerifier validates operator bearer tokens. *services.TokenService
// implements it.
type TokenVerifier interface {
	VerifyToken(token string) (*services.TokenClaims, error)
}

func claimsFromContext(ctx context.Context) *services.TokenClaims {
	c, _ := ctx.Value(ctxKeyClaims).(*services.TokenClaims)
	return c
}

// requireSyncToken guards the peer-to-peer endpoints with the shared secret.
// A server without a configured secret refuses all sync traffic.
func requireSyncToken(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "Sync not configured on this server")
				return
			}
			got := r.Header.Get(syncclient.TokenHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid sync token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireBearer verifies the Authorization header and stores the claims in
// the request context.
func requireBearer(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "missing bearer token")
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireAdmin must run after requireBearer.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r.Context())
		if claims == nil || !claims.IsAdmin() {
			writeError(w, http.StatusForbidden, ErrCodeForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
