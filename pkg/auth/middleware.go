package auth

import (
	"context"
	"net/http"

	"quietpost/pkg/logger"
	"quietpost/pkg/metrics"
	"quietpost/pkg/token"
	"quietpost/pkg/utils"
)

type ctxClaimsKey struct{}

// RequireSession verifies the session cookie and injects the verified
// claims into the request context. Every failure (missing cookie,
// malformed or forged token) produces the same 401 so callers cannot
// tell the causes apart. The store is never touched on rejection.
func RequireSession(codec *token.Codec, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ck, err := r.Cookie(cookieName)
			if err != nil || ck.Value == "" {
				metrics.AuthFailures.Inc()
				logger.Warn("session_missing", "path", r.URL.Path, "remote", r.RemoteAddr)
				utils.JSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			claims, err := codec.Verify(ck.Value)
			if err != nil {
				metrics.AuthFailures.Inc()
				logger.Warn("session_invalid", "path", r.URL.Path, "remote", r.RemoteAddr)
				utils.JSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			ctx := context.WithValue(r.Context(), ctxClaimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the verified session claims or nil.
func ClaimsFromContext(ctx context.Context) *token.Claims {
	if v := ctx.Value(ctxClaimsKey{}); v != nil {
		if c, ok := v.(*token.Claims); ok {
			return c
		}
	}
	return nil
}
