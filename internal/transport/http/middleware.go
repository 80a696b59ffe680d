package http

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Nohrer/app-microserv-devsecops/internal/auth"
)

// RequestLogger logs basic request details and latency.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// RequireRoles authenticates the bearer credential and, when roles are
// given, requires at least one of them. An absent or invalid credential is
// 401; an authenticated identity failing the role predicate is 403. The
// principal, including the original Authorization header, is placed on the
// request context for handlers and downstream calls.
func RequireRoles(verifier auth.Verifier, logger *zap.Logger, roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := auth.BearerToken(header)
			if !ok {
				WriteError(w, http.StatusUnauthorized, auth.ErrNoCredential.Error())
				return
			}

			claims, err := verifier.Verify(r.Context(), token)
			if err != nil {
				logger.Debug("credential rejected", zap.Error(err))
				WriteError(w, http.StatusUnauthorized, auth.ErrInvalidCredential.Error())
				return
			}

			if len(roles) > 0 && !claims.HasAnyRole(roles...) {
				WriteError(w, http.StatusForbidden, "access denied")
				return
			}

			ctx := auth.WithPrincipal(r.Context(), auth.Principal{Claims: claims, Token: header})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
