package http

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type ctxKey string

const userKey ctxKey = "user"

// UserFromContext returns the user authenticated by bearerAuth.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey).(*models.User)
	return u, ok
}

// bearerAuth rejects requests without a valid "Authorization: Bearer" token
// and stores the authenticated user in the request context.
func bearerAuth(auth Authenticator, logger logging.Logger) func(http.Handler) http.Handler {
	h := &Handlers{logger: logger}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := common.BearerToken(r.Header.Get(common.AuthorizationHeaderName))
			if !ok {
				writeError(w, http.StatusUnauthorized, codeTokenInvalid, "missing token")
				return
			}

			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				h.writeServiceError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
		})
	}
}

// requestLogger logs one line per request. Paths are logged without the
// query string; reset tokens travel in the path and are cut off.
func requestLogger(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			args := []any{
				"request_id", chimiddleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", redactPath(r.URL.Path),
				"status_code", status,
				"duration_ms", float64(time.Since(start).Microseconds()) / 1000,
			}

			switch {
			case status >= 500:
				logger.Error(r.Context(), "http request", args...)
			case status >= 400:
				logger.Warn(r.Context(), "http request", args...)
			default:
				logger.Info(r.Context(), "http request", args...)
			}
		})
	}
}

const resetPathPrefix = "/auth/reset-password/"

func redactPath(p string) string {
	if len(p) > len(resetPathPrefix) && p[:len(resetPathPrefix)] == resetPathPrefix {
		return resetPathPrefix + "***"
	}
	return p
}
