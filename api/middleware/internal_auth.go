package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/maribelreyes/omflow-backend/api/responses"
	"github.com/maribelreyes/omflow-backend/pkg/config"
	pkgerrors "github.com/maribelreyes/omflow-backend/pkg/errors"
	"github.com/maribelreyes/omflow-backend/pkg/logger"
)

// InternalAuth guards the internal automation endpoints with the shared
// bearer token. The external scheduler and the booking service present it on
// every call.
func InternalAuth(cfg config.InternalAuthConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if cfg.Token == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeDependency, "internal auth token not configured"))
				return
			}

			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			if subtle.ConstantTimeCompare([]byte(token), []byte(cfg.Token)) != 1 {
				if logg != nil {
					logg.Warn(ctx, "internal auth rejected")
				}
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid bearer token"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
