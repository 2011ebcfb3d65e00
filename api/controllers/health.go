package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/maribelreyes/omflow-backend/api/responses"
	"github.com/maribelreyes/omflow-backend/pkg/config"
	pkgerrors "github.com/maribelreyes/omflow-backend/pkg/errors"
	"github.com/maribelreyes/omflow-backend/pkg/logger"
)

const readinessTimeout = 3 * time.Second

// pinger is the health surface of a backing dependency.
type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Omflow-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when both the database and Redis answer.
func HealthReady(cfg *config.Config, logg *logger.Logger, database, cache pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		w.Header().Set("X-Omflow-Env", cfg.App.Env)

		checks := map[string]string{}
		healthy := true

		if database == nil {
			checks["database"] = "not configured"
			healthy = false
		} else if err := database.Ping(ctx); err != nil {
			checks["database"] = err.Error()
			healthy = false
		} else {
			checks["database"] = "ok"
		}

		if cache == nil {
			checks["redis"] = "not configured"
			healthy = false
		} else if err := cache.Ping(ctx); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}

		if !healthy {
			err := pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(checks)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
