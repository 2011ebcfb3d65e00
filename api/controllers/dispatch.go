package controllers

import (
	"context"
	"net/http"

	"github.com/maribelreyes/omflow-backend/api/responses"
	pkgerrors "github.com/maribelreyes/omflow-backend/pkg/errors"
	"github.com/maribelreyes/omflow-backend/pkg/logger"
)

// DispatchRunner runs one send cycle over the due jobs.
type DispatchRunner interface {
	RunCycle(ctx context.Context) (int, error)
}

// RunDispatch triggers a dispatch cycle on demand. The external scheduler
// hits this on its cadence; the automation worker runs the same cycle
// internally.
func RunDispatch(runner DispatchRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runner == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispatcher unavailable"))
			return
		}

		processed, err := runner.RunCycle(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"success":   true,
			"processed": processed,
		})
	}
}
