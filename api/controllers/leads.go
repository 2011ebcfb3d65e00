package controllers

import (
	"net/http"

	"github.com/maribelreyes/omflow-backend/api/responses"
	"github.com/maribelreyes/omflow-backend/api/validators"
	"github.com/maribelreyes/omflow-backend/internal/leads"
	pkgerrors "github.com/maribelreyes/omflow-backend/pkg/errors"
	"github.com/maribelreyes/omflow-backend/pkg/logger"
)

type captureLeadRequest struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"omitempty,max=100"`
	Source    string `json:"source" validate:"omitempty,max=100"`
}

// CaptureLead handles public lead-capture submissions.
func CaptureLead(svc leads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "leads service unavailable"))
			return
		}

		var body captureLeadRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Capture(r.Context(), leads.CaptureParams{
			Email:     body.Email,
			FirstName: body.FirstName,
			Source:    body.Source,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := map[string]any{
			"email":          result.Contact.Email,
			"jobs_scheduled": result.JobsScheduled,
		}
		if result.FreePassToken != "" {
			payload["free_pass_token"] = result.FreePassToken
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payload)
	}
}
