package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/maribelreyes/omflow-backend/api/responses"
	"github.com/maribelreyes/omflow-backend/api/validators"
	"github.com/maribelreyes/omflow-backend/internal/offerings"
	pkgerrors "github.com/maribelreyes/omflow-backend/pkg/errors"
	"github.com/maribelreyes/omflow-backend/pkg/logger"
)

type createOfferingRequest struct {
	Title          string `json:"title" validate:"required,max=200"`
	InstructorName string `json:"instructor_name" validate:"required,max=100"`
	StartsAt       string `json:"starts_at" validate:"required"`
}

// CreateOffering publishes a class slot. The rebook nudge generator picks it
// up on its next pass.
func CreateOffering(svc offerings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "offerings service unavailable"))
			return
		}

		var body createOfferingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		startsAt, err := time.Parse(time.RFC3339, body.StartsAt)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "starts_at must be RFC 3339"))
			return
		}

		offering, err := svc.Create(r.Context(), offerings.CreateParams{
			Title:          body.Title,
			InstructorName: body.InstructorName,
			StartsAt:       startsAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, offering)
	}
}

// GetOffering returns one offering by id.
func GetOffering(svc offerings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "offerings service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "offeringId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid offering id"))
			return
		}

		offering, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, offering)
	}
}
