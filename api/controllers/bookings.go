package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/maribelreyes/omflow-backend/api/responses"
	"github.com/maribelreyes/omflow-backend/api/validators"
	"github.com/maribelreyes/omflow-backend/internal/bookings"
	pkgerrors "github.com/maribelreyes/omflow-backend/pkg/errors"
	"github.com/maribelreyes/omflow-backend/pkg/logger"
)

type confirmBookingRequest struct {
	Email         string `json:"email" validate:"required,email"`
	FirstName     string `json:"first_name" validate:"omitempty,max=100"`
	OfferingID    string `json:"offering_id" validate:"required,uuid"`
	FreePassToken string `json:"free_pass_token" validate:"omitempty,max=100"`
}

// ConfirmBooking records a confirmed booking and runs the conversion flow.
func ConfirmBooking(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bookings service unavailable"))
			return
		}

		var body confirmBookingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		offeringID, err := uuid.Parse(body.OfferingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid offering id"))
			return
		}

		result, err := svc.Confirm(r.Context(), bookings.ConfirmParams{
			Email:         body.Email,
			FirstName:     body.FirstName,
			OfferingID:    offeringID,
			FreePassToken: body.FreePassToken,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"booking_id":         result.Booking.ID,
			"nurture_canceled":   result.NurtureCanceled,
			"reminders_queued":   result.RemindersQueued,
			"free_pass_redeemed": result.FreePassRedeemed,
		})
	}
}
