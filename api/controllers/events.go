package controllers

import (
	"net/http"
	"strings"

	"github.com/maribelreyes/omflow-backend/api/responses"
	"github.com/maribelreyes/omflow-backend/api/validators"
	"github.com/maribelreyes/omflow-backend/internal/events"
	"github.com/maribelreyes/omflow-backend/pkg/enums"
	pkgerrors "github.com/maribelreyes/omflow-backend/pkg/errors"
	"github.com/maribelreyes/omflow-backend/pkg/logger"
	"github.com/maribelreyes/omflow-backend/pkg/pagination"
)

type trackEventRequest struct {
	Email    string         `json:"email" validate:"required,email"`
	Type     string         `json:"type" validate:"required"`
	Metadata map[string]any `json:"metadata" validate:"omitempty"`
}

// TrackEvent appends one engagement event to the contact timeline.
func TrackEvent(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "events service unavailable"))
			return
		}

		var body trackEventRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		eventType, err := enums.ParseEventType(body.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown event type"))
			return
		}

		svc.Track(r.Context(), body.Email, eventType, body.Metadata)
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "tracked"})
	}
}

// ListEvents returns a paginated contact event timeline, newest first.
func ListEvents(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "events service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.List(r.Context(), events.ListParams{
			Email:  strings.TrimSpace(r.URL.Query().Get("email")),
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}
