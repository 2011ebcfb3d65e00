package controllers

import (
	"net/http"
	"strings"

	"github.com/maribelreyes/omflow-backend/api/responses"
	"github.com/maribelreyes/omflow-backend/api/validators"
	"github.com/maribelreyes/omflow-backend/internal/contacts"
	pkgerrors "github.com/maribelreyes/omflow-backend/pkg/errors"
	"github.com/maribelreyes/omflow-backend/pkg/logger"
)

// Unsubscribe is the target of the unsubscribe link in every email footer.
// The email arrives as a query parameter, so this stays a GET.
func Unsubscribe(svc contacts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "contacts service unavailable"))
			return
		}

		email := strings.TrimSpace(r.URL.Query().Get("email"))
		if email == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "email query parameter required"))
			return
		}

		if err := svc.Unsubscribe(r.Context(), email); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "unsubscribed"})
	}
}

type resubscribeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Resubscribe flips a contact back to active. Only an explicit opt-in hits
// this; capture touchpoints never reactivate anyone.
func Resubscribe(svc contacts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "contacts service unavailable"))
			return
		}

		var body resubscribeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Resubscribe(r.Context(), body.Email); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "resubscribed"})
	}
}
