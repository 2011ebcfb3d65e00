package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/maribelreyes/omflow-backend/api/responses"
	"github.com/maribelreyes/omflow-backend/api/validators"
	"github.com/maribelreyes/omflow-backend/internal/jobs"
	"github.com/maribelreyes/omflow-backend/pkg/enums"
	pkgerrors "github.com/maribelreyes/omflow-backend/pkg/errors"
	"github.com/maribelreyes/omflow-backend/pkg/logger"
	"github.com/maribelreyes/omflow-backend/pkg/pagination"
)

type enqueueJobRequest struct {
	Email        string         `json:"email" validate:"required,email"`
	Type         string         `json:"type" validate:"required"`
	ScheduledFor string         `json:"scheduled_for" validate:"required"`
	Payload      map[string]any `json:"payload" validate:"omitempty"`
	OfferingID   string         `json:"offering_id" validate:"omitempty,uuid"`
}

// EnqueueJob schedules a lifecycle email. A throttled contact yields a 200
// with scheduled=false rather than an error: skipping is expected behavior.
func EnqueueJob(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "jobs service unavailable"))
			return
		}

		var body enqueueJobRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		jobType, err := enums.ParseJobType(body.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown job type"))
			return
		}

		scheduledFor, err := time.Parse(time.RFC3339, body.ScheduledFor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "scheduled_for must be RFC 3339"))
			return
		}

		params := jobs.EnqueueParams{
			Email:        body.Email,
			Type:         jobType,
			ScheduledFor: scheduledFor,
			Payload:      body.Payload,
		}
		if body.OfferingID != "" {
			offeringID, err := uuid.Parse(body.OfferingID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid offering id"))
				return
			}
			params.OfferingID = &offeringID
		}

		job, err := svc.Enqueue(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if job == nil {
			responses.WriteSuccess(w, map[string]any{"scheduled": false})
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"scheduled": true,
			"job":       job,
		})
	}
}

type cancelJobsRequest struct {
	Email  string   `json:"email" validate:"required,email"`
	Types  []string `json:"types" validate:"required,min=1"`
	Reason string   `json:"reason" validate:"required,max=200"`
}

// CancelJobs retracts all pending jobs of the given types for a contact.
func CancelJobs(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "jobs service unavailable"))
			return
		}

		var body cancelJobsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		types := make([]enums.JobType, 0, len(body.Types))
		for _, raw := range body.Types {
			jobType, err := enums.ParseJobType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown job type"))
				return
			}
			types = append(types, jobType)
		}

		canceled, err := svc.CancelByTypes(r.Context(), body.Email, types, body.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"canceled": canceled})
	}
}

// ListJobs returns a paginated job listing, optionally filtered by contact.
func ListJobs(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "jobs service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.List(r.Context(), jobs.ListParams{
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
