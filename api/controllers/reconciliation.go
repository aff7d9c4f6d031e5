package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dariovega/vidora-backend/api/responses"
	"github.com/dariovega/vidora-backend/api/validators"
	"github.com/dariovega/vidora-backend/internal/identity"
	"github.com/dariovega/vidora-backend/internal/ledger"
	pkgerrors "github.com/dariovega/vidora-backend/pkg/errors"
	"github.com/dariovega/vidora-backend/pkg/logger"
	"github.com/dariovega/vidora-backend/pkg/pagination"
)

// ListUnmatchedEmails pages the parked-event queue for the operator console.
func ListUnmatchedEmails(svc *identity.ReconcileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation service unavailable"))
			return
		}

		input := identity.ListUnmatchedInput{
			Status: strings.TrimSpace(r.URL.Query().Get("status")),
		}
		if limitStr := strings.TrimSpace(r.URL.Query().Get("limit")); limitStr != "" {
			value, err := strconv.Atoi(limitStr)
			if err != nil || value <= 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer"))
				return
			}
			input.Params.Limit = value
		}
		input.Params.Cursor = strings.TrimSpace(r.URL.Query().Get("cursor"))

		entries, next, err := svc.ListUnmatched(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := map[string]any{"items": entries}
		if next != nil {
			payload["next_cursor"] = pagination.EncodeCursor(*next)
		}
		responses.WriteSuccess(w, payload)
	}
}

type resolveUnmatchedRequest struct {
	UserID   string `json:"user_id" validate:"required,uuid4"`
	AddAlias bool   `json:"add_alias"`
}

// ResolveUnmatchedEmail attaches a parked event to a user, optionally
// recording the email as an alias for future automatic resolution.
func ResolveUnmatchedEmail(svc *identity.ReconcileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation service unavailable"))
			return
		}

		entryID, err := uuid.Parse(chi.URLParam(r, "entryId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid entry id"))
			return
		}

		var req resolveUnmatchedRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id"))
			return
		}

		entry, err := svc.Resolve(r.Context(), identity.ResolveInput{
			EntryID:  entryID,
			UserID:   userID,
			AddAlias: req.AddAlias,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

// IgnoreUnmatchedEmail drops a parked event out of the pending queue.
func IgnoreUnmatchedEmail(svc *identity.ReconcileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation service unavailable"))
			return
		}

		entryID, err := uuid.Parse(chi.URLParam(r, "entryId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid entry id"))
			return
		}

		entry, err := svc.Ignore(r.Context(), entryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

// UserCreditTransactions pages a user's credit ledger, newest first.
func UserCreditTransactions(svc *ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		userID, err := uuid.Parse(chi.URLParam(r, "userId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id"))
			return
		}

		params := pagination.Params{
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		if limitStr := strings.TrimSpace(r.URL.Query().Get("limit")); limitStr != "" {
			value, err := strconv.Atoi(limitStr)
			if err != nil || value <= 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer"))
				return
			}
			params.Limit = value
		}

		entries, next, err := svc.ListTransactions(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := map[string]any{"items": entries}
		if next != nil {
			payload["next_cursor"] = pagination.EncodeCursor(*next)
		}
		responses.WriteSuccess(w, payload)
	}
}
