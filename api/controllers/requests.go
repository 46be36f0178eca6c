package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chemtrack/labstock-backend/api/middleware"
	"github.com/chemtrack/labstock-backend/api/responses"
	"github.com/chemtrack/labstock-backend/api/validators"
	"github.com/chemtrack/labstock-backend/internal/requests"
	"github.com/chemtrack/labstock-backend/pkg/enums"
	pkgerrors "github.com/chemtrack/labstock-backend/pkg/errors"
	"github.com/chemtrack/labstock-backend/pkg/logger"
	"github.com/chemtrack/labstock-backend/pkg/pagination"
)

const dateLayout = "2006-01-02"

type requestLinePayload struct {
	ChemicalID string `json:"chemical_id" validate:"required,uuid"`
	Quantity   string `json:"quantity" validate:"required"`
}

type experimentPayload struct {
	ExperimentName string               `json:"experiment_name" validate:"required"`
	Date           string               `json:"date" validate:"required"`
	Session        string               `json:"session" validate:"required"`
	Chemicals      []requestLinePayload `json:"chemicals" validate:"required,min=1,dive"`
}

type createRequestPayload struct {
	LabID       string              `json:"lab_id,omitempty"`
	Experiments []experimentPayload `json:"experiments" validate:"required,min=1,dive"`
}

// CreateRequest opens a pending chemical request covering one or more
// upcoming experiments.
func CreateRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createRequestPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		labID := strings.TrimSpace(payload.LabID)
		if labID == "" {
			labID = middleware.LabIDFromContext(r.Context())
		}

		input := requests.CreateInput{
			LabID:       labID,
			RequesterID: userID,
			Experiments: make([]requests.ExperimentInput, 0, len(payload.Experiments)),
		}
		for _, experiment := range payload.Experiments {
			parsed, err := parseExperimentPayload(experiment)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Experiments = append(input.Experiments, *parsed)
		}

		request, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, request)
	}
}

func parseExperimentPayload(payload experimentPayload) (*requests.ExperimentInput, error) {
	scheduledOn, err := time.Parse(dateLayout, payload.Date)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date").
			WithDetails(map[string]any{"field": "date"})
	}

	session, err := enums.ParseLabSession(payload.Session)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid session")
	}

	input := &requests.ExperimentInput{
		Name:        payload.ExperimentName,
		ScheduledOn: scheduledOn,
		Session:     session,
		Lines:       make([]requests.LineInput, 0, len(payload.Chemicals)),
	}
	for _, line := range payload.Chemicals {
		chemicalID, err := validators.ParsePathUUID(line.ChemicalID, "chemical_id")
		if err != nil {
			return nil, err
		}
		quantity, err := validators.ParseQuantity(line.Quantity, "quantity")
		if err != nil {
			return nil, err
		}
		input.Lines = append(input.Lines, requests.LineInput{ChemicalID: chemicalID, Quantity: quantity})
	}
	return input, nil
}

// GetRequest returns one request with its experiments and their lines.
func GetRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID, err := validators.ParsePathUUID(chi.URLParam(r, "requestId"), "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		request, err := svc.Get(r.Context(), requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

// ListRequests pages through requests filtered by lab and status.
func ListRequests(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := requests.ListFilters{
			LabID:  strings.TrimSpace(r.URL.Query().Get("lab_id")),
			Status: enums.RequestStatus(strings.TrimSpace(r.URL.Query().Get("status"))),
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		list, err := svc.List(r.Context(), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"items":       list.Items,
			"next_cursor": list.NextCursor,
		})
	}
}

type decisionPayload struct {
	Action string  `json:"action" validate:"required,oneof=approve reject"`
	Note   *string `json:"note,omitempty"`
}

// DecideRequest approves or rejects a pending request. Approval kicks
// off allocation for every line, lab stock first.
func DecideRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestID, err := validators.ParsePathUUID(chi.URLParam(r, "requestId"), "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload decisionPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Decide(r.Context(), requests.DecideInput{
			RequestID: requestID,
			Action:    requests.Decision(payload.Action),
			ActorID:   userID,
			ActorRole: role,
			Note:      payload.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CompleteRequest closes out a fulfilled request after the experiment ran.
func CompleteRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestID, err := validators.ParsePathUUID(chi.URLParam(r, "requestId"), "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Complete(r.Context(), requestID, userID, role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

type allocateLinePayload struct {
	Location string `json:"location" validate:"required"`
}

// AllocateRequestLine retries allocation for one line, typically after
// replenishment arrived.
func AllocateRequestLine(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestID, err := validators.ParsePathUUID(chi.URLParam(r, "requestId"), "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineID, err := validators.ParsePathUUID(chi.URLParam(r, "lineId"), "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload allocateLinePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := svc.AllocateLine(r.Context(), requests.AllocateLineInput{
			RequestID: requestID,
			LineID:    lineID,
			Location:  strings.TrimSpace(payload.Location),
			ActorID:   userID,
			ActorRole: role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, outcome)
	}
}
