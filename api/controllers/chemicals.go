package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/chemtrack/labstock-backend/api/responses"
	"github.com/chemtrack/labstock-backend/api/validators"
	"github.com/chemtrack/labstock-backend/internal/catalog"
	"github.com/chemtrack/labstock-backend/pkg/enums"
	pkgerrors "github.com/chemtrack/labstock-backend/pkg/errors"
	"github.com/chemtrack/labstock-backend/pkg/logger"
)

// GetChemical returns one catalog entry.
func GetChemical(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chemicalID, err := validators.ParsePathUUID(chi.URLParam(r, "chemicalId"), "chemicalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		chemical, err := svc.Get(r.Context(), chemicalID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, chemical)
	}
}

// ListChemicals returns catalog entries, optionally filtered by category.
func ListChemicals(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := strings.TrimSpace(r.URL.Query().Get("category"))
		chemicals, err := svc.ListByCategory(r.Context(), category)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, chemicals)
	}
}

// SearchAvailableChemicals suggests catalog entries with stock on hand
// at a location, for the request form.
func SearchAvailableChemicals(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		location := strings.TrimSpace(r.URL.Query().Get("location"))
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		results, err := svc.SearchAvailable(r.Context(), location, query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, results)
	}
}

type upsertChemicalPayload struct {
	Name         string  `json:"name" validate:"required"`
	Unit         string  `json:"unit" validate:"required"`
	Category     string  `json:"category" validate:"required"`
	MinThreshold *string `json:"min_threshold,omitempty"`
}

// UpsertChemical creates a catalog entry or updates it by name.
func UpsertChemical(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload upsertChemicalPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		category, err := enums.ParseProductCategory(strings.TrimSpace(payload.Category))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
			return
		}

		var threshold *decimal.Decimal
		if payload.MinThreshold != nil {
			parsed, err := validators.ParseQuantity(*payload.MinThreshold, "min_threshold")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			threshold = &parsed
		}

		chemical, err := svc.Upsert(r.Context(), catalog.UpsertInput{
			Name:         payload.Name,
			Unit:         payload.Unit,
			Category:     category,
			MinThreshold: threshold,
			Actor:        role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, chemical)
	}
}

type thresholdPayload struct {
	MinThreshold string `json:"min_threshold" validate:"required"`
}

// SetChemicalThreshold updates the low-stock warning level.
func SetChemicalThreshold(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		chemicalID, err := validators.ParsePathUUID(chi.URLParam(r, "chemicalId"), "chemicalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload thresholdPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		threshold, err := validators.ParseQuantity(payload.MinThreshold, "min_threshold")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetThreshold(r.Context(), chemicalID, threshold, role); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "updated"})
	}
}

// DeleteChemical removes a catalog entry with no stock or open requests.
func DeleteChemical(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		chemicalID, err := validators.ParsePathUUID(chi.URLParam(r, "chemicalId"), "chemicalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), chemicalID, role); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
