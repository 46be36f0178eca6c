package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/chemtrack/labstock-backend/api/responses"
	"github.com/chemtrack/labstock-backend/api/validators"
	"github.com/chemtrack/labstock-backend/internal/intake"
	"github.com/chemtrack/labstock-backend/internal/ledger"
	"github.com/chemtrack/labstock-backend/pkg/logger"
	"github.com/chemtrack/labstock-backend/pkg/pagination"
)

// StockBalance returns the cached balance for a location/chemical pair.
func StockBalance(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		location := strings.TrimSpace(chi.URLParam(r, "location"))
		chemicalID, err := validators.ParsePathUUID(chi.URLParam(r, "chemicalId"), "chemicalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.Balance(r.Context(), location, chemicalID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"location":    location,
			"chemical_id": chemicalID,
			"balance":     balance,
		})
	}
}

// StockTransactions pages through the movement log for a pair, newest first.
func StockTransactions(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		location := strings.TrimSpace(chi.URLParam(r, "location"))
		chemicalID, err := validators.ParsePathUUID(chi.URLParam(r, "chemicalId"), "chemicalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		list, err := svc.ListTransactions(r.Context(), location, chemicalID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// StockReconcile replays the transaction log against the cached balance.
func StockReconcile(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		location := strings.TrimSpace(chi.URLParam(r, "location"))
		chemicalID, err := validators.ParsePathUUID(chi.URLParam(r, "chemicalId"), "chemicalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := svc.Reconcile(r.Context(), location, chemicalID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, outcome)
	}
}

type adjustStockPayload struct {
	Location   string  `json:"location" validate:"required"`
	ChemicalID string  `json:"chemical_id" validate:"required,uuid"`
	Delta      string  `json:"delta" validate:"required"`
	Note       *string `json:"note,omitempty"`
}

// AdjustStock posts a manual signed correction against a stock pair.
func AdjustStock(svc intake.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adjustStockPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		chemicalID, err := validators.ParsePathUUID(payload.ChemicalID, "chemical_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		delta, err := validators.ParseQuantity(payload.Delta, "delta")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.Adjust(r.Context(), intake.AdjustInput{
			Location:   strings.TrimSpace(payload.Location),
			ChemicalID: chemicalID,
			Delta:      delta,
			Note:       payload.Note,
			ActorID:    userID,
			ActorRole:  role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, txn)
	}
}
