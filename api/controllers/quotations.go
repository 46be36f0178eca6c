package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chemtrack/labstock-backend/api/responses"
	"github.com/chemtrack/labstock-backend/api/validators"
	"github.com/chemtrack/labstock-backend/internal/intake"
	"github.com/chemtrack/labstock-backend/pkg/enums"
	pkgerrors "github.com/chemtrack/labstock-backend/pkg/errors"
	"github.com/chemtrack/labstock-backend/pkg/logger"
	"github.com/chemtrack/labstock-backend/pkg/pagination"
)

type quotationLinePayload struct {
	ChemicalID   string `json:"chemical_id" validate:"required,uuid"`
	Quantity     string `json:"quantity" validate:"required"`
	PricePerUnit string `json:"price_per_unit" validate:"required"`
}

type createQuotationPayload struct {
	VendorID string                 `json:"vendor_id" validate:"required,uuid"`
	Lines    []quotationLinePayload `json:"lines" validate:"required,min=1,dive"`
}

// CreateQuotation opens a draft vendor quotation.
func CreateQuotation(svc intake.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createQuotationPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vendorID, err := validators.ParsePathUUID(payload.VendorID, "vendor_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := intake.CreateQuotationInput{
			VendorID:  vendorID,
			CreatedBy: userID,
			ActorRole: role,
			Lines:     make([]intake.QuotationLineInput, 0, len(payload.Lines)),
		}
		for _, line := range payload.Lines {
			chemicalID, err := validators.ParsePathUUID(line.ChemicalID, "chemical_id")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			quantity, err := validators.ParseQuantity(line.Quantity, "quantity")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			price, err := validators.ParseQuantity(line.PricePerUnit, "price_per_unit")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Lines = append(input.Lines, intake.QuotationLineInput{
				ChemicalID:   chemicalID,
				Quantity:     quantity,
				PricePerUnit: price,
			})
		}

		quotation, err := svc.CreateQuotation(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, quotation)
	}
}

// ApproveQuotation moves a draft quotation to approved.
func ApproveQuotation(svc intake.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quotationID, err := validators.ParsePathUUID(chi.URLParam(r, "quotationId"), "quotationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quotation, err := svc.ApproveQuotation(r.Context(), quotationID, userID, role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quotation)
	}
}

type convertQuotationPayload struct {
	InvoiceNumber string `json:"invoice_number" validate:"required"`
	InvoiceDate   string `json:"invoice_date" validate:"required"`
	Location      string `json:"location,omitempty"`
}

// ConvertQuotation posts an approved quotation as a received invoice.
func ConvertQuotation(svc intake.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quotationID, err := validators.ParsePathUUID(chi.URLParam(r, "quotationId"), "quotationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload convertQuotationPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invoiceDate, err := time.Parse(dateLayout, payload.InvoiceDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid invoice date").
				WithDetails(map[string]any{"field": "invoice_date"}))
			return
		}

		invoice, err := svc.ConvertQuotation(r.Context(), intake.ConvertQuotationInput{
			QuotationID:   quotationID,
			InvoiceNumber: payload.InvoiceNumber,
			InvoiceDate:   invoiceDate,
			Location:      strings.TrimSpace(payload.Location),
			ReceivedBy:    userID,
			ActorRole:     role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, invoice)
	}
}

// GetQuotation returns one quotation with its lines.
func GetQuotation(svc intake.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quotationID, err := validators.ParsePathUUID(chi.URLParam(r, "quotationId"), "quotationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quotation, err := svc.GetQuotation(r.Context(), quotationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quotation)
	}
}

// ListQuotations pages through quotations, optionally by status.
func ListQuotations(svc intake.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := enums.QuotationStatus(strings.TrimSpace(r.URL.Query().Get("status")))
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		list, err := svc.ListQuotations(r.Context(), status, params)
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
