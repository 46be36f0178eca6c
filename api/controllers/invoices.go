package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chemtrack/labstock-backend/api/responses"
	"github.com/chemtrack/labstock-backend/api/validators"
	"github.com/chemtrack/labstock-backend/internal/intake"
	pkgerrors "github.com/chemtrack/labstock-backend/pkg/errors"
	"github.com/chemtrack/labstock-backend/pkg/logger"
	"github.com/chemtrack/labstock-backend/pkg/pagination"
)

type invoiceLinePayload struct {
	ChemicalID   string  `json:"chemical_id" validate:"required,uuid"`
	Quantity     string  `json:"quantity" validate:"required"`
	PricePerUnit string  `json:"price_per_unit" validate:"required"`
	ExpiresAt    *string `json:"expires_at,omitempty"`
}

type receiveInvoicePayload struct {
	VendorID      string               `json:"vendor_id" validate:"required,uuid"`
	InvoiceNumber string               `json:"invoice_number" validate:"required"`
	InvoiceDate   string               `json:"invoice_date" validate:"required"`
	Location      string               `json:"location,omitempty"`
	Lines         []invoiceLinePayload `json:"lines" validate:"required,min=1,dive"`
}

// ReceiveInvoice posts a vendor delivery and credits every line into stock.
func ReceiveInvoice(svc intake.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload receiveInvoicePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vendorID, err := validators.ParsePathUUID(payload.VendorID, "vendor_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invoiceDate, err := time.Parse(dateLayout, payload.InvoiceDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid invoice date").
				WithDetails(map[string]any{"field": "invoice_date"}))
			return
		}

		input := intake.ReceiveInvoiceInput{
			VendorID:      vendorID,
			InvoiceNumber: payload.InvoiceNumber,
			InvoiceDate:   invoiceDate,
			Location:      strings.TrimSpace(payload.Location),
			ReceivedBy:    userID,
			ActorRole:     role,
			Lines:         make([]intake.InvoiceLineInput, 0, len(payload.Lines)),
		}
		for _, line := range payload.Lines {
			parsed, err := parseInvoiceLine(line)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Lines = append(input.Lines, parsed)
		}

		invoice, err := svc.ReceiveInvoice(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, invoice)
	}
}

func parseInvoiceLine(line invoiceLinePayload) (intake.InvoiceLineInput, error) {
	chemicalID, err := validators.ParsePathUUID(line.ChemicalID, "chemical_id")
	if err != nil {
		return intake.InvoiceLineInput{}, err
	}
	quantity, err := validators.ParseQuantity(line.Quantity, "quantity")
	if err != nil {
		return intake.InvoiceLineInput{}, err
	}
	price, err := validators.ParseQuantity(line.PricePerUnit, "price_per_unit")
	if err != nil {
		return intake.InvoiceLineInput{}, err
	}

	parsed := intake.InvoiceLineInput{
		ChemicalID:   chemicalID,
		Quantity:     quantity,
		PricePerUnit: price,
	}
	if line.ExpiresAt != nil {
		expiry, err := time.Parse(dateLayout, *line.ExpiresAt)
		if err != nil {
			return intake.InvoiceLineInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid expiry date").
				WithDetails(map[string]any{"field": "expires_at"})
		}
		parsed.ExpiresAt = &expiry
	}
	return parsed, nil
}

// GetInvoice returns one invoice with its vendor and lines.
func GetInvoice(svc intake.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		invoiceID, err := validators.ParsePathUUID(chi.URLParam(r, "invoiceId"), "invoiceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invoice, err := svc.GetInvoice(r.Context(), invoiceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}

// ListInvoices pages through received invoices, optionally by vendor.
func ListInvoices(svc intake.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vendorID := uuid.Nil
		if raw := strings.TrimSpace(r.URL.Query().Get("vendor_id")); raw != "" {
			vendorID, err = validators.ParsePathUUID(raw, "vendor_id")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		list, err := svc.ListInvoices(r.Context(), vendorID, params)
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
