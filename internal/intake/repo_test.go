package intake

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/chemtrack/labstock-backend/pkg/db/models"
	"github.com/chemtrack/labstock-backend/pkg/enums"
	"github.com/chemtrack/labstock-backend/pkg/pagination"
)

func setupIntakeTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schemas := []string{
		`CREATE TABLE IF NOT EXISTS chemicals (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  unit TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT 'chemical',
  min_threshold TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS vendors (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  email TEXT,
  phone TEXT,
  categories TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS invoices (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL,
  invoice_number TEXT NOT NULL,
  invoice_date DATETIME NOT NULL,
  total_price TEXT NOT NULL,
  received_by TEXT NOT NULL,
  created_at DATETIME,
  UNIQUE (vendor_id, invoice_number)
);`,
		`CREATE TABLE IF NOT EXISTS invoice_lines (
  id TEXT PRIMARY KEY,
  invoice_id TEXT NOT NULL,
  chemical_id TEXT NOT NULL,
  quantity TEXT NOT NULL,
  price_per_unit TEXT NOT NULL,
  total_price TEXT NOT NULL,
  expires_at DATETIME,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS quotations (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'draft',
  created_by TEXT NOT NULL,
  converted_invoice_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS quotation_lines (
  id TEXT PRIMARY KEY,
  quotation_id TEXT NOT NULL,
  chemical_id TEXT NOT NULL,
  quantity TEXT NOT NULL,
  price_per_unit TEXT NOT NULL,
  created_at DATETIME
);`,
	}
	for _, schema := range schemas {
		require.NoError(t, db.Exec(schema).Error)
	}
	return db
}

func seedVendor(t *testing.T, db *gorm.DB, name string) *models.Vendor {
	t.Helper()
	vendor := &models.Vendor{
		ID:         uuid.New(),
		Name:       name,
		Categories: pq.StringArray{"chemical"},
	}
	require.NoError(t, db.Create(vendor).Error)
	return vendor
}

func seedChemical(t *testing.T, db *gorm.DB) *models.Chemical {
	t.Helper()
	chemical := &models.Chemical{
		ID:   uuid.New(),
		Name: "Chemical " + uuid.NewString(),
		Unit: "ml",
	}
	require.NoError(t, db.Create(chemical).Error)
	return chemical
}

func TestVendorRepoRoundTrip(t *testing.T) {
	db := setupIntakeTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedVendor(t, db, "Avantor")
	seedVendor(t, db, "Merck")

	found, err := repo.FindVendorByName(ctx, "AVANTOR")
	require.NoError(t, err)
	assert.Equal(t, "Avantor", found.Name)

	require.NoError(t, repo.UpdateVendor(ctx, found.ID, map[string]any{"phone": "555-0100"}))
	updated, err := repo.FindVendor(ctx, found.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.Phone)
	assert.Equal(t, "555-0100", *updated.Phone)

	err = repo.UpdateVendor(ctx, uuid.New(), map[string]any{"phone": "555-0101"})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	vendors, err := repo.ListVendors(ctx)
	require.NoError(t, err)
	require.Len(t, vendors, 2)
	assert.Equal(t, "Avantor", vendors[0].Name)
	assert.Equal(t, "Merck", vendors[1].Name)
}

func TestInvoiceRepoLookupAndListOrder(t *testing.T) {
	db := setupIntakeTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	vendor := seedVendor(t, db, "Avantor")
	other := seedVendor(t, db, "Merck")
	chemical := seedChemical(t, db)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	older := &models.Invoice{
		ID:            uuid.New(),
		VendorID:      vendor.ID,
		InvoiceNumber: "INV-1001",
		InvoiceDate:   base,
		TotalPrice:    decimal.RequireFromString("87.50"),
		ReceivedBy:    uuid.New(),
		CreatedAt:     base,
	}
	newer := &models.Invoice{
		ID:            uuid.New(),
		VendorID:      vendor.ID,
		InvoiceNumber: "INV-1002",
		InvoiceDate:   base.AddDate(0, 0, 1),
		TotalPrice:    decimal.RequireFromString("12.00"),
		ReceivedBy:    uuid.New(),
		CreatedAt:     base.Add(time.Hour),
	}
	foreign := &models.Invoice{
		ID:            uuid.New(),
		VendorID:      other.ID,
		InvoiceNumber: "INV-9001",
		InvoiceDate:   base,
		TotalPrice:    decimal.RequireFromString("1.00"),
		ReceivedBy:    uuid.New(),
		CreatedAt:     base.Add(2 * time.Hour),
	}
	for _, invoice := range []*models.Invoice{older, newer, foreign} {
		require.NoError(t, repo.CreateInvoice(ctx, invoice))
	}
	require.NoError(t, repo.CreateInvoiceLines(ctx, []models.InvoiceLine{{
		ID:           uuid.New(),
		InvoiceID:    older.ID,
		ChemicalID:   chemical.ID,
		Quantity:     decimal.RequireFromString("25"),
		PricePerUnit: decimal.RequireFromString("3.50"),
		TotalPrice:   decimal.RequireFromString("87.50"),
	}}))

	byNumber, err := repo.FindInvoiceByNumber(ctx, vendor.ID, "INV-1001")
	require.NoError(t, err)
	assert.Equal(t, older.ID, byNumber.ID)

	_, err = repo.FindInvoiceByNumber(ctx, other.ID, "INV-1001")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	full, err := repo.FindInvoice(ctx, older.ID)
	require.NoError(t, err)
	require.Len(t, full.Lines, 1)
	require.NotNil(t, full.Lines[0].Chemical)
	assert.Equal(t, chemical.ID, full.Lines[0].Chemical.ID)

	rows, err := repo.ListInvoices(ctx, vendor.ID, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, newer.ID, rows[0].ID)
	assert.Equal(t, older.ID, rows[1].ID)

	cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: newer.CreatedAt, ID: newer.ID})
	rows, err = repo.ListInvoices(ctx, vendor.ID, pagination.Params{Limit: 10, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, older.ID, rows[0].ID)
}

func TestQuotationRepoStatusFilterAndUpdate(t *testing.T) {
	db := setupIntakeTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	vendor := seedVendor(t, db, "Avantor")
	chemical := seedChemical(t, db)

	draft := &models.Quotation{
		ID:        uuid.New(),
		VendorID:  vendor.ID,
		Status:    enums.QuotationStatusDraft,
		CreatedBy: uuid.New(),
	}
	approved := &models.Quotation{
		ID:        uuid.New(),
		VendorID:  vendor.ID,
		Status:    enums.QuotationStatusApproved,
		CreatedBy: uuid.New(),
	}
	require.NoError(t, repo.CreateQuotation(ctx, draft))
	require.NoError(t, repo.CreateQuotation(ctx, approved))
	require.NoError(t, repo.CreateQuotationLines(ctx, []models.QuotationLine{{
		ID:           uuid.New(),
		QuotationID:  draft.ID,
		ChemicalID:   chemical.ID,
		Quantity:     decimal.RequireFromString("40"),
		PricePerUnit: decimal.RequireFromString("2.25"),
	}}))

	rows, err := repo.ListQuotations(ctx, enums.QuotationStatusApproved, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, approved.ID, rows[0].ID)

	invoiceID := uuid.New()
	require.NoError(t, repo.UpdateQuotation(ctx, approved.ID, map[string]any{
		"status":               enums.QuotationStatusConverted,
		"converted_invoice_id": invoiceID,
	}))

	converted, err := repo.FindQuotation(ctx, approved.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.QuotationStatusConverted, converted.Status)
	require.NotNil(t, converted.ConvertedInvoiceID)
	assert.Equal(t, invoiceID, *converted.ConvertedInvoiceID)

	withLines, err := repo.FindQuotation(ctx, draft.ID)
	require.NoError(t, err)
	require.Len(t, withLines.Lines, 1)
	require.NotNil(t, withLines.Lines[0].Chemical)
}
