package intake

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chemtrack/labstock-backend/pkg/db/models"
	"github.com/chemtrack/labstock-backend/pkg/enums"
	"github.com/chemtrack/labstock-backend/pkg/pagination"
)

// Repository persists invoices, vendors and quotations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateInvoice(ctx context.Context, invoice *models.Invoice) error
	CreateInvoiceLines(ctx context.Context, lines []models.InvoiceLine) error
	FindInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	FindInvoiceByNumber(ctx context.Context, vendorID uuid.UUID, number string) (*models.Invoice, error)
	ListInvoices(ctx context.Context, vendorID uuid.UUID, params pagination.Params) ([]models.Invoice, error)

	CreateVendor(ctx context.Context, vendor *models.Vendor) error
	FindVendor(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	FindVendorByName(ctx context.Context, name string) (*models.Vendor, error)
	UpdateVendor(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListVendors(ctx context.Context) ([]models.Vendor, error)

	CreateQuotation(ctx context.Context, quotation *models.Quotation) error
	CreateQuotationLines(ctx context.Context, lines []models.QuotationLine) error
	FindQuotation(ctx context.Context, id uuid.UUID) (*models.Quotation, error)
	UpdateQuotation(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListQuotations(ctx context.Context, status enums.QuotationStatus, params pagination.Params) ([]models.Quotation, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an intake repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateInvoice(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Omit("Vendor", "Lines").Create(invoice).Error
}

func (r *repository) CreateInvoiceLines(ctx context.Context, lines []models.InvoiceLine) error {
	if len(lines) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Chemical").Create(&lines).Error
}

func (r *repository) FindInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Vendor").
		Preload("Lines").
		Preload("Lines.Chemical").
		Where("id = ?", id).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) FindInvoiceByNumber(ctx context.Context, vendorID uuid.UUID, number string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND invoice_number = ?", vendorID, number).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) ListInvoices(ctx context.Context, vendorID uuid.UUID, params pagination.Params) ([]models.Invoice, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Preload("Vendor").
		Preload("Lines").
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if vendorID != uuid.Nil {
		query = query.Where("vendor_id = ?", vendorID)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Invoice
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CreateVendor(ctx context.Context, vendor *models.Vendor) error {
	return r.db.WithContext(ctx).Create(vendor).Error
}

func (r *repository) FindVendor(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&vendor).Error
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repository) FindVendorByName(ctx context.Context, name string) (*models.Vendor, error) {
	var vendor models.Vendor
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?)", name).
		First(&vendor).Error
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repository) UpdateVendor(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListVendors(ctx context.Context) ([]models.Vendor, error) {
	var rows []models.Vendor
	err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CreateQuotation(ctx context.Context, quotation *models.Quotation) error {
	return r.db.WithContext(ctx).Omit("Vendor", "Lines").Create(quotation).Error
}

func (r *repository) CreateQuotationLines(ctx context.Context, lines []models.QuotationLine) error {
	if len(lines) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Chemical").Create(&lines).Error
}

func (r *repository) FindQuotation(ctx context.Context, id uuid.UUID) (*models.Quotation, error) {
	var quotation models.Quotation
	err := r.db.WithContext(ctx).
		Preload("Vendor").
		Preload("Lines").
		Preload("Lines.Chemical").
		Where("id = ?", id).
		First(&quotation).Error
	if err != nil {
		return nil, err
	}
	return &quotation, nil
}

func (r *repository) UpdateQuotation(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.Quotation{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListQuotations(ctx context.Context, status enums.QuotationStatus, params pagination.Params) ([]models.Quotation, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Quotation{}).
		Preload("Vendor").
		Preload("Lines").
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if status != "" {
		query = query.Where("status = ?", status)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Quotation
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
