package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chemtrack/labstock-backend/pkg/db/models"
	"github.com/chemtrack/labstock-backend/pkg/pagination"
)

// ErrVersionConflict signals a version-guarded entry update matched no row.
var ErrVersionConflict = errors.New("stock entry version conflict")

// Repository manages persistence for stock entries and the transaction log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindEntry(ctx context.Context, location string, chemicalID uuid.UUID) (*models.StockEntry, error)
	LockEntry(ctx context.Context, location string, chemicalID uuid.UUID) (*models.StockEntry, error)
	CreateEntry(ctx context.Context, entry *models.StockEntry) error
	UpdateEntry(ctx context.Context, entry *models.StockEntry, expectedVersion int64) error
	CreateTransaction(ctx context.Context, txn *models.StockTransaction) error
	SumDeltas(ctx context.Context, location string, chemicalID uuid.UUID) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, location string, chemicalID uuid.UUID, params pagination.Params) ([]models.StockTransaction, error)
	ListEntries(ctx context.Context) ([]models.StockEntry, error)
	ListBelowThreshold(ctx context.Context) ([]LowStockRow, error)
	FindChemical(ctx context.Context, chemicalID uuid.UUID) (*models.Chemical, error)
}

// LowStockRow reports a stock pair sitting under its chemical's minimum threshold.
type LowStockRow struct {
	Location   string          `gorm:"column:location"`
	ChemicalID uuid.UUID       `gorm:"column:chemical_id"`
	Balance    decimal.Decimal `gorm:"column:balance"`
	Threshold  decimal.Decimal `gorm:"column:threshold"`
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindEntry(ctx context.Context, location string, chemicalID uuid.UUID) (*models.StockEntry, error) {
	var entry models.StockEntry
	err := r.db.WithContext(ctx).
		Where("location = ? AND chemical_id = ?", location, chemicalID).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) LockEntry(ctx context.Context, location string, chemicalID uuid.UUID) (*models.StockEntry, error) {
	var entry models.StockEntry
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("location = ? AND chemical_id = ?", location, chemicalID).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) CreateEntry(ctx context.Context, entry *models.StockEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) UpdateEntry(ctx context.Context, entry *models.StockEntry, expectedVersion int64) error {
	updates := map[string]any{
		"quantity": entry.Quantity,
		"version":  expectedVersion + 1,
		"halted":   entry.Halted,
	}
	if entry.ExpiresAt != nil {
		updates["expires_at"] = entry.ExpiresAt
	}
	res := r.db.WithContext(ctx).
		Model(&models.StockEntry{}).
		Where("location = ? AND chemical_id = ? AND version = ?", entry.Location, entry.ChemicalID, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	entry.Version = expectedVersion + 1
	return nil
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.StockTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) SumDeltas(ctx context.Context, location string, chemicalID uuid.UUID) (decimal.Decimal, error) {
	var raw *string
	err := r.db.WithContext(ctx).
		Model(&models.StockTransaction{}).
		Select("CAST(SUM(delta) AS TEXT)").
		Where("location = ? AND chemical_id = ?", location, chemicalID).
		Scan(&raw).Error
	if err != nil {
		return decimal.Zero, err
	}
	if raw == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(*raw)
}

func (r *repository) ListTransactions(ctx context.Context, location string, chemicalID uuid.UUID, params pagination.Params) ([]models.StockTransaction, error) {
	query := r.db.WithContext(ctx).
		Model(&models.StockTransaction{}).
		Where("location = ? AND chemical_id = ?", location, chemicalID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

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

	var rows []models.StockTransaction
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListEntries(ctx context.Context) ([]models.StockEntry, error) {
	var rows []models.StockEntry
	err := r.db.WithContext(ctx).
		Order("location ASC, chemical_id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListBelowThreshold(ctx context.Context) ([]LowStockRow, error) {
	var rows []LowStockRow
	err := r.db.WithContext(ctx).
		Table("stock_entries").
		Select("stock_entries.location, stock_entries.chemical_id, stock_entries.quantity AS balance, chemicals.min_threshold AS threshold").
		Joins("JOIN chemicals ON chemicals.id = stock_entries.chemical_id").
		Where("chemicals.min_threshold IS NOT NULL AND stock_entries.quantity < chemicals.min_threshold").
		Order("stock_entries.location ASC, stock_entries.chemical_id ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *repository) FindChemical(ctx context.Context, chemicalID uuid.UUID) (*models.Chemical, error) {
	var chemical models.Chemical
	err := r.db.WithContext(ctx).
		Where("id = ?", chemicalID).
		First(&chemical).Error
	if err != nil {
		return nil, err
	}
	return &chemical, nil
}
