package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chemtrack/labstock-backend/pkg/db/models"
)

// Repository manages persistence for the chemical catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Chemical, error)
	FindByName(ctx context.Context, name string) (*models.Chemical, error)
	ListByCategory(ctx context.Context, category string) ([]models.Chemical, error)
	Upsert(ctx context.Context, chemical *models.Chemical) error
	UpdateThreshold(ctx context.Context, id uuid.UUID, threshold *decimal.Decimal) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountOpenRequestLines(ctx context.Context, chemicalID uuid.UUID) (int64, error)
	SumStock(ctx context.Context, chemicalID uuid.UUID) (decimal.Decimal, error)
	SearchAvailable(ctx context.Context, location, query string, limit int) ([]AvailableChemical, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Chemical, error) {
	var chemical models.Chemical
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&chemical).Error; err != nil {
		return nil, err
	}
	return &chemical, nil
}

func (r *repository) FindByName(ctx context.Context, name string) (*models.Chemical, error) {
	var chemical models.Chemical
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&chemical).Error; err != nil {
		return nil, err
	}
	return &chemical, nil
}

func (r *repository) ListByCategory(ctx context.Context, category string) ([]models.Chemical, error) {
	query := r.db.WithContext(ctx).Model(&models.Chemical{}).Order("name ASC")
	if category != "" {
		query = query.Where("category = ?", category)
	}
	var chemicals []models.Chemical
	if err := query.Find(&chemicals).Error; err != nil {
		return nil, err
	}
	return chemicals, nil
}

func (r *repository) Upsert(ctx context.Context, chemical *models.Chemical) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"unit", "category", "min_threshold", "updated_at"}),
		}).
		Create(chemical).Error
}

func (r *repository) UpdateThreshold(ctx context.Context, id uuid.UUID, threshold *decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&models.Chemical{}).
		Where("id = ?", id).
		Update("min_threshold", threshold)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Chemical{}).Error
}

func (r *repository) CountOpenRequestLines(ctx context.Context, chemicalID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RequestLine{}).
		Joins("JOIN requests ON requests.id = request_lines.request_id").
		Where("request_lines.chemical_id = ?", chemicalID).
		Where("requests.status NOT IN ?", []string{"rejected", "completed"}).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) SumStock(ctx context.Context, chemicalID uuid.UUID) (decimal.Decimal, error) {
	var raw *string
	err := r.db.WithContext(ctx).
		Model(&models.StockEntry{}).
		Select("CAST(SUM(quantity) AS TEXT)").
		Where("chemical_id = ?", chemicalID).
		Scan(&raw).Error
	if err != nil {
		return decimal.Zero, err
	}
	if raw == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(*raw)
}

func (r *repository) SearchAvailable(ctx context.Context, location, query string, limit int) ([]AvailableChemical, error) {
	var rows []AvailableChemical
	err := r.db.WithContext(ctx).
		Table("chemicals").
		Select("chemicals.id, chemicals.name, chemicals.unit, chemicals.category, stock_entries.quantity AS available").
		Joins("JOIN stock_entries ON stock_entries.chemical_id = chemicals.id AND stock_entries.location = ?", location).
		Where("chemicals.name ILIKE ?", query+"%").
		Where("stock_entries.quantity > 0").
		Order("chemicals.name ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
