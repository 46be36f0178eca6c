package allocation

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chemtrack/labstock-backend/pkg/db/models"
)

// Repository manages the request line rows the resolver mutates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindRequest(ctx context.Context, requestID uuid.UUID) (*models.Request, error)
	LockLine(ctx context.Context, lineID uuid.UUID) (*models.RequestLine, error)
	UpdateLine(ctx context.Context, line *models.RequestLine) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an allocation repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindRequest(ctx context.Context, requestID uuid.UUID) (*models.Request, error) {
	var request models.Request
	err := r.db.WithContext(ctx).
		Where("id = ?", requestID).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) LockLine(ctx context.Context, lineID uuid.UUID) (*models.RequestLine, error) {
	var line models.RequestLine
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", lineID).
		First(&line).Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *repository) UpdateLine(ctx context.Context, line *models.RequestLine) error {
	return r.db.WithContext(ctx).
		Model(&models.RequestLine{}).
		Where("id = ?", line.ID).
		Updates(map[string]any{
			"allocated_qty": line.AllocatedQty,
			"is_allocated":  line.IsAllocated,
			"allocations":   line.Allocations,
		}).Error
}
