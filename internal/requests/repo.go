package requests

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chemtrack/labstock-backend/pkg/db/models"
	"github.com/chemtrack/labstock-backend/pkg/pagination"
)

// Repository manages persistence for requests, experiments and lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateExperiment(ctx context.Context, experiment *models.Experiment) error
	CreateRequest(ctx context.Context, request *models.Request) error
	CreateLines(ctx context.Context, lines []models.RequestLine) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Request, error)
	FindLines(ctx context.Context, requestID uuid.UUID) ([]models.RequestLine, error)
	UpdateRequest(ctx context.Context, id uuid.UUID, updates map[string]any) error
	List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Request, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a requests repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateExperiment(ctx context.Context, experiment *models.Experiment) error {
	return r.db.WithContext(ctx).Create(experiment).Error
}

func (r *repository) CreateRequest(ctx context.Context, request *models.Request) error {
	return r.db.WithContext(ctx).Omit("Experiments").Create(request).Error
}

func (r *repository) CreateLines(ctx context.Context, lines []models.RequestLine) error {
	if len(lines) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&lines).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	var request models.Request
	err := r.db.WithContext(ctx).
		Preload("Experiments").
		Preload("Experiments.Lines").
		Preload("Experiments.Lines.Chemical").
		Where("id = ?", id).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) FindLines(ctx context.Context, requestID uuid.UUID) ([]models.RequestLine, error) {
	var lines []models.RequestLine
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repository) UpdateRequest(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.Request{}).
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

func (r *repository) List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Request, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Request{}).
		Preload("Experiments").
		Preload("Experiments.Lines").
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	if filters.LabID != "" {
		query = query.Where("lab_id = ?", filters.LabID)
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
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

	var rows []models.Request
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
