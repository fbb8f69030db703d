package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"texpro/internal/domain"
)

type BatchRepository struct {
	db *gorm.DB
}

func NewBatchRepository(db *gorm.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

func (r *BatchRepository) WithTx(tx *gorm.DB) *BatchRepository {
	return &BatchRepository{db: tx}
}

func (r *BatchRepository) Create(ctx context.Context, b *domain.BatchWorkflow) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *BatchRepository) GetByID(ctx context.Context, id int64) (*domain.BatchWorkflow, error) {
	var b domain.BatchWorkflow
	if err := r.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &b, nil
}

func (r *BatchRepository) GetByCode(ctx context.Context, code string) (*domain.BatchWorkflow, error) {
	var b domain.BatchWorkflow
	if err := r.db.WithContext(ctx).Where("batch_code = ?", code).First(&b).Error; err != nil {
		return nil, translateErr(err)
	}
	return &b, nil
}

func (r *BatchRepository) List(ctx context.Context, status domain.BatchStatus, limit, offset int) ([]domain.BatchWorkflow, error) {
	var batches []domain.BatchWorkflow
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// ListOverdue returns non-terminal batches whose planned end date passed,
// restricted to the given statuses. Uses the (status, end_date) index.
func (r *BatchRepository) ListOverdue(ctx context.Context, today time.Time, statuses []domain.BatchStatus) ([]domain.BatchWorkflow, error) {
	var batches []domain.BatchWorkflow
	if err := r.db.WithContext(ctx).
		Where("status IN ? AND end_date IS NOT NULL AND end_date < ?", statuses, today).
		Order("end_date").
		Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// UpdateVersioned persists b with an optimistic version check.
func (r *BatchRepository) UpdateVersioned(ctx context.Context, b *domain.BatchWorkflow) error {
	current := b.Version
	b.Version = current + 1
	res := r.db.WithContext(ctx).
		Model(&domain.BatchWorkflow{}).
		Where("id = ? AND version = ?", b.ID, current).
		Select("*").
		Omit("id", "created_at").
		Updates(b)
	if res.Error != nil {
		b.Version = current
		return res.Error
	}
	if res.RowsAffected == 0 {
		b.Version = current
		return domain.ErrConflictingWrite
	}
	return nil
}
