package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"texpro/internal/domain"
)

type AllocationRepository struct {
	db *gorm.DB
}

func NewAllocationRepository(db *gorm.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

func (r *AllocationRepository) WithTx(tx *gorm.DB) *AllocationRepository {
	return &AllocationRepository{db: tx}
}

func (r *AllocationRepository) CreateWorkforce(ctx context.Context, a *domain.WorkforceAllocation) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *AllocationRepository) GetWorkforceByID(ctx context.Context, id int64) (*domain.WorkforceAllocation, error) {
	var a domain.WorkforceAllocation
	if err := r.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &a, nil
}

// ListWorkforceByUser returns every allocation of one worker, the conflict
// checker's input. Uses the user_id index.
func (r *AllocationRepository) ListWorkforceByUser(ctx context.Context, userID int64, exceptID int64) ([]domain.WorkforceAllocation, error) {
	var allocs []domain.WorkforceAllocation
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if exceptID > 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Order("created_at").Find(&allocs).Error; err != nil {
		return nil, err
	}
	return allocs, nil
}

func (r *AllocationRepository) ListWorkforceByBatch(ctx context.Context, batchID int64) ([]domain.WorkforceAllocation, error) {
	var allocs []domain.WorkforceAllocation
	if err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at").
		Find(&allocs).Error; err != nil {
		return nil, err
	}
	return allocs, nil
}

func (r *AllocationRepository) DeleteWorkforce(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&domain.WorkforceAllocation{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *AllocationRepository) CreateMaterial(ctx context.Context, a *domain.MaterialAllocation) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *AllocationRepository) GetMaterialByID(ctx context.Context, id int64) (*domain.MaterialAllocation, error) {
	var a domain.MaterialAllocation
	if err := r.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &a, nil
}

func (r *AllocationRepository) ListMaterialByBatch(ctx context.Context, batchID int64) ([]domain.MaterialAllocation, error) {
	var allocs []domain.MaterialAllocation
	if err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at").
		Find(&allocs).Error; err != nil {
		return nil, err
	}
	return allocs, nil
}

func (r *AllocationRepository) DeleteMaterial(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&domain.MaterialAllocation{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *AllocationRepository) GetSummary(ctx context.Context, batchID int64) (*domain.AllocationSummary, error) {
	var s domain.AllocationSummary
	if err := r.db.WithContext(ctx).Where("batch_id = ?", batchID).First(&s).Error; err != nil {
		return nil, translateErr(err)
	}
	return &s, nil
}

// RecomputeSummary rebuilds the batch's summary row from committed allocation
// rows. It must run inside the same transaction as the mutation it follows so
// the cache can never drift.
func (r *AllocationRepository) RecomputeSummary(ctx context.Context, batchID int64) (*domain.AllocationSummary, error) {
	db := r.db.WithContext(ctx)

	var workforce int64
	if err := db.Model(&domain.WorkforceAllocation{}).
		Where("batch_id = ?", batchID).
		Distinct("user_id").
		Count(&workforce).Error; err != nil {
		return nil, err
	}

	var materials []domain.MaterialAllocation
	if err := db.Where("batch_id = ?", batchID).Find(&materials).Error; err != nil {
		return nil, err
	}

	totalCost := 0.0
	for _, m := range materials {
		if c := m.TotalCost(); c != nil {
			totalCost += *c
		}
	}

	summary := &domain.AllocationSummary{
		BatchID:           batchID,
		TotalWorkforce:    int(workforce),
		MaterialCount:     len(materials),
		TotalMaterialCost: totalCost,
	}

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "batch_id"}},
		UpdateAll: true,
	}).Create(summary).Error
	if err != nil {
		return nil, err
	}
	return summary, nil
}
