package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"texpro/internal/domain"
)

type MaintenanceRepository struct {
	db *gorm.DB
}

func NewMaintenanceRepository(db *gorm.DB) *MaintenanceRepository {
	return &MaintenanceRepository{db: db}
}

func (r *MaintenanceRepository) WithTx(tx *gorm.DB) *MaintenanceRepository {
	return &MaintenanceRepository{db: tx}
}

func (r *MaintenanceRepository) Create(ctx context.Context, l *domain.MaintenanceLog) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *MaintenanceRepository) GetByID(ctx context.Context, id int64) (*domain.MaintenanceLog, error) {
	var l domain.MaintenanceLog
	if err := r.db.WithContext(ctx).First(&l, id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &l, nil
}

func (r *MaintenanceRepository) ListByMachine(ctx context.Context, machineID int64, limit, offset int) ([]domain.MaintenanceLog, error) {
	var logs []domain.MaintenanceLog
	q := r.db.WithContext(ctx).
		Where("machine_id = ?", machineID).
		Order("reported_at DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// CompletedByMachine returns completed logs for one machine ordered by
// resolution time, the predictor's per-machine history.
func (r *MaintenanceRepository) CompletedByMachine(ctx context.Context, machineID int64) ([]domain.MaintenanceLog, error) {
	var logs []domain.MaintenanceLog
	if err := r.db.WithContext(ctx).
		Where("machine_id = ? AND status = ?", machineID, domain.MaintenanceCompleted).
		Order("resolved_at").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// CompletedByMachineType returns completed logs across every machine of one
// type, ordered per machine by resolution time. Used for the type-wide
// average interval fallback.
func (r *MaintenanceRepository) CompletedByMachineType(ctx context.Context, typeID int64) ([]domain.MaintenanceLog, error) {
	var logs []domain.MaintenanceLog
	if err := r.db.WithContext(ctx).
		Joins("JOIN machines ON machines.id = maintenance_logs.machine_id").
		Where("machines.type_id = ? AND maintenance_logs.status = ?", typeID, domain.MaintenanceCompleted).
		Order("maintenance_logs.machine_id, maintenance_logs.resolved_at").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// CountOpenForMachine counts pending or in-progress logs for a machine,
// optionally excluding one log id.
func (r *MaintenanceRepository) CountOpenForMachine(ctx context.Context, machineID int64, exceptID int64) (int64, error) {
	var count int64
	q := r.db.WithContext(ctx).
		Model(&domain.MaintenanceLog{}).
		Where("machine_id = ? AND status IN ?", machineID,
			[]domain.MaintenanceStatus{domain.MaintenancePending, domain.MaintenanceInProgress})
	if exceptID > 0 {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Count(&count).Error
	return count, err
}

// ListOpenOlderThan returns open logs reported before cutoff, the overdue
// set for the sweep.
func (r *MaintenanceRepository) ListOpenOlderThan(ctx context.Context, cutoff time.Time) ([]domain.MaintenanceLog, error) {
	var logs []domain.MaintenanceLog
	if err := r.db.WithContext(ctx).
		Where("status IN ? AND reported_at < ?",
			[]domain.MaintenanceStatus{domain.MaintenancePending, domain.MaintenanceInProgress}, cutoff).
		Order("reported_at").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// UpdateVersioned persists l with an optimistic version check.
func (r *MaintenanceRepository) UpdateVersioned(ctx context.Context, l *domain.MaintenanceLog) error {
	current := l.Version
	l.Version = current + 1
	res := r.db.WithContext(ctx).
		Model(&domain.MaintenanceLog{}).
		Where("id = ? AND version = ?", l.ID, current).
		Select("*").
		Omit("id", "created_at").
		Updates(l)
	if res.Error != nil {
		l.Version = current
		return res.Error
	}
	if res.RowsAffected == 0 {
		l.Version = current
		return domain.ErrConflictingWrite
	}
	return nil
}
