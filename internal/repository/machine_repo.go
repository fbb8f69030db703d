package repository

import (
	"context"

	"gorm.io/gorm"

	"texpro/internal/domain"
)

type MachineTypeRepository struct {
	db *gorm.DB
}

func NewMachineTypeRepository(db *gorm.DB) *MachineTypeRepository {
	return &MachineTypeRepository{db: db}
}

func (r *MachineTypeRepository) Create(ctx context.Context, t *domain.MachineType) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *MachineTypeRepository) GetByID(ctx context.Context, id int64) (*domain.MachineType, error) {
	var t domain.MachineType
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &t, nil
}

func (r *MachineTypeRepository) List(ctx context.Context) ([]domain.MachineType, error) {
	var types []domain.MachineType
	if err := r.db.WithContext(ctx).Order("name").Find(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}

type MachineRepository struct {
	db *gorm.DB
}

func NewMachineRepository(db *gorm.DB) *MachineRepository {
	return &MachineRepository{db: db}
}

// WithTx returns a copy bound to tx so machine updates can join a wider
// transaction.
func (r *MachineRepository) WithTx(tx *gorm.DB) *MachineRepository {
	return &MachineRepository{db: tx}
}

func (r *MachineRepository) Create(ctx context.Context, m *domain.Machine) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *MachineRepository) GetByID(ctx context.Context, id int64) (*domain.Machine, error) {
	var m domain.Machine
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &m, nil
}

func (r *MachineRepository) GetByCode(ctx context.Context, code string) (*domain.Machine, error) {
	var m domain.Machine
	if err := r.db.WithContext(ctx).Where("machine_code = ?", code).First(&m).Error; err != nil {
		return nil, translateErr(err)
	}
	return &m, nil
}

func (r *MachineRepository) List(ctx context.Context, limit, offset int) ([]domain.Machine, error) {
	var machines []domain.Machine
	q := r.db.WithContext(ctx).Order("machine_code")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&machines).Error; err != nil {
		return nil, err
	}
	return machines, nil
}

// ListByStatuses returns machines whose operational status is in statuses,
// ordered by machine code for stable sweep output.
func (r *MachineRepository) ListByStatuses(ctx context.Context, statuses []domain.MachineStatus) ([]domain.Machine, error) {
	var machines []domain.Machine
	if err := r.db.WithContext(ctx).
		Where("operational_status IN ?", statuses).
		Order("machine_code").
		Find(&machines).Error; err != nil {
		return nil, err
	}
	return machines, nil
}

// UpdateVersioned persists m only if the stored version still matches
// m.Version, bumping the version on success. A lost race returns
// ErrConflictingWrite so the caller can reload and retry.
func (r *MachineRepository) UpdateVersioned(ctx context.Context, m *domain.Machine) error {
	current := m.Version
	m.Version = current + 1
	res := r.db.WithContext(ctx).
		Model(&domain.Machine{}).
		Where("id = ? AND version = ?", m.ID, current).
		Select("*").
		Omit("id", "created_at").
		Updates(m)
	if res.Error != nil {
		m.Version = current
		return res.Error
	}
	if res.RowsAffected == 0 {
		m.Version = current
		return domain.ErrConflictingWrite
	}
	return nil
}
