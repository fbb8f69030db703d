package domain

import "time"

// WorkforceAllocation assigns one worker to one batch for a date range. The
// (batch, user) pair is unique; overlapping date ranges across batches are
// allowed but always reported as warnings.
type WorkforceAllocation struct {
	ID            int64      `gorm:"primaryKey;column:id" json:"id"`
	BatchID       int64      `gorm:"column:batch_id;index;uniqueIndex:idx_workforce_batch_user" json:"batch_id"`
	UserID        int64      `gorm:"column:user_id;index;uniqueIndex:idx_workforce_batch_user" json:"user_id"`
	RoleAssigned  string     `gorm:"column:role_assigned" json:"role_assigned"`
	AllocatedByID int64      `gorm:"column:allocated_by_id" json:"allocated_by_id"`
	StartDate     *time.Time `gorm:"column:start_date" json:"start_date,omitempty"`
	EndDate       *time.Time `gorm:"column:end_date" json:"end_date,omitempty"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (WorkforceAllocation) TableName() string { return "workforce_allocations" }

// MaterialAllocation assigns a quantity of raw material to a batch.
type MaterialAllocation struct {
	ID            int64     `gorm:"primaryKey;column:id" json:"id"`
	BatchID       int64     `gorm:"column:batch_id;index" json:"batch_id"`
	MaterialName  string    `gorm:"column:material_name" json:"material_name"`
	Quantity      float64   `gorm:"column:quantity" json:"quantity"`
	Unit          string    `gorm:"column:unit" json:"unit"`
	CostPerUnit   *float64  `gorm:"column:cost_per_unit" json:"cost_per_unit,omitempty"`
	Supplier      string    `gorm:"column:supplier" json:"supplier,omitempty"`
	AllocatedByID int64     `gorm:"column:allocated_by_id" json:"allocated_by_id"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (MaterialAllocation) TableName() string { return "material_allocations" }

// TotalCost is quantity times cost per unit, nil when no unit cost is known.
func (m *MaterialAllocation) TotalCost() *float64 {
	if m.CostPerUnit == nil {
		return nil
	}
	total := m.Quantity * *m.CostPerUnit
	return &total
}

// AllocationSummary caches per-batch aggregates over committed allocation
// rows. It is recomputed inside the same transaction as every allocation
// mutation and never drifts in the background.
type AllocationSummary struct {
	BatchID           int64     `gorm:"primaryKey;column:batch_id" json:"batch_id"`
	TotalWorkforce    int       `gorm:"column:total_workforce" json:"total_workforce"`
	MaterialCount     int       `gorm:"column:material_count" json:"material_count"`
	TotalMaterialCost float64   `gorm:"column:total_material_cost" json:"total_material_cost"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (AllocationSummary) TableName() string { return "allocation_summaries" }
