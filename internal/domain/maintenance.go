package domain

import "time"

type MaintenancePriority string

const (
	PriorityLow    MaintenancePriority = "low"
	PriorityMedium MaintenancePriority = "medium"
	PriorityHigh   MaintenancePriority = "high"
)

func (p MaintenancePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type MaintenanceStatus string

const (
	MaintenancePending    MaintenanceStatus = "pending"
	MaintenanceInProgress MaintenanceStatus = "in_progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
)

// MaintenanceLog records one maintenance intervention on a machine, from the
// moment an issue is reported until a technician resolves it.
type MaintenanceLog struct {
	ID            int64               `gorm:"primaryKey;column:id" json:"id"`
	MachineID     int64               `gorm:"column:machine_id;index:idx_maintenance_machine_resolved" json:"machine_id"`
	TechnicianID  int64               `gorm:"column:technician_id" json:"technician_id"`
	Priority      MaintenancePriority `gorm:"column:priority" json:"priority"`
	Status        MaintenanceStatus   `gorm:"column:status;index" json:"status"`
	IssueReported string              `gorm:"column:issue_reported" json:"issue_reported"`
	ActionTaken   string              `gorm:"column:action_taken" json:"action_taken,omitempty"`
	ReportedAt    time.Time           `gorm:"column:reported_at" json:"reported_at"`
	ResolvedAt    *time.Time          `gorm:"column:resolved_at;index:idx_maintenance_machine_resolved" json:"resolved_at,omitempty"`
	NextDueDate   *time.Time          `gorm:"column:next_due_date" json:"next_due_date,omitempty"`
	DowntimeHours float64             `gorm:"column:downtime_hours" json:"downtime_hours"`
	Cost          float64             `gorm:"column:cost" json:"cost"`
	PartsReplaced string              `gorm:"column:parts_replaced" json:"parts_replaced,omitempty"`
	Notes         string              `gorm:"column:notes" json:"notes,omitempty"`
	Version       int64               `gorm:"column:version;default:0" json:"-"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (MaintenanceLog) TableName() string { return "maintenance_logs" }

// Open reports whether the log still requires work on the machine.
func (l *MaintenanceLog) Open() bool {
	return l.Status == MaintenancePending || l.Status == MaintenanceInProgress
}
