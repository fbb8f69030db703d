package domain

import (
	"strings"
	"time"
)

type BatchStatus string

const (
	BatchPending    BatchStatus = "pending"
	BatchInProgress BatchStatus = "in_progress"
	BatchCompleted  BatchStatus = "completed"
	BatchDelayed    BatchStatus = "delayed"
	BatchCancelled  BatchStatus = "cancelled"
)

// Terminal reports whether no further transitions may leave the status.
func (s BatchStatus) Terminal() bool {
	return s == BatchCompleted || s == BatchCancelled
}

func (s BatchStatus) Valid() bool {
	switch s {
	case BatchPending, BatchInProgress, BatchCompleted, BatchDelayed, BatchCancelled:
		return true
	}
	return false
}

// BatchWorkflow tracks one production batch (a spinning or weaving run)
// through its lifecycle states.
type BatchWorkflow struct {
	ID           int64       `gorm:"primaryKey;column:id" json:"id"`
	BatchCode    string      `gorm:"column:batch_code;uniqueIndex" json:"batch_code"`
	Description  string      `gorm:"column:description" json:"description,omitempty"`
	SupervisorID int64       `gorm:"column:supervisor_id" json:"supervisor_id"`
	CreatedByID  int64       `gorm:"column:created_by_id" json:"created_by_id"`
	Status       BatchStatus `gorm:"column:status;index:idx_batches_status_end" json:"status"`
	StartDate    *time.Time  `gorm:"column:start_date" json:"start_date,omitempty"`
	EndDate      *time.Time  `gorm:"column:end_date;index:idx_batches_status_end" json:"end_date,omitempty"`
	CancelReason string      `gorm:"column:cancel_reason" json:"cancel_reason,omitempty"`
	Version      int64       `gorm:"column:version;default:0" json:"-"`
	CreatedAt    time.Time   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (BatchWorkflow) TableName() string { return "batch_workflows" }

// NormalizeBatchCode uppercases and trims a batch code.
func NormalizeBatchCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsOverdue reports whether the batch ran past its planned end date without
// reaching a terminal state. Pure with respect to the supplied today.
func (b *BatchWorkflow) IsOverdue(today time.Time) bool {
	if b.EndDate == nil || b.Status.Terminal() {
		return false
	}
	return b.EndDate.Before(today)
}

// DurationDays is the planned duration in whole days, zero when either bound
// is missing.
func (b *BatchWorkflow) DurationDays() int {
	if b.StartDate == nil || b.EndDate == nil {
		return 0
	}
	return int(b.EndDate.Sub(*b.StartDate).Hours() / 24)
}

// DaysRemaining counts calendar days until the planned end date; negative
// when the batch is past due.
func (b *BatchWorkflow) DaysRemaining(today time.Time) int {
	if b.EndDate == nil {
		return 0
	}
	return int(b.EndDate.Sub(today).Hours() / 24)
}

// ProgressPercentage estimates completion from elapsed planned time. Completed
// batches report 100 regardless of dates.
func (b *BatchWorkflow) ProgressPercentage(today time.Time) int {
	if b.Status == BatchCompleted {
		return 100
	}
	if b.StartDate == nil || b.EndDate == nil {
		return 0
	}
	total := b.EndDate.Sub(*b.StartDate)
	if total <= 0 {
		return 0
	}
	elapsed := today.Sub(*b.StartDate)
	if elapsed <= 0 {
		return 0
	}
	pct := int(elapsed * 100 / total)
	if pct > 100 {
		pct = 100
	}
	return pct
}
