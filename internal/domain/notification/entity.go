package notification

import (
	"encoding/json"
	"time"
)

// Type classifies a notification by the subsystem it originates from.
type Type string

const (
	TypeWorkflow    Type = "workflow"
	TypeMachine     Type = "machine"
	TypeMaintenance Type = "maintenance"
	TypeQuality     Type = "quality"
	TypeAllocation  Type = "allocation"
	TypeSystem      Type = "system"
)

// Priority orders notifications for the recipient. Quiet-hour suppression
// never applies to high or critical.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Urgent reports whether the priority bypasses quiet hours.
func (p Priority) Urgent() bool {
	return p == PriorityHigh || p == PriorityCritical
}

// Notification is one delivered message for one recipient.
type Notification struct {
	ID            int64           `gorm:"primaryKey;column:id" json:"id"`
	UserID        int64           `gorm:"column:user_id;index:idx_notifications_user_unread" json:"user_id"`
	Type          Type            `gorm:"column:type" json:"type"`
	Priority      Priority        `gorm:"column:priority" json:"priority"`
	Title         string          `gorm:"column:title" json:"title"`
	Message       string          `gorm:"column:message" json:"message"`
	IsRead        bool            `gorm:"column:is_read;index:idx_notifications_user_unread" json:"is_read"`
	ReadAt        *time.Time      `gorm:"column:read_at" json:"read_at,omitempty"`
	RelatedEntity string          `gorm:"column:related_entity" json:"related_entity,omitempty"`
	RelatedID     int64           `gorm:"column:related_id" json:"related_id,omitempty"`
	Data          json.RawMessage `gorm:"column:data" json:"data,omitempty"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }

// MarkAsRead marks notification as read with timestamp.
func (n *Notification) MarkAsRead(at time.Time) {
	n.IsRead = true
	t := at
	n.ReadAt = &t
}
