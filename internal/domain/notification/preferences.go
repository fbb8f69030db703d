package notification

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// UserPreferences holds per-user notification preferences. Quiet hours and
// per-type opt-outs suppress low and normal priority notifications only;
// high and critical are always delivered.
type UserPreferences struct {
	ID              int64           `gorm:"primaryKey;column:id" json:"id"`
	UserID          int64           `gorm:"column:user_id;uniqueIndex" json:"user_id"`
	InAppEnabled    bool            `gorm:"column:in_app_enabled;default:true" json:"in_app_enabled"`
	EmailEnabled    bool            `gorm:"column:email_enabled;default:false" json:"email_enabled"`
	QuietHoursStart *int            `gorm:"column:quiet_hours_start" json:"quiet_hours_start,omitempty"` // hour of day 0-23
	QuietHoursEnd   *int            `gorm:"column:quiet_hours_end" json:"quiet_hours_end,omitempty"`
	PerTypeSettings PerTypeOptOuts  `gorm:"column:per_type_settings;serializer:json" json:"per_type_settings"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (UserPreferences) TableName() string { return "user_notification_preferences" }

// PerTypeOptOuts maps a notification type to an explicit opt-out.
type PerTypeOptOuts map[string]bool

// Value implements driver.Valuer interface
func (p PerTypeOptOuts) Value() (driver.Value, error) {
	if len(p) == 0 {
		return "{}", nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner interface
func (p *PerTypeOptOuts) Scan(value interface{}) error {
	if value == nil {
		*p = make(PerTypeOptOuts)
		return nil
	}

	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("unsupported per_type_settings column type")
	}

	result := make(PerTypeOptOuts)
	if err := json.Unmarshal(b, &result); err != nil {
		return err
	}
	*p = result
	return nil
}

// OptedOut reports whether the user disabled this notification type.
func (p *UserPreferences) OptedOut(t Type) bool {
	if p.PerTypeSettings == nil {
		return false
	}
	return p.PerTypeSettings[string(t)]
}

// InQuietHours reports whether at falls inside the user's quiet window. The
// window may wrap midnight (e.g. 22 to 6).
func (p *UserPreferences) InQuietHours(at time.Time) bool {
	if p.QuietHoursStart == nil || p.QuietHoursEnd == nil {
		return false
	}
	start, end := *p.QuietHoursStart, *p.QuietHoursEnd
	if start == end {
		return false
	}
	hour := at.Hour()
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

// ShouldDeliver applies opt-outs and quiet hours to one candidate
// notification. Urgent priorities are always delivered.
func (p *UserPreferences) ShouldDeliver(t Type, priority Priority, at time.Time) bool {
	if priority.Urgent() {
		return true
	}
	if !p.InAppEnabled {
		return false
	}
	if p.OptedOut(t) {
		return false
	}
	return !p.InQuietHours(at)
}

// DefaultPreferences returns the preferences applied before a user saves any.
func DefaultPreferences(userID int64) *UserPreferences {
	return &UserPreferences{
		UserID:          userID,
		InAppEnabled:    true,
		EmailEnabled:    false,
		PerTypeSettings: make(PerTypeOptOuts),
	}
}
