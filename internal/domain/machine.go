package domain

import (
	"strings"
	"time"
)

type MachineStatus string

const (
	MachineRunning     MachineStatus = "running"
	MachineIdle        MachineStatus = "idle"
	MachineMaintenance MachineStatus = "maintenance"
	MachineOffline     MachineStatus = "offline"
	MachineBreakdown   MachineStatus = "breakdown"
)

func (s MachineStatus) Valid() bool {
	switch s {
	case MachineRunning, MachineIdle, MachineMaintenance, MachineOffline, MachineBreakdown:
		return true
	}
	return false
}

// StatusChangeNeedsReason reports whether a status change to s must carry an
// operator-supplied reason.
func StatusChangeNeedsReason(s MachineStatus) bool {
	switch s {
	case MachineBreakdown, MachineOffline, MachineMaintenance:
		return true
	}
	return false
}

// MachineType is a catalog entry describing one family of mill equipment
// (carding machine, ring frame, loom, ...). Recommended intervals drive the
// maintenance predictor; either may be absent.
type MachineType struct {
	ID                      int64     `gorm:"primaryKey;column:id" json:"id"`
	Name                    string    `gorm:"column:name;uniqueIndex" json:"name" validate:"required"`
	Description             string    `gorm:"column:description" json:"description,omitempty"`
	RecommendedIntervalDays *int      `gorm:"column:recommended_interval_days" json:"recommended_interval_days,omitempty"`
	RecommendedIntervalHrs  *int      `gorm:"column:recommended_interval_hours" json:"recommended_interval_hours,omitempty"`
	TypicalPowerKW          float64   `gorm:"column:typical_power_kw" json:"typical_power_kw"`
	TypicalRate             float64   `gorm:"column:typical_rate" json:"typical_rate"`
	CreatedAt               time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (MachineType) TableName() string { return "machine_types" }

type Machine struct {
	ID                    int64         `gorm:"primaryKey;column:id" json:"id"`
	MachineCode           string        `gorm:"column:machine_code;uniqueIndex" json:"machine_code"`
	TypeID                int64         `gorm:"column:type_id;index" json:"type_id"`
	InstallationDate      *time.Time    `gorm:"column:installation_date" json:"installation_date,omitempty"`
	OperationalStatus     MachineStatus `gorm:"column:operational_status;index" json:"operational_status"`
	TotalOperatingHours   float64       `gorm:"column:total_operating_hours" json:"total_operating_hours"`
	HoursSinceMaintenance float64       `gorm:"column:hours_since_maintenance" json:"hours_since_maintenance"`
	LastMaintenanceDate   *time.Time    `gorm:"column:last_maintenance_date" json:"last_maintenance_date,omitempty"`
	NextMaintenanceDate   *time.Time    `gorm:"column:next_maintenance_date" json:"next_maintenance_date,omitempty"`
	PrimaryOperatorID     *int64        `gorm:"column:primary_operator_id" json:"primary_operator_id,omitempty"`
	LocationSite          string        `gorm:"column:location_site" json:"location_site,omitempty"`
	LocationBuilding      string        `gorm:"column:location_building" json:"location_building,omitempty"`
	LocationFloor         string        `gorm:"column:location_floor" json:"location_floor,omitempty"`
	LocationDetails       string        `gorm:"column:location_details" json:"location_details,omitempty"`
	Notes                 string        `gorm:"column:notes" json:"notes,omitempty"`
	Version               int64         `gorm:"column:version;default:0" json:"-"`
	CreatedAt             time.Time     `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time     `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Machine) TableName() string { return "machines" }

// NormalizeMachineCode uppercases and trims a machine code before uniqueness
// checks and storage.
func NormalizeMachineCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// AppendNote appends a timestamped line to the machine's free-form notes.
func (m *Machine) AppendNote(at time.Time, line string) {
	entry := "[" + at.Format("2006-01-02 15:04") + "] " + line
	if m.Notes == "" {
		m.Notes = entry
		return
	}
	m.Notes = m.Notes + "\n" + entry
}
