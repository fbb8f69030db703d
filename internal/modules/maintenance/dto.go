package maintenance

import "texpro/internal/domain"

type OpenRequest struct {
	MachineID    int64  `json:"machine_id" validate:"required"`
	TechnicianID int64  `json:"technician_id" validate:"required"`
	Issue        string `json:"issue_reported" validate:"required"`
	Priority     string `json:"priority" validate:"required,oneof=low medium high"`
}

type AdvanceRequest struct {
	Status        *string  `json:"status" validate:"omitempty,oneof=pending in_progress completed"`
	ActionTaken   *string  `json:"action_taken"`
	DowntimeHours *float64 `json:"downtime_hours" validate:"omitempty,gte=0"`
	Cost          *float64 `json:"cost" validate:"omitempty,gte=0"`
	PartsReplaced *string  `json:"parts_replaced"`
	Notes         *string  `json:"notes"`
}

type CompleteRequest struct {
	ActionTaken   string  `json:"action_taken" validate:"required"`
	DowntimeHours float64 `json:"downtime_hours" validate:"gte=0"`
	Cost          float64 `json:"cost" validate:"gte=0"`
	PartsReplaced string  `json:"parts_replaced"`
	Notes         string  `json:"notes"`
}

func (r AdvanceRequest) patch() AdvancePatch {
	p := AdvancePatch{
		ActionTaken:   r.ActionTaken,
		DowntimeHours: r.DowntimeHours,
		Cost:          r.Cost,
		PartsReplaced: r.PartsReplaced,
		Notes:         r.Notes,
	}
	if r.Status != nil {
		s := domain.MaintenanceStatus(*r.Status)
		p.Status = &s
	}
	return p
}

type PredictionResponse struct {
	MachineID    int64   `json:"machine_id"`
	NextDue      string  `json:"next_maintenance_date"`
	Urgency      string  `json:"urgency"`
	DaysUntil    int     `json:"days_until"`
	IntervalDays int     `json:"interval_days"`
	HoursRatio   float64 `json:"hours_ratio"`
	Reliability  float64 `json:"reliability_score"`
}
