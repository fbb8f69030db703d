package batch

type CreateRequest struct {
	BatchCode    string `json:"batch_code" validate:"required"`
	Description  string `json:"description"`
	SupervisorID int64  `json:"supervisor_id" validate:"required"`
	StartDate    string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate      string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type BulkTransitionRequest struct {
	IDs    []int64 `json:"ids" validate:"required,min=1"`
	Status string  `json:"status" validate:"required,oneof=in_progress completed delayed cancelled"`
	Reason string  `json:"reason"`
}

type ProgressResponse struct {
	BatchID       int64  `json:"batch_id"`
	BatchCode     string `json:"batch_code"`
	Status        string `json:"status"`
	DurationDays  int    `json:"duration_days"`
	DaysRemaining int    `json:"days_remaining"`
	Progress      int    `json:"progress_percentage"`
	Overdue       bool   `json:"overdue"`
}
