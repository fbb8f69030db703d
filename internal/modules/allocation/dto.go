package allocation

type AllocateWorkforceRequest struct {
	BatchID      int64  `json:"batch_id" validate:"required"`
	UserID       int64  `json:"user_id" validate:"required"`
	RoleAssigned string `json:"role_assigned" validate:"required,oneof=operator maintenance qc supervisor assistant"`
	StartDate    string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate      string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

type AllocateMaterialRequest struct {
	BatchID      int64    `json:"batch_id" validate:"required"`
	MaterialName string   `json:"material_name" validate:"required"`
	Quantity     float64  `json:"quantity" validate:"required,gt=0"`
	Unit         string   `json:"unit" validate:"required"`
	CostPerUnit  *float64 `json:"cost_per_unit" validate:"omitempty,gte=0"`
	Supplier     string   `json:"supplier"`
}

type CheckRequest struct {
	BatchID   int64  `form:"batch_id" validate:"required"`
	UserID    int64  `form:"user_id" validate:"required"`
	StartDate string `form:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `form:"end_date" validate:"omitempty,datetime=2006-01-02"`
	ExceptID  int64  `form:"except_id"`
}
