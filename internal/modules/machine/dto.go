package machine

type CreateTypeRequest struct {
	Name                    string  `json:"name" validate:"required"`
	Description             string  `json:"description"`
	RecommendedIntervalDays *int    `json:"recommended_interval_days" validate:"omitempty,gt=0"`
	RecommendedIntervalHrs  *int    `json:"recommended_interval_hours" validate:"omitempty,gt=0"`
	TypicalPowerKW          float64 `json:"typical_power_kw" validate:"omitempty,gt=0"`
	TypicalRate             float64 `json:"typical_rate" validate:"omitempty,gt=0"`
}

type CreateMachineRequest struct {
	MachineCode       string `json:"machine_code" validate:"required"`
	TypeID            int64  `json:"type_id" validate:"required"`
	InstallationDate  string `json:"installation_date" validate:"omitempty,datetime=2006-01-02"`
	PrimaryOperatorID *int64 `json:"primary_operator_id"`
	LocationSite      string `json:"location_site"`
	LocationBuilding  string `json:"location_building"`
	LocationFloor     string `json:"location_floor"`
	LocationDetails   string `json:"location_details"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=running idle maintenance offline breakdown"`
	Reason string `json:"reason"`
}

type AddHoursRequest struct {
	Hours float64 `json:"hours" validate:"required,gt=0"`
	Note  string  `json:"note"`
}
