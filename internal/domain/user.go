package domain

import "time"

type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleSupervisor UserRole = "supervisor"
	RoleTechnician UserRole = "technician"
	RoleInspector  UserRole = "inspector"
	RoleAnalyst    UserRole = "analyst"
	RoleOperator   UserRole = "operator"
)

// ValidRoles lists every role a user account may carry.
var ValidRoles = []UserRole{
	RoleAdmin,
	RoleSupervisor,
	RoleTechnician,
	RoleInspector,
	RoleAnalyst,
	RoleOperator,
}

func (r UserRole) Valid() bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

type User struct {
	ID           int64     `gorm:"primaryKey;column:id" json:"id"`
	Email        string    `gorm:"column:email;uniqueIndex" json:"email" validate:"required,email"`
	PasswordHash string    `gorm:"column:password_hash" json:"-"`
	Role         UserRole  `gorm:"column:role;index" json:"role"`
	Name         string    `gorm:"column:name" json:"name"`
	Phone        string    `gorm:"column:phone" json:"phone,omitempty"`
	EmployeeCode string    `gorm:"column:employee_code" json:"employee_code,omitempty"`
	IsActive     bool      `gorm:"column:is_active;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "users" }

// Actor identifies who performs an operation. Services never read ambient
// request state; the request layer builds an Actor from the JWT claims and
// passes it in.
type Actor struct {
	UserID int64
	Role   UserRole
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }
