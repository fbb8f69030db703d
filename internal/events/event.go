package events

import (
	"time"

	"texpro/internal/domain"
	"texpro/internal/domain/notification"
)

// Kind names one domain event. The set is closed; routing and priority are
// declared per kind below.
type Kind string

const (
	WorkflowStarted   Kind = "workflow.started"
	WorkflowCompleted Kind = "workflow.completed"
	WorkflowDelayed   Kind = "workflow.delayed"
	WorkflowCancelled Kind = "workflow.cancelled"

	MachineBreakdown     Kind = "machine.breakdown"
	MachineBackOnline    Kind = "machine.back_online"
	MachineMaintenanceDue Kind = "machine.maintenance_due"

	MaintenanceScheduled Kind = "maintenance.scheduled"
	MaintenanceCompleted Kind = "maintenance.completed"
	MaintenanceOverdue   Kind = "maintenance.overdue"

	QualityCheckFailed Kind = "quality.check_failed"

	AllocationCreated   Kind = "allocation.created"
	AllocationConflict  Kind = "allocation.conflict"
	AllocationCompleted Kind = "allocation.completed"
)

// EntityRef names the entity an event is about.
type EntityRef struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
}

// Event is one buffered domain event.
type Event struct {
	Kind      Kind           `json:"kind"`
	Entity    EntityRef      `json:"entity"`
	Actor     domain.Actor   `json:"-"`
	Timestamp time.Time      `json:"timestamp"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Payload   map[string]any `json:"payload,omitempty"`

	// ExtraRecipients are delivered to in addition to the role-routed set
	// (e.g. the batch creator for workflow events).
	ExtraRecipients []int64 `json:"-"`
}

// kindType maps an event kind to the notification type shown to recipients.
func kindType(k Kind) notification.Type {
	switch k {
	case WorkflowStarted, WorkflowCompleted, WorkflowDelayed, WorkflowCancelled:
		return notification.TypeWorkflow
	case MachineBreakdown, MachineBackOnline, MachineMaintenanceDue:
		return notification.TypeMachine
	case MaintenanceScheduled, MaintenanceCompleted, MaintenanceOverdue:
		return notification.TypeMaintenance
	case QualityCheckFailed:
		return notification.TypeQuality
	case AllocationCreated, AllocationConflict, AllocationCompleted:
		return notification.TypeAllocation
	}
	return notification.TypeSystem
}

// kindPriority is fixed per kind; suppression policy keys off it downstream.
var kindPriority = map[Kind]notification.Priority{
	WorkflowStarted:   notification.PriorityNormal,
	WorkflowCompleted: notification.PriorityNormal,
	WorkflowDelayed:   notification.PriorityHigh,
	WorkflowCancelled: notification.PriorityNormal,

	MachineBreakdown:      notification.PriorityCritical,
	MachineBackOnline:     notification.PriorityNormal,
	MachineMaintenanceDue: notification.PriorityHigh,

	MaintenanceScheduled: notification.PriorityNormal,
	MaintenanceCompleted: notification.PriorityNormal,
	MaintenanceOverdue:   notification.PriorityHigh,

	QualityCheckFailed: notification.PriorityHigh,

	AllocationCreated:   notification.PriorityLow,
	AllocationConflict:  notification.PriorityNormal,
	AllocationCompleted: notification.PriorityLow,
}

// kindRoles declares which roles receive each kind.
var kindRoles = map[Kind][]domain.UserRole{
	WorkflowStarted:   {domain.RoleAdmin, domain.RoleSupervisor},
	WorkflowCompleted: {domain.RoleAdmin, domain.RoleSupervisor},
	WorkflowDelayed:   {domain.RoleAdmin, domain.RoleSupervisor},
	WorkflowCancelled: {domain.RoleAdmin, domain.RoleSupervisor},

	MachineBreakdown:      {domain.RoleAdmin, domain.RoleSupervisor, domain.RoleTechnician},
	MachineBackOnline:     {domain.RoleAdmin, domain.RoleSupervisor, domain.RoleTechnician},
	MachineMaintenanceDue: {domain.RoleAdmin, domain.RoleSupervisor, domain.RoleTechnician},

	MaintenanceScheduled: {domain.RoleAdmin, domain.RoleSupervisor, domain.RoleTechnician},
	MaintenanceCompleted: {domain.RoleAdmin, domain.RoleSupervisor, domain.RoleTechnician},
	MaintenanceOverdue:   {domain.RoleAdmin, domain.RoleSupervisor, domain.RoleTechnician},

	QualityCheckFailed: {domain.RoleAdmin, domain.RoleSupervisor, domain.RoleInspector},

	AllocationCreated:   {domain.RoleAdmin, domain.RoleSupervisor},
	AllocationConflict:  {domain.RoleAdmin, domain.RoleSupervisor},
	AllocationCompleted: {domain.RoleAdmin, domain.RoleSupervisor},
}

// Priority returns the fixed priority for a kind.
func (k Kind) Priority() notification.Priority {
	if p, ok := kindPriority[k]; ok {
		return p
	}
	return notification.PriorityNormal
}

// Roles returns the role routing for a kind.
func (k Kind) Roles() []domain.UserRole {
	return kindRoles[k]
}
