package maintenance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"texpro/internal/domain"
	"texpro/internal/events"
	"texpro/internal/modules/machine"
	"texpro/internal/pkg/clock"
	"texpro/internal/repository"
)

const casRetries = 5

type Service struct {
	db          *gorm.DB
	maintenance *repository.MaintenanceRepository
	machines    *repository.MachineRepository
	users       *repository.UserRepository
	predictor   *Predictor
	scheduler   *Scheduler
	dispatcher  *events.Dispatcher
	clock       clock.Clock
}

func NewService(
	db *gorm.DB,
	maintenance *repository.MaintenanceRepository,
	machines *repository.MachineRepository,
	users *repository.UserRepository,
	predictor *Predictor,
	scheduler *Scheduler,
	dispatcher *events.Dispatcher,
	clk clock.Clock,
) *Service {
	return &Service{
		db:          db,
		maintenance: maintenance,
		machines:    machines,
		users:       users,
		predictor:   predictor,
		scheduler:   scheduler,
		dispatcher:  dispatcher,
		clock:       clk,
	}
}

// Open reports a new issue on a machine and assigns a technician. The log
// starts pending; the machine itself is not touched here.
func (s *Service) Open(ctx context.Context, actor domain.Actor, machineID, technicianID int64, issue string, priority domain.MaintenancePriority) (*domain.MaintenanceLog, error) {
	issue = strings.TrimSpace(issue)
	if issue == "" {
		return nil, &domain.ConstraintViolationError{Field: "issue_reported", Reason: "required"}
	}
	if !priority.Valid() {
		return nil, &domain.ConstraintViolationError{Field: "priority", Reason: "unknown priority"}
	}

	machine, err := s.machines.GetByID(ctx, machineID)
	if err != nil {
		return nil, err
	}

	tech, err := s.users.GetByID(ctx, technicianID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.ConstraintViolationError{Field: "technician_id", Reason: "unknown user"}
		}
		return nil, err
	}
	if tech.Role != domain.RoleTechnician && tech.Role != domain.RoleAdmin {
		return nil, &domain.ConstraintViolationError{Field: "technician_id", Reason: "user is not a technician"}
	}

	l := &domain.MaintenanceLog{
		MachineID:     machineID,
		TechnicianID:  technicianID,
		Priority:      priority,
		Status:        domain.MaintenancePending,
		IssueReported: issue,
		ReportedAt:    s.clock.Now(),
	}
	if err := s.maintenance.Create(ctx, l); err != nil {
		return nil, err
	}

	buf := events.NewBuffer(actor)
	buf.Emit(events.Event{
		Kind:            events.MaintenanceScheduled,
		Entity:          events.EntityRef{Type: "maintenance_log", ID: l.ID},
		Title:           "Maintenance scheduled",
		Message:         fmt.Sprintf("Maintenance opened for machine %s: %s", machine.MachineCode, issue),
		Payload:         map[string]any{"machine_code": machine.MachineCode, "priority": string(priority)},
		ExtraRecipients: []int64{technicianID},
	})
	s.dispatcher.Flush(ctx, buf)
	return l, nil
}

// AdvancePatch carries the mutable fields of an in-flight log.
type AdvancePatch struct {
	Status        *domain.MaintenanceStatus
	ActionTaken   *string
	DowntimeHours *float64
	Cost          *float64
	PartsReplaced *string
	Notes         *string
}

// Advance applies a patch, including a status transition when requested.
// Completion must go through Complete so the hour meter and machine status
// are reconciled; Advance refuses the completed target without action_taken
// and otherwise delegates.
func (s *Service) Advance(ctx context.Context, actor domain.Actor, id int64, patch AdvancePatch) (*domain.MaintenanceLog, error) {
	if patch.Status != nil && *patch.Status == domain.MaintenanceCompleted {
		action := ""
		if patch.ActionTaken != nil {
			action = *patch.ActionTaken
		}
		in := CompleteInput{Action: action}
		if patch.DowntimeHours != nil {
			in.DowntimeHours = *patch.DowntimeHours
		}
		if patch.Cost != nil {
			in.Cost = *patch.Cost
		}
		if patch.PartsReplaced != nil {
			in.PartsReplaced = *patch.PartsReplaced
		}
		if patch.Notes != nil {
			in.Notes = *patch.Notes
		}
		return s.Complete(ctx, actor, id, in)
	}

	var updated *domain.MaintenanceLog
	err := s.withLogRetry(ctx, id, func(l *domain.MaintenanceLog) error {
		if patch.ActionTaken != nil {
			l.ActionTaken = strings.TrimSpace(*patch.ActionTaken)
		}
		if patch.DowntimeHours != nil {
			if *patch.DowntimeHours < 0 {
				return &domain.ConstraintViolationError{Field: "downtime_hours", Reason: "must be non-negative"}
			}
			l.DowntimeHours = *patch.DowntimeHours
		}
		if patch.Cost != nil {
			if *patch.Cost < 0 {
				return &domain.ConstraintViolationError{Field: "cost", Reason: "must be non-negative"}
			}
			l.Cost = *patch.Cost
		}
		if patch.PartsReplaced != nil {
			l.PartsReplaced = *patch.PartsReplaced
		}
		if patch.Notes != nil {
			l.Notes = *patch.Notes
		}
		if patch.Status != nil {
			if err := domain.AttemptMaintenanceTransition(l, *patch.Status, s.clock.Now()); err != nil {
				return err
			}
		}
		if err := s.maintenance.UpdateVersioned(ctx, l); err != nil {
			return err
		}
		updated = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// CompleteInput carries the closing details of one intervention.
type CompleteInput struct {
	Action        string
	DowntimeHours float64
	Cost          float64
	PartsReplaced string
	Notes         string
}

// Complete transitions the log to completed, resets the machine's
// since-maintenance hour counter, stamps a fresh next-due prediction on the
// log, and returns the machine from maintenance status to idle when no other
// open logs remain. All writes share one transaction.
func (s *Service) Complete(ctx context.Context, actor domain.Actor, id int64, in CompleteInput) (*domain.MaintenanceLog, error) {
	in.Action = strings.TrimSpace(in.Action)
	if in.Action == "" {
		return nil, &domain.ConstraintViolationError{Field: "action_taken", Reason: "required"}
	}
	if in.DowntimeHours < 0 {
		return nil, &domain.ConstraintViolationError{Field: "downtime_hours", Reason: "must be non-negative"}
	}
	if in.Cost < 0 {
		return nil, &domain.ConstraintViolationError{Field: "cost", Reason: "must be non-negative"}
	}

	var completed *domain.MaintenanceLog
	var machineCode string
	var backToIdle bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		logs := s.maintenance.WithTx(tx)
		machines := s.machines.WithTx(tx)

		l, err := logs.GetByID(ctx, id)
		if err != nil {
			return err
		}

		l.ActionTaken = in.Action
		l.DowntimeHours = in.DowntimeHours
		l.Cost = in.Cost
		if in.PartsReplaced != "" {
			l.PartsReplaced = in.PartsReplaced
		}
		if in.Notes != "" {
			l.Notes = in.Notes
		}
		if err := domain.AttemptMaintenanceTransition(l, domain.MaintenanceCompleted, s.clock.Now()); err != nil {
			return err
		}

		m, err := machines.GetByID(ctx, l.MachineID)
		if err != nil {
			return err
		}
		machineCode = m.MachineCode

		machine.ResetSinceMaintenance(m, *l.ResolvedAt)

		// Reconcile machine status: leave maintenance once the last open
		// log for the machine closes.
		open, err := logs.CountOpenForMachine(ctx, m.ID, l.ID)
		if err != nil {
			return err
		}
		if open == 0 && m.OperationalStatus == domain.MachineMaintenance {
			m.OperationalStatus = domain.MachineIdle
			backToIdle = true
		}

		// Advisory next-due stamp for reports; recomputed on read elsewhere.
		if pred, err := NewPredictor(logs, s.predictor.types, s.clock).NextDueDate(ctx, m); err == nil {
			l.NextDueDate = &pred.NextDue
			m.NextMaintenanceDate = &pred.NextDue
		}

		if err := machines.UpdateVersioned(ctx, m); err != nil {
			return err
		}
		if err := logs.UpdateVersioned(ctx, l); err != nil {
			return err
		}
		completed = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.scheduler != nil {
		s.scheduler.InvalidateSweep()
	}

	buf := events.NewBuffer(actor)
	buf.Emit(events.Event{
		Kind:    events.MaintenanceCompleted,
		Entity:  events.EntityRef{Type: "maintenance_log", ID: completed.ID},
		Title:   "Maintenance completed",
		Message: fmt.Sprintf("Maintenance on machine %s completed: %s", machineCode, in.Action),
		Payload: map[string]any{"machine_code": machineCode},
	})
	if backToIdle {
		buf.Emit(events.Event{
			Kind:    events.MachineBackOnline,
			Entity:  events.EntityRef{Type: "machine", ID: completed.MachineID},
			Title:   "Machine back online",
			Message: fmt.Sprintf("Machine %s left maintenance", machineCode),
			Payload: map[string]any{"machine_code": machineCode},
		})
	}
	s.dispatcher.Flush(ctx, buf)

	return completed, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.MaintenanceLog, error) {
	return s.maintenance.GetByID(ctx, id)
}

func (s *Service) ListByMachine(ctx context.Context, machineID int64, limit, offset int) ([]domain.MaintenanceLog, error) {
	return s.maintenance.ListByMachine(ctx, machineID, limit, offset)
}

// FlagOverdue surfaces open logs older than maxAge and emits one overdue
// event per flagged log.
func (s *Service) FlagOverdue(ctx context.Context, actor domain.Actor, maxAge time.Duration) ([]int64, error) {
	ids, err := s.scheduler.FlagOverdueLogs(ctx, maxAge)
	if err != nil {
		return nil, err
	}

	buf := events.NewBuffer(actor)
	for _, id := range ids {
		buf.Emit(events.Event{
			Kind:    events.MaintenanceOverdue,
			Entity:  events.EntityRef{Type: "maintenance_log", ID: id},
			Title:   "Maintenance overdue",
			Message: fmt.Sprintf("Maintenance log %d has been open for more than %s", id, maxAge),
		})
	}
	s.dispatcher.Flush(ctx, buf)
	return ids, nil
}

func (s *Service) withLogRetry(ctx context.Context, id int64, fn func(*domain.MaintenanceLog) error) error {
	var err error
	for attempt := 0; attempt < casRetries; attempt++ {
		var l *domain.MaintenanceLog
		l, err = s.maintenance.GetByID(ctx, id)
		if err != nil {
			return err
		}
		err = fn(l)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrConflictingWrite) {
			return err
		}
	}
	return err
}
