package machine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"texpro/internal/domain"
	"texpro/internal/events"
	"texpro/internal/pkg/clock"
	"texpro/internal/repository"
)

// casRetries bounds optimistic-concurrency retries on one machine record.
const casRetries = 5

// maxHoursDelta caps a single hour-meter increment at one day of operation.
const maxHoursDelta = 24.0

type Service struct {
	db          *gorm.DB
	machines    *repository.MachineRepository
	types       *repository.MachineTypeRepository
	maintenance *repository.MaintenanceRepository
	dispatcher  *events.Dispatcher
	clock       clock.Clock
}

func NewService(
	db *gorm.DB,
	machines *repository.MachineRepository,
	types *repository.MachineTypeRepository,
	maintenance *repository.MaintenanceRepository,
	dispatcher *events.Dispatcher,
	clk clock.Clock,
) *Service {
	return &Service{
		db:          db,
		machines:    machines,
		types:       types,
		maintenance: maintenance,
		dispatcher:  dispatcher,
		clock:       clk,
	}
}

type CreateMachineInput struct {
	MachineCode       string
	TypeID            int64
	InstallationDate  *string // 2006-01-02
	PrimaryOperatorID *int64
	LocationSite      string
	LocationBuilding  string
	LocationFloor     string
	LocationDetails   string
}

func (s *Service) CreateType(ctx context.Context, t *domain.MachineType) (*domain.MachineType, error) {
	if t.Name == "" {
		return nil, &domain.ConstraintViolationError{Field: "name", Reason: "required"}
	}
	if t.RecommendedIntervalDays != nil && *t.RecommendedIntervalDays <= 0 {
		return nil, &domain.ConstraintViolationError{Field: "recommended_interval_days", Reason: "must be positive"}
	}
	if t.RecommendedIntervalHrs != nil && *t.RecommendedIntervalHrs <= 0 {
		return nil, &domain.ConstraintViolationError{Field: "recommended_interval_hours", Reason: "must be positive"}
	}
	if err := s.types.Create(ctx, t); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, &domain.ConstraintViolationError{Field: "name", Reason: "already exists"}
		}
		return nil, err
	}
	return t, nil
}

func (s *Service) ListTypes(ctx context.Context) ([]domain.MachineType, error) {
	return s.types.List(ctx)
}

func (s *Service) Create(ctx context.Context, actor domain.Actor, in CreateMachineInput) (*domain.Machine, error) {
	code := domain.NormalizeMachineCode(in.MachineCode)
	if code == "" {
		return nil, &domain.ConstraintViolationError{Field: "machine_code", Reason: "required"}
	}
	if _, err := s.types.GetByID(ctx, in.TypeID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.ConstraintViolationError{Field: "type_id", Reason: "unknown machine type"}
		}
		return nil, err
	}

	m := &domain.Machine{
		MachineCode:       code,
		TypeID:            in.TypeID,
		OperationalStatus: domain.MachineIdle,
		PrimaryOperatorID: in.PrimaryOperatorID,
		LocationSite:      in.LocationSite,
		LocationBuilding:  in.LocationBuilding,
		LocationFloor:     in.LocationFloor,
		LocationDetails:   in.LocationDetails,
	}
	if in.InstallationDate != nil {
		d, err := clock.ParseDate(*in.InstallationDate)
		if err != nil {
			return nil, &domain.ConstraintViolationError{Field: "installation_date", Reason: "invalid date"}
		}
		m.InstallationDate = &d
	}

	if err := s.machines.Create(ctx, m); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, &domain.ConstraintViolationError{Field: "machine_code", Reason: "already exists"}
		}
		return nil, err
	}
	return m, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Machine, error) {
	return s.machines.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]domain.Machine, error) {
	return s.machines.List(ctx, limit, offset)
}

// UpdateStatus changes the operational status, recording the reason in the
// machine notes. Breakdown, offline and maintenance require a reason;
// leaving breakdown for running or idle emits a back_online event.
func (s *Service) UpdateStatus(ctx context.Context, actor domain.Actor, id int64, newStatus domain.MachineStatus, reason string) (*domain.Machine, error) {
	if !newStatus.Valid() {
		return nil, &domain.ConstraintViolationError{Field: "operational_status", Reason: "unknown status"}
	}
	if domain.StatusChangeNeedsReason(newStatus) && reason == "" {
		return nil, &domain.ConstraintViolationError{Field: "reason", Reason: "required"}
	}

	// A machine in maintenance must be backed by an open maintenance log.
	if newStatus == domain.MachineMaintenance {
		open, err := s.maintenance.CountOpenForMachine(ctx, id, 0)
		if err != nil {
			return nil, err
		}
		if open == 0 {
			return nil, &domain.ConstraintViolationError{Field: "operational_status", Reason: "no open maintenance log for machine"}
		}
	}

	buf := events.NewBuffer(actor)
	var updated *domain.Machine

	err := s.withMachineRetry(ctx, id, func(m *domain.Machine) error {
		prev := m.OperationalStatus
		if prev == newStatus {
			updated = m
			return nil
		}

		m.OperationalStatus = newStatus
		now := s.clock.Now()
		if reason != "" {
			m.AppendNote(now, fmt.Sprintf("status %s -> %s: %s", prev, newStatus, reason))
		} else {
			m.AppendNote(now, fmt.Sprintf("status %s -> %s", prev, newStatus))
		}

		if err := s.machines.UpdateVersioned(ctx, m); err != nil {
			return err
		}
		updated = m

		buf = events.NewBuffer(actor)
		switch {
		case newStatus == domain.MachineBreakdown:
			buf.Emit(events.Event{
				Kind:    events.MachineBreakdown,
				Entity:  events.EntityRef{Type: "machine", ID: m.ID},
				Title:   "Machine breakdown",
				Message: fmt.Sprintf("Machine %s reported broken down: %s", m.MachineCode, reason),
				Payload: map[string]any{"machine_code": m.MachineCode, "reason": reason},
			})
		case prev == domain.MachineBreakdown && (newStatus == domain.MachineRunning || newStatus == domain.MachineIdle):
			buf.Emit(events.Event{
				Kind:    events.MachineBackOnline,
				Entity:  events.EntityRef{Type: "machine", ID: m.ID},
				Title:   "Machine back online",
				Message: fmt.Sprintf("Machine %s is back online", m.MachineCode),
				Payload: map[string]any{"machine_code": m.MachineCode},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Flush(ctx, buf)
	return updated, nil
}

// AddOperatingHours increments the hour meter. Both total and
// since-maintenance counters move by the same delta; concurrent updates
// serialize through the version CAS.
func (s *Service) AddOperatingHours(ctx context.Context, actor domain.Actor, id int64, delta float64, note string) (*domain.Machine, error) {
	if delta <= 0 || delta > maxHoursDelta {
		return nil, &domain.ConstraintViolationError{Field: "hours", Reason: "must be in (0, 24]"}
	}

	var updated *domain.Machine
	err := s.withMachineRetry(ctx, id, func(m *domain.Machine) error {
		m.TotalOperatingHours += delta
		m.HoursSinceMaintenance += delta
		if note != "" {
			m.AppendNote(s.clock.Now(), note)
		}
		if err := s.machines.UpdateVersioned(ctx, m); err != nil {
			return err
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ResetSinceMaintenance zeroes the since-maintenance counter and stamps the
// last maintenance date. The maintenance module applies it on completion and
// persists the machine within its own transaction.
func ResetSinceMaintenance(m *domain.Machine, at time.Time) {
	m.HoursSinceMaintenance = 0
	d := clock.DateOf(at)
	m.LastMaintenanceDate = &d
}

// withMachineRetry reloads and reapplies fn on version conflicts, up to
// casRetries attempts.
func (s *Service) withMachineRetry(ctx context.Context, id int64, fn func(*domain.Machine) error) error {
	var err error
	for attempt := 0; attempt < casRetries; attempt++ {
		var m *domain.Machine
		m, err = s.machines.GetByID(ctx, id)
		if err != nil {
			return err
		}
		err = fn(m)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrConflictingWrite) {
			return err
		}
	}
	return err
}
