package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"texpro/internal/domain"
	"texpro/internal/domain/notification"
	"texpro/internal/events"
	"texpro/internal/pkg/clock"
	"texpro/internal/repository"
)

type capturedDelivery struct {
	UserIDs  []int64
	Delivery notification.Delivery
}

type captureSink struct {
	deliveries []capturedDelivery
}

func (s *captureSink) DeliverAll(ctx context.Context, userIDs []int64, d notification.Delivery) {
	s.deliveries = append(s.deliveries, capturedDelivery{UserIDs: userIDs, Delivery: d})
}

func newTestService(t *testing.T, db *gorm.DB, now time.Time) (*Service, *captureSink) {
	t.Helper()
	maintenanceRepo := repository.NewMaintenanceRepository(db)
	machineRepo := repository.NewMachineRepository(db)
	typeRepo := repository.NewMachineTypeRepository(db)
	userRepo := repository.NewUserRepository(db)
	clk := clock.Fixed(now)

	predictor := NewPredictor(maintenanceRepo, typeRepo, clk)
	sched := NewScheduler(machineRepo, maintenanceRepo, predictor, clk)
	sink := &captureSink{}
	dispatcher := events.NewDispatcher(userRepo, sink, clk)

	return NewService(db, maintenanceRepo, machineRepo, userRepo, predictor, sched, dispatcher, clk), sink
}

func seedUser(t *testing.T, db *gorm.DB, email string, role domain.UserRole) *domain.User {
	t.Helper()
	u := &domain.User{Email: email, Role: role, Name: email, IsActive: true}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedMachine(t *testing.T, db *gorm.DB, code string, typeID int64, status domain.MachineStatus) *domain.Machine {
	t.Helper()
	m := &domain.Machine{MachineCode: code, TypeID: typeID, OperationalStatus: status}
	require.NoError(t, db.Create(m).Error)
	return m
}

func TestOpenMaintenanceValidatesTechnician(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, db, now)
	ctx := context.Background()

	days30 := 30
	mt := seedType(t, db, &days30, nil)
	m := seedMachine(t, db, "RSF-001", mt.ID, domain.MachineRunning)
	operator := seedUser(t, db, "op@mill.local", domain.RoleOperator)
	actor := domain.Actor{UserID: 99, Role: domain.RoleSupervisor}

	_, err := svc.Open(ctx, actor, m.ID, operator.ID, "spindle vibration", domain.PriorityHigh)
	var constraint *domain.ConstraintViolationError
	require.Error(t, err)
	require.True(t, errors.As(err, &constraint))
	assert.Equal(t, "technician_id", constraint.Field)

	_, err = svc.Open(ctx, actor, m.ID, 12345, "spindle vibration", domain.PriorityHigh)
	require.True(t, errors.As(err, &constraint))
	assert.Equal(t, "technician_id", constraint.Field)
}

func TestOpenMaintenanceRejectsEmptyIssue(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, db, now)

	days30 := 30
	mt := seedType(t, db, &days30, nil)
	m := seedMachine(t, db, "RSF-001", mt.ID, domain.MachineRunning)
	tech := seedUser(t, db, "tech@mill.local", domain.RoleTechnician)

	_, err := svc.Open(context.Background(), domain.Actor{UserID: 1}, m.ID, tech.ID, "   ", domain.PriorityLow)
	var constraint *domain.ConstraintViolationError
	require.Error(t, err)
	require.True(t, errors.As(err, &constraint))
	assert.Equal(t, "issue_reported", constraint.Field)
}

func TestOpenMaintenanceCreatesPendingLogAndNotifies(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	svc, sink := newTestService(t, db, now)

	days30 := 30
	mt := seedType(t, db, &days30, nil)
	m := seedMachine(t, db, "RSF-001", mt.ID, domain.MachineRunning)
	tech := seedUser(t, db, "tech@mill.local", domain.RoleTechnician)
	supervisor := seedUser(t, db, "sup@mill.local", domain.RoleSupervisor)
	actor := domain.Actor{UserID: supervisor.ID, Role: domain.RoleSupervisor}

	l, err := svc.Open(context.Background(), actor, m.ID, tech.ID, "spindle vibration", domain.PriorityHigh)
	require.NoError(t, err)
	assert.Equal(t, domain.MaintenancePending, l.Status)
	assert.Equal(t, now, l.ReportedAt)
	assert.Nil(t, l.ResolvedAt)

	require.Len(t, sink.deliveries, 1)
	assert.Equal(t, notification.TypeMaintenance, sink.deliveries[0].Delivery.Type)
	// The technician is routed to; the acting supervisor is not.
	assert.Contains(t, sink.deliveries[0].UserIDs, tech.ID)
	assert.NotContains(t, sink.deliveries[0].UserIDs, supervisor.ID)
}

func TestCompleteMaintenanceResetsHourMeterAndMachineStatus(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	svc, sink := newTestService(t, db, now)
	ctx := context.Background()

	days30 := 30
	mt := seedType(t, db, &days30, nil)
	tech := seedUser(t, db, "tech@mill.local", domain.RoleTechnician)

	m := &domain.Machine{
		MachineCode:           "RSF-001",
		TypeID:                mt.ID,
		OperationalStatus:     domain.MachineMaintenance,
		TotalOperatingHours:   4200,
		HoursSinceMaintenance: 310,
	}
	require.NoError(t, db.Create(m).Error)

	log := &domain.MaintenanceLog{
		MachineID: m.ID, TechnicianID: tech.ID, Status: domain.MaintenanceInProgress,
		IssueReported: "bearing wear", ReportedAt: now.Add(-6 * time.Hour),
	}
	require.NoError(t, db.Create(log).Error)

	actor := domain.Actor{UserID: 99, Role: domain.RoleAdmin}
	completed, err := svc.Complete(ctx, actor, log.ID, CompleteInput{
		Action:        "replaced bearing",
		DowntimeHours: 6,
		Cost:          250,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MaintenanceCompleted, completed.Status)
	require.NotNil(t, completed.ResolvedAt)
	assert.Equal(t, now, *completed.ResolvedAt)

	var reloaded domain.Machine
	require.NoError(t, db.First(&reloaded, m.ID).Error)
	assert.Zero(t, reloaded.HoursSinceMaintenance)
	assert.Equal(t, 4200.0, reloaded.TotalOperatingHours)
	assert.Equal(t, domain.MachineIdle, reloaded.OperationalStatus)
	require.NotNil(t, reloaded.LastMaintenanceDate)
	assert.Equal(t, date(2024, 3, 10), *reloaded.LastMaintenanceDate)
	require.NotNil(t, reloaded.NextMaintenanceDate)

	// maintenance.completed plus machine back_online.
	require.Len(t, sink.deliveries, 2)
	assert.Equal(t, notification.TypeMaintenance, sink.deliveries[0].Delivery.Type)
	assert.Equal(t, notification.TypeMachine, sink.deliveries[1].Delivery.Type)
}

func TestCompleteMaintenanceKeepsMachineInMaintenanceWhileOtherLogsOpen(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, db, now)

	days30 := 30
	mt := seedType(t, db, &days30, nil)
	tech := seedUser(t, db, "tech@mill.local", domain.RoleTechnician)
	m := seedMachine(t, db, "RSF-001", mt.ID, domain.MachineMaintenance)

	first := &domain.MaintenanceLog{
		MachineID: m.ID, TechnicianID: tech.ID, Status: domain.MaintenanceInProgress,
		IssueReported: "bearing wear", ReportedAt: now.Add(-6 * time.Hour),
	}
	second := &domain.MaintenanceLog{
		MachineID: m.ID, TechnicianID: tech.ID, Status: domain.MaintenancePending,
		IssueReported: "belt tension", ReportedAt: now.Add(-3 * time.Hour),
	}
	require.NoError(t, db.Create(first).Error)
	require.NoError(t, db.Create(second).Error)

	_, err := svc.Complete(context.Background(), domain.Actor{UserID: 1}, first.ID, CompleteInput{Action: "replaced bearing"})
	require.NoError(t, err)

	var reloaded domain.Machine
	require.NoError(t, db.First(&reloaded, m.ID).Error)
	assert.Equal(t, domain.MachineMaintenance, reloaded.OperationalStatus)
}

func TestCompleteMaintenanceRequiresAction(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, db, now)

	_, err := svc.Complete(context.Background(), domain.Actor{UserID: 1}, 1, CompleteInput{Action: "  "})
	var constraint *domain.ConstraintViolationError
	require.Error(t, err)
	require.True(t, errors.As(err, &constraint))
	assert.Equal(t, "action_taken", constraint.Field)
}

func TestAdvanceMaintenanceTransitionsAndPatches(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, db, now)
	ctx := context.Background()

	days30 := 30
	mt := seedType(t, db, &days30, nil)
	tech := seedUser(t, db, "tech@mill.local", domain.RoleTechnician)
	m := seedMachine(t, db, "RSF-001", mt.ID, domain.MachineRunning)

	log := &domain.MaintenanceLog{
		MachineID: m.ID, TechnicianID: tech.ID, Status: domain.MaintenancePending,
		IssueReported: "noise", ReportedAt: now.Add(-time.Hour),
	}
	require.NoError(t, db.Create(log).Error)

	inProgress := domain.MaintenanceInProgress
	notes := "escalated to shift lead"
	updated, err := svc.Advance(ctx, domain.Actor{UserID: 1}, log.ID, AdvancePatch{Status: &inProgress, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, domain.MaintenanceInProgress, updated.Status)
	assert.Equal(t, notes, updated.Notes)

	// Completed logs accept no further transitions.
	action := "lubricated gearbox"
	completedStatus := domain.MaintenanceCompleted
	_, err = svc.Advance(ctx, domain.Actor{UserID: 1}, log.ID, AdvancePatch{Status: &completedStatus, ActionTaken: &action})
	require.NoError(t, err)

	backToPending := domain.MaintenancePending
	_, err = svc.Advance(ctx, domain.Actor{UserID: 1}, log.ID, AdvancePatch{Status: &backToPending})
	var illegal *domain.IllegalTransitionError
	require.Error(t, err)
	assert.True(t, errors.As(err, &illegal))
}
