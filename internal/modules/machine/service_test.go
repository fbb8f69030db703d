package machine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"texpro/internal/domain"
	"texpro/internal/domain/notification"
	"texpro/internal/events"
	"texpro/internal/pkg/clock"
	"texpro/internal/repository"
)

type captureSink struct {
	deliveries []notification.Delivery
}

func (s *captureSink) DeliverAll(ctx context.Context, userIDs []int64, d notification.Delivery) {
	s.deliveries = append(s.deliveries, d)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:machine_test_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(
		gormsqlite.New(gormsqlite.Config{DriverName: "sqlite", DSN: dsn}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.User{},
		&domain.MachineType{},
		&domain.Machine{},
		&domain.MaintenanceLog{},
	))
	return db
}

func newTestService(t *testing.T, db *gorm.DB) (*Service, *captureSink) {
	t.Helper()
	sink := &captureSink{}
	userRepo := repository.NewUserRepository(db)
	clk := clock.Fixed(time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC))
	dispatcher := events.NewDispatcher(userRepo, sink, clk)
	svc := NewService(
		db,
		repository.NewMachineRepository(db),
		repository.NewMachineTypeRepository(db),
		repository.NewMaintenanceRepository(db),
		dispatcher,
		clk,
	)
	return svc, sink
}

func seedType(t *testing.T, db *gorm.DB) *domain.MachineType {
	t.Helper()
	mt := &domain.MachineType{Name: "Ring Spinning Frame"}
	require.NoError(t, db.Create(mt).Error)
	return mt
}

func seedMachine(t *testing.T, db *gorm.DB, typeID int64, status domain.MachineStatus) *domain.Machine {
	t.Helper()
	m := &domain.Machine{MachineCode: "RSF-01", TypeID: typeID, OperationalStatus: status}
	require.NoError(t, db.Create(m).Error)
	return m
}

func TestCreateMachineNormalizesCode(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestService(t, db)
	ctx := context.Background()
	mt := seedType(t, db)
	actor := domain.Actor{UserID: 1, Role: domain.RoleAdmin}

	installed := "2023-06-15"
	m, err := svc.Create(ctx, actor, CreateMachineInput{MachineCode: " rsf-07 ", TypeID: mt.ID, InstallationDate: &installed})
	require.NoError(t, err)
	assert.Equal(t, "RSF-07", m.MachineCode)
	assert.Equal(t, domain.MachineIdle, m.OperationalStatus)
	require.NotNil(t, m.InstallationDate)
	assert.Equal(t, time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC), *m.InstallationDate)

	_, err = svc.Create(ctx, actor, CreateMachineInput{MachineCode: "RSF-07", TypeID: mt.ID})
	var constraint *domain.ConstraintViolationError
	require.Error(t, err)
	require.True(t, errors.As(err, &constraint))
	assert.Equal(t, "machine_code", constraint.Field)

	_, err = svc.Create(ctx, actor, CreateMachineInput{MachineCode: "RSF-08", TypeID: 999})
	require.True(t, errors.As(err, &constraint))
	assert.Equal(t, "type_id", constraint.Field)
}

func TestUpdateStatusRequiresReason(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestService(t, db)
	ctx := context.Background()
	mt := seedType(t, db)
	m := seedMachine(t, db, mt.ID, domain.MachineRunning)
	actor := domain.Actor{UserID: 1, Role: domain.RoleSupervisor}

	var constraint *domain.ConstraintViolationError
	for _, target := range []domain.MachineStatus{domain.MachineBreakdown, domain.MachineOffline, domain.MachineMaintenance} {
		_, err := svc.UpdateStatus(ctx, actor, m.ID, target, "")
		require.Error(t, err, string(target))
		require.True(t, errors.As(err, &constraint))
		assert.Equal(t, "reason", constraint.Field)
	}

	// Idle needs no reason.
	updated, err := svc.UpdateStatus(ctx, actor, m.ID, domain.MachineIdle, "")
	require.NoError(t, err)
	assert.Equal(t, domain.MachineIdle, updated.OperationalStatus)
	assert.Contains(t, updated.Notes, "status running -> idle")
}

func TestUpdateStatusMaintenanceNeedsOpenLog(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestService(t, db)
	ctx := context.Background()
	mt := seedType(t, db)
	m := seedMachine(t, db, mt.ID, domain.MachineRunning)
	actor := domain.Actor{UserID: 1, Role: domain.RoleSupervisor}

	_, err := svc.UpdateStatus(ctx, actor, m.ID, domain.MachineMaintenance, "scheduled service")
	var constraint *domain.ConstraintViolationError
	require.Error(t, err)
	require.True(t, errors.As(err, &constraint))
	assert.Equal(t, "operational_status", constraint.Field)

	log := &domain.MaintenanceLog{MachineID: m.ID, Status: domain.MaintenancePending, IssueReported: "bearing noise", ReportedAt: time.Now().UTC()}
	require.NoError(t, db.Create(log).Error)

	updated, err := svc.UpdateStatus(ctx, actor, m.ID, domain.MachineMaintenance, "scheduled service")
	require.NoError(t, err)
	assert.Equal(t, domain.MachineMaintenance, updated.OperationalStatus)
}

func TestBreakdownAndBackOnlineEvents(t *testing.T) {
	db := setupTestDB(t)
	svc, sink := newTestService(t, db)
	ctx := context.Background()
	mt := seedType(t, db)
	m := seedMachine(t, db, mt.ID, domain.MachineRunning)

	tech := &domain.User{Email: "tech@mill.local", Role: domain.RoleTechnician, IsActive: true}
	require.NoError(t, db.Create(tech).Error)
	actor := domain.Actor{UserID: 99, Role: domain.RoleSupervisor}

	_, err := svc.UpdateStatus(ctx, actor, m.ID, domain.MachineBreakdown, "snapped drive belt")
	require.NoError(t, err)
	require.Len(t, sink.deliveries, 1)
	assert.Equal(t, notification.PriorityCritical, sink.deliveries[0].Priority)
	assert.Contains(t, sink.deliveries[0].Message, "snapped drive belt")

	_, err = svc.UpdateStatus(ctx, actor, m.ID, domain.MachineRunning, "")
	require.NoError(t, err)
	require.Len(t, sink.deliveries, 2)
	assert.Equal(t, notification.PriorityNormal, sink.deliveries[1].Priority)
	assert.Contains(t, sink.deliveries[1].Message, "back online")
}

func TestUpdateStatusNoopKeepsNotes(t *testing.T) {
	db := setupTestDB(t)
	svc, sink := newTestService(t, db)
	ctx := context.Background()
	mt := seedType(t, db)
	m := seedMachine(t, db, mt.ID, domain.MachineIdle)
	actor := domain.Actor{UserID: 1, Role: domain.RoleSupervisor}

	updated, err := svc.UpdateStatus(ctx, actor, m.ID, domain.MachineIdle, "")
	require.NoError(t, err)
	assert.Empty(t, updated.Notes)
	assert.Empty(t, sink.deliveries)
}

func TestAddOperatingHours(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestService(t, db)
	ctx := context.Background()
	mt := seedType(t, db)
	m := seedMachine(t, db, mt.ID, domain.MachineRunning)
	actor := domain.Actor{UserID: 1, Role: domain.RoleOperator}

	var constraint *domain.ConstraintViolationError
	for _, delta := range []float64{0, -2, 24.5} {
		_, err := svc.AddOperatingHours(ctx, actor, m.ID, delta, "")
		require.Error(t, err)
		require.True(t, errors.As(err, &constraint))
		assert.Equal(t, "hours", constraint.Field)
	}

	updated, err := svc.AddOperatingHours(ctx, actor, m.ID, 8, "day shift")
	require.NoError(t, err)
	assert.InDelta(t, 8.0, updated.TotalOperatingHours, 0.001)
	assert.InDelta(t, 8.0, updated.HoursSinceMaintenance, 0.001)
	assert.Contains(t, updated.Notes, "day shift")

	updated, err = svc.AddOperatingHours(ctx, actor, m.ID, 6.5, "")
	require.NoError(t, err)
	assert.InDelta(t, 14.5, updated.TotalOperatingHours, 0.001)
	assert.InDelta(t, 14.5, updated.HoursSinceMaintenance, 0.001)
}

func TestResetSinceMaintenance(t *testing.T) {
	m := &domain.Machine{TotalOperatingHours: 120, HoursSinceMaintenance: 45}
	at := time.Date(2024, 3, 10, 14, 25, 0, 0, time.UTC)

	ResetSinceMaintenance(m, at)

	assert.InDelta(t, 0.0, m.HoursSinceMaintenance, 0.001)
	assert.InDelta(t, 120.0, m.TotalOperatingHours, 0.001)
	require.NotNil(t, m.LastMaintenanceDate)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), *m.LastMaintenanceDate)
}

func TestAppendNoteOrdering(t *testing.T) {
	m := &domain.Machine{}
	m.AppendNote(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), "first")
	m.AppendNote(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), "second")

	lines := strings.Split(m.Notes, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[2024-03-01 08:00] first", lines[0])
	assert.Equal(t, "[2024-03-01 09:00] second", lines[1])
}
