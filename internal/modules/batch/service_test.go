package batch

import (
	"context"
	"errors"
	"fmt"
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
	dsn := fmt.Sprintf("file:batch_test_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(
		gormsqlite.New(gormsqlite.Config{DriverName: "sqlite", DSN: dsn}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.BatchWorkflow{}))
	return db
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestService(t *testing.T, db *gorm.DB, today time.Time) (*Service, *captureSink) {
	t.Helper()
	sink := &captureSink{}
	userRepo := repository.NewUserRepository(db)
	clk := clock.Fixed(today)
	dispatcher := events.NewDispatcher(userRepo, sink, clk)
	return NewService(db, repository.NewBatchRepository(db), userRepo, dispatcher, clk), sink
}

func seedSupervisor(t *testing.T, db *gorm.DB) *domain.User {
	t.Helper()
	u := &domain.User{Email: "sup@mill.local", Role: domain.RoleSupervisor, Name: "Supervisor", IsActive: true}
	require.NoError(t, db.Create(u).Error)
	return u
}

func TestCreateBatchValidation(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestService(t, db, date(2024, 3, 1))
	ctx := context.Background()
	sup := seedSupervisor(t, db)
	actor := domain.Actor{UserID: 1, Role: domain.RoleAdmin}

	_, err := svc.Create(ctx, actor, CreateInput{BatchCode: "   ", SupervisorID: sup.ID})
	assert.ErrorIs(t, err, ErrInvalidCode)

	_, err = svc.Create(ctx, actor, CreateInput{BatchCode: "B-1", SupervisorID: 999})
	assert.ErrorIs(t, err, ErrInvalidSupervisor)

	operator := &domain.User{Email: "op@mill.local", Role: domain.RoleOperator, IsActive: true}
	require.NoError(t, db.Create(operator).Error)
	_, err = svc.Create(ctx, actor, CreateInput{BatchCode: "B-1", SupervisorID: operator.ID})
	assert.ErrorIs(t, err, ErrInvalidSupervisor)

	start, end := date(2024, 3, 10), date(2024, 3, 5)
	_, err = svc.Create(ctx, actor, CreateInput{BatchCode: "B-1", SupervisorID: sup.ID, StartDate: &start, EndDate: &end})
	var constraint *domain.ConstraintViolationError
	require.Error(t, err)
	require.True(t, errors.As(err, &constraint))
	assert.Equal(t, "end_date", constraint.Field)
}

func TestCreateBatchNormalizesAndRejectsDuplicates(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestService(t, db, date(2024, 3, 1))
	ctx := context.Background()
	sup := seedSupervisor(t, db)
	actor := domain.Actor{UserID: 1, Role: domain.RoleAdmin}

	b, err := svc.Create(ctx, actor, CreateInput{BatchCode: "  batch-2024-001 ", SupervisorID: sup.ID})
	require.NoError(t, err)
	assert.Equal(t, "BATCH-2024-001", b.BatchCode)
	assert.Equal(t, domain.BatchPending, b.Status)
	assert.Equal(t, actor.UserID, b.CreatedByID)

	_, err = svc.Create(ctx, actor, CreateInput{BatchCode: "BATCH-2024-001", SupervisorID: sup.ID})
	assert.ErrorIs(t, err, ErrDuplicateCode)
}

func TestBatchLifecycle(t *testing.T) {
	db := setupTestDB(t)
	today := date(2024, 3, 1)
	svc, _ := newTestService(t, db, today)
	ctx := context.Background()
	sup := seedSupervisor(t, db)
	actor := domain.Actor{UserID: 1, Role: domain.RoleAdmin}

	b, err := svc.Create(ctx, actor, CreateInput{BatchCode: "B-100", SupervisorID: sup.ID})
	require.NoError(t, err)

	started, err := svc.Start(ctx, actor, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchInProgress, started.Status)
	require.NotNil(t, started.StartDate)
	assert.Equal(t, today, *started.StartDate)

	completed, err := svc.Complete(ctx, actor, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchCompleted, completed.Status)
	require.NotNil(t, completed.EndDate)
	assert.Equal(t, today, *completed.EndDate)

	_, err = svc.Start(ctx, actor, b.ID)
	var illegal *domain.IllegalTransitionError
	require.Error(t, err)
	require.True(t, errors.As(err, &illegal))
	assert.Equal(t, "completed", illegal.From)
	assert.Equal(t, "in_progress", illegal.To)
}

func TestCancelBatchRequiresReason(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestService(t, db, date(2024, 3, 1))
	ctx := context.Background()
	sup := seedSupervisor(t, db)
	actor := domain.Actor{UserID: 1, Role: domain.RoleAdmin}

	b, err := svc.Create(ctx, actor, CreateInput{BatchCode: "B-200", SupervisorID: sup.ID})
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, actor, b.ID, "  ")
	assert.ErrorIs(t, err, ErrReasonRequired)

	cancelled, err := svc.Cancel(ctx, actor, b.ID, "client withdrew the order")
	require.NoError(t, err)
	assert.Equal(t, domain.BatchCancelled, cancelled.Status)
	assert.Equal(t, "client withdrew the order", cancelled.CancelReason)
}

func TestBulkTransitionCollectsFailures(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestService(t, db, date(2024, 3, 1))
	ctx := context.Background()
	sup := seedSupervisor(t, db)
	actor := domain.Actor{UserID: 1, Role: domain.RoleAdmin}

	pending, err := svc.Create(ctx, actor, CreateInput{BatchCode: "B-301", SupervisorID: sup.ID})
	require.NoError(t, err)
	running, err := svc.Create(ctx, actor, CreateInput{BatchCode: "B-302", SupervisorID: sup.ID})
	require.NoError(t, err)
	_, err = svc.Start(ctx, actor, running.ID)
	require.NoError(t, err)

	res, err := svc.BulkTransition(ctx, actor, []int64{pending.ID, running.ID, 9999}, domain.BatchCompleted, "")
	require.NoError(t, err)

	assert.Equal(t, []int64{running.ID}, res.Succeeded)
	require.Len(t, res.Failed, 2)
	assert.Equal(t, pending.ID, res.Failed[0].ID)
	assert.Equal(t, int64(9999), res.Failed[1].ID)
}

func TestMarkOverdueDelaysRunningBatches(t *testing.T) {
	db := setupTestDB(t)
	today := date(2024, 4, 2)
	svc, sink := newTestService(t, db, today)
	ctx := context.Background()
	sup := seedSupervisor(t, db)
	actor := domain.Actor{}

	past := date(2024, 3, 20)
	future := date(2024, 5, 1)

	overdueRunning := &domain.BatchWorkflow{BatchCode: "B-401", SupervisorID: sup.ID, Status: domain.BatchInProgress, EndDate: &past}
	overduePending := &domain.BatchWorkflow{BatchCode: "B-402", SupervisorID: sup.ID, Status: domain.BatchPending, EndDate: &past}
	onTrack := &domain.BatchWorkflow{BatchCode: "B-403", SupervisorID: sup.ID, Status: domain.BatchInProgress, EndDate: &future}
	for _, b := range []*domain.BatchWorkflow{overdueRunning, overduePending, onTrack} {
		require.NoError(t, db.Create(b).Error)
	}

	res, err := svc.MarkOverdue(ctx, actor)
	require.NoError(t, err)

	// A pending batch cannot go delayed; it surfaces as a failure.
	assert.Equal(t, []int64{overdueRunning.ID}, res.Succeeded)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, overduePending.ID, res.Failed[0].ID)

	var reloaded domain.BatchWorkflow
	require.NoError(t, db.First(&reloaded, overdueRunning.ID).Error)
	assert.Equal(t, domain.BatchDelayed, reloaded.Status)

	reloaded = domain.BatchWorkflow{}
	require.NoError(t, db.First(&reloaded, onTrack.ID).Error)
	assert.Equal(t, domain.BatchInProgress, reloaded.Status)

	require.Len(t, sink.deliveries, 1)
	assert.Equal(t, notification.PriorityHigh, sink.deliveries[0].Priority)
}
