package maintenance

import (
	"context"
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
	"texpro/internal/pkg/clock"
	"texpro/internal/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:maintenance_test_%s?mode=memory&cache=shared", t.Name())
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

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newPredictor(t *testing.T, db *gorm.DB, today time.Time) *Predictor {
	t.Helper()
	return NewPredictor(
		repository.NewMaintenanceRepository(db),
		repository.NewMachineTypeRepository(db),
		clock.Fixed(today),
	)
}

func seedType(t *testing.T, db *gorm.DB, days, hours *int) *domain.MachineType {
	t.Helper()
	mt := &domain.MachineType{
		Name:                    fmt.Sprintf("type-%s", t.Name()),
		RecommendedIntervalDays: days,
		RecommendedIntervalHrs:  hours,
	}
	require.NoError(t, db.Create(mt).Error)
	return mt
}

func TestPredictorNoHistoryProjectsFromInstallation(t *testing.T) {
	db := setupTestDB(t)
	today := date(2024, 3, 1)
	p := newPredictor(t, db, today)

	days30 := 30
	mt := seedType(t, db, &days30, nil)
	installed := date(2024, 1, 1)
	m := &domain.Machine{MachineCode: "RSF-001", TypeID: mt.ID, InstallationDate: &installed}
	require.NoError(t, db.Create(m).Error)

	pred, err := p.NextDueDate(context.Background(), m)
	require.NoError(t, err)

	// Pristine history scores 100, so the 30-day base stretches to 33.
	assert.Equal(t, 33, pred.IntervalDays)
	assert.Equal(t, date(2024, 2, 3), pred.NextDue)
	assert.Negative(t, pred.DaysUntil)
	assert.Equal(t, UrgencyCritical, pred.Urgency)
	assert.Equal(t, 100.0, pred.Reliability)
}

func TestPredictorHourPressureShortensInterval(t *testing.T) {
	db := setupTestDB(t)
	today := date(2024, 3, 10)
	p := newPredictor(t, db, today)

	days30, hours500 := 30, 500
	mt := seedType(t, db, &days30, &hours500)
	installed := date(2024, 2, 1)
	m := &domain.Machine{
		MachineCode:           "LOOM-010",
		TypeID:                mt.ID,
		InstallationDate:      &installed,
		HoursSinceMaintenance: 625,
	}
	require.NoError(t, db.Create(m).Error)

	pred, err := p.NextDueDate(context.Background(), m)
	require.NoError(t, err)

	// 30 * 1.10 = 33, ratio 1.25 halves it to 16.5, truncated to 16 days.
	assert.InDelta(t, 1.25, pred.HoursRatio, 0.001)
	assert.Equal(t, 16, pred.IntervalDays)
	assert.Equal(t, date(2024, 2, 17), pred.NextDue)
	assert.Equal(t, UrgencyCritical, pred.Urgency)
}

func TestPredictorUsesLatestCompletedLogAsReference(t *testing.T) {
	db := setupTestDB(t)
	today := date(2024, 3, 1)
	p := newPredictor(t, db, today)

	days30 := 30
	mt := seedType(t, db, &days30, nil)
	installed := date(2023, 1, 1)
	m := &domain.Machine{MachineCode: "CARD-003", TypeID: mt.ID, InstallationDate: &installed}
	require.NoError(t, db.Create(m).Error)

	resolved := date(2024, 2, 20)
	log := &domain.MaintenanceLog{
		MachineID:     m.ID,
		TechnicianID:  1,
		Status:        domain.MaintenanceCompleted,
		IssueReported: "routine",
		ActionTaken:   "serviced",
		ReportedAt:    resolved.Add(-2 * time.Hour),
		ResolvedAt:    &resolved,
	}
	require.NoError(t, db.Create(log).Error)

	pred, err := p.NextDueDate(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, resolved.AddDate(0, 0, pred.IntervalDays), pred.NextDue)
}

func TestPredictorFrequentFailuresLowerReliability(t *testing.T) {
	db := setupTestDB(t)
	today := date(2024, 6, 1)
	p := newPredictor(t, db, today)

	days30 := 30
	mt := seedType(t, db, &days30, nil)
	m := &domain.Machine{MachineCode: "RSF-002", TypeID: mt.ID}
	require.NoError(t, db.Create(m).Error)

	// Ten interventions in 30 days: frequency 10/month, score clamps to 10.
	for i := 0; i < 10; i++ {
		resolved := date(2024, 5, 1).AddDate(0, 0, i*3)
		log := &domain.MaintenanceLog{
			MachineID:     m.ID,
			TechnicianID:  1,
			Status:        domain.MaintenanceCompleted,
			IssueReported: "breakdown",
			ActionTaken:   "patched",
			ReportedAt:    resolved.Add(-time.Hour),
			ResolvedAt:    &resolved,
		}
		require.NoError(t, db.Create(log).Error)
	}

	pred, err := p.NextDueDate(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 10.0, pred.Reliability)
	// Score below 40 shrinks the base by 20%: 30 * 0.80 = 24.
	assert.Equal(t, 24, pred.IntervalDays)
}

func TestPredictorFallsBackToTypeAverageThenDefault(t *testing.T) {
	db := setupTestDB(t)
	today := date(2024, 3, 1)
	p := newPredictor(t, db, today)

	mt := seedType(t, db, nil, nil)

	sibling := &domain.Machine{MachineCode: "SIB-001", TypeID: mt.ID}
	require.NoError(t, db.Create(sibling).Error)
	for _, d := range []time.Time{date(2024, 1, 1), date(2024, 1, 21), date(2024, 2, 10)} {
		resolved := d
		log := &domain.MaintenanceLog{
			MachineID:     sibling.ID,
			TechnicianID:  1,
			Status:        domain.MaintenanceCompleted,
			IssueReported: "routine",
			ActionTaken:   "serviced",
			ReportedAt:    resolved.Add(-time.Hour),
			ResolvedAt:    &resolved,
		}
		require.NoError(t, db.Create(log).Error)
	}

	installed := date(2024, 2, 1)
	m := &domain.Machine{MachineCode: "NEW-001", TypeID: mt.ID, InstallationDate: &installed}
	require.NoError(t, db.Create(m).Error)

	pred, err := p.NextDueDate(context.Background(), m)
	require.NoError(t, err)
	// Sibling gaps average 20 days; pristine reliability stretches to 22.
	assert.Equal(t, 22, pred.IntervalDays)

	// A type with no recommendation and no history falls back to 30 days.
	mtEmpty := &domain.MachineType{Name: "empty-" + t.Name()}
	require.NoError(t, db.Create(mtEmpty).Error)
	m2 := &domain.Machine{MachineCode: "NEW-002", TypeID: mtEmpty.ID, InstallationDate: &installed}
	require.NoError(t, db.Create(m2).Error)

	pred2, err := p.NextDueDate(context.Background(), m2)
	require.NoError(t, err)
	assert.Equal(t, 33, pred2.IntervalDays)
}

func TestClassifyBoundaries(t *testing.T) {
	assert.Equal(t, UrgencyCritical, classify(-1, 0))
	assert.Equal(t, UrgencyCritical, classify(10, 1.21))
	assert.Equal(t, UrgencyUrgent, classify(0, 0))
	assert.Equal(t, UrgencyUrgent, classify(3, 0))
	assert.Equal(t, UrgencyUrgent, classify(10, 1.01))
	assert.Equal(t, UrgencyWarning, classify(4, 0))
	assert.Equal(t, UrgencyWarning, classify(7, 0))
	assert.Equal(t, UrgencyWarning, classify(10, 0.81))
	assert.Equal(t, UrgencyNormal, classify(8, 0.5))
}
