package maintenance

import (
	"context"
	"fmt"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"texpro/internal/domain"
	"texpro/internal/pkg/clock"
	"texpro/internal/repository"
)

// Advice keys are stable identifiers; rendering them in a user's language is
// the request layer's concern.
const (
	AdviceScheduleImmediately  = "schedule_immediately"
	AdviceScheduleThisWeek     = "schedule_this_week"
	AdviceInvestigateRootCause = "investigate_root_cause"
	AdviceReviewProcedures     = "review_procedures"
	AdviceReduceLoad           = "reduce_load"
)

const (
	// frequency above this many interventions per month suggests a deeper
	// problem than wear.
	rootCauseFrequencyPerMonth = 2.0
	// average downtime above this many hours suggests procedure review.
	downtimeReviewHours = 4.0

	sweepCacheKey = "sweep"
	sweepCacheTTL = 5 * time.Minute
)

// Patterns summarizes a machine's maintenance history.
type Patterns struct {
	LogCount          int     `json:"log_count"`
	FrequencyPerMonth float64 `json:"frequency_per_month"`
	AvgDowntimeHours  float64 `json:"avg_downtime_hours"`
	TotalCost         float64 `json:"total_cost"`
}

// Recommendation is the scheduler's advice for one machine.
type Recommendation struct {
	MachineID   int64     `json:"machine_id"`
	MachineCode string    `json:"machine_code"`
	NextDue     time.Time `json:"next_due"`
	Urgency     Urgency   `json:"urgency"`
	DaysUntil   int       `json:"days_until"`
	Patterns    Patterns  `json:"patterns"`
	Advice      []string  `json:"advice"`
}

// SweepReport buckets the active fleet by urgency. Buckets are ordered by
// ascending days until due, ties broken by machine code.
type SweepReport struct {
	Critical []Recommendation `json:"critical"`
	Urgent   []Recommendation `json:"urgent"`
	Warning  []Recommendation `json:"warning"`
	Normal   []Recommendation `json:"normal"`
}

// Scheduler produces fleet-wide maintenance recommendations and overdue
// detections. It never mutates machines; transitions are proposed through
// the batch and maintenance services.
type Scheduler struct {
	machines    *repository.MachineRepository
	maintenance *repository.MaintenanceRepository
	predictor   *Predictor
	clock       clock.Clock
	cache       *gocache.Cache
}

func NewScheduler(
	machines *repository.MachineRepository,
	maintenance *repository.MaintenanceRepository,
	predictor *Predictor,
	clk clock.Clock,
) *Scheduler {
	return &Scheduler{
		machines:    machines,
		maintenance: maintenance,
		predictor:   predictor,
		clock:       clk,
		cache:       gocache.New(sweepCacheTTL, 2*sweepCacheTTL),
	}
}

// RecommendFor builds the full recommendation for one machine.
func (s *Scheduler) RecommendFor(ctx context.Context, m *domain.Machine) (*Recommendation, error) {
	pred, err := s.predictor.NextDueDate(ctx, m)
	if err != nil {
		return nil, err
	}

	history, err := s.maintenance.CompletedByMachine(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	patterns := analyzePatterns(history)

	return &Recommendation{
		MachineID:   m.ID,
		MachineCode: m.MachineCode,
		NextDue:     pred.NextDue,
		Urgency:     pred.Urgency,
		DaysUntil:   pred.DaysUntil,
		Patterns:    patterns,
		Advice:      advise(pred, patterns),
	}, nil
}

// Sweep iterates the active fleet (running or idle machines) and buckets
// every recommendation by urgency. The report is cached briefly because the
// dashboard polls it.
func (s *Scheduler) Sweep(ctx context.Context) (*SweepReport, error) {
	if cached, ok := s.cache.Get(sweepCacheKey); ok {
		return cached.(*SweepReport), nil
	}

	machines, err := s.machines.ListByStatuses(ctx, []domain.MachineStatus{
		domain.MachineRunning, domain.MachineIdle,
	})
	if err != nil {
		return nil, err
	}

	report := &SweepReport{
		Critical: []Recommendation{},
		Urgent:   []Recommendation{},
		Warning:  []Recommendation{},
		Normal:   []Recommendation{},
	}
	for i := range machines {
		rec, err := s.RecommendFor(ctx, &machines[i])
		if err != nil {
			return nil, err
		}
		switch rec.Urgency {
		case UrgencyCritical:
			report.Critical = append(report.Critical, *rec)
		case UrgencyUrgent:
			report.Urgent = append(report.Urgent, *rec)
		case UrgencyWarning:
			report.Warning = append(report.Warning, *rec)
		default:
			report.Normal = append(report.Normal, *rec)
		}
	}

	sortBucket(report.Critical)
	sortBucket(report.Urgent)
	sortBucket(report.Warning)
	sortBucket(report.Normal)

	s.cache.Set(sweepCacheKey, report, sweepCacheTTL)
	return report, nil
}

// InvalidateSweep drops the cached report, called after maintenance
// completions change the fleet picture.
func (s *Scheduler) InvalidateSweep() {
	s.cache.Delete(sweepCacheKey)
}

// FlagOverdueLogs returns ids of open logs older than maxAge, for the event
// layer to escalate.
func (s *Scheduler) FlagOverdueLogs(ctx context.Context, maxAge time.Duration) ([]int64, error) {
	cutoff := s.clock.Now().Add(-maxAge)
	logs, err := s.maintenance.ListOpenOlderThan(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(logs))
	for _, l := range logs {
		ids = append(ids, l.ID)
	}
	return ids, nil
}

func sortBucket(bucket []Recommendation) {
	sort.Slice(bucket, func(i, j int) bool {
		if bucket[i].DaysUntil != bucket[j].DaysUntil {
			return bucket[i].DaysUntil < bucket[j].DaysUntil
		}
		return bucket[i].MachineCode < bucket[j].MachineCode
	})
}

func analyzePatterns(history []domain.MaintenanceLog) Patterns {
	p := Patterns{LogCount: len(history)}
	if len(history) == 0 {
		return p
	}

	var downtime, cost float64
	for _, l := range history {
		downtime += l.DowntimeHours
		cost += l.Cost
	}
	p.AvgDowntimeHours = downtime / float64(len(history))
	p.TotalCost = cost

	first, last, count := historySpan(history)
	if count >= 2 {
		spanDays := last.Sub(first).Hours() / 24
		if spanDays > 0 {
			p.FrequencyPerMonth = float64(count) / spanDays * 30
		}
	}
	return p
}

func advise(pred *Prediction, patterns Patterns) []string {
	advice := []string{}
	switch pred.Urgency {
	case UrgencyCritical:
		advice = append(advice, AdviceScheduleImmediately)
	case UrgencyUrgent, UrgencyWarning:
		advice = append(advice, AdviceScheduleThisWeek)
	}
	if patterns.FrequencyPerMonth > rootCauseFrequencyPerMonth {
		advice = append(advice, AdviceInvestigateRootCause)
	}
	if patterns.AvgDowntimeHours > downtimeReviewHours {
		advice = append(advice, AdviceReviewProcedures)
	}
	if pred.HoursRatio > 1.00 {
		advice = append(advice, AdviceReduceLoad)
	}
	return advice
}

// DueSoonMessage renders the one-line summary used by maintenance_due
// notifications.
func DueSoonMessage(rec *Recommendation) string {
	if rec.DaysUntil < 0 {
		return fmt.Sprintf("Machine %s is %d days past its maintenance due date", rec.MachineCode, -rec.DaysUntil)
	}
	return fmt.Sprintf("Machine %s is due for maintenance in %d days", rec.MachineCode, rec.DaysUntil)
}
