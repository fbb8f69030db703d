package maintenance

import (
	"context"
	"time"

	"texpro/internal/domain"
	"texpro/internal/pkg/clock"
	"texpro/internal/repository"
)

// Urgency classifies how soon a machine needs attention.
type Urgency string

const (
	UrgencyNormal   Urgency = "normal"
	UrgencyWarning  Urgency = "warning"
	UrgencyUrgent   Urgency = "urgent"
	UrgencyCritical Urgency = "critical"
)

const (
	fallbackIntervalDays = 30
	minIntervalDays      = 7
	maxIntervalDays      = 180
)

// Predictor derives the next maintenance due date and an urgency class for a
// machine from its type settings, its maintenance history and its hour meter.
// Rule-based only; PredictWithModel is the hook for a learned model and
// defaults to the rule-based path. Deterministic for a fixed clock and store
// snapshot.
type Predictor struct {
	maintenance *repository.MaintenanceRepository
	types       *repository.MachineTypeRepository
	clock       clock.Clock
}

func NewPredictor(maintenance *repository.MaintenanceRepository, types *repository.MachineTypeRepository, clk clock.Clock) *Predictor {
	return &Predictor{maintenance: maintenance, types: types, clock: clk}
}

// Prediction is the predictor's full output for one machine.
type Prediction struct {
	NextDue      time.Time
	Urgency      Urgency
	DaysUntil    int
	IntervalDays int
	HoursRatio   float64
	Reliability  float64
}

// NextDueDate computes when machine m is next due for maintenance.
//
// The base interval comes from the machine type's recommended days, falling
// back to the observed average interval across machines of the same type,
// then to 30 days. The machine's own history scales it through a reliability
// score, and hour-meter pressure shortens it further.
func (p *Predictor) NextDueDate(ctx context.Context, m *domain.Machine) (*Prediction, error) {
	t, err := p.types.GetByID(ctx, m.TypeID)
	if err != nil {
		return nil, err
	}

	history, err := p.maintenance.CompletedByMachine(ctx, m.ID)
	if err != nil {
		return nil, err
	}

	interval, err := p.baseIntervalDays(ctx, t)
	if err != nil {
		return nil, err
	}

	reliability := reliabilityScore(history)
	interval *= reliabilityMultiplier(reliability)
	if interval < minIntervalDays {
		interval = minIntervalDays
	}
	if interval > maxIntervalDays {
		interval = maxIntervalDays
	}

	ratio := hoursRatio(m, t)
	if t.RecommendedIntervalHrs != nil {
		interval *= hourPressureMultiplier(ratio)
		floor := float64(minIntervalDays)
		if ratio > 1.20 {
			floor = 1
		}
		if interval < floor {
			interval = floor
		}
	}

	days := int(interval)
	ref := p.referenceDate(m, history)
	nextDue := ref.AddDate(0, 0, days)

	today := clock.Today(p.clock)
	pred := &Prediction{
		NextDue:      nextDue,
		DaysUntil:    clock.DaysBetween(today, nextDue),
		IntervalDays: days,
		HoursRatio:   ratio,
		Reliability:  reliability,
	}
	pred.Urgency = classify(pred.DaysUntil, ratio)
	return pred, nil
}

// Classify returns the urgency class for m without the full prediction.
func (p *Predictor) Classify(ctx context.Context, m *domain.Machine) (Urgency, error) {
	pred, err := p.NextDueDate(ctx, m)
	if err != nil {
		return "", err
	}
	return pred.Urgency, nil
}

// PredictWithModel is the extensibility hook for a learned predictor. The
// default implementation delegates to the rule-based path.
func (p *Predictor) PredictWithModel(ctx context.Context, m *domain.Machine) (time.Time, error) {
	pred, err := p.NextDueDate(ctx, m)
	if err != nil {
		return time.Time{}, err
	}
	return pred.NextDue, nil
}

// baseIntervalDays prefers the type's recommendation, then the mean observed
// interval between completed maintenances across machines of the same type,
// then the 30-day fallback.
func (p *Predictor) baseIntervalDays(ctx context.Context, t *domain.MachineType) (float64, error) {
	if t.RecommendedIntervalDays != nil {
		return float64(*t.RecommendedIntervalDays), nil
	}

	logs, err := p.maintenance.CompletedByMachineType(ctx, t.ID)
	if err != nil {
		return 0, err
	}
	if avg, ok := averageIntervalDays(logs); ok {
		return avg, nil
	}
	return fallbackIntervalDays, nil
}

// averageIntervalDays computes the mean gap in days between consecutive
// completed logs of the same machine. Non-positive gaps are ignored. The
// input is ordered by (machine_id, resolved_at).
func averageIntervalDays(logs []domain.MaintenanceLog) (float64, bool) {
	var sum float64
	var count int
	for i := 1; i < len(logs); i++ {
		prev, cur := logs[i-1], logs[i]
		if prev.MachineID != cur.MachineID || prev.ResolvedAt == nil || cur.ResolvedAt == nil {
			continue
		}
		gap := cur.ResolvedAt.Sub(*prev.ResolvedAt).Hours() / 24
		if gap > 0 {
			sum += gap
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

// reliabilityScore summarizes a machine's maintenance frequency on a 0-100
// scale; fewer interventions per month score higher. Machines without enough
// history score 100.
func reliabilityScore(history []domain.MaintenanceLog) float64 {
	first, last, count := historySpan(history)
	if count < 2 {
		return 100
	}
	spanDays := last.Sub(first).Hours() / 24
	if spanDays <= 0 {
		return 100
	}
	frequency := float64(count) / spanDays * 30
	score := 100 - frequency*10
	if score < 10 {
		score = 10
	}
	return score
}

func historySpan(history []domain.MaintenanceLog) (first, last time.Time, count int) {
	for _, l := range history {
		if l.ResolvedAt == nil {
			continue
		}
		if count == 0 || l.ResolvedAt.Before(first) {
			first = *l.ResolvedAt
		}
		if count == 0 || l.ResolvedAt.After(last) {
			last = *l.ResolvedAt
		}
		count++
	}
	return first, last, count
}

func reliabilityMultiplier(score float64) float64 {
	switch {
	case score >= 80:
		return 1.10
	case score >= 60:
		return 1.00
	case score >= 40:
		return 0.90
	default:
		return 0.80
	}
}

// hoursRatio is hours since maintenance over the type's recommended hour
// interval, zero when the type has none.
func hoursRatio(m *domain.Machine, t *domain.MachineType) float64 {
	if t.RecommendedIntervalHrs == nil || *t.RecommendedIntervalHrs <= 0 {
		return 0
	}
	return m.HoursSinceMaintenance / float64(*t.RecommendedIntervalHrs)
}

func hourPressureMultiplier(ratio float64) float64 {
	switch {
	case ratio > 1.20:
		return 0.50
	case ratio > 1.00:
		return 0.70
	case ratio > 0.80:
		return 0.90
	default:
		return 1.00
	}
}

// referenceDate anchors the due-date projection: the latest completed
// maintenance, else the machine's recorded last maintenance date, else the
// installation date, else today.
func (p *Predictor) referenceDate(m *domain.Machine, history []domain.MaintenanceLog) time.Time {
	_, last, count := historySpan(history)
	if count > 0 {
		return clock.DateOf(last)
	}
	if m.LastMaintenanceDate != nil {
		return clock.DateOf(*m.LastMaintenanceDate)
	}
	if m.InstallationDate != nil {
		return clock.DateOf(*m.InstallationDate)
	}
	return clock.Today(p.clock)
}

func classify(daysUntil int, ratio float64) Urgency {
	switch {
	case daysUntil < 0 || ratio > 1.20:
		return UrgencyCritical
	case daysUntil <= 3 || ratio > 1.00:
		return UrgencyUrgent
	case daysUntil <= 7 || ratio > 0.80:
		return UrgencyWarning
	default:
		return UrgencyNormal
	}
}
