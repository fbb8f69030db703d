package scheduler

import (
	"context"
	"log"
	"time"

	"texpro/internal/domain"
	"texpro/internal/domain/notification"
	"texpro/internal/events"
	"texpro/internal/modules/batch"
	"texpro/internal/modules/maintenance"
)

// Config holds the periodic worker settings.
type Config struct {
	SweepInterval         time.Duration // how often the fleet is swept
	OverdueLogAge         time.Duration // open logs older than this are flagged
	NotificationRetention time.Duration // read notifications older than this are purged
}

func DefaultConfig() Config {
	return Config{
		SweepInterval:         1 * time.Hour,
		OverdueLogAge:         24 * time.Hour,
		NotificationRetention: 90 * 24 * time.Hour,
	}
}

// Worker drives the periodic maintenance sweep, the overdue batch sweep and
// notification cleanup from a single ticker.
type Worker struct {
	scheduler     *maintenance.Scheduler
	maintenance   *maintenance.Service
	batches       *batch.Service
	notifications *notification.Service
	dispatcher    *events.Dispatcher
	config        Config
}

func NewWorker(
	scheduler *maintenance.Scheduler,
	maintenanceSvc *maintenance.Service,
	batches *batch.Service,
	notifications *notification.Service,
	dispatcher *events.Dispatcher,
	config Config,
) *Worker {
	return &Worker{
		scheduler:     scheduler,
		maintenance:   maintenanceSvc,
		batches:       batches,
		notifications: notifications,
		dispatcher:    dispatcher,
		config:        config,
	}
}

// Start runs the worker loop in a goroutine. Closing the returned channel
// stops it; cancelling ctx does too.
func (w *Worker) Start(ctx context.Context) chan struct{} {
	stopCh := make(chan struct{})

	go func() {
		ticker := time.NewTicker(w.config.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				w.RunOnce(ctx)
			case <-stopCh:
				log.Println("scheduler worker stopped")
				return
			case <-ctx.Done():
				log.Println("scheduler worker stopped (context done)")
				return
			}
		}
	}()

	log.Printf("scheduler worker started, interval %v", w.config.SweepInterval)
	return stopCh
}

// RunOnce executes one full cycle. Each task logs and continues on failure
// so one broken task does not starve the others.
func (w *Worker) RunOnce(ctx context.Context) {
	started := time.Now()
	system := domain.Actor{}

	w.scheduler.InvalidateSweep()
	report, err := w.scheduler.Sweep(ctx)
	if err != nil {
		log.Printf("maintenance sweep failed: %v", err)
	} else {
		w.notifyDue(ctx, system, report)
	}

	if res, err := w.batches.MarkOverdue(ctx, system); err != nil {
		log.Printf("overdue batch sweep failed: %v", err)
	} else if len(res.Succeeded) > 0 || len(res.Failed) > 0 {
		log.Printf("overdue batch sweep: %d delayed, %d failed", len(res.Succeeded), len(res.Failed))
	}

	if ids, err := w.maintenance.FlagOverdue(ctx, system, w.config.OverdueLogAge); err != nil {
		log.Printf("overdue log flagging failed: %v", err)
	} else if len(ids) > 0 {
		log.Printf("flagged %d overdue maintenance logs", len(ids))
	}

	if deleted, err := w.notifications.CleanupOld(ctx, w.config.NotificationRetention); err != nil {
		log.Printf("notification cleanup failed: %v", err)
	} else if deleted > 0 {
		log.Printf("cleaned up %d old notifications", deleted)
	}

	log.Printf("scheduler cycle completed in %v", time.Since(started))
}

// notifyDue publishes one maintenance_due event per machine in the critical
// and urgent buckets.
func (w *Worker) notifyDue(ctx context.Context, actor domain.Actor, report *maintenance.SweepReport) {
	due := append(append([]maintenance.Recommendation{}, report.Critical...), report.Urgent...)
	if len(due) == 0 {
		return
	}

	buf := events.NewBuffer(actor)
	for i := range due {
		rec := &due[i]
		buf.Emit(events.Event{
			Kind:    events.MachineMaintenanceDue,
			Entity:  events.EntityRef{Type: "machine", ID: rec.MachineID},
			Title:   "Maintenance due",
			Message: maintenance.DueSoonMessage(rec),
			Payload: map[string]any{"machine_code": rec.MachineCode, "urgency": string(rec.Urgency), "days_until": rec.DaysUntil},
		})
	}
	w.dispatcher.Flush(ctx, buf)
}
