package domain

import "time"

// Transition tables for the two workflow entities. The kernel validates a
// requested transition and applies the entry actions of the target state; it
// never mutates the store itself.

var batchTransitions = map[BatchStatus][]BatchStatus{
	BatchPending:    {BatchInProgress, BatchCancelled},
	BatchInProgress: {BatchCompleted, BatchDelayed, BatchCancelled},
	BatchDelayed:    {BatchInProgress, BatchCompleted, BatchCancelled},
	BatchCompleted:  {},
	BatchCancelled:  {},
}

// Direct pending -> completed stays allowed so a trivially short intervention
// can be closed without an intermediate update.
var maintenanceTransitions = map[MaintenanceStatus][]MaintenanceStatus{
	MaintenancePending:    {MaintenanceInProgress, MaintenanceCompleted},
	MaintenanceInProgress: {MaintenanceCompleted},
	MaintenanceCompleted:  {},
}

// CanTransitionBatch reports whether the table allows from -> to.
func CanTransitionBatch(from, to BatchStatus) bool {
	for _, t := range batchTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// CanTransitionMaintenance reports whether the table allows from -> to.
func CanTransitionMaintenance(from, to MaintenanceStatus) bool {
	for _, t := range maintenanceTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// AttemptBatchTransition validates the transition and applies the target
// state's entry actions to b in place. today is the calendar day used for
// auto-filled dates and the delayed guard.
func AttemptBatchTransition(b *BatchWorkflow, target BatchStatus, today time.Time) error {
	if !CanTransitionBatch(b.Status, target) {
		return &IllegalTransitionError{From: string(b.Status), To: string(target)}
	}

	switch target {
	case BatchInProgress:
		if b.StartDate == nil {
			d := today
			b.StartDate = &d
		}
	case BatchCompleted:
		if b.EndDate == nil {
			d := today
			b.EndDate = &d
		}
	case BatchDelayed:
		// Only a batch that ran past its planned end date may be delayed.
		if b.EndDate == nil || !b.EndDate.Before(today) {
			return &IllegalTransitionError{From: string(b.Status), To: string(target)}
		}
	}

	b.Status = target
	return nil
}

// AttemptMaintenanceTransition validates the transition and applies entry
// actions to l in place. Completion requires a recorded action and stamps
// resolved_at; the caller owns the hour-meter reset and machine status
// reconciliation that follow.
func AttemptMaintenanceTransition(l *MaintenanceLog, target MaintenanceStatus, now time.Time) error {
	if !CanTransitionMaintenance(l.Status, target) {
		return &IllegalTransitionError{From: string(l.Status), To: string(target)}
	}

	if target == MaintenanceCompleted {
		if l.ActionTaken == "" {
			return &ConstraintViolationError{Field: "action_taken", Reason: "required"}
		}
		t := now
		l.ResolvedAt = &t
	}

	l.Status = target
	return nil
}
