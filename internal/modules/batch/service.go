package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"texpro/internal/domain"
	"texpro/internal/events"
	"texpro/internal/pkg/clock"
	"texpro/internal/repository"
)

const casRetries = 5

type Service struct {
	db         *gorm.DB
	batches    *repository.BatchRepository
	users      *repository.UserRepository
	dispatcher *events.Dispatcher
	clock      clock.Clock
}

func NewService(db *gorm.DB, batches *repository.BatchRepository, users *repository.UserRepository, dispatcher *events.Dispatcher, clk clock.Clock) *Service {
	return &Service{db: db, batches: batches, users: users, dispatcher: dispatcher, clock: clk}
}

type CreateInput struct {
	BatchCode    string
	Description  string
	SupervisorID int64
	StartDate    *time.Time
	EndDate      *time.Time
}

// Create registers a new batch in pending. Codes are stored normalized and
// must be unique; the supervisor must be an active supervisor or admin.
func (s *Service) Create(ctx context.Context, actor domain.Actor, in CreateInput) (*domain.BatchWorkflow, error) {
	code := domain.NormalizeBatchCode(in.BatchCode)
	if code == "" {
		return nil, ErrInvalidCode
	}

	sup, err := s.users.GetByID(ctx, in.SupervisorID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidSupervisor
		}
		return nil, err
	}
	if !sup.IsActive || (sup.Role != domain.RoleSupervisor && sup.Role != domain.RoleAdmin) {
		return nil, ErrInvalidSupervisor
	}

	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return nil, &domain.ConstraintViolationError{Field: "end_date", Reason: "must not precede start_date"}
	}

	b := &domain.BatchWorkflow{
		BatchCode:    code,
		Description:  strings.TrimSpace(in.Description),
		SupervisorID: in.SupervisorID,
		CreatedByID:  actor.UserID,
		Status:       domain.BatchPending,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
	}
	if err := s.batches.Create(ctx, b); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrDuplicateCode
		}
		return nil, err
	}
	return b, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.BatchWorkflow, error) {
	return s.batches.GetByID(ctx, id)
}

func (s *Service) GetByCode(ctx context.Context, code string) (*domain.BatchWorkflow, error) {
	return s.batches.GetByCode(ctx, domain.NormalizeBatchCode(code))
}

func (s *Service) List(ctx context.Context, status domain.BatchStatus, limit, offset int) ([]domain.BatchWorkflow, error) {
	return s.batches.List(ctx, status, limit, offset)
}

func (s *Service) Start(ctx context.Context, actor domain.Actor, id int64) (*domain.BatchWorkflow, error) {
	return s.transition(ctx, actor, id, domain.BatchInProgress, "")
}

func (s *Service) Complete(ctx context.Context, actor domain.Actor, id int64) (*domain.BatchWorkflow, error) {
	return s.transition(ctx, actor, id, domain.BatchCompleted, "")
}

func (s *Service) Delay(ctx context.Context, actor domain.Actor, id int64) (*domain.BatchWorkflow, error) {
	return s.transition(ctx, actor, id, domain.BatchDelayed, "")
}

func (s *Service) Cancel(ctx context.Context, actor domain.Actor, id int64, reason string) (*domain.BatchWorkflow, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	return s.transition(ctx, actor, id, domain.BatchCancelled, reason)
}

// transition applies one lifecycle step with optimistic retry, then flushes
// the resulting event after the write commits.
func (s *Service) transition(ctx context.Context, actor domain.Actor, id int64, target domain.BatchStatus, cancelReason string) (*domain.BatchWorkflow, error) {
	var updated *domain.BatchWorkflow
	var err error
	for attempt := 0; attempt < casRetries; attempt++ {
		var b *domain.BatchWorkflow
		b, err = s.batches.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err = domain.AttemptBatchTransition(b, target, clock.Today(s.clock)); err != nil {
			return nil, err
		}
		if cancelReason != "" {
			b.CancelReason = cancelReason
		}
		err = s.batches.UpdateVersioned(ctx, b)
		if err == nil {
			updated = b
			break
		}
		if !errors.Is(err, domain.ErrConflictingWrite) {
			return nil, err
		}
	}
	if err != nil {
		return nil, err
	}

	buf := events.NewBuffer(actor)
	s.emitTransition(buf, updated)
	s.dispatcher.Flush(ctx, buf)
	return updated, nil
}

func (s *Service) emitTransition(buf *events.Buffer, b *domain.BatchWorkflow) {
	var kind events.Kind
	var title, msg string
	switch b.Status {
	case domain.BatchInProgress:
		kind, title = events.WorkflowStarted, "Batch started"
		msg = fmt.Sprintf("Batch %s moved to in_progress", b.BatchCode)
	case domain.BatchCompleted:
		kind, title = events.WorkflowCompleted, "Batch completed"
		msg = fmt.Sprintf("Batch %s completed", b.BatchCode)
	case domain.BatchDelayed:
		kind, title = events.WorkflowDelayed, "Batch delayed"
		msg = fmt.Sprintf("Batch %s ran past its planned end date", b.BatchCode)
	case domain.BatchCancelled:
		kind, title = events.WorkflowCancelled, "Batch cancelled"
		msg = fmt.Sprintf("Batch %s cancelled: %s", b.BatchCode, b.CancelReason)
	default:
		return
	}
	buf.Emit(events.Event{
		Kind:            kind,
		Entity:          events.EntityRef{Type: "batch_workflow", ID: b.ID},
		Title:           title,
		Message:         msg,
		Payload:         map[string]any{"batch_code": b.BatchCode, "status": string(b.Status)},
		ExtraRecipients: []int64{b.SupervisorID, b.CreatedByID},
	})
}

// BulkResult reports the outcome of one bulk transition request. Failures do
// not roll back the successes.
type BulkResult struct {
	Succeeded []int64     `json:"succeeded"`
	Failed    []BulkError `json:"failed"`
}

type BulkError struct {
	ID    int64  `json:"id"`
	Error string `json:"error"`
}

// BulkTransition applies the same target status to each batch independently.
func (s *Service) BulkTransition(ctx context.Context, actor domain.Actor, ids []int64, target domain.BatchStatus, cancelReason string) (*BulkResult, error) {
	if !target.Valid() {
		return nil, &domain.ConstraintViolationError{Field: "status", Reason: "unknown status"}
	}

	res := &BulkResult{Succeeded: []int64{}, Failed: []BulkError{}}
	for _, id := range ids {
		var err error
		if target == domain.BatchCancelled {
			_, err = s.Cancel(ctx, actor, id, cancelReason)
		} else {
			_, err = s.transition(ctx, actor, id, target, "")
		}
		if err != nil {
			res.Failed = append(res.Failed, BulkError{ID: id, Error: err.Error()})
			continue
		}
		res.Succeeded = append(res.Succeeded, id)
	}
	return res, nil
}

// MarkOverdue sweeps non-terminal batches whose planned end date has passed
// and moves them to delayed. Pending batches past their end date cannot be
// delayed and are collected as failures instead.
func (s *Service) MarkOverdue(ctx context.Context, actor domain.Actor) (*BulkResult, error) {
	today := clock.Today(s.clock)
	overdue, err := s.batches.ListOverdue(ctx, today, []domain.BatchStatus{domain.BatchPending, domain.BatchInProgress})
	if err != nil {
		return nil, err
	}

	res := &BulkResult{Succeeded: []int64{}, Failed: []BulkError{}}
	buf := events.NewBuffer(actor)
	for i := range overdue {
		b := &overdue[i]
		if err := domain.AttemptBatchTransition(b, domain.BatchDelayed, today); err != nil {
			res.Failed = append(res.Failed, BulkError{ID: b.ID, Error: err.Error()})
			continue
		}
		if err := s.batches.UpdateVersioned(ctx, b); err != nil {
			res.Failed = append(res.Failed, BulkError{ID: b.ID, Error: err.Error()})
			continue
		}
		res.Succeeded = append(res.Succeeded, b.ID)
		s.emitTransition(buf, b)
	}
	s.dispatcher.Flush(ctx, buf)
	return res, nil
}
