package allocation

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

type Service struct {
	db          *gorm.DB
	allocations *repository.AllocationRepository
	batches     *repository.BatchRepository
	users       *repository.UserRepository
	checker     *Checker
	dispatcher  *events.Dispatcher
	clock       clock.Clock
}

func NewService(
	db *gorm.DB,
	allocations *repository.AllocationRepository,
	batches *repository.BatchRepository,
	users *repository.UserRepository,
	dispatcher *events.Dispatcher,
	clk clock.Clock,
) *Service {
	return &Service{
		db:          db,
		allocations: allocations,
		batches:     batches,
		users:       users,
		checker:     NewChecker(allocations, batches),
		dispatcher:  dispatcher,
		clock:       clk,
	}
}

type WorkforceInput struct {
	BatchID      int64
	UserID       int64
	RoleAssigned string
	StartDate    *time.Time
	EndDate      *time.Time
}

// WorkforceResult pairs the created row with any non-fatal overlap warnings.
type WorkforceResult struct {
	Allocation *domain.WorkforceAllocation `json:"allocation"`
	Warnings   []Conflict                  `json:"warnings"`
}

// AllocateWorkforce assigns a worker to a batch. Same-batch duplicates block
// with CannotProceed; date overlaps with other batches are returned as
// warnings. The batch summary is recomputed in the same transaction as the
// insert.
func (s *Service) AllocateWorkforce(ctx context.Context, actor domain.Actor, in WorkforceInput) (*WorkforceResult, error) {
	b, err := s.batches.GetByID(ctx, in.BatchID)
	if err != nil {
		return nil, err
	}
	if b.Status.Terminal() {
		return nil, &domain.ConstraintViolationError{Field: "batch_id", Reason: "batch is in a terminal state"}
	}

	u, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.ConstraintViolationError{Field: "user_id", Reason: "unknown user"}
		}
		return nil, err
	}
	if err := ValidateRole(u.Role, in.RoleAssigned); err != nil {
		return nil, err
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return nil, &domain.ConstraintViolationError{Field: "end_date", Reason: "must not precede start_date"}
	}

	var created *domain.WorkforceAllocation
	var warnings []Conflict

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		allocations := s.allocations.WithTx(tx)
		batches := s.batches.WithTx(tx)
		checker := s.checker.WithTx(allocations, batches)

		report, err := checker.CheckWorkforce(ctx, in.UserID, in.BatchID, in.StartDate, in.EndDate, 0)
		if err != nil {
			return err
		}
		if !report.CanProceed {
			reasons := make([]string, 0, len(report.Conflicts))
			for _, c := range report.Conflicts {
				if c.Kind == ConflictSameBatch {
					reasons = append(reasons, string(c.Kind))
				}
			}
			return &domain.CannotProceedError{Reasons: reasons}
		}
		for _, c := range report.Conflicts {
			if c.Kind == ConflictDateOverlap {
				warnings = append(warnings, c)
			}
		}

		a := &domain.WorkforceAllocation{
			BatchID:       in.BatchID,
			UserID:        in.UserID,
			RoleAssigned:  in.RoleAssigned,
			AllocatedByID: actor.UserID,
			StartDate:     in.StartDate,
			EndDate:       in.EndDate,
		}
		if err := allocations.CreateWorkforce(ctx, a); err != nil {
			// The unique index backs the same_batch rule under concurrency.
			if repository.IsUniqueViolation(err) {
				return &domain.CannotProceedError{Reasons: []string{string(ConflictSameBatch)}}
			}
			return err
		}
		if _, err := allocations.RecomputeSummary(ctx, in.BatchID); err != nil {
			return err
		}
		created = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	buf := events.NewBuffer(actor)
	buf.Emit(events.Event{
		Kind:            events.AllocationCreated,
		Entity:          events.EntityRef{Type: "workforce_allocation", ID: created.ID},
		Title:           "Workforce allocated",
		Message:         fmt.Sprintf("User %d allocated to batch %s as %s", in.UserID, b.BatchCode, in.RoleAssigned),
		Payload:         map[string]any{"batch_code": b.BatchCode, "role_assigned": in.RoleAssigned},
		ExtraRecipients: []int64{in.UserID, b.SupervisorID},
	})
	if len(warnings) > 0 {
		buf.Emit(events.Event{
			Kind:    events.AllocationConflict,
			Entity:  events.EntityRef{Type: "workforce_allocation", ID: created.ID},
			Title:   "Allocation overlap",
			Message: fmt.Sprintf("User %d has %d overlapping allocation(s)", in.UserID, len(warnings)),
			Payload: map[string]any{"batch_code": b.BatchCode},
		})
	}
	s.dispatcher.Flush(ctx, buf)

	if warnings == nil {
		warnings = []Conflict{}
	}
	return &WorkforceResult{Allocation: created, Warnings: warnings}, nil
}

// Check runs the conflict checker without writing anything.
func (s *Service) Check(ctx context.Context, userID, batchID int64, start, end *time.Time, exceptID int64) (*Report, error) {
	return s.checker.CheckWorkforce(ctx, userID, batchID, start, end, exceptID)
}

// ReleaseWorkforce removes an allocation and refreshes the batch summary in
// the same transaction.
func (s *Service) ReleaseWorkforce(ctx context.Context, actor domain.Actor, id int64) error {
	var batchID int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		allocations := s.allocations.WithTx(tx)
		a, err := allocations.GetWorkforceByID(ctx, id)
		if err != nil {
			return err
		}
		batchID = a.BatchID
		if err := allocations.DeleteWorkforce(ctx, id); err != nil {
			return err
		}
		_, err = allocations.RecomputeSummary(ctx, batchID)
		return err
	})
	if err != nil {
		return err
	}

	buf := events.NewBuffer(actor)
	buf.Emit(events.Event{
		Kind:    events.AllocationCompleted,
		Entity:  events.EntityRef{Type: "workforce_allocation", ID: id},
		Title:   "Workforce released",
		Message: fmt.Sprintf("Workforce allocation %d released from batch %d", id, batchID),
	})
	s.dispatcher.Flush(ctx, buf)
	return nil
}

type MaterialInput struct {
	BatchID      int64
	MaterialName string
	Quantity     float64
	Unit         string
	CostPerUnit  *float64
	Supplier     string
}

// AllocateMaterial records a material assignment and refreshes the summary
// in the same transaction.
func (s *Service) AllocateMaterial(ctx context.Context, actor domain.Actor, in MaterialInput) (*domain.MaterialAllocation, error) {
	name := strings.TrimSpace(in.MaterialName)
	if name == "" {
		return nil, &domain.ConstraintViolationError{Field: "material_name", Reason: "required"}
	}
	if in.Quantity <= 0 {
		return nil, &domain.ConstraintViolationError{Field: "quantity", Reason: "must be positive"}
	}
	if in.CostPerUnit != nil && *in.CostPerUnit < 0 {
		return nil, &domain.ConstraintViolationError{Field: "cost_per_unit", Reason: "must be non-negative"}
	}

	b, err := s.batches.GetByID(ctx, in.BatchID)
	if err != nil {
		return nil, err
	}
	if b.Status.Terminal() {
		return nil, &domain.ConstraintViolationError{Field: "batch_id", Reason: "batch is in a terminal state"}
	}

	var created *domain.MaterialAllocation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		allocations := s.allocations.WithTx(tx)
		a := &domain.MaterialAllocation{
			BatchID:       in.BatchID,
			MaterialName:  name,
			Quantity:      in.Quantity,
			Unit:          in.Unit,
			CostPerUnit:   in.CostPerUnit,
			Supplier:      in.Supplier,
			AllocatedByID: actor.UserID,
		}
		if err := allocations.CreateMaterial(ctx, a); err != nil {
			return err
		}
		if _, err := allocations.RecomputeSummary(ctx, in.BatchID); err != nil {
			return err
		}
		created = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	buf := events.NewBuffer(actor)
	buf.Emit(events.Event{
		Kind:            events.AllocationCreated,
		Entity:          events.EntityRef{Type: "material_allocation", ID: created.ID},
		Title:           "Material allocated",
		Message:         fmt.Sprintf("%.2f %s of %s allocated to batch %s", in.Quantity, in.Unit, name, b.BatchCode),
		Payload:         map[string]any{"batch_code": b.BatchCode, "material_name": name},
		ExtraRecipients: []int64{b.SupervisorID},
	})
	s.dispatcher.Flush(ctx, buf)
	return created, nil
}

// ReleaseMaterial removes a material allocation and refreshes the summary.
func (s *Service) ReleaseMaterial(ctx context.Context, actor domain.Actor, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		allocations := s.allocations.WithTx(tx)
		a, err := allocations.GetMaterialByID(ctx, id)
		if err != nil {
			return err
		}
		if err := allocations.DeleteMaterial(ctx, id); err != nil {
			return err
		}
		_, err = allocations.RecomputeSummary(ctx, a.BatchID)
		return err
	})
}

func (s *Service) ListWorkforce(ctx context.Context, batchID int64) ([]domain.WorkforceAllocation, error) {
	return s.allocations.ListWorkforceByBatch(ctx, batchID)
}

func (s *Service) ListMaterials(ctx context.Context, batchID int64) ([]domain.MaterialAllocation, error) {
	return s.allocations.ListMaterialByBatch(ctx, batchID)
}

func (s *Service) Summary(ctx context.Context, batchID int64) (*domain.AllocationSummary, error) {
	sum, err := s.allocations.GetSummary(ctx, batchID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.AllocationSummary{BatchID: batchID}, nil
		}
		return nil, err
	}
	return sum, nil
}
