package allocation

import (
	"context"
	"time"

	"texpro/internal/domain"
	"texpro/internal/repository"
)

// ConflictKind distinguishes blocking from advisory conflicts.
type ConflictKind string

const (
	ConflictSameBatch   ConflictKind = "same_batch"
	ConflictDateOverlap ConflictKind = "date_overlap"
)

// Conflict describes one clash between a proposed allocation and an
// existing one.
type Conflict struct {
	Kind              ConflictKind `json:"kind"`
	OtherAllocationID int64        `json:"other_allocation_id"`
	OtherBatchCode    string       `json:"other_batch_code"`
	OtherRole         string       `json:"other_role"`
	RangeStart        *time.Time   `json:"range_start,omitempty"`
	RangeEnd          *time.Time   `json:"range_end,omitempty"`
}

// Report is the conflict checker's verdict. A same_batch conflict blocks;
// date overlaps are warnings only.
type Report struct {
	HasConflicts bool       `json:"has_conflicts"`
	CanProceed   bool       `json:"can_proceed"`
	Conflicts    []Conflict `json:"conflicts"`
}

// Checker inspects a user's existing workforce allocations for clashes with
// a proposed one. Read-only; it never mutates anything.
type Checker struct {
	allocations *repository.AllocationRepository
	batches     *repository.BatchRepository
}

func NewChecker(allocations *repository.AllocationRepository, batches *repository.BatchRepository) *Checker {
	return &Checker{allocations: allocations, batches: batches}
}

func (c *Checker) WithTx(allocations *repository.AllocationRepository, batches *repository.BatchRepository) *Checker {
	return &Checker{allocations: allocations, batches: batches}
}

// CheckWorkforce evaluates a proposed allocation of user to batch over
// [start, end]. exceptID excludes the allocation being updated, zero for
// creates.
func (c *Checker) CheckWorkforce(ctx context.Context, userID, batchID int64, start, end *time.Time, exceptID int64) (*Report, error) {
	existing, err := c.allocations.ListWorkforceByUser(ctx, userID, exceptID)
	if err != nil {
		return nil, err
	}

	report := &Report{CanProceed: true, Conflicts: []Conflict{}}
	codes := map[int64]string{}

	for i := range existing {
		other := &existing[i]

		if other.BatchID == batchID {
			report.Conflicts = append(report.Conflicts, Conflict{
				Kind:              ConflictSameBatch,
				OtherAllocationID: other.ID,
				OtherBatchCode:    c.batchCode(ctx, codes, other.BatchID),
				OtherRole:         other.RoleAssigned,
				RangeStart:        other.StartDate,
				RangeEnd:          other.EndDate,
			})
			report.CanProceed = false
			continue
		}

		if start == nil || end == nil || other.StartDate == nil || other.EndDate == nil {
			continue
		}
		if end.Before(*other.StartDate) || start.After(*other.EndDate) {
			continue
		}
		report.Conflicts = append(report.Conflicts, Conflict{
			Kind:              ConflictDateOverlap,
			OtherAllocationID: other.ID,
			OtherBatchCode:    c.batchCode(ctx, codes, other.BatchID),
			OtherRole:         other.RoleAssigned,
			RangeStart:        other.StartDate,
			RangeEnd:          other.EndDate,
		})
	}

	report.HasConflicts = len(report.Conflicts) > 0
	return report, nil
}

func (c *Checker) batchCode(ctx context.Context, cache map[int64]string, batchID int64) string {
	if code, ok := cache[batchID]; ok {
		return code
	}
	code := ""
	if b, err := c.batches.GetByID(ctx, batchID); err == nil {
		code = b.BatchCode
	}
	cache[batchID] = code
	return code
}

// roleCompatibility maps an assigned batch role to the user roles allowed to
// hold it. Admins hold any batch role.
var roleCompatibility = map[string][]domain.UserRole{
	"operator":    {domain.RoleTechnician, domain.RoleOperator},
	"maintenance": {domain.RoleTechnician},
	"qc":          {domain.RoleInspector},
	"supervisor":  {domain.RoleSupervisor},
	"assistant":   {domain.RoleTechnician, domain.RoleOperator},
}

// ValidateRole checks a user role against the assigned batch role.
func ValidateRole(userRole domain.UserRole, roleAssigned string) error {
	if userRole == domain.RoleAdmin {
		return nil
	}
	allowed, ok := roleCompatibility[roleAssigned]
	if !ok {
		return &domain.ConstraintViolationError{Field: "role_assigned", Reason: "unknown role"}
	}
	for _, r := range allowed {
		if r == userRole {
			return nil
		}
	}
	return &domain.ConstraintViolationError{Field: "role_assigned", Reason: "incompatible"}
}
