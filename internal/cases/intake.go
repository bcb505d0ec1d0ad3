package cases

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"baaseteen/case-portal/case-portal-backend/internal/permissions"
	"baaseteen/case-portal/case-portal-backend/pkg/workflows"
)

// RegisterIdentification stores a new intake record awaiting screening.
func (e *Engine) RegisterIdentification(ctx context.Context, ident *Identification, actor Actor) error {
	if ident.ApplicantName == "" || ident.CaseType == "" {
		return fmt.Errorf("%w: applicant_name and case_type are required", workflows.ErrInvalidRequest)
	}
	if err := permissions.Require(ctx, e.oracle, actor.Role, permissions.ResourceCases, permissions.ActionCreate); err != nil {
		return err
	}
	ident.ID = 0
	ident.EligibilityStatus = "pending"
	ident.CaseID = nil
	if err := e.repo.CreateIdentification(ctx, ident); err != nil {
		return fmt.Errorf("failed to create identification: %w", err)
	}
	return nil
}

// CreateFromIdentification opens a draft case for an identification record
// approved as eligible. The case is inserted under a temporary number and
// renumbered from its id in the same transaction.
func (e *Engine) CreateFromIdentification(ctx context.Context, identificationID uint, outcome string, actor Actor) (*Case, error) {
	if outcome != EligibilityEligible {
		return nil, fmt.Errorf("%w: only %q identifications open a case, got %q",
			workflows.ErrInvalidRequest, EligibilityEligible, outcome)
	}
	if err := permissions.Require(ctx, e.oracle, actor.Role, permissions.ResourceCases, permissions.ActionCreate); err != nil {
		return nil, err
	}

	var created *Case
	err := e.repo.RunInTransaction(ctx, func(tx Tx) error {
		ident, err := tx.LockIdentification(ctx, identificationID)
		if err != nil {
			return err
		}
		if ident.CaseID != nil {
			return fmt.Errorf("%w: identification %d already has case %d",
				workflows.ErrConflict, ident.ID, *ident.CaseID)
		}

		identID := ident.ID
		c := &Case{
			CaseNumber:       "TMP-" + uuid.NewString(),
			CaseType:         ident.CaseType,
			ApplicantName:    ident.ApplicantName,
			Status:           workflows.StatusDraft,
			WorkflowHistory:  datatypes.JSONSlice[WorkflowHistoryEntry]{},
			IdentificationID: &identID,
			CreatedBy:        actorID(&actor),
		}
		if err := tx.CreateCase(ctx, c); err != nil {
			return fmt.Errorf("failed to create case: %w", err)
		}
		c.CaseNumber = FormatCaseNumber(c.CaseType, c.ID)
		if err := tx.SaveCase(ctx, c); err != nil {
			return fmt.Errorf("failed to assign case number: %w", err)
		}

		caseID := c.ID
		ident.EligibilityStatus = outcome
		ident.ReviewedBy = actorID(&actor)
		ident.CaseID = &caseID
		if err := tx.SaveIdentification(ctx, ident); err != nil {
			return fmt.Errorf("failed to update identification: %w", err)
		}
		created = c
		return nil
	})
	if err != nil {
		return nil, WrapTxError("create case", err)
	}

	e.logger.Info("Case opened from identification",
		zap.Uint("case_id", created.ID),
		zap.String("case_number", created.CaseNumber),
		zap.Uint("identification_id", identificationID),
	)
	return created, nil
}

// AssignPersonnel sets the counselor and manager of a case. Assigning a
// counselor to a draft case also moves it to assigned; that move follows the
// status graph but not the role gate, since the assign permission already
// covers it.
func (e *Engine) AssignPersonnel(ctx context.Context, caseID uint, a Assignment, actor Actor) (*Case, error) {
	if a.CounselorID == nil && a.ManagerID == nil {
		return nil, fmt.Errorf("%w: counselor_id or manager_id is required", workflows.ErrInvalidRequest)
	}
	if err := permissions.Require(ctx, e.oracle, actor.Role, permissions.ResourceCases, permissions.ActionAssign); err != nil {
		return nil, err
	}

	var updated *Case
	var change *StatusChange
	err := e.repo.RunInTransaction(ctx, func(tx Tx) error {
		c, err := tx.LockCase(ctx, caseID)
		if err != nil {
			return err
		}
		if workflows.IsTerminal(c.Status) {
			return &workflows.TransitionError{Current: c.Status, Attempted: c.Status, Gate: workflows.GateTerminal}
		}

		if a.CounselorID != nil {
			id := *a.CounselorID
			c.AssignedCounselorID = &id
		}
		if a.ManagerID != nil {
			id := *a.ManagerID
			c.AssignedManagerID = &id
		}

		if c.Status != workflows.StatusDraft {
			updated = c
			return tx.SaveCase(ctx, c)
		}

		if c.AssignedCounselorID == nil {
			return fmt.Errorf("%w: a counselor must be assigned before the case leaves draft", workflows.ErrInvalidRequest)
		}
		if rejection := workflows.CheckSystemTransition(c.Status, workflows.StatusAssigned); rejection != nil {
			return rejection
		}
		change, err = e.Apply(ctx, tx, c, workflows.StatusAssigned, ApplyOptions{
			Actor:   &actor,
			Comment: "Counselor assigned",
			Action:  ActionAssignment,
		})
		if err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, WrapTxError("assign personnel", err)
	}

	e.logger.Info("Case personnel assigned",
		zap.Uint("case_id", caseID),
		zap.String("status", string(updated.Status)),
		zap.Uint("actor_id", actor.ID),
	)
	e.AfterCommit(ctx, change)
	return updated, nil
}
