package cases

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"baaseteen/case-portal/case-portal-backend/internal/notifications"
	"baaseteen/case-portal/case-portal-backend/internal/permissions"
	"baaseteen/case-portal/case-portal-backend/internal/stages"
	"baaseteen/case-portal/case-portal-backend/pkg/workflows"
)

// StageResolver looks up workflow stages, scoped by case type with an
// agnostic fallback. A nil stage with a nil error means no stage matches.
type StageResolver interface {
	Resolve(ctx context.Context, key, caseType string) (*stages.WorkflowStage, error)
	ForStatus(ctx context.Context, status workflows.Status, caseType string) (*stages.WorkflowStage, error)
}

// Dispatcher receives events after the owning transaction commits.
type Dispatcher interface {
	NotifyStatusChange(ctx context.Context, event notifications.StatusChangeEvent) error
	NotifyFormCompleted(ctx context.Context, event notifications.FormCompletedEvent) error
}

// Engine owns case status mutations. Every mutation keeps status, workflow
// history and the status audit ledger consistent inside one transaction.
type Engine struct {
	repo       Repository
	oracle     permissions.Oracle
	stages     StageResolver
	dispatcher Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

func NewEngine(repo Repository, oracle permissions.Oracle, stages StageResolver, dispatcher Dispatcher, logger *zap.Logger) *Engine {
	return &Engine{
		repo:       repo,
		oracle:     oracle,
		stages:     stages,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock replaces the time source. Tests use it to pin entered_at values.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Now returns the engine's current time.
func (e *Engine) Now() time.Time {
	return e.now()
}

// ApplyOptions describes who applies a status and under which stage.
type ApplyOptions struct {
	Actor   *Actor
	Comment string
	Action  string
	// Stage overrides the stage derived from the target status.
	Stage *stages.WorkflowStage
}

// StatusChange reports the effect of Apply.
type StatusChange struct {
	CaseID        uint
	CaseNumber    string
	From          workflows.Status
	To            workflows.Status
	StatusChanged bool
	StageChanged  bool
	Actor         *Actor
	Comment       string
	Recipients    []uint
}

// Event converts the change into the dispatcher payload.
func (ch *StatusChange) Event(at time.Time) notifications.StatusChangeEvent {
	return notifications.StatusChangeEvent{
		CaseID:     ch.CaseID,
		CaseNumber: ch.CaseNumber,
		FromStatus: ch.From,
		ToStatus:   ch.To,
		ActorID:    actorID(ch.Actor),
		ActorName:  actorName(ch.Actor),
		Comment:    ch.Comment,
		Recipients: ch.Recipients,
		OccurredAt: at,
	}
}

// Apply writes a status onto a case that the caller has locked in tx. It
// does not check legality; callers run the authorizer first. A workflow
// history entry is appended only when the stage actually changes, and an
// audit row only when the status actually changes.
func (e *Engine) Apply(ctx context.Context, tx Tx, c *Case, to workflows.Status, opts ApplyOptions) (*StatusChange, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: %q", workflows.ErrInvalidStatus, to)
	}
	now := e.now()

	stage := opts.Stage
	if stage == nil {
		resolved, err := e.stages.ForStatus(ctx, to, c.CaseType)
		if err != nil {
			// The status change still goes through; the stage log catches up on the next move.
			e.logger.Warn("Failed to resolve workflow stage",
				zap.Uint("case_id", c.ID),
				zap.String("status", string(to)),
				zap.Error(err),
			)
		}
		stage = resolved
	}

	change := &StatusChange{
		CaseID:        c.ID,
		CaseNumber:    c.CaseNumber,
		From:          c.Status,
		To:            to,
		StatusChanged: c.Status != to,
		Actor:         opts.Actor,
		Comment:       opts.Comment,
	}

	if stage != nil && (c.CurrentWorkflowStageID == nil || *c.CurrentWorkflowStageID != stage.ID) {
		action := opts.Action
		if action == "" {
			action = ActionStatusChange
		}
		c.WorkflowHistory = append(c.WorkflowHistory, WorkflowHistoryEntry{
			StageID:       stage.ID,
			StageName:     stage.Name,
			EnteredAt:     now,
			EnteredBy:     actorID(opts.Actor),
			EnteredByName: actorName(opts.Actor),
			Action:        action,
		})
		stageID := stage.ID
		c.CurrentWorkflowStageID = &stageID
		change.StageChanged = true
	}

	if !change.StatusChanged && !change.StageChanged {
		change.Recipients = c.Recipients()
		return change, nil
	}

	c.Status = to
	c.UpdatedAt = now
	if err := tx.SaveCase(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to update case: %w", err)
	}

	if change.StatusChanged {
		entry := &StatusHistory{
			CaseID:     c.ID,
			FromStatus: change.From,
			ToStatus:   to,
			ChangedBy:  actorID(opts.Actor),
			Comment:    opts.Comment,
			CreatedAt:  now,
		}
		if err := tx.AppendStatusHistory(ctx, entry); err != nil {
			return nil, fmt.Errorf("failed to record status history: %w", err)
		}
	}

	change.Recipients = c.Recipients()
	return change, nil
}

// Transition moves a case to a new status on behalf of a user.
func (e *Engine) Transition(ctx context.Context, caseID uint, to workflows.Status, actor Actor, comment string) (*Case, error) {
	return e.TransitionWithAction(ctx, caseID, to, actor, comment, ActionStatusChange)
}

// TransitionWithAction is Transition with a custom workflow history action tag.
func (e *Engine) TransitionWithAction(ctx context.Context, caseID uint, to workflows.Status, actor Actor, comment, action string) (*Case, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: %q", workflows.ErrInvalidStatus, to)
	}
	if err := permissions.Require(ctx, e.oracle, actor.Role, permissions.ResourceCases, permissions.ActionUpdateStatus); err != nil {
		return nil, err
	}

	var updated *Case
	var change *StatusChange
	err := e.repo.RunInTransaction(ctx, func(tx Tx) error {
		c, err := tx.LockCase(ctx, caseID)
		if err != nil {
			return err
		}
		// Legality is evaluated against the locked row so a racing request
		// sees the status committed by the one before it.
		if rejection := workflows.CheckTransition(c.Status, to, actor.Role); rejection != nil {
			return rejection
		}
		change, err = e.Apply(ctx, tx, c, to, ApplyOptions{Actor: &actor, Comment: comment, Action: action})
		if err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, WrapTxError("transition", err)
	}

	e.logger.Info("Case status changed",
		zap.Uint("case_id", caseID),
		zap.String("from", string(change.From)),
		zap.String("to", string(change.To)),
		zap.Uint("actor_id", actor.ID),
	)
	e.AfterCommit(ctx, change)
	return updated, nil
}

// LegalNextStatuses returns the statuses the actor may move the case into.
func (e *Engine) LegalNextStatuses(ctx context.Context, caseID uint, actor Actor) ([]workflows.Status, error) {
	c, err := e.GetCase(ctx, caseID, actor)
	if err != nil {
		return nil, err
	}
	return workflows.LegalNextStatuses(c.Status, actor.Role), nil
}

// GetCase loads a case for a user holding cases:read.
func (e *Engine) GetCase(ctx context.Context, caseID uint, actor Actor) (*Case, error) {
	if err := permissions.Require(ctx, e.oracle, actor.Role, permissions.ResourceCases, permissions.ActionRead); err != nil {
		return nil, err
	}
	return e.repo.GetCase(ctx, caseID)
}

// StatusHistory returns the audit ledger of a case, oldest first.
func (e *Engine) StatusHistory(ctx context.Context, caseID uint, actor Actor) ([]StatusHistory, error) {
	if _, err := e.GetCase(ctx, caseID, actor); err != nil {
		return nil, err
	}
	history, err := e.repo.ListStatusHistory(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list status history: %w", err)
	}
	return history, nil
}

// Comments lists the free-text comments recorded on a case, oldest first.
func (e *Engine) Comments(ctx context.Context, caseID uint, actor Actor) ([]CaseComment, error) {
	if _, err := e.GetCase(ctx, caseID, actor); err != nil {
		return nil, err
	}
	comments, err := e.repo.ListComments(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list case comments: %w", err)
	}
	return comments, nil
}

// AfterCommit hands committed changes to the dispatcher. Failures are logged
// and never reach the caller.
func (e *Engine) AfterCommit(ctx context.Context, changes ...*StatusChange) {
	if e.dispatcher == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	for _, change := range changes {
		if change == nil || !change.StatusChanged {
			continue
		}
		if err := e.dispatcher.NotifyStatusChange(detached, change.Event(e.now())); err != nil {
			e.logger.Warn("Status change notification failed",
				zap.Uint("case_id", change.CaseID),
				zap.String("to", string(change.To)),
				zap.Error(err),
			)
		}
	}
}

// NotifyFormCompleted forwards a completion event, logging failures.
func (e *Engine) NotifyFormCompleted(ctx context.Context, event notifications.FormCompletedEvent) {
	if e.dispatcher == nil {
		return
	}
	if err := e.dispatcher.NotifyFormCompleted(context.WithoutCancel(ctx), event); err != nil {
		e.logger.Warn("Form completion notification failed",
			zap.Uint("case_id", event.CaseID),
			zap.Error(err),
		)
	}
}

// Stages exposes the resolver so collaborating engines share one catalog.
func (e *Engine) Stages() StageResolver {
	return e.stages
}

// WrapTxError passes validation errors through and marks everything else as
// a failed transaction.
func WrapTxError(op string, err error) error {
	if err == nil || workflows.IsValidationError(err) {
		return err
	}
	return &workflows.TransactionError{Op: op, Err: err}
}
