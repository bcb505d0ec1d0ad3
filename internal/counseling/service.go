package counseling

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"baaseteen/case-portal/case-portal-backend/internal/cases"
	"baaseteen/case-portal/case-portal-backend/internal/notifications"
	"baaseteen/case-portal/case-portal-backend/internal/permissions"
	"baaseteen/case-portal/case-portal-backend/internal/stages"
	"baaseteen/case-portal/case-portal-backend/pkg/workflows"
)

const (
	progressionComment = "Advanced automatically from counseling form progress"
	completionComment  = "Counseling form completed and submitted for welfare review"
)

// Service runs the counseling form lifecycle on top of the case engine.
type Service struct {
	repo   Repository
	engine *cases.Engine
	oracle permissions.Oracle
	logger *zap.Logger
}

func NewService(repo Repository, engine *cases.Engine, oracle permissions.Oracle, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		engine: engine,
		oracle: oracle,
		logger: logger,
	}
}

// FormView is a form with its saved sections.
type FormView struct {
	Form       *Form            `json:"form"`
	Sections   []Section        `json:"sections"`
	CaseStatus workflows.Status `json:"case_status"`
	Missing    []string         `json:"missing_sections"`
	Editable   bool             `json:"editable"`
}

var openFormChecks = []permissions.Check{
	{Resource: permissions.ResourceCases, Action: permissions.ActionRead},
	{Resource: permissions.ResourceCounselingForms, Action: permissions.ActionUpdate},
}

// OpenForm returns the counseling form of a case, creating an empty one the
// first time. Draft cases have no counselor yet and cannot be opened.
func (s *Service) OpenForm(ctx context.Context, caseID uint, actor cases.Actor) (*FormView, error) {
	allowed, err := s.oracle.HasAnyPermission(ctx, actor.Role, openFormChecks)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, &workflows.ForbiddenError{
			Role:     actor.Role,
			Resource: permissions.ResourceCounselingForms,
			Action:   permissions.ActionRead,
			Reason:   "requires cases:read or counseling_forms:update",
		}
	}

	var form *Form
	var status workflows.Status
	err = s.repo.RunInTransaction(ctx, func(tx Tx) error {
		c, err := tx.LockCase(ctx, caseID)
		if err != nil {
			return err
		}
		if c.Status == workflows.StatusDraft {
			return fmt.Errorf("%w: case %s is not assigned for counseling", workflows.ErrInvalidRequest, c.CaseNumber)
		}
		status = c.Status

		form, err = tx.FindFormByCase(ctx, caseID)
		if err != nil {
			return err
		}
		if form != nil {
			return nil
		}
		form = &Form{CaseID: caseID}
		if err := tx.CreateForm(ctx, form); err != nil {
			return fmt.Errorf("failed to create counseling form: %w", err)
		}
		s.logger.Info("Counseling form created", zap.Uint("case_id", caseID), zap.Uint("form_id", form.ID))
		return nil
	})
	if err != nil {
		return nil, cases.WrapTxError("open counseling form", err)
	}

	sections, err := s.repo.ListSections(ctx, form.ID)
	if err != nil {
		return nil, err
	}
	if sections == nil {
		sections = []Section{}
	}
	return &FormView{
		Form:       form,
		Sections:   sections,
		CaseStatus: status,
		Missing:    form.MissingSections(),
		Editable:   Editable(form, status),
	}, nil
}

// SaveSection stores one section and then lets the form progress move the
// case along. Progression failures are logged only.
func (s *Service) SaveSection(ctx context.Context, formID uint, name string, data json.RawMessage, actor cases.Actor) (*Section, error) {
	if !ValidSection(name) {
		return nil, fmt.Errorf("%w: unknown section %q", workflows.ErrInvalidRequest, name)
	}
	if len(data) == 0 || !json.Valid(data) {
		return nil, fmt.Errorf("%w: section data must be a JSON document", workflows.ErrInvalidRequest)
	}
	if err := permissions.Require(ctx, s.oracle, actor.Role, permissions.ResourceCounselingForms, permissions.ActionUpdate); err != nil {
		return nil, err
	}
	current, err := s.repo.GetForm(ctx, formID)
	if err != nil {
		return nil, err
	}
	caseID := current.CaseID

	var section *Section
	err = s.repo.RunInTransaction(ctx, func(tx Tx) error {
		c, err := tx.LockCase(ctx, caseID)
		if err != nil {
			return err
		}
		form, err := tx.LockForm(ctx, formID)
		if err != nil {
			return err
		}
		if !Editable(form, c.Status) {
			return fmt.Errorf("%w: case %s is %s", workflows.ErrFormLocked, c.CaseNumber, c.Status)
		}

		actorID := actor.ID
		section = &Section{
			FormID:    form.ID,
			Name:      name,
			Data:      datatypes.JSON(data),
			UpdatedBy: &actorID,
			UpdatedAt: s.engine.Now(),
		}
		if err := tx.SaveSection(ctx, section); err != nil {
			return fmt.Errorf("failed to save section: %w", err)
		}
		form.SetSection(name, section.ID)
		return tx.SaveForm(ctx, form)
	})
	if err != nil {
		return nil, cases.WrapTxError("save counseling section", err)
	}

	s.OnSectionSaved(ctx, caseID)
	return section, nil
}

// OnSectionSaved recomputes the expected phase of the case's form and applies
// it as a system transition when it is a legal move. Errors are logged.
func (s *Service) OnSectionSaved(ctx context.Context, caseID uint) {
	change, err := s.progress(ctx, caseID)
	if err != nil {
		s.logger.Warn("Counseling progression failed", zap.Uint("case_id", caseID), zap.Error(err))
		return
	}
	if change == nil {
		return
	}
	s.logger.Info("Case advanced by counseling progress",
		zap.Uint("case_id", caseID),
		zap.String("from", string(change.From)),
		zap.String("to", string(change.To)),
	)
	s.engine.AfterCommit(ctx, change)
}

func (s *Service) progress(ctx context.Context, caseID uint) (*cases.StatusChange, error) {
	var change *cases.StatusChange
	err := s.repo.RunInTransaction(ctx, func(tx Tx) error {
		c, err := tx.LockCase(ctx, caseID)
		if err != nil {
			return err
		}
		form, err := tx.FindFormByCase(ctx, caseID)
		if err != nil || form == nil {
			return err
		}
		expected, ok := ExpectedStatus(form)
		if !ok || expected == c.Status {
			return nil
		}
		if rejection := workflows.CheckSystemTransition(c.Status, expected); rejection != nil {
			s.logger.Debug("Counseling progression skipped",
				zap.Uint("case_id", caseID),
				zap.String("status", string(c.Status)),
				zap.String("expected", string(expected)),
			)
			return nil
		}

		var stage *stages.WorkflowStage
		if expected == workflows.StatusInCounseling {
			stage, err = s.engine.Stages().Resolve(ctx, stages.KeyCounselor, c.CaseType)
			if err != nil {
				s.logger.Warn("Failed to resolve counselor stage", zap.Uint("case_id", caseID), zap.Error(err))
				stage = nil
			}
		}

		change, err = s.engine.Apply(ctx, tx, c, expected, cases.ApplyOptions{
			Comment: progressionComment,
			Action:  cases.ActionAutoProgression,
			Stage:   stage,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// Complete submits a fully filled form for welfare review. It is the only
// path that sets is_complete.
func (s *Service) Complete(ctx context.Context, formID uint, actor cases.Actor) (*Form, error) {
	current, err := s.repo.GetForm(ctx, formID)
	if err != nil {
		return nil, err
	}
	if missing := current.MissingSections(); len(missing) > 0 {
		return nil, &workflows.IncompleteSectionsError{Missing: missing}
	}
	if err := permissions.Require(ctx, s.oracle, actor.Role, permissions.ResourceCounselingForms, permissions.ActionComplete); err != nil {
		return nil, err
	}
	reviewerRoles, err := s.reviewerRoles(ctx)
	if err != nil {
		return nil, err
	}

	var (
		completed *Form
		change    *cases.StatusChange
		event     notifications.FormCompletedEvent
	)
	err = s.repo.RunInTransaction(ctx, func(tx Tx) error {
		c, err := tx.LockCase(ctx, current.CaseID)
		if err != nil {
			return err
		}
		form, err := tx.LockForm(ctx, formID)
		if err != nil {
			return err
		}
		if missing := form.MissingSections(); len(missing) > 0 {
			return &workflows.IncompleteSectionsError{Missing: missing}
		}
		if !workflows.IsAdministrative(actor.Role) && !c.IsAssignee(actor.ID) {
			return &workflows.ForbiddenError{
				Role:     actor.Role,
				Resource: permissions.ResourceCounselingForms,
				Action:   permissions.ActionComplete,
				Reason:   "only the assigned counseling manager or counselor may complete this form",
			}
		}
		if form.IsComplete && c.Status != workflows.StatusInCounseling {
			return fmt.Errorf("%w: case %s is %s", workflows.ErrFormLocked, c.CaseNumber, c.Status)
		}

		stage, err := s.engine.Stages().Resolve(ctx, stages.KeyWelfareReview, c.CaseType)
		if err != nil {
			s.logger.Warn("Failed to resolve welfare review stage", zap.Uint("case_id", c.ID), zap.Error(err))
			stage = nil
		}
		target := workflows.StatusSubmittedToWelfare
		if stage != nil {
			if status, ok := stage.CanonicalStatus(); ok {
				target = status
			}
		}
		if c.Status != workflows.StatusInCounseling {
			return &workflows.TransitionError{
				Current:   c.Status,
				Attempted: target,
				Gate:      workflows.GateGraph,
				Role:      actor.Role,
			}
		}

		now := s.engine.Now()
		actorID := actor.ID
		form.IsComplete = true
		form.CompletedAt = &now
		form.CompletedBy = &actorID
		if err := tx.SaveForm(ctx, form); err != nil {
			return fmt.Errorf("failed to update counseling form: %w", err)
		}

		change, err = s.engine.Apply(ctx, tx, c, target, cases.ApplyOptions{
			Actor:   &actor,
			Comment: completionComment,
			Action:  cases.ActionFormCompleted,
			Stage:   stage,
		})
		if err != nil {
			return err
		}

		comment := &cases.CaseComment{
			CaseID:    c.ID,
			UserID:    &actorID,
			Comment:   fmt.Sprintf("Counseling form submitted for welfare review by %s", actor.Name),
			CreatedAt: now,
		}
		if err := tx.AddComment(ctx, comment); err != nil {
			return fmt.Errorf("failed to add case comment: %w", err)
		}

		var reviewers []uint
		if len(reviewerRoles) > 0 {
			reviewers, err = tx.ActiveUserIDsWithRoles(ctx, reviewerRoles)
			if err != nil {
				return err
			}
		}
		if err := tx.CreateNotifications(ctx, reviewerNotifications(c, reviewers)); err != nil {
			return fmt.Errorf("failed to create reviewer notifications: %w", err)
		}

		completed = form
		event = notifications.FormCompletedEvent{
			CaseID:     c.ID,
			CaseNumber: c.CaseNumber,
			FormID:     form.ID,
			Recipients: reviewers,
			OccurredAt: now,
		}
		return nil
	})
	if err != nil {
		return nil, cases.WrapTxError("complete counseling form", err)
	}

	s.logger.Info("Counseling form completed",
		zap.Uint("form_id", formID),
		zap.Uint("case_id", event.CaseID),
		zap.String("status", string(change.To)),
		zap.Int("reviewers_notified", len(event.Recipients)),
	)
	s.engine.AfterCommit(ctx, change)
	s.engine.NotifyFormCompleted(ctx, event)
	return completed, nil
}

// reviewerRoles lists the roles granted welfare review decisions. Admins hold
// every grant implicitly and are not notified.
func (s *Service) reviewerRoles(ctx context.Context) ([]string, error) {
	roles, err := s.oracle.RolesWithPermission(ctx, permissions.ResourceWelfareReviews, permissions.ActionDecide)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve welfare reviewer roles: %w", err)
	}
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		if !workflows.IsAdministrative(role) {
			out = append(out, role)
		}
	}
	return out, nil
}

func reviewerNotifications(c *cases.Case, reviewers []uint) []notifications.Notification {
	items := make([]notifications.Notification, 0, len(reviewers))
	for _, userID := range reviewers {
		caseID := c.ID
		items = append(items, notifications.Notification{
			UserID:  userID,
			CaseID:  &caseID,
			Type:    notifications.EventFormCompleted,
			Title:   fmt.Sprintf("Case %s ready for welfare review", c.CaseNumber),
			Message: fmt.Sprintf("The counseling form for case %s (%s) has been submitted.", c.CaseNumber, c.ApplicantName),
		})
	}
	return items
}
