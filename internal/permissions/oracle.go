package permissions

import (
	"context"

	"baaseteen/case-portal/case-portal-backend/pkg/workflows"
)

// Resources and actions checked by the case workflow.
const (
	ResourceCases           = "cases"
	ResourceCounselingForms = "counseling_forms"
	ResourceCoverLetters    = "cover_letters"
	ResourceWelfareReviews  = "welfare_reviews"

	ActionRead         = "read"
	ActionCreate       = "create"
	ActionUpdateStatus = "update_status"
	ActionAssign       = "assign"
	ActionUpdate       = "update"
	ActionComplete     = "complete"
	ActionGenerate     = "generate"
	ActionDecide       = "decide"
)

// Check is one resource/action pair.
type Check struct {
	Resource string `json:"resource" db:"resource"`
	Action   string `json:"action" db:"action"`
}

// Oracle answers role permission questions.
type Oracle interface {
	HasPermission(ctx context.Context, role, resource, action string) (bool, error)
	HasAnyPermission(ctx context.Context, role string, checks []Check) (bool, error)
	RolesWithPermission(ctx context.Context, resource, action string) ([]string, error)
}

// Require returns a ForbiddenError when the role lacks the permission.
func Require(ctx context.Context, oracle Oracle, role, resource, action string) error {
	ok, err := oracle.HasPermission(ctx, role, resource, action)
	if err != nil {
		return err
	}
	if !ok {
		return &workflows.ForbiddenError{Role: role, Resource: resource, Action: action}
	}
	return nil
}

// DefaultGrants is the baseline grant set seeded into role_permissions. Keys
// are capabilities; every spelling of a capability receives the same grants.
var DefaultGrants = map[workflows.Capability][]Check{
	workflows.CapabilityCounselingManager: {
		{ResourceCases, ActionRead},
		{ResourceCases, ActionCreate},
		{ResourceCases, ActionUpdateStatus},
		{ResourceCases, ActionAssign},
		{ResourceCounselingForms, ActionUpdate},
		{ResourceCounselingForms, ActionComplete},
		{ResourceCoverLetters, ActionGenerate},
	},
	workflows.CapabilityCounselor: {
		{ResourceCases, ActionRead},
		{ResourceCases, ActionUpdateStatus},
		{ResourceCounselingForms, ActionUpdate},
		{ResourceCounselingForms, ActionComplete},
	},
	workflows.CapabilityWelfareReviewer: {
		{ResourceCases, ActionRead},
		{ResourceCases, ActionUpdateStatus},
		{ResourceWelfareReviews, ActionDecide},
	},
	workflows.CapabilityExecutive: {
		{ResourceCases, ActionRead},
		{ResourceCases, ActionUpdateStatus},
	},
	workflows.CapabilityFinance: {
		{ResourceCases, ActionRead},
		{ResourceCases, ActionUpdateStatus},
	},
}
