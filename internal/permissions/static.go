package permissions

import (
	"context"

	"baaseteen/case-portal/case-portal-backend/pkg/workflows"
)

// StaticOracle serves grants from an in-memory table keyed by capability.
type StaticOracle struct {
	grants map[workflows.Capability]map[Check]bool
}

// NewStaticOracle copies grants into a lookup table.
func NewStaticOracle(grants map[workflows.Capability][]Check) *StaticOracle {
	table := make(map[workflows.Capability]map[Check]bool, len(grants))
	for capability, checks := range grants {
		set := make(map[Check]bool, len(checks))
		for _, c := range checks {
			set[c] = true
		}
		table[capability] = set
	}
	return &StaticOracle{grants: table}
}

func (o *StaticOracle) HasPermission(_ context.Context, role, resource, action string) (bool, error) {
	capability, ok := workflows.CapabilityOf(role)
	if !ok {
		return false, nil
	}
	if capability == workflows.CapabilityAdmin {
		return true, nil
	}
	return o.grants[capability][Check{Resource: resource, Action: action}], nil
}

func (o *StaticOracle) HasAnyPermission(ctx context.Context, role string, checks []Check) (bool, error) {
	for _, c := range checks {
		ok, _ := o.HasPermission(ctx, role, c.Resource, c.Action)
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// RolesWithPermission returns every stored role spelling holding the grant,
// admin included.
func (o *StaticOracle) RolesWithPermission(_ context.Context, resource, action string) ([]string, error) {
	roles := workflows.RoleSpellings(workflows.CapabilityAdmin)
	for _, capability := range capabilityOrder {
		if o.grants[capability][Check{Resource: resource, Action: action}] {
			roles = append(roles, workflows.RoleSpellings(capability)...)
		}
	}
	return roles, nil
}

var capabilityOrder = []workflows.Capability{
	workflows.CapabilityCounselingManager,
	workflows.CapabilityCounselor,
	workflows.CapabilityWelfareReviewer,
	workflows.CapabilityExecutive,
	workflows.CapabilityFinance,
}
