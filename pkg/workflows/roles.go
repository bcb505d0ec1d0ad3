package workflows

import "strings"

// Capability is the canonical form of a role. Several role spellings used by
// the user directory map onto one capability.
type Capability string

const (
	CapabilityAdmin             Capability = "admin"
	CapabilityCounselingManager Capability = "counseling_manager"
	CapabilityCounselor         Capability = "counselor"
	CapabilityWelfareReviewer   Capability = "welfare_reviewer"
	CapabilityExecutive         Capability = "executive"
	CapabilityFinance           Capability = "finance"
)

// roleSpellings keeps the spellings exactly as they are stored in the users
// table so they can be queried back.
var roleSpellings = map[Capability][]string{
	CapabilityAdmin:             {"admin"},
	CapabilityCounselingManager: {"dcm", "Deputy Counseling Manager", "ZI"},
	CapabilityCounselor:         {"counselor"},
	CapabilityWelfareReviewer:   {"welfare_reviewer"},
	CapabilityExecutive:         {"Executive Management"},
	CapabilityFinance:           {"finance"},
}

var capabilityTargets = map[Capability][]Status{
	CapabilityAdmin:             AllStatuses,
	CapabilityCounselingManager: {StatusInCounseling, StatusCoverLetterGenerated, StatusSubmittedToWelfare},
	CapabilityCounselor:         {StatusInCounseling},
	CapabilityWelfareReviewer:   {StatusWelfareApproved, StatusWelfareRejected},
	CapabilityExecutive:         {StatusExecutiveApproved, StatusExecutiveRejected},
	CapabilityFinance:           {StatusFinanceDisbursement},
}

var roleAliases = buildAliasIndex()

func buildAliasIndex() map[string]Capability {
	index := make(map[string]Capability)
	for capability, spellings := range roleSpellings {
		for _, spelling := range spellings {
			index[normalizeRole(spelling)] = capability
		}
	}
	return index
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

// CapabilityOf canonicalises a role name. The second result is false for
// roles with no known mapping.
func CapabilityOf(role string) (Capability, bool) {
	capability, ok := roleAliases[normalizeRole(role)]
	return capability, ok
}

// RoleSpellings returns every stored spelling that maps to the capability.
func RoleSpellings(capability Capability) []string {
	spellings := roleSpellings[capability]
	out := make([]string, len(spellings))
	copy(out, spellings)
	return out
}

// IsAdministrative reports whether the role overrides per-case assignment checks.
func IsAdministrative(role string) bool {
	capability, ok := CapabilityOf(role)
	return ok && capability == CapabilityAdmin
}

// AllowedTargets returns the statuses a role may move a case into. Unknown
// roles get an empty slice.
func AllowedTargets(role string) []Status {
	capability, ok := CapabilityOf(role)
	if !ok {
		return []Status{}
	}
	targets := capabilityTargets[capability]
	out := make([]Status, len(targets))
	copy(out, targets)
	return out
}
