package workflows_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"baaseteen/case-portal/case-portal-backend/pkg/workflows"
)

var knownRoles = []string{
	"admin", "dcm", "Deputy Counseling Manager", "ZI", "counselor",
	"welfare_reviewer", "Executive Management", "finance", "janitor", "",
}

func TestNextStatuses(t *testing.T) {
	assert.Equal(t, []workflows.Status{workflows.StatusAssigned}, workflows.NextStatuses(workflows.StatusDraft))
	assert.Equal(t,
		[]workflows.Status{workflows.StatusWelfareApproved, workflows.StatusWelfareRejected},
		workflows.NextStatuses(workflows.StatusSubmittedToWelfare))
	assert.Empty(t, workflows.NextStatuses(workflows.StatusFinanceDisbursement))
	assert.Empty(t, workflows.NextStatuses(workflows.Status("archived")))
}

func TestNextStatusesReturnsCopy(t *testing.T) {
	next := workflows.NextStatuses(workflows.StatusDraft)
	next[0] = workflows.StatusFinanceDisbursement

	assert.Equal(t, []workflows.Status{workflows.StatusAssigned}, workflows.NextStatuses(workflows.StatusDraft))
}

func TestGraphHasNoSelfLoops(t *testing.T) {
	for _, s := range workflows.AllStatuses {
		assert.False(t, workflows.CanTransition(s, s), "self loop on %s", s)
	}
}

func TestReverseEdges(t *testing.T) {
	assert.True(t, workflows.CanTransition(workflows.StatusWelfareRejected, workflows.StatusInCounseling))
	assert.True(t, workflows.CanTransition(workflows.StatusExecutiveRejected, workflows.StatusSubmittedToWelfare))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, workflows.IsTerminal(workflows.StatusFinanceDisbursement))
	assert.False(t, workflows.IsTerminal(workflows.StatusDraft))
	assert.False(t, workflows.IsTerminal(workflows.Status("unknown")))
}

func TestParseStatus(t *testing.T) {
	s, err := workflows.ParseStatus("welfare_rejected")
	assert.NoError(t, err)
	assert.Equal(t, workflows.StatusWelfareRejected, s)

	_, err = workflows.ParseStatus("closed")
	assert.Error(t, err)
}

func TestAllowedTargetsAliases(t *testing.T) {
	want := []workflows.Status{
		workflows.StatusInCounseling,
		workflows.StatusCoverLetterGenerated,
		workflows.StatusSubmittedToWelfare,
	}
	for _, role := range []string{"dcm", "Deputy Counseling Manager", "ZI", "zi", " DCM "} {
		assert.Equal(t, want, workflows.AllowedTargets(role), role)
	}

	assert.Equal(t, workflows.AllStatuses, workflows.AllowedTargets("admin"))
	assert.Equal(t, []workflows.Status{workflows.StatusInCounseling}, workflows.AllowedTargets("counselor"))
	assert.Empty(t, workflows.AllowedTargets("janitor"))
}

func TestCapabilityOf(t *testing.T) {
	c, ok := workflows.CapabilityOf("Executive Management")
	assert.True(t, ok)
	assert.Equal(t, workflows.CapabilityExecutive, c)

	_, ok = workflows.CapabilityOf("intern")
	assert.False(t, ok)

	assert.True(t, workflows.IsAdministrative("Admin"))
	assert.False(t, workflows.IsAdministrative("dcm"))
	assert.ElementsMatch(t,
		[]string{"dcm", "Deputy Counseling Manager", "ZI"},
		workflows.RoleSpellings(workflows.CapabilityCounselingManager))
}

func TestLegalNextStatusesIsSubsetOfGraph(t *testing.T) {
	candidates := append([]workflows.Status{"unknown"}, workflows.AllStatuses...)
	for _, s := range candidates {
		graph := workflows.NextStatuses(s)
		for _, role := range knownRoles {
			legal := workflows.LegalNextStatuses(s, role)
			assert.NotNil(t, legal)
			assert.Subset(t, graph, legal, "status %s role %s", s, role)
		}
	}
}

func TestLegalNextStatusesTerminalForEveryRole(t *testing.T) {
	for _, role := range knownRoles {
		assert.Empty(t, workflows.LegalNextStatuses(workflows.StatusFinanceDisbursement, role), role)
	}
}

func TestLegalNextStatusesExamples(t *testing.T) {
	assert.Empty(t, workflows.LegalNextStatuses(workflows.StatusDraft, "counselor"))
	assert.Equal(t,
		[]workflows.Status{workflows.StatusWelfareApproved, workflows.StatusWelfareRejected},
		workflows.LegalNextStatuses(workflows.StatusSubmittedToWelfare, "welfare_reviewer"))
	assert.Equal(t,
		[]workflows.Status{workflows.StatusAssigned},
		workflows.LegalNextStatuses(workflows.StatusDraft, "admin"))
	assert.Equal(t,
		[]workflows.Status{workflows.StatusSubmittedToWelfare},
		workflows.LegalNextStatuses(workflows.StatusExecutiveRejected, "ZI"))
	assert.Empty(t, workflows.LegalNextStatuses(workflows.StatusSubmittedToWelfare, "finance"))
}

func TestCheckTransition(t *testing.T) {
	assert.Nil(t, workflows.CheckTransition(workflows.StatusSubmittedToWelfare, workflows.StatusWelfareApproved, "welfare_reviewer"))

	err := workflows.CheckTransition(workflows.StatusFinanceDisbursement, workflows.StatusDraft, "admin")
	if assert.NotNil(t, err) {
		assert.Equal(t, workflows.GateTerminal, err.Gate)
	}

	err = workflows.CheckTransition(workflows.StatusDraft, workflows.StatusDraft, "admin")
	if assert.NotNil(t, err) {
		assert.Equal(t, workflows.GateGraph, err.Gate)
	}

	err = workflows.CheckTransition(workflows.StatusSubmittedToWelfare, workflows.StatusWelfareApproved, "counselor")
	if assert.NotNil(t, err) {
		assert.Equal(t, workflows.GateRole, err.Gate)
		assert.Equal(t, workflows.StatusSubmittedToWelfare, err.Current)
		assert.Equal(t, workflows.StatusWelfareApproved, err.Attempted)
		assert.Contains(t, err.Error(), "counselor")
	}
}

func TestCheckSystemTransitionIgnoresRole(t *testing.T) {
	assert.Nil(t, workflows.CheckSystemTransition(workflows.StatusDraft, workflows.StatusAssigned))
	err := workflows.CheckSystemTransition(workflows.StatusDraft, workflows.StatusInCounseling)
	if assert.NotNil(t, err) {
		assert.Equal(t, workflows.GateGraph, err.Gate)
	}
}
