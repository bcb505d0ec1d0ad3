package counseling

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"baaseteen/case-portal/case-portal-backend/pkg/workflows"
)

func formWith(sections ...string) *Form {
	f := &Form{ID: 1, CaseID: 1}
	for i, name := range sections {
		f.SetSection(name, uint(i+100))
	}
	return f
}

func TestExpectedStatus(t *testing.T) {
	tests := []struct {
		name   string
		form   *Form
		want   workflows.Status
		wantOK bool
	}{
		{"empty form", formWith(), workflows.StatusAssigned, true},
		{"personal details only", formWith(SectionPersonalDetails), workflows.StatusInCounseling, true},
		{"all sections but not complete", formWith(SectionNames...), workflows.StatusInCounseling, true},
		{"sections without personal details", formWith(SectionAssessment, SectionDeclaration), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExpectedStatus(tt.form)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	complete := formWith(SectionNames...)
	complete.IsComplete = true
	_, ok := ExpectedStatus(complete)
	assert.False(t, ok)
}

func TestMissingSections(t *testing.T) {
	f := formWith(SectionPersonalDetails, SectionAttachments)
	assert.Equal(t, []string{
		SectionFamilyDetails,
		SectionAssessment,
		SectionFinancialAssistance,
		SectionEconomicGrowth,
		SectionDeclaration,
	}, f.MissingSections())
	assert.Equal(t, 2, f.SectionCount())
	assert.Empty(t, formWith(SectionNames...).MissingSections())
}

func TestEditable(t *testing.T) {
	open := formWith(SectionPersonalDetails)
	assert.True(t, Editable(open, workflows.StatusAssigned))

	done := formWith(SectionNames...)
	done.IsComplete = true
	assert.False(t, Editable(done, workflows.StatusSubmittedToWelfare))
	assert.False(t, Editable(done, workflows.StatusWelfareApproved))
	assert.True(t, Editable(done, workflows.StatusWelfareRejected))
	assert.True(t, Editable(done, workflows.StatusInCounseling))
}

func TestValidSection(t *testing.T) {
	assert.True(t, ValidSection(SectionEconomicGrowth))
	assert.False(t, ValidSection("hobbies"))
	assert.False(t, ValidSection(""))
}
