package counseling

import "baaseteen/case-portal/case-portal-backend/pkg/workflows"

// ExpectedStatus derives the status a case should hold from which sections of
// its form are saved. The phase is never stored; it is recomputed on demand.
//
//	no sections                          -> assigned
//	personal_details saved, not complete -> in_counseling
//	form complete                        -> no opinion
//
// Filling all seven sections does not submit the form; that requires Complete.
// A form with sections saved but personal_details missing also yields no opinion.
func ExpectedStatus(f *Form) (workflows.Status, bool) {
	if f.IsComplete {
		return "", false
	}
	if f.SectionCount() == 0 {
		return workflows.StatusAssigned, true
	}
	if f.HasSection(SectionPersonalDetails) {
		return workflows.StatusInCounseling, true
	}
	return "", false
}

// Editable reports whether sections may be saved given the case status.
// A submitted form reopens only on the rework path.
func Editable(f *Form, caseStatus workflows.Status) bool {
	if !f.IsComplete {
		return true
	}
	return caseStatus == workflows.StatusWelfareRejected || caseStatus == workflows.StatusInCounseling
}
