package counseling_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"baaseteen/case-portal/case-portal-backend/internal/cases"
	"baaseteen/case-portal/case-portal-backend/internal/counseling"
	"baaseteen/case-portal/case-portal-backend/internal/notifications"
	"baaseteen/case-portal/case-portal-backend/internal/permissions"
	"baaseteen/case-portal/case-portal-backend/internal/stages"
	"baaseteen/case-portal/case-portal-backend/internal/testutil"
	"baaseteen/case-portal/case-portal-backend/internal/users"
	"baaseteen/case-portal/case-portal-backend/pkg/workflows"
)

var (
	manager   = cases.Actor{ID: 20, Name: "Halima", Role: "Deputy Counseling Manager"}
	counselor = cases.Actor{ID: 10, Name: "Yusuf", Role: "counselor"}
	stranger  = cases.Actor{ID: 12, Name: "Idris", Role: "counselor"}
	reviewer  = cases.Actor{ID: 30, Name: "Sara", Role: "welfare_reviewer"}
)

func uintPtr(v uint) *uint { return &v }

func payload(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func newService(f *testutil.Fixture) *counseling.Service {
	return counseling.NewService(f.Store.Counseling(), f.Engine, f.Oracle, zap.NewNop())
}

func seedReviewers(f *testutil.Fixture) {
	f.Store.AddUser(users.User{Name: "Sara", Email: "sara@example.org", Role: "welfare_reviewer", IsActive: true})
	f.Store.AddUser(users.User{Name: "Bilal", Email: "bilal@example.org", Role: "welfare_reviewer", IsActive: true})
	f.Store.AddUser(users.User{Name: "Former", Email: "former@example.org", Role: "welfare_reviewer", IsActive: false})
	f.Store.AddUser(users.User{Name: "Yusuf", Email: "yusuf@example.org", Role: "counselor", IsActive: true})
}

func seedCaseWithForm(f *testutil.Fixture, status workflows.Status, sections ...string) (*cases.Case, *counseling.Form) {
	c := &cases.Case{
		CaseType:            "ZAKAT",
		Status:              status,
		AssignedCounselorID: uintPtr(counselor.ID),
		AssignedManagerID:   uintPtr(manager.ID),
	}
	f.Store.SeedCase(c)
	form := &counseling.Form{CaseID: c.ID}
	for i, name := range sections {
		form.SetSection(name, uint(1000+i))
	}
	f.Store.SeedForm(form)
	return c, form
}

func TestCounselingScenario_IntakeToWelfareReview(t *testing.T) {
	ctx := context.Background()
	f := testutil.NewFixture()
	seedReviewers(f)
	svc := newService(f)

	ident := &cases.Identification{ApplicantName: "Maryam", CaseType: "ZAKAT"}
	require.NoError(t, f.Engine.RegisterIdentification(ctx, ident, manager))
	c, err := f.Engine.CreateFromIdentification(ctx, ident.ID, cases.EligibilityEligible, manager)
	require.NoError(t, err)
	assert.Equal(t, workflows.StatusDraft, c.Status)
	assert.Empty(t, c.WorkflowHistory)

	_, err = svc.OpenForm(ctx, c.ID, counselor)
	assert.ErrorIs(t, err, workflows.ErrInvalidRequest)

	c, err = f.Engine.AssignPersonnel(ctx, c.ID, cases.Assignment{
		CounselorID: uintPtr(counselor.ID),
		ManagerID:   uintPtr(manager.ID),
	}, manager)
	require.NoError(t, err)
	assert.Equal(t, workflows.StatusAssigned, c.Status)
	historyLen := len(c.WorkflowHistory)

	view, err := svc.OpenForm(ctx, c.ID, counselor)
	require.NoError(t, err)
	assert.Equal(t, workflows.StatusAssigned, view.CaseStatus)
	assert.Len(t, view.Missing, len(counseling.SectionNames))
	assert.True(t, view.Editable)
	formID := view.Form.ID

	again, err := svc.OpenForm(ctx, c.ID, manager)
	require.NoError(t, err)
	assert.Equal(t, formID, again.Form.ID)

	_, err = svc.SaveSection(ctx, formID, counseling.SectionPersonalDetails, payload(t, map[string]string{"name": "Maryam"}), counselor)
	require.NoError(t, err)

	stored, _ := f.Store.Case(c.ID)
	assert.Equal(t, workflows.StatusInCounseling, stored.Status)
	require.Len(t, stored.WorkflowHistory, historyLen+1)
	entry := stored.WorkflowHistory[historyLen]
	assert.Equal(t, f.StageID(stages.KeyCounselor), entry.StageID)
	assert.Equal(t, cases.ActionAutoProgression, entry.Action)
	assert.Equal(t, cases.SystemActorName, entry.EnteredByName)
	assert.Nil(t, entry.EnteredBy)

	audit := f.Store.StatusHistory(c.ID)
	require.Len(t, audit, 2)
	assert.Nil(t, audit[1].ChangedBy)
	assert.Equal(t, workflows.StatusInCounseling, audit[1].ToStatus)

	_, err = svc.Complete(ctx, formID, counselor)
	var incomplete *workflows.IncompleteSectionsError
	require.ErrorAs(t, err, &incomplete)
	assert.Len(t, incomplete.Missing, 6)
	assert.NotContains(t, incomplete.Missing, counseling.SectionPersonalDetails)

	for _, name := range counseling.SectionNames[1:] {
		_, err := svc.SaveSection(ctx, formID, name, payload(t, map[string]bool{"filled": true}), counselor)
		require.NoError(t, err)
	}
	stored, _ = f.Store.Case(c.ID)
	assert.Equal(t, workflows.StatusInCounseling, stored.Status, "filling every section must not submit the form")
	form, _ := f.Store.Form(formID)
	assert.False(t, form.IsComplete)

	_, err = svc.Complete(ctx, formID, stranger)
	var forbidden *workflows.ForbiddenError
	require.ErrorAs(t, err, &forbidden)

	completed, err := svc.Complete(ctx, formID, counselor)
	require.NoError(t, err)
	assert.True(t, completed.IsComplete)
	require.NotNil(t, completed.CompletedAt)
	assert.Equal(t, f.Clock, *completed.CompletedAt)

	stored, _ = f.Store.Case(c.ID)
	assert.Equal(t, workflows.StatusSubmittedToWelfare, stored.Status)
	require.Len(t, stored.WorkflowHistory, historyLen+2)
	last := stored.WorkflowHistory[historyLen+1]
	assert.Equal(t, f.StageID(stages.KeyWelfareReview), last.StageID)
	assert.Equal(t, cases.ActionFormCompleted, last.Action)

	audit = f.Store.StatusHistory(c.ID)
	require.Len(t, audit, 3)
	assert.Equal(t, workflows.StatusInCounseling, audit[2].FromStatus)
	assert.Equal(t, workflows.StatusSubmittedToWelfare, audit[2].ToStatus)

	assert.Len(t, f.Store.Comments(c.ID), 1)

	reviewerNotes := 0
	for _, n := range f.Store.Notifications() {
		if n.Type == notifications.EventFormCompleted {
			reviewerNotes++
		}
	}
	assert.Equal(t, 2, reviewerNotes)

	completedEvents := f.Dispatcher.FormsCompleted()
	require.Len(t, completedEvents, 1)
	assert.Equal(t, c.ID, completedEvents[0].CaseID)
	assert.Len(t, completedEvents[0].Recipients, 2)
	assert.Len(t, f.Dispatcher.StatusChanges(), 3)
}

func TestSaveSection_LockedAfterCompletionUntilRework(t *testing.T) {
	ctx := context.Background()
	f := testutil.NewFixture()
	svc := newService(f)
	c, form := seedCaseWithForm(f, workflows.StatusSubmittedToWelfare, counseling.SectionNames...)
	form.IsComplete = true
	f.Store.SeedForm(form)

	_, err := svc.SaveSection(ctx, form.ID, counseling.SectionAssessment, payload(t, map[string]int{"score": 3}), counselor)
	assert.ErrorIs(t, err, workflows.ErrFormLocked)

	_, err = f.Engine.Transition(ctx, c.ID, workflows.StatusWelfareRejected, reviewer, "assessment incomplete")
	require.NoError(t, err)

	section, err := svc.SaveSection(ctx, form.ID, counseling.SectionAssessment, payload(t, map[string]int{"score": 4}), counselor)
	require.NoError(t, err)
	assert.Equal(t, counseling.SectionAssessment, section.Name)

	stored, _ := f.Store.Case(c.ID)
	assert.Equal(t, workflows.StatusWelfareRejected, stored.Status)

	_, err = svc.Complete(ctx, form.ID, counselor)
	assert.ErrorIs(t, err, workflows.ErrFormLocked)

	_, err = f.Engine.Transition(ctx, c.ID, workflows.StatusInCounseling, counselor, "")
	require.NoError(t, err)

	_, err = svc.Complete(ctx, form.ID, manager)
	require.NoError(t, err)
	stored, _ = f.Store.Case(c.ID)
	assert.Equal(t, workflows.StatusSubmittedToWelfare, stored.Status)
}

func TestSaveSection_Validation(t *testing.T) {
	ctx := context.Background()
	f := testutil.NewFixture()
	svc := newService(f)
	_, form := seedCaseWithForm(f, workflows.StatusAssigned)

	_, err := svc.SaveSection(ctx, form.ID, "hobbies", payload(t, map[string]string{}), counselor)
	assert.ErrorIs(t, err, workflows.ErrInvalidRequest)

	_, err = svc.SaveSection(ctx, form.ID, counseling.SectionAssessment, json.RawMessage(`{not json`), counselor)
	assert.ErrorIs(t, err, workflows.ErrInvalidRequest)

	_, err = svc.SaveSection(ctx, form.ID, counseling.SectionAssessment, payload(t, map[string]string{}), reviewer)
	var forbidden *workflows.ForbiddenError
	assert.ErrorAs(t, err, &forbidden)

	_, err = svc.SaveSection(ctx, 999, counseling.SectionAssessment, payload(t, map[string]string{}), counselor)
	assert.ErrorIs(t, err, workflows.ErrNotFound)
}

func TestSaveSection_UpsertKeepsOneSectionPerName(t *testing.T) {
	ctx := context.Background()
	f := testutil.NewFixture()
	svc := newService(f)
	_, form := seedCaseWithForm(f, workflows.StatusAssigned)

	first, err := svc.SaveSection(ctx, form.ID, counseling.SectionFamilyDetails, payload(t, map[string]int{"members": 4}), counselor)
	require.NoError(t, err)
	second, err := svc.SaveSection(ctx, form.ID, counseling.SectionFamilyDetails, payload(t, map[string]int{"members": 5}), counselor)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	sections, err := f.Store.Counseling().ListSections(ctx, form.ID)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.JSONEq(t, `{"members":5}`, string(sections[0].Data))
}

func TestOnSectionSaved_SkipsIllegalMoves(t *testing.T) {
	ctx := context.Background()
	f := testutil.NewFixture()
	svc := newService(f)

	// An empty form expects assigned, which is not reachable from in_counseling.
	c, _ := seedCaseWithForm(f, workflows.StatusInCounseling)
	svc.OnSectionSaved(ctx, c.ID)

	stored, _ := f.Store.Case(c.ID)
	assert.Equal(t, workflows.StatusInCounseling, stored.Status)
	assert.Empty(t, f.Store.StatusHistory(c.ID))

	// Missing case is logged, not raised.
	svc.OnSectionSaved(ctx, 4242)
}

func TestComplete_RejectsCasesOutsideCounseling(t *testing.T) {
	ctx := context.Background()
	f := testutil.NewFixture()
	svc := newService(f)
	_, form := seedCaseWithForm(f, workflows.StatusCoverLetterGenerated, counseling.SectionNames...)

	_, err := svc.Complete(ctx, form.ID, counselor)
	var rejection *workflows.TransitionError
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, workflows.GateGraph, rejection.Gate)
	assert.Equal(t, workflows.StatusSubmittedToWelfare, rejection.Attempted)

	stored, _ := f.Store.Form(form.ID)
	assert.False(t, stored.IsComplete)
}

func TestComplete_AdminOverridesAssignment(t *testing.T) {
	ctx := context.Background()
	f := testutil.NewFixture()
	svc := newService(f)
	c, form := seedCaseWithForm(f, workflows.StatusInCounseling, counseling.SectionNames...)

	_, err := svc.Complete(ctx, form.ID, cases.Actor{ID: 1, Name: "Root", Role: "admin"})
	require.NoError(t, err)

	stored, _ := f.Store.Case(c.ID)
	assert.Equal(t, workflows.StatusSubmittedToWelfare, stored.Status)
	assert.Empty(t, f.Store.Notifications(), "no active reviewers seeded")
}

func TestComplete_RequiresCaseInCounseling(t *testing.T) {
	ctx := context.Background()
	f := testutil.NewFixture()
	svc := newService(f)
	c, form := seedCaseWithForm(f, workflows.StatusAssigned, counseling.SectionNames...)

	_, err := svc.Complete(ctx, form.ID, counselor)
	var rejection *workflows.TransitionError
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, workflows.StatusAssigned, rejection.Current)

	stored, _ := f.Store.Case(c.ID)
	assert.Equal(t, workflows.StatusAssigned, stored.Status)
	assert.Empty(t, f.Store.StatusHistory(c.ID))
}

func TestComplete_NotifiesRolesGrantedReviewDecisions(t *testing.T) {
	ctx := context.Background()
	f := testutil.NewFixture()
	seedReviewers(f)
	omar := f.Store.AddUser(users.User{Name: "Omar", Email: "omar@example.org", Role: "Executive Management", IsActive: true})
	f.Store.AddUser(users.User{Name: "Root", Email: "root@example.org", Role: "admin", IsActive: true})

	grants := map[workflows.Capability][]permissions.Check{}
	for capability, checks := range permissions.DefaultGrants {
		grants[capability] = checks
	}
	grants[workflows.CapabilityWelfareReviewer] = []permissions.Check{
		{Resource: permissions.ResourceCases, Action: permissions.ActionRead},
	}
	grants[workflows.CapabilityExecutive] = append(grants[workflows.CapabilityExecutive],
		permissions.Check{Resource: permissions.ResourceWelfareReviews, Action: permissions.ActionDecide})
	svc := counseling.NewService(f.Store.Counseling(), f.Engine, permissions.NewStaticOracle(grants), zap.NewNop())

	_, form := seedCaseWithForm(f, workflows.StatusInCounseling, counseling.SectionNames...)
	_, err := svc.Complete(ctx, form.ID, counselor)
	require.NoError(t, err)

	notes := f.Store.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, omar.ID, notes[0].UserID)
}

func TestOpenForm_AcceptsEitherReadOrUpdateGrant(t *testing.T) {
	ctx := context.Background()
	f := testutil.NewFixture()
	c, _ := seedCaseWithForm(f, workflows.StatusInCounseling)

	editorOnly := map[workflows.Capability][]permissions.Check{
		workflows.CapabilityCounselor: {
			{Resource: permissions.ResourceCounselingForms, Action: permissions.ActionUpdate},
		},
	}
	svc := counseling.NewService(f.Store.Counseling(), f.Engine, permissions.NewStaticOracle(editorOnly), zap.NewNop())

	view, err := svc.OpenForm(ctx, c.ID, counselor)
	require.NoError(t, err)
	assert.Equal(t, workflows.StatusInCounseling, view.CaseStatus)

	_, err = svc.OpenForm(ctx, c.ID, reviewer)
	var forbidden *workflows.ForbiddenError
	require.ErrorAs(t, err, &forbidden)
	assert.Equal(t, reviewer.Role, forbidden.Role)
}
