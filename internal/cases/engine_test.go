package cases_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baaseteen/case-portal/case-portal-backend/internal/cases"
	"baaseteen/case-portal/case-portal-backend/internal/stages"
	"baaseteen/case-portal/case-portal-backend/internal/testutil"
	"baaseteen/case-portal/case-portal-backend/pkg/workflows"
)

var (
	manager   = cases.Actor{ID: 20, Name: "Halima", Role: "dcm"}
	counselor = cases.Actor{ID: 10, Name: "Yusuf", Role: "counselor"}
	reviewer  = cases.Actor{ID: 30, Name: "Sara", Role: "welfare_reviewer"}
	admin     = cases.Actor{ID: 1, Name: "Root", Role: "admin"}
)

func uintPtr(v uint) *uint { return &v }

func seedCase(f *testutil.Fixture, status workflows.Status, stageKey string) *cases.Case {
	c := &cases.Case{
		CaseType:            "ZAKAT",
		ApplicantName:       "Test Applicant",
		Status:              status,
		AssignedCounselorID: uintPtr(counselor.ID),
		AssignedManagerID:   uintPtr(manager.ID),
	}
	if stageKey != "" {
		c.CurrentWorkflowStageID = uintPtr(f.StageID(stageKey))
	}
	f.Store.SeedCase(c)
	return c
}

func TestTransition_AppliesLegalMove(t *testing.T) {
	f := testutil.NewFixture()
	c := seedCase(f, workflows.StatusInCounseling, stages.KeyCounselor)

	updated, err := f.Engine.Transition(context.Background(), c.ID, workflows.StatusCoverLetterGenerated, manager, "letter drafted")
	require.NoError(t, err)
	assert.Equal(t, workflows.StatusCoverLetterGenerated, updated.Status)

	stored, _ := f.Store.Case(c.ID)
	assert.Equal(t, workflows.StatusCoverLetterGenerated, stored.Status)
	// Still inside the counselor stage, so no new stage entry.
	assert.Empty(t, stored.WorkflowHistory)

	history := f.Store.StatusHistory(c.ID)
	require.Len(t, history, 1)
	assert.Equal(t, workflows.StatusInCounseling, history[0].FromStatus)
	assert.Equal(t, workflows.StatusCoverLetterGenerated, history[0].ToStatus)
	assert.Equal(t, "letter drafted", history[0].Comment)
	require.NotNil(t, history[0].ChangedBy)
	assert.Equal(t, manager.ID, *history[0].ChangedBy)

	events := f.Dispatcher.StatusChanges()
	require.Len(t, events, 1)
	assert.Equal(t, workflows.StatusInCounseling, events[0].FromStatus)
	assert.Equal(t, workflows.StatusCoverLetterGenerated, events[0].ToStatus)
	assert.Equal(t, "Halima", events[0].ActorName)
	assert.ElementsMatch(t, []uint{counselor.ID, manager.ID}, events[0].Recipients)
}

func TestTransition_AppendsStageEntryWhenStageChanges(t *testing.T) {
	f := testutil.NewFixture()
	c := seedCase(f, workflows.StatusWelfareRejected, stages.KeyWelfareReview)

	_, err := f.Engine.Transition(context.Background(), c.ID, workflows.StatusInCounseling, counselor, "rework")
	require.NoError(t, err)

	stored, _ := f.Store.Case(c.ID)
	require.Len(t, stored.WorkflowHistory, 1)
	entry := stored.WorkflowHistory[0]
	assert.Equal(t, f.StageID(stages.KeyCounselor), entry.StageID)
	assert.Equal(t, "Counseling", entry.StageName)
	assert.Equal(t, cases.ActionStatusChange, entry.Action)
	assert.Equal(t, "Yusuf", entry.EnteredByName)
	assert.Equal(t, f.Clock, entry.EnteredAt)
	require.NotNil(t, stored.CurrentWorkflowStageID)
	assert.Equal(t, f.StageID(stages.KeyCounselor), *stored.CurrentWorkflowStageID)
}

func TestTransition_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		status  workflows.Status
		target  workflows.Status
		actor   cases.Actor
		gate    workflows.Gate
		wantErr error
	}{
		{
			name:   "role gate",
			status: workflows.StatusInCounseling,
			target: workflows.StatusCoverLetterGenerated,
			actor:  counselor,
			gate:   workflows.GateRole,
		},
		{
			name:   "graph gate",
			status: workflows.StatusDraft,
			target: workflows.StatusSubmittedToWelfare,
			actor:  manager,
			gate:   workflows.GateGraph,
		},
		{
			name:   "self transition",
			status: workflows.StatusInCounseling,
			target: workflows.StatusInCounseling,
			actor:  admin,
			gate:   workflows.GateGraph,
		},
		{
			name:   "terminal",
			status: workflows.StatusFinanceDisbursement,
			target: workflows.StatusDraft,
			actor:  admin,
			gate:   workflows.GateTerminal,
		},
		{
			name:   "reviewer outside review",
			status: workflows.StatusInCounseling,
			target: workflows.StatusWelfareApproved,
			actor:  reviewer,
			gate:   workflows.GateGraph,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testutil.NewFixture()
			c := seedCase(f, tt.status, "")

			_, err := f.Engine.Transition(context.Background(), c.ID, tt.target, tt.actor, "")
			var rejection *workflows.TransitionError
			require.ErrorAs(t, err, &rejection)
			assert.Equal(t, tt.gate, rejection.Gate)
			assert.Equal(t, tt.status, rejection.Current)
			assert.Equal(t, tt.target, rejection.Attempted)

			stored, _ := f.Store.Case(c.ID)
			assert.Equal(t, tt.status, stored.Status)
			assert.Empty(t, f.Store.StatusHistory(c.ID))
			assert.Empty(t, f.Dispatcher.StatusChanges())
		})
	}
}

func TestTransition_ValidationErrors(t *testing.T) {
	f := testutil.NewFixture()
	c := seedCase(f, workflows.StatusInCounseling, "")

	_, err := f.Engine.Transition(context.Background(), c.ID, workflows.Status("archived"), manager, "")
	assert.ErrorIs(t, err, workflows.ErrInvalidStatus)

	_, err = f.Engine.Transition(context.Background(), c.ID, workflows.StatusCoverLetterGenerated, cases.Actor{ID: 99, Role: "guest"}, "")
	var forbidden *workflows.ForbiddenError
	require.ErrorAs(t, err, &forbidden)
	assert.Equal(t, "guest", forbidden.Role)

	_, err = f.Engine.Transition(context.Background(), 4040, workflows.StatusCoverLetterGenerated, manager, "")
	assert.ErrorIs(t, err, workflows.ErrNotFound)

	assert.Empty(t, f.Store.StatusHistory(c.ID))
}

func TestTransition_CommitFailureLeavesNoPartialState(t *testing.T) {
	f := testutil.NewFixture()
	c := seedCase(f, workflows.StatusSubmittedToWelfare, stages.KeyWelfareReview)
	f.Store.FailCommit = errors.New("could not serialize access")

	_, err := f.Engine.Transition(context.Background(), c.ID, workflows.StatusWelfareApproved, reviewer, "ok")
	var txErr *workflows.TransactionError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, "transition", txErr.Op)

	stored, _ := f.Store.Case(c.ID)
	assert.Equal(t, workflows.StatusSubmittedToWelfare, stored.Status)
	assert.Empty(t, f.Store.StatusHistory(c.ID))
	assert.Empty(t, f.Dispatcher.StatusChanges())
}

func TestTransition_DispatcherFailureIsNotPropagated(t *testing.T) {
	f := testutil.NewFixture()
	f.Dispatcher.Err = errors.New("queue full")
	c := seedCase(f, workflows.StatusSubmittedToWelfare, stages.KeyWelfareReview)

	updated, err := f.Engine.Transition(context.Background(), c.ID, workflows.StatusWelfareApproved, reviewer, "")
	require.NoError(t, err)
	assert.Equal(t, workflows.StatusWelfareApproved, updated.Status)
	assert.Len(t, f.Dispatcher.StatusChanges(), 1)
}

func TestTransition_ExecutiveRejectionReturnsToWelfare(t *testing.T) {
	f := testutil.NewFixture()
	c := seedCase(f, workflows.StatusExecutiveRejected, stages.KeyExecutiveApproval)

	_, err := f.Engine.Transition(context.Background(), c.ID, workflows.StatusSubmittedToWelfare, manager, "re-review")
	require.NoError(t, err)

	stored, _ := f.Store.Case(c.ID)
	assert.Equal(t, workflows.StatusSubmittedToWelfare, stored.Status)
	require.Len(t, stored.WorkflowHistory, 1)
	assert.Equal(t, f.StageID(stages.KeyWelfareReview), stored.WorkflowHistory[0].StageID)
}

func TestLegalNextStatuses(t *testing.T) {
	f := testutil.NewFixture()
	c := seedCase(f, workflows.StatusSubmittedToWelfare, "")

	next, err := f.Engine.LegalNextStatuses(context.Background(), c.ID, reviewer)
	require.NoError(t, err)
	assert.ElementsMatch(t, []workflows.Status{workflows.StatusWelfareApproved, workflows.StatusWelfareRejected}, next)

	next, err = f.Engine.LegalNextStatuses(context.Background(), c.ID, counselor)
	require.NoError(t, err)
	assert.Empty(t, next)
}

func TestStatusHistory_OrderedOldestFirst(t *testing.T) {
	f := testutil.NewFixture()
	c := seedCase(f, workflows.StatusSubmittedToWelfare, "")
	ctx := context.Background()

	_, err := f.Engine.Transition(ctx, c.ID, workflows.StatusWelfareRejected, reviewer, "missing docs")
	require.NoError(t, err)
	_, err = f.Engine.Transition(ctx, c.ID, workflows.StatusInCounseling, counselor, "")
	require.NoError(t, err)

	history, err := f.Engine.StatusHistory(ctx, c.ID, manager)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, workflows.StatusWelfareRejected, history[0].ToStatus)
	assert.Equal(t, workflows.StatusInCounseling, history[1].ToStatus)
}

func TestTransition_UnnamedUserIsNotRecordedAsSystem(t *testing.T) {
	f := testutil.NewFixture()
	c := seedCase(f, workflows.StatusWelfareRejected, stages.KeyWelfareReview)
	unnamed := cases.Actor{ID: 10, Role: "counselor"}

	_, err := f.Engine.Transition(context.Background(), c.ID, workflows.StatusInCounseling, unnamed, "")
	require.NoError(t, err)

	stored, _ := f.Store.Case(c.ID)
	require.Len(t, stored.WorkflowHistory, 1)
	entry := stored.WorkflowHistory[0]
	require.NotNil(t, entry.EnteredBy)
	assert.Equal(t, uint(10), *entry.EnteredBy)
	assert.Equal(t, "user #10", entry.EnteredByName)

	changes := f.Dispatcher.StatusChanges()
	require.Len(t, changes, 1)
	assert.Equal(t, "user #10", changes[0].ActorName)
}

func TestTransition_ConcurrentDecisionsAreSerialized(t *testing.T) {
	f := testutil.NewFixture()
	c := seedCase(f, workflows.StatusSubmittedToWelfare, "")
	ctx := context.Background()

	targets := []workflows.Status{workflows.StatusWelfareApproved, workflows.StatusWelfareRejected}
	errs := make([]error, len(targets))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i, to := range targets {
		wg.Add(1)
		go func(i int, to workflows.Status) {
			defer wg.Done()
			<-start
			_, errs[i] = f.Engine.Transition(ctx, c.ID, to, reviewer, "decision")
		}(i, to)
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var rejection *workflows.TransitionError
		require.ErrorAs(t, err, &rejection)
		assert.Equal(t, workflows.GateGraph, rejection.Gate)
	}
	assert.Equal(t, 1, succeeded)

	history := f.Store.StatusHistory(c.ID)
	require.Len(t, history, 1)
	assert.Equal(t, workflows.StatusSubmittedToWelfare, history[0].FromStatus)
	stored, _ := f.Store.Case(c.ID)
	assert.Equal(t, history[0].ToStatus, stored.Status)
}

func TestApply_ResolvesStagesFromColdCatalogInsideTransaction(t *testing.T) {
	f := testutil.NewFixture()
	c := seedCase(f, workflows.StatusWelfareRejected, "")
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		done <- f.Store.Cases().RunInTransaction(ctx, func(tx cases.Tx) error {
			locked, err := tx.LockCase(ctx, c.ID)
			if err != nil {
				return err
			}
			_, err = f.Engine.Apply(ctx, tx, locked, workflows.StatusInCounseling, cases.ApplyOptions{Actor: &counselor})
			return err
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("transaction blocked while loading workflow stages")
	}
	stored, _ := f.Store.Case(c.ID)
	require.Len(t, stored.WorkflowHistory, 1)
	assert.Equal(t, f.StageID(stages.KeyCounselor), stored.WorkflowHistory[0].StageID)
}
