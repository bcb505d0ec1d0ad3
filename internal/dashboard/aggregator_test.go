package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"baaseteen/case-portal/case-portal-backend/internal/cases"
	"baaseteen/case-portal/case-portal-backend/internal/permissions"
	"baaseteen/case-portal/case-portal-backend/pkg/workflows"
)

// MockRepository is a mock implementation of the AggregateRepository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CountByStatus(ctx context.Context, caseType string) ([]StatusCount, error) {
	args := m.Called(ctx, caseType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]StatusCount), args.Error(1)
}

func (m *MockRepository) CounselorLoads(ctx context.Context, caseType string, open []workflows.Status) ([]CounselorLoad, error) {
	args := m.Called(ctx, caseType, open)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]CounselorLoad), args.Error(1)
}

var reviewer = cases.Actor{ID: 30, Name: "Sara", Role: "welfare_reviewer"}

func newAggregator(t *testing.T, repo AggregateRepository) *Aggregator {
	t.Helper()
	a := NewAggregator(repo, permissions.NewStaticOracle(permissions.DefaultGrants), zap.NewNop(), DefaultAggregatorConfig())
	t.Cleanup(a.Stop)
	return a
}

func TestGetCaseSummary_ComputesAndCaches(t *testing.T) {
	repo := new(MockRepository)
	repo.On("CountByStatus", mock.Anything, "ZAKAT").Return([]StatusCount{
		{Status: workflows.StatusInCounseling, Count: 3},
		{Status: workflows.StatusSubmittedToWelfare, Count: 2},
		{Status: workflows.StatusFinanceDisbursement, Count: 4},
	}, nil).Once()
	repo.On("CounselorLoads", mock.Anything, "ZAKAT", mock.Anything).Return([]CounselorLoad{
		{CounselorID: 10, OpenCases: 4},
	}, nil).Once()

	a := newAggregator(t, repo)
	summary, err := a.GetCaseSummary(context.Background(), "ZAKAT", reviewer)
	require.NoError(t, err)
	assert.Equal(t, int64(9), summary.Total)
	assert.Equal(t, int64(5), summary.Open)
	assert.Equal(t, int64(0), summary.ByStatus[workflows.StatusDraft])
	assert.Equal(t, int64(3), summary.ByStatus[workflows.StatusInCounseling])
	assert.Equal(t, []CounselorLoad{{CounselorID: 10, OpenCases: 4}}, summary.CounselorLoads)

	again, err := a.GetCaseSummary(context.Background(), "ZAKAT", reviewer)
	require.NoError(t, err)
	assert.Same(t, summary, again)
	repo.AssertExpectations(t)
}

func TestGetCaseSummary_ExcludesTerminalFromOpenQuery(t *testing.T) {
	repo := new(MockRepository)
	repo.On("CountByStatus", mock.Anything, "").Return([]StatusCount{}, nil)
	repo.On("CounselorLoads", mock.Anything, "", mock.MatchedBy(func(open []workflows.Status) bool {
		for _, s := range open {
			if workflows.IsTerminal(s) {
				return false
			}
		}
		return len(open) > 0
	})).Return(nil, nil)

	summary, err := newAggregator(t, repo).GetCaseSummary(context.Background(), "", reviewer)
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
	assert.NotNil(t, summary.CounselorLoads)
}

func TestGetCaseSummary_Errors(t *testing.T) {
	repo := new(MockRepository)
	a := newAggregator(t, repo)

	_, err := a.GetCaseSummary(context.Background(), "", cases.Actor{ID: 5, Role: "guest"})
	var forbidden *workflows.ForbiddenError
	require.ErrorAs(t, err, &forbidden)

	repo.On("CountByStatus", mock.Anything, "").Return(nil, errors.New("connection reset"))
	repo.On("CounselorLoads", mock.Anything, "", mock.Anything).Return([]CounselorLoad{}, nil)
	_, err = a.GetCaseSummary(context.Background(), "", reviewer)
	assert.EqualError(t, err, "connection reset")
	assert.Zero(t, a.cache.Size())
}

func TestAggregateCache_Expiry(t *testing.T) {
	cache := NewAggregateCache(time.Minute)
	defer cache.Stop()

	cache.Set("fresh", 1)
	cache.SetWithTTL("stale", 2, -time.Second)

	v, ok := cache.Get("fresh")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = cache.Get("stale")
	assert.False(t, ok)

	cache.removeExpired()
	assert.Equal(t, 1, cache.Size())

	cache.Clear()
	assert.Zero(t, cache.Size())
	cache.Stop()
}
