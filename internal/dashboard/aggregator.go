package dashboard

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"baaseteen/case-portal/case-portal-backend/internal/cases"
	"baaseteen/case-portal/case-portal-backend/internal/permissions"
	"baaseteen/case-portal/case-portal-backend/pkg/workflows"
)

// CaseSummary is the case overview shown on the portal dashboard.
type CaseSummary struct {
	CaseType       string                     `json:"case_type,omitempty"`
	Total          int64                      `json:"total"`
	Open           int64                      `json:"open"`
	ByStatus       map[workflows.Status]int64 `json:"by_status"`
	CounselorLoads []CounselorLoad            `json:"counselor_loads"`
	ComputedAt     time.Time                  `json:"computed_at"`
}

// AggregatorConfig configuration for the aggregator
type AggregatorConfig struct {
	CacheTTL time.Duration `json:"cache_ttl"`
}

// DefaultAggregatorConfig returns default configuration
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		CacheTTL: 30 * time.Second,
	}
}

// Aggregator computes dashboard summaries and caches them for CacheTTL.
type Aggregator struct {
	repository AggregateRepository
	oracle     permissions.Oracle
	cache      *AggregateCache
	logger     *zap.Logger
	now        func() time.Time
}

// NewAggregator creates a new aggregator
func NewAggregator(repository AggregateRepository, oracle permissions.Oracle, logger *zap.Logger, config AggregatorConfig) *Aggregator {
	return &Aggregator{
		repository: repository,
		oracle:     oracle,
		cache:      NewAggregateCache(config.CacheTTL),
		logger:     logger,
		now:        time.Now,
	}
}

// Stop releases the cache.
func (a *Aggregator) Stop() {
	a.cache.Stop()
}

// Invalidate drops every cached summary.
func (a *Aggregator) Invalidate() {
	a.cache.Clear()
}

// GetCaseSummary returns case counts, optionally for one case type.
func (a *Aggregator) GetCaseSummary(ctx context.Context, caseType string, actor cases.Actor) (*CaseSummary, error) {
	if err := permissions.Require(ctx, a.oracle, actor.Role, permissions.ResourceCases, permissions.ActionRead); err != nil {
		return nil, err
	}

	value, err := a.cache.GetOrSet("case_summary:"+caseType, func() (interface{}, error) {
		return a.computeCaseSummary(ctx, caseType)
	})
	if err != nil {
		return nil, err
	}
	return value.(*CaseSummary), nil
}

func openStatuses() []workflows.Status {
	var open []workflows.Status
	for _, s := range workflows.AllStatuses {
		if !workflows.IsTerminal(s) {
			open = append(open, s)
		}
	}
	return open
}

func (a *Aggregator) computeCaseSummary(ctx context.Context, caseType string) (*CaseSummary, error) {
	var (
		counts []StatusCount
		loads  []CounselorLoad
	)
	open := openStatuses()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = a.repository.CountByStatus(gctx, caseType)
		return err
	})
	g.Go(func() error {
		var err error
		loads, err = a.repository.CounselorLoads(gctx, caseType, open)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &CaseSummary{
		CaseType:       caseType,
		ByStatus:       make(map[workflows.Status]int64, len(workflows.AllStatuses)),
		CounselorLoads: loads,
		ComputedAt:     a.now(),
	}
	if summary.CounselorLoads == nil {
		summary.CounselorLoads = []CounselorLoad{}
	}
	for _, s := range workflows.AllStatuses {
		summary.ByStatus[s] = 0
	}
	for _, c := range counts {
		summary.ByStatus[c.Status] = c.Count
		summary.Total += c.Count
		if !workflows.IsTerminal(c.Status) {
			summary.Open += c.Count
		}
	}

	a.logger.Debug("Case summary computed",
		zap.String("case_type", caseType),
		zap.Int64("total", summary.Total),
	)
	return summary, nil
}
