package stages

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"baaseteen/case-portal/case-portal-backend/pkg/workflows"
)

// Catalog resolves workflow stages from a cached snapshot of the active stages.
type Catalog struct {
	repo   Repository
	cache  *snapshotCache
	logger *zap.Logger
}

func NewCatalog(repo Repository, ttl time.Duration, logger *zap.Logger) *Catalog {
	return &Catalog{
		repo:   repo,
		cache:  newSnapshotCache(ttl),
		logger: logger,
	}
}

// Refresh reloads the active stages from the repository.
func (c *Catalog) Refresh(ctx context.Context) error {
	stages, err := c.repo.ListActiveStages(ctx)
	if err != nil {
		return err
	}
	c.cache.Set(stages)
	c.logger.Debug("Workflow stage catalog refreshed", zap.Int("stages", len(stages)))
	return nil
}

func (c *Catalog) active(ctx context.Context) ([]WorkflowStage, error) {
	if stages, ok := c.cache.Get(); ok {
		return stages, nil
	}
	if err := c.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("failed to load workflow stages: %w", err)
	}
	stages, _ := c.cache.Get()
	return stages, nil
}

// Resolve finds the stage with the given key, preferring a stage scoped to
// the case type over the case-type agnostic one. It returns nil when no
// stage matches.
func (c *Catalog) Resolve(ctx context.Context, key, caseType string) (*WorkflowStage, error) {
	stages, err := c.active(ctx)
	if err != nil {
		return nil, err
	}

	var fallback *WorkflowStage
	for i := range stages {
		s := &stages[i]
		if s.StageKey != key || !s.appliesTo(caseType) {
			continue
		}
		if s.isScoped() {
			return copyStage(s), nil
		}
		if fallback == nil {
			fallback = s
		}
	}
	return copyStage(fallback), nil
}

// ForStatus finds the stage a status belongs to. Case-type scoped stages win
// over agnostic ones, then a stage whose canonical status matches wins over
// one that merely lists it. Ties go to the lowest sort order.
func (c *Catalog) ForStatus(ctx context.Context, status workflows.Status, caseType string) (*WorkflowStage, error) {
	stages, err := c.active(ctx)
	if err != nil {
		return nil, err
	}

	var best *WorkflowStage
	bestRank := -1
	for i := range stages {
		s := &stages[i]
		if !s.appliesTo(caseType) || !s.Owns(status) {
			continue
		}
		rank := 0
		if s.isScoped() {
			rank += 2
		}
		if canonical, ok := s.CanonicalStatus(); ok && canonical == status {
			rank++
		}
		if rank > bestRank || (rank == bestRank && s.SortOrder < best.SortOrder) {
			best, bestRank = s, rank
		}
	}
	return copyStage(best), nil
}

func copyStage(s *WorkflowStage) *WorkflowStage {
	if s == nil {
		return nil
	}
	out := *s
	return &out
}
