package stages

import (
	"sync"
	"time"
)

// snapshotCache holds the last loaded stage list until it expires.
type snapshotCache struct {
	stages     []WorkflowStage
	expiration time.Time
	ttl        time.Duration
	now        func() time.Time
	mu         sync.RWMutex
}

func newSnapshotCache(ttl time.Duration) *snapshotCache {
	return &snapshotCache{ttl: ttl, now: time.Now}
}

// Get returns the cached stages if present and not expired
func (c *snapshotCache) Get() ([]WorkflowStage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.stages == nil || c.now().After(c.expiration) {
		return nil, false
	}
	return c.stages, true
}

// Set replaces the snapshot and restarts its TTL
func (c *snapshotCache) Set(stages []WorkflowStage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if stages == nil {
		stages = []WorkflowStage{}
	}
	c.stages = stages
	c.expiration = c.now().Add(c.ttl)
}
