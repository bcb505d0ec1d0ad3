package stages

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Refresher reloads the catalog on a cron schedule so stage edits made in the
// database are picked up without a restart.
type Refresher struct {
	cron     *cron.Cron
	catalog  *Catalog
	schedule string
	logger   *zap.Logger
	mu       sync.Mutex
	running  bool
}

// NewRefresher creates a refresher. The schedule uses the six-field cron syntax with seconds.
func NewRefresher(catalog *Catalog, schedule string, logger *zap.Logger) *Refresher {
	return &Refresher{
		cron:     cron.New(cron.WithSeconds()),
		catalog:  catalog,
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers the refresh job and starts the scheduler
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("stage refresher already running")
	}

	_, err := r.cron.AddFunc(r.schedule, func() {
		if err := r.catalog.Refresh(ctx); err != nil {
			r.logger.Warn("Workflow stage refresh failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid stage refresh schedule %q: %w", r.schedule, err)
	}

	r.logger.Info("Starting workflow stage refresher", zap.String("schedule", r.schedule))
	r.cron.Start()
	r.running = true
	return nil
}

// Stop stops the scheduler and waits for a running refresh to finish
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	<-r.cron.Stop().Done()
	r.running = false
	r.logger.Info("Workflow stage refresher stopped")
}
