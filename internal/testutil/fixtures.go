package testutil

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"baaseteen/case-portal/case-portal-backend/internal/cases"
	"baaseteen/case-portal/case-portal-backend/internal/notifications"
	"baaseteen/case-portal/case-portal-backend/internal/permissions"
	"baaseteen/case-portal/case-portal-backend/internal/stages"
)

// RecordingDispatcher keeps every event it receives.
type RecordingDispatcher struct {
	mu             sync.Mutex
	statusChanges  []notifications.StatusChangeEvent
	formsCompleted []notifications.FormCompletedEvent
	// Err is returned from every call after recording.
	Err error
}

func (d *RecordingDispatcher) NotifyStatusChange(_ context.Context, event notifications.StatusChangeEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.statusChanges = append(d.statusChanges, event)
	return d.Err
}

func (d *RecordingDispatcher) NotifyFormCompleted(_ context.Context, event notifications.FormCompletedEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.formsCompleted = append(d.formsCompleted, event)
	return d.Err
}

func (d *RecordingDispatcher) StatusChanges() []notifications.StatusChangeEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notifications.StatusChangeEvent(nil), d.statusChanges...)
}

func (d *RecordingDispatcher) FormsCompleted() []notifications.FormCompletedEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notifications.FormCompletedEvent(nil), d.formsCompleted...)
}

// Fixture wires an engine over a fresh store seeded with the default stages.
type Fixture struct {
	Store      *Store
	Dispatcher *RecordingDispatcher
	Oracle     permissions.Oracle
	Catalog    *stages.Catalog
	Engine     *cases.Engine
	Clock      time.Time
}

func NewFixture() *Fixture {
	store := NewStore()
	store.SeedStages(stages.DefaultStages()...)

	f := &Fixture{
		Store:      store,
		Dispatcher: &RecordingDispatcher{},
		Oracle:     permissions.NewStaticOracle(permissions.DefaultGrants),
		Clock:      time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC),
	}
	f.Catalog = stages.NewCatalog(store.Stages(), time.Minute, zap.NewNop())
	f.Engine = cases.NewEngine(store.Cases(), f.Oracle, f.Catalog, f.Dispatcher, zap.NewNop()).
		WithClock(func() time.Time { return f.Clock })
	return f
}

// StageID returns the id of the agnostic stage with key.
func (f *Fixture) StageID(key string) uint {
	st, err := f.Catalog.Resolve(context.Background(), key, "")
	if err != nil || st == nil {
		return 0
	}
	return st.ID
}
