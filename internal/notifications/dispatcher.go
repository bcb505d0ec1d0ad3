package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrQueueFull        = errors.New("notification queue full")
	ErrDispatcherClosed = errors.New("notification dispatcher stopped")
)

// Channel delivers an event to its recipients over one medium.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, envelope Envelope, caseID uint, recipients []uint) error
}

type job struct {
	envelope   Envelope
	caseID     uint
	recipients []uint
}

// Dispatcher queues events and fans each one out to every channel on a
// background worker. Callers never wait for delivery.
type Dispatcher struct {
	channels []Channel
	queue    chan job
	repo     Repository
	logger   *zap.Logger
	mu       sync.RWMutex
	closed   bool
	started  bool
	wg       sync.WaitGroup
}

// NewDispatcher creates a dispatcher. repo may be nil, in which case delivery
// outcomes are only logged.
func NewDispatcher(repo Repository, logger *zap.Logger, queueSize int, channels ...Channel) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Dispatcher{
		channels: channels,
		queue:    make(chan job, queueSize),
		repo:     repo,
		logger:   logger,
	}
}

// Start launches the delivery worker. It returns once the worker is running.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	d.wg.Add(1)
	go d.run(context.WithoutCancel(ctx))
}

// Stop drains queued events and waits for the worker to exit.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if started {
		d.wg.Wait()
	}
}

func (d *Dispatcher) NotifyStatusChange(_ context.Context, event StatusChangeEvent) error {
	return d.enqueue(job{
		envelope:   Envelope{Type: EventStatusChanged, Data: event, Timestamp: event.OccurredAt},
		caseID:     event.CaseID,
		recipients: event.Recipients,
	})
}

func (d *Dispatcher) NotifyFormCompleted(_ context.Context, event FormCompletedEvent) error {
	return d.enqueue(job{
		envelope:   Envelope{Type: EventFormCompleted, Data: event, Timestamp: event.OccurredAt},
		caseID:     event.CaseID,
		recipients: event.Recipients,
	})
}

func (d *Dispatcher) enqueue(j job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	if j.envelope.Timestamp.IsZero() {
		j.envelope.Timestamp = time.Now()
	}
	select {
	case d.queue <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for j := range d.queue {
		d.deliver(ctx, j)
	}
}

// deliver runs every channel concurrently. One channel failing does not stop
// the others.
func (d *Dispatcher) deliver(ctx context.Context, j job) {
	var g errgroup.Group
	for _, ch := range d.channels {
		g.Go(func() error {
			err := ch.Deliver(ctx, j.envelope, j.caseID, j.recipients)
			d.record(ctx, j, ch.Name(), err)
			if err != nil {
				return fmt.Errorf("%s: %w", ch.Name(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		d.logger.Warn("Notification delivery failed",
			zap.String("event", j.envelope.Type),
			zap.Uint("case_id", j.caseID),
			zap.Error(err),
		)
	}
}

func (d *Dispatcher) record(ctx context.Context, j job, channel string, deliveryErr error) {
	if d.repo == nil {
		return
	}
	entry := &DeliveryLog{
		EventType: j.envelope.Type,
		CaseID:    j.caseID,
		Channel:   channel,
		Status:    StatusDelivered,
	}
	if deliveryErr != nil {
		msg := deliveryErr.Error()
		entry.Status = StatusFailed
		entry.ErrorMessage = &msg
	}
	if err := d.repo.LogDelivery(ctx, entry); err != nil {
		d.logger.Debug("Failed to record notification delivery", zap.Error(err))
	}
}
