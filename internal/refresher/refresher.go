// Package refresher keeps the shared Event listings warm and fresh in the
// background.
package refresher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/suiven-network/suiven/internal/changes"
	"github.com/suiven-network/suiven/internal/suiven"
	"github.com/suiven-network/suiven/pkg/logger"
)

// ActionRefresh names the changes published by scheduled refreshes.
const ActionRefresh = "scheduled_refresh"

// DefaultTickTimeout bounds one refresh.
const DefaultTickTimeout = 30 * time.Second

// Warmer loads the listings the refresher keeps cached.
type Warmer interface {
	FeaturedEvents(ctx context.Context) ([]suiven.Event, error)
	AllEvents(ctx context.Context) ([]suiven.Event, error)
}

// Refresher re-reads the featured and discovered Events on a cron schedule.
// With a publisher, each tick first announces an Event change so the reads
// bypass entries that are still within their TTL.
type Refresher struct {
	warmer    Warmer
	publisher changes.Publisher
	schedule  string
	timeout   time.Duration
	log       *logger.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	ticks   int
	wg      sync.WaitGroup
}

// New creates a Refresher for a standard cron spec or descriptor such as "@every 1m".
func New(warmer Warmer, publisher changes.Publisher, schedule string, log *logger.Logger) *Refresher {
	if log == nil {
		log = logger.NewDefault("refresher")
	}
	return &Refresher{
		warmer:    warmer,
		publisher: publisher,
		schedule:  schedule,
		timeout:   DefaultTickTimeout,
		log:       log,
	}
}

func (r *Refresher) Name() string { return "event-refresher" }

// Start schedules refreshes and runs one immediately. Starting twice is a no-op.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(r.schedule, r.run); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("refresh schedule %q: %w", r.schedule, err)
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.cron = c
	r.running = true
	r.mu.Unlock()

	c.Start()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run()
	}()

	r.log.WithField("schedule", r.schedule).Info("event refresher started")
	return nil
}

// Stop cancels the schedule and waits for a running refresh to finish or ctx to end.
func (r *Refresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	c, cancel := r.cron, r.cancel
	r.running = false
	r.cron, r.cancel = nil, nil
	r.mu.Unlock()

	cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-c.Stop().Done()
		r.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.log.Info("event refresher stopped")
	return nil
}

// Ticks returns the number of completed refreshes.
func (r *Refresher) Ticks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ticks
}

func (r *Refresher) run() {
	r.mu.Lock()
	ctx := r.ctx
	r.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	r.Tick(ctx)
}

// Tick performs one refresh.
func (r *Refresher) Tick(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if r.publisher != nil {
		r.publisher.Publish(ctx, changes.Change{
			Action: ActionRefresh,
			Kinds:  []suiven.Kind{suiven.KindEvent},
		})
	}

	featured, err := r.warmer.FeaturedEvents(ctx)
	if err != nil {
		r.log.WithError(err).Warn("featured events refresh failed")
	}
	all, err := r.warmer.AllEvents(ctx)
	if err != nil {
		r.log.WithError(err).Warn("event discovery refresh failed")
	}

	r.mu.Lock()
	r.ticks++
	r.mu.Unlock()
	r.log.WithFields(map[string]interface{}{
		"featured": len(featured),
		"events":   len(all),
	}).Debug("event listings refreshed")
}
