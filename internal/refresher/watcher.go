package refresher

import (
	"context"
	"sync"

	"github.com/suiven-network/suiven/internal/changes"
	"github.com/suiven-network/suiven/internal/sui"
	"github.com/suiven-network/suiven/internal/suiven"
	"github.com/suiven-network/suiven/pkg/logger"
)

// ActionEventCreated names changes triggered by an observed EventCreated emission.
const ActionEventCreated = "event_created"

// EventStream delivers ledger events matching a filter until ctx is done.
type EventStream interface {
	Run(ctx context.Context, filter sui.EventFilter, handler sui.EventHandler)
}

// Watcher turns EventCreated emissions seen on the ledger into Event changes.
type Watcher struct {
	stream    EventStream
	eventType string
	publisher changes.Publisher
	log       *logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewWatcher creates a Watcher for emissions of eventType.
func NewWatcher(stream EventStream, eventType string, publisher changes.Publisher, log *logger.Logger) *Watcher {
	if log == nil {
		log = logger.NewDefault("event-watcher")
	}
	return &Watcher{stream: stream, eventType: eventType, publisher: publisher, log: log}
}

func (w *Watcher) Name() string { return "event-watcher" }

// Start runs the subscription in the background.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	done := w.done
	go func() {
		defer close(done)
		w.stream.Run(runCtx, sui.EventFilter{MoveEventType: w.eventType}, func(e sui.Event) {
			w.handle(runCtx, e)
		})
	}()

	w.log.WithField("event_type", w.eventType).Info("event watcher started")
	return nil
}

// Stop ends the subscription and waits for it to close or ctx to end.
func (w *Watcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	cancel, done := w.cancel, w.done
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	w.log.Info("event watcher stopped")
	return nil
}

func (w *Watcher) handle(ctx context.Context, e sui.Event) {
	if e.Type != w.eventType {
		return
	}
	var ids []string
	if id := e.Field("event_id").String(); id != "" {
		ids = append(ids, id)
	}
	w.publisher.Publish(ctx, changes.Change{
		Action:    ActionEventCreated,
		Digest:    e.ID.TxDigest,
		Kinds:     []suiven.Kind{suiven.KindEvent},
		ObjectIDs: ids,
		Source:    changes.SourceSubscription,
	})
}
