// Package query reads Suiven entities from the ledger, caches the parsed
// results and drops cache entries when entities change.
package query

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/suiven-network/suiven/internal/cache"
	"github.com/suiven-network/suiven/internal/config"
	"github.com/suiven-network/suiven/internal/sui"
	"github.com/suiven-network/suiven/internal/suiven"
	"github.com/suiven-network/suiven/pkg/logger"
)

// DefaultConcurrency bounds parallel object fetches in a batch.
const DefaultConcurrency = 8

// Ledger is the read side of the ledger client.
type Ledger interface {
	GetObject(ctx context.Context, id string, opts sui.ObjectDataOptions) (*sui.ObjectResponse, error)
	GetOwnedObjects(ctx context.Context, owner string, query sui.OwnedObjectsQuery, cursor *string, limit int) (*sui.ObjectsPage, error)
	QueryEvents(ctx context.Context, q sui.EventQuery) (*sui.EventsPage, error)
}

// Recorder receives cache telemetry.
type Recorder interface {
	RecordCacheLookup(class string, hit bool)
	RecordInvalidation(class string, n int)
}

type nopRecorder struct{}

func (nopRecorder) RecordCacheLookup(string, bool) {}
func (nopRecorder) RecordInvalidation(string, int) {}

// Options configures a Service.
type Options struct {
	Store       cache.Store
	Recorder    Recorder
	Logger      *logger.Logger
	Concurrency int
}

// Service serves cached entity reads.
type Service struct {
	cfg         config.Config
	ledger      Ledger
	parser      *suiven.Parser
	store       cache.Store
	recorder    Recorder
	log         *logger.Logger
	ttl         time.Duration
	pageLimit   int
	concurrency int

	group singleflight.Group
	// epoch advances on every invalidation. Fetches that straddle an
	// invalidation are returned but not cached.
	epoch atomic.Uint64
}

// New creates a Service.
func New(cfg config.Config, ledger Ledger, parser *suiven.Parser, opts Options) *Service {
	if parser == nil {
		parser = suiven.NewParser(cfg)
	}
	if opts.Store == nil {
		opts.Store = cache.NewMemoryStore()
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewDefault("query")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	pageLimit := cfg.QueryPageLimit
	if pageLimit <= 0 {
		pageLimit = 50
	}

	return &Service{
		cfg:         cfg,
		ledger:      ledger,
		parser:      parser,
		store:       opts.Store,
		recorder:    opts.Recorder,
		log:         opts.Logger,
		ttl:         cfg.CacheTTL,
		pageLimit:   pageLimit,
		concurrency: opts.Concurrency,
	}
}

// Parser returns the parser used for every read.
func (s *Service) Parser() *suiven.Parser {
	return s.parser
}

// =============================================================================
// Single objects
// =============================================================================

// Event returns the Event with id, or nil if it does not exist or is not an Event.
func (s *Service) Event(ctx context.Context, id string) (*suiven.Event, error) {
	if id == "" {
		return nil, nil
	}
	return cached(ctx, s, ClassEvent, EventKey(id), func(ctx context.Context) (*suiven.Event, error) {
		resp, err := s.ledger.GetObject(ctx, id, sui.DefaultObjectOptions)
		if err != nil {
			return nil, err
		}
		return s.parser.ParseEvent(resp), nil
	})
}

// Ticket returns the Ticket with id, or nil if it does not exist or is not a Ticket.
func (s *Service) Ticket(ctx context.Context, id string) (*suiven.Ticket, error) {
	if id == "" {
		return nil, nil
	}
	return cached(ctx, s, ClassTicket, TicketKey(id), func(ctx context.Context) (*suiven.Ticket, error) {
		resp, err := s.ledger.GetObject(ctx, id, sui.DefaultObjectOptions)
		if err != nil {
			return nil, err
		}
		return s.parser.ParseTicket(resp), nil
	})
}

// Proof returns the Proof-of-Attendance token with id, or nil.
func (s *Service) Proof(ctx context.Context, id string) (*suiven.Proof, error) {
	if id == "" {
		return nil, nil
	}
	return cached(ctx, s, ClassProof, ProofKey(id), func(ctx context.Context) (*suiven.Proof, error) {
		resp, err := s.ledger.GetObject(ctx, id, sui.DefaultObjectOptions)
		if err != nil {
			return nil, err
		}
		return s.parser.ParseProof(resp), nil
	})
}

// Object fetches id uncached and dispatches on its declared type.
func (s *Service) Object(ctx context.Context, id string) (suiven.Parsed, error) {
	resp, err := s.ledger.GetObject(ctx, id, sui.DefaultObjectOptions)
	if err != nil {
		return nil, err
	}
	return s.parser.Parse(resp), nil
}

// =============================================================================
// Owned objects
// =============================================================================

// WalletTickets returns the Tickets owned by owner. Objects that do not
// parse are dropped.
func (s *Service) WalletTickets(ctx context.Context, owner string) ([]suiven.Ticket, error) {
	if owner == "" {
		return []suiven.Ticket{}, nil
	}
	return cached(ctx, s, ClassTickets, TicketsKey(owner), func(ctx context.Context) ([]suiven.Ticket, error) {
		resps, err := s.owned(ctx, owner, s.cfg.TicketType())
		if err != nil {
			return nil, err
		}
		return s.parser.ParseTickets(resps), nil
	})
}

// WalletProofs returns the Proof-of-Attendance tokens held by owner.
func (s *Service) WalletProofs(ctx context.Context, owner string) ([]suiven.Proof, error) {
	if owner == "" {
		return []suiven.Proof{}, nil
	}
	return cached(ctx, s, ClassProofs, ProofsKey(owner), func(ctx context.Context) ([]suiven.Proof, error) {
		resps, err := s.owned(ctx, owner, s.cfg.ProofType())
		if err != nil {
			return nil, err
		}
		return s.parser.ParseProofs(resps), nil
	})
}

func (s *Service) owned(ctx context.Context, owner, structType string) ([]sui.ObjectResponse, error) {
	page, err := s.ledger.GetOwnedObjects(ctx, owner, sui.OwnedObjectsQuery{
		Filter:  &sui.ObjectFilter{StructType: structType},
		Options: &sui.ObjectDataOptions{ShowType: true, ShowContent: true, ShowOwner: true},
	}, nil, s.pageLimit)
	if err != nil {
		return nil, err
	}
	return page.Data, nil
}

// =============================================================================
// Shared Events
// =============================================================================

// AllEvents discovers Events through their EventCreated emissions, newest
// first, and fetches each one.
func (s *Service) AllEvents(ctx context.Context) ([]suiven.Event, error) {
	return cached(ctx, s, ClassAllEvents, AllEventsKey(), func(ctx context.Context) ([]suiven.Event, error) {
		page, err := s.ledger.QueryEvents(ctx, sui.EventQuery{
			Filter:     sui.EventFilter{MoveEventType: s.cfg.EventCreatedType()},
			Limit:      s.pageLimit,
			Descending: true,
		})
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(page.Data))
		for _, e := range page.Data {
			ids = append(ids, e.Field("event_id").String())
		}
		return s.fetchEvents(ctx, ids)
	})
}

// EventsByOrganizer returns the discovered Events created by owner.
func (s *Service) EventsByOrganizer(ctx context.Context, owner string) ([]suiven.Event, error) {
	if owner == "" {
		return []suiven.Event{}, nil
	}
	want := sui.NormalizeAddress(owner)
	return cached(ctx, s, ClassEvents, OrganizerEventsKey(owner), func(ctx context.Context) ([]suiven.Event, error) {
		all, err := s.AllEvents(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]suiven.Event, 0)
		for _, e := range all {
			if sui.NormalizeAddress(e.Organizer) == want {
				out = append(out, e)
			}
		}
		return out, nil
	})
}

// FeaturedEvents returns the configured featured Events that exist.
func (s *Service) FeaturedEvents(ctx context.Context) ([]suiven.Event, error) {
	if len(s.cfg.FeaturedEventIDs) == 0 {
		return []suiven.Event{}, nil
	}
	return cached(ctx, s, ClassFeatured, FeaturedKey(), func(ctx context.Context) ([]suiven.Event, error) {
		return s.fetchEvents(ctx, s.cfg.FeaturedEventIDs)
	})
}

// fetchEvents fetches ids in parallel and keeps the order of the input.
// Duplicate and empty ids are skipped.
func (s *Service) fetchEvents(ctx context.Context, ids []string) ([]suiven.Event, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return []suiven.Event{}, nil
	}

	results := make([]*suiven.Event, len(unique))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, id := range unique {
		i, id := i, id
		g.Go(func() error {
			resp, err := s.ledger.GetObject(gctx, id, sui.DefaultObjectOptions)
			if err != nil {
				return err
			}
			results[i] = s.parser.ParseEvent(resp)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]suiven.Event, 0, len(results))
	for _, e := range results {
		if e != nil {
			out = append(out, *e)
		}
	}
	return out, nil
}

// =============================================================================
// Cache plumbing
// =============================================================================

func cached[T any](ctx context.Context, s *Service, class, key string, fetch func(context.Context) (T, error)) (T, error) {
	var out T
	ok, err := cache.GetJSON(ctx, s.store, key, &out)
	if err != nil {
		s.log.WithContext(ctx).WithError(err).WithField("key", key).Warn("cache read failed")
	}
	s.recorder.RecordCacheLookup(class, ok)
	if ok {
		return out, nil
	}

	epoch := s.epoch.Load()
	ch := s.group.DoChan(key+"@"+strconv.FormatUint(epoch, 10), func() (interface{}, error) {
		// The fetch outlives any single waiter. The ledger client's own
		// timeout still bounds it.
		fctx := context.WithoutCancel(ctx)
		val, err := fetch(fctx)
		if err != nil {
			return val, err
		}
		if s.epoch.Load() != epoch {
			return val, nil
		}
		if err := cache.SetJSON(fctx, s.store, key, val, s.ttl); err != nil {
			s.log.WithContext(ctx).WithError(err).WithField("key", key).Warn("cache write failed")
			return val, nil
		}
		// An invalidation between the check and the write may have missed
		// the entry just stored.
		if s.epoch.Load() != epoch {
			if err := s.store.Delete(fctx, key); err != nil {
				s.log.WithContext(ctx).WithError(err).WithField("key", key).Error("stale cache entry not removed")
			}
		}
		return val, nil
	})

	var v interface{}
	select {
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		v = res.Val
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
	return v.(T), nil
}
