package query

import (
	"context"

	"github.com/suiven-network/suiven/internal/changes"
	"github.com/suiven-network/suiven/internal/suiven"
)

type target struct {
	class  string
	key    string
	prefix bool
}

// Attach subscribes the Service to bus. The returned func detaches it.
func (s *Service) Attach(bus *changes.Bus) func() {
	return bus.Subscribe(func(c changes.Change) {
		if err := s.Invalidate(context.Background(), c); err != nil {
			s.log.WithError(err).WithField("change_id", c.ID).Error("cache invalidation failed")
		}
	})
}

// Invalidate drops every cache entry the change may have made stale.
func (s *Service) Invalidate(ctx context.Context, c changes.Change) error {
	s.epoch.Add(1)

	var firstErr error
	for _, t := range targetsFor(c) {
		var n int
		var err error
		if t.prefix {
			n, err = s.store.DeletePrefix(ctx, t.key)
		} else {
			err = s.store.Delete(ctx, t.key)
			if err == nil {
				n = 1
			}
		}
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.recorder.RecordInvalidation(t.class, n)
	}

	s.log.WithContext(ctx).WithFields(map[string]interface{}{
		"change_id": c.ID,
		"kinds":     c.Kinds,
		"objects":   c.ObjectIDs,
		"owners":    c.Owners,
	}).Debug("cache invalidated")
	return firstErr
}

// InvalidateAll drops every query cache entry.
func (s *Service) InvalidateAll(ctx context.Context) error {
	s.epoch.Add(1)
	_, err := s.store.DeletePrefix(ctx, KeyPrefix)
	return err
}

func targetsFor(c changes.Change) []target {
	var out []target
	if c.Affects(suiven.KindEvent) {
		out = append(out,
			target{class: ClassEvents, key: EventsKey(), prefix: true},
			target{class: ClassAllEvents, key: AllEventsKey()},
			target{class: ClassFeatured, key: FeaturedKey()},
		)
		for _, id := range c.ObjectIDs {
			out = append(out, target{class: ClassEvent, key: EventKey(id)})
		}
	}
	if c.Affects(suiven.KindTicket) {
		out = append(out, ownerTargets(c.Owners, ClassTickets, TicketsKey)...)
		for _, id := range c.ObjectIDs {
			out = append(out, target{class: ClassTicket, key: TicketKey(id)})
		}
	}
	if c.Affects(suiven.KindProof) {
		out = append(out, ownerTargets(c.Owners, ClassProofs, ProofsKey)...)
		for _, id := range c.ObjectIDs {
			out = append(out, target{class: ClassProof, key: ProofKey(id)})
		}
	}
	return out
}

// ownerTargets drops the per-owner lists, or all of them when the owner is unknown.
func ownerTargets(owners []string, class string, key func(string) string) []target {
	if len(owners) == 0 {
		return []target{{class: class, key: KeyPrefix + class + "/", prefix: true}}
	}
	out := make([]target, 0, len(owners))
	for _, o := range owners {
		out = append(out, target{class: class, key: key(o)})
	}
	return out
}
