package query

import "github.com/suiven-network/suiven/internal/sui"

// KeyPrefix is shared by every query cache key.
const KeyPrefix = "suiven/"

// Key classes, used as metric labels and invalidation targets.
const (
	ClassEvent     = "event"
	ClassEvents    = "events"
	ClassAllEvents = "all-events"
	ClassFeatured  = "featured"
	ClassTicket    = "ticket"
	ClassTickets   = "tickets"
	ClassProof     = "poap"
	ClassProofs    = "poaps"
)

// EventKey caches a single Event.
func EventKey(id string) string { return KeyPrefix + ClassEvent + "/" + sui.NormalizeAddress(id) }

// EventsKey caches the organizer views. EventsByOrganizer entries live below it.
func EventsKey() string { return KeyPrefix + ClassEvents }

// OrganizerEventsKey caches the Events of one organizer.
func OrganizerEventsKey(owner string) string {
	return EventsKey() + "/" + sui.NormalizeAddress(owner)
}

// AllEventsKey caches the discovered Event list.
func AllEventsKey() string { return KeyPrefix + ClassAllEvents }

// FeaturedKey caches the featured Event list.
func FeaturedKey() string { return KeyPrefix + ClassFeatured }

// TicketKey caches a single Ticket.
func TicketKey(id string) string { return KeyPrefix + ClassTicket + "/" + sui.NormalizeAddress(id) }

// TicketsKey caches the Tickets owned by owner.
func TicketsKey(owner string) string {
	return KeyPrefix + ClassTickets + "/" + sui.NormalizeAddress(owner)
}

// ProofKey caches a single Proof-of-Attendance token.
func ProofKey(id string) string { return KeyPrefix + ClassProof + "/" + sui.NormalizeAddress(id) }

// ProofsKey caches the Proofs held by owner.
func ProofsKey(owner string) string {
	return KeyPrefix + ClassProofs + "/" + sui.NormalizeAddress(owner)
}
