// Package suiven maps Sui ledger objects to the Suiven domain entities.
package suiven

import (
	"math/big"

	"github.com/suiven-network/suiven/internal/codec"
)

// DefaultEventName is used when an object carries no event_name field.
const DefaultEventName = "Event Title"

// MaxRoyaltyBps is 100% expressed in basis points.
const MaxRoyaltyBps = 10000

// Event is the read model of a shared suiven_events::Event object.
type Event struct {
	ObjectID string `json:"objectId"`
	// InitialSharedVersion is empty when the object is not shared. Such an
	// Event cannot be used as a mutable transaction input.
	InitialSharedVersion string         `json:"initialSharedVersion,omitempty"`
	Organizer            string         `json:"organizer"`
	EventName            string         `json:"eventName"`
	MetadataURI          string         `json:"metadataUri"`
	Metadata             codec.Metadata `json:"metadata"`
	StartTs              int64          `json:"startTs"`
	EndTs                int64          `json:"endTs"`
	Capacity             uint64         `json:"capacity"`
	Sold                 uint64         `json:"sold"`
	PriceAmount          *big.Int       `json:"priceAmount"`
	PriceIsSui           bool           `json:"priceIsSui"`
	PriceTokenType       string         `json:"priceTokenType"`
	RoyaltyBps           uint16         `json:"royaltyBps"`
	Transferable         bool           `json:"transferable"`
	ResaleWindowEnd      int64          `json:"resaleWindowEnd"`
	Balance              *big.Int       `json:"balance,omitempty"`
}

// Shared reports whether the Event carries a shared-version token.
func (e *Event) Shared() bool {
	return e != nil && e.InitialSharedVersion != ""
}

// Remaining returns the unsold capacity. It is zero when sold exceeds capacity.
func (e *Event) Remaining() uint64 {
	if e == nil || e.Sold >= e.Capacity {
		return 0
	}
	return e.Capacity - e.Sold
}

// SoldOut reports whether no tickets are left.
func (e *Event) SoldOut() bool {
	return e.Remaining() == 0
}

// Ticket is the read model of a suiven_tickets::TicketNFT object.
type Ticket struct {
	ObjectID    string          `json:"objectId"`
	EventID     string          `json:"eventId"`
	EventName   string          `json:"eventName"`
	Owner       string          `json:"owner"`
	MetadataURI string          `json:"metadataUri"`
	Metadata    *codec.Metadata `json:"metadata"`
	MintedAt    int64           `json:"mintedAt"`
	Used        bool            `json:"used"`
}

// Proof is the read model of a suiven_poap::POAP object.
type Proof struct {
	ObjectID    string          `json:"objectId"`
	EventID     string          `json:"eventId"`
	EventName   string          `json:"eventName"`
	Holder      string          `json:"holder"`
	IssuedTs    int64           `json:"issuedTs"`
	MetadataURI string          `json:"metadataUri"`
	Metadata    *codec.Metadata `json:"metadata"`
}
