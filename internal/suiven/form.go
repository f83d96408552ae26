package suiven

import (
	"encoding/json"
	"math/big"
	"time"

	"github.com/suiven-network/suiven/internal/codec"
	svcerrors "github.com/suiven-network/suiven/internal/errors"
	"github.com/suiven-network/suiven/internal/units"
)

// Defaults applied by DefaultEventForm.
const (
	DefaultEventDuration = 3 * time.Hour
	DefaultRoyaltyBps    = 500
	DefaultPrice         = "1"
)

// SampleMetadata is the metadata payload prefilled in a new event form.
var SampleMetadata = codec.Metadata{
	Title:       "Suiven Showcase",
	Location:    "Lisbon, Portugal",
	Detail:      "Apr 12 · 18:00 UTC",
	Tiers:       "VIP · Pro · Community",
	Description: "Programmable ticket drop powered by Suiven on Sui.",
}

// EventInput is the intent to create an Event.
type EventInput struct {
	EventName       string   `json:"eventName"`
	MetadataPayload string   `json:"metadataPayload"`
	StartTs         uint64   `json:"startTs"`
	EndTs           uint64   `json:"endTs"`
	Capacity        uint64   `json:"capacity"`
	PriceAmount     *big.Int `json:"priceAmount"`
	PriceIsSui      bool     `json:"priceIsSui"`
	PriceTokenType  string   `json:"priceTokenType"`
	RoyaltyBps      uint16   `json:"royaltyBps"`
	Transferable    bool     `json:"transferable"`
	ResaleWindowEnd uint64   `json:"resaleWindowEnd"`
}

// DefaultEventForm returns the prefilled creation form at time now.
func DefaultEventForm(now time.Time) EventInput {
	payload, _ := json.MarshalIndent(SampleMetadata, "", "  ")
	start := uint64(now.UnixMilli())
	return EventInput{
		MetadataPayload: string(payload),
		StartTs:         start,
		EndTs:           start + uint64(DefaultEventDuration.Milliseconds()),
		PriceAmount:     units.MustToBaseUnits(DefaultPrice),
		PriceIsSui:      true,
		RoyaltyBps:      DefaultRoyaltyBps,
	}
}

// Validate checks the invariants the ledger would otherwise reject.
func (in EventInput) Validate() error {
	if in.PriceAmount == nil || in.PriceAmount.Sign() < 0 {
		return svcerrors.InvalidInput("priceAmount", "must be a non-negative amount")
	}
	if in.PriceAmount.BitLen() > 128 {
		return svcerrors.InvalidInput("priceAmount", "exceeds u128")
	}
	if in.RoyaltyBps > MaxRoyaltyBps {
		return svcerrors.InvalidInput("royaltyBps", "must be between 0 and 10000")
	}
	if in.EndTs < in.StartTs {
		return svcerrors.InvalidInput("endTs", "must not be before startTs")
	}
	if !in.PriceIsSui && in.PriceTokenType == "" {
		return svcerrors.InvalidInput("priceTokenType", "required when the price is not in SUI")
	}
	return nil
}
