package httpapi

import (
	"github.com/suiven-network/suiven/internal/codec"
	"github.com/suiven-network/suiven/internal/suiven"
	"github.com/suiven-network/suiven/internal/units"
)

// EventView is an Event with its amounts and timestamps rendered for display.
type EventView struct {
	suiven.Event
	Price          string `json:"price"`
	BalanceDisplay string `json:"balanceDisplay"`
	StartDisplay   string `json:"startDisplay"`
	EndDisplay     string `json:"endDisplay"`
	Remaining      uint64 `json:"remaining"`
	SoldOut        bool   `json:"soldOut"`
}

// TicketView is a Ticket with its mint time rendered for display.
type TicketView struct {
	suiven.Ticket
	MintedDisplay string `json:"mintedDisplay"`
}

// ProofView is a Proof-of-Attendance token with its issue time rendered for display.
type ProofView struct {
	suiven.Proof
	IssuedDisplay string `json:"issuedDisplay"`
}

func eventView(e suiven.Event) EventView {
	return EventView{
		Event:          e,
		Price:          units.FromBaseUnits(e.PriceAmount),
		BalanceDisplay: units.FromBaseUnits(e.Balance),
		StartDisplay:   codec.FormatMillis(e.StartTs),
		EndDisplay:     codec.FormatMillis(e.EndTs),
		Remaining:      e.Remaining(),
		SoldOut:        e.SoldOut(),
	}
}

func eventViews(events []suiven.Event) []EventView {
	out := make([]EventView, 0, len(events))
	for _, e := range events {
		out = append(out, eventView(e))
	}
	return out
}

func ticketViews(tickets []suiven.Ticket) []TicketView {
	out := make([]TicketView, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, TicketView{Ticket: t, MintedDisplay: codec.FormatMillis(t.MintedAt)})
	}
	return out
}

func proofViews(proofs []suiven.Proof) []ProofView {
	out := make([]ProofView, 0, len(proofs))
	for _, p := range proofs {
		out = append(out, ProofView{Proof: p, IssuedDisplay: codec.FormatMillis(p.IssuedTs)})
	}
	return out
}
