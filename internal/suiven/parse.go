package suiven

import (
	"math"
	"math/big"

	"github.com/tidwall/gjson"

	"github.com/suiven-network/suiven/internal/codec"
	"github.com/suiven-network/suiven/internal/config"
	"github.com/suiven-network/suiven/internal/sui"
)

// Kind names an entity class.
type Kind string

const (
	KindEvent  Kind = "event"
	KindTicket Kind = "ticket"
	KindProof  Kind = "proof"
)

// Reasons reported to a RejectHook.
const (
	RejectNoData        = "no_data"
	RejectNotMoveObject = "not_move_object"
	RejectTypeMismatch  = "type_mismatch"
)

// RejectHook is called whenever a response cannot be parsed into an entity.
type RejectHook func(kind Kind, reason string)

// Parsed is the result of Parse: one of *Event, *Ticket, *Proof or NotFound.
type Parsed interface {
	isParsed()
}

// NotFound is returned by Parse when the response holds no recognised entity.
type NotFound struct {
	ObjectID string
	Reason   string
}

func (*Event) isParsed()   {}
func (*Ticket) isParsed()  {}
func (*Proof) isParsed()   {}
func (NotFound) isParsed() {}

// Parser converts raw object responses into entities. Type tags are computed
// once from the package id.
type Parser struct {
	eventType  string
	ticketType string
	proofType  string
	onReject   RejectHook
}

// NewParser creates a Parser for the package configured in cfg.
func NewParser(cfg config.Config) *Parser {
	return &Parser{
		eventType:  cfg.EventType(),
		ticketType: cfg.TicketType(),
		proofType:  cfg.ProofType(),
	}
}

// WithRejectHook sets a callback for rejected responses.
func (p *Parser) WithRejectHook(hook RejectHook) *Parser {
	p.onReject = hook
	return p
}

// TypeOf returns the entity kind bound to a declared type tag.
func (p *Parser) TypeOf(typeTag string) (Kind, bool) {
	switch typeTag {
	case p.eventType:
		return KindEvent, true
	case p.ticketType:
		return KindTicket, true
	case p.proofType:
		return KindProof, true
	}
	return "", false
}

// TypeTag returns the declared type tag for kind.
func (p *Parser) TypeTag(kind Kind) string {
	switch kind {
	case KindEvent:
		return p.eventType
	case KindTicket:
		return p.ticketType
	case KindProof:
		return p.proofType
	}
	return ""
}

// Parse inspects the declared type and delegates to the matching parser.
func (p *Parser) Parse(resp *sui.ObjectResponse) Parsed {
	content, reason := moveContent(resp)
	if content == nil {
		return NotFound{ObjectID: objectIDOf(resp), Reason: reason}
	}
	kind, ok := p.TypeOf(content.Type)
	if !ok {
		return NotFound{ObjectID: objectIDOf(resp), Reason: RejectTypeMismatch}
	}
	switch kind {
	case KindEvent:
		return p.ParseEvent(resp)
	case KindTicket:
		return p.ParseTicket(resp)
	default:
		return p.ParseProof(resp)
	}
}

// ParseEvent returns nil unless resp holds a well-typed Event object.
func (p *Parser) ParseEvent(resp *sui.ObjectResponse) *Event {
	fields, ok := p.fields(resp, KindEvent, p.eventType)
	if !ok {
		return nil
	}

	metadataURI := stringOrVector(fields.Get("metadata_uri"))
	return &Event{
		ObjectID:             resp.Data.ObjectID,
		InitialSharedVersion: resp.Data.InitialSharedVersion(),
		Organizer:            fields.Get("organizer").String(),
		EventName:            stringOr(fields.Get("event_name"), DefaultEventName),
		MetadataURI:          metadataURI,
		Metadata:             codec.ParseMetadata(metadataURI),
		StartTs:              fields.Get("start_ts").Int(),
		EndTs:                fields.Get("end_ts").Int(),
		Capacity:             fields.Get("capacity").Uint(),
		Sold:                 fields.Get("sold").Uint(),
		PriceAmount:          bigOrZero(fields.Get("price_amount")),
		PriceIsSui:           fields.Get("price_is_sui").Bool(),
		PriceTokenType:       stringOrVector(fields.Get("price_token_type")),
		RoyaltyBps:           uint16OrZero(fields.Get("royalty_bps")),
		Transferable:         fields.Get("transferable").Bool(),
		ResaleWindowEnd:      fields.Get("resale_window_end").Int(),
		Balance:              balanceOf(fields.Get("balance")),
	}
}

// ParseTicket returns nil unless resp holds a well-typed Ticket object.
func (p *Parser) ParseTicket(resp *sui.ObjectResponse) *Ticket {
	fields, ok := p.fields(resp, KindTicket, p.ticketType)
	if !ok {
		return nil
	}

	metadataURI := vectorString(fields.Get("metadata_uri"))
	return &Ticket{
		ObjectID:    resp.Data.ObjectID,
		EventID:     fields.Get("event_id").String(),
		EventName:   stringOr(fields.Get("event_name"), DefaultEventName),
		Owner:       fields.Get("owner").String(),
		MetadataURI: metadataURI,
		Metadata:    metadataOf(metadataURI),
		MintedAt:    fields.Get("minted_at").Int(),
		Used:        fields.Get("used").Bool(),
	}
}

// ParseProof returns nil unless resp holds a well-typed Proof-of-Attendance object.
func (p *Parser) ParseProof(resp *sui.ObjectResponse) *Proof {
	fields, ok := p.fields(resp, KindProof, p.proofType)
	if !ok {
		return nil
	}

	metadataURI := vectorString(fields.Get("metadata_uri"))
	return &Proof{
		ObjectID:    resp.Data.ObjectID,
		EventID:     fields.Get("event_id").String(),
		EventName:   stringOr(fields.Get("event_name"), DefaultEventName),
		Holder:      fields.Get("holder").String(),
		IssuedTs:    fields.Get("issued_ts").Int(),
		MetadataURI: metadataURI,
		Metadata:    metadataOf(metadataURI),
	}
}

// ParseEvents parses each response and drops the ones that are not Events.
func (p *Parser) ParseEvents(resps []sui.ObjectResponse) []Event {
	out := make([]Event, 0, len(resps))
	for i := range resps {
		if e := p.ParseEvent(&resps[i]); e != nil {
			out = append(out, *e)
		}
	}
	return out
}

// ParseTickets parses each response and drops the ones that are not Tickets.
func (p *Parser) ParseTickets(resps []sui.ObjectResponse) []Ticket {
	out := make([]Ticket, 0, len(resps))
	for i := range resps {
		if t := p.ParseTicket(&resps[i]); t != nil {
			out = append(out, *t)
		}
	}
	return out
}

// ParseProofs parses each response and drops the ones that are not Proofs.
func (p *Parser) ParseProofs(resps []sui.ObjectResponse) []Proof {
	out := make([]Proof, 0, len(resps))
	for i := range resps {
		if pr := p.ParseProof(&resps[i]); pr != nil {
			out = append(out, *pr)
		}
	}
	return out
}

func (p *Parser) fields(resp *sui.ObjectResponse, kind Kind, want string) (gjson.Result, bool) {
	content, reason := moveContent(resp)
	if content == nil {
		p.reject(kind, reason)
		return gjson.Result{}, false
	}
	if content.Type != want {
		p.reject(kind, RejectTypeMismatch)
		return gjson.Result{}, false
	}
	return gjson.ParseBytes(content.Fields), true
}

func (p *Parser) reject(kind Kind, reason string) {
	if p.onReject != nil {
		p.onReject(kind, reason)
	}
}

func moveContent(resp *sui.ObjectResponse) (*sui.ObjectContent, string) {
	if resp == nil || resp.Data == nil {
		return nil, RejectNoData
	}
	if resp.Data.Content == nil || resp.Data.Content.DataType != sui.DataTypeMoveObject {
		return nil, RejectNotMoveObject
	}
	return resp.Data.Content, ""
}

func objectIDOf(resp *sui.ObjectResponse) string {
	if resp == nil {
		return ""
	}
	if resp.Data != nil {
		return resp.Data.ObjectID
	}
	if resp.Error != nil {
		return resp.Error.ObjectID
	}
	return ""
}

// =============================================================================
// Field coercion
// =============================================================================

func stringOr(v gjson.Result, fallback string) string {
	if !v.Exists() || v.Type == gjson.Null {
		return fallback
	}
	return v.String()
}

// stringOrVector reads a Move String field, decoding it when the node
// renders it as a byte array.
func stringOrVector(v gjson.Result) string {
	if v.IsArray() {
		return codec.DecodeVectorString([]byte(v.Raw))
	}
	return v.String()
}

// vectorString reads a vector<u8> field, which may be base64 or a byte array.
func vectorString(v gjson.Result) string {
	if !v.Exists() || v.Type == gjson.Null {
		return ""
	}
	return codec.DecodeVectorString([]byte(v.Raw))
}

func metadataOf(uri string) *codec.Metadata {
	if uri == "" {
		return nil
	}
	m := codec.ParseMetadata(uri)
	return &m
}

func bigOrZero(v gjson.Result) *big.Int {
	n, ok := new(big.Int).SetString(v.String(), 10)
	if !ok || n.Sign() < 0 {
		return new(big.Int)
	}
	return n
}

// balanceOf accepts a plain amount or a Balance struct rendered as {"value": ...}.
func balanceOf(v gjson.Result) *big.Int {
	if v.IsObject() {
		if inner := v.Get("fields.value"); inner.Exists() {
			return bigOrZero(inner)
		}
		return bigOrZero(v.Get("value"))
	}
	return bigOrZero(v)
}

func uint16OrZero(v gjson.Result) uint16 {
	n := v.Uint()
	if n > math.MaxUint16 {
		return 0
	}
	return uint16(n)
}
