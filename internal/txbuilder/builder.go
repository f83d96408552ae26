package txbuilder

import (
	"github.com/suiven-network/suiven/internal/codec"
	"github.com/suiven-network/suiven/internal/config"
	svcerrors "github.com/suiven-network/suiven/internal/errors"
	"github.com/suiven-network/suiven/internal/suiven"
	"github.com/suiven-network/suiven/pkg/logger"
)

// WarnMissingVerifierCap is attached to mark-used requests, which are built
// without the verifier capability the entry point expects.
const WarnMissingVerifierCap = "mark_ticket_used is built without a verifier capability argument and may be rejected on submission"

// Builder constructs transaction requests for the configured package.
// It never touches the network.
type Builder struct {
	cfg config.Config
	log *logger.Logger
}

// New creates a Builder.
func New(cfg config.Config, log *logger.Logger) *Builder {
	if log == nil {
		log = logger.NewDefault("txbuilder")
	}
	return &Builder{cfg: cfg, log: log}
}

// Config returns the configuration the builder was created with.
func (b *Builder) Config() config.Config {
	return b.cfg
}

// CreateEvent builds suiven_events::create_event.
func (b *Builder) CreateEvent(in suiven.EventInput) (*Request, error) {
	organizerCap, err := b.cfg.OrganizerCap()
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	t := newTx(ActionCreateEvent)
	capArg := t.object(organizerCap)
	nameArg := t.str(in.EventName)
	payloadArg := t.str(in.MetadataPayload)
	startArg := t.u64(in.StartTs)
	endArg := t.u64(in.EndTs)
	capacityArg := t.u64(in.Capacity)
	priceArg, err := t.u128(in.PriceAmount)
	if err != nil {
		return nil, svcerrors.InvalidInput("priceAmount", err.Error())
	}
	isSuiArg := t.boolean(in.PriceIsSui)
	tokenArg := t.str(in.PriceTokenType)
	royaltyArg := t.u16(in.RoyaltyBps)
	transferableArg := t.boolean(in.Transferable)
	resaleArg := t.u64(in.ResaleWindowEnd)

	t.moveCall(b.cfg.PackageID, config.ModuleEvents, config.FnCreateEvent,
		capArg, nameArg, payloadArg, startArg, endArg, capacityArg,
		priceArg, isSuiArg, tokenArg, royaltyArg, transferableArg, resaleArg)
	return t.req, nil
}

// PurchaseTicket builds suiven_tickets::purchase_with_payment against a
// shared Event. Payment is sourced according to the configured PurchaseMode.
func (b *Builder) PurchaseTicket(event *suiven.Event) (*Request, error) {
	if err := requireShared(event); err != nil {
		return nil, err
	}
	if event.PriceAmount == nil || !event.PriceAmount.IsUint64() {
		return nil, svcerrors.InvalidInput("priceAmount", "exceeds u64 and cannot be paid from a coin")
	}
	price := event.PriceAmount.Uint64()

	t := newTx(ActionPurchaseTicket)
	var eventArg, paymentArg Argument
	switch b.cfg.PurchaseMode {
	case config.PurchaseAmountArg:
		eventArg = t.shared(event.ObjectID, event.InitialSharedVersion, true)
		paymentArg = t.u64(price)
	default:
		amount := t.u64(price)
		paymentArg = t.splitGas(amount)
		eventArg = t.shared(event.ObjectID, event.InitialSharedVersion, true)
	}
	uriArg := t.str(event.MetadataURI)
	clockArg := t.object(b.cfg.Clock())

	t.moveCall(b.cfg.PackageID, config.ModuleTickets, config.FnPurchaseWithPayment,
		eventArg, paymentArg, uriArg, clockArg)
	return t.req, nil
}

// WithdrawFunds builds suiven_events::admin_withdraw_event_funds.
func (b *Builder) WithdrawFunds(event *suiven.Event) (*Request, error) {
	adminCap, err := b.cfg.AdminCap()
	if err != nil {
		return nil, err
	}
	if err := requireShared(event); err != nil {
		return nil, err
	}

	t := newTx(ActionWithdrawFunds)
	capArg := t.object(adminCap)
	eventArg := t.shared(event.ObjectID, event.InitialSharedVersion, true)
	t.moveCall(b.cfg.PackageID, config.ModuleEvents, config.FnAdminWithdrawFunds, capArg, eventArg)
	return t.req, nil
}

// BurnAndMintProof builds suiven_poap::burn_ticket_and_mint_poap_entry. The
// ticket is consumed; metadataURI is passed as raw bytes.
func (b *Builder) BurnAndMintProof(ticketID, metadataURI string) (*Request, error) {
	if ticketID == "" {
		return nil, svcerrors.InvalidInput("ticketId", "required")
	}

	t := newTx(ActionBurnAndMint)
	ticketArg := t.object(ticketID)
	uriArg := t.bytes(codec.EncodeVectorString(metadataURI))
	clockArg := t.object(b.cfg.Clock())
	t.moveCall(b.cfg.PackageID, config.ModulePOAP, config.FnBurnAndMintPOAP, ticketArg, uriArg, clockArg)
	return t.req, nil
}

// MarkTicketUsed builds suiven_tickets::mark_ticket_used with the ticket as
// its only argument. The request carries WarnMissingVerifierCap.
func (b *Builder) MarkTicketUsed(ticketID string) (*Request, error) {
	if ticketID == "" {
		return nil, svcerrors.InvalidInput("ticketId", "required")
	}

	t := newTx(ActionMarkTicketUsed)
	ticketArg := t.object(ticketID)
	t.moveCall(b.cfg.PackageID, config.ModuleTickets, config.FnMarkTicketUsed, ticketArg)
	t.req.Warnings = append(t.req.Warnings, WarnMissingVerifierCap)

	b.log.WithField("ticket_id", ticketID).Warn(WarnMissingVerifierCap)
	return t.req, nil
}

func requireShared(event *suiven.Event) error {
	if event == nil || event.ObjectID == "" {
		return svcerrors.InvalidInput("event", "required")
	}
	if !event.Shared() {
		return svcerrors.InvalidInput("event", "is not shared or missing the initial shared version")
	}
	return nil
}
