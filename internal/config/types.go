package config

// Move module names of the deployed package.
const (
	ModuleEvents  = "suiven_events"
	ModuleTickets = "suiven_tickets"
	ModulePOAP    = "suiven_poap"
)

// Entry point function names.
const (
	FnCreateEvent         = "create_event"
	FnPurchaseWithPayment = "purchase_with_payment"
	FnAdminWithdrawFunds  = "admin_withdraw_event_funds"
	FnBurnAndMintPOAP     = "burn_ticket_and_mint_poap_entry"
	FnMarkTicketUsed      = "mark_ticket_used"
)

// Struct names of the on-chain objects and emitted events.
const (
	StructEvent        = "Event"
	StructTicket       = "TicketNFT"
	StructPOAP         = "POAP"
	StructEventCreated = "EventCreated"
)

// TypeTag returns "<package>::<module>::<name>".
func (c Config) TypeTag(module, name string) string {
	return c.PackageID + "::" + module + "::" + name
}

// EventType is the declared type of Event objects.
func (c Config) EventType() string { return c.TypeTag(ModuleEvents, StructEvent) }

// TicketType is the declared type of Ticket objects.
func (c Config) TicketType() string { return c.TypeTag(ModuleTickets, StructTicket) }

// ProofType is the declared type of Proof-of-Attendance objects.
func (c Config) ProofType() string { return c.TypeTag(ModulePOAP, StructPOAP) }

// EventCreatedType is the emitted event type used to discover shared Events.
func (c Config) EventCreatedType() string { return c.TypeTag(ModuleEvents, StructEventCreated) }
