package actions_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suiven-network/suiven/internal/actions"
	"github.com/suiven-network/suiven/internal/cache"
	"github.com/suiven-network/suiven/internal/changes"
	"github.com/suiven-network/suiven/internal/config"
	svcerrors "github.com/suiven-network/suiven/internal/errors"
	"github.com/suiven-network/suiven/internal/query"
	"github.com/suiven-network/suiven/internal/suiven"
	"github.com/suiven-network/suiven/internal/txbuilder"
	"github.com/suiven-network/suiven/pkg/logger"
	"github.com/suiven-network/suiven/pkg/testutil"
)

const (
	organizer = "0x00000000000000000000000000000000000000000000000000000000000000a1"
	buyer     = "0x00000000000000000000000000000000000000000000000000000000000000b1"
)

type submissions struct {
	ok, failed map[string]int
}

func (s *submissions) RecordSubmission(action string, _ time.Duration, err error) {
	if err != nil {
		s.failed[action]++
		return
	}
	s.ok[action]++
}

type harness struct {
	cfg     config.Config
	ledger  *testutil.FakeLedger
	wallet  *testutil.FakeWallet
	bus     *changes.Bus
	query   *query.Service
	actions *actions.Service
	subs    *submissions
}

func newHarness(t *testing.T, mutate func(*config.Config)) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.PackageID = "0x00000000000000000000000000000000000000000000000000000000000000ab"
	cfg.OrganizerCapID = "0x00000000000000000000000000000000000000000000000000000000000000c1"
	cfg.AdminCapID = "0x00000000000000000000000000000000000000000000000000000000000000c2"
	if mutate != nil {
		mutate(&cfg)
	}
	log := logger.NewTest(io.Discard)

	h := &harness{
		cfg:    cfg,
		ledger: testutil.NewFakeLedger(cfg),
		bus:    changes.NewBus(32, log),
		subs:   &submissions{ok: map[string]int{}, failed: map[string]int{}},
	}
	h.wallet = testutil.NewFakeWallet(h.ledger, buyer)
	h.query = query.New(cfg, h.ledger, nil, query.Options{Store: cache.NewMemoryStore(), Logger: log})
	t.Cleanup(h.query.Attach(h.bus))
	h.actions = actions.New(txbuilder.New(cfg, log), h.wallet, h.bus, actions.Options{Recorder: h.subs, Logger: log})
	return h
}

func (h *harness) addEvent(capacity, sold string) string {
	return h.ledger.AddEvent(organizer, map[string]interface{}{
		"event_name":   "Launch",
		"metadata_uri": `{"title":"Launch","location":"Lisbon"}`,
		"capacity":     capacity,
		"sold":         sold,
		"price_amount": "1000000000",
		"price_is_sui": true,
	})
}

func TestPurchaseTicket_LastSeat(t *testing.T) {
	for _, mode := range []config.PurchaseMode{config.PurchaseSplitGas, config.PurchaseAmountArg} {
		t.Run(string(mode), func(t *testing.T) {
			h := newHarness(t, func(c *config.Config) { c.PurchaseMode = mode })
			ctx := context.Background()
			id := h.addEvent("5000", "4999")

			event, err := h.query.Event(ctx, id)
			require.NoError(t, err)
			require.NotNil(t, event)
			assert.Equal(t, uint64(4999), event.Sold)
			tickets, err := h.query.WalletTickets(ctx, buyer)
			require.NoError(t, err)
			assert.Empty(t, tickets)

			res, err := h.actions.PurchaseTicket(ctx, event, buyer)
			require.NoError(t, err)
			assert.Equal(t, txbuilder.ActionPurchaseTicket, res.Action)
			assert.NotEmpty(t, res.Fingerprint)
			require.Len(t, res.CreatedIDs, 1)

			event, err = h.query.Event(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, uint64(5000), event.Sold)
			assert.True(t, event.SoldOut())
			assert.Equal(t, "1000000000", event.Balance.String())

			tickets, err = h.query.WalletTickets(ctx, buyer)
			require.NoError(t, err)
			require.Len(t, tickets, 1)
			assert.Equal(t, res.CreatedIDs[0], tickets[0].ObjectID)
			assert.Equal(t, id, tickets[0].EventID)
			assert.Equal(t, `{"title":"Launch","location":"Lisbon"}`, tickets[0].MetadataURI)
			require.NotNil(t, tickets[0].Metadata)
			assert.Equal(t, "Lisbon", tickets[0].Metadata.Location)

			last := h.bus.Recent(1)
			require.Len(t, last, 1)
			assert.Equal(t, string(txbuilder.ActionPurchaseTicket), last[0].Action)
			assert.True(t, last[0].Affects(suiven.KindEvent))
			assert.True(t, last[0].Affects(suiven.KindTicket))
			assert.Equal(t, []string{buyer}, last[0].Owners)
		})
	}
}

func TestPurchaseTicket_SoldOutFails(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	id := h.addEvent("10", "10")
	event, err := h.query.Event(ctx, id)
	require.NoError(t, err)

	_, err = h.actions.PurchaseTicket(ctx, event, buyer)
	require.Error(t, err)
	assert.True(t, svcerrors.IsSubmissionFailed(err))
	assert.Equal(t, "ESoldOut", svcerrors.GetServiceError(err).Message)
	assert.Zero(t, h.bus.Count())
	assert.Equal(t, 1, h.subs.failed[string(txbuilder.ActionPurchaseTicket)])

	obj, ok := h.ledger.Object(id)
	require.True(t, ok)
	assert.Equal(t, "10", obj.Fields["sold"])
}

func TestPurchaseTicket_NonSharedEventSkipsWallet(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.actions.PurchaseTicket(context.Background(), &suiven.Event{ObjectID: "0xe1"}, buyer)
	require.Error(t, err)
	assert.True(t, svcerrors.IsInvalidInput(err))
	assert.Empty(t, h.wallet.Requests())
	assert.Zero(t, h.ledger.TotalCalls())
}

func TestCreateEvent_AppearsInListings(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	all, err := h.query.AllEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	in := suiven.DefaultEventForm(time.UnixMilli(1_700_000_000_000))
	in.EventName = "Suiven Showcase"
	in.Capacity = 100
	res, err := h.actions.CreateEvent(ctx, in)
	require.NoError(t, err)
	require.Len(t, res.CreatedIDs, 1)

	all, err = h.query.AllEvents(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	e := all[0]
	assert.Equal(t, res.CreatedIDs[0], e.ObjectID)
	assert.Equal(t, "Suiven Showcase", e.EventName)
	assert.Equal(t, buyer, e.Organizer)
	assert.Equal(t, suiven.SampleMetadata.Title, e.Metadata.Title)
	assert.Equal(t, int64(1_700_000_000_000), e.StartTs)
	assert.Equal(t, uint64(100), e.Capacity)
	assert.Equal(t, "1000000000", e.PriceAmount.String())
	assert.Equal(t, uint16(suiven.DefaultRoyaltyBps), e.RoyaltyBps)
	assert.True(t, e.Shared())

	mine, err := h.query.EventsByOrganizer(ctx, buyer)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestCreateEvent_MissingCapMakesNoCalls(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.OrganizerCapID = "" })

	_, err := h.actions.CreateEvent(context.Background(), suiven.DefaultEventForm(time.Now()))
	require.Error(t, err)
	assert.True(t, svcerrors.IsConfigMissing(err))
	assert.Zero(t, h.ledger.TotalCalls())
	assert.Empty(t, h.wallet.Requests())
	assert.Zero(t, h.bus.Count())
}

func TestWithdrawFunds_ResetsBalance(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	id := h.ledger.AddEvent(organizer, map[string]interface{}{"balance": "2500000000", "capacity": "10"})
	event, err := h.query.Event(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "2500000000", event.Balance.String())

	_, err = h.actions.WithdrawFunds(ctx, event)
	require.NoError(t, err)

	event, err = h.query.Event(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, event.Balance.Sign())
}

func TestWithdrawFunds_MissingAdminCap(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.AdminCapID = "" })
	_, err := h.actions.WithdrawFunds(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, svcerrors.IsConfigMissing(err))
	assert.Zero(t, h.ledger.TotalCalls())
}

func TestBurnAndMintProof(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	eventID := h.addEvent("10", "1")
	ticketID := h.ledger.AddTicket(buyer, eventID, map[string]interface{}{"event_name": "Launch"})

	ticket, err := h.query.Ticket(ctx, ticketID)
	require.NoError(t, err)
	require.NotNil(t, ticket)
	proofs, err := h.query.WalletProofs(ctx, buyer)
	require.NoError(t, err)
	assert.Empty(t, proofs)

	res, err := h.actions.BurnAndMintProof(ctx, ticketID, "ipfs://proof", buyer)
	require.NoError(t, err)
	require.Len(t, res.CreatedIDs, 1)

	ticket, err = h.query.Ticket(ctx, ticketID)
	require.NoError(t, err)
	assert.Nil(t, ticket)

	proofs, err = h.query.WalletProofs(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, proofs, 1)
	assert.Equal(t, res.CreatedIDs[0], proofs[0].ObjectID)
	assert.Equal(t, eventID, proofs[0].EventID)
	assert.Equal(t, "Launch", proofs[0].EventName)
	assert.Equal(t, buyer, proofs[0].Holder)
	assert.Equal(t, "ipfs://proof", proofs[0].MetadataURI)

	last := h.bus.Recent(1)
	require.Len(t, last, 1)
	assert.Contains(t, last[0].ObjectIDs, ticketID)
	assert.Contains(t, last[0].ObjectIDs, res.CreatedIDs[0])
}

func TestBurnAndMintProof_NotOwner(t *testing.T) {
	h := newHarness(t, nil)
	ticketID := h.ledger.AddTicket(organizer, "0xe1", nil)

	_, err := h.actions.BurnAndMintProof(context.Background(), ticketID, "ipfs://proof", buyer)
	require.Error(t, err)
	assert.True(t, svcerrors.IsSubmissionFailed(err))
	_, ok := h.ledger.Object(ticketID)
	assert.True(t, ok)
}

func TestMarkTicketUsed(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	ticketID := h.ledger.AddTicket(buyer, "0xe1", nil)

	res, err := h.actions.MarkTicketUsed(ctx, ticketID, buyer)
	require.NoError(t, err)
	assert.Equal(t, []string{txbuilder.WarnMissingVerifierCap}, res.Warnings)

	ticket, err := h.query.Ticket(ctx, ticketID)
	require.NoError(t, err)
	require.NotNil(t, ticket)
	assert.True(t, ticket.Used)

	_, err = h.actions.MarkTicketUsed(ctx, ticketID, buyer)
	require.Error(t, err)
	assert.Equal(t, "ETicketAlreadyUsed", err.Error())
}

func TestSubmit_WalletRejection(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	id := h.addEvent("10", "0")
	event, err := h.query.Event(ctx, id)
	require.NoError(t, err)
	h.wallet.Err = errors.New("user rejected the request")

	_, err = h.actions.PurchaseTicket(ctx, event, buyer)
	require.Error(t, err)
	assert.True(t, svcerrors.IsSubmissionFailed(err))
	assert.Equal(t, "user rejected the request", err.Error())
	assert.Zero(t, h.bus.Count())
	assert.Zero(t, h.ledger.Calls(testutil.MethodExecute))
	assert.Zero(t, h.subs.ok[string(txbuilder.ActionPurchaseTicket)])
}

func TestSubmit_LedgerError(t *testing.T) {
	h := newHarness(t, nil)
	ticketID := h.ledger.AddTicket(buyer, "0xe1", nil)
	h.ledger.FailNext(testutil.MethodExecute, errors.New("node unavailable"))

	_, err := h.actions.MarkTicketUsed(context.Background(), ticketID, buyer)
	require.Error(t, err)
	assert.True(t, svcerrors.IsSubmissionFailed(err))
	assert.Equal(t, "node unavailable", err.Error())
}

func TestWithWallet_SettlesExternallyExecutedPurchase(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	id := h.addEvent("10", "3")
	event, err := h.query.Event(ctx, id)
	require.NoError(t, err)

	req, err := txbuilder.New(h.cfg, logger.NewTest(io.Discard)).PurchaseTicket(event)
	require.NoError(t, err)
	executed, err := h.wallet.SignAndExecute(ctx, req)
	require.NoError(t, err)
	require.True(t, executed.Succeeded())

	settle := h.actions.WithWallet(&actions.ExecutedWallet{Waiter: h.ledger, Digest: executed.Digest})
	res, err := settle.PurchaseTicket(ctx, event, buyer)
	require.NoError(t, err)
	assert.Equal(t, executed.Digest, res.Digest)
	require.Len(t, res.CreatedIDs, 1)
	assert.Equal(t, 1, h.ledger.Calls(testutil.MethodExecute))

	event, err = h.query.Event(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), event.Sold)
	tickets, err := h.query.WalletTickets(ctx, buyer)
	require.NoError(t, err)
	assert.Len(t, tickets, 1)
}

func TestWithWallet_FailedExecutionPublishesNothing(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	id := h.addEvent("10", "10")
	event, err := h.query.Event(ctx, id)
	require.NoError(t, err)

	req, err := txbuilder.New(h.cfg, logger.NewTest(io.Discard)).PurchaseTicket(event)
	require.NoError(t, err)
	executed, err := h.wallet.SignAndExecute(ctx, req)
	require.NoError(t, err)

	settle := h.actions.WithWallet(&actions.ExecutedWallet{Waiter: h.ledger, Digest: executed.Digest})
	_, err = settle.PurchaseTicket(ctx, event, buyer)
	require.Error(t, err)
	assert.Equal(t, "ESoldOut", err.Error())
	assert.Zero(t, h.bus.Count())
}

func TestSubmit_WithoutWallet(t *testing.T) {
	h := newHarness(t, nil)
	svc := actions.New(txbuilder.New(h.cfg, logger.NewTest(io.Discard)), nil, h.bus, actions.Options{})
	ticketID := h.ledger.AddTicket(buyer, "0xe1", nil)

	_, err := svc.MarkTicketUsed(context.Background(), ticketID, buyer)
	require.Error(t, err)
	assert.Zero(t, h.ledger.TotalCalls())
}
