// Package actions submits Suiven write intents through a wallet and
// announces the entities they changed.
package actions

import (
	"context"
	"errors"
	"time"

	"github.com/suiven-network/suiven/internal/changes"
	svcerrors "github.com/suiven-network/suiven/internal/errors"
	"github.com/suiven-network/suiven/internal/sui"
	"github.com/suiven-network/suiven/internal/suiven"
	"github.com/suiven-network/suiven/internal/txbuilder"
	"github.com/suiven-network/suiven/pkg/logger"
)

// Recorder receives submission telemetry.
type Recorder interface {
	RecordSubmission(action string, duration time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordSubmission(string, time.Duration, error) {}

// Result is the outcome of a successful submission.
type Result struct {
	*sui.TransactionResponse
	Action      txbuilder.Action `json:"action"`
	Fingerprint string           `json:"fingerprint"`
	Warnings    []string         `json:"warnings,omitempty"`
	CreatedIDs  []string         `json:"createdIds,omitempty"`
}

// Service builds, submits and announces write intents.
type Service struct {
	builder   *txbuilder.Builder
	wallet    Wallet
	publisher changes.Publisher
	recorder  Recorder
	log       *logger.Logger
}

// Options configures a Service.
type Options struct {
	Recorder Recorder
	Logger   *logger.Logger
}

// New creates a Service. publisher may be nil when nobody caches reads.
// wallet may be nil when every submission goes through WithWallet.
func New(builder *txbuilder.Builder, wallet Wallet, publisher changes.Publisher, opts Options) *Service {
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewDefault("actions")
	}
	return &Service{
		builder:   builder,
		wallet:    wallet,
		publisher: publisher,
		recorder:  opts.Recorder,
		log:       opts.Logger,
	}
}

// WithWallet returns a copy of s that submits through w.
func (s *Service) WithWallet(w Wallet) *Service {
	cp := *s
	cp.wallet = w
	return &cp
}

// CreateEvent creates a shared Event. The Event's id is in CreatedIDs.
func (s *Service) CreateEvent(ctx context.Context, in suiven.EventInput) (*Result, error) {
	req, err := s.builder.CreateEvent(in)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, req, func(res *Result) changes.Change {
		res.CreatedIDs = res.CreatedObjectIDs(s.builder.Config().EventType())
		return changes.Change{
			Kinds:     []suiven.Kind{suiven.KindEvent},
			ObjectIDs: res.CreatedIDs,
		}
	})
}

// PurchaseTicket buys one ticket for event. buyer is the connected account;
// when empty every cached ticket list is dropped.
func (s *Service) PurchaseTicket(ctx context.Context, event *suiven.Event, buyer string) (*Result, error) {
	req, err := s.builder.PurchaseTicket(event)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, req, func(res *Result) changes.Change {
		res.CreatedIDs = res.CreatedObjectIDs(s.builder.Config().TicketType())
		return changes.Change{
			Kinds:     []suiven.Kind{suiven.KindEvent, suiven.KindTicket},
			Owners:    owners(buyer),
			ObjectIDs: append([]string{event.ObjectID}, res.CreatedIDs...),
		}
	})
}

// WithdrawFunds moves the accumulated balance of event to the admin.
func (s *Service) WithdrawFunds(ctx context.Context, event *suiven.Event) (*Result, error) {
	req, err := s.builder.WithdrawFunds(event)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, req, func(*Result) changes.Change {
		return changes.Change{
			Kinds:     []suiven.Kind{suiven.KindEvent},
			ObjectIDs: []string{event.ObjectID},
		}
	})
}

// BurnAndMintProof consumes a ticket held by owner and mints a
// Proof-of-Attendance token carrying metadataURI.
func (s *Service) BurnAndMintProof(ctx context.Context, ticketID, metadataURI, owner string) (*Result, error) {
	req, err := s.builder.BurnAndMintProof(ticketID, metadataURI)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, req, func(res *Result) changes.Change {
		res.CreatedIDs = res.CreatedObjectIDs(s.builder.Config().ProofType())
		ids := append([]string{ticketID}, res.DeletedObjectIDs()...)
		return changes.Change{
			Kinds:     []suiven.Kind{suiven.KindTicket, suiven.KindProof},
			Owners:    owners(owner),
			ObjectIDs: dedupe(append(ids, res.CreatedIDs...)),
		}
	})
}

// MarkTicketUsed flags a ticket held by owner as used.
func (s *Service) MarkTicketUsed(ctx context.Context, ticketID, owner string) (*Result, error) {
	req, err := s.builder.MarkTicketUsed(ticketID)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, req, func(*Result) changes.Change {
		return changes.Change{
			Kinds:     []suiven.Kind{suiven.KindTicket},
			Owners:    owners(owner),
			ObjectIDs: []string{ticketID},
		}
	})
}

// submit hands req to the wallet. A rejected or failed transaction is
// returned as SUBMISSION_FAILED and announces nothing.
func (s *Service) submit(ctx context.Context, req *txbuilder.Request, describe func(*Result) changes.Change) (*Result, error) {
	fingerprint, err := txbuilder.Fingerprint(req)
	if err != nil {
		return nil, svcerrors.Internal("fingerprint request", err)
	}
	log := s.log.WithContext(ctx).WithFields(map[string]interface{}{
		"action":      req.Action,
		"fingerprint": fingerprint,
	})

	if s.wallet == nil {
		return nil, svcerrors.Internal("no wallet configured", nil)
	}
	start := time.Now()
	resp, err := s.wallet.SignAndExecute(ctx, req)
	if err == nil && !resp.Succeeded() {
		err = errors.New(resp.FailureReason())
	}
	if err != nil {
		s.recorder.RecordSubmission(string(req.Action), time.Since(start), err)
		log.WithError(err).Warn("transaction submission failed")
		return nil, svcerrors.SubmissionFailed(err)
	}
	s.recorder.RecordSubmission(string(req.Action), time.Since(start), nil)

	res := &Result{
		TransactionResponse: resp,
		Action:              req.Action,
		Fingerprint:         fingerprint,
		Warnings:            req.Warnings,
	}
	change := describe(res)
	change.Action = string(req.Action)
	change.Digest = resp.Digest
	if s.publisher != nil {
		s.publisher.Publish(ctx, change)
	}
	log.WithField("digest", resp.Digest).Info("transaction executed")
	return res, nil
}

func owners(address string) []string {
	if address == "" {
		return nil
	}
	return []string{address}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
