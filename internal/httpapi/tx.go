package httpapi

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/suiven-network/suiven/internal/actions"
	svcerrors "github.com/suiven-network/suiven/internal/errors"
	"github.com/suiven-network/suiven/internal/sui"
	"github.com/suiven-network/suiven/internal/suiven"
	"github.com/suiven-network/suiven/internal/txbuilder"
)

// txBody carries the inputs of every write intent. Each action reads the
// fields it needs.
type txBody struct {
	Event       *suiven.EventInput `json:"event,omitempty"`
	EventID     string             `json:"eventId,omitempty"`
	TicketID    string             `json:"ticketId,omitempty"`
	MetadataURI string             `json:"metadataUri,omitempty"`
	// Owner is the connected account whose cached lists a settled write drops.
	Owner string `json:"owner,omitempty"`
	// Digest names the executed transaction being settled.
	Digest string `json:"digest,omitempty"`
}

type txResponse struct {
	Action      txbuilder.Action   `json:"action"`
	Transaction *txbuilder.Request `json:"transaction"`
	Warnings    []string           `json:"warnings,omitempty"`
	Fingerprint string             `json:"fingerprint"`
}

// buildTx returns the unsigned request for an intent. Signing stays with the
// caller's wallet.
func (h *handler) buildTx(w http.ResponseWriter, r *http.Request) {
	action, body, err := h.decodeTx(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req *txbuilder.Request
	switch action {
	case txbuilder.ActionCreateEvent:
		if body.Event == nil {
			err = svcerrors.InvalidInput("event", "required")
			break
		}
		req, err = h.builder.CreateEvent(*body.Event)
	case txbuilder.ActionPurchaseTicket, txbuilder.ActionWithdrawFunds:
		var event *suiven.Event
		if event, err = h.txEvent(r.Context(), body.EventID); err != nil {
			break
		}
		if action == txbuilder.ActionPurchaseTicket {
			req, err = h.builder.PurchaseTicket(event)
		} else {
			req, err = h.builder.WithdrawFunds(event)
		}
	case txbuilder.ActionBurnAndMint:
		req, err = h.builder.BurnAndMintProof(body.TicketID, body.MetadataURI)
	case txbuilder.ActionMarkTicketUsed:
		req, err = h.builder.MarkTicketUsed(body.TicketID)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	fingerprint, err := txbuilder.Fingerprint(req)
	if err != nil {
		h.writeError(w, r, svcerrors.Internal("fingerprint request", err))
		return
	}
	writeJSON(w, http.StatusOK, txResponse{
		Action:      req.Action,
		Transaction: req,
		Warnings:    req.Warnings,
		Fingerprint: fingerprint,
	})
}

// settleTx accepts the digest of a transaction the caller's wallet executed
// and drops the cached reads it changed.
func (h *handler) settleTx(w http.ResponseWriter, r *http.Request) {
	action, body, err := h.decodeTx(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if body.Digest == "" {
		h.writeError(w, r, svcerrors.InvalidInput("digest", "required"))
		return
	}

	ctx := r.Context()
	svc := h.actions.WithWallet(&actions.ExecutedWallet{Waiter: h.waiter, Digest: body.Digest})
	var res *actions.Result
	switch action {
	case txbuilder.ActionCreateEvent:
		if body.Event == nil {
			err = svcerrors.InvalidInput("event", "required")
			break
		}
		res, err = svc.CreateEvent(ctx, *body.Event)
	case txbuilder.ActionPurchaseTicket, txbuilder.ActionWithdrawFunds:
		var event *suiven.Event
		if event, err = h.txEvent(ctx, body.EventID); err != nil {
			break
		}
		if action == txbuilder.ActionPurchaseTicket {
			res, err = svc.PurchaseTicket(ctx, event, body.Owner)
		} else {
			res, err = svc.WithdrawFunds(ctx, event)
		}
	case txbuilder.ActionBurnAndMint:
		res, err = svc.BurnAndMintProof(ctx, body.TicketID, body.MetadataURI, body.Owner)
	case txbuilder.ActionMarkTicketUsed:
		res, err = svc.MarkTicketUsed(ctx, body.TicketID, body.Owner)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) decodeTx(r *http.Request) (txbuilder.Action, txBody, error) {
	action := txbuilder.Action(mux.Vars(r)["action"])
	var body txBody
	switch action {
	case txbuilder.ActionCreateEvent, txbuilder.ActionPurchaseTicket, txbuilder.ActionWithdrawFunds,
		txbuilder.ActionBurnAndMint, txbuilder.ActionMarkTicketUsed:
	default:
		return action, body, svcerrors.NotFound("transaction action", string(action))
	}
	if err := decodeJSON(r.Body, &body); err != nil {
		return action, body, svcerrors.InvalidInput("body", err.Error())
	}
	if body.Owner != "" && !sui.IsValidAddress(body.Owner) {
		return action, body, svcerrors.InvalidInput("owner", "must be a 0x-prefixed address")
	}
	return action, body, nil
}

// txEvent reads the current Event so the request references its shared version.
func (h *handler) txEvent(ctx context.Context, id string) (*suiven.Event, error) {
	if !sui.IsValidAddress(id) {
		return nil, svcerrors.InvalidInput("eventId", "must be a 0x-prefixed address")
	}
	event, err := h.reader.Event(ctx, id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, svcerrors.NotFound("event", id)
	}
	return event, nil
}
