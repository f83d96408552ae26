package testutil

import (
	"context"
	"sync"

	"github.com/suiven-network/suiven/internal/sui"
	"github.com/suiven-network/suiven/internal/txbuilder"
)

// FakeWallet signs nothing and executes requests directly on a FakeLedger as
// Address. When Err is set every submission fails with it.
type FakeWallet struct {
	Ledger  *FakeLedger
	Address string
	Err     error

	mu       sync.Mutex
	requests []*txbuilder.Request
}

// NewFakeWallet creates a wallet for address on ledger.
func NewFakeWallet(ledger *FakeLedger, address string) *FakeWallet {
	return &FakeWallet{Ledger: ledger, Address: address}
}

// SignAndExecute records req and executes it.
func (w *FakeWallet) SignAndExecute(ctx context.Context, req *txbuilder.Request) (*sui.TransactionResponse, error) {
	w.mu.Lock()
	w.requests = append(w.requests, req)
	err := w.Err
	w.mu.Unlock()

	if err != nil {
		return nil, err
	}
	req.Sender = w.Address
	return w.Ledger.Execute(ctx, w.Address, req)
}

// Requests returns the submitted requests in order.
func (w *FakeWallet) Requests() []*txbuilder.Request {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*txbuilder.Request(nil), w.requests...)
}
