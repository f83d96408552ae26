package actions

import (
	"context"
	"errors"
	"time"

	"github.com/suiven-network/suiven/internal/sui"
	"github.com/suiven-network/suiven/internal/txbuilder"
)

// Wallet signs and submits a transaction request on behalf of the
// connected account.
type Wallet interface {
	SignAndExecute(ctx context.Context, req *txbuilder.Request) (*sui.TransactionResponse, error)
}

// Signer turns a request into signed transaction bytes.
type Signer interface {
	Sign(ctx context.Context, req *txbuilder.Request) (sui.SignedTransaction, error)
}

// Executor submits signed transactions to the ledger.
type Executor interface {
	ExecuteTransactionBlock(ctx context.Context, tx sui.SignedTransaction, opts sui.TransactionResponseOptions) (*sui.TransactionResponse, error)
	WaitForTransaction(ctx context.Context, digest string, pollInterval time.Duration) (*sui.TransactionResponse, error)
}

// SignerWallet is a Wallet built from a Signer and a ledger Executor.
type SignerWallet struct {
	Signer   Signer
	Executor Executor

	// WaitTimeout, when positive, waits for the transaction to be indexed
	// after submission.
	WaitTimeout  time.Duration
	PollInterval time.Duration
}

// SignAndExecute implements Wallet.
func (w *SignerWallet) SignAndExecute(ctx context.Context, req *txbuilder.Request) (*sui.TransactionResponse, error) {
	signed, err := w.Signer.Sign(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := w.Executor.ExecuteTransactionBlock(ctx, signed, sui.DefaultResponseOptions)
	if err != nil {
		return nil, err
	}
	if w.WaitTimeout <= 0 || resp.Digest == "" || !resp.Succeeded() {
		return resp, nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, w.WaitTimeout)
	defer cancel()
	indexed, err := w.Executor.WaitForTransaction(waitCtx, resp.Digest, w.PollInterval)
	if err != nil {
		return nil, err
	}
	return indexed, nil
}

// Waiter looks up transactions by digest.
type Waiter interface {
	WaitForTransaction(ctx context.Context, digest string, pollInterval time.Duration) (*sui.TransactionResponse, error)
}

// ExecutedWallet stands in for a wallet that has already signed and executed
// the transaction outside this process. SignAndExecute submits nothing; it
// waits for Digest and returns its effects.
type ExecutedWallet struct {
	Waiter Waiter
	Digest string

	// Timeout defaults to sui.DefaultTxWaitTimeout.
	Timeout      time.Duration
	PollInterval time.Duration
}

// SignAndExecute implements Wallet.
func (w *ExecutedWallet) SignAndExecute(ctx context.Context, _ *txbuilder.Request) (*sui.TransactionResponse, error) {
	if w.Digest == "" {
		return nil, errors.New("transaction digest required")
	}
	timeout := w.Timeout
	if timeout <= 0 {
		timeout = sui.DefaultTxWaitTimeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return w.Waiter.WaitForTransaction(waitCtx, w.Digest, w.PollInterval)
}
