package sui

import (
	"context"
	"strings"
	"time"
)

// DefaultTxWaitTimeout is the default timeout for waiting for a transaction.
const DefaultTxWaitTimeout = 2 * time.Minute

// DefaultPollInterval is the default interval for polling transaction status.
const DefaultPollInterval = 2 * time.Second

// ExecuteTransactionBlock submits a signed transaction.
func (c *Client) ExecuteTransactionBlock(ctx context.Context, tx SignedTransaction, opts TransactionResponseOptions) (*TransactionResponse, error) {
	params := []interface{}{tx.TxBytes, tx.Signatures, opts, ExecuteRequestType}
	var resp TransactionResponse
	if err := c.callInto(ctx, "sui_executeTransactionBlock", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetTransactionBlock fetches an executed transaction by digest.
func (c *Client) GetTransactionBlock(ctx context.Context, digest string, opts TransactionResponseOptions) (*TransactionResponse, error) {
	var resp TransactionResponse
	if err := c.callInto(ctx, "sui_getTransactionBlock", []interface{}{digest, opts}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// WaitForTransaction polls until the transaction is known to the node or ctx is done.
// A not-yet-indexed transaction is treated as transient.
func (c *Client) WaitForTransaction(ctx context.Context, digest string, pollInterval time.Duration) (*TransactionResponse, error) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		resp, err := c.GetTransactionBlock(ctx, digest, DefaultResponseOptions)
		if err == nil {
			return resp, nil
		}
		if !isNotFoundError(err) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "could not find") || strings.Contains(msg, "not found")
}
