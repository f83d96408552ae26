package sui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	svcerrors "github.com/suiven-network/suiven/internal/errors"
	"github.com/suiven-network/suiven/pkg/logger"
)

// Observer receives one callback per RPC round trip.
type Observer interface {
	ObserveRPC(method, status string, elapsed time.Duration)
}

// Client provides Sui JSON-RPC client functionality.
type Client struct {
	rpcURL     string
	httpClient *http.Client
	limiter    *rate.Limiter
	observer   Observer
	log        *logger.Logger
	nextID     atomic.Uint64
}

// Config holds client configuration.
type Config struct {
	RPCURL     string
	Timeout    time.Duration
	RateLimit  int // requests per second; 0 disables limiting
	Burst      int
	HTTPClient *http.Client
	Observer   Observer
	Logger     *logger.Logger
}

// NewClient creates a new Sui client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = cfg.RateLimit
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewDefault("sui-client")
	}

	return &Client{
		rpcURL:     cfg.RPCURL,
		httpClient: httpClient,
		limiter:    limiter,
		observer:   cfg.Observer,
		log:        log,
	}, nil
}

// =============================================================================
// Core RPC
// =============================================================================

// Call makes an RPC call to the Sui full node and returns the raw result.
func (c *Client) Call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, svcerrors.RateLimitExceeded(int(c.limiter.Limit()), "1s")
		}
	}

	if params == nil {
		params = []interface{}{}
	}
	req := RPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	}

	started := time.Now()
	result, err := c.do(ctx, req)
	c.observe(method, err, time.Since(started))
	if err != nil {
		c.log.WithContext(ctx).WithError(err).WithField("method", method).Debug("sui rpc failed")
		return nil, err
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, req RPCRequest) (json.RawMessage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, svcerrors.RPC(req.Method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, svcerrors.RPC(req.Method, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode >= http.StatusBadRequest && len(respBody) == 0 {
		return nil, svcerrors.RPC(req.Method, fmt.Errorf("http status %d", resp.StatusCode))
	}

	var rpcResp RPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, svcerrors.RPC(req.Method, fmt.Errorf("unmarshal response: %w", err))
	}
	if rpcResp.Error != nil {
		return nil, svcerrors.RPC(req.Method, rpcResp.Error)
	}
	return rpcResp.Result, nil
}

func (c *Client) observe(method string, err error, elapsed time.Duration) {
	if c.observer == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			status = strconv.Itoa(rpcErr.Code)
		}
	}
	c.observer.ObserveRPC(method, status, elapsed)
}

func (c *Client) callInto(ctx context.Context, method string, params []interface{}, out interface{}) error {
	result, err := c.Call(ctx, method, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(result, out); err != nil {
		return svcerrors.RPC(method, fmt.Errorf("decode result: %w", err))
	}
	return nil
}
