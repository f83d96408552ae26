package sui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/suiven-network/suiven/pkg/logger"
)

// EventHandler handles events delivered by a subscription.
type EventHandler func(Event)

// Subscriber streams emitted events over the node's websocket endpoint.
type Subscriber struct {
	url        string
	dialer     websocket.Dialer
	retryDelay time.Duration
	log        *logger.Logger
}

// NewSubscriber creates a subscriber for wsURL.
func NewSubscriber(wsURL string, log *logger.Logger) *Subscriber {
	if log == nil {
		log = logger.NewDefault("sui-subscriber")
	}
	return &Subscriber{
		url:        wsURL,
		dialer:     websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		retryDelay: 5 * time.Second,
		log:        log,
	}
}

// WithRetryDelay sets the delay between reconnect attempts in Run.
func (s *Subscriber) WithRetryDelay(d time.Duration) *Subscriber {
	s.retryDelay = d
	return s
}

type notification struct {
	Method string `json:"method"`
	Params struct {
		Subscription json.RawMessage `json:"subscription"`
		Result       Event           `json:"result"`
	} `json:"params"`
}

// SubscribeEvents subscribes with filter and delivers events to handler until ctx
// is done or the connection drops. It returns nil only when ctx ends.
func (s *Subscriber) SubscribeEvents(ctx context.Context, filter EventFilter, handler EventHandler) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.Close()

	req := RPCRequest{
		JSONRPC: "2.0",
		Method:  "suix_subscribeEvent",
		Params:  []interface{}{filter},
		ID:      1,
	}
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("send subscribe: %w", err)
	}

	// Only WriteControl may run concurrently with other connection methods.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-stop:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("websocket read: %w", err)
		}

		var resp RPCResponse
		if err := json.Unmarshal(message, &resp); err == nil && resp.Error != nil {
			return resp.Error
		}

		var n notification
		if err := json.Unmarshal(message, &n); err != nil {
			s.log.WithError(err).Debug("ignoring undecodable websocket message")
			continue
		}
		if n.Method == "" || n.Params.Result.Type == "" {
			continue
		}
		handler(n.Params.Result)
	}
}

// Run keeps a subscription alive, reconnecting after failures, until ctx is done.
func (s *Subscriber) Run(ctx context.Context, filter EventFilter, handler EventHandler) {
	for {
		err := s.SubscribeEvents(ctx, filter, handler)
		if ctx.Err() != nil {
			return
		}
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			s.log.WithError(err).Error("event subscription rejected")
			return
		}
		s.log.WithError(err).WithField("retry_in", s.retryDelay.String()).Warn("event subscription dropped")

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.retryDelay):
		}
	}
}
