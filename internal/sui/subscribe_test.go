package sui_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/suiven-network/suiven/internal/sui"
)

func TestSubscribeEvents_DeliversNotifications(t *testing.T) {
	upgrader := websocket.Upgrader{}
	gotFilter := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req sui.RPCRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		filter, _ := req.Params[0].(map[string]interface{})
		gotFilter <- req.Method + " " + filter["MoveEventType"].(string)

		conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","id":1,"result":42}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","method":"suix_subscribeEvent","params":{"subscription":42,"result":{"type":"0xp::suiven_events::EventCreated","parsedJson":{"event_id":"0xe9"}}}}`))
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	sub := sui.NewSubscriber(wsURL, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	received := make(chan sui.Event, 1)
	go func() {
		_ = sub.SubscribeEvents(ctx, sui.EventFilter{MoveEventType: "0xp::suiven_events::EventCreated"}, func(e sui.Event) {
			received <- e
			cancel()
		})
	}()

	select {
	case f := <-gotFilter:
		if f != "suix_subscribeEvent 0xp::suiven_events::EventCreated" {
			t.Errorf("unexpected subscribe request %q", f)
		}
	case <-time.After(time.Second):
		t.Fatal("subscribe request not received")
	}

	select {
	case e := <-received:
		if e.Field("event_id").String() != "0xe9" {
			t.Errorf("unexpected event %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestSubscribeEvents_DialFailure(t *testing.T) {
	sub := sui.NewSubscriber("ws://127.0.0.1:1", nil)
	err := sub.SubscribeEvents(context.Background(), sui.EventFilter{}, func(sui.Event) {})
	if err == nil {
		t.Fatal("expected dial error")
	}
}

func TestSubscribeEvents_CancelSendsCloseAfterSubscribe(t *testing.T) {
	upgrader := websocket.Upgrader{}
	gotMethod := make(chan string, 1)
	gotClose := make(chan int, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req sui.RPCRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		gotMethod <- req.Method
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if ce, ok := err.(*websocket.CloseError); ok {
					gotClose <- ce.Code
				}
				return
			}
		}
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	sub := sui.NewSubscriber(wsURL, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- sub.SubscribeEvents(ctx, sui.EventFilter{MoveEventType: "0xp::m::E"}, func(sui.Event) {})
	}()

	select {
	case m := <-gotMethod:
		if m != "suix_subscribeEvent" {
			t.Errorf("unexpected first message %q", m)
		}
	case <-time.After(time.Second):
		t.Fatal("subscribe request not received")
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil after cancel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not stop")
	}
	select {
	case code := <-gotClose:
		if code != websocket.CloseNormalClosure {
			t.Errorf("unexpected close code %d", code)
		}
	case <-time.After(time.Second):
		t.Fatal("close frame not received")
	}
}
