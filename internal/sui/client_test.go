package sui_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	svcerrors "github.com/suiven-network/suiven/internal/errors"
	"github.com/suiven-network/suiven/internal/sui"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *sui.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := sui.NewClient(sui.Config{RPCURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func makeRPCResponse(result interface{}) []byte {
	resultJSON, _ := json.Marshal(result)
	resp := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"result":  json.RawMessage(resultJSON),
	}
	data, _ := json.Marshal(resp)
	return data
}

func makeRPCError(code int, message string) []byte {
	resp := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	}
	data, _ := json.Marshal(resp)
	return data
}

func decodeRequest(t *testing.T, r *http.Request) sui.RPCRequest {
	t.Helper()
	body, _ := io.ReadAll(r.Body)
	var req sui.RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	return req
}

func TestNewClient_RequiresURL(t *testing.T) {
	if _, err := sui.NewClient(sui.Config{}); err == nil {
		t.Fatal("expected error for empty RPC URL")
	}
}

func TestGetObject_Success(t *testing.T) {
	var got sui.RPCRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = decodeRequest(t, r)
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"data":{
			"objectId":"0xe1","version":"7","digest":"D",
			"owner":{"Shared":{"initial_shared_version":3}},
			"content":{"dataType":"moveObject","type":"0xp::suiven_events::Event","fields":{"sold":"2"}}
		}}}`))
	})

	resp, err := client.GetObject(context.Background(), "0xe1", sui.DefaultObjectOptions)
	if err != nil {
		t.Fatalf("GetObject() error = %v", err)
	}
	if got.Method != "sui_getObject" || len(got.Params) != 2 || got.Params[0] != "0xe1" {
		t.Errorf("unexpected request %+v", got)
	}
	if resp.Data == nil || resp.Data.ObjectID != "0xe1" {
		t.Fatalf("unexpected data %+v", resp.Data)
	}
	if v := resp.Data.InitialSharedVersion(); v != "3" {
		t.Errorf("InitialSharedVersion() = %q, want 3", v)
	}
	if resp.Data.Content.DataType != sui.DataTypeMoveObject {
		t.Errorf("dataType = %q", resp.Data.Content.DataType)
	}
}

func TestGetObject_NotExists(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"error":{"code":"notExists","object_id":"0xdead"}}}`))
	})

	resp, err := client.GetObject(context.Background(), "0xdead", sui.DefaultObjectOptions)
	if err != nil {
		t.Fatalf("GetObject() error = %v", err)
	}
	if resp.Data != nil || resp.Error == nil || resp.Error.Code != "notExists" {
		t.Errorf("expected notExists error payload, got %+v", resp)
	}
}

func TestGetOwnedObjects_SendsFilterAndLimit(t *testing.T) {
	var got sui.RPCRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = decodeRequest(t, r)
		w.Write(makeRPCResponse(sui.ObjectsPage{Data: []sui.ObjectResponse{{}}, HasNextPage: false}))
	})

	query := sui.OwnedObjectsQuery{
		Filter:  &sui.ObjectFilter{StructType: "0xp::suiven_tickets::TicketNFT"},
		Options: &sui.ObjectDataOptions{ShowContent: true},
	}
	page, err := client.GetOwnedObjects(context.Background(), "0xowner", query, nil, 50)
	if err != nil {
		t.Fatalf("GetOwnedObjects() error = %v", err)
	}
	if len(page.Data) != 1 {
		t.Errorf("expected 1 entry, got %d", len(page.Data))
	}
	if got.Method != "suix_getOwnedObjects" || len(got.Params) != 4 {
		t.Fatalf("unexpected request %+v", got)
	}
	filter := got.Params[1].(map[string]interface{})["filter"].(map[string]interface{})
	if filter["StructType"] != "0xp::suiven_tickets::TicketNFT" {
		t.Errorf("unexpected filter %v", filter)
	}
	if got.Params[3].(float64) != 50 {
		t.Errorf("unexpected limit %v", got.Params[3])
	}
}

func TestQueryEvents(t *testing.T) {
	var got sui.RPCRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = decodeRequest(t, r)
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"data":[
			{"id":{"txDigest":"T","eventSeq":"0"},"type":"0xp::suiven_events::EventCreated","parsedJson":{"event_id":"0xe1"}}
		],"hasNextPage":false}}`))
	})

	page, err := client.QueryEvents(context.Background(), sui.EventQuery{
		Filter:     sui.EventFilter{MoveEventType: "0xp::suiven_events::EventCreated"},
		Limit:      50,
		Descending: true,
	})
	if err != nil {
		t.Fatalf("QueryEvents() error = %v", err)
	}
	if got.Method != "suix_queryEvents" || got.Params[3] != true {
		t.Errorf("unexpected request %+v", got)
	}
	if len(page.Data) != 1 || page.Data[0].Field("event_id").String() != "0xe1" {
		t.Errorf("unexpected page %+v", page)
	}
}

func TestCall_RPCError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(makeRPCError(-32602, "Invalid params"))
	})

	_, err := client.GetObject(context.Background(), "bad", sui.DefaultObjectOptions)
	if err == nil {
		t.Fatal("expected error")
	}
	se := svcerrors.GetServiceError(err)
	if se == nil || se.Code != svcerrors.CodeRPC {
		t.Fatalf("expected RPC service error, got %v", err)
	}
}

type recordingObserver struct {
	mu       sync.Mutex
	statuses []string
}

func (o *recordingObserver) ObserveRPC(method, status string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, method+":"+status)
}

func TestCall_ReportsToObserver(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Write(makeRPCResponse(map[string]interface{}{}))
			return
		}
		w.Write(makeRPCError(-32000, "boom"))
	}))
	t.Cleanup(server.Close)

	obs := &recordingObserver{}
	client, err := sui.NewClient(sui.Config{RPCURL: server.URL, Observer: obs, RateLimit: 100})
	if err != nil {
		t.Fatal(err)
	}
	_, _ = client.GetObject(context.Background(), "0x1", sui.DefaultObjectOptions)
	_, _ = client.GetObject(context.Background(), "0x1", sui.DefaultObjectOptions)

	if len(obs.statuses) != 2 || obs.statuses[0] != "sui_getObject:ok" || obs.statuses[1] != "sui_getObject:-32000" {
		t.Errorf("unexpected observations %v", obs.statuses)
	}
}

func TestCall_RateLimiterHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(makeRPCResponse(map[string]interface{}{}))
	}))
	t.Cleanup(server.Close)

	client, err := sui.NewClient(sui.Config{RPCURL: server.URL, RateLimit: 1, Burst: 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.GetObject(context.Background(), "0x1", sui.DefaultObjectOptions); err != nil {
		t.Fatalf("first call error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = client.GetObject(ctx, "0x1", sui.DefaultObjectOptions)
	if se := svcerrors.GetServiceError(err); se == nil || se.Code != svcerrors.CodeRateLimited {
		t.Errorf("expected RATE_LIMITED, got %v", err)
	}
}

func TestExecuteTransactionBlock(t *testing.T) {
	var got sui.RPCRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = decodeRequest(t, r)
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"digest":"DIG",
			"effects":{"status":{"status":"success"}},
			"objectChanges":[
				{"type":"created","objectId":"0xt1","objectType":"0xp::suiven_tickets::TicketNFT"},
				{"type":"mutated","objectId":"0xe1","objectType":"0xp::suiven_events::Event"}
			]}}`))
	})

	resp, err := client.ExecuteTransactionBlock(context.Background(),
		sui.SignedTransaction{TxBytes: "AAA=", Signatures: []string{"SIG"}}, sui.DefaultResponseOptions)
	if err != nil {
		t.Fatalf("ExecuteTransactionBlock() error = %v", err)
	}
	if got.Method != "sui_executeTransactionBlock" || got.Params[0] != "AAA=" || got.Params[3] != sui.ExecuteRequestType {
		t.Errorf("unexpected request %+v", got)
	}
	if !resp.Succeeded() {
		t.Error("expected success")
	}
	ids := resp.CreatedObjectIDs("0xp::suiven_tickets::TicketNFT")
	if len(ids) != 1 || ids[0] != "0xt1" {
		t.Errorf("CreatedObjectIDs() = %v", ids)
	}
}

func TestWaitForTransaction_RetriesNotFound(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.Write(makeRPCError(-32602, "Could not find the referenced transaction"))
			return
		}
		w.Write(makeRPCResponse(map[string]interface{}{"digest": "DIG"}))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := client.WaitForTransaction(ctx, "DIG", 5*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitForTransaction() error = %v", err)
	}
	if resp.Digest != "DIG" || calls.Load() != 3 {
		t.Errorf("digest=%q calls=%d", resp.Digest, calls.Load())
	}
}

func TestWaitForTransaction_StopsOnOtherErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(makeRPCError(-32000, "server overloaded"))
	})

	_, err := client.WaitForTransaction(context.Background(), "DIG", time.Millisecond)
	if err == nil {
		t.Fatal("expected error")
	}
}
