// Package sui is a JSON-RPC client for the Sui ledger, limited to the verbs the
// Suiven client layer depends on.
package sui

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// RPCRequest is a JSON-RPC 2.0 request.
type RPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      uint64        `json:"id"`
}

// RPCResponse is a JSON-RPC 2.0 response.
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC error object.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Content data types.
const (
	DataTypeMoveObject = "moveObject"
	DataTypePackage    = "package"
)

// ObjectDataOptions selects the parts of an object the node returns.
type ObjectDataOptions struct {
	ShowType    bool `json:"showType,omitempty"`
	ShowOwner   bool `json:"showOwner,omitempty"`
	ShowContent bool `json:"showContent,omitempty"`
}

// ObjectResponse is the response of sui_getObject and each page entry of owned objects.
type ObjectResponse struct {
	Data  *ObjectData  `json:"data,omitempty"`
	Error *ObjectError `json:"error,omitempty"`
}

// ObjectError is returned in place of data for missing or deleted objects.
type ObjectError struct {
	Code     string `json:"code"`
	ObjectID string `json:"object_id,omitempty"`
}

// ObjectData is a single ledger object.
type ObjectData struct {
	ObjectID string          `json:"objectId"`
	Version  string          `json:"version"`
	Digest   string          `json:"digest"`
	Type     string          `json:"type,omitempty"`
	Owner    json.RawMessage `json:"owner,omitempty"`
	Content  *ObjectContent  `json:"content,omitempty"`
}

// ObjectContent is the parsed runtime content of an object.
type ObjectContent struct {
	DataType          string          `json:"dataType"`
	Type              string          `json:"type,omitempty"`
	HasPublicTransfer bool            `json:"hasPublicTransfer,omitempty"`
	Fields            json.RawMessage `json:"fields,omitempty"`
}

// InitialSharedVersion returns the shared-object version token from the owner
// envelope, or "" when the object is not shared.
func (d *ObjectData) InitialSharedVersion() string {
	if d == nil || len(d.Owner) == 0 {
		return ""
	}
	v := gjson.GetBytes(d.Owner, "Shared.initial_shared_version")
	if !v.Exists() || v.Type == gjson.Null {
		return ""
	}
	return v.String()
}

// ObjectFilter narrows suix_getOwnedObjects.
type ObjectFilter struct {
	StructType string `json:"StructType,omitempty"`
}

// OwnedObjectsQuery is the query argument of suix_getOwnedObjects.
type OwnedObjectsQuery struct {
	Filter  *ObjectFilter      `json:"filter,omitempty"`
	Options *ObjectDataOptions `json:"options,omitempty"`
}

// ObjectsPage is a page of owned objects.
type ObjectsPage struct {
	Data        []ObjectResponse `json:"data"`
	NextCursor  *string          `json:"nextCursor,omitempty"`
	HasNextPage bool             `json:"hasNextPage"`
}

// EventFilter narrows suix_queryEvents.
type EventFilter struct {
	MoveEventType string `json:"MoveEventType,omitempty"`
}

// EventID identifies an emitted event.
type EventID struct {
	TxDigest string `json:"txDigest"`
	EventSeq string `json:"eventSeq"`
}

// Event is an emitted ledger event.
type Event struct {
	ID                EventID         `json:"id"`
	PackageID         string          `json:"packageId"`
	TransactionModule string          `json:"transactionModule"`
	Sender            string          `json:"sender"`
	Type              string          `json:"type"`
	ParsedJSON        json.RawMessage `json:"parsedJson,omitempty"`
	TimestampMs       string          `json:"timestampMs,omitempty"`
}

// Field returns a field of the event's parsed JSON payload.
func (e Event) Field(path string) gjson.Result {
	return gjson.GetBytes(e.ParsedJSON, path)
}

// EventsPage is a page of emitted events.
type EventsPage struct {
	Data        []Event  `json:"data"`
	NextCursor  *EventID `json:"nextCursor,omitempty"`
	HasNextPage bool     `json:"hasNextPage"`
}

// EventQuery bundles the parameters of suix_queryEvents.
type EventQuery struct {
	Filter     EventFilter
	Cursor     *EventID
	Limit      int
	Descending bool
}
