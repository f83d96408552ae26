package sui

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// ExecuteRequestType is the finality the node waits for before responding.
const ExecuteRequestType = "WaitForLocalExecution"

// TransactionResponseOptions selects the parts of a transaction response.
type TransactionResponseOptions struct {
	ShowInput          bool `json:"showInput,omitempty"`
	ShowEffects        bool `json:"showEffects,omitempty"`
	ShowEvents         bool `json:"showEvents,omitempty"`
	ShowObjectChanges  bool `json:"showObjectChanges,omitempty"`
	ShowBalanceChanges bool `json:"showBalanceChanges,omitempty"`
}

// DefaultResponseOptions requests effects, events and object changes.
var DefaultResponseOptions = TransactionResponseOptions{
	ShowEffects:       true,
	ShowEvents:        true,
	ShowObjectChanges: true,
}

// SignedTransaction is a fully resolved transaction ready for submission.
type SignedTransaction struct {
	TxBytes    string   `json:"txBytes"`
	Signatures []string `json:"signatures"`
}

// TransactionResponse is the result of executing or fetching a transaction block.
type TransactionResponse struct {
	Digest        string          `json:"digest"`
	Effects       json.RawMessage `json:"effects,omitempty"`
	Events        []Event         `json:"events,omitempty"`
	ObjectChanges json.RawMessage `json:"objectChanges,omitempty"`
	Errors        []string        `json:"errors,omitempty"`
	Checkpoint    string          `json:"checkpoint,omitempty"`
}

// Succeeded reports whether the effects carry a success status.
// A response without effects is treated as successful.
func (r *TransactionResponse) Succeeded() bool {
	if r == nil {
		return false
	}
	if len(r.Errors) > 0 {
		return false
	}
	if len(r.Effects) == 0 {
		return true
	}
	return gjson.GetBytes(r.Effects, "status.status").String() == "success"
}

// FailureReason returns the execution error reported by effects or the node.
func (r *TransactionResponse) FailureReason() string {
	if r == nil {
		return "no transaction response"
	}
	if len(r.Errors) > 0 {
		return strings.Join(r.Errors, "; ")
	}
	if reason := gjson.GetBytes(r.Effects, "status.error").String(); reason != "" {
		return reason
	}
	return "transaction execution failed"
}

// CreatedObjectIDs returns the ids of objects created by the transaction.
// When typeTag is non-empty only objects of that type are returned. Object
// changes are preferred; effects.created is used when changes are absent.
func (r *TransactionResponse) CreatedObjectIDs(typeTag string) []string {
	if r == nil {
		return nil
	}
	var ids []string
	if len(r.ObjectChanges) > 0 {
		gjson.GetBytes(r.ObjectChanges, `#(type=="created")#`).ForEach(func(_, change gjson.Result) bool {
			if typeTag == "" || change.Get("objectType").String() == typeTag {
				ids = append(ids, change.Get("objectId").String())
			}
			return true
		})
		return ids
	}
	if typeTag != "" {
		return nil
	}
	gjson.GetBytes(r.Effects, "created.#.reference.objectId").ForEach(func(_, id gjson.Result) bool {
		ids = append(ids, id.String())
		return true
	})
	return ids
}

// DeletedObjectIDs returns the ids of objects consumed by the transaction.
func (r *TransactionResponse) DeletedObjectIDs() []string {
	if r == nil {
		return nil
	}
	var ids []string
	if len(r.ObjectChanges) > 0 {
		gjson.GetBytes(r.ObjectChanges, `#(type=="deleted")#.objectId`).ForEach(func(_, id gjson.Result) bool {
			ids = append(ids, id.String())
			return true
		})
		return ids
	}
	gjson.GetBytes(r.Effects, "deleted.#.objectId").ForEach(func(_, id gjson.Result) bool {
		ids = append(ids, id.String())
		return true
	})
	return ids
}
