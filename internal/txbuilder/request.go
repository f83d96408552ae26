// Package txbuilder assembles Suiven programmable transaction requests.
package txbuilder

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// Action names one of the Suiven write intents.
type Action string

const (
	ActionCreateEvent    Action = "create_event"
	ActionPurchaseTicket Action = "purchase_ticket"
	ActionWithdrawFunds  Action = "withdraw_funds"
	ActionBurnAndMint    Action = "burn_and_mint_proof"
	ActionMarkTicketUsed Action = "mark_ticket_used"
)

// TypeString is the Move type of UTF-8 string arguments.
const TypeString = "0x1::string::String"

// TransactionVersion is the serialized transaction data version.
const TransactionVersion = 2

// Request is an unsigned programmable transaction. Its JSON form is the
// serialized transaction handed to a wallet for signing.
type Request struct {
	Version  int       `json:"version"`
	Sender   string    `json:"sender,omitempty"`
	Inputs   []Input   `json:"inputs"`
	Commands []Command `json:"commands"`

	// Action and Warnings describe the request and are not serialized.
	Action   Action   `json:"-"`
	Warnings []string `json:"-"`
}

// Input is a transaction input: a pure value or an object reference.
type Input struct {
	Pure             *PureArg          `json:"Pure,omitempty"`
	UnresolvedObject *UnresolvedObject `json:"UnresolvedObject,omitempty"`
	Object           *ObjectArg        `json:"Object,omitempty"`
}

// PureArg is a BCS-encoded value. Type and Value keep the decoded form.
type PureArg struct {
	Bytes []byte      `json:"bytes"`
	Type  string      `json:"-"`
	Value interface{} `json:"-"`
}

// UnresolvedObject is an owned or immutable object the wallet resolves to a
// versioned reference before signing.
type UnresolvedObject struct {
	ObjectID string `json:"objectId"`
}

// ObjectArg wraps a fully specified object reference.
type ObjectArg struct {
	SharedObject *SharedObjectRef `json:"SharedObject,omitempty"`
}

// SharedObjectRef references a shared object by its initial shared version.
type SharedObjectRef struct {
	ObjectID             string `json:"objectId"`
	InitialSharedVersion string `json:"initialSharedVersion"`
	Mutable              bool   `json:"mutable"`
}

// Command is one step of the programmable transaction.
type Command struct {
	MoveCall   *MoveCall   `json:"MoveCall,omitempty"`
	SplitCoins *SplitCoins `json:"SplitCoins,omitempty"`
}

// MoveCall invokes a Move entry function.
type MoveCall struct {
	Package       string     `json:"package"`
	Module        string     `json:"module"`
	Function      string     `json:"function"`
	TypeArguments []string   `json:"typeArguments"`
	Arguments     []Argument `json:"arguments"`
}

// Target returns "<package>::<module>::<function>".
func (m *MoveCall) Target() string {
	return m.Package + "::" + m.Module + "::" + m.Function
}

// SplitCoins splits amounts off a coin.
type SplitCoins struct {
	Coin    Argument   `json:"coin"`
	Amounts []Argument `json:"amounts"`
}

// ArgKind discriminates Argument.
type ArgKind uint8

const (
	ArgGasCoin ArgKind = iota + 1
	ArgInput
	ArgResult
	ArgNestedResult
)

// Argument refers to the gas coin, an input, or the result of an earlier command.
type Argument struct {
	Kind  ArgKind
	Index uint16
	// Nested is the position within a multi-value result.
	Nested uint16
}

// GasCoin refers to the sender's gas coin.
func GasCoin() Argument { return Argument{Kind: ArgGasCoin} }

// InputArg refers to inputs[i].
func InputArg(i uint16) Argument { return Argument{Kind: ArgInput, Index: i} }

// ResultArg refers to the result of commands[i].
func ResultArg(i uint16) Argument { return Argument{Kind: ArgResult, Index: i} }

// NestedResultArg refers to value j of the result of commands[i].
func NestedResultArg(i, j uint16) Argument {
	return Argument{Kind: ArgNestedResult, Index: i, Nested: j}
}

// MarshalJSON implements json.Marshaler.
func (a Argument) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case ArgGasCoin:
		return []byte(`{"GasCoin":true}`), nil
	case ArgInput:
		return json.Marshal(map[string]uint16{"Input": a.Index})
	case ArgResult:
		return json.Marshal(map[string]uint16{"Result": a.Index})
	case ArgNestedResult:
		return json.Marshal(map[string][2]uint16{"NestedResult": {a.Index, a.Nested}})
	}
	return nil, fmt.Errorf("unknown argument kind %d", a.Kind)
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Argument) UnmarshalJSON(data []byte) error {
	var raw struct {
		GasCoin      *bool      `json:"GasCoin"`
		Input        *uint16    `json:"Input"`
		Result       *uint16    `json:"Result"`
		NestedResult *[2]uint16 `json:"NestedResult"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.GasCoin != nil:
		*a = GasCoin()
	case raw.Input != nil:
		*a = InputArg(*raw.Input)
	case raw.Result != nil:
		*a = ResultArg(*raw.Result)
	case raw.NestedResult != nil:
		*a = NestedResultArg(raw.NestedResult[0], raw.NestedResult[1])
	default:
		return fmt.Errorf("unrecognized argument %s", data)
	}
	return nil
}

// JSON returns the serialized request.
func (r *Request) JSON() ([]byte, error) {
	return json.Marshal(r)
}

// MoveCall returns the last MoveCall command, which is the entry point invoked.
func (r *Request) MoveCall() *MoveCall {
	for i := len(r.Commands) - 1; i >= 0; i-- {
		if r.Commands[i].MoveCall != nil {
			return r.Commands[i].MoveCall
		}
	}
	return nil
}

// Resolve returns the input an argument refers to, or nil if it refers to
// the gas coin or a command result.
func (r *Request) Resolve(a Argument) *Input {
	if a.Kind != ArgInput || int(a.Index) >= len(r.Inputs) {
		return nil
	}
	return &r.Inputs[a.Index]
}

// ObjectID returns the object id of an object input, or "".
func (in *Input) ObjectID() string {
	switch {
	case in == nil:
		return ""
	case in.UnresolvedObject != nil:
		return in.UnresolvedObject.ObjectID
	case in.Object != nil && in.Object.SharedObject != nil:
		return in.Object.SharedObject.ObjectID
	}
	return ""
}

// =============================================================================
// Request assembly
// =============================================================================

// tx accumulates inputs and commands.
type tx struct {
	req *Request
}

func newTx(action Action) *tx {
	return &tx{req: &Request{Version: TransactionVersion, Action: action}}
}

func (t *tx) input(in Input) Argument {
	t.req.Inputs = append(t.req.Inputs, in)
	return InputArg(uint16(len(t.req.Inputs) - 1))
}

func (t *tx) pure(typ string, value interface{}, bytes []byte) Argument {
	return t.input(Input{Pure: &PureArg{Bytes: bytes, Type: typ, Value: value}})
}

func (t *tx) u16(v uint16) Argument { return t.pure("u16", v, EncodeU16(v)) }
func (t *tx) u64(v uint64) Argument { return t.pure("u64", v, EncodeU64(v)) }
func (t *tx) boolean(v bool) Argument { return t.pure("bool", v, EncodeBool(v)) }
func (t *tx) str(s string) Argument { return t.pure(TypeString, s, EncodeString(s)) }

func (t *tx) bytes(b []byte) Argument {
	return t.pure("vector<u8>", append([]byte(nil), b...), EncodeBytes(b))
}

func (t *tx) u128(v *big.Int) (Argument, error) {
	b, err := EncodeU128(v)
	if err != nil {
		return Argument{}, err
	}
	return t.pure("u128", new(big.Int).Set(v), b), nil
}

func (t *tx) object(id string) Argument {
	return t.input(Input{UnresolvedObject: &UnresolvedObject{ObjectID: id}})
}

func (t *tx) shared(id, initialSharedVersion string, mutable bool) Argument {
	return t.input(Input{Object: &ObjectArg{SharedObject: &SharedObjectRef{
		ObjectID:             id,
		InitialSharedVersion: initialSharedVersion,
		Mutable:              mutable,
	}}})
}

func (t *tx) command(c Command) uint16 {
	t.req.Commands = append(t.req.Commands, c)
	return uint16(len(t.req.Commands) - 1)
}

func (t *tx) splitGas(amount Argument) Argument {
	i := t.command(Command{SplitCoins: &SplitCoins{Coin: GasCoin(), Amounts: []Argument{amount}}})
	return NestedResultArg(i, 0)
}

func (t *tx) moveCall(pkg, module, function string, args ...Argument) {
	t.command(Command{MoveCall: &MoveCall{
		Package:       pkg,
		Module:        module,
		Function:      function,
		TypeArguments: []string{},
		Arguments:     args,
	}})
}
