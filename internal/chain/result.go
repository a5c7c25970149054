package chain

import (
	"errors"
	"fmt"

	"shieldxfer/internal/address"
)

// ResultCode is the ledger's verdict on a transaction. Zero means accepted.
type ResultCode uint32

const (
	CodeOK ResultCode = iota
	CodeInvalidTx
	CodeInvalidSig
	CodeInvalidChainID
	CodeExpiredTx
	CodeFeeError
	CodeInsufficientFunds
	CodeReplayTx
	CodeUnknownToken
	CodeInvalidNote
	CodeMempoolFull
)

var codeNames = map[ResultCode]string{
	CodeOK:                "ok",
	CodeInvalidTx:         "invalid_tx",
	CodeInvalidSig:        "invalid_sig",
	CodeInvalidChainID:    "invalid_chain_id",
	CodeExpiredTx:         "expired_tx",
	CodeFeeError:          "fee_error",
	CodeInsufficientFunds: "insufficient_funds",
	CodeReplayTx:          "replay_tx",
	CodeUnknownToken:      "unknown_token",
	CodeInvalidNote:       "invalid_note",
	CodeMempoolFull:       "mempool_full",
}

// OK reports whether the code means success.
func (c ResultCode) OK() bool { return c == CodeOK }

func (c ResultCode) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("code(%d)", uint32(c))
}

// ProcessResponse is what the node returns for a submitted transaction.
// Exactly one of Applied, Broadcast or DryRun.
type ProcessResponse interface {
	isProcessResponse()
}

// Applied means the transaction was executed in a block.
type Applied struct {
	Code   ResultCode `json:"code" cramberry:"1"`
	Hash   string     `json:"hash" cramberry:"2"`
	Height uint64     `json:"height" cramberry:"3"`
	Info   string     `json:"info,omitempty" cramberry:"4"`
}

// Broadcast means a node checked the transaction and queued it, but it is not
// in a block yet.
type Broadcast struct {
	Code ResultCode `json:"code" cramberry:"1"`
	Hash Hash       `json:"hash" cramberry:"2"`
	Log  string     `json:"log,omitempty" cramberry:"3"`
}

// DryRun is the result of checking a transaction without queueing it.
type DryRun struct {
	Code ResultCode `json:"code" cramberry:"1"`
	Info string     `json:"info,omitempty" cramberry:"2"`
}

func (*Applied) isProcessResponse()   {}
func (*Broadcast) isProcessResponse() {}
func (*DryRun) isProcessResponse()    {}

// ResponseKind tags the variant carried by a WireResponse.
type ResponseKind uint32

const (
	KindApplied ResponseKind = iota + 1
	KindBroadcast
	KindDryRun
)

// WireResponse is the tagged union carrying a ProcessResponse over the
// transport. Kind is always set, so a variant whose fields are all zero still
// decodes.
type WireResponse struct {
	Kind      ResponseKind `cramberry:"1"`
	Applied   *Applied     `cramberry:"2"`
	Broadcast *Broadcast   `cramberry:"3"`
	DryRun    *DryRun      `cramberry:"4"`
}

var errEmptyResponse = errors.New("empty process response")

// Wrap packs r into its wire form.
func Wrap(r ProcessResponse) WireResponse {
	switch v := r.(type) {
	case *Applied:
		return WireResponse{Kind: KindApplied, Applied: v}
	case *Broadcast:
		return WireResponse{Kind: KindBroadcast, Broadcast: v}
	case *DryRun:
		return WireResponse{Kind: KindDryRun, DryRun: v}
	}
	return WireResponse{}
}

// Unwrap returns the variant named by w.Kind.
func (w WireResponse) Unwrap() (ProcessResponse, error) {
	switch w.Kind {
	case KindApplied:
		if w.Applied == nil {
			return &Applied{}, nil
		}
		return w.Applied, nil
	case KindBroadcast:
		if w.Broadcast == nil {
			return &Broadcast{}, nil
		}
		return w.Broadcast, nil
	case KindDryRun:
		if w.DryRun == nil {
			return &DryRun{}, nil
		}
		return w.DryRun, nil
	case 0:
		return nil, errEmptyResponse
	}
	return nil, fmt.Errorf("unknown response kind %d", uint32(w.Kind))
}

// FeeParams are the chain parameters a builder needs.
type FeeParams struct {
	ChainID     string          `json:"chain_id" cramberry:"1"`
	Epoch       uint64          `json:"epoch" cramberry:"2"`
	Height      uint64          `json:"height" cramberry:"3"`
	NativeToken address.Address `json:"native_token" cramberry:"4"`
	MinFee      uint64          `json:"min_fee" cramberry:"5"`
}
