package rpc

import (
	"fmt"

	"shieldxfer/internal/address"
	"shieldxfer/internal/chain"
	"shieldxfer/internal/masp"
)

// Mode selects how the node handles a submitted transaction.
type Mode uint32

const (
	// ModeApplied executes the transaction in a block of its own.
	ModeApplied Mode = iota
	// ModeBroadcast checks and queues it for the next block.
	ModeBroadcast
	// ModeDryRun only checks it.
	ModeDryRun
)

var modeNames = map[Mode]string{
	ModeApplied:   "applied",
	ModeBroadcast: "broadcast",
	ModeDryRun:    "dry-run",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("mode(%d)", uint32(m))
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown submit mode %q", s)
}

// SubmitRequest carries a signed transaction.
type SubmitRequest struct {
	Tx   chain.Tx `cramberry:"1"`
	Mode Mode     `cramberry:"2"`
}

// DenominationRequest asks for a token's decimal places.
type DenominationRequest struct {
	Token address.Address `cramberry:"1"`
}

// DenominationResponse wraps the decimal places of a token.
type DenominationResponse struct {
	Decimals uint32 `cramberry:"1"`
}

// FeeParamsRequest is the (empty) request for FeeParams.
type FeeParamsRequest struct{}

// UnspentNotesRequest selects the unspent notes of owner in token.
type UnspentNotesRequest struct {
	Owner address.PaymentAddress `cramberry:"1"`
	Token address.Address        `cramberry:"2"`
}

// UnspentNotesResponse wraps the notes.
type UnspentNotesResponse struct {
	Notes []masp.Note `cramberry:"1"`
}

// BalanceRequest selects a transparent balance.
type BalanceRequest struct {
	Token address.Address `cramberry:"1"`
	Owner address.Address `cramberry:"2"`
}

// BalanceResponse wraps a transparent balance in base units.
type BalanceResponse struct {
	Amount uint64 `cramberry:"1"`
}
