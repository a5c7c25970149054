package rpc

import (
	"context"

	"shieldxfer/internal/address"
	"shieldxfer/internal/chain"
	"shieldxfer/internal/ledger"
	"shieldxfer/internal/masp"
	"shieldxfer/internal/transfer"
	"shieldxfer/internal/txbuilder"
)

var (
	_ transfer.NetworkClient = (*Local)(nil)
	_ txbuilder.Chain        = (*Local)(nil)
)

// Local is an in-process connection to a ledger, with the same surface as
// Client.
type Local struct {
	ledger *ledger.Ledger
	mode   Mode
}

// NewLocal connects to l directly.
func NewLocal(l *ledger.Ledger, mode Mode) *Local {
	return &Local{ledger: l, mode: mode}
}

func (c *Local) Submit(ctx context.Context, tx *chain.Tx) (chain.ProcessResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch c.mode {
	case ModeBroadcast:
		return c.ledger.Broadcast(tx), nil
	case ModeDryRun:
		return c.ledger.DryRun(tx), nil
	}
	return c.ledger.ApplyTx(tx), nil
}

func (c *Local) QueryDenomination(ctx context.Context, token address.Address) (uint8, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return c.ledger.Denomination(token)
}

func (c *Local) FeeParams(ctx context.Context) (chain.FeeParams, error) {
	if err := ctx.Err(); err != nil {
		return chain.FeeParams{}, err
	}
	return c.ledger.FeeParams(), nil
}

func (c *Local) NativeToken(ctx context.Context) (address.Address, error) {
	p, err := c.FeeParams(ctx)
	return p.NativeToken, err
}

func (c *Local) UnspentNotes(ctx context.Context, owner address.PaymentAddress, token address.Address) ([]masp.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.ledger.UnspentNotes(owner, token), nil
}

func (c *Local) Balance(ctx context.Context, token, owner address.Address) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return c.ledger.Balance(token, owner), nil
}
