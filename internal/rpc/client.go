package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	"shieldxfer/internal/address"
	"shieldxfer/internal/chain"
	"shieldxfer/internal/masp"
	"shieldxfer/internal/transfer"
	"shieldxfer/internal/txbuilder"
)

var (
	_ transfer.NetworkClient = (*Client)(nil)
	_ txbuilder.Chain        = (*Client)(nil)
)

// Client talks to a node over gRPC.
type Client struct {
	cc   *grpc.ClientConn
	mode Mode
}

// Dial connects to the node at addr. Submitted transactions are handled in
// the given mode.
func Dial(addr string, mode Mode, opts ...grpc.DialOption) (*Client, error) {
	opts = append(opts, grpc.WithDefaultCallOptions(
		grpc.ForceCodec(CramberryCodec{}),
	))
	cc, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("rpc client: dial %s: %w", addr, err)
	}
	return &Client{cc: cc, mode: mode}, nil
}

func (c *Client) Close() error {
	return c.cc.Close()
}

func (c *Client) Submit(ctx context.Context, tx *chain.Tx) (chain.ProcessResponse, error) {
	req := &SubmitRequest{Tx: *tx, Mode: c.mode}
	resp := new(chain.WireResponse)
	if err := c.cc.Invoke(ctx, fullMethod("Submit"), req, resp); err != nil {
		return nil, err
	}
	return resp.Unwrap()
}

func (c *Client) QueryDenomination(ctx context.Context, token address.Address) (uint8, error) {
	resp := new(DenominationResponse)
	if err := c.cc.Invoke(ctx, fullMethod("Denomination"), &DenominationRequest{Token: token}, resp); err != nil {
		return 0, err
	}
	return uint8(resp.Decimals), nil
}

func (c *Client) FeeParams(ctx context.Context) (chain.FeeParams, error) {
	resp := new(chain.FeeParams)
	if err := c.cc.Invoke(ctx, fullMethod("FeeParams"), &FeeParamsRequest{}, resp); err != nil {
		return chain.FeeParams{}, err
	}
	return *resp, nil
}

func (c *Client) NativeToken(ctx context.Context) (address.Address, error) {
	p, err := c.FeeParams(ctx)
	if err != nil {
		return address.Address{}, err
	}
	return p.NativeToken, nil
}

func (c *Client) UnspentNotes(ctx context.Context, owner address.PaymentAddress, token address.Address) ([]masp.Note, error) {
	resp := new(UnspentNotesResponse)
	req := &UnspentNotesRequest{Owner: owner, Token: token}
	if err := c.cc.Invoke(ctx, fullMethod("UnspentNotes"), req, resp); err != nil {
		return nil, err
	}
	return resp.Notes, nil
}

func (c *Client) Balance(ctx context.Context, token, owner address.Address) (uint64, error) {
	resp := new(BalanceResponse)
	if err := c.cc.Invoke(ctx, fullMethod("Balance"), &BalanceRequest{Token: token, Owner: owner}, resp); err != nil {
		return 0, err
	}
	return resp.Amount, nil
}
