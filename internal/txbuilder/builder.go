// builder.go - Turns a transfer intent into an unsigned transaction.
//
// A transfer becomes one chain.Transfer in the requested token. Transparent
// sources are debited directly; spending-key sources spend their notes and take
// the change back as a new note. The fee is charged to the fee payer's
// transparent balance in the native token. For a disposable fee payer the
// builder adds a second transfer that moves the fee from the source to the
// disposable address inside the same transaction, or folds it into the main
// transfer when that already moves the native token out of the same source.

package txbuilder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"shieldxfer/internal/address"
	"shieldxfer/internal/chain"
	"shieldxfer/internal/masp"
	"shieldxfer/internal/transfer"
)

// Chain is the ledger state the builder reads.
type Chain interface {
	FeeParams(ctx context.Context) (chain.FeeParams, error)
	UnspentNotes(ctx context.Context, owner address.PaymentAddress, token address.Address) ([]masp.Note, error)
}

var (
	_ transfer.TxBuilder = (*Builder)(nil)

	errZeroAmount  = errors.New("amount must be positive")
	errCannotSpend = errors.New("a payment address cannot spend")

	// ErrChainMismatch is returned when the node serves a different chain
	// than the one the builder was configured for.
	ErrChainMismatch = errors.New("chain id mismatch")
)

// Builder assembles unsigned transactions.
type Builder struct {
	chain   Chain
	chainID string
	fee     uint64
	now   func() time.Time
	log   zerolog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithFee sets the fee offered. Below the chain minimum, the minimum is used.
func WithFee(fee uint64) Option { return func(b *Builder) { b.fee = fee } }

// WithChainID pins the chain the builder signs for. Builds fail when the node
// reports another chain.
func WithChainID(id string) Option { return func(b *Builder) { b.chainID = id } }

// WithClock overrides the header timestamp source.
func WithClock(now func() time.Time) Option { return func(b *Builder) { b.now = now } }

// WithLogger sets the builder's logger.
func WithLogger(log zerolog.Logger) Option { return func(b *Builder) { b.log = log } }

// New returns a builder reading from c.
func New(c Chain, opts ...Option) *Builder {
	b := &Builder{chain: c, now: time.Now, log: zerolog.Nop()}
	for _, o := range opts {
		o(b)
	}
	return b
}

// plan accumulates the pieces of a transaction.
type plan struct {
	pool    *masp.Pool
	owner   *address.Address
	signers []address.PublicKey
}

func (p *plan) addSigner(pk address.PublicKey) {
	for _, s := range p.signers {
		if s == pk {
			return
		}
	}
	p.signers = append(p.signers, pk)
}

// Build implements transfer.TxBuilder. It returns the epoch the transaction
// was built for.
func (b *Builder) Build(ctx context.Context, intent *transfer.TransferIntent) (*chain.Tx, *transfer.SigningData, uint64, error) {
	params, err := b.chain.FeeParams(ctx)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("fee params: %w", err)
	}
	if b.chainID != "" && params.ChainID != b.chainID {
		return nil, nil, 0, fmt.Errorf("%w: node serves %q, configured %q", ErrChainMismatch, params.ChainID, b.chainID)
	}
	amount, err := intent.Amount().BaseUnits()
	if err != nil {
		return nil, nil, 0, err
	}
	if amount == 0 {
		return nil, nil, 0, errZeroAmount
	}
	fee := max(b.fee, params.MinFee)
	payer := intent.FeeStrategy().Payer()

	p := &plan{}
	p.addSigner(payer)

	// A disposable payer funded from the source in the native token rides on
	// the main transfer.
	disposable, _ := intent.FeeStrategy().(*transfer.DisposableSelfFunded)
	merged := disposable != nil && disposable.UnshieldSource == intent.Source() && intent.Token() == params.NativeToken
	debitAmount := amount
	if merged {
		if debitAmount > math.MaxUint64-fee {
			return nil, nil, 0, errors.New("amount plus fee overflows")
		}
		debitAmount += fee
	}

	main, err := b.debit(ctx, p, intent.Source(), intent.Token(), debitAmount)
	if err != nil {
		return nil, nil, 0, err
	}
	if err := credit(&main, intent.Target(), intent.Token(), amount); err != nil {
		return nil, nil, 0, err
	}
	transfers := []chain.Transfer{main}

	switch {
	case merged:
		transfers[0].Targets = append(transfers[0].Targets, chain.Movement{Owner: payer.Address(), Amount: fee})
	case disposable != nil:
		feeTr, err := b.debit(ctx, p, disposable.UnshieldSource, params.NativeToken, fee)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("fund disposable fee payer: %w", err)
		}
		feeTr.Targets = append(feeTr.Targets, chain.Movement{Owner: payer.Address(), Amount: fee})
		transfers = append(transfers, feeTr)
	}

	tx := &chain.Tx{
		Header: chain.Header{
			ChainID:   params.ChainID,
			Epoch:     params.Epoch,
			FeeToken:  params.NativeToken,
			FeeAmount: fee,
			FeePayer:  payer,
			Memo:      intent.Memo(),
			Timestamp: b.now().UnixNano(),
		},
		Transfers: transfers,
	}
	sighash, err := tx.Sighash()
	if err != nil {
		return nil, nil, 0, err
	}
	data := &transfer.SigningData{
		Owner:      p.owner,
		PublicKeys: p.signers,
		FeePayer:   payer,
		TxHash:     sighash,
	}
	b.log.Debug().
		Int("transfers", len(transfers)).
		Uint64("fee", fee).
		Uint64("epoch", params.Epoch).
		Str("sighash", sighash.String()).
		Msg("built transaction")
	return tx, data, params.Epoch, nil
}

// debit starts a transfer of token that takes amount out of src.
func (b *Builder) debit(ctx context.Context, p *plan, src transfer.AccountRef, token address.Address, amount uint64) (chain.Transfer, error) {
	tr := chain.Transfer{Token: token}
	switch s := src.(type) {
	case transfer.Transparent:
		b.debitTransparent(p, &tr, s.Address, amount)
	case transfer.PublicKey:
		b.debitTransparent(p, &tr, s.Key.Address(), amount)
	case transfer.SpendingKey:
		if err := b.spendNotes(ctx, p, &tr, s.Key, amount); err != nil {
			return tr, err
		}
	case transfer.Shielded:
		return tr, errCannotSpend
	default:
		return tr, fmt.Errorf("unsupported source %T", src)
	}
	return tr, nil
}

func (b *Builder) debitTransparent(p *plan, tr *chain.Transfer, owner address.Address, amount uint64) {
	tr.Sources = append(tr.Sources, chain.Movement{Owner: owner, Amount: amount})
	if p.owner == nil {
		o := owner
		p.owner = &o
	}
}

func (b *Builder) spendNotes(ctx context.Context, p *plan, tr *chain.Transfer, esk address.ExtendedSpendingKey, amount uint64) error {
	owner := esk.PaymentAddress()
	if p.pool == nil {
		// all tokens; the pool filters per selection
		notes, err := b.chain.UnspentNotes(ctx, owner, address.Address{})
		if err != nil {
			return fmt.Errorf("unspent notes: %w", err)
		}
		p.pool = masp.NewPool(notes)
	}
	picked, change, err := p.pool.Select(tr.Token, amount)
	if err != nil {
		return err
	}
	auth := esk.SpendAuthKey()
	defer auth.Wipe()
	authPub := auth.Public()
	for _, n := range picked {
		tr.Spends = append(tr.Spends, chain.Spend{
			Commitment: n.Commitment(),
			Nullifier:  n.Nullifier(),
			AuthKey:    authPub,
		})
	}
	if change > 0 {
		n, err := masp.NewNote(tr.Token, change, owner)
		if err != nil {
			return err
		}
		tr.Outputs = append(tr.Outputs, n)
	}
	p.addSigner(authPub)
	return nil
}

func credit(tr *chain.Transfer, dst transfer.AccountRef, token address.Address, amount uint64) error {
	switch d := dst.(type) {
	case transfer.Transparent:
		tr.Targets = append(tr.Targets, chain.Movement{Owner: d.Address, Amount: amount})
	case transfer.PublicKey:
		tr.Targets = append(tr.Targets, chain.Movement{Owner: d.Key.Address(), Amount: amount})
	case transfer.Shielded:
		return output(tr, d.PaymentAddress, token, amount)
	case transfer.SpendingKey:
		return output(tr, d.Key.PaymentAddress(), token, amount)
	default:
		return fmt.Errorf("unsupported target %T", dst)
	}
	return nil
}

func output(tr *chain.Transfer, owner address.PaymentAddress, token address.Address, amount uint64) error {
	n, err := masp.NewNote(token, amount, owner)
	if err != nil {
		return err
	}
	tr.Outputs = append(tr.Outputs, n)
	return nil
}
