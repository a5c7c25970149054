package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"shieldxfer/internal/address"
	"shieldxfer/internal/chain"
)

// Default lookup orders when a request leaves the kind unset.
var (
	SourceKinds = []Kind{KindSpendingKey, KindTransparent, KindPublicKey}
	TargetKinds = []Kind{KindShielded, KindTransparent, KindPublicKey}
)

// Request describes one transfer in wallet terms.
type Request struct {
	Source     string
	SourceKind Kind // zero tries SourceKinds in order
	Target     string
	TargetKind Kind // zero tries TargetKinds in order
	Token      string // alias or tnam1 address; empty means the native token
	Amount     uint64
	Memo       []byte
	FeePayer   string // optional public-key alias

	// ImportKey, when set, is stored in the wallet under Source before
	// anything is resolved.
	ImportKey *address.SecretKey
}

// Deps are the collaborators a Pipeline drives.
type Deps struct {
	Wallet  Wallet
	Network NetworkClient
	Builder TxBuilder
	Signer  TxSigner
	Logger  zerolog.Logger
	Audit   Auditor
}

// Pipeline runs resolve, normalize, intent, build, sign, submit and classify
// for one request at a time. It keeps no state between requests.
//
// A Pipeline does not reserve notes. Callers running concurrent shielded
// transfers from the same spending key must keep them from selecting the same
// note; otherwise the ledger rejects all but the first spend.
type Pipeline struct {
	wallet      Wallet
	network     NetworkClient
	builder     TxBuilder
	coordinator *Coordinator
	log         zerolog.Logger
	audit       Auditor
}

// NewPipeline wires a pipeline.
func NewPipeline(d Deps) *Pipeline {
	audit := d.Audit
	if audit == nil {
		audit = nopAuditor{}
	}
	return &Pipeline{
		wallet:      d.Wallet,
		network:     d.Network,
		builder:     d.Builder,
		coordinator: NewCoordinator(d.Wallet, d.Signer, d.Logger),
		log:         d.Logger,
		audit:       audit,
	}
}

// Run executes req. Failures before submission return a zero outcome. After
// submission the outcome is always returned, along with a SubmissionRejected
// or SubmissionNetworkError error when it was not accepted.
func (p *Pipeline) Run(ctx context.Context, req Request) (SubmissionOutcome, error) {
	log := p.log.With().Str("request_id", uuid.NewString()).Logger()

	if req.ImportKey != nil {
		if err := p.importKey(req.Source, *req.ImportKey); err != nil {
			return SubmissionOutcome{}, err
		}
		log.Info().Str("alias", req.Source).Msg("keypair inserted")
	}

	source, err := resolveWith(p.wallet, req.Source, req.SourceKind, SourceKinds)
	if err != nil {
		return SubmissionOutcome{}, err
	}
	target, err := resolveWith(p.wallet, req.Target, req.TargetKind, TargetKinds)
	if err != nil {
		return SubmissionOutcome{}, err
	}
	var feePayer AccountRef
	if req.FeePayer != "" {
		feePayer, err = Resolve(p.wallet, req.FeePayer, KindPublicKey)
		if err != nil {
			log.Debug().Err(err).Str("alias", req.FeePayer).Msg("fee payer not resolved, self-funding")
			feePayer = nil
		}
	}

	token, err := ResolveToken(ctx, p.network, p.wallet, req.Token)
	if err != nil {
		return SubmissionOutcome{}, err
	}
	amount, err := Normalize(ctx, p.network, token, req.Amount)
	if err != nil {
		return SubmissionOutcome{}, err
	}

	intent, err := BuildIntent(source, target, token, amount, req.Memo, feePayer)
	if err != nil {
		return SubmissionOutcome{}, err
	}
	log.Info().
		Stringer("source_kind", source.Kind()).
		Stringer("target_kind", target.Kind()).
		Stringer("token", token).
		Stringer("amount", amount).
		Stringer("fee", intent.FeeStrategy()).
		Msg("transfer intent built")
	p.audit.Audit("fee_strategy", map[string]any{"strategy": intent.FeeStrategy().String()})

	tx, data, epoch, err := p.builder.Build(ctx, intent)
	if err != nil {
		wipeDisposable(intent)
		return SubmissionOutcome{}, newError(BuildFailed, err)
	}
	if tx == nil || data == nil {
		wipeDisposable(intent)
		return SubmissionOutcome{}, newError(IncompleteSigningSet, errors.New("builder returned no transaction or signing data"))
	}
	log.Debug().Uint64("epoch", epoch).Int("signers", len(data.PublicKeys)).Msg("transaction built")

	signed, err := p.coordinator.Sign(ctx, tx, intent, data)
	if err != nil {
		return SubmissionOutcome{}, err
	}

	resp, err := p.network.Submit(ctx, signed)
	outcome := Classify(resp, err)
	p.audit.Audit("submission", map[string]any{"accepted": outcome.Accepted, "tx": outcome.TxIDString()})
	if err != nil {
		log.Error().Err(err).Msg("submission failed")
		return outcome, newError(SubmissionNetworkError, err)
	}
	if !outcome.Accepted {
		code, _ := resultCode(resp)
		log.Warn().Stringer("code", code).Str("tx", outcome.TxIDString()).Msg("submission rejected")
		return outcome, &Error{Kind: SubmissionRejected, Code: code, Err: responseInfo(resp)}
	}
	log.Info().Str("tx", outcome.TxIDString()).Msg("transfer accepted")
	return outcome, nil
}

func wipeDisposable(intent *TransferIntent) {
	if d, ok := intent.FeeStrategy().(*DisposableSelfFunded); ok {
		d.wipe()
	}
}

func resolveWith(w Wallet, alias string, kind Kind, auto []Kind) (AccountRef, error) {
	if kind != 0 {
		return Resolve(w, alias, kind)
	}
	return ResolveFirst(w, alias, auto...)
}

// importKey holds the wallet's write lock only for the insert itself.
func (p *Pipeline) importKey(alias string, sk address.SecretKey) error {
	ins, ok := p.wallet.(KeyInserter)
	if !ok {
		return aliasError(MalformedIdentity, alias, errors.New("wallet cannot store keys"))
	}
	if err := ins.InsertKeypair(alias, sk, true); err != nil {
		return aliasError(MalformedIdentity, alias, fmt.Errorf("insert keypair: %w", err))
	}
	p.audit.Audit("keypair_inserted", map[string]any{"alias": alias, "address": sk.Public().Address().String()})
	return nil
}

// ResolveToken turns a token alias or tnam1 address into an address. The
// empty string is the chain's native token.
func ResolveToken(ctx context.Context, network NetworkClient, w Wallet, token string) (address.Address, error) {
	if token == "" {
		native, err := network.NativeToken(ctx)
		if err != nil {
			return address.Address{}, newError(DenominationQueryFailed, fmt.Errorf("native token: %w", err))
		}
		return native, nil
	}
	if a, err := address.ParseAddress(token); err == nil {
		return a, nil
	}
	ref, err := Resolve(w, token, KindTransparent)
	if err != nil {
		return address.Address{}, err
	}
	return ref.(Transparent).Address, nil
}

func responseInfo(resp chain.ProcessResponse) error {
	switch r := resp.(type) {
	case *chain.Applied:
		if r.Info != "" {
			return errors.New(r.Info)
		}
	case *chain.Broadcast:
		if r.Log != "" {
			return errors.New(r.Log)
		}
	case *chain.DryRun:
		if r.Info != "" {
			return errors.New(r.Info)
		}
		return errors.New("dry run only")
	}
	return nil
}
