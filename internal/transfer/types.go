package transfer

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"shieldxfer/internal/address"
	"shieldxfer/internal/chain"
)

// Kind names the representation an alias resolves to.
type Kind int

const (
	KindTransparent Kind = iota + 1
	KindShielded
	KindSpendingKey
	KindPublicKey
)

var kindNames = map[Kind]string{
	KindTransparent: "transparent-address",
	KindShielded:    "shielded-payment-address",
	KindSpendingKey: "spending-key",
	KindPublicKey:   "public-key",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind accepts the names printed by Kind.String plus a few short forms.
// The empty string and "auto" return zero.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "", "auto":
		return 0, nil
	case "transparent", "address":
		return KindTransparent, nil
	case "shielded", "payment-address":
		return KindShielded, nil
	case "spending", "spending-key":
		return KindSpendingKey, nil
	case "public", "public-key":
		return KindPublicKey, nil
	}
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown account kind %q", s)
}

// AccountRef is a resolved account identity. The variants are Transparent,
// Shielded, SpendingKey and PublicKey.
type AccountRef interface {
	Kind() Kind
	// Encode returns the canonical bech32 form the wallet stores.
	Encode() string
	String() string
	accountRef()
}

// Transparent is a transparent address.
type Transparent struct{ Address address.Address }

// Shielded is a payment address. It can receive but never spend.
type Shielded struct{ PaymentAddress address.PaymentAddress }

// SpendingKey carries shielded spend authority and the transparent address it
// derives. Its String is redacted.
type SpendingKey struct{ Key address.ExtendedSpendingKey }

// PublicKey is a transparent account named by its public key.
type PublicKey struct{ Key address.PublicKey }

func (Transparent) Kind() Kind { return KindTransparent }
func (Shielded) Kind() Kind    { return KindShielded }
func (SpendingKey) Kind() Kind { return KindSpendingKey }
func (PublicKey) Kind() Kind   { return KindPublicKey }

func (r Transparent) Encode() string { return r.Address.String() }
func (r Shielded) Encode() string    { return r.PaymentAddress.String() }
func (r SpendingKey) Encode() string { return r.Key.Encode() }
func (r PublicKey) Encode() string   { return r.Key.String() }

func (r Transparent) String() string { return r.Address.String() }
func (r Shielded) String() string    { return r.PaymentAddress.String() }
func (r SpendingKey) String() string { return r.Key.String() }
func (r PublicKey) String() string   { return r.Key.String() }

func (Transparent) accountRef() {}
func (Shielded) accountRef()    {}
func (SpendingKey) accountRef() {}
func (PublicKey) accountRef()   {}

// NormalizedAmount is a whole-token amount paired with the token's precision.
// Raw counts whole tokens, not base units: 100 NAM at 6 decimals is raw 100
// and BaseUnits 100000000.
type NormalizedAmount struct {
	raw      uint64
	decimals uint8
}

// NewNormalizedAmount pairs raw with decimals.
func NewNormalizedAmount(raw uint64, decimals uint8) NormalizedAmount {
	return NormalizedAmount{raw: raw, decimals: decimals}
}

func (a NormalizedAmount) Raw() uint64     { return a.raw }
func (a NormalizedAmount) Decimals() uint8 { return a.decimals }

// Decimal returns the amount in whole tokens.
func (a NormalizedAmount) Decimal() decimal.Decimal {
	return decimal.NewFromUint64(a.raw)
}

// String renders the amount with exactly Decimals fractional digits.
func (a NormalizedAmount) String() string {
	return a.Decimal().StringFixed(int32(a.decimals))
}

// BaseUnits is raw scaled by 10^decimals, the unit the ledger counts in.
func (a NormalizedAmount) BaseUnits() (uint64, error) {
	v := a.Decimal().Shift(int32(a.decimals)).BigInt()
	if v.Sign() < 0 || v.Cmp(new(big.Int).SetUint64(^uint64(0))) > 0 {
		return 0, fmt.Errorf("amount %s overflows base units", a)
	}
	return v.Uint64(), nil
}

// FeeStrategy decides who authorizes and pays the transaction fee.
// The variants are *ExplicitPayer and *DisposableSelfFunded.
type FeeStrategy interface {
	// Payer is the public key that signs as fee payer.
	Payer() address.PublicKey
	String() string
	feeStrategy()
}

// ExplicitPayer charges the fee to an account the wallet holds a key for.
type ExplicitPayer struct {
	PayerKey address.PublicKey
}

func (f *ExplicitPayer) Payer() address.PublicKey { return f.PayerKey }
func (f *ExplicitPayer) String() string           { return "explicit-payer(" + f.PayerKey.String() + ")" }
func (*ExplicitPayer) feeStrategy()               {}

// DisposableSelfFunded signs the transaction with a one-shot key that has no
// balance of its own; the fee is moved to it out of UnshieldSource within the
// same transaction.
type DisposableSelfFunded struct {
	UnshieldSource AccountRef
	key            *address.SecretKey
	pub            address.PublicKey
}

func newDisposableSelfFunded(source AccountRef) (*DisposableSelfFunded, error) {
	sk, err := address.GenerateSecretKey()
	if err != nil {
		return nil, fmt.Errorf("generate disposable key: %w", err)
	}
	return &DisposableSelfFunded{UnshieldSource: source, key: &sk, pub: sk.Public()}, nil
}

func (f *DisposableSelfFunded) Payer() address.PublicKey { return f.pub }
func (f *DisposableSelfFunded) String() string {
	return "disposable-self-funded(" + f.pub.Address().String() + ")"
}
func (*DisposableSelfFunded) feeStrategy() {}

// signingKey returns the disposable key until it has been wiped.
func (f *DisposableSelfFunded) signingKey() (address.SecretKey, bool) {
	if f.key == nil {
		return address.SecretKey{}, false
	}
	return *f.key, true
}

func (f *DisposableSelfFunded) wipe() {
	if f.key != nil {
		f.key.Wipe()
		f.key = nil
	}
}

// TransferIntent is a complete, unsigned description of one transfer.
type TransferIntent struct {
	source AccountRef
	target AccountRef
	token  address.Address
	amount NormalizedAmount
	memo   []byte
	fee    FeeStrategy
}

func (i *TransferIntent) Source() AccountRef       { return i.source }
func (i *TransferIntent) Target() AccountRef       { return i.target }
func (i *TransferIntent) Token() address.Address   { return i.token }
func (i *TransferIntent) Amount() NormalizedAmount { return i.amount }
func (i *TransferIntent) FeeStrategy() FeeStrategy { return i.fee }

// Memo returns a copy of the memo, nil when absent.
func (i *TransferIntent) Memo() []byte {
	if i.memo == nil {
		return nil
	}
	return append([]byte(nil), i.memo...)
}

// SigningData names who must sign an unsigned transaction. It belongs to the
// transaction whose sighash is TxHash and to no other.
type SigningData struct {
	// Owner is the transparent account debited by the transfer, if any.
	Owner      *address.Address
	PublicKeys []address.PublicKey
	FeePayer   address.PublicKey
	TxHash     chain.Hash
}

// SubmissionOutcome is the interpreted network response.
type SubmissionOutcome struct {
	Accepted bool
	TxID     *string
}

// TxIDString returns the id or "none".
func (o SubmissionOutcome) TxIDString() string {
	if o.TxID == nil {
		return "none"
	}
	return *o.TxID
}

// String is the two-line report printed after submission.
func (o SubmissionOutcome) String() string {
	return fmt.Sprintf("sent: %t\ntx: %s", o.Accepted, o.TxIDString())
}
