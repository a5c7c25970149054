// tx.go - Wire form of a transfer transaction.
//
// A Tx carries a header (chain, epoch, fee and memo), one or more token transfers
// that may move value across the transparent and shielded pools, and the
// signatures over its sighash. The sighash is sha256 of the cramberry encoding
// with the signatures removed.

package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"

	"shieldxfer/internal/address"
	"shieldxfer/internal/masp"
)

// Hash is a 32-byte transaction or sighash digest.
type Hash [32]byte

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

func (h Hash) IsZero() bool { return h == Hash{} }

func (h Hash) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *Hash) UnmarshalText(b []byte) error {
	v, err := ParseHash(string(b))
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// ParseHash decodes a hex digest.
func ParseHash(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("parse hash: %w", err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("parse hash: got %d bytes, want %d", len(b), len(h))
	}
	copy(h[:], b)
	return h, nil
}

// Header holds the fields every transaction carries.
type Header struct {
	ChainID   string            `json:"chain_id" cramberry:"1"`
	Epoch     uint64            `json:"epoch" cramberry:"2"`
	FeeToken  address.Address   `json:"fee_token" cramberry:"3"`
	FeeAmount uint64            `json:"fee_amount" cramberry:"4"`
	FeePayer  address.PublicKey `json:"fee_payer" cramberry:"5"`
	Memo      []byte            `json:"memo,omitempty" cramberry:"6"`
	Timestamp int64             `json:"timestamp" cramberry:"7"`
}

// Movement is a transparent debit or credit.
type Movement struct {
	Owner  address.Address `json:"owner" cramberry:"1"`
	Amount uint64          `json:"amount" cramberry:"2"`
}

// Spend consumes a shielded note. AuthKey must own the note and sign the tx.
type Spend struct {
	Commitment Hash              `json:"commitment" cramberry:"1"`
	Nullifier  Hash              `json:"nullifier" cramberry:"2"`
	AuthKey    address.PublicKey `json:"auth_key" cramberry:"3"`
}

// Transfer moves one token. Sources plus spent notes must equal targets plus outputs.
type Transfer struct {
	Token   address.Address `json:"token" cramberry:"1"`
	Sources []Movement      `json:"sources,omitempty" cramberry:"2"`
	Targets []Movement      `json:"targets,omitempty" cramberry:"3"`
	Spends  []Spend         `json:"spends,omitempty" cramberry:"4"`
	Outputs []masp.Note     `json:"outputs,omitempty" cramberry:"5"`
}

// Signature is one signer's authorization of the sighash.
type Signature struct {
	PubKey address.PublicKey `json:"pub_key" cramberry:"1"`
	Sig    []byte            `json:"sig" cramberry:"2"`
}

// Tx is a complete transaction.
type Tx struct {
	Header     Header      `json:"header" cramberry:"1"`
	Transfers  []Transfer  `json:"transfers" cramberry:"2"`
	Signatures []Signature `json:"signatures,omitempty" cramberry:"3"`
}

// Sighash is the digest every signer signs.
func (tx *Tx) Sighash() (Hash, error) {
	unsigned := *tx
	unsigned.Signatures = nil
	b, err := cramberry.Marshal(&unsigned)
	if err != nil {
		return Hash{}, fmt.Errorf("sighash: %w", err)
	}
	return sha256.Sum256(b), nil
}

// Hash identifies the signed transaction.
func (tx *Tx) Hash() (Hash, error) {
	b, err := cramberry.Marshal(tx)
	if err != nil {
		return Hash{}, fmt.Errorf("tx hash: %w", err)
	}
	return sha256.Sum256(b), nil
}

// Signers returns the public keys that signed tx, without verifying anything.
func (tx *Tx) Signers() []address.PublicKey {
	out := make([]address.PublicKey, 0, len(tx.Signatures))
	for _, s := range tx.Signatures {
		out = append(out, s.PubKey)
	}
	return out
}

// WithSignatures returns a copy of tx carrying sigs appended to its own.
func (tx *Tx) WithSignatures(sigs ...Signature) *Tx {
	out := *tx
	out.Signatures = make([]Signature, 0, len(tx.Signatures)+len(sigs))
	out.Signatures = append(out.Signatures, tx.Signatures...)
	out.Signatures = append(out.Signatures, sigs...)
	return &out
}
