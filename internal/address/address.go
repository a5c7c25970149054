// address.go - Transparent and shielded identities and their bech32 encodings.
//
// Five identity kinds share the same layout: a fixed-size byte array with a
// human-readable bech32 prefix. Transparent addresses are hashes of a public key.
// Payment addresses are MiMC hashes of a spend-authority public key, so a note
// owner can prove ownership by signing with that key.

package address

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Human-readable prefixes.
const (
	HRPAddress     = "tnam"
	HRPPayment     = "znam"
	HRPPublicKey   = "tpknam"
	HRPSecretKey   = "tsknam"
	HRPSpendingKey = "zsknam"
)

var (
	// ErrHRP is returned when a string carries the wrong bech32 prefix.
	ErrHRP = errors.New("unexpected bech32 prefix")
	// ErrLength is returned when the decoded payload has the wrong size.
	ErrLength = errors.New("unexpected payload length")
)

// Address is a transparent account address.
type Address [20]byte

// PaymentAddress is a shielded-pool destination.
type PaymentAddress [32]byte

func encode(hrp string, payload []byte) string {
	s, err := bech32.EncodeFromBase256(hrp, payload)
	if err != nil {
		// only fails on invalid hrp characters, which are constants here
		panic(fmt.Sprintf("bech32 encode %s: %v", hrp, err))
	}
	return s
}

func decode(hrp, s string, out []byte) error {
	got, payload, err := bech32.DecodeToBase256(s)
	if err != nil {
		return fmt.Errorf("decode %q: %w", s, err)
	}
	if got != hrp {
		return fmt.Errorf("decode %q: %w: got %q, want %q", s, ErrHRP, got, hrp)
	}
	if len(payload) != len(out) {
		return fmt.Errorf("decode %q: %w: got %d, want %d", s, ErrLength, len(payload), len(out))
	}
	copy(out, payload)
	return nil
}

// ParseAddress decodes a tnam1... string.
func ParseAddress(s string) (Address, error) {
	var a Address
	err := decode(HRPAddress, s, a[:])
	return a, err
}

func (a Address) String() string { return encode(HRPAddress, a[:]) }

func (a Address) IsZero() bool { return a == Address{} }

func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Address) UnmarshalText(b []byte) error {
	v, err := ParseAddress(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// ParsePaymentAddress decodes a znam1... string.
func ParsePaymentAddress(s string) (PaymentAddress, error) {
	var p PaymentAddress
	err := decode(HRPPayment, s, p[:])
	return p, err
}

func (p PaymentAddress) String() string { return encode(HRPPayment, p[:]) }

func (p PaymentAddress) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *PaymentAddress) UnmarshalText(b []byte) error {
	v, err := ParsePaymentAddress(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
