// crypto.go - Field hashing and randomness shared by addresses, notes and signatures.
//
// Every hash that ends up inside a signature or a note commitment is a MiMC hash over
// BLS12-377 scalar field elements. Arbitrary byte strings are reduced into the field
// first so the hash never rejects an input.

package crypto

import (
	"crypto/rand"
	"fmt"
	"hash"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr/mimc"
	"golang.org/x/crypto/blake2b"
)

// FieldSize is the byte length of a canonical field element.
const FieldSize = fr.Bytes

// ToField reduces b (big endian, any length) into a canonical field element encoding.
func ToField(b []byte) [FieldSize]byte {
	var e fr.Element
	e.SetBytes(b)
	return e.Bytes()
}

// MiMC hashes each block as one field element. Blocks are reduced first,
// so callers may pass raw hashes, keys or short integers.
func MiMC(blocks ...[]byte) [FieldSize]byte {
	h := mimc.NewMiMC()
	for _, b := range blocks {
		e := ToField(b)
		// canonical input, cannot fail
		_, _ = h.Write(e[:])
	}
	var out [FieldSize]byte
	copy(out[:], h.Sum(nil))
	return out
}

// NewMiMC returns the hash used for EdDSA challenges.
func NewMiMC() hash.Hash {
	return mimc.NewMiMC()
}

// RandomField returns a uniformly random canonical field element.
func RandomField() ([FieldSize]byte, error) {
	var e fr.Element
	if _, err := e.SetRandom(); err != nil {
		return [FieldSize]byte{}, fmt.Errorf("random field element: %w", err)
	}
	return e.Bytes(), nil
}

// RandomBytes returns n bytes from crypto/rand.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("read random: %w", err)
	}
	return b, nil
}

// Hash160 is blake2b-256 truncated to 20 bytes. Used for transparent addresses.
func Hash160(data ...[]byte) [20]byte {
	h, _ := blake2b.New256(nil)
	for _, d := range data {
		h.Write(d)
	}
	var out [20]byte
	copy(out[:], h.Sum(nil))
	return out
}

// DeriveSeed derives a 32-byte child seed from a parent seed and a domain label.
func DeriveSeed(parent []byte, label string) [32]byte {
	h, _ := blake2b.New256(parent)
	h.Write([]byte(label))
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Wipe overwrites b with zeros.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
