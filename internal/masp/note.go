// note.go - Shielded notes, their commitments and nullifiers.
//
// A Note is a value of one token owned by a payment address. The ledger stores the
// commitment and the opening, and marks a note spent by recording its nullifier.
// Notes are not encrypted and no proofs are produced: spending is authorized by a
// signature from the key whose payment address owns the note.

package masp

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"shieldxfer/internal/address"
	"shieldxfer/internal/crypto"
)

// Note is a committed shielded value.
type Note struct {
	Token address.Address        `json:"token" cramberry:"1"`
	Value uint64                 `json:"value" cramberry:"2"`
	Owner address.PaymentAddress `json:"owner" cramberry:"3"`
	Rho   [32]byte               `json:"rho" cramberry:"4"`
	Rand  [32]byte               `json:"rand" cramberry:"5"`
}

// NewNote creates a note with fresh randomness.
func NewNote(token address.Address, value uint64, owner address.PaymentAddress) (Note, error) {
	rho, err := crypto.RandomField()
	if err != nil {
		return Note{}, fmt.Errorf("note rho: %w", err)
	}
	r, err := crypto.RandomField()
	if err != nil {
		return Note{}, fmt.Errorf("note rand: %w", err)
	}
	return Note{Token: token, Value: value, Owner: owner, Rho: rho, Rand: r}, nil
}

// Commitment is cm = MiMC(token || value || owner || rho || rand).
func (n Note) Commitment() [32]byte {
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], n.Value)
	return crypto.MiMC(n.Token[:], v[:], n.Owner[:], n.Rho[:], n.Rand[:])
}

// Nullifier is nf = MiMC(owner || rho || cm). It is revealed when the note is spent.
func (n Note) Nullifier() [32]byte {
	cm := n.Commitment()
	return crypto.MiMC(n.Owner[:], n.Rho[:], cm[:])
}

func (n Note) String() string {
	cm := n.Commitment()
	return fmt.Sprintf("note{%s %d cm=%s}", n.Token, n.Value, hex.EncodeToString(cm[:8]))
}
