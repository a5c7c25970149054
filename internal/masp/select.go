package masp

import (
	"errors"
	"fmt"

	"shieldxfer/internal/address"
)

// ErrInsufficientNotes is returned when the available notes cannot cover a target.
var ErrInsufficientNotes = errors.New("insufficient shielded balance")

// Pool hands out notes of one owner without reusing any note twice within a
// single transaction.
type Pool struct {
	notes []Note
	used  map[[32]byte]bool
}

// NewPool wraps the unspent notes of an owner.
func NewPool(notes []Note) *Pool {
	return &Pool{notes: notes, used: make(map[[32]byte]bool)}
}

// Select picks notes of token, in order, until their sum reaches want.
// It returns the selected notes and the change left over.
func (p *Pool) Select(token address.Address, want uint64) ([]Note, uint64, error) {
	if want == 0 {
		return nil, 0, nil
	}
	var (
		picked []Note
		total  uint64
	)
	for _, n := range p.notes {
		if n.Token != token || p.used[n.Commitment()] {
			continue
		}
		picked = append(picked, n)
		total += n.Value
		if total >= want {
			for _, s := range picked {
				p.used[s.Commitment()] = true
			}
			return picked, total - want, nil
		}
	}
	return nil, 0, fmt.Errorf("%w: have %d, need %d", ErrInsufficientNotes, total, want)
}
