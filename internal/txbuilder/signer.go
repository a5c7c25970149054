package txbuilder

import (
	"context"
	"fmt"

	"shieldxfer/internal/address"
	"shieldxfer/internal/chain"
	"shieldxfer/internal/transfer"
)

var _ transfer.TxSigner = Signer{}

// Signer is the default signing procedure: one EdDSA signature over the
// sighash per distinct key.
type Signer struct{}

// Sign returns a copy of tx carrying a signature from every key in keys.
func (Signer) Sign(ctx context.Context, tx *chain.Tx, keys []address.SecretKey) (*chain.Tx, error) {
	sighash, err := tx.Sighash()
	if err != nil {
		return nil, err
	}
	seen := make(map[address.PublicKey]bool, len(keys))
	sigs := make([]chain.Signature, 0, len(keys))
	for _, sk := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pk := sk.Public()
		if seen[pk] {
			continue
		}
		seen[pk] = true
		sig, err := sk.Sign(sighash[:])
		if err != nil {
			return nil, fmt.Errorf("sign with %s: %w", pk, err)
		}
		sigs = append(sigs, chain.Signature{PubKey: pk, Sig: sig})
	}
	return tx.WithSignatures(sigs...), nil
}
