package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"shieldxfer/internal/address"
	"shieldxfer/internal/chain"
)

// Coordinator gathers the keys an intent implies and signs with all of them or
// not at all.
type Coordinator struct {
	wallet Wallet
	signer TxSigner
	log    zerolog.Logger
}

// NewCoordinator returns a coordinator drawing transparent keys from w.
func NewCoordinator(w Wallet, signer TxSigner, log zerolog.Logger) *Coordinator {
	return &Coordinator{wallet: w, signer: signer, log: log}
}

// keyring maps public keys to the secret keys available for this request.
type keyring map[address.PublicKey]address.SecretKey

func (r keyring) add(sk address.SecretKey) { r[sk.Public()] = sk }

func (r keyring) byAddress(a address.Address) (address.SecretKey, bool) {
	for pk, sk := range r {
		if pk.Address() == a {
			return sk, true
		}
	}
	return address.SecretKey{}, false
}

func (r keyring) wipe() {
	for pk := range r {
		r[pk] = address.SecretKey{}
		delete(r, pk)
	}
}

// Sign signs tx for intent. Every key in data.PublicKeys and the key owning
// data.Owner must be available, otherwise IncompleteSigningSet is returned and
// nothing is signed. Key material, including the disposable fee key, is wiped
// before Sign returns.
func (c *Coordinator) Sign(ctx context.Context, tx *chain.Tx, intent *TransferIntent, data *SigningData) (*chain.Tx, error) {
	if intent != nil {
		if d, ok := intent.fee.(*DisposableSelfFunded); ok {
			defer d.wipe()
		}
	}
	if tx == nil || intent == nil || data == nil {
		return nil, newError(IncompleteSigningSet, errors.New("transaction, intent and signing data are all required"))
	}

	sighash, err := tx.Sighash()
	if err != nil {
		return nil, newError(IncompleteSigningSet, err)
	}
	if sighash != data.TxHash {
		return nil, newError(IncompleteSigningSet, errors.New("signing data does not belong to this transaction"))
	}

	ring, err := c.collectKeys(intent)
	if err != nil {
		return nil, newError(IncompleteSigningSet, err)
	}
	defer ring.wipe()

	selected, missing := selectKeys(ring, data)
	if len(missing) > 0 {
		return nil, newError(IncompleteSigningSet, fmt.Errorf("no key for %s", strings.Join(missing, ", ")))
	}

	signed, err := c.signer.Sign(ctx, tx, selected)
	if err != nil {
		return nil, newError(IncompleteSigningSet, fmt.Errorf("sign: %w", err))
	}
	if err := checkSigned(signed, data); err != nil {
		return nil, newError(IncompleteSigningSet, err)
	}
	c.log.Debug().Int("signatures", len(signed.Signatures)).Msg("transaction signed")
	return signed, nil
}

// selectKeys picks one key per required signer. It returns the keys in the
// order data lists them and the names of any signers with no key.
func selectKeys(ring keyring, data *SigningData) ([]address.SecretKey, []string) {
	var (
		keys    []address.SecretKey
		missing []string
		seen    = make(map[address.PublicKey]bool)
	)
	for _, pk := range data.PublicKeys {
		sk, ok := ring[pk]
		if !ok {
			missing = append(missing, pk.String())
			continue
		}
		if !seen[pk] {
			seen[pk] = true
			keys = append(keys, sk)
		}
	}
	if data.Owner != nil {
		sk, ok := ring.byAddress(*data.Owner)
		switch {
		case !ok:
			missing = append(missing, data.Owner.String())
		case !seen[sk.Public()]:
			seen[sk.Public()] = true
			keys = append(keys, sk)
		}
	}
	return keys, missing
}

func checkSigned(tx *chain.Tx, data *SigningData) error {
	signers := make(map[address.PublicKey]bool, len(tx.Signatures))
	owners := make(map[address.Address]bool, len(tx.Signatures))
	for _, pk := range tx.Signers() {
		signers[pk] = true
		owners[pk.Address()] = true
	}
	for _, pk := range data.PublicKeys {
		if !signers[pk] {
			return fmt.Errorf("signer produced no signature for %s", pk)
		}
	}
	if data.Owner != nil && !owners[*data.Owner] {
		return fmt.Errorf("signer produced no signature for owner %s", data.Owner)
	}
	return nil
}

// collectKeys assembles the keys implied by the fee strategy and the source.
func (c *Coordinator) collectKeys(intent *TransferIntent) (keyring, error) {
	ring := make(keyring)
	var wanted []func(map[string]address.SecretKey) // transparent keys from the wallet

	switch f := intent.fee.(type) {
	case *ExplicitPayer:
		pk := f.PayerKey
		wanted = append(wanted, func(keys map[string]address.SecretKey) {
			addMatching(ring, keys, func(p address.PublicKey) bool { return p == pk })
		})
	case *DisposableSelfFunded:
		sk, ok := f.signingKey()
		if !ok {
			return nil, errors.New("disposable fee key already used")
		}
		ring.add(sk)
		if f.UnshieldSource != nil && f.UnshieldSource != intent.source {
			if fn := c.sourceKeys(ring, f.UnshieldSource); fn != nil {
				wanted = append(wanted, fn)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported fee strategy %T", intent.fee)
	}
	if fn := c.sourceKeys(ring, intent.source); fn != nil {
		wanted = append(wanted, fn)
	}

	if len(wanted) > 0 {
		keys, err := c.wallet.SecretKeys()
		if err != nil {
			ring.wipe()
			return nil, fmt.Errorf("wallet secret keys: %w", err)
		}
		for _, fn := range wanted {
			fn(keys)
		}
		for alias := range keys {
			keys[alias] = address.SecretKey{}
			delete(keys, alias)
		}
	}
	return ring, nil
}

// sourceKeys adds what ref carries itself and returns a wallet lookup for what
// it does not.
func (c *Coordinator) sourceKeys(ring keyring, ref AccountRef) func(map[string]address.SecretKey) {
	switch s := ref.(type) {
	case SpendingKey:
		ring.add(s.Key.SpendAuthKey())
	case Transparent:
		owner := s.Address
		return func(keys map[string]address.SecretKey) {
			addMatching(ring, keys, func(p address.PublicKey) bool { return p.Address() == owner })
		}
	case PublicKey:
		pk := s.Key
		return func(keys map[string]address.SecretKey) {
			addMatching(ring, keys, func(p address.PublicKey) bool { return p == pk })
		}
	case Shielded:
		// a payment address carries no authority
	}
	return nil
}

func addMatching(ring keyring, keys map[string]address.SecretKey, match func(address.PublicKey) bool) {
	for _, sk := range keys {
		if match(sk.Public()) {
			ring.add(sk)
		}
	}
}
