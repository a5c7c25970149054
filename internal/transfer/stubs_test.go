package transfer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"shieldxfer/internal/address"
	"shieldxfer/internal/chain"
)

type stubWallet struct {
	addrs    map[string]string
	payments map[string]string
	spending map[string]string
	pubkeys  map[string]string
	secrets  map[string]address.SecretKey
	err      error
}

func newStubWallet() *stubWallet {
	return &stubWallet{
		addrs:    map[string]string{},
		payments: map[string]string{},
		spending: map[string]string{},
		pubkeys:  map[string]string{},
		secrets:  map[string]address.SecretKey{},
	}
}

func find(m map[string]string, alias string, err error) (string, error) {
	if err != nil {
		return "", err
	}
	if v, ok := m[alias]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%q: %w", alias, ErrNotFound)
}

func (w *stubWallet) FindAddress(a string) (string, error)     { return find(w.addrs, a, w.err) }
func (w *stubWallet) FindPaymentAddr(a string) (string, error) { return find(w.payments, a, w.err) }
func (w *stubWallet) FindSpendingKey(a string) (string, error) { return find(w.spending, a, w.err) }
func (w *stubWallet) FindPublicKey(a string) (string, error)   { return find(w.pubkeys, a, w.err) }

func (w *stubWallet) SecretKeys() (map[string]address.SecretKey, error) {
	out := make(map[string]address.SecretKey, len(w.secrets))
	for k, v := range w.secrets {
		out[k] = v
	}
	return out, nil
}

func (w *stubWallet) InsertKeypair(alias string, sk address.SecretKey, force bool) error {
	w.secrets[alias] = sk
	w.pubkeys[alias] = sk.Public().String()
	w.addrs[alias] = sk.Public().Address().String()
	return nil
}

// addKey stores a transparent keypair the way the wallet does.
func (w *stubWallet) addKey(t *testing.T, alias string) address.SecretKey {
	t.Helper()
	sk, err := address.GenerateSecretKey()
	require.NoError(t, err)
	require.NoError(t, w.InsertKeypair(alias, sk, false))
	return sk
}

func (w *stubWallet) addSpendingKey(t *testing.T, alias string) address.ExtendedSpendingKey {
	t.Helper()
	esk, err := address.GenerateSpendingKey()
	require.NoError(t, err)
	w.spending[alias] = esk.Encode()
	return esk
}

func (w *stubWallet) addPaymentAddr(t *testing.T, alias string) address.PaymentAddress {
	t.Helper()
	esk, err := address.GenerateSpendingKey()
	require.NoError(t, err)
	pa := esk.PaymentAddress()
	w.payments[alias] = pa.String()
	return pa
}

type stubNetwork struct {
	native    address.Address
	decimals  map[address.Address]uint8
	queryErr  error
	resp      chain.ProcessResponse
	submitErr error
	submitted *chain.Tx
}

func (n *stubNetwork) QueryDenomination(_ context.Context, token address.Address) (uint8, error) {
	if n.queryErr != nil {
		return 0, n.queryErr
	}
	d, ok := n.decimals[token]
	if !ok {
		return 0, errors.New("unknown token")
	}
	return d, nil
}

func (n *stubNetwork) NativeToken(context.Context) (address.Address, error) { return n.native, nil }

func (n *stubNetwork) Submit(_ context.Context, tx *chain.Tx) (chain.ProcessResponse, error) {
	n.submitted = tx
	return n.resp, n.submitErr
}

// stubBuilder produces a one-transfer tx whose signers follow the intent.
type stubBuilder struct {
	err    error
	noData bool
	intent *TransferIntent
}

func (b *stubBuilder) Build(_ context.Context, intent *TransferIntent) (*chain.Tx, *SigningData, uint64, error) {
	b.intent = intent
	if b.err != nil {
		return nil, nil, 0, b.err
	}
	payer := intent.FeeStrategy().Payer()
	tx := &chain.Tx{
		Header:    chain.Header{ChainID: "stub", Epoch: 3, FeePayer: payer, Memo: intent.Memo()},
		Transfers: []chain.Transfer{{Token: intent.Token()}},
	}
	data := &SigningData{FeePayer: payer, PublicKeys: []address.PublicKey{payer}}
	switch s := intent.Source().(type) {
	case Transparent:
		owner := s.Address
		data.Owner = &owner
	case PublicKey:
		owner := s.Key.Address()
		data.Owner = &owner
	case SpendingKey:
		data.PublicKeys = append(data.PublicKeys, s.Key.SpendAuthKey().Public())
	}
	h, err := tx.Sighash()
	if err != nil {
		return nil, nil, 0, err
	}
	data.TxHash = h
	if b.noData {
		return tx, nil, 3, nil
	}
	return tx, data, 3, nil
}

type stubSigner struct{ calls int }

func (s *stubSigner) Sign(_ context.Context, tx *chain.Tx, keys []address.SecretKey) (*chain.Tx, error) {
	s.calls++
	h, err := tx.Sighash()
	if err != nil {
		return nil, err
	}
	sigs := make([]chain.Signature, 0, len(keys))
	for _, k := range keys {
		sig, err := k.Sign(h[:])
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, chain.Signature{PubKey: k.Public(), Sig: sig})
	}
	return tx.WithSignatures(sigs...), nil
}

type recordingAuditor struct{ events []string }

func (a *recordingAuditor) Audit(event string, _ map[string]any) { a.events = append(a.events, event) }
