package ledger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shieldxfer/internal/address"
	"shieldxfer/internal/chain"
	"shieldxfer/internal/masp"
)

type fixture struct {
	l      *Ledger
	nam    address.Address
	alice  address.SecretKey
	bob    address.SecretKey
	shield address.ExtendedSpendingKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	alice, err := address.GenerateSecretKey()
	require.NoError(t, err)
	bob, err := address.GenerateSecretKey()
	require.NoError(t, err)
	shield, err := address.GenerateSpendingKey()
	require.NoError(t, err)

	g := DefaultGenesis("devnet-test")
	g.Balances = []GenesisBalance{{Token: "NAM", Owner: alice.Public().Address(), Amount: 1_000}}
	g.Notes = []GenesisNote{{Token: "NAM", Owner: shield.PaymentAddress(), Value: 500}}
	l, err := New(g)
	require.NoError(t, err)
	return &fixture{l: l, nam: TokenAddress("NAM"), alice: alice, bob: bob, shield: shield}
}

func sign(t *testing.T, tx *chain.Tx, keys ...address.SecretKey) *chain.Tx {
	t.Helper()
	sh, err := tx.Sighash()
	require.NoError(t, err)
	var sigs []chain.Signature
	for _, k := range keys {
		sig, err := k.Sign(sh[:])
		require.NoError(t, err)
		sigs = append(sigs, chain.Signature{PubKey: k.Public(), Sig: sig})
	}
	return tx.WithSignatures(sigs...)
}

func (f *fixture) header(payer address.SecretKey) chain.Header {
	return chain.Header{ChainID: "devnet-test", FeeToken: f.nam, FeeAmount: 10, FeePayer: payer.Public()}
}

func TestGenesis(t *testing.T) {
	f := newFixture(t)
	dec, err := f.l.Denomination(f.nam)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), dec)
	assert.Equal(t, uint64(1_000), f.l.Balance(f.nam, f.alice.Public().Address()))
	assert.Len(t, f.l.UnspentNotes(f.shield.PaymentAddress(), f.nam), 1)

	_, err = f.l.Denomination(TokenAddress("BTC"))
	assert.ErrorIs(t, err, ErrUnknownToken)
}

func TestApplyTransparentTransfer(t *testing.T) {
	f := newFixture(t)
	tx := &chain.Tx{
		Header: f.header(f.alice),
		Transfers: []chain.Transfer{{
			Token:   f.nam,
			Sources: []chain.Movement{{Owner: f.alice.Public().Address(), Amount: 100}},
			Targets: []chain.Movement{{Owner: f.bob.Public().Address(), Amount: 100}},
		}},
	}
	signed := sign(t, tx, f.alice)
	res := f.l.ApplyTx(signed)
	require.Equal(t, chain.CodeOK, res.Code, res.Info)
	assert.Equal(t, uint64(890), f.l.Balance(f.nam, f.alice.Public().Address()))
	assert.Equal(t, uint64(100), f.l.Balance(f.nam, f.bob.Public().Address()))

	again := f.l.ApplyTx(signed)
	assert.Equal(t, chain.CodeReplayTx, again.Code)
}

func TestRejectsUnsignedSource(t *testing.T) {
	f := newFixture(t)
	tx := &chain.Tx{
		Header: f.header(f.bob),
		Transfers: []chain.Transfer{{
			Token:   f.nam,
			Sources: []chain.Movement{{Owner: f.alice.Public().Address(), Amount: 100}},
			Targets: []chain.Movement{{Owner: f.bob.Public().Address(), Amount: 100}},
		}},
	}
	code, _ := f.l.CheckTx(sign(t, tx, f.bob))
	assert.Equal(t, chain.CodeInvalidSig, code)
}

func TestFeePayerWithoutFunds(t *testing.T) {
	f := newFixture(t)
	tx := &chain.Tx{
		Header: f.header(f.bob),
		Transfers: []chain.Transfer{{
			Token:   f.nam,
			Sources: []chain.Movement{{Owner: f.alice.Public().Address(), Amount: 1}},
			Targets: []chain.Movement{{Owner: f.alice.Public().Address(), Amount: 1}},
		}},
	}
	code, _ := f.l.CheckTx(sign(t, tx, f.alice, f.bob))
	assert.Equal(t, chain.CodeFeeError, code)
}

func TestUnshieldFundsDisposableFeePayer(t *testing.T) {
	f := newFixture(t)
	disposable, err := address.GenerateSecretKey()
	require.NoError(t, err)
	auth := f.shield.SpendAuthKey()

	note := f.l.UnspentNotes(f.shield.PaymentAddress(), f.nam)[0]
	change, err := masp.NewNote(f.nam, 390, f.shield.PaymentAddress())
	require.NoError(t, err)
	out, err := masp.NewNote(f.nam, 100, address.PaymentAddress{7})
	require.NoError(t, err)

	tx := &chain.Tx{
		Header: f.header(disposable),
		Transfers: []chain.Transfer{{
			Token:   f.nam,
			Spends:  []chain.Spend{{Commitment: note.Commitment(), Nullifier: note.Nullifier(), AuthKey: auth.Public()}},
			Targets: []chain.Movement{{Owner: disposable.Public().Address(), Amount: 10}},
			Outputs: []masp.Note{out, change},
		}},
	}
	res := f.l.ApplyTx(sign(t, tx, auth, disposable))
	require.Equal(t, chain.CodeOK, res.Code, res.Info)
	assert.Zero(t, f.l.Balance(f.nam, disposable.Public().Address()))
	left := f.l.UnspentNotes(f.shield.PaymentAddress(), f.nam)
	require.Len(t, left, 1)
	assert.Equal(t, uint64(390), left[0].Value)

	// the original note is nullified
	tx2 := *tx
	tx2.Header.Timestamp = 1
	tx2.Transfers = []chain.Transfer{{
		Token:   f.nam,
		Spends:  tx.Transfers[0].Spends,
		Targets: []chain.Movement{{Owner: disposable.Public().Address(), Amount: 500}},
	}}
	tx2.Signatures = nil
	code, info := f.l.CheckTx(sign(t, &tx2, auth, disposable))
	assert.Equal(t, chain.CodeInvalidNote, code, info)
}

func TestSpendRequiresOwnerKey(t *testing.T) {
	f := newFixture(t)
	note := f.l.UnspentNotes(f.shield.PaymentAddress(), f.nam)[0]
	tx := &chain.Tx{
		Header: f.header(f.alice),
		Transfers: []chain.Transfer{{
			Token:   f.nam,
			Spends:  []chain.Spend{{Commitment: note.Commitment(), Nullifier: note.Nullifier(), AuthKey: f.alice.Public()}},
			Targets: []chain.Movement{{Owner: f.alice.Public().Address(), Amount: 500}},
		}},
	}
	code, _ := f.l.CheckTx(sign(t, tx, f.alice))
	assert.Equal(t, chain.CodeInvalidSig, code)
}

func TestBroadcastThenCommit(t *testing.T) {
	f := newFixture(t)
	tx := sign(t, &chain.Tx{
		Header: f.header(f.alice),
		Transfers: []chain.Transfer{{
			Token:   f.nam,
			Sources: []chain.Movement{{Owner: f.alice.Public().Address(), Amount: 5}},
			Targets: []chain.Movement{{Owner: f.bob.Public().Address(), Amount: 5}},
		}},
	}, f.alice)

	b := f.l.Broadcast(tx)
	require.Equal(t, chain.CodeOK, b.Code, b.Log)
	assert.Equal(t, chain.CodeReplayTx, f.l.Broadcast(tx).Code)
	assert.Equal(t, 1, f.l.MempoolSize())
	assert.Zero(t, f.l.Balance(f.nam, f.bob.Public().Address()))

	results := f.l.Commit()
	require.Len(t, results, 1)
	assert.Equal(t, chain.CodeOK, results[0].Code)
	assert.Equal(t, b.Hash.String(), results[0].Hash)
	assert.Equal(t, uint64(5), f.l.Balance(f.nam, f.bob.Public().Address()))
	assert.Zero(t, f.l.MempoolSize())
}

func TestWrongChainAndStaleEpoch(t *testing.T) {
	f := newFixture(t)
	h := f.header(f.alice)
	h.ChainID = "other"
	tx := sign(t, &chain.Tx{Header: h}, f.alice)
	code, _ := f.l.CheckTx(tx)
	assert.Equal(t, chain.CodeInvalidChainID, code)

	h = f.header(f.alice)
	h.Epoch = 5
	tx = sign(t, &chain.Tx{Header: h}, f.alice)
	code, _ = f.l.CheckTx(tx)
	assert.Equal(t, chain.CodeExpiredTx, code)
}

func TestSaveAndLoad(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, f.l.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, f.l.FeeParams(), loaded.FeeParams())
	assert.Equal(t, uint64(1_000), loaded.Balance(f.nam, f.alice.Public().Address()))
	assert.Equal(t, f.l.UnspentNotes(f.shield.PaymentAddress(), f.nam), loaded.UnspentNotes(f.shield.PaymentAddress(), f.nam))
}

func TestGenesisValidate(t *testing.T) {
	g := DefaultGenesis("x")
	g.NativeSymbol = "BTC"
	assert.Error(t, g.Validate())

	g = DefaultGenesis("")
	assert.Error(t, g.Validate())
}
