package chain

import (
	"testing"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shieldxfer/internal/address"
)

func sampleTx(t *testing.T) *Tx {
	t.Helper()
	sk, err := address.GenerateSecretKey()
	require.NoError(t, err)
	return &Tx{
		Header: Header{ChainID: "devnet", Epoch: 3, FeePayer: sk.Public(), FeeAmount: 10, Memo: []byte("hi")},
		Transfers: []Transfer{{
			Sources: []Movement{{Owner: sk.Public().Address(), Amount: 5}},
			Targets: []Movement{{Owner: sk.Public().Address(), Amount: 5}},
		}},
	}
}

func TestSighashIgnoresSignatures(t *testing.T) {
	tx := sampleTx(t)
	before, err := tx.Sighash()
	require.NoError(t, err)

	signed := tx.WithSignatures(Signature{PubKey: tx.Header.FeePayer, Sig: []byte{1, 2, 3}})
	after, err := signed.Sighash()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Empty(t, tx.Signatures, "original must not be mutated")

	h1, err := tx.Hash()
	require.NoError(t, err)
	h2, err := signed.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestSighashCoversMemo(t *testing.T) {
	tx := sampleTx(t)
	a, err := tx.Sighash()
	require.NoError(t, err)
	tx.Header.Memo = []byte("changed")
	b, err := tx.Sighash()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHashHex(t *testing.T) {
	var h Hash
	h[0] = 0xde
	h[1] = 0xad
	parsed, err := ParseHash(h.String())
	require.NoError(t, err)
	assert.Equal(t, h, parsed)

	_, err = ParseHash("deadbeef")
	assert.Error(t, err)
}

func TestWireResponse(t *testing.T) {
	r, err := Wrap(&Applied{Code: CodeOK, Hash: "abc"}).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, &Applied{Code: CodeOK, Hash: "abc"}, r)

	_, err = WireResponse{}.Unwrap()
	assert.Error(t, err)

	_, err = WireResponse{Kind: 9}.Unwrap()
	assert.Error(t, err)
}

func TestWireResponseZeroVariantSurvivesEncoding(t *testing.T) {
	for _, in := range []ProcessResponse{&DryRun{}, &Applied{}, &Broadcast{}, &DryRun{Code: CodeFeeError, Info: "low"}} {
		w := Wrap(in)
		data, err := cramberry.Marshal(&w)
		require.NoError(t, err)

		var got WireResponse
		require.NoError(t, cramberry.Unmarshal(data, &got))
		out, err := got.Unwrap()
		require.NoError(t, err)
		assert.Equal(t, in, out)
	}
}

func TestResultCodeString(t *testing.T) {
	assert.True(t, CodeOK.OK())
	assert.False(t, CodeFeeError.OK())
	assert.Equal(t, "fee_error", CodeFeeError.String())
	assert.Equal(t, "code(99)", ResultCode(99).String())
}
