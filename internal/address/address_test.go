package address

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressRoundTrip(t *testing.T) {
	sk, err := GenerateSecretKey()
	require.NoError(t, err)
	addr := sk.Public().Address()

	s := addr.String()
	assert.True(t, strings.HasPrefix(s, HRPAddress+"1"))

	parsed, err := ParseAddress(s)
	require.NoError(t, err)
	assert.Equal(t, addr, parsed)
}

func TestParseRejectsWrongPrefix(t *testing.T) {
	esk, err := GenerateSpendingKey()
	require.NoError(t, err)
	pa := esk.PaymentAddress().String()

	_, err = ParseAddress(pa)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHRP))
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := ParseAddress("not-an-address")
	assert.Error(t, err)
	_, err = ParsePaymentAddress("")
	assert.Error(t, err)
}

func TestSecretKeyEncodeRoundTrip(t *testing.T) {
	sk, err := GenerateSecretKey()
	require.NoError(t, err)

	parsed, err := ParseSecretKey(sk.Encode())
	require.NoError(t, err)
	assert.Equal(t, sk, parsed)
	assert.NotContains(t, sk.String(), sk.Encode()[len(HRPSecretKey)+1:])
}

func TestSpendingKeyDerivationIsDeterministic(t *testing.T) {
	esk, err := GenerateSpendingKey()
	require.NoError(t, err)

	parsed, err := ParseSpendingKey(esk.Encode())
	require.NoError(t, err)
	assert.Equal(t, esk.PaymentAddress(), parsed.PaymentAddress())
	assert.Equal(t, esk.TransparentAddress(), parsed.TransparentAddress())
	assert.Equal(t, esk.SpendAuthKey().Public().PaymentAddress(), esk.PaymentAddress())
	assert.Equal(t, "zsknam1<redacted>", esk.String())
}

func TestSignVerify(t *testing.T) {
	sk, err := GenerateSecretKey()
	require.NoError(t, err)
	pk := sk.Public()
	msg := []byte("transfer sighash")

	sig, err := sk.Sign(msg)
	require.NoError(t, err)
	assert.True(t, pk.Verify(sig, msg))
	assert.False(t, pk.Verify(sig, []byte("other message")))

	other, err := GenerateSecretKey()
	require.NoError(t, err)
	assert.False(t, other.Public().Verify(sig, msg))
}

func TestPublicKeyParse(t *testing.T) {
	sk, err := GenerateSecretKey()
	require.NoError(t, err)
	pk := sk.Public()

	parsed, err := ParsePublicKey(pk.String())
	require.NoError(t, err)
	assert.Equal(t, pk, parsed)
}

func TestTextMarshalling(t *testing.T) {
	sk, err := GenerateSecretKey()
	require.NoError(t, err)

	in := struct {
		Addr Address        `json:"addr"`
		Pay  PaymentAddress `json:"pay"`
		Key  PublicKey      `json:"key"`
	}{
		Addr: sk.Public().Address(),
		Pay:  sk.Public().PaymentAddress(),
		Key:  sk.Public(),
	}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(b), in.Addr.String())

	out := in
	out.Addr = Address{}
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}
