package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiMCDeterministic(t *testing.T) {
	a := MiMC([]byte("token"), []byte{1, 2, 3})
	b := MiMC([]byte("token"), []byte{1, 2, 3})
	c := MiMC([]byte("token"), []byte{1, 2, 4})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestMiMCAcceptsNonCanonicalInput(t *testing.T) {
	// 32 bytes of 0xff exceed the field modulus and must still hash.
	big := bytes.Repeat([]byte{0xff}, 32)
	long := bytes.Repeat([]byte{0x01}, 64)
	assert.NotPanics(t, func() {
		MiMC(big, long)
	})
}

func TestToFieldIsCanonical(t *testing.T) {
	e := ToField(bytes.Repeat([]byte{0xff}, 32))
	again := ToField(e[:])
	assert.Equal(t, e, again)
}

func TestRandomField(t *testing.T) {
	a, err := RandomField()
	require.NoError(t, err)
	b, err := RandomField()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, ToField(a[:]))
}

func TestDeriveSeedSeparatesLabels(t *testing.T) {
	parent := []byte("parent seed")
	assert.NotEqual(t, DeriveSeed(parent, "spend-auth"), DeriveSeed(parent, "viewing"))
	assert.Equal(t, DeriveSeed(parent, "spend-auth"), DeriveSeed(parent, "spend-auth"))
}

func TestWipe(t *testing.T) {
	b := []byte{1, 2, 3}
	Wipe(b)
	assert.Equal(t, []byte{0, 0, 0}, b)
}
