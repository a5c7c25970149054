// keys.go - Signing keys: transparent secret keys, public keys and extended spending keys.
//
// All keys are 32-byte seeds expanded into EdDSA keys on the BLS12-377 twisted
// Edwards curve. Messages are signed as a single field element with MiMC as the
// challenge hash, matching what the ledger verifies.

package address

import (
	"bytes"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/twistededwards/eddsa"

	"shieldxfer/internal/crypto"
)

// PublicKey is a compressed EdDSA public key.
type PublicKey [32]byte

// SecretKey is the seed of a transparent signing key.
type SecretKey [32]byte

// ExtendedSpendingKey is the seed of a shielded account. It derives a spend
// authority key, a payment address and a transparent address.
type ExtendedSpendingKey [32]byte

// GenerateSecretKey returns a fresh random secret key.
func GenerateSecretKey() (SecretKey, error) {
	var sk SecretKey
	b, err := crypto.RandomBytes(len(sk))
	if err != nil {
		return sk, err
	}
	copy(sk[:], b)
	crypto.Wipe(b)
	return sk, nil
}

// GenerateSpendingKey returns a fresh random spending key.
func GenerateSpendingKey() (ExtendedSpendingKey, error) {
	sk, err := GenerateSecretKey()
	if err != nil {
		return ExtendedSpendingKey{}, err
	}
	defer sk.Wipe()
	return ExtendedSpendingKey(sk), nil
}

func (sk SecretKey) privateKey() *eddsa.PrivateKey {
	seed := sk
	priv, err := eddsa.GenerateKey(bytes.NewReader(seed[:]))
	if err != nil {
		// a 32-byte reader never runs short
		panic(fmt.Sprintf("derive eddsa key: %v", err))
	}
	return priv
}

// Public returns the public key of sk.
func (sk SecretKey) Public() PublicKey {
	priv := sk.privateKey()
	var pk PublicKey
	copy(pk[:], priv.PublicKey.Bytes())
	return pk
}

// Sign signs msg reduced to a single field element.
func (sk SecretKey) Sign(msg []byte) ([]byte, error) {
	m := crypto.ToField(msg)
	sig, err := sk.privateKey().Sign(m[:], crypto.NewMiMC())
	if err != nil {
		return nil, fmt.Errorf("eddsa sign: %w", err)
	}
	return sig, nil
}

// Wipe zeroes the key in place.
func (sk *SecretKey) Wipe() { crypto.Wipe(sk[:]) }

// Encode returns the bech32 form. String is redacted.
func (sk SecretKey) Encode() string { return encode(HRPSecretKey, sk[:]) }

func (sk SecretKey) String() string { return HRPSecretKey + "1<redacted>" }

// ParseSecretKey decodes a tsknam1... string.
func ParseSecretKey(s string) (SecretKey, error) {
	var sk SecretKey
	err := decode(HRPSecretKey, s, sk[:])
	return sk, err
}

// Verify reports whether sig is a valid signature of msg by pk.
func (pk PublicKey) Verify(sig, msg []byte) bool {
	var pub eddsa.PublicKey
	if _, err := pub.SetBytes(pk[:]); err != nil {
		return false
	}
	m := crypto.ToField(msg)
	ok, err := pub.Verify(sig, m[:], crypto.NewMiMC())
	return err == nil && ok
}

// Address is the transparent address controlled by pk.
func (pk PublicKey) Address() Address {
	return Address(crypto.Hash160([]byte(HRPPublicKey), pk[:]))
}

// PaymentAddress is the shielded address whose notes pk may spend.
func (pk PublicKey) PaymentAddress() PaymentAddress {
	return PaymentAddress(crypto.MiMC([]byte(HRPPayment), pk[:]))
}

func (pk PublicKey) String() string { return encode(HRPPublicKey, pk[:]) }

func (pk PublicKey) MarshalText() ([]byte, error) { return []byte(pk.String()), nil }

func (pk *PublicKey) UnmarshalText(b []byte) error {
	v, err := ParsePublicKey(string(b))
	if err != nil {
		return err
	}
	*pk = v
	return nil
}

// ParsePublicKey decodes a tpknam1... string and checks the point is on the curve.
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey
	if err := decode(HRPPublicKey, s, pk[:]); err != nil {
		return pk, err
	}
	var pub eddsa.PublicKey
	if _, err := pub.SetBytes(pk[:]); err != nil {
		return PublicKey{}, fmt.Errorf("decode %q: invalid curve point: %w", s, err)
	}
	return pk, nil
}

// SpendAuthKey derives the key that authorizes spending notes owned by esk.
func (esk ExtendedSpendingKey) SpendAuthKey() SecretKey {
	return SecretKey(crypto.DeriveSeed(esk[:], "spend-auth"))
}

// PaymentAddress is the default shielded address of esk.
func (esk ExtendedSpendingKey) PaymentAddress() PaymentAddress {
	return esk.SpendAuthKey().Public().PaymentAddress()
}

// TransparentAddress is the transparent address esk can sign for.
func (esk ExtendedSpendingKey) TransparentAddress() Address {
	return esk.SpendAuthKey().Public().Address()
}

func (esk *ExtendedSpendingKey) Wipe() { crypto.Wipe(esk[:]) }

func (esk ExtendedSpendingKey) Encode() string { return encode(HRPSpendingKey, esk[:]) }

func (esk ExtendedSpendingKey) String() string { return HRPSpendingKey + "1<redacted>" }

// ParseSpendingKey decodes a zsknam1... string.
func ParseSpendingKey(s string) (ExtendedSpendingKey, error) {
	var esk ExtendedSpendingKey
	err := decode(HRPSpendingKey, s, esk[:])
	return esk, err
}
