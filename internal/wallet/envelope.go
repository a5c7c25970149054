package wallet

import (
	"crypto/cipher"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"shieldxfer/internal/crypto"
)

const envelopeVersion = 1

// ErrWrongPassphrase is returned when sealed secrets cannot be opened.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted wallet secrets")

// scrypt cost parameters. Tests lower N.
var scryptN, scryptR, scryptP = 1 << 15, 8, 1

// envelope is the sealed form of the secret section.
type envelope struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_n"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Nonce  []byte `json:"nonce"`
	Cipher []byte `json:"cipher"`
}

func seal(passphrase string, plain []byte) (*envelope, error) {
	salt, err := crypto.RandomBytes(16)
	if err != nil {
		return nil, err
	}
	aead, err := deriveAEAD(passphrase, salt, scryptN, scryptR, scryptP)
	if err != nil {
		return nil, err
	}
	nonce, err := crypto.RandomBytes(aead.NonceSize())
	if err != nil {
		return nil, err
	}
	return &envelope{
		V:      envelopeVersion,
		Salt:   salt,
		N:      scryptN,
		R:      scryptR,
		P:      scryptP,
		Nonce:  nonce,
		Cipher: aead.Seal(nil, nonce, plain, salt),
	}, nil
}

func (e *envelope) open(passphrase string) ([]byte, error) {
	if e.V > envelopeVersion {
		return nil, fmt.Errorf("unsupported envelope version %d", e.V)
	}
	aead, err := deriveAEAD(passphrase, e.Salt, e.N, e.R, e.P)
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, e.Nonce, e.Cipher, e.Salt)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return plain, nil
}

func deriveAEAD(passphrase string, salt []byte, n, r, p int) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, n, r, p, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	defer crypto.Wipe(key)
	return chacha20poly1305.NewX(key)
}

// marshalSealed encodes v as JSON and seals it. The plaintext is wiped.
func marshalSealed(passphrase string, v any) (*envelope, error) {
	plain, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(plain)
	return seal(passphrase, plain)
}
