package transfer

import (
	"context"

	"shieldxfer/internal/address"
	"shieldxfer/internal/chain"
)

// Wallet looks up aliases. Lookups return the canonical encoded form the
// wallet stores, or an error wrapping ErrNotFound.
type Wallet interface {
	FindAddress(alias string) (string, error)
	FindPaymentAddr(alias string) (string, error)
	FindSpendingKey(alias string) (string, error)
	FindPublicKey(alias string) (string, error)
	SecretKeys() (map[string]address.SecretKey, error)
}

// KeyInserter is implemented by wallets that can store a keypair.
type KeyInserter interface {
	InsertKeypair(alias string, sk address.SecretKey, force bool) error
}

// NetworkClient is the node connection.
type NetworkClient interface {
	QueryDenomination(ctx context.Context, token address.Address) (uint8, error)
	NativeToken(ctx context.Context) (address.Address, error)
	Submit(ctx context.Context, tx *chain.Tx) (chain.ProcessResponse, error)
}

// TxBuilder turns an intent into an unsigned transaction plus the data
// describing who must sign it.
type TxBuilder interface {
	Build(ctx context.Context, intent *TransferIntent) (*chain.Tx, *SigningData, uint64, error)
}

// TxSigner is the signing procedure: it signs tx with every key given.
type TxSigner interface {
	Sign(ctx context.Context, tx *chain.Tx, keys []address.SecretKey) (*chain.Tx, error)
}

// Auditor records security-relevant events.
type Auditor interface {
	Audit(event string, details map[string]any)
}

type nopAuditor struct{}

func (nopAuditor) Audit(string, map[string]any) {}
