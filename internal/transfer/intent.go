package transfer

import (
	"errors"
	"fmt"

	"shieldxfer/internal/address"
)

// BuildIntent assembles a transfer. Any combination of transparent and
// shielded source and target is accepted; whether it can be funded is the
// builder's concern.
//
// A fee payer that resolved to a public key selects ExplicitPayer. Anything
// else, including nil, selects DisposableSelfFunded with source as the
// unshielding source.
func BuildIntent(source, target AccountRef, token address.Address, amount NormalizedAmount, memo []byte, feePayer AccountRef) (*TransferIntent, error) {
	if err := checkRef("source", source); err != nil {
		return nil, newError(BuildFailed, err)
	}
	if err := checkRef("target", target); err != nil {
		return nil, newError(BuildFailed, err)
	}

	fee, err := selectFeeStrategy(source, feePayer)
	if err != nil {
		return nil, newError(BuildFailed, err)
	}

	var m []byte
	if memo != nil {
		m = append([]byte(nil), memo...)
	}
	return &TransferIntent{
		source: source,
		target: target,
		token:  token,
		amount: amount,
		memo:   m,
		fee:    fee,
	}, nil
}

func checkRef(role string, ref AccountRef) error {
	switch ref.(type) {
	case Transparent, Shielded, SpendingKey, PublicKey:
		return nil
	case nil:
		return fmt.Errorf("%s is not set", role)
	default:
		return fmt.Errorf("%s has unsupported type %T", role, ref)
	}
}

func selectFeeStrategy(source, feePayer AccountRef) (FeeStrategy, error) {
	switch p := feePayer.(type) {
	case PublicKey:
		return &ExplicitPayer{PayerKey: p.Key}, nil
	case Transparent, Shielded, SpendingKey, nil:
		return newDisposableSelfFunded(source)
	default:
		return nil, errors.New("unsupported fee payer type")
	}
}
