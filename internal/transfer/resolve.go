package transfer

import (
	"errors"
	"fmt"
	"strings"

	"shieldxfer/internal/address"
)

// Resolve looks alias up in w under kind and decodes the stored value.
func Resolve(w Wallet, alias string, kind Kind) (AccountRef, error) {
	var (
		raw string
		err error
	)
	switch kind {
	case KindTransparent:
		raw, err = w.FindAddress(alias)
	case KindShielded:
		raw, err = w.FindPaymentAddr(alias)
	case KindSpendingKey:
		raw, err = w.FindSpendingKey(alias)
	case KindPublicKey:
		raw, err = w.FindPublicKey(alias)
	default:
		return nil, aliasError(MalformedIdentity, alias, fmt.Errorf("unsupported kind %s", kind))
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, aliasError(UnknownAlias, alias, fmt.Errorf("no %s", kind))
		}
		return nil, aliasError(MalformedIdentity, alias, err)
	}

	ref, err := decodeRef(raw, kind)
	if err != nil {
		return nil, aliasError(MalformedIdentity, alias, err)
	}
	return ref, nil
}

func decodeRef(raw string, kind Kind) (AccountRef, error) {
	switch kind {
	case KindTransparent:
		a, err := address.ParseAddress(raw)
		return Transparent{Address: a}, err
	case KindShielded:
		pa, err := address.ParsePaymentAddress(raw)
		return Shielded{PaymentAddress: pa}, err
	case KindSpendingKey:
		esk, err := address.ParseSpendingKey(raw)
		return SpendingKey{Key: esk}, err
	case KindPublicKey:
		pk, err := address.ParsePublicKey(raw)
		return PublicKey{Key: pk}, err
	}
	return nil, fmt.Errorf("unsupported kind %s", kind)
}

// ResolveFirst tries kinds in order and returns the first alias hit. A
// malformed entry stops the search.
func ResolveFirst(w Wallet, alias string, kinds ...Kind) (AccountRef, error) {
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		ref, err := Resolve(w, alias, k)
		if err == nil {
			return ref, nil
		}
		if !IsKind(err, UnknownAlias) {
			return nil, err
		}
		names = append(names, k.String())
	}
	return nil, aliasError(UnknownAlias, alias, fmt.Errorf("no %s", strings.Join(names, " or ")))
}
