package transfer

import (
	"context"
	"fmt"

	"shieldxfer/internal/address"
)

// Normalize pairs raw with the token's precision as reported by the network.
// The result is valid for this request only.
func Normalize(ctx context.Context, client NetworkClient, token address.Address, raw uint64) (NormalizedAmount, error) {
	decimals, err := client.QueryDenomination(ctx, token)
	if err != nil {
		return NormalizedAmount{}, newError(DenominationQueryFailed, fmt.Errorf("token %s: %w", token, err))
	}
	return NewNormalizedAmount(raw, decimals), nil
}
