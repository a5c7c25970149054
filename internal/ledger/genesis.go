package ledger

import (
	"errors"
	"fmt"

	"shieldxfer/internal/address"
)

// GenesisToken registers a token by symbol.
type GenesisToken struct {
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// GenesisBalance funds a transparent account.
type GenesisBalance struct {
	Token  string          `json:"token"`
	Owner  address.Address `json:"owner"`
	Amount uint64          `json:"amount"`
}

// GenesisNote funds a shielded account.
type GenesisNote struct {
	Token string                 `json:"token"`
	Owner address.PaymentAddress `json:"owner"`
	Value uint64                 `json:"value"`
}

// Genesis is the initial chain configuration.
type Genesis struct {
	ChainID      string           `json:"chain_id"`
	EpochLength  uint64           `json:"epoch_length"`
	MinFee       uint64           `json:"min_fee"`
	NativeSymbol string           `json:"native_symbol"`
	MaxMempool   int              `json:"max_mempool"`
	Tokens       []GenesisToken   `json:"tokens"`
	Balances     []GenesisBalance `json:"balances,omitempty"`
	Notes        []GenesisNote    `json:"notes,omitempty"`
}

// DefaultGenesis is a single-token devnet.
func DefaultGenesis(chainID string) Genesis {
	return Genesis{
		ChainID:      chainID,
		EpochLength:  100,
		MinFee:       10,
		NativeSymbol: "NAM",
		MaxMempool:   1000,
		Tokens:       []GenesisToken{{Symbol: "NAM", Decimals: 6}},
	}
}

// Validate checks genesis for consistency.
func (g Genesis) Validate() error {
	if g.ChainID == "" {
		return errors.New("genesis: chain_id must be set")
	}
	seen := make(map[string]bool, len(g.Tokens))
	native := false
	for _, t := range g.Tokens {
		if t.Symbol == "" {
			return errors.New("genesis: token symbol must be set")
		}
		if seen[t.Symbol] {
			return fmt.Errorf("genesis: duplicate token %s", t.Symbol)
		}
		if t.Decimals > 18 {
			return fmt.Errorf("genesis: token %s has %d decimals, max 18", t.Symbol, t.Decimals)
		}
		seen[t.Symbol] = true
		native = native || t.Symbol == g.NativeSymbol
	}
	if !native {
		return fmt.Errorf("genesis: native token %q is not registered", g.NativeSymbol)
	}
	for _, b := range g.Balances {
		if !seen[b.Token] {
			return fmt.Errorf("genesis: balance in unregistered token %s", b.Token)
		}
	}
	for _, n := range g.Notes {
		if !seen[n.Token] {
			return fmt.Errorf("genesis: note in unregistered token %s", n.Token)
		}
	}
	return nil
}
