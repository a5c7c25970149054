// ledger.go - Devnet ledger: token registry, transparent balances and the shielded note set.
//
// The Ledger is the state machine behind the node. Transactions are checked against
// committed state (CheckTx), queued (Broadcast) and executed in blocks (Commit), or
// executed immediately in their own block (ApplyTx). Every spent note leaves its
// nullifier behind, so a note can never be spent twice. State is persisted as a
// single JSON file.
//
// Ledger is safe for concurrent use.

package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"shieldxfer/internal/address"
	"shieldxfer/internal/chain"
	"shieldxfer/internal/crypto"
	"shieldxfer/internal/masp"
)

// TokenInfo describes a registered token.
type TokenInfo struct {
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// State is the persisted part of the ledger.
type State struct {
	ChainID     string                       `json:"chain_id"`
	Height      uint64                       `json:"height"`
	EpochLength uint64                       `json:"epoch_length"`
	MinFee      uint64                       `json:"min_fee"`
	NativeToken address.Address              `json:"native_token"`
	Tokens      map[string]TokenInfo         `json:"tokens"`
	Balances    map[string]map[string]uint64 `json:"balances"`
	Notes       map[string]masp.Note         `json:"notes"`
	NoteOrder   []string                     `json:"note_order"`
	Nullifiers  map[string]bool              `json:"nullifiers"`
	Applied     map[string]uint64            `json:"applied"`
}

// Ledger wraps State with a lock and a mempool.
type Ledger struct {
	mu         sync.RWMutex
	state      State
	mempool    []*chain.Tx
	pending    map[chain.Hash]bool
	maxMempool int
}

// ErrUnknownToken is returned by queries about unregistered tokens.
var ErrUnknownToken = errors.New("unknown token")

// TokenAddress derives the address of a token from its symbol.
func TokenAddress(symbol string) address.Address {
	return address.Address(crypto.Hash160([]byte("token"), []byte(symbol)))
}

// New builds a ledger from genesis.
func New(g Genesis) (*Ledger, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	l := &Ledger{
		state: State{
			ChainID:     g.ChainID,
			EpochLength: g.EpochLength,
			MinFee:      g.MinFee,
			Tokens:      make(map[string]TokenInfo),
			Balances:    make(map[string]map[string]uint64),
			Notes:       make(map[string]masp.Note),
			Nullifiers:  make(map[string]bool),
			Applied:     make(map[string]uint64),
		},
		pending:    make(map[chain.Hash]bool),
		maxMempool: g.MaxMempool,
	}
	for _, t := range g.Tokens {
		addr := TokenAddress(t.Symbol)
		l.state.Tokens[addr.String()] = TokenInfo{Symbol: t.Symbol, Decimals: t.Decimals}
		if t.Symbol == g.NativeSymbol {
			l.state.NativeToken = addr
		}
	}
	for _, b := range g.Balances {
		if err := l.Mint(TokenAddress(b.Token), b.Owner, b.Amount); err != nil {
			return nil, fmt.Errorf("genesis balance: %w", err)
		}
	}
	for _, n := range g.Notes {
		if _, err := l.MintNote(TokenAddress(n.Token), n.Owner, n.Value); err != nil {
			return nil, fmt.Errorf("genesis note: %w", err)
		}
	}
	return l, nil
}

// ChainID returns the chain identifier.
func (l *Ledger) ChainID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.ChainID
}

// Height returns the last committed block height.
func (l *Ledger) Height() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Height
}

func (st *State) epoch() uint64 {
	if st.EpochLength == 0 {
		return 0
	}
	return st.Height / st.EpochLength
}

// FeeParams returns what a transaction builder needs to know about the chain.
func (l *Ledger) FeeParams() chain.FeeParams {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return chain.FeeParams{
		ChainID:     l.state.ChainID,
		Epoch:       l.state.epoch(),
		Height:      l.state.Height,
		NativeToken: l.state.NativeToken,
		MinFee:      l.state.MinFee,
	}
}

// Denomination returns the decimal precision of token.
func (l *Ledger) Denomination(token address.Address) (uint8, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	info, ok := l.state.Tokens[token.String()]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownToken, token)
	}
	return info.Decimals, nil
}

// Token returns the registry entry for token.
func (l *Ledger) Token(token address.Address) (TokenInfo, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	info, ok := l.state.Tokens[token.String()]
	return info, ok
}

// Balance returns the transparent balance of owner in token.
func (l *Ledger) Balance(token, owner address.Address) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Balances[token.String()][owner.String()]
}

// UnspentNotes returns owner's unspent notes of token, oldest first.
// A zero token matches every token.
func (l *Ledger) UnspentNotes(owner address.PaymentAddress, token address.Address) []masp.Note {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []masp.Note
	for _, key := range l.state.NoteOrder {
		n := l.state.Notes[key]
		if n.Owner != owner || (!token.IsZero() && n.Token != token) {
			continue
		}
		nf := chain.Hash(n.Nullifier())
		if l.state.Nullifiers[nf.String()] {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Mint credits a transparent balance. Genesis and faucet use only.
func (l *Ledger) Mint(token, owner address.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.state.Tokens[token.String()]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, token)
	}
	b := newBatch(&l.state)
	if err := b.credit(token, owner, amount); err != nil {
		return err
	}
	b.commit()
	return nil
}

// MintNote creates a shielded note out of thin air. Genesis and faucet use only.
func (l *Ledger) MintNote(token address.Address, owner address.PaymentAddress, value uint64) (masp.Note, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.state.Tokens[token.String()]; !ok {
		return masp.Note{}, fmt.Errorf("%w: %s", ErrUnknownToken, token)
	}
	n, err := masp.NewNote(token, value, owner)
	if err != nil {
		return masp.Note{}, err
	}
	l.state.addNote(n)
	return n, nil
}

func (st *State) addNote(n masp.Note) {
	cm := chain.Hash(n.Commitment()).String()
	st.Notes[cm] = n
	st.NoteOrder = append(st.NoteOrder, cm)
}

// CheckTx validates tx against committed state without changing anything.
func (l *Ledger) CheckTx(tx *chain.Tx) (chain.ResultCode, string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, code, info := l.execute(tx, false)
	return code, info
}

// DryRun is CheckTx in response form.
func (l *Ledger) DryRun(tx *chain.Tx) *chain.DryRun {
	code, info := l.CheckTx(tx)
	return &chain.DryRun{Code: code, Info: info}
}

// ApplyTx executes tx in a block of its own.
func (l *Ledger) ApplyTx(tx *chain.Tx) *chain.Applied {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Height++
	hash, code, info := l.execute(tx, true)
	return &chain.Applied{Code: code, Hash: hash.String(), Height: l.state.Height, Info: info}
}

// Broadcast checks tx and queues it for the next block.
func (l *Ledger) Broadcast(tx *chain.Tx) *chain.Broadcast {
	l.mu.Lock()
	defer l.mu.Unlock()
	hash, code, info := l.execute(tx, false)
	if code.OK() && l.pending[hash] {
		code, info = chain.CodeReplayTx, "already in mempool"
	}
	if code.OK() && l.maxMempool > 0 && len(l.mempool) >= l.maxMempool {
		code, info = chain.CodeMempoolFull, "mempool full"
	}
	if code.OK() {
		l.mempool = append(l.mempool, tx)
		l.pending[hash] = true
	}
	return &chain.Broadcast{Code: code, Hash: hash, Log: info}
}

// MempoolSize returns the number of queued transactions.
func (l *Ledger) MempoolSize() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.mempool)
}

// Commit executes every queued transaction in a new block and returns their results.
func (l *Ledger) Commit() []*chain.Applied {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Height++
	results := make([]*chain.Applied, 0, len(l.mempool))
	for _, tx := range l.mempool {
		hash, code, info := l.execute(tx, true)
		results = append(results, &chain.Applied{Code: code, Hash: hash.String(), Height: l.state.Height, Info: info})
	}
	l.mempool = nil
	l.pending = make(map[chain.Hash]bool)
	return results
}

// SaveToFile writes the committed state as JSON. The mempool is not persisted.
func (l *Ledger) SaveToFile(path string) error {
	l.mu.RLock()
	b, err := json.MarshalIndent(&l.state, "", "  ")
	l.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}
	tmp := fmt.Sprintf("%s.tmp-%d", path, time.Now().UnixNano())
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}

// LoadFromFile restores a ledger saved with SaveToFile.
func LoadFromFile(path string) (*Ledger, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("decode ledger %s: %w", path, err)
	}
	if st.Tokens == nil {
		st.Tokens = make(map[string]TokenInfo)
	}
	if st.Balances == nil {
		st.Balances = make(map[string]map[string]uint64)
	}
	if st.Notes == nil {
		st.Notes = make(map[string]masp.Note)
	}
	if st.Nullifiers == nil {
		st.Nullifiers = make(map[string]bool)
	}
	if st.Applied == nil {
		st.Applied = make(map[string]uint64)
	}
	return &Ledger{state: st, pending: make(map[chain.Hash]bool)}, nil
}

// SetMaxMempool bounds the number of queued transactions. Zero means unbounded.
func (l *Ledger) SetMaxMempool(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maxMempool = n
}
