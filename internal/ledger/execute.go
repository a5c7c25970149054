package ledger

import (
	"errors"
	"fmt"
	"math"

	"shieldxfer/internal/address"
	"shieldxfer/internal/chain"
	"shieldxfer/internal/masp"
)

var (
	errInsufficient = errors.New("insufficient balance")
	errOverflow     = errors.New("balance overflow")
)

// execute validates tx and, if commit is set, applies it. Caller holds the lock
// (read lock is enough when commit is false).
func (l *Ledger) execute(tx *chain.Tx, commit bool) (chain.Hash, chain.ResultCode, string) {
	st := &l.state
	hash, err := tx.Hash()
	if err != nil {
		return hash, chain.CodeInvalidTx, err.Error()
	}
	h := tx.Header
	if h.ChainID != st.ChainID {
		return hash, chain.CodeInvalidChainID, fmt.Sprintf("chain id %q, want %q", h.ChainID, st.ChainID)
	}
	if _, seen := st.Applied[hash.String()]; seen {
		return hash, chain.CodeReplayTx, "transaction already applied"
	}
	if epoch := st.epoch(); h.Epoch > epoch || epoch-h.Epoch > 1 {
		return hash, chain.CodeExpiredTx, fmt.Sprintf("tx epoch %d, current %d", h.Epoch, epoch)
	}

	sighash, err := tx.Sighash()
	if err != nil {
		return hash, chain.CodeInvalidTx, err.Error()
	}
	signers := make(map[address.PublicKey]bool, len(tx.Signatures))
	byAddr := make(map[address.Address]bool, len(tx.Signatures))
	for _, s := range tx.Signatures {
		if !s.PubKey.Verify(s.Sig, sighash[:]) {
			return hash, chain.CodeInvalidSig, fmt.Sprintf("bad signature from %s", s.PubKey)
		}
		signers[s.PubKey] = true
		byAddr[s.PubKey.Address()] = true
	}
	if !signers[h.FeePayer] {
		return hash, chain.CodeInvalidSig, "fee payer did not sign"
	}
	if h.FeeToken != st.NativeToken {
		return hash, chain.CodeFeeError, "fee must be paid in the native token"
	}
	if h.FeeAmount < st.MinFee {
		return hash, chain.CodeFeeError, fmt.Sprintf("fee %d below minimum %d", h.FeeAmount, st.MinFee)
	}
	if len(tx.Transfers) == 0 {
		return hash, chain.CodeInvalidTx, "no transfers"
	}

	b := newBatch(st)
	for i, tr := range tx.Transfers {
		if code, info := b.transfer(tr, signers, byAddr); !code.OK() {
			return hash, code, fmt.Sprintf("transfer %d: %s", i, info)
		}
	}
	if err := b.debit(st.NativeToken, h.FeePayer.Address(), h.FeeAmount); err != nil {
		return hash, chain.CodeFeeError, fmt.Sprintf("fee payer %s: %v", h.FeePayer.Address(), err)
	}
	if commit {
		b.commit()
		st.Applied[hash.String()] = st.Height
	}
	return hash, chain.CodeOK, ""
}

type balKey struct {
	token address.Address
	owner address.Address
}

// batch stages the effects of one transaction on top of committed state.
type batch struct {
	st         *State
	balances   map[balKey]uint64
	nullifiers map[string]bool
	notes      []masp.Note
	newNotes   map[string]bool
}

func newBatch(st *State) *batch {
	return &batch{
		st:         st,
		balances:   make(map[balKey]uint64),
		nullifiers: make(map[string]bool),
		newNotes:   make(map[string]bool),
	}
}

func (b *batch) balance(k balKey) uint64 {
	if v, ok := b.balances[k]; ok {
		return v
	}
	return b.st.Balances[k.token.String()][k.owner.String()]
}

func (b *batch) debit(token, owner address.Address, amount uint64) error {
	k := balKey{token, owner}
	cur := b.balance(k)
	if cur < amount {
		return fmt.Errorf("%w: have %d, need %d", errInsufficient, cur, amount)
	}
	b.balances[k] = cur - amount
	return nil
}

func (b *batch) credit(token, owner address.Address, amount uint64) error {
	k := balKey{token, owner}
	cur := b.balance(k)
	if cur > math.MaxUint64-amount {
		return errOverflow
	}
	b.balances[k] = cur + amount
	return nil
}

func (b *batch) spent(nf string) bool {
	return b.st.Nullifiers[nf] || b.nullifiers[nf]
}

func addChecked(acc *uint64, v uint64) bool {
	if *acc > math.MaxUint64-v {
		return false
	}
	*acc += v
	return true
}

func (b *batch) transfer(tr chain.Transfer, signers map[address.PublicKey]bool, byAddr map[address.Address]bool) (chain.ResultCode, string) {
	if _, ok := b.st.Tokens[tr.Token.String()]; !ok {
		return chain.CodeUnknownToken, fmt.Sprintf("token %s", tr.Token)
	}
	var in, out uint64
	for _, src := range tr.Sources {
		if !byAddr[src.Owner] {
			return chain.CodeInvalidSig, fmt.Sprintf("source %s did not sign", src.Owner)
		}
		if !addChecked(&in, src.Amount) {
			return chain.CodeInvalidTx, errOverflow.Error()
		}
		if err := b.debit(tr.Token, src.Owner, src.Amount); err != nil {
			return chain.CodeInsufficientFunds, fmt.Sprintf("source %s: %v", src.Owner, err)
		}
	}
	for _, sp := range tr.Spends {
		n, ok := b.st.Notes[sp.Commitment.String()]
		if !ok {
			return chain.CodeInvalidNote, fmt.Sprintf("unknown note %s", sp.Commitment)
		}
		if chain.Hash(n.Nullifier()) != sp.Nullifier {
			return chain.CodeInvalidNote, fmt.Sprintf("nullifier mismatch for note %s", sp.Commitment)
		}
		nf := sp.Nullifier.String()
		if b.spent(nf) {
			return chain.CodeInvalidNote, fmt.Sprintf("note %s already spent", sp.Commitment)
		}
		if n.Token != tr.Token {
			return chain.CodeInvalidNote, fmt.Sprintf("note %s holds another token", sp.Commitment)
		}
		if sp.AuthKey.PaymentAddress() != n.Owner || !signers[sp.AuthKey] {
			return chain.CodeInvalidSig, fmt.Sprintf("spend of note %s not authorized", sp.Commitment)
		}
		if !addChecked(&in, n.Value) {
			return chain.CodeInvalidTx, errOverflow.Error()
		}
		b.nullifiers[nf] = true
	}
	for _, dst := range tr.Targets {
		if !addChecked(&out, dst.Amount) {
			return chain.CodeInvalidTx, errOverflow.Error()
		}
		if err := b.credit(tr.Token, dst.Owner, dst.Amount); err != nil {
			return chain.CodeInvalidTx, fmt.Sprintf("target %s: %v", dst.Owner, err)
		}
	}
	for _, n := range tr.Outputs {
		if n.Token != tr.Token {
			return chain.CodeInvalidNote, "output holds another token"
		}
		if n.Value == 0 {
			return chain.CodeInvalidNote, "zero-value output"
		}
		cm := chain.Hash(n.Commitment()).String()
		if _, exists := b.st.Notes[cm]; exists || b.newNotes[cm] {
			return chain.CodeInvalidNote, fmt.Sprintf("duplicate output %s", cm)
		}
		if !addChecked(&out, n.Value) {
			return chain.CodeInvalidTx, errOverflow.Error()
		}
		b.newNotes[cm] = true
		b.notes = append(b.notes, n)
	}
	if in != out {
		return chain.CodeInvalidTx, fmt.Sprintf("unbalanced transfer: in %d, out %d", in, out)
	}
	return chain.CodeOK, ""
}

func (b *batch) commit() {
	for k, v := range b.balances {
		tok := k.token.String()
		if b.st.Balances[tok] == nil {
			b.st.Balances[tok] = make(map[string]uint64)
		}
		b.st.Balances[tok][k.owner.String()] = v
	}
	for nf := range b.nullifiers {
		b.st.Nullifiers[nf] = true
	}
	for _, n := range b.notes {
		b.st.addNote(n)
	}
}
