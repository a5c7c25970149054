// wallet.go - Alias store for addresses and keys, one JSON file per chain.
//
// Public entries (addresses, payment addresses, public keys) are stored in the
// clear. Secret entries (transparent secret keys and spending keys) are sealed
// with a passphrase when one is given, and stored in the clear otherwise, which
// is only meant for devnets.
//
// A *Wallet is a handle passed to whoever needs it. Each method takes the lock
// for its own duration only.

package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"shieldxfer/internal/address"
	"shieldxfer/internal/crypto"
	"shieldxfer/internal/transfer"
)

// FileName is the wallet file inside the chain directory.
const FileName = "wallet.json"

// ErrAliasExists is returned by an insert without force when the alias is taken.
var ErrAliasExists = errors.New("alias already in use")

type secrets struct {
	SecretKeys   map[string]string `json:"secret_keys"`
	SpendingKeys map[string]string `json:"spending_keys"`
}

func newSecrets() secrets {
	return secrets{SecretKeys: map[string]string{}, SpendingKeys: map[string]string{}}
}

type walletFile struct {
	ChainID      string            `json:"chain_id"`
	Addresses    map[string]string `json:"addresses"`
	PaymentAddrs map[string]string `json:"payment_addrs"`
	PublicKeys   map[string]string `json:"public_keys"`
	Secrets      *secrets          `json:"secrets,omitempty"`
	Sealed       *envelope         `json:"sealed,omitempty"`
}

var (
	_ transfer.Wallet      = (*Wallet)(nil)
	_ transfer.KeyInserter = (*Wallet)(nil)
)

// Wallet is an open wallet.
type Wallet struct {
	mu         sync.RWMutex
	path       string
	chainID    string
	passphrase string

	addresses    map[string]string
	paymentAddrs map[string]string
	publicKeys   map[string]string
	sec          secrets
}

// Path returns the wallet file for chainID under baseDir.
func Path(baseDir, chainID string) string {
	return filepath.Join(baseDir, chainID, FileName)
}

// Open loads the wallet for chainID under baseDir, or returns an empty one if
// no file exists yet. The file is not created until Save.
func Open(baseDir, chainID, passphrase string) (*Wallet, error) {
	w := &Wallet{
		path:         Path(baseDir, chainID),
		chainID:      chainID,
		passphrase:   passphrase,
		addresses:    map[string]string{},
		paymentAddrs: map[string]string{},
		publicKeys:   map[string]string{},
		sec:          newSecrets(),
	}
	if err := w.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return w, nil
}

// ChainID returns the chain the wallet belongs to.
func (w *Wallet) ChainID() string { return w.chainID }

// Load replaces the in-memory contents with the file's.
func (w *Wallet) Load() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := os.ReadFile(w.path)
	if err != nil {
		return fmt.Errorf("read wallet: %w", err)
	}
	var f walletFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decode wallet %s: %w", w.path, err)
	}
	if f.ChainID != "" && f.ChainID != w.chainID {
		return fmt.Errorf("wallet %s belongs to chain %q, not %q", w.path, f.ChainID, w.chainID)
	}

	sec := newSecrets()
	switch {
	case f.Sealed != nil:
		if w.passphrase == "" {
			return fmt.Errorf("%w: wallet is sealed and no passphrase was given", ErrWrongPassphrase)
		}
		plain, err := f.Sealed.open(w.passphrase)
		if err != nil {
			return err
		}
		err = json.Unmarshal(plain, &sec)
		crypto.Wipe(plain)
		if err != nil {
			return fmt.Errorf("decode wallet secrets: %w", err)
		}
	case f.Secrets != nil:
		sec = *f.Secrets
	}

	w.addresses = orEmpty(f.Addresses)
	w.paymentAddrs = orEmpty(f.PaymentAddrs)
	w.publicKeys = orEmpty(f.PublicKeys)
	w.sec = secrets{SecretKeys: orEmpty(sec.SecretKeys), SpendingKeys: orEmpty(sec.SpendingKeys)}
	return nil
}

func orEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

// Save writes the wallet to disk atomically.
func (w *Wallet) Save() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.save()
}

// save requires the lock.
func (w *Wallet) save() error {
	f := walletFile{
		ChainID:      w.chainID,
		Addresses:    w.addresses,
		PaymentAddrs: w.paymentAddrs,
		PublicKeys:   w.publicKeys,
	}
	if w.passphrase != "" {
		env, err := marshalSealed(w.passphrase, w.sec)
		if err != nil {
			return fmt.Errorf("seal wallet secrets: %w", err)
		}
		f.Sealed = env
	} else {
		sec := w.sec
		f.Secrets = &sec
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0o700); err != nil {
		return fmt.Errorf("create wallet dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(w.path), ".wallet-*.json")
	if err != nil {
		return fmt.Errorf("save wallet: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("save wallet: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save wallet: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("save wallet: %w", err)
	}
	return os.Rename(tmp.Name(), w.path)
}

func (w *Wallet) find(pick func(*Wallet) map[string]string, kind, alias string) (string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, ok := pick(w)[alias]
	if !ok {
		return "", fmt.Errorf("%s %q: %w", kind, alias, transfer.ErrNotFound)
	}
	return v, nil
}

// FindAddress returns the transparent address stored under alias.
func (w *Wallet) FindAddress(alias string) (string, error) {
	return w.find(func(w *Wallet) map[string]string { return w.addresses }, "address", alias)
}

// FindPaymentAddr returns the payment address stored under alias.
func (w *Wallet) FindPaymentAddr(alias string) (string, error) {
	return w.find(func(w *Wallet) map[string]string { return w.paymentAddrs }, "payment address", alias)
}

// FindSpendingKey returns the encoded spending key stored under alias.
func (w *Wallet) FindSpendingKey(alias string) (string, error) {
	return w.find(func(w *Wallet) map[string]string { return w.sec.SpendingKeys }, "spending key", alias)
}

// FindPublicKey returns the public key stored under alias.
func (w *Wallet) FindPublicKey(alias string) (string, error) {
	return w.find(func(w *Wallet) map[string]string { return w.publicKeys }, "public key", alias)
}

// SecretKeys decodes every transparent secret key. The caller owns the map and
// should wipe it.
func (w *Wallet) SecretKeys() (map[string]address.SecretKey, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[string]address.SecretKey, len(w.sec.SecretKeys))
	for alias, enc := range w.sec.SecretKeys {
		sk, err := address.ParseSecretKey(enc)
		if err != nil {
			return nil, fmt.Errorf("secret key %q: %w", alias, err)
		}
		out[alias] = sk
	}
	return out, nil
}

func taken(alias string, force bool, maps ...map[string]string) error {
	if alias == "" {
		return errors.New("empty alias")
	}
	if force {
		return nil
	}
	for _, m := range maps {
		if _, ok := m[alias]; ok {
			return fmt.Errorf("%w: %q", ErrAliasExists, alias)
		}
	}
	return nil
}

// put sets m[alias] and returns a func that restores the previous entry.
func put(m map[string]string, alias, v string) func() {
	old, had := m[alias]
	m[alias] = v
	return func() {
		if had {
			m[alias] = old
		} else {
			delete(m, alias)
		}
	}
}

// commit saves the wallet. If the write fails the staged edits are undone so
// the handle matches the file. Requires the write lock.
func (w *Wallet) commit(undo ...func()) error {
	if err := w.save(); err != nil {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		return err
	}
	return nil
}

// InsertKeypair stores sk, its public key and its address under alias and
// saves the wallet.
func (w *Wallet) InsertKeypair(alias string, sk address.SecretKey, force bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := taken(alias, force, w.sec.SecretKeys, w.publicKeys, w.addresses); err != nil {
		return err
	}
	pk := sk.Public()
	return w.commit(
		put(w.sec.SecretKeys, alias, sk.Encode()),
		put(w.publicKeys, alias, pk.String()),
		put(w.addresses, alias, pk.Address().String()),
	)
}

// InsertSpendingKey stores esk and the payment address it derives under alias
// and saves the wallet.
func (w *Wallet) InsertSpendingKey(alias string, esk address.ExtendedSpendingKey, force bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := taken(alias, force, w.sec.SpendingKeys, w.paymentAddrs); err != nil {
		return err
	}
	return w.commit(
		put(w.sec.SpendingKeys, alias, esk.Encode()),
		put(w.paymentAddrs, alias, esk.PaymentAddress().String()),
	)
}

// InsertAddress stores a watch-only transparent address.
func (w *Wallet) InsertAddress(alias string, a address.Address, force bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := taken(alias, force, w.addresses); err != nil {
		return err
	}
	return w.commit(put(w.addresses, alias, a.String()))
}

// InsertPaymentAddr stores a payment address.
func (w *Wallet) InsertPaymentAddr(alias string, pa address.PaymentAddress, force bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := taken(alias, force, w.paymentAddrs); err != nil {
		return err
	}
	return w.commit(put(w.paymentAddrs, alias, pa.String()))
}

// Entry is one public wallet record.
type Entry struct {
	Alias string
	Kind  transfer.Kind
	Value string
}

// Aliases lists public entries sorted by alias then kind. Spending keys are
// listed by their payment address only.
func (w *Wallet) Aliases() []Entry {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var out []Entry
	add := func(m map[string]string, k transfer.Kind) {
		for alias, v := range m {
			out = append(out, Entry{Alias: alias, Kind: k, Value: v})
		}
	}
	add(w.addresses, transfer.KindTransparent)
	add(w.paymentAddrs, transfer.KindShielded)
	add(w.publicKeys, transfer.KindPublicKey)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Alias != out[j].Alias {
			return out[i].Alias < out[j].Alias
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}
