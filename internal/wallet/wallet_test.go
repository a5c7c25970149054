package wallet

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shieldxfer/internal/address"
	"shieldxfer/internal/transfer"
)

func init() {
	// keep scrypt fast in tests
	scryptN = 1 << 10
}

func TestInsertAndFind(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, "devnet", "")
	require.NoError(t, err)

	sk, err := address.GenerateSecretKey()
	require.NoError(t, err)
	esk, err := address.GenerateSpendingKey()
	require.NoError(t, err)
	require.NoError(t, w.InsertKeypair("alice", sk, false))
	require.NoError(t, w.InsertSpendingKey("donor", esk, false))
	require.NoError(t, w.InsertPaymentAddr("charity", esk.PaymentAddress(), false))

	got, err := w.FindAddress("alice")
	require.NoError(t, err)
	assert.Equal(t, sk.Public().Address().String(), got)

	got, err = w.FindPublicKey("alice")
	require.NoError(t, err)
	assert.Equal(t, sk.Public().String(), got)

	got, err = w.FindSpendingKey("donor")
	require.NoError(t, err)
	assert.Equal(t, esk.Encode(), got)

	got, err = w.FindPaymentAddr("donor")
	require.NoError(t, err)
	assert.Equal(t, esk.PaymentAddress().String(), got)

	_, err = w.FindSpendingKey("charity")
	assert.ErrorIs(t, err, transfer.ErrNotFound)

	keys, err := w.SecretKeys()
	require.NoError(t, err)
	assert.Equal(t, map[string]address.SecretKey{"alice": sk}, keys)
}

func TestInsertWithoutForce(t *testing.T) {
	w, err := Open(t.TempDir(), "devnet", "")
	require.NoError(t, err)
	require.NoError(t, w.InsertAddress("bob", address.Address{1}, false))
	assert.ErrorIs(t, w.InsertAddress("bob", address.Address{2}, false), ErrAliasExists)
	require.NoError(t, w.InsertAddress("bob", address.Address{2}, true))

	got, err := w.FindAddress("bob")
	require.NoError(t, err)
	assert.Equal(t, address.Address{2}.String(), got)
}

func TestFailedSaveLeavesWalletUnchanged(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, "devnet", "")
	require.NoError(t, err)
	require.NoError(t, w.InsertAddress("bob", address.Address{1}, false))

	// a file where the chain directory should be makes every write fail
	chainDir := filepath.Dir(Path(dir, "devnet"))
	require.NoError(t, os.RemoveAll(chainDir))
	require.NoError(t, os.WriteFile(chainDir, nil, 0o600))

	sk, err := address.GenerateSecretKey()
	require.NoError(t, err)
	require.Error(t, w.InsertKeypair("alice", sk, false))
	_, err = w.FindAddress("alice")
	assert.ErrorIs(t, err, transfer.ErrNotFound)
	_, err = w.FindPublicKey("alice")
	assert.ErrorIs(t, err, transfer.ErrNotFound)
	keys, err := w.SecretKeys()
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.Error(t, w.InsertAddress("bob", address.Address{2}, true))
	got, err := w.FindAddress("bob")
	require.NoError(t, err)
	assert.Equal(t, address.Address{1}.String(), got)

	esk, err := address.GenerateSpendingKey()
	require.NoError(t, err)
	require.Error(t, w.InsertSpendingKey("donor", esk, false))
	_, err = w.FindSpendingKey("donor")
	assert.ErrorIs(t, err, transfer.ErrNotFound)
}

func TestPersistence(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, "devnet", "")
	require.NoError(t, err)
	sk, err := address.GenerateSecretKey()
	require.NoError(t, err)
	require.NoError(t, w.InsertKeypair("alice", sk, false))

	info, err := os.Stat(Path(dir, "devnet"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Open(dir, "devnet", "")
	require.NoError(t, err)
	keys, err := again.SecretKeys()
	require.NoError(t, err)
	assert.Equal(t, sk, keys["alice"])

	// another chain gets its own file
	other, err := Open(dir, "mainnet", "")
	require.NoError(t, err)
	_, err = other.FindAddress("alice")
	assert.ErrorIs(t, err, transfer.ErrNotFound)
}

func TestSealedSecrets(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, "devnet", "correct horse")
	require.NoError(t, err)
	esk, err := address.GenerateSpendingKey()
	require.NoError(t, err)
	require.NoError(t, w.InsertSpendingKey("donor", esk, false))

	raw, err := os.ReadFile(Path(dir, "devnet"))
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), esk.Encode()))
	assert.Contains(t, string(raw), esk.PaymentAddress().String())

	_, err = Open(dir, "devnet", "wrong")
	assert.ErrorIs(t, err, ErrWrongPassphrase)
	_, err = Open(dir, "devnet", "")
	assert.ErrorIs(t, err, ErrWrongPassphrase)

	again, err := Open(dir, "devnet", "correct horse")
	require.NoError(t, err)
	got, err := again.FindSpendingKey("donor")
	require.NoError(t, err)
	assert.Equal(t, esk.Encode(), got)
}

func TestAliases(t *testing.T) {
	w, err := Open(t.TempDir(), "devnet", "")
	require.NoError(t, err)
	sk, err := address.GenerateSecretKey()
	require.NoError(t, err)
	require.NoError(t, w.InsertKeypair("b", sk, false))
	require.NoError(t, w.InsertPaymentAddr("a", address.PaymentAddress{1}, false))

	entries := w.Aliases()
	require.Len(t, entries, 3)
	assert.Equal(t, "a", entries[0].Alias)
	assert.Equal(t, transfer.KindShielded, entries[0].Kind)
	assert.Equal(t, transfer.KindTransparent, entries[1].Kind)
	assert.Equal(t, transfer.KindPublicKey, entries[2].Kind)
	for _, e := range entries {
		assert.NotEqual(t, sk.Encode(), e.Value)
	}
}

func TestConcurrentAccess(t *testing.T) {
	w, err := Open(t.TempDir(), "devnet", "")
	require.NoError(t, err)
	require.NoError(t, w.InsertAddress("seed", address.Address{9}, false))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = w.FindAddress("seed")
		}()
		go func(i int) {
			defer wg.Done()
			_ = w.InsertAddress("seed", address.Address{byte(i)}, true)
		}(i)
	}
	wg.Wait()
	_, err = w.FindAddress("seed")
	assert.NoError(t, err)
}
