package wallet_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therandomchoice/ponzi-cli/internal/wallet"
)

// Well-known Hardhat/Anvil test accounts #0 and #1. Never fund on mainnet.
const (
	key0  = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	addr0 = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	key1  = "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
	addr1 = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"

	watchAddr = "0x1234567890abcdef1234567890abcdef12345678"
)

func TestAddWatchOnlyWallet(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())

	require.NoError(t, mgr.Add("mywallet", &wallet.Wallet{Address: watchAddr, Type: wallet.TypeWatchOnly}))

	w, err := mgr.Get("mywallet")
	require.NoError(t, err)
	assert.Equal(t, "mywallet", w.Name)
	assert.Equal(t, wallet.TypeWatchOnly, w.Type)
	assert.False(t, w.CanSign())
	assert.NotEmpty(t, w.CreatedAt)
}

func TestAddWatchOnlyBadAddress(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	err := mgr.Add("bad", &wallet.Wallet{Address: "0x123", Type: wallet.TypeWatchOnly})
	assert.ErrorIs(t, err, wallet.ErrInvalidAddress)
}

func TestAddDuplicateWalletErrors(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())

	require.NoError(t, mgr.Add("dup", &wallet.Wallet{Address: watchAddr, Type: wallet.TypeWatchOnly}))
	err := mgr.Add("dup", &wallet.Wallet{Address: watchAddr, Type: wallet.TypeWatchOnly})
	assert.ErrorIs(t, err, wallet.ErrWalletExists)
}

func TestAddInvalidName(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	for _, name := range []string{"", "  ", "a b", "a/b"} {
		_, err := mgr.AddWithKey(name, key0)
		assert.ErrorIs(t, err, wallet.ErrInvalidName, "%q", name)
	}
}

func TestAddSigningWallet(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())

	w, err := mgr.AddWithKey("signer", key0)
	require.NoError(t, err)
	assert.Equal(t, wallet.TypeSigning, w.Type)
	assert.Equal(t, addr0, w.Address)
	assert.True(t, w.IsDefault, "first signing wallet becomes default")
	assert.True(t, w.CanSign())

	stored, err := mgr.Keystore().Retrieve(w.KeyRef)
	require.NoError(t, err)
	assert.Equal(t, key0[2:], stored, "keys are stored without 0x")
}

func TestInvalidPrivateKey(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	_, err := mgr.AddWithKey("bad", "not-a-valid-key")
	assert.ErrorIs(t, err, wallet.ErrInvalidKey)
}

func TestGenerateWallet(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())

	a, err := mgr.Generate("g1")
	require.NoError(t, err)
	b, err := mgr.Generate("g2")
	require.NoError(t, err)

	assert.Len(t, a.Address, 42)
	assert.NotEqual(t, a.Address, b.Address)

	_, err = mgr.Generate("g1")
	assert.ErrorIs(t, err, wallet.ErrWalletExists)
}

func TestListDefaultFirst(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	_, _ = mgr.AddWithKey("zed", key0)
	_, _ = mgr.AddWithKey("amy", key1)
	require.NoError(t, mgr.Add("watch", &wallet.Wallet{Address: watchAddr, Type: wallet.TypeWatchOnly}))

	all, err := mgr.List()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "zed", all[0].Name, "default first")
	assert.Equal(t, "amy", all[1].Name)
	assert.Equal(t, "watch", all[2].Name)

	signing, err := mgr.Signing()
	require.NoError(t, err)
	require.Len(t, signing, 2)
	assert.Equal(t, addr0, signing[0].Address)
}

func TestRemoveWalletDeletesKey(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	w, err := mgr.AddWithKey("w1", key0)
	require.NoError(t, err)

	require.NoError(t, mgr.Remove("w1"))

	_, err = mgr.Get("w1")
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound)
	_, err = mgr.Keystore().Retrieve(w.KeyRef)
	assert.ErrorIs(t, err, wallet.ErrKeyNotFound)
}

func TestRemoveNonExistentWallet(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	assert.ErrorIs(t, mgr.Remove("ghost"), wallet.ErrWalletNotFound)
}

func TestSetDefault(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	_, _ = mgr.AddWithKey("w1", key0)
	_, _ = mgr.AddWithKey("w2", key1)

	require.NoError(t, mgr.SetDefault("w2"))

	def := mgr.Default()
	require.NotNil(t, def)
	assert.Equal(t, "w2", def.Name)

	assert.ErrorIs(t, mgr.SetDefault("ghost"), wallet.ErrWalletNotFound)
}

func TestDefaultWalletWithSingleWallet(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	require.NoError(t, mgr.Add("only", &wallet.Wallet{Address: watchAddr, Type: wallet.TypeWatchOnly}))

	def := mgr.Default()
	require.NotNil(t, def)
	assert.Equal(t, "only", def.Name)
}

func TestGetByAddressCaseInsensitive(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	_, _ = mgr.AddWithKey("w", key0)

	w, err := mgr.GetByAddress("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")
	require.NoError(t, err)
	assert.Equal(t, "w", w.Name)

	_, err = mgr.GetByAddress(watchAddr)
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound)
}
