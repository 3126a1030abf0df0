package wallet

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known Hardhat/Anvil test account #0. Never fund on mainnet.
const (
	testPrivKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testSignerAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func testTx() *types.Transaction {
	to := common.HexToAddress("0x933033cb97Df7fb4b32453b4aaa6776C4dC8Cee0")
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(5),
		Nonce:     3,
		GasTipCap: big.NewInt(1e9),
		GasFeeCap: big.NewInt(2e9),
		Gas:       60_000,
		To:        &to,
		Value:     big.NewInt(1e18),
		Data:      []byte{0xd0, 0xe3, 0x0d, 0xb0},
	})
}

func signingWallet(t *testing.T) (*Wallet, *InMemoryKeystore) {
	t.Helper()
	ks := NewInMemoryKeystore()
	ref, err := ks.Store("w", testPrivKeyHex)
	require.NoError(t, err)
	return &Wallet{Name: "w", Address: testSignerAddr, Type: TypeSigning, KeyRef: ref}, ks
}

func TestSignerAddress(t *testing.T) {
	w, ks := signingWallet(t)
	assert.Equal(t, testSignerAddr, NewSigner(w, ks).Address())
}

func TestSignTxRecoversSender(t *testing.T) {
	w, ks := signingWallet(t)
	raw, err := NewSigner(w, ks).SignTx(testTx(), big.NewInt(5))
	require.NoError(t, err)

	var tx types.Transaction
	require.NoError(t, tx.UnmarshalBinary(raw))
	assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
	assert.Equal(t, int64(5), tx.ChainId().Int64())

	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(5)), &tx)
	require.NoError(t, err)
	assert.Equal(t, testSignerAddr, from.Hex())
}

func TestSignTxWatchOnly(t *testing.T) {
	w := &Wallet{Name: "watcher", Address: testSignerAddr, Type: TypeWatchOnly}
	_, err := NewSigner(w, NewInMemoryKeystore()).SignTx(testTx(), big.NewInt(5))
	assert.ErrorIs(t, err, ErrWatchOnly)
}

func TestSignTxMissingKeyIsRejection(t *testing.T) {
	w := &Wallet{Name: "missing", Address: testSignerAddr, Type: TypeSigning, KeyRef: "ponzi.missing"}
	_, err := NewSigner(w, NewInMemoryKeystore()).SignTx(testTx(), big.NewInt(5))
	assert.ErrorIs(t, err, ErrSignatureRejected)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestSignTxKeyAddressMismatch(t *testing.T) {
	w, ks := signingWallet(t)
	w.Address = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	_, err := NewSigner(w, ks).SignTx(testTx(), big.NewInt(5))
	assert.ErrorContains(t, err, "derives")
}

func TestUnlock(t *testing.T) {
	w, ks := signingWallet(t)
	assert.NoError(t, NewSigner(w, ks).Unlock())
}
