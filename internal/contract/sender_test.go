package contract_test

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therandomchoice/ponzi-cli/internal/chain"
	"github.com/therandomchoice/ponzi-cli/internal/contract"
)

const from = "0x00000000000000000000000000000000000000aa"

type fakeBackend struct {
	reqs []chain.TxRequest
	hash string
	err  error
}

func (f *fakeBackend) SendTransaction(_ context.Context, req chain.TxRequest) (string, error) {
	f.reqs = append(f.reqs, req)
	return f.hash, f.err
}

func TestSendDepositCarriesValue(t *testing.T) {
	b := &fakeBackend{hash: "0xabc"}
	s := contract.NewSender(b, contract.PonziABI())

	value, _ := new(big.Int).SetString("1500000000000000000", 10)
	hash, err := s.Send(context.Background(), from, ponziAddr, value, contract.FnDeposit)
	require.NoError(t, err)
	assert.Equal(t, "0xabc", hash)

	require.Len(t, b.reqs, 1)
	req := b.reqs[0]
	assert.Equal(t, from, req.From)
	assert.Equal(t, ponziAddr, req.To)
	assert.Equal(t, "d0e30db0", hex.EncodeToString(req.Data))
	assert.Equal(t, value.String(), req.Value.String())

	value.SetInt64(1)
	assert.Equal(t, "1500000000000000000", req.Value.String(), "request must not alias caller's value")
}

func TestSendWithdrawEncodesAmount(t *testing.T) {
	b := &fakeBackend{hash: "0x1"}
	s := contract.NewSender(b, contract.PonziABI())

	_, err := s.Send(context.Background(), from, ponziAddr, nil, contract.FnWithdraw, "1000000000000000000")
	require.NoError(t, err)
	require.Len(t, b.reqs, 1)
	assert.Equal(t, "2e1a7d4d", hex.EncodeToString(b.reqs[0].Data[:4]))
	assert.Equal(t, int64(1e18), new(big.Int).SetBytes(b.reqs[0].Data[4:]).Int64())
	assert.Nil(t, b.reqs[0].Value)
}

func TestSendRejectsValueOnNonPayable(t *testing.T) {
	b := &fakeBackend{}
	s := contract.NewSender(b, contract.PonziABI())
	_, err := s.Send(context.Background(), from, ponziAddr, big.NewInt(1), contract.FnWithdrawAll)
	assert.ErrorIs(t, err, contract.ErrNotPayable)
	assert.Empty(t, b.reqs)
}

func TestSendRejectsReadFunction(t *testing.T) {
	b := &fakeBackend{}
	_, err := contract.NewSender(b, contract.PonziABI()).Send(context.Background(), from, ponziAddr, nil, contract.FnBalanceOf, from)
	assert.ErrorContains(t, err, "not a write function")
	assert.Empty(t, b.reqs)
}

func TestSendRejectsBadContractAddress(t *testing.T) {
	b := &fakeBackend{}
	_, err := contract.NewSender(b, contract.PonziABI()).Send(context.Background(), from, "0x123", nil, contract.FnWithdrawAll)
	assert.ErrorContains(t, err, "invalid contract address")
	assert.Empty(t, b.reqs)
}

func TestSendPropagatesBackendError(t *testing.T) {
	rejected := errors.New("user rejected")
	b := &fakeBackend{err: rejected}
	_, err := contract.NewSender(b, contract.PonziABI()).Send(context.Background(), from, ponziAddr, nil, contract.FnWithdrawAll)
	assert.ErrorIs(t, err, rejected)
}
