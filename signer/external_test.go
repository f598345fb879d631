package signer

import (
	"context"
	"math/big"
	"testing"

	commonerrors "github.com/HelioDex/exchange-engine/common/errors"
	"github.com/HelioDex/exchange-engine/common/types"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	address     string
	chainID     uint64
	callResult  []byte
	callErr     error
	sendHash    string
	sendErr     error
	gasPrice    *big.Int
	gasPriceErr error
	gasEstimate uint64
	gasErr      error
	sent        []*types.TransactionRequest
}

func (p *fakeProvider) Address() string { return p.address }
func (p *fakeProvider) ChainID() uint64 { return p.chainID }

func (p *fakeProvider) Call(ctx context.Context, to string, data []byte) ([]byte, error) {
	return p.callResult, p.callErr
}

func (p *fakeProvider) Balance(ctx context.Context, address string) (*big.Int, error) {
	return big.NewInt(1000), nil
}

func (p *fakeProvider) SendTransaction(ctx context.Context, req *types.TransactionRequest) (string, error) {
	p.sent = append(p.sent, req)
	return p.sendHash, p.sendErr
}

func (p *fakeProvider) TransactionReceipt(ctx context.Context, txHash string) (bool, bool, error) {
	return true, true, nil
}

func (p *fakeProvider) EstimateGas(ctx context.Context, req *types.TransactionRequest) (uint64, error) {
	return p.gasEstimate, p.gasErr
}

func (p *fakeProvider) GasPrice(ctx context.Context) (*big.Int, error) {
	return p.gasPrice, p.gasPriceErr
}

func testToken() types.TokenInfo {
	return types.TokenInfo{
		Symbol:          "USDC",
		ContractAddress: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		Decimals:        6,
		ChainID:         1,
	}
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestExternalNativeAllowanceIsUnlimited(t *testing.T) {
	s := NewExternalSigner(&fakeProvider{address: "0x1", chainID: 1}, testLogger())

	native := types.TokenInfo{Symbol: "ETH", ContractAddress: types.ZeroAddress, Decimals: 18, ChainID: 1}
	allowance, err := s.GetAllowance(context.Background(), native, "0xrouter")
	require.NoError(t, err)
	assert.Zero(t, allowance.Cmp(types.MaxUint256))
}

func TestExternalApproveClassifiesUserRejection(t *testing.T) {
	provider := &fakeProvider{
		address: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		chainID: 1,
		sendErr: errors.New("MetaMask Tx Signature: User denied transaction signature"),
	}
	s := NewExternalSigner(provider, testLogger())

	_, err := s.Approve(context.Background(), testToken(), "0xrouter", types.MaxUint256)
	require.Error(t, err)
	assert.True(t, commonerrors.IsUserRejected(err))
}

func TestExternalExecuteSwapSendsThroughProvider(t *testing.T) {
	provider := &fakeProvider{
		address:  "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		chainID:  1,
		sendHash: "0xabc",
	}
	s := NewExternalSigner(provider, testLogger())

	hash, err := s.ExecuteSwap(context.Background(), &types.SwapParams{
		TokenIn:      testToken(),
		TokenOut:     types.TokenInfo{Symbol: "DAI", ContractAddress: "0x6B175474E89094C44Da98b954EedeAC495271d0F", Decimals: 18, ChainID: 1},
		AmountIn:     big.NewInt(1000000),
		MinimumOut:   big.NewInt(990000),
		Route:        []string{"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", "0x6B175474E89094C44Da98b954EedeAC495271d0F"},
		Router:       "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D",
		Recipient:    provider.address,
		DeadlineUnix: 1700001200,
	})
	require.NoError(t, err)
	assert.Equal(t, "0xabc", hash)

	require.Len(t, provider.sent, 1)
	assert.Equal(t, "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D", provider.sent[0].To)
	assert.Zero(t, provider.sent[0].Value.Sign())
	assert.NotEmpty(t, provider.sent[0].Data)
}

func TestExternalGasFallbacks(t *testing.T) {
	provider := &fakeProvider{
		address:     "0x1",
		chainID:     1,
		gasErr:      errors.New("rpc unreachable"),
		gasPriceErr: errors.New("rpc unreachable"),
	}
	s := NewExternalSigner(provider, testLogger())

	gas := s.EstimateGas(context.Background(), &types.TransactionRequest{To: "0x2"})
	assert.Equal(t, uint64(fallbackGasLimit), gas)

	// No value ever fetched: fixed fallback.
	price := s.GasPrice(context.Background())
	assert.True(t, price.Equal(fallbackGasPrice))

	// After one successful fetch the last-known value survives later failures.
	provider.gasPriceErr = nil
	provider.gasPrice = big.NewInt(42_000_000_000)
	price = s.GasPrice(context.Background())
	assert.True(t, price.Equal(decimal.NewFromInt(42)))

	provider.gasPriceErr = errors.New("rpc unreachable")
	price = s.GasPrice(context.Background())
	assert.True(t, price.Equal(decimal.NewFromInt(42)))
}

func TestKeyHolderDerivesAddress(t *testing.T) {
	keys, err := newKeyHolder("ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	require.NoError(t, err)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", keys.Address().Hex())

	_, err = newKeyHolder("not-a-key")
	assert.Error(t, err)
}

func TestFactoryCreatesBackends(t *testing.T) {
	factory := NewSignerFactory()

	_, err := factory.CreateSigner(&BackendConfig{Backend: "unknown"}, testLogger())
	assert.Error(t, err)

	s, err := factory.CreateSigner(&BackendConfig{
		Backend:  BackendExternal,
		Provider: &fakeProvider{address: "0x1", chainID: 10},
	}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, uint64(10), s.ChainID())
}
