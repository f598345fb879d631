package gasoracle

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/HelioDex/exchange-engine/common/types"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type priceSigner struct {
	mu    sync.Mutex
	price decimal.Decimal
	calls int
}

func (s *priceSigner) Address() string { return "0xowner" }
func (s *priceSigner) ChainID() uint64 { return 1 }

func (s *priceSigner) GetBalance(ctx context.Context, token types.TokenInfo) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (s *priceSigner) GetAllowance(ctx context.Context, token types.TokenInfo, spender string) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (s *priceSigner) Approve(ctx context.Context, token types.TokenInfo, spender string, amount *big.Int) (string, error) {
	return "", nil
}

func (s *priceSigner) ExecuteSwap(ctx context.Context, params *types.SwapParams) (string, error) {
	return "", nil
}

func (s *priceSigner) SendTransaction(ctx context.Context, req *types.TransactionRequest) (string, error) {
	return "", nil
}

func (s *priceSigner) WaitConfirmation(ctx context.Context, txHash string) (bool, error) {
	return true, nil
}

func (s *priceSigner) EstimateGas(ctx context.Context, req *types.TransactionRequest) uint64 {
	return 21000
}

func (s *priceSigner) GasPrice(ctx context.Context) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.price
}

func (s *priceSigner) setPrice(price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.price = price
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestStartPublishesInitialPrice(t *testing.T) {
	signer := &priceSigner{price: decimal.NewFromInt(30)}
	oracle := NewGasOracle(signer, quietLogger(), "ethereum", time.Hour)
	defer oracle.Stop()

	require.NoError(t, oracle.Start(context.Background()))
	assert.True(t, oracle.Current().Equal(decimal.NewFromInt(30)))
}

func TestStartTwiceFails(t *testing.T) {
	signer := &priceSigner{price: decimal.NewFromInt(30)}
	oracle := NewGasOracle(signer, quietLogger(), "ethereum", time.Hour)
	defer oracle.Stop()

	require.NoError(t, oracle.Start(context.Background()))
	assert.Error(t, oracle.Start(context.Background()))
}

func TestPollingRefreshesPrice(t *testing.T) {
	signer := &priceSigner{price: decimal.NewFromInt(30)}
	oracle := NewGasOracle(signer, quietLogger(), "ethereum", 5*time.Millisecond)
	defer oracle.Stop()

	require.NoError(t, oracle.Start(context.Background()))
	signer.setPrice(decimal.NewFromInt(55))

	require.Eventually(t, func() bool {
		return oracle.Current().Equal(decimal.NewFromInt(55))
	}, time.Second, 5*time.Millisecond)
}

func TestStopHaltsPolling(t *testing.T) {
	signer := &priceSigner{price: decimal.NewFromInt(30)}
	oracle := NewGasOracle(signer, quietLogger(), "ethereum", 5*time.Millisecond)

	require.NoError(t, oracle.Start(context.Background()))
	oracle.Stop()

	signer.mu.Lock()
	after := signer.calls
	signer.mu.Unlock()

	time.Sleep(50 * time.Millisecond)

	signer.mu.Lock()
	defer signer.mu.Unlock()
	assert.LessOrEqual(t, signer.calls, after+1)
}
