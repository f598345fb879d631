package allowance

import (
	"context"
	"math/big"
	"testing"

	commonerrors "github.com/HelioDex/exchange-engine/common/errors"
	"github.com/HelioDex/exchange-engine/common/types"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSigner struct {
	allowance      *big.Int
	allowanceAfter *big.Int
	approveErr     error
	receiptSuccess bool

	approveCalls   int
	approvedAmount *big.Int
}

func (s *fakeSigner) Address() string { return "0xowner" }
func (s *fakeSigner) ChainID() uint64 { return 1 }

func (s *fakeSigner) GetBalance(ctx context.Context, token types.TokenInfo) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (s *fakeSigner) GetAllowance(ctx context.Context, token types.TokenInfo, spender string) (*big.Int, error) {
	if s.approveCalls > 0 && s.allowanceAfter != nil {
		return s.allowanceAfter, nil
	}
	return s.allowance, nil
}

func (s *fakeSigner) Approve(ctx context.Context, token types.TokenInfo, spender string, amount *big.Int) (string, error) {
	s.approveCalls++
	s.approvedAmount = amount
	if s.approveErr != nil {
		return "", s.approveErr
	}
	return "0xapprove", nil
}

func (s *fakeSigner) ExecuteSwap(ctx context.Context, params *types.SwapParams) (string, error) {
	return "", nil
}

func (s *fakeSigner) SendTransaction(ctx context.Context, req *types.TransactionRequest) (string, error) {
	return "", nil
}

func (s *fakeSigner) WaitConfirmation(ctx context.Context, txHash string) (bool, error) {
	return s.receiptSuccess, nil
}

func (s *fakeSigner) EstimateGas(ctx context.Context, req *types.TransactionRequest) uint64 {
	return 21000
}

func (s *fakeSigner) GasPrice(ctx context.Context) decimal.Decimal {
	return decimal.NewFromInt(30)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func usdc() types.TokenInfo {
	return types.TokenInfo{Symbol: "USDC", ContractAddress: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Decimals: 6, ChainID: 1}
}

func TestSufficientNativeNeedsNoApproval(t *testing.T) {
	m := NewManager(&fakeSigner{}, quietLogger())

	native := types.TokenInfo{Symbol: "ETH", ContractAddress: types.ZeroAddress, Decimals: 18, ChainID: 1}
	ok, err := m.Sufficient(context.Background(), native, "0xrouter", big.NewInt(1_000_000))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEnsureApprovalSkipsWhenAllowanceCovers(t *testing.T) {
	signer := &fakeSigner{allowance: big.NewInt(2_000_000)}
	m := NewManager(signer, quietLogger())

	txHash, err := m.EnsureApproval(context.Background(), usdc(), "0xrouter", big.NewInt(1_000_000))
	require.NoError(t, err)
	assert.Empty(t, txHash)
	assert.Equal(t, 0, signer.approveCalls)
}

func TestEnsureApprovalSubmitsInfiniteApprove(t *testing.T) {
	signer := &fakeSigner{
		allowance:      big.NewInt(0),
		allowanceAfter: types.MaxUint256,
		receiptSuccess: true,
	}
	m := NewManager(signer, quietLogger())

	txHash, err := m.EnsureApproval(context.Background(), usdc(), "0xrouter", big.NewInt(1_000_000))
	require.NoError(t, err)
	assert.Equal(t, "0xapprove", txHash)
	assert.Equal(t, 1, signer.approveCalls)
	assert.Zero(t, signer.approvedAmount.Cmp(types.MaxUint256))
}

func TestEnsureApprovalRevertedReceipt(t *testing.T) {
	signer := &fakeSigner{
		allowance:      big.NewInt(0),
		receiptSuccess: false,
	}
	m := NewManager(signer, quietLogger())

	_, err := m.EnsureApproval(context.Background(), usdc(), "0xrouter", big.NewInt(1_000_000))
	assert.ErrorIs(t, err, commonerrors.ErrTransactionFailed)
}

func TestEnsureApprovalRereadsAllowance(t *testing.T) {
	// The approval confirms but the token clamps the authorized amount.
	signer := &fakeSigner{
		allowance:      big.NewInt(0),
		allowanceAfter: big.NewInt(500),
		receiptSuccess: true,
	}
	m := NewManager(signer, quietLogger())

	_, err := m.EnsureApproval(context.Background(), usdc(), "0xrouter", big.NewInt(1_000_000))
	assert.ErrorIs(t, err, commonerrors.ErrTransactionFailed)
}

func TestEnsureApprovalPropagatesRejection(t *testing.T) {
	signer := &fakeSigner{
		allowance:  big.NewInt(0),
		approveErr: commonerrors.ErrUserRejected,
	}
	m := NewManager(signer, quietLogger())

	_, err := m.EnsureApproval(context.Background(), usdc(), "0xrouter", big.NewInt(1_000_000))
	assert.True(t, commonerrors.IsUserRejected(err))
}
