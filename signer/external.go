package signer

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	commonerrors "github.com/HelioDex/exchange-engine/common/errors"
	"github.com/HelioDex/exchange-engine/common/types"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// External is the signer backend that delegates every call to an injected
// wallet provider. Signing is opaque to the engine; the user may reject a
// request, which is a distinct, non-fatal outcome.
type External struct {
	provider types.WalletProvider
	logger   *logrus.Logger

	gasPriceMutex sync.RWMutex
	lastGasPrice  decimal.Decimal
}

// NewExternalSigner creates an external signer over the injected provider.
//
// Parameters:
// - provider: the wallet's request/response channel.
// - logger: the logger for logging events.
//
// Returns:
// - *External: the external signer instance.
func NewExternalSigner(provider types.WalletProvider, logger *logrus.Logger) *External {
	return &External{
		provider: provider,
		logger:   logger,
	}
}

// Address returns the account the wallet currently exposes.
func (s *External) Address() string {
	return s.provider.Address()
}

// ChainID returns the chain the wallet is currently connected to.
func (s *External) ChainID() uint64 {
	return s.provider.ChainID()
}

// GetBalance returns the account balance of the given token through the
// wallet's node.
func (s *External) GetBalance(ctx context.Context, token types.TokenInfo) (*big.Int, error) {
	if token.IsNative() {
		balance, err := s.provider.Balance(ctx, s.provider.Address())
		if err != nil {
			return nil, errors.Wrap(err, "failed to get native token balance")
		}
		return balance, nil
	}

	tokenAbi, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse token ABI")
	}

	data, err := tokenAbi.Pack("balanceOf", common.HexToAddress(s.provider.Address()))
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack balanceOf data")
	}

	result, err := s.provider.Call(ctx, token.ContractAddress, data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to call balanceOf")
	}

	if len(result) == 0 {
		return nil, errors.New("empty result from balanceOf call")
	}

	return new(big.Int).SetBytes(result), nil
}

// GetAllowance returns the spender's allowance for the given token through
// the wallet's node. Native assets need no approval and report the maximum
// representable allowance.
func (s *External) GetAllowance(ctx context.Context, token types.TokenInfo, spender string) (*big.Int, error) {
	if token.IsNative() {
		return new(big.Int).Set(types.MaxUint256), nil
	}

	tokenAbi, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse token ABI")
	}

	data, err := tokenAbi.Pack("allowance", common.HexToAddress(s.provider.Address()), common.HexToAddress(spender))
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack allowance data")
	}

	result, err := s.provider.Call(ctx, token.ContractAddress, data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to call allowance")
	}

	if len(result) == 0 {
		return nil, errors.New("empty result from allowance call")
	}

	return new(big.Int).SetBytes(result), nil
}

// Approve asks the wallet to sign an approval for the spender and returns the
// transaction hash.
func (s *External) Approve(ctx context.Context, token types.TokenInfo, spender string, amount *big.Int) (string, error) {
	tokenAbi, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return "", errors.Wrap(err, "failed to parse token ABI")
	}

	data, err := tokenAbi.Pack("approve", common.HexToAddress(spender), amount)
	if err != nil {
		return "", errors.Wrap(err, "failed to pack approve data")
	}

	hash, err := s.provider.SendTransaction(ctx, &types.TransactionRequest{
		To:      token.ContractAddress,
		Value:   big.NewInt(0),
		Data:    data,
		ChainID: token.ChainID,
	})
	if err != nil {
		return "", classifyProviderError(err)
	}

	return hash, nil
}

// ExecuteSwap asks the wallet to sign a swap through the on-chain router and
// returns the transaction hash.
func (s *External) ExecuteSwap(ctx context.Context, params *types.SwapParams) (string, error) {
	routerAbi, err := abi.JSON(strings.NewReader(RouterABI))
	if err != nil {
		return "", errors.Wrap(err, "failed to parse router ABI")
	}

	path := make([]common.Address, len(params.Route))
	for i, hop := range params.Route {
		path[i] = common.HexToAddress(hop)
	}

	recipient := common.HexToAddress(params.Recipient)
	deadline := big.NewInt(params.DeadlineUnix)

	var data []byte
	value := big.NewInt(0)

	switch {
	case params.TokenIn.IsNative():
		data, err = routerAbi.Pack("swapExactETHForTokens", params.MinimumOut, path, recipient, deadline)
		value = params.AmountIn
	case params.TokenOut.IsNative():
		data, err = routerAbi.Pack("swapExactTokensForETH", params.AmountIn, params.MinimumOut, path, recipient, deadline)
	default:
		data, err = routerAbi.Pack("swapExactTokensForTokens", params.AmountIn, params.MinimumOut, path, recipient, deadline)
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to pack swap data")
	}

	hash, err := s.provider.SendTransaction(ctx, &types.TransactionRequest{
		To:      params.Router,
		Value:   value,
		Data:    data,
		ChainID: params.TokenIn.ChainID,
	})
	if err != nil {
		return "", classifyProviderError(err)
	}

	return hash, nil
}

// SendTransaction asks the wallet to sign and broadcast a prepared
// transaction, such as a bridge step, and returns the transaction hash.
func (s *External) SendTransaction(ctx context.Context, req *types.TransactionRequest) (string, error) {
	hash, err := s.provider.SendTransaction(ctx, req)
	if err != nil {
		return "", classifyProviderError(err)
	}
	return hash, nil
}

// WaitConfirmation polls the wallet's node for the transaction receipt until
// it is mined, then reports whether the receipt status is successful.
func (s *External) WaitConfirmation(ctx context.Context, txHash string) (bool, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.WithField("txHash", txHash).Error("WaitConfirmation: context done")
			return false, ctx.Err()

		case <-ticker.C:
			found, success, err := s.provider.TransactionReceipt(ctx, txHash)
			if err != nil {
				return false, errors.Wrap(err, "failed to get transaction receipt")
			}
			if !found {
				continue
			}
			return success, nil
		}
	}
}

// EstimateGas estimates gas through the wallet's node. On failure it logs and
// returns a fixed conservative fallback instead of propagating the error.
func (s *External) EstimateGas(ctx context.Context, req *types.TransactionRequest) uint64 {
	estimated, err := s.provider.EstimateGas(ctx, req)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to estimate gas, using fallback")
		return fallbackGasLimit
	}
	return estimated
}

// GasPrice returns the wallet node's current gas price in gwei. On failure it
// returns the last successfully fetched value, or a fixed fallback.
func (s *External) GasPrice(ctx context.Context) decimal.Decimal {
	wei, err := s.provider.GasPrice(ctx)
	if err == nil && wei != nil {
		gwei := decimal.NewFromBigInt(wei, -9)
		s.gasPriceMutex.Lock()
		s.lastGasPrice = gwei
		s.gasPriceMutex.Unlock()
		return gwei
	}

	if err != nil {
		s.logger.WithError(err).Warn("Failed to get gas price, using last known value")
	}

	s.gasPriceMutex.RLock()
	last := s.lastGasPrice
	s.gasPriceMutex.RUnlock()

	if last.IsZero() {
		return fallbackGasPrice
	}
	return last
}

// classifyProviderError maps wallet provider failures onto the engine's error
// taxonomy. User rejection phrasing varies between wallets.
func classifyProviderError(err error) error {
	if commonerrors.IsUserRejected(err) {
		return err
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "rejected") || strings.Contains(msg, "denied") {
		return errors.Wrap(commonerrors.ErrUserRejected, err.Error())
	}

	return err
}
