package signer

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	commonerrors "github.com/HelioDex/exchange-engine/common/errors"
	"github.com/HelioDex/exchange-engine/common/types"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	// TxTypeLegacy represents the legacy transaction type.
	TxTypeLegacy = 0
	// TxTypeEIP1559 represents the EIP-1559 transaction type.
	TxTypeEIP1559 = 2

	// fallbackGasLimit is the conservative gas limit returned when estimation fails.
	fallbackGasLimit = 400000

	// receiptPollInterval is the interval between receipt lookups while waiting
	// for confirmation.
	receiptPollInterval = time.Second
)

// fallbackGasPrice is the gas price in gwei reported when no value has ever
// been fetched successfully.
var fallbackGasPrice = decimal.NewFromInt(30)

// Internal is the signer backend that holds a raw private key in memory for
// the session and signs locally against a configured RPC endpoint. It is only
// usable while the key custody module reports unlocked and the active
// account's chain matches the token's chain.
type Internal struct {
	config  *types.ChainConfig
	custody types.KeyCustody
	logger  *logrus.Logger
	keys    *keyHolder

	clientMutex sync.RWMutex
	client      *ethclient.Client

	gasPriceMutex sync.RWMutex
	lastGasPrice  decimal.Decimal
}

// NewInternalSigner creates an internal signer bound to the given chain.
//
// Parameters:
// - config: the chain configuration including the RPC endpoint.
// - custody: the key custody module gating use of the session key.
// - privateKeyHex: the session's hex-encoded private key.
// - logger: the logger for logging events.
//
// Returns:
// - *Internal: the internal signer instance.
// - error: an error if the RPC client or key cannot be constructed.
func NewInternalSigner(config *types.ChainConfig, custody types.KeyCustody, privateKeyHex string, logger *logrus.Logger) (*Internal, error) {
	client, err := ethclient.Dial(config.RpcUrl)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create client")
	}

	keys, err := newKeyHolder(privateKeyHex)
	if err != nil {
		return nil, err
	}

	return &Internal{
		config:  config,
		custody: custody,
		logger:  logger,
		keys:    keys,
		client:  client,
	}, nil
}

// Close releases the underlying RPC client.
func (s *Internal) Close() {
	s.clientMutex.Lock()
	if s.client != nil {
		s.client.Close()
		s.client = nil
	}
	s.clientMutex.Unlock()
}

// Address returns the active account address.
func (s *Internal) Address() string {
	return s.keys.Address().Hex()
}

// ChainID returns the chain the signer is bound to.
func (s *Internal) ChainID() uint64 {
	return s.config.ChainID
}

// usable checks that the custody module permits signing for the given chain.
func (s *Internal) usable(chainID uint64) error {
	if !s.custody.IsUnlocked() {
		return commonerrors.ErrSignerLocked
	}
	if s.custody.ActiveChainID() != chainID {
		return commonerrors.ErrChainMismatch
	}
	return nil
}

// GetBalance returns the account balance of the given token in its smallest
// unit. Native balances are read directly; token balances through balanceOf.
func (s *Internal) GetBalance(ctx context.Context, token types.TokenInfo) (*big.Int, error) {
	s.clientMutex.RLock()
	client := s.client
	s.clientMutex.RUnlock()

	if client == nil {
		return nil, errors.New("client not initialized")
	}

	if token.IsNative() {
		balance, err := client.BalanceAt(ctx, s.keys.Address(), nil)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get native token balance")
		}
		return balance, nil
	}

	tokenAbi, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse token ABI")
	}

	data, err := tokenAbi.Pack("balanceOf", s.keys.Address())
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack balanceOf data")
	}

	tokenAddr := common.HexToAddress(token.ContractAddress)
	result, err := client.CallContract(ctx, ethereum.CallMsg{
		To:   &tokenAddr,
		Data: data,
	}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to call balanceOf")
	}

	if len(result) == 0 {
		return nil, errors.New("empty result from balanceOf call")
	}

	return new(big.Int).SetBytes(result), nil
}

// GetAllowance returns the spender's allowance for the given token. Native
// assets need no approval, so their allowance is reported as the maximum
// representable value.
func (s *Internal) GetAllowance(ctx context.Context, token types.TokenInfo, spender string) (*big.Int, error) {
	if token.IsNative() {
		return new(big.Int).Set(types.MaxUint256), nil
	}

	s.clientMutex.RLock()
	client := s.client
	s.clientMutex.RUnlock()

	if client == nil {
		return nil, errors.New("client not initialized")
	}

	tokenAbi, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse token ABI")
	}

	data, err := tokenAbi.Pack("allowance", s.keys.Address(), common.HexToAddress(spender))
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack allowance data")
	}

	tokenAddr := common.HexToAddress(token.ContractAddress)
	result, err := client.CallContract(ctx, ethereum.CallMsg{
		To:   &tokenAddr,
		Data: data,
	}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to call allowance")
	}

	if len(result) == 0 {
		return nil, errors.New("empty result from allowance call")
	}

	return new(big.Int).SetBytes(result), nil
}

// Approve submits an approval transaction authorizing the spender for the
// given amount and returns the transaction hash.
func (s *Internal) Approve(ctx context.Context, token types.TokenInfo, spender string, amount *big.Int) (string, error) {
	if err := s.usable(token.ChainID); err != nil {
		return "", err
	}

	tokenAbi, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return "", errors.Wrap(err, "failed to parse token ABI")
	}

	data, err := tokenAbi.Pack("approve", common.HexToAddress(spender), amount)
	if err != nil {
		return "", errors.Wrap(err, "failed to pack approve data")
	}

	tx, err := s.prepareTransaction(ctx, token.ContractAddress, big.NewInt(0), data, 0)
	if err != nil {
		return "", err
	}

	signedTx, err := s.signAndSendTransaction(ctx, tx)
	if err != nil {
		return "", err
	}

	return signedTx.Hash().Hex(), nil
}

// ExecuteSwap signs and broadcasts a swap through the on-chain router and
// returns the transaction hash.
func (s *Internal) ExecuteSwap(ctx context.Context, params *types.SwapParams) (string, error) {
	if err := s.usable(params.TokenIn.ChainID); err != nil {
		return "", err
	}

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

	tx, err := s.prepareTransaction(ctx, params.Router, value, data, 0)
	if err != nil {
		return "", err
	}

	signedTx, err := s.signAndSendTransaction(ctx, tx)
	if err != nil {
		return "", err
	}

	return signedTx.Hash().Hex(), nil
}

// SendTransaction signs and broadcasts a prepared transaction, such as a
// bridge step, and returns the transaction hash.
func (s *Internal) SendTransaction(ctx context.Context, req *types.TransactionRequest) (string, error) {
	if err := s.usable(req.ChainID); err != nil {
		return "", err
	}

	tx, err := s.prepareTransaction(ctx, req.To, req.Value, req.Data, req.GasLimit)
	if err != nil {
		return "", err
	}

	signedTx, err := s.signAndSendTransaction(ctx, tx)
	if err != nil {
		return "", err
	}

	return signedTx.Hash().Hex(), nil
}

// WaitConfirmation polls for the transaction receipt until it is mined and
// the configured number of confirmation blocks has passed, then reports
// whether the receipt status is successful.
func (s *Internal) WaitConfirmation(ctx context.Context, txHash string) (bool, error) {
	s.clientMutex.RLock()
	client := s.client
	s.clientMutex.RUnlock()

	if client == nil {
		return false, errors.New("client not initialized")
	}

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.WithField("txHash", txHash).Error("WaitConfirmation: context done")
			return false, ctx.Err()

		case <-ticker.C:
			receipt, err := client.TransactionReceipt(ctx, common.HexToHash(txHash))
			if err != nil {
				if errors.Is(err, ethereum.NotFound) {
					continue
				}
				return false, errors.Wrap(err, "failed to get transaction receipt")
			}

			currentBlock, err := client.BlockNumber(ctx)
			if err != nil {
				return false, errors.Wrap(err, "failed to get current block number")
			}

			if currentBlock < receipt.BlockNumber.Uint64()+s.config.WaitNBlocks {
				continue
			}

			return receipt.Status == ethtypes.ReceiptStatusSuccessful, nil
		}
	}
}

// EstimateGas estimates gas for the request. On failure it logs and returns a
// fixed conservative fallback instead of propagating the error.
func (s *Internal) EstimateGas(ctx context.Context, req *types.TransactionRequest) uint64 {
	s.clientMutex.RLock()
	client := s.client
	s.clientMutex.RUnlock()

	if client == nil {
		return fallbackGasLimit
	}

	to := common.HexToAddress(req.To)
	estimated, err := client.EstimateGas(ctx, ethereum.CallMsg{
		From:  s.keys.Address(),
		To:    &to,
		Value: req.Value,
		Data:  req.Data,
	})
	if err != nil {
		s.logger.WithField("chain", s.config.Name).WithError(err).Warn("Failed to estimate gas, using fallback")
		return fallbackGasLimit
	}

	return estimated
}

// GasPrice returns the current gas price in gwei. On failure it returns the
// last successfully fetched value, or a fixed fallback when none exists.
func (s *Internal) GasPrice(ctx context.Context) decimal.Decimal {
	s.clientMutex.RLock()
	client := s.client
	s.clientMutex.RUnlock()

	if client != nil {
		wei, err := client.SuggestGasPrice(ctx)
		if err == nil {
			gwei := decimal.NewFromBigInt(wei, -9)
			s.gasPriceMutex.Lock()
			s.lastGasPrice = gwei
			s.gasPriceMutex.Unlock()
			return gwei
		}
		s.logger.WithField("chain", s.config.Name).WithError(err).Warn("Failed to get gas price, using last known value")
	}

	s.gasPriceMutex.RLock()
	last := s.lastGasPrice
	s.gasPriceMutex.RUnlock()

	if last.IsZero() {
		return fallbackGasPrice
	}
	return last
}

// prepareTransaction prepares a transaction with the given parameters.
//
// Parameters:
// - ctx: the context for managing the request.
// - toAddress: the recipient address of the transaction.
// - value: the amount of native asset to send with the transaction.
// - data: the input data for the transaction.
// - gasLimit: an explicit gas limit, or 0 to estimate.
//
// Returns:
// - *ethtypes.Transaction: the prepared transaction.
// - error: an error if nonce retrieval or gas price retrieval fails.
func (s *Internal) prepareTransaction(ctx context.Context, toAddress string, value *big.Int, data []byte, gasLimit uint64) (*ethtypes.Transaction, error) {
	s.clientMutex.RLock()
	client := s.client
	s.clientMutex.RUnlock()

	if client == nil {
		return nil, errors.New("client not initialized")
	}

	nonce, err := client.PendingNonceAt(ctx, s.keys.Address())
	if err != nil {
		return nil, errors.Wrap(err, "failed to get nonce")
	}

	if value == nil {
		value = big.NewInt(0)
	}

	if gasLimit == 0 {
		estimated := s.EstimateGas(ctx, &types.TransactionRequest{To: toAddress, Value: value, Data: data})
		gasLimit = uint64(float64(estimated) * 1.1)
	}

	to := common.HexToAddress(toAddress)

	if s.config.TxType == TxTypeEIP1559 {
		gasPriceData, err := s.getEIP1559GasPrice(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get EIP-1559 gas price")
		}

		return ethtypes.NewTx(&ethtypes.DynamicFeeTx{
			ChainID:   new(big.Int).SetUint64(s.config.ChainID),
			Nonce:     nonce,
			GasFeeCap: gasPriceData.MaxFeePerGas,
			GasTipCap: gasPriceData.MaxPriorityFeePerGas,
			Gas:       gasLimit,
			To:        &to,
			Value:     value,
			Data:      data,
		}), nil
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get gas price")
	}

	return ethtypes.NewTransaction(nonce, to, value, gasLimit, gasPrice, data), nil
}

// GasPriceData represents the gas price data for EIP-1559 transactions.
type GasPriceData struct {
	MaxFeePerGas         *big.Int // The maximum fee per gas.
	MaxPriorityFeePerGas *big.Int // The maximum priority fee per gas.
}

// getEIP1559GasPrice retrieves the gas price data for EIP-1559 transactions.
func (s *Internal) getEIP1559GasPrice(ctx context.Context) (*GasPriceData, error) {
	s.clientMutex.RLock()
	client := s.client
	s.clientMutex.RUnlock()

	if client == nil {
		return nil, errors.New("client not initialized")
	}

	suggestedTip, err := client.SuggestGasTipCap(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get suggested gas tip")
		suggestedTip = big.NewInt(1)
	}

	if suggestedTip.Cmp(big.NewInt(0)) == 0 {
		suggestedTip = big.NewInt(1)
	}

	header, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		s.logger.WithField("chain", s.config.Name).WithError(err).Warn("Failed to get header by number")
		return nil, errors.Wrap(err, "failed to get header by number")
	}

	baseFee := header.BaseFee
	if baseFee == nil {
		s.logger.WithField("chain", s.config.Name).Warn("Base fee is nil")
		return nil, errors.New("base fee is nil")
	}

	baseFeeBuf := new(big.Int).Mul(baseFee, big.NewInt(130))
	baseFeeBuf = baseFeeBuf.Div(baseFeeBuf, big.NewInt(100))
	maxFeePerGas := new(big.Int).Add(baseFeeBuf, suggestedTip)

	if maxFeePerGas.Cmp(suggestedTip) <= 0 {
		maxFeePerGas = new(big.Int).Add(suggestedTip, baseFee)
	}

	return &GasPriceData{
		MaxFeePerGas:         maxFeePerGas,
		MaxPriorityFeePerGas: suggestedTip,
	}, nil
}

// signAndSendTransaction signs and sends the prepared transaction.
func (s *Internal) signAndSendTransaction(ctx context.Context, tx *ethtypes.Transaction) (*ethtypes.Transaction, error) {
	s.clientMutex.RLock()
	client := s.client
	s.clientMutex.RUnlock()

	if client == nil {
		return nil, errors.New("client not initialized")
	}

	chainID := new(big.Int).SetUint64(s.config.ChainID)

	signedTx, err := s.keys.SignTx(tx, chainID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to sign transaction")
		return nil, errors.Wrap(err, "failed to sign transaction")
	}

	if err = client.SendTransaction(ctx, signedTx); err != nil {
		s.logger.WithError(err).Error("Failed to send transaction")
		return nil, errors.Wrap(err, "failed to send transaction")
	}

	return signedTx, nil
}
