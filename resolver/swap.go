package resolver

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	commonerrors "github.com/HelioDex/exchange-engine/common/errors"
	"github.com/HelioDex/exchange-engine/common/types"
	enginesigner "github.com/HelioDex/exchange-engine/signer"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// SwapFeeBps is the protocol fee in basis points charged by the router.
// It is applied on chain; this mirror exists for display only.
const SwapFeeBps = 30

// ChainReader is the read-only chain access the quoter needs: contract calls
// and deployed-code checks.
type ChainReader interface {
	// CallContract performs a read-only contract call.
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)

	// CodeAt returns the code deployed at the given address.
	CodeAt(ctx context.Context, address common.Address) ([]byte, error)
}

// EthReader adapts an ethclient.Client to the ChainReader interface.
type EthReader struct {
	client *ethclient.Client
}

// NewEthReader creates a chain reader over the given RPC endpoint.
func NewEthReader(rpcURL string) (*EthReader, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create client")
	}
	return &EthReader{client: client}, nil
}

func (r *EthReader) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return r.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

func (r *EthReader) CodeAt(ctx context.Context, address common.Address) ([]byte, error) {
	return r.client.CodeAt(ctx, address, nil)
}

// SwapQuoter resolves same-chain quotes against the on-chain router. It asks
// the router for expected output over the candidate paths and derives the
// slippage-adjusted minimum client-side.
type SwapQuoter struct {
	config *types.ChainConfig
	reader ChainReader
	logger *logrus.Logger

	codeMutex   sync.Mutex
	codeChecked bool
}

// NewSwapQuoter creates a quoter for the configured chain.
//
// Parameters:
// - config: the chain configuration naming the router and wrapped native token.
// - reader: the read-only chain access.
// - logger: the logger for logging events.
//
// Returns:
// - *SwapQuoter: the quoter instance.
func NewSwapQuoter(config *types.ChainConfig, reader ChainReader, logger *logrus.Logger) *SwapQuoter {
	return &SwapQuoter{
		config: config,
		reader: reader,
		logger: logger,
	}
}

// Quote computes a swap quote for the given pair and amount.
//
// Parameters:
// - ctx: the context for managing the request.
// - tokenIn, tokenOut: the tokens being traded.
// - amountIn: the input amount in the input token's smallest unit.
// - slippageBps: the user's slippage tolerance in basis points.
//
// Returns:
// - *types.Quote: the quote with the best route and the slippage-adjusted minimum.
// - error: an error if the router is not deployed or no path has liquidity.
func (q *SwapQuoter) Quote(ctx context.Context, tokenIn, tokenOut types.TokenInfo, amountIn *big.Int, slippageBps int64) (*types.Quote, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, errors.New("amount must be positive")
	}

	if err := q.ensureRouterDeployed(ctx); err != nil {
		return nil, err
	}

	routerAbi, err := abi.JSON(strings.NewReader(enginesigner.RouterABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse router ABI")
	}

	var (
		bestPath   []string
		bestOutput *big.Int
	)

	for _, path := range q.candidatePaths(tokenIn, tokenOut) {
		output, err := q.amountsOut(ctx, &routerAbi, amountIn, path)
		if err != nil {
			// A path without a pool reverts; other candidates may still quote.
			q.logger.WithFields(logrus.Fields{
				"path":  strings.Join(path, "->"),
				"error": err,
			}).Debug("Router path did not quote")
			continue
		}

		if bestOutput == nil || output.Cmp(bestOutput) > 0 {
			bestOutput = output
			bestPath = path
		}
	}

	if bestOutput == nil {
		return nil, errors.Wrap(commonerrors.ErrNoRouteFound, "no router path quoted")
	}

	return &types.Quote{
		Route:          bestPath,
		ExpectedOutput: bestOutput,
		MinimumOutput:  types.MinimumOutput(bestOutput, slippageBps),
		FeeBps:         SwapFeeBps,
		SlippageBps:    slippageBps,
		AmountIn:       new(big.Int).Set(amountIn),
		RequestedAt:    time.Now(),
	}, nil
}

// ensureRouterDeployed confirms the router contract has code on the current
// network before the first quote. The positive result is cached.
func (q *SwapQuoter) ensureRouterDeployed(ctx context.Context) error {
	q.codeMutex.Lock()
	defer q.codeMutex.Unlock()

	if q.codeChecked {
		return nil
	}

	code, err := q.reader.CodeAt(ctx, common.HexToAddress(q.config.RouterAddress))
	if err != nil {
		return errors.Wrap(commonerrors.ErrNetworkUnavailable, err.Error())
	}
	if len(code) == 0 {
		return commonerrors.ErrRouterNotDeployed
	}

	q.codeChecked = true
	return nil
}

// candidatePaths builds the hop paths to quote: the direct pair, and the pair
// through the wrapped native token when neither side is the wrapped native.
// Native assets are represented by the wrapped native address in paths.
func (q *SwapQuoter) candidatePaths(tokenIn, tokenOut types.TokenInfo) [][]string {
	wrapped := strings.ToLower(q.config.WrappedNative)

	in := tokenIn.ContractAddress
	if tokenIn.IsNative() {
		in = q.config.WrappedNative
	}
	out := tokenOut.ContractAddress
	if tokenOut.IsNative() {
		out = q.config.WrappedNative
	}

	paths := [][]string{{in, out}}
	if strings.ToLower(in) != wrapped && strings.ToLower(out) != wrapped {
		paths = append(paths, []string{in, q.config.WrappedNative, out})
	}

	return paths
}

// amountsOut asks the router for the output amounts along the path and
// returns the final hop's output.
func (q *SwapQuoter) amountsOut(ctx context.Context, routerAbi *abi.ABI, amountIn *big.Int, path []string) (*big.Int, error) {
	hops := make([]common.Address, len(path))
	for i, hop := range path {
		hops[i] = common.HexToAddress(hop)
	}

	data, err := routerAbi.Pack("getAmountsOut", amountIn, hops)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack getAmountsOut data")
	}

	result, err := q.reader.CallContract(ctx, common.HexToAddress(q.config.RouterAddress), data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to call getAmountsOut")
	}

	unpacked, err := routerAbi.Unpack("getAmountsOut", result)
	if err != nil {
		return nil, errors.Wrap(err, "failed to unpack getAmountsOut result")
	}
	if len(unpacked) == 0 {
		return nil, errors.New("empty getAmountsOut result")
	}

	amounts, ok := unpacked[0].([]*big.Int)
	if !ok || len(amounts) == 0 {
		return nil, errors.New("unexpected getAmountsOut result shape")
	}

	return amounts[len(amounts)-1], nil
}

// SlippageBpsFromPercent converts a user-supplied slippage percentage
// (1.0 = 1%) to basis points with floor semantics.
func SlippageBpsFromPercent(percent float64) int64 {
	return decimal.NewFromFloat(percent).Mul(decimal.NewFromInt(100)).Floor().IntPart()
}
