package types

import (
	"math/big"
	"time"
)

// BasisPointsDenominator is the denominator used for all basis-point math.
const BasisPointsDenominator = 10000

// Quote represents a same-chain swap quote computed from the on-chain router.
//
// Fields:
// - Route: the ordered list of hop addresses the router will trade through.
// - ExpectedOutput: the expected output amount in the output token's smallest unit.
// - MinimumOutput: the slippage-adjusted lower bound the execution will accept.
// - FeeBps: the protocol fee in basis points, mirrored client-side for display only.
// - SlippageBps: the user slippage tolerance in basis points used to derive MinimumOutput.
// - AmountIn: the input amount the quote was computed for.
// - RequestedAt: the time the quote was requested.
type Quote struct {
	Route          []string
	ExpectedOutput *big.Int
	MinimumOutput  *big.Int
	FeeBps         int64
	SlippageBps    int64
	AmountIn       *big.Int
	RequestedAt    time.Time
}

// MinimumOutput computes the slippage-adjusted output floor for an expected
// output: expected * (10000 - slippageBps) / 10000 with integer floor division.
func MinimumOutput(expected *big.Int, slippageBps int64) *big.Int {
	if expected == nil {
		return nil
	}
	numerator := new(big.Int).Mul(expected, big.NewInt(BasisPointsDenominator-slippageBps))
	return numerator.Div(numerator, big.NewInt(BasisPointsDenominator))
}

// RouteStep represents a single provider step of a cross-chain route.
type RouteStep struct {
	Tool       string   `json:"tool"`
	FromAmount *big.Int `json:"fromAmount"`
	ToAmount   *big.Int `json:"toAmount"`
}

// RouteEstimate carries the aggregator's execution estimate for a route.
type RouteEstimate struct {
	DurationSeconds int64   `json:"durationSeconds"`
	Slippage        float64 `json:"slippage"`
}

// RouteFees carries the aggregator-reported fee structure for a route.
type RouteFees struct {
	TotalPercentage float64            `json:"totalPercentage"`
	Breakdown       map[string]float64 `json:"breakdown"`
}

// BridgeRoute represents a ranked cross-chain route returned by the aggregator.
// The route ID is an opaque, server-side handle: it expires remotely and must be
// revalidated before the route is executed.
//
// Fields:
// - ID: the opaque route handle used to fetch executable steps and poll status.
// - FromChain, ToChain: source and destination chain identifiers.
// - FromToken, ToToken: source and destination token addresses.
// - FromAmount, ToAmount: input and expected output amounts in smallest units.
// - Steps: the ordered provider steps the route executes through.
// - Estimate: the aggregator's duration and slippage estimate.
// - Fees: the aggregator-reported fee structure.
type BridgeRoute struct {
	ID         string
	FromChain  uint64
	ToChain    uint64
	FromToken  string
	ToToken    string
	FromAmount *big.Int
	ToAmount   *big.Int
	Steps      []RouteStep
	Estimate   RouteEstimate
	Fees       RouteFees
}
