package types

import (
	"context"
	"math/big"
)

// RouteRequest is a cross-chain route search request.
type RouteRequest struct {
	FromChain   uint64
	ToChain     uint64
	FromToken   string
	ToToken     string
	FromAmount  *big.Int
	FromAddress string
	ToAddress   string
}

// RouteValidation is the aggregator's verdict on whether a previously issued
// route is still executable.
type RouteValidation struct {
	Valid  bool
	Errors []string
}

// BridgeStatus is the aggregator-reported status of a cross-chain transfer.
//
// Fields:
// - Phase: the coarse lifecycle phase.
// - SubStatus: the aggregator's fine-grained status code.
// - DestinationTxHash: the destination-chain transaction hash, set once the
//   far leg has been mined. May differ from the source hash.
type BridgeStatus struct {
	Phase             BridgePhase
	SubStatus         SubStatus
	DestinationTxHash string
}

// BridgeAggregator is the remote route aggregator contract consumed by the
// resolver, engine, and status tracker.
type BridgeAggregator interface {
	// SearchRoutes returns zero or more routes ranked best-first.
	SearchRoutes(ctx context.Context, req *RouteRequest) ([]BridgeRoute, error)

	// GetExecutableSteps resolves a route ID into the transaction to broadcast
	// on the source chain.
	GetExecutableSteps(ctx context.Context, routeID string) (*TransactionRequest, error)

	// GetStatus reports the current status of a broadcast route.
	GetStatus(ctx context.Context, routeID string, txHash string) (*BridgeStatus, error)

	// ValidateRoute checks whether the route is still executable. Routes
	// expire server-side; any reported validation error is fatal to the route.
	ValidateRoute(ctx context.Context, routeID string) (*RouteValidation, error)
}

// HistoryStore is the opaque persisted row store backing the history
// recorder. Implementations provide keyed upsert and query over
// ExecutionRecord rows.
type HistoryStore interface {
	// List returns all persisted records, newest first.
	List(ctx context.Context) ([]ExecutionRecord, error)

	// Upsert inserts the record or updates the existing row sharing its identity.
	Upsert(ctx context.Context, record *ExecutionRecord) error

	// Clear removes all persisted records.
	Clear(ctx context.Context) error
}
