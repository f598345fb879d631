package types

// BridgePhase is the coarse lifecycle phase of a cross-chain transfer as
// reported by the status endpoint.
type BridgePhase string

const (
	// PhasePending indicates the transfer has legs still in flight.
	PhasePending BridgePhase = "PENDING"
	// PhaseCompleted indicates both legs settled successfully.
	PhaseCompleted BridgePhase = "COMPLETED"
	// PhaseFailed indicates the transfer cannot complete.
	PhaseFailed BridgePhase = "FAILED"
)

// SubStatus is the aggregator's fine-grained status code for a transfer.
type SubStatus string

const (
	// WaitSourceConfirmations indicates that the bridge is waiting for additional confirmations.
	WaitSourceConfirmations SubStatus = "WAIT_SOURCE_CONFIRMATIONS"

	// WaitDestinationTransaction indicates that the off-chain logic is in progress, waiting for the destination transaction to be mined.
	WaitDestinationTransaction SubStatus = "WAIT_DESTINATION_TRANSACTION"

	// BridgeNotAvailable indicates that the bridge API or subgraph is temporarily unavailable.
	BridgeNotAvailable SubStatus = "BRIDGE_NOT_AVAILABLE"

	// ChainNotAvailable indicates that the RPC for the source or destination chain is temporarily unavailable.
	ChainNotAvailable SubStatus = "CHAIN_NOT_AVAILABLE"

	// RefundInProgress indicates that the refund has been requested and is being processed.
	RefundInProgress SubStatus = "REFUND_IN_PROGRESS"

	// UnknownError indicates that the status of the transfer cannot be determined.
	UnknownError SubStatus = "UNKNOWN_ERROR"

	// Completed indicates that the transfer was successful.
	Completed SubStatus = "COMPLETED"

	// Partial indicates that the transfer was partially successful with alternative tokens provided.
	Partial SubStatus = "PARTIAL"

	// Refunded indicates that the transfer was not successful and tokens were refunded.
	Refunded SubStatus = "REFUNDED"

	// OutOfGas indicates that the transaction ran out of gas during the execution.
	OutOfGas SubStatus = "OUT_OF_GAS"

	// SlippageExceeded indicates that the return amount is below the slippage limit.
	SlippageExceeded SubStatus = "SLIPPAGE_EXCEEDED"

	// InsufficientAllowance indicates that the transfer amount exceeds the token allowance.
	InsufficientAllowance SubStatus = "INSUFFICIENT_ALLOWANCE"

	// InsufficientBalance indicates that the transfer amount exceeds the available balance.
	InsufficientBalance SubStatus = "INSUFFICIENT_BALANCE"

	// Expired indicates that the transaction expired before processing.
	Expired SubStatus = "EXPIRED"
)

// Phase maps a fine-grained sub-status onto its coarse lifecycle phase.
func (s SubStatus) Phase() BridgePhase {
	switch s {
	case Completed, Partial:
		return PhaseCompleted
	case Refunded, OutOfGas, SlippageExceeded, InsufficientAllowance, InsufficientBalance, Expired:
		return PhaseFailed
	default:
		return PhasePending
	}
}
