package types

// RecordKind classifies the operation a history record describes.
type RecordKind string

const (
	// KindSwap is a same-chain multi-hop swap through the router.
	KindSwap RecordKind = "SWAP"
	// KindBridge is a cross-chain transfer through the route aggregator.
	KindBridge RecordKind = "BRIDGE"
	// KindSend is an outgoing asset transfer.
	KindSend RecordKind = "SEND"
	// KindReceive is an incoming asset transfer.
	KindReceive RecordKind = "RECEIVE"
)

// RecordStatus is the lifecycle status of a history record.
type RecordStatus string

const (
	// RecordPending is the status of an operation that has been broadcast but not finalized.
	RecordPending RecordStatus = "PENDING"
	// RecordCompleted is the status of an operation that reached finality successfully.
	RecordCompleted RecordStatus = "COMPLETED"
	// RecordFailed is the status of an operation whose outcome is a failure.
	RecordFailed RecordStatus = "FAILED"
)

// ExecutionRecord is one row of the de-duplicated operation ledger.
//
// Identity for de-duplication prefers Hash when present, falling back to ID.
// Records are created PENDING at broadcast time, mutated in place on status
// transitions, and never deleted except by an explicit bulk clear.
//
// Fields:
// - ID: the client-assigned record identity, stable across status updates.
// - Kind: the operation classification.
// - Status: the current lifecycle status.
// - Description: a human-readable summary of the operation.
// - TimestampMs: the creation time in Unix milliseconds.
// - Hash: the transaction hash once known; re-keyed to the destination-chain
//   hash when a bridge completes on the far side.
// - FromChain, ToChain: chain identifiers, ToChain only set for bridges.
// - Amount: the input amount in the token's smallest unit, decimal string.
// - Token: the input token symbol.
// - LastUpdateMs: the time of the latest status transition in Unix milliseconds.
type ExecutionRecord struct {
	ID           string
	Kind         RecordKind
	Status       RecordStatus
	Description  string
	TimestampMs  int64
	Hash         string
	FromChain    uint64
	ToChain      uint64
	Amount       string
	Token        string
	LastUpdateMs int64
}
