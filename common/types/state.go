package types

// EngineState is the derived state of the execution state machine. It is
// recomputed from published inputs on every change and never stored; exactly
// one state is active at any evaluation.
type EngineState string

const (
	// StateIdle indicates no wallet is ready or there is nothing to do.
	StateIdle EngineState = "IDLE"
	// StateFetchingQuote indicates a quote fetch is in flight.
	StateFetchingQuote EngineState = "FETCHING_QUOTE"
	// StateNeedsApproval indicates the input token allowance is below the input amount.
	StateNeedsApproval EngineState = "NEEDS_APPROVAL"
	// StateApproving indicates an approval transaction is submitted or awaiting confirmation.
	StateApproving EngineState = "APPROVING"
	// StateReady indicates a live quote exists and the allowance covers the amount.
	StateReady EngineState = "READY"
	// StateExecuting indicates an execution broadcast is in flight.
	StateExecuting EngineState = "EXECUTING"
	// StateConfirming indicates the broadcast is accepted and finality is pending.
	StateConfirming EngineState = "CONFIRMING"
	// StateSuccess indicates the last operation completed; sticky until the user edits or resets.
	StateSuccess EngineState = "SUCCESS"
	// StateError indicates the last operation raised a fatal error.
	StateError EngineState = "ERROR"
)
