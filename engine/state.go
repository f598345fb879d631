package engine

import (
	"math/big"

	"github.com/HelioDex/exchange-engine/common/types"
)

// Snapshot is the complete input of one state evaluation. Every field is
// published by exactly one owner (the engine for the in-flight flags, the
// resolver for the quote, the signer refreshers for balance and allowance)
// and the derivation never mutates any of them.
type Snapshot struct {
	WalletReady   bool
	Amount        *big.Int
	Allowance     *big.Int
	Quote         *types.Quote
	QuoteInFlight bool
	Approving     bool
	Executing     bool
	Confirming    bool
	Err           error
	Success       bool
}

// DeriveState computes the engine state from a snapshot. The guards are
// ordered by precedence and the first match wins, so exactly one state is
// active per evaluation.
//
// Parameters:
// - s: the snapshot to evaluate.
//
// Returns:
// - types.EngineState: the derived state.
func DeriveState(s Snapshot) types.EngineState {
	amount := s.Amount
	if amount == nil {
		amount = big.NewInt(0)
	}
	allowance := s.Allowance
	if allowance == nil {
		allowance = big.NewInt(0)
	}

	switch {
	case !s.WalletReady:
		return types.StateIdle
	case s.Success:
		return types.StateSuccess
	case s.QuoteInFlight:
		return types.StateFetchingQuote
	case s.Approving:
		return types.StateApproving
	case amount.Sign() > 0 && allowance.Cmp(amount) < 0:
		return types.StateNeedsApproval
	case s.Executing:
		return types.StateExecuting
	case s.Confirming:
		return types.StateConfirming
	case s.Err != nil:
		return types.StateError
	case s.Quote != nil && amount.Sign() > 0 && allowance.Cmp(amount) >= 0:
		return types.StateReady
	default:
		return types.StateIdle
	}
}
