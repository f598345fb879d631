package engine

import (
	"math/big"
	"testing"

	commonerrors "github.com/HelioDex/exchange-engine/common/errors"
	"github.com/HelioDex/exchange-engine/common/types"
	"github.com/stretchr/testify/assert"
)

func snapshotQuote() *types.Quote {
	return &types.Quote{
		AmountIn:       big.NewInt(100),
		ExpectedOutput: big.NewInt(200),
		MinimumOutput:  big.NewInt(198),
	}
}

func TestDeriveStatePrecedence(t *testing.T) {
	tests := []struct {
		name     string
		snapshot Snapshot
		want     types.EngineState
	}{
		{
			name:     "wallet not ready wins over everything",
			snapshot: Snapshot{WalletReady: false, Success: true, Approving: true},
			want:     types.StateIdle,
		},
		{
			name:     "success is sticky",
			snapshot: Snapshot{WalletReady: true, Success: true, Quote: snapshotQuote(), Amount: big.NewInt(100), Allowance: big.NewInt(100)},
			want:     types.StateSuccess,
		},
		{
			name:     "quote fetch in flight",
			snapshot: Snapshot{WalletReady: true, QuoteInFlight: true, Approving: true},
			want:     types.StateFetchingQuote,
		},
		{
			name:     "approving wins over needs approval",
			snapshot: Snapshot{WalletReady: true, Approving: true, Amount: big.NewInt(100), Allowance: big.NewInt(0)},
			want:     types.StateApproving,
		},
		{
			name:     "allowance below amount needs approval",
			snapshot: Snapshot{WalletReady: true, Amount: big.NewInt(100), Allowance: big.NewInt(99)},
			want:     types.StateNeedsApproval,
		},
		{
			name:     "executing",
			snapshot: Snapshot{WalletReady: true, Executing: true, Amount: big.NewInt(100), Allowance: big.NewInt(100)},
			want:     types.StateExecuting,
		},
		{
			name:     "confirming",
			snapshot: Snapshot{WalletReady: true, Confirming: true, Amount: big.NewInt(100), Allowance: big.NewInt(100)},
			want:     types.StateConfirming,
		},
		{
			name:     "error when nothing in flight",
			snapshot: Snapshot{WalletReady: true, Err: commonerrors.ErrRouteInvalid, Amount: big.NewInt(100), Allowance: big.NewInt(100)},
			want:     types.StateError,
		},
		{
			name:     "ready with quote and sufficient allowance",
			snapshot: Snapshot{WalletReady: true, Quote: snapshotQuote(), Amount: big.NewInt(100), Allowance: big.NewInt(100)},
			want:     types.StateReady,
		},
		{
			name:     "zero amount is idle",
			snapshot: Snapshot{WalletReady: true, Amount: big.NewInt(0), Allowance: big.NewInt(0)},
			want:     types.StateIdle,
		},
		{
			name:     "quote without amount is idle",
			snapshot: Snapshot{WalletReady: true, Quote: snapshotQuote()},
			want:     types.StateIdle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveState(tt.snapshot))
		})
	}
}

func TestNeedsApprovalNeverCoexistsWithApproving(t *testing.T) {
	// amount > 0 and allowance < amount with the approving flag set must
	// always derive APPROVING, for any allowance below the amount.
	for _, allowance := range []int64{0, 1, 50, 99} {
		s := Snapshot{
			WalletReady: true,
			Amount:      big.NewInt(100),
			Allowance:   big.NewInt(allowance),
			Approving:   true,
		}
		assert.Equal(t, types.StateApproving, DeriveState(s), "allowance=%d", allowance)
	}
}

func TestDeriveStateToleratesNilAmounts(t *testing.T) {
	assert.Equal(t, types.StateIdle, DeriveState(Snapshot{WalletReady: true}))
}
