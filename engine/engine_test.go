package engine

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	commonerrors "github.com/HelioDex/exchange-engine/common/errors"
	"github.com/HelioDex/exchange-engine/common/types"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRouter = "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"

// settle waits long enough for a debounced quote fetch to commit.
const settle = 100 * time.Millisecond

type fakeSigner struct {
	mu           sync.Mutex
	balance      *big.Int
	allowance    *big.Int
	swapErr      error
	sendErr      error
	receiptOK    bool
	confirmGate  chan struct{}
	swapCalls    int
	sendCalls    int
	lastDeadline int64
}

func (s *fakeSigner) Address() string { return "0xowner" }
func (s *fakeSigner) ChainID() uint64 { return 1 }

func (s *fakeSigner) GetBalance(ctx context.Context, token types.TokenInfo) (*big.Int, error) {
	return s.balance, nil
}

func (s *fakeSigner) GetAllowance(ctx context.Context, token types.TokenInfo, spender string) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allowance, nil
}

func (s *fakeSigner) Approve(ctx context.Context, token types.TokenInfo, spender string, amount *big.Int) (string, error) {
	return "0xapprove", nil
}

func (s *fakeSigner) ExecuteSwap(ctx context.Context, params *types.SwapParams) (string, error) {
	s.mu.Lock()
	s.swapCalls++
	s.lastDeadline = params.DeadlineUnix
	s.mu.Unlock()
	if s.swapErr != nil {
		return "", s.swapErr
	}
	return "0xswap", nil
}

func (s *fakeSigner) SendTransaction(ctx context.Context, req *types.TransactionRequest) (string, error) {
	s.mu.Lock()
	s.sendCalls++
	s.mu.Unlock()
	if s.sendErr != nil {
		return "", s.sendErr
	}
	return "0xsource", nil
}

func (s *fakeSigner) WaitConfirmation(ctx context.Context, txHash string) (bool, error) {
	if s.confirmGate != nil {
		<-s.confirmGate
	}
	return s.receiptOK, nil
}

func (s *fakeSigner) EstimateGas(ctx context.Context, req *types.TransactionRequest) uint64 {
	return 400000
}

func (s *fakeSigner) GasPrice(ctx context.Context) decimal.Decimal {
	return decimal.NewFromInt(30)
}

type fakeQuoter struct{}

func (q *fakeQuoter) Quote(ctx context.Context, tokenIn, tokenOut types.TokenInfo, amountIn *big.Int, slippageBps int64) (*types.Quote, error) {
	expected := new(big.Int).Mul(amountIn, big.NewInt(2))
	return &types.Quote{
		Route:          []string{tokenIn.ContractAddress, tokenOut.ContractAddress},
		ExpectedOutput: expected,
		MinimumOutput:  types.MinimumOutput(expected, slippageBps),
		SlippageBps:    slippageBps,
		AmountIn:       amountIn,
		RequestedAt:    time.Now(),
	}, nil
}

type fakeBridges struct {
	route         *types.BridgeRoute
	revalidateErr error
}

func (b *fakeBridges) FindRoute(ctx context.Context, req *types.RouteRequest) (*types.BridgeRoute, error) {
	return b.route, nil
}

func (b *fakeBridges) Revalidate(ctx context.Context, routeID string) error {
	return b.revalidateErr
}

type fakeApprover struct {
	signer *fakeSigner
	err    error
	calls  int
}

func (a *fakeApprover) EnsureApproval(ctx context.Context, token types.TokenInfo, spender string, required *big.Int) (string, error) {
	a.calls++
	if a.err != nil {
		return "", a.err
	}
	a.signer.mu.Lock()
	a.signer.allowance = types.MaxUint256
	a.signer.mu.Unlock()
	return "0xapprove", nil
}

type fakeHistory struct {
	mu      sync.Mutex
	records []types.ExecutionRecord
}

func (h *fakeHistory) Upsert(record *types.ExecutionRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, *record)
}

func (h *fakeHistory) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

func (h *fakeHistory) last() types.ExecutionRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.records[len(h.records)-1]
}

type fakeAggStep struct{}

func (a *fakeAggStep) SearchRoutes(ctx context.Context, req *types.RouteRequest) ([]types.BridgeRoute, error) {
	return nil, nil
}

func (a *fakeAggStep) GetExecutableSteps(ctx context.Context, routeID string) (*types.TransactionRequest, error) {
	return &types.TransactionRequest{To: "0xbridge", Value: big.NewInt(0), ChainID: 1}, nil
}

func (a *fakeAggStep) GetStatus(ctx context.Context, routeID, txHash string) (*types.BridgeStatus, error) {
	return &types.BridgeStatus{Phase: types.PhasePending}, nil
}

func (a *fakeAggStep) ValidateRoute(ctx context.Context, routeID string) (*types.RouteValidation, error) {
	return &types.RouteValidation{Valid: true}, nil
}

type fakeTracker struct {
	status *types.BridgeStatus
	err    error
}

func (t *fakeTracker) Track(ctx context.Context, routeID, txHash string, fromChain, toChain uint64) (*types.BridgeStatus, error) {
	return t.status, t.err
}

type harness struct {
	engine   *Engine
	signer   *fakeSigner
	bridges  *fakeBridges
	approver *fakeApprover
	history  *fakeHistory
	tracker  *fakeTracker
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	signer := &fakeSigner{
		balance:   big.NewInt(1_000_000),
		allowance: big.NewInt(0),
		receiptOK: true,
	}
	bridges := &fakeBridges{route: &types.BridgeRoute{
		ID:         "r-1",
		FromChain:  1,
		ToChain:    137,
		FromAmount: big.NewInt(100),
		ToAmount:   big.NewInt(99),
	}}
	approver := &fakeApprover{signer: signer}
	history := &fakeHistory{}
	tracker := &fakeTracker{status: &types.BridgeStatus{Phase: types.PhaseCompleted}}

	e := NewEngine(Dependencies{
		Chain:      &types.ChainConfig{Name: "ethereum", ChainID: 1, RouterAddress: testRouter},
		Signer:     signer,
		Quoter:     &fakeQuoter{},
		Bridges:    bridges,
		Approver:   approver,
		Aggregator: &fakeAggStep{},
		History:    history,
		Tracker:    tracker,
		Logger:     logger,
	}, time.Millisecond)
	t.Cleanup(e.Close)

	e.SetWalletReady(true)
	return &harness{engine: e, signer: signer, bridges: bridges, approver: approver, history: history, tracker: tracker}
}

func samePair() (types.TokenInfo, types.TokenInfo) {
	return types.TokenInfo{Symbol: "USDC", ContractAddress: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Decimals: 6, ChainID: 1},
		types.TokenInfo{Symbol: "DAI", ContractAddress: "0x6B175474E89094C44Da98b954EedeAC495271d0F", Decimals: 18, ChainID: 1}
}

func crossPair() (types.TokenInfo, types.TokenInfo) {
	in, _ := samePair()
	return in, types.TokenInfo{Symbol: "USDC", ContractAddress: "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174", Decimals: 6, ChainID: 137}
}

// readySwap drives the engine to READY on the same-chain path.
func (h *harness) readySwap(t *testing.T) {
	t.Helper()
	in, out := samePair()
	h.signer.allowance = types.MaxUint256
	h.engine.SetPair(in, out, 100)
	require.NoError(t, h.engine.RefreshAllowance(context.Background()))
	h.engine.SetAmount(big.NewInt(100))
	time.Sleep(settle)
	require.Equal(t, types.StateReady, h.engine.State())
}

func TestZeroAmountIsIdleAndExecuteRefuses(t *testing.T) {
	h := newHarness(t)
	in, out := samePair()
	h.engine.SetPair(in, out, 100)
	h.engine.SetAmount(big.NewInt(0))

	assert.Equal(t, types.StateIdle, h.engine.State())

	err := h.engine.Execute(context.Background())
	assert.ErrorIs(t, err, commonerrors.ErrIllegalTransition)
	assert.Equal(t, 0, h.signer.swapCalls)
	assert.Equal(t, 0, h.history.count())
}

func TestApproveThenRefreshLandsReady(t *testing.T) {
	h := newHarness(t)
	in, out := samePair()
	h.engine.SetPair(in, out, 100)
	require.NoError(t, h.engine.RefreshAllowance(context.Background()))
	h.engine.SetAmount(big.NewInt(100))
	time.Sleep(settle)

	require.Equal(t, types.StateNeedsApproval, h.engine.State())

	require.NoError(t, h.engine.Approve(context.Background()))
	assert.Equal(t, 1, h.approver.calls)
	assert.Equal(t, types.StateReady, h.engine.State())
}

func TestApproveOutsideNeedsApproval(t *testing.T) {
	h := newHarness(t)
	h.readySwap(t)

	err := h.engine.Approve(context.Background())
	assert.ErrorIs(t, err, commonerrors.ErrIllegalTransition)
	assert.Equal(t, 0, h.approver.calls)
}

func TestApproveUserRejectionRestoresState(t *testing.T) {
	h := newHarness(t)
	in, out := samePair()
	h.engine.SetPair(in, out, 100)
	require.NoError(t, h.engine.RefreshAllowance(context.Background()))
	h.engine.SetAmount(big.NewInt(100))
	time.Sleep(settle)
	h.approver.err = commonerrors.ErrUserRejected

	err := h.engine.Approve(context.Background())
	assert.True(t, commonerrors.IsUserRejected(err))
	assert.Equal(t, types.StateNeedsApproval, h.engine.State())
	assert.NoError(t, h.engine.LastError())
}

func TestExecuteSwapHappyPath(t *testing.T) {
	h := newHarness(t)
	h.readySwap(t)

	before := time.Now().Unix()
	require.NoError(t, h.engine.Execute(context.Background()))

	assert.Equal(t, types.StateSuccess, h.engine.State())
	require.Equal(t, 2, h.history.count())

	first := h.history.records[0]
	assert.Equal(t, types.RecordPending, first.Status)
	assert.Equal(t, types.KindSwap, first.Kind)
	assert.Equal(t, "0xswap", first.Hash)

	last := h.history.last()
	assert.Equal(t, types.RecordCompleted, last.Status)
	assert.Equal(t, first.ID, last.ID)

	assert.GreaterOrEqual(t, h.signer.lastDeadline, before+1200)
}

func TestExecuteRejectsConcurrentExecution(t *testing.T) {
	h := newHarness(t)
	h.readySwap(t)

	h.signer.confirmGate = make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- h.engine.Execute(context.Background())
	}()

	require.Eventually(t, func() bool {
		return h.engine.State() == types.StateConfirming
	}, time.Second, 5*time.Millisecond)

	err := h.engine.Execute(context.Background())
	assert.ErrorIs(t, err, commonerrors.ErrExecutionInFlight)

	close(h.signer.confirmGate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, h.signer.swapCalls)
}

func TestExecuteInsufficientBalanceStaysReady(t *testing.T) {
	h := newHarness(t)
	h.readySwap(t)
	h.signer.balance = big.NewInt(1)

	err := h.engine.Execute(context.Background())
	assert.ErrorIs(t, err, commonerrors.ErrInsufficientBalance)
	assert.Equal(t, types.StateReady, h.engine.State())
	assert.Equal(t, 0, h.signer.swapCalls)
	assert.Equal(t, 0, h.history.count())
}

func TestExecuteUserRejectionWritesNoHistory(t *testing.T) {
	h := newHarness(t)
	h.readySwap(t)
	h.signer.swapErr = commonerrors.ErrUserRejected

	err := h.engine.Execute(context.Background())
	assert.True(t, commonerrors.IsUserRejected(err))
	assert.Equal(t, types.StateReady, h.engine.State())
	assert.Equal(t, 0, h.history.count())
}

func TestExecuteRevertedSwapMarksFailed(t *testing.T) {
	h := newHarness(t)
	h.readySwap(t)
	h.signer.receiptOK = false

	err := h.engine.Execute(context.Background())
	assert.ErrorIs(t, err, commonerrors.ErrTransactionFailed)
	assert.Equal(t, types.StateError, h.engine.State())
	assert.Equal(t, types.RecordFailed, h.history.last().Status)
}

func TestExecuteBridgeRevalidationFailsBeforeSigning(t *testing.T) {
	h := newHarness(t)
	in, out := crossPair()
	h.engine.SetPair(in, out, 100)
	require.NoError(t, h.engine.RefreshAllowance(context.Background()))
	h.engine.SetAmount(big.NewInt(100))
	time.Sleep(settle)
	require.Equal(t, types.StateReady, h.engine.State())

	h.bridges.revalidateErr = commonerrors.ErrRouteInvalid

	err := h.engine.Execute(context.Background())
	assert.ErrorIs(t, err, commonerrors.ErrRouteInvalid)
	assert.Equal(t, types.StateError, h.engine.State())
	assert.Equal(t, 0, h.signer.sendCalls)
	assert.Equal(t, 0, h.history.count())
}

func TestExecuteBridgeRekeysToDestinationHash(t *testing.T) {
	h := newHarness(t)
	in, out := crossPair()
	h.engine.SetPair(in, out, 100)
	require.NoError(t, h.engine.RefreshAllowance(context.Background()))
	h.engine.SetAmount(big.NewInt(100))
	time.Sleep(settle)
	require.Equal(t, types.StateReady, h.engine.State())

	h.tracker.status = &types.BridgeStatus{
		Phase:             types.PhaseCompleted,
		DestinationTxHash: "0xdestination",
	}

	require.NoError(t, h.engine.Execute(context.Background()))
	assert.Equal(t, types.StateSuccess, h.engine.State())

	last := h.history.last()
	assert.Equal(t, types.RecordCompleted, last.Status)
	assert.Equal(t, "0xdestination", last.Hash)
	assert.Equal(t, h.history.records[0].ID, last.ID)
}

func TestEditingAmountClearsStickySuccess(t *testing.T) {
	h := newHarness(t)
	h.readySwap(t)
	require.NoError(t, h.engine.Execute(context.Background()))
	require.Equal(t, types.StateSuccess, h.engine.State())

	h.engine.SetAmount(big.NewInt(200))
	time.Sleep(settle)
	assert.Equal(t, types.StateReady, h.engine.State())
}
