package engine

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	commonerrors "github.com/HelioDex/exchange-engine/common/errors"
	"github.com/HelioDex/exchange-engine/common/types"
	"github.com/HelioDex/exchange-engine/resolver"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// swapDeadlineSeconds is the validity window given to the router for a swap.
const swapDeadlineSeconds = 1200

// QuoteSource resolves same-chain swap quotes.
type QuoteSource interface {
	Quote(ctx context.Context, tokenIn, tokenOut types.TokenInfo, amountIn *big.Int, slippageBps int64) (*types.Quote, error)
}

// RouteSource resolves and revalidates cross-chain routes.
type RouteSource interface {
	FindRoute(ctx context.Context, req *types.RouteRequest) (*types.BridgeRoute, error)
	Revalidate(ctx context.Context, routeID string) error
}

// Approver establishes spending authorizations before a swap executes.
type Approver interface {
	EnsureApproval(ctx context.Context, token types.TokenInfo, spender string, required *big.Int) (string, error)
}

// HistoryRecorder receives execution records at broadcast time and on every
// status transition.
type HistoryRecorder interface {
	Upsert(record *types.ExecutionRecord)
}

// BridgeTracker follows a broadcast bridge transfer until it reaches a
// terminal phase or the tracker gives up.
type BridgeTracker interface {
	Track(ctx context.Context, routeID, txHash string, fromChain, toChain uint64) (*types.BridgeStatus, error)
}

// Engine is the execution state machine shared by the swap and bridge paths.
//
// The engine owns the in-flight flags and the last error; the quote, route,
// allowance, and wallet readiness are published into it by their respective
// owners and read during state derivation. All mutation happens under one
// mutex and the derived state is recomputed from a snapshot on every read.
type Engine struct {
	chain      *types.ChainConfig
	signer     types.Signer
	quoter     QuoteSource
	bridges    RouteSource
	approver   Approver
	aggregator types.BridgeAggregator
	history    HistoryRecorder
	tracker    BridgeTracker
	debouncer  *resolver.Debouncer
	logger     *logrus.Logger

	mu          sync.Mutex
	tokenIn     types.TokenInfo
	tokenOut    types.TokenInfo
	slippageBps int64
	walletReady bool
	amount      *big.Int
	allowance   *big.Int
	quote       *types.Quote
	route       *types.BridgeRoute
	approving   bool
	executing   bool
	confirming  bool
	lastErr     error
	success     bool
}

// Dependencies carries the collaborators an engine is built from.
type Dependencies struct {
	Chain      *types.ChainConfig
	Signer     types.Signer
	Quoter     QuoteSource
	Bridges    RouteSource
	Approver   Approver
	Aggregator types.BridgeAggregator
	History    HistoryRecorder
	Tracker    BridgeTracker
	Logger     *logrus.Logger
}

// NewEngine creates an engine over the given collaborators.
//
// Parameters:
// - deps: the collaborator set.
// - debounce: the quote debounce window, DefaultDebounce when zero.
//
// Returns:
// - *Engine: the engine instance.
func NewEngine(deps Dependencies, debounce time.Duration) *Engine {
	if debounce <= 0 {
		debounce = resolver.DefaultDebounce
	}
	return &Engine{
		chain:      deps.Chain,
		signer:     deps.Signer,
		quoter:     deps.Quoter,
		bridges:    deps.Bridges,
		approver:   deps.Approver,
		aggregator: deps.Aggregator,
		history:    deps.History,
		tracker:    deps.Tracker,
		debouncer:  resolver.NewDebouncer(debounce, deps.Logger),
		logger:     deps.Logger,
		allowance:  big.NewInt(0),
	}
}

// Close stops the engine's quote debouncer. In-flight executions are not
// interrupted; a broadcast signature cannot be withdrawn.
func (e *Engine) Close() {
	e.debouncer.Stop()
}

// SetWalletReady publishes wallet readiness into the state machine.
func (e *Engine) SetWalletReady(ready bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.walletReady = ready
}

// SetPair sets the trading pair and slippage tolerance. Cross-chain pairs
// route through the bridge aggregator; same-chain pairs through the router.
// Any current quote, error, and success flag are discarded.
func (e *Engine) SetPair(tokenIn, tokenOut types.TokenInfo, slippageBps int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tokenIn = tokenIn
	e.tokenOut = tokenOut
	e.slippageBps = slippageBps
	e.quote = nil
	e.route = nil
	e.lastErr = nil
	e.success = false
	e.debouncer.Invalidate()
}

// SetAmount publishes a new input amount and schedules a debounced quote
// fetch for it. A nil or zero amount invalidates any pending fetch and clears
// the quote. Editing the amount clears the sticky success flag and the last
// error.
func (e *Engine) SetAmount(amount *big.Int) {
	e.mu.Lock()
	if amount == nil || amount.Sign() <= 0 {
		e.amount = big.NewInt(0)
	} else {
		e.amount = new(big.Int).Set(amount)
	}
	e.quote = nil
	e.route = nil
	e.lastErr = nil
	e.success = false

	fetchAmount := new(big.Int).Set(e.amount)
	tokenIn, tokenOut := e.tokenIn, e.tokenOut
	slippage := e.slippageBps
	bridge := e.isBridge()
	e.mu.Unlock()

	if fetchAmount.Sign() == 0 {
		e.debouncer.Invalidate()
		return
	}

	var fetchedRoute *types.BridgeRoute

	fetch := func(ctx context.Context) (*types.Quote, error) {
		if !bridge {
			return e.quoter.Quote(ctx, tokenIn, tokenOut, fetchAmount, slippage)
		}

		route, err := e.bridges.FindRoute(ctx, &types.RouteRequest{
			FromChain:   tokenIn.ChainID,
			ToChain:     tokenOut.ChainID,
			FromToken:   tokenIn.ContractAddress,
			ToToken:     tokenOut.ContractAddress,
			FromAmount:  fetchAmount,
			FromAddress: e.signer.Address(),
			ToAddress:   e.signer.Address(),
		})
		if err != nil {
			return nil, err
		}

		fetchedRoute = route
		return &types.Quote{
			ExpectedOutput: route.ToAmount,
			MinimumOutput:  types.MinimumOutput(route.ToAmount, slippage),
			SlippageBps:    slippage,
			AmountIn:       fetchAmount,
			RequestedAt:    time.Now(),
		}, nil
	}

	commit := func(quote *types.Quote, err error) {
		e.mu.Lock()
		defer e.mu.Unlock()
		if err != nil {
			e.lastErr = err
			e.logger.WithError(err).Warn("Quote resolution failed")
			return
		}
		e.quote = quote
		e.route = fetchedRoute
		e.lastErr = nil
	}

	e.debouncer.Request(fetch, commit)
}

// RefreshAllowance reads the router allowance for the current input token and
// publishes it. Bridge pairs need no router authorization and always publish
// an unlimited allowance.
func (e *Engine) RefreshAllowance(ctx context.Context) error {
	e.mu.Lock()
	tokenIn := e.tokenIn
	bridge := e.isBridge()
	e.mu.Unlock()

	if bridge {
		e.mu.Lock()
		e.allowance = types.MaxUint256
		e.mu.Unlock()
		return nil
	}

	current, err := e.signer.GetAllowance(ctx, tokenIn, e.chain.RouterAddress)
	if err != nil {
		return errors.Wrap(err, "failed to refresh allowance")
	}

	e.mu.Lock()
	e.allowance = current
	e.mu.Unlock()
	return nil
}

// State derives the current engine state.
func (e *Engine) State() types.EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return DeriveState(e.snapshotLocked())
}

// Quote returns the currently published quote, or nil.
func (e *Engine) Quote() *types.Quote {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.quote
}

// LastError returns the error of the last failed operation, or nil.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Reset returns the engine to IDLE: amount, quote, error, and success flag
// are cleared. In-flight flags are untouched.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.amount = big.NewInt(0)
	e.quote = nil
	e.route = nil
	e.lastErr = nil
	e.success = false
	e.debouncer.Invalidate()
}

// Approve establishes an infinite router authorization for the input token.
// Callable only from NEEDS_APPROVAL. On success the allowance is re-read and
// republished, which is expected to land the derived state on READY. A user
// rejection restores the pre-attempt state and records nothing.
//
// Parameters:
// - ctx: the context for managing the request.
//
// Returns:
// - error: ErrIllegalTransition outside NEEDS_APPROVAL, ErrUserRejected when
//   the signer declined, or the approval failure.
func (e *Engine) Approve(ctx context.Context) error {
	e.mu.Lock()
	if DeriveState(e.snapshotLocked()) != types.StateNeedsApproval {
		e.mu.Unlock()
		return commonerrors.ErrIllegalTransition
	}
	e.approving = true
	tokenIn := e.tokenIn
	required := new(big.Int).Set(e.amount)
	e.mu.Unlock()

	_, err := e.approver.EnsureApproval(ctx, tokenIn, e.chain.RouterAddress, required)
	if err != nil {
		e.mu.Lock()
		e.approving = false
		if !commonerrors.IsUserRejected(err) {
			e.lastErr = err
		}
		e.mu.Unlock()
		return err
	}

	current, err := e.signer.GetAllowance(ctx, tokenIn, e.chain.RouterAddress)

	e.mu.Lock()
	e.approving = false
	if err != nil {
		e.lastErr = errors.Wrap(err, "failed to refresh allowance after approval")
	} else {
		e.allowance = current
	}
	e.mu.Unlock()

	return err
}

// Execute broadcasts the quoted operation. Callable only from READY; a call
// while a previous execution is broadcasting or confirming returns
// ErrExecutionInFlight. The call blocks until finality: a single receipt for
// swaps, the status tracker's terminal phase for bridges.
//
// Parameters:
// - ctx: the context for managing the request.
//
// Returns:
// - error: a pre-flight rejection, ErrUserRejected, or the execution failure.
func (e *Engine) Execute(ctx context.Context) error {
	e.mu.Lock()
	if e.executing || e.confirming {
		e.mu.Unlock()
		return commonerrors.ErrExecutionInFlight
	}
	if DeriveState(e.snapshotLocked()) != types.StateReady {
		e.mu.Unlock()
		return commonerrors.ErrIllegalTransition
	}

	e.executing = true
	tokenIn, tokenOut := e.tokenIn, e.tokenOut
	amount := new(big.Int).Set(e.amount)
	quote := e.quote
	route := e.route
	bridge := e.isBridge()
	e.mu.Unlock()

	if bridge {
		return e.executeBridge(ctx, tokenIn, amount, route)
	}
	return e.executeSwap(ctx, tokenIn, tokenOut, amount, quote)
}

// executeSwap runs the same-chain path: client-side balance pre-flight,
// router broadcast, one receipt.
func (e *Engine) executeSwap(ctx context.Context, tokenIn, tokenOut types.TokenInfo, amount *big.Int, quote *types.Quote) error {
	balance, err := e.signer.GetBalance(ctx, tokenIn)
	if err != nil {
		return e.failExecution(errors.Wrap(err, "balance pre-flight failed"), nil)
	}
	if balance.Cmp(amount) < 0 {
		// Pre-flight rejection: execution never starts and the state stays READY.
		e.clearExecuting()
		return commonerrors.ErrInsufficientBalance
	}

	params := &types.SwapParams{
		TokenIn:      tokenIn,
		TokenOut:     tokenOut,
		AmountIn:     amount,
		MinimumOut:   quote.MinimumOutput,
		Route:        quote.Route,
		Router:       e.chain.RouterAddress,
		Recipient:    e.signer.Address(),
		DeadlineUnix: time.Now().Unix() + swapDeadlineSeconds,
	}

	txHash, err := e.signer.ExecuteSwap(ctx, params)
	if err != nil {
		if commonerrors.IsUserRejected(err) {
			e.clearExecuting()
			return err
		}
		return e.failExecution(err, nil)
	}

	record := e.newRecord(types.KindSwap, txHash, tokenIn, 0,
		fmt.Sprintf("Swap %s %s for %s", amount.String(), tokenIn.Symbol, tokenOut.Symbol), amount)
	e.history.Upsert(record)
	e.beginConfirming()

	success, err := e.signer.WaitConfirmation(ctx, txHash)
	if err != nil {
		return e.failExecution(errors.Wrap(err, "swap confirmation failed"), record)
	}
	if !success {
		return e.failExecution(errors.Wrap(commonerrors.ErrTransactionFailed, "swap reverted"), record)
	}

	e.finishExecution(record, record.Hash)
	return nil
}

// executeBridge runs the cross-chain path: aggregator revalidation, source
// broadcast, then the status tracker until the destination leg settles.
func (e *Engine) executeBridge(ctx context.Context, tokenIn types.TokenInfo, amount *big.Int, route *types.BridgeRoute) error {
	if err := e.bridges.Revalidate(ctx, route.ID); err != nil {
		// Revalidation failure surfaces before any gas is spent.
		return e.failExecution(err, nil)
	}

	step, err := e.aggregator.GetExecutableSteps(ctx, route.ID)
	if err != nil {
		return e.failExecution(errors.Wrap(err, "failed to fetch executable step"), nil)
	}

	txHash, err := e.signer.SendTransaction(ctx, step)
	if err != nil {
		if commonerrors.IsUserRejected(err) {
			e.clearExecuting()
			return err
		}
		return e.failExecution(err, nil)
	}

	record := e.newRecord(types.KindBridge, txHash, tokenIn, route.ToChain,
		fmt.Sprintf("Bridge %s %s to chain %d", amount.String(), tokenIn.Symbol, route.ToChain), amount)
	e.history.Upsert(record)
	e.beginConfirming()

	status, err := e.tracker.Track(ctx, route.ID, txHash, route.FromChain, route.ToChain)
	if err != nil {
		return e.failExecution(errors.Wrap(err, "bridge status tracking failed"), record)
	}

	if status.Phase == types.PhaseFailed {
		return e.failExecution(errors.Wrap(commonerrors.ErrTransactionFailed, string(status.SubStatus)), record)
	}

	finalHash := record.Hash
	if status.DestinationTxHash != "" {
		finalHash = status.DestinationTxHash
	}
	e.finishExecution(record, finalHash)
	return nil
}

// snapshotLocked builds the state-derivation input. Caller holds e.mu.
func (e *Engine) snapshotLocked() Snapshot {
	return Snapshot{
		WalletReady:   e.walletReady,
		Amount:        e.amount,
		Allowance:     e.allowance,
		Quote:         e.quote,
		QuoteInFlight: e.debouncer.InFlight(),
		Approving:     e.approving,
		Executing:     e.executing,
		Confirming:    e.confirming,
		Err:           e.lastErr,
		Success:       e.success,
	}
}

func (e *Engine) newRecord(kind types.RecordKind, txHash string, tokenIn types.TokenInfo, toChain uint64, description string, amount *big.Int) *types.ExecutionRecord {
	now := time.Now().UnixMilli()
	return &types.ExecutionRecord{
		ID:           uuid.New().String(),
		Kind:         kind,
		Status:       types.RecordPending,
		Description:  description,
		TimestampMs:  now,
		Hash:         txHash,
		FromChain:    tokenIn.ChainID,
		ToChain:      toChain,
		Amount:       amount.String(),
		Token:        tokenIn.Symbol,
		LastUpdateMs: now,
	}
}

func (e *Engine) clearExecuting() {
	e.mu.Lock()
	e.executing = false
	e.mu.Unlock()
}

func (e *Engine) beginConfirming() {
	e.mu.Lock()
	e.executing = false
	e.confirming = true
	e.mu.Unlock()
}

// failExecution surfaces a fatal execution error and marks the history
// record, if one was created, FAILED.
func (e *Engine) failExecution(err error, record *types.ExecutionRecord) error {
	e.mu.Lock()
	e.executing = false
	e.confirming = false
	e.lastErr = err
	e.mu.Unlock()

	if record != nil {
		record.Status = types.RecordFailed
		record.LastUpdateMs = time.Now().UnixMilli()
		e.history.Upsert(record)
	}

	e.logger.WithError(err).Error("Execution failed")
	return err
}

// finishExecution marks the record COMPLETED, re-keying it to the final hash
// when the destination leg settled under a different one.
func (e *Engine) finishExecution(record *types.ExecutionRecord, finalHash string) {
	record.Hash = finalHash
	record.Status = types.RecordCompleted
	record.LastUpdateMs = time.Now().UnixMilli()
	e.history.Upsert(record)

	e.mu.Lock()
	e.confirming = false
	e.success = true
	e.mu.Unlock()

	e.logger.WithFields(logrus.Fields{
		"txHash": finalHash,
		"kind":   record.Kind,
	}).Info("Execution completed")
}

// isBridge reports whether the current pair crosses chains. Caller holds e.mu.
func (e *Engine) isBridge() bool {
	return e.tokenIn.ChainID != e.tokenOut.ChainID && e.tokenOut.ChainID != 0
}
