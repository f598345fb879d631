package types

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"
)

// TransactionRequest describes a transaction to be signed and broadcast by a
// signer backend. Bridge steps arrive in this shape from the aggregator;
// approvals and swaps are packed into it locally.
type TransactionRequest struct {
	To       string
	Value    *big.Int
	Data     []byte
	GasLimit uint64
	ChainID  uint64
}

// SwapParams carries everything required to execute a same-chain swap
// through the on-chain router.
//
// Fields:
// - TokenIn, TokenOut: the tokens being traded.
// - AmountIn: the input amount in the input token's smallest unit.
// - MinimumOut: the slippage-adjusted output floor from the quote.
// - Route: the ordered hop addresses from the quote.
// - Router: the router contract address.
// - Recipient: the address receiving the output tokens.
// - DeadlineUnix: the Unix timestamp after which the router must reject the trade.
type SwapParams struct {
	TokenIn      TokenInfo
	TokenOut     TokenInfo
	AmountIn     *big.Int
	MinimumOut   *big.Int
	Route        []string
	Router       string
	Recipient    string
	DeadlineUnix int64
}

// Signer is the capability contract shared by both signing backends. The
// engine and resolver depend only on this interface and never branch on
// backend identity.
type Signer interface {
	// Address returns the active account address.
	Address() string

	// ChainID returns the chain the signer is currently bound to.
	ChainID() uint64

	// GetBalance returns the account balance of the given token in its
	// smallest unit.
	GetBalance(ctx context.Context, token TokenInfo) (*big.Int, error)

	// GetAllowance returns the amount the spender contract is authorized to
	// spend of the given token on behalf of the active account.
	GetAllowance(ctx context.Context, token TokenInfo, spender string) (*big.Int, error)

	// Approve submits an approval transaction authorizing the spender for the
	// given amount and returns the transaction hash.
	Approve(ctx context.Context, token TokenInfo, spender string, amount *big.Int) (string, error)

	// ExecuteSwap signs and broadcasts a swap through the on-chain router and
	// returns the transaction hash.
	ExecuteSwap(ctx context.Context, params *SwapParams) (string, error)

	// SendTransaction signs and broadcasts an arbitrary prepared transaction,
	// such as a bridge step, and returns the transaction hash.
	SendTransaction(ctx context.Context, req *TransactionRequest) (string, error)

	// WaitConfirmation blocks until the transaction is mined and reports
	// whether the receipt status is successful.
	WaitConfirmation(ctx context.Context, txHash string) (bool, error)

	// EstimateGas estimates gas for the request. On failure it returns a fixed
	// conservative fallback instead of propagating the error.
	EstimateGas(ctx context.Context, req *TransactionRequest) uint64

	// GasPrice returns the current gas price in gwei. On failure it returns
	// the last-known value, or a fixed fallback, and never blocks.
	GasPrice(ctx context.Context) decimal.Decimal
}

// WalletProvider is the injected request/response channel of an external
// wallet. Signing is opaque to the engine and may be rejected by the user;
// providers report rejection with an error classified as user-rejected.
type WalletProvider interface {
	// Address returns the account the wallet currently exposes.
	Address() string

	// ChainID returns the chain the wallet is currently connected to.
	ChainID() uint64

	// Call performs a read-only contract call through the wallet's node.
	Call(ctx context.Context, to string, data []byte) ([]byte, error)

	// Balance returns the native asset balance of the given address.
	Balance(ctx context.Context, address string) (*big.Int, error)

	// TransactionReceipt looks up the receipt of a broadcast transaction.
	// found is false while the transaction is not yet mined.
	TransactionReceipt(ctx context.Context, txHash string) (found bool, success bool, err error)

	// SendTransaction asks the wallet to sign and broadcast the request.
	SendTransaction(ctx context.Context, req *TransactionRequest) (string, error)

	// EstimateGas estimates gas through the wallet's node.
	EstimateGas(ctx context.Context, req *TransactionRequest) (uint64, error)

	// GasPrice returns the wallet node's current gas price in wei.
	GasPrice(ctx context.Context) (*big.Int, error)
}

// KeyCustody reports the session state of the embedded key-custody module
// that owns the internal signer's raw key.
type KeyCustody interface {
	// IsUnlocked reports whether the custody module is unlocked for signing.
	IsUnlocked() bool

	// ActiveAddress returns the address of the active account.
	ActiveAddress() string

	// ActiveChainID returns the chain of the active account.
	ActiveChainID() uint64
}
