package errors

import "github.com/pkg/errors"

var (
	// ErrUserRejected is returned when the signer declined the request.
	// Non-fatal: the engine returns to the state preceding the attempt and
	// no history record is created.
	ErrUserRejected = errors.New("user rejected the signing request")

	// ErrRouteInvalid is returned when the resolver or revalidation reports
	// that a route cannot execute. The caller must request a fresh quote.
	ErrRouteInvalid = errors.New("route is invalid or expired")

	// ErrInsufficientBalance is returned by the client-side pre-flight check
	// before signing; it blocks execution without any network call.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrTransactionFailed is returned when a broadcast succeeded but the
	// receipt reports failure.
	ErrTransactionFailed = errors.New("transaction failed on chain")

	// ErrNetworkUnavailable is returned when the RPC or aggregator is
	// unreachable for a quote or execute attempt.
	ErrNetworkUnavailable = errors.New("network unavailable")

	// ErrRateLimited is returned when a status poll is attempted inside the
	// per-hash cooldown window. It never results in a network call.
	ErrRateLimited = errors.New("status poll rate limited")

	// ErrExecutionInFlight is returned when Execute is called while an
	// execution is already broadcasting or confirming.
	ErrExecutionInFlight = errors.New("execution already in flight")

	// ErrIllegalTransition is returned when Approve or Execute is called from
	// a state that does not permit it.
	ErrIllegalTransition = errors.New("operation not permitted in current state")

	// ErrSignerLocked is returned when the internal signer is used while the
	// key custody module reports locked.
	ErrSignerLocked = errors.New("key custody is locked")

	// ErrChainMismatch is returned when the active account's chain does not
	// match the token's chain.
	ErrChainMismatch = errors.New("active account chain does not match token chain")

	// ErrTokenNotFound is returned when a token is not configured for a chain.
	ErrTokenNotFound = errors.New("token not configured for chain")

	// ErrRouterNotDeployed is returned when the router contract has no code
	// on the current network.
	ErrRouterNotDeployed = errors.New("router contract not deployed on network")

	// ErrNoRouteFound is returned when the aggregator returns zero routes.
	ErrNoRouteFound = errors.New("no route found")

	// ErrStatusTimeout is returned when status polling exhausts its maximum
	// attempt count without reaching a terminal phase.
	ErrStatusTimeout = errors.New("status polling timed out")
)

// IsUserRejected reports whether err is a user rejection, walking wrapped causes.
func IsUserRejected(err error) bool {
	return errors.Is(err, ErrUserRejected)
}

// IsPreflight reports whether err is a pre-flight rejection that never leaves
// the READY or NEEDS_APPROVAL state (insufficient balance, rate limiting).
func IsPreflight(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) || errors.Is(err, ErrRateLimited)
}
