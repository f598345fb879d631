package statustracker

import (
	"context"
	"time"

	commonerrors "github.com/HelioDex/exchange-engine/common/errors"
	"github.com/HelioDex/exchange-engine/common/types"
	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultCooldown is the minimum interval between two status polls for
	// the same transaction hash.
	DefaultCooldown = 10 * time.Second

	// DefaultMaxAttempts bounds how many polls Track performs before giving
	// up on a transfer that never reaches a terminal phase.
	DefaultMaxAttempts = 120
)

// Outcome is the result of one status check. A rate-limited outcome carries
// the remaining cooldown and was produced without any network call.
type Outcome struct {
	Status      *types.BridgeStatus
	RateLimited bool
	RetryAfter  time.Duration
}

// Tracker polls the aggregator for cross-chain transfer status with a
// per-hash cooldown. Polling is pull-based; the cooldown is enforced
// client-side so an impatient caller never reaches the network.
type Tracker struct {
	aggregator  types.BridgeAggregator
	cooldowns   *gocache.Cache
	cooldown    time.Duration
	maxAttempts int
	logger      *logrus.Logger
}

// NewTracker creates a tracker over the given aggregator.
//
// Parameters:
// - aggregator: the aggregator status endpoint client.
// - cooldown: the per-hash poll cooldown, DefaultCooldown when zero.
// - maxAttempts: the Track attempt bound, DefaultMaxAttempts when zero.
// - logger: the logger for logging events.
//
// Returns:
// - *Tracker: the tracker instance.
func NewTracker(aggregator types.BridgeAggregator, cooldown time.Duration, maxAttempts int, logger *logrus.Logger) *Tracker {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Tracker{
		aggregator:  aggregator,
		cooldowns:   gocache.New(cooldown, cooldown),
		cooldown:    cooldown,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// CheckStatus polls the aggregator for the transfer's current status. A call
// inside the per-hash cooldown window is rejected client-side with the
// remaining cooldown and performs no network call. A terminal phase clears
// the cooldown entry: no further polling is useful for that hash.
//
// Parameters:
// - ctx: the context for managing the request.
// - routeID: the opaque route handle the transfer was executed from.
// - txHash: the source-chain transaction hash.
//
// Returns:
// - *Outcome: the status or the rate-limit verdict.
// - error: an error if the aggregator request failed.
func (t *Tracker) CheckStatus(ctx context.Context, routeID, txHash string) (*Outcome, error) {
	if lastPoll, found := t.cooldowns.Get(txHash); found {
		remaining := t.cooldown - time.Since(lastPoll.(time.Time))
		if remaining < 0 {
			remaining = 0
		}
		return &Outcome{RateLimited: true, RetryAfter: remaining}, nil
	}

	t.cooldowns.Set(txHash, time.Now(), t.cooldown)

	status, err := t.aggregator.GetStatus(ctx, routeID, txHash)
	if err != nil {
		return nil, errors.Wrap(err, "status poll failed")
	}

	if status.Phase != types.PhasePending {
		t.cooldowns.Delete(txHash)
	}

	return &Outcome{Status: status}, nil
}

// Track polls until the transfer reaches a terminal phase or the attempt
// bound is exhausted. Transient aggregator failures are logged and consume an
// attempt; they never abort the loop on their own.
//
// Parameters:
// - ctx: the context for managing the polling loop.
// - routeID: the opaque route handle the transfer was executed from.
// - txHash: the source-chain transaction hash.
// - fromChain, toChain: the source and destination chain identifiers.
//
// Returns:
// - *types.BridgeStatus: the terminal status.
// - error: ErrStatusTimeout when the attempt bound is exhausted, or the
//   context error on cancellation.
func (t *Tracker) Track(ctx context.Context, routeID, txHash string, fromChain, toChain uint64) (*types.BridgeStatus, error) {
	log := t.logger.WithFields(logrus.Fields{
		"txHash":    txHash,
		"fromChain": fromChain,
		"toChain":   toChain,
	})

	for attempt := 0; attempt < t.maxAttempts; attempt++ {
		outcome, err := t.CheckStatus(ctx, routeID, txHash)
		switch {
		case err != nil:
			log.WithError(err).Warn("Status poll failed, retrying")
		case outcome.RateLimited:
			// Another caller polled this hash recently; wait out the window.
		case outcome.Status.Phase != types.PhasePending:
			log.WithField("phase", outcome.Status.Phase).Info("Transfer reached terminal phase")
			return outcome.Status, nil
		}

		wait := t.cooldown
		if outcome != nil && outcome.RateLimited && outcome.RetryAfter > 0 {
			wait = outcome.RetryAfter
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	return nil, errors.Wrapf(commonerrors.ErrStatusTimeout, "transfer %s not terminal after %d attempts", txHash, t.maxAttempts)
}
