package gasoracle

import (
	"context"
	"sync"
	"time"

	"github.com/HelioDex/exchange-engine/common/types"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// defaultPollInterval defines the interval between gas price refreshes.
const defaultPollInterval = 15 * time.Second

// GasOracle represents the gas price polling interface.
type GasOracle interface {
	// Start starts gas price polling.
	Start(ctx context.Context) error
	// Stop stops gas price polling.
	Stop()
	// Current returns the last published gas price in gwei.
	Current() decimal.Decimal
}

type gasOracle struct {
	signer    types.Signer
	logger    *logrus.Logger
	chainName string
	interval  time.Duration

	stopChan    chan struct{}
	isPolling   bool
	pollMutex   sync.RWMutex
	priceMutex  sync.RWMutex
	latestPrice decimal.Decimal
}

// NewGasOracle creates a new gas oracle instance.
//
// Parameters:
// - signer: the signer whose gas price source is polled.
// - logger: the logger for logging purposes.
// - chainName: the name of the blockchain chain.
// - interval: the polling interval, defaultPollInterval when zero.
//
// Returns:
// - GasOracle: the new gas oracle instance.
func NewGasOracle(
	signer types.Signer,
	logger *logrus.Logger,
	chainName string,
	interval time.Duration,
) GasOracle {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &gasOracle{
		signer:    signer,
		logger:    logger,
		chainName: chainName,
		interval:  interval,
		stopChan:  make(chan struct{}),
		isPolling: false,
	}
}

// Start starts gas price polling. The price is refreshed once synchronously
// so Current never reports zero after a successful Start.
//
// Parameters:
// - ctx: the context for managing the request.
//
// Returns:
// - error: an error if the gas oracle is already running.
func (o *gasOracle) Start(ctx context.Context) error {
	o.pollMutex.Lock()
	if o.isPolling {
		o.pollMutex.Unlock()
		return errors.Errorf("gas oracle is already running for chain %s", o.chainName)
	}
	o.isPolling = true
	o.pollMutex.Unlock()

	o.refresh(ctx)

	go o.pollGasPrice(ctx)
	return nil
}

// Stop stops gas price polling.
func (o *gasOracle) Stop() {
	o.pollMutex.Lock()
	defer o.pollMutex.Unlock()

	if !o.isPolling {
		return
	}

	close(o.stopChan)
	o.isPolling = false
}

// Current returns the last published gas price in gwei. It never blocks on
// the network.
func (o *gasOracle) Current() decimal.Decimal {
	o.priceMutex.RLock()
	defer o.priceMutex.RUnlock()
	return o.latestPrice
}

// pollGasPrice refreshes the published price on the configured interval.
//
// Parameters:
// - ctx: the context for managing the request.
func (o *gasOracle) pollGasPrice(ctx context.Context) {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.WithField("chain", o.chainName).Info("Gas price polling stopped due to context cancellation")
			return

		case <-o.stopChan:
			o.logger.WithField("chain", o.chainName).Info("Gas price polling stopped")
			return

		case <-ticker.C:
			o.refresh(ctx)
		}
	}
}

// refresh publishes the signer's current gas price. The signer already falls
// back to the last-known value on RPC failure, so a transient outage shows
// up here as a stale price rather than an error.
func (o *gasOracle) refresh(ctx context.Context) {
	price := o.signer.GasPrice(ctx)

	o.priceMutex.Lock()
	o.latestPrice = price
	o.priceMutex.Unlock()

	o.logger.WithFields(logrus.Fields{
		"chain":    o.chainName,
		"gasPrice": price.String(),
	}).Debug("Gas price refreshed")
}
