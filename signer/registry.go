package signer

import (
	"sync"

	"github.com/HelioDex/exchange-engine/common/types"
	"github.com/sirupsen/logrus"
)

// Registry manages constructed signer backends keyed by chain ID, so that an
// application serving several networks keeps one signer per chain.
type Registry interface {
	// Add constructs a signer from the configuration and registers it under
	// its chain.
	Add(config *BackendConfig) error

	// Get retrieves the signer registered for the chain, or nil.
	Get(chainID uint64) types.Signer

	// Remove removes the signer registered for the chain.
	Remove(chainID uint64)
}

type signerRegistry struct {
	logger       *logrus.Logger
	signers      map[uint64]types.Signer
	signersMutex sync.RWMutex
	factory      SignerFactory
}

// NewRegistry creates a signer registry backed by the given factory.
func NewRegistry(factory SignerFactory, logger *logrus.Logger) Registry {
	return &signerRegistry{
		signers: make(map[uint64]types.Signer),
		factory: factory,
		logger:  logger,
	}
}

func (r *signerRegistry) Add(config *BackendConfig) error {
	s, err := r.factory.CreateSigner(config, r.logger)
	if err != nil {
		return err
	}

	r.signersMutex.Lock()
	r.signers[s.ChainID()] = s
	r.signersMutex.Unlock()

	return nil
}

func (r *signerRegistry) Get(chainID uint64) types.Signer {
	r.signersMutex.RLock()
	s := r.signers[chainID]
	r.signersMutex.RUnlock()
	return s
}

func (r *signerRegistry) Remove(chainID uint64) {
	r.signersMutex.Lock()
	delete(r.signers, chainID)
	r.signersMutex.Unlock()
}
