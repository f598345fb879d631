package signer

import (
	"sync"

	"github.com/HelioDex/exchange-engine/common/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Backend identifies which signing backend a configuration selects.
type Backend string

const (
	// BackendInternal signs locally with the session key held by key custody.
	BackendInternal Backend = "internal"
	// BackendExternal delegates signing to an injected wallet provider.
	BackendExternal Backend = "external"
)

// BackendConfig holds everything required to construct a signer backend.
//
// Fields:
// - Backend: the backend kind to construct.
// - Chain: the chain configuration (internal backend only).
// - Custody: the key custody module (internal backend only).
// - PrivateKeyHex: the session key (internal backend only).
// - Provider: the injected wallet provider (external backend only).
type BackendConfig struct {
	Backend       Backend
	Chain         *types.ChainConfig
	Custody       types.KeyCustody
	PrivateKeyHex string
	Provider      types.WalletProvider
}

// SignerConstructor represents a function that constructs a signer backend.
type SignerConstructor func(config *BackendConfig, logger *logrus.Logger) (types.Signer, error)

// SignerFactory defines the interface for signer creation.
type SignerFactory interface {
	// RegisterConstructor registers a new signer constructor for a backend kind.
	RegisterConstructor(backend Backend, constructor SignerConstructor)

	// CreateSigner creates a new signer instance based on the configuration.
	//
	// Parameters:
	// - config: the backend configuration.
	// - logger: the logger for logging purposes.
	//
	// Returns:
	// - types.Signer: the created signer instance.
	// - error: an error if the signer creation fails.
	CreateSigner(config *BackendConfig, logger *logrus.Logger) (types.Signer, error)
}

type signerFactory struct {
	constructors      map[Backend]SignerConstructor
	constructorsMutex sync.RWMutex
}

// NewSignerFactory creates a factory preloaded with the internal and external
// backend constructors.
func NewSignerFactory() SignerFactory {
	factory := &signerFactory{
		constructors: make(map[Backend]SignerConstructor),
	}

	factory.registerConstructors()

	return factory
}

// RegisterConstructor registers a new signer constructor.
func (f *signerFactory) RegisterConstructor(backend Backend, constructor SignerConstructor) {
	f.constructorsMutex.Lock()
	defer f.constructorsMutex.Unlock()

	f.constructors[backend] = constructor
}

// CreateSigner creates a new signer instance based on the configuration.
func (f *signerFactory) CreateSigner(config *BackendConfig, logger *logrus.Logger) (types.Signer, error) {
	f.constructorsMutex.RLock()
	constructor, exists := f.constructors[config.Backend]
	f.constructorsMutex.RUnlock()

	if !exists {
		return nil, errors.New("invalid signer backend")
	}

	return constructor(config, logger)
}

// registerConstructors registers the built-in backend constructors.
func (f *signerFactory) registerConstructors() {
	f.RegisterConstructor(BackendInternal, func(config *BackendConfig, logger *logrus.Logger) (types.Signer, error) {
		if config.Chain == nil || config.Custody == nil {
			return nil, errors.New("internal backend requires chain config and key custody")
		}
		return NewInternalSigner(config.Chain, config.Custody, config.PrivateKeyHex, logger)
	})

	f.RegisterConstructor(BackendExternal, func(config *BackendConfig, logger *logrus.Logger) (types.Signer, error) {
		if config.Provider == nil {
			return nil, errors.New("external backend requires a wallet provider")
		}
		return NewExternalSigner(config.Provider, logger), nil
	})
}
