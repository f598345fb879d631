package signer

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// keyHolder wraps the session's raw ECDSA key and signs transactions locally.
type keyHolder struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// newKeyHolder creates a key holder from a hex-encoded private key.
//
// Parameters:
// - privateKeyHex: the hex-encoded private key held for the session.
//
// Returns:
// - *keyHolder: the key holder.
// - error: an error if the key cannot be parsed.
func newKeyHolder(privateKeyHex string) (*keyHolder, error) {
	privKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse private key")
	}

	pubKey, ok := privKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("cannot assign public key to ECDSA")
	}

	return &keyHolder{
		privateKey: privKey,
		address:    crypto.PubkeyToAddress(*pubKey),
	}, nil
}

// Address returns the address derived from the held key.
func (k *keyHolder) Address() common.Address {
	return k.address
}

// SignTx signs the given transaction with the specified chain ID and returns
// the signed transaction.
//
// Parameters:
// - tx: the transaction to be signed.
// - chainID: the chain ID for the transaction.
//
// Returns:
// - *ethtypes.Transaction: the signed transaction.
// - error: an error if the signing process fails.
func (k *keyHolder) SignTx(tx *ethtypes.Transaction, chainID *big.Int) (*ethtypes.Transaction, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(k.privateKey, chainID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create keyed transactor")
	}

	signedTx, err := auth.Signer(k.address, tx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction")
	}

	return signedTx, nil
}
