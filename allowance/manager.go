package allowance

import (
	"context"
	"math/big"

	commonerrors "github.com/HelioDex/exchange-engine/common/errors"
	"github.com/HelioDex/exchange-engine/common/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Manager checks and establishes ERC-20 spending authorizations for the
// router contract. Approvals are always infinite so that a wallet approves a
// token at most once per spender.
type Manager struct {
	signer types.Signer
	logger *logrus.Logger
}

// NewManager creates an allowance manager over the given signer.
//
// Parameters:
// - signer: the signer for reading allowances and submitting approvals.
// - logger: the logger for logging events.
//
// Returns:
// - *Manager: the manager instance.
func NewManager(signer types.Signer, logger *logrus.Logger) *Manager {
	return &Manager{
		signer: signer,
		logger: logger,
	}
}

// Sufficient reports whether the spender is already authorized to move at
// least the required amount of the token. Native assets need no approval and
// always report true.
//
// Parameters:
// - ctx: the context for managing the request.
// - token: the token being spent.
// - spender: the contract address that will move the tokens.
// - required: the amount the pending operation needs to move.
//
// Returns:
// - bool: true when no approval is needed before execution.
// - error: an error if the allowance could not be read.
func (m *Manager) Sufficient(ctx context.Context, token types.TokenInfo, spender string, required *big.Int) (bool, error) {
	if token.IsNative() {
		return true, nil
	}

	current, err := m.signer.GetAllowance(ctx, token, spender)
	if err != nil {
		return false, errors.Wrap(err, "failed to read allowance")
	}

	return current.Cmp(required) >= 0, nil
}

// EnsureApproval authorizes the spender for the token if the current
// allowance is below the required amount. The approval is submitted for the
// maximum uint256 value, and the allowance is read back after confirmation
// rather than assumed.
//
// Parameters:
// - ctx: the context for managing the request.
// - token: the token being approved.
// - spender: the contract address being authorized.
// - required: the amount the pending operation needs to move.
//
// Returns:
// - string: the approval transaction hash, empty when no approval was needed.
// - error: an error if the approval was rejected, failed on chain, or the
//   re-read allowance still falls short.
func (m *Manager) EnsureApproval(ctx context.Context, token types.TokenInfo, spender string, required *big.Int) (string, error) {
	ok, err := m.Sufficient(ctx, token, spender, required)
	if err != nil {
		return "", err
	}
	if ok {
		return "", nil
	}

	m.logger.WithFields(logrus.Fields{
		"token":   token.Symbol,
		"spender": spender,
	}).Info("Submitting infinite approval")

	txHash, err := m.signer.Approve(ctx, token, spender, types.MaxUint256)
	if err != nil {
		return "", errors.Wrap(err, "approval submission failed")
	}

	success, err := m.signer.WaitConfirmation(ctx, txHash)
	if err != nil {
		return txHash, errors.Wrap(err, "failed to confirm approval")
	}
	if !success {
		return txHash, errors.Wrap(commonerrors.ErrTransactionFailed, "approval reverted")
	}

	// Some tokens silently clamp or reject approvals, so the confirmed
	// receipt alone is not proof of authorization.
	current, err := m.signer.GetAllowance(ctx, token, spender)
	if err != nil {
		return txHash, errors.Wrap(err, "failed to re-read allowance after approval")
	}
	if current.Cmp(required) < 0 {
		return txHash, errors.Wrap(commonerrors.ErrTransactionFailed, "allowance still insufficient after approval")
	}

	m.logger.WithFields(logrus.Fields{
		"token":  token.Symbol,
		"txHash": txHash,
	}).Info("Approval confirmed")

	return txHash, nil
}
