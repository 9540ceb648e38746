package database

import (
	"errors"
	"fmt"
)

// ErrMiningAborted is returned when a proof of work search is cancelled
// before a solution is found.
var ErrMiningAborted = errors.New("mining aborted")

// =============================================================================

// InvalidTransactionError is returned when a submitted transaction is
// malformed. These transactions never enter the mempool.
type InvalidTransactionError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *InvalidTransactionError) Error() string {
	return fmt.Sprintf("invalid transaction: %s: %s", e.Field, e.Reason)
}

// IsInvalidTransaction checks if an error of type InvalidTransactionError exists.
func IsInvalidTransaction(err error) bool {
	var ite *InvalidTransactionError
	return errors.As(err, &ite)
}

// GetInvalidTransaction returns a copy of the InvalidTransactionError pointer.
func GetInvalidTransaction(err error) *InvalidTransactionError {
	var ite *InvalidTransactionError
	if !errors.As(err, &ite) {
		return nil
	}
	return ite
}

// =============================================================================

// ChainLinkageError is returned by Append when a block can't become the next
// block in the chain. This happens when a candidate was mined against a tip
// that is no longer the tip.
type ChainLinkageError struct {
	Number uint64
	Reason string
}

// Error implements the error interface.
func (e *ChainLinkageError) Error() string {
	return fmt.Sprintf("block %d rejected: %s", e.Number, e.Reason)
}

// IsChainLinkage checks if an error of type ChainLinkageError exists.
func IsChainLinkage(err error) bool {
	var cle *ChainLinkageError
	return errors.As(err, &cle)
}

// =============================================================================

// ChainIntegrityError is returned by chain validation when a stored block
// does not hold up to its own hash, its parent, or its difficulty.
type ChainIntegrityError struct {
	Number uint64
	Reason string
}

// Error implements the error interface.
func (e *ChainIntegrityError) Error() string {
	return fmt.Sprintf("chain integrity failure at block %d: %s", e.Number, e.Reason)
}

// IsChainIntegrity checks if an error of type ChainIntegrityError exists.
func IsChainIntegrity(err error) bool {
	var cie *ChainIntegrityError
	return errors.As(err, &cie)
}
