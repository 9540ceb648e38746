// Package errs provides types and support related to web v1 functionality.
package errs

import (
	"errors"
	"net/http"

	"github.com/qrcledger/node/foundation/blockchain/database"
	"github.com/qrcledger/node/foundation/blockchain/mempool"
	"github.com/qrcledger/node/foundation/blockchain/state"
)

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is used to pass an error during the request through the
// application with web specific context.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// Error implements the error interface. It uses the default message of the
// wrapped error. This is what will be shown in the services' logs.
func (re *Trusted) Error() string {
	return re.Err.Error()
}

// Unwrap returns the wrapped error.
func (re *Trusted) Unwrap() error {
	return re.Err
}

// IsTrusted checks if an error of type Trusted exists.
func IsTrusted(err error) bool {
	var re *Trusted
	return errors.As(err, &re)
}

// GetTrusted returns a copy of the Trusted pointer.
func GetTrusted(err error) *Trusted {
	var re *Trusted
	if !errors.As(err, &re) {
		return nil
	}
	return re
}

// =============================================================================

// FromLedger marks the errors the ledger returns as part of normal operation
// as trusted so the client sees the message with a matching status. Any
// other error is returned untouched.
func FromLedger(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mempool.ErrMempoolFull):
		return NewTrusted(err, http.StatusServiceUnavailable)
	case errors.Is(err, state.ErrFaucetCooldown):
		return NewTrusted(err, http.StatusTooManyRequests)
	case errors.Is(err, state.ErrFaucetDisabled):
		return NewTrusted(err, http.StatusForbidden)
	case errors.Is(err, state.ErrMiningInProgress), errors.Is(err, state.ErrNoTransactions):
		return NewTrusted(err, http.StatusConflict)
	case errors.Is(err, database.ErrNotFound):
		return NewTrusted(err, http.StatusNotFound)
	}
	return err
}
