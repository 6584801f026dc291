package session

import (
	"errors"
	"fmt"
)

var (
	ErrNotInitialized      = errors.New("session not initialized")
	ErrAccountNotFunded    = errors.New("account not funded")
	ErrTransactionInFlight = errors.New("a transaction is already in flight")
	ErrRefreshInFlight     = errors.New("a refresh is already in flight")
	ErrNoAccounts          = errors.New("wallet returned no accounts")
	ErrContractNotFound    = errors.New("contract account not found")
	ErrClosed              = errors.New("session closed")
)

// SetupError is a failed setup step. It is fatal to the session.
type SetupError struct {
	Step string
	Err  error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup: %s: %v", e.Step, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

func setupErr(step string, err error) error {
	return &SetupError{Step: step, Err: err}
}
