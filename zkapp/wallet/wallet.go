package wallet

import (
	"context"
	"errors"
	"sync"

	"github.com/holiman/uint256"
)

var (
	ErrUserRejected = errors.New("user rejected the request")
	ErrNotFeePayer  = errors.New("transaction fee payer is not a wallet account")
)

// FeePayer carries the fee and memo the wallet applies to a transaction.
type FeePayer struct {
	Fee  *uint256.Int
	Memo string
}

type SendParams struct {
	// Transaction is the JSON envelope of a proven command.
	Transaction string
	FeePayer    FeePayer
}

type SendResult struct {
	Hash string
}

// Provider is a wallet installed alongside the client.
type Provider interface {
	RequestAccounts(ctx context.Context) ([]string, error)
	SendTransaction(ctx context.Context, params SendParams) (*SendResult, error)
}

var (
	injectedMu sync.RWMutex
	injected   Provider
)

// Inject installs p as the process wide wallet.
func Inject(p Provider) {
	injectedMu.Lock()
	defer injectedMu.Unlock()
	injected = p
}

// Eject removes the installed wallet.
func Eject() {
	Inject(nil)
}

// Injected returns the installed wallet or nil when there is none.
func Injected() Provider {
	injectedMu.RLock()
	defer injectedMu.RUnlock()
	return injected
}
