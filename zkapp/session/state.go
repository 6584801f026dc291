package session

import (
	"github.com/kysee/zkapp/zkapp/types"
)

// State is the session record. It is never modified in place: every
// transition copies it, applies its change and swaps the copy in, so a State
// obtained from Snapshot or a watcher stays valid.
type State struct {
	// WalletPresent is nil until wallet detection ran.
	WalletPresent *bool

	// Initialized turns true once, when setup completed.
	Initialized bool
	// AccountFunded turns true once, when the user account was seen on chain.
	AccountFunded bool

	// ObservedValue is the last contract state read.
	ObservedValue *types.Field

	UserAddress     string
	ContractAddress string

	// TransactionInFlight is true for the whole run of the transaction
	// pipeline and false otherwise.
	TransactionInFlight bool
	Refreshing          bool

	LastTxHash string
	LastError  string
}

// HasWallet reports whether a wallet was found; known is false before
// detection.
func (s State) HasWallet() (present, known bool) {
	if s.WalletPresent == nil {
		return false, false
	}
	return *s.WalletPresent, true
}

// CanSubmit reports whether the transaction pipeline may start.
func (s State) CanSubmit() bool {
	return s.Initialized && s.AccountFunded && !s.TransactionInFlight
}

// NeedsFunding reports whether the account poller should run.
func (s State) NeedsFunding() bool {
	return s.Initialized && !s.AccountFunded
}

type setupResult struct {
	userAddress     string
	contractAddress string
	funded          bool
	value           types.Field
}

// transitions; each is applied by Session.transition under the state lock

func walletAbsent(st *State) error {
	absent := false
	st.WalletPresent = &absent
	return nil
}

func setupComplete(r setupResult) func(*State) error {
	return func(st *State) error {
		present := true
		value := r.value
		st.WalletPresent = &present
		st.UserAddress = r.userAddress
		st.ContractAddress = r.contractAddress
		st.AccountFunded = r.funded
		st.ObservedValue = &value
		st.Initialized = true
		st.LastError = ""
		return nil
	}
}

func recordError(err error) func(*State) error {
	return func(st *State) error {
		st.LastError = err.Error()
		return nil
	}
}

func accountFunded(st *State) error {
	st.AccountFunded = true
	return nil
}

func beginTransaction(st *State) error {
	switch {
	case !st.Initialized:
		return ErrNotInitialized
	case !st.AccountFunded:
		return ErrAccountNotFunded
	case st.TransactionInFlight:
		return ErrTransactionInFlight
	}
	st.TransactionInFlight = true
	return nil
}

func endTransaction(hash string, err error) func(*State) error {
	return func(st *State) error {
		st.TransactionInFlight = false
		if err != nil {
			st.LastError = err.Error()
			return nil
		}
		st.LastTxHash = hash
		st.LastError = ""
		return nil
	}
}

func beginRefresh(st *State) error {
	switch {
	case !st.Initialized:
		return ErrNotInitialized
	case st.Refreshing:
		return ErrRefreshInFlight
	}
	st.Refreshing = true
	return nil
}

func endRefresh(value types.Field, err error) func(*State) error {
	return func(st *State) error {
		st.Refreshing = false
		if err != nil {
			st.LastError = err.Error()
			return nil
		}
		st.ObservedValue = &value
		return nil
	}
}
