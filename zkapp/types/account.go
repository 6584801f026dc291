package types

import "github.com/holiman/uint256"

// Account is the on-chain view of an address.
// ZkappState is nil for plain (fee payer) accounts.
type Account struct {
	Address    string
	Balance    *uint256.Int
	Nonce      uint64
	ZkappState *Field
}

func (a *Account) IsZkapp() bool {
	return a.ZkappState != nil
}

func (a *Account) Clone() *Account {
	ret := &Account{
		Address: a.Address,
		Balance: new(uint256.Int),
		Nonce:   a.Nonce,
	}
	if a.Balance != nil {
		ret.Balance.Set(a.Balance)
	}
	if a.ZkappState != nil {
		st := *a.ZkappState
		ret.ZkappState = &st
	}
	return ret
}
