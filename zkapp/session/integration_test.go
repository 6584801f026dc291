package session

import (
	"context"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/kysee/zkapp/zkapp/chain"
	"github.com/kysee/zkapp/zkapp/circuit"
	"github.com/kysee/zkapp/zkapp/types"
	"github.com/kysee/zkapp/zkapp/wallet"
	"github.com/kysee/zkapp/zkapp/worker"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSessionWithLedger(t *testing.T) {
	cfg := testConfig()
	cfg.CallTimeout = time.Minute

	keys, err := circuit.Compile()
	require.NoError(t, err)
	ledger := chain.NewLedger("testnet")
	ledger.SetLogger(zerolog.Nop())
	require.NoError(t, ledger.Deploy(cfg.ContractAddress, keys.VerifyingKey, types.NewField(0)))

	registry := chain.NewRegistry()
	registry.Register(cfg.Endpoint, ledger)

	ext, err := wallet.NewExtension(ledger, nil)
	require.NoError(t, err)
	ext.SetLogger(zerolog.Nop())

	s, err := New(cfg,
		NewWorkerFactory(registry, worker.WithLogger(zerolog.Nop())),
		func() wallet.Provider { return ext },
		WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Setup(ctx))
	st := s.Snapshot()
	require.True(t, st.Initialized)
	require.False(t, st.AccountFunded)
	require.Equal(t, ext.Address, st.UserAddress)

	// the faucet funds the account; the poller notices
	require.NoError(t, ledger.Fund(ext.Address, types.MustParseAmount("1")))
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err = s.WaitFor(waitCtx, func(st State) bool { return st.AccountFunded })
	require.NoError(t, err)

	hash, err := s.SendTransaction(ctx)
	require.NoError(t, err)
	tx := ledger.GetTransaction(hash)
	require.NotNil(t, tx)
	require.Equal(t, ext.Address, tx.FeePayer)
	require.Equal(t, types.MustParseAmount("0.1"), tx.Fee)
	require.Equal(t, "", tx.Memo)

	acct, err := ledger.GetAccount(ctx, ext.Address)
	require.NoError(t, err)
	require.Equal(t, new(uint256.Int).Sub(types.MustParseAmount("1"), types.MustParseAmount("0.1")), acct.Balance)

	// the session keeps the value it read until asked to refresh
	require.True(t, s.Snapshot().ObservedValue.IsZero())

	// proving against the old value is refused by the network
	_, err = s.SendTransaction(ctx)
	require.ErrorIs(t, err, chain.ErrStaleState)
	require.False(t, s.Snapshot().TransactionInFlight)

	v, err := s.Refresh(ctx)
	require.NoError(t, err)
	require.True(t, v.Equal(types.NewField(2)))

	_, err = s.SendTransaction(ctx)
	require.NoError(t, err)
	v, err = s.Refresh(ctx)
	require.NoError(t, err)
	require.True(t, v.Equal(types.NewField(4)))
	require.Equal(t, 2, ledger.Height())
}
