package session

import (
	"testing"
	"time"

	"github.com/kysee/zkapp/zkapp/types"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 5*time.Second, cfg.PollInterval)
	require.Equal(t, "", cfg.Memo)

	fee, err := cfg.TransactionFee()
	require.NoError(t, err)
	require.Equal(t, uint64(100_000_000), fee.Uint64())

	require.Equal(t, "https://berkeley.minaexplorer.com/transaction/0xabc", cfg.TransactionURL("0xabc"))
	require.Equal(t, "https://faucet.minaprotocol.com/?address="+userAddr, cfg.FundingURL(userAddr))
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("ZKAPP_ENDPOINT", "http://localhost:8080/graphql")
	t.Setenv("ZKAPP_TRANSACTION_FEE", "0.25")
	t.Setenv("ZKAPP_POLL_INTERVAL", "250ms")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080/graphql", cfg.Endpoint)
	require.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	fee, err := cfg.TransactionFee()
	require.NoError(t, err)
	require.Equal(t, types.MustParseAmount("0.25"), fee)

	t.Setenv("ZKAPP_TRANSACTION_FEE", "-1")
	_, err = LoadConfig()
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ContractAddress = "not an address"
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Memo = "a memo that is far too long for a zkapp command"
	require.ErrorIs(t, cfg.Validate(), types.ErrMemoTooLong)

	cfg = DefaultConfig()
	cfg.PollInterval = 0
	require.Error(t, cfg.Validate())
}
