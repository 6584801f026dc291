package session

import (
	"errors"
	"testing"

	"github.com/kysee/zkapp/zkapp/types"
	"github.com/stretchr/testify/require"
)

func TestRenderView(t *testing.T) {
	cfg := DefaultConfig()

	v := RenderView(cfg, State{})
	require.Equal(t, View{SetupText: setupTextPending}, v)

	var st State
	require.NoError(t, walletAbsent(&st))
	v = RenderView(cfg, st)
	require.Equal(t, cfg.WalletInstallURL, v.WalletMissing)
	require.Contains(t, v.String(), "Could not find a wallet")

	st = State{}
	require.NoError(t, setupComplete(setupResult{
		userAddress:     userAddr,
		contractAddress: cfg.ContractAddress,
		value:           types.NewField(6),
	})(&st))
	v = RenderView(cfg, st)
	require.Equal(t, setupTextReady, v.SetupText)
	require.Empty(t, v.WalletMissing)
	require.Equal(t, cfg.FundingURL(userAddr), v.FundingPrompt)
	require.False(t, v.ShowControls)

	require.NoError(t, accountFunded(&st))
	v = RenderView(cfg, st)
	require.Empty(t, v.FundingPrompt)
	require.True(t, v.ShowControls)
	require.True(t, v.SubmitEnabled)
	require.Equal(t, "6", v.CurrentNum)
	require.True(t, v.RefreshEnabled)
	require.Contains(t, v.String(), "Send transaction [enabled]")
	require.Contains(t, v.String(), "Get Latest State [enabled]")
	require.Contains(t, v.String(), "Current Number in zkApp: 6")

	require.NoError(t, beginRefresh(&st))
	v = RenderView(cfg, st)
	require.False(t, v.RefreshEnabled)
	require.Contains(t, v.String(), "Get Latest State [refreshing...]")
	require.Contains(t, v.String(), "Send transaction [enabled]")
	require.NoError(t, endRefresh(types.NewField(6), nil)(&st))

	require.NoError(t, beginTransaction(&st))
	require.False(t, RenderView(cfg, st).SubmitEnabled)
	require.ErrorIs(t, beginTransaction(&st), ErrTransactionInFlight)

	require.NoError(t, endTransaction("", errors.New("boom"))(&st))
	v = RenderView(cfg, st)
	require.True(t, v.SubmitEnabled)
	require.Empty(t, v.LastTransaction)
	require.Equal(t, "boom", v.Error)

	require.NoError(t, beginTransaction(&st))
	require.NoError(t, endTransaction("0xabc", nil)(&st))
	v = RenderView(cfg, st)
	require.Equal(t, cfg.TransactionURL("0xabc"), v.LastTransaction)
	require.Empty(t, v.Error)
}
