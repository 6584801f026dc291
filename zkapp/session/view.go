package session

import (
	"fmt"
	"strings"
)

const (
	setupTextPending = "Setting up zkApp..."
	setupTextReady   = "zkApp ready"
)

// View is what a front end shows for a session state.
type View struct {
	SetupText string

	// WalletMissing holds the install link when no wallet was found.
	WalletMissing string
	// FundingPrompt holds the faucet link while the account is unfunded.
	FundingPrompt string

	ShowControls   bool
	SubmitEnabled  bool
	RefreshEnabled bool

	CurrentNum      string
	LastTransaction string
	Error           string
}

// RenderView derives the view of st. It is a pure function of its inputs.
func RenderView(cfg Config, st State) View {
	v := View{SetupText: setupTextPending}
	if st.Initialized {
		v.SetupText = setupTextReady
	}
	if present, known := st.HasWallet(); known && !present {
		v.WalletMissing = cfg.WalletInstallURL
	}
	if st.NeedsFunding() {
		v.FundingPrompt = cfg.FundingURL(st.UserAddress)
	}
	if st.Initialized && st.AccountFunded {
		v.ShowControls = true
		v.SubmitEnabled = !st.TransactionInFlight
		v.RefreshEnabled = !st.Refreshing
		if st.ObservedValue != nil {
			v.CurrentNum = st.ObservedValue.String()
		}
	}
	if st.LastTxHash != "" {
		v.LastTransaction = cfg.TransactionURL(st.LastTxHash)
	}
	v.Error = st.LastError
	return v
}

// View renders the current state of the session.
func (s *Session) View() View {
	return RenderView(s.cfg, s.Snapshot())
}

func (v View) String() string {
	var b strings.Builder
	b.WriteString(v.SetupText)
	b.WriteByte('\n')
	if v.WalletMissing != "" {
		fmt.Fprintf(&b, "Could not find a wallet. Install Auro wallet here: %s\n", v.WalletMissing)
	}
	if v.FundingPrompt != "" {
		fmt.Fprintf(&b, "Account does not exist. Visit the faucet to fund this account: %s\n", v.FundingPrompt)
	}
	if v.ShowControls {
		submit := "enabled"
		if !v.SubmitEnabled {
			submit = "sending..."
		}
		refresh := "enabled"
		if !v.RefreshEnabled {
			refresh = "refreshing..."
		}
		fmt.Fprintf(&b, "Send transaction [%s]\n", submit)
		fmt.Fprintf(&b, "Get Latest State [%s]\n", refresh)
		fmt.Fprintf(&b, "Current Number in zkApp: %s\n", v.CurrentNum)
	}
	if v.LastTransaction != "" {
		fmt.Fprintf(&b, "See transaction at %s\n", v.LastTransaction)
	}
	if v.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", v.Error)
	}
	return b.String()
}
