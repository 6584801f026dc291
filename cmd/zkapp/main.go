// Package main runs a zkApp client session against an in-process ledger.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "zkapp",
		Short: "zkApp client for the Add contract",
		Long: `zkapp drives a session against the Add contract: it sets up a proving
worker, connects a wallet, waits for the fee payer account to be funded and
sends proven update transactions that add 2 to the contract state.

The network is simulated by an in-process ledger registered under the
configured endpoint. Configuration is read from ZKAPP_* environment variables
and can be overridden with flags.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		runCmd(),
		exportVerifierCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type runFlags struct {
	contract     string
	fee          string
	memo         string
	pollInterval time.Duration
	noWallet     bool
	fundAfter    time.Duration
	faucetAmount string
	txs          int
	logLevel     string
}
