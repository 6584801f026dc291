package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/holiman/uint256"
	"github.com/kysee/zkapp/zkapp/chain"
	"github.com/kysee/zkapp/zkapp/circuit"
	"github.com/kysee/zkapp/zkapp/session"
	"github.com/kysee/zkapp/zkapp/types"
	"github.com/kysee/zkapp/zkapp/wallet"
	"github.com/kysee/zkapp/zkapp/worker"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a session and send transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := session.LoadConfig()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("contract") {
				cfg.ContractAddress = f.contract
			}
			if flags.Changed("fee") {
				cfg.Fee = f.fee
			}
			if flags.Changed("memo") {
				cfg.Memo = f.memo
			}
			if flags.Changed("poll-interval") {
				cfg.PollInterval = f.pollInterval
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			level, err := zerolog.ParseLevel(f.logLevel)
			if err != nil {
				return err
			}
			log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
				Level(level).With().Timestamp().Logger()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, f, log)
		},
	}

	cmd.Flags().StringVar(&f.contract, "contract", "", "contract address (overrides ZKAPP_CONTRACT_ADDRESS)")
	cmd.Flags().StringVar(&f.fee, "fee", "", "transaction fee in mina (overrides ZKAPP_TRANSACTION_FEE)")
	cmd.Flags().StringVar(&f.memo, "memo", "", "transaction memo (overrides ZKAPP_TRANSACTION_MEMO)")
	cmd.Flags().DurationVar(&f.pollInterval, "poll-interval", 0, "account poll interval (overrides ZKAPP_POLL_INTERVAL)")
	cmd.Flags().BoolVar(&f.noWallet, "no-wallet", false, "run without a wallet installed")
	cmd.Flags().DurationVar(&f.fundAfter, "fund-after", 3*time.Second, "delay before the faucet funds the fee payer")
	cmd.Flags().StringVar(&f.faucetAmount, "faucet-amount", "10", "amount the faucet sends, in mina")
	cmd.Flags().IntVar(&f.txs, "txs", 1, "number of transactions to send")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "info", "log level")
	return cmd
}

func run(ctx context.Context, cfg session.Config, f runFlags, log zerolog.Logger) error {
	faucetAmount, err := types.ParseAmount(f.faucetAmount)
	if err != nil {
		return fmt.Errorf("faucet amount: %w", err)
	}

	keys, err := circuit.Compile()
	if err != nil {
		return err
	}
	ledger := chain.NewLedger("berkeley")
	ledger.SetLogger(log.With().Str("module", "ledger").Logger())
	if err := ledger.Deploy(cfg.ContractAddress, keys.VerifyingKey, types.NewField(1)); err != nil {
		return err
	}
	registry := chain.NewRegistry()
	registry.Register(cfg.Endpoint, ledger)

	if !f.noWallet {
		ext, err := wallet.NewExtension(ledger, wallet.AutoApprove)
		if err != nil {
			return err
		}
		ext.SetLogger(log)
		wallet.Inject(ext)
		defer wallet.Eject()
	}

	s, err := session.New(cfg,
		session.NewWorkerFactory(registry, worker.WithLogger(log)),
		session.InjectedWallet,
		session.WithLogger(log))
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Setup(ctx); err != nil {
		fmt.Print(s.View())
		return err
	}
	fmt.Print(s.View())

	st := s.Snapshot()
	if !st.Initialized {
		return nil
	}
	if !st.AccountFunded {
		go faucet(ctx, ledger, st.UserAddress, faucetAmount, f.fundAfter, log)
		if _, err := s.WaitFor(ctx, func(st session.State) bool {
			return st.AccountFunded || st.LastError != ""
		}); err != nil {
			return err
		}
		if st := s.Snapshot(); !st.AccountFunded {
			return fmt.Errorf("account polling: %s", st.LastError)
		}
		fmt.Print(s.View())
	}

	for i := 0; i < f.txs; i++ {
		if _, err := s.SendTransaction(ctx); err != nil {
			fmt.Print(s.View())
			return err
		}
		if _, err := s.Refresh(ctx); err != nil {
			return err
		}
		fmt.Print(s.View())
	}

	log.Info().Int("height", ledger.Height()).Hex("root", ledger.Root()).Msg("done")
	return nil
}

// faucet funds addr after delay, as a user visiting the faucet page would.
func faucet(ctx context.Context, ledger *chain.Ledger, addr string, amount *uint256.Int, delay time.Duration, log zerolog.Logger) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(delay):
	}
	if err := ledger.Fund(addr, amount); err != nil {
		log.Error().Err(err).Msg("faucet")
		return
	}
	log.Info().Str("address", addr).Str("amount", types.FormatAmount(amount)).Msg("faucet funded account")
}
