package session

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/holiman/uint256"
	"github.com/kysee/zkapp/zkapp/types"
)

// Config controls the network, the contract and the timing of a session.
type Config struct {
	// Endpoint selects the network the worker talks to.
	Endpoint string `env:"ZKAPP_ENDPOINT" envDefault:"https://proxy.berkeley.minaexplorer.com/graphql"`
	// ContractAddress is the deployed contract the session drives.
	ContractAddress string `env:"ZKAPP_CONTRACT_ADDRESS" envDefault:"bz3ZZQJDRQVxH44u95mdJWXcgMgJMfheSCvYnKSxMBABtbvME37V"`

	// Fee is the transaction fee in mina, Memo the transaction memo.
	Fee  string `env:"ZKAPP_TRANSACTION_FEE" envDefault:"0.1"`
	Memo string `env:"ZKAPP_TRANSACTION_MEMO"`

	PollInterval time.Duration `env:"ZKAPP_POLL_INTERVAL"         envDefault:"5s"`
	ReadyTimeout time.Duration `env:"ZKAPP_WORKER_READY_TIMEOUT"  envDefault:"1m"`
	CallTimeout  time.Duration `env:"ZKAPP_CALL_TIMEOUT"          envDefault:"30s"`

	ExplorerURL      string `env:"ZKAPP_EXPLORER_URL"       envDefault:"https://berkeley.minaexplorer.com"`
	FaucetURL        string `env:"ZKAPP_FAUCET_URL"         envDefault:"https://faucet.minaprotocol.com/"`
	WalletInstallURL string `env:"ZKAPP_WALLET_INSTALL_URL" envDefault:"https://www.aurowallet.com/"`
}

// DefaultConfig returns the built-in defaults, ignoring the environment.
func DefaultConfig() Config {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}}); err != nil {
		panic(err)
	}
	return cfg
}

// LoadConfig reads the configuration from ZKAPP_* environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	if err := types.ValidateAddress(c.ContractAddress); err != nil {
		return fmt.Errorf("contract address: %w", err)
	}
	if _, err := c.TransactionFee(); err != nil {
		return fmt.Errorf("transaction fee: %w", err)
	}
	if len(c.Memo) > types.MaxMemoLen {
		return types.ErrMemoTooLong
	}
	if c.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	if c.ReadyTimeout <= 0 || c.CallTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	return nil
}

func (c Config) TransactionFee() (*uint256.Int, error) {
	return types.ParseAmount(c.Fee)
}

// TransactionURL is the explorer page of a transaction.
func (c Config) TransactionURL(hash string) string {
	return strings.TrimRight(c.ExplorerURL, "/") + "/transaction/" + hash
}

// FundingURL is the faucet page funding addr.
func (c Config) FundingURL(addr string) string {
	return c.FaucetURL + "?address=" + url.QueryEscape(addr)
}
