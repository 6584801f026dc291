package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/kysee/zkapp/zkapp/chain"
	"github.com/kysee/zkapp/zkapp/circuit"
	"github.com/kysee/zkapp/zkapp/types"
	"github.com/rs/zerolog"
)

var (
	ErrNoNetwork         = errors.New("no active network")
	ErrContractNotLoaded = errors.New("contract not loaded")
	ErrNotCompiled       = errors.New("contract not compiled")
	ErrNoInstance        = errors.New("contract instance not initialized")
	ErrAccountNotFetched = errors.New("account not fetched")
	ErrNoTransaction     = errors.New("no transaction created")
	ErrNotProved         = errors.New("transaction not proved")
	ErrClosed            = errors.New("worker closed")
)

// FetchResult is the answer to an account query. Missing is set when the
// chain has no such account; that is an expected outcome and not an error.
type FetchResult struct {
	Account *types.Account
	Missing bool
}

// zkappWorker is the state living inside the worker goroutine. It is only
// ever touched by that goroutine.
type zkappWorker struct {
	registry *chain.Registry
	network  chain.Network

	// accounts fetched from the network, read by getNum and
	// createUpdateTransaction
	accounts map[string]*types.Account

	loaded   bool
	keys     *circuit.Keys
	instance string

	tx     *types.ZkappCommand
	proved bool

	log zerolog.Logger
}

func newZkappWorker(registry *chain.Registry, log zerolog.Logger) *zkappWorker {
	return &zkappWorker{
		registry: registry,
		accounts: make(map[string]*types.Account),
		log:      log,
	}
}

type handler func(w *zkappWorker, ctx context.Context, args any) (any, error)

const (
	fnSelectNetwork     = "selectNetwork"
	fnFetchAccount      = "fetchAccount"
	fnLoadContract      = "loadContract"
	fnCompileContract   = "compileContract"
	fnInitInstance      = "initZkappInstance"
	fnGetNum            = "getNum"
	fnCreateUpdateTx    = "createUpdateTransaction"
	fnProveUpdateTx     = "proveUpdateTransaction"
	fnGetTransactionRaw = "getTransactionJSON"
)

var functions = map[string]handler{
	fnSelectNetwork: func(w *zkappWorker, _ context.Context, args any) (any, error) {
		return nil, w.selectNetwork(args.(string))
	},
	fnFetchAccount: func(w *zkappWorker, ctx context.Context, args any) (any, error) {
		return w.fetchAccount(ctx, args.(string))
	},
	fnLoadContract: func(w *zkappWorker, _ context.Context, _ any) (any, error) {
		return nil, w.loadContract()
	},
	fnCompileContract: func(w *zkappWorker, _ context.Context, _ any) (any, error) {
		return nil, w.compileContract()
	},
	fnInitInstance: func(w *zkappWorker, _ context.Context, args any) (any, error) {
		return nil, w.initZkappInstance(args.(string))
	},
	fnGetNum: func(w *zkappWorker, _ context.Context, _ any) (any, error) {
		return w.getNum()
	},
	fnCreateUpdateTx: func(w *zkappWorker, _ context.Context, args any) (any, error) {
		return nil, w.createUpdateTransaction(args.(string))
	},
	fnProveUpdateTx: func(w *zkappWorker, _ context.Context, _ any) (any, error) {
		return nil, w.proveUpdateTransaction()
	},
	fnGetTransactionRaw: func(w *zkappWorker, _ context.Context, _ any) (any, error) {
		return w.getTransactionJSON()
	},
}

func (w *zkappWorker) selectNetwork(endpoint string) error {
	n, err := w.registry.Lookup(endpoint)
	if err != nil {
		return err
	}
	w.network = n
	w.log.Debug().Str("endpoint", endpoint).Msg("network selected")
	return nil
}

func (w *zkappWorker) fetchAccount(ctx context.Context, addr string) (FetchResult, error) {
	if w.network == nil {
		return FetchResult{}, ErrNoNetwork
	}
	acct, err := w.network.GetAccount(ctx, addr)
	if errors.Is(err, chain.ErrAccountNotFound) {
		delete(w.accounts, addr)
		return FetchResult{Missing: true}, nil
	}
	if err != nil {
		return FetchResult{}, fmt.Errorf("fetch account %s: %w", addr, err)
	}
	w.accounts[addr] = acct
	return FetchResult{Account: acct.Clone()}, nil
}

func (w *zkappWorker) loadContract() error {
	w.loaded = true
	return nil
}

func (w *zkappWorker) compileContract() error {
	if !w.loaded {
		return ErrContractNotLoaded
	}
	if w.keys != nil {
		return nil
	}
	keys, err := circuit.Compile()
	if err != nil {
		return err
	}
	w.keys = keys
	w.log.Info().Int("constraints", keys.CCS.GetNbConstraints()).Msg("contract compiled")
	return nil
}

func (w *zkappWorker) initZkappInstance(addr string) error {
	if !w.loaded {
		return ErrContractNotLoaded
	}
	if err := types.ValidateAddress(addr); err != nil {
		return err
	}
	w.instance = addr
	return nil
}

func (w *zkappWorker) contractAccount() (*types.Account, error) {
	if w.instance == "" {
		return nil, ErrNoInstance
	}
	acct, ok := w.accounts[w.instance]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFetched, w.instance)
	}
	if !acct.IsZkapp() {
		return nil, fmt.Errorf("%w: %s", chain.ErrNotZkapp, w.instance)
	}
	return acct, nil
}

func (w *zkappWorker) getNum() (types.Field, error) {
	acct, err := w.contractAccount()
	if err != nil {
		return types.Field{}, err
	}
	return *acct.ZkappState, nil
}

func (w *zkappWorker) createUpdateTransaction(feePayer string) error {
	if w.keys == nil {
		return ErrNotCompiled
	}
	contract, err := w.contractAccount()
	if err != nil {
		return err
	}
	payer, ok := w.accounts[feePayer]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFetched, feePayer)
	}

	num := *contract.ZkappState
	w.tx = &types.ZkappCommand{
		FeePayer: feePayer,
		Nonce:    payer.Nonce,
		Contract: contract.Address,
		Num:      num,
		NewNum:   num.Add(types.NewField(circuit.UpdateIncrement)),
	}
	w.proved = false
	return nil
}

func (w *zkappWorker) proveUpdateTransaction() error {
	if w.tx == nil {
		return ErrNoTransaction
	}
	payer, err := circuit.FeePayerField(w.tx.FeePayer)
	if err != nil {
		return err
	}
	proof, err := circuit.Prove(w.keys, w.tx.Num, w.tx.NewNum, payer)
	if err != nil {
		return fmt.Errorf("prove update: %w", err)
	}
	w.tx.Proof = proof
	w.proved = true
	return nil
}

func (w *zkappWorker) getTransactionJSON() (string, error) {
	if w.tx == nil {
		return "", ErrNoTransaction
	}
	if !w.proved {
		return "", ErrNotProved
	}
	return types.EncodeEnvelope(w.tx)
}
