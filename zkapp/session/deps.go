package session

import (
	"github.com/kysee/zkapp/zkapp/chain"
	"github.com/kysee/zkapp/zkapp/wallet"
	"github.com/kysee/zkapp/zkapp/worker"
)

// NewWorkerFactory returns a factory starting proving workers that serve
// the networks of registry.
func NewWorkerFactory(registry *chain.Registry, opts ...worker.Option) WorkerFactory {
	return func() (Worker, error) {
		return worker.Start(registry, opts...), nil
	}
}

// InjectedWallet detects the process wide wallet installed with
// wallet.Inject.
func InjectedWallet() wallet.Provider {
	return wallet.Injected()
}

var _ Worker = (*worker.Client)(nil)
