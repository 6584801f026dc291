package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kysee/zkapp/zkapp/types"
)

var ErrUnknownEndpoint = errors.New("unknown network endpoint")

// Network is what clients need from a chain endpoint.
type Network interface {
	GetAccount(ctx context.Context, addr string) (*types.Account, error)
	SendZkappCommand(ctx context.Context, tx *types.ZkappCommand) (string, error)
}

var _ Network = (*Ledger)(nil)

// Registry resolves endpoint URLs to networks.
type Registry struct {
	mu       sync.RWMutex
	networks map[string]Network
}

func NewRegistry() *Registry {
	return &Registry{networks: make(map[string]Network)}
}

func (r *Registry) Register(endpoint string, n Network) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.networks[endpoint] = n
}

func (r *Registry) Lookup(endpoint string) (Network, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.networks[endpoint]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEndpoint, endpoint)
	}
	return n, nil
}
