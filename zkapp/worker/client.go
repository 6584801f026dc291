package worker

import (
	"context"
	"fmt"
	"os"
	"sync"

	gnarklogger "github.com/consensys/gnark/logger"
	"github.com/kysee/zkapp/zkapp/chain"
	"github.com/kysee/zkapp/zkapp/types"
	"github.com/rs/zerolog"
)

// gnark logs through a single process wide logger; the first worker to
// start provides it.
var gnarkLoggerOnce sync.Once

func setGnarkLogger(log zerolog.Logger) {
	gnarkLoggerOnce.Do(func() { gnarklogger.Set(log) })
}

type request struct {
	ctx  context.Context
	fn   string
	args any
	resp chan response
}

type response struct {
	val any
	err error
}

type options struct {
	log       zerolog.Logger
	bootstrap func() error
}

type Option func(*options)

func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithBootstrap adds a step to the worker's bootstrap. The worker reports
// ready only after it returns; a non-nil error makes the worker unusable.
func WithBootstrap(fn func() error) Option {
	return func(o *options) { o.bootstrap = fn }
}

// Client is the caller side of a proving worker. Every operation is a
// request/response round trip to the worker goroutine, which serves them one
// at a time in arrival order.
type Client struct {
	reqs  chan *request
	ready chan struct{}
	quit  chan struct{}
	done  chan struct{}

	bootErr   error
	closeOnce sync.Once

	log zerolog.Logger
}

// Start spawns a worker serving networks from registry. Requests may be
// issued right away; they are held until the worker has bootstrapped.
func Start(registry *chain.Registry, opts ...Option) *Client {
	o := options{
		log: zerolog.New(os.Stderr).With().Timestamp().Logger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.log.With().Str("module", "worker").Logger()

	c := &Client{
		reqs:  make(chan *request),
		ready: make(chan struct{}),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
		log:   log,
	}
	go c.run(newZkappWorker(registry, log), o.bootstrap)
	return c
}

func (c *Client) run(w *zkappWorker, bootstrap func() error) {
	defer close(c.done)

	setGnarkLogger(c.log)
	if bootstrap != nil {
		if err := bootstrap(); err != nil {
			c.bootErr = fmt.Errorf("worker bootstrap: %w", err)
			close(c.ready)
			return
		}
	}
	c.log.Debug().Msg("worker ready")
	close(c.ready)

	for {
		select {
		case <-c.quit:
			return
		case req := <-c.reqs:
			if err := req.ctx.Err(); err != nil {
				req.resp <- response{err: err}
				continue
			}
			val, err := functions[req.fn](w, req.ctx, req.args)
			req.resp <- response{val: val, err: err}
		}
	}
}

// Ready blocks until the worker has finished bootstrapping.
func (c *Client) Ready(ctx context.Context) error {
	select {
	case <-c.ready:
		return c.bootErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) closedErr() error {
	if c.bootErr != nil {
		return c.bootErr
	}
	return ErrClosed
}

func (c *Client) call(ctx context.Context, fn string, args any) (any, error) {
	req := &request{ctx: ctx, fn: fn, args: args, resp: make(chan response, 1)}
	select {
	case c.reqs <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, c.closedErr()
	}

	select {
	case r := <-req.resp:
		return r.val, r.err
	case <-ctx.Done():
		// the worker finishes the request and drops the response
		return nil, ctx.Err()
	}
}

// Close stops the worker. A request being served runs to completion first.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.quit) })
	return nil
}

// Done is closed once the worker goroutine has exited.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) SelectNetwork(ctx context.Context, endpoint string) error {
	_, err := c.call(ctx, fnSelectNetwork, endpoint)
	return err
}

func (c *Client) FetchAccount(ctx context.Context, addr string) (FetchResult, error) {
	val, err := c.call(ctx, fnFetchAccount, addr)
	if err != nil {
		return FetchResult{}, err
	}
	return val.(FetchResult), nil
}

func (c *Client) LoadContract(ctx context.Context) error {
	_, err := c.call(ctx, fnLoadContract, nil)
	return err
}

func (c *Client) CompileContract(ctx context.Context) error {
	_, err := c.call(ctx, fnCompileContract, nil)
	return err
}

func (c *Client) InitContractInstance(ctx context.Context, addr string) error {
	_, err := c.call(ctx, fnInitInstance, addr)
	return err
}

func (c *Client) GetNum(ctx context.Context) (types.Field, error) {
	val, err := c.call(ctx, fnGetNum, nil)
	if err != nil {
		return types.Field{}, err
	}
	return val.(types.Field), nil
}

func (c *Client) CreateUpdateTransaction(ctx context.Context, feePayer string) error {
	_, err := c.call(ctx, fnCreateUpdateTx, feePayer)
	return err
}

func (c *Client) ProveUpdateTransaction(ctx context.Context) error {
	_, err := c.call(ctx, fnProveUpdateTx, nil)
	return err
}

func (c *Client) GetTransactionJSON(ctx context.Context) (string, error) {
	val, err := c.call(ctx, fnGetTransactionRaw, nil)
	if err != nil {
		return "", err
	}
	return val.(string), nil
}
