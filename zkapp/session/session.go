package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/kysee/zkapp/zkapp/types"
	"github.com/kysee/zkapp/zkapp/wallet"
	"github.com/kysee/zkapp/zkapp/worker"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Worker is the proving worker as seen by a session.
type Worker interface {
	Ready(ctx context.Context) error
	SelectNetwork(ctx context.Context, endpoint string) error
	FetchAccount(ctx context.Context, addr string) (worker.FetchResult, error)
	LoadContract(ctx context.Context) error
	CompileContract(ctx context.Context) error
	InitContractInstance(ctx context.Context, addr string) error
	GetNum(ctx context.Context) (types.Field, error)
	CreateUpdateTransaction(ctx context.Context, feePayer string) error
	ProveUpdateTransaction(ctx context.Context) error
	GetTransactionJSON(ctx context.Context) (string, error)
	Close() error
}

// WorkerFactory constructs the session's worker during setup.
type WorkerFactory func() (Worker, error)

// WalletDetector returns the installed wallet, or nil.
type WalletDetector func() wallet.Provider

type Option func(*Session)

func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) { s.log = log.With().Str("module", "session").Logger() }
}

// Session coordinates setup, account polling, transactions and refreshes
// for one user against one contract.
type Session struct {
	cfg          Config
	fee          *uint256.Int
	newWorker    WorkerFactory
	detectWallet WalletDetector
	log          zerolog.Logger

	// cancelled by Close; every flow runs under it
	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	state       State
	watchers    map[int]func(State)
	nextWatcher int
	worker      Worker
	wallet      wallet.Provider
	setupDone   bool
	setupErr    error
	polling     bool
	closed      bool

	// held across a transition and its notification so watchers see
	// states in order; always taken before mu
	notifyMu sync.Mutex

	setupGroup singleflight.Group
	wg         sync.WaitGroup
}

func New(cfg Config, newWorker WorkerFactory, detectWallet WalletDetector, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fee, err := cfg.TransactionFee()
	if err != nil {
		return nil, err
	}
	if detectWallet == nil {
		detectWallet = wallet.Injected
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		cfg:          cfg,
		fee:          fee,
		newWorker:    newWorker,
		detectWallet: detectWallet,
		log:          zerolog.New(os.Stderr).With().Timestamp().Str("module", "session").Logger(),
		ctx:          ctx,
		cancel:       cancel,
		watchers:     make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Session) Config() Config {
	return s.cfg
}

// Snapshot returns the current session record.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Watch calls fn with every new state until the returned func is called.
// fn runs synchronously after the transition and must not call back into
// the session's flows.
func (s *Session) Watch(fn func(State)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextWatcher
	s.nextWatcher++
	s.watchers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers, id)
	}
}

// WaitFor blocks until cond holds for the session state.
func (s *Session) WaitFor(ctx context.Context, cond func(State) bool) (State, error) {
	ch := make(chan State, 1)
	stop := s.Watch(func(st State) {
		if cond(st) {
			select {
			case ch <- st:
			default:
			}
		}
	})
	defer stop()

	if st := s.Snapshot(); cond(st) {
		return st, nil
	}
	select {
	case st := <-ch:
		return st, nil
	case <-ctx.Done():
		return s.Snapshot(), ctx.Err()
	}
}

// transition applies fn to a copy of the state and installs the copy when fn
// succeeds.
func (s *Session) transition(name string, fn func(*State) error) error {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	next := s.state
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	watchers := make([]func(State), 0, len(s.watchers))
	for _, w := range s.watchers {
		watchers = append(watchers, w)
	}
	s.mu.Unlock()

	s.log.Debug().Str("transition", name).Msg("state changed")
	for _, w := range watchers {
		w(next)
	}
	return nil
}

// scoped derives a context that is also cancelled when the session closes.
func (s *Session) scoped(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (s *Session) withCallTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.CallTimeout)
}

func (s *Session) collaborators() (Worker, wallet.Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.worker, s.wallet
}

// Setup runs the one-time initialization. Concurrent calls share a single
// run; once a run has finished, later calls return its outcome without
// doing anything. A failed setup is final.
func (s *Session) Setup(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.setupDone {
		err := s.setupErr
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	_, err, _ := s.setupGroup.Do("setup", func() (any, error) {
		s.mu.Lock()
		if s.setupDone {
			err := s.setupErr
			s.mu.Unlock()
			return nil, err
		}
		s.mu.Unlock()

		ctx, cancel := s.scoped(ctx)
		defer cancel()
		err := s.setup(ctx)

		s.mu.Lock()
		s.setupDone = true
		s.setupErr = err
		s.mu.Unlock()

		if err != nil {
			s.log.Error().Err(err).Msg("setup failed")
			_ = s.transition("setupFailed", recordError(err))
		}
		return nil, err
	})
	return err
}

func (s *Session) setup(ctx context.Context) error {
	s.log.Info().Msg("initializing worker client")
	w, err := s.newWorker()
	if err != nil {
		return setupErr("construct worker", err)
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.log.Debug().Msg("session closed during worker construction")
		return errors.Join(ErrClosed, w.Close())
	}
	s.worker = w
	s.mu.Unlock()

	readyCtx, cancel := context.WithTimeout(ctx, s.cfg.ReadyTimeout)
	err = w.Ready(readyCtx)
	cancel()
	if err != nil {
		return setupErr("wait for worker", err)
	}

	if err := w.SelectNetwork(ctx, s.cfg.Endpoint); err != nil {
		return setupErr("select network", err)
	}

	p := s.detectWallet()
	if p == nil {
		s.log.Warn().Msg("could not find a wallet")
		return s.transition("walletAbsent", walletAbsent)
	}
	s.mu.Lock()
	s.wallet = p
	s.mu.Unlock()

	callCtx, cancel := s.withCallTimeout(ctx)
	accounts, err := p.RequestAccounts(callCtx)
	cancel()
	if err != nil {
		return setupErr("request accounts", err)
	}
	if len(accounts) == 0 {
		return setupErr("request accounts", ErrNoAccounts)
	}
	user := accounts[0]
	s.log.Info().Str("address", user).Msg("using key")

	s.log.Info().Msg("checking if account exists...")
	res, err := s.fetchAccount(ctx, w, user)
	if err != nil {
		return setupErr("fetch user account", err)
	}

	if err := w.LoadContract(ctx); err != nil {
		return setupErr("load contract", err)
	}
	s.log.Info().Msg("compiling zkApp")
	start := time.Now()
	if err := w.CompileContract(ctx); err != nil {
		return setupErr("compile contract", err)
	}
	s.log.Info().Dur("took", time.Since(start)).Msg("zkApp compiled")

	contract := s.cfg.ContractAddress
	if err := w.InitContractInstance(ctx, contract); err != nil {
		return setupErr("init contract instance", err)
	}

	s.log.Info().Msg("getting zkApp state...")
	value, err := s.readValue(ctx, w, contract)
	if err != nil {
		return setupErr("read contract state", err)
	}
	s.log.Info().Str("state", value.String()).Msg("current state")

	complete := setupComplete(setupResult{
		userAddress:     user,
		contractAddress: contract,
		funded:          !res.Missing,
		value:           value,
	})
	// transition runs fn under mu, so closed is stable here
	if err := s.transition("setupComplete", func(st *State) error {
		if s.closed {
			return ErrClosed
		}
		return complete(st)
	}); err != nil {
		return err
	}

	if res.Missing {
		s.startPolling()
	}
	return nil
}

func (s *Session) fetchAccount(ctx context.Context, w Worker, addr string) (worker.FetchResult, error) {
	ctx, cancel := s.withCallTimeout(ctx)
	defer cancel()
	return w.FetchAccount(ctx, addr)
}

// readValue fetches the contract account and reads its state.
func (s *Session) readValue(ctx context.Context, w Worker, contract string) (types.Field, error) {
	res, err := s.fetchAccount(ctx, w, contract)
	if err != nil {
		return types.Field{}, err
	}
	if res.Missing {
		return types.Field{}, fmt.Errorf("%w: %s", ErrContractNotFound, contract)
	}
	ctx, cancel := s.withCallTimeout(ctx)
	defer cancel()
	return w.GetNum(ctx)
}

func (s *Session) startPolling() {
	s.mu.Lock()
	if s.polling || s.closed || !s.state.NeedsFunding() {
		s.mu.Unlock()
		return
	}
	s.polling = true
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			s.polling = false
			s.mu.Unlock()
		}()

		err := s.pollAccount(s.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error().Err(err).Msg("account polling stopped")
			_ = s.transition("pollFailed", recordError(err))
		}
	}()
}

// pollAccount queries the user account every PollInterval until the chain
// reports it, then marks the session funded.
func (s *Session) pollAccount(ctx context.Context) error {
	w, _ := s.collaborators()
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		st := s.Snapshot()
		if st.AccountFunded {
			return nil
		}

		s.log.Debug().Str("address", st.UserAddress).Msg("checking if account exists...")
		res, err := s.fetchAccount(ctx, w, st.UserAddress)
		if err != nil {
			return fmt.Errorf("poll account: %w", err)
		}
		if !res.Missing {
			s.log.Info().Str("address", st.UserAddress).Msg("account funded")
			return s.transition("accountFunded", accountFunded)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SendTransaction runs the transaction pipeline: refresh the fee payer
// account, build the update, prove it, serialize it and hand it to the
// wallet. TransactionInFlight is held for the whole run and released on
// every exit path.
func (s *Session) SendTransaction(ctx context.Context) (hash string, err error) {
	if s.isClosed() {
		return "", ErrClosed
	}
	if err := s.transition("beginTransaction", beginTransaction); err != nil {
		return "", err
	}
	defer func() {
		if r := recover(); r != nil {
			_ = s.transition("endTransaction", endTransaction("", fmt.Errorf("transaction pipeline: %v", r)))
			panic(r)
		}
		_ = s.transition("endTransaction", endTransaction(hash, err))
	}()

	ctx, cancel := s.scoped(ctx)
	defer cancel()

	hash, err = s.runPipeline(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("transaction failed")
		return "", err
	}
	s.log.Info().Str("hash", hash).Str("link", s.cfg.TransactionURL(hash)).Msg("see transaction")
	return hash, nil
}

func (s *Session) runPipeline(ctx context.Context) (string, error) {
	st := s.Snapshot()
	w, p := s.collaborators()

	s.log.Info().Msg("sending a transaction...")
	res, err := s.fetchAccount(ctx, w, st.UserAddress)
	if err != nil {
		return "", fmt.Errorf("fetch fee payer: %w", err)
	}
	if res.Missing {
		return "", fmt.Errorf("fetch fee payer: %w", ErrAccountNotFunded)
	}

	if err := w.CreateUpdateTransaction(ctx, st.UserAddress); err != nil {
		return "", fmt.Errorf("create update transaction: %w", err)
	}

	s.log.Info().Msg("creating proof...")
	start := time.Now()
	if err := w.ProveUpdateTransaction(ctx); err != nil {
		return "", fmt.Errorf("prove update transaction: %w", err)
	}
	s.log.Info().Dur("took", time.Since(start)).Msg("proof created")

	s.log.Info().Msg("getting transaction JSON...")
	raw, err := w.GetTransactionJSON(ctx)
	if err != nil {
		return "", fmt.Errorf("serialize transaction: %w", err)
	}

	s.log.Info().Msg("requesting send transaction...")
	sent, err := p.SendTransaction(ctx, wallet.SendParams{
		Transaction: raw,
		FeePayer: wallet.FeePayer{
			Fee:  new(uint256.Int).Set(s.fee),
			Memo: s.cfg.Memo,
		},
	})
	if err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}
	return sent.Hash, nil
}

// Refresh re-reads the contract state into ObservedValue. Refreshing is
// released on every exit path.
func (s *Session) Refresh(ctx context.Context) (value types.Field, err error) {
	if s.isClosed() {
		return types.Field{}, ErrClosed
	}
	if err := s.transition("beginRefresh", beginRefresh); err != nil {
		return types.Field{}, err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = s.transition("endRefresh", endRefresh(types.Field{}, fmt.Errorf("refresh: %v", r)))
			panic(r)
		}
		_ = s.transition("endRefresh", endRefresh(value, err))
	}()

	ctx, cancel := s.scoped(ctx)
	defer cancel()

	st := s.Snapshot()
	w, _ := s.collaborators()

	s.log.Info().Msg("getting zkApp state...")
	value, err = s.readValue(ctx, w, st.ContractAddress)
	if err != nil {
		s.log.Error().Err(err).Msg("refresh failed")
		return types.Field{}, fmt.Errorf("refresh: %w", err)
	}
	s.log.Info().Str("state", value.String()).Msg("current state")
	return value, nil
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close tears the session down: running flows are cancelled, the poller is
// waited for and the worker is stopped. A setup still constructing its
// worker closes that worker itself once it sees the session closed.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()

	w, _ := s.collaborators()
	if w != nil {
		return w.Close()
	}
	return nil
}
