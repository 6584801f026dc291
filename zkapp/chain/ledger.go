package chain

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/consensys/gnark-crypto/accumulator/merkletree"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/holiman/uint256"
	"github.com/kysee/zkapp/utils"
	"github.com/kysee/zkapp/zkapp/circuit"
	"github.com/kysee/zkapp/zkapp/crypto"
	"github.com/kysee/zkapp/zkapp/types"
	"github.com/rs/zerolog"
)

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrNotZkapp         = errors.New("account is not a zkapp")
	ErrAlreadyDeployed  = errors.New("contract already deployed")
	ErrInvalidNonce     = errors.New("invalid nonce")
	ErrInsufficientFee  = errors.New("fee below minimum")
	ErrInsufficientFund = errors.New("insufficient balance")
	ErrStaleState       = errors.New("contract state changed since the proof was generated")
	ErrInvalidProof     = errors.New("invalid proof")
)

// MinFee is the smallest fee a command may pay.
var MinFee = types.MustParseAmount("0.001")

// Ledger is an in-process chain: a set of accounts, the verifying keys of
// deployed contracts, and the list of applied commands.
type Ledger struct {
	mu sync.RWMutex

	networkID string
	accounts  map[string]*types.Account
	vks       map[string]plonk.VerifyingKey

	txs      []*types.ZkappCommand
	txByHash map[string]*types.ZkappCommand
	txTree   *merkletree.Tree
	txRoot   []byte

	log zerolog.Logger
}

func NewLedger(networkID string) *Ledger {
	return &Ledger{
		networkID: networkID,
		accounts:  make(map[string]*types.Account),
		vks:       make(map[string]plonk.VerifyingKey),
		txByHash:  make(map[string]*types.ZkappCommand),
		txTree:    merkletree.New(utils.MiMCHasher()),
		log:       zerolog.New(os.Stderr).With().Timestamp().Str("module", "ledger").Str("network", networkID).Logger(),
	}
}

// SetLogger replaces the ledger's logger.
func (l *Ledger) SetLogger(log zerolog.Logger) {
	l.log = log.With().Str("module", "ledger").Str("network", l.networkID).Logger()
}

func (l *Ledger) NetworkID() string {
	return l.networkID
}

// Fund credits amount to addr, creating the account if needed. It is the
// faucet of the network.
func (l *Ledger) Fund(addr string, amount *uint256.Int) error {
	if err := types.ValidateAddress(addr); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	acct, ok := l.accounts[addr]
	if !ok {
		acct = &types.Account{Address: addr, Balance: new(uint256.Int)}
		l.accounts[addr] = acct
	}
	acct.Balance = new(uint256.Int).Add(acct.Balance, amount)
	l.log.Info().Str("address", addr).Str("amount", types.FormatAmount(amount)).Msg("funded account")
	return nil
}

// Deploy creates a contract account at addr verified by vk with the given
// initial state.
func (l *Ledger) Deploy(addr string, vk plonk.VerifyingKey, initial types.Field) error {
	if err := types.ValidateAddress(addr); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if acct, ok := l.accounts[addr]; ok && acct.IsZkapp() {
		return ErrAlreadyDeployed
	}
	acct, ok := l.accounts[addr]
	if !ok {
		acct = &types.Account{Address: addr, Balance: new(uint256.Int)}
		l.accounts[addr] = acct
	}
	st := initial
	acct.ZkappState = &st
	l.vks[addr] = vk
	l.log.Info().Str("address", addr).Str("state", initial.String()).Msg("deployed contract")
	return nil
}

func (l *Ledger) GetAccount(ctx context.Context, addr string) (*types.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	acct, ok := l.accounts[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	return acct.Clone(), nil
}

// SendZkappCommand validates tx against the current ledger state and applies
// it. It returns the transaction hash.
func (l *Ledger) SendZkappCommand(ctx context.Context, tx *types.ZkappCommand) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := tx.Validate(); err != nil {
		return "", err
	}
	if tx.Fee == nil || tx.Fee.Lt(MinFee) {
		return "", ErrInsufficientFee
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	payer, ok := l.accounts[tx.FeePayer]
	if !ok {
		return "", fmt.Errorf("fee payer: %w: %s", ErrAccountNotFound, tx.FeePayer)
	}
	if tx.Nonce != payer.Nonce {
		return "", fmt.Errorf("%w: expected(%d), got(%d)", ErrInvalidNonce, payer.Nonce, tx.Nonce)
	}
	if payer.Balance.Lt(tx.Fee) {
		return "", ErrInsufficientFund
	}
	if err := verifySignature(tx); err != nil {
		return "", err
	}

	contract, ok := l.accounts[tx.Contract]
	if !ok {
		return "", fmt.Errorf("contract: %w: %s", ErrAccountNotFound, tx.Contract)
	}
	if !contract.IsZkapp() {
		return "", ErrNotZkapp
	}
	if !contract.ZkappState.Equal(tx.Num) {
		return "", fmt.Errorf("%w: current(%s), proven against(%s)", ErrStaleState, contract.ZkappState, tx.Num)
	}
	if err := l.verifyProof(tx); err != nil {
		return "", err
	}

	hash, err := tx.Hash()
	if err != nil {
		return "", err
	}

	payer.Balance = new(uint256.Int).Sub(payer.Balance, tx.Fee)
	payer.Nonce++
	st := tx.NewNum
	contract.ZkappState = &st
	l.addTx(hash, tx)

	l.log.Info().
		Str("hash", hash).
		Str("feePayer", tx.FeePayer).
		Str("fee", types.FormatAmount(tx.Fee)).
		Str("state", st.String()).
		Msg("applied zkapp command")
	return hash, nil
}

func verifySignature(tx *types.ZkappCommand) error {
	pubKey, err := types.Addr2Pub(tx.FeePayer)
	if err != nil {
		return err
	}
	msg, err := tx.SigningMessage()
	if err != nil {
		return err
	}
	return crypto.Verify(pubKey, tx.Signature, msg)
}

func (l *Ledger) verifyProof(tx *types.ZkappCommand) error {
	payer, err := circuit.FeePayerField(tx.FeePayer)
	if err != nil {
		return err
	}
	if err := circuit.Verify(l.vks[tx.Contract], tx.Proof, tx.Num, tx.NewNum, payer); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	return nil
}

func (l *Ledger) addTx(hash string, tx *types.ZkappCommand) {
	bzHash, _ := hex.DecodeString(hash)
	l.txs = append(l.txs, tx)
	l.txByHash[hash] = tx
	// leaves must be canonical field elements
	l.txTree.Push(utils.MiMCHash(bzHash))
	l.txRoot = l.txTree.Root()
}

func (l *Ledger) GetTransaction(hash string) *types.ZkappCommand {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.txByHash[hash]
}

// Root is the Merkle root over the hashes of all applied commands.
func (l *Ledger) Root() []byte {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ret := make([]byte, len(l.txRoot))
	copy(ret, l.txRoot)
	return ret
}

// Height is the number of applied commands.
func (l *Ledger) Height() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.txs)
}
