package wallet

import (
	"context"
	"fmt"
	"os"

	"github.com/consensys/gnark-crypto/signature"
	"github.com/kysee/zkapp/zkapp/chain"
	"github.com/kysee/zkapp/zkapp/crypto"
	"github.com/kysee/zkapp/zkapp/types"
	"github.com/rs/zerolog"
)

// Approver asks the user to confirm a transaction. Returning an error
// declines it.
type Approver func(ctx context.Context, tx *types.ZkappCommand) error

// AutoApprove confirms every transaction.
func AutoApprove(context.Context, *types.ZkappCommand) error { return nil }

// Extension is a wallet holding a single fee payer key. It signs what the
// user approves and broadcasts it to its network.
type Extension struct {
	Address    string
	PrivateKey signature.Signer

	network chain.Network
	approve Approver
	log     zerolog.Logger
}

func NewExtension(network chain.Network, approve Approver) (*Extension, error) {
	prvk, err := crypto.NewKey()
	if err != nil {
		return nil, err
	}
	return NewExtensionWithKey(prvk, network, approve), nil
}

func NewExtensionWithKey(prvk signature.Signer, network chain.Network, approve Approver) *Extension {
	if approve == nil {
		approve = AutoApprove
	}
	addr := types.Pub2Addr(prvk.Public())
	return &Extension{
		Address:    addr,
		PrivateKey: prvk,
		network:    network,
		approve:    approve,
		log:        zerolog.New(os.Stderr).With().Timestamp().Str("module", "wallet").Str("address", addr).Logger(),
	}
}

func (e *Extension) SetLogger(log zerolog.Logger) {
	e.log = log.With().Str("module", "wallet").Str("address", e.Address).Logger()
}

func (e *Extension) RequestAccounts(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []string{e.Address}, nil
}

func (e *Extension) SendTransaction(ctx context.Context, params SendParams) (*SendResult, error) {
	tx, err := types.DecodeEnvelope(params.Transaction)
	if err != nil {
		return nil, err
	}
	if tx.FeePayer != e.Address {
		return nil, fmt.Errorf("%w: %s", ErrNotFeePayer, tx.FeePayer)
	}
	tx.Fee = params.FeePayer.Fee
	tx.Memo = params.FeePayer.Memo
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	if err := e.approve(ctx, tx); err != nil {
		e.log.Info().Err(err).Msg("transaction declined")
		return nil, fmt.Errorf("%w: %v", ErrUserRejected, err)
	}

	msg, err := tx.SigningMessage()
	if err != nil {
		return nil, err
	}
	if tx.Signature, err = crypto.Sign(e.PrivateKey, msg); err != nil {
		return nil, err
	}

	hash, err := e.network.SendZkappCommand(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("broadcast: %w", err)
	}
	e.log.Info().Str("hash", hash).Str("fee", types.FormatAmount(tx.Fee)).Msg("transaction sent")
	return &SendResult{Hash: hash}, nil
}

var _ Provider = (*Extension)(nil)
