package types

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/kysee/zkapp/utils"
	"golang.org/x/crypto/blake2s"
)

// MaxMemoLen is the memo capacity of a command in bytes.
const MaxMemoLen = 32

var ErrMemoTooLong = fmt.Errorf("memo longer than %d bytes", MaxMemoLen)

// ZkappCommand is an update call into a deployed contract, paid for by FeePayer.
// Num is the contract state the proof was generated against and NewNum the
// state it moves to.
type ZkappCommand struct {
	FeePayer string
	Nonce    uint64
	Fee      *uint256.Int
	Memo     string

	Contract string
	Num      Field
	NewNum   Field

	Proof     []byte
	Signature []byte
}

func (tx *ZkappCommand) Validate() error {
	if len(tx.Memo) > MaxMemoLen {
		return ErrMemoTooLong
	}
	if err := ValidateAddress(tx.FeePayer); err != nil {
		return fmt.Errorf("fee payer: %w", err)
	}
	if err := ValidateAddress(tx.Contract); err != nil {
		return fmt.Errorf("contract: %w", err)
	}
	return nil
}

func (tx *ZkappCommand) rlpFields(withSig bool) []interface{} {
	fee := new(big.Int)
	if tx.Fee != nil {
		fee = tx.Fee.ToBig()
	}
	fields := []interface{}{
		tx.FeePayer,
		tx.Nonce,
		fee,
		tx.Memo,
		tx.Contract,
		tx.Num.BigInt(),
		tx.NewNum.BigInt(),
		tx.Proof,
	}
	if withSig {
		fields = append(fields, tx.Signature)
	}
	return fields
}

// SigningMessage is the digest the fee payer signs. It covers every field
// except the signature itself and is a canonical field element encoding.
func (tx *ZkappCommand) SigningMessage() ([]byte, error) {
	bz, err := rlp.EncodeToBytes(tx.rlpFields(false))
	if err != nil {
		return nil, fmt.Errorf("failed to RLP encode command: %w", err)
	}
	return utils.MiMCHash(bz), nil
}

// Hash returns the transaction identifier.
func (tx *ZkappCommand) Hash() (string, error) {
	bz, err := rlp.EncodeToBytes(tx.rlpFields(true))
	if err != nil {
		return "", fmt.Errorf("failed to RLP encode command: %w", err)
	}
	h := blake2s.Sum256(bz)
	return hex.EncodeToString(h[:]), nil
}

// Envelope is the JSON transport form of a ZkappCommand handed to the wallet.
type Envelope struct {
	FeePayer  string `json:"feePayer"`
	Nonce     uint64 `json:"nonce"`
	Fee       string `json:"fee,omitempty"`
	Memo      string `json:"memo"`
	Contract  string `json:"contract"`
	Num       Field  `json:"num"`
	NewNum    Field  `json:"newNum"`
	Proof     string `json:"proof"`
	Signature string `json:"signature,omitempty"`
}

func EncodeEnvelope(tx *ZkappCommand) (string, error) {
	env := Envelope{
		FeePayer: tx.FeePayer,
		Nonce:    tx.Nonce,
		Memo:     tx.Memo,
		Contract: tx.Contract,
		Num:      tx.Num,
		NewNum:   tx.NewNum,
		Proof:    hexutil.Encode(tx.Proof),
	}
	if tx.Fee != nil {
		env.Fee = tx.Fee.Dec()
	}
	if len(tx.Signature) > 0 {
		env.Signature = hexutil.Encode(tx.Signature)
	}
	bz, err := json.Marshal(&env)
	if err != nil {
		return "", err
	}
	return string(bz), nil
}

func DecodeEnvelope(s string) (*ZkappCommand, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Proof == "" {
		return nil, errors.New("decode envelope: missing proof")
	}
	proof, err := hexutil.Decode(env.Proof)
	if err != nil {
		return nil, fmt.Errorf("decode envelope proof: %w", err)
	}
	tx := &ZkappCommand{
		FeePayer: env.FeePayer,
		Nonce:    env.Nonce,
		Memo:     env.Memo,
		Contract: env.Contract,
		Num:      env.Num,
		NewNum:   env.NewNum,
		Proof:    proof,
	}
	if env.Fee != "" {
		if tx.Fee, err = uint256.FromDecimal(env.Fee); err != nil {
			return nil, fmt.Errorf("decode envelope fee: %w", err)
		}
	}
	if env.Signature != "" {
		if tx.Signature, err = hexutil.Decode(env.Signature); err != nil {
			return nil, fmt.Errorf("decode envelope signature: %w", err)
		}
	}
	return tx, nil
}
