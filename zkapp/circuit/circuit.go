package circuit

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/constraint/solver"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/scs"
	"github.com/consensys/gnark/test/unsafekzg"
	"github.com/kysee/zkapp/utils"
	"github.com/kysee/zkapp/zkapp/types"
	"github.com/rs/zerolog"
)

// UpdateIncrement is what one update call adds to the contract state.
const UpdateIncrement = 2

// AddCircuit is the contract's update method: NewNum = Num + 2.
// FeePayer binds a proof to the account paying for it so that it can not be
// replayed by somebody else.
type AddCircuit struct {
	Num      frontend.Variable `gnark:",public"`
	NewNum   frontend.Variable `gnark:",public"`
	FeePayer frontend.Variable `gnark:",public"`
}

func (cc *AddCircuit) Define(api frontend.API) error {
	api.AssertIsEqual(cc.NewNum, api.Add(cc.Num, UpdateIncrement))
	api.AssertIsDifferent(cc.FeePayer, 0)
	return nil
}

// Keys are the compiled constraint system and its PLONK keys.
type Keys struct {
	CCS          constraint.ConstraintSystem
	ProvingKey   plonk.ProvingKey
	VerifyingKey plonk.VerifyingKey
}

var (
	compileOnce sync.Once
	compiled    *Keys
	compileErr  error

	gnarkLogger = zerolog.New(os.Stdout).Level(zerolog.InfoLevel).With().Timestamp().Logger()
)

// Compile compiles the circuit and runs the PLONK setup. The result is cached
// for the lifetime of the process; every caller gets the same keys.
func Compile() (*Keys, error) {
	compileOnce.Do(func() {
		compiled, compileErr = compileCircuit()
	})
	return compiled, compileErr
}

func compileCircuit() (*Keys, error) {
	var cc AddCircuit
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), scs.NewBuilder, &cc)
	if err != nil {
		return nil, fmt.Errorf("compile circuit: %w", err)
	}

	// todo: Use safe SRS generation
	srs, srsLagrange, err := unsafekzg.NewSRS(ccs)
	if err != nil {
		return nil, fmt.Errorf("generate srs: %w", err)
	}

	pk, vk, err := plonk.Setup(ccs, srs, srsLagrange)
	if err != nil {
		return nil, fmt.Errorf("plonk setup: %w", err)
	}
	return &Keys{CCS: ccs, ProvingKey: pk, VerifyingKey: vk}, nil
}

// FeePayerField maps an address onto the field element used as the FeePayer
// public input.
func FeePayerField(addr string) (types.Field, error) {
	payload, err := types.DecodeAddress(addr)
	if err != nil {
		return types.Field{}, err
	}
	return types.FieldFromElement(utils.HashToField(payload)), nil
}

func assignment(num, newNum, feePayer types.Field) *AddCircuit {
	return &AddCircuit{
		Num:      num.BigInt(),
		NewNum:   newNum.BigInt(),
		FeePayer: feePayer.BigInt(),
	}
}

// Prove generates a PLONK proof for the update num -> newNum paid by feePayer.
func Prove(keys *Keys, num, newNum, feePayer types.Field) ([]byte, error) {
	wtn, err := frontend.NewWitness(assignment(num, newNum, feePayer), ecc.BN254.ScalarField())
	if err != nil {
		return nil, err
	}

	proof, err := plonk.Prove(
		keys.CCS,
		keys.ProvingKey,
		wtn,
		backend.WithSolverOptions(
			solver.WithLogger(gnarkLogger),
		),
	)
	if err != nil {
		return nil, err
	}

	bufProof := bytes.NewBuffer(nil)
	if _, err := proof.WriteTo(bufProof); err != nil {
		return nil, err
	}
	return bufProof.Bytes(), nil
}

func Verify(vk plonk.VerifyingKey, bzProof []byte, num, newNum, feePayer types.Field) error {
	proof := plonk.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(bzProof)); err != nil {
		return fmt.Errorf("read proof: %w", err)
	}

	pubWtn, err := frontend.NewWitness(assignment(num, newNum, feePayer), ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return err
	}
	return plonk.Verify(proof, vk, pubWtn)
}

// ExportSolidity writes a Solidity verifier for the circuit's verifying key.
func ExportSolidity(vk plonk.VerifyingKey, w io.Writer) error {
	return vk.ExportSolidity(w)
}
