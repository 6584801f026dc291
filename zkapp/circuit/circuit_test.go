package circuit

import (
	"bytes"
	crand "crypto/rand"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	gnark_test "github.com/consensys/gnark/test"
	"github.com/kysee/zkapp/zkapp/types"
	"github.com/stretchr/testify/require"
)

func TestAddCircuit_IsSolved(t *testing.T) {
	payer, err := FeePayerField(randAddress())
	require.NoError(t, err)

	good := assignment(types.NewField(5), types.NewField(7), payer)
	require.NoError(t, gnark_test.IsSolved(&AddCircuit{}, good, ecc.BN254.ScalarField()))

	bad := assignment(types.NewField(5), types.NewField(8), payer)
	require.Error(t, gnark_test.IsSolved(&AddCircuit{}, bad, ecc.BN254.ScalarField()))

	noPayer := assignment(types.NewField(5), types.NewField(7), types.NewField(0))
	require.Error(t, gnark_test.IsSolved(&AddCircuit{}, noPayer, ecc.BN254.ScalarField()))
}

func TestCompileIsCached(t *testing.T) {
	k0, err := Compile()
	require.NoError(t, err)
	k1, err := Compile()
	require.NoError(t, err)
	require.Same(t, k0, k1)
}

func TestProveVerify(t *testing.T) {
	keys, err := Compile()
	require.NoError(t, err)

	addr := randAddress()
	payer, err := FeePayerField(addr)
	require.NoError(t, err)

	num := types.NewField(0)
	newNum := num.Add(types.NewField(UpdateIncrement))

	proof, err := Prove(keys, num, newNum, payer)
	require.NoError(t, err)
	require.NoError(t, Verify(keys.VerifyingKey, proof, num, newNum, payer))

	// the proof is bound to its public inputs
	require.Error(t, Verify(keys.VerifyingKey, proof, num, types.NewField(4), payer))

	other, err := FeePayerField(randAddress())
	require.NoError(t, err)
	require.Error(t, Verify(keys.VerifyingKey, proof, num, newNum, other))

	// a wrong transition can not be proven
	_, err = Prove(keys, num, types.NewField(3), payer)
	require.Error(t, err)

	require.Error(t, Verify(keys.VerifyingKey, []byte{0x1, 0x2}, num, newNum, payer))
}

func TestExportSolidity(t *testing.T) {
	keys, err := Compile()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ExportSolidity(keys.VerifyingKey, &buf))
	require.Contains(t, buf.String(), "pragma solidity")
}

func randAddress() string {
	bz := make([]byte, 32)
	_, _ = crand.Read(bz)
	return types.EncodeAddress(bz)
}
