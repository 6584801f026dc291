package types

import (
	crand "crypto/rand"
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func randBytes(n int) []byte {
	bz := make([]byte, n)
	_, _ = crand.Read(bz)
	return bz
}

func randAddr() string {
	return EncodeAddress(randBytes(32))
}

func newTestCommand() *ZkappCommand {
	return &ZkappCommand{
		FeePayer: randAddr(),
		Nonce:    3,
		Contract: randAddr(),
		Num:      NewField(5),
		NewNum:   NewField(7),
		Proof:    randBytes(64),
	}
}

func TestAmount(t *testing.T) {
	fee, err := ParseAmount("0.1")
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(100_000_000), fee)
	require.Equal(t, "0.1", FormatAmount(fee))

	for _, s := range []string{"0", "1", "12.5", "0.000000001", "42.123456789"} {
		a, err := ParseAmount(s)
		require.NoError(t, err, s)
		require.Equal(t, s, FormatAmount(a))
	}

	a, err := ParseAmount(".25")
	require.NoError(t, err)
	require.Equal(t, "0.25", FormatAmount(a))

	for _, s := range []string{"", "abc", "-1", "0.0000000001", "1.x"} {
		_, err := ParseAmount(s)
		require.Error(t, err, s)
	}
}

func TestField(t *testing.T) {
	f := NewField(3).Add(NewField(2))
	require.True(t, f.Equal(NewField(5)))
	require.Equal(t, "5", f.String())

	g, err := ParseField("5")
	require.NoError(t, err)
	require.True(t, g.Equal(f))

	_, err = ParseField("-1")
	require.Error(t, err)
	_, err = ParseField("not a number")
	require.Error(t, err)
}

func TestEnvelopePreservesFeeAndMemo(t *testing.T) {
	tx := newTestCommand()
	tx.Fee = MustParseAmount("0.1")
	tx.Memo = ""

	s, err := EncodeEnvelope(tx)
	require.NoError(t, err)

	dec, err := DecodeEnvelope(s)
	require.NoError(t, err)
	require.Equal(t, tx.Fee, dec.Fee)
	require.Equal(t, "", dec.Memo)
	require.Equal(t, tx.FeePayer, dec.FeePayer)
	require.Equal(t, tx.Nonce, dec.Nonce)
	require.True(t, tx.Num.Equal(dec.Num))
	require.True(t, tx.NewNum.Equal(dec.NewNum))
	require.Equal(t, tx.Proof, dec.Proof)
	require.Empty(t, dec.Signature)

	h0, err := tx.Hash()
	require.NoError(t, err)
	h1, err := dec.Hash()
	require.NoError(t, err)
	require.Equal(t, h0, h1)
}

func TestEnvelopeWithoutFee(t *testing.T) {
	tx := newTestCommand()
	s, err := EncodeEnvelope(tx)
	require.NoError(t, err)
	require.False(t, strings.Contains(s, `"fee"`))

	dec, err := DecodeEnvelope(s)
	require.NoError(t, err)
	require.Nil(t, dec.Fee)

	_, err = DecodeEnvelope("{")
	require.Error(t, err)
	_, err = DecodeEnvelope(`{"feePayer":"x"}`)
	require.ErrorContains(t, err, "missing proof")
}

func TestSigningMessage(t *testing.T) {
	tx := newTestCommand()
	m0, err := tx.SigningMessage()
	require.NoError(t, err)
	require.Len(t, m0, 32)

	// the signature is not part of the signed message but is part of the hash
	h0, err := tx.Hash()
	require.NoError(t, err)
	tx.Signature = make([]byte, 64)
	_, _ = crand.Read(tx.Signature)
	m1, err := tx.SigningMessage()
	require.NoError(t, err)
	require.Equal(t, m0, m1)
	h1, err := tx.Hash()
	require.NoError(t, err)
	require.NotEqual(t, h0, h1)

	tx.Memo = "changed"
	m2, err := tx.SigningMessage()
	require.NoError(t, err)
	require.NotEqual(t, m0, m2)
}

func TestValidateMemo(t *testing.T) {
	tx := newTestCommand()
	require.NoError(t, tx.Validate())
	tx.Memo = strings.Repeat("m", MaxMemoLen+1)
	require.ErrorIs(t, tx.Validate(), ErrMemoTooLong)
}
