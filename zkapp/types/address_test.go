package types

import (
	crand "crypto/rand"
	"fmt"
	"strings"
	"testing"

	"github.com/kysee/zkapp/zkapp/crypto"
	"github.com/stretchr/testify/require"
)

func TestAddressCodec(t *testing.T) {
	pubKeyBytes := make([]byte, 32)
	_, _ = crand.Read(pubKeyBytes)

	addr0 := EncodeAddress(pubKeyBytes)
	require.True(t, strings.HasPrefix(addr0, "bz"))

	// wrong prefix
	_addr0 := fmt.Sprintf("cz%s", addr0[2:])
	_, err := DecodeAddress(_addr0)
	require.ErrorContains(t, err, "wrong prefix")

	// broken checksum
	last := addr0[len(addr0)-1]
	repl := byte('2')
	if last == repl {
		repl = '3'
	}
	_, err = DecodeAddress(addr0[:len(addr0)-1] + string(repl))
	require.Error(t, err)

	bzAddr, err := DecodeAddress(addr0)
	require.NoError(t, err)
	require.Equal(t, pubKeyBytes, bzAddr)
	require.NoError(t, ValidateAddress(addr0))
}

func TestAddressPubKey(t *testing.T) {
	prv, err := crypto.NewKey()
	require.NoError(t, err)
	pubKey0 := prv.Public()
	addr := Pub2Addr(pubKey0)

	pubKey1, err := Addr2Pub(addr)
	require.NoError(t, err)
	require.Equal(t, pubKey0.Bytes(), pubKey1.Bytes())

	_, err = Addr2Pub("bzinvalid")
	require.Error(t, err)
}
