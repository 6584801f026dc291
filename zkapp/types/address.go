package types

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"github.com/consensys/gnark-crypto/signature"
	"github.com/kysee/zkapp/zkapp/crypto"
)

const (
	ver        = 0x01
	addrPrefix = "bz"
)

func EncodeAddress(payload []byte) string {
	return addrPrefix + base58.CheckEncode(payload, ver)
}

func DecodeAddress(addr string) ([]byte, error) {
	if !strings.HasPrefix(addr, addrPrefix) {
		return nil, fmt.Errorf("wrong prefix: got(%.2s)", addr)
	}
	bz, _ver, err := base58.CheckDecode(addr[len(addrPrefix):])
	if err != nil {
		return nil, fmt.Errorf("decode address %q: %w", addr, err)
	}
	if _ver != ver {
		return nil, fmt.Errorf("wrong version: expected(%d), got(%d)", ver, _ver)
	}
	return bz, nil
}

// ValidateAddress reports whether addr is a well formed address.
func ValidateAddress(addr string) error {
	_, err := DecodeAddress(addr)
	return err
}

func Pub2Addr(pubKey signature.PublicKey) string {
	return EncodeAddress(pubKey.Bytes())
}

func Addr2Pub(addr string) (signature.PublicKey, error) {
	pubKeyBytes, err := DecodeAddress(addr)
	if err != nil {
		return nil, err
	}
	pubKey := crypto.NewPub()
	if _, err := pubKey.SetBytes(pubKeyBytes); err != nil {
		return nil, fmt.Errorf("address %s is not a public key: %w", addr, err)
	}
	return pubKey, nil
}
