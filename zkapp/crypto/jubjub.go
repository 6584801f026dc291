package crypto

import (
	crand "crypto/rand"
	"errors"
	"fmt"

	jubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"github.com/consensys/gnark-crypto/signature"
	"github.com/kysee/zkapp/utils"
)

var ErrInvalidSignature = errors.New("invalid signature")

//
// GenerateKey

func NewKey() (signature.Signer, error) {
	return jubjub.GenerateKey(crand.Reader)
}

func NewPub() signature.PublicKey {
	return new(jubjub.PublicKey)
}

// Sign signs msg with EdDSA over the BN254 twisted Edwards curve.
// msg must be a canonical field element encoding (e.g. a MiMC digest).
func Sign(signer signature.Signer, msg []byte) ([]byte, error) {
	sig, err := signer.Sign(msg, utils.MiMCHasher())
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return sig, nil
}

func Verify(pubKey signature.PublicKey, sig, msg []byte) error {
	ok, err := pubKey.Verify(sig, msg, utils.MiMCHasher())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !ok {
		return ErrInvalidSignature
	}
	return nil
}
