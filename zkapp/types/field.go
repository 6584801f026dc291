package types

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Field is an element of the BN254 scalar field, the native value type of
// contract state.
type Field struct {
	v fr.Element
}

func NewField(x uint64) Field {
	var f Field
	f.v.SetUint64(x)
	return f
}

// FieldFromElement wraps an already reduced element.
func FieldFromElement(e fr.Element) Field {
	return Field{v: e}
}

// ParseField parses the decimal form produced by String.
func ParseField(s string) (Field, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Field{}, fmt.Errorf("invalid field value %q", s)
	}
	if n.Sign() < 0 || n.Cmp(fr.Modulus()) >= 0 {
		return Field{}, fmt.Errorf("field value %q out of range", s)
	}
	var f Field
	f.v.SetBigInt(n)
	return f, nil
}

func (f Field) Add(o Field) Field {
	var r Field
	r.v.Add(&f.v, &o.v)
	return r
}

func (f Field) Equal(o Field) bool {
	return f.v.Equal(&o.v)
}

func (f Field) IsZero() bool {
	return f.v.IsZero()
}

func (f Field) BigInt() *big.Int {
	return f.v.BigInt(new(big.Int))
}

func (f Field) Bytes() []byte {
	b := f.v.Bytes()
	return b[:]
}

func (f Field) String() string {
	return f.v.String()
}

func (f Field) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Field) UnmarshalText(text []byte) error {
	v, err := ParseField(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}
