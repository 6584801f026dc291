package types

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Amounts are counted in nanomina.
const (
	AmountDecimals = 9
	NanoPerMina    = 1_000_000_000
)

// ParseAmount converts a decimal mina amount such as "0.1" into nanomina.
func ParseAmount(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > AmountDecimals {
		return nil, fmt.Errorf("amount %q has more than %d decimals", s, AmountDecimals)
	}
	if whole == "" {
		whole = "0"
	}
	frac += strings.Repeat("0", AmountDecimals-len(frac))

	w, err := parseDigits(whole)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	f, err := parseDigits(frac)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	ret, overflow := new(uint256.Int).MulOverflow(w, uint256.NewInt(NanoPerMina))
	if overflow {
		return nil, fmt.Errorf("amount %q overflows", s)
	}
	if _, overflow := ret.AddOverflow(ret, f); overflow {
		return nil, fmt.Errorf("amount %q overflows", s)
	}
	return ret, nil
}

// MustParseAmount is ParseAmount for constants.
func MustParseAmount(s string) *uint256.Int {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FormatAmount renders nanomina as a decimal mina amount without trailing zeros.
func FormatAmount(a *uint256.Int) string {
	if a == nil {
		return "0"
	}
	whole, frac := new(uint256.Int).DivMod(a, uint256.NewInt(NanoPerMina), new(uint256.Int))
	if frac.IsZero() {
		return whole.Dec()
	}
	fs := frac.Dec()
	fs = strings.Repeat("0", AmountDecimals-len(fs)) + fs
	return whole.Dec() + "." + strings.TrimRight(fs, "0")
}

func parseDigits(s string) (*uint256.Int, error) {
	for _, c := range s {
		if c < '0' || c > '9' {
			return nil, fmt.Errorf("unexpected character %q", c)
		}
	}
	s = strings.TrimLeft(s, "0")
	if s == "" {
		return new(uint256.Int), nil
	}
	return uint256.FromDecimal(s)
}
