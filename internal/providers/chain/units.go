package chain

import (
	"math/big"
	"strings"
)

// tokenDecimals matches the reward contract's ERC-20 decimals.
const tokenDecimals = 18

var unitScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(tokenDecimals), nil)

// ScaleUnits converts a whole-token amount into the contract's base units.
func ScaleUnits(amount int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(amount), unitScale)
}

// FormatUnits renders a base-unit balance as a decimal whole-token string,
// trimming trailing fractional zeros ("1500000000000000000" -> "1.5",
// "1000000000000000000" -> "1").
func FormatUnits(raw *big.Int) string {
	if raw == nil || raw.Sign() == 0 {
		return "0"
	}
	quo, rem := new(big.Int).QuoRem(raw, unitScale, new(big.Int))
	if rem.Sign() == 0 {
		return quo.String()
	}
	frac := rem.String()
	for len(frac) < tokenDecimals {
		frac = "0" + frac
	}
	frac = strings.TrimRight(frac, "0")
	return quo.String() + "." + frac
}
