// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package thor

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Decimals is the number of decimals of every token handled by the engine.
const Decimals = 18

// Precision is 10^18, the fixed point scale of amounts and accumulators.
var Precision = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

// Ether returns n whole tokens in base units.
func Ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), Precision)
}

// ParseEther converts a decimal string such as "7.5" into base units.
func ParseEther(s string) (*big.Int, error) {
	if strings.HasPrefix(s, "+") {
		return nil, errors.Errorf("invalid amount: %q", s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid amount: %q", s)
	}
	if d.IsNegative() {
		return nil, errors.Errorf("negative amount: %s", s)
	}
	if d.Exponent() < -Decimals {
		return nil, errors.Errorf("too many decimals: %s", s)
	}
	return d.Shift(Decimals).BigInt(), nil
}

// MustParseEther is ParseEther which panics on error.
func MustParseEther(s string) *big.Int {
	v, err := ParseEther(s)
	if err != nil {
		panic(err)
	}
	return v
}

// FormatEther renders base units as a decimal string without trailing zeros.
func FormatEther(v *big.Int) string {
	if v == nil {
		return "<nil>"
	}
	return decimal.NewFromBigInt(v, -Decimals).String()
}
