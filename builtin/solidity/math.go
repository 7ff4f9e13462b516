// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/vechain/compounder/builtin/reverts"
)

const (
	errOverflow  = "arithmetic overflow"
	errUnderflow = "arithmetic underflow"
	errDivByZero = "division by zero"
)

func toU256(x *big.Int) (*uint256.Int, error) {
	if x.Sign() < 0 {
		return nil, reverts.New(errUnderflow)
	}
	v, overflow := uint256.FromBig(x)
	if overflow {
		return nil, reverts.New(errOverflow)
	}
	return v, nil
}

func operands(x, y *big.Int) (*uint256.Int, *uint256.Int, error) {
	a, err := toU256(x)
	if err != nil {
		return nil, nil, err
	}
	b, err := toU256(y)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// Add returns x+y, reverting on uint256 overflow.
func Add(x, y *big.Int) (*big.Int, error) {
	a, b, err := operands(x, y)
	if err != nil {
		return nil, err
	}
	if _, overflow := a.AddOverflow(a, b); overflow {
		return nil, reverts.New(errOverflow)
	}
	return a.ToBig(), nil
}

// Sub returns x-y, reverting when y > x.
func Sub(x, y *big.Int) (*big.Int, error) {
	a, b, err := operands(x, y)
	if err != nil {
		return nil, err
	}
	if _, underflow := a.SubOverflow(a, b); underflow {
		return nil, reverts.New(errUnderflow)
	}
	return a.ToBig(), nil
}

// Mul returns x*y, reverting on uint256 overflow.
func Mul(x, y *big.Int) (*big.Int, error) {
	a, b, err := operands(x, y)
	if err != nil {
		return nil, err
	}
	if _, overflow := a.MulOverflow(a, b); overflow {
		return nil, reverts.New(errOverflow)
	}
	return a.ToBig(), nil
}

// Div returns floor(x/y), reverting when y is zero.
func Div(x, y *big.Int) (*big.Int, error) {
	a, b, err := operands(x, y)
	if err != nil {
		return nil, err
	}
	if b.IsZero() {
		return nil, reverts.New(errDivByZero)
	}
	return a.Div(a, b).ToBig(), nil
}

// MulDiv returns floor(x*y/d). Like Solidity's checked arithmetic, the
// intermediate product must fit in 256 bits.
func MulDiv(x, y, d *big.Int) (*big.Int, error) {
	p, err := Mul(x, y)
	if err != nil {
		return nil, err
	}
	return Div(p, d)
}
