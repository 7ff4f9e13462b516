// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package exchange defines the swap venue used to convert the reward token
// into the staked token.
package exchange

import (
	"math/big"

	"github.com/vechain/compounder/thor"
	"github.com/vechain/compounder/xenv"
)

// Fee tiers accepted by the venue, in hundredths of a basis point.
var FeeTiers = []uint32{100, 500, 3000, 10000}

// ValidFee reports whether fee is one of FeeTiers.
func ValidFee(fee uint32) bool {
	for _, f := range FeeTiers {
		if f == fee {
			return true
		}
	}
	return false
}

// ExactInputSingleParams describes a single hop swap of an exact input amount.
type ExactInputSingleParams struct {
	TokenIn          thor.Address
	TokenOut         thor.Address
	Fee              uint32
	Recipient        thor.Address
	Deadline         uint64
	AmountIn         *big.Int
	AmountOutMinimum *big.Int
}

// Router swaps tokens. The caller of env must have approved the router to
// pull AmountIn of TokenIn.
type Router interface {
	Address() thor.Address
	ExactInputSingle(env *xenv.Environment, params ExactInputSingleParams) (*big.Int, error)
}
