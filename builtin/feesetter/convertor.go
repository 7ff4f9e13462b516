// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package feesetter

import (
	"math/big"

	"github.com/vechain/compounder/builtin/token"
	"github.com/vechain/compounder/exchange"
	"github.com/vechain/compounder/thor"
	"github.com/vechain/compounder/xenv"
)

// RouterConvertor converts through a single hop swap on a router. It accepts
// any output, so the operator is expected to check the venue before converting.
type RouterConvertor struct {
	addr   thor.Address
	router exchange.Router
	fee    uint32
}

func NewRouterConvertor(addr thor.Address, router exchange.Router, fee uint32) *RouterConvertor {
	return &RouterConvertor{addr: addr, router: router, fee: fee}
}

func (c *RouterConvertor) Address() thor.Address {
	return c.addr
}

// Convert pulls amount of sell from the caller and sends the bought tokens back to it.
func (c *RouterConvertor) Convert(env *xenv.Environment, sell, buy *token.Token, amount *big.Int) (*big.Int, error) {
	self := env.As(c.addr)
	if err := sell.TransferFrom(self, env.Caller(), c.addr, amount); err != nil {
		return nil, err
	}
	if err := sell.Approve(self, c.router.Address(), amount); err != nil {
		return nil, err
	}
	return c.router.ExactInputSingle(self, exchange.ExactInputSingleParams{
		TokenIn:   sell.Address(),
		TokenOut:  buy.Address(),
		Fee:       c.fee,
		Recipient: env.Caller(),
		AmountIn:  amount,
	})
}
