// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package exchange

import (
	"math/big"

	"github.com/vechain/compounder/builtin/access"
	"github.com/vechain/compounder/builtin/reverts"
	"github.com/vechain/compounder/builtin/solidity"
	"github.com/vechain/compounder/builtin/token"
	"github.com/vechain/compounder/log"
	"github.com/vechain/compounder/state"
	"github.com/vechain/compounder/thor"
	"github.com/vechain/compounder/tx"
	"github.com/vechain/compounder/xenv"
)

var logger = log.WithContext("pkg", "exchange")

// MultiplierBase is the multiplier that trades one for one.
const MultiplierBase = 10000

// FixedRateRouter pays out of its own inventory at a fixed rate:
// amountOut = amountIn * multiplier / MultiplierBase.
type FixedRateRouter struct {
	addr       thor.Address
	tokens     map[thor.Address]*token.Token
	multiplier *solidity.Uint64
	ownable    *access.Ownable
}

func NewFixedRateRouter(addr thor.Address, state *state.State, tokens ...*token.Token) *FixedRateRouter {
	sctx := solidity.NewContext(addr, state)
	m := make(map[thor.Address]*token.Token, len(tokens))
	for _, t := range tokens {
		m[t.Address()] = t
	}
	return &FixedRateRouter{
		addr:       addr,
		tokens:     m,
		multiplier: solidity.NewUint64(sctx, solidity.Slot("multiplier")),
		ownable:    access.NewOwnable(sctx),
	}
}

// Deploy makes the caller the owner and sets the initial rate.
func (r *FixedRateRouter) Deploy(env *xenv.Environment, multiplier uint64) error {
	if err := r.ownable.Init(env, env.Caller()); err != nil {
		return err
	}
	r.multiplier.Set(multiplier)
	return nil
}

func (r *FixedRateRouter) Address() thor.Address {
	return r.addr
}

func (r *FixedRateRouter) Multiplier() (uint64, error) {
	return r.multiplier.Get()
}

func (r *FixedRateRouter) SetMultiplier(env *xenv.Environment, multiplier uint64) error {
	if err := r.ownable.Authorize(env); err != nil {
		return err
	}
	r.multiplier.Set(multiplier)
	return nil
}

// Quote returns the output for amountIn at the current rate.
func (r *FixedRateRouter) Quote(amountIn *big.Int) (*big.Int, error) {
	m, err := r.multiplier.Get()
	if err != nil {
		return nil, err
	}
	return solidity.MulDiv(amountIn, new(big.Int).SetUint64(m), big.NewInt(MultiplierBase))
}

func (r *FixedRateRouter) ExactInputSingle(env *xenv.Environment, params ExactInputSingleParams) (*big.Int, error) {
	if !ValidFee(params.Fee) {
		return nil, reverts.Newf("Router: fee tier %d not supported", params.Fee)
	}
	if params.Deadline != 0 && env.BlockContext().Time > params.Deadline {
		return nil, reverts.New("Transaction too old")
	}
	in, ok := r.tokens[params.TokenIn]
	if !ok {
		return nil, reverts.Newf("Router: unknown token %v", params.TokenIn)
	}
	out, ok := r.tokens[params.TokenOut]
	if !ok {
		return nil, reverts.Newf("Router: unknown token %v", params.TokenOut)
	}

	amountOut, err := r.Quote(params.AmountIn)
	if err != nil {
		return nil, err
	}
	if params.AmountOutMinimum != nil && amountOut.Cmp(params.AmountOutMinimum) < 0 {
		logger.Info("swap below minimum output", "in", params.AmountIn, "out", amountOut, "min", params.AmountOutMinimum)
		return nil, reverts.New("Too little received")
	}

	if err := in.TransferFrom(env.As(r.addr), env.Caller(), r.addr, params.AmountIn); err != nil {
		return nil, err
	}
	if err := out.Transfer(env.As(r.addr), params.Recipient, amountOut); err != nil {
		return nil, err
	}
	env.Log(r.addr, "Swap", []thor.Bytes32{tx.AddressTopic(env.Caller()), tx.AddressTopic(params.Recipient)}, params.AmountIn, amountOut)
	return amountOut, nil
}
