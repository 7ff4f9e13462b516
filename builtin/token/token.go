// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package token implements a fungible token ledger with an owner-gated, capped mint.
package token

import (
	"math/big"

	"github.com/vechain/compounder/builtin/access"
	"github.com/vechain/compounder/builtin/reverts"
	"github.com/vechain/compounder/builtin/solidity"
	"github.com/vechain/compounder/log"
	"github.com/vechain/compounder/state"
	"github.com/vechain/compounder/thor"
	"github.com/vechain/compounder/tx"
	"github.com/vechain/compounder/xenv"
)

var (
	logger = log.WithContext("pkg", "token")

	// MaxAllowance is an approval that is never consumed by TransferFrom.
	MaxAllowance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

// Params are the deployment parameters of a token.
type Params struct {
	Symbol string
	// Cap bounds the total supply. Zero means uncapped.
	Cap *big.Int
	// Premint is minted to the deployer.
	Premint *big.Int
}

// Token implements an ERC20 style ledger.
type Token struct {
	addr   thor.Address
	symbol string

	totalSupply *solidity.Uint256
	cap         *solidity.Uint256
	balances    *solidity.Mapping[thor.Address, *big.Int]
	allowances  *solidity.Mapping[solidity.AddressKey, *big.Int]
	ownable     *access.Ownable
}

// New binds a token to the contract storage at addr.
func New(addr thor.Address, state *state.State, symbol string) *Token {
	sctx := solidity.NewContext(addr, state)
	return &Token{
		addr:        addr,
		symbol:      symbol,
		totalSupply: solidity.NewUint256(sctx, solidity.Slot("total-supply")),
		cap:         solidity.NewUint256(sctx, solidity.Slot("cap")),
		balances:    solidity.NewMapping[thor.Address, *big.Int](sctx, solidity.Slot("balances")),
		allowances:  solidity.NewMapping[solidity.AddressKey, *big.Int](sctx, solidity.Slot("allowances")),
		ownable:     access.NewOwnable(sctx),
	}
}

// Deploy initializes the token. The caller becomes the owner and receives the premint.
func (t *Token) Deploy(env *xenv.Environment, params Params) error {
	if err := t.ownable.Init(env, env.Caller()); err != nil {
		return err
	}
	if params.Cap != nil {
		if err := t.cap.Set(params.Cap); err != nil {
			return err
		}
	}
	if params.Premint != nil && params.Premint.Sign() > 0 {
		if params.Cap != nil && params.Cap.Sign() > 0 && params.Premint.Cmp(params.Cap) > 0 {
			return reverts.New("Token: premint exceeds cap")
		}
		if err := t.mint(env, env.Caller(), params.Premint); err != nil {
			return err
		}
	}
	return nil
}

func (t *Token) Address() thor.Address {
	return t.addr
}

func (t *Token) Symbol() string {
	return t.symbol
}

func (t *Token) Ownable() *access.Ownable {
	return t.ownable
}

func (t *Token) TotalSupply() (*big.Int, error) {
	return t.totalSupply.Get()
}

// Cap returns the supply cap, zero when uncapped.
func (t *Token) Cap() (*big.Int, error) {
	return t.cap.Get()
}

func (t *Token) BalanceOf(addr thor.Address) (*big.Int, error) {
	return t.balances.Get(addr)
}

func (t *Token) Allowance(owner, spender thor.Address) (*big.Int, error) {
	return t.allowances.Get(solidity.AddressKey{A: owner, B: spender})
}

// Mint issues amount to the account if the cap allows it. It returns false,
// minting nothing, when the cap would be exceeded.
func (t *Token) Mint(env *xenv.Environment, to thor.Address, amount *big.Int) (bool, error) {
	if err := t.ownable.Authorize(env); err != nil {
		return false, err
	}
	limit, err := t.cap.Get()
	if err != nil {
		return false, err
	}
	if limit.Sign() > 0 {
		supply, err := t.totalSupply.Get()
		if err != nil {
			return false, err
		}
		after, err := solidity.Add(supply, amount)
		if err != nil {
			return false, err
		}
		if after.Cmp(limit) > 0 {
			logger.Debug("mint above cap skipped", "token", t.symbol, "amount", amount, "supply", supply)
			return false, nil
		}
	}
	if err := t.mint(env, to, amount); err != nil {
		return false, err
	}
	return true, nil
}

func (t *Token) mint(env *xenv.Environment, to thor.Address, amount *big.Int) error {
	if to.IsZero() {
		return reverts.New("ERC20: mint to the zero address")
	}
	if err := t.totalSupply.Add(amount); err != nil {
		return err
	}
	if err := t.addBalance(to, amount); err != nil {
		return err
	}
	env.Log(t.addr, "Transfer", []thor.Bytes32{tx.AddressTopic(thor.Address{}), tx.AddressTopic(to)}, amount)
	return nil
}

func (t *Token) addBalance(addr thor.Address, amount *big.Int) error {
	bal, err := t.balances.Get(addr)
	if err != nil {
		return err
	}
	if bal, err = solidity.Add(bal, amount); err != nil {
		return err
	}
	return t.balances.Set(addr, bal)
}

func (t *Token) Transfer(env *xenv.Environment, to thor.Address, amount *big.Int) error {
	return t.transfer(env, env.Caller(), to, amount)
}

// TransferFrom moves amount out of from's balance using the caller's allowance.
func (t *Token) TransferFrom(env *xenv.Environment, from, to thor.Address, amount *big.Int) error {
	key := solidity.AddressKey{A: from, B: env.Caller()}
	allowance, err := t.allowances.Get(key)
	if err != nil {
		return err
	}
	if allowance.Cmp(MaxAllowance) != 0 {
		if allowance.Cmp(amount) < 0 {
			return reverts.New("ERC20: transfer amount exceeds allowance")
		}
		if err := t.approve(env, from, env.Caller(), new(big.Int).Sub(allowance, amount)); err != nil {
			return err
		}
	}
	return t.transfer(env, from, to, amount)
}

func (t *Token) Approve(env *xenv.Environment, spender thor.Address, amount *big.Int) error {
	return t.approve(env, env.Caller(), spender, amount)
}

func (t *Token) approve(env *xenv.Environment, owner, spender thor.Address, amount *big.Int) error {
	if spender.IsZero() {
		return reverts.New("ERC20: approve to the zero address")
	}
	if err := t.allowances.Set(solidity.AddressKey{A: owner, B: spender}, amount); err != nil {
		return err
	}
	env.Log(t.addr, "Approval", []thor.Bytes32{tx.AddressTopic(owner), tx.AddressTopic(spender)}, amount)
	return nil
}

func (t *Token) transfer(env *xenv.Environment, from, to thor.Address, amount *big.Int) error {
	if to.IsZero() {
		return reverts.New("ERC20: transfer to the zero address")
	}
	bal, err := t.balances.Get(from)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return reverts.New("ERC20: transfer amount exceeds balance")
	}
	if err := t.balances.Set(from, new(big.Int).Sub(bal, amount)); err != nil {
		return err
	}
	if err := t.addBalance(to, amount); err != nil {
		return err
	}
	env.Log(t.addr, "Transfer", []thor.Bytes32{tx.AddressTopic(from), tx.AddressTopic(to)}, amount)
	return nil
}
