// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package solidity provides storage primitives for built-in contracts,
// laid out like the state variables of a Solidity contract.
package solidity

import (
	"github.com/vechain/compounder/state"
	"github.com/vechain/compounder/thor"
)

// Context binds a contract address to the state holding its storage.
type Context struct {
	address thor.Address
	state   *state.State
}

func NewContext(address thor.Address, state *state.State) *Context {
	return &Context{
		address: address,
		state:   state,
	}
}

func (c *Context) Address() thor.Address {
	return c.address
}

func (c *Context) State() *state.State {
	return c.state
}

// Slot derives the storage position of a named state variable.
func Slot(name string) thor.Bytes32 {
	return thor.Keccak256([]byte(name))
}
