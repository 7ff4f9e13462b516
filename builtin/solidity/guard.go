// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"github.com/vechain/compounder/builtin/reverts"
)

var guardSlot = Slot("reentrancy-guard")

// Guard rejects nested entry into a contract's mutating operations.
type Guard struct {
	entered *Bool
}

func NewGuard(context *Context) *Guard {
	return &Guard{entered: NewBool(context, guardSlot)}
}

// Enter marks the contract entered. The returned func must be called on exit.
func (g *Guard) Enter() (func(), error) {
	entered, err := g.entered.Get()
	if err != nil {
		return nil, err
	}
	if entered {
		return nil, reverts.New("ReentrancyGuard: reentrant call")
	}
	g.entered.Set(true)
	return func() { g.entered.Set(false) }, nil
}
