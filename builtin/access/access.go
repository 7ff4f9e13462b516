// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package access implements the ownership, role and pause checks shared by the
// builtin contracts.
package access

import (
	"github.com/vechain/compounder/builtin/reverts"
	"github.com/vechain/compounder/builtin/solidity"
	"github.com/vechain/compounder/log"
	"github.com/vechain/compounder/thor"
	"github.com/vechain/compounder/tx"
	"github.com/vechain/compounder/xenv"
)

var logger = log.WithContext("pkg", "access")

// Authorizer decides whether the caller of env may invoke a restricted method.
type Authorizer interface {
	Authorize(env *xenv.Environment) error
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(env *xenv.Environment) error

func (f AuthorizerFunc) Authorize(env *xenv.Environment) error {
	return f(env)
}

// Ownable keeps a single owner address for a contract.
type Ownable struct {
	contract thor.Address
	owner    *solidity.Address
}

func NewOwnable(sctx *solidity.Context) *Ownable {
	return &Ownable{
		contract: sctx.Address(),
		owner:    solidity.NewAddress(sctx, solidity.Slot("owner")),
	}
}

// ErrInitialized is the revert reason of a second deployment.
const ErrInitialized = "Initializable: contract is already initialized"

// Init sets the initial owner. It reverts once an owner is set.
func (o *Ownable) Init(env *xenv.Environment, owner thor.Address) error {
	current, err := o.owner.Get()
	if err != nil {
		return err
	}
	if !current.IsZero() {
		return reverts.New(ErrInitialized)
	}
	o.owner.Set(owner)
	env.Log(o.contract, "OwnershipTransferred", []thor.Bytes32{tx.AddressTopic(thor.Address{}), tx.AddressTopic(owner)})
	return nil
}

func (o *Ownable) Owner() (thor.Address, error) {
	return o.owner.Get()
}

// Authorize passes only when the caller is the owner.
func (o *Ownable) Authorize(env *xenv.Environment) error {
	owner, err := o.owner.Get()
	if err != nil {
		return err
	}
	if owner != env.Caller() {
		return reverts.New("Ownable: caller is not the owner")
	}
	return nil
}

func (o *Ownable) TransferOwnership(env *xenv.Environment, newOwner thor.Address) error {
	if err := o.Authorize(env); err != nil {
		return err
	}
	if newOwner.IsZero() {
		return reverts.New("Ownable: new owner is the zero address")
	}
	prev, err := o.owner.Get()
	if err != nil {
		return err
	}
	o.owner.Set(newOwner)
	env.Log(o.contract, "OwnershipTransferred", []thor.Bytes32{tx.AddressTopic(prev), tx.AddressTopic(newOwner)})
	logger.Debug("ownership transferred", "contract", o.contract, "from", prev, "to", newOwner)
	return nil
}

// Pausable is a switch that blocks selected methods while set.
type Pausable struct {
	contract thor.Address
	paused   *solidity.Bool
}

func NewPausable(sctx *solidity.Context) *Pausable {
	return &Pausable{
		contract: sctx.Address(),
		paused:   solidity.NewBool(sctx, solidity.Slot("paused")),
	}
}

func (p *Pausable) Paused() (bool, error) {
	return p.paused.Get()
}

func (p *Pausable) WhenNotPaused() error {
	paused, err := p.paused.Get()
	if err != nil {
		return err
	}
	if paused {
		return reverts.New("Pausable: paused")
	}
	return nil
}

func (p *Pausable) WhenPaused() error {
	paused, err := p.paused.Get()
	if err != nil {
		return err
	}
	if !paused {
		return reverts.New("Pausable: not paused")
	}
	return nil
}

func (p *Pausable) Pause(env *xenv.Environment) error {
	if err := p.WhenNotPaused(); err != nil {
		return err
	}
	p.paused.Set(true)
	env.Log(p.contract, "Paused", []thor.Bytes32{tx.AddressTopic(env.Caller())})
	return nil
}

func (p *Pausable) Unpause(env *xenv.Environment) error {
	if err := p.WhenPaused(); err != nil {
		return err
	}
	p.paused.Set(false)
	env.Log(p.contract, "Unpaused", []thor.Bytes32{tx.AddressTopic(env.Caller())})
	return nil
}
