// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package xenv

import (
	"math/big"

	"github.com/vechain/compounder/builtin/reverts"
	"github.com/vechain/compounder/state"
	"github.com/vechain/compounder/thor"
	"github.com/vechain/compounder/tx"
)

// BlockContext block context.
type BlockContext struct {
	Number uint64
	Time   uint64
}

// TransactionContext transaction context.
type TransactionContext struct {
	ID     thor.Bytes32
	Origin thor.Address
}

type eventLog struct {
	events tx.Events
}

// Environment an env to execute contract methods.
// Environments derived by As share state and the event log with their parent.
type Environment struct {
	state    *state.State
	blockCtx *BlockContext
	txCtx    *TransactionContext
	caller   thor.Address
	log      *eventLog
}

// New create a new env. The caller is the transaction origin.
func New(
	state *state.State,
	blockCtx *BlockContext,
	txCtx *TransactionContext,
) *Environment {
	return &Environment{
		state:    state,
		blockCtx: blockCtx,
		txCtx:    txCtx,
		caller:   txCtx.Origin,
		log:      &eventLog{},
	}
}

func (env *Environment) State() *state.State                     { return env.state }
func (env *Environment) TransactionContext() *TransactionContext { return env.txCtx }
func (env *Environment) BlockContext() *BlockContext             { return env.blockCtx }
func (env *Environment) BlockNumber() uint64                     { return env.blockCtx.Number }
func (env *Environment) Caller() thor.Address                    { return env.caller }
func (env *Environment) Events() tx.Events                       { return env.log.events }

// As returns an env whose caller is addr, used when a contract calls another contract.
func (env *Environment) As(addr thor.Address) *Environment {
	cpy := *env
	cpy.caller = addr
	return &cpy
}

// Require returns a revert with msg when cond is false.
func (env *Environment) Require(cond bool, msg string) error {
	if !cond {
		return reverts.New(msg)
	}
	return nil
}

// Log appends an event emitted by the contract at address.
func (env *Environment) Log(address thor.Address, name string, indexed []thor.Bytes32, data ...*big.Int) {
	env.log.events = append(env.log.events, tx.NewEvent(address, name, indexed, data...))
}

// Try runs fn atomically. If fn fails, its state changes and events are discarded
// and the error is returned to the caller, who may carry on.
func (env *Environment) Try(fn func(env *Environment) error) error {
	rev := env.state.NewCheckpoint()
	n := len(env.log.events)
	if err := fn(env); err != nil {
		env.state.RevertTo(rev)
		env.log.events = env.log.events[:n]
		return err
	}
	return nil
}
