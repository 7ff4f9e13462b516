// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package xenv

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vechain/compounder/builtin/reverts"
	"github.com/vechain/compounder/state"
	"github.com/vechain/compounder/thor"
)

func TestEnvironment(t *testing.T) {
	origin := thor.Address{1}
	env := New(state.New(nil), &BlockContext{Number: 10}, &TransactionContext{Origin: origin})

	assert.Equal(t, origin, env.Caller())
	assert.Equal(t, uint64(10), env.BlockNumber())

	contract := thor.Address{2}
	sub := env.As(contract)
	assert.Equal(t, contract, sub.Caller())
	assert.Equal(t, origin, env.Caller())

	sub.Log(contract, "Deposit", nil)
	assert.Len(t, env.Events(), 1, "derived env shares the event log")

	assert.NoError(t, env.Require(true, "x"))
	err := env.Require(false, "Harvest: No share")
	assert.True(t, reverts.IsRevertErr(err))
}

func TestTry(t *testing.T) {
	st := state.New(nil)
	env := New(st, &BlockContext{}, &TransactionContext{})
	addr := thor.Address{1}
	key := thor.Bytes32{1}

	err := env.Try(func(env *Environment) error {
		st.SetStorage(addr, key, thor.Bytes32{31: 1})
		env.Log(addr, "ConversionToLOOKS", nil)
		return errors.New("swap failed")
	})
	assert.EqualError(t, err, "swap failed")
	v, _ := st.GetStorage(addr, key)
	assert.True(t, v.IsZero())
	assert.Empty(t, env.Events())

	err = env.Try(func(env *Environment) error {
		st.SetStorage(addr, key, thor.Bytes32{31: 2})
		env.Log(addr, "ConversionToLOOKS", nil)
		return nil
	})
	assert.NoError(t, err)
	v, _ = st.GetStorage(addr, key)
	assert.Equal(t, thor.Bytes32{31: 2}, v)
	assert.Len(t, env.Events(), 1)
}
