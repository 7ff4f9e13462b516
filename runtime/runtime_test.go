// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/compounder/builtin/reverts"
	"github.com/vechain/compounder/lvldb"
	"github.com/vechain/compounder/state"
	"github.com/vechain/compounder/thor"
	"github.com/vechain/compounder/xenv"
)

var (
	contract = thor.Address{0xc}
	slot     = thor.Bytes32{1}
)

func write(v byte, fail error) func(env *xenv.Environment) error {
	return func(env *xenv.Environment) error {
		env.State().SetStorage(contract, slot, thor.Bytes32{31: v})
		env.Log(contract, "Written", nil)
		return fail
	}
}

func read(t *testing.T, rt *Runtime) thor.Bytes32 {
	v, err := rt.State().GetStorage(contract, slot)
	require.NoError(t, err)
	return v
}

func TestExec(t *testing.T) {
	rt := New(state.New(nil), 100, 0)
	origin := thor.Address{1}

	receipt, err := rt.Exec(origin, write(1, nil))
	require.NoError(t, err)
	assert.False(t, receipt.Reverted)
	assert.Len(t, receipt.Events, 1)
	assert.Equal(t, uint64(100), receipt.BlockNumber)
	assert.Equal(t, thor.Bytes32{31: 1}, read(t, rt))

	receipt, err = rt.Exec(origin, write(2, reverts.New("Deposit: Fail")))
	require.NoError(t, err)
	assert.True(t, receipt.Reverted)
	assert.Equal(t, "Deposit: Fail", receipt.Reason)
	assert.Empty(t, receipt.Events)
	assert.Equal(t, thor.Bytes32{31: 1}, read(t, rt))

	_, err = rt.Exec(origin, write(3, errors.New("disk")))
	assert.EqualError(t, err, "disk")
	assert.Equal(t, thor.Bytes32{31: 1}, read(t, rt))
}

func TestCallDiscards(t *testing.T) {
	rt := New(state.New(nil), 0, 0)
	err := rt.Call(thor.Address{1}, func(env *xenv.Environment) error {
		assert.Equal(t, thor.Address{1}, env.Caller())
		return write(5, nil)(env)
	})
	assert.NoError(t, err)
	assert.True(t, read(t, rt).IsZero())
}

func TestBlocks(t *testing.T) {
	rt := New(state.New(nil), 10, 120)
	assert.NoError(t, rt.SetBlock(15, 180))
	assert.Equal(t, uint64(15), rt.BlockNumber())

	assert.NoError(t, rt.SetBlock(20, 240))
	assert.Error(t, rt.SetBlock(19, 0))
	assert.Equal(t, uint64(20), rt.BlockNumber())
}

func TestCommit(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	rt := New(state.New(db), 0, 0)
	_, err = rt.Exec(thor.Address{1}, write(7, nil))
	require.NoError(t, err)

	hash, err := rt.Commit(db.NewBatch())
	require.NoError(t, err)
	assert.False(t, hash.IsZero())

	v, err := state.New(db).GetStorage(contract, slot)
	require.NoError(t, err)
	assert.Equal(t, thor.Bytes32{31: 7}, v)
}
