// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/compounder/state"
	"github.com/vechain/compounder/thor"
	"github.com/vechain/compounder/xenv"
)

var (
	tokenAddr = thor.NameToAddress("looks")
	admin     = thor.NameToAddress("admin")
	alice     = thor.NameToAddress("alice")
	bob       = thor.NameToAddress("bob")
)

func newEnv(st *state.State, caller thor.Address) *xenv.Environment {
	return xenv.New(st, &xenv.BlockContext{Number: 1}, &xenv.TransactionContext{Origin: caller})
}

func deploy(t *testing.T, cap, premint *big.Int) (*state.State, *Token) {
	st := state.New(nil)
	tk := New(tokenAddr, st, "LOOKS")
	require.NoError(t, tk.Deploy(newEnv(st, admin), Params{Symbol: "LOOKS", Cap: cap, Premint: premint}))
	return st, tk
}

func balanceOf(t *testing.T, tk *Token, addr thor.Address) *big.Int {
	bal, err := tk.BalanceOf(addr)
	require.NoError(t, err)
	return bal
}

func TestCappedMint(t *testing.T) {
	st, tk := deploy(t, thor.Ether(21000), thor.Ether(2250))

	supply, err := tk.TotalSupply()
	require.NoError(t, err)
	assert.Equal(t, thor.Ether(2250), supply)
	assert.Equal(t, thor.Ether(2250), balanceOf(t, tk, admin))

	env := newEnv(st, admin)
	ok, err := tk.Mint(env, alice, thor.Ether(18750))
	require.NoError(t, err)
	assert.True(t, ok)

	// nothing left under the cap
	ok, err = tk.Mint(env, alice, big.NewInt(1))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, thor.Ether(18750), balanceOf(t, tk, alice))

	_, err = tk.Mint(newEnv(st, alice), alice, big.NewInt(1))
	assert.EqualError(t, err, "Ownable: caller is not the owner")

	assert.Len(t, env.Events().Filter(tokenAddr, "Transfer"), 1)
}

func TestUncapped(t *testing.T) {
	st, tk := deploy(t, nil, nil)
	ok, err := tk.Mint(newEnv(st, admin), alice, thor.Ether(1_000_000))
	require.NoError(t, err)
	assert.True(t, ok)

	limit, err := tk.Cap()
	require.NoError(t, err)
	assert.Equal(t, 0, limit.Sign())
}

func TestTransfer(t *testing.T) {
	st, tk := deploy(t, nil, thor.Ether(100))

	env := newEnv(st, admin)
	require.NoError(t, tk.Transfer(env, alice, thor.Ether(40)))
	assert.Equal(t, thor.Ether(60), balanceOf(t, tk, admin))
	assert.Equal(t, thor.Ether(40), balanceOf(t, tk, alice))

	assert.EqualError(t, tk.Transfer(newEnv(st, alice), bob, thor.Ether(41)), "ERC20: transfer amount exceeds balance")
	assert.EqualError(t, tk.Transfer(env, thor.Address{}, big.NewInt(1)), "ERC20: transfer to the zero address")

	evs := env.Events().Filter(tokenAddr, "Transfer")
	require.Len(t, evs, 1)
	assert.Equal(t, thor.Ether(40), evs[0].Data[0])
}

func TestTransferFrom(t *testing.T) {
	st, tk := deploy(t, nil, thor.Ether(100))

	require.NoError(t, tk.Approve(newEnv(st, admin), alice, thor.Ether(10)))
	aliceEnv := newEnv(st, alice)

	require.NoError(t, tk.TransferFrom(aliceEnv, admin, bob, thor.Ether(4)))
	allowance, err := tk.Allowance(admin, alice)
	require.NoError(t, err)
	assert.Equal(t, thor.Ether(6), allowance)

	assert.EqualError(t, tk.TransferFrom(aliceEnv, admin, bob, thor.Ether(7)), "ERC20: transfer amount exceeds allowance")

	// infinite approval is never consumed
	require.NoError(t, tk.Approve(newEnv(st, admin), alice, MaxAllowance))
	require.NoError(t, tk.TransferFrom(aliceEnv, admin, bob, thor.Ether(50)))
	allowance, _ = tk.Allowance(admin, alice)
	assert.Equal(t, MaxAllowance, allowance)
	assert.Equal(t, thor.Ether(54), balanceOf(t, tk, bob))
}
