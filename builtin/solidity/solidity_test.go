// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/compounder/builtin/reverts"
	"github.com/vechain/compounder/state"
	"github.com/vechain/compounder/thor"
)

func newTestContext() *Context {
	return NewContext(thor.Address{1}, state.New(nil))
}

type testStruct struct {
	Amount     *big.Int
	RewardDebt *big.Int
	Addr       thor.Address
	Block      uint64
}

func TestMapping(t *testing.T) {
	ctx := newTestContext()
	m := NewMapping[thor.Address, testStruct](ctx, Slot("users"))

	// unset keys read as zero with allocated big ints
	v, err := m.Get(thor.Address{2})
	require.NoError(t, err)
	require.NotNil(t, v.Amount)
	assert.Equal(t, 0, v.Amount.Sign())
	assert.Equal(t, 0, v.RewardDebt.Sign())

	want := testStruct{big.NewInt(100), big.NewInt(7), thor.Address{3}, 42}
	require.NoError(t, m.Set(thor.Address{2}, want))

	got, err := m.Get(thor.Address{2})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// distinct positions for distinct mappings
	other := NewMapping[thor.Address, testStruct](ctx, Slot("others"))
	got, err = other.Get(thor.Address{2})
	require.NoError(t, err)
	assert.Equal(t, 0, got.Amount.Sign())

	m.Delete(thor.Address{2})
	got, err = m.Get(thor.Address{2})
	require.NoError(t, err)
	assert.Equal(t, 0, got.Amount.Sign())
}

func TestMappingPointerValue(t *testing.T) {
	ctx := newTestContext()
	m := NewMapping[AddressKey, *big.Int](ctx, Slot("allowances"))

	key := AddressKey{thor.Address{1}, thor.Address{2}}
	v, err := m.Get(key)
	require.NoError(t, err)
	assert.Equal(t, 0, v.Sign())

	require.NoError(t, m.Set(key, big.NewInt(5)))
	v, err = m.Get(key)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(5), v)

	v, err = m.Get(AddressKey{thor.Address{2}, thor.Address{1}})
	require.NoError(t, err)
	assert.Equal(t, 0, v.Sign())
}

func TestUint256(t *testing.T) {
	ctx := newTestContext()
	u := NewUint256(ctx, Slot("total"))

	v, err := u.Get()
	require.NoError(t, err)
	assert.Equal(t, 0, v.Sign())

	require.NoError(t, u.Add(big.NewInt(10)))
	require.NoError(t, u.Sub(big.NewInt(4)))
	v, _ = u.Get()
	assert.Equal(t, big.NewInt(6), v)

	err = u.Sub(big.NewInt(7))
	assert.True(t, reverts.IsRevertErr(err))
	assert.Equal(t, "arithmetic underflow", err.Error())

	assert.Error(t, u.Set(big.NewInt(-1)))
}

func TestScalars(t *testing.T) {
	ctx := newTestContext()

	b := NewBool(ctx, Slot("paused"))
	v, _ := b.Get()
	assert.False(t, v)
	b.Set(true)
	v, _ = b.Get()
	assert.True(t, v)

	n := NewUint64(ctx, Slot("block"))
	n.Set(12345678)
	got, _ := n.Get()
	assert.Equal(t, uint64(12345678), got)

	a := NewAddress(ctx, Slot("owner"))
	a.Set(thor.Address{9})
	addr, _ := a.Get()
	assert.Equal(t, thor.Address{9}, addr)
}

func TestMath(t *testing.T) {
	maxU256 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	v, err := Add(big.NewInt(1), big.NewInt(2))
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(3), v)

	_, err = Add(maxU256, big.NewInt(1))
	assert.EqualError(t, err, "arithmetic overflow")

	_, err = Sub(big.NewInt(1), big.NewInt(2))
	assert.EqualError(t, err, "arithmetic underflow")

	_, err = Mul(maxU256, big.NewInt(2))
	assert.EqualError(t, err, "arithmetic overflow")

	_, err = Div(big.NewInt(1), big.NewInt(0))
	assert.EqualError(t, err, "division by zero")

	v, err = MulDiv(big.NewInt(10), big.NewInt(3), big.NewInt(4))
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(7), v)

}

func TestGuard(t *testing.T) {
	g := NewGuard(newTestContext())

	exit, err := g.Enter()
	require.NoError(t, err)

	_, err = g.Enter()
	assert.EqualError(t, err, "ReentrancyGuard: reentrant call")

	exit()
	exit, err = g.Enter()
	require.NoError(t, err)
	exit()
}

func TestAddressSet(t *testing.T) {
	s := NewAddressSet(newTestContext(), Slot("set"))
	a, b, c := thor.Address{1}, thor.Address{2}, thor.Address{3}

	for _, addr := range []thor.Address{a, b, c} {
		ok, err := s.Add(addr)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := s.Add(b)
	assert.False(t, ok)

	ok, _ = s.Remove(a)
	assert.True(t, ok)
	ok, _ = s.Remove(a)
	assert.False(t, ok)

	vals, err := s.Values()
	require.NoError(t, err)
	assert.Equal(t, []thor.Address{c, b}, vals)

	has, _ := s.Contains(c)
	assert.True(t, has)
	n, _ := s.Len()
	assert.Equal(t, uint64(2), n)
}

func TestConfigVariable(t *testing.T) {
	ctx := newTestContext()
	fee := NewConfigVariable("trading-fee", 3000)

	v, err := fee.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3000), v)

	fee.Set(ctx, 500)
	v, _ = fee.Get(ctx)
	assert.Equal(t, uint64(500), v)
	assert.Equal(t, Slot("trading-fee"), fee.Slot())
}
