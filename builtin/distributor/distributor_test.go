// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package distributor

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/compounder/builtin/token"
	"github.com/vechain/compounder/runtime"
	"github.com/vechain/compounder/state"
	"github.com/vechain/compounder/thor"
	"github.com/vechain/compounder/tx"
	"github.com/vechain/compounder/xenv"
)

const startBlock = 1000

var (
	admin     = thor.NameToAddress("admin")
	splitter  = thor.NameToAddress("token-splitter")
	looksAddr = thor.NameToAddress("looks")
	distAddr  = thor.NameToAddress("distributor")
	users     = []thor.Address{
		thor.NameToAddress("user1"),
		thor.NameToAddress("user2"),
		thor.NameToAddress("user3"),
		thor.NameToAddress("user4"),
	}
)

func ether(s string) *big.Int {
	return thor.MustParseEther(s)
}

func wei(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("invalid number " + s)
	}
	return v
}

func fixedSchedule() Params {
	return Params{
		StartBlock:                startBlock,
		TokenSplitter:             splitter,
		RewardsPerBlockForStaking: []*big.Int{ether("30"), ether("15"), ether("7.5"), ether("3.75")},
		RewardsPerBlockForOthers:  []*big.Int{ether("70"), ether("35"), ether("17.5"), ether("8.75")},
		PeriodLengthsInBlocks:     []uint64{100, 100, 100, 100},
		NumberPeriods:             4,
	}
}

type testChain struct {
	t     *testing.T
	rt    *runtime.Runtime
	looks *token.Token
	dist  *Distributor
}

// newTestChain deploys the token and the pool with the given schedule. Each user
// holds 500 tokens and has approved the pool.
func newTestChain(t *testing.T, params Params) *testChain {
	rt := runtime.New(state.New(nil), 1, 0)
	c := &testChain{
		t:     t,
		rt:    rt,
		looks: token.New(looksAddr, rt.State(), "LOOKS"),
	}
	c.dist = New(distAddr, rt.State(), c.looks)

	c.exec(admin, func(env *xenv.Environment) error {
		if err := c.looks.Deploy(env, token.Params{Symbol: "LOOKS", Cap: ether("21000"), Premint: ether("2250")}); err != nil {
			return err
		}
		if err := c.dist.Deploy(env, params); err != nil {
			return err
		}
		if err := c.looks.Ownable().TransferOwnership(env, distAddr); err != nil {
			return err
		}
		for _, u := range users {
			if err := c.looks.Transfer(env, u, ether("500")); err != nil {
				return err
			}
		}
		return nil
	})
	for _, u := range users {
		c.exec(u, func(env *xenv.Environment) error {
			return c.looks.Approve(env, distAddr, token.MaxAllowance)
		})
	}
	return c
}

func (c *testChain) at(offset int64) {
	require.NoError(c.t, c.rt.SetBlock(uint64(startBlock+offset), 0))
}

func (c *testChain) exec(origin thor.Address, fn func(env *xenv.Environment) error) *tx.Receipt {
	receipt, err := c.rt.Exec(origin, fn)
	require.NoError(c.t, err)
	require.False(c.t, receipt.Reverted, receipt.Reason)
	return receipt
}

func (c *testChain) revert(origin thor.Address, fn func(env *xenv.Environment) error) string {
	receipt, err := c.rt.Exec(origin, fn)
	require.NoError(c.t, err)
	require.True(c.t, receipt.Reverted)
	return receipt.Reason
}

func (c *testChain) deposit(user thor.Address, amount *big.Int) *tx.Receipt {
	return c.exec(user, func(env *xenv.Environment) error { return c.dist.Deposit(env, amount) })
}

func (c *testChain) withdraw(user thor.Address, amount *big.Int) *tx.Receipt {
	return c.exec(user, func(env *xenv.Environment) error { return c.dist.Withdraw(env, amount) })
}

func (c *testChain) withdrawAll(user thor.Address) *tx.Receipt {
	return c.exec(user, func(env *xenv.Environment) error { return c.dist.WithdrawAll(env) })
}

func (c *testChain) compound(user thor.Address) *tx.Receipt {
	return c.exec(user, func(env *xenv.Environment) error { return c.dist.HarvestAndCompound(env) })
}

func (c *testChain) balanceOf(addr thor.Address) *big.Int {
	bal, err := c.looks.BalanceOf(addr)
	require.NoError(c.t, err)
	return bal
}

func (c *testChain) pending(user thor.Address) *big.Int {
	p, err := c.dist.CalculatePendingRewards(user, c.rt.BlockNumber())
	require.NoError(c.t, err)
	return p
}

func (c *testChain) principal(user thor.Address) *big.Int {
	info, err := c.dist.UserInfo(user)
	require.NoError(c.t, err)
	return info.Amount
}

func (c *testChain) depositAll() {
	c.at(-50)
	for _, u := range users {
		r := c.deposit(u, ether("100"))
		assertEvent(c.t, r, distAddr, "Deposit", ether("100"), big.NewInt(0))
	}
}

func assertEvent(t *testing.T, r *tx.Receipt, addr thor.Address, name string, data ...*big.Int) {
	t.Helper()
	evs := r.Events.Filter(addr, name)
	require.Len(t, evs, 1, name)
	require.Len(t, evs[0].Data, len(data))
	for i := range data {
		assert.Equal(t, 0, data[i].Cmp(evs[0].Data[i]), "%s data[%d]: want %v got %v", name, i, data[i], evs[0].Data[i])
	}
}

func TestDeployValidation(t *testing.T) {
	rt := runtime.New(state.New(nil), 1, 0)
	looks := token.New(looksAddr, rt.State(), "LOOKS")
	dist := New(distAddr, rt.State(), looks)

	receipt, err := rt.Exec(admin, func(env *xenv.Environment) error {
		return looks.Deploy(env, token.Params{Cap: ether("21000"), Premint: ether("2250")})
	})
	require.NoError(t, err)
	require.False(t, receipt.Reverted)

	tests := []struct {
		name   string
		modify func(p *Params)
		reason string
	}{
		{"short staking", func(p *Params) { p.RewardsPerBlockForStaking = p.RewardsPerBlockForStaking[:3] }, "Distributor: Lengthes must match numberPeriods"},
		{"short lengths", func(p *Params) { p.PeriodLengthsInBlocks = p.PeriodLengthsInBlocks[:3] }, "Distributor: Lengthes must match numberPeriods"},
		{"wrong count", func(p *Params) { p.NumberPeriods = 5 }, "Distributor: Lengthes must match numberPeriods"},
		{"too much", func(p *Params) { p.PeriodLengthsInBlocks[3] = 101 }, "Distributor: Wrong reward parameters"},
		{"too little", func(p *Params) { p.RewardsPerBlockForOthers[0] = ether("69") }, "Distributor: Wrong reward parameters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := fixedSchedule()
			tt.modify(&params)
			receipt, err := rt.Exec(admin, func(env *xenv.Environment) error { return dist.Deploy(env, params) })
			require.NoError(t, err)
			assert.True(t, receipt.Reverted)
			assert.Equal(t, tt.reason, receipt.Reason)
		})
	}
}

func TestFixedPeriods(t *testing.T) {
	c := newTestChain(t, fixedSchedule())
	c.depositAll()

	c.at(149)
	assert.Equal(t, ether("933.75"), c.pending(users[0]))

	c.at(150)
	r := c.withdrawAll(users[0])
	assertEvent(t, r, distAddr, "Withdraw", ether("1037.5"), ether("937.5"))
	assertEvent(t, r, distAddr, "NewRewardsPerBlock", big.NewInt(1), big.NewInt(startBlock+100), ether("15"), ether("35"))
	assert.Equal(t, ether("8750"), c.balanceOf(splitter))

	c.at(199)
	assert.Equal(t, ether("1182.5"), c.pending(users[1]))

	c.at(200)
	r = c.withdraw(users[1], ether("50"))
	assertEvent(t, r, distAddr, "Withdraw", ether("50"), ether("1187.5"))
	assert.Equal(t, ether("1237.5"), c.principal(users[1]))
	assert.Equal(t, ether("10500"), c.balanceOf(splitter))

	c.at(250)
	r = c.compound(users[1])
	assertEvent(t, r, distAddr, "Compound", wei("322826086956521738700"))
	assertEvent(t, r, distAddr, "NewRewardsPerBlock", big.NewInt(2), big.NewInt(startBlock+200), ether("7.5"), ether("17.5"))
	assert.Equal(t, wei("1560326086956521738700"), c.principal(users[1]))

	c.at(500)
	r = c.compound(users[1])
	assertEvent(t, r, distAddr, "Compound", wei("664788514973757331625"))
	assertEvent(t, r, distAddr, "NewRewardsPerBlock", big.NewInt(3), big.NewInt(startBlock+300), ether("3.75"), ether("8.75"))

	phase, err := c.dist.CurrentPhase()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), phase)
	end, err := c.dist.PeriodEndBlock()
	require.NoError(t, err)
	assert.Equal(t, uint64(startBlock+400), end)
	end, err = c.dist.EndBlock()
	require.NoError(t, err)
	assert.Equal(t, uint64(startBlock+400), end)

	for _, u := range users[2:] {
		r = c.withdrawAll(u)
		assertEvent(t, r, distAddr, "Withdraw", wei("1356192699034860464100"), wei("1256192699034860464100"))
	}
	r = c.withdrawAll(users[1])
	assertEvent(t, r, distAddr, "Withdraw", wei("2225114601930279070325"), big.NewInt(0))

	assert.Equal(t, ether("13125"), c.balanceOf(splitter))
	supply, err := c.looks.TotalSupply()
	require.NoError(t, err)
	assert.Equal(t, ether("21000"), supply)

	// floor rounding leaves positive dust in the pool
	assert.Equal(t, 1, c.balanceOf(distAddr).Sign())
	total, err := c.dist.TotalAmountStaked()
	require.NoError(t, err)
	assert.Equal(t, 0, total.Sign())
}

func TestVariablePeriods(t *testing.T) {
	params := fixedSchedule()
	params.RewardsPerBlockForStaking = []*big.Int{ether("120"), ether("30"), ether("7.5"), ether("3.75")}
	params.RewardsPerBlockForOthers = []*big.Int{ether("280"), ether("70"), ether("17.5"), ether("8.75")}
	params.PeriodLengthsInBlocks = []uint64{25, 50, 100, 100}

	c := newTestChain(t, params)
	c.depositAll()

	c.at(49)
	assert.Equal(t, ether("930"), c.pending(users[0]))

	c.at(50)
	r := c.withdrawAll(users[0])
	assertEvent(t, r, distAddr, "Withdraw", ether("1037.5"), ether("937.5"))
	assert.Equal(t, ether("8750"), c.balanceOf(splitter))

	c.at(199)
	assert.Equal(t, ether("1467.5"), c.pending(users[1]))

	// crosses two boundaries in a single update
	c.at(200)
	r = c.withdraw(users[1], ether("50"))
	assertEvent(t, r, distAddr, "Withdraw", ether("50"), ether("1468.75"))
	assert.Len(t, r.Events.Filter(distAddr, "NewRewardsPerBlock"), 2)
	assert.Equal(t, ether("1518.75"), c.principal(users[1]))
	assert.Equal(t, ether("12468.75"), c.balanceOf(splitter))

	c.at(500)
	r = c.compound(users[1])
	assertEvent(t, r, distAddr, "Compound", wei("248522727272727272175"))
	assert.Equal(t, wei("1767272727272727272175"), c.principal(users[1]))

	end, err := c.dist.EndBlock()
	require.NoError(t, err)
	assert.Equal(t, uint64(startBlock+275), end)

	r = c.withdrawAll(users[1])
	assertEvent(t, r, distAddr, "Withdraw", wei("1767272727272727272175"), big.NewInt(0))
	for _, u := range users[2:] {
		r = c.withdrawAll(u)
		assertEvent(t, r, distAddr, "Withdraw", wei("1585113636363636363600"), wei("1485113636363636363600"))
	}

	assert.Equal(t, ether("13125"), c.balanceOf(splitter))
	supply, _ := c.looks.TotalSupply()
	assert.Equal(t, ether("21000"), supply)
}

func TestWithdrawAllAfterTenBlocks(t *testing.T) {
	c := newTestChain(t, fixedSchedule())
	c.depositAll()

	c.at(9)
	assert.Equal(t, ether("67.5"), c.pending(users[0]))

	c.at(10)
	r := c.withdrawAll(users[0])
	assertEvent(t, r, distAddr, "Withdraw", ether("175"), ether("75"))
	assert.Equal(t, ether("700"), c.balanceOf(splitter))
	assert.Equal(t, ether("575"), c.balanceOf(users[0]))
}

func TestCompoundAfterTenBlocks(t *testing.T) {
	c := newTestChain(t, fixedSchedule())
	c.depositAll()

	c.at(10)
	r := c.compound(users[0])
	assertEvent(t, r, distAddr, "Compound", ether("75"))
	assert.Equal(t, ether("175"), c.principal(users[0]))
	assert.Equal(t, ether("700"), c.balanceOf(splitter))

	// nothing left to compound in the same block
	r = c.compound(users[0])
	assert.Empty(t, r.Events.Filter(distAddr, "Compound"))
}

func TestUpdatePool(t *testing.T) {
	c := newTestChain(t, fixedSchedule())
	c.depositAll()

	c.at(10)
	r := c.exec(users[0], c.dist.UpdatePool)
	mints := r.Events.Filter(looksAddr, "Transfer")
	require.Len(t, mints, 2)
	assert.Equal(t, tx.AddressTopic(distAddr), mints[0].Topics[2])
	assert.Equal(t, ether("300"), mints[0].Data[0])

	c.at(11)
	r = c.exec(admin, c.dist.UpdatePool)
	mints = r.Events.Filter(looksAddr, "Transfer")
	require.Len(t, mints, 2)
	assert.Equal(t, ether("30"), mints[0].Data[0])

	// same block is a no-op
	r = c.exec(admin, c.dist.UpdatePool)
	assert.Empty(t, r.Events)

	acc, err := c.dist.AccTokenPerShare()
	require.NoError(t, err)
	assert.Equal(t, ether("0.825"), acc)
}

func TestBeforeStart(t *testing.T) {
	c := newTestChain(t, fixedSchedule())
	c.depositAll()

	assert.Equal(t, 0, c.pending(users[0]).Sign())
	for _, u := range users[:3] {
		r := c.withdraw(u, ether("100"))
		assertEvent(t, r, distAddr, "Withdraw", ether("100"), big.NewInt(0))
	}
	r := c.withdrawAll(users[3])
	assertEvent(t, r, distAddr, "Withdraw", ether("100"), big.NewInt(0))

	c.at(0)
	r = c.deposit(users[0], ether("100"))
	assertEvent(t, r, distAddr, "Deposit", ether("100"), big.NewInt(0))

	// nothing staked before start so nothing was minted
	supply, _ := c.looks.TotalSupply()
	assert.Equal(t, ether("2250"), supply)
}

func TestDenseAndSparseUpdates(t *testing.T) {
	dense := newTestChain(t, fixedSchedule())
	dense.depositAll()
	for i := int64(1); i <= 400; i++ {
		dense.at(i)
		dense.exec(admin, dense.dist.UpdatePool)
	}

	sparse := newTestChain(t, fixedSchedule())
	sparse.depositAll()
	sparse.at(500)
	r := sparse.exec(admin, sparse.dist.UpdatePool)
	assert.Len(t, r.Events.Filter(distAddr, "NewRewardsPerBlock"), 3)

	for _, c := range []*testChain{dense, sparse} {
		assert.Equal(t, ether("13125"), c.balanceOf(splitter))
		// 400 deposited plus 5625 minted for stakers
		assert.Equal(t, ether("6025"), c.balanceOf(distAddr))
		assert.Equal(t, ether("1406.25"), c.pending(users[0]))
	}
}

func TestRejections(t *testing.T) {
	c := newTestChain(t, fixedSchedule())
	c.depositAll()
	c.at(10)

	reason := c.revert(users[0], func(env *xenv.Environment) error { return c.dist.Deposit(env, big.NewInt(0)) })
	assert.Equal(t, "Deposit: Amount must be > 0", reason)

	reason = c.revert(users[0], func(env *xenv.Environment) error { return c.dist.Withdraw(env, big.NewInt(0)) })
	assert.Equal(t, "Withdraw: Amount must be > 0 or lower than user balance", reason)

	// the pending reward does not count toward the withdrawable amount
	reason = c.revert(users[0], func(env *xenv.Environment) error { return c.dist.Withdraw(env, ether("101")) })
	assert.Equal(t, "Withdraw: Amount must be > 0 or lower than user balance", reason)

	reason = c.revert(admin, c.dist.WithdrawAll)
	assert.Equal(t, "Withdraw: Amount must be > 0", reason)

	// a depositor without funds fails in the token and leaves nothing behind
	poor := thor.NameToAddress("poor")
	reason = c.revert(poor, func(env *xenv.Environment) error { return c.dist.Deposit(env, ether("1")) })
	assert.Equal(t, "ERC20: transfer amount exceeds allowance", reason)
	last, err := c.dist.LastRewardBlock()
	require.NoError(t, err)
	assert.Equal(t, uint64(startBlock), last)
}
