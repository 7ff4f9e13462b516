// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package aggregator

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/compounder/builtin/distributor"
	"github.com/vechain/compounder/builtin/feesharing"
	"github.com/vechain/compounder/builtin/reverts"
	"github.com/vechain/compounder/builtin/token"
	"github.com/vechain/compounder/exchange"
	"github.com/vechain/compounder/runtime"
	"github.com/vechain/compounder/state"
	"github.com/vechain/compounder/thor"
	"github.com/vechain/compounder/tx"
	"github.com/vechain/compounder/xenv"
)

const startBlock = 1000

var (
	admin      = thor.NameToAddress("admin")
	looksAddr  = thor.NameToAddress("looks")
	wethAddr   = thor.NameToAddress("weth")
	distAddr   = thor.NameToAddress("distributor")
	vaultAddr  = thor.NameToAddress("fee-sharing")
	routerAddr = thor.NameToAddress("router")
	aggAddr    = thor.NameToAddress("aggregator")
	users      = []thor.Address{
		thor.NameToAddress("user1"),
		thor.NameToAddress("user2"),
		thor.NameToAddress("user3"),
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

// faultyRouter rejects every swap.
type faultyRouter struct{}

func (faultyRouter) Address() thor.Address {
	return routerAddr
}

func (faultyRouter) ExactInputSingle(*xenv.Environment, exchange.ExactInputSingleParams) (*big.Int, error) {
	return nil, reverts.New("Router: out of order")
}

type testChain struct {
	t      *testing.T
	rt     *runtime.Runtime
	looks  *token.Token
	weth   *token.Token
	vault  *feesharing.Vault
	router *exchange.FixedRateRouter
	agg    *Aggregator
}

// newTestChain deploys the full stack, admin owning every contract. The router
// trades 1 WETH for 2 LOOKS out of a 2250 LOOKS inventory, unless faulty is set.
// Each user holds 500 LOOKS and has approved the aggregator.
func newTestChain(t *testing.T, faulty bool) *testChain {
	rt := runtime.New(state.New(nil), startBlock-300, 0)
	c := &testChain{
		t:     t,
		rt:    rt,
		looks: token.New(looksAddr, rt.State(), "LOOKS"),
		weth:  token.New(wethAddr, rt.State(), "WETH"),
	}
	dist := distributor.New(distAddr, rt.State(), c.looks)
	c.vault = feesharing.New(vaultAddr, rt.State(), c.looks, c.weth, dist)
	c.router = exchange.NewFixedRateRouter(routerAddr, rt.State(), c.looks, c.weth)
	var router exchange.Router = c.router
	if faulty {
		router = faultyRouter{}
	}
	c.agg = New(aggAddr, rt.State(), c.looks, c.weth, c.vault, router)

	c.exec(admin, func(env *xenv.Environment) error {
		if err := c.looks.Deploy(env, token.Params{Symbol: "LOOKS", Cap: ether("25000"), Premint: ether("6250")}); err != nil {
			return err
		}
		if err := c.weth.Deploy(env, token.Params{Symbol: "WETH", Premint: ether("100000")}); err != nil {
			return err
		}
		if err := dist.Deploy(env, distributor.Params{
			StartBlock:                startBlock,
			TokenSplitter:             thor.NameToAddress("token-splitter"),
			RewardsPerBlockForStaking: []*big.Int{ether("30"), ether("15"), ether("7.5"), ether("3.75")},
			RewardsPerBlockForOthers:  []*big.Int{ether("70"), ether("35"), ether("17.5"), ether("8.75")},
			PeriodLengthsInBlocks:     []uint64{100, 100, 100, 100},
			NumberPeriods:             4,
		}); err != nil {
			return err
		}
		if err := c.looks.Ownable().TransferOwnership(env, distAddr); err != nil {
			return err
		}
		if err := c.vault.Deploy(env, feesharing.Params{MinRewardDurationInBlocks: 30, MaxRewardDurationInBlocks: 41000}); err != nil {
			return err
		}
		if err := c.router.Deploy(env, 20000); err != nil {
			return err
		}
		if err := c.looks.Transfer(env, routerAddr, ether("2250")); err != nil {
			return err
		}
		if err := c.agg.Deploy(env, Params{}); err != nil {
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
			return c.looks.Approve(env, aggAddr, token.MaxAllowance)
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
	return c.exec(user, func(env *xenv.Environment) error { return c.agg.Deposit(env, amount) })
}

func (c *testChain) depositAll() {
	c.at(-50)
	for _, u := range users {
		r := c.deposit(u, ether("100"))
		assertEvent(c.t, r, aggAddr, "Deposit", ether("100"))
	}
}

// sendWETH gives the aggregator reward token, as if harvested earlier.
func (c *testChain) sendWETH(amount *big.Int) {
	c.exec(admin, func(env *xenv.Environment) error { return c.weth.Transfer(env, aggAddr, amount) })
}

func (c *testChain) harvest() *tx.Receipt {
	return c.exec(admin, c.agg.HarvestAndSellAndCompound)
}

func (c *testChain) setMultiplier(m uint64) {
	c.exec(admin, func(env *xenv.Environment) error { return c.router.SetMultiplier(env, m) })
}

func (c *testChain) balanceOf(tok *token.Token, addr thor.Address) *big.Int {
	bal, err := tok.BalanceOf(addr)
	require.NoError(c.t, err)
	return bal
}

func (c *testChain) price() *big.Int {
	p, err := c.agg.CalculateSharePriceInLOOKS(c.rt.BlockNumber())
	require.NoError(c.t, err)
	return p
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

func assertNoEvent(t *testing.T, r *tx.Receipt, addr thor.Address, name string) {
	t.Helper()
	assert.Empty(t, r.Events.Filter(addr, name), name)
}

func assertBig(t *testing.T, want, got *big.Int) {
	t.Helper()
	assert.Equal(t, 0, want.Cmp(got), "want %v got %v", want, got)
}

func TestCompoundingScenario(t *testing.T) {
	c := newTestChain(t, false)
	assertBig(t, ether("1"), c.price())
	c.depositAll()

	c.at(1)
	for _, u := range users {
		v, err := c.agg.CalculateSharesValueInLOOKS(u, c.rt.BlockNumber())
		require.NoError(t, err)
		assertBig(t, ether("110"), v)
	}
	assertBig(t, ether("1.1"), c.price())
	prime, err := c.agg.CalculateSharePriceInPrimeShare()
	require.NoError(t, err)
	assertBig(t, ether("1"), prime)

	c.at(2)
	r := c.exec(users[0], c.agg.WithdrawAll)
	assertEvent(t, r, aggAddr, "Withdraw", ether("120"))
	assertEvent(t, r, vaultAddr, "Withdraw", ether("120"), big.NewInt(0))
	assertBig(t, ether("520"), c.balanceOf(c.looks, users[0]))
	assert.Zero(t, c.balanceOf(c.looks, aggAddr).Sign())

	total, err := c.agg.TotalShares()
	require.NoError(t, err)
	assertBig(t, ether("200"), total)
}

func TestSameBlockRoundTrip(t *testing.T) {
	c := newTestChain(t, false)
	c.depositAll()

	c.at(-10)
	c.deposit(users[0], ether("50"))
	r := c.exec(users[0], c.agg.WithdrawAll)
	assertEvent(t, r, aggAddr, "Withdraw", ether("150"))
	assertBig(t, ether("500"), c.balanceOf(c.looks, users[0]))
}

func TestHarvestAndSellAndCompound(t *testing.T) {
	c := newTestChain(t, false)
	c.depositAll()

	c.at(-40)
	c.sendWETH(ether("4.5"))
	r := c.harvest()
	assertEvent(t, r, aggAddr, "ConversionToLOOKS", ether("4.5"), ether("9"))
	assertEvent(t, r, vaultAddr, "Deposit", ether("9"), big.NewInt(0))
	assertNoEvent(t, r, vaultAddr, "Harvest")
	assertBig(t, ether("1.03"), c.price())
	assert.Zero(t, c.balanceOf(c.weth, aggAddr).Sign())

	last, err := c.agg.LastHarvestBlock()
	require.NoError(t, err)
	assert.Equal(t, uint64(startBlock-40), last)
	assert.Equal(t, "Harvest: Already done", c.revert(admin, c.agg.HarvestAndSellAndCompound))
}

func TestHarvestCollectsVaultRewards(t *testing.T) {
	c := newTestChain(t, false)
	c.depositAll()

	c.at(-45)
	c.exec(admin, func(env *xenv.Environment) error {
		if err := c.weth.Transfer(env, vaultAddr, ether("90")); err != nil {
			return err
		}
		return c.vault.UpdateRewardSchedule(env, ether("90"), 30)
	})

	// the aggregator is the only vault holder, so it earns the whole stream
	c.at(-35)
	r := c.harvest()
	assertEvent(t, r, vaultAddr, "Harvest", ether("30"))
	assertEvent(t, r, aggAddr, "ConversionToLOOKS", ether("30"), ether("60"))
	assertEvent(t, r, vaultAddr, "Deposit", ether("60"), big.NewInt(0))
	assertBig(t, ether("360"), c.balanceOf(c.looks, distAddr))
}

func TestThreshold(t *testing.T) {
	c := newTestChain(t, false)
	c.depositAll()

	c.at(-40)
	r := c.exec(admin, func(env *xenv.Environment) error { return c.agg.UpdateThresholdAmount(env, ether("1")) })
	assertEvent(t, r, aggAddr, "NewThresholdAmount", ether("1"))
	c.sendWETH(ether("0.999"))
	r = c.harvest()
	assertNoEvent(t, r, aggAddr, "ConversionToLOOKS")
	assertNoEvent(t, r, aggAddr, "FailedConversion")
	assertBig(t, ether("0.999"), c.balanceOf(c.weth, aggAddr))

	// converted but too little to stake
	c.at(-39)
	c.exec(admin, func(env *xenv.Environment) error { return c.agg.UpdateThresholdAmount(env, ether("0.999")) })
	c.setMultiplier(exchange.MultiplierBase)
	r = c.harvest()
	assertEvent(t, r, aggAddr, "ConversionToLOOKS", ether("0.999"), ether("0.999"))
	assertNoEvent(t, r, vaultAddr, "Deposit")
	assertBig(t, ether("0.999"), c.balanceOf(c.looks, aggAddr))
	assertBig(t, ether("1"), c.price())
}

func TestSlippage(t *testing.T) {
	c := newTestChain(t, false)
	c.depositAll()

	c.at(-40)
	r := c.exec(admin, func(env *xenv.Environment) error { return c.agg.UpdateMaxPriceOfLOOKSInWETH(env, ether("0.01")) })
	assertEvent(t, r, aggAddr, "NewMaximumPriceLOOKSInWETH", ether("0.01"))
	c.sendWETH(ether("1"))

	c.setMultiplier(999999)
	r = c.harvest()
	require.Len(t, r.Events.Filter(aggAddr, "FailedConversion"), 1)
	assertNoEvent(t, r, aggAddr, "ConversionToLOOKS")
	assertNoEvent(t, r, routerAddr, "Swap")
	assertBig(t, ether("1"), c.balanceOf(c.weth, aggAddr))

	c.at(-39)
	c.setMultiplier(1000000)
	r = c.harvest()
	assertEvent(t, r, aggAddr, "ConversionToLOOKS", ether("1"), ether("100"))
	assertEvent(t, r, vaultAddr, "Deposit", ether("100"), big.NewInt(0))
	assertBig(t, wei("1333333333333333333"), c.price())
}

func TestFaultyRouter(t *testing.T) {
	c := newTestChain(t, true)
	c.depositAll()

	c.at(-40)
	r := c.harvest()
	require.Len(t, r.Events.Filter(aggAddr, "FailedConversion"), 1)

	c.at(-39)
	c.sendWETH(ether("5"))
	r = c.harvest()
	require.Len(t, r.Events.Filter(aggAddr, "FailedConversion"), 1)
	assertBig(t, ether("5"), c.balanceOf(c.weth, aggAddr))
	assertBig(t, ether("1"), c.price())
}

func TestOpportunisticHarvest(t *testing.T) {
	c := newTestChain(t, false)
	c.depositAll()

	c.at(-45)
	r := c.exec(admin, c.agg.StartHarvest)
	require.Len(t, r.Events.Filter(aggAddr, "HarvestStart"), 1)
	r = c.exec(admin, func(env *xenv.Environment) error { return c.agg.UpdateHarvestBufferBlocks(env, 5) })
	assertEvent(t, r, aggAddr, "NewHarvestBufferBlocks", big.NewInt(5))
	c.sendWETH(ether("4.5"))

	c.at(-44)
	r = c.deposit(users[0], ether("100"))
	assertEvent(t, r, aggAddr, "ConversionToLOOKS", ether("4.5"), ether("9"))
	shares, err := c.agg.UserShares(users[0])
	require.NoError(t, err)
	assertBig(t, new(big.Int).Add(ether("100"), wei("97087378640776699029")), shares)

	// within the buffer
	c.sendWETH(ether("1"))
	c.at(-40)
	r = c.deposit(users[1], ether("100"))
	assertNoEvent(t, r, aggAddr, "ConversionToLOOKS")

	c.at(-39)
	r = c.exec(users[1], func(env *xenv.Environment) error { return c.agg.Withdraw(env, ether("1")) })
	assertEvent(t, r, aggAddr, "ConversionToLOOKS", ether("1"), ether("2"))
	last, err := c.agg.LastHarvestBlock()
	require.NoError(t, err)
	assert.Equal(t, uint64(startBlock-39), last)

	// stopped harvesting leaves the balance alone
	c.at(-30)
	r = c.exec(admin, c.agg.StopHarvest)
	require.Len(t, r.Events.Filter(aggAddr, "HarvestStop"), 1)
	c.sendWETH(ether("1"))
	r = c.deposit(users[2], ether("10"))
	assertNoEvent(t, r, aggAddr, "ConversionToLOOKS")
	assertBig(t, ether("1"), c.balanceOf(c.weth, aggAddr))
}

func TestAdmin(t *testing.T) {
	c := newTestChain(t, false)

	fee, err := c.agg.TradingFee()
	require.NoError(t, err)
	assert.Equal(t, uint32(3000), fee)
	for _, f := range []uint32{1, 9999} {
		reason := c.revert(admin, func(env *xenv.Environment) error { return c.agg.UpdateTradingFeeUniswapV3(env, f) })
		assert.Equal(t, "Owner: Fee invalid", reason)
	}
	r := c.exec(admin, func(env *xenv.Environment) error { return c.agg.UpdateTradingFeeUniswapV3(env, 500) })
	assertEvent(t, r, aggAddr, "NewTradingFeeUniswapV3", big.NewInt(500))
	fee, err = c.agg.TradingFee()
	require.NoError(t, err)
	assert.Equal(t, uint32(500), fee)

	reason := c.revert(admin, func(env *xenv.Environment) error { return c.agg.UpdateHarvestBufferBlocks(env, 6501) })
	assert.Equal(t, "Owner: Must be below MAXIMUM_HARVEST_BUFFER_BLOCKS", reason)
	c.exec(admin, func(env *xenv.Environment) error { return c.agg.UpdateHarvestBufferBlocks(env, 6500) })

	assert.Equal(t, "Harvest: No share", c.revert(admin, c.agg.HarvestAndSellAndCompound))

	admins := map[string]func(env *xenv.Environment) error{
		"harvest": c.agg.HarvestAndSellAndCompound,
		"pause":   c.agg.Pause,
		"unpause": c.agg.Unpause,
		"start":   c.agg.StartHarvest,
		"stop":    c.agg.StopHarvest,
		"fee":     func(env *xenv.Environment) error { return c.agg.UpdateTradingFeeUniswapV3(env, 100) },
		"buffer":  func(env *xenv.Environment) error { return c.agg.UpdateHarvestBufferBlocks(env, 1) },
		"price": func(env *xenv.Environment) error {
			return c.agg.UpdateMaxPriceOfLOOKSInWETH(env, ether("1"))
		},
		"threshold": func(env *xenv.Environment) error {
			return c.agg.UpdateThresholdAmount(env, ether("1"))
		},
		"looks allowance":  c.agg.CheckAndAdjustLOOKSTokenAllowanceIfRequired,
		"reward allowance": c.agg.CheckAndAdjustRewardTokenAllowanceIfRequired,
	}
	for name, fn := range admins {
		assert.Equal(t, "Ownable: caller is not the owner", c.revert(users[0], fn), name)
	}
}

func TestPause(t *testing.T) {
	c := newTestChain(t, false)
	c.depositAll()

	c.at(-40)
	assert.Equal(t, "Pausable: not paused", c.revert(admin, c.agg.Unpause))
	r := c.exec(admin, c.agg.Pause)
	require.Len(t, r.Events.Filter(aggAddr, "Paused"), 1)
	assert.Equal(t, "Pausable: paused", c.revert(admin, c.agg.Pause))
	reason := c.revert(users[0], func(env *xenv.Environment) error { return c.agg.Deposit(env, ether("1")) })
	assert.Equal(t, "Pausable: paused", reason)

	// withdrawals stay open
	r = c.exec(users[0], c.agg.WithdrawAll)
	assertEvent(t, r, aggAddr, "Withdraw", ether("100"))

	r = c.exec(admin, c.agg.Unpause)
	require.Len(t, r.Events.Filter(aggAddr, "Unpaused"), 1)
	c.deposit(users[0], ether("1"))
}

func TestRejections(t *testing.T) {
	c := newTestChain(t, false)
	c.depositAll()

	tests := []struct {
		name   string
		origin thor.Address
		fn     func(env *xenv.Environment) error
		reason string
	}{
		{"small deposit", users[0], func(env *xenv.Environment) error {
			return c.agg.Deposit(env, ether("0.999999"))
		}, "Deposit: Amount must be >= 1 LOOKS"},
		{"withdraw zero", users[0], func(env *xenv.Environment) error {
			return c.agg.Withdraw(env, big.NewInt(0))
		}, "Withdraw: Shares equal to 0 or larger than user shares"},
		{"withdraw too much", users[0], func(env *xenv.Environment) error {
			return c.agg.Withdraw(env, ether("101"))
		}, "Withdraw: Shares equal to 0 or larger than user shares"},
		{"withdraw all without shares", admin, c.agg.WithdrawAll, "Withdraw: Shares equal to 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.reason, c.revert(tt.origin, tt.fn))
		})
	}
}

func TestAllowances(t *testing.T) {
	c := newTestChain(t, false)

	r := c.exec(admin, c.agg.CheckAndAdjustLOOKSTokenAllowanceIfRequired)
	assertNoEvent(t, r, looksAddr, "Approval")

	// drop both standing approvals from inside the aggregator
	c.exec(admin, func(env *xenv.Environment) error {
		if err := c.looks.Approve(env.As(aggAddr), vaultAddr, big.NewInt(0)); err != nil {
			return err
		}
		return c.weth.Approve(env.As(aggAddr), routerAddr, big.NewInt(0))
	})

	r = c.exec(admin, c.agg.CheckAndAdjustLOOKSTokenAllowanceIfRequired)
	assertEvent(t, r, looksAddr, "Approval", token.MaxAllowance)
	r = c.exec(admin, c.agg.CheckAndAdjustRewardTokenAllowanceIfRequired)
	assertEvent(t, r, wethAddr, "Approval", token.MaxAllowance)

	allowance, err := c.weth.Allowance(aggAddr, routerAddr)
	require.NoError(t, err)
	assertBig(t, token.MaxAllowance, allowance)
}
