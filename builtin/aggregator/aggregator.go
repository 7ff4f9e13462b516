// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package aggregator implements the auto-compounding wrapper around the vault.
// It holds vault shares on behalf of its own share holders, sells the reward
// token it collects and stakes the proceeds back into the vault.
package aggregator

import (
	"math/big"

	"github.com/vechain/compounder/builtin/access"
	"github.com/vechain/compounder/builtin/feesharing"
	"github.com/vechain/compounder/builtin/reverts"
	"github.com/vechain/compounder/builtin/solidity"
	"github.com/vechain/compounder/builtin/token"
	"github.com/vechain/compounder/exchange"
	"github.com/vechain/compounder/log"
	"github.com/vechain/compounder/metrics"
	"github.com/vechain/compounder/state"
	"github.com/vechain/compounder/thor"
	"github.com/vechain/compounder/tx"
	"github.com/vechain/compounder/xenv"
)

var (
	logger = log.WithContext("pkg", "aggregator")

	metricOpsCount         = metrics.LazyLoadCounterVec("aggregator_ops_count", []string{"op"})
	metricConversionsCount = metrics.LazyLoadCounterVec("aggregator_conversions_count", []string{"result"})
	metricSharePrice       = metrics.LazyLoadGauge("aggregator_share_price_milli")
)

var (
	PrecisionFactor = thor.Precision
	// MinimumDeposit is one token. Converted amounts below it are left idle.
	MinimumDeposit = thor.Precision

	TradingFeeTier             = solidity.NewConfigVariable("trading-fee", 3000)
	MaximumHarvestBufferBlocks = solidity.NewConfigVariable("maximum-harvest-buffer-blocks", 6500)
)

// Vault is the share-price vault the aggregator stakes into.
type Vault interface {
	Address() thor.Address
	Deposit(env *xenv.Environment, amount *big.Int, claimRewardToken bool) error
	Withdraw(env *xenv.Environment, shares *big.Int, claimRewardToken bool) error
	Harvest(env *xenv.Environment) error
	UserInfo(user thor.Address) (feesharing.UserInfo, error)
	CalculateSharesValueInLOOKS(user thor.Address, block uint64) (*big.Int, error)
}

// Params are the deployment parameters of the aggregator. Zero values keep the defaults.
type Params struct {
	ThresholdAmount     *big.Int
	MaxPriceLOOKSInWETH *big.Int
	HarvestBufferBlocks uint64
	TradingFee          uint32
}

// Aggregator implements the auto-compounding aggregator.
type Aggregator struct {
	addr        thor.Address
	sctx        *solidity.Context
	looks       *token.Token
	rewardToken *token.Token
	vault       Vault
	router      exchange.Router

	totalShares         *solidity.Uint256
	shares              *solidity.Mapping[thor.Address, *big.Int]
	thresholdAmount     *solidity.Uint256
	maxPrice            *solidity.Uint256
	harvestBufferBlocks *solidity.Uint64
	lastHarvestBlock    *solidity.Uint64
	canHarvest          *solidity.Bool
	guard               *solidity.Guard
	ownable             *access.Ownable
	pausable            *access.Pausable
	harvester           access.Authorizer
}

// Option customizes an Aggregator at bind time.
type Option func(*Aggregator)

// WithHarvester lets account run HarvestAndSellAndCompound next to the owner.
func WithHarvester(account thor.Address) Option {
	return func(a *Aggregator) {
		a.harvester = access.AuthorizerFunc(func(env *xenv.Environment) error {
			if env.Caller() == account {
				return nil
			}
			return a.ownable.Authorize(env)
		})
	}
}

func New(
	addr thor.Address,
	state *state.State,
	looks, rewardToken *token.Token,
	vault Vault,
	router exchange.Router,
	opts ...Option,
) *Aggregator {
	sctx := solidity.NewContext(addr, state)
	ownable := access.NewOwnable(sctx)
	a := &Aggregator{
		addr:                addr,
		sctx:                sctx,
		looks:               looks,
		rewardToken:         rewardToken,
		vault:               vault,
		router:              router,
		totalShares:         solidity.NewUint256(sctx, solidity.Slot("total-shares")),
		shares:              solidity.NewMapping[thor.Address, *big.Int](sctx, solidity.Slot("user-shares")),
		thresholdAmount:     solidity.NewUint256(sctx, solidity.Slot("threshold-amount")),
		maxPrice:            solidity.NewUint256(sctx, solidity.Slot("max-price-looks-in-weth")),
		harvestBufferBlocks: solidity.NewUint64(sctx, solidity.Slot("harvest-buffer-blocks")),
		lastHarvestBlock:    solidity.NewUint64(sctx, solidity.Slot("last-harvest-block")),
		canHarvest:          solidity.NewBool(sctx, solidity.Slot("can-harvest")),
		guard:               solidity.NewGuard(sctx),
		ownable:             ownable,
		pausable:            access.NewPausable(sctx),
		harvester:           ownable,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Deploy makes the caller the owner and sets the standing allowances to the
// vault and the router.
func (a *Aggregator) Deploy(env *xenv.Environment, params Params) error {
	if err := a.ownable.Init(env, env.Caller()); err != nil {
		return err
	}
	if params.ThresholdAmount != nil {
		if err := a.thresholdAmount.Set(params.ThresholdAmount); err != nil {
			return err
		}
	}
	if params.MaxPriceLOOKSInWETH != nil {
		if err := a.maxPrice.Set(params.MaxPriceLOOKSInWETH); err != nil {
			return err
		}
	}
	if err := a.setHarvestBufferBlocks(params.HarvestBufferBlocks); err != nil {
		return err
	}
	if params.TradingFee != 0 {
		if err := a.setTradingFee(params.TradingFee); err != nil {
			return err
		}
	}
	self := env.As(a.addr)
	if err := a.looks.Approve(self, a.vault.Address(), token.MaxAllowance); err != nil {
		return err
	}
	return a.rewardToken.Approve(self, a.router.Address(), token.MaxAllowance)
}

func (a *Aggregator) Address() thor.Address {
	return a.addr
}

func (a *Aggregator) Ownable() *access.Ownable {
	return a.ownable
}

// Deposit stakes amount through the vault and mints shares at the current price.
func (a *Aggregator) Deposit(env *xenv.Environment, amount *big.Int) error {
	if err := a.pausable.WhenNotPaused(); err != nil {
		return err
	}
	if err := env.Require(amount.Cmp(MinimumDeposit) >= 0, "Deposit: Amount must be >= 1 LOOKS"); err != nil {
		return err
	}
	exit, err := a.guard.Enter()
	if err != nil {
		return err
	}
	defer exit()

	if err := a.maybeHarvest(env); err != nil {
		return err
	}
	total, err := a.totalShares.Get()
	if err != nil {
		return err
	}
	shares := amount
	if total.Sign() > 0 {
		value, err := a.vault.CalculateSharesValueInLOOKS(a.addr, env.BlockNumber())
		if err != nil {
			return err
		}
		if shares, err = solidity.MulDiv(amount, total, value); err != nil {
			return err
		}
	}
	if err := env.Require(shares.Sign() > 0, "Deposit: Fail"); err != nil {
		return err
	}
	held, err := a.shares.Get(env.Caller())
	if err != nil {
		return err
	}
	if held, err = solidity.Add(held, shares); err != nil {
		return err
	}
	if err := a.shares.Set(env.Caller(), held); err != nil {
		return err
	}
	if err := a.totalShares.Add(shares); err != nil {
		return err
	}

	if err := a.looks.TransferFrom(env.As(a.addr), env.Caller(), a.addr, amount); err != nil {
		return err
	}
	if err := a.vault.Deposit(env.As(a.addr), amount, false); err != nil {
		return err
	}
	env.Log(a.addr, "Deposit", []thor.Bytes32{tx.AddressTopic(env.Caller())}, amount)
	metricOpsCount().AddWithLabel(1, map[string]string{"op": "deposit"})
	a.observePrice(env.BlockNumber())
	return nil
}

// Withdraw burns shares and pays out their value in the governed token.
func (a *Aggregator) Withdraw(env *xenv.Environment, shares *big.Int) error {
	held, err := a.shares.Get(env.Caller())
	if err != nil {
		return err
	}
	if shares.Sign() <= 0 || shares.Cmp(held) > 0 {
		return reverts.New("Withdraw: Shares equal to 0 or larger than user shares")
	}
	return a.withdraw(env, shares)
}

// WithdrawAll burns every share of the caller.
func (a *Aggregator) WithdrawAll(env *xenv.Environment) error {
	held, err := a.shares.Get(env.Caller())
	if err != nil {
		return err
	}
	if err := env.Require(held.Sign() > 0, "Withdraw: Shares equal to 0"); err != nil {
		return err
	}
	return a.withdraw(env, held)
}

func (a *Aggregator) withdraw(env *xenv.Environment, shares *big.Int) error {
	exit, err := a.guard.Enter()
	if err != nil {
		return err
	}
	defer exit()

	if err := a.maybeHarvest(env); err != nil {
		return err
	}
	position, err := a.vault.UserInfo(a.addr)
	if err != nil {
		return err
	}
	total, err := a.totalShares.Get()
	if err != nil {
		return err
	}
	vaultShares, err := solidity.MulDiv(position.Shares, shares, total)
	if err != nil {
		return err
	}

	held, err := a.shares.Get(env.Caller())
	if err != nil {
		return err
	}
	if held, err = solidity.Sub(held, shares); err != nil {
		return err
	}
	if err := a.shares.Set(env.Caller(), held); err != nil {
		return err
	}
	if err := a.totalShares.Sub(shares); err != nil {
		return err
	}

	before, err := a.looks.BalanceOf(a.addr)
	if err != nil {
		return err
	}
	if err := a.vault.Withdraw(env.As(a.addr), vaultShares, false); err != nil {
		return err
	}
	after, err := a.looks.BalanceOf(a.addr)
	if err != nil {
		return err
	}
	amount, err := solidity.Sub(after, before)
	if err != nil {
		return err
	}
	if err := a.looks.Transfer(env.As(a.addr), env.Caller(), amount); err != nil {
		return err
	}
	env.Log(a.addr, "Withdraw", []thor.Bytes32{tx.AddressTopic(env.Caller())}, amount)
	metricOpsCount().AddWithLabel(1, map[string]string{"op": "withdraw"})
	a.observePrice(env.BlockNumber())
	return nil
}

// maybeHarvest runs the harvest ahead of a price read when harvesting is on and
// the buffer since the last harvest has elapsed.
func (a *Aggregator) maybeHarvest(env *xenv.Environment) error {
	enabled, err := a.canHarvest.Get()
	if err != nil || !enabled {
		return err
	}
	total, err := a.totalShares.Get()
	if err != nil || total.Sign() == 0 {
		return err
	}
	last, err := a.lastHarvestBlock.Get()
	if err != nil {
		return err
	}
	buffer, err := a.harvestBufferBlocks.Get()
	if err != nil {
		return err
	}
	block := env.BlockNumber()
	if block == last || block-last < buffer {
		return nil
	}
	return a.harvestAndSellAndCompound(env)
}

// HarvestAndSellAndCompound collects the vault reward, sells it and stakes the proceeds.
func (a *Aggregator) HarvestAndSellAndCompound(env *xenv.Environment) error {
	if err := a.harvester.Authorize(env); err != nil {
		return err
	}
	total, err := a.totalShares.Get()
	if err != nil {
		return err
	}
	if err := env.Require(total.Sign() > 0, "Harvest: No share"); err != nil {
		return err
	}
	last, err := a.lastHarvestBlock.Get()
	if err != nil {
		return err
	}
	if err := env.Require(env.BlockNumber() != last, "Harvest: Already done"); err != nil {
		return err
	}
	exit, err := a.guard.Enter()
	if err != nil {
		return err
	}
	defer exit()
	return a.harvestAndSellAndCompound(env)
}

func (a *Aggregator) harvestAndSellAndCompound(env *xenv.Environment) error {
	a.lastHarvestBlock.Set(env.BlockNumber())

	// nothing to harvest is not a failure
	if err := env.Try(func(env *xenv.Environment) error {
		return a.vault.Harvest(env.As(a.addr))
	}); err != nil && !reverts.IsRevertErr(err) {
		return err
	}

	amount, err := a.rewardToken.BalanceOf(a.addr)
	if err != nil {
		return err
	}
	threshold, err := a.thresholdAmount.Get()
	if err != nil {
		return err
	}
	if amount.Cmp(threshold) < 0 {
		return nil
	}
	conv, err := a.sell(env, amount)
	if err != nil || !conv.executed {
		return err
	}

	idle, err := a.looks.BalanceOf(a.addr)
	if err != nil {
		return err
	}
	if idle.Cmp(MinimumDeposit) < 0 {
		logger.Debug("conversion left idle", "amount", idle)
		return nil
	}
	if err := a.vault.Deposit(env.As(a.addr), idle, false); err != nil {
		return err
	}
	metricOpsCount().AddWithLabel(1, map[string]string{"op": "compound"})
	a.observePrice(env.BlockNumber())
	return nil
}

type conversion struct {
	executed bool
	in       *big.Int
	out      *big.Int
}

// sell swaps amount of the reward token for the governed token. A reverting or
// under-delivering venue is recorded as a failed conversion, not an error.
func (a *Aggregator) sell(env *xenv.Environment, amount *big.Int) (conversion, error) {
	maxPrice, err := a.maxPrice.Get()
	if err != nil {
		return conversion{}, err
	}
	minOut := new(big.Int)
	if maxPrice.Sign() > 0 {
		if minOut, err = solidity.MulDiv(amount, PrecisionFactor, maxPrice); err != nil {
			return conversion{}, err
		}
	}
	fee, err := TradingFeeTier.Get(a.sctx)
	if err != nil {
		return conversion{}, err
	}

	conv := conversion{in: amount}
	err = env.Try(func(env *xenv.Environment) error {
		out, err := a.router.ExactInputSingle(env.As(a.addr), exchange.ExactInputSingleParams{
			TokenIn:          a.rewardToken.Address(),
			TokenOut:         a.looks.Address(),
			Fee:              uint32(fee),
			Recipient:        a.addr,
			Deadline:         env.BlockContext().Time,
			AmountIn:         amount,
			AmountOutMinimum: minOut,
		})
		if err != nil {
			return err
		}
		if out.Cmp(minOut) < 0 {
			return reverts.New("Too little received")
		}
		conv.out = out
		return nil
	})
	if err != nil {
		if !reverts.IsRevertErr(err) {
			return conversion{}, err
		}
		env.Log(a.addr, "FailedConversion", nil)
		metricConversionsCount().AddWithLabel(1, map[string]string{"result": "failed"})
		logger.Warn("conversion failed", "in", amount, "minOut", minOut, "reason", reverts.Reason(err))
		return conv, nil
	}
	conv.executed = true
	env.Log(a.addr, "ConversionToLOOKS", nil, conv.in, conv.out)
	metricConversionsCount().AddWithLabel(1, map[string]string{"result": "ok"})
	return conv, nil
}

// CheckAndAdjustLOOKSTokenAllowanceIfRequired restores the standing approval to the vault.
func (a *Aggregator) CheckAndAdjustLOOKSTokenAllowanceIfRequired(env *xenv.Environment) error {
	return a.adjustAllowance(env, a.looks, a.vault.Address())
}

// CheckAndAdjustRewardTokenAllowanceIfRequired restores the standing approval to the router.
func (a *Aggregator) CheckAndAdjustRewardTokenAllowanceIfRequired(env *xenv.Environment) error {
	return a.adjustAllowance(env, a.rewardToken, a.router.Address())
}

func (a *Aggregator) adjustAllowance(env *xenv.Environment, tok *token.Token, spender thor.Address) error {
	if err := a.ownable.Authorize(env); err != nil {
		return err
	}
	allowance, err := tok.Allowance(a.addr, spender)
	if err != nil {
		return err
	}
	if allowance.Cmp(token.MaxAllowance) == 0 {
		return nil
	}
	return tok.Approve(env.As(a.addr), spender, token.MaxAllowance)
}

func (a *Aggregator) Pause(env *xenv.Environment) error {
	if err := a.ownable.Authorize(env); err != nil {
		return err
	}
	return a.pausable.Pause(env)
}

func (a *Aggregator) Unpause(env *xenv.Environment) error {
	if err := a.ownable.Authorize(env); err != nil {
		return err
	}
	return a.pausable.Unpause(env)
}

func (a *Aggregator) StartHarvest(env *xenv.Environment) error {
	if err := a.ownable.Authorize(env); err != nil {
		return err
	}
	a.canHarvest.Set(true)
	env.Log(a.addr, "HarvestStart", nil)
	return nil
}

func (a *Aggregator) StopHarvest(env *xenv.Environment) error {
	if err := a.ownable.Authorize(env); err != nil {
		return err
	}
	a.canHarvest.Set(false)
	env.Log(a.addr, "HarvestStop", nil)
	return nil
}

func (a *Aggregator) setHarvestBufferBlocks(blocks uint64) error {
	limit, err := MaximumHarvestBufferBlocks.Get(a.sctx)
	if err != nil {
		return err
	}
	if blocks > limit {
		return reverts.New("Owner: Must be below MAXIMUM_HARVEST_BUFFER_BLOCKS")
	}
	a.harvestBufferBlocks.Set(blocks)
	return nil
}

func (a *Aggregator) UpdateHarvestBufferBlocks(env *xenv.Environment, blocks uint64) error {
	if err := a.ownable.Authorize(env); err != nil {
		return err
	}
	if err := a.setHarvestBufferBlocks(blocks); err != nil {
		return err
	}
	env.Log(a.addr, "NewHarvestBufferBlocks", nil, new(big.Int).SetUint64(blocks))
	return nil
}

func (a *Aggregator) UpdateMaxPriceOfLOOKSInWETH(env *xenv.Environment, price *big.Int) error {
	if err := a.ownable.Authorize(env); err != nil {
		return err
	}
	if err := a.maxPrice.Set(price); err != nil {
		return err
	}
	env.Log(a.addr, "NewMaximumPriceLOOKSInWETH", nil, price)
	return nil
}

func (a *Aggregator) UpdateThresholdAmount(env *xenv.Environment, threshold *big.Int) error {
	if err := a.ownable.Authorize(env); err != nil {
		return err
	}
	if err := a.thresholdAmount.Set(threshold); err != nil {
		return err
	}
	env.Log(a.addr, "NewThresholdAmount", nil, threshold)
	return nil
}

func (a *Aggregator) setTradingFee(fee uint32) error {
	if !exchange.ValidFee(fee) {
		return reverts.New("Owner: Fee invalid")
	}
	TradingFeeTier.Set(a.sctx, uint64(fee))
	return nil
}

func (a *Aggregator) UpdateTradingFeeUniswapV3(env *xenv.Environment, fee uint32) error {
	if err := a.ownable.Authorize(env); err != nil {
		return err
	}
	if err := a.setTradingFee(fee); err != nil {
		return err
	}
	env.Log(a.addr, "NewTradingFeeUniswapV3", nil, big.NewInt(int64(fee)))
	return nil
}

func (a *Aggregator) observePrice(block uint64) {
	price, err := a.CalculateSharePriceInLOOKS(block)
	if err != nil {
		return
	}
	metricSharePrice().Set(new(big.Int).Div(price, big.NewInt(1e15)).Int64())
}

// CalculateSharePriceInLOOKS returns the value of one share in the governed token, scaled by 1e18.
func (a *Aggregator) CalculateSharePriceInLOOKS(block uint64) (*big.Int, error) {
	total, err := a.totalShares.Get()
	if err != nil {
		return nil, err
	}
	if total.Sign() == 0 {
		return new(big.Int).Set(PrecisionFactor), nil
	}
	value, err := a.vault.CalculateSharesValueInLOOKS(a.addr, block)
	if err != nil {
		return nil, err
	}
	return solidity.MulDiv(value, PrecisionFactor, total)
}

// CalculateSharePriceInPrimeShare returns the vault shares backing one share, scaled by 1e18.
func (a *Aggregator) CalculateSharePriceInPrimeShare() (*big.Int, error) {
	total, err := a.totalShares.Get()
	if err != nil {
		return nil, err
	}
	if total.Sign() == 0 {
		return new(big.Int).Set(PrecisionFactor), nil
	}
	position, err := a.vault.UserInfo(a.addr)
	if err != nil {
		return nil, err
	}
	return solidity.MulDiv(position.Shares, PrecisionFactor, total)
}

func (a *Aggregator) CalculateSharesValueInLOOKS(user thor.Address, block uint64) (*big.Int, error) {
	total, err := a.totalShares.Get()
	if err != nil {
		return nil, err
	}
	if total.Sign() == 0 {
		return new(big.Int), nil
	}
	held, err := a.shares.Get(user)
	if err != nil {
		return nil, err
	}
	value, err := a.vault.CalculateSharesValueInLOOKS(a.addr, block)
	if err != nil {
		return nil, err
	}
	return solidity.MulDiv(value, held, total)
}

func (a *Aggregator) UserShares(user thor.Address) (*big.Int, error) {
	return a.shares.Get(user)
}

func (a *Aggregator) TotalShares() (*big.Int, error) {
	return a.totalShares.Get()
}

func (a *Aggregator) LastHarvestBlock() (uint64, error) {
	return a.lastHarvestBlock.Get()
}

func (a *Aggregator) CanHarvest() (bool, error) {
	return a.canHarvest.Get()
}

func (a *Aggregator) ThresholdAmount() (*big.Int, error) {
	return a.thresholdAmount.Get()
}

func (a *Aggregator) MaxPriceLOOKSInWETH() (*big.Int, error) {
	return a.maxPrice.Get()
}

func (a *Aggregator) HarvestBufferBlocks() (uint64, error) {
	return a.harvestBufferBlocks.Get()
}

func (a *Aggregator) TradingFee() (uint32, error) {
	fee, err := TradingFeeTier.Get(a.sctx)
	return uint32(fee), err
}

func (a *Aggregator) Paused() (bool, error) {
	return a.pausable.Paused()
}
