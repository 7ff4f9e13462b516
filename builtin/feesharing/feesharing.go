// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package feesharing implements the share-price vault. The vault stakes the governed
// token in the emission pool on behalf of its share holders and streams a second
// reward token to them, block by block.
package feesharing

import (
	"math/big"

	"github.com/vechain/compounder/builtin/access"
	"github.com/vechain/compounder/builtin/distributor"
	"github.com/vechain/compounder/builtin/reverts"
	"github.com/vechain/compounder/builtin/solidity"
	"github.com/vechain/compounder/builtin/token"
	"github.com/vechain/compounder/log"
	"github.com/vechain/compounder/metrics"
	"github.com/vechain/compounder/state"
	"github.com/vechain/compounder/thor"
	"github.com/vechain/compounder/tx"
	"github.com/vechain/compounder/xenv"
)

var (
	logger = log.WithContext("pkg", "feesharing")

	metricOpsCount   = metrics.LazyLoadCounterVec("vault_ops_count", []string{"op"})
	metricSharePrice = metrics.LazyLoadGauge("vault_share_price_milli")
)

var (
	PrecisionFactor = thor.Precision
	// MinimumDeposit is one token.
	MinimumDeposit = thor.Precision
)

// Pool is the emission pool the vault stakes into.
type Pool interface {
	Address() thor.Address
	Deposit(env *xenv.Environment, amount *big.Int) error
	Withdraw(env *xenv.Environment, amount *big.Int) error
	HarvestAndCompound(env *xenv.Environment) error
	UserInfo(user thor.Address) (distributor.UserInfo, error)
	CalculatePendingRewards(user thor.Address, block uint64) (*big.Int, error)
}

// Params are the deployment parameters of the vault.
type Params struct {
	MinRewardDurationInBlocks uint64
	MaxRewardDurationInBlocks uint64
}

// UserInfo is a share holder's position.
type UserInfo struct {
	Shares                 *big.Int
	UserRewardPerTokenPaid *big.Int
	Rewards                *big.Int
}

// Vault implements the fee sharing system.
type Vault struct {
	addr        thor.Address
	looks       *token.Token
	rewardToken *token.Token
	pool        Pool

	totalShares           *solidity.Uint256
	rewardPerTokenStored  *solidity.Uint256
	currentRewardPerBlock *solidity.Uint256
	lastUpdateBlock       *solidity.Uint64
	periodEndBlock        *solidity.Uint64
	minDuration           *solidity.Uint64
	maxDuration           *solidity.Uint64
	users                 *solidity.Mapping[thor.Address, UserInfo]
	guard                 *solidity.Guard
	ownable               *access.Ownable
}

func New(addr thor.Address, state *state.State, looks, rewardToken *token.Token, pool Pool) *Vault {
	sctx := solidity.NewContext(addr, state)
	return &Vault{
		addr:                  addr,
		looks:                 looks,
		rewardToken:           rewardToken,
		pool:                  pool,
		totalShares:           solidity.NewUint256(sctx, solidity.Slot("total-shares")),
		rewardPerTokenStored:  solidity.NewUint256(sctx, solidity.Slot("reward-per-token-stored")),
		currentRewardPerBlock: solidity.NewUint256(sctx, solidity.Slot("current-reward-per-block")),
		lastUpdateBlock:       solidity.NewUint64(sctx, solidity.Slot("last-update-block")),
		periodEndBlock:        solidity.NewUint64(sctx, solidity.Slot("period-end-block")),
		minDuration:           solidity.NewUint64(sctx, solidity.Slot("min-reward-duration")),
		maxDuration:           solidity.NewUint64(sctx, solidity.Slot("max-reward-duration")),
		users:                 solidity.NewMapping[thor.Address, UserInfo](sctx, solidity.Slot("user-info")),
		guard:                 solidity.NewGuard(sctx),
		ownable:               access.NewOwnable(sctx),
	}
}

// Deploy makes the caller the owner and approves the pool to pull staked tokens.
func (v *Vault) Deploy(env *xenv.Environment, params Params) error {
	if params.MinRewardDurationInBlocks == 0 || params.MinRewardDurationInBlocks > params.MaxRewardDurationInBlocks {
		return reverts.New("Owner: Wrong reward duration range")
	}
	v.minDuration.Set(params.MinRewardDurationInBlocks)
	v.maxDuration.Set(params.MaxRewardDurationInBlocks)
	if err := v.ownable.Init(env, env.Caller()); err != nil {
		return err
	}
	return v.looks.Approve(env.As(v.addr), v.pool.Address(), token.MaxAllowance)
}

func (v *Vault) Address() thor.Address {
	return v.addr
}

func (v *Vault) Ownable() *access.Ownable {
	return v.ownable
}

func (v *Vault) RewardToken() *token.Token {
	return v.rewardToken
}

func (v *Vault) lastRewardBlock(block uint64) (uint64, error) {
	end, err := v.periodEndBlock.Get()
	if err != nil {
		return 0, err
	}
	return min(block, end), nil
}

func (v *Vault) rewardPerToken(block uint64) (*big.Int, error) {
	stored, err := v.rewardPerTokenStored.Get()
	if err != nil {
		return nil, err
	}
	total, err := v.totalShares.Get()
	if err != nil {
		return nil, err
	}
	if total.Sign() == 0 {
		return stored, nil
	}
	last, err := v.lastRewardBlock(block)
	if err != nil {
		return nil, err
	}
	updated, err := v.lastUpdateBlock.Get()
	if err != nil {
		return nil, err
	}
	if last <= updated {
		return stored, nil
	}
	rate, err := v.currentRewardPerBlock.Get()
	if err != nil {
		return nil, err
	}
	inc, err := solidity.Mul(new(big.Int).SetUint64(last-updated), rate)
	if err != nil {
		return nil, err
	}
	if inc, err = solidity.MulDiv(inc, PrecisionFactor, total); err != nil {
		return nil, err
	}
	return solidity.Add(stored, inc)
}

func (v *Vault) earned(user UserInfo, rpt *big.Int) (*big.Int, error) {
	delta, err := solidity.Sub(rpt, user.UserRewardPerTokenPaid)
	if err != nil {
		return nil, err
	}
	accrued, err := solidity.MulDiv(user.Shares, delta, PrecisionFactor)
	if err != nil {
		return nil, err
	}
	return solidity.Add(accrued, user.Rewards)
}

// updateRewardPerToken snapshots the accumulator at the current block.
func (v *Vault) updateRewardPerToken(block uint64) (*big.Int, error) {
	updated, err := v.lastUpdateBlock.Get()
	if err != nil {
		return nil, err
	}
	if block == updated {
		return v.rewardPerTokenStored.Get()
	}
	rpt, err := v.rewardPerToken(block)
	if err != nil {
		return nil, err
	}
	if err := v.rewardPerTokenStored.Set(rpt); err != nil {
		return nil, err
	}
	last, err := v.lastRewardBlock(block)
	if err != nil {
		return nil, err
	}
	v.lastUpdateBlock.Set(last)
	return rpt, nil
}

// updateReward snapshots the accumulator and settles the user's accrued reward.
func (v *Vault) updateReward(env *xenv.Environment, addr thor.Address) (UserInfo, error) {
	rpt, err := v.updateRewardPerToken(env.BlockNumber())
	if err != nil {
		return UserInfo{}, err
	}
	user, err := v.users.Get(addr)
	if err != nil {
		return UserInfo{}, err
	}
	if user.Rewards, err = v.earned(user, rpt); err != nil {
		return UserInfo{}, err
	}
	user.UserRewardPerTokenPaid = rpt
	return user, nil
}

// enter compounds the vault position in the pool and settles the caller's reward.
func (v *Vault) enter(env *xenv.Environment) (UserInfo, error) {
	if err := v.pool.HarvestAndCompound(env.As(v.addr)); err != nil {
		return UserInfo{}, err
	}
	return v.updateReward(env, env.Caller())
}

func (v *Vault) claim(env *xenv.Environment, user *UserInfo) (*big.Int, error) {
	pending := user.Rewards
	if pending.Sign() == 0 {
		return pending, nil
	}
	user.Rewards = new(big.Int)
	if err := v.users.Set(env.Caller(), *user); err != nil {
		return nil, err
	}
	if err := v.rewardToken.Transfer(env.As(v.addr), env.Caller(), pending); err != nil {
		return nil, err
	}
	return pending, nil
}

// Deposit stakes amount of the governed token and mints shares at the current price.
// With claimRewardToken set, the accrued reward token is paid out too.
func (v *Vault) Deposit(env *xenv.Environment, amount *big.Int, claimRewardToken bool) error {
	if err := env.Require(amount.Cmp(MinimumDeposit) >= 0, "Deposit: Amount must be >= 1 LOOKS"); err != nil {
		return err
	}
	exit, err := v.guard.Enter()
	if err != nil {
		return err
	}
	defer exit()

	user, err := v.enter(env)
	if err != nil {
		return err
	}
	position, err := v.pool.UserInfo(v.addr)
	if err != nil {
		return err
	}
	total, err := v.totalShares.Get()
	if err != nil {
		return err
	}

	shares := amount
	if total.Sign() > 0 {
		if shares, err = solidity.MulDiv(amount, total, position.Amount); err != nil {
			return err
		}
	}
	if err := env.Require(shares.Sign() > 0, "Deposit: Fail"); err != nil {
		return err
	}
	if user.Shares, err = solidity.Add(user.Shares, shares); err != nil {
		return err
	}
	if err := v.totalShares.Add(shares); err != nil {
		return err
	}
	if err := v.users.Set(env.Caller(), user); err != nil {
		return err
	}

	if err := v.looks.TransferFrom(env.As(v.addr), env.Caller(), v.addr, amount); err != nil {
		return err
	}
	if err := v.pool.Deposit(env.As(v.addr), amount); err != nil {
		return err
	}

	harvested := new(big.Int)
	if claimRewardToken {
		if harvested, err = v.claim(env, &user); err != nil {
			return err
		}
	}
	env.Log(v.addr, "Deposit", []thor.Bytes32{tx.AddressTopic(env.Caller())}, amount, harvested)
	metricOpsCount().AddWithLabel(1, map[string]string{"op": "deposit"})
	v.observePrice(env.BlockNumber())
	return nil
}

// Withdraw burns shares and pays out their value in the governed token.
func (v *Vault) Withdraw(env *xenv.Environment, shares *big.Int, claimRewardToken bool) error {
	user, err := v.users.Get(env.Caller())
	if err != nil {
		return err
	}
	if shares.Sign() <= 0 || shares.Cmp(user.Shares) > 0 {
		return reverts.New("Withdraw: Shares equal to 0 or larger than user shares")
	}
	return v.withdraw(env, shares, claimRewardToken)
}

// WithdrawAll burns every share of the caller.
func (v *Vault) WithdrawAll(env *xenv.Environment, claimRewardToken bool) error {
	user, err := v.users.Get(env.Caller())
	if err != nil {
		return err
	}
	if err := env.Require(user.Shares.Sign() > 0, "Withdraw: Shares equal to 0"); err != nil {
		return err
	}
	return v.withdraw(env, user.Shares, claimRewardToken)
}

func (v *Vault) withdraw(env *xenv.Environment, shares *big.Int, claimRewardToken bool) error {
	exit, err := v.guard.Enter()
	if err != nil {
		return err
	}
	defer exit()

	user, err := v.enter(env)
	if err != nil {
		return err
	}
	position, err := v.pool.UserInfo(v.addr)
	if err != nil {
		return err
	}
	total, err := v.totalShares.Get()
	if err != nil {
		return err
	}
	amount, err := solidity.MulDiv(position.Amount, shares, total)
	if err != nil {
		return err
	}

	if user.Shares, err = solidity.Sub(user.Shares, shares); err != nil {
		return err
	}
	if err := v.totalShares.Sub(shares); err != nil {
		return err
	}
	if err := v.users.Set(env.Caller(), user); err != nil {
		return err
	}

	if err := v.pool.Withdraw(env.As(v.addr), amount); err != nil {
		return err
	}
	harvested := new(big.Int)
	if claimRewardToken {
		if harvested, err = v.claim(env, &user); err != nil {
			return err
		}
	}
	if err := v.looks.Transfer(env.As(v.addr), env.Caller(), amount); err != nil {
		return err
	}
	env.Log(v.addr, "Withdraw", []thor.Bytes32{tx.AddressTopic(env.Caller())}, amount, harvested)
	metricOpsCount().AddWithLabel(1, map[string]string{"op": "withdraw"})
	v.observePrice(env.BlockNumber())
	return nil
}

// Harvest pays out the caller's accrued reward token.
func (v *Vault) Harvest(env *xenv.Environment) error {
	exit, err := v.guard.Enter()
	if err != nil {
		return err
	}
	defer exit()

	user, err := v.enter(env)
	if err != nil {
		return err
	}
	if err := env.Require(user.Rewards.Sign() > 0, "Harvest: Pending rewards must be > 0"); err != nil {
		return err
	}
	pending, err := v.claim(env, &user)
	if err != nil {
		return err
	}
	env.Log(v.addr, "Harvest", []thor.Bytes32{tx.AddressTopic(env.Caller())}, pending)
	metricOpsCount().AddWithLabel(1, map[string]string{"op": "harvest"})
	return nil
}

// UpdateRewardSchedule starts a new reward period of duration blocks distributing
// reward plus whatever the running period has not yet streamed.
func (v *Vault) UpdateRewardSchedule(env *xenv.Environment, reward *big.Int, duration uint64) error {
	if err := v.ownable.Authorize(env); err != nil {
		return err
	}
	minDuration, err := v.minDuration.Get()
	if err != nil {
		return err
	}
	maxDuration, err := v.maxDuration.Get()
	if err != nil {
		return err
	}
	if duration < minDuration || duration > maxDuration {
		return reverts.New("Owner: New reward duration in blocks outside of range")
	}

	block := env.BlockNumber()
	if _, err := v.updateRewardPerToken(block); err != nil {
		return err
	}
	end, err := v.periodEndBlock.Get()
	if err != nil {
		return err
	}
	total := reward
	if block < end {
		rate, err := v.currentRewardPerBlock.Get()
		if err != nil {
			return err
		}
		leftover, err := solidity.Mul(new(big.Int).SetUint64(end-block), rate)
		if err != nil {
			return err
		}
		if total, err = solidity.Add(reward, leftover); err != nil {
			return err
		}
	}
	rate, err := solidity.Div(total, new(big.Int).SetUint64(duration))
	if err != nil {
		return err
	}
	if err := v.currentRewardPerBlock.Set(rate); err != nil {
		return err
	}
	v.lastUpdateBlock.Set(block)
	v.periodEndBlock.Set(block + duration)

	env.Log(v.addr, "NewRewardPeriod", nil, new(big.Int).SetUint64(duration), rate, reward)
	logger.Debug("new reward period", "block", block, "duration", duration, "rate", rate, "reward", reward)
	return nil
}

func (v *Vault) observePrice(block uint64) {
	price, err := v.CalculateSharePriceInLOOKS(block)
	if err != nil {
		return
	}
	metricSharePrice().Set(new(big.Int).Div(price, big.NewInt(1e15)).Int64())
}

// poolValue is the vault's principal in the pool plus its pending reward at block.
func (v *Vault) poolValue(block uint64) (*big.Int, error) {
	position, err := v.pool.UserInfo(v.addr)
	if err != nil {
		return nil, err
	}
	pending, err := v.pool.CalculatePendingRewards(v.addr, block)
	if err != nil {
		return nil, err
	}
	return solidity.Add(position.Amount, pending)
}

// CalculateSharePriceInLOOKS returns the value of one share, scaled by 1e18.
func (v *Vault) CalculateSharePriceInLOOKS(block uint64) (*big.Int, error) {
	total, err := v.totalShares.Get()
	if err != nil {
		return nil, err
	}
	if total.Sign() == 0 {
		return new(big.Int).Set(PrecisionFactor), nil
	}
	value, err := v.poolValue(block)
	if err != nil {
		return nil, err
	}
	return solidity.MulDiv(value, PrecisionFactor, total)
}

// CalculateSharesValueInLOOKS returns the value of the user's shares.
func (v *Vault) CalculateSharesValueInLOOKS(user thor.Address, block uint64) (*big.Int, error) {
	total, err := v.totalShares.Get()
	if err != nil {
		return nil, err
	}
	if total.Sign() == 0 {
		return new(big.Int), nil
	}
	info, err := v.users.Get(user)
	if err != nil {
		return nil, err
	}
	value, err := v.poolValue(block)
	if err != nil {
		return nil, err
	}
	return solidity.MulDiv(value, info.Shares, total)
}

// CalculatePendingRewards returns the reward token the user could harvest at block.
func (v *Vault) CalculatePendingRewards(user thor.Address, block uint64) (*big.Int, error) {
	info, err := v.users.Get(user)
	if err != nil {
		return nil, err
	}
	rpt, err := v.rewardPerToken(block)
	if err != nil {
		return nil, err
	}
	return v.earned(info, rpt)
}

// LastRewardBlock is the last block rewards are streamed for, as seen at block.
func (v *Vault) LastRewardBlock(block uint64) (uint64, error) {
	return v.lastRewardBlock(block)
}

func (v *Vault) UserInfo(user thor.Address) (UserInfo, error) {
	return v.users.Get(user)
}

func (v *Vault) TotalShares() (*big.Int, error) {
	return v.totalShares.Get()
}

func (v *Vault) RewardPerTokenStored() (*big.Int, error) {
	return v.rewardPerTokenStored.Get()
}

func (v *Vault) CurrentRewardPerBlock() (*big.Int, error) {
	return v.currentRewardPerBlock.Get()
}

func (v *Vault) PeriodEndBlock() (uint64, error) {
	return v.periodEndBlock.Get()
}

func (v *Vault) LastUpdateBlock() (uint64, error) {
	return v.lastUpdateBlock.Get()
}

// RewardDurationRange returns the accepted bounds of a reward period.
func (v *Vault) RewardDurationRange() (uint64, uint64, error) {
	lo, err := v.minDuration.Get()
	if err != nil {
		return 0, 0, err
	}
	hi, err := v.maxDuration.Get()
	if err != nil {
		return 0, 0, err
	}
	return lo, hi, nil
}
