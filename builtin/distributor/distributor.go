// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package distributor implements the emission pool: it mints the governed token
// following a multi-period schedule and compounds the staking share into stakers principal.
package distributor

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/compounder/builtin/access"
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
	logger = log.WithContext("pkg", "distributor")

	metricOpsCount     = metrics.LazyLoadCounterVec("distributor_ops_count", []string{"op"})
	metricMintedTokens = metrics.LazyLoadGaugeVec("distributor_minted_tokens", []string{"stream"})
)

// PrecisionFactor scales accTokenPerShare.
var PrecisionFactor = thor.Precision

// Params are the deployment parameters of the pool.
type Params struct {
	StartBlock    uint64
	TokenSplitter thor.Address
	// per period, in blocks and tokens per block
	RewardsPerBlockForStaking []*big.Int
	RewardsPerBlockForOthers  []*big.Int
	PeriodLengthsInBlocks     []uint64
	NumberPeriods             int
}

// StakingPeriod is one phase of the emission schedule.
type StakingPeriod struct {
	RewardPerBlockForStaking *big.Int
	RewardPerBlockForOthers  *big.Int
	PeriodLengthInBlock      uint64
}

// UserInfo is a staker's position. RewardDebt is Amount * accTokenPerShare at the last touch.
type UserInfo struct {
	Amount     *big.Int
	RewardDebt *big.Int
}

// Distributor mints the governed token on a declining schedule and auto-compounds the
// staking share into each staker's principal.
type Distributor struct {
	addr  thor.Address
	looks *token.Token

	startBlock       *solidity.Uint64
	endBlock         *solidity.Uint64
	periodEndBlock   *solidity.Uint64
	lastRewardBlock  *solidity.Uint64
	currentPhase     *solidity.Uint64
	numberPeriods    *solidity.Uint64
	tokenSplitter    *solidity.Address
	accTokenPerShare *solidity.Uint256
	totalStaked      *solidity.Uint256
	rateForStaking   *solidity.Uint256
	rateForOthers    *solidity.Uint256
	periods          *solidity.Mapping[solidity.Bytes32Key, StakingPeriod]
	users            *solidity.Mapping[thor.Address, UserInfo]
	guard            *solidity.Guard
}

// New binds the pool to the contract storage at addr. looks is the governed token,
// whose ownership is handed to the pool after deployment so it can mint.
func New(addr thor.Address, state *state.State, looks *token.Token) *Distributor {
	sctx := solidity.NewContext(addr, state)
	return &Distributor{
		addr:             addr,
		looks:            looks,
		startBlock:       solidity.NewUint64(sctx, solidity.Slot("start-block")),
		endBlock:         solidity.NewUint64(sctx, solidity.Slot("end-block")),
		periodEndBlock:   solidity.NewUint64(sctx, solidity.Slot("period-end-block")),
		lastRewardBlock:  solidity.NewUint64(sctx, solidity.Slot("last-reward-block")),
		currentPhase:     solidity.NewUint64(sctx, solidity.Slot("current-phase")),
		numberPeriods:    solidity.NewUint64(sctx, solidity.Slot("number-periods")),
		tokenSplitter:    solidity.NewAddress(sctx, solidity.Slot("token-splitter")),
		accTokenPerShare: solidity.NewUint256(sctx, solidity.Slot("acc-token-per-share")),
		totalStaked:      solidity.NewUint256(sctx, solidity.Slot("total-amount-staked")),
		rateForStaking:   solidity.NewUint256(sctx, solidity.Slot("reward-per-block-for-staking")),
		rateForOthers:    solidity.NewUint256(sctx, solidity.Slot("reward-per-block-for-others")),
		periods:          solidity.NewMapping[solidity.Bytes32Key, StakingPeriod](sctx, solidity.Slot("staking-periods")),
		users:            solidity.NewMapping[thor.Address, UserInfo](sctx, solidity.Slot("user-info")),
		guard:            solidity.NewGuard(sctx),
	}
}

func (d *Distributor) Address() thor.Address {
	return d.addr
}

func phaseKey(phase uint64) solidity.Bytes32Key {
	var k solidity.Bytes32Key
	new(big.Int).SetUint64(phase).FillBytes(k[:])
	return k
}

// Deploy validates and stores the emission schedule. The rewards of all periods must
// add up to exactly the mintable supply left under the token cap.
func (d *Distributor) Deploy(env *xenv.Environment, params Params) error {
	deployed, err := d.numberPeriods.Get()
	if err != nil {
		return err
	}
	if deployed != 0 {
		return reverts.New(access.ErrInitialized)
	}
	n := params.NumberPeriods
	if n <= 0 ||
		len(params.RewardsPerBlockForStaking) != n ||
		len(params.RewardsPerBlockForOthers) != n ||
		len(params.PeriodLengthsInBlocks) != n {
		return reverts.New("Distributor: Lengthes must match numberPeriods")
	}

	supply, err := d.looks.TotalSupply()
	if err != nil {
		return err
	}
	limit, err := d.looks.Cap()
	if err != nil {
		return err
	}
	mintable, err := solidity.Sub(limit, supply)
	if err != nil {
		return err
	}

	total := new(big.Int)
	end := params.StartBlock
	for i := 0; i < n; i++ {
		perBlock, err := solidity.Add(params.RewardsPerBlockForStaking[i], params.RewardsPerBlockForOthers[i])
		if err != nil {
			return err
		}
		amount, err := solidity.Mul(perBlock, new(big.Int).SetUint64(params.PeriodLengthsInBlocks[i]))
		if err != nil {
			return err
		}
		if total, err = solidity.Add(total, amount); err != nil {
			return err
		}
		if err := d.periods.Set(phaseKey(uint64(i)), StakingPeriod{
			RewardPerBlockForStaking: params.RewardsPerBlockForStaking[i],
			RewardPerBlockForOthers:  params.RewardsPerBlockForOthers[i],
			PeriodLengthInBlock:      params.PeriodLengthsInBlocks[i],
		}); err != nil {
			return err
		}
		end += params.PeriodLengthsInBlocks[i]
	}
	if total.Cmp(mintable) != 0 {
		return reverts.New("Distributor: Wrong reward parameters")
	}

	if err := d.rateForStaking.Set(params.RewardsPerBlockForStaking[0]); err != nil {
		return err
	}
	if err := d.rateForOthers.Set(params.RewardsPerBlockForOthers[0]); err != nil {
		return err
	}
	d.startBlock.Set(params.StartBlock)
	d.endBlock.Set(end)
	d.periodEndBlock.Set(params.StartBlock + params.PeriodLengthsInBlocks[0])
	d.lastRewardBlock.Set(params.StartBlock)
	d.numberPeriods.Set(uint64(n))
	d.tokenSplitter.Set(params.TokenSplitter)

	logger.Debug("deployed", "address", d.addr, "start", params.StartBlock, "end", end, "periods", n)
	return nil
}

// multiplier returns the number of blocks of [from, to] that fall before end.
func multiplier(from, to, end uint64) uint64 {
	switch {
	case to <= end:
		return to - from
	case from >= end:
		return 0
	default:
		return end - from
	}
}

type accrual struct {
	forStaking *big.Int
	forOthers  *big.Int
	phase      uint64
	periodEnd  uint64
	rates      [2]*big.Int
	crossed    []uint64 // start blocks of the phases entered
}

// accrue walks the schedule from lastRewardBlock to block, one period at a time.
func (d *Distributor) accrue(block uint64) (*accrual, error) {
	last, err := d.lastRewardBlock.Get()
	if err != nil {
		return nil, err
	}
	a := &accrual{forStaking: new(big.Int), forOthers: new(big.Int)}
	if a.phase, err = d.currentPhase.Get(); err != nil {
		return nil, err
	}
	if a.periodEnd, err = d.periodEndBlock.Get(); err != nil {
		return nil, err
	}
	if a.rates[0], err = d.rateForStaking.Get(); err != nil {
		return nil, err
	}
	if a.rates[1], err = d.rateForOthers.Get(); err != nil {
		return nil, err
	}
	n, err := d.numberPeriods.Get()
	if err != nil {
		return nil, err
	}

	add := func(from uint64) error {
		blocks := new(big.Int).SetUint64(multiplier(from, block, a.periodEnd))
		s, err := solidity.Mul(blocks, a.rates[0])
		if err != nil {
			return err
		}
		o, err := solidity.Mul(blocks, a.rates[1])
		if err != nil {
			return err
		}
		a.forStaking.Add(a.forStaking, s)
		a.forOthers.Add(a.forOthers, o)
		return nil
	}

	if err := add(last); err != nil {
		return nil, err
	}
	for block > a.periodEnd && a.phase < n-1 {
		prevEnd := a.periodEnd
		a.phase++
		p, err := d.periods.Get(phaseKey(a.phase))
		if err != nil {
			return nil, err
		}
		a.rates = [2]*big.Int{p.RewardPerBlockForStaking, p.RewardPerBlockForOthers}
		a.periodEnd += p.PeriodLengthInBlock
		a.crossed = append(a.crossed, prevEnd)
		if err := add(prevEnd); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// UpdatePool brings the accumulator up to the current block, minting what was accrued.
func (d *Distributor) UpdatePool(env *xenv.Environment) error {
	exit, err := d.guard.Enter()
	if err != nil {
		return err
	}
	defer exit()
	return d.updatePool(env)
}

func (d *Distributor) updatePool(env *xenv.Environment) error {
	block := env.BlockNumber()
	last, err := d.lastRewardBlock.Get()
	if err != nil {
		return err
	}
	if block <= last {
		return nil
	}

	a, err := d.accrue(block)
	if err != nil {
		return err
	}
	if len(a.crossed) > 0 {
		d.currentPhase.Set(a.phase)
		d.periodEndBlock.Set(a.periodEnd)
		if err := d.rateForStaking.Set(a.rates[0]); err != nil {
			return err
		}
		if err := d.rateForOthers.Set(a.rates[1]); err != nil {
			return err
		}
		for i, start := range a.crossed {
			phase := a.phase - uint64(len(a.crossed)-1-i)
			p, err := d.periods.Get(phaseKey(phase))
			if err != nil {
				return err
			}
			env.Log(d.addr, "NewRewardsPerBlock", nil,
				new(big.Int).SetUint64(phase),
				new(big.Int).SetUint64(start),
				p.RewardPerBlockForStaking,
				p.RewardPerBlockForOthers)
			logger.Debug("new phase", "phase", phase, "start", start)
		}
	}

	total, err := d.totalStaked.Get()
	if err != nil {
		return err
	}
	self := env.As(d.addr)
	if a.forStaking.Sign() > 0 && total.Sign() > 0 {
		minted, err := d.looks.Mint(self, d.addr, a.forStaking)
		if err != nil {
			return err
		}
		if minted {
			inc, err := solidity.MulDiv(a.forStaking, PrecisionFactor, total)
			if err != nil {
				return err
			}
			if err := d.accTokenPerShare.Add(inc); err != nil {
				return err
			}
			metricMintedTokens().AddWithLabel(toGaugeUnits(a.forStaking), map[string]string{"stream": "staking"})
		}
	}
	if a.forOthers.Sign() > 0 {
		splitter, err := d.tokenSplitter.Get()
		if err != nil {
			return err
		}
		minted, err := d.looks.Mint(self, splitter, a.forOthers)
		if err != nil {
			return err
		}
		if minted {
			metricMintedTokens().AddWithLabel(toGaugeUnits(a.forOthers), map[string]string{"stream": "others"})
		}
	}
	d.lastRewardBlock.Set(block)
	return nil
}

// toGaugeUnits converts a token amount to whole tokens for metrics.
func toGaugeUnits(amount *big.Int) int64 {
	return new(big.Int).Div(amount, thor.Precision).Int64()
}

func (d *Distributor) pending(user UserInfo, acc *big.Int) (*big.Int, error) {
	accrued, err := solidity.MulDiv(user.Amount, acc, PrecisionFactor)
	if err != nil {
		return nil, err
	}
	return solidity.Sub(accrued, user.RewardDebt)
}

// touch updates the pool and returns the caller's position with the pending reward.
func (d *Distributor) touch(env *xenv.Environment) (UserInfo, *big.Int, *big.Int, error) {
	if err := d.updatePool(env); err != nil {
		return UserInfo{}, nil, nil, err
	}
	user, err := d.users.Get(env.Caller())
	if err != nil {
		return UserInfo{}, nil, nil, err
	}
	acc, err := d.accTokenPerShare.Get()
	if err != nil {
		return UserInfo{}, nil, nil, err
	}
	pending := new(big.Int)
	if user.Amount.Sign() > 0 {
		if pending, err = d.pending(user, acc); err != nil {
			return UserInfo{}, nil, nil, err
		}
	}
	return user, pending, acc, nil
}

func (d *Distributor) saveUser(addr thor.Address, amount, acc *big.Int) error {
	debt, err := solidity.MulDiv(amount, acc, PrecisionFactor)
	if err != nil {
		return err
	}
	return d.users.Set(addr, UserInfo{Amount: amount, RewardDebt: debt})
}

// Deposit stakes amount and compounds the pending reward into the principal.
func (d *Distributor) Deposit(env *xenv.Environment, amount *big.Int) error {
	if err := env.Require(amount.Sign() > 0, "Deposit: Amount must be > 0"); err != nil {
		return err
	}
	exit, err := d.guard.Enter()
	if err != nil {
		return err
	}
	defer exit()

	user, pending, acc, err := d.touch(env)
	if err != nil {
		return err
	}
	added, err := solidity.Add(amount, pending)
	if err != nil {
		return err
	}
	newAmount, err := solidity.Add(user.Amount, added)
	if err != nil {
		return err
	}
	if err := d.saveUser(env.Caller(), newAmount, acc); err != nil {
		return err
	}
	if err := d.totalStaked.Add(added); err != nil {
		return err
	}

	if err := d.looks.TransferFrom(env.As(d.addr), env.Caller(), d.addr, amount); err != nil {
		return err
	}
	env.Log(d.addr, "Deposit", []thor.Bytes32{tx.AddressTopic(env.Caller())}, amount, pending)
	metricOpsCount().AddWithLabel(1, map[string]string{"op": "deposit"})
	return nil
}

// Withdraw unstakes amount of the principal, after compounding the pending reward.
func (d *Distributor) Withdraw(env *xenv.Environment, amount *big.Int) error {
	user, err := d.users.Get(env.Caller())
	if err != nil {
		return err
	}
	if amount.Sign() <= 0 || user.Amount.Cmp(amount) < 0 {
		return reverts.New("Withdraw: Amount must be > 0 or lower than user balance")
	}
	exit, err := d.guard.Enter()
	if err != nil {
		return err
	}
	defer exit()

	user, pending, acc, err := d.touch(env)
	if err != nil {
		return err
	}
	compounded, err := solidity.Add(user.Amount, pending)
	if err != nil {
		return err
	}
	newAmount, err := solidity.Sub(compounded, amount)
	if err != nil {
		return err
	}
	if err := d.saveUser(env.Caller(), newAmount, acc); err != nil {
		return err
	}
	if err := d.totalStaked.Add(pending); err != nil {
		return err
	}
	if err := d.totalStaked.Sub(amount); err != nil {
		return err
	}

	if err := d.looks.Transfer(env.As(d.addr), env.Caller(), amount); err != nil {
		return err
	}
	env.Log(d.addr, "Withdraw", []thor.Bytes32{tx.AddressTopic(env.Caller())}, amount, pending)
	metricOpsCount().AddWithLabel(1, map[string]string{"op": "withdraw"})
	return nil
}

// WithdrawAll unstakes the whole principal together with the pending reward.
func (d *Distributor) WithdrawAll(env *xenv.Environment) error {
	user, err := d.users.Get(env.Caller())
	if err != nil {
		return err
	}
	if err := env.Require(user.Amount.Sign() > 0, "Withdraw: Amount must be > 0"); err != nil {
		return err
	}
	exit, err := d.guard.Enter()
	if err != nil {
		return err
	}
	defer exit()

	user, pending, _, err := d.touch(env)
	if err != nil {
		return err
	}
	amount, err := solidity.Add(user.Amount, pending)
	if err != nil {
		return err
	}
	if err := d.totalStaked.Sub(user.Amount); err != nil {
		return err
	}
	d.users.Delete(env.Caller())

	if err := d.looks.Transfer(env.As(d.addr), env.Caller(), amount); err != nil {
		return err
	}
	env.Log(d.addr, "Withdraw", []thor.Bytes32{tx.AddressTopic(env.Caller())}, amount, pending)
	metricOpsCount().AddWithLabel(1, map[string]string{"op": "withdraw"})
	return nil
}

// HarvestAndCompound folds the pending reward of the caller into its principal.
func (d *Distributor) HarvestAndCompound(env *xenv.Environment) error {
	exit, err := d.guard.Enter()
	if err != nil {
		return err
	}
	defer exit()

	user, pending, acc, err := d.touch(env)
	if err != nil {
		return err
	}
	if pending.Sign() == 0 {
		return nil
	}
	newAmount, err := solidity.Add(user.Amount, pending)
	if err != nil {
		return err
	}
	if err := d.saveUser(env.Caller(), newAmount, acc); err != nil {
		return err
	}
	if err := d.totalStaked.Add(pending); err != nil {
		return err
	}
	env.Log(d.addr, "Compound", []thor.Bytes32{tx.AddressTopic(env.Caller())}, pending)
	metricOpsCount().AddWithLabel(1, map[string]string{"op": "compound"})
	return nil
}

// CalculatePendingRewards returns what the user would compound at the given block.
func (d *Distributor) CalculatePendingRewards(user thor.Address, block uint64) (*big.Int, error) {
	info, err := d.users.Get(user)
	if err != nil {
		return nil, err
	}
	acc, err := d.projectedAccTokenPerShare(block)
	if err != nil {
		return nil, err
	}
	return d.pending(info, acc)
}

func (d *Distributor) projectedAccTokenPerShare(block uint64) (*big.Int, error) {
	acc, err := d.accTokenPerShare.Get()
	if err != nil {
		return nil, err
	}
	last, err := d.lastRewardBlock.Get()
	if err != nil {
		return nil, err
	}
	total, err := d.totalStaked.Get()
	if err != nil {
		return nil, err
	}
	if block <= last || total.Sign() == 0 {
		return acc, nil
	}
	a, err := d.accrue(block)
	if err != nil {
		return nil, err
	}
	inc, err := solidity.MulDiv(a.forStaking, PrecisionFactor, total)
	if err != nil {
		return nil, err
	}
	return solidity.Add(acc, inc)
}

func (d *Distributor) UserInfo(user thor.Address) (UserInfo, error) {
	return d.users.Get(user)
}

func (d *Distributor) AccTokenPerShare() (*big.Int, error) {
	return d.accTokenPerShare.Get()
}

func (d *Distributor) TotalAmountStaked() (*big.Int, error) {
	return d.totalStaked.Get()
}

func (d *Distributor) CurrentPhase() (uint64, error) {
	return d.currentPhase.Get()
}

func (d *Distributor) LastRewardBlock() (uint64, error) {
	return d.lastRewardBlock.Get()
}

func (d *Distributor) StartBlock() (uint64, error) {
	return d.startBlock.Get()
}

// PeriodEndBlock is the last block of the current phase.
func (d *Distributor) PeriodEndBlock() (uint64, error) {
	return d.periodEndBlock.Get()
}

// EndBlock is the last block of the whole schedule.
func (d *Distributor) EndBlock() (uint64, error) {
	return d.endBlock.Get()
}

// RewardsPerBlock returns the current staking and others rates.
func (d *Distributor) RewardsPerBlock() (*big.Int, *big.Int, error) {
	s, err := d.rateForStaking.Get()
	if err != nil {
		return nil, nil, err
	}
	o, err := d.rateForOthers.Get()
	if err != nil {
		return nil, nil, err
	}
	return s, o, nil
}

func (d *Distributor) StakingPeriod(phase uint64) (StakingPeriod, error) {
	n, err := d.numberPeriods.Get()
	if err != nil {
		return StakingPeriod{}, err
	}
	if phase >= n {
		return StakingPeriod{}, errors.Errorf("phase %d out of range", phase)
	}
	return d.periods.Get(phaseKey(phase))
}
