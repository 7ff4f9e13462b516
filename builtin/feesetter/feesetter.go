// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package feesetter implements the operator contract that owns the vault and feeds
// it the collected reward token, one period at a time.
package feesetter

import (
	"math/big"

	"github.com/vechain/compounder/builtin/access"
	"github.com/vechain/compounder/builtin/feesharing"
	"github.com/vechain/compounder/builtin/reverts"
	"github.com/vechain/compounder/builtin/solidity"
	"github.com/vechain/compounder/builtin/token"
	"github.com/vechain/compounder/log"
	"github.com/vechain/compounder/state"
	"github.com/vechain/compounder/thor"
	"github.com/vechain/compounder/tx"
	"github.com/vechain/compounder/xenv"
)

var logger = log.WithContext("pkg", "feesetter")

// RewardConvertor sells a token for the reward token and sends the proceeds back to the caller.
type RewardConvertor interface {
	Address() thor.Address
	Convert(env *xenv.Environment, sell, buy *token.Token, amount *big.Int) (*big.Int, error)
}

// Params are the deployment parameters of the setter.
type Params struct {
	RewardDurationInBlocks uint64
}

// Setter implements the fee sharing setter.
type Setter struct {
	addr  thor.Address
	vault *feesharing.Vault
	looks *token.Token
	pool  feesharing.Pool

	convertors map[thor.Address]RewardConvertor

	lastDistributionBlock *solidity.Uint64
	rewardDuration        *solidity.Uint64
	nextRewardDuration    *solidity.Uint64
	rewardConvertor       *solidity.Address
	feeStakingAddresses   *solidity.AddressSet
	roles                 *access.Roles
	admin                 access.Authorizer
	operator              access.Authorizer
}

// New binds the setter to the contract storage at addr. convertors lists the
// convertors that may later be selected with SetRewardConvertor.
func New(
	addr thor.Address,
	state *state.State,
	vault *feesharing.Vault,
	looks *token.Token,
	pool feesharing.Pool,
	convertors ...RewardConvertor,
) *Setter {
	sctx := solidity.NewContext(addr, state)
	roles := access.NewRoles(sctx)
	m := make(map[thor.Address]RewardConvertor, len(convertors))
	for _, c := range convertors {
		m[c.Address()] = c
	}
	return &Setter{
		addr:                  addr,
		vault:                 vault,
		looks:                 looks,
		pool:                  pool,
		convertors:            m,
		lastDistributionBlock: solidity.NewUint64(sctx, solidity.Slot("last-reward-distribution-block")),
		rewardDuration:        solidity.NewUint64(sctx, solidity.Slot("reward-duration-in-blocks")),
		nextRewardDuration:    solidity.NewUint64(sctx, solidity.Slot("next-reward-duration-in-blocks")),
		rewardConvertor:       solidity.NewAddress(sctx, solidity.Slot("reward-convertor")),
		feeStakingAddresses:   solidity.NewAddressSet(sctx, solidity.Slot("fee-staking-addresses")),
		roles:                 roles,
		admin:                 roles.For(access.DefaultAdminRole),
		operator:              roles.For(access.OperatorRole),
	}
}

// Deploy grants the admin role to the caller and sets the first reward duration.
func (s *Setter) Deploy(env *xenv.Environment, params Params) error {
	deployed, err := s.rewardDuration.Get()
	if err != nil {
		return err
	}
	if deployed != 0 {
		return reverts.New(access.ErrInitialized)
	}
	if err := s.checkDuration(params.RewardDurationInBlocks); err != nil {
		return err
	}
	s.rewardDuration.Set(params.RewardDurationInBlocks)
	s.nextRewardDuration.Set(params.RewardDurationInBlocks)
	return s.roles.Setup(env, access.DefaultAdminRole, env.Caller())
}

func (s *Setter) Address() thor.Address {
	return s.addr
}

func (s *Setter) Roles() *access.Roles {
	return s.roles
}

func (s *Setter) checkDuration(duration uint64) error {
	lo, hi, err := s.vault.RewardDurationRange()
	if err != nil {
		return err
	}
	if duration < lo || duration > hi {
		return reverts.New("Owner: New reward duration in blocks outside of range")
	}
	return nil
}

// UpdateRewards distributes the reward token balance of the setter. Registered
// fee staking addresses receive their pro-rata part based on their governed token
// balance; the vault gets the rest as a new reward period.
func (s *Setter) UpdateRewards(env *xenv.Environment) error {
	if err := s.operator.Authorize(env); err != nil {
		return err
	}
	block := env.BlockNumber()
	last, err := s.lastDistributionBlock.Get()
	if err != nil {
		return err
	}
	duration, err := s.rewardDuration.Get()
	if err != nil {
		return err
	}
	if last > 0 && block <= last+duration {
		return reverts.New("Reward: Too early to add")
	}
	next, err := s.nextRewardDuration.Get()
	if err != nil {
		return err
	}
	if next != duration {
		duration = next
		s.rewardDuration.Set(duration)
	}
	s.lastDistributionBlock.Set(block)

	rewardToken := s.vault.RewardToken()
	reward, err := rewardToken.BalanceOf(s.addr)
	if err != nil {
		return err
	}
	if err := env.Require(reward.Sign() > 0, "Reward: Nothing to distribute"); err != nil {
		return err
	}

	if reward, err = s.payFeeStakers(env, reward); err != nil {
		return err
	}

	self := env.As(s.addr)
	if err := rewardToken.Transfer(self, s.vault.Address(), reward); err != nil {
		return err
	}
	if err := s.vault.UpdateRewardSchedule(self, reward, duration); err != nil {
		return err
	}
	logger.Debug("rewards updated", "block", block, "reward", reward, "duration", duration)
	return nil
}

// payFeeStakers sends the passive stakers their part and returns what is left for the vault.
func (s *Setter) payFeeStakers(env *xenv.Environment, reward *big.Int) (*big.Int, error) {
	stakers, err := s.feeStakingAddresses.Values()
	if err != nil || len(stakers) == 0 {
		return reward, err
	}
	position, err := s.pool.UserInfo(s.vault.Address())
	if err != nil {
		return nil, err
	}
	total := new(big.Int).Set(position.Amount)
	balances := make([]*big.Int, len(stakers))
	for i, addr := range stakers {
		if balances[i], err = s.looks.BalanceOf(addr); err != nil {
			return nil, err
		}
		total.Add(total, balances[i])
	}
	if total.Sign() == 0 {
		return reward, nil
	}

	left := new(big.Int).Set(reward)
	rewardToken := s.vault.RewardToken()
	for i, addr := range stakers {
		amount, err := solidity.MulDiv(balances[i], reward, total)
		if err != nil {
			return nil, err
		}
		if amount.Sign() == 0 {
			continue
		}
		left.Sub(left, amount)
		if err := rewardToken.Transfer(env.As(s.addr), addr, amount); err != nil {
			return nil, err
		}
	}
	return left, nil
}

// SetNewRewardDurationInBlocks sets the duration used from the next distribution on.
func (s *Setter) SetNewRewardDurationInBlocks(env *xenv.Environment, duration uint64) error {
	if err := s.admin.Authorize(env); err != nil {
		return err
	}
	if err := s.checkDuration(duration); err != nil {
		return err
	}
	s.nextRewardDuration.Set(duration)
	env.Log(s.addr, "NewRewardDurationInBlocks", nil, new(big.Int).SetUint64(duration))
	return nil
}

func (s *Setter) AddFeeStakingAddresses(env *xenv.Environment, addrs []thor.Address) error {
	if err := s.admin.Authorize(env); err != nil {
		return err
	}
	topics := make([]thor.Bytes32, 0, len(addrs))
	for _, addr := range addrs {
		added, err := s.feeStakingAddresses.Add(addr)
		if err != nil {
			return err
		}
		if !added {
			return reverts.New("Owner: Address already registered")
		}
		topics = append(topics, tx.AddressTopic(addr))
	}
	env.Log(s.addr, "FeeStakingAddressesAdded", topics)
	return nil
}

func (s *Setter) RemoveFeeStakingAddresses(env *xenv.Environment, addrs []thor.Address) error {
	if err := s.admin.Authorize(env); err != nil {
		return err
	}
	topics := make([]thor.Bytes32, 0, len(addrs))
	for _, addr := range addrs {
		removed, err := s.feeStakingAddresses.Remove(addr)
		if err != nil {
			return err
		}
		if !removed {
			return reverts.New("Owner: Address not registered")
		}
		topics = append(topics, tx.AddressTopic(addr))
	}
	env.Log(s.addr, "FeeStakingAddressesRemoved", topics)
	return nil
}

func (s *Setter) ViewFeeStakingAddresses() ([]thor.Address, error) {
	return s.feeStakingAddresses.Values()
}

// SetRewardConvertor selects one of the known convertors. The zero address unsets it.
func (s *Setter) SetRewardConvertor(env *xenv.Environment, addr thor.Address) error {
	if err := s.admin.Authorize(env); err != nil {
		return err
	}
	if _, ok := s.convertors[addr]; !ok && !addr.IsZero() {
		return reverts.New("Owner: Unknown reward convertor")
	}
	s.rewardConvertor.Set(addr)
	env.Log(s.addr, "NewRewardConvertor", []thor.Bytes32{tx.AddressTopic(addr)})
	return nil
}

// ConvertCurrencyToRewardToken sells the setter's whole balance of currency for the
// reward token, through the selected convertor.
func (s *Setter) ConvertCurrencyToRewardToken(env *xenv.Environment, currency *token.Token) error {
	if err := s.operator.Authorize(env); err != nil {
		return err
	}
	addr, err := s.rewardConvertor.Get()
	if err != nil {
		return err
	}
	convertor, ok := s.convertors[addr]
	if !ok {
		return reverts.New("Convert: RewardConvertor not set")
	}
	rewardToken := s.vault.RewardToken()
	if currency.Address() == rewardToken.Address() {
		return reverts.New("Convert: Cannot be reward token")
	}
	amount, err := currency.BalanceOf(s.addr)
	if err != nil {
		return err
	}
	if err := env.Require(amount.Sign() > 0, "Convert: Amount to convert must be > 0"); err != nil {
		return err
	}

	self := env.As(s.addr)
	if err := currency.Approve(self, convertor.Address(), amount); err != nil {
		return err
	}
	received, err := convertor.Convert(self, currency, rewardToken, amount)
	if err != nil {
		return err
	}
	env.Log(s.addr, "ConversionToRewardToken", []thor.Bytes32{tx.AddressTopic(currency.Address())}, amount, received)
	logger.Debug("currency converted", "token", currency.Symbol(), "in", amount, "out", received)
	return nil
}

// TransferOwnershipOfFeeSharingSystem hands the vault over to newOwner.
func (s *Setter) TransferOwnershipOfFeeSharingSystem(env *xenv.Environment, newOwner thor.Address) error {
	if err := s.admin.Authorize(env); err != nil {
		return err
	}
	if newOwner.IsZero() {
		return reverts.New("Owner: New owner cannot be null address")
	}
	if err := s.vault.Ownable().TransferOwnership(env.As(s.addr), newOwner); err != nil {
		return err
	}
	env.Log(s.addr, "NewFeeSharingSystemOwner", []thor.Bytes32{tx.AddressTopic(newOwner)})
	return nil
}

func (s *Setter) RewardDurationInBlocks() (uint64, error) {
	return s.rewardDuration.Get()
}

func (s *Setter) NextRewardDurationInBlocks() (uint64, error) {
	return s.nextRewardDuration.Get()
}

func (s *Setter) LastRewardDistributionBlock() (uint64, error) {
	return s.lastDistributionBlock.Get()
}

// RewardDurationRange returns the bounds accepted for a reward duration.
func (s *Setter) RewardDurationRange() (uint64, uint64, error) {
	return s.vault.RewardDurationRange()
}
