// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package scenario

import (
	"math"

	"github.com/pkg/errors"

	"github.com/vechain/compounder/builtin/access"
	"github.com/vechain/compounder/genesis"
	"github.com/vechain/compounder/thor"
	"github.com/vechain/compounder/xenv"
)

type callFunc func(env *xenv.Environment) error

// binders turn a step into a call against the stack.
var calls = map[string]func(s *genesis.Stack, step *Step) (callFunc, error){
	"distributor.deposit": func(s *genesis.Stack, step *Step) (callFunc, error) {
		return func(env *xenv.Environment) error { return s.Distributor.Deposit(env, step.Amount.Int()) }, nil
	},
	"distributor.withdraw": func(s *genesis.Stack, step *Step) (callFunc, error) {
		return func(env *xenv.Environment) error { return s.Distributor.Withdraw(env, step.Amount.Int()) }, nil
	},
	"distributor.withdrawAll": func(s *genesis.Stack, _ *Step) (callFunc, error) {
		return s.Distributor.WithdrawAll, nil
	},
	"distributor.harvestAndCompound": func(s *genesis.Stack, _ *Step) (callFunc, error) {
		return s.Distributor.HarvestAndCompound, nil
	},
	"distributor.updatePool": func(s *genesis.Stack, _ *Step) (callFunc, error) {
		return s.Distributor.UpdatePool, nil
	},

	"vault.deposit": func(s *genesis.Stack, step *Step) (callFunc, error) {
		return func(env *xenv.Environment) error { return s.Vault.Deposit(env, step.Amount.Int(), step.Claim) }, nil
	},
	"vault.withdraw": func(s *genesis.Stack, step *Step) (callFunc, error) {
		return func(env *xenv.Environment) error { return s.Vault.Withdraw(env, step.Amount.Int(), step.Claim) }, nil
	},
	"vault.withdrawAll": func(s *genesis.Stack, step *Step) (callFunc, error) {
		return func(env *xenv.Environment) error { return s.Vault.WithdrawAll(env, step.Claim) }, nil
	},
	"vault.harvest": func(s *genesis.Stack, _ *Step) (callFunc, error) {
		return s.Vault.Harvest, nil
	},

	"aggregator.deposit": func(s *genesis.Stack, step *Step) (callFunc, error) {
		return func(env *xenv.Environment) error { return s.Aggregator.Deposit(env, step.Amount.Int()) }, nil
	},
	"aggregator.withdraw": func(s *genesis.Stack, step *Step) (callFunc, error) {
		return func(env *xenv.Environment) error { return s.Aggregator.Withdraw(env, step.Amount.Int()) }, nil
	},
	"aggregator.withdrawAll": func(s *genesis.Stack, _ *Step) (callFunc, error) {
		return s.Aggregator.WithdrawAll, nil
	},
	"aggregator.harvest": func(s *genesis.Stack, _ *Step) (callFunc, error) {
		return s.Aggregator.HarvestAndSellAndCompound, nil
	},
	"aggregator.pause": func(s *genesis.Stack, _ *Step) (callFunc, error) {
		return s.Aggregator.Pause, nil
	},
	"aggregator.unpause": func(s *genesis.Stack, _ *Step) (callFunc, error) {
		return s.Aggregator.Unpause, nil
	},
	"aggregator.startHarvest": func(s *genesis.Stack, _ *Step) (callFunc, error) {
		return s.Aggregator.StartHarvest, nil
	},
	"aggregator.stopHarvest": func(s *genesis.Stack, _ *Step) (callFunc, error) {
		return s.Aggregator.StopHarvest, nil
	},
	"aggregator.updateHarvestBufferBlocks": func(s *genesis.Stack, step *Step) (callFunc, error) {
		return func(env *xenv.Environment) error { return s.Aggregator.UpdateHarvestBufferBlocks(env, step.Value) }, nil
	},
	"aggregator.updateMaxPrice": func(s *genesis.Stack, step *Step) (callFunc, error) {
		return func(env *xenv.Environment) error { return s.Aggregator.UpdateMaxPriceOfLOOKSInWETH(env, step.Amount.Int()) }, nil
	},
	"aggregator.updateThreshold": func(s *genesis.Stack, step *Step) (callFunc, error) {
		return func(env *xenv.Environment) error { return s.Aggregator.UpdateThresholdAmount(env, step.Amount.Int()) }, nil
	},
	"aggregator.adjustLOOKSAllowance": func(s *genesis.Stack, _ *Step) (callFunc, error) {
		return s.Aggregator.CheckAndAdjustLOOKSTokenAllowanceIfRequired, nil
	},
	"aggregator.adjustRewardTokenAllowance": func(s *genesis.Stack, _ *Step) (callFunc, error) {
		return s.Aggregator.CheckAndAdjustRewardTokenAllowanceIfRequired, nil
	},
	"aggregator.updateTradingFee": func(s *genesis.Stack, step *Step) (callFunc, error) {
		if step.Value > math.MaxUint32 {
			return nil, errors.Errorf("fee %d out of range", step.Value)
		}
		return func(env *xenv.Environment) error { return s.Aggregator.UpdateTradingFeeUniswapV3(env, uint32(step.Value)) }, nil
	},

	"setter.updateRewards": func(s *genesis.Stack, _ *Step) (callFunc, error) {
		return s.FeeSetter.UpdateRewards, nil
	},
	"setter.setRewardDuration": func(s *genesis.Stack, step *Step) (callFunc, error) {
		return func(env *xenv.Environment) error { return s.FeeSetter.SetNewRewardDurationInBlocks(env, step.Value) }, nil
	},
	"setter.addFeeStakingAddresses": func(s *genesis.Stack, step *Step) (callFunc, error) {
		addrs := addresses(step.Accounts)
		return func(env *xenv.Environment) error { return s.FeeSetter.AddFeeStakingAddresses(env, addrs) }, nil
	},
	"setter.removeFeeStakingAddresses": func(s *genesis.Stack, step *Step) (callFunc, error) {
		addrs := addresses(step.Accounts)
		return func(env *xenv.Environment) error { return s.FeeSetter.RemoveFeeStakingAddresses(env, addrs) }, nil
	},
	"setter.convert": func(s *genesis.Stack, step *Step) (callFunc, error) {
		t := s.Token(step.Token)
		if t == nil {
			return nil, errors.Errorf("unknown token %q", step.Token)
		}
		return func(env *xenv.Environment) error { return s.FeeSetter.ConvertCurrencyToRewardToken(env, t) }, nil
	},
	"setter.setRewardConvertor": func(s *genesis.Stack, step *Step) (callFunc, error) {
		to, err := target(step)
		if err != nil {
			return nil, err
		}
		return func(env *xenv.Environment) error { return s.FeeSetter.SetRewardConvertor(env, to) }, nil
	},
	"setter.transferVaultOwnership": func(s *genesis.Stack, step *Step) (callFunc, error) {
		to, err := target(step)
		if err != nil {
			return nil, err
		}
		return func(env *xenv.Environment) error { return s.FeeSetter.TransferOwnershipOfFeeSharingSystem(env, to) }, nil
	},
	"setter.grantOperator": func(s *genesis.Stack, step *Step) (callFunc, error) {
		to, err := target(step)
		if err != nil {
			return nil, err
		}
		return func(env *xenv.Environment) error { return s.FeeSetter.Roles().GrantRole(env, access.OperatorRole, to) }, nil
	},
	"setter.revokeOperator": func(s *genesis.Stack, step *Step) (callFunc, error) {
		to, err := target(step)
		if err != nil {
			return nil, err
		}
		return func(env *xenv.Environment) error { return s.FeeSetter.Roles().RevokeRole(env, access.OperatorRole, to) }, nil
	},

	"token.transfer": func(s *genesis.Stack, step *Step) (callFunc, error) {
		t := s.Token(step.Token)
		if t == nil {
			return nil, errors.Errorf("unknown token %q", step.Token)
		}
		to := step.To.Address()
		return func(env *xenv.Environment) error { return t.Transfer(env, to, step.Amount.Int()) }, nil
	},
	"token.approve": func(s *genesis.Stack, step *Step) (callFunc, error) {
		t := s.Token(step.Token)
		if t == nil {
			return nil, errors.Errorf("unknown token %q", step.Token)
		}
		to := step.To.Address()
		return func(env *xenv.Environment) error { return t.Approve(env, to, step.Amount.Int()) }, nil
	},
}

// target is the account named by the step's to field.
func target(step *Step) (thor.Address, error) {
	if step.To == "" {
		return thor.Address{}, errors.New("to required")
	}
	return step.To.Address(), nil
}

func addresses(accounts []genesis.Account) []thor.Address {
	out := make([]thor.Address, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.Address())
	}
	return out
}

// Calls lists the supported call names.
func Calls() []string {
	names := make([]string, 0, len(calls))
	for name := range calls {
		names = append(names, name)
	}
	return names
}
