// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/compounder/builtin/access"
	"github.com/vechain/compounder/builtin/aggregator"
	"github.com/vechain/compounder/builtin/distributor"
	"github.com/vechain/compounder/builtin/feesetter"
	"github.com/vechain/compounder/builtin/feesharing"
	"github.com/vechain/compounder/builtin/token"
	"github.com/vechain/compounder/exchange"
	"github.com/vechain/compounder/log"
	"github.com/vechain/compounder/runtime"
	"github.com/vechain/compounder/state"
	"github.com/vechain/compounder/thor"
	"github.com/vechain/compounder/tx"
	"github.com/vechain/compounder/xenv"
)

var logger = log.WithContext("pkg", "genesis")

// contract addresses
var (
	LOOKSAddress       = thor.NameToAddress("looks")
	WETHAddress        = thor.NameToAddress("weth")
	USDCAddress        = thor.NameToAddress("usdc")
	DistributorAddress = thor.NameToAddress("distributor")
	VaultAddress       = thor.NameToAddress("fee-sharing")
	FeeSetterAddress   = thor.NameToAddress("fee-setter")
	ConvertorAddress   = thor.NameToAddress("reward-convertor")
	SwapRouterAddress  = thor.NameToAddress("swap-router")
	FeeRouterAddress   = thor.NameToAddress("fee-router")
	AggregatorAddress  = thor.NameToAddress("aggregator")
)

// Stack holds the contracts bound to one state.
type Stack struct {
	LOOKS       *token.Token
	WETH        *token.Token
	USDC        *token.Token
	Distributor *distributor.Distributor
	Vault       *feesharing.Vault
	FeeSetter   *feesetter.Setter
	Convertor   *feesetter.RouterConvertor
	SwapRouter  *exchange.FixedRateRouter
	FeeRouter   *exchange.FixedRateRouter
	Aggregator  *aggregator.Aggregator
}

// Bind binds the contracts to st without touching storage.
func Bind(st *state.State, cfg *Config) *Stack {
	s := &Stack{
		LOOKS: token.New(LOOKSAddress, st, "LOOKS"),
		WETH:  token.New(WETHAddress, st, "WETH"),
		USDC:  token.New(USDCAddress, st, "USDC"),
	}
	s.Distributor = distributor.New(DistributorAddress, st, s.LOOKS)
	s.Vault = feesharing.New(VaultAddress, st, s.LOOKS, s.WETH, s.Distributor)
	s.SwapRouter = exchange.NewFixedRateRouter(SwapRouterAddress, st, s.WETH, s.LOOKS)
	s.FeeRouter = exchange.NewFixedRateRouter(FeeRouterAddress, st, s.USDC, s.WETH)
	s.Convertor = feesetter.NewRouterConvertor(ConvertorAddress, s.FeeRouter, feeTier(cfg))
	s.FeeSetter = feesetter.New(FeeSetterAddress, st, s.Vault, s.LOOKS, s.Distributor, s.Convertor)
	var opts []aggregator.Option
	if cfg.Aggregator.Harvester != "" {
		opts = append(opts, aggregator.WithHarvester(cfg.Aggregator.Harvester.Address()))
	}
	s.Aggregator = aggregator.New(AggregatorAddress, st, s.LOOKS, s.WETH, s.Vault, s.SwapRouter, opts...)
	return s
}

func feeTier(cfg *Config) uint32 {
	if cfg.Aggregator.TradingFee != 0 {
		return cfg.Aggregator.TradingFee
	}
	return 3000
}

// Token returns the token with the given symbol, nil if unknown.
func (s *Stack) Token(symbol string) *token.Token {
	switch symbol {
	case "LOOKS", "looks":
		return s.LOOKS
	case "WETH", "weth":
		return s.WETH
	case "USDC", "usdc":
		return s.USDC
	}
	return nil
}

// NewRuntime creates a runtime positioned at the genesis block.
func NewRuntime(st *state.State, cfg *Config) *runtime.Runtime {
	return runtime.New(st, cfg.Block, cfg.LaunchTime)
}

// Deploy initializes every contract as the admin, funds the configured accounts
// and approves the pool, the vault and the aggregator on their behalf.
func (s *Stack) Deploy(rt *runtime.Runtime, cfg *Config) (tx.Receipts, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	admin := cfg.Admin.Address()

	var receipts tx.Receipts
	exec := func(origin thor.Address, what string, fn func(env *xenv.Environment) error) error {
		r, err := rt.Exec(origin, fn)
		if err != nil {
			return errors.Wrap(err, what)
		}
		if r.Reverted {
			return errors.Errorf("%s: %s", what, r.Reason)
		}
		receipts = append(receipts, r)
		return nil
	}

	if err := exec(admin, "deploy", func(env *xenv.Environment) error {
		return s.deploy(env, cfg)
	}); err != nil {
		return nil, err
	}

	for _, acc := range cfg.Accounts {
		addr := acc.Name.Address()
		if err := exec(admin, "fund "+string(acc.Name), func(env *xenv.Environment) error {
			for _, f := range []struct {
				t      *token.Token
				amount *Ether
			}{{s.LOOKS, acc.LOOKS}, {s.WETH, acc.WETH}, {s.USDC, acc.USDC}} {
				if amount := f.amount.Int(); amount.Sign() > 0 {
					if err := f.t.Transfer(env, addr, amount); err != nil {
						return err
					}
				}
			}
			return nil
		}); err != nil {
			return nil, err
		}
		if err := exec(addr, "approve "+string(acc.Name), func(env *xenv.Environment) error {
			for _, spender := range []thor.Address{DistributorAddress, VaultAddress, AggregatorAddress} {
				if err := s.LOOKS.Approve(env, spender, token.MaxAllowance); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return nil, err
		}
	}
	logger.Info("stack deployed", "block", rt.BlockNumber(), "admin", admin, "accounts", len(cfg.Accounts))
	return receipts, nil
}

func (s *Stack) deploy(env *xenv.Environment, cfg *Config) error {
	for _, t := range []struct {
		t   *token.Token
		cfg TokenConfig
	}{{s.LOOKS, cfg.LOOKS}, {s.WETH, cfg.WETH}, {s.USDC, cfg.USDC}} {
		params := token.Params{Symbol: t.t.Symbol(), Premint: t.cfg.Premint.Int()}
		if t.cfg.Cap != nil {
			params.Cap = t.cfg.Cap.Int()
		}
		if err := t.t.Deploy(env, params); err != nil {
			return err
		}
	}

	params := distributor.Params{
		StartBlock:    cfg.Pool.StartBlock,
		TokenSplitter: cfg.Pool.TokenSplitter.Address(),
		NumberPeriods: len(cfg.Pool.Periods),
	}
	for _, p := range cfg.Pool.Periods {
		params.RewardsPerBlockForStaking = append(params.RewardsPerBlockForStaking, p.Staking.Int())
		params.RewardsPerBlockForOthers = append(params.RewardsPerBlockForOthers, p.Others.Int())
		params.PeriodLengthsInBlocks = append(params.PeriodLengthsInBlocks, p.Length)
	}
	if err := s.Distributor.Deploy(env, params); err != nil {
		return err
	}
	// the pool mints emissions
	if err := s.LOOKS.Ownable().TransferOwnership(env, DistributorAddress); err != nil {
		return err
	}

	if err := s.Vault.Deploy(env, feesharing.Params{
		MinRewardDurationInBlocks: cfg.Vault.MinRewardDuration,
		MaxRewardDurationInBlocks: cfg.Vault.MaxRewardDuration,
	}); err != nil {
		return err
	}
	if err := s.FeeSetter.Deploy(env, feesetter.Params{RewardDurationInBlocks: cfg.FeeSetter.RewardDuration}); err != nil {
		return err
	}
	operator := cfg.Admin.Address()
	if cfg.FeeSetter.Operator != "" {
		operator = cfg.FeeSetter.Operator.Address()
	}
	if err := s.FeeSetter.Roles().GrantRole(env, access.OperatorRole, operator); err != nil {
		return err
	}
	if err := s.FeeSetter.SetRewardConvertor(env, ConvertorAddress); err != nil {
		return err
	}
	if err := s.Vault.Ownable().TransferOwnership(env, FeeSetterAddress); err != nil {
		return err
	}

	for _, r := range []struct {
		router *exchange.FixedRateRouter
		cfg    RouterConfig
		out    *token.Token
	}{{s.SwapRouter, cfg.SwapRouter, s.LOOKS}, {s.FeeRouter, cfg.FeeRouter, s.WETH}} {
		multiplier := r.cfg.Multiplier
		if multiplier == 0 {
			multiplier = exchange.MultiplierBase
		}
		if err := r.router.Deploy(env, multiplier); err != nil {
			return err
		}
		if inv := r.cfg.Inventory.Int(); inv.Sign() > 0 {
			if err := r.out.Transfer(env, r.router.Address(), inv); err != nil {
				return err
			}
		}
	}

	return s.Aggregator.Deploy(env, aggregator.Params{
		ThresholdAmount:     cfg.Aggregator.ThresholdAmount.Int(),
		MaxPriceLOOKSInWETH: cfg.Aggregator.MaxPriceLOOKSInWETH.Int(),
		HarvestBufferBlocks: cfg.Aggregator.HarvestBufferBlocks,
		TradingFee:          feeTier(cfg),
	})
}

// Balances returns the LOOKS, WETH and USDC balances of addr.
func (s *Stack) Balances(addr thor.Address) (map[string]*big.Int, error) {
	out := make(map[string]*big.Int, 3)
	for _, t := range []*token.Token{s.LOOKS, s.WETH, s.USDC} {
		bal, err := t.BalanceOf(addr)
		if err != nil {
			return nil, err
		}
		out[t.Symbol()] = bal
	}
	return out, nil
}
