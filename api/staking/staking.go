// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package staking serves read-only views of the emission pool, the fee sharing
// vault and the aggregator at the current block.
package staking

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vechain/compounder/api/restutil"
	"github.com/vechain/compounder/builtin/aggregator"
	"github.com/vechain/compounder/builtin/distributor"
	"github.com/vechain/compounder/builtin/feesharing"
	"github.com/vechain/compounder/runtime"
	"github.com/vechain/compounder/thor"
	"github.com/vechain/compounder/xenv"
)

type Distributor struct {
	rt   *runtime.Runtime
	dist *distributor.Distributor
}

func NewDistributor(rt *runtime.Runtime, dist *distributor.Distributor) *Distributor {
	return &Distributor{rt, dist}
}

func (d *Distributor) info(env *xenv.Environment) (*DistributorInfo, error) {
	info := &DistributorInfo{Block: env.BlockNumber()}
	var err error
	if info.StartBlock, err = d.dist.StartBlock(); err != nil {
		return nil, err
	}
	if info.EndBlock, err = d.dist.EndBlock(); err != nil {
		return nil, err
	}
	if info.CurrentPhase, err = d.dist.CurrentPhase(); err != nil {
		return nil, err
	}
	if info.PeriodEndBlock, err = d.dist.PeriodEndBlock(); err != nil {
		return nil, err
	}
	if info.LastRewardBlock, err = d.dist.LastRewardBlock(); err != nil {
		return nil, err
	}
	total, err := d.dist.TotalAmountStaked()
	if err != nil {
		return nil, err
	}
	acc, err := d.dist.AccTokenPerShare()
	if err != nil {
		return nil, err
	}
	staking, others, err := d.dist.RewardsPerBlock()
	if err != nil {
		return nil, err
	}
	info.TotalAmountStaked = amount(total)
	info.AccTokenPerShare = amount(acc)
	info.RewardPerBlockForStaking = amount(staking)
	info.RewardPerBlockForOthers = amount(others)
	return info, nil
}

func (d *Distributor) account(env *xenv.Environment, addr thor.Address) (*DistributorAccount, error) {
	user, err := d.dist.UserInfo(addr)
	if err != nil {
		return nil, err
	}
	pending, err := d.dist.CalculatePendingRewards(addr, env.BlockNumber())
	if err != nil {
		return nil, err
	}
	return &DistributorAccount{
		Address:        addr,
		Amount:         amount(user.Amount),
		RewardDebt:     amount(user.RewardDebt),
		PendingRewards: amount(pending),
	}, nil
}

func (d *Distributor) handleGetInfo(w http.ResponseWriter, _ *http.Request) error {
	var info *DistributorInfo
	if err := d.rt.Call(thor.Address{}, func(env *xenv.Environment) (err error) {
		info, err = d.info(env)
		return
	}); err != nil {
		return err
	}
	return restutil.WriteJSON(w, info)
}

func (d *Distributor) handleGetAccount(w http.ResponseWriter, req *http.Request) error {
	addr, err := restutil.AddressVar(req, "address")
	if err != nil {
		return err
	}
	var acc *DistributorAccount
	if err := d.rt.Call(addr, func(env *xenv.Environment) (err error) {
		acc, err = d.account(env, addr)
		return
	}); err != nil {
		return err
	}
	return restutil.WriteJSON(w, acc)
}

func (d *Distributor) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("GET /distributor").
		HandlerFunc(restutil.WrapHandlerFunc(d.handleGetInfo))
	sub.Path("/accounts/{address}").
		Methods(http.MethodGet).
		Name("GET /distributor/accounts/{address}").
		HandlerFunc(restutil.WrapHandlerFunc(d.handleGetAccount))
}

type Vault struct {
	rt    *runtime.Runtime
	vault *feesharing.Vault
}

func NewVault(rt *runtime.Runtime, vault *feesharing.Vault) *Vault {
	return &Vault{rt, vault}
}

func (v *Vault) info(env *xenv.Environment) (*VaultInfo, error) {
	block := env.BlockNumber()
	info := &VaultInfo{Block: block}
	total, err := v.vault.TotalShares()
	if err != nil {
		return nil, err
	}
	price, err := v.vault.CalculateSharePriceInLOOKS(block)
	if err != nil {
		return nil, err
	}
	rpt, err := v.vault.RewardPerTokenStored()
	if err != nil {
		return nil, err
	}
	rate, err := v.vault.CurrentRewardPerBlock()
	if err != nil {
		return nil, err
	}
	if info.PeriodEndBlock, err = v.vault.PeriodEndBlock(); err != nil {
		return nil, err
	}
	if info.LastUpdateBlock, err = v.vault.LastUpdateBlock(); err != nil {
		return nil, err
	}
	info.TotalShares = amount(total)
	info.SharePriceInLOOKS = amount(price)
	info.RewardPerTokenStored = amount(rpt)
	info.CurrentRewardPerBlock = amount(rate)
	return info, nil
}

func (v *Vault) account(env *xenv.Environment, addr thor.Address) (*VaultAccount, error) {
	block := env.BlockNumber()
	user, err := v.vault.UserInfo(addr)
	if err != nil {
		return nil, err
	}
	value, err := v.vault.CalculateSharesValueInLOOKS(addr, block)
	if err != nil {
		return nil, err
	}
	pending, err := v.vault.CalculatePendingRewards(addr, block)
	if err != nil {
		return nil, err
	}
	return &VaultAccount{
		Address:                addr,
		Shares:                 amount(user.Shares),
		UserRewardPerTokenPaid: amount(user.UserRewardPerTokenPaid),
		Rewards:                amount(user.Rewards),
		ValueInLOOKS:           amount(value),
		PendingRewards:         amount(pending),
	}, nil
}

func (v *Vault) handleGetInfo(w http.ResponseWriter, _ *http.Request) error {
	var info *VaultInfo
	if err := v.rt.Call(thor.Address{}, func(env *xenv.Environment) (err error) {
		info, err = v.info(env)
		return
	}); err != nil {
		return err
	}
	return restutil.WriteJSON(w, info)
}

func (v *Vault) handleGetAccount(w http.ResponseWriter, req *http.Request) error {
	addr, err := restutil.AddressVar(req, "address")
	if err != nil {
		return err
	}
	var acc *VaultAccount
	if err := v.rt.Call(addr, func(env *xenv.Environment) (err error) {
		acc, err = v.account(env, addr)
		return
	}); err != nil {
		return err
	}
	return restutil.WriteJSON(w, acc)
}

func (v *Vault) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("GET /vault").
		HandlerFunc(restutil.WrapHandlerFunc(v.handleGetInfo))
	sub.Path("/accounts/{address}").
		Methods(http.MethodGet).
		Name("GET /vault/accounts/{address}").
		HandlerFunc(restutil.WrapHandlerFunc(v.handleGetAccount))
}

type Aggregator struct {
	rt  *runtime.Runtime
	agg *aggregator.Aggregator
}

func NewAggregator(rt *runtime.Runtime, agg *aggregator.Aggregator) *Aggregator {
	return &Aggregator{rt, agg}
}

func (a *Aggregator) info(env *xenv.Environment) (*AggregatorInfo, error) {
	block := env.BlockNumber()
	info := &AggregatorInfo{Block: block}
	total, err := a.agg.TotalShares()
	if err != nil {
		return nil, err
	}
	price, err := a.agg.CalculateSharePriceInLOOKS(block)
	if err != nil {
		return nil, err
	}
	prime, err := a.agg.CalculateSharePriceInPrimeShare()
	if err != nil {
		return nil, err
	}
	threshold, err := a.agg.ThresholdAmount()
	if err != nil {
		return nil, err
	}
	maxPrice, err := a.agg.MaxPriceLOOKSInWETH()
	if err != nil {
		return nil, err
	}
	if info.LastHarvestBlock, err = a.agg.LastHarvestBlock(); err != nil {
		return nil, err
	}
	if info.HarvestBufferBlocks, err = a.agg.HarvestBufferBlocks(); err != nil {
		return nil, err
	}
	if info.CanHarvest, err = a.agg.CanHarvest(); err != nil {
		return nil, err
	}
	if info.Paused, err = a.agg.Paused(); err != nil {
		return nil, err
	}
	if info.TradingFeeUniswapV3, err = a.agg.TradingFee(); err != nil {
		return nil, err
	}
	info.TotalShares = amount(total)
	info.SharePriceInLOOKS = amount(price)
	info.SharePriceInPrimeShare = amount(prime)
	info.ThresholdAmount = amount(threshold)
	info.MaxPriceOfLOOKSInWETH = amount(maxPrice)
	return info, nil
}

func (a *Aggregator) account(env *xenv.Environment, addr thor.Address) (*AggregatorAccount, error) {
	shares, err := a.agg.UserShares(addr)
	if err != nil {
		return nil, err
	}
	value, err := a.agg.CalculateSharesValueInLOOKS(addr, env.BlockNumber())
	if err != nil {
		return nil, err
	}
	return &AggregatorAccount{
		Address:      addr,
		Shares:       amount(shares),
		ValueInLOOKS: amount(value),
	}, nil
}

func (a *Aggregator) handleGetInfo(w http.ResponseWriter, _ *http.Request) error {
	var info *AggregatorInfo
	if err := a.rt.Call(thor.Address{}, func(env *xenv.Environment) (err error) {
		info, err = a.info(env)
		return
	}); err != nil {
		return err
	}
	return restutil.WriteJSON(w, info)
}

func (a *Aggregator) handleGetAccount(w http.ResponseWriter, req *http.Request) error {
	addr, err := restutil.AddressVar(req, "address")
	if err != nil {
		return err
	}
	var acc *AggregatorAccount
	if err := a.rt.Call(addr, func(env *xenv.Environment) (err error) {
		acc, err = a.account(env, addr)
		return
	}); err != nil {
		return err
	}
	return restutil.WriteJSON(w, acc)
}

func (a *Aggregator) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("GET /aggregator").
		HandlerFunc(restutil.WrapHandlerFunc(a.handleGetInfo))
	sub.Path("/accounts/{address}").
		Methods(http.MethodGet).
		Name("GET /aggregator/accounts/{address}").
		HandlerFunc(restutil.WrapHandlerFunc(a.handleGetAccount))
}
