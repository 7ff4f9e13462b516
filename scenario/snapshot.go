// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package scenario

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/compounder/genesis"
)

type DistributorSnapshot struct {
	TotalStaked      *big.Int
	AccTokenPerShare *big.Int
	Phase            uint64
	LastRewardBlock  uint64
}

type PoolSnapshot struct {
	TotalShares *big.Int
	SharePrice  *big.Int
}

type AccountSnapshot struct {
	Balances         map[string]*big.Int
	Staked           *big.Int
	PendingLOOKS     *big.Int
	VaultShares      *big.Int
	VaultPendingWETH *big.Int
	AggregatorShares *big.Int
	AggregatorValue  *big.Int
}

// Snapshot is a read-only view of the stack at one block.
type Snapshot struct {
	Block       uint64
	Distributor DistributorSnapshot
	Vault       PoolSnapshot
	Aggregator  PoolSnapshot
	Accounts    map[genesis.Account]*AccountSnapshot
}

// TakeSnapshot reads the stack as of block for every configured account.
func TakeSnapshot(stack *genesis.Stack, cfg *genesis.Config, block uint64) (*Snapshot, error) {
	snap := &Snapshot{Block: block, Accounts: make(map[genesis.Account]*AccountSnapshot, len(cfg.Accounts))}

	var err error
	d := &snap.Distributor
	if d.TotalStaked, err = stack.Distributor.TotalAmountStaked(); err != nil {
		return nil, err
	}
	if d.AccTokenPerShare, err = stack.Distributor.AccTokenPerShare(); err != nil {
		return nil, err
	}
	if d.Phase, err = stack.Distributor.CurrentPhase(); err != nil {
		return nil, err
	}
	if d.LastRewardBlock, err = stack.Distributor.LastRewardBlock(); err != nil {
		return nil, err
	}
	if snap.Vault.TotalShares, err = stack.Vault.TotalShares(); err != nil {
		return nil, err
	}
	if snap.Vault.SharePrice, err = stack.Vault.CalculateSharePriceInLOOKS(block); err != nil {
		return nil, err
	}
	if snap.Aggregator.TotalShares, err = stack.Aggregator.TotalShares(); err != nil {
		return nil, err
	}
	if snap.Aggregator.SharePrice, err = stack.Aggregator.CalculateSharePriceInLOOKS(block); err != nil {
		return nil, err
	}

	for _, acc := range cfg.Accounts {
		a, err := takeAccount(stack, acc.Name, block)
		if err != nil {
			return nil, errors.WithMessage(err, string(acc.Name))
		}
		snap.Accounts[acc.Name] = a
	}
	return snap, nil
}

func takeAccount(stack *genesis.Stack, name genesis.Account, block uint64) (*AccountSnapshot, error) {
	addr := name.Address()
	a := &AccountSnapshot{}

	var err error
	if a.Balances, err = stack.Balances(addr); err != nil {
		return nil, err
	}
	info, err := stack.Distributor.UserInfo(addr)
	if err != nil {
		return nil, err
	}
	a.Staked = info.Amount
	if a.PendingLOOKS, err = stack.Distributor.CalculatePendingRewards(addr, block); err != nil {
		return nil, err
	}
	vaultInfo, err := stack.Vault.UserInfo(addr)
	if err != nil {
		return nil, err
	}
	a.VaultShares = vaultInfo.Shares
	if a.VaultPendingWETH, err = stack.Vault.CalculatePendingRewards(addr, block); err != nil {
		return nil, err
	}
	if a.AggregatorShares, err = stack.Aggregator.UserShares(addr); err != nil {
		return nil, err
	}
	if a.AggregatorValue, err = stack.Aggregator.CalculateSharesValueInLOOKS(addr, block); err != nil {
		return nil, err
	}
	return a, nil
}
