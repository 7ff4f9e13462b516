// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"

	"github.com/vechain/compounder/thor"
)

// Amount is a token amount rendered as hex in JSON.
type Amount = math.HexOrDecimal256

func amount(v *big.Int) *Amount {
	return (*Amount)(new(big.Int).Set(v))
}

type DistributorInfo struct {
	Block                    uint64  `json:"block"`
	StartBlock               uint64  `json:"startBlock"`
	EndBlock                 uint64  `json:"endBlock"`
	CurrentPhase             uint64  `json:"currentPhase"`
	PeriodEndBlock           uint64  `json:"periodEndBlock"`
	LastRewardBlock          uint64  `json:"lastRewardBlock"`
	TotalAmountStaked        *Amount `json:"totalAmountStaked"`
	AccTokenPerShare         *Amount `json:"accTokenPerShare"`
	RewardPerBlockForStaking *Amount `json:"rewardPerBlockForStaking"`
	RewardPerBlockForOthers  *Amount `json:"rewardPerBlockForOthers"`
}

type DistributorAccount struct {
	Address        thor.Address `json:"address"`
	Amount         *Amount      `json:"amount"`
	RewardDebt     *Amount      `json:"rewardDebt"`
	PendingRewards *Amount      `json:"pendingRewards"`
}

type VaultInfo struct {
	Block                 uint64  `json:"block"`
	TotalShares           *Amount `json:"totalShares"`
	SharePriceInLOOKS     *Amount `json:"sharePriceInLOOKS"`
	RewardPerTokenStored  *Amount `json:"rewardPerTokenStored"`
	CurrentRewardPerBlock *Amount `json:"currentRewardPerBlock"`
	PeriodEndBlock        uint64  `json:"periodEndBlock"`
	LastUpdateBlock       uint64  `json:"lastUpdateBlock"`
}

type VaultAccount struct {
	Address                thor.Address `json:"address"`
	Shares                 *Amount      `json:"shares"`
	UserRewardPerTokenPaid *Amount      `json:"userRewardPerTokenPaid"`
	Rewards                *Amount      `json:"rewards"`
	ValueInLOOKS           *Amount      `json:"valueInLOOKS"`
	PendingRewards         *Amount      `json:"pendingRewards"`
}

type AggregatorInfo struct {
	Block                  uint64  `json:"block"`
	TotalShares            *Amount `json:"totalShares"`
	SharePriceInLOOKS      *Amount `json:"sharePriceInLOOKS"`
	SharePriceInPrimeShare *Amount `json:"sharePriceInPrimeShare"`
	LastHarvestBlock       uint64  `json:"lastHarvestBlock"`
	HarvestBufferBlocks    uint64  `json:"harvestBufferBlocks"`
	CanHarvest             bool    `json:"canHarvest"`
	Paused                 bool    `json:"paused"`
	ThresholdAmount        *Amount `json:"thresholdAmount"`
	MaxPriceOfLOOKSInWETH  *Amount `json:"maxPriceOfLOOKSInWETH"`
	TradingFeeUniswapV3    uint32  `json:"tradingFeeUniswapV3"`
}

type AggregatorAccount struct {
	Address      thor.Address `json:"address"`
	Shares       *Amount      `json:"shares"`
	ValueInLOOKS *Amount      `json:"valueInLOOKS"`
}
