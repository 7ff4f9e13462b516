// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package genesis describes and deploys the staking stack: tokens, emission
// pool, fee sharing vault, fee setter, routers and aggregator.
package genesis

import (
	"math/big"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vechain/compounder/thor"
)

// Ether is a token amount written in whole tokens, e.g. "7.5".
type Ether big.Int

func NewEther(s string) *Ether {
	return (*Ether)(thor.MustParseEther(s))
}

func (e *Ether) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := thor.ParseEther(s)
	if err != nil {
		return errors.Wrapf(err, "line %d", node.Line)
	}
	*e = Ether(*v)
	return nil
}

func (e *Ether) MarshalYAML() (any, error) {
	return thor.FormatEther(e.Int()), nil
}

// Int returns the amount in wei. A nil amount is zero.
func (e *Ether) Int() *big.Int {
	if e == nil {
		return new(big.Int)
	}
	return new(big.Int).Set((*big.Int)(e))
}

// Account is either a hex address or a name hashed into one.
type Account string

func (a Account) Address() thor.Address {
	if addr, err := thor.ParseAddress(string(a)); err == nil {
		return *addr
	}
	return thor.NameToAddress(string(a))
}

type TokenConfig struct {
	Cap     *Ether `yaml:"cap,omitempty"`
	Premint *Ether `yaml:"premint"`
}

type PeriodConfig struct {
	Staking *Ether `yaml:"staking"`
	Others  *Ether `yaml:"others"`
	Length  uint64 `yaml:"length"`
}

type DistributorConfig struct {
	StartBlock    uint64         `yaml:"startBlock"`
	TokenSplitter Account        `yaml:"tokenSplitter"`
	Periods       []PeriodConfig `yaml:"periods"`
}

type VaultConfig struct {
	MinRewardDuration uint64 `yaml:"minRewardDuration"`
	MaxRewardDuration uint64 `yaml:"maxRewardDuration"`
}

type FeeSetterConfig struct {
	RewardDuration uint64  `yaml:"rewardDuration"`
	Operator       Account `yaml:"operator"`
}

// RouterConfig sets the fixed rate, in 1/10000, and the output inventory.
type RouterConfig struct {
	Multiplier uint64 `yaml:"multiplier"`
	Inventory  *Ether `yaml:"inventory"`
}

type AggregatorConfig struct {
	ThresholdAmount     *Ether  `yaml:"thresholdAmount"`
	MaxPriceLOOKSInWETH *Ether  `yaml:"maxPriceLOOKSInWETH"`
	HarvestBufferBlocks uint64  `yaml:"harvestBufferBlocks"`
	TradingFee          uint32  `yaml:"tradingFee"`
	Harvester           Account `yaml:"harvester"` // may harvest besides the admin
}

// AccountConfig funds an account out of the admin premint.
type AccountConfig struct {
	Name  Account `yaml:"name"`
	LOOKS *Ether  `yaml:"looks"`
	WETH  *Ether  `yaml:"weth"`
	USDC  *Ether  `yaml:"usdc"`
}

// Config describes a full deployment.
type Config struct {
	Block      uint64            `yaml:"block"`
	LaunchTime uint64            `yaml:"launchTime"`
	Admin      Account           `yaml:"admin"`
	LOOKS      TokenConfig       `yaml:"looks"`
	WETH       TokenConfig       `yaml:"weth"`
	USDC       TokenConfig       `yaml:"usdc"`
	Pool       DistributorConfig `yaml:"distributor"`
	Vault      VaultConfig       `yaml:"vault"`
	FeeSetter  FeeSetterConfig   `yaml:"feeSetter"`
	SwapRouter RouterConfig      `yaml:"swapRouter"`
	FeeRouter  RouterConfig      `yaml:"feeRouter"`
	Aggregator AggregatorConfig  `yaml:"aggregator"`
	Accounts   []AccountConfig   `yaml:"accounts"`
}

// Validate checks what the contracts cannot check themselves.
func (c *Config) Validate() error {
	if c.Admin == "" {
		return errors.New("admin required")
	}
	if len(c.Pool.Periods) == 0 {
		return errors.New("distributor: at least one period required")
	}
	if c.Pool.StartBlock <= c.Block {
		return errors.Errorf("distributor: start block %d must follow genesis block %d", c.Pool.StartBlock, c.Block)
	}
	for i, p := range c.Pool.Periods {
		if p.Length == 0 {
			return errors.Errorf("distributor: period %d has zero length", i)
		}
	}
	return nil
}
