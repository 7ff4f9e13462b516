// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

// DevAccounts are funded by NewDevConfig.
var DevAccounts = []Account{"alice", "bob", "carol"}

// NewDevConfig returns a small deployment: emissions start 300 blocks after
// genesis and run four 100 block phases halving each time.
func NewDevConfig() *Config {
	cfg := &Config{
		Block:      700,
		LaunchTime: 1526400000,
		Admin:      "admin",
		LOOKS:      TokenConfig{Cap: NewEther("25000"), Premint: NewEther("6250")},
		WETH:       TokenConfig{Premint: NewEther("100000")},
		USDC:       TokenConfig{Premint: NewEther("100000")},
		Pool: DistributorConfig{
			StartBlock:    1000,
			TokenSplitter: "token-splitter",
			Periods: []PeriodConfig{
				{Staking: NewEther("30"), Others: NewEther("70"), Length: 100},
				{Staking: NewEther("15"), Others: NewEther("35"), Length: 100},
				{Staking: NewEther("7.5"), Others: NewEther("17.5"), Length: 100},
				{Staking: NewEther("3.75"), Others: NewEther("8.75"), Length: 100},
			},
		},
		Vault:      VaultConfig{MinRewardDuration: 30, MaxRewardDuration: 41000},
		FeeSetter:  FeeSetterConfig{RewardDuration: 50, Operator: "operator"},
		SwapRouter: RouterConfig{Multiplier: 20000, Inventory: NewEther("2250")},
		FeeRouter:  RouterConfig{Multiplier: 5000, Inventory: NewEther("1000")},
		Aggregator: AggregatorConfig{ThresholdAmount: NewEther("1"), TradingFee: 3000, Harvester: "keeper"},
	}
	for _, acc := range DevAccounts {
		cfg.Accounts = append(cfg.Accounts, AccountConfig{
			Name:  acc,
			LOOKS: NewEther("500"),
			WETH:  NewEther("100"),
			USDC:  NewEther("1000"),
		})
	}
	return cfg
}
