// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package scenario replays block-stamped calls against a deployed stack.
package scenario

import (
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vechain/compounder/genesis"
)

// DefaultBlockInterval is the number of seconds between two blocks.
const DefaultBlockInterval = 12

// Step is one call made by From at Block.
type Step struct {
	Block    uint64            `yaml:"block"`
	From     genesis.Account   `yaml:"from"`
	Call     string            `yaml:"call"`
	Amount   *genesis.Ether    `yaml:"amount,omitempty"`
	To       genesis.Account   `yaml:"to,omitempty"`
	Token    string            `yaml:"token,omitempty"`
	Claim    bool              `yaml:"claim,omitempty"`
	Value    uint64            `yaml:"value,omitempty"`
	Accounts []genesis.Account `yaml:"accounts,omitempty"`
	// Revert is the reason the call is expected to revert with.
	Revert string `yaml:"revert,omitempty"`
}

type Scenario struct {
	Genesis       *genesis.Config `yaml:"genesis"`
	BlockInterval uint64          `yaml:"blockInterval"`
	// EndBlock, when set, advances the chain past the last step.
	EndBlock uint64 `yaml:"endBlock"`
	Steps    []Step `yaml:"steps"`
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read scenario")
	}
	return Parse(data)
}

// Parse decodes a scenario, filling the dev genesis when none is given.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "decode scenario")
	}
	if s.Genesis == nil {
		s.Genesis = genesis.NewDevConfig()
	}
	if s.BlockInterval == 0 {
		s.BlockInterval = DefaultBlockInterval
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scenario) Validate() error {
	if err := s.Genesis.Validate(); err != nil {
		return errors.WithMessage(err, "genesis")
	}
	if !sort.SliceIsSorted(s.Steps, func(i, j int) bool { return s.Steps[i].Block < s.Steps[j].Block }) {
		return errors.New("steps must be ordered by block")
	}
	for i, step := range s.Steps {
		if step.Block <= s.Genesis.Block {
			return errors.Errorf("step %d: block %d must follow genesis block %d", i, step.Block, s.Genesis.Block)
		}
		if step.From == "" {
			return errors.Errorf("step %d: from required", i)
		}
		if _, ok := calls[step.Call]; !ok {
			return errors.Errorf("step %d: unknown call %q", i, step.Call)
		}
	}
	if s.EndBlock != 0 && s.EndBlock < s.LastBlock() {
		return errors.Errorf("end block %d precedes the last step", s.EndBlock)
	}
	return nil
}

// LastBlock returns the block the replay ends at.
func (s *Scenario) LastBlock() uint64 {
	last := s.Genesis.Block
	if n := len(s.Steps); n > 0 {
		last = s.Steps[n-1].Block
	}
	if s.EndBlock > last {
		last = s.EndBlock
	}
	return last
}

// BlockTime returns the timestamp of block number.
func (s *Scenario) BlockTime(number uint64) uint64 {
	return s.Genesis.LaunchTime + (number-s.Genesis.Block)*s.BlockInterval
}
