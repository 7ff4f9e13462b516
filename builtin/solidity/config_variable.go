// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"github.com/vechain/compounder/log"
	"github.com/vechain/compounder/thor"
)

// ConfigVariable is an owner tunable parameter that reads as its default until set.
// Zero is not a storable value.
type ConfigVariable struct {
	slot         thor.Bytes32
	name         string
	defaultValue uint64
}

func NewConfigVariable(name string, defaultValue uint64) *ConfigVariable {
	return &ConfigVariable{
		slot:         Slot(name),
		name:         name,
		defaultValue: defaultValue,
	}
}

func (c *ConfigVariable) Name() string {
	return c.name
}

func (c *ConfigVariable) Slot() thor.Bytes32 {
	return c.slot
}

func (c *ConfigVariable) Get(ctx *Context) (uint64, error) {
	v, err := NewUint64(ctx, c.slot).Get()
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return c.defaultValue, nil
	}
	return v, nil
}

func (c *ConfigVariable) Set(ctx *Context, value uint64) {
	log.Debug("config value updated", "contract", ctx.address, "name", c.name, "value", value)
	NewUint64(ctx, c.slot).Set(value)
}
