// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"math/big"

	"github.com/vechain/compounder/thor"
)

// Event is emitted by a contract during a call.
// Topics[0] is the event ID derived from Name; indexed parameters follow.
type Event struct {
	Address thor.Address
	Name    string
	Topics  []thor.Bytes32
	Data    []*big.Int
}

// EventID returns the identifier topic of the named event.
func EventID(name string) thor.Bytes32 {
	return thor.Keccak256([]byte(name))
}

// NewEvent builds an event with the ID topic prepended.
func NewEvent(addr thor.Address, name string, indexed []thor.Bytes32, data ...*big.Int) *Event {
	topics := make([]thor.Bytes32, 0, len(indexed)+1)
	topics = append(topics, EventID(name))
	topics = append(topics, indexed...)

	cpy := make([]*big.Int, len(data))
	for i, d := range data {
		cpy[i] = new(big.Int).Set(d)
	}
	return &Event{
		Address: addr,
		Name:    name,
		Topics:  topics,
		Data:    cpy,
	}
}

// AddressTopic pads an address to an indexed topic.
func AddressTopic(addr thor.Address) thor.Bytes32 {
	return thor.BytesToBytes32(addr.Bytes())
}

// Events is slice of events.
type Events []*Event

// Filter returns events matching the name, emitted by addr.
func (es Events) Filter(addr thor.Address, name string) Events {
	var out Events
	for _, e := range es {
		if e.Address == addr && e.Name == name {
			out = append(out, e)
		}
	}
	return out
}
