// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import (
	"math/big"

	"github.com/vechain/compounder/thor"
)

// Event is a stored contract event.
type Event struct {
	BlockNumber uint32
	Index       uint32
	BlockTime   uint64
	TxID        thor.Bytes32
	TxOrigin    thor.Address
	Address     thor.Address
	Name        string
	Topics      []thor.Bytes32
	Data        []*big.Int
}

type Order string

const (
	ASC  Order = "asc"
	DESC Order = "desc"
)

// Range is an inclusive block range.
type Range struct {
	From uint32
	To   uint32
}

type Options struct {
	Offset uint64
	Limit  uint64
}

// EventCriteria matches events field by field; nil fields match anything.
// Topics[0] is the event ID, see tx.EventID.
type EventCriteria struct {
	Address  *thor.Address
	TxOrigin *thor.Address
	Topics   [4]*thor.Bytes32
}

// EventFilter selects events matching any of the criteria.
type EventFilter struct {
	CriteriaSet []*EventCriteria
	Range       *Range
	Options     *Options
	Order       Order // default asc
}
