// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"fmt"
	"math"

	ethmath "github.com/ethereum/go-ethereum/common/math"

	"github.com/vechain/compounder/logdb"
	"github.com/vechain/compounder/thor"
	"github.com/vechain/compounder/tx"
)

type LogMeta struct {
	BlockNumber    uint32       `json:"blockNumber"`
	BlockTimestamp uint64       `json:"blockTimestamp"`
	TxID           thor.Bytes32 `json:"txID"`
	TxOrigin       thor.Address `json:"txOrigin"`
	LogIndex       uint32       `json:"logIndex"`
}

// FilteredEvent only comes from one contract
type FilteredEvent struct {
	Address thor.Address               `json:"address"`
	Event   string                     `json:"event"`
	Topics  []thor.Bytes32             `json:"topics"`
	Data    []*ethmath.HexOrDecimal256 `json:"data"`
	Meta    LogMeta                    `json:"meta"`
}

// ConvertEvent converts a logdb.Event into its json form.
func ConvertEvent(event *logdb.Event) *FilteredEvent {
	fe := &FilteredEvent{
		Address: event.Address,
		Event:   event.Name,
		Topics:  event.Topics,
		Data:    make([]*ethmath.HexOrDecimal256, len(event.Data)),
		Meta: LogMeta{
			BlockNumber:    event.BlockNumber,
			BlockTimestamp: event.BlockTime,
			TxID:           event.TxID,
			TxOrigin:       event.TxOrigin,
			LogIndex:       event.Index,
		},
	}
	if fe.Topics == nil {
		fe.Topics = []thor.Bytes32{}
	}
	for i, d := range event.Data {
		fe.Data[i] = (*ethmath.HexOrDecimal256)(d)
	}
	return fe
}

// EventCriteria matches events emitted by Address. Event, if set, is
// shorthand for Topic0.
type EventCriteria struct {
	Address  *thor.Address `json:"address"`
	TxOrigin *thor.Address `json:"txOrigin"`
	Event    string        `json:"event"`
	Topic0   *thor.Bytes32 `json:"topic0"`
	Topic1   *thor.Bytes32 `json:"topic1"`
	Topic2   *thor.Bytes32 `json:"topic2"`
	Topic3   *thor.Bytes32 `json:"topic3"`
}

type Options struct {
	Offset uint64  `json:"offset,omitempty"`
	Limit  *uint64 `json:"limit,omitempty"`
}

func (o *Options) Validate(limit uint64) error {
	if o == nil {
		return nil
	}
	if o.Limit != nil && *o.Limit > limit {
		return fmt.Errorf("options.limit exceeds the maximum allowed value of %d", limit)
	}
	if o.Offset > math.MaxInt64 {
		return fmt.Errorf("options.offset exceeds the maximum allowed value of %d", uint64(math.MaxInt64))
	}
	return nil
}

// Range is an inclusive block range; open ends default to the first and the newest block.
type Range struct {
	From *uint32 `json:"from,omitempty"`
	To   *uint32 `json:"to,omitempty"`
}

func (r *Range) Validate() error {
	if r == nil {
		return nil
	}
	if r.From != nil && r.To != nil && *r.From > *r.To {
		return fmt.Errorf("filter.Range.To must be greater than or equal to filter.Range.From")
	}
	return nil
}

type EventFilter struct {
	CriteriaSet []*EventCriteria `json:"criteriaSet,omitempty"`
	Range       *Range           `json:"range,omitempty"`
	Options     *Options         `json:"options,omitempty"`
	Order       logdb.Order      `json:"order,omitempty"`
}

// ConvertEventFilter converts the json filter into a logdb one. Options must be set.
func ConvertEventFilter(filter *EventFilter) (*logdb.EventFilter, error) {
	if filter.Order != "" && filter.Order != logdb.ASC && filter.Order != logdb.DESC {
		return nil, fmt.Errorf("order must be either 'asc' or 'desc', got '%s'", filter.Order)
	}
	f := &logdb.EventFilter{
		Options: &logdb.Options{
			Offset: filter.Options.Offset,
			Limit:  *filter.Options.Limit,
		},
		Order: filter.Order,
	}
	if filter.Range != nil {
		f.Range = &logdb.Range{To: math.MaxUint32}
		if filter.Range.From != nil {
			f.Range.From = *filter.Range.From
		}
		if filter.Range.To != nil {
			f.Range.To = *filter.Range.To
		}
	}
	for i, criterion := range filter.CriteriaSet {
		c := &logdb.EventCriteria{
			Address:  criterion.Address,
			TxOrigin: criterion.TxOrigin,
			Topics:   [4]*thor.Bytes32{criterion.Topic0, criterion.Topic1, criterion.Topic2, criterion.Topic3},
		}
		if criterion.Event != "" {
			id := tx.EventID(criterion.Event)
			if c.Topics[0] != nil && *c.Topics[0] != id {
				return nil, fmt.Errorf("criteriaSet[%d]: event and topic0 disagree", i)
			}
			c.Topics[0] = &id
		}
		f.CriteriaSet = append(f.CriteriaSet, c)
	}
	return f, nil
}
