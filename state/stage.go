// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/vechain/compounder/kv"
	"github.com/vechain/compounder/thor"
)

// Stage abstracts pending changes of a State.
type Stage struct {
	state   *State
	changes map[storageKey]rlp.RawValue
}

// Len returns the number of changed slots.
func (s *Stage) Len() int {
	return len(s.changes)
}

// Hash computes a digest over the changed slots, in key order.
func (s *Stage) Hash() thor.Bytes32 {
	keys := make([][]byte, 0, len(s.changes))
	vals := make(map[string]rlp.RawValue, len(s.changes))
	for k, v := range s.changes {
		key := StorageKey(k.addr, k.key)
		keys = append(keys, key)
		vals[string(key)] = v
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i], keys[j]) < 0 })

	data := make([][]byte, 0, len(keys)*2)
	for _, k := range keys {
		data = append(data, k, vals[string(k)])
	}
	return thor.Blake2b(data...)
}

// Commit writes all changes into the batch and writes the batch.
// On success the state starts a fresh journal over the committed values.
func (s *Stage) Commit(batch kv.Batch) error {
	for k, v := range s.changes {
		key := StorageKey(k.addr, k.key)
		var err error
		if len(v) == 0 {
			err = batch.Delete(key)
		} else {
			err = batch.Put(key, v)
		}
		if err != nil {
			return errors.Wrap(err, "stage storage")
		}
	}
	if err := batch.Write(); err != nil {
		return errors.Wrap(err, "write batch")
	}
	for k, v := range s.changes {
		s.state.cache.Add(k, v)
	}
	s.state.reset()
	metricCommittedSlots().Add(int64(len(s.changes)))
	return nil
}
