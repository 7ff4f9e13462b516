// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	lru "github.com/hashicorp/golang-lru"

	"github.com/vechain/compounder/kv"
	"github.com/vechain/compounder/stackedmap"
	"github.com/vechain/compounder/thor"
)

// StorageBucket prefixes every persisted slot.
const StorageBucket = kv.Bucket("s")

const defaultCacheSize = 4096

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

type storageKey struct {
	addr thor.Address
	key  thor.Bytes32
}

// StorageKey returns the persisted key of a slot.
func StorageKey(addr thor.Address, key thor.Bytes32) []byte {
	return StorageBucket.Key(append(addr.Bytes(), key[:]...))
}

// State manages the contract storage.
type State struct {
	src   kv.Getter
	cache *lru.Cache // committed values, keyed by storageKey
	sm    *stackedmap.StackedMap[storageKey, rlp.RawValue]
}

// New create state object over src. A nil src yields an empty in-memory state.
func New(src kv.Getter) *State {
	cache, _ := lru.New(defaultCacheSize)
	s := &State{src: src, cache: cache}
	s.reset()
	return s
}

func (s *State) reset() {
	s.sm = stackedmap.New(s.load)
	s.sm.Push()
}

func (s *State) load(key storageKey) (rlp.RawValue, bool, error) {
	if v, ok := s.cache.Get(key); ok {
		metricCacheCounter().AddWithLabel(1, map[string]string{"result": "hit"})
		return v.(rlp.RawValue), true, nil
	}
	metricCacheCounter().AddWithLabel(1, map[string]string{"result": "miss"})
	if s.src == nil {
		return nil, true, nil
	}
	v, err := s.src.Get(StorageKey(key.addr, key.key))
	if err != nil {
		if s.src.IsNotFound(err) {
			s.cache.Add(key, rlp.RawValue(nil))
			return nil, true, nil
		}
		return nil, false, err
	}
	s.cache.Add(key, rlp.RawValue(v))
	return v, true, nil
}

// GetStorage returns storage value for the given address and key.
func (s *State) GetStorage(addr thor.Address, key thor.Bytes32) (thor.Bytes32, error) {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return thor.Bytes32{}, err
	}
	if len(raw) == 0 {
		return thor.Bytes32{}, nil
	}
	kind, content, _, err := rlp.Split(raw)
	if err != nil {
		return thor.Bytes32{}, &Error{err}
	}
	if kind == rlp.List {
		// a structured value, return hash of raw data
		return thor.Blake2b(raw), nil
	}
	return thor.BytesToBytes32(content), nil
}

// SetStorage set storage value for the given address and key.
func (s *State) SetStorage(addr thor.Address, key, value thor.Bytes32) {
	if value.IsZero() {
		s.SetRawStorage(addr, key, nil)
		return
	}
	v, _ := rlp.EncodeToBytes(bytes.TrimLeft(value[:], "\x00"))
	s.SetRawStorage(addr, key, v)
}

// GetRawStorage returns storage value in rlp raw for given address and key.
func (s *State) GetRawStorage(addr thor.Address, key thor.Bytes32) (rlp.RawValue, error) {
	v, _, err := s.sm.Get(storageKey{addr, key})
	if err != nil {
		return nil, &Error{err}
	}
	return v, nil
}

// SetRawStorage set storage value in rlp raw.
func (s *State) SetRawStorage(addr thor.Address, key thor.Bytes32, raw rlp.RawValue) {
	s.sm.Put(storageKey{addr, key}, raw)
}

// EncodeStorage set storage value encoded by given enc method.
// Error returned by enc will be absorbed by State instance.
func (s *State) EncodeStorage(addr thor.Address, key thor.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return &Error{err}
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// DecodeStorage get and decode storage value.
// Error returned by dec will be absorbed by State instance.
func (s *State) DecodeStorage(addr thor.Address, key thor.Bytes32, dec func([]byte) error) error {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return err
	}
	if err := dec(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo revert to checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	// the base level holds uncommitted changes and is never popped
	s.sm.PopTo(max(revision, 1))
}

// Stage collects the net changes made since the last commit.
func (s *State) Stage() *Stage {
	changes := make(map[storageKey]rlp.RawValue)
	for _, entry := range s.sm.Journal() {
		changes[entry.Key] = entry.Value
	}
	return &Stage{state: s, changes: changes}
}
