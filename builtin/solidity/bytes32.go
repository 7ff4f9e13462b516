// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"github.com/vechain/compounder/thor"
)

// Bytes32Key adapts a thor.Bytes32 for use as mapping key.
type Bytes32Key thor.Bytes32

func (k Bytes32Key) Bytes() []byte { return k[:] }

// AddressKey adapts a pair of addresses, e.g. owner and spender, as mapping key.
type AddressKey struct {
	A, B thor.Address
}

func (k AddressKey) Bytes() []byte {
	return append(append(make([]byte, 0, 40), k.A[:]...), k.B[:]...)
}

// AddressSet is an enumerable set of addresses, like OpenZeppelin's EnumerableSet.
type AddressSet struct {
	length  *Uint64
	indexes *Mapping[thor.Address, uint64]     // 1-based, 0 means absent
	values  *Mapping[Bytes32Key, thor.Address] // index => address
}

func NewAddressSet(context *Context, pos thor.Bytes32) *AddressSet {
	return &AddressSet{
		length:  NewUint64(context, pos),
		indexes: NewMapping[thor.Address, uint64](context, thor.Blake2b(pos.Bytes(), []byte("indexes"))),
		values:  NewMapping[Bytes32Key, thor.Address](context, thor.Blake2b(pos.Bytes(), []byte("values"))),
	}
}

func indexKey(i uint64) Bytes32Key {
	var k Bytes32Key
	for j := 0; j < 8; j++ {
		k[31-j] = byte(i >> (8 * j))
	}
	return k
}

func (s *AddressSet) Contains(addr thor.Address) (bool, error) {
	idx, err := s.indexes.Get(addr)
	return idx != 0, err
}

func (s *AddressSet) Len() (uint64, error) {
	return s.length.Get()
}

func (s *AddressSet) At(i uint64) (thor.Address, error) {
	return s.values.Get(indexKey(i))
}

// Add returns false if the address is already present.
func (s *AddressSet) Add(addr thor.Address) (bool, error) {
	if ok, err := s.Contains(addr); err != nil || ok {
		return false, err
	}
	n, err := s.length.Get()
	if err != nil {
		return false, err
	}
	if err := s.values.Set(indexKey(n), addr); err != nil {
		return false, err
	}
	if err := s.indexes.Set(addr, n+1); err != nil {
		return false, err
	}
	s.length.Set(n + 1)
	return true, nil
}

// Remove returns false if the address is absent. The last element takes the removed slot.
func (s *AddressSet) Remove(addr thor.Address) (bool, error) {
	idx, err := s.indexes.Get(addr)
	if err != nil || idx == 0 {
		return false, err
	}
	n, err := s.length.Get()
	if err != nil {
		return false, err
	}
	last, err := s.values.Get(indexKey(n - 1))
	if err != nil {
		return false, err
	}
	if idx-1 != n-1 {
		if err := s.values.Set(indexKey(idx-1), last); err != nil {
			return false, err
		}
		if err := s.indexes.Set(last, idx); err != nil {
			return false, err
		}
	}
	s.values.Delete(indexKey(n - 1))
	s.indexes.Delete(addr)
	s.length.Set(n - 1)
	return true, nil
}

// Values lists the set in storage order.
func (s *AddressSet) Values() ([]thor.Address, error) {
	n, err := s.length.Get()
	if err != nil {
		return nil, err
	}
	out := make([]thor.Address, 0, n)
	for i := uint64(0); i < n; i++ {
		a, err := s.At(i)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
