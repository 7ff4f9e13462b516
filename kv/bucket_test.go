// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errNotFound = errors.New("not found")

type mem map[string]string

func (m mem) Get(k []byte) ([]byte, error) {
	if v, ok := m[string(k)]; ok {
		return []byte(v), nil
	}
	return nil, errNotFound
}

func (m mem) Has(k []byte) (bool, error) {
	_, ok := m[string(k)]
	return ok, nil
}

func (m mem) Put(k, v []byte) error {
	m[string(k)] = string(v)
	return nil
}

func (m mem) Delete(k []byte) error {
	delete(m, string(k))
	return nil
}

func (m mem) IsNotFound(err error) bool {
	return errors.Is(err, errNotFound)
}

func TestBucket(t *testing.T) {
	m := mem{}
	b := Bucket("s.")

	assert.NoError(t, b.NewPutter(m).Put([]byte("k1"), []byte("v1")))
	assert.Equal(t, "v1", m["s.k1"])

	v, err := b.NewGetter(m).Get([]byte("k1"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("v1"), v)

	has, err := b.NewGetter(m).Has([]byte("k2"))
	assert.NoError(t, err)
	assert.False(t, has)

	_, err = b.NewGetter(m).Get([]byte("k2"))
	assert.True(t, b.NewGetter(m).IsNotFound(err))

	assert.NoError(t, b.NewPutter(m).Delete([]byte("k1")))
	assert.Empty(t, m)
}

func TestBucketRange(t *testing.T) {
	assert.Equal(t, Range{From: []byte("ab"), To: []byte("ac")}, Bucket("ab").Range())
	assert.Equal(t, Range{From: []byte{0x01, 0xff}, To: []byte{0x02}}, Bucket([]byte{0x01, 0xff}).Range())
	assert.Equal(t, Range{From: []byte{0xff}}, Bucket([]byte{0xff}).Range())
}
