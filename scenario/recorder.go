// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package scenario

import (
	"math"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/vechain/compounder/co"
	"github.com/vechain/compounder/kv"
	"github.com/vechain/compounder/logdb"
	"github.com/vechain/compounder/runtime"
	"github.com/vechain/compounder/thor"
	"github.com/vechain/compounder/tx"
)

var (
	metaBucket = kv.Bucket("meta/")
	headKey    = []byte("head")
)

// Head is the last block committed to the store.
type Head struct {
	Number uint64
	Time   uint64
}

// ReadHead returns the committed head, nil if nothing was committed.
func ReadHead(store kv.Getter) (*Head, error) {
	data, err := metaBucket.NewGetter(store).Get(headKey)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var h Head
	if err := rlp.DecodeBytes(data, &h); err != nil {
		return nil, errors.Wrap(err, "decode head")
	}
	return &h, nil
}

// Recorder commits each replayed block: state and head go to the kv store,
// events to the log db. Waiters on the committed signal are woken afterwards.
type Recorder struct {
	rt        *runtime.Runtime
	store     kv.Store
	logs      *logdb.Writer
	committed *co.Signal
	onCommit  func(number uint64, root thor.Bytes32)
}

func NewRecorder(rt *runtime.Runtime, store kv.Store, logDB *logdb.LogDB, committed *co.Signal) *Recorder {
	return &Recorder{
		rt:        rt,
		store:     store,
		logs:      logDB.NewWriter(),
		committed: committed,
	}
}

// OnCommit registers fn to be called after each committed block.
func (r *Recorder) OnCommit(fn func(number uint64, root thor.Bytes32)) {
	r.onCommit = fn
}

func (r *Recorder) Block(number, time uint64, receipts tx.Receipts) error {
	if number > math.MaxUint32 {
		return errors.Errorf("block number %d overflows", number)
	}
	if err := r.logs.Write(uint32(number), time, receipts); err != nil {
		return err
	}

	data, err := rlp.EncodeToBytes(&Head{Number: number, Time: time})
	if err != nil {
		return err
	}
	batch := r.store.NewBatch()
	if err := metaBucket.NewPutter(batch).Put(headKey, data); err != nil {
		return err
	}
	root, err := r.rt.Commit(batch)
	if err != nil {
		r.logs.Rollback()
		return errors.WithMessage(err, "commit state")
	}
	if err := r.logs.Commit(); err != nil {
		return errors.WithMessage(err, "commit events")
	}
	logger.Debug("block committed", "number", number, "root", root, "receipts", len(receipts))

	if r.committed != nil {
		r.committed.Broadcast()
	}
	if r.onCommit != nil {
		r.onCommit(number, root)
	}
	return nil
}
