// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package runtime executes contract calls against the ledger state, one call
// at a time, with all-or-nothing semantics.
package runtime

import (
	"encoding/binary"
	"sync"

	"github.com/pkg/errors"

	"github.com/vechain/compounder/builtin/reverts"
	"github.com/vechain/compounder/kv"
	"github.com/vechain/compounder/log"
	"github.com/vechain/compounder/metrics"
	"github.com/vechain/compounder/state"
	"github.com/vechain/compounder/thor"
	"github.com/vechain/compounder/tx"
	"github.com/vechain/compounder/xenv"
)

var (
	logger = log.WithContext("pkg", "runtime")

	metricCallCount = metrics.LazyLoadCounterVec("runtime_call_count", []string{"result"})
)

// Runtime is to support call execution.
type Runtime struct {
	mu    sync.Mutex
	state *state.State

	blockNumber uint64
	blockTime   uint64
	nonce       uint64
}

// New create a Runtime object.
func New(state *state.State, blockNumber, blockTime uint64) *Runtime {
	return &Runtime{
		state:       state,
		blockNumber: blockNumber,
		blockTime:   blockTime,
	}
}

func (rt *Runtime) State() *state.State { return rt.state }

func (rt *Runtime) BlockNumber() uint64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.blockNumber
}

func (rt *Runtime) BlockTime() uint64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.blockTime
}

// SetBlock moves the runtime to the given block. Blocks never go backwards.
func (rt *Runtime) SetBlock(number, time uint64) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if number < rt.blockNumber {
		return errors.Errorf("block %d is before current block %d", number, rt.blockNumber)
	}
	rt.blockNumber, rt.blockTime = number, time
	return nil
}

func (rt *Runtime) newEnv(origin thor.Address) *xenv.Environment {
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], rt.nonce)
	rt.nonce++

	return xenv.New(
		rt.state,
		&xenv.BlockContext{Number: rt.blockNumber, Time: rt.blockTime},
		&xenv.TransactionContext{
			ID:     thor.Blake2b(origin.Bytes(), nonce[:]),
			Origin: origin,
		},
	)
}

// Exec runs fn as a call made by origin. If fn fails, every state change it made
// is rolled back. A revert is reported in the receipt; any other failure is
// returned as error.
func (rt *Runtime) Exec(origin thor.Address, fn func(env *xenv.Environment) error) (*tx.Receipt, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	env := rt.newEnv(origin)
	receipt := &tx.Receipt{
		TxID:        env.TransactionContext().ID,
		BlockNumber: rt.blockNumber,
		Origin:      origin,
	}

	rev := rt.state.NewCheckpoint()
	if err := fn(env); err != nil {
		rt.state.RevertTo(rev)
		if !reverts.IsRevertErr(err) {
			metricCallCount().AddWithLabel(1, map[string]string{"result": "error"})
			return nil, err
		}
		metricCallCount().AddWithLabel(1, map[string]string{"result": "reverted"})
		logger.Debug("call reverted", "origin", origin, "block", rt.blockNumber, "reason", reverts.Reason(err))
		receipt.Reverted = true
		receipt.Reason = reverts.Reason(err)
		return receipt, nil
	}
	metricCallCount().AddWithLabel(1, map[string]string{"result": "ok"})
	receipt.Events = env.Events()
	return receipt, nil
}

// Call runs fn as a read-only call made by origin. Changes are always discarded.
func (rt *Runtime) Call(origin thor.Address, fn func(env *xenv.Environment) error) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rev := rt.state.NewCheckpoint()
	defer rt.state.RevertTo(rev)
	return fn(rt.newEnv(origin))
}

// Commit persists all changes made since the last commit through the batch.
// It returns the digest of the committed changes.
func (rt *Runtime) Commit(batch kv.Batch) (thor.Bytes32, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	stage := rt.state.Stage()
	hash := stage.Hash()
	if err := stage.Commit(batch); err != nil {
		return thor.Bytes32{}, err
	}
	logger.Debug("state committed", "block", rt.blockNumber, "slots", stage.Len(), "hash", hash)
	return hash, nil
}
