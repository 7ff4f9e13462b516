// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package scenario

import (
	"context"

	"github.com/pkg/errors"

	"github.com/vechain/compounder/genesis"
	"github.com/vechain/compounder/log"
	"github.com/vechain/compounder/metrics"
	"github.com/vechain/compounder/runtime"
	"github.com/vechain/compounder/tx"
)

var (
	logger = log.WithContext("pkg", "scenario")

	metricSteps = metrics.LazyLoadCounterVec("scenario_steps_count", []string{"result"})
	metricBlock = metrics.LazyLoadGauge("scenario_block_number")
)

// Sink receives every replayed block once its calls have run.
type Sink interface {
	Block(number, time uint64, receipts tx.Receipts) error
}

// Result summarizes a replay.
type Result struct {
	Blocks   int
	Steps    int
	Reverted int
	Last     uint64
}

// Replay deploys the stack at the genesis block and runs every step at its block.
// A step whose Revert is set must revert with exactly that reason.
func Replay(ctx context.Context, s *Scenario, rt *runtime.Runtime, stack *genesis.Stack, sink Sink) (*Result, error) {
	receipts, err := stack.Deploy(rt, s.Genesis)
	if err != nil {
		return nil, errors.WithMessage(err, "deploy")
	}
	res := &Result{}
	if err := res.emit(sink, rt.BlockNumber(), rt.BlockTime(), receipts); err != nil {
		return nil, err
	}

	var (
		pending tx.Receipts
		open    bool
	)
	for i := range s.Steps {
		step := &s.Steps[i]
		if !open || step.Block != rt.BlockNumber() {
			if open {
				if err := res.emit(sink, rt.BlockNumber(), rt.BlockTime(), pending); err != nil {
					return nil, err
				}
				pending = nil
			}
			if err := ctx.Err(); err != nil {
				return res, err
			}
			if err := rt.SetBlock(step.Block, s.BlockTime(step.Block)); err != nil {
				return nil, err
			}
			open = true
		}

		receipt, err := runStep(rt, stack, step)
		if err != nil {
			return nil, errors.WithMessagef(err, "step %d (%s at block %d)", i, step.Call, step.Block)
		}
		res.Steps++
		if receipt.Reverted {
			res.Reverted++
			metricSteps().AddWithLabel(1, map[string]string{"result": "reverted"})
		} else {
			metricSteps().AddWithLabel(1, map[string]string{"result": "ok"})
		}
		if step.Revert != "" && (!receipt.Reverted || receipt.Reason != step.Revert) {
			return nil, errors.Errorf("step %d (%s at block %d): expected revert %q, got %q", i, step.Call, step.Block, step.Revert, receipt.Reason)
		}
		if step.Revert == "" && receipt.Reverted {
			logger.Info("step reverted", "step", i, "call", step.Call, "from", step.From, "reason", receipt.Reason)
		}
		pending = append(pending, receipt)
	}

	if open {
		if err := res.emit(sink, rt.BlockNumber(), rt.BlockTime(), pending); err != nil {
			return nil, err
		}
	}
	if s.EndBlock > rt.BlockNumber() {
		if err := rt.SetBlock(s.EndBlock, s.BlockTime(s.EndBlock)); err != nil {
			return nil, err
		}
		if err := res.emit(sink, rt.BlockNumber(), rt.BlockTime(), nil); err != nil {
			return nil, err
		}
	}
	logger.Info("scenario replayed", "blocks", res.Blocks, "steps", res.Steps, "reverted", res.Reverted, "last", res.Last)
	return res, nil
}

func (r *Result) emit(sink Sink, number, time uint64, receipts tx.Receipts) error {
	if err := sink.Block(number, time, receipts); err != nil {
		return errors.WithMessagef(err, "block %d", number)
	}
	r.Blocks++
	r.Last = number
	metricBlock().Set(int64(number))
	return nil
}

func runStep(rt *runtime.Runtime, stack *genesis.Stack, step *Step) (*tx.Receipt, error) {
	fn, err := calls[step.Call](stack, step)
	if err != nil {
		return nil, err
	}
	return rt.Exec(step.From.Address(), fn)
}
