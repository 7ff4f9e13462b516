// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/rlp"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/vechain/compounder/log"
	"github.com/vechain/compounder/thor"
	"github.com/vechain/compounder/tx"
)

var logger = log.WithContext("pkg", "logdb")

const eventColumns = "seq, blockTime, txID, txOrigin, address, name, topics, data"

// LogDB indexes contract events by block, address and topics.
type LogDB struct {
	path          string
	db            *sql.DB
	driverVersion string
	stmtCache     *stmtCache
}

// New create or open log db at given path.
func New(path string) (logDB *LogDB, err error) {
	dsn := path
	if path != ":memory:" {
		dsn += "?_journal_mode=WAL"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	defer func() {
		if logDB == nil {
			db.Close()
		}
	}()

	// sqlite in-memory databases are per connection
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(eventTableSchema); err != nil {
		return nil, errors.Wrap(err, "create schema")
	}

	driverVer, _, _ := sqlite3.Version()
	logger.Debug("log db opened", "path", path, "sqlite", driverVer)
	return &LogDB{
		path:          path,
		db:            db,
		driverVersion: driverVer,
		stmtCache:     newStmtCache(db),
	}, nil
}

// NewMem create a log db in ram.
func NewMem() (*LogDB, error) {
	return New(":memory:")
}

// Close close the log db.
func (db *LogDB) Close() error {
	db.stmtCache.Clear()
	return db.db.Close()
}

func (db *LogDB) Path() string {
	return db.path
}

// FilterEvents returns events matching the filter. A nil filter returns everything in ascending order.
func (db *LogDB) FilterEvents(ctx context.Context, filter *EventFilter) ([]*Event, error) {
	if filter == nil {
		return db.queryEvents(ctx, "SELECT "+eventColumns+" FROM event ORDER BY seq ASC")
	}
	metricsHandleEventsFilter(filter)

	var args []any
	stmt := "SELECT " + eventColumns + " FROM event WHERE 1"
	if filter.Range != nil {
		args = append(args, int64(newSequence(filter.Range.From, 0)))
		stmt += " AND seq >= ?"
		if filter.Range.To >= filter.Range.From {
			args = append(args, int64(newSequence(filter.Range.To, math.MaxInt32)))
			stmt += " AND seq <= ?"
		}
	}

	for i, criteria := range filter.CriteriaSet {
		if i == 0 {
			stmt += " AND (( 1"
		} else {
			stmt += " OR ( 1"
		}
		if criteria.Address != nil {
			args = append(args, criteria.Address.Bytes())
			stmt += " AND address = ?"
		}
		if criteria.TxOrigin != nil {
			args = append(args, criteria.TxOrigin.Bytes())
			stmt += " AND txOrigin = ?"
		}
		for j, topic := range criteria.Topics {
			if topic != nil {
				args = append(args, topic.Bytes())
				stmt += fmt.Sprintf(" AND topic%d = ?", j)
			}
		}
		stmt += " )"
		if i == len(filter.CriteriaSet)-1 {
			stmt += ")"
		}
	}

	if filter.Order == DESC {
		stmt += " ORDER BY seq DESC"
	} else {
		stmt += " ORDER BY seq ASC"
	}

	if filter.Options != nil {
		stmt += " LIMIT ?, ?"
		args = append(args, filter.Options.Offset, filter.Options.Limit)
	}
	return db.queryEvents(ctx, stmt, args...)
}

// NewestBlockNumber returns the highest block with an indexed event, zero when empty.
func (db *LogDB) NewestBlockNumber() (uint32, error) {
	var seq sql.NullInt64
	if err := db.stmtCache.MustPrepare("SELECT MAX(seq) FROM event").QueryRow().Scan(&seq); err != nil {
		return 0, err
	}
	if !seq.Valid {
		return 0, nil
	}
	return sequence(seq.Int64).BlockNumber(), nil
}

func (db *LogDB) queryEvents(ctx context.Context, stmt string, args ...any) ([]*Event, error) {
	prepared, err := db.stmtCache.Prepare(stmt)
	if err != nil {
		return nil, err
	}
	rows, err := prepared.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		var (
			seq       int64
			blockTime uint64
			txID      []byte
			txOrigin  []byte
			address   []byte
			name      string
			topics    []byte
			data      []byte
		)
		if err := rows.Scan(&seq, &blockTime, &txID, &txOrigin, &address, &name, &topics, &data); err != nil {
			return nil, err
		}
		event := &Event{
			BlockNumber: sequence(seq).BlockNumber(),
			Index:       sequence(seq).Index(),
			BlockTime:   blockTime,
			TxID:        thor.BytesToBytes32(txID),
			TxOrigin:    thor.BytesToAddress(txOrigin),
			Address:     thor.BytesToAddress(address),
			Name:        name,
		}
		if err := rlp.DecodeBytes(topics, &event.Topics); err != nil {
			return nil, errors.Wrap(err, "decode topics")
		}
		if err := rlp.DecodeBytes(data, &event.Data); err != nil {
			return nil, errors.Wrap(err, "decode data")
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// NewWriter creates a log writer. Writes are buffered until Commit.
func (db *LogDB) NewWriter() *Writer {
	return &Writer{db: db}
}

// Writer buffers events of consecutive blocks and flushes them in one sql transaction.
type Writer struct {
	db         *LogDB
	pending    []*Event
	lastBlock  uint32
	blockIndex uint32

	// position after the last commit, restored on rollback
	committedBlock uint32
	committedIndex uint32
}

// Write appends the events of non-reverted receipts of a block.
// Receipts of one block may be written in several calls.
func (w *Writer) Write(blockNumber uint32, blockTime uint64, receipts tx.Receipts) error {
	if blockNumber < w.lastBlock {
		return errors.Errorf("block %d written after %d", blockNumber, w.lastBlock)
	}
	if blockNumber > w.lastBlock {
		w.blockIndex = 0
		w.lastBlock = blockNumber
	}
	for _, r := range receipts {
		if r.Reverted {
			continue
		}
		for _, ev := range r.Events {
			w.pending = append(w.pending, &Event{
				BlockNumber: blockNumber,
				Index:       w.blockIndex,
				BlockTime:   blockTime,
				TxID:        r.TxID,
				TxOrigin:    r.Origin,
				Address:     ev.Address,
				Name:        ev.Name,
				Topics:      ev.Topics,
				Data:        ev.Data,
			})
			w.blockIndex++
		}
	}
	return nil
}

// UncommittedCount returns the number of buffered events.
func (w *Writer) UncommittedCount() int {
	return len(w.pending)
}

// Commit flushes buffered events.
func (w *Writer) Commit() error {
	if len(w.pending) == 0 {
		return nil
	}
	// prepared ahead of the transaction, the in-memory db has a single connection
	insert, err := w.db.stmtCache.Prepare(
		"INSERT OR REPLACE INTO event(seq, blockTime, txID, txOrigin, address, name, topic0, topic1, topic2, topic3, topics, data) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	err = w.exec(func(stx *sql.Tx) error {
		stmt := stx.Stmt(insert)
		for _, ev := range w.pending {
			topics, err := rlp.EncodeToBytes(ev.Topics)
			if err != nil {
				return err
			}
			data, err := rlp.EncodeToBytes(ev.Data)
			if err != nil {
				return err
			}
			var indexed [4][]byte
			for i := 0; i < len(indexed) && i < len(ev.Topics); i++ {
				indexed[i] = ev.Topics[i].Bytes()
			}
			if _, err := stmt.Exec(
				int64(newSequence(ev.BlockNumber, ev.Index)),
				ev.BlockTime,
				ev.TxID.Bytes(),
				ev.TxOrigin.Bytes(),
				ev.Address.Bytes(),
				ev.Name,
				indexed[0],
				indexed[1],
				indexed[2],
				indexed[3],
				topics,
				data,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "commit events")
	}
	metricWrittenEvents().Add(int64(len(w.pending)))
	w.pending = w.pending[:0]
	w.committedBlock, w.committedIndex = w.lastBlock, w.blockIndex
	return nil
}

// Rollback drops buffered events.
func (w *Writer) Rollback() {
	w.pending = w.pending[:0]
	w.lastBlock, w.blockIndex = w.committedBlock, w.committedIndex
}

// Truncate removes every committed event at or above blockNumber.
func (w *Writer) Truncate(blockNumber uint32) error {
	w.pending = w.pending[:0]
	w.lastBlock, w.blockIndex = 0, 0
	w.committedBlock, w.committedIndex = 0, 0
	return w.exec(func(stx *sql.Tx) error {
		_, err := stx.Exec("DELETE FROM event WHERE seq >= ?", int64(newSequence(blockNumber, 0)))
		return err
	})
}

func (w *Writer) exec(proc func(*sql.Tx) error) error {
	stx, err := w.db.db.Begin()
	if err != nil {
		return err
	}
	if err := proc(stx); err != nil {
		_ = stx.Rollback()
		return err
	}
	return stx.Commit()
}
