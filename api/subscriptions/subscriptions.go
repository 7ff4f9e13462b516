// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package subscriptions streams newly committed events over websocket.
package subscriptions

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/vechain/compounder/api/events"
	"github.com/vechain/compounder/api/restutil"
	"github.com/vechain/compounder/co"
	"github.com/vechain/compounder/log"
	"github.com/vechain/compounder/logdb"
	"github.com/vechain/compounder/thor"
	"github.com/vechain/compounder/tx"
)

var logger = log.WithContext("pkg", "subscriptions")

const (
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 7) / 10
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Events read per query.
	readLimit = 1000
)

type Subscriptions struct {
	db        *logdb.LogDB
	committed *co.Signal
	upgrader  *websocket.Upgrader
	done      chan struct{}
	wg        sync.WaitGroup
}

// New creates the subscriptions handler. committed is broadcast after every
// commit into db.
func New(db *logdb.LogDB, committed *co.Signal, allowedOrigins []string) *Subscriptions {
	return &Subscriptions{
		db:        db,
		committed: committed,
		upgrader: &websocket.Upgrader{
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
		done: make(chan struct{}),
	}
}

// parseCriteria reads addr, event, t0..t3 and origin query params.
func parseCriteria(req *http.Request) (*logdb.EventCriteria, error) {
	q := req.URL.Query()
	c := &logdb.EventCriteria{}
	if s := q.Get("addr"); s != "" {
		addr, err := thor.ParseAddress(s)
		if err != nil {
			return nil, errors.WithMessage(err, "addr")
		}
		c.Address = addr
	}
	if s := q.Get("origin"); s != "" {
		addr, err := thor.ParseAddress(s)
		if err != nil {
			return nil, errors.WithMessage(err, "origin")
		}
		c.TxOrigin = addr
	}
	for i := range c.Topics {
		name := "t" + strconv.Itoa(i)
		if s := q.Get(name); s != "" {
			topic, err := thor.ParseBytes32(s)
			if err != nil {
				return nil, errors.WithMessage(err, name)
			}
			c.Topics[i] = &topic
		}
	}
	if s := q.Get("event"); s != "" {
		id := tx.EventID(s)
		c.Topics[0] = &id
	}
	return c, nil
}

// parsePosition returns the last block already seen by the client.
// Without pos the stream starts after the newest block.
func (s *Subscriptions) parsePosition(req *http.Request) (uint32, error) {
	str := req.URL.Query().Get("pos")
	if str == "" {
		return s.db.NewestBlockNumber()
	}
	pos, err := strconv.ParseUint(str, 10, 32)
	if err != nil {
		return 0, restutil.BadRequest(errors.WithMessage(err, "pos"))
	}
	return uint32(pos), nil
}

func (s *Subscriptions) handleSubscribeEvents(w http.ResponseWriter, req *http.Request) error {
	criteria, err := parseCriteria(req)
	if err != nil {
		return restutil.BadRequest(err)
	}
	pos, err := s.parsePosition(req)
	if err != nil {
		return err
	}

	conn, err := s.upgrader.Upgrade(w, req, nil)
	// since the conn is hijacked here, no error should be returned in lines below
	if err != nil {
		logger.Debug("upgrade to websocket", "err", err)
		return nil
	}

	s.wg.Add(1)
	defer s.wg.Done()
	defer conn.Close()

	if err := s.pipe(req.Context(), conn, criteria, pos); err != nil {
		logger.Debug("subscription closed", "err", err)
		msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error())
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	}
	return nil
}

func (s *Subscriptions) pipe(ctx context.Context, conn *websocket.Conn, criteria *logdb.EventCriteria, pos uint32) error {
	closed := make(chan struct{})
	// start read loop to handle close and pong
	go func() {
		defer close(closed)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	waiter := s.committed.NewWaiter()
	for {
		next, err := s.push(ctx, conn, criteria, pos)
		if err != nil {
			return err
		}
		if next != pos {
			pos = next
			// more may be pending
			continue
		}

		select {
		case <-s.done:
			return nil
		case <-closed:
			return nil
		case <-ctx.Done():
			return nil
		case <-waiter.C():
		case <-pingTicker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return nil
			}
		}
	}
}

// push writes events after pos and returns the block of the last one written.
func (s *Subscriptions) push(ctx context.Context, conn *websocket.Conn, criteria *logdb.EventCriteria, pos uint32) (uint32, error) {
	if pos == math.MaxUint32 {
		return pos, nil
	}
	evs, err := s.db.FilterEvents(ctx, &logdb.EventFilter{
		CriteriaSet: []*logdb.EventCriteria{criteria},
		Range:       &logdb.Range{From: pos + 1, To: math.MaxUint32},
		Options:     &logdb.Options{Limit: readLimit},
	})
	if err != nil {
		return pos, err
	}
	if len(evs) == readLimit {
		// drop the trailing block, it may be cut by the limit
		last := evs[len(evs)-1].BlockNumber
		for len(evs) > 0 && evs[len(evs)-1].BlockNumber == last {
			evs = evs[:len(evs)-1]
		}
		if len(evs) == 0 {
			return pos, errors.Errorf("block %d has more than %d matching events", last, readLimit)
		}
	}
	for _, ev := range evs {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(events.ConvertEvent(ev)); err != nil {
			return pos, err
		}
		pos = ev.BlockNumber
	}
	return pos, nil
}

// Close closes the subscriptions and waits for hijacked connections to finish.
func (s *Subscriptions) Close() {
	close(s.done)
	s.wg.Wait()
}

func (s *Subscriptions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/events").
		Methods(http.MethodGet).
		Name("WS /subscriptions/events").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleSubscribeEvents))
}
