// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/compounder/api/events"
	"github.com/vechain/compounder/co"
	"github.com/vechain/compounder/logdb"
	"github.com/vechain/compounder/thor"
	"github.com/vechain/compounder/tx"
)

var (
	vaultAddr = thor.NameToAddress("vault")
	aggAddr   = thor.NameToAddress("aggregator")
	alice     = thor.NameToAddress("alice")
)

type testServer struct {
	ts     *httptest.Server
	db     *logdb.LogDB
	w      *logdb.Writer
	signal *co.Signal
	subs   *Subscriptions
}

func newTestServer(t *testing.T) *testServer {
	db, err := logdb.NewMem()
	require.NoError(t, err)

	s := &testServer{db: db, w: db.NewWriter(), signal: &co.Signal{}}
	s.subs = New(db, s.signal, []string{"*"})
	router := mux.NewRouter()
	s.subs.Mount(router, "/subscriptions")
	s.ts = httptest.NewServer(router)
	t.Cleanup(func() {
		s.ts.Close()
		s.subs.Close()
		db.Close()
	})
	return s
}

// commit writes one block with a vault deposit and an aggregator harvest.
func (s *testServer) commit(t *testing.T, block uint32) {
	require.NoError(t, s.w.Write(block, uint64(block)*12, tx.Receipts{{
		Origin: alice,
		Events: tx.Events{
			tx.NewEvent(vaultAddr, "Deposit", []thor.Bytes32{tx.AddressTopic(alice)}, big.NewInt(int64(block)), big.NewInt(0)),
			tx.NewEvent(aggAddr, "ConversionToLOOKS", nil, big.NewInt(1), big.NewInt(2)),
		},
	}}))
	require.NoError(t, s.w.Commit())
	s.signal.Broadcast()
}

func (s *testServer) dial(t *testing.T, query string) *websocket.Conn {
	u := url.URL{Scheme: "ws", Host: strings.TrimPrefix(s.ts.URL, "http://"), Path: "/subscriptions/events", RawQuery: query}
	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) *events.FilteredEvent {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev events.FilteredEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return &ev
}

func TestSubscribeFromPosition(t *testing.T) {
	s := newTestServer(t)
	s.commit(t, 1)
	s.commit(t, 2)

	conn := s.dial(t, "pos=1&addr="+vaultAddr.String())
	ev := readEvent(t, conn)
	assert.Equal(t, uint32(2), ev.Meta.BlockNumber)
	assert.Equal(t, "Deposit", ev.Event)
	assert.Equal(t, vaultAddr, ev.Address)

	s.commit(t, 3)
	ev = readEvent(t, conn)
	assert.Equal(t, uint32(3), ev.Meta.BlockNumber)
	assert.Equal(t, big.NewInt(3), (*big.Int)(ev.Data[0]))
}

func TestSubscribeByEventName(t *testing.T) {
	s := newTestServer(t)
	s.commit(t, 1)

	// without pos only later blocks are streamed
	conn := s.dial(t, "event=ConversionToLOOKS")
	s.commit(t, 2)

	ev := readEvent(t, conn)
	assert.Equal(t, uint32(2), ev.Meta.BlockNumber)
	assert.Equal(t, aggAddr, ev.Address)
	assert.Equal(t, uint32(1), ev.Meta.LogIndex)
}

func TestSubscribeBadRequest(t *testing.T) {
	s := newTestServer(t)
	for _, q := range []string{"addr=0x01", "pos=abc", "t1=0xzz"} {
		res, err := http.Get(s.ts.URL + "/subscriptions/events?" + q) //#nosec G107
		require.NoError(t, err)
		body, _ := io.ReadAll(res.Body)
		res.Body.Close()
		assert.Equal(t, http.StatusBadRequest, res.StatusCode, string(body))
	}
}
