// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events_test

import (
	"bytes"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/compounder/api/events"
	"github.com/vechain/compounder/logdb"
	"github.com/vechain/compounder/thor"
	"github.com/vechain/compounder/tx"
)

const defaultLogLimit uint64 = 15

var (
	ts        *httptest.Server
	vaultAddr = thor.NameToAddress("vault")
	poolAddr  = thor.NameToAddress("pool")
	alice     = thor.NameToAddress("alice")
)

func initEventServer(t *testing.T, limit uint64) {
	db, err := logdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	w := db.NewWriter()
	for n := uint32(1); n <= 10; n++ {
		require.NoError(t, w.Write(n, uint64(n)*12, tx.Receipts{{
			TxID:   thor.BytesToBytes32([]byte{byte(n)}),
			Origin: alice,
			Events: tx.Events{
				tx.NewEvent(vaultAddr, "Deposit", []thor.Bytes32{tx.AddressTopic(alice)}, big.NewInt(int64(n)), big.NewInt(0)),
				tx.NewEvent(poolAddr, "Compound", []thor.Bytes32{tx.AddressTopic(vaultAddr)}, big.NewInt(30)),
			},
		}}))
	}
	require.NoError(t, w.Commit())

	router := mux.NewRouter()
	events.New(db, limit).Mount(router, "/events")
	ts = httptest.NewServer(router)
}

func httpPost(t *testing.T, url string, body any) ([]byte, int) {
	data, err := json.Marshal(body)
	require.NoError(t, err)
	res, err := http.Post(url, "application/x-www-form-urlencoded", bytes.NewReader(data)) //#nosec G107
	require.NoError(t, err)
	defer res.Body.Close()
	r, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return r, res.StatusCode
}

func filter(t *testing.T, body any) []*events.FilteredEvent {
	res, status := httpPost(t, ts.URL+"/events", body)
	require.Equal(t, http.StatusOK, status, string(res))
	var fes []*events.FilteredEvent
	require.NoError(t, json.Unmarshal(res, &fes))
	return fes
}

func TestEvents(t *testing.T) {
	initEventServer(t, defaultLogLimit)
	defer ts.Close()

	for name, tt := range map[string]func(*testing.T){
		"byEventName":     testFilterByEventName,
		"byRangeAndOrder": testFilterByRangeAndOrder,
		"overLimit":       testOverLimit,
		"badRequests":     testBadRequests,
	} {
		t.Run(name, tt)
	}
}

func testFilterByEventName(t *testing.T) {
	fes := filter(t, &events.EventFilter{
		CriteriaSet: []*events.EventCriteria{{Address: &vaultAddr, Event: "Deposit"}},
		Options:     &events.Options{Limit: ptr(uint64(3))},
	})
	require.Len(t, fes, 3)

	first := fes[0]
	assert.Equal(t, vaultAddr, first.Address)
	assert.Equal(t, "Deposit", first.Event)
	assert.Equal(t, []thor.Bytes32{tx.EventID("Deposit"), tx.AddressTopic(alice)}, first.Topics)
	require.Len(t, first.Data, 2)
	assert.Equal(t, big.NewInt(1), (*big.Int)(first.Data[0]))
	assert.Equal(t, uint32(1), first.Meta.BlockNumber)
	assert.Equal(t, uint64(12), first.Meta.BlockTimestamp)
	assert.Equal(t, alice, first.Meta.TxOrigin)
	assert.Equal(t, uint32(0), first.Meta.LogIndex)
}

func testFilterByRangeAndOrder(t *testing.T) {
	fes := filter(t, &events.EventFilter{
		CriteriaSet: []*events.EventCriteria{{Event: "Compound"}},
		Range:       &events.Range{From: ptr(uint32(4))},
		Order:       logdb.DESC,
	})
	require.Len(t, fes, 7)
	assert.Equal(t, uint32(10), fes[0].Meta.BlockNumber)
	assert.Equal(t, uint32(1), fes[0].Meta.LogIndex)
	assert.Equal(t, uint32(4), fes[6].Meta.BlockNumber)

	fes = filter(t, &events.EventFilter{
		Range: &events.Range{From: ptr(uint32(2)), To: ptr(uint32(3))},
	})
	assert.Len(t, fes, 4)
}

func testOverLimit(t *testing.T) {
	// 20 events in total, above the limit of 15
	res, status := httpPost(t, ts.URL+"/events", &events.EventFilter{})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Contains(t, string(res), "please use pagination")

	res, status = httpPost(t, ts.URL+"/events", &events.EventFilter{Options: &events.Options{Limit: ptr(uint64(16))}})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Contains(t, string(res), "options.limit exceeds the maximum allowed value of 15")

	fes := filter(t, &events.EventFilter{Options: &events.Options{Offset: 10, Limit: ptr(uint64(15))}})
	assert.Len(t, fes, 10)
}

func testBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown field", `{"foo": 1}`, "body: json: unknown field \"foo\""},
		{"null criterion", `{"criteriaSet": [null]}`, "criteriaSet[0]: null not allowed"},
		{"inverted range", `{"range": {"from": 5, "to": 4}}`, "filter.Range.To must be greater than or equal to filter.Range.From"},
		{"bad order", `{"order": "up"}`, "order must be either 'asc' or 'desc', got 'up'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := http.Post(ts.URL+"/events", "application/json", bytes.NewReader([]byte(tt.body))) //#nosec G107
			require.NoError(t, err)
			defer res.Body.Close()
			body, err := io.ReadAll(res.Body)
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, res.StatusCode)
			assert.Equal(t, tt.want, string(bytes.TrimSpace(body)))
		})
	}
}

func ptr[T any](v T) *T {
	return &v
}
