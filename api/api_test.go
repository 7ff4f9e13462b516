// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/compounder/co"
	"github.com/vechain/compounder/genesis"
	"github.com/vechain/compounder/logdb"
	"github.com/vechain/compounder/metrics"
	"github.com/vechain/compounder/state"
)

func init() {
	metrics.InitializePrometheusMetrics()
}

func newServer(t *testing.T) *httptest.Server {
	cfg := genesis.NewDevConfig()
	st := state.New(nil)
	rt := genesis.NewRuntime(st, cfg)
	stack := genesis.Bind(st, cfg)
	_, err := stack.Deploy(rt, cfg)
	require.NoError(t, err)

	db, err := logdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	handler, closeFn := New(rt, stack, db, &co.Signal{}, Options{
		AllowedOrigins: "*",
		LogsLimit:      100,
		EnableMetrics:  true,
	})
	ts := httptest.NewServer(handler)
	t.Cleanup(func() {
		closeFn()
		ts.Close()
	})
	return ts
}

func httpGet(t *testing.T, url string) ([]byte, int) {
	res, err := http.Get(url) //#nosec G107
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return body, res.StatusCode
}

func TestMetricsMiddleware(t *testing.T) {
	ts := newServer(t)

	_, code := httpGet(t, ts.URL+"/vault")
	assert.Equal(t, http.StatusOK, code)
	_, code = httpGet(t, ts.URL+"/vault/accounts/0x")
	assert.Equal(t, http.StatusBadRequest, code)

	body, _ := httpGet(t, ts.URL+"/metrics")
	parser := expfmt.TextParser{}
	families, err := parser.TextToMetricFamilies(bytes.NewReader(body))
	require.NoError(t, err)

	counts := map[string]float64{}
	for _, m := range families["compounder_api_request_count"].GetMetric() {
		labels := map[string]string{}
		for _, l := range m.GetLabel() {
			labels[l.GetName()] = l.GetValue()
		}
		assert.Equal(t, "GET", labels["method"])
		counts[labels["name"]+":"+labels["code"]] += m.GetCounter().GetValue()
	}
	assert.Equal(t, float64(1), counts["vault:200"])
	assert.Equal(t, float64(1), counts["vault_accounts_address:400"])
}

func TestWebsocketMetrics(t *testing.T) {
	ts := newServer(t)

	u := url.URL{Scheme: "ws", Host: strings.TrimPrefix(ts.URL, "http://"), Path: "/subscriptions/events"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.NoError(t, err)
	defer conn.Close()

	body, _ := httpGet(t, ts.URL+"/metrics")
	parser := expfmt.TextParser{}
	families, err := parser.TextToMetricFamilies(bytes.NewReader(body))
	require.NoError(t, err)

	m := families["compounder_api_active_websocket_count"].GetMetric()
	require.Len(t, m, 1)
	assert.Equal(t, float64(1), m[0].GetGauge().GetValue())
	assert.Equal(t, "name", m[0].GetLabel()[0].GetName())
	assert.Equal(t, "subscriptions_events", m[0].GetLabel()[0].GetValue())
}
