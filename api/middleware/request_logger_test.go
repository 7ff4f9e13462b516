// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/compounder/log"
)

func respond(status int, delay time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(delay)
		if status != 0 {
			w.WriteHeader(status)
		}
		w.Write([]byte(http.StatusText(status)))
	}
}

// serve runs one POST through the middleware and returns the decoded log records.
func serve(t *testing.T, h http.Handler, enabled bool, slow time.Duration, log5xx bool) (*httptest.ResponseRecorder, []map[string]any) {
	var buf bytes.Buffer
	level := &slog.LevelVar{}
	handler, err := log.NewHandler(&buf, log.FormatJSON, level, false)
	require.NoError(t, err)

	var on atomic.Bool
	on.Store(enabled)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "http://example.com/vault/accounts", strings.NewReader(`{"from":"alice"}`))
	RequestLoggerMiddleware(log.NewLogger(handler), &on, slow, log5xx)(h).ServeHTTP(rr, req)

	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		records = append(records, rec)
	}
	return rr, records
}

func TestRequestLogger(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		enabled bool
		slow    time.Duration
		log5xx  bool
		status  int
		logged  bool
	}{
		{"enabled", respond(http.StatusOK, 0), true, 0, false, http.StatusOK, true},
		{"disabled", respond(http.StatusOK, 0), false, 0, false, http.StatusOK, false},
		{"slow request", respond(http.StatusOK, 15*time.Millisecond), false, 5 * time.Millisecond, false, http.StatusOK, true},
		{"fast request", respond(http.StatusOK, 0), false, time.Second, false, http.StatusOK, false},
		{"server error", respond(http.StatusInternalServerError, 0), false, 0, true, http.StatusInternalServerError, true},
		{"unavailable", respond(http.StatusServiceUnavailable, 0), false, 0, true, http.StatusServiceUnavailable, true},
		{"server error unlogged", respond(http.StatusInternalServerError, 0), false, 0, false, http.StatusInternalServerError, false},
		{"client error", respond(http.StatusBadRequest, 0), false, 0, true, http.StatusBadRequest, false},
		{"implicit ok", respond(0, 0), false, 0, true, http.StatusOK, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, records := serve(t, tt.handler, tt.enabled, tt.slow, tt.log5xx)
			assert.Equal(t, tt.status, rr.Code)
			if !tt.logged {
				assert.Empty(t, records)
				return
			}
			require.Len(t, records, 1)
			rec := records[0]
			assert.Equal(t, "API Request", rec["msg"])
			assert.Equal(t, "http://example.com/vault/accounts", rec["URI"])
			assert.Equal(t, "POST", rec["Method"])
			assert.Equal(t, float64(tt.status), rec["Status"])
			assert.Equal(t, `{"from":"alice"}`, rec["Body"])
			assert.Contains(t, rec, "Timestamp")
			assert.Contains(t, rec, "DurationMs")
		})
	}
}

func TestRequestLoggerKeepsBody(t *testing.T) {
	var got string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		buf.ReadFrom(r.Body)
		got = buf.String()
	})
	_, records := serve(t, h, true, 0, false)
	assert.Equal(t, `{"from":"alice"}`, got)
	assert.Len(t, records, 1)
}
