// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package admin

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/vechain/compounder/api/restutil"
	"github.com/vechain/compounder/thor"
)

type Head struct {
	Number      uint64       `json:"number"`
	Root        thor.Bytes32 `json:"root"`
	CommittedAt *time.Time   `json:"committedAt"`
}

type HealthStatus struct {
	Healthy  bool  `json:"healthy"`
	Head     *Head `json:"head"`
	Replayed bool  `json:"replayed"`
}

// Health tracks the replay progress of the scenario runner. It reports
// healthy once the whole scenario has been applied and committed.
type Health struct {
	lock        sync.RWMutex
	number      uint64
	root        thor.Bytes32
	committedAt time.Time
	replayed    bool
}

func NewHealth() *Health {
	return &Health{}
}

// Committed records a newly committed block.
func (h *Health) Committed(number uint64, root thor.Bytes32) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.number = number
	h.root = root
	h.committedAt = time.Now()
}

func (h *Health) Replayed() {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.replayed = true
}

func (h *Health) Status() *HealthStatus {
	h.lock.RLock()
	defer h.lock.RUnlock()

	head := &Head{Number: h.number, Root: h.root}
	if !h.committedAt.IsZero() {
		at := h.committedAt
		head.CommittedAt = &at
	}
	return &HealthStatus{
		Healthy:  h.replayed,
		Head:     head,
		Replayed: h.replayed,
	}
}

func (h *Health) handleGet(w http.ResponseWriter, _ *http.Request) error {
	status := h.Status()
	if !status.Healthy {
		w.Header().Set("Content-Type", restutil.JSONContentType)
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	return restutil.WriteJSON(w, status)
}

func (h *Health) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()
	sub.Path("").
		Methods(http.MethodGet).
		Name("GET /admin/health").
		HandlerFunc(restutil.WrapHandlerFunc(h.handleGet))
}
