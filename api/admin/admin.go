// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package admin serves the operator endpoints: log verbosity, request logging
// and replay health.
package admin

import (
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/vechain/compounder/log"
)

var logger = log.WithContext("pkg", "admin")

func New(logLevel *slog.LevelVar, apiLogs *atomic.Bool, health *Health) http.HandlerFunc {
	router := mux.NewRouter()
	sub := router.PathPrefix("/admin").Subrouter()

	newLogLevel(logLevel).Mount(sub, "/loglevel")
	newAPILogs(apiLogs).Mount(sub, "/apilogs")
	if health != nil {
		health.Mount(sub, "/health")
	}

	handler := handlers.CompressHandler(router)
	return handler.ServeHTTP
}
