// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gopkg.in/cheggaaa/pb.v1"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/compounder/api"
	"github.com/vechain/compounder/api/admin"
	"github.com/vechain/compounder/co"
	"github.com/vechain/compounder/genesis"
	"github.com/vechain/compounder/metrics"
	"github.com/vechain/compounder/scenario"
	"github.com/vechain/compounder/state"
	"github.com/vechain/compounder/thor"
)

func loadScenario(ctx *cli.Context) (*scenario.Scenario, error) {
	path := ctx.String(configFlag.Name)
	if path == "" {
		return nil, errors.Errorf("--%s required", configFlag.Name)
	}
	return scenario.Load(path)
}

func runAction(ctx *cli.Context) error {
	defer func() { logger.Info("exited") }()

	logLevel, err := initLogger(ctx)
	if err != nil {
		return err
	}
	sc, err := loadScenario(ctx)
	if err != nil {
		return err
	}
	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}

	store, logDB, err := openDatabases(ctx.String(dataDirFlag.Name))
	if err != nil {
		return err
	}
	defer func() { logger.Info("closing state database..."); store.Close() }()
	defer func() { logger.Info("closing log database..."); logDB.Close() }()

	head, err := scenario.ReadHead(store)
	if err != nil {
		return err
	}
	if head != nil {
		return errors.Errorf("data dir already holds a replay up to block %d", head.Number)
	}

	st := state.New(store)
	rt := genesis.NewRuntime(st, sc.Genesis)
	stack := genesis.Bind(st, sc.Genesis)

	var (
		committed co.Signal
		health    = admin.NewHealth()
		apiLogs   atomic.Bool
	)
	apiLogs.Store(ctx.Bool(enableAPILogsFlag.Name))

	exitCtx, cancel := context.WithCancel(handleExitSignal())
	group, groupCtx := errgroup.WithContext(exitCtx)
	defer func() {
		cancel()
		group.Wait()
	}()

	serving := false
	if addr := ctx.String(apiAddrFlag.Name); addr != "" {
		handler, closeSubs := api.New(rt, stack, logDB, &committed, api.Options{
			AllowedOrigins:       ctx.String(apiCorsFlag.Name),
			LogsLimit:            ctx.Uint64(apiLogsLimitFlag.Name),
			PprofOn:              ctx.Bool(pprofFlag.Name),
			EnableMetrics:        ctx.Bool(enableMetricsFlag.Name),
			EnableReqLogger:      &apiLogs,
			SlowQueriesThreshold: time.Duration(ctx.Uint64(apiSlowQueriesThresholdFlag.Name)) * time.Millisecond,
			Log5xxErrors:         ctx.Bool(apiLog5xxErrorsFlag.Name),
		})
		defer closeSubs()

		url, err := startAPIServer(groupCtx, group, addr, handler)
		if err != nil {
			return err
		}
		logger.Info("API server started", "url", url)
		serving = true
	}

	if ctx.Bool(enableAdminFlag.Name) {
		url, closeAdmin, err := api.StartAdminServer(ctx.String(adminAddrFlag.Name), logLevel, &apiLogs, health)
		if err != nil {
			return errors.Wrap(err, "start admin server")
		}
		defer func() { logger.Info("stopping admin server..."); closeAdmin() }()
		logger.Info("admin server started", "url", url)
	}

	bar := pb.New64(int64(sc.LastBlock() - sc.Genesis.Block)).
		SetMaxWidth(90).
		Start()
	defer func() { bar.NotPrint = true }()

	rec := scenario.NewRecorder(rt, store, logDB, &committed)
	rec.OnCommit(func(number uint64, root thor.Bytes32) {
		health.Committed(number, root)
		bar.Set64(int64(number - sc.Genesis.Block))
	})

	res, err := scenario.Replay(groupCtx, sc, rt, stack, rec)
	if err != nil {
		return err
	}
	bar.Finish()
	health.Replayed()
	logger.Info("replay done", "blocks", res.Blocks, "steps", res.Steps, "reverted", res.Reverted, "head", res.Last)

	if !serving {
		return nil
	}
	logger.Info("serving the replayed state, interrupt to exit")
	return group.Wait()
}

// startAPIServer serves handler on addr until ctx is done.
func startAPIServer(ctx context.Context, group *errgroup.Group, addr string, handler http.Handler) (string, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", errors.Wrapf(err, "listen API addr [%v]", addr)
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: time.Second, ReadTimeout: 5 * time.Second}

	group.Go(func() error {
		if err := srv.Serve(listener); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		logger.Info("stopping API server...")
		return srv.Close()
	})
	return "http://" + listener.Addr().String(), nil
}
