// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/compounder/kv"
	"github.com/vechain/compounder/log"
	"github.com/vechain/compounder/logdb"
	"github.com/vechain/compounder/lvldb"
)

func readIntFromUInt64Flag(val uint64) (int, error) {
	if val > math.MaxInt {
		return 0, errors.Errorf("invalid value %d", val)
	}
	return int(val), nil
}

func useColor(f *os.File) bool {
	return (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) && os.Getenv("TERM") != "dumb"
}

func initLogger(ctx *cli.Context) (*slog.LevelVar, error) {
	lvl, err := readIntFromUInt64Flag(ctx.Uint64(verbosityFlag.Name))
	if err != nil {
		return nil, errors.Wrap(err, "parse verbosity flag")
	}
	level := &slog.LevelVar{}
	level.Set(log.FromLegacyLevel(lvl))

	handler, err := log.NewHandler(os.Stderr, ctx.String(logFormatFlag.Name), level, useColor(os.Stderr))
	if err != nil {
		return nil, err
	}
	log.SetDefault(log.NewLogger(handler))
	return level, nil
}

// handleExitSignal returns a context canceled on SIGINT or SIGTERM.
func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)

		sig := <-exitSignalCh
		logger.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}

// openDatabases opens the state store and the log db under dataDir, or in
// memory when dataDir is empty.
func openDatabases(dataDir string) (kv.Store, *logdb.LogDB, error) {
	if dataDir == "" {
		store, err := lvldb.NewMem()
		if err != nil {
			return nil, nil, err
		}
		logDB, err := logdb.NewMem()
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, logDB, nil
	}

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, nil, errors.Wrapf(err, "create data dir at '%v'", dataDir)
	}
	dir := filepath.Join(dataDir, "state.db")
	store, err := lvldb.New(dir, lvldb.Options{})
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open state database at '%v'", dir)
	}
	path := filepath.Join(dataDir, "logs.db")
	logDB, err := logdb.New(path)
	if err != nil {
		store.Close()
		return nil, nil, errors.Wrapf(err, "open log database at '%v'", path)
	}
	return store, logDB, nil
}
