// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/compounder/genesis"
	"github.com/vechain/compounder/kv"
	"github.com/vechain/compounder/scenario"
	"github.com/vechain/compounder/state"
)

var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

func dumpAction(ctx *cli.Context) error {
	if _, err := initLogger(ctx); err != nil {
		return err
	}
	sc, err := loadScenario(ctx)
	if err != nil {
		return err
	}
	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir == "" {
		return errors.Errorf("--%s required", dataDirFlag.Name)
	}
	store, logDB, err := openDatabases(dataDir)
	if err != nil {
		return err
	}
	defer store.Close()
	defer logDB.Close()

	return dump(os.Stdout, store, sc.Genesis)
}

// dump writes the snapshot of the committed head.
func dump(w io.Writer, store kv.Store, cfg *genesis.Config) error {
	head, err := scenario.ReadHead(store)
	if err != nil {
		return err
	}
	if head == nil {
		return errors.New("nothing committed")
	}
	stack := genesis.Bind(state.New(store), cfg)
	snap, err := scenario.TakeSnapshot(stack, cfg, head.Number)
	if err != nil {
		return err
	}
	dumpConfig.Fdump(w, snap)
	return nil
}

func callsAction(_ *cli.Context) error {
	names := scenario.Calls()
	sort.Strings(names)
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}
