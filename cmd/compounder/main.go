// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// compounder replays staking scenarios against the emission pool, the
// fee-sharing vault and the auto-compounding aggregator.
package main

import (
	"fmt"
	"os"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/compounder/log"
)

var (
	version   string
	gitCommit string
	gitTag    string

	logger = log.WithContext("pkg", "compounder")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "compounder",
		Usage:     "Staking, fee-sharing and auto-compounding simulator",
		Copyright: "2025 VeChain Foundation <https://vechain.org/>",
		Commands: []cli.Command{
			{
				Name:  "run",
				Usage: "deploy the stack and replay a scenario",
				Flags: []cli.Flag{
					configFlag,
					dataDirFlag,
					apiAddrFlag,
					apiCorsFlag,
					apiLogsLimitFlag,
					apiSlowQueriesThresholdFlag,
					apiLog5xxErrorsFlag,
					enableAPILogsFlag,
					pprofFlag,
					verbosityFlag,
					logFormatFlag,
					enableMetricsFlag,
					enableAdminFlag,
					adminAddrFlag,
				},
				Action: runAction,
			},
			{
				Name:  "dump",
				Usage: "print the committed state of a data dir",
				Flags: []cli.Flag{
					configFlag,
					dataDirFlag,
					verbosityFlag,
				},
				Action: dumpAction,
			},
			{
				Name:   "calls",
				Usage:  "list the calls a scenario step may make",
				Action: callsAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
