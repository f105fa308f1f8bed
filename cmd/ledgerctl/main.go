package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

const defaultConfigName = "client_config.yaml"

var app = &cli.App{
	Name:  "ledgerctl",
	Usage: "manage a custodial ledger record",
	Flags: []cli.Flag{configFlag, endpointFlag, jsonFlag},
	Commands: []*cli.Command{
		commandKeygen,
		commandAddress,
		commandShow,
		commandHistory,
		commandInit,
		commandDeposit,
		commandWithdraw,
		commandAirdrop,
		commandDemo,
	},
}

// Commonly used command line flags.
var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Value:   defaultConfigName,
		Usage:   "YAML file holding the keypair and endpoint",
		EnvVars: []string{"LEDGERCTL_CONFIG"},
	}
	endpointFlag = &cli.StringFlag{
		Name:  "endpoint",
		Usage: "ledger API base URL, overrides the config file",
	}
	jsonFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "output JSON instead of human-readable format",
	}
)

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
