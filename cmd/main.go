package main

import (
	"os"

	midenbridge "github.com/shieldedlabs/midenbridge"
	"github.com/shieldedlabs/midenbridge/common"
	"github.com/shieldedlabs/midenbridge/config"
	"github.com/shieldedlabs/midenbridge/log"
	"github.com/urfave/cli/v2"
)

const appName = "midenbridge"

var (
	configFileFlag = cli.StringFlag{
		Name:     config.FlagCfg,
		Aliases:  []string{"c"},
		Usage:    "Configuration file",
		Required: false,
	}
	componentsFlag = cli.StringSliceFlag{
		Name:     config.FlagComponents,
		Aliases:  []string{"co"},
		Usage:    "List of components to run",
		Required: false,
		Value: cli.NewStringSlice(
			common.DEPOSIT_RELAYER, common.EXIT_RELAYER, common.RPC,
		),
	}
)

func main() {
	app := cli.NewApp()
	app.Name = appName
	app.Version = midenbridge.Version
	flags := []cli.Flag{
		&configFileFlag,
		&componentsFlag,
	}
	app.Commands = []*cli.Command{
		{
			Name:    "version",
			Aliases: []string{},
			Usage:   "Application version and build",
			Action:  versionCmd,
		},
		{
			Name:    "run",
			Aliases: []string{},
			Usage:   "Run the bridge node",
			Action:  start,
			Flags:   flags,
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
		os.Exit(1)
	}
}
