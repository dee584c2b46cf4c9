package main

import (
	"os"

	midenbridge "github.com/shieldedlabs/midenbridge"
	"github.com/urfave/cli/v2"
)

func versionCmd(*cli.Context) error {
	midenbridge.PrintVersion(os.Stdout)
	return nil
}
