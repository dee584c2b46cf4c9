package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	jRPC "github.com/0xPolygon/cdk-rpc/rpc"
	midenbridge "github.com/shieldedlabs/midenbridge"
	bridgecommon "github.com/shieldedlabs/midenbridge/common"
	"github.com/shieldedlabs/midenbridge/config"
	"github.com/shieldedlabs/midenbridge/depositsync"
	"github.com/shieldedlabs/midenbridge/exitsync"
	"github.com/shieldedlabs/midenbridge/ledger"
	"github.com/shieldedlabs/midenbridge/log"
	"github.com/shieldedlabs/midenbridge/midenclient"
	"github.com/shieldedlabs/midenbridge/rpc"
	"github.com/shieldedlabs/midenbridge/zcashwallet"
	"github.com/urfave/cli/v2"
)

func start(cliCtx *cli.Context) error {
	c, err := config.Load(cliCtx)
	if err != nil {
		return err
	}

	log.Init(c.Log)

	if c.Log.Environment == log.EnvironmentDevelopment {
		midenbridge.PrintVersion(os.Stdout)
		log.Info("Starting application")
	} else if c.Log.Environment == log.EnvironmentProduction {
		logVersion()
	}

	// Shared collaborators. All components need the ledger and the
	// source-chain wallet; a failure here is a configuration error and
	// the process must not start any relayer loop.
	claimLedger := createLedger(c.Ledger)
	wallet := createWallet(c.ZcashWallet)
	rollup := createRollupClient(c.MidenClient)

	scanner := depositsync.NewDepositScanner(
		log.WithFields("module", bridgecommon.DEPOSIT_RELAYER), wallet, c.DepositSync.BridgeAddress,
	)
	issuer := depositsync.NewMintIssuer(
		log.WithFields("module", bridgecommon.DEPOSIT_RELAYER), claimLedger, rollup,
	)

	components := cliCtx.StringSlice(config.FlagComponents)
	for _, component := range components {
		switch component {
		case bridgecommon.DEPOSIT_RELAYER:
			relayer := depositsync.New(
				log.WithFields("module", bridgecommon.DEPOSIT_RELAYER),
				c.DepositSync, scanner, issuer,
			)
			go relayer.Start(cliCtx.Context)

		case bridgecommon.EXIT_RELAYER:
			logger := log.WithFields("module", bridgecommon.EXIT_RELAYER)
			exitScanner := exitsync.NewExitScanner(logger, rollup, c.Common.TargetChainID)
			payer := exitsync.NewPayoutExecutor(logger, wallet)
			relayer := exitsync.New(logger, c.ExitSync, exitScanner, payer, claimLedger)
			go relayer.Start(cliCtx.Context)

		case bridgecommon.RPC:
			server := createRPC(c.RPC, scanner, issuer, claimLedger, wallet)
			go func() {
				if err := server.Start(); err != nil {
					log.Fatal(err)
				}
			}()
		}
	}

	waitSignal(nil)

	return nil
}

func createLedger(cfg ledger.Config) *ledger.BridgeLedger {
	claimLedger, err := ledger.NewBridgeLedger(log.WithFields("module", "ledger"), cfg.DBPath)
	if err != nil {
		log.Fatalf("error creating claim ledger: %s", err)
	}

	return claimLedger
}

func createWallet(cfg zcashwallet.Config) *zcashwallet.Wallet {
	wallet, err := zcashwallet.NewWallet(log.WithFields("module", "zcashwallet"), cfg)
	if err != nil {
		log.Fatalf("error creating source chain wallet: %s", err)
	}

	return wallet
}

func createRollupClient(cfg midenclient.Config) *midenclient.ProcessClient {
	client, err := midenclient.NewProcessClient(log.WithFields("module", "midenclient"), cfg)
	if err != nil {
		log.Fatalf("error creating rollup client: %s", err)
	}

	return client
}

func createRPC(
	cfg jRPC.Config,
	finder rpc.DepositFinder,
	processor rpc.DepositProcessor,
	claims rpc.LedgerReader,
	wallet rpc.BalanceReader,
) *jRPC.Server {
	logger := log.WithFields("module", bridgecommon.RPC)
	services := []jRPC.Service{
		{
			Name: rpc.BRIDGE,
			Service: rpc.NewBridgeEndpoints(
				logger,
				cfg.WriteTimeout.Duration,
				cfg.ReadTimeout.Duration,
				finder,
				processor,
				claims,
				wallet,
			),
		},
	}

	return jRPC.NewServer(cfg, services, jRPC.WithLogger(logger.GetSugaredLogger()))
}

func logVersion() {
	log.Infow("Starting application",
		// version is already logged by default
		"gitRevision", midenbridge.GitRev,
		"gitBranch", midenbridge.GitBranch,
		"goVersion", runtime.Version(),
		"built", midenbridge.BuildDate,
		"os/arch", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	)
}

func waitSignal(cancelFuncs []context.CancelFunc) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt)

	for sig := range signals {
		switch sig {
		case os.Interrupt, os.Kill:
			log.Info("terminating application gracefully...")

			exitStatus := 0
			for _, cancel := range cancelFuncs {
				cancel()
			}
			os.Exit(exitStatus)
		}
	}
}
