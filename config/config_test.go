package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, uint64(2), cfg.Common.TargetChainID)

	require.NotEmpty(t, cfg.Ledger.DBPath)

	require.Equal(t, "miden-client", cfg.MidenClient.ClientBin)
	require.NotEmpty(t, cfg.MidenClient.RPCURL)
	require.Equal(t, 5*time.Minute, cfg.MidenClient.ExecTimeout.Duration)

	require.Equal(t, "zcash-devtool", cfg.ZcashWallet.DevtoolBin)
	require.Equal(t, 10*time.Minute, cfg.ZcashWallet.ExecTimeout.Duration)

	require.Equal(t, 30*time.Second, cfg.DepositSync.ScanInterval.Duration)
	require.Equal(t, 30*time.Second, cfg.ExitSync.ScanInterval.Duration)

	require.Equal(t, 5576, cfg.RPC.Port)
	require.Equal(t, 2*time.Second, cfg.RPC.ReadTimeout.Duration)
	require.Equal(t, 2*time.Second, cfg.RPC.WriteTimeout.Duration)
}
