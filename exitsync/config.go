package exitsync

import (
	"github.com/shieldedlabs/midenbridge/config/types"
)

// Config is the exit relayer configuration. The destination chain id the
// relayer pays out comes from the shared Common section.
type Config struct {
	// ScanInterval is the pause between exit scan cycles.
	ScanInterval types.Duration `mapstructure:"ScanInterval"`
}
