package depositsync

import (
	"github.com/shieldedlabs/midenbridge/config/types"
)

// Config is the deposit relayer configuration.
type Config struct {
	// ScanInterval is the pause between deposit scan cycles.
	ScanInterval types.Duration `mapstructure:"ScanInterval"`
	// BridgeAddress optionally pins the deposit address: when set, only
	// transfers to this address are treated as deposits even if the
	// wallet cannot list its own addresses.
	BridgeAddress string `mapstructure:"BridgeAddress"`
}
