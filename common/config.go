package common

// Config holds the values that affect every component of the bridge.
type Config struct {
	// TargetChainID is the chain id the exit relayer pays out on. Exit
	// notes addressed to any other chain id are ignored.
	TargetChainID uint64 `mapstructure:"TargetChainID"`
}
