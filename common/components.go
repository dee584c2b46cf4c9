package common

const (
	// DEPOSIT_RELAYER name to identify the deposit relayer component
	// (source chain -> rollup mint path)
	DEPOSIT_RELAYER = "deposit-relayer" //nolint:stylecheck
	// EXIT_RELAYER name to identify the exit relayer component
	// (rollup burn -> source chain payout path)
	EXIT_RELAYER = "exit-relayer" //nolint:stylecheck
	// RPC name to identify the rpc component
	RPC = "rpc"
)
