package config

// DefaultValues is the default configuration
const DefaultValues = `
[Log]
Environment = "development" # "production" or "development"
Level = "info"
Outputs = ["stderr"]

[Common]
# TargetChainID is the destination chain id carried on withdrawal notes
# that this bridge pays out (the source chain's id on the rollup side)
TargetChainID = 2

[Ledger]
# DBPath is the path of the claim ledger database
DBPath = "/tmp/midenbridge/ledger.sqlite"

[MidenClient]
# ClientBin is the rollup node client executable
ClientBin = "miden-client"
# RPCURL is the rollup node endpoint
RPCURL = "https://rpc.testnet.miden.io"
# StorePath is the client's local note store
StorePath = "/tmp/midenbridge/rollup_store.sqlite3"
# KeystorePath holds the bridge operator account keys
KeystorePath = "/tmp/midenbridge/keystore"
# FaucetID is the wrapped-asset faucet account (bech32)
FaucetID = ""
# ExecTimeout bounds a single client invocation (proving included)
ExecTimeout = "5m"

[ZcashWallet]
# DevtoolBin is the zcash-devtool executable
DevtoolBin = "zcash-devtool"
# WalletDir is the wallet data directory
WalletDir = "/tmp/midenbridge/bridge_wallet"
# IdentityFile is the age identity unlocking spending keys
IdentityFile = "/tmp/midenbridge/bridge_wallet/key.txt"
# SyncServer is the lightwalletd server preset
SyncServer = "zecrocks"
# AccountID optionally restricts the wallet to one account
AccountID = ""
# ExecTimeout bounds a single devtool invocation
ExecTimeout = "10m"

[DepositSync]
# ScanInterval is the pause between deposit scan cycles
ScanInterval = "30s"
# BridgeAddress optionally pins the deposit address
BridgeAddress = ""

[ExitSync]
# ScanInterval is the pause between exit scan cycles
ScanInterval = "30s"

[RPC]
# Host defines the network adapter that will be used to serve the HTTP requests
Host = "0.0.0.0"
# Port defines the port to serve the endpoints via HTTP
Port = 5576
# ReadTimeout is the HTTP server read timeout
ReadTimeout = "2s"
# WriteTimeout is the HTTP server write timeout
WriteTimeout = "2s"
# MaxRequestsPerIPAndSecond defines how much requests a single IP can
# send within a single second
MaxRequestsPerIPAndSecond = 500
`
