package types

// ClaimResult is the response of bridge_claimDeposit.
type ClaimResult struct {
	Commitment string `json:"commitment"`
	TxID       string `json:"txid"`
	Amount     uint64 `json:"amount"`
	ClaimedAt  int64  `json:"claimed_at"`
}

// DepositStatus is the response of bridge_depositStatus.
type DepositStatus struct {
	Commitment string `json:"commitment"`
	Claimed    bool   `json:"claimed"`
	TxID       string `json:"txid,omitempty"`
	Amount     uint64 `json:"amount,omitempty"`
	ClaimedAt  int64  `json:"claimed_at,omitempty"`
}

// WithdrawalStatus is the response of bridge_withdrawalStatus and the
// element type of bridge_unclaimedWithdrawals.
type WithdrawalStatus struct {
	Commitment string `json:"commitment"`
	NoteID     string `json:"note_id"`
	Amount     uint64 `json:"amount"`
	BlockNum   uint64 `json:"block_num"`
	Paid       bool   `json:"paid"`
	PayoutTxID string `json:"payout_txid,omitempty"`
	ClaimedAt  int64  `json:"claimed_at,omitempty"`
}

// BridgeBalance is the response of bridge_bridgeBalance: the source-chain
// wallet balance backing payouts, in base units.
type BridgeBalance struct {
	Total     uint64 `json:"total"`
	Spendable uint64 `json:"spendable"`
}
