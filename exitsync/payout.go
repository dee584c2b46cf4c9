package exitsync

import (
	"context"

	"github.com/shieldedlabs/midenbridge/log"
)

// PayoutSender is the source-chain wallet surface payouts go through.
type PayoutSender interface {
	Send(ctx context.Context, address string, amount uint64, memo string) (string, error)
}

// PayoutExecutor sends native payouts for withdrawals. Errors are transient
// by contract: a failed send leaves the withdrawal unpaid in the ledger and
// the next sweep retries it.
type PayoutExecutor struct {
	logger *log.Logger
	wallet PayoutSender
}

// NewPayoutExecutor returns an executor over the wallet.
func NewPayoutExecutor(logger *log.Logger, wallet PayoutSender) *PayoutExecutor {
	return &PayoutExecutor{
		logger: logger,
		wallet: wallet,
	}
}

// Pay sends amount base units to the destination and returns the source
// chain txid.
func (p *PayoutExecutor) Pay(ctx context.Context, destination string, amount uint64) (string, error) {
	txid, err := p.wallet.Send(ctx, destination, amount, "")
	if err != nil {
		return "", err
	}
	p.logger.Infof("paid out %d to %s, txid %s", amount, destination, txid)

	return txid, nil
}
