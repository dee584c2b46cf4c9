package depositsync

import (
	"context"
	"time"

	"github.com/shieldedlabs/midenbridge/log"
)

// DepositRelayer runs the scan-and-mint cycle on a ticker. One candidate's
// failure never aborts the cycle: it is logged and retried next tick, which
// is safe because all dedupe state lives in the durable ledger.
type DepositRelayer struct {
	logger  *log.Logger
	ticker  *time.Ticker
	scanner *DepositScanner
	issuer  *MintIssuer
}

// New returns a relayer wiring the scanner and issuer on the configured
// interval.
func New(logger *log.Logger, cfg Config, scanner *DepositScanner, issuer *MintIssuer) *DepositRelayer {
	return &DepositRelayer{
		logger:  logger,
		ticker:  time.NewTicker(cfg.ScanInterval.Duration),
		scanner: scanner,
		issuer:  issuer,
	}
}

// Start runs scan cycles until the context is cancelled.
func (r *DepositRelayer) Start(ctx context.Context) {
	r.logger.Info("deposit relayer started")
	for {
		select {
		case <-r.ticker.C:
			r.runCycle(ctx)
		case <-ctx.Done():
			r.ticker.Stop()
			r.logger.Info("deposit relayer stopped")

			return
		}
	}
}

func (r *DepositRelayer) runCycle(ctx context.Context) {
	candidates, err := r.scanner.Scan(ctx)
	if err != nil {
		r.logger.Errorf("deposit scan failed: %v", err)

		return
	}
	for _, cand := range candidates {
		if err := r.issuer.ProcessDeposit(ctx, cand); err != nil {
			r.logger.Errorf("processing deposit tx %s: %v", cand.TxID, err)
		}
	}
}
