package exitsync

import (
	"context"
	"time"

	"github.com/shieldedlabs/midenbridge/ledger"
	"github.com/shieldedlabs/midenbridge/log"
	"github.com/shieldedlabs/midenbridge/word"
)

// CursorChain is the scan cursor key the exit relayer advances.
const CursorChain = "rollup"

// ExitLedgerer is the ledger surface the relayer needs.
type ExitLedgerer interface {
	GetScanCursor(ctx context.Context, chain string) (uint64, error)
	RecordScanResults(ctx context.Context, chain string, height uint64, candidates []ledger.WithdrawalRecord) error
	UnclaimedWithdrawals(ctx context.Context) ([]ledger.WithdrawalRecord, error)
	MarkWithdrawalPaid(ctx context.Context, commitment word.Word, payoutTxID string) (bool, error)
}

// ExitRelayer runs the scan-record-payout cycle on a ticker. Candidates and
// the scan cursor are committed atomically; the payout sweep then walks
// every unpaid withdrawal whose destination was decoded this cycle. A
// withdrawal is only marked paid after its send succeeds, and the
// conditional mark is what keeps two relayer instances from paying twice.
type ExitRelayer struct {
	logger  *log.Logger
	ticker  *time.Ticker
	scanner *ExitScanner
	payer   *PayoutExecutor
	ledger  ExitLedgerer
}

// New returns a relayer wiring the scanner, payout executor and ledger on
// the configured interval.
func New(
	logger *log.Logger, cfg Config, scanner *ExitScanner, payer *PayoutExecutor, exitLedger ExitLedgerer,
) *ExitRelayer {
	return &ExitRelayer{
		logger:  logger,
		ticker:  time.NewTicker(cfg.ScanInterval.Duration),
		scanner: scanner,
		payer:   payer,
		ledger:  exitLedger,
	}
}

// Start runs scan cycles until the context is cancelled.
func (r *ExitRelayer) Start(ctx context.Context) {
	r.logger.Info("exit relayer started")
	for {
		select {
		case <-r.ticker.C:
			r.runCycle(ctx)
		case <-ctx.Done():
			r.ticker.Stop()
			r.logger.Info("exit relayer stopped")

			return
		}
	}
}

func (r *ExitRelayer) runCycle(ctx context.Context) {
	cursor, err := r.ledger.GetScanCursor(ctx, CursorChain)
	if err != nil {
		r.logger.Errorf("reading exit scan cursor: %v", err)

		return
	}

	height, candidates, err := r.scanner.Scan(ctx)
	if err != nil {
		r.logger.Errorf("exit scan failed: %v", err)

		return
	}

	// The cursor bounds the re-record work after a restart: a note at or
	// below it was already offered by the listing that advanced the cursor
	// there. Destinations are still collected from every candidate because
	// the ledger stores none and the payout sweep needs them.
	records := make([]ledger.WithdrawalRecord, 0, len(candidates))
	destinations := make(map[word.Word]string, len(candidates))
	for _, cand := range candidates {
		destinations[cand.Record.Commitment] = cand.Destination
		if cand.Record.BlockNum <= cursor {
			continue
		}
		records = append(records, cand.Record)
	}
	if err := r.ledger.RecordScanResults(ctx, CursorChain, height, records); err != nil {
		r.logger.Errorf("recording exit scan results: %v", err)

		return
	}

	r.sweepUnclaimed(ctx, destinations)
}

// sweepUnclaimed pays every withdrawal still owing a payout. The ledger
// deliberately stores no destination address, so only withdrawals whose
// burn note was decoded this cycle can be paid; the rollup client keeps
// reporting consumed notes, so an unpaid withdrawal's destination comes
// back on the next scan.
func (r *ExitRelayer) sweepUnclaimed(ctx context.Context, destinations map[word.Word]string) {
	unclaimed, err := r.ledger.UnclaimedWithdrawals(ctx)
	if err != nil {
		r.logger.Errorf("listing unclaimed withdrawals: %v", err)

		return
	}
	for _, rec := range unclaimed {
		dest, ok := destinations[rec.Commitment]
		if !ok {
			r.logger.Debugf("withdrawal %s has no destination in this cycle, deferring", rec.Commitment.Hex())

			continue
		}
		txid, err := r.payer.Pay(ctx, dest, rec.Amount)
		if err != nil {
			r.logger.Errorf("payout for withdrawal %s failed, will retry: %v", rec.Commitment.Hex(), err)

			continue
		}
		updated, err := r.ledger.MarkWithdrawalPaid(ctx, rec.Commitment, txid)
		if err != nil {
			r.logger.Errorf("marking withdrawal %s paid (payout txid %s): %v", rec.Commitment.Hex(), txid, err)

			continue
		}
		if !updated {
			r.logger.Warnf("withdrawal %s was paid concurrently, payout txid %s not recorded",
				rec.Commitment.Hex(), txid)
		}
	}
}
