// Package exitsync implements the exit relayer: scan the rollup for
// consumed burn notes carrying the bridge withdrawal tag, record them in the
// ledger, and send the native payout on the source chain exactly once per
// burn.
package exitsync

import (
	"context"
	"errors"

	"github.com/shieldedlabs/midenbridge/commitment"
	"github.com/shieldedlabs/midenbridge/ledger"
	"github.com/shieldedlabs/midenbridge/log"
	"github.com/shieldedlabs/midenbridge/midenclient"
)

// Rollup is the rollup client surface the scanner needs.
type Rollup interface {
	SyncState(ctx context.Context) error
	SyncHeight(ctx context.Context) (uint64, error)
	ConsumedNotes(ctx context.Context, tag midenclient.NoteTag) ([]midenclient.NoteRecord, error)
}

// ExitCandidate pairs a withdrawal record with the destination address
// decoded from the note's address tuple. The ledger never stores the
// destination; it only exists in the cycle that decoded it.
type ExitCandidate struct {
	Record      ledger.WithdrawalRecord
	Destination string
}

// ExitScanner extracts withdrawal candidates from the rollup's consumed
// notes.
type ExitScanner struct {
	logger  *log.Logger
	rollup  Rollup
	chainID uint64
}

// NewExitScanner returns a scanner that keeps only withdrawals targeting
// the given destination chain id.
func NewExitScanner(logger *log.Logger, rollup Rollup, chainID uint64) *ExitScanner {
	return &ExitScanner{
		logger:  logger,
		rollup:  rollup,
		chainID: chainID,
	}
}

// Scan syncs the rollup view and decodes every consumed withdrawal note
// into a candidate. Notes with the wrong chain id, undecodable addresses,
// zero amounts or short input layouts are skipped without side effects.
// Returns the synced height alongside the candidates so the caller can
// advance the scan cursor atomically with the records.
func (s *ExitScanner) Scan(ctx context.Context) (uint64, []ExitCandidate, error) {
	if err := s.rollup.SyncState(ctx); err != nil {
		return 0, nil, err
	}
	height, err := s.rollup.SyncHeight(ctx)
	if err != nil {
		return 0, nil, err
	}

	notes, err := s.rollup.ConsumedNotes(ctx, midenclient.WithdrawalTag())
	if err != nil {
		return 0, nil, err
	}

	var candidates []ExitCandidate
	for _, note := range notes {
		payload, err := midenclient.DecodePayload(note)
		if err != nil {
			s.logSkip(note.ID, err)

			continue
		}
		wp, ok := payload.(midenclient.WithdrawalPayload)
		if !ok {
			continue
		}
		if wp.ChainID != s.chainID {
			s.logger.Debugf("note %s targets chain %d, not %d, skipping", note.ID, wp.ChainID, s.chainID)

			continue
		}
		dest, err := commitment.DecodeAddress(wp.AddressTuple)
		if err != nil {
			s.logger.Warnf("note %s carries an undecodable address tuple, skipping: %v", note.ID, err)

			continue
		}
		candidates = append(candidates, ExitCandidate{
			Record: ledger.WithdrawalRecord{
				Commitment: wp.Commitment,
				NoteID:     wp.NoteID,
				Amount:     wp.Amount,
				BlockNum:   wp.BlockNum,
			},
			Destination: dest,
		})
	}
	s.logger.Debugf("exit scan at height %d: %d consumed notes, %d candidates", height, len(notes), len(candidates))

	return height, candidates, nil
}

func (s *ExitScanner) logSkip(noteID string, err error) {
	switch {
	case errors.Is(err, midenclient.ErrInsufficientInputs),
		errors.Is(err, midenclient.ErrZeroAmount):
		s.logger.Warnf("skipping note %s: %v", noteID, err)
	default:
		s.logger.Debugf("skipping note %s: %v", noteID, err)
	}
}
