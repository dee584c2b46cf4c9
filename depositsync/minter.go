package depositsync

import (
	"context"
	"fmt"

	"github.com/shieldedlabs/midenbridge/ledger"
	"github.com/shieldedlabs/midenbridge/log"
	"github.com/shieldedlabs/midenbridge/word"
)

// Minter is the rollup surface the issuer needs: mint a note addressed to a
// commitment through the full transaction pipeline, and check whether such a
// note already exists.
type Minter interface {
	MintNote(ctx context.Context, recipient word.Word, amount uint64) (noteID, txID string, err error)
	FindMintedNote(ctx context.Context, recipient word.Word) (noteID string, found bool, err error)
}

// ClaimLedgerer is the ledger surface the issuer needs.
type ClaimLedgerer interface {
	IsDepositClaimed(ctx context.Context, commitment word.Word) (bool, error)
	RecordDepositClaim(ctx context.Context, commitment word.Word, txid string, amount uint64) error
	GetDepositClaim(ctx context.Context, commitment word.Word) (ledger.DepositClaim, error)
}

// MintIssuer turns validated deposit candidates into rollup notes. Minting
// is at-least-once from the caller's perspective: the durable claim, keyed
// by commitment, is what guards against double mints, so the ledger is
// always consulted before minting and written immediately after.
type MintIssuer struct {
	logger *log.Logger
	ledger ClaimLedgerer
	rollup Minter
}

// NewMintIssuer returns an issuer over the ledger and rollup client.
func NewMintIssuer(logger *log.Logger, claimLedger ClaimLedgerer, rollup Minter) *MintIssuer {
	return &MintIssuer{
		logger: logger,
		ledger: claimLedger,
		rollup: rollup,
	}
}

// ProcessDeposit mints the note for a candidate unless its commitment is
// already claimed. A claimed commitment is a success, not an error: retries
// and concurrent instances land here constantly. A mint failure leaves no
// claim behind, so the candidate is retried on the next cycle — but a mint
// can land on-chain and still return an error (timeout after submit, garbled
// client output), so before any mint the rollup itself is asked whether a
// note already exists at the commitment; if one does, the claim is recorded
// from that instead of submitting a second mint.
func (m *MintIssuer) ProcessDeposit(ctx context.Context, cand DepositCandidate) error {
	claimed, err := m.ledger.IsDepositClaimed(ctx, cand.Commitment)
	if err != nil {
		return fmt.Errorf("checking claim for commitment %s: %w", cand.Commitment.Hex(), err)
	}
	if claimed {
		m.logger.Debugf("deposit %s already claimed, skipping tx %s", cand.Commitment.Hex(), cand.TxID)

		return nil
	}

	existingID, found, err := m.rollup.FindMintedNote(ctx, cand.Commitment)
	if err != nil {
		return fmt.Errorf("checking rollup for note at commitment %s: %w", cand.Commitment.Hex(), err)
	}
	if found {
		m.logger.Warnf("note %s already minted for commitment %s, recording claim without re-minting",
			existingID, cand.Commitment.Hex())
		if err := m.ledger.RecordDepositClaim(ctx, cand.Commitment, cand.TxID, cand.Amount); err != nil {
			return fmt.Errorf("recording claim for commitment %s: %w", cand.Commitment.Hex(), err)
		}

		return nil
	}

	noteID, txID, err := m.rollup.MintNote(ctx, cand.Commitment, cand.Amount)
	if err != nil {
		return fmt.Errorf("minting note for commitment %s (tx %s): %w", cand.Commitment.Hex(), cand.TxID, err)
	}
	m.logger.Infof("minted deposit note %s (rollup tx %s) for commitment %s, amount %d",
		noteID, txID, cand.Commitment.Hex(), cand.Amount)

	if err := m.ledger.RecordDepositClaim(ctx, cand.Commitment, cand.TxID, cand.Amount); err != nil {
		return fmt.Errorf("recording claim for commitment %s: %w", cand.Commitment.Hex(), err)
	}

	return nil
}
