// Package ledger implements the durable claim ledger shared by both
// relayers. It is the only state the bridge core owns: deposit claims,
// withdrawal records and scan cursors. All writes are insert-if-absent or
// conditional updates, which is what makes relayer cycles safe to retry and
// concurrent deployments safe to run against the same database.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/russross/meddler"
	"github.com/shieldedlabs/midenbridge/db"
	"github.com/shieldedlabs/midenbridge/ledger/migrations"
	"github.com/shieldedlabs/midenbridge/log"
	"github.com/shieldedlabs/midenbridge/word"
)

const errWhileRollbackFormat = "error while rolling back tx: %w"

// DepositClaim records that the deposit behind a commitment has been minted
// on the rollup. Created exactly once, never mutated, never deleted.
type DepositClaim struct {
	Commitment word.Word `meddler:"commitment,word"`
	TxID       string    `meddler:"txid"`
	Amount     uint64    `meddler:"amount"`
	ClaimedAt  int64     `meddler:"claimed_at"`
}

// WithdrawalRecord tracks an exit note from first sighting to payout.
// ClaimedAt and PayoutTxID are set together, exactly once; a record with
// ClaimedAt nil means "payout owed but not yet sent".
type WithdrawalRecord struct {
	Commitment word.Word `meddler:"commitment,word"`
	NoteID     string    `meddler:"note_id"`
	Amount     uint64    `meddler:"amount"`
	BlockNum   uint64    `meddler:"block_num"`
	CreatedAt  int64     `meddler:"created_at"`
	ClaimedAt  *int64    `meddler:"claimed_at"`
	PayoutTxID *string   `meddler:"payout_txid"`
}

// Paid reports whether the payout for this withdrawal has been sent.
func (w *WithdrawalRecord) Paid() bool {
	return w.ClaimedAt != nil
}

// BridgeLedger is the SQLite-backed implementation of the claim ledger.
type BridgeLedger struct {
	logger *log.Logger
	db     *sql.DB
}

// NewBridgeLedger runs the ledger migrations and opens the database.
func NewBridgeLedger(logger *log.Logger, dbPath string) (*BridgeLedger, error) {
	if err := migrations.RunMigrations(dbPath); err != nil {
		return nil, err
	}

	database, err := db.NewSQLiteDB(dbPath)
	if err != nil {
		return nil, err
	}

	return &BridgeLedger{
		logger: logger,
		db:     database,
	}, nil
}

// IsDepositClaimed reports whether a deposit claim exists for the commitment.
func (l *BridgeLedger) IsDepositClaimed(ctx context.Context, commitment word.Word) (bool, error) {
	_, err := l.GetDepositClaim(ctx, commitment)
	if errors.Is(err, db.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

// GetDepositClaim returns the claim stored for the commitment, or
// db.ErrNotFound.
func (l *BridgeLedger) GetDepositClaim(ctx context.Context, commitment word.Word) (DepositClaim, error) {
	var claim DepositClaim
	if err := meddler.QueryRow(l.db, &claim,
		"SELECT * FROM deposit_claim WHERE commitment = $1;", commitment.Hex()); err != nil {
		return DepositClaim{}, db.ReturnErrNotFound(err)
	}

	return claim, nil
}

// RecordDepositClaim inserts the claim for a commitment if absent. A second
// call with the same commitment is a no-op success, never an error: this is
// what makes the deposit relayer safe to retry.
func (l *BridgeLedger) RecordDepositClaim(ctx context.Context, commitment word.Word, txid string, amount uint64) error {
	claim := &DepositClaim{
		Commitment: commitment,
		TxID:       txid,
		Amount:     amount,
		ClaimedAt:  time.Now().Unix(),
	}
	if err := meddler.Insert(l.db, "deposit_claim", claim); err != nil {
		if db.IsUniqueConstrainErr(err) {
			l.logger.Debugf("deposit claim for commitment %s already recorded", commitment.Hex())

			return nil
		}

		return fmt.Errorf("error inserting deposit claim: %w", err)
	}
	l.logger.Infof("recorded deposit claim - commitment: %s, txid: %s, amount: %d", commitment.Hex(), txid, amount)

	return nil
}

// RecordWithdrawalSeen inserts a withdrawal record with ClaimedAt unset if
// no record exists for the commitment (or the note id). Duplicates are a
// no-op success, same idempotency contract as RecordDepositClaim.
func (l *BridgeLedger) RecordWithdrawalSeen(
	ctx context.Context, commitment word.Word, noteID string, amount, blockNum uint64,
) error {
	tx, err := db.NewTx(ctx, l.db)
	if err != nil {
		return err
	}

	err = recordWithdrawalSeen(tx, commitment, noteID, amount, blockNum)
	if err != nil {
		if errRllbck := tx.Rollback(); errRllbck != nil {
			l.logger.Errorf(errWhileRollbackFormat, errRllbck)
		}
		if db.IsUniqueConstrainErr(err) {
			return nil
		}

		return fmt.Errorf("error inserting withdrawal: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	l.logger.Infof("recorded withdrawal - commitment: %s, note: %s, amount: %d, block: %d",
		commitment.Hex(), noteID, amount, blockNum)

	return nil
}

// recordWithdrawalSeen returns meddler's error unwrapped: the callers run
// db.IsUniqueConstrainErr on it, and meddler.DriverErr only recognizes
// meddler's error type at the top level.
func recordWithdrawalSeen(tx meddler.DB, commitment word.Word, noteID string, amount, blockNum uint64) error {
	record := &WithdrawalRecord{
		Commitment: commitment,
		NoteID:     noteID,
		Amount:     amount,
		BlockNum:   blockNum,
		CreatedAt:  time.Now().Unix(),
	}

	return meddler.Insert(tx, "withdrawal", record)
}

// GetWithdrawal returns the withdrawal record keyed by commitment, or
// db.ErrNotFound.
func (l *BridgeLedger) GetWithdrawal(ctx context.Context, commitment word.Word) (WithdrawalRecord, error) {
	var record WithdrawalRecord
	if err := meddler.QueryRow(l.db, &record,
		"SELECT * FROM withdrawal WHERE commitment = $1;", commitment.Hex()); err != nil {
		return WithdrawalRecord{}, db.ReturnErrNotFound(err)
	}

	return record, nil
}

// GetWithdrawalByNoteID returns the withdrawal record keyed by the rollup
// note id, or db.ErrNotFound.
func (l *BridgeLedger) GetWithdrawalByNoteID(ctx context.Context, noteID string) (WithdrawalRecord, error) {
	var record WithdrawalRecord
	if err := meddler.QueryRow(l.db, &record,
		"SELECT * FROM withdrawal WHERE note_id = $1;", noteID); err != nil {
		return WithdrawalRecord{}, db.ReturnErrNotFound(err)
	}

	return record, nil
}

// MarkWithdrawalPaid sets ClaimedAt and PayoutTxID on the record, but only
// if the payout has not been recorded yet. It reports whether a row was
// actually updated: two racing relayer instances can both call this, only
// one observes true, and only that one's payout txid is kept.
func (l *BridgeLedger) MarkWithdrawalPaid(ctx context.Context, commitment word.Word, payoutTxID string) (bool, error) {
	res, err := l.db.Exec(
		`UPDATE withdrawal SET claimed_at = $1, payout_txid = $2 WHERE commitment = $3 AND claimed_at IS NULL;`,
		time.Now().Unix(), payoutTxID, commitment.Hex(),
	)
	if err != nil {
		return false, fmt.Errorf("error updating withdrawal: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		l.logger.Debugf("withdrawal %s already paid, payout %s not recorded", commitment.Hex(), payoutTxID)

		return false, nil
	}
	l.logger.Infof("marked withdrawal paid - commitment: %s, payout txid: %s", commitment.Hex(), payoutTxID)

	return true, nil
}

// UnclaimedWithdrawals returns the withdrawals still owing a payout, oldest
// block first. Used by the exit relayer's retry sweep.
func (l *BridgeLedger) UnclaimedWithdrawals(ctx context.Context) ([]WithdrawalRecord, error) {
	var records []*WithdrawalRecord
	if err := meddler.QueryAll(l.db, &records,
		"SELECT * FROM withdrawal WHERE claimed_at IS NULL ORDER BY block_num ASC, created_at ASC;"); err != nil {
		return nil, err
	}

	return db.SlicePtrsToSlice(records).([]WithdrawalRecord), nil
}

// GetScanCursor returns the last scanned height for a chain, 0 when the
// chain has never been scanned.
func (l *BridgeLedger) GetScanCursor(ctx context.Context, chain string) (uint64, error) {
	var height uint64
	err := l.db.QueryRow("SELECT last_height FROM scan_cursor WHERE chain = $1;", chain).Scan(&height)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return height, nil
}

// UpdateScanCursor advances the cursor for a chain. Heights only move
// forward; a stale update is ignored.
func (l *BridgeLedger) UpdateScanCursor(ctx context.Context, chain string, height uint64) error {
	return updateScanCursor(l.db, chain, height)
}

func updateScanCursor(q db.Querier, chain string, height uint64) error {
	_, err := q.Exec(
		`INSERT INTO scan_cursor (chain, last_height) VALUES ($1, $2)
		 ON CONFLICT(chain) DO UPDATE SET last_height = $2 WHERE last_height < $2;`,
		chain, height,
	)

	return err
}

// RecordScanResults stores a batch of withdrawal candidates and advances the
// scan cursor in the same transaction, so a crash between the two cannot
// lose candidates from the skipped range. Candidate duplicates are ignored.
func (l *BridgeLedger) RecordScanResults(
	ctx context.Context, chain string, height uint64, candidates []WithdrawalRecord,
) error {
	tx, err := db.NewTx(ctx, l.db)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if errRllbck := tx.Rollback(); errRllbck != nil {
				l.logger.Errorf(errWhileRollbackFormat, errRllbck)
			}
		}
	}()

	for i := range candidates {
		c := &candidates[i]
		insErr := recordWithdrawalSeen(tx, c.Commitment, c.NoteID, c.Amount, c.BlockNum)
		if insErr != nil && !db.IsUniqueConstrainErr(insErr) {
			err = fmt.Errorf("error inserting withdrawal: %w", insErr)

			return err
		}
		if insErr == nil {
			l.logger.Infof("recorded withdrawal - commitment: %s, note: %s, amount: %d, block: %d",
				c.Commitment.Hex(), c.NoteID, c.Amount, c.BlockNum)
		}
	}
	if err = updateScanCursor(tx, chain, height); err != nil {
		return err
	}

	return tx.Commit()
}

// clean deletes all the data from the ledger
// NOTE: Used only in tests
func (l *BridgeLedger) clean() error {
	for _, table := range []string{"deposit_claim", "withdrawal", "scan_cursor"} {
		if _, err := l.db.Exec(`DELETE FROM ` + table + `;`); err != nil {
			return err
		}
	}

	return nil
}
