package exitsync

import (
	"context"
	"errors"
	"path"
	"testing"
	"time"

	"github.com/shieldedlabs/midenbridge/commitment"
	"github.com/shieldedlabs/midenbridge/config/types"
	"github.com/shieldedlabs/midenbridge/ledger"
	"github.com/shieldedlabs/midenbridge/log"
	"github.com/shieldedlabs/midenbridge/midenclient"
	"github.com/shieldedlabs/midenbridge/word"
	"github.com/stretchr/testify/require"
)

const (
	destChainID = uint64(2)
	destAddr    = "tmEZhbWHTpdKMw5it8YDspUXSMGQyFwovpU"
)

type fakeRollup struct {
	height  uint64
	notes   []midenclient.NoteRecord
	syncErr error
}

func (f *fakeRollup) SyncState(context.Context) error { return f.syncErr }
func (f *fakeRollup) SyncHeight(context.Context) (uint64, error) {
	return f.height, nil
}
func (f *fakeRollup) ConsumedNotes(context.Context, midenclient.NoteTag) ([]midenclient.NoteRecord, error) {
	return f.notes, nil
}

type fakeSender struct {
	sends   []string
	sendErr error
}

func (f *fakeSender) Send(_ context.Context, address string, _ uint64, _ string) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sends = append(f.sends, address)

	return "payout-txid-1", nil
}

func testLogger() *log.Logger {
	return log.WithFields("module", "exitsync-test")
}

func testLedger(t *testing.T) *ledger.BridgeLedger {
	t.Helper()
	l, err := ledger.NewBridgeLedger(testLogger(), path.Join(t.TempDir(), "ledger.sqlite"))
	require.NoError(t, err)

	return l
}

func burnNote(t *testing.T, id string, serial word.Word, chainID uint64, addr string, amount, blockNum uint64) midenclient.NoteRecord {
	t.Helper()
	tuple, err := commitment.EncodeAddress(addr)
	require.NoError(t, err)

	inputs := append(serial[:], chainID)
	inputs = append(inputs, tuple[:]...)

	return midenclient.NoteRecord{
		ID:       id,
		Metadata: midenclient.Metadata{Type: midenclient.NoteTypePrivate, Tag: midenclient.WithdrawalTag()},
		Inputs:   inputs,
		Assets:   []midenclient.FungibleAsset{{FaucetID: "faucet-1", Amount: amount}},
		BlockNum: blockNum,
	}
}

func newTestRelayer(t *testing.T, rollup *fakeRollup, sender *fakeSender) (*ExitRelayer, *ledger.BridgeLedger) {
	t.Helper()
	exitLedger := testLedger(t)
	scanner := NewExitScanner(testLogger(), rollup, destChainID)
	payer := NewPayoutExecutor(testLogger(), sender)
	cfg := Config{ScanInterval: types.NewDuration(time.Minute)}
	relayer := New(testLogger(), cfg, scanner, payer, exitLedger)

	return relayer, exitLedger
}

func TestScanDecodesAndFilters(t *testing.T) {
	serial := word.Word{1, 2, 3, 4}
	rollup := &fakeRollup{
		height: 1200,
		notes: []midenclient.NoteRecord{
			burnNote(t, "note-good", serial, destChainID, destAddr, 500_000_000, 1000),
			burnNote(t, "note-wrong-chain", word.Word{5, 6, 7, 8}, 99, destAddr, 100, 1001),
			{
				ID:       "note-short",
				Metadata: midenclient.Metadata{Tag: midenclient.WithdrawalTag()},
				Inputs:   []uint64{1, 2},
			},
			{
				ID:       "note-foreign",
				Metadata: midenclient.Metadata{Tag: midenclient.NoteTag(0x1234)},
			},
		},
	}
	scanner := NewExitScanner(testLogger(), rollup, destChainID)

	height, candidates, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(1200), height)
	require.Len(t, candidates, 1)
	require.Equal(t, serial, candidates[0].Record.Commitment)
	require.Equal(t, "note-good", candidates[0].Record.NoteID)
	require.Equal(t, uint64(500_000_000), candidates[0].Record.Amount)
	require.Equal(t, uint64(1000), candidates[0].Record.BlockNum)
	require.Equal(t, destAddr, candidates[0].Destination)
}

func TestScanZeroAmountSkipped(t *testing.T) {
	note := burnNote(t, "note-zero", word.Word{1, 2, 3, 4}, destChainID, destAddr, 0, 1000)
	rollup := &fakeRollup{height: 100, notes: []midenclient.NoteRecord{note}}
	scanner := NewExitScanner(testLogger(), rollup, destChainID)

	_, candidates, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	require.Empty(t, candidates)
}

func TestRunCyclePaysOut(t *testing.T) {
	serial := word.Word{1, 2, 3, 4}
	rollup := &fakeRollup{
		height: 1200,
		notes:  []midenclient.NoteRecord{burnNote(t, "note-1", serial, destChainID, destAddr, 500_000_000, 1000)},
	}
	sender := &fakeSender{}
	relayer, exitLedger := newTestRelayer(t, rollup, sender)
	ctx := context.Background()

	relayer.runCycle(ctx)

	require.Equal(t, []string{destAddr}, sender.sends)

	rec, err := exitLedger.GetWithdrawal(ctx, serial)
	require.NoError(t, err)
	require.True(t, rec.Paid())
	require.NotNil(t, rec.PayoutTxID)
	require.Equal(t, "payout-txid-1", *rec.PayoutTxID)

	height, err := exitLedger.GetScanCursor(ctx, CursorChain)
	require.NoError(t, err)
	require.Equal(t, uint64(1200), height)

	unclaimed, err := exitLedger.UnclaimedWithdrawals(ctx)
	require.NoError(t, err)
	require.Empty(t, unclaimed)

	// the consumed note keeps reappearing; a second cycle must not pay again
	relayer.runCycle(ctx)
	require.Len(t, sender.sends, 1)
}

func TestRunCycleFailedSendRetries(t *testing.T) {
	serial := word.Word{1, 2, 3, 4}
	rollup := &fakeRollup{
		height: 1200,
		notes:  []midenclient.NoteRecord{burnNote(t, "note-1", serial, destChainID, destAddr, 500_000_000, 1000)},
	}
	sender := &fakeSender{sendErr: errors.New("lightwalletd unreachable")}
	relayer, exitLedger := newTestRelayer(t, rollup, sender)
	ctx := context.Background()

	relayer.runCycle(ctx)

	// the withdrawal is recorded but still unpaid
	unclaimed, err := exitLedger.UnclaimedWithdrawals(ctx)
	require.NoError(t, err)
	require.Len(t, unclaimed, 1)
	require.Equal(t, serial, unclaimed[0].Commitment)

	// the wallet recovers and the next cycle pays
	sender.sendErr = nil
	relayer.runCycle(ctx)
	require.Equal(t, []string{destAddr}, sender.sends)

	unclaimed, err = exitLedger.UnclaimedWithdrawals(ctx)
	require.NoError(t, err)
	require.Empty(t, unclaimed)
}

func TestSweepDefersUnknownDestination(t *testing.T) {
	serial := word.Word{1, 2, 3, 4}
	rollup := &fakeRollup{height: 1200}
	sender := &fakeSender{}
	relayer, exitLedger := newTestRelayer(t, rollup, sender)
	ctx := context.Background()

	// the withdrawal is known from an earlier scan, but this cycle's scan
	// did not surface its burn note, so there is no destination to pay to
	require.NoError(t, exitLedger.RecordWithdrawalSeen(ctx, serial, "note-1", 500_000_000, 1000))

	relayer.runCycle(ctx)
	require.Empty(t, sender.sends)

	unclaimed, err := exitLedger.UnclaimedWithdrawals(ctx)
	require.NoError(t, err)
	require.Len(t, unclaimed, 1)

	// the note comes back on the next scan and payout proceeds
	rollup.notes = []midenclient.NoteRecord{burnNote(t, "note-1", serial, destChainID, destAddr, 500_000_000, 1000)}
	relayer.runCycle(ctx)
	require.Equal(t, []string{destAddr}, sender.sends)
}

// recordingLedger counts the candidate batches handed to the ledger so tests
// can observe how much re-record work each cycle does.
type recordingLedger struct {
	*ledger.BridgeLedger
	batches [][]ledger.WithdrawalRecord
}

func (r *recordingLedger) RecordScanResults(
	ctx context.Context, chain string, height uint64, candidates []ledger.WithdrawalRecord,
) error {
	r.batches = append(r.batches, candidates)

	return r.BridgeLedger.RecordScanResults(ctx, chain, height, candidates)
}

func TestRunCycleBoundsRescans(t *testing.T) {
	serial := word.Word{1, 2, 3, 4}
	rollup := &fakeRollup{
		height: 1200,
		notes:  []midenclient.NoteRecord{burnNote(t, "note-1", serial, destChainID, destAddr, 500_000_000, 1000)},
	}
	sender := &fakeSender{sendErr: errors.New("lightwalletd unreachable")}
	exitLedger := &recordingLedger{BridgeLedger: testLedger(t)}
	scanner := NewExitScanner(testLogger(), rollup, destChainID)
	payer := NewPayoutExecutor(testLogger(), sender)
	relayer := New(testLogger(), Config{ScanInterval: types.NewDuration(time.Minute)}, scanner, payer, exitLedger)
	ctx := context.Background()

	relayer.runCycle(ctx)
	require.Len(t, exitLedger.batches, 1)
	require.Len(t, exitLedger.batches[0], 1)

	// the consumed note reappears below the cursor: nothing to re-record,
	// but its destination is still recovered and the pending payout goes out
	sender.sendErr = nil
	rollup.height = 1300
	relayer.runCycle(ctx)
	require.Len(t, exitLedger.batches, 2)
	require.Empty(t, exitLedger.batches[1])
	require.Equal(t, []string{destAddr}, sender.sends)

	height, err := exitLedger.GetScanCursor(ctx, CursorChain)
	require.NoError(t, err)
	require.Equal(t, uint64(1300), height)
}

func TestRunCycleScanFailureLeavesLedgerUntouched(t *testing.T) {
	rollup := &fakeRollup{syncErr: errors.New("rollup rpc down")}
	sender := &fakeSender{}
	relayer, exitLedger := newTestRelayer(t, rollup, sender)
	ctx := context.Background()

	relayer.runCycle(ctx)
	require.Empty(t, sender.sends)

	height, err := exitLedger.GetScanCursor(ctx, CursorChain)
	require.NoError(t, err)
	require.Zero(t, height)
}
