package depositsync

import (
	"context"
	"errors"
	"path"
	"testing"

	"github.com/shieldedlabs/midenbridge/commitment"
	"github.com/shieldedlabs/midenbridge/ledger"
	"github.com/shieldedlabs/midenbridge/log"
	"github.com/shieldedlabs/midenbridge/word"
	"github.com/shieldedlabs/midenbridge/zcashwallet"
	"github.com/stretchr/testify/require"
)

const bridgeAddr = "utest1bridgeaddressforscanfiltering"

type fakeWallet struct {
	txs      []zcashwallet.Transaction
	addrs    []string
	addrsErr error
	syncErr  error
}

func (f *fakeWallet) Sync(context.Context) error    { return f.syncErr }
func (f *fakeWallet) Enhance(context.Context) error { return nil }
func (f *fakeWallet) ListAddresses(context.Context) ([]string, error) {
	return f.addrs, f.addrsErr
}
func (f *fakeWallet) ListTransactions(context.Context) ([]zcashwallet.Transaction, error) {
	return f.txs, nil
}

type fakeMinter struct {
	mints   int // pipelines submitted, landed or not
	landed  bool
	mintErr error
	// landOnError simulates a pipeline that submits the note before the
	// invocation fails (timeout mid-prove, garbled output).
	landOnError bool
}

func (f *fakeMinter) MintNote(_ context.Context, _ word.Word, _ uint64) (string, string, error) {
	f.mints++
	if f.mintErr != nil {
		if f.landOnError {
			f.landed = true
		}

		return "", "", f.mintErr
	}
	f.landed = true

	return "note-1", "rollup-tx-1", nil
}

func (f *fakeMinter) FindMintedNote(_ context.Context, _ word.Word) (string, bool, error) {
	if f.landed {
		return "note-1", true, nil
	}

	return "", false, nil
}

func testLogger() *log.Logger {
	return log.WithFields("module", "depositsync-test")
}

func testLedger(t *testing.T) *ledger.BridgeLedger {
	t.Helper()
	l, err := ledger.NewBridgeLedger(testLogger(), path.Join(t.TempDir(), "ledger.sqlite"))
	require.NoError(t, err)

	return l
}

func testCommitment(t *testing.T) word.Word {
	t.Helper()
	c, err := word.FromHex("0x000000000000000100000000000000020000000000000003fffffffe00000000")
	require.NoError(t, err)

	return c
}

func TestScanFiltersAndDecodes(t *testing.T) {
	com := testCommitment(t)
	wallet := &fakeWallet{
		addrs: []string{bridgeAddr},
		txs: []zcashwallet.Transaction{
			{TxID: "tx-good", Amount: 100, Memo: com.Hex(), ToAddress: bridgeAddr},
			{TxID: "tx-wrapped", Amount: 200, Memo: `Text("` + com.Hex() + `")`, ToAddress: bridgeAddr},
			{TxID: "tx-zero", Amount: 0, Memo: com.Hex(), ToAddress: bridgeAddr},
			{TxID: "tx-no-memo", Amount: 100, ToAddress: bridgeAddr},
			{TxID: "tx-bad-memo", Amount: 100, Memo: "hello", ToAddress: bridgeAddr},
			{TxID: "tx-elsewhere", Amount: 100, Memo: com.Hex(), ToAddress: "utest1other"},
		},
	}
	scanner := NewDepositScanner(testLogger(), wallet, "")

	candidates, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	require.Equal(t, "tx-good", candidates[0].TxID)
	require.Equal(t, com, candidates[0].Commitment)
	require.Equal(t, uint64(100), candidates[0].Amount)
	require.False(t, candidates[0].Legacy)
	require.Equal(t, "tx-wrapped", candidates[1].TxID)
}

func TestScanBridgeAddressOverridesWallet(t *testing.T) {
	com := testCommitment(t)
	wallet := &fakeWallet{
		addrs: []string{"utest1walletown"},
		txs: []zcashwallet.Transaction{
			{TxID: "tx-bridge", Amount: 100, Memo: com.Hex(), ToAddress: bridgeAddr},
			{TxID: "tx-wallet", Amount: 100, Memo: com.Hex(), ToAddress: "utest1walletown"},
		},
	}
	scanner := NewDepositScanner(testLogger(), wallet, bridgeAddr)

	candidates, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "tx-bridge", candidates[0].TxID)
}

func TestScanUnfilteredWhenAddressesUnavailable(t *testing.T) {
	com := testCommitment(t)
	wallet := &fakeWallet{
		addrsErr: errors.New("devtool exploded"),
		txs: []zcashwallet.Transaction{
			{TxID: "tx-anywhere", Amount: 100, Memo: com.Hex(), ToAddress: "utest1whatever"},
		},
	}
	scanner := NewDepositScanner(testLogger(), wallet, "")

	candidates, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 1)
}

func TestScanSyncFailureAborts(t *testing.T) {
	wallet := &fakeWallet{syncErr: errors.New("lightwalletd unreachable")}
	scanner := NewDepositScanner(testLogger(), wallet, "")

	_, err := scanner.Scan(context.Background())
	require.Error(t, err)
}

func TestFindDeposit(t *testing.T) {
	com := testCommitment(t)
	wallet := &fakeWallet{
		addrs: []string{bridgeAddr},
		txs: []zcashwallet.Transaction{
			{TxID: "tx-target", Amount: 300, Memo: com.Hex(), ToAddress: bridgeAddr},
		},
	}
	scanner := NewDepositScanner(testLogger(), wallet, "")

	cand, found, err := scanner.FindDeposit(context.Background(), com)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "tx-target", cand.TxID)

	_, found, err = scanner.FindDeposit(context.Background(), word.Word{1, 1, 1, 1})
	require.NoError(t, err)
	require.False(t, found)
}

func TestProcessDepositMintsOnce(t *testing.T) {
	com := testCommitment(t)
	claimLedger := testLedger(t)
	minter := &fakeMinter{}
	issuer := NewMintIssuer(testLogger(), claimLedger, minter)
	ctx := context.Background()

	cand := DepositCandidate{TxID: "tx-1", Commitment: com, Amount: 250}

	require.NoError(t, issuer.ProcessDeposit(ctx, cand))
	require.Equal(t, 1, minter.mints)

	// a second cycle sees the durable claim and mints nothing
	require.NoError(t, issuer.ProcessDeposit(ctx, cand))
	require.Equal(t, 1, minter.mints)

	claim, err := claimLedger.GetDepositClaim(ctx, com)
	require.NoError(t, err)
	require.Equal(t, "tx-1", claim.TxID)
	require.Equal(t, uint64(250), claim.Amount)
}

func TestProcessDepositMintFailureLeavesNoClaim(t *testing.T) {
	com := testCommitment(t)
	claimLedger := testLedger(t)
	minter := &fakeMinter{mintErr: errors.New("prover timeout")}
	issuer := NewMintIssuer(testLogger(), claimLedger, minter)
	ctx := context.Background()

	cand := DepositCandidate{TxID: "tx-1", Commitment: com, Amount: 250}
	require.Error(t, issuer.ProcessDeposit(ctx, cand))

	claimed, err := claimLedger.IsDepositClaimed(ctx, com)
	require.NoError(t, err)
	require.False(t, claimed)

	// once the rollup recovers, the retry succeeds
	minter.mintErr = nil
	require.NoError(t, issuer.ProcessDeposit(ctx, cand))
	require.Equal(t, 2, minter.mints)

	claimed, err = claimLedger.IsDepositClaimed(ctx, com)
	require.NoError(t, err)
	require.True(t, claimed)
}

func TestProcessDepositReconcilesLandedMint(t *testing.T) {
	com := testCommitment(t)
	claimLedger := testLedger(t)
	minter := &fakeMinter{mintErr: errors.New("rpc timeout after submit"), landOnError: true}
	issuer := NewMintIssuer(testLogger(), claimLedger, minter)
	ctx := context.Background()

	cand := DepositCandidate{TxID: "tx-1", Commitment: com, Amount: 250}

	// the pipeline lands the note on-chain but the invocation errors out,
	// so no claim is recorded this cycle
	require.Error(t, issuer.ProcessDeposit(ctx, cand))
	require.Equal(t, 1, minter.mints)
	claimed, err := claimLedger.IsDepositClaimed(ctx, com)
	require.NoError(t, err)
	require.False(t, claimed)

	// the next cycle finds the note on the rollup and records the claim
	// without submitting a second mint
	require.NoError(t, issuer.ProcessDeposit(ctx, cand))
	require.Equal(t, 1, minter.mints)

	claim, err := claimLedger.GetDepositClaim(ctx, com)
	require.NoError(t, err)
	require.Equal(t, "tx-1", claim.TxID)
	require.Equal(t, uint64(250), claim.Amount)
}

func TestLegacyMemoCandidate(t *testing.T) {
	const (
		identityHex = "0x0000000000000001000000000000000200000000000000030000000000000004"
		secretHex   = "0x00000000000000aa00000000000000bb00000000000000cc00000000000000dd"
	)
	id, err := commitment.ParseIdentity(identityHex)
	require.NoError(t, err)
	sec, err := commitment.ParseSecret(secretHex)
	require.NoError(t, err)
	expected, err := commitment.DepositCommitment(id, sec)
	require.NoError(t, err)

	wallet := &fakeWallet{
		addrs: []string{bridgeAddr},
		txs: []zcashwallet.Transaction{
			{TxID: "tx-legacy", Amount: 100, Memo: identityHex + "|" + secretHex, ToAddress: bridgeAddr},
		},
	}
	scanner := NewDepositScanner(testLogger(), wallet, "")

	candidates, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.True(t, candidates[0].Legacy)
	require.Equal(t, expected, candidates[0].Commitment)
}
