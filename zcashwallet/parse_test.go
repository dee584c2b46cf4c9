package zcashwallet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	txidA = "aaaabbbbccccddddeeeeffff0000111122223333444455556666777788889999"
	txidB = "bbbbccccddddeeeeffff00001111222233334444555566667777888899990000"
	txidC = "ccccddddeeeeffff000011112222333344445555666677778888999900001111"
)

const listTxFixture = `Transactions:
` + txidA + `
     Mined: 3187200 (2026-08-01 12:00:00 UTC)
    Amount: 0.19990000 TAZ
  Fee paid: 0.00010000 TAZ
  Sent 1 notes, received 1 notes, 1 memos
  Output 0 (ORCHARD)
    Value: 0.19990000 TAZ
    To: utest1vle8v3kkmtkwems8y6g0f5lqy92jyevtff4f9sp5dmjwqlkfmjhwhvml3gsx2kl8tyc3w4q4sgdfalhqlqn0c2gh0hjyana7efx4z0
    Memo: Text("0x000000000000000100000000000000020000000000000003fffffffe00000000")
` + txidB + `
  Unmined
    Amount: 5.00000000 TAZ
  Output 0 (SAPLING)
    To: ztestsapling1wqgc0cm50a4a6s0hy0n0ga3g0gqr30rkrfpsscx20gj27zs0e8uqdsrhcuzp80uhtzlgl0qhl06
this line is noise and must be skipped
` + txidC + `
     Mined: 3187300 (2026-08-01 13:00:00 UTC)
    Amount: 0.00001000 TAZ
`

func TestParseTransactions(t *testing.T) {
	txs := parseTransactions(listTxFixture)
	require.Len(t, txs, 3)

	require.Equal(t, txidA, txs[0].TxID)
	require.Equal(t, uint64(19_990_000), txs[0].Amount)
	require.True(t, strings.HasPrefix(txs[0].ToAddress, "utest1"))
	// memo is kept raw, wrapper included; normalization happens downstream
	require.Equal(t,
		`Text("0x000000000000000100000000000000020000000000000003fffffffe00000000")`,
		txs[0].Memo)

	require.Equal(t, txidB, txs[1].TxID)
	require.Equal(t, uint64(500_000_000), txs[1].Amount)
	require.True(t, strings.HasPrefix(txs[1].ToAddress, "ztestsapling1"))
	require.Empty(t, txs[1].Memo)

	require.Equal(t, txidC, txs[2].TxID)
	require.Equal(t, uint64(1000), txs[2].Amount)
	require.Empty(t, txs[2].ToAddress)
	require.Empty(t, txs[2].Memo)
}

func TestParseTransactionsEmpty(t *testing.T) {
	require.Empty(t, parseTransactions(""))
	require.Empty(t, parseTransactions("Transactions:\n"))
	// detail lines before any txid are dropped
	require.Empty(t, parseTransactions("    Amount: 1.00000000 TAZ\n"))
}

func TestParseTransactionsToOutsideOutput(t *testing.T) {
	// a To: line outside an Output block must not be taken as destination
	out := txidA + `
     Mined: 100 (2026-08-01)
    To: utest1shouldnotbeparsed
`
	txs := parseTransactions(out)
	require.Len(t, txs, 1)
	require.Empty(t, txs[0].ToAddress)
}

func TestParseBalance(t *testing.T) {
	out := `Scan progress: 100.00%
Balance: 1.23456789 TAZ
Sapling: 0.23456789 TAZ
  Spendable: 0.20000000 TAZ
Orchard: 1.00000000 TAZ
  Spendable: 1.00000000 TAZ
`
	b, err := parseBalance(out)
	require.NoError(t, err)
	require.Equal(t, uint64(123_456_789), b.Total)
	require.Equal(t, uint64(120_000_000), b.Spendable)
}

func TestParseBalanceBadAmount(t *testing.T) {
	_, err := parseBalance("Balance: not-a-number TAZ\n")
	require.Error(t, err)
}

func TestParseAddresses(t *testing.T) {
	out := `Account 0:
utest1vle8v3kkmtkwems8y6g0f5lqy92jyevtff4f9sp5dmjwqlkfmjhwhvml3gsx2kl8tyc3w4q4sgdfalhqlqn0c2gh0hjyana7efx4z0
ztestsapling1wqgc0cm50a4a6s0hy0n0ga3g0gqr30rkrfpsscx20gj27zs0e8uqdsrhcuzp80uhtzlgl0qhl06
this is not an address
`
	addrs := parseAddresses(out)
	require.Len(t, addrs, 2)
	require.True(t, strings.HasPrefix(addrs[0], "utest1"))
	require.True(t, strings.HasPrefix(addrs[1], "ztestsapling1"))
}

func TestFindTxID(t *testing.T) {
	got, ok := findTxID("Transaction sent: " + txidA + "\n")
	require.True(t, ok)
	require.Equal(t, txidA, got)

	_, ok = findTxID("no transaction id here")
	require.False(t, ok)
}

func TestParseCoins(t *testing.T) {
	testCases := []struct {
		input string
		exp   uint64
	}{
		{"0.19990000 TAZ", 19_990_000},
		{"5.00000000 TAZ", 500_000_000},
		{"5", 500_000_000},
		{"0.1", 10_000_000},
		{"0.00000001", 1},
		{".5", 50_000_000},
		{"1.234567891 TAZ", 123_456_789}, // extra decimals truncated
	}
	for _, tc := range testCases {
		got, err := parseCoins(tc.input)
		require.NoError(t, err, "input %q", tc.input)
		require.Equal(t, tc.exp, got, "input %q", tc.input)
	}

	_, err := parseCoins("")
	require.Error(t, err)
	_, err = parseCoins("abc TAZ")
	require.Error(t, err)
}

func TestFormatCoinsRoundTrip(t *testing.T) {
	for _, zats := range []uint64{0, 1, 19_990_000, 500_000_000, 123_456_789_012} {
		back, err := parseCoins(formatCoins(zats))
		require.NoError(t, err)
		require.Equal(t, zats, back)
	}
	require.Equal(t, "0.19990000", formatCoins(19_990_000))
	require.Equal(t, "5.00000000", formatCoins(500_000_000))
}
