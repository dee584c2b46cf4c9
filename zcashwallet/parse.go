package zcashwallet

import (
	"fmt"
	"strconv"
	"strings"
)

const txidHexLen = 64

// parseTransactions extracts transactions from the devtool list-tx output.
// The format is one 64-hex txid line per transaction followed by indented
// detail lines:
//
//	<txid>
//	     Mined: <height> (<timestamp>)
//	    Amount: <amount> TAZ
//	  Fee paid: <fee>
//	  Sent X notes, received Y notes, Z memos
//	  Output 0 (ORCHARD)
//	    Value: <amount> TAZ
//	    To: <address>
//	    Memo: <memo>
//
// Unparseable lines are skipped so a format drift in one transaction cannot
// hide the rest.
func parseTransactions(output string) []Transaction {
	var txs []Transaction
	var current *Transaction
	inOutput := false

	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || line == "Transactions:" {
			continue
		}

		if isTxIDLine(line) {
			if current != nil {
				txs = append(txs, *current)
			}
			current = &Transaction{TxID: line}
			inOutput = false

			continue
		}
		if current == nil {
			continue
		}

		switch {
		case strings.HasPrefix(line, "Amount:"):
			if amount, err := parseCoins(strings.TrimPrefix(line, "Amount:")); err == nil {
				current.Amount = amount
			}
		case strings.HasPrefix(line, "Output"):
			inOutput = true
		case strings.HasPrefix(line, "Mined:"), strings.HasPrefix(line, "Unmined"), strings.HasPrefix(line, "Expired"):
			inOutput = false
		case inOutput && strings.HasPrefix(line, "To:"):
			if addr := strings.TrimSpace(strings.TrimPrefix(line, "To:")); addr != "" {
				current.ToAddress = addr
			}
		case inOutput && strings.HasPrefix(line, "Memo:"):
			if memo := strings.TrimSpace(strings.TrimPrefix(line, "Memo:")); memo != "" {
				current.Memo = memo
			}
		}
	}
	if current != nil {
		txs = append(txs, *current)
	}

	return txs
}

func isTxIDLine(line string) bool {
	if len(line) != txidHexLen {
		return false
	}
	for _, c := range line {
		if !isHexDigit(c) {
			return false
		}
	}

	return true
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// parseBalance extracts the total and spendable balances from the devtool
// balance output. Sapling and Orchard spendable pools are summed.
func parseBalance(output string) (Balance, error) {
	var b Balance
	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(line, "Balance:"):
			total, err := parseCoins(strings.TrimPrefix(line, "Balance:"))
			if err != nil {
				return Balance{}, fmt.Errorf("parsing balance line %q: %w", line, err)
			}
			b.Total = total
		case strings.Contains(line, "Spendable:"):
			_, after, _ := strings.Cut(line, "Spendable:")
			spendable, err := parseCoins(after)
			if err != nil {
				return Balance{}, fmt.Errorf("parsing spendable line %q: %w", line, err)
			}
			b.Spendable += spendable
		}
	}

	return b, nil
}

// parseAddresses extracts shielded and unified addresses from the devtool
// list-addresses output.
func parseAddresses(output string) []string {
	var addrs []string
	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)
		for _, prefix := range []string{"utest1", "u1", "ztestsapling", "zs1"} {
			if strings.HasPrefix(line, prefix) {
				addrs = append(addrs, line)

				break
			}
		}
	}

	return addrs
}

// findTxID returns the first 64-hex token in the send output.
func findTxID(output string) (string, bool) {
	for _, field := range strings.Fields(output) {
		if isTxIDLine(field) {
			return field, true
		}
	}

	return "", false
}

// parseCoins parses a decimal coin amount ("0.19990000 TAZ", unit optional)
// into zatoshis. Parsing goes through fixed-point string arithmetic, not
// floats, so amounts survive the round-trip exactly.
func parseCoins(s string) (uint64, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty amount")
	}
	value := fields[0]

	whole, frac, _ := strings.Cut(value, ".")
	if whole == "" {
		whole = "0"
	}
	coins, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	zats := coins * ZatoshiPerCoin

	if frac != "" {
		if len(frac) > 8 {
			frac = frac[:8]
		}
		// right-pad to 8 decimals
		frac += strings.Repeat("0", 8-len(frac))
		sub, err := strconv.ParseUint(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", value, err)
		}
		zats += sub
	}

	return zats, nil
}

// formatCoins renders zatoshis as the decimal coin string the devtool
// expects for --value.
func formatCoins(zats uint64) string {
	return fmt.Sprintf("%d.%08d", zats/ZatoshiPerCoin, zats%ZatoshiPerCoin)
}
