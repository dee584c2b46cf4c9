// Package depositsync implements the deposit relayer: scan the source-chain
// wallet for memo-tagged inbound transfers, decode their commitments and
// mint wrapped-value notes on the rollup, recording every claim in the
// ledger so restarts and retries never double-mint.
package depositsync

import (
	"context"

	"github.com/shieldedlabs/midenbridge/commitment"
	"github.com/shieldedlabs/midenbridge/log"
	"github.com/shieldedlabs/midenbridge/word"
	"github.com/shieldedlabs/midenbridge/zcashwallet"
)

// Walleter is the source-chain wallet surface the scanner needs.
type Walleter interface {
	Sync(ctx context.Context) error
	Enhance(ctx context.Context) error
	ListAddresses(ctx context.Context) ([]string, error)
	ListTransactions(ctx context.Context) ([]zcashwallet.Transaction, error)
}

// DepositCandidate is an inbound transfer whose memo decoded into a
// commitment. Amount is in source-chain base units.
type DepositCandidate struct {
	TxID       string
	Commitment word.Word
	Amount     uint64
	// Legacy marks candidates whose memo used the identity|secret grammar
	// instead of the bare commitment.
	Legacy bool
}

// DepositScanner extracts deposit candidates from the wallet's transaction
// history.
type DepositScanner struct {
	logger        *log.Logger
	wallet        Walleter
	bridgeAddress string
}

// NewDepositScanner returns a scanner over the wallet. bridgeAddress may be
// empty; address filtering then falls back to the wallet's own address list.
func NewDepositScanner(logger *log.Logger, wallet Walleter, bridgeAddress string) *DepositScanner {
	return &DepositScanner{
		logger:        logger,
		wallet:        wallet,
		bridgeAddress: bridgeAddress,
	}
}

// Scan syncs and enhances the wallet, then walks its transactions and
// returns every inbound transfer carrying a decodable memo. Malformed memos
// are logged and skipped; they never abort the scan.
func (s *DepositScanner) Scan(ctx context.Context) ([]DepositCandidate, error) {
	if err := s.wallet.Sync(ctx); err != nil {
		return nil, err
	}
	if err := s.wallet.Enhance(ctx); err != nil {
		return nil, err
	}

	filter := s.addressFilter(ctx)

	txs, err := s.wallet.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}

	var candidates []DepositCandidate
	for _, tx := range txs {
		if tx.Amount == 0 || tx.Memo == "" {
			continue
		}
		if filter != nil && !filter[tx.ToAddress] {
			continue
		}
		memo, err := commitment.ParseMemo(tx.Memo)
		if err != nil {
			s.logger.Debugf("skipping tx %s: undecodable memo %q: %v", tx.TxID, tx.Memo, err)

			continue
		}
		candidates = append(candidates, DepositCandidate{
			TxID:       tx.TxID,
			Commitment: memo.Commitment,
			Amount:     tx.Amount,
			Legacy:     memo.Legacy,
		})
	}
	s.logger.Debugf("deposit scan: %d transactions, %d candidates", len(txs), len(candidates))

	return candidates, nil
}

// FindDeposit scans for the inbound transfer carrying the given commitment.
// Used by the claim path: the caller re-derived the commitment from
// identity and secret and needs the matching txid and amount.
func (s *DepositScanner) FindDeposit(ctx context.Context, c word.Word) (DepositCandidate, bool, error) {
	candidates, err := s.Scan(ctx)
	if err != nil {
		return DepositCandidate{}, false, err
	}
	for _, cand := range candidates {
		if cand.Commitment == c {
			return cand, true, nil
		}
	}

	return DepositCandidate{}, false, nil
}

// addressFilter returns the set of addresses inbound deposits must target,
// or nil when no filtering is possible. A configured bridge address always
// wins; otherwise the wallet's own addresses are used, and if those cannot
// be listed the scan proceeds unfiltered, which is acceptable because the
// wallet only sees its own notes anyway.
func (s *DepositScanner) addressFilter(ctx context.Context) map[string]bool {
	if s.bridgeAddress != "" {
		return map[string]bool{s.bridgeAddress: true}
	}
	addrs, err := s.wallet.ListAddresses(ctx)
	if err != nil || len(addrs) == 0 {
		s.logger.Warnf("could not list wallet addresses, processing all transactions with valid memos: %v", err)

		return nil
	}
	filter := make(map[string]bool, len(addrs))
	for _, a := range addrs {
		filter[a] = true
	}

	return filter
}
