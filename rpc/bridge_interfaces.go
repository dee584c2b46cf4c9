package rpc

import (
	"context"

	"github.com/shieldedlabs/midenbridge/depositsync"
	"github.com/shieldedlabs/midenbridge/ledger"
	"github.com/shieldedlabs/midenbridge/word"
	"github.com/shieldedlabs/midenbridge/zcashwallet"
)

type DepositFinder interface {
	FindDeposit(ctx context.Context, commitment word.Word) (depositsync.DepositCandidate, bool, error)
}

type DepositProcessor interface {
	ProcessDeposit(ctx context.Context, cand depositsync.DepositCandidate) error
}

type LedgerReader interface {
	GetDepositClaim(ctx context.Context, commitment word.Word) (ledger.DepositClaim, error)
	GetWithdrawal(ctx context.Context, commitment word.Word) (ledger.WithdrawalRecord, error)
	UnclaimedWithdrawals(ctx context.Context) ([]ledger.WithdrawalRecord, error)
}

type BalanceReader interface {
	Balance(ctx context.Context) (zcashwallet.Balance, error)
}
