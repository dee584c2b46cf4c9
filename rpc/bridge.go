package rpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/0xPolygon/cdk-rpc/rpc"
	"github.com/shieldedlabs/midenbridge/commitment"
	"github.com/shieldedlabs/midenbridge/db"
	"github.com/shieldedlabs/midenbridge/ledger"
	"github.com/shieldedlabs/midenbridge/log"
	"github.com/shieldedlabs/midenbridge/rpc/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	// BRIDGE is the namespace of the bridge service
	BRIDGE    = "bridge"
	meterName = "github.com/shieldedlabs/midenbridge/rpc"
)

// BridgeEndpoints contains implementations for the "bridge" RPC endpoints
type BridgeEndpoints struct {
	logger       *log.Logger
	meter        metric.Meter
	readTimeout  time.Duration
	writeTimeout time.Duration
	finder       DepositFinder
	processor    DepositProcessor
	claims       LedgerReader
	wallet       BalanceReader
}

// NewBridgeEndpoints returns BridgeEndpoints
func NewBridgeEndpoints(
	logger *log.Logger,
	writeTimeout time.Duration,
	readTimeout time.Duration,
	finder DepositFinder,
	processor DepositProcessor,
	claims LedgerReader,
	wallet BalanceReader,
) *BridgeEndpoints {
	meter := otel.Meter(meterName)

	return &BridgeEndpoints{
		logger:       logger,
		meter:        meter,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		finder:       finder,
		processor:    processor,
		claims:       claims,
		wallet:       wallet,
	}
}

// ClaimDeposit derives the commitment from the identity and secret, locates
// the matching deposit in the source-chain wallet and mints the wrapped
// note. Claiming an already-claimed deposit returns the existing claim, so
// the call is safe to repeat.
func (b *BridgeEndpoints) ClaimDeposit(identity, secret string) (interface{}, rpc.Error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.writeTimeout)
	defer cancel()

	c, merr := b.meter.Int64Counter("claim_deposit")
	if merr != nil {
		b.logger.Warnf("failed to create claim_deposit counter: %s", merr)
	}
	c.Add(ctx, 1)

	id, err := commitment.ParseIdentity(identity)
	if err != nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, fmt.Sprintf("invalid identity: %s", err))
	}
	sec, err := commitment.ParseSecret(secret)
	if err != nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, fmt.Sprintf("invalid secret: %s", err))
	}
	com, err := commitment.DepositCommitment(id, sec)
	if err != nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, fmt.Sprintf("deriving commitment: %s", err))
	}

	if claim, err := b.claims.GetDepositClaim(ctx, com); err == nil {
		return claimResult(claim), nil
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, fmt.Sprintf("failed to query claim: %s", err))
	}

	cand, found, err := b.finder.FindDeposit(ctx, com)
	if err != nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, fmt.Sprintf("failed to scan for deposit: %s", err))
	}
	if !found {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode,
			fmt.Sprintf("no deposit found for commitment %s", com.Hex()))
	}
	if err := b.processor.ProcessDeposit(ctx, cand); err != nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, fmt.Sprintf("failed to claim deposit: %s", err))
	}

	claim, err := b.claims.GetDepositClaim(ctx, com)
	if err != nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, fmt.Sprintf("failed to query claim after mint: %s", err))
	}

	return claimResult(claim), nil
}

// DepositStatus returns whether the deposit behind a commitment has been
// claimed, and the claim data when it has.
func (b *BridgeEndpoints) DepositStatus(commitmentHex string) (interface{}, rpc.Error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.readTimeout)
	defer cancel()

	c, merr := b.meter.Int64Counter("deposit_status")
	if merr != nil {
		b.logger.Warnf("failed to create deposit_status counter: %s", merr)
	}
	c.Add(ctx, 1)

	com, err := commitment.ParseIdentity(commitmentHex)
	if err != nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, fmt.Sprintf("invalid commitment: %s", err))
	}

	claim, err := b.claims.GetDepositClaim(ctx, com)
	if errors.Is(err, db.ErrNotFound) {
		return types.DepositStatus{Commitment: com.Hex()}, nil
	}
	if err != nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, fmt.Sprintf("failed to query claim: %s", err))
	}

	return types.DepositStatus{
		Commitment: claim.Commitment.Hex(),
		Claimed:    true,
		TxID:       claim.TxID,
		Amount:     claim.Amount,
		ClaimedAt:  claim.ClaimedAt,
	}, nil
}

// WithdrawalStatus returns the state of the withdrawal behind a commitment.
func (b *BridgeEndpoints) WithdrawalStatus(commitmentHex string) (interface{}, rpc.Error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.readTimeout)
	defer cancel()

	c, merr := b.meter.Int64Counter("withdrawal_status")
	if merr != nil {
		b.logger.Warnf("failed to create withdrawal_status counter: %s", merr)
	}
	c.Add(ctx, 1)

	com, err := commitment.ParseIdentity(commitmentHex)
	if err != nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, fmt.Sprintf("invalid commitment: %s", err))
	}

	rec, err := b.claims.GetWithdrawal(ctx, com)
	if errors.Is(err, db.ErrNotFound) {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode,
			fmt.Sprintf("no withdrawal found for commitment %s", com.Hex()))
	}
	if err != nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, fmt.Sprintf("failed to query withdrawal: %s", err))
	}

	return withdrawalStatus(rec), nil
}

// UnclaimedWithdrawals returns the withdrawals still owing a payout.
func (b *BridgeEndpoints) UnclaimedWithdrawals() (interface{}, rpc.Error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.readTimeout)
	defer cancel()

	c, merr := b.meter.Int64Counter("unclaimed_withdrawals")
	if merr != nil {
		b.logger.Warnf("failed to create unclaimed_withdrawals counter: %s", merr)
	}
	c.Add(ctx, 1)

	records, err := b.claims.UnclaimedWithdrawals(ctx)
	if err != nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, fmt.Sprintf("failed to query withdrawals: %s", err))
	}
	statuses := make([]types.WithdrawalStatus, 0, len(records))
	for _, rec := range records {
		statuses = append(statuses, withdrawalStatus(rec))
	}

	return statuses, nil
}

// BridgeBalance returns the source-chain wallet balance backing payouts.
func (b *BridgeEndpoints) BridgeBalance() (interface{}, rpc.Error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.readTimeout)
	defer cancel()

	c, merr := b.meter.Int64Counter("bridge_balance")
	if merr != nil {
		b.logger.Warnf("failed to create bridge_balance counter: %s", merr)
	}
	c.Add(ctx, 1)

	balance, err := b.wallet.Balance(ctx)
	if err != nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, fmt.Sprintf("failed to query wallet balance: %s", err))
	}

	return types.BridgeBalance{
		Total:     balance.Total,
		Spendable: balance.Spendable,
	}, nil
}

func claimResult(claim ledger.DepositClaim) types.ClaimResult {
	return types.ClaimResult{
		Commitment: claim.Commitment.Hex(),
		TxID:       claim.TxID,
		Amount:     claim.Amount,
		ClaimedAt:  claim.ClaimedAt,
	}
}

func withdrawalStatus(rec ledger.WithdrawalRecord) types.WithdrawalStatus {
	status := types.WithdrawalStatus{
		Commitment: rec.Commitment.Hex(),
		NoteID:     rec.NoteID,
		Amount:     rec.Amount,
		BlockNum:   rec.BlockNum,
		Paid:       rec.Paid(),
	}
	if rec.PayoutTxID != nil {
		status.PayoutTxID = *rec.PayoutTxID
	}
	if rec.ClaimedAt != nil {
		status.ClaimedAt = *rec.ClaimedAt
	}

	return status
}
