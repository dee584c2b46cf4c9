// Package zcashwallet drives the source-chain wallet through the
// zcash-devtool CLI: syncing, enhancing transactions to pull memo data,
// listing transactions and sending shielded payouts. All amounts are in base
// units (zatoshis, 8 decimals).
package zcashwallet

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/shieldedlabs/midenbridge/config/types"
	"github.com/shieldedlabs/midenbridge/log"
)

// ZatoshiPerCoin is the number of base units per whole coin.
const ZatoshiPerCoin = 100_000_000

// Config is the source-chain wallet configuration.
type Config struct {
	// DevtoolBin is the zcash-devtool executable.
	DevtoolBin string `mapstructure:"DevtoolBin"`
	// WalletDir is the wallet data directory passed with -w.
	WalletDir string `mapstructure:"WalletDir"`
	// IdentityFile is the age identity used to unlock spending keys for
	// sends. Must exist at startup.
	IdentityFile string `mapstructure:"IdentityFile"`
	// SyncServer is the lightwalletd server preset passed with -s.
	SyncServer string `mapstructure:"SyncServer"`
	// AccountID optionally restricts listing and sending to one wallet
	// account.
	AccountID string `mapstructure:"AccountID"`
	// ExecTimeout bounds a single devtool invocation. Sync over a cold
	// wallet can be slow, size accordingly.
	ExecTimeout types.Duration `mapstructure:"ExecTimeout"`
}

// Transaction is one wallet transaction as reported by the devtool, reduced
// to the fields the bridge cares about. Amount is in zatoshis; Memo and
// ToAddress are empty when the devtool reports none.
type Transaction struct {
	TxID      string
	Amount    uint64
	Memo      string
	ToAddress string
}

// Balance is the wallet balance in zatoshis.
type Balance struct {
	Total     uint64
	Spendable uint64
}

// Wallet wraps the devtool CLI. Safe for sequential use by one relayer;
// devtool holds a wallet lock so concurrent invocations are not supported.
type Wallet struct {
	logger *log.Logger
	cfg    Config
}

// NewWallet validates the configuration and returns a wallet. A missing
// wallet directory or identity file is a startup failure.
func NewWallet(logger *log.Logger, cfg Config) (*Wallet, error) {
	if _, err := os.Stat(cfg.WalletDir); err != nil {
		return nil, fmt.Errorf("wallet directory not accessible at %s: %w", cfg.WalletDir, err)
	}
	if _, err := os.Stat(cfg.IdentityFile); err != nil {
		return nil, fmt.Errorf("wallet identity file not accessible at %s: %w", cfg.IdentityFile, err)
	}
	if _, err := exec.LookPath(cfg.DevtoolBin); err != nil {
		return nil, fmt.Errorf("devtool binary %s: %w", cfg.DevtoolBin, err)
	}

	return &Wallet{
		logger: logger,
		cfg:    cfg,
	}, nil
}

func (w *Wallet) run(ctx context.Context, args ...string) (string, error) {
	if w.cfg.ExecTimeout.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.ExecTimeout.Duration)
		defer cancel()
	}

	full := append([]string{"wallet", "-w", w.cfg.WalletDir}, args...)
	cmd := exec.CommandContext(ctx, w.cfg.DevtoolBin, full...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s wallet %s: %w: %s", w.cfg.DevtoolBin, args[0], err, stderr.String())
	}

	return stdout.String(), nil
}

// Sync brings the wallet up to date with the chain.
func (w *Wallet) Sync(ctx context.Context) error {
	_, err := w.run(ctx, "sync", "-s", w.cfg.SyncServer)

	return err
}

// Enhance downloads full transaction data for synced transactions. Memos are
// only available after enhancing.
func (w *Wallet) Enhance(ctx context.Context) error {
	_, err := w.run(ctx, "enhance", "-s", w.cfg.SyncServer)

	return err
}

// Balance returns the wallet balance.
func (w *Wallet) Balance(ctx context.Context) (Balance, error) {
	out, err := w.run(ctx, "balance")
	if err != nil {
		return Balance{}, err
	}

	return parseBalance(out)
}

// ListAddresses returns the wallet's receiving addresses.
func (w *Wallet) ListAddresses(ctx context.Context) ([]string, error) {
	args := []string{"list-addresses"}
	if w.cfg.AccountID != "" {
		args = append(args, "--account-id", w.cfg.AccountID)
	}
	out, err := w.run(ctx, args...)
	if err != nil {
		return nil, err
	}

	return parseAddresses(out), nil
}

// ListTransactions returns the wallet's transactions, memos included if the
// wallet has been enhanced.
func (w *Wallet) ListTransactions(ctx context.Context) ([]Transaction, error) {
	args := []string{"list-tx"}
	if w.cfg.AccountID != "" {
		args = append(args, "--account-id", w.cfg.AccountID)
	}
	out, err := w.run(ctx, args...)
	if err != nil {
		return nil, err
	}

	return parseTransactions(out), nil
}

// Send sends amount zatoshis to the address, with an optional memo, and
// returns the txid. The target note count is pinned to 1 so payouts do not
// fragment the bridge's own shielded note set.
func (w *Wallet) Send(ctx context.Context, address string, amount uint64, memo string) (string, error) {
	args := []string{
		"send",
		"--identity", w.cfg.IdentityFile,
		"--address", address,
		"--value", formatCoins(amount),
		"--target-note-count", "1",
		"-s", w.cfg.SyncServer,
	}
	if w.cfg.AccountID != "" {
		args = append(args, "--account-id", w.cfg.AccountID)
	}
	if memo != "" {
		args = append(args, "--memo", memo)
	}

	out, err := w.run(ctx, args...)
	if err != nil {
		return "", err
	}
	txid, ok := findTxID(out)
	if !ok {
		return "", fmt.Errorf("send output carries no txid: %s", out)
	}
	w.logger.Debugf("sent %s to %s, txid %s", formatCoins(amount), address, txid)

	return txid, nil
}
