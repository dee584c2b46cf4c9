package midenclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/shieldedlabs/midenbridge/config/types"
	"github.com/shieldedlabs/midenbridge/log"
	"github.com/shieldedlabs/midenbridge/word"
)

// Config is the rollup client configuration.
type Config struct {
	// ClientBin is the rollup node client executable the bridge shells
	// out to for sync, note listing and transaction pipelines.
	ClientBin string `mapstructure:"ClientBin"`
	// RPCURL is the rollup node gRPC endpoint passed to the client.
	RPCURL string `mapstructure:"RPCURL"`
	// StorePath is the client's local sqlite note store.
	StorePath string `mapstructure:"StorePath"`
	// KeystorePath holds the bridge operator account keys. Must exist at
	// startup.
	KeystorePath string `mapstructure:"KeystorePath"`
	// FaucetID is the wrapped-asset faucet account (bech32) that mints
	// deposit notes and whose asset withdrawal notes burn.
	FaucetID string `mapstructure:"FaucetID"`
	// ExecTimeout bounds a single client invocation. Proving can take a
	// while, size accordingly.
	ExecTimeout types.Duration `mapstructure:"ExecTimeout"`
}

// Client is the rollup boundary used by the relayers: sync the local view,
// query notes and mint deposit notes through the full transaction pipeline.
type Client interface {
	// SyncState brings the local note store up to date with the rollup.
	SyncState(ctx context.Context) error
	// SyncHeight returns the rollup block height of the local view.
	SyncHeight(ctx context.Context) (uint64, error)
	// ConsumedNotes lists the notes carrying the given tag that have been
	// consumed on the rollup.
	ConsumedNotes(ctx context.Context, tag NoteTag) ([]NoteRecord, error)
	// MintNote mints a note holding amount units of the bridge faucet
	// asset, addressed to the recipient digest, and runs it through the
	// execute, prove, submit and apply pipeline. Returns the created note
	// id and the transaction id.
	MintNote(ctx context.Context, recipient word.Word, amount uint64) (noteID, txID string, err error)
	// FindMintedNote reports whether a deposit note addressed to the
	// recipient digest already exists on the rollup, in any status.
	FindMintedNote(ctx context.Context, recipient word.Word) (noteID string, found bool, err error)
}

// ProcessClient implements Client by driving the rollup node client binary.
// All invocations share the store, keystore and endpoint from the config;
// outputs are the client's JSON forms.
type ProcessClient struct {
	logger *log.Logger
	cfg    Config
}

// NewProcessClient validates the configuration and returns a client. A
// missing keystore or client binary is a startup failure: no relayer loop
// should run without signing material.
func NewProcessClient(logger *log.Logger, cfg Config) (*ProcessClient, error) {
	if _, err := os.Stat(cfg.KeystorePath); err != nil {
		return nil, fmt.Errorf("rollup keystore not accessible at %s: %w", cfg.KeystorePath, err)
	}
	if _, err := exec.LookPath(cfg.ClientBin); err != nil {
		return nil, fmt.Errorf("rollup client binary %s: %w", cfg.ClientBin, err)
	}
	if cfg.FaucetID == "" {
		return nil, fmt.Errorf("rollup faucet account id is not configured")
	}

	return &ProcessClient{
		logger: logger,
		cfg:    cfg,
	}, nil
}

func (c *ProcessClient) run(ctx context.Context, args ...string) ([]byte, error) {
	if c.cfg.ExecTimeout.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.ExecTimeout.Duration)
		defer cancel()
	}

	base := []string{
		"--store", c.cfg.StorePath,
		"--keystore", c.cfg.KeystorePath,
		"--rpc", c.cfg.RPCURL,
		"--json",
	}
	cmd := exec.CommandContext(ctx, c.cfg.ClientBin, append(base, args...)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s %s: %w: %s", c.cfg.ClientBin, args[0], err, stderr.String())
	}

	return stdout.Bytes(), nil
}

// SyncState syncs the local note store against the rollup node.
func (c *ProcessClient) SyncState(ctx context.Context) error {
	out, err := c.run(ctx, "sync")
	if err != nil {
		return err
	}
	var res struct {
		BlockNum uint64 `json:"block_num"`
	}
	if err := json.Unmarshal(out, &res); err != nil {
		return fmt.Errorf("decoding sync output: %w", err)
	}
	c.logger.Debugf("rollup store synced to block %d", res.BlockNum)

	return nil
}

// SyncHeight returns the block height of the local rollup view.
func (c *ProcessClient) SyncHeight(ctx context.Context) (uint64, error) {
	out, err := c.run(ctx, "status")
	if err != nil {
		return 0, err
	}
	var res struct {
		BlockNum uint64 `json:"block_num"`
	}
	if err := json.Unmarshal(out, &res); err != nil {
		return 0, fmt.Errorf("decoding status output: %w", err)
	}

	return res.BlockNum, nil
}

// ConsumedNotes lists consumed notes carrying the tag.
func (c *ProcessClient) ConsumedNotes(ctx context.Context, tag NoteTag) ([]NoteRecord, error) {
	out, err := c.run(ctx, "notes", "--status", "consumed", "--tag", tag.String())
	if err != nil {
		return nil, err
	}
	var notes []NoteRecord
	if err := json.Unmarshal(out, &notes); err != nil {
		return nil, fmt.Errorf("decoding notes output: %w", err)
	}

	return notes, nil
}

// MintNote mints a private deposit note addressed to the recipient digest.
// The client binary runs the whole execute, prove, submit and apply pipeline
// before printing the created ids, so a nil error means the mint landed.
func (c *ProcessClient) MintNote(
	ctx context.Context, recipient word.Word, amount uint64,
) (string, string, error) {
	out, err := c.run(ctx,
		"mint",
		"--faucet", c.cfg.FaucetID,
		"--recipient", recipient.Hex(),
		"--amount", strconv.FormatUint(amount, 10),
		"--note-type", NoteTypePrivate.String(),
		"--tag", DepositTag().String(),
	)
	if err != nil {
		return "", "", err
	}
	var res struct {
		NoteID string `json:"note_id"`
		TxID   string `json:"tx_id"`
	}
	if err := json.Unmarshal(out, &res); err != nil {
		return "", "", fmt.Errorf("decoding mint output: %w", err)
	}
	if res.NoteID == "" || res.TxID == "" {
		return "", "", fmt.Errorf("mint output missing note or transaction id: %s", out)
	}

	return res.NoteID, res.TxID, nil
}

// FindMintedNote queries the rollup for deposit notes addressed to the
// recipient digest. A mint invocation can fail after the pipeline submitted
// (timeout mid-prove, garbled output) without leaving a local record; this
// is how the issuer tells a lost mint from one that actually landed.
func (c *ProcessClient) FindMintedNote(ctx context.Context, recipient word.Word) (string, bool, error) {
	out, err := c.run(ctx,
		"notes",
		"--tag", DepositTag().String(),
		"--recipient", recipient.Hex(),
	)
	if err != nil {
		return "", false, err
	}
	var notes []NoteRecord
	if err := json.Unmarshal(out, &notes); err != nil {
		return "", false, fmt.Errorf("decoding notes output: %w", err)
	}
	if len(notes) == 0 {
		return "", false, nil
	}

	return notes[0].ID, true, nil
}
