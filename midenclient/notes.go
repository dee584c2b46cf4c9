// Package midenclient models the bridge's view of the rollup: note tags,
// note records and the decoding of bridge note payloads, plus the client
// boundary used to sync, list consumed notes and mint deposit notes.
package midenclient

import (
	"errors"
	"fmt"

	"github.com/shieldedlabs/midenbridge/commitment"
	"github.com/shieldedlabs/midenbridge/word"
)

const (
	// BridgeUseCase is the local note tag use case reserved for notes
	// bridged between the rollup and external chains.
	BridgeUseCase uint16 = 14594

	// SubTagDeposit marks notes minted on the rollup for an inbound
	// deposit; SubTagWithdrawal marks burn notes exiting the rollup.
	SubTagDeposit    uint16 = 0
	SubTagWithdrawal uint16 = 1

	// maxUseCase is the largest use case id a local tag can carry (14 bits).
	maxUseCase = 1 << 14

	localTagPrefix uint32 = 0b11 << 30
)

// Withdrawal note input layout. The serial number doubles as the withdrawal
// commitment; the address tuple is the reversible field-element packing of
// the destination address.
const (
	inputsSerialStart = 0
	InputsChainIdx    = word.Len
	inputsAddrStart   = word.Len + 1

	// MinWithdrawalInputs is the number of input elements a withdrawal
	// note must carry: serial word, destination chain id, address tuple.
	MinWithdrawalInputs = word.Len + 1 + commitment.AddressTupleLen
)

var (
	ErrInvalidUseCase     = errors.New("note tag use case out of range")
	ErrWrongTag           = errors.New("note does not carry a bridge tag")
	ErrInsufficientInputs = errors.New("insufficient note inputs")
	ErrZeroAmount         = errors.New("note carries no fungible asset amount")
)

// NoteTag is the 32-bit routing tag attached to rollup note metadata.
type NoteTag uint32

// ForLocalUseCase builds a locally-targeted note tag from a use case id and
// a sub-tag payload, matching the rollup's tag arithmetic: the two high bits
// select local execution, the next 14 bits carry the use case, the low 16
// bits carry the payload.
func ForLocalUseCase(useCase, payload uint16) (NoteTag, error) {
	if useCase >= maxUseCase {
		return 0, fmt.Errorf("%w: %d", ErrInvalidUseCase, useCase)
	}

	return NoteTag(localTagPrefix | uint32(useCase)<<16 | uint32(payload)), nil
}

// DepositTag returns the tag carried by deposit mint notes.
func DepositTag() NoteTag {
	tag, _ := ForLocalUseCase(BridgeUseCase, SubTagDeposit)

	return tag
}

// WithdrawalTag returns the tag carried by withdrawal burn notes.
func WithdrawalTag() NoteTag {
	tag, _ := ForLocalUseCase(BridgeUseCase, SubTagWithdrawal)

	return tag
}

// UseCase extracts the 14-bit use case id of a local tag.
func (t NoteTag) UseCase() uint16 {
	return uint16(uint32(t) >> 16 & (maxUseCase - 1))
}

// SubTag extracts the low 16 payload bits of the tag.
func (t NoteTag) SubTag() uint16 {
	return uint16(uint32(t) & 0xFFFF)
}

// IsLocal reports whether the tag targets local execution.
func (t NoteTag) IsLocal() bool {
	return uint32(t)&localTagPrefix == localTagPrefix
}

func (t NoteTag) String() string {
	return fmt.Sprintf("0x%08x", uint32(t))
}

// NoteType is the visibility class of a note on the rollup.
type NoteType uint8

const (
	NoteTypePrivate NoteType = iota
	NoteTypePublic
	NoteTypeEncrypted
)

func (n NoteType) String() string {
	switch n {
	case NoteTypePrivate:
		return "private"
	case NoteTypePublic:
		return "public"
	case NoteTypeEncrypted:
		return "encrypted"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(n))
	}
}

// Metadata is the public metadata attached to every note.
type Metadata struct {
	Sender string   `json:"sender"`
	Type   NoteType `json:"note_type"`
	Tag    NoteTag  `json:"tag"`
}

// FungibleAsset is a faucet-issued amount attached to a note. Amounts are in
// the asset's base units.
type FungibleAsset struct {
	FaucetID string `json:"faucet_id"`
	Amount   uint64 `json:"amount"`
}

// NoteRecord is a note as reported by the rollup client: identity, metadata,
// raw input elements, attached assets and the block the note was included
// (or consumed) at.
type NoteRecord struct {
	ID       string          `json:"id"`
	Metadata Metadata        `json:"metadata"`
	Inputs   []uint64        `json:"inputs"`
	Assets   []FungibleAsset `json:"assets"`
	BlockNum uint64          `json:"block_num"`
}

// Payload is the decoded meaning of a bridge note. The concrete types form
// a closed set so downstream code switches over variants instead of
// re-inspecting raw tag and input fields.
type Payload interface {
	isPayload()
}

// DepositPayload is a note minted for an inbound deposit, addressed to a
// deposit commitment.
type DepositPayload struct {
	Commitment word.Word
	NoteID     string
	Amount     uint64
	BlockNum   uint64
}

func (DepositPayload) isPayload() {}

// WithdrawalPayload is a consumed burn note exiting the rollup. Commitment
// is the note's serial word; Amount comes strictly from the attached
// fungible asset, never from the inputs.
type WithdrawalPayload struct {
	Commitment   word.Word
	NoteID       string
	ChainID      uint64
	AddressTuple commitment.FieldTuple
	Amount       uint64
	BlockNum     uint64
}

func (WithdrawalPayload) isPayload() {}

// DecodePayload decodes a note record into its bridge payload variant. It
// fails with ErrWrongTag for notes outside the bridge use case,
// ErrInsufficientInputs when the input layout is too short for the sub-tag,
// and ErrZeroAmount when no positive fungible amount is attached.
func DecodePayload(rec NoteRecord) (Payload, error) {
	tag := rec.Metadata.Tag
	if !tag.IsLocal() || tag.UseCase() != BridgeUseCase {
		return nil, fmt.Errorf("%w: note %s tag %s", ErrWrongTag, rec.ID, tag)
	}

	amount := fungibleAmount(rec)

	switch tag.SubTag() {
	case SubTagDeposit:
		serial, err := serialWord(rec)
		if err != nil {
			return nil, err
		}

		return DepositPayload{
			Commitment: serial,
			NoteID:     rec.ID,
			Amount:     amount,
			BlockNum:   rec.BlockNum,
		}, nil

	case SubTagWithdrawal:
		if len(rec.Inputs) < MinWithdrawalInputs {
			return nil, fmt.Errorf("%w: note %s has %d inputs, need %d",
				ErrInsufficientInputs, rec.ID, len(rec.Inputs), MinWithdrawalInputs)
		}
		if amount == 0 {
			return nil, fmt.Errorf("%w: note %s", ErrZeroAmount, rec.ID)
		}
		serial, err := serialWord(rec)
		if err != nil {
			return nil, err
		}
		var tuple commitment.FieldTuple
		copy(tuple[:], rec.Inputs[inputsAddrStart:inputsAddrStart+commitment.AddressTupleLen])

		return WithdrawalPayload{
			Commitment:   serial,
			NoteID:       rec.ID,
			ChainID:      rec.Inputs[InputsChainIdx],
			AddressTuple: tuple,
			Amount:       amount,
			BlockNum:     rec.BlockNum,
		}, nil

	default:
		return nil, fmt.Errorf("%w: note %s has unknown sub-tag %d", ErrWrongTag, rec.ID, tag.SubTag())
	}
}

func serialWord(rec NoteRecord) (word.Word, error) {
	if len(rec.Inputs) < word.Len {
		return word.Word{}, fmt.Errorf("%w: note %s has %d inputs, need %d for the serial word",
			ErrInsufficientInputs, rec.ID, len(rec.Inputs), word.Len)
	}
	var w word.Word
	copy(w[:], rec.Inputs[inputsSerialStart:inputsSerialStart+word.Len])

	return w, nil
}

func fungibleAmount(rec NoteRecord) uint64 {
	var amount uint64
	for _, asset := range rec.Assets {
		amount += asset.Amount
	}

	return amount
}
