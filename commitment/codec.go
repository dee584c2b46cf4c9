// Package commitment implements the cross-chain commitment codec: deriving
// the blinding commitment that links a source-chain deposit to a rollup note,
// and packing a foreign-chain address into the fixed-width field-element
// tuple carried on withdrawal notes. Pure functions, no I/O.
package commitment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/shieldedlabs/midenbridge/word"
)

const (
	// AddressTupleLen is the number of field elements used to carry a
	// foreign-chain address on a withdrawal note.
	AddressTupleLen = 14

	// addrBytesPerElem bytes packed per element. 7 bytes keep every
	// element below 2^56, comfortably inside the field.
	addrBytesPerElem = 7

	// MaxAddressLen is the longest address the tuple can carry: one byte
	// is reserved for the length prefix. 97 bytes cover both transparent
	// and shielded address encodings.
	MaxAddressLen = AddressTupleLen*addrBytesPerElem - 1
)

var (
	ErrInvalidSecret       = errors.New("invalid secret")
	ErrInvalidIdentity     = errors.New("invalid destination identity")
	ErrAddressTooLong      = errors.New("address exceeds tuple capacity")
	ErrInvalidAddress      = errors.New("invalid address")
	ErrUndecodableAddress  = errors.New("undecodable address tuple")
	ErrInvalidTupleElement = errors.New("address tuple element out of range")
)

// FieldTuple is the fixed-width numeric representation of a foreign-chain
// address as carried on withdrawal note inputs.
type FieldTuple [AddressTupleLen]uint64

// shielded address human-readable prefixes (mainnet and testnet); anything
// else is treated as a transparent base58check address.
var shieldedPrefixes = []string{"zs", "ztestsapling", "u1", "utest"}

// DepositCommitment derives the commitment binding a destination identity to
// a secret. Deterministic: the same pair always produces the same word, and
// the underlying hash makes finding a second preimage infeasible.
func DepositCommitment(identity, secret word.Word) (word.Word, error) {
	if secret.IsZero() {
		return word.Word{}, fmt.Errorf("%w: zero word", ErrInvalidSecret)
	}

	return word.DigestWords(identity, secret)
}

// ParseSecret parses the canonical hex form of a secret. A secret must be a
// well-formed fixed-width word; anything else fails with ErrInvalidSecret.
func ParseSecret(s string) (word.Word, error) {
	w, err := word.FromHex(strings.TrimSpace(s))
	if err != nil {
		return word.Word{}, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	if w.IsZero() {
		return word.Word{}, fmt.Errorf("%w: zero word", ErrInvalidSecret)
	}

	return w, nil
}

// ParseIdentity parses the canonical hex form of a destination identity.
func ParseIdentity(s string) (word.Word, error) {
	w, err := word.FromHex(strings.TrimSpace(s))
	if err != nil {
		return word.Word{}, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}

	return w, nil
}

// EncodeAddress packs a foreign-chain address into the field tuple:
// one length byte followed by the raw address bytes, 7 bytes per element,
// zero padded. The packing is reversible: DecodeAddress returns the exact
// input for every address this function accepts.
func EncodeAddress(addr string) (FieldTuple, error) {
	var t FieldTuple
	if err := validateAddress(addr); err != nil {
		return t, err
	}

	buf := make([]byte, AddressTupleLen*addrBytesPerElem)
	buf[0] = byte(len(addr))
	copy(buf[1:], addr)

	for i := 0; i < AddressTupleLen; i++ {
		var elem uint64
		for _, b := range buf[i*addrBytesPerElem : (i+1)*addrBytesPerElem] {
			elem = elem<<8 | uint64(b)
		}
		t[i] = elem
	}

	return t, nil
}

// DecodeAddress is the exact inverse of EncodeAddress. It fails with
// ErrUndecodableAddress when the tuple does not carry a well-formed packed
// address (bad length prefix, nonzero padding or non-printable bytes).
func DecodeAddress(t FieldTuple) (string, error) {
	buf := make([]byte, 0, AddressTupleLen*addrBytesPerElem)
	for i, elem := range t {
		if elem>>(addrBytesPerElem*8) != 0 {
			return "", fmt.Errorf("%w: element %d", ErrInvalidTupleElement, i)
		}
		for shift := (addrBytesPerElem - 1) * 8; shift >= 0; shift -= 8 {
			buf = append(buf, byte(elem>>shift))
		}
	}

	addrLen := int(buf[0])
	if addrLen == 0 || addrLen > MaxAddressLen {
		return "", fmt.Errorf("%w: length prefix %d", ErrUndecodableAddress, addrLen)
	}
	addr := string(buf[1 : 1+addrLen])
	for _, b := range buf[1+addrLen:] {
		if b != 0 {
			return "", fmt.Errorf("%w: nonzero padding", ErrUndecodableAddress)
		}
	}
	if err := validateAddress(addr); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUndecodableAddress, err)
	}

	return addr, nil
}

func validateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	if len(addr) > MaxAddressLen {
		return fmt.Errorf("%w: %d bytes, max %d", ErrAddressTooLong, len(addr), MaxAddressLen)
	}
	for _, r := range addr {
		if r <= ' ' || r > '~' {
			return fmt.Errorf("%w: non-printable character", ErrInvalidAddress)
		}
	}
	if isShielded(addr) {
		return nil
	}
	// transparent addresses are base58check
	if _, err := base58.Decode(addr); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	return nil
}

func isShielded(addr string) bool {
	lower := strings.ToLower(addr)
	for _, prefix := range shieldedPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}

	return false
}
