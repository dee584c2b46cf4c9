// Package word implements the fixed-width field-element tuple used as the
// external key material of the bridge: note recipient digests, deposit
// commitments and secrets are all 4-element words over the 64-bit field.
package word

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/shieldedlabs/midenbridge/common"
)

const (
	// Modulus of the 64-bit field the rollup executes over (2^64 - 2^32 + 1)
	Modulus uint64 = 0xFFFFFFFF00000001

	// Len is the number of field elements on a word
	Len = 4

	hexLen = 2 + Len*16
)

var (
	ErrInvalidWord    = errors.New("invalid word")
	ErrInvalidElement = errors.New("field element out of range")
)

// Word is a tuple of 4 field elements. Its canonical string form is
// 0x followed by 64 hex chars, each element big-endian.
type Word [Len]uint64

// FromHex parses the canonical hex form of a word. It fails with
// ErrInvalidWord on malformed input and ErrInvalidElement if any of the
// 8-byte limbs is not a canonical field element.
func FromHex(s string) (Word, error) {
	var w Word
	if len(s) != hexLen || !strings.HasPrefix(s, "0x") {
		return w, fmt.Errorf("%w: expected 0x + %d hex chars, got %q", ErrInvalidWord, Len*16, s)
	}
	for i := 0; i < Len; i++ {
		limb := s[2+i*16 : 2+(i+1)*16]
		elem, err := strconv.ParseUint(limb, 16, 64)
		if err != nil {
			return Word{}, fmt.Errorf("%w: limb %d is not hex: %q", ErrInvalidWord, i, limb)
		}
		if elem >= Modulus {
			return Word{}, fmt.Errorf("%w: limb %d", ErrInvalidElement, i)
		}
		w[i] = elem
	}

	return w, nil
}

// Hex returns the canonical string form of the word.
func (w Word) Hex() string {
	var sb strings.Builder
	sb.WriteString("0x")
	for _, elem := range w {
		fmt.Fprintf(&sb, "%016x", elem)
	}

	return sb.String()
}

// Bytes returns the big-endian byte representation of the word (32 bytes).
func (w Word) Bytes() []byte {
	b := make([]byte, 0, Len*8)
	for _, elem := range w {
		b = append(b, common.Uint64ToBytes(elem)...)
	}

	return b
}

// IsZero reports whether every element of the word is zero.
func (w Word) IsZero() bool {
	return w == Word{}
}

// Digest hashes the given field elements into a word. The underlying
// permutation is Poseidon; the result limbs are reduced into the field so the
// digest is itself a valid word.
func Digest(elems ...uint64) (Word, error) {
	inputs := make([]*big.Int, len(elems))
	for i, e := range elems {
		inputs[i] = new(big.Int).SetUint64(e)
	}
	h, err := poseidon.Hash(inputs)
	if err != nil {
		return Word{}, fmt.Errorf("poseidon: %w", err)
	}

	var w Word
	var buf [32]byte
	h.FillBytes(buf[:])
	for i := 0; i < Len; i++ {
		w[i] = common.BytesToUint64(buf[i*8:(i+1)*8]) % Modulus
	}

	return w, nil
}

// DigestWords hashes a sequence of words element-wise.
func DigestWords(words ...Word) (Word, error) {
	elems := make([]uint64, 0, len(words)*Len)
	for _, w := range words {
		elems = append(elems, w[:]...)
	}

	return Digest(elems...)
}
