package commitment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shieldedlabs/midenbridge/word"
)

var ErrMalformedMemo = errors.New("malformed memo")

// Memo is a validated deposit memo. The canonical grammar is a bare hex
// commitment (0x + 64 hex chars). The pipe-delimited identity|secret grammar
// predates it and is still accepted, flagged Legacy so callers can log it.
type Memo struct {
	Commitment word.Word
	Legacy     bool
}

// ParseMemo normalizes and validates a raw memo string as read from a
// source-chain transfer. The transfer layer wraps memo text in several
// equivalent encodings (Memo::Text("..."), Text("..."), bare quotes);
// normalization strips them all before the grammar check, so every encoding
// of the same memo converges on the same commitment.
func ParseMemo(raw string) (Memo, error) {
	text := NormalizeMemo(raw)
	if text == "" {
		return Memo{}, fmt.Errorf("%w: empty", ErrMalformedMemo)
	}

	if identity, secret, ok := strings.Cut(text, "|"); ok {
		id, err := ParseIdentity(identity)
		if err != nil {
			return Memo{}, fmt.Errorf("%w: %v", ErrMalformedMemo, err)
		}
		sec, err := ParseSecret(secret)
		if err != nil {
			return Memo{}, fmt.Errorf("%w: %v", ErrMalformedMemo, err)
		}
		commitment, err := DepositCommitment(id, sec)
		if err != nil {
			return Memo{}, fmt.Errorf("%w: %v", ErrMalformedMemo, err)
		}

		return Memo{Commitment: commitment, Legacy: true}, nil
	}

	commitment, err := word.FromHex(text)
	if err != nil {
		return Memo{}, fmt.Errorf("%w: %v", ErrMalformedMemo, err)
	}

	return Memo{Commitment: commitment}, nil
}

// NormalizeMemo strips the transfer-layer wrappers and whitespace from a raw
// memo, returning the bare text. An empty or explicitly empty memo
// normalizes to "".
func NormalizeMemo(raw string) string {
	text := strings.TrimSpace(raw)

	for _, wrapper := range []string{"Memo::Text(", "Text("} {
		if strings.HasPrefix(text, wrapper) && strings.HasSuffix(text, ")") {
			text = strings.TrimSuffix(strings.TrimPrefix(text, wrapper), ")")
			break
		}
	}
	text = strings.TrimSpace(strings.Trim(text, `"`))

	if text == "Empty" || strings.HasPrefix(text, "Memo::Empty") {
		return ""
	}

	return text
}
