package commitment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMemoCanonical(t *testing.T) {
	memo, err := ParseMemo(identityHex)
	require.NoError(t, err)
	require.False(t, memo.Legacy)
	require.Equal(t, identityHex, memo.Commitment.Hex())
}

func TestParseMemoWrapperEquivalence(t *testing.T) {
	variants := []string{
		identityHex,
		`Memo::Text("` + identityHex + `")`,
		`Text("` + identityHex + `")`,
		`"` + identityHex + `"`,
		"  " + identityHex + "\n",
	}
	for _, raw := range variants {
		memo, err := ParseMemo(raw)
		require.NoError(t, err, "variant %q", raw)
		require.Equal(t, identityHex, memo.Commitment.Hex(), "variant %q", raw)
	}
}

func TestParseMemoLegacyConvergence(t *testing.T) {
	id, err := ParseIdentity(identityHex)
	require.NoError(t, err)
	sec, err := ParseSecret(secretHex)
	require.NoError(t, err)
	expected, err := DepositCommitment(id, sec)
	require.NoError(t, err)

	memo, err := ParseMemo(identityHex + "|" + secretHex)
	require.NoError(t, err)
	require.True(t, memo.Legacy)
	require.Equal(t, expected, memo.Commitment)

	// the bare commitment form of the same deposit yields the same claim key
	bare, err := ParseMemo(expected.Hex())
	require.NoError(t, err)
	require.False(t, bare.Legacy)
	require.Equal(t, expected, bare.Commitment)
}

func TestParseMemoErrors(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"explicit empty", "Empty"},
		{"wrapped empty", "Memo::Empty"},
		{"whitespace", "   "},
		{"garbage", "hello world"},
		{"short hex", "0x1234"},
		{"legacy zero secret", identityHex + "|" + "0x0000000000000000000000000000000000000000000000000000000000000000"},
		{"legacy bad identity", "nope|" + secretHex},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseMemo(tc.raw)
			require.ErrorIs(t, err, ErrMalformedMemo)
		})
	}
}

func TestNormalizeMemo(t *testing.T) {
	require.Equal(t, "abc", NormalizeMemo(`Memo::Text("abc")`))
	require.Equal(t, "abc", NormalizeMemo(`Text("abc")`))
	require.Equal(t, "abc", NormalizeMemo(` "abc" `))
	require.Equal(t, "", NormalizeMemo("Empty"))
	require.Equal(t, "", NormalizeMemo(`Memo::Empty`))
	require.Equal(t, "", NormalizeMemo(""))
}
