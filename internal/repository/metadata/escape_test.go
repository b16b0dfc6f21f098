package metadata

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestEscape_ShellSyntaxStaysInert verifies $ and backtick are neutralized.
func TestEscape_ShellSyntaxStaysInert(t *testing.T) {
	t.Parallel()

	require.Equal(t, `\$(rm -rf /)`, Escape("$(rm -rf /)"))
	require.Equal(t, "\\`id\\`", Escape("`id`"))
	require.Equal(t, `C:\\temp`, Escape(`C:\temp`))
}

// TestUnescape_RejectsMalformedInput covers truncated and unknown escapes.
func TestUnescape_RejectsMalformedInput(t *testing.T) {
	t.Parallel()

	for _, input := range []string{`\`, `\q`, `\x`, `\x4`, `\xzz`} {
		_, err := Unescape(input)
		require.ErrorIs(t, err, errBadEscape, "input %q", input)
	}
}

// TestEscapeUnescape_Roundtrip is the round-trip property over values with
// shell syntax, quotes, whitespace and control characters.
func TestEscapeUnescape_Roundtrip(t *testing.T) {
	t.Parallel()

	cases := []string{
		"",
		"plain",
		"with spaces and\ttabs",
		"multi\nline\r\nvalue",
		`$HOME and $(command)`,
		"back`tick`ed",
		`single 'quotes' and "double"`,
		`trailing backslash \`,
		"control \x01\x02\x1b\x7f bytes",
		"unicode ёжик 🦔",
	}
	for _, want := range cases {
		got, err := Unescape(Escape(want))
		require.NoError(t, err, "value %q", want)
		require.Equal(t, want, got)
	}
}

// TestEscapeUnescape_RoundtripExhaustiveBytes runs the property over every
// single-byte value below 0x80.
func TestEscapeUnescape_RoundtripExhaustiveBytes(t *testing.T) {
	t.Parallel()

	for b := range 0x80 {
		want := string(rune(b))
		got, err := Unescape(Escape(want))
		require.NoError(t, err, "byte %#x", b)
		require.Equal(t, want, got, "byte %#x", b)
	}
}
