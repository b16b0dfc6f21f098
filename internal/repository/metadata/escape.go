package metadata

import (
	"errors"
	"fmt"
	"strings"
)

// errBadEscape is returned when an escaped value cannot be decoded.
var errBadEscape = errors.New("malformed escape sequence")

// Escape encodes a raw value so it can be stored as a single metadata line.
// Backslash, dollar sign and backtick are escaped so stored values stay
// inert data rather than shell-interpretable fragments; control characters
// are encoded so the file remains strictly line-oriented.
func Escape(s string) string {
	var b strings.Builder

	b.Grow(len(s))

	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == '$':
			b.WriteString(`\$`)
		case r == '`':
			b.WriteString("\\`")
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			b.WriteString(fmt.Sprintf(`\x%02x`, r))
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}

// Unescape decodes a value previously produced by Escape.
// It is the exact inverse: Unescape(Escape(s)) == s for every string s.
func Unescape(s string) (string, error) {
	var b strings.Builder

	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}

		i++
		if i >= len(s) {
			return "", fmt.Errorf("%w: trailing backslash", errBadEscape)
		}

		switch s[i] {
		case '\\', '$', '`':
			b.WriteByte(s[i])
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'x':
			if i+2 >= len(s) {
				return "", fmt.Errorf("%w: truncated hex escape", errBadEscape)
			}

			hi, okHi := fromHex(s[i+1])
			lo, okLo := fromHex(s[i+2])

			if !okHi || !okLo {
				return "", fmt.Errorf("%w: invalid hex escape %q", errBadEscape, s[i:i+3])
			}

			b.WriteByte(hi<<4 | lo)

			i += 2
		default:
			return "", fmt.Errorf("%w: \\%c", errBadEscape, s[i])
		}
	}

	return b.String(), nil
}

// fromHex decodes a single lowercase or uppercase hex digit.
func fromHex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
