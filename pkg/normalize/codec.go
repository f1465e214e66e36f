package normalize

import (
	"strings"
	"unicode/utf8"
)

// decodeBestEffort percent-decodes s. Malformed escapes are copied through
// and a result that is not valid UTF-8 is discarded in favour of s.
func decodeBestEffort(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	decoded := unescape(s)
	if !utf8.ValidString(decoded) {
		return s
	}
	return decoded
}

func unescape(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && ishex(s[i+1]) && ishex(s[i+2]) {
			sb.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

type queryPair struct {
	key, value string
}

// parseQuery splits an application/x-www-form-urlencoded string keeping
// pair order and duplicates. Empty pieces are skipped.
func parseQuery(raw string) []queryPair {
	var pairs []queryPair
	for _, piece := range strings.Split(raw, "&") {
		if piece == "" {
			continue
		}
		key, value, _ := strings.Cut(piece, "=")
		pairs = append(pairs, queryPair{key: decodeFormComponent(key), value: decodeFormComponent(value)})
	}
	return pairs
}

func decodeFormComponent(s string) string {
	s = strings.ReplaceAll(s, "+", " ")
	return strings.ToValidUTF8(unescape(s), "�")
}

func encodeQuery(pairs []queryPair) string {
	var sb strings.Builder
	for i, p := range pairs {
		if i > 0 {
			sb.WriteByte('&')
		}
		formEscape(&sb, p.key)
		sb.WriteByte('=')
		formEscape(&sb, p.value)
	}
	return sb.String()
}

// formEscape writes s with the application/x-www-form-urlencoded byte set:
// ASCII alphanumerics and *-._ pass through, space becomes '+'.
func formEscape(sb *strings.Builder, s string) {
	const upperhex = "0123456789ABCDEF"
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
			sb.WriteByte(c)
		case c == '*' || c == '-' || c == '.' || c == '_':
			sb.WriteByte(c)
		case c == ' ':
			sb.WriteByte('+')
		default:
			sb.WriteByte('%')
			sb.WriteByte(upperhex[c>>4])
			sb.WriteByte(upperhex[c&15])
		}
	}
}

func ishex(c byte) bool {
	switch {
	case '0' <= c && c <= '9':
		return true
	case 'a' <= c && c <= 'f':
		return true
	case 'A' <= c && c <= 'F':
		return true
	}
	return false
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}
