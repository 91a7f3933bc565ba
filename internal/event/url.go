package event

import "strings"

// DefaultScheme is prefixed to target URLs that carry no scheme.
const DefaultScheme = "http"

// NormalizeURL prefixes http:// to a URL without a scheme. URLs that already
// name a scheme, whatever it is, are returned unchanged.
func NormalizeURL(raw string) string {
	if HasScheme(raw) {
		return raw
	}
	return DefaultScheme + "://" + raw
}

// HasScheme reports whether raw starts with an RFC 3986 scheme followed by a
// colon. A host:port prefix such as "localhost:8080/hook" is not a scheme.
func HasScheme(raw string) bool {
	i := strings.IndexByte(raw, ':')
	if i <= 0 {
		return false
	}
	for j := 0; j < i; j++ {
		c := raw[j]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case j > 0 && ('0' <= c && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return !isPort(raw[i+1:])
}

// isPort reports whether rest, the text after the first colon, begins with a
// port number that runs to the end of the authority.
func isPort(rest string) bool {
	end := strings.IndexAny(rest, "/?#")
	if end < 0 {
		end = len(rest)
	}
	if end == 0 {
		return false
	}
	for _, c := range rest[:end] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
