package api

import "strings"

// lastQueryValue returns the last value given for key in rawQuery. Pairs are split on "&"
// only, so ";" stays part of a value. Malformed percent escapes are kept verbatim
// instead of discarding the pair.
func lastQueryValue(rawQuery, key string) (string, bool) {
	var (
		value string
		found bool
	)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		if unescapeQuery(k) != key {
			continue
		}
		value, found = unescapeQuery(v), true
	}
	return value, found
}

// unescapeQuery applies form decoding: "+" becomes a space and valid %XX escapes are
// decoded.
func unescapeQuery(s string) string {
	if !strings.ContainsAny(s, "+%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '+':
			b.WriteByte(' ')
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
