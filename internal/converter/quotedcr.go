package converter

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// encoding/csv folds "\r\n" to "\n" everywhere, including inside quoted
// fields. To keep quoted content byte for byte, every '\r' inside a quoted
// field is swapped for a control byte that does not occur in the input before
// parsing, and swapped back afterwards. The stand-in is one byte wide, so
// csv.ParseError columns are unchanged.

// crStandIn returns a control byte absent from data and distinct from comma,
// or 0 if every candidate is taken.
func crStandIn(data []byte, comma rune) byte {
	var seen [0x20]bool
	for _, b := range data {
		if b < 0x20 {
			seen[b] = true
		}
	}
	for b := byte(0x01); b < 0x20; b++ {
		switch b {
		case '\t', '\n', '\r':
			continue
		}
		if !seen[b] && rune(b) != comma {
			return b
		}
	}
	return 0
}

// protectQuotedCR rewrites '\r' inside quoted fields to a stand-in byte. It
// returns data unchanged and 0 when no quoted field holds a '\r' or no
// stand-in is available.
//
// Field boundaries follow encoding/csv: a field is quoted only when it starts
// with '"'; inside it "" is a literal quote, and a lone '"' closes the field
// unless lazy is set and the quote is not followed by a delimiter or line end.
func protectQuotedCR(data []byte, comma rune, lazy bool) ([]byte, byte) {
	if bytes.IndexByte(data, '\r') < 0 || bytes.IndexByte(data, '"') < 0 {
		return data, 0
	}
	sub := crStandIn(data, comma)
	if sub == 0 {
		return data, 0
	}

	var commaBuf [utf8.UTFMax]byte
	delim := commaBuf[:utf8.EncodeRune(commaBuf[:], comma)]

	out := make([]byte, len(data))
	copy(out, data)

	replaced := false
	fieldStart, inQuotes := true, false
	for i := 0; i < len(data); {
		b := data[i]
		if inQuotes {
			switch {
			case b == '\r':
				out[i] = sub
				replaced = true
			case b == '"' && i+1 < len(data) && data[i+1] == '"':
				i += 2
				continue
			case b == '"':
				if !lazy || closesQuote(data[i+1:], delim) {
					inQuotes = false
				}
			}
			i++
			continue
		}

		switch {
		case fieldStart && b == '"':
			inQuotes = true
			fieldStart = false
			i++
		case bytes.HasPrefix(data[i:], delim):
			fieldStart = true
			i += len(delim)
		case b == '\n':
			fieldStart = true
			i++
		default:
			fieldStart = false
			i++
		}
	}
	if !replaced {
		return data, 0
	}
	return out, sub
}

// closesQuote reports whether rest, the input after a quote inside a quoted
// field, begins with something that ends the field.
func closesQuote(rest, delim []byte) bool {
	switch {
	case len(rest) == 0,
		rest[0] == '\n',
		bytes.HasPrefix(rest, delim),
		bytes.HasPrefix(rest, []byte("\r\n")),
		len(rest) == 1 && rest[0] == '\r':
		return true
	}
	return false
}

// restoreCR puts the protected '\r' bytes back into fields.
func restoreCR(fields []string, sub byte) {
	if sub == 0 {
		return
	}
	for i, f := range fields {
		if strings.IndexByte(f, sub) >= 0 {
			fields[i] = strings.ReplaceAll(f, string(sub), "\r")
		}
	}
}
