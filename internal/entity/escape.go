package entity

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// codePages maps the \P?\ directive letter to the ISO 8859 part it selects.
var codePages = map[byte]*charmap.Charmap{
	'A': charmap.ISO8859_1,
	'B': charmap.ISO8859_2,
	'C': charmap.ISO8859_3,
	'D': charmap.ISO8859_4,
	'E': charmap.ISO8859_5,
	'F': charmap.ISO8859_6,
	'G': charmap.ISO8859_7,
	'H': charmap.ISO8859_8,
	'I': charmap.ISO8859_9,
}

// decodeText resolves the quote doubling and the backslash directives of an
// exchange-file string: \\, \S\c, \X\hh, \X2\...\X0\, \X4\...\X0\ and \P?\.
// A directive that does not parse is kept verbatim.
func decodeText(raw string) string {
	if !strings.ContainsAny(raw, `'\`) {
		return raw
	}
	var b strings.Builder
	b.Grow(len(raw))
	page := charmap.ISO8859_1

	for i := 0; i < len(raw); {
		c := raw[i]
		if c == '\'' && i+1 < len(raw) && raw[i+1] == '\'' {
			b.WriteByte('\'')
			i += 2
			continue
		}
		if c != '\\' {
			b.WriteByte(c)
			i++
			continue
		}
		rest := raw[i:]
		switch {
		case strings.HasPrefix(rest, `\\`):
			b.WriteByte('\\')
			i += 2
		case len(rest) >= 4 && strings.HasPrefix(rest, `\S\`) && rest[3] < 0x80:
			b.WriteRune(page.DecodeByte(rest[3] + 0x80))
			i += 4
		case len(rest) >= 4 && rest[1] == 'P' && rest[3] == '\\' && codePages[rest[2]] != nil:
			page = codePages[rest[2]]
			i += 4
		case strings.HasPrefix(rest, `\X\`):
			n, ok := hexUnits(rest[3:], 2, 1)
			if !ok {
				b.WriteByte(c)
				i++
				continue
			}
			b.WriteRune(charmap.ISO8859_1.DecodeByte(byte(n[0])))
			i += 5
		case strings.HasPrefix(rest, `\X2\`), strings.HasPrefix(rest, `\X4\`):
			width := 4
			if rest[2] == '4' {
				width = 8
			}
			end := strings.Index(rest[4:], `\X0\`)
			if end < 0 || end%width != 0 {
				b.WriteByte(c)
				i++
				continue
			}
			units, ok := hexUnits(rest[4:4+end], width, end/width)
			if !ok {
				b.WriteByte(c)
				i++
				continue
			}
			if width == 4 {
				u16 := make([]uint16, len(units))
				for k, u := range units {
					u16[k] = uint16(u)
				}
				for _, r := range utf16.Decode(u16) {
					b.WriteRune(r)
				}
			} else {
				for _, u := range units {
					r := rune(u)
					if !utf8.ValidRune(r) {
						r = utf8.RuneError
					}
					b.WriteRune(r)
				}
			}
			i += 4 + end + 4
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// hexUnits parses count fixed-width hexadecimal numbers from the start of s.
func hexUnits(s string, width, count int) ([]uint32, bool) {
	if len(s) < width*count {
		return nil, false
	}
	out := make([]uint32, count)
	for k := range out {
		n, err := strconv.ParseUint(s[k*width:(k+1)*width], 16, 32)
		if err != nil {
			return nil, false
		}
		out[k] = uint32(n)
	}
	return out, true
}
