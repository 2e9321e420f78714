// Readers: lexeme string → typed Val conversion (spec §4.5).
//
// Grounded on original_source/src/ztypes.py's HZincReader (read_date,
// read_time, read_uri, read_str, read_bool) for the string-scanning shape,
// extended to num/date-time/ref/symbol per spec §4.5 and the scalar-read
// scenarios of spec §8. Each reader is total on its expected lexeme shape
// and returns a wrapped ReadError otherwise.
package val

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/skygrid/zinc/internal/grammar"
)

// ReadError is the sentinel wrapped by every lexical-read failure.
var ReadError = errors.New("read error")

func readErrf(format string, a ...any) error {
	return errors.Wrap(ReadError, fmt.Sprintf(format, a...))
}

// ReadBool converts "T"/"F" to the canonical Bool singleton.
func ReadBool(s string) (*Bool, error) {
	switch s {
	case "T":
		return True, nil
	case "F":
		return False, nil
	default:
		return nil, readErrf("invalid boolean, expected \"T\" or \"F\", got %q", s)
	}
}

// ReadStr decodes a double-quoted string lexeme, honoring \b \f \n \r \t
// \\ \$ \" and \uXXXX escapes.
func ReadStr(s string) (*Str, error) {
	decoded, err := decodeQuoted(s, '"', grammar.IsStrEscapedChar, stringEscapeValue)
	if err != nil {
		return nil, err
	}
	return NewStr(decoded), nil
}

// ReadUri decodes a backtick-delimited URI lexeme, honoring the URI escape
// set (and an escaped backtick).
func ReadUri(s string) (*Uri, error) {
	decoded, err := decodeQuoted(s, '`', grammar.IsUriEscapedChar, uriEscapeValue)
	if err != nil {
		return nil, err
	}
	return NewUri(decoded), nil
}

func stringEscapeValue(r rune) (rune, bool) {
	switch r {
	case 'b':
		return '\b', true
	case 'f':
		return '\f', true
	case 'n':
		return '\n', true
	case 'r':
		return '\r', true
	case 't':
		return '\t', true
	case '\\':
		return '\\', true
	case '$':
		return '$', true
	case '"':
		return '"', true
	}
	return 0, false
}

func uriEscapeValue(r rune) (rune, bool) {
	if grammar.IsUriEscapedChar(r) {
		return r, true
	}
	return 0, false
}

// decodeQuoted decodes the body of a delim-delimited lexeme, translating
// each valid single-char escape through escVal and honoring \uXXXX for
// both modes. extraneous trailing text after the closing delimiter, or an
// unterminated lexeme, is a ReadError.
func decodeQuoted(s string, delim rune, isEscaped func(rune) bool, escVal func(rune) (rune, bool)) (string, error) {
	runes := []rune(s)
	if len(runes) < 2 || runes[0] != delim {
		return "", readErrf("missing opening %q", delim)
	}
	var b strings.Builder
	i := 1
	for i < len(runes) {
		c := runes[i]
		switch {
		case c == delim:
			if i != len(runes)-1 {
				return "", readErrf("extraneous trailing text after closing %q", delim)
			}
			return b.String(), nil
		case c == '\\':
			if i+1 >= len(runes) {
				return "", readErrf("unterminated escape")
			}
			next := runes[i+1]
			if next == delim && delim == '`' {
				// "\`" escapes a literal backtick inside a URI.
				b.WriteRune(delim)
				i += 2
				continue
			}
			if v, ok := escVal(next); ok {
				b.WriteRune(v)
				i += 2
				continue
			}
			if isEscaped(next) {
				b.WriteRune(next)
				i += 2
				continue
			}
			if next == 'u' {
				if i+6 > len(runes) {
					return "", readErrf("incomplete unicode escape")
				}
				hex := string(runes[i+2 : i+6])
				code, err := strconv.ParseUint(hex, 16, 32)
				if err != nil {
					return "", readErrf("invalid unicode escape %q", hex)
				}
				b.WriteRune(rune(code))
				i += 6
				continue
			}
			return "", readErrf("invalid escape character %q", next)
		default:
			if !grammar.IsUnicodeChar(c) {
				return "", readErrf("invalid character %q", c)
			}
			b.WriteRune(c)
			i++
		}
	}
	return "", readErrf("unterminated literal, missing closing %q", delim)
}

// ReadNum parses a numeric lexeme: NaN/INF/-INF singletons, or
// [-] digits ('.' digits)? ([eE][+-]?digits)? unit?, with '_' allowed as a
// digit separator anywhere in the mantissa/exponent.
func ReadNum(s string) (*Num, error) {
	switch {
	case grammar.IsNaN(s):
		return NumNaN, nil
	case grammar.IsPosInf(s):
		return NumPosInf, nil
	case grammar.IsNegInf(s):
		return NumNegInf, nil
	}

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		hex := strings.ReplaceAll(s[2:], "_", "")
		if hex == "" {
			return nil, readErrf("incomplete hex number %q", s)
		}
		v, err := strconv.ParseUint(hex, 16, 64)
		if err != nil {
			return nil, readErrf("invalid hex number %q: %v", s, err)
		}
		return NewNum(float64(v), "")
	}

	i, n := 0, len(s)
	start := i
	if i < n && s[i] == '-' {
		i++
	}
	digitsStart := i
	for i < n && (isASCIIDigit(s[i]) || s[i] == '_') {
		i++
	}
	if i == digitsStart {
		return nil, readErrf("invalid number %q: expected digits", s)
	}
	if i < n && s[i] == '.' {
		j := i + 1
		if j < n && isASCIIDigit(s[j]) {
			i = j
			for i < n && (isASCIIDigit(s[i]) || s[i] == '_') {
				i++
			}
		}
	}
	if i < n && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < n && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < n && isASCIIDigit(s[j]) {
			i = j
			for i < n && (isASCIIDigit(s[i]) || s[i] == '_') {
				i++
			}
		}
	}
	mantissa := strings.ReplaceAll(s[start:i], "_", "")
	unit := s[i:]

	f, err := strconv.ParseFloat(mantissa, 64)
	if err != nil {
		return nil, readErrf("invalid number %q: %v", s, err)
	}
	if unit != "" && !grammar.IsUnit(unit) {
		return nil, readErrf("invalid unit %q in %q", unit, s)
	}
	return NewNum(f, unit)
}

func isASCIIDigit(b byte) bool { return b >= '0' && b <= '9' }

// ReadDate parses an ISO "YYYY-MM-DD" lexeme.
func ReadDate(s string) (*Date, error) {
	const want = len("YYYY-MM-DD")
	if len(s) < want {
		return nil, readErrf("invalid date length, expected %d, got %d", want, len(s))
	}
	if s[4] != '-' || s[7] != '-' {
		return nil, readErrf("date %q is not properly formatted", s)
	}
	y, err := strconv.Atoi(s[0:4])
	if err != nil {
		return nil, readErrf("invalid year %q", s[0:4])
	}
	m, err := strconv.Atoi(s[5:7])
	if err != nil {
		return nil, readErrf("invalid month %q", s[5:7])
	}
	d, err := strconv.Atoi(s[8:10])
	if err != nil {
		return nil, readErrf("invalid day %q", s[8:10])
	}
	return &Date{Year: y, Month: m, Day: d}, nil
}

// ReadTime parses an ISO "HH:MM:SS(.fraction)?" lexeme, scaling the
// fractional part to nanoseconds.
func ReadTime(s string) (*Time, error) {
	const want = len("HH:MM:SS")
	if len(s) < want {
		return nil, readErrf("invalid time length, expected at least %d, got %d", want, len(s))
	}
	if s[2] != ':' || s[5] != ':' {
		return nil, readErrf("time %q is not properly formatted", s)
	}
	h, err := strconv.Atoi(s[0:2])
	if err != nil {
		return nil, readErrf("invalid hour %q", s[0:2])
	}
	m, err := strconv.Atoi(s[3:5])
	if err != nil {
		return nil, readErrf("invalid minute %q", s[3:5])
	}
	sec, err := strconv.Atoi(s[6:8])
	if err != nil {
		return nil, readErrf("invalid second %q", s[6:8])
	}
	if len(s) == want {
		return &Time{Hour: h, Min: m, Sec: sec}, nil
	}
	if s[8] != '.' {
		return nil, readErrf("time %q is not properly formatted (missing fraction dot)", s)
	}
	frac := s[9:]
	if len(frac) == 0 || len(frac) > 9 {
		return nil, readErrf("time %q has an invalid fractional part", s)
	}
	for _, c := range frac {
		if !isASCIIDigit(byte(c)) {
			return nil, readErrf("time %q has a non-digit fractional part", s)
		}
	}
	// Scale to nanoseconds regardless of the number of digits supplied.
	padded := (frac + "000000000")[:9]
	ns, err := strconv.Atoi(padded)
	if err != nil {
		return nil, readErrf("invalid fractional seconds in %q", s)
	}
	return &Time{Hour: h, Min: m, Sec: sec, Nanosecond: ns}, nil
}

// ReadDateTime parses an ISO-8601 date-time with a numeric offset (or "Z"),
// optionally followed by " IANA_zone" which is attached as the Zone tag
// without affecting the instant (spec's date-time zone open question: the
// zone name is retained here rather than discarded).
func ReadDateTime(s string) (*DateTime, error) {
	body, zone := s, ""
	if idx := strings.IndexByte(s, ' '); idx >= 0 {
		body, zone = s[:idx], s[idx+1:]
	}
	if len(body) < len("YYYY-MM-DDTHH:MM:SS") {
		return nil, readErrf("invalid date-time %q", s)
	}
	if body[10] != 'T' && body[10] != 't' {
		return nil, readErrf("date-time %q is missing 'T' separator", s)
	}
	d, err := ReadDate(body[0:10])
	if err != nil {
		return nil, err
	}
	rest := body[11:]
	var fracDigits string
	offsetIdx := -1
	for i := 0; i < len(rest); i++ {
		if rest[i] == 'Z' || rest[i] == 'z' || rest[i] == '+' || (rest[i] == '-' && i >= 8) {
			offsetIdx = i
			break
		}
	}
	if offsetIdx < 0 {
		return nil, readErrf("date-time %q is missing a UTC offset", s)
	}
	timePart := rest[:offsetIdx]
	if dot := strings.IndexByte(timePart, '.'); dot >= 0 {
		fracDigits = timePart[dot+1:]
	}
	t, err := ReadTime(timePart)
	if err != nil {
		return nil, err
	}

	offsetSecs := 0
	offsetStr := rest[offsetIdx:]
	if offsetStr == "Z" || offsetStr == "z" {
		offsetSecs = 0
	} else {
		sign := 1
		if offsetStr[0] == '-' {
			sign = -1
		}
		offsetStr = offsetStr[1:]
		if len(offsetStr) < 5 || offsetStr[2] != ':' {
			return nil, readErrf("invalid UTC offset in %q", s)
		}
		oh, err := strconv.Atoi(offsetStr[0:2])
		if err != nil {
			return nil, readErrf("invalid offset hours in %q", s)
		}
		om, err := strconv.Atoi(offsetStr[3:5])
		if err != nil {
			return nil, readErrf("invalid offset minutes in %q", s)
		}
		offsetSecs = sign * (oh*3600 + om*60)
	}

	_ = fracDigits
	return &DateTime{
		Year: d.Year, Month: d.Month, Day: d.Day,
		Hour: t.Hour, Min: t.Min, Sec: t.Sec, Nanosecond: t.Nanosecond,
		OffsetSeconds: offsetSecs,
		Zone:          zone,
	}, nil
}

// ReadSymbol decodes a "^id" lexeme.
func ReadSymbol(s string) (*Symbol, error) {
	if len(s) == 0 || s[0] != '^' {
		return nil, readErrf("missing '^' at start of symbol %q", s)
	}
	id := s[1:]
	for _, r := range id {
		if !grammar.IsRefPart(r) {
			return nil, readErrf("invalid symbol character %q in %q", r, s)
		}
	}
	return NewSymbol(id), nil
}

// ReadRef decodes an "@id" lexeme. Per the spec's trailing-space open
// question: the lexer never includes the space, but a reader invoked on a
// lexeme that still has exactly one trailing space (with nothing after)
// accepts it.
func ReadRef(s string) (*Ref, error) {
	if len(s) == 0 || s[0] != '@' {
		return nil, readErrf("missing '@' at start of ref %q", s)
	}
	body := s[1:]
	if idx := strings.IndexByte(body, ' '); idx >= 0 {
		if idx != len(body)-1 {
			return nil, readErrf("ref %q has content after its trailing space", s)
		}
		body = body[:idx]
	}
	for _, r := range body {
		if !grammar.IsRefPart(r) {
			return nil, readErrf("invalid ref character %q in %q", r, s)
		}
	}
	return NewRef(body), nil
}

// ReadBinMime validates a Bin's MIME string has the "type/subtype"
// shape required by the grammar (parameters, if any, follow a ';').
func ReadBinMime(s string) (*Bin, error) {
	body := s
	if idx := strings.IndexByte(s, ';'); idx >= 0 {
		body = s[:idx]
	}
	slash := strings.IndexByte(body, '/')
	if slash <= 0 || slash >= len(body)-1 {
		return nil, readErrf("invalid MIME type %q", s)
	}
	return &Bin{Mime: s}, nil
}
