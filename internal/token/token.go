// Package token defines the lexeme-carrying token produced by the lexer and
// consumed by the grid parser.
package token

// Kind identifies the lexical class of a Token. The numeric values are not
// part of the wire format; only the kind and lexeme text matter to callers.
type Kind int

const (
	// IDENTIFIER is a lowercase-led tag/column name.
	IDENTIFIER Kind = iota
	// KEYWORD is an uppercase-led bareword (N, M, R, NA, C, Bin, or an XStr type).
	KEYWORD
	// SYMBOL is a '^'-prefixed literal.
	SYMBOL
	// REF is an '@'-prefixed literal.
	REF
	// STR is a double-quoted string literal.
	STR
	// DATE is an ISO-ish YYYY-MM-DD literal.
	DATE
	// DATETIME is an ISO-ish date-time-with-offset literal.
	DATETIME
	// TIME is an ISO-ish HH:MM:SS[.fff] literal.
	TIME
	// URI is a backtick-delimited literal.
	URI
	// NUMBER is a numeric literal, possibly unit-suffixed.
	NUMBER
	// GRIDSTART is the "<<" nested-grid opener.
	GRIDSTART
	// GRIDEND is the ">>" nested-grid closer.
	GRIDEND
	// BOOL is the "T" or "F" literal.
	BOOL
	// LPAREN is '('.
	LPAREN
	// RPAREN is ')'.
	RPAREN
	// LBRACKET is '['.
	LBRACKET
	// RBRACKET is ']'.
	RBRACKET
	// LBRACE is '{'.
	LBRACE
	// RBRACE is '}'.
	RBRACE
	// COLON is ':'.
	COLON
	// COMMA is ','.
	COMMA
	// LINEFEED is a row/line terminator ("\n" or "\r\n").
	LINEFEED
)

// String renders a human-readable name for Kind, used in error messages.
func (k Kind) String() string {
	switch k {
	case IDENTIFIER:
		return "IDENTIFIER"
	case KEYWORD:
		return "KEYWORD"
	case SYMBOL:
		return "SYMBOL"
	case REF:
		return "REF"
	case STR:
		return "STR"
	case DATE:
		return "DATE"
	case DATETIME:
		return "DATETIME"
	case TIME:
		return "TIME"
	case URI:
		return "URI"
	case NUMBER:
		return "NUMBER"
	case GRIDSTART:
		return "GRID_START"
	case GRIDEND:
		return "GRID_END"
	case BOOL:
		return "BOOL"
	case LPAREN:
		return "LPAREN"
	case RPAREN:
		return "RPAREN"
	case LBRACKET:
		return "LBRACKET"
	case RBRACKET:
		return "RBRACKET"
	case LBRACE:
		return "LBRACE"
	case RBRACE:
		return "RBRACE"
	case COLON:
		return "COLON"
	case COMMA:
		return "COMMA"
	case LINEFEED:
		return "LINEFEED"
	default:
		return "UNKNOWN"
	}
}

// Token is a single lexeme: its kind and the raw source text it spans.
// Semantic conversion (string → typed Val) happens later, in the val readers.
type Token struct {
	Kind Kind
	Text string
}

// Is reports whether t has the given kind and, if text is non-empty,
// whether its lexeme equals text exactly. This matches the grammar's
// disambiguation of single-token keywords like "N", "M", "Bin", "C".
func (t Token) Is(k Kind, text string) bool {
	if t.Kind != k {
		return false
	}
	if text != "" && t.Text != text {
		return false
	}
	return true
}
