// Package lexer implements the streaming Zinc tokenizer: a character-fed
// scanner with one-rune lookahead that yields tokens lazily.
//
// What: recognizes identifiers, keywords, symbols, refs, strings, URIs,
// numbers/dates/times, grid digraphs, and single-character punctuation.
// How: mirrors the teacher's internal/engine/lexer.go shape (current/peek
// runes, an accumulator slice, a dispatch-by-first-character nextToken)
// but pulls its input from internal/charstream instead of a fully
// materialized string, and surfaces suspension through context.Context.
// Why: the grid format's wire documents can be arbitrarily large (query
// results); the engine this client talks to streams the body in chunks,
// so the lexer must be able to tokenize without buffering the whole thing.
package lexer

import (
	"context"

	"github.com/pkg/errors"

	"github.com/skygrid/zinc/internal/charstream"
	"github.com/skygrid/zinc/internal/grammar"
	"github.com/skygrid/zinc/internal/token"
)

// LexicalError is the sentinel all lexer failures wrap. Use errors.Is to
// detect a lexical failure regardless of the specific message.
var LexicalError = errors.New("lexical error")

// trivialTokens maps single-character punctuation directly to a Kind.
var trivialTokens = map[rune]token.Kind{
	'(':  token.LPAREN,
	')':  token.RPAREN,
	'[':  token.LBRACKET,
	']':  token.RBRACKET,
	'{':  token.LBRACE,
	'}':  token.RBRACE,
	':':  token.COLON,
	',':  token.COMMA,
	'\n': token.LINEFEED,
}

// Lexer is a streaming Zinc tokenizer. It holds exactly one rune-source
// (internal/charstream.Reader) and is not safe for concurrent use, matching
// the single-threaded cooperative model of the rest of this client.
type Lexer struct {
	src        *charstream.Reader
	cur, peek  rune
	hasCur     bool
	hasPeek    bool
	accumulate []rune
}

// New creates a Lexer over src, priming its one-rune lookahead. The initial
// reads may suspend exactly like any other Next call.
func New(ctx context.Context, src *charstream.Reader) (*Lexer, error) {
	lx := &Lexer{src: src}
	if err := lx.advance(ctx); err != nil {
		return nil, err
	}
	if err := lx.advance(ctx); err != nil {
		return nil, err
	}
	return lx, nil
}

// advance shifts peek into cur and pulls a fresh peek from the source.
func (lx *Lexer) advance(ctx context.Context) error {
	lx.cur, lx.hasCur = lx.peek, lx.hasPeek
	r, ok, err := lx.src.Next(ctx)
	if err != nil {
		return err
	}
	lx.peek, lx.hasPeek = r, ok
	return nil
}

func (lx *Lexer) consume() { lx.accumulate = append(lx.accumulate, lx.cur) }

func (lx *Lexer) consumeIf(ctx context.Context, test func(rune) bool) (bool, error) {
	if !lx.hasCur || !test(lx.cur) {
		return false, nil
	}
	lx.consume()
	if err := lx.advance(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (lx *Lexer) require(ctx context.Context, test func(rune) bool, what string) error {
	if !lx.hasCur {
		return errors.Wrapf(LexicalError, "unexpected end of input, wanted %s", what)
	}
	if !test(lx.cur) {
		return errors.Wrapf(LexicalError, "unexpected character %q, wanted %s", lx.cur, what)
	}
	lx.consume()
	return lx.advance(ctx)
}

// Next scans and returns the next token, skipping whitespace. ok is false
// with a nil error once the stream is exhausted.
func (lx *Lexer) Next(ctx context.Context) (tok token.Token, ok bool, err error) {
	for {
		skipped, err := lx.consumeIf(ctx, grammar.IsWhitespace)
		if err != nil {
			return token.Token{}, false, err
		}
		if !skipped {
			break
		}
	}
	if !lx.hasCur {
		return token.Token{}, false, nil
	}

	lx.accumulate = lx.accumulate[:0]

	switch {
	case grammar.IsIDStart(lx.cur):
		return lx.finish(ctx, lx.scanWhile(ctx, grammar.IsIDPart, token.IDENTIFIER))
	case grammar.IsKeywordStart(lx.cur):
		return lx.scanKeyword(ctx)
	case grammar.IsSymbolStart(lx.cur):
		if err := lx.consume1(ctx); err != nil { // leading '^'
			return token.Token{}, false, err
		}
		return lx.finish(ctx, lx.scanWhile(ctx, grammar.IsSymbolPart, token.SYMBOL))
	case grammar.IsRefStart(lx.cur):
		return lx.scanRef(ctx)
	case grammar.IsStrStart(lx.cur):
		return lx.scanDelimited(ctx, grammar.IsStrEnd, grammar.IsStrEscapedChar, token.STR, "string")
	case grammar.IsUriStart(lx.cur):
		return lx.scanDelimited(ctx, grammar.IsUriEnd, grammar.IsUriEscapedChar, token.URI, "URI")
	case grammar.IsNumberStart(lx.cur):
		return lx.scanNumber(ctx)
	case lx.cur == '<' && lx.hasPeek && lx.peek == '<':
		return lx.scanDigraph(ctx, token.GRIDSTART)
	case lx.cur == '>' && lx.hasPeek && lx.peek == '>':
		return lx.scanDigraph(ctx, token.GRIDEND)
	case lx.cur == '\r' && lx.hasPeek && lx.peek == '\n':
		return lx.scanDigraph(ctx, token.LINEFEED)
	}

	kind, known := trivialTokens[lx.cur]
	if !known {
		return token.Token{}, false, errors.Wrapf(LexicalError, "unexpected character %q", lx.cur)
	}
	lx.consume()
	if err := lx.advance(ctx); err != nil {
		return token.Token{}, false, err
	}
	return token.Token{Kind: kind, Text: string(lx.accumulate)}, true, nil
}

func (lx *Lexer) finish(ctx context.Context, kind token.Kind, err error) (token.Token, bool, error) {
	if err != nil {
		return token.Token{}, false, err
	}
	return token.Token{Kind: kind, Text: string(lx.accumulate)}, true, nil
}

func (lx *Lexer) scanWhile(ctx context.Context, test func(rune) bool, kind token.Kind) (token.Kind, error) {
	if err := lx.require(ctx, test, "identifier-like character"); err != nil {
		return kind, err
	}
	for {
		ok, err := lx.consumeIf(ctx, test)
		if err != nil {
			return kind, err
		}
		if !ok {
			return kind, nil
		}
	}
}

func (lx *Lexer) scanDigraph(ctx context.Context, kind token.Kind) (token.Token, bool, error) {
	lx.consume()
	if err := lx.advance(ctx); err != nil {
		return token.Token{}, false, err
	}
	lx.consume()
	if err := lx.advance(ctx); err != nil {
		return token.Token{}, false, err
	}
	return token.Token{Kind: kind, Text: string(lx.accumulate)}, true, nil
}

// scanKeyword consumes an uppercase-led bareword and classifies it:
// "NaN"/"INF" are numeric, "T"/"F" are boolean, anything else is a KEYWORD
// token resolved by the parser (N, M, R, NA, C, Bin, or an XStr type name).
func (lx *Lexer) scanKeyword(ctx context.Context) (token.Token, bool, error) {
	if _, err := lx.scanWhile(ctx, grammar.IsKeywordPart, token.KEYWORD); err != nil {
		return token.Token{}, false, err
	}
	text := string(lx.accumulate)
	switch {
	case grammar.IsNaN(text), grammar.IsPosInf(text):
		return token.Token{Kind: token.NUMBER, Text: text}, true, nil
	case text == "T", text == "F":
		return token.Token{Kind: token.BOOL, Text: text}, true, nil
	default:
		return token.Token{Kind: token.KEYWORD, Text: text}, true, nil
	}
}

// scanRef consumes a ref literal. Per spec §4.3 rule 5 a trailing space is
// NOT consumed here: it is ordinary whitespace before the next token.
func (lx *Lexer) scanRef(ctx context.Context) (token.Token, bool, error) {
	if err := lx.require(ctx, grammar.IsRefStart, "'@'"); err != nil {
		return token.Token{}, false, err
	}
	for {
		ok, err := lx.consumeIf(ctx, grammar.IsRefPart)
		if err != nil {
			return token.Token{}, false, err
		}
		if !ok {
			break
		}
	}
	return token.Token{Kind: token.REF, Text: string(lx.accumulate)}, true, nil
}

// scanDelimited handles both string and URI literals: loop until the
// matching terminator, honoring escapes along the way.
func (lx *Lexer) scanDelimited(ctx context.Context, isEnd, isEscaped func(rune) bool, kind token.Kind, what string) (token.Token, bool, error) {
	if err := lx.consume1(ctx); err != nil { // opening delimiter
		return token.Token{}, false, err
	}
	for {
		if !lx.hasCur {
			return token.Token{}, false, errors.Wrapf(LexicalError, "unterminated %s", what)
		}
		switch {
		case lx.cur == '\\':
			if err := lx.consume1(ctx); err != nil {
				return token.Token{}, false, err
			}
			if !lx.hasCur {
				return token.Token{}, false, errors.Wrapf(LexicalError, "unterminated %s escape", what)
			}
			switch {
			case isEscaped(lx.cur):
				if err := lx.consume1(ctx); err != nil {
					return token.Token{}, false, err
				}
			case lx.cur == 'u':
				if err := lx.consume1(ctx); err != nil {
					return token.Token{}, false, err
				}
				for i := 0; i < 4; i++ {
					if err := lx.require(ctx, grammar.IsHexDigit, "hex digit"); err != nil {
						return token.Token{}, false, err
					}
				}
			default:
				return token.Token{}, false, errors.Wrapf(LexicalError, "invalid escape character %q in %s", lx.cur, what)
			}
		case isEnd(lx.cur):
			if err := lx.consume1(ctx); err != nil {
				return token.Token{}, false, err
			}
			return token.Token{Kind: kind, Text: string(lx.accumulate)}, true, nil
		case grammar.IsUnicodeChar(lx.cur):
			if err := lx.consume1(ctx); err != nil {
				return token.Token{}, false, err
			}
		default:
			return token.Token{}, false, errors.Wrapf(LexicalError, "invalid character %q in %s", lx.cur, what)
		}
	}
}

func (lx *Lexer) consume1(ctx context.Context) error {
	lx.consume()
	return lx.advance(ctx)
}

// scanNumber implements §4.3.2: hex literals short-circuit to NUMBER,
// otherwise a running tally of dashes/colons/exponent state classifies the
// lexeme as DATE, TIME, DATETIME, or plain NUMBER.
func (lx *Lexer) scanNumber(ctx context.Context) (token.Token, bool, error) {
	if lx.cur == '0' && lx.hasPeek && (lx.peek == 'x' || lx.peek == 'X') {
		if err := lx.consume1(ctx); err != nil {
			return token.Token{}, false, err
		}
		if err := lx.consume1(ctx); err != nil {
			return token.Token{}, false, err
		}
		digits := 0
		for lx.hasCur && (grammar.IsHexDigit(lx.cur) || lx.cur == '_') {
			if grammar.IsHexDigit(lx.cur) {
				digits++
			}
			if err := lx.consume1(ctx); err != nil {
				return token.Token{}, false, err
			}
		}
		if digits == 0 {
			return token.Token{}, false, errors.Wrap(LexicalError, "incomplete hex number")
		}
		return token.Token{Kind: token.NUMBER, Text: string(lx.accumulate)}, true, nil
	}

	dashes, colons := 0, 0
	exp := false
	unitTail := false // once true, a digit no longer resets unit detection

	for lx.hasCur {
		r := lx.cur
		switch {
		case grammar.IsDigit(r):
			if err := lx.consume1(ctx); err != nil {
				return token.Token{}, false, err
			}
			continue
		case exp && (r == '+' || r == '-'):
			// consumed below
		case r == '-':
			dashes++
		case r == ':' && lx.hasPeek && grammar.IsDigit(lx.peek):
			colons++
		case (exp || colons >= 1) && r == '+':
			// consumed below
		case r == '.':
			if !lx.hasPeek || !grammar.IsDigit(lx.peek) {
				return lx.classifyNumber(dashes, colons), true, nil
			}
		case (r == 'e' || r == 'E') && lx.hasPeek && (lx.peek == '+' || lx.peek == '-' || grammar.IsDigit(lx.peek)):
			exp = true
		case grammar.IsAlpha(r) || r == '%' || r == '$' || r == '/' || r > 0x7F:
			unitTail = true
		case r == '_':
			unitTail = true
		default:
			return lx.classifyNumber(dashes, colons), true, nil
		}
		_ = unitTail
		if err := lx.consume1(ctx); err != nil {
			return token.Token{}, false, err
		}
	}
	return lx.classifyNumber(dashes, colons), true, nil
}

func (lx *Lexer) classifyNumber(dashes, colons int) token.Token {
	kind := token.NUMBER
	switch {
	case dashes == 2 && colons == 0:
		kind = token.DATE
	case dashes == 0 && colons > 1:
		kind = token.TIME
	case dashes > 2:
		kind = token.DATETIME
	}
	return token.Token{Kind: kind, Text: string(lx.accumulate)}
}
