// Package gridparser implements the recursive-descent assembler from
// tokens to a Grid (spec §4.4).
//
// What: consumes a lazily-pulled token stream with one-token lookahead and
// builds Grid/Col/Row/Dict/List/Val values.
// How: mirrors the teacher's internal/engine/parser.go shape (a Parser
// holding cur/peek tokens, expect-style helpers, one function per grammar
// production) but drives token.Kind/token.Token from internal/token instead
// of the teacher's SQL token set, and is grounded on
// original_source/src/zinc/parser.py for the grammar itself.
// Why: recursive descent keeps each production readable and lets error
// messages point at the exact token that broke the grammar.
package gridparser

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/skygrid/zinc/internal/token"
	"github.com/skygrid/zinc/internal/val"
)

// ParseError is the sentinel wrapped by every parse failure.
var ParseError = errors.New("parse error")

// TokenSource is the lazily-pulled token stream the parser consumes. The
// lexer satisfies this directly.
type TokenSource interface {
	Next(ctx context.Context) (token.Token, bool, error)
}

// Parser assembles a Grid from a TokenSource with one-token lookahead.
type Parser struct {
	ctx        context.Context
	src        TokenSource
	cur, peek  token.Token
	hasCur     bool
	hasPeek    bool
}

// New creates a Parser over src, priming its lookahead.
func New(ctx context.Context, src TokenSource) (*Parser, error) {
	p := &Parser{ctx: ctx, src: src}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) advance() error {
	p.cur, p.hasCur = p.peek, p.hasPeek
	t, ok, err := p.src.Next(p.ctx)
	if err != nil {
		return err
	}
	p.peek, p.hasPeek = t, ok
	return nil
}

func (p *Parser) currentIs(k token.Kind, text string) bool {
	return p.hasCur && p.cur.Is(k, text)
}

// consumeIf advances past cur if it matches (k, text), returning its text.
func (p *Parser) consumeIf(k token.Kind, text string) (string, bool, error) {
	if !p.currentIs(k, text) {
		return "", false, nil
	}
	s := p.cur.Text
	if err := p.advance(); err != nil {
		return "", false, err
	}
	return s, true, nil
}

// expect requires cur to match (k, text) and advances past it.
func (p *Parser) expect(k token.Kind, text string) (string, error) {
	if !p.hasCur {
		return "", errors.Wrapf(ParseError, "unexpected end of tokens, wanted %s", k)
	}
	if p.cur.Kind != k || (text != "" && p.cur.Text != text) {
		return "", errors.Wrapf(ParseError, "unexpected token %s %q, wanted %s %q", p.cur.Kind, p.cur.Text, k, text)
	}
	s := p.cur.Text
	if err := p.advance(); err != nil {
		return "", err
	}
	return s, nil
}

// ParseRoot parses an entire document: gridVer tags LINEFEED cols row*.
func (p *Parser) ParseRoot() (*val.Grid, error) {
	meta, err := p.parseHeader()
	if err != nil {
		return nil, err
	}
	cols, err := p.parseCols()
	if err != nil {
		return nil, err
	}
	var rows []val.Row
	for p.hasCur {
		row, err := p.parseRow(len(cols))
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return val.NewGrid(meta, cols, rows)
}

// parseNestedGrid parses "<< gridVer tags LINEFEED cols row* >>".
func (p *Parser) parseNestedGrid() (*val.Grid, error) {
	if _, err := p.expect(token.GRIDSTART, ""); err != nil {
		return nil, err
	}
	meta, err := p.parseHeader()
	if err != nil {
		return nil, err
	}
	cols, err := p.parseCols()
	if err != nil {
		return nil, err
	}
	var rows []val.Row
	for {
		if _, ok, err := p.consumeIf(token.GRIDEND, ""); err != nil {
			return nil, err
		} else if ok {
			break
		}
		row, err := p.parseRow(len(cols))
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return val.NewGrid(meta, cols, rows)
}

// parseHeader parses "ver:'3.0' tags LINEFEED", validating the version.
func (p *Parser) parseHeader() (*val.Dict, error) {
	if _, err := p.expect(token.IDENTIFIER, "ver"); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.COLON, ""); err != nil {
		return nil, err
	}
	verTok, err := p.expect(token.STR, "")
	if err != nil {
		return nil, err
	}
	ver, err := val.ReadStr(verTok)
	if err != nil {
		return nil, err
	}
	if ver.Value != "3.0" {
		return nil, errors.Wrapf(ParseError, "unsupported grid version %q, only \"3.0\" is accepted", ver.Value)
	}
	meta, err := p.parseTags(true)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LINEFEED, ""); err != nil {
		return nil, err
	}
	return meta, nil
}

// parseCols parses "col (',' col)* LINEFEED", rejecting a duplicate column
// name as soon as it appears rather than waiting for val.NewGrid's final
// check.
func (p *Parser) parseCols() ([]*val.Col, error) {
	var cols []*val.Col
	var names []string
	for {
		col, err := p.parseCol(len(cols))
		if err != nil {
			return nil, err
		}
		if slices.Contains(names, col.Name) {
			return nil, errors.Wrapf(ParseError, "duplicate column name %q", col.Name)
		}
		names = append(names, col.Name)
		cols = append(cols, col)
		if _, ok, err := p.consumeIf(token.COMMA, ""); err != nil {
			return nil, err
		} else if !ok {
			break
		}
	}
	if _, err := p.expect(token.LINEFEED, ""); err != nil {
		return nil, err
	}
	return cols, nil
}

// parseCol parses "IDENTIFIER tags" — column tags are never comma-separated
// (a comma there would instead separate columns).
func (p *Parser) parseCol(index int) (*val.Col, error) {
	name, err := p.expect(token.IDENTIFIER, "")
	if err != nil {
		return nil, err
	}
	meta, err := p.parseTags(false)
	if err != nil {
		return nil, err
	}
	return &val.Col{Index: index, Name: name, Meta: meta}, nil
}

// parseRow parses one row of width cols. Leading/adjacent/trailing commas
// (or an empty cell before LINEFEED) insert Null; a row with zero cells is
// a ParseError.
func (p *Parser) parseRow(_ int) (val.Row, error) {
	var cells val.Row
	for {
		if _, ok, err := p.consumeIf(token.LINEFEED, ""); err != nil {
			return nil, err
		} else if ok {
			cells = append(cells, val.NullVal)
			break
		}
		if _, ok, err := p.consumeIf(token.COMMA, ""); err != nil {
			return nil, err
		} else if ok {
			cells = append(cells, val.NullVal)
			continue
		}

		v, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		cells = append(cells, v)

		if _, ok, err := p.consumeIf(token.LINEFEED, ""); err != nil {
			return nil, err
		} else if ok {
			break
		}
		if !p.hasCur {
			break
		}
		if _, err := p.expect(token.COMMA, ""); err != nil {
			return nil, err
		}
	}
	if len(cells) == 0 {
		return nil, errors.Wrap(ParseError, "row must contain at least one item")
	}
	return cells, nil
}

// parseTag parses "IDENTIFIER (':' literal)?"; no value defaults to Marker.
func (p *Parser) parseTag() (string, val.Val, error) {
	name, err := p.expect(token.IDENTIFIER, "")
	if err != nil {
		return "", nil, err
	}
	if _, ok, err := p.consumeIf(token.COLON, ""); err != nil {
		return "", nil, err
	} else if !ok {
		return name, val.MarkerVal, nil
	}
	v, err := p.parseLiteral()
	if err != nil {
		return "", nil, err
	}
	return name, v, nil
}

// parseTags parses "(tag (','? tag)*)?"; allowComma controls whether a
// comma between tags is consumed (true inside dicts/grid-meta, false
// inside column tag lists).
func (p *Parser) parseTags(allowComma bool) (*val.Dict, error) {
	d := val.NewDict()
	for p.currentIs(token.IDENTIFIER, "") {
		name, v, err := p.parseTag()
		if err != nil {
			return nil, err
		}
		d.Set(name, v)
		if allowComma {
			if _, _, err := p.consumeIf(token.COMMA, ""); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}

// parseDict parses "'{' tags '}'" (commas allowed).
func (p *Parser) parseDict() (*val.Dict, error) {
	if _, err := p.expect(token.LBRACE, ""); err != nil {
		return nil, err
	}
	tags, err := p.parseTags(true)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RBRACE, ""); err != nil {
		return nil, err
	}
	return tags, nil
}

// parseList parses "'[' (literal (',' literal)*)? ']'".
func (p *Parser) parseList() (*val.List, error) {
	if _, err := p.expect(token.LBRACKET, ""); err != nil {
		return nil, err
	}
	var items []val.Val
	for {
		if _, ok, err := p.consumeIf(token.RBRACKET, ""); err != nil {
			return nil, err
		} else if ok {
			break
		}
		v, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		if _, _, err := p.consumeIf(token.COMMA, ""); err != nil {
			return nil, err
		}
	}
	return val.NewList(items), nil
}

// parseCoord parses "'C' '(' NUMBER ':' NUMBER ')'".
func (p *Parser) parseCoord() (*val.Coord, error) {
	if _, err := p.expect(token.KEYWORD, "C"); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN, ""); err != nil {
		return nil, err
	}
	latTok, err := p.expect(token.NUMBER, "")
	if err != nil {
		return nil, err
	}
	lat, err := val.ReadNum(latTok)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.COLON, ""); err != nil {
		return nil, err
	}
	lonTok, err := p.expect(token.NUMBER, "")
	if err != nil {
		return nil, err
	}
	lon, err := val.ReadNum(lonTok)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN, ""); err != nil {
		return nil, err
	}
	return val.NewCoord(lat.Value, lon.Value)
}

// parseBin parses "'Bin' '(' STR ')'".
func (p *Parser) parseBin() (*val.Bin, error) {
	if _, err := p.expect(token.KEYWORD, "Bin"); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN, ""); err != nil {
		return nil, err
	}
	strTok, err := p.expect(token.STR, "")
	if err != nil {
		return nil, err
	}
	mime, err := val.ReadStr(strTok)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN, ""); err != nil {
		return nil, err
	}
	return val.ReadBinMime(mime.Value)
}

// parseXStr parses "KEYWORD '(' STR ')'" for any keyword besides C/Bin.
func (p *Parser) parseXStr() (*val.XStr, error) {
	typ, err := p.expect(token.KEYWORD, "")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN, ""); err != nil {
		return nil, err
	}
	strTok, err := p.expect(token.STR, "")
	if err != nil {
		return nil, err
	}
	payload, err := val.ReadStr(strTok)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN, ""); err != nil {
		return nil, err
	}
	return val.NewXStr(typ, payload), nil
}

// parseRef parses "REF STR?".
func (p *Parser) parseRef() (*val.Ref, error) {
	refTok, err := p.expect(token.REF, "")
	if err != nil {
		return nil, err
	}
	ref, err := val.ReadRef(refTok)
	if err != nil {
		return nil, err
	}
	if !p.currentIs(token.STR, "") {
		return ref, nil
	}
	strTok, err := p.expect(token.STR, "")
	if err != nil {
		return nil, err
	}
	name, err := val.ReadStr(strTok)
	if err != nil {
		return nil, err
	}
	return ref.WithName(name), nil
}

// parseLiteral dispatches to the production matching cur (and, for
// keyword-led literals, peek), per spec §4.4's disambiguation rules.
func (p *Parser) parseLiteral() (val.Val, error) {
	if !p.hasCur {
		return nil, errors.Wrap(ParseError, "unexpected end of tokens while parsing a literal")
	}

	if p.cur.Kind == token.KEYWORD && p.hasPeek && p.peek.Kind == token.LPAREN {
		switch p.cur.Text {
		case "C":
			return p.parseCoord()
		case "Bin":
			return p.parseBin()
		default:
			return p.parseXStr()
		}
	}

	switch p.cur.Kind {
	case token.LBRACKET:
		return p.parseList()
	case token.LBRACE:
		return p.parseDict()
	case token.GRIDSTART:
		return p.parseNestedGrid()
	case token.REF:
		return p.parseRef()
	case token.SYMBOL:
		tok, err := p.expect(token.SYMBOL, "")
		if err != nil {
			return nil, err
		}
		return val.ReadSymbol(tok)
	case token.BOOL:
		tok, err := p.expect(token.BOOL, "")
		if err != nil {
			return nil, err
		}
		return val.ReadBool(tok)
	case token.URI:
		tok, err := p.expect(token.URI, "")
		if err != nil {
			return nil, err
		}
		return val.ReadUri(tok)
	case token.NUMBER:
		tok, err := p.expect(token.NUMBER, "")
		if err != nil {
			return nil, err
		}
		return val.ReadNum(tok)
	case token.STR:
		tok, err := p.expect(token.STR, "")
		if err != nil {
			return nil, err
		}
		return val.ReadStr(tok)
	case token.DATE:
		tok, err := p.expect(token.DATE, "")
		if err != nil {
			return nil, err
		}
		return val.ReadDate(tok)
	case token.TIME:
		tok, err := p.expect(token.TIME, "")
		if err != nil {
			return nil, err
		}
		return val.ReadTime(tok)
	case token.DATETIME:
		tok, err := p.expect(token.DATETIME, "")
		if err != nil {
			return nil, err
		}
		return val.ReadDateTime(tok)
	case token.KEYWORD:
		switch p.cur.Text {
		case "N":
			if _, err := p.expect(token.KEYWORD, "N"); err != nil {
				return nil, err
			}
			return val.NullVal, nil
		case "M":
			if _, err := p.expect(token.KEYWORD, "M"); err != nil {
				return nil, err
			}
			return val.MarkerVal, nil
		case "R":
			if _, err := p.expect(token.KEYWORD, "R"); err != nil {
				return nil, err
			}
			return val.RemoveVal, nil
		case "NA":
			if _, err := p.expect(token.KEYWORD, "NA"); err != nil {
				return nil, err
			}
			return val.NAVal, nil
		default:
			return nil, errors.Wrapf(ParseError, "unexpected bare keyword %q", p.cur.Text)
		}
	default:
		return nil, errors.Wrapf(ParseError, "unexpected token %s while parsing a literal", p.cur.Kind)
	}
}
