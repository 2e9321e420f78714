package lexer

import (
	"context"
	"testing"

	"github.com/skygrid/zinc/internal/charstream"
	"github.com/skygrid/zinc/internal/token"
)

func tokenizeAll(t *testing.T, src string) []token.Token {
	t.Helper()
	ctx := context.Background()
	// Feed the whole string as a single chunk via a one-shot source.
	sent := false
	reader := charstream.New(charstream.ChunkSourceFunc(func(ctx context.Context) ([]byte, bool, error) {
		if sent {
			return nil, false, nil
		}
		sent = true
		return []byte(src), true, nil
	}))

	lx, err := New(ctx, reader)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var toks []token.Token
	for {
		tok, ok, err := lx.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		toks = append(toks, tok)
	}
	return toks
}

func tokenizeErr(t *testing.T, src string) error {
	t.Helper()
	ctx := context.Background()
	sent := false
	reader := charstream.New(charstream.ChunkSourceFunc(func(ctx context.Context) ([]byte, bool, error) {
		if sent {
			return nil, false, nil
		}
		sent = true
		return []byte(src), true, nil
	}))
	lx, err := New(ctx, reader)
	if err != nil {
		return err
	}
	for {
		_, ok, err := lx.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}

func requireTokens(t *testing.T, got []token.Token, want []token.Token) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d tokens %+v, want %d tokens %+v", len(got), got, len(want), want)
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("token %d = %+v, want %+v", i, got[i], w)
		}
	}
}

func TestLexerIdentifierAndKeyword(t *testing.T) {
	toks := tokenizeAll(t, "name N NaN T F Foo")
	requireTokens(t, toks, []token.Token{
		{Kind: token.IDENTIFIER, Text: "name"},
		{Kind: token.KEYWORD, Text: "N"},
		{Kind: token.NUMBER, Text: "NaN"},
		{Kind: token.BOOL, Text: "T"},
		{Kind: token.BOOL, Text: "F"},
		{Kind: token.KEYWORD, Text: "Foo"},
	})
}

func TestLexerSymbolAndRef(t *testing.T) {
	toks := tokenizeAll(t, "^tag @id.123:a")
	requireTokens(t, toks, []token.Token{
		{Kind: token.SYMBOL, Text: "^tag"},
		{Kind: token.REF, Text: "@id.123:a"},
	})
}

func TestLexerRefDoesNotConsumeTrailingSpace(t *testing.T) {
	toks := tokenizeAll(t, "@abc def")
	requireTokens(t, toks, []token.Token{
		{Kind: token.REF, Text: "@abc"},
		{Kind: token.IDENTIFIER, Text: "def"},
	})
}

func TestLexerString(t *testing.T) {
	toks := tokenizeAll(t, `"hi\nthere" "escAend"`)
	requireTokens(t, toks, []token.Token{
		{Kind: token.STR, Text: `"hi\nthere"`},
		{Kind: token.STR, Text: `"escAend"`},
	})
}

func TestLexerUnterminatedString(t *testing.T) {
	if err := tokenizeErr(t, `"no closing quote`); err == nil {
		t.Fatal("expected error for unterminated string")
	}
}

func TestLexerInvalidEscape(t *testing.T) {
	if err := tokenizeErr(t, `"bad \q escape"`); err == nil {
		t.Fatal("expected error for invalid escape character")
	}
}

func TestLexerURI(t *testing.T) {
	toks := tokenizeAll(t, "`http://example.com/a\\:b`")
	if len(toks) != 1 || toks[0].Kind != token.URI {
		t.Fatalf("got %+v, want single URI token", toks)
	}
}

func TestLexerNumberClassification(t *testing.T) {
	cases := []struct {
		src  string
		kind token.Kind
	}{
		{"12", token.NUMBER},
		{"-12.12345", token.NUMBER},
		{"-12.123456789eV", token.NUMBER},
		{"10.2e3", token.NUMBER},
		{"1E-2kW", token.NUMBER},
		{"2024-01-15", token.DATE},
		{"10:30:00", token.TIME},
		{"2010-03-11T23:55:00-05:00", token.DATETIME},
		{"0xFF", token.NUMBER},
	}
	for _, c := range cases {
		toks := tokenizeAll(t, c.src)
		if len(toks) != 1 {
			t.Fatalf("tokenize(%q): got %d tokens, want 1: %+v", c.src, len(toks), toks)
		}
		if toks[0].Kind != c.kind {
			t.Errorf("tokenize(%q): kind = %s, want %s", c.src, toks[0].Kind, c.kind)
		}
	}
}

func TestLexerIncompleteHexNumber(t *testing.T) {
	if err := tokenizeErr(t, "0x"); err == nil {
		t.Fatal("expected error for incomplete hex number")
	}
}

func TestLexerGridDigraphsAndLinefeed(t *testing.T) {
	toks := tokenizeAll(t, "<<\r\n>>")
	requireTokens(t, toks, []token.Token{
		{Kind: token.GRIDSTART, Text: "<<"},
		{Kind: token.LINEFEED, Text: "\r\n"},
		{Kind: token.GRIDEND, Text: ">>"},
	})
}

func TestLexerTrivialPunctuation(t *testing.T) {
	toks := tokenizeAll(t, "(){}[]:,")
	requireTokens(t, toks, []token.Token{
		{Kind: token.LPAREN, Text: "("},
		{Kind: token.RPAREN, Text: ")"},
		{Kind: token.LBRACE, Text: "{"},
		{Kind: token.RBRACE, Text: "}"},
		{Kind: token.LBRACKET, Text: "["},
		{Kind: token.RBRACKET, Text: "]"},
		{Kind: token.COLON, Text: ":"},
		{Kind: token.COMMA, Text: ","},
	})
}

func TestLexerUnexpectedCharacter(t *testing.T) {
	if err := tokenizeErr(t, "?"); err == nil {
		t.Fatal("expected error for unexpected character")
	}
}
