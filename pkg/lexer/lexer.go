package lexer

import (
	"strings"

	"github.com/xplshn/exprc/pkg/config"
	"github.com/xplshn/exprc/pkg/token"
	"github.com/xplshn/exprc/pkg/util"
)

type Lexer struct {
	source string
	pos    int
	cfg    *config.Config
	diag   *util.Reporter
}

// NewLexer returns a lexer over source. diag may be nil, in which case
// warnings are dropped.
func NewLexer(source string, cfg *config.Config, diag *util.Reporter) *Lexer {
	return &Lexer{source: source, cfg: cfg, diag: diag}
}

// Tokenize is a convenience wrapper that lexes source with no warning output.
func Tokenize(source string, cfg *config.Config) ([]token.Token, error) {
	return NewLexer(source, cfg, nil).Tokenize()
}

// Tokenize scans the whole input once and returns its tokens, always ending
// with a single EOF token.
func (l *Lexer) Tokenize() ([]token.Token, error) {
	var toks []token.Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks, nil
		}
	}
}

func (l *Lexer) Next() (token.Token, error) {
	l.skipWhitespace()
	start := l.pos

	if l.isAtEnd() {
		return l.makeToken(token.EOF, "", start), nil
	}

	if isDigit(l.peek()) {
		return l.numberLiteral(start), nil
	}

	for _, sym := range token.Symbols {
		if strings.HasPrefix(l.source[l.pos:], sym) {
			l.pos += len(sym)
			return l.makeToken(token.Reserved, sym, start), nil
		}
	}

	return token.Token{}, util.Errorf(start, 1, "invalid token")
}

func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) makeToken(typ token.Type, value string, start int) token.Token {
	return token.Token{Type: typ, Value: value, Pos: start, Len: l.pos - start}
}

func (l *Lexer) skipWhitespace() {
	for {
		switch l.peek() {
		case ' ', '\t', '\n', '\v', '\f', '\r':
			l.pos++
		default:
			return
		}
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// numberLiteral reads a maximal run of decimal digits. Values past 64 bits
// wrap modulo 2^64 instead of failing.
func (l *Lexer) numberLiteral(start int) token.Token {
	var val uint64
	overflow := false
	for isDigit(l.peek()) {
		d := uint64(l.peek() - '0')
		if val > (1<<64-1-d)/10 {
			overflow = true
		}
		val = val*10 + d
		l.pos++
	}

	tok := l.makeToken(token.Number, l.source[start:l.pos], start)
	tok.Num = int64(val)
	if overflow {
		l.diag.Warn(config.WarnOverflow, tok.Pos, tok.Len, "integer literal %s overflows 64 bits, truncated to %d", tok.Value, tok.Num)
	} else if val > 1<<63-1 {
		l.diag.Warn(config.WarnOverflow, tok.Pos, tok.Len, "integer literal %s is out of range for a signed 64-bit value, wrapped to %d", tok.Value, tok.Num)
	}
	return tok
}
