package parser

import (
	"github.com/xplshn/exprc/pkg/ast"
	"github.com/xplshn/exprc/pkg/config"
	"github.com/xplshn/exprc/pkg/token"
	"github.com/xplshn/exprc/pkg/util"
)

// Parser holds the state for parsing one token sequence. The cursor only
// moves forward.
type Parser struct {
	tokens []token.Token
	pos    int
	depth  int
	cfg    *config.Config
	diag   *util.Reporter
}

// NewParser creates a Parser over tokens, which must end with an EOF token.
// diag may be nil.
func NewParser(tokens []token.Token, cfg *config.Config, diag *util.Reporter) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != token.EOF {
		tokens = append(tokens, token.Token{Type: token.EOF})
	}
	return &Parser{tokens: tokens, cfg: cfg, diag: diag}
}

// Current returns the token under the cursor.
func (p *Parser) Current() token.Token { return p.tokens[p.pos] }

func (p *Parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
}

// Consume advances past the current token if it is the reserved symbol op.
func (p *Parser) Consume(op string) bool {
	if !p.Current().Is(op) {
		return false
	}
	p.advance()
	return true
}

// Expect is Consume, but a mismatch is an error at the current token.
func (p *Parser) Expect(op string) error {
	if p.Consume(op) {
		return nil
	}
	return p.errorf("expected '%s'", op)
}

// ExpectNumber returns the value of the current Number token and advances.
func (p *Parser) ExpectNumber() (int64, error) {
	tok := p.Current()
	if tok.Type != token.Number {
		return 0, p.errorf("expected a number")
	}
	p.advance()
	return tok.Num, nil
}

func (p *Parser) AtEnd() bool { return p.Current().Type == token.EOF }

func (p *Parser) errorf(format string, args ...any) error {
	tok := p.Current()
	return util.Errorf(tok.Pos, max(tok.Len, 1), format, args...)
}

// Parse parses a complete expression. Leftover tokens are an error unless
// the trailing feature is enabled.
func (p *Parser) Parse() (*ast.Node, error) {
	node, err := p.Expr()
	if err != nil {
		return nil, err
	}
	if !p.AtEnd() {
		if p.cfg.IsFeatureEnabled(config.FeatTrailing) {
			tok := p.Current()
			p.diag.Warn(config.WarnExtra, tok.Pos, tok.Len, "ignoring tokens after the expression")
			return node, nil
		}
		return nil, p.errorf("extra token")
	}
	return node, nil
}

// Expr parses an expression starting at the cursor and stops at the first
// token that cannot continue it.
func (p *Parser) Expr() (*ast.Node, error) {
	return p.equality()
}

// equality = relational ("==" relational | "!=" relational)*
func (p *Parser) equality() (*ast.Node, error) {
	node, err := p.relational()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.Current()
		var kind ast.NodeKind
		if p.Consume("==") {
			kind = ast.Eq
		} else if p.Consume("!=") {
			kind = ast.Ne
		} else {
			return node, nil
		}
		rhs, err := p.relational()
		if err != nil {
			return nil, err
		}
		node = ast.NewBinary(tok, kind, node, rhs)
	}
}

// relational = add ("<" add | "<=" add | ">" add | ">=" add)*
//
// a > b is built as b < a and a >= b as b <= a.
func (p *Parser) relational() (*ast.Node, error) {
	node, err := p.add()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.Current()
		var kind ast.NodeKind
		swap := false
		if p.Consume("<") {
			kind = ast.Lt
		} else if p.Consume("<=") {
			kind = ast.Le
		} else if p.Consume(">") {
			kind, swap = ast.Lt, true
		} else if p.Consume(">=") {
			kind, swap = ast.Le, true
		} else {
			return node, nil
		}
		rhs, err := p.add()
		if err != nil {
			return nil, err
		}
		if swap {
			node = ast.NewBinary(tok, kind, rhs, node)
		} else {
			node = ast.NewBinary(tok, kind, node, rhs)
		}
	}
}

// add = mul ("+" mul | "-" mul)*
func (p *Parser) add() (*ast.Node, error) {
	node, err := p.mul()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.Current()
		var kind ast.NodeKind
		if p.Consume("+") {
			kind = ast.Add
		} else if p.Consume("-") {
			kind = ast.Sub
		} else {
			return node, nil
		}
		rhs, err := p.mul()
		if err != nil {
			return nil, err
		}
		node = ast.NewBinary(tok, kind, node, rhs)
	}
}

// mul = unary ("*" unary | "/" unary)*
func (p *Parser) mul() (*ast.Node, error) {
	node, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.Current()
		var kind ast.NodeKind
		if p.Consume("*") {
			kind = ast.Mul
		} else if p.Consume("/") {
			kind = ast.Div
		} else {
			return node, nil
		}
		rhs, err := p.unary()
		if err != nil {
			return nil, err
		}
		if kind == ast.Div && rhs.Kind == ast.Num && rhs.Value == 0 {
			p.diag.Warn(config.WarnDivZero, tok.Pos, tok.Len, "division by zero")
		}
		node = ast.NewBinary(tok, kind, node, rhs)
	}
}

// unary = ("+" | "-")? primary
//
// -x is built as 0 - x.
func (p *Parser) unary() (*ast.Node, error) {
	tok := p.Current()
	if p.Consume("+") {
		return p.primary()
	}
	if p.Consume("-") {
		operand, err := p.primary()
		if err != nil {
			return nil, err
		}
		return ast.NewBinary(tok, ast.Sub, ast.NewNumber(tok, 0), operand), nil
	}
	return p.primary()
}

// primary = num | "(" expr ")"
func (p *Parser) primary() (*ast.Node, error) {
	tok := p.Current()
	if p.Consume("(") {
		if p.depth >= p.cfg.MaxDepth {
			return nil, util.Errorf(tok.Pos, tok.Len, "expression nested too deeply (limit %d)", p.cfg.MaxDepth)
		}
		p.depth++
		node, err := p.Expr()
		p.depth--
		if err != nil {
			return nil, err
		}
		if err := p.Expect(")"); err != nil {
			return nil, err
		}
		return node, nil
	}

	val, err := p.ExpectNumber()
	if err != nil {
		return nil, err
	}
	return ast.NewNumber(tok, val), nil
}
