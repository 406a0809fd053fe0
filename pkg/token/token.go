package token

import "fmt"

type Type int

const (
	EOF Type = iota
	Reserved
	Number
)

func (t Type) String() string {
	switch t {
	case EOF:
		return "EOF"
	case Reserved:
		return "Reserved"
	case Number:
		return "Number"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Symbols lists every reserved symbol, two-byte symbols first so that the
// lexer can match the longest one.
var Symbols = []string{"==", "!=", "<=", ">=", "+", "-", "*", "/", "(", ")", "<", ">"}

// Token is one lexical unit. Pos and Len locate it in the original input.
type Token struct {
	Type  Type
	Value string // symbol text for Reserved, digits for Number
	Num   int64  // only meaningful for Number
	Pos   int
	Len   int
}

// Is reports whether tok is the reserved symbol op.
func (tok Token) Is(op string) bool {
	return tok.Type == Reserved && tok.Value == op
}

func (tok Token) String() string {
	switch tok.Type {
	case EOF:
		return "end of input"
	case Number:
		return tok.Value
	default:
		return fmt.Sprintf("'%s'", tok.Value)
	}
}
