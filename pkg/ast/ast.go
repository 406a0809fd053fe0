// Package ast defines the expression tree produced by the parser
package ast

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xplshn/exprc/pkg/config"
	"github.com/xplshn/exprc/pkg/token"
	"github.com/xplshn/exprc/pkg/util"
)

// NodeKind defines the kind of a node in the AST
type NodeKind int

const (
	Add NodeKind = iota
	Sub
	Mul
	Div
	Eq
	Ne
	Lt
	Le
	Num
)

var kindSymbols = [...]string{
	Add: "+",
	Sub: "-",
	Mul: "*",
	Div: "/",
	Eq:  "==",
	Ne:  "!=",
	Lt:  "<",
	Le:  "<=",
	Num: "num",
}

func (k NodeKind) String() string {
	if k < 0 || int(k) >= len(kindSymbols) {
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
	return kindSymbols[k]
}

// IsComparison reports whether k yields a 0/1 truth value.
func (k NodeKind) IsComparison() bool { return k >= Eq && k <= Le }

// Node is either a number literal (Kind == Num, no children) or a binary
// operation with both children set.
type Node struct {
	Kind  NodeKind
	Tok   token.Token
	Left  *Node
	Right *Node
	Value int64
}

func NewNumber(tok token.Token, value int64) *Node {
	return &Node{Kind: Num, Tok: tok, Value: value}
}

func NewBinary(tok token.Token, kind NodeKind, left, right *Node) *Node {
	return &Node{Kind: kind, Tok: tok, Left: left, Right: right}
}

// String renders the tree as an S-expression, e.g. (- (+ 1 2) 3).
func (n *Node) String() string {
	var sb strings.Builder
	n.write(&sb)
	return sb.String()
}

func (n *Node) write(sb *strings.Builder) {
	if n == nil {
		sb.WriteString("<nil>")
		return
	}
	if n.Kind == Num {
		sb.WriteString(strconv.FormatInt(n.Value, 10))
		return
	}
	fmt.Fprintf(sb, "(%s ", n.Kind)
	n.Left.write(sb)
	sb.WriteByte(' ')
	n.Right.write(sb)
	sb.WriteByte(')')
}

// Walk calls fn for every node in post-order: children before their parent.
func Walk(n *Node, fn func(*Node)) {
	if n == nil {
		return
	}
	Walk(n.Left, fn)
	Walk(n.Right, fn)
	fn(n)
}

// Eval computes the value of the tree with the same semantics as the generated
// code: 64-bit wrapping arithmetic, division truncating toward zero and 0/1
// comparisons. It reports false when a division would trap.
func Eval(n *Node) (int64, bool) {
	if n.Kind == Num {
		return n.Value, true
	}
	l, ok := Eval(n.Left)
	if !ok {
		return 0, false
	}
	r, ok := Eval(n.Right)
	if !ok {
		return 0, false
	}
	return apply(n.Kind, l, r)
}

func apply(kind NodeKind, l, r int64) (int64, bool) {
	switch kind {
	case Add:
		return l + r, true
	case Sub:
		return l - r, true
	case Mul:
		return l * r, true
	case Div:
		if r == 0 || (l == math.MinInt64 && r == -1) {
			return 0, false
		}
		return l / r, true
	case Eq:
		return b2i(l == r), true
	case Ne:
		return b2i(l != r), true
	case Lt:
		return b2i(l < r), true
	case Le:
		return b2i(l <= r), true
	}
	return 0, false
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// FoldConstants replaces every binary node whose operands are literals with
// the literal it evaluates to. Divisions that would trap are kept so the
// program still traps at run time.
func FoldConstants(node *Node, diag *util.Reporter) *Node {
	if node == nil || node.Kind == Num {
		return node
	}

	left := FoldConstants(node.Left, diag)
	right := FoldConstants(node.Right, diag)

	if left.Kind == Num && right.Kind == Num {
		if res, ok := apply(node.Kind, left.Value, right.Value); ok {
			return NewNumber(node.Tok, res)
		}
	}
	if node.Kind == Div && right != node.Right && right.Kind == Num && right.Value == 0 {
		diag.Warn(config.WarnDivZero, node.Tok.Pos, node.Tok.Len, "divisor folds to zero")
	}
	if left == node.Left && right == node.Right {
		return node
	}
	return NewBinary(node.Tok, node.Kind, left, right)
}
