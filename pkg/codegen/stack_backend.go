package codegen

import (
	"bytes"
	"fmt"
	"math"

	"github.com/xplshn/exprc/pkg/ast"
	"github.com/xplshn/exprc/pkg/config"
)

// stackBackend emits x86-64 Intel-syntax assembly that evaluates the tree on
// the machine stack. Every node's code pushes exactly one value.
type stackBackend struct {
	out   *bytes.Buffer
	depth int
}

func NewStackBackend() Backend { return &stackBackend{} }

func (b *stackBackend) Generate(root *ast.Node, cfg *config.Config) (*bytes.Buffer, error) {
	b.out = new(bytes.Buffer)
	b.depth = 0

	b.println(".intel_syntax noprefix")
	b.println(".global main")
	b.println("main:")

	if err := b.genExpr(root); err != nil {
		return nil, err
	}

	// The whole expression's value is on top of the stack.
	b.pop("rax")
	b.emit("ret")

	if b.depth != 0 {
		return nil, fmt.Errorf("internal error: stack depth is %d at return", b.depth)
	}
	return b.out, nil
}

func (b *stackBackend) println(s string) {
	b.out.WriteString(s)
	b.out.WriteByte('\n')
}

func (b *stackBackend) emit(format string, args ...any) {
	b.out.WriteString("    ")
	fmt.Fprintf(b.out, format, args...)
	b.out.WriteByte('\n')
}

func (b *stackBackend) push(reg string) {
	b.emit("push %s", reg)
	b.depth++
}

func (b *stackBackend) pop(reg string) {
	b.emit("pop %s", reg)
	b.depth--
}

func (b *stackBackend) genExpr(node *ast.Node) error {
	if node == nil {
		return fmt.Errorf("internal error: missing operand")
	}
	start := b.depth
	if err := b.genNode(node); err != nil {
		return err
	}
	if b.depth != start+1 {
		return fmt.Errorf("internal error: %s node changed stack depth by %d", node.Kind, b.depth-start)
	}
	return nil
}

func (b *stackBackend) genNode(node *ast.Node) error {
	if node.Kind == ast.Num {
		// push only takes a sign-extended 32-bit immediate.
		if node.Value >= math.MinInt32 && node.Value <= math.MaxInt32 {
			b.emit("push %d", node.Value)
			b.depth++
			return nil
		}
		b.emit("mov rax, %d", node.Value)
		b.push("rax")
		return nil
	}

	if err := b.genExpr(node.Left); err != nil {
		return err
	}
	if err := b.genExpr(node.Right); err != nil {
		return err
	}

	b.pop("rdi")
	b.pop("rax")

	switch node.Kind {
	case ast.Add:
		b.emit("add rax, rdi")
	case ast.Sub:
		b.emit("sub rax, rdi")
	case ast.Mul:
		b.emit("imul rax, rdi")
	case ast.Div:
		b.emit("cqo")
		b.emit("idiv rdi")
	case ast.Eq, ast.Ne, ast.Lt, ast.Le:
		b.emit("cmp rax, rdi")
		b.emit("%s al", setcc[node.Kind])
		b.emit("movzb rax, al")
	default:
		return fmt.Errorf("internal error: invalid node kind %s", node.Kind)
	}

	b.push("rax")
	return nil
}

var setcc = map[ast.NodeKind]string{
	ast.Eq: "sete",
	ast.Ne: "setne",
	ast.Lt: "setl",
	ast.Le: "setle",
}
