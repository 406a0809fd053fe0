package codegen

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xplshn/exprc/pkg/ast"
	"github.com/xplshn/exprc/pkg/config"
	"github.com/xplshn/exprc/pkg/lexer"
	"github.com/xplshn/exprc/pkg/parser"
	"github.com/xplshn/exprc/pkg/token"
)

func parseExpr(t *testing.T, src string) *ast.Node {
	t.Helper()
	cfg := config.NewConfig()
	toks, err := lexer.Tokenize(src, cfg)
	require.NoError(t, err)
	node, err := parser.NewParser(toks, cfg, nil).Parse()
	require.NoError(t, err)
	return node
}

func generateStack(t *testing.T, node *ast.Node) string {
	t.Helper()
	buf, err := NewStackBackend().Generate(node, config.NewConfig())
	require.NoError(t, err)
	return buf.String()
}

// machine runs the subset of x86-64 the stack backend emits.
type machine struct {
	regs     map[string]int64
	stack    []int64
	maxDepth int
	lhs, rhs int64 // operands of the last cmp
}

func (m *machine) operand(s string) int64 {
	if v, ok := m.regs[s]; ok {
		return v
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		panic(fmt.Sprintf("bad operand %q", s))
	}
	return v
}

func (m *machine) setcc(b bool) {
	m.regs["rax"] &^= 0xff
	if b {
		m.regs["rax"] |= 1
	}
}

// run executes listing from main: and returns rax at ret.
func run(listing string) (int64, *machine, error) {
	m := &machine{regs: map[string]int64{"rax": 0, "rdi": 0, "rdx": 0}}
	lines := strings.Split(listing, "\n")
	started := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "main:" {
			started = true
			continue
		}
		if !started || line == "" {
			continue
		}
		mnemonic, rest, _ := strings.Cut(line, " ")
		var args []string
		for _, a := range strings.Split(rest, ",") {
			if a = strings.TrimSpace(a); a != "" {
				args = append(args, a)
			}
		}
		switch mnemonic {
		case "push":
			m.stack = append(m.stack, m.operand(args[0]))
			m.maxDepth = max(m.maxDepth, len(m.stack))
		case "pop":
			if len(m.stack) == 0 {
				return 0, m, fmt.Errorf("pop from empty stack")
			}
			m.regs[args[0]] = m.stack[len(m.stack)-1]
			m.stack = m.stack[:len(m.stack)-1]
		case "mov":
			m.regs[args[0]] = m.operand(args[1])
		case "add":
			m.regs[args[0]] += m.operand(args[1])
		case "sub":
			m.regs[args[0]] -= m.operand(args[1])
		case "imul":
			m.regs[args[0]] *= m.operand(args[1])
		case "cqo":
			m.regs["rdx"] = m.regs["rax"] >> 63
		case "idiv":
			d := m.operand(args[0])
			if d == 0 {
				return 0, m, fmt.Errorf("division by zero")
			}
			a := m.regs["rax"]
			m.regs["rax"], m.regs["rdx"] = a/d, a%d
		case "cmp":
			m.lhs, m.rhs = m.operand(args[0]), m.operand(args[1])
		case "sete":
			m.setcc(m.lhs == m.rhs)
		case "setne":
			m.setcc(m.lhs != m.rhs)
		case "setl":
			m.setcc(m.lhs < m.rhs)
		case "setle":
			m.setcc(m.lhs <= m.rhs)
		case "movzb":
			m.regs["rax"] &= 0xff
		case "ret":
			if len(m.stack) != 0 {
				return 0, m, fmt.Errorf("%d values left on the stack at ret", len(m.stack))
			}
			return m.regs["rax"], m, nil
		default:
			return 0, m, fmt.Errorf("unknown instruction %q", line)
		}
	}
	return 0, m, fmt.Errorf("no ret")
}

func TestStackBackendListing(t *testing.T) {
	want := `.intel_syntax noprefix
.global main
main:
    push 1
    push 2
    pop rdi
    pop rax
    add rax, rdi
    push rax
    pop rax
    ret
`
	got := generateStack(t, parseExpr(t, "1+2"))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("listing mismatch (-want +got):\n%s", diff)
	}
}

func TestStackBackendSingleLiteral(t *testing.T) {
	want := `.intel_syntax noprefix
.global main
main:
    push 42
    pop rax
    ret
`
	got := generateStack(t, parseExpr(t, "42"))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("listing mismatch (-want +got):\n%s", diff)
	}
}

func TestStackBackendOperators(t *testing.T) {
	tests := []struct {
		src  string
		want []string
	}{
		{"1-2", []string{"sub rax, rdi"}},
		{"1*2", []string{"imul rax, rdi"}},
		{"1/2", []string{"cqo", "idiv rdi"}},
		{"1==2", []string{"cmp rax, rdi", "sete al", "movzb rax, al"}},
		{"1!=2", []string{"cmp rax, rdi", "setne al", "movzb rax, al"}},
		{"1<2", []string{"cmp rax, rdi", "setl al", "movzb rax, al"}},
		{"1<=2", []string{"cmp rax, rdi", "setle al", "movzb rax, al"}},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got := generateStack(t, parseExpr(t, tt.src))
			assert.Contains(t, got, "    pop rdi\n    pop rax\n    "+strings.Join(tt.want, "\n    ")+"\n    push rax\n")
		})
	}
}

func TestStackBackendWideLiteral(t *testing.T) {
	got := generateStack(t, parseExpr(t, "4294967296"))
	assert.Contains(t, got, "    mov rax, 4294967296\n    push rax\n")

	got = generateStack(t, parseExpr(t, "2147483647"))
	assert.Contains(t, got, "    push 2147483647\n")
}

func TestStackBackendEvaluates(t *testing.T) {
	exprs := []string{
		"0", "42", "5+20-4", " 12 + 34 - 5 ", "5+6*7", "5*(9-6)", "(3+5)/2",
		"-10+20", "-5+3", "+5-3", "-7/2", "7/-2",
		"0==1", "42==42", "0!=1", "42!=42",
		"0<1", "1<1", "2<1", "0<=1", "1<=1", "2<=1",
		"1>0", "1>1", "1>2", "1>=0", "1>=1", "1>=2",
		"1<2==1", "(1+2)*(3+4)-5/(2-3)", "1000000*1000000",
		"9223372036854775807+1", "4294967296*3", "-(2147483648)",
	}

	for _, src := range exprs {
		t.Run(src, func(t *testing.T) {
			node := parseExpr(t, src)
			want, ok := ast.Eval(node)
			require.True(t, ok)

			got, _, err := run(generateStack(t, node))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestStackBackendDepth(t *testing.T) {
	// A left-leaning chain never needs more than two slots; a right-leaning
	// one needs one per operand.
	_, m, err := run(generateStack(t, parseExpr(t, "1+2+3+4+5")))
	require.NoError(t, err)
	assert.Equal(t, 2, m.maxDepth)

	_, m, err = run(generateStack(t, parseExpr(t, "1+(2+(3+(4+5)))")))
	require.NoError(t, err)
	assert.Equal(t, 5, m.maxDepth)
}

func TestStackBackendRejectsMalformedTree(t *testing.T) {
	bad := ast.NewBinary(token.Token{Value: "+"}, ast.Add, ast.NewNumber(token.Token{}, 1), nil)
	_, err := NewStackBackend().Generate(bad, config.NewConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing operand")

	bad = &ast.Node{Kind: ast.NodeKind(99), Left: ast.NewNumber(token.Token{}, 1), Right: ast.NewNumber(token.Token{}, 2)}
	_, err = NewStackBackend().Generate(bad, config.NewConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid node kind")
}

func TestStackBackendIsReusable(t *testing.T) {
	b := NewStackBackend()
	first, err := b.Generate(parseExpr(t, "1+2"), config.NewConfig())
	require.NoError(t, err)
	firstText := first.String()
	second, err := b.Generate(parseExpr(t, "1+2"), config.NewConfig())
	require.NoError(t, err)
	assert.Equal(t, firstText, second.String())
}
