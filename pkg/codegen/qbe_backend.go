package codegen

import (
	"fmt"
	"strings"

	"github.com/xplshn/exprc/pkg/ast"
	"github.com/xplshn/exprc/pkg/config"
	"github.com/xplshn/exprc/pkg/ir"
)

// qbeBackend formats the IR as QBE IL and hands it to QBE for the target
// selected by cfg.BackendTarget.
type qbeBackend struct {
	out  *strings.Builder
	prog *ir.Program
}

func NewQBEBackend() Backend { return &qbeBackend{} }

// GenerateIR returns the QBE IL for root.
func (b *qbeBackend) GenerateIR(root *ast.Node, cfg *config.Config) (string, error) {
	prog, err := NewContext(cfg).GenerateIR(root)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	b.out = &sb
	b.prog = prog
	for _, fn := range prog.Funcs {
		b.genFunc(fn)
	}
	return sb.String(), nil
}

func (b *qbeBackend) genFunc(fn *ir.Func) {
	if fn.Exported {
		b.out.WriteString("export ")
	}
	fmt.Fprintf(b.out, "function %s $%s() {\n", b.formatType(fn.ReturnType), fn.Name)
	for _, block := range fn.Blocks {
		b.genBlock(block)
	}
	b.out.WriteString("}\n")
}

func (b *qbeBackend) genBlock(block *ir.BasicBlock) {
	fmt.Fprintf(b.out, "@%s\n", block.Label.Name)
	for _, instr := range block.Instructions {
		b.genInstr(instr)
	}
}

func (b *qbeBackend) genInstr(instr *ir.Instruction) {
	b.out.WriteString("\t")
	if instr.Result != nil {
		fmt.Fprintf(b.out, "%s =%s ", b.formatValue(instr.Result), b.formatType(instr.Typ))
	}
	b.out.WriteString(b.formatOp(instr))
	for i, arg := range instr.Args {
		if i > 0 {
			b.out.WriteString(",")
		}
		b.out.WriteString(" ")
		b.out.WriteString(b.formatValue(arg))
	}
	b.out.WriteString("\n")
}

func (b *qbeBackend) formatValue(v ir.Value) string {
	switch val := v.(type) {
	case *ir.Const:
		return val.String()
	case *ir.Temporary:
		return "%" + val.String()
	case *ir.Label:
		return "@" + val.Name
	default:
		return ""
	}
}

func (b *qbeBackend) formatType(t ir.Type) string {
	switch t {
	case ir.TypeW:
		return "w"
	case ir.TypeL:
		return "l"
	default:
		return ""
	}
}

func (b *qbeBackend) formatOp(instr *ir.Instruction) string {
	argType := b.formatType(instr.OperandType)
	switch instr.Op {
	case ir.OpAdd:
		return "add"
	case ir.OpSub:
		return "sub"
	case ir.OpMul:
		return "mul"
	case ir.OpDiv:
		return "div"
	case ir.OpCEq:
		return "ceq" + argType
	case ir.OpCNeq:
		return "cne" + argType
	case ir.OpCLt:
		return "cslt" + argType
	case ir.OpCLe:
		return "csle" + argType
	case ir.OpRet:
		return "ret"
	default:
		return "unknown_op"
	}
}
