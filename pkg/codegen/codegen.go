package codegen

import (
	"fmt"

	"github.com/xplshn/exprc/pkg/ast"
	"github.com/xplshn/exprc/pkg/config"
	"github.com/xplshn/exprc/pkg/ir"
)

// Context lowers an expression tree into an ir.Program with a single
// exported main function.
type Context struct {
	prog         *ir.Program
	tempCount    int
	wordType     ir.Type
	currentBlock *ir.BasicBlock
}

func NewContext(cfg *config.Config) *Context {
	return &Context{
		prog:     &ir.Program{WordSize: cfg.WordSize},
		wordType: ir.WordType(cfg.WordSize),
	}
}

var binaryOps = map[ast.NodeKind]ir.Op{
	ast.Add: ir.OpAdd,
	ast.Sub: ir.OpSub,
	ast.Mul: ir.OpMul,
	ast.Div: ir.OpDiv,
	ast.Eq:  ir.OpCEq,
	ast.Ne:  ir.OpCNeq,
	ast.Lt:  ir.OpCLt,
	ast.Le:  ir.OpCLe,
}

// GenerateIR returns main() { return <root>; } in IR form.
func (ctx *Context) GenerateIR(root *ast.Node) (*ir.Program, error) {
	fn := &ir.Func{Name: "main", Exported: true, ReturnType: ctx.wordType}
	ctx.currentBlock = &ir.BasicBlock{Label: &ir.Label{Name: "start"}}
	fn.Blocks = append(fn.Blocks, ctx.currentBlock)

	result, err := ctx.codegenExpr(root)
	if err != nil {
		return nil, err
	}
	ctx.addInstr(&ir.Instruction{Op: ir.OpRet, Args: []ir.Value{result}})
	ctx.prog.Funcs = append(ctx.prog.Funcs, fn)
	return ctx.prog, nil
}

func (ctx *Context) newTemp() *ir.Temporary {
	t := &ir.Temporary{ID: ctx.tempCount}
	ctx.tempCount++
	return t
}

func (ctx *Context) addInstr(instr *ir.Instruction) {
	ctx.currentBlock.Instructions = append(ctx.currentBlock.Instructions, instr)
}

func (ctx *Context) codegenExpr(node *ast.Node) (ir.Value, error) {
	if node == nil {
		return nil, fmt.Errorf("internal error: missing operand")
	}
	if node.Kind == ast.Num {
		return &ir.Const{Value: node.Value}, nil
	}

	op, ok := binaryOps[node.Kind]
	if !ok {
		return nil, fmt.Errorf("internal error: invalid node kind %s", node.Kind)
	}
	lhs, err := ctx.codegenExpr(node.Left)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.codegenExpr(node.Right)
	if err != nil {
		return nil, err
	}

	res := ctx.newTemp()
	ctx.addInstr(&ir.Instruction{
		Op:          op,
		Typ:         ctx.wordType,
		OperandType: ctx.wordType,
		Result:      res,
		Args:        []ir.Value{lhs, rhs},
	})
	return res, nil
}
