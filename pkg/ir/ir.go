package ir

import "strconv"

type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpCEq
	OpCNeq
	OpCLt
	OpCLe
	OpRet
)

type Type int

const (
	TypeNone Type = iota
	TypeW         // word (32-bit)
	TypeL         // long (64-bit)
)

type Value interface {
	isValue()
	String() string
}

type Const struct{ Value int64 }
type Temporary struct{ ID int }
type Label struct{ Name string }

func (c *Const) isValue()     {}
func (t *Temporary) isValue() {}
func (l *Label) isValue()     {}

func (c *Const) String() string     { return strconv.FormatInt(c.Value, 10) }
func (t *Temporary) String() string { return "t" + strconv.Itoa(t.ID) }
func (l *Label) String() string     { return l.Name }

// Instruction computes Result = Op(Args...). Comparisons take operands of
// OperandType and produce a Typ result.
type Instruction struct {
	Op          Op
	Typ         Type
	OperandType Type
	Result      Value
	Args        []Value
}

type BasicBlock struct {
	Label        *Label
	Instructions []*Instruction
}

type Func struct {
	Name       string
	Exported   bool
	ReturnType Type
	Blocks     []*BasicBlock
}

type Program struct {
	Funcs    []*Func
	WordSize int
}

// IsComparison reports whether op produces a 0/1 value.
func (op Op) IsComparison() bool { return op >= OpCEq && op <= OpCLe }

// WordType is the integer type matching wordSize bytes.
func WordType(wordSize int) Type {
	if wordSize == 4 {
		return TypeW
	}
	return TypeL
}

func (p *Program) FindFunc(name string) *Func {
	for _, f := range p.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}
