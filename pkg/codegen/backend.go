package codegen

import (
	"bytes"
	"fmt"

	"github.com/xplshn/exprc/pkg/ast"
	"github.com/xplshn/exprc/pkg/config"
)

// Backend is the interface that all code generation backends must implement.
type Backend interface {
	// Generate takes the expression tree and a configuration, and produces
	// the target assembly as a byte buffer. The tree is not modified.
	Generate(root *ast.Node, cfg *config.Config) (*bytes.Buffer, error)
}

// IRDumper is implemented by backends that go through a textual IR.
type IRDumper interface {
	GenerateIR(root *ast.Node, cfg *config.Config) (string, error)
}

// NewBackend returns the backend selected by cfg.BackendName.
func NewBackend(cfg *config.Config) (Backend, error) {
	switch cfg.BackendName {
	case config.BackendStack:
		return NewStackBackend(), nil
	case config.BackendQBE:
		return NewQBEBackend(), nil
	default:
		return nil, fmt.Errorf("unsupported backend '%s'", cfg.BackendName)
	}
}
