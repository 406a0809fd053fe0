//go:build !windows

package codegen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xplshn/exprc/pkg/ast"
	"github.com/xplshn/exprc/pkg/config"
	"modernc.org/libqbe"
)

func (b *qbeBackend) Generate(root *ast.Node, cfg *config.Config) (*bytes.Buffer, error) {
	qbeIR, err := b.GenerateIR(root, cfg)
	if err != nil {
		return nil, err
	}

	var asmBuf bytes.Buffer
	err = libqbe.Main(cfg.BackendTarget, "input.ssa", strings.NewReader(qbeIR), &asmBuf, nil)
	if err != nil {
		return nil, fmt.Errorf("QBE compilation failed: %w\nGenerated IR:\n%s", err, qbeIR)
	}
	return &asmBuf, nil
}
