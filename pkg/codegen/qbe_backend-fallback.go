//go:build windows

package codegen

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"

	"github.com/xplshn/exprc/pkg/ast"
	"github.com/xplshn/exprc/pkg/config"
)

// Generate shells out to a qbe binary on PATH, since libqbe is not
// available on Windows.
func (b *qbeBackend) Generate(root *ast.Node, cfg *config.Config) (*bytes.Buffer, error) {
	qbePath, err := exec.LookPath("qbe")
	if err != nil {
		return nil, fmt.Errorf("QBE not found in PATH: %w", err)
	}

	qbeIR, err := b.GenerateIR(root, cfg)
	if err != nil {
		return nil, err
	}

	inputFile, err := os.CreateTemp("", "exprc-qbe-*.ssa")
	if err != nil {
		return nil, err
	}
	defer os.Remove(inputFile.Name())
	if _, err = inputFile.WriteString(qbeIR); err != nil {
		inputFile.Close()
		return nil, err
	}
	inputFile.Close()

	var asmBuf, stderr bytes.Buffer
	cmd := exec.Command(qbePath, "-t", cfg.BackendTarget, inputFile.Name())
	cmd.Stdout = &asmBuf
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("QBE compilation failed: %w\n%s\nGenerated IR:\n%s", err, stderr.String(), qbeIR)
	}
	return &asmBuf, nil
}
