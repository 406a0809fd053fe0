package util

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xplshn/exprc/pkg/config"
)

func TestReportError(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter("exprc", "1 $ 2", config.NewConfig(), &out)
	r.Error(Errorf(2, 1, "invalid token"))

	want := "exprc:1:3: error: invalid token\n" +
		"  1 $ 2\n" +
		"    ^\n"
	assert.Equal(t, want, out.String())
	assert.Zero(t, r.Warnings())
}

func TestReportSpan(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter("exprc", "1 == == 2", config.NewConfig(), &out)
	r.Error(Errorf(5, 2, "expected a number"))
	assert.Contains(t, out.String(), "\n       ^~\n")
}

func TestReportNormalizesWhitespace(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter("exprc", "1\t+\n$", config.NewConfig(), &out)
	r.Error(Errorf(4, 1, "invalid token"))
	assert.Equal(t, "exprc:1:5: error: invalid token\n  1 + $\n      ^\n", out.String())
}

func TestReportAtEnd(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter("exprc", "1+", config.NewConfig(), &out)
	r.Error(Errorf(2, 1, "expected a number"))
	assert.Equal(t, "exprc:1:3: error: expected a number\n  1+\n    ^\n", out.String())
}

func TestErrorWithoutPosition(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter("exprc", "1", config.NewConfig(), &out)
	r.Error(errors.New("code generation failed"))
	assert.Equal(t, "exprc: error: code generation failed\n", out.String())
}

func TestWrappedDiagnostic(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter("exprc", "(1", config.NewConfig(), &out)
	r.Error(fmt.Errorf("parse: %w", Errorf(2, 1, "expected ')'")))
	assert.Contains(t, out.String(), "exprc:1:3: error: expected ')'\n")
}

func TestWarn(t *testing.T) {
	cfg := config.NewConfig()
	var out bytes.Buffer
	r := NewReporter("exprc", "7 / 0", cfg, &out)

	r.Warn(config.WarnDivZero, 2, 1, "division by zero")
	assert.Equal(t, "exprc:1:3: warning: division by zero [-Wdiv-zero]\n  7 / 0\n    ^\n", out.String())
	assert.Equal(t, 1, r.Warnings())

	out.Reset()
	cfg.SetWarning(config.WarnDivZero, false)
	r.Warn(config.WarnDivZero, 2, 1, "division by zero")
	assert.Empty(t, out.String())
	assert.Equal(t, 1, r.Warnings())
}

func TestNilReporterWarn(t *testing.T) {
	var r *Reporter
	require.NotPanics(t, func() { r.Warn(config.WarnExtra, 0, 1, "ignored") })
}

func TestDiagnosticError(t *testing.T) {
	assert.Equal(t, "3: invalid token", Errorf(2, 1, "invalid token").Error())
	d := &Diagnostic{Pos: NoPos, Msg: "no position"}
	assert.Equal(t, "no position", d.Error())
}
