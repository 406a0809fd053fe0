package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFlagSet() (*FlagSet, *string, *bool) {
	fs := NewFlagSet("test")
	var out string
	var verbose bool
	fs.String(&out, "output", "o", "-", "Output file.", "file")
	fs.Bool(&verbose, "verbose", "v", false, "Verbose.")
	return fs, &out, &verbose
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		out     string
		verbose bool
		rest    []string
	}{
		{"no flags", []string{"1+2"}, "-", false, []string{"1+2"}},
		{"long with separate value", []string{"--output", "a.s", "1"}, "a.s", false, []string{"1"}},
		{"long with equals", []string{"--output=a.s", "1"}, "a.s", false, []string{"1"}},
		{"short attached", []string{"-oa.s", "1"}, "a.s", false, []string{"1"}},
		{"short separate", []string{"-o", "a.s", "-v", "1"}, "a.s", true, []string{"1"}},
		{"single dash long name", []string{"-verbose", "1"}, "-", true, []string{"1"}},
		{"negative expression", []string{"-5+3"}, "-", false, []string{"-5+3"}},
		{"parenthesised negation", []string{"-(1)", "-v"}, "-", true, []string{"-(1)"}},
		{"lone dash", []string{"-"}, "-", false, []string{"-"}},
		{"double dash", []string{"-v", "--", "-o", "x"}, "-", true, []string{"-o", "x"}},
		{"empty operand", []string{""}, "-", false, []string{""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, out, verbose := newTestFlagSet()
			require.NoError(t, fs.Parse(tt.args))
			assert.Equal(t, tt.out, *out)
			assert.Equal(t, tt.verbose, *verbose)
			assert.Equal(t, tt.rest, fs.Args())
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"--bogus"}, "unknown flag: --bogus"},
		{[]string{"-x"}, "unknown flag: -x"},
		{[]string{"-o"}, "flag needs an argument: -o"},
		{[]string{"--output"}, "flag needs an argument: --output"},
		{[]string{"--verbose=maybe"}, "invalid boolean value"},
		{[]string{"-vx"}, "unknown flag: -vx"},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			fs, _, _ := newTestFlagSet()
			assert.ErrorContains(t, fs.Parse(tt.args), tt.want)
		})
	}
}

func TestChanged(t *testing.T) {
	fs, _, _ := newTestFlagSet()
	require.NoError(t, fs.Parse([]string{"-v", "1"}))
	assert.True(t, fs.Changed("verbose"))
	assert.False(t, fs.Changed("output"))
	assert.False(t, fs.Changed("missing"))
}

func TestFlagGroup(t *testing.T) {
	fs := NewFlagSet("test")
	enabled, disabled := true, false
	fs.AddFlagGroup("Warning Flags", "Toggle warnings.", "warning", "Available Warnings:", []FlagGroupEntry{
		{Name: "overflow", Prefix: "W", Usage: "Overflow.", Enabled: &enabled, Disabled: &disabled},
	})
	require.NoError(t, fs.Parse([]string{"-Wno-overflow"}))
	assert.True(t, disabled)
	assert.True(t, fs.Changed("Wno-overflow"))
	assert.False(t, fs.Changed("Woverflow"))
}

func TestRedefinitionPanics(t *testing.T) {
	fs, _, _ := newTestFlagSet()
	var s string
	assert.Panics(t, func() { fs.String(&s, "output", "", "", "", "") })
	assert.Panics(t, func() { fs.String(&s, "other", "o", "", "", "") })
}

func TestAppRun(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := NewApp("exprc")
	app.Synopsis = "[options] <expression>"
	app.Description = "Compiles one expression."
	app.Stdout, app.Stderr = &stdout, &stderr
	var verbose bool
	app.FlagSet.Bool(&verbose, "verbose", "v", false, "Log each stage.")
	enabled, disabled := false, false
	app.FlagSet.AddFlagGroup("Feature Flags", "Toggle features.", "feature", "Available Features:", []FlagGroupEntry{
		{Name: "fold", Prefix: "F", Usage: "Fold constants.", Enabled: &enabled, Disabled: &disabled},
	})

	var got []string
	app.Action = func(args []string) error {
		got = args
		return nil
	}

	require.NoError(t, app.Run([]string{"-v", "-5+3"}))
	assert.True(t, verbose)
	assert.Equal(t, []string{"-5+3"}, got)
	assert.Empty(t, stdout.String())
	assert.Empty(t, stderr.String())
}

func TestAppHelp(t *testing.T) {
	var stdout bytes.Buffer
	app := NewApp("exprc")
	app.Synopsis = "[options] <expression>"
	app.Description = "Compiles one expression."
	app.Stdout = &stdout
	var out string
	app.FlagSet.String(&out, "output", "o", "-", "Place the output into <file>.", "file")
	enabled, disabled := false, false
	app.FlagSet.AddFlagGroup("Feature Flags", "Toggle features.", "feature", "Available Features:", []FlagGroupEntry{
		{Name: "fold", Prefix: "F", Usage: "Fold constants.", Enabled: &enabled, Disabled: &disabled},
	})
	called := false
	app.Action = func([]string) error { called = true; return nil }

	require.NoError(t, app.Run([]string{"--help"}))
	assert.False(t, called)

	help := stdout.String()
	assert.Contains(t, help, "Synopsis\n        exprc [options] <expression>")
	assert.Contains(t, help, "-o, --output <file>")
	assert.Contains(t, help, "|-|")
	assert.Contains(t, help, "-F<feature>")
	assert.Contains(t, help, "-Fno-<feature>")
	assert.NotContains(t, help, "--Ffold", "group flags are listed in their group")
}

func TestAppParseErrorPrintsUsage(t *testing.T) {
	var stderr bytes.Buffer
	app := NewApp("exprc")
	app.Synopsis = "<expression>"
	app.Stderr = &stderr
	app.Action = func([]string) error { return nil }

	assert.Error(t, app.Run([]string{"--nope"}))
	assert.Contains(t, stderr.String(), "exprc: unknown flag: --nope")
	assert.Contains(t, stderr.String(), "Usage: exprc <expression>")
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, []string{"one two", "three"}, wrapText("one two three", 8))
	assert.Equal(t, []string{"averyverylongword"}, wrapText("averyverylongword", 5))
	assert.Empty(t, wrapText("   ", 10))
}
