package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/xplshn/exprc/pkg/ast"
	"github.com/xplshn/exprc/pkg/cli"
	"github.com/xplshn/exprc/pkg/codegen"
	"github.com/xplshn/exprc/pkg/config"
	"github.com/xplshn/exprc/pkg/lexer"
	"github.com/xplshn/exprc/pkg/parser"
	"github.com/xplshn/exprc/pkg/util"
)

type outputMode int

const (
	emitAsm outputMode = iota
	emitAST
	emitIR
)

var errReported = errors.New("error already reported")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	app := cli.NewApp("exprc")
	app.Synopsis = "[options] <expression>"
	app.Description = "Compiles one integer arithmetic expression into x86-64 assembly whose main returns the value of the expression."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/exprc>"
	app.Stdout, app.Stderr = stdout, stderr

	var (
		outFile string
		target  string
		dumpAST bool
		dumpIR  bool
		verbose bool
		wall    bool
		werror  bool
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "-", "Place the output into <file> ('-' is standard output).", "file")
	fs.String(&target, "target", "t", config.BackendStack, "Set the backend and target ABI (amd64, qbe, qbe/<abi>).", "backend/target")
	fs.Bool(&dumpAST, "dump-ast", "a", false, "Print the syntax tree and exit.")
	fs.Bool(&dumpIR, "dump-ir", "d", false, "Print the QBE intermediate representation and exit.")
	fs.Bool(&verbose, "verbose", "v", false, "Log each compilation stage to standard error.")
	fs.Bool(&wall, "Wall", "", false, "Enable all warnings.")
	fs.Bool(&werror, "Werror", "", false, "Treat warnings as errors.")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(operands []string) error {
		// -Wall first so that individual -Wno-<warning> flags can override it.
		if wall {
			if err := cfg.ApplyFlag("-Wall"); err != nil {
				return err
			}
		}
		cfg.ApplyFlagGroups(fs, warningFlags, featureFlags)
		cfg.WarningsAsErrors = werror

		if len(operands) != 1 {
			fmt.Fprintf(stderr, "%s: error: invalid number of arguments: expected 1 expression, got %d\n", app.Name, len(operands))
			return errReported
		}
		if err := cfg.SetTarget(runtime.GOOS, runtime.GOARCH, target); err != nil {
			fmt.Fprintf(stderr, "%s: error: %v\n", app.Name, err)
			return errReported
		}

		mode := emitAsm
		switch {
		case dumpAST:
			mode = emitAST
		case dumpIR:
			mode = emitIR
		}

		src := operands[0]
		logger := newLogger(stderr, verbose)
		diag := util.NewReporter(app.Name, src, cfg, stderr)

		output, err := compile(src, cfg, diag, logger, mode)
		if err != nil {
			diag.Error(err)
			return errReported
		}
		if cfg.WarningsAsErrors && diag.Warnings() > 0 {
			fmt.Fprintf(stderr, "%s: error: %d warning(s) treated as errors\n", app.Name, diag.Warnings())
			return errReported
		}

		if err := writeOutput(outFile, output, stdout); err != nil {
			fmt.Fprintf(stderr, "%s: error: %v\n", app.Name, err)
			return errReported
		}
		logger.Info("done", "output", outFile, "bytes", len(output))
		return nil
	}

	if err := app.Run(args); err != nil {
		return 1
	}
	return 0
}

// compile runs the whole pipeline and returns the requested output. Nothing
// is written anywhere until every stage has succeeded.
func compile(src string, cfg *config.Config, diag *util.Reporter, logger *slog.Logger, mode outputMode) ([]byte, error) {
	toks, err := lexer.NewLexer(src, cfg, diag).Tokenize()
	if err != nil {
		return nil, err
	}
	logger.Info("tokenized input", "tokens", len(toks))

	root, err := parser.NewParser(toks, cfg, diag).Parse()
	if err != nil {
		return nil, err
	}
	logger.Info("parsed expression", "root", root.Kind.String())

	if cfg.IsFeatureEnabled(config.FeatFold) {
		root = ast.FoldConstants(root, diag)
		logger.Info("folded constants", "tree", root.String())
	}

	if mode == emitAST {
		return []byte(root.String() + "\n"), nil
	}

	backend, err := codegen.NewBackend(cfg)
	if err != nil {
		return nil, err
	}

	if mode == emitIR {
		dumper, ok := backend.(codegen.IRDumper)
		if !ok {
			return nil, fmt.Errorf("backend '%s' has no intermediate representation (use -t qbe)", cfg.BackendName)
		}
		text, err := dumper.GenerateIR(root, cfg)
		if err != nil {
			return nil, err
		}
		return []byte(text), nil
	}

	logger.Info("generating code", "backend", cfg.BackendName, "target", cfg.BackendTarget)
	buf, err := backend.Generate(root, cfg)
	if err != nil {
		return nil, fmt.Errorf("code generation failed: %w", err)
	}
	return buf.Bytes(), nil
}

func writeOutput(path string, data []byte, stdout io.Writer) error {
	if path == "-" || path == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("could not write '%s': %w", path, err)
	}
	return nil
}

// newLogger returns a text logger on w. Stage progress is logged at info
// level, which is only shown with -v.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}
