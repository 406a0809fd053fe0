// exprtest compiles every expression of a YAML suite with exprc, links the
// assembly with the host C compiler and checks the exit status of the result.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/joho/godotenv"
)

type Execution struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
}

type CaseResult struct {
	Name     string     `json:"name"`
	Expr     string     `json:"expr"`
	Hash     string     `json:"hash"`
	Status   string     `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message  string     `json:"message,omitempty"`
	Diff     string     `json:"diff,omitempty"`
	Compile  *Execution `json:"compile,omitempty"`
	Assemble *Execution `json:"assemble,omitempty"`
	Run      *Execution `json:"run,omitempty"`
}

type SuiteResults map[string]*CaseResult

var (
	compiler     = flag.String("compiler", "./exprc", "Path to the exprc binary under test.")
	compilerArgs = flag.String("compiler-args", "", "Extra arguments for the compiler (space-separated).")
	suitePath    = flag.String("suite", "cmd/exprtest/testdata/cases.yaml", "YAML suite to run.")
	envFile      = flag.String("env", ".env", "Optional .env file read before the run (EXPRTEST_CC, EXPRTEST_CFLAGS).")
	outputJSON   = flag.String("output", ".exprtest_results.json", "Output file for the JSON test report.")
	timeout      = flag.Duration("timeout", 5*time.Second, "Timeout for each command execution.")
	jobs         = flag.Int("j", 4, "Number of parallel test jobs.")
	verbose      = flag.Bool("v", false, "Enable verbose logging.")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

// toolchain is the C compiler used to assemble and link generated code.
type toolchain struct {
	cc     string
	cflags []string
}

func main() {
	flag.Parse()
	log.SetFlags(0)

	if *jobs < 1 {
		*jobs = 1
	}

	if err := godotenv.Load(*envFile); err != nil && *verbose {
		log.Printf("%s[INFO]%s Skipping %s: %v\n", cCyan, cNone, *envFile, err)
	}
	tc := toolchainFromEnv()

	suite, err := LoadSuite(*suitePath)
	if err != nil {
		log.Fatalf("%s[ERROR]%s %v\n", cRed, cNone, err)
	}
	if _, err := exec.LookPath(tc.cc); err != nil {
		log.Fatalf("%s[ERROR]%s C compiler '%s' not found: %v\n", cRed, cNone, tc.cc, err)
	}

	tempDir, err := os.MkdirTemp("", "exprtest-*")
	if err != nil {
		log.Fatalf("%s[ERROR]%s Failed to create temp directory: %v\n", cRed, cNone, err)
	}
	defer os.RemoveAll(tempDir)
	setupInterruptHandler(tempDir)

	results := runSuite(suite, tc, tempDir)
	printSummary(suite, results)
	writeJSONReport(results)

	if hasFailures(results) {
		os.RemoveAll(tempDir)
		os.Exit(1)
	}
}

func toolchainFromEnv() toolchain {
	tc := toolchain{cc: os.Getenv("EXPRTEST_CC")}
	if tc.cc == "" {
		tc.cc = os.Getenv("CC")
	}
	if tc.cc == "" {
		tc.cc = "cc"
	}
	tc.cflags = strings.Fields(os.Getenv("EXPRTEST_CFLAGS"))
	return tc
}

// setupInterruptHandler is used to clean up on CTRL+C
func setupInterruptHandler(tempDir string) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		os.RemoveAll(tempDir)
		fmt.Printf("\n%s[INTERRUPT]%s Test run cancelled. Cleaning up...\n", cYellow, cNone)
		os.Exit(1)
	}()
}

// hashCase identifies a case by everything that influences the compiler
// output, so identical cases are only built once.
func hashCase(args []string, c Case) string {
	h := xxhash.New()
	for _, a := range args {
		h.WriteString(a)
		h.Write([]byte{0})
	}
	h.WriteString(c.Expr)
	if c.Error {
		h.WriteString("\x00error")
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

func runSuite(suite *Suite, tc toolchain, tempDir string) []*CaseResult {
	args := append(strings.Fields(*compilerArgs), suite.Args...)

	tasks := make(chan Case, len(suite.Cases))
	resultsChan := make(chan *CaseResult, len(suite.Cases))
	var wg sync.WaitGroup

	for i := 0; i < *jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range tasks {
				resultsChan <- testCase(c, args, tc, tempDir)
			}
		}()
	}

	// Feed the tasks channel, skipping cases that would build the same program
	seenHashes := make(map[string]string)
	for _, c := range suite.Cases {
		hash := hashCase(args, c)
		if original, seen := seenHashes[hash]; seen {
			resultsChan <- &CaseResult{Name: c.Name, Expr: c.Expr, Hash: hash, Status: "SKIP", Message: fmt.Sprintf("Identical to case %q", original)}
			continue
		}
		seenHashes[hash] = c.Name
		tasks <- c
	}
	close(tasks)

	wg.Wait()
	close(resultsChan)

	order := make(map[string]int, len(suite.Cases))
	for i, c := range suite.Cases {
		order[c.Name] = i
	}
	var all []*CaseResult
	for r := range resultsChan {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return order[all[i].Name] < order[all[j].Name] })
	return all
}

func testCase(c Case, args []string, tc toolchain, tempDir string) *CaseResult {
	hash := hashCase(args, c)
	res := &CaseResult{Name: c.Name, Expr: c.Expr, Hash: hash}
	asmPath := filepath.Join(tempDir, hash+".s")
	binPath := filepath.Join(tempDir, hash)

	// "--" keeps expressions such as "-5+3" from being read as options.
	compileArgs := append(append([]string{"-o", asmPath}, args...), "--", c.Expr)
	compile := runCommand(*compiler, compileArgs...)
	res.Compile = &compile
	if *verbose {
		log.Printf("[%s] %s %s -> exit %d\n", c.Name, *compiler, strings.Join(compileArgs, " "), compile.ExitCode)
	}

	if c.Error {
		return checkRejected(res, asmPath)
	}
	if compile.TimedOut || compile.ExitCode != 0 {
		res.Status = "FAIL"
		res.Message = "Compiler rejected a valid expression"
		res.Diff = fmt.Sprintf("Compiler STDERR:\n%s", compile.Stderr)
		return res
	}

	ccArgs := append(append([]string{}, tc.cflags...), "-o", binPath, asmPath)
	assemble := runCommand(tc.cc, ccArgs...)
	res.Assemble = &assemble
	if assemble.TimedOut || assemble.ExitCode != 0 {
		res.Status = "ERROR"
		res.Message = fmt.Sprintf("%s could not assemble the generated code", tc.cc)
		res.Diff = fmt.Sprintf("%s STDERR:\n%s", tc.cc, assemble.Stderr)
		return res
	}

	run := runCommand(binPath)
	res.Run = &run
	if run.TimedOut {
		res.Status = "FAIL"
		res.Message = "Program timed out"
		return res
	}

	want, got := c.ExitStatus(), run.ExitCode
	if want != got {
		res.Status = "FAIL"
		res.Message = fmt.Sprintf("Exit status mismatch (want %d = %d & 0xff)", want, *c.Want)
		res.Diff = cmp.Diff(strconv.Itoa(want), strconv.Itoa(got))
		return res
	}
	res.Status = "PASS"
	res.Message = fmt.Sprintf("Exit status %d", got)
	return res
}

// checkRejected passes when the compiler failed with a diagnostic and left no
// assembly behind.
func checkRejected(res *CaseResult, asmPath string) *CaseResult {
	compile := res.Compile
	switch {
	case compile.TimedOut:
		res.Status = "FAIL"
		res.Message = "Compiler timed out on an invalid expression"
	case compile.ExitCode == 0:
		res.Status = "FAIL"
		res.Message = "Compiler accepted an invalid expression"
	case compile.Stderr == "":
		res.Status = "FAIL"
		res.Message = "Compiler failed without a diagnostic"
	case fileExists(asmPath):
		res.Status = "FAIL"
		res.Message = "Compiler failed but still wrote output"
	case compile.Stdout != "":
		res.Status = "FAIL"
		res.Message = "Compiler failed but wrote to standard output"
		res.Diff = cmp.Diff("", compile.Stdout)
	default:
		res.Status = "PASS"
		res.Message = "Rejected: " + firstLine(compile.Stderr)
	}
	return res
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func runCommand(command string, args ...string) Execution {
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	return executeCommand(ctx, command, args...)
}

// executeCommand runs a command with a timeout and captures its output
func executeCommand(ctx context.Context, command string, args ...string) Execution {
	startTime := time.Now()
	cmd := exec.CommandContext(ctx, command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Execution{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(startTime),
	}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		result.TimedOut = true
		result.ExitCode = -1
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	case err != nil:
		result.ExitCode = -2
		result.Stderr += "\nExecution error: " + err.Error()
	}
	return result
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%6dµs", d.Microseconds())
	}
	return fmt.Sprintf("%6dms", d.Milliseconds())
}

func printSummary(suite *Suite, results []*CaseResult) {
	var passed, failed, skipped, errored int
	var totalCompile time.Duration
	var maxNameLen int
	for _, r := range results {
		maxNameLen = max(maxNameLen, len(r.Name))
	}

	fmt.Printf("Running suite %s%s%s (%d cases)\n", cCyan, suite.Name, cNone, len(suite.Cases))
	fmt.Println("----------------------------------------------------------------------")
	for _, r := range results {
		if r.Compile != nil {
			totalCompile += r.Compile.Duration
		}
		switch r.Status {
		case "PASS":
			passed++
			if *verbose {
				fmt.Printf("  [%sPASS%s] %-*s %s [%s]\n", cGreen, cNone, maxNameLen, r.Name, r.Message, formatDuration(r.Compile.Duration))
			}
		case "FAIL":
			failed++
			fmt.Printf("  [%sFAIL%s] %-*s %s\n", cRed, cNone, maxNameLen, r.Name, r.Message)
			fmt.Print(formatDiff(r.Diff))
		case "SKIP":
			skipped++
			fmt.Printf("  [%sSKIP%s] %-*s %s\n", cYellow, cNone, maxNameLen, r.Name, r.Message)
		case "ERROR":
			errored++
			fmt.Printf("  [%sERROR%s] %-*s %s\n", cRed, cNone, maxNameLen, r.Name, r.Message)
			fmt.Print(formatDiff(r.Diff))
		}
	}

	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Total\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results))
	if compiled := len(results) - skipped; compiled > 0 {
		fmt.Printf("Average compile time: %s\n", strings.TrimSpace(formatDuration(totalCompile/time.Duration(compiled))))
	}
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var builder strings.Builder
	builder.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "-") {
			builder.WriteString(cRed)
		} else if strings.HasPrefix(trimmed, "+") {
			builder.WriteString(cGreen)
		}
		builder.WriteString("    " + line)
		builder.WriteString(cNone)
		builder.WriteString("\n")
	}
	return builder.String()
}

func writeJSONReport(results []*CaseResult) SuiteResults {
	resultsMap := make(SuiteResults, len(results))
	for _, r := range results {
		resultsMap[r.Name] = r
	}

	jsonData, err := json.MarshalIndent(resultsMap, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v\n", cRed, cNone, err)
		return resultsMap
	}
	if err := os.WriteFile(*outputJSON, jsonData, 0644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, *outputJSON, err)
	} else {
		fmt.Printf("Full test report saved to %s\n", *outputJSON)
	}
	return resultsMap
}

func hasFailures(results []*CaseResult) bool {
	for _, r := range results {
		if r.Status == "FAIL" || r.Status == "ERROR" {
			return true
		}
	}
	return false
}
