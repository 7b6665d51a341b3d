package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jward/testscope"
	"github.com/jward/testscope/internal/codemodel"
)

var (
	flagTestable   string
	flagScriptsDir string
	flagReduce     int
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the test-scope index",
	Long:  "Run analyses at a cursor in an indexed Java file. Offsets are 0-based byte offsets; reported lines are 1-based.",
}

func init() {
	queryCmd.PersistentFlags().StringVar(&flagTestable, "testable", "", "Risor predicate deciding testable classes, inline or @path (overrides testable_script)")
	queryCmd.PersistentFlags().StringVar(&flagScriptsDir, "scripts-dir", "", "directory @path scripts are loaded from")

	interestingCmd.Flags().IntVar(&flagReduce, "reduce", 0, "subtract from the configured params depth")
	interestingCmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if flagReduce < 0 {
			return outputError("interesting", fmt.Errorf("invalid reduce %d: must be non-negative", flagReduce))
		}
		return nil
	}

	queryCmd.AddCommand(classCmd)
	queryCmd.AddCommand(methodCmd)
	queryCmd.AddCommand(lineCmd)
	queryCmd.AddCommand(codeTypesCmd)
	queryCmd.AddCommand(descriptorCmd)
	queryCmd.AddCommand(classesToTestCmd)
	queryCmd.AddCommand(interestingCmd)
	queryCmd.AddCommand(methodInterestingCmd)
}

// --- Helpers ---

// openAnalyzer opens the index from the --db flag path (or default) and
// returns an Analyzer over a snapshot of it.
func openAnalyzer(ctx context.Context) (*testscope.Analyzer, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'testscope index' first)", dbPath)
	}

	s, _, err := loadSettings()
	if err != nil {
		return nil, err
	}

	engine, err := testscope.New(dbPath,
		testscope.WithLogger(logger),
		testscope.WithTestableScript(flagTestable),
		testscope.WithScriptsDir(flagScriptsDir),
	)
	if err != nil {
		return nil, fmt.Errorf("opening engine: %w", err)
	}
	defer engine.Close()

	if engine.NeedsResolve() {
		return nil, fmt.Errorf("index is not resolved: %s (run 'testscope index' again)", dbPath)
	}
	return engine.Analyzer(ctx, s)
}

// resolveFilePath converts a file argument to an absolute path.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

// parseIntArg parses a positional argument as an integer with a clear error.
func parseIntArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be non-negative", name, value)
	}
	return n, nil
}

// cursor is a parsed <file> <offset> pair with the Analyzer to run on it.
type cursor struct {
	a      *testscope.Analyzer
	file   string
	offset int
}

func parseCursor(cmd *cobra.Command, args []string) (*cursor, error) {
	file, err := resolveFilePath(args[0])
	if err != nil {
		return nil, err
	}
	offset, err := parseIntArg(args[1], "offset")
	if err != nil {
		return nil, err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openAnalyzer(ctx)
	if err != nil {
		return nil, err
	}
	return &cursor{a: a, file: file, offset: offset}, nil
}

// cursorCommand builds a query subcommand taking <file> <offset>. run
// returns the value placed in the envelope's results.
func cursorCommand(name, short string, run func(cur *cursor) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <file> <offset>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cur, err := parseCursor(cmd, args)
			if err != nil {
				return outputError(name, err)
			}
			results, err := run(cur)
			if err != nil {
				return outputError(name, err)
			}
			return outputResult(CLIResult{
				Command:    name,
				Results:    results,
				TotalCount: countOf(results),
			})
		},
	}
}

// countOf returns the total count for list results, or nil.
func countOf(v any) *int {
	var n int
	switch r := v.(type) {
	case []CLIClass:
		n = len(r)
	case []string:
		n = len(r)
	default:
		return nil
	}
	return &n
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

func classToCLI(c *codemodel.Class) CLIClass {
	return CLIClass{
		QualifiedName: c.QualifiedName,
		Name:          c.Name,
		Kind:          c.Kind,
		Modifiers:     c.Modifiers,
		File:          c.File,
		StartLine:     c.Span.StartLine,
		EndLine:       c.Span.EndLine,
		External:      c.External,
		DisplayName:   testscope.ClassDisplayName(c),
	}
}

func classesToCLI(classes []*codemodel.Class) []CLIClass {
	out := make([]CLIClass, 0, len(classes))
	for _, c := range classes {
		out = append(out, classToCLI(c))
	}
	return out
}

func methodToCLI(a *testscope.Analyzer, m *codemodel.Method) CLIMethod {
	var class string
	if c := a.Model().Class(m.Class); c != nil {
		class = c.QualifiedName
	}
	return CLIMethod{
		Name:        m.Name,
		Class:       class,
		Descriptor:  a.MethodDescriptor(m),
		StartLine:   m.Span.StartLine,
		EndLine:     m.Span.EndLine,
		DisplayName: testscope.MethodDisplayName(m),
	}
}

// --- Cursor Commands ---

var classCmd = cursorCommand("class", "Find the testable class surrounding an offset",
	func(cur *cursor) (any, error) {
		c, err := cur.a.SurroundingClass(cur.file, cur.offset)
		if err != nil || c == nil {
			return nil, err
		}
		return classToCLI(c), nil
	})

var methodCmd = cursorCommand("method", "Find the method surrounding an offset",
	func(cur *cursor) (any, error) {
		m, err := cur.a.SurroundingMethod(cur.file, cur.offset)
		if err != nil || m == nil {
			return nil, err
		}
		return methodToCLI(cur.a, m), nil
	})

var lineCmd = cursorCommand("line", "Find the non-blank line containing an offset",
	func(cur *cursor) (any, error) {
		line, ok, err := cur.a.SurroundingLine(cur.file, cur.offset)
		if err != nil || !ok {
			return nil, err
		}
		return CLILine{Line: line, DisplayName: testscope.LineDisplayName(line)}, nil
	})

var codeTypesCmd = cursorCommand("code-types", "List what a test can be generated for at an offset",
	func(cur *cursor) (any, error) {
		return cur.a.CodeTypesAt(cur.file, cur.offset)
	})

var descriptorCmd = cursorCommand("descriptor", "Print the JVM descriptor of the method surrounding an offset",
	func(cur *cursor) (any, error) {
		m, err := cur.a.SurroundingMethod(cur.file, cur.offset)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, fmt.Errorf("no method at %s:%d", cur.file, cur.offset)
		}
		return cur.a.MethodDescriptor(m), nil
	})

var classesToTestCmd = cursorCommand("classes-to-test", "List the class at an offset and its superclasses",
	func(cur *cursor) (any, error) {
		classes, err := cur.a.ClassesToTest(cur.file, cur.offset)
		if err != nil {
			return nil, err
		}
		return classesToCLI(classes), nil
	})

var interestingCmd = cursorCommand("interesting", "List classes reachable through parameters from the classes to test",
	func(cur *cursor) (any, error) {
		classes, err := cur.a.ClassesToTest(cur.file, cur.offset)
		if err != nil {
			return nil, err
		}
		return classesToCLI(cur.a.InterestingClasses(classes, flagReduce).Sorted()), nil
	})

var methodInterestingCmd = cursorCommand("method-interesting", "List the classes a test of the method at an offset depends on",
	func(cur *cursor) (any, error) {
		c, err := cur.a.SurroundingClass(cur.file, cur.offset)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, testscope.ErrNoClass
		}
		m, err := cur.a.SurroundingMethod(cur.file, cur.offset)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, fmt.Errorf("no method at %s:%d", cur.file, cur.offset)
		}
		return classesToCLI(cur.a.InterestingClassesForMethod(c, m).Sorted()), nil
	})
