package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// formatClassesText formats CLIClass results as aligned columns.
func formatClassesText(w io.Writer, classes []CLIClass) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CLASS\tKIND\tFILE\tLINES")
	for _, c := range classes {
		kind := c.Kind
		if c.External {
			kind += " (external)"
		}
		lines := "-"
		if !c.External {
			lines = fmt.Sprintf("%d-%d", c.StartLine, c.EndLine)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.QualifiedName, kind, c.File, lines)
	}
	tw.Flush()
}

// formatMethodText formats a CLIMethod as aligned columns.
func formatMethodText(w io.Writer, m CLIMethod) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CLASS\tDESCRIPTOR\tLINES")
	fmt.Fprintf(tw, "%s\t%s\t%d-%d\n", m.Class, m.Descriptor, m.StartLine, m.EndLine)
	tw.Flush()
}

// formatSettingsText formats settings as "key = value" lines. Multi-line
// values are shown with escaped newlines.
func formatSettingsText(w io.Writer, entries []CLISetting) {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t= %s\n", e.Key, strings.ReplaceAll(e.Value, "\n", `\n`))
	}
	tw.Flush()
}

// formatModelsText lists models one per line, marking a disabled selector.
func formatModelsText(w io.Writer, m CLIModels) {
	if len(m.Models) == 0 {
		fmt.Fprintln(w, "(no models available)")
		return
	}
	for _, name := range m.Models {
		fmt.Fprintln(w, name)
	}
	if !m.Enabled {
		fmt.Fprintln(w, "(selection disabled)")
	}
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(result CLIResult) error {
	w := stdout

	switch v := result.Results.(type) {
	case []CLIClass:
		formatClassesText(w, v)
	case CLIClass:
		formatClassesText(w, []CLIClass{v})
	case CLIMethod:
		formatMethodText(w, v)
	case CLILine:
		fmt.Fprintf(w, "%d\n", v.Line)
	case []string:
		for _, s := range v {
			fmt.Fprintln(w, s)
		}
	case string:
		fmt.Fprintln(w, v)
	case []CLISetting:
		formatSettingsText(w, v)
	case CLIModels:
		formatModelsText(w, v)
	case nil:
		// No output for nil results (e.g., no class at the cursor).
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
