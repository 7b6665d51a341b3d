package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLIClass is a JSON-friendly class representation.
type CLIClass struct {
	QualifiedName string   `json:"qualified_name"`
	Name          string   `json:"name"`
	Kind          string   `json:"kind"`
	Modifiers     []string `json:"modifiers,omitempty"`
	File          string   `json:"file,omitempty"`
	StartLine     int      `json:"start_line"`
	EndLine       int      `json:"end_line"`
	External      bool     `json:"external,omitempty"`
	DisplayName   string   `json:"display_name"`
}

// CLIMethod is a JSON-friendly method representation.
type CLIMethod struct {
	Name        string `json:"name"`
	Class       string `json:"class"`
	Descriptor  string `json:"descriptor"`
	StartLine   int    `json:"start_line"`
	EndLine     int    `json:"end_line"`
	DisplayName string `json:"display_name"`
}

// CLILine is the line surrounding a cursor. Line is 1-based.
type CLILine struct {
	Line        int    `json:"line"`
	DisplayName string `json:"display_name"`
}

// CLISetting is one settings key and its value.
type CLISetting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// CLIModels is the model selector state.
type CLIModels struct {
	Models  []string `json:"models"`
	Enabled bool     `json:"enabled"`
}
