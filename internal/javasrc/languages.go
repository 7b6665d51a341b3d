package javasrc

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

// Language is the canonical language name stored for indexed files.
const Language = "java"

// extToLanguage maps file extensions to canonical language names.
var extToLanguage = map[string]string{
	".java": Language,
}

var (
	grammar     *sitter.Language
	grammarOnce sync.Once
)

func javaGrammar() *sitter.Language {
	grammarOnce.Do(func() {
		grammar = java.GetLanguage()
	})
	return grammar
}

// LanguageForFile returns the canonical language name for a file path based
// on its extension. Returns ("", false) if the extension is not recognized.
func LanguageForFile(path string) (string, bool) {
	lang, ok := extToLanguage[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// Parse parses Java source into a syntax tree. Callers must Close the tree.
// Parsers are not goroutine-safe, so each call uses its own.
func Parse(ctx context.Context, src []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(javaGrammar())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse java: %w", err)
	}
	return tree, nil
}
