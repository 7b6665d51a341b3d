// Package runtime embeds a Risor VM for user-supplied scripts that decide
// which classes are testable.
package runtime

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"
	"github.com/rs/zerolog"
)

// Runtime evaluates Risor scripts with class facts exposed as globals.
type Runtime struct {
	scriptsDir string
	logger     zerolog.Logger
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeLogger routes the scripts' log.info/warn/error calls to logger.
func WithRuntimeLogger(logger zerolog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// NewRuntime creates a Runtime that loads scripts and their imports from
// scriptsDir. scriptsDir may be empty when scripts are given inline.
func NewRuntime(scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		scriptsDir: scriptsDir,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Eval executes Risor source with the standard globals plus extraGlobals
// and returns the value of the last expression.
func (r *Runtime) Eval(ctx context.Context, source, label string, extraGlobals map[string]any) (object.Object, error) {
	globals := r.buildGlobals(extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Wire importer so Risor import statements resolve correctly.
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	result, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return nil, fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return result, nil
}

// buildImporter returns a Risor importer reading from scriptsDir, or nil
// when no directory is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code. Relative
// paths are taken from scriptsDir.
func (r *Runtime) LoadScript(path string) (string, error) {
	fullPath := path
	if !filepath.IsAbs(path) && r.scriptsDir != "" {
		fullPath = filepath.Join(r.scriptsDir, path)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// ScriptSource interprets a script setting: "@path" names a file to load,
// anything else is the script itself.
func (r *Runtime) ScriptSource(spec string) (source, label string, err error) {
	if path, ok := strings.CutPrefix(spec, "@"); ok {
		src, err := r.LoadScript(path)
		if err != nil {
			return "", "", err
		}
		return src, path, nil
	}
	return spec, "<inline>", nil
}

func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	globals := map[string]any{
		"log": mustProxy(&logObject{logger: r.logger}),
	}
	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}

// logObject provides log.info/warn/error methods for Risor scripts.
type logObject struct {
	logger zerolog.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info().Str("source", "script").Msg(msg)
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn().Str("source", "script").Msg(msg)
}

func (l *logObject) Error(msg string) {
	l.logger.Error().Str("source", "script").Msg(msg)
}
