package testscope

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jward/testscope/internal/codemodel"
	"github.com/jward/testscope/internal/javasrc"
	"github.com/jward/testscope/internal/runtime"
	"github.com/jward/testscope/internal/store"
)

// Metadata keys.
const (
	metaResolvedAt = "resolved_at"
)

// Engine orchestrates the testscope pipeline: file discovery, change
// detection, extraction, type-name resolution, and analysis access.
type Engine struct {
	store   *store.Store
	runtime *runtime.Runtime
	logger  zerolog.Logger

	scriptsDir     string
	testableScript string

	// dirty is set when indexing changed anything resolution depends on:
	// a class signature, a file's imports or package, or the file set.
	dirty bool

	// useParallel enables the parallel extraction pipeline.
	useParallel bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithParallel controls parallel extraction. When true (default), IndexFiles
// parses files on a bounded errgroup and commits them serially. Set to false
// for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithLogger sets the logger used by the Engine and its analyzers.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTestableScript sets a Risor predicate that decides which classes are
// testable, given inline or as "@path". It takes precedence over the
// testable_script setting.
func WithTestableScript(spec string) Option {
	return func(e *Engine) {
		e.testableScript = spec
	}
}

// WithScriptsDir sets the directory "@path" scripts and their imports are
// read from.
func WithScriptsDir(dir string) Option {
	return func(e *Engine) {
		e.scriptsDir = dir
	}
}

// New creates an Engine backed by a SQLite database at dbPath.
func New(dbPath string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("testscope: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("testscope: migrate: %w", err)
	}

	e := &Engine{
		store:       s,
		logger:      zerolog.Nop(),
		useParallel: true,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.runtime = runtime.NewRuntime(e.scriptsDir, runtime.WithRuntimeLogger(e.logger))

	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// NeedsResolve reports whether Resolve has work to do: something changed
// since the last resolution, or the database was never resolved.
func (e *Engine) NeedsResolve() bool {
	if e.dirty {
		return true
	}
	stored, err := e.store.GetMetadata(metaResolvedAt)
	return err != nil || stored == ""
}

// fileState is what resolution depends on in one file.
type fileState struct {
	pkg     string
	imports []string
	classes map[string]string // qualified name -> signature hash
}

func (a fileState) equal(b fileState) bool {
	if a.pkg != b.pkg || len(a.imports) != len(b.imports) || len(a.classes) != len(b.classes) {
		return false
	}
	for i := range a.imports {
		if a.imports[i] != b.imports[i] {
			return false
		}
	}
	for name, h := range a.classes {
		if b.classes[name] != h {
			return false
		}
	}
	return true
}

func importKey(path string, static, wildcard bool) string {
	var b strings.Builder
	if static {
		b.WriteString("static ")
	}
	b.WriteString(path)
	if wildcard {
		b.WriteString(".*")
	}
	return b.String()
}

// captureState reads the stored fileState of an indexed file.
func (e *Engine) captureState(f *store.File) (fileState, error) {
	st := fileState{pkg: f.Package, classes: make(map[string]string)}
	imps, err := e.store.ImportsByFile(f.ID)
	if err != nil {
		return st, err
	}
	for _, imp := range imps {
		st.imports = append(st.imports, importKey(imp.Path, imp.Static, imp.Wildcard))
	}
	sort.Strings(st.imports)
	classes, err := e.store.ClassesByFile(f.ID)
	if err != nil {
		return st, err
	}
	for _, c := range classes {
		st.classes[c.QualifiedName] = c.SignatureHash
	}
	return st, nil
}

// factsState computes the fileState freshly extracted facts would store.
func factsState(facts *javasrc.FileFacts) fileState {
	st := fileState{pkg: facts.Package, classes: make(map[string]string, len(facts.Classes))}
	for _, imp := range facts.Imports {
		st.imports = append(st.imports, importKey(imp.Path, imp.Static, imp.Wildcard))
	}
	sort.Strings(st.imports)
	for i := range facts.Classes {
		c := &facts.Classes[i]
		st.classes[c.QualifiedName] = store.ComputeSignatureHash(c)
	}
	return st
}

// IndexFiles indexes the given file paths. When WithParallel is enabled,
// parsing and extraction run concurrently and commits stay serial.
// Otherwise falls back to the serial path.
//
// For each file:
// 1. Skip files that are not Java sources
// 2. Skip unchanged files (same content hash)
// 3. Extract classes, methods, parameters and imports
// 4. Replace the file's stored facts in one transaction
// 5. Mark the index dirty if anything resolution depends on changed
//
// Errors on individual files are collected; processing continues.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) error {
	if e.useParallel {
		return e.IndexFilesParallel(ctx, paths)
	}
	return e.indexFilesSerial(ctx, paths)
}

func (e *Engine) indexFilesSerial(ctx context.Context, paths []string) error {
	var errs []error
	for _, path := range paths {
		item, skip, err := e.prepareFile(ctx, path)
		if err != nil {
			errs = append(errs, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if skip {
			continue
		}
		if err := e.extractFile(ctx, item); err != nil {
			errs = append(errs, fmt.Errorf("extract %s: %w", path, err))
			continue
		}
		if err := e.commitFile(item); err != nil {
			errs = append(errs, fmt.Errorf("commit %s: %w", path, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// commitFile replaces a file's stored facts with item's and updates the
// dirty flag.
func (e *Engine) commitFile(item *workItem) error {
	_, err := e.store.ReplaceFile(&store.File{
		Path:        item.path,
		Language:    javasrc.Language,
		Package:     item.facts.Package,
		Hash:        item.hash,
		LineCount:   item.facts.LineCount,
		LastIndexed: time.Now(),
	}, item.facts)
	if err != nil {
		return err
	}

	changed := item.existing == nil || !item.oldState.equal(factsState(item.facts))
	if changed {
		e.dirty = true
	}
	e.logger.Debug().
		Str("file", item.path).
		Int("classes", len(item.facts.Classes)).
		Bool("signatures_changed", changed).
		Msg("indexed")
	return nil
}

// skipDirs lists directories excluded from the filesystem walk.
var skipDirs = map[string]bool{
	"build":        true,
	"target":       true,
	"out":          true,
	"node_modules": true,
}

// IndexDirectory walks root and indexes all Java files. If root is inside a
// git repository, uses git ls-files to respect .gitignore. Falls back to a
// filesystem walk (skipping hidden dirs and build output) if git is
// unavailable. Indexed files under root that no longer exist are removed.
func (e *Engine) IndexDirectory(ctx context.Context, root string) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}
	paths, err := e.gitListFiles(root)
	if err != nil {
		paths, err = e.walkListFiles(root)
		if err != nil {
			return err
		}
	}
	if err := e.pruneMissing(root); err != nil {
		return err
	}
	return e.IndexFiles(ctx, paths)
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) Java files under root.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if _, ok := javasrc.LanguageForFile(absPath); ok {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// walkListFiles discovers Java files by walking the filesystem.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := javasrc.LanguageForFile(path); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

// pruneMissing deletes indexed files under root that are gone from disk.
func (e *Engine) pruneMissing(root string) error {
	files, err := e.store.Files()
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}
	prefix := root + string(filepath.Separator)
	for _, f := range files {
		if !strings.HasPrefix(f.Path, prefix) {
			continue
		}
		if _, err := os.Stat(f.Path); !os.IsNotExist(err) {
			continue
		}
		if err := e.store.DeleteFileData(f.ID); err != nil {
			return fmt.Errorf("prune %s: %w", f.Path, err)
		}
		e.dirty = true
		e.logger.Debug().Str("file", f.Path).Msg("pruned")
	}
	return nil
}

// Resolve resolves every superclass, return type and parameter type name in
// the index to a qualified class name and stores the results. It does
// nothing when NeedsResolve reports false. Resolution is global: a changed
// signature in one file can change how names in any other file resolve.
func (e *Engine) Resolve(ctx context.Context) error {
	if !e.NeedsResolve() {
		e.logger.Debug().Msg("resolution up to date")
		return nil
	}

	files, err := e.store.Files()
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	fileByID := make(map[int64]*store.File, len(files))
	for _, f := range files {
		fileByID[f.ID] = f
	}
	imports, err := e.store.AllImports()
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	known, err := e.store.QualifiedNames()
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	classes, err := e.store.AllClasses()
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	methods, err := e.store.AllMethods()
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	params, err := e.store.AllParameters()
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}

	resolver := javasrc.NewResolver(func(name string) bool { return known[name] })
	classByID := make(map[int64]*store.Class, len(classes))
	for _, c := range classes {
		classByID[c.ID] = c
	}

	// chain returns the class and its enclosing classes, innermost first.
	chain := func(c *store.Class) []*store.Class {
		var out []*store.Class
		for cur := c; cur != nil; {
			out = append(out, cur)
			if cur.ParentClassID == nil {
				break
			}
			cur = classByID[*cur.ParentClassID]
		}
		return out
	}
	baseScope := func(c *store.Class) javasrc.Scope {
		f := fileByID[c.FileID]
		scope := javasrc.Scope{}
		if f != nil {
			scope.Package = f.Package
		}
		for _, imp := range imports[c.FileID] {
			scope.Imports = append(scope.Imports, javasrc.Import{Path: imp.Path, Static: imp.Static, Wildcard: imp.Wildcard})
		}
		return scope
	}

	res := store.NewResolutions()
	classScopes := make(map[int64]javasrc.Scope, len(classes))
	for _, c := range classes {
		if err := ctx.Err(); err != nil {
			return err
		}
		scope := baseScope(c)
		for _, cc := range chain(c) {
			scope.Enclosing = append(scope.Enclosing, cc.QualifiedName)
			scope.TypeParams = append(scope.TypeParams, cc.TypeParams...)
		}
		classScopes[c.ID] = scope

		if c.SuperclassBase != "" {
			// The extends clause is resolved outside the class's own members.
			superScope := scope
			superScope.Enclosing = scope.Enclosing[1:]
			res.Superclasses[c.ID] = resolver.Resolve(c.SuperclassBase, superScope)
		}
	}

	methodScopes := make(map[int64]javasrc.Scope, len(methods))
	for _, m := range methods {
		scope, ok := classScopes[m.ClassID]
		if !ok {
			continue
		}
		if len(m.TypeParams) > 0 {
			tps := make([]string, 0, len(m.TypeParams)+len(scope.TypeParams))
			tps = append(tps, m.TypeParams...)
			scope.TypeParams = append(tps, scope.TypeParams...)
		}
		methodScopes[m.ID] = scope
		if !m.ReturnPrim && m.ReturnBase != "" {
			res.Returns[m.ID] = resolver.Resolve(m.ReturnBase, scope)
		}
	}
	for _, p := range params {
		scope, ok := methodScopes[p.MethodID]
		if !ok || p.Primitive || p.BaseType == "" {
			continue
		}
		res.Parameters[p.ID] = resolver.Resolve(p.BaseType, scope)
	}

	if err := e.store.ApplyResolutions(res); err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	if err := e.store.SetMetadata(metaResolvedAt, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	e.dirty = false
	e.logger.Info().
		Int("classes", len(classes)).
		Int("methods", len(methods)).
		Int("parameters", len(params)).
		Msg("resolved")
	return nil
}

// Model loads the current index into an immutable codemodel.Model.
func (e *Engine) Model() (*codemodel.Model, error) {
	return e.store.LoadModel()
}

func contentHash(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}
