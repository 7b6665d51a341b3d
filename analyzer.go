package testscope

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/jward/testscope/internal/codemodel"
	"github.com/jward/testscope/internal/settings"
)

// ErrNoClass is returned by operations that need a class under test when no
// testable class surrounds the offset.
var ErrNoClass = errors.New("no testable class at offset")

// Analyzer answers test-scope questions about positions in indexed files.
// It works on a snapshot of the index taken when it was created.
type Analyzer struct {
	model    *codemodel.Model
	args     settings.Arguments
	prefix   string
	testable codemodel.TestableFunc
	logger   zerolog.Logger
}

// Analyzer snapshots the index and returns an Analyzer configured by s, or
// by DefaultSettings when s is nil. The testable rule comes from
// WithTestableScript, else s.TestableScript, else codemodel.DefaultTestable.
func (e *Engine) Analyzer(ctx context.Context, s *Settings) (*Analyzer, error) {
	if s == nil {
		s = DefaultSettings()
	}
	model, err := e.store.LoadModel()
	if err != nil {
		return nil, fmt.Errorf("analyzer: %w", err)
	}

	testable := codemodel.DefaultTestable
	script := e.testableScript
	if script == "" {
		script = s.TestableScript
	}
	if script != "" {
		p, err := e.runtime.NewPredicate(script)
		if err != nil {
			return nil, fmt.Errorf("analyzer: testable script: %w", err)
		}
		testable = p.Func(ctx)
	}

	return &Analyzer{
		model:    model,
		args:     settings.NewArguments(s),
		prefix:   s.ExcludedPrefix,
		testable: testable,
		logger:   e.logger,
	}, nil
}

// Model returns the snapshot the Analyzer works on.
func (a *Analyzer) Model() *codemodel.Model { return a.model }

func canonical(file string) string {
	if abs, err := filepath.Abs(file); err == nil {
		return abs
	}
	return file
}

// SurroundingClass returns the innermost testable class whose range
// contains offset, or nil.
func (a *Analyzer) SurroundingClass(file string, offset int) (*codemodel.Class, error) {
	c, err := codemodel.SurroundingClass(a.model, canonical(file), offset, a.testable)
	if err != nil {
		return nil, err
	}
	if c == nil {
		a.logger.Info().Int("offset", offset).Msg("no surrounding class")
		return nil, nil
	}
	a.logger.Info().Int("offset", offset).Str("class", c.QualifiedName).Msg("surrounding class")
	return c, nil
}

// SurroundingMethod returns the innermost method with a body, in a testable
// class, whose range contains offset, or nil.
func (a *Analyzer) SurroundingMethod(file string, offset int) (*codemodel.Method, error) {
	m, err := codemodel.SurroundingMethod(a.model, canonical(file), offset, a.testable)
	if err != nil {
		return nil, err
	}
	if m == nil {
		a.logger.Info().Int("offset", offset).Msg("no surrounding method")
		return nil, nil
	}
	a.logger.Info().Int("offset", offset).Str("method", codemodel.MethodDescriptor(a.model, m)).Msg("surrounding method")
	return m, nil
}

// SurroundingLine returns the 1-based line containing offset in file as it
// is on disk now. ok is false when that line is blank.
func (a *Analyzer) SurroundingLine(file string, offset int) (line int, ok bool, err error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return 0, false, fmt.Errorf("surrounding line: %w", err)
	}
	line, ok, err = codemodel.SurroundingLine(src, offset)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		a.logger.Info().Int("offset", offset).Msg("surrounding line is blank")
		return 0, false, nil
	}
	a.logger.Info().Int("offset", offset).Int("line", line).Msg("surrounding line")
	return line, true, nil
}

// CodeTypesAt lists the display names of what a test can be generated for
// at offset: the surrounding class, method and line, each when present.
func (a *Analyzer) CodeTypesAt(file string, offset int) ([]string, error) {
	c, err := a.SurroundingClass(file, offset)
	if err != nil {
		return nil, err
	}
	m, err := a.SurroundingMethod(file, offset)
	if err != nil {
		return nil, err
	}
	line, hasLine, err := a.SurroundingLine(file, offset)
	if err != nil {
		return nil, err
	}

	result := []string{}
	if c != nil {
		result = append(result, ClassDisplayName(c))
	}
	if m != nil {
		result = append(result, MethodDisplayName(m))
	}
	if hasLine {
		result = append(result, LineDisplayName(line))
	}

	if c != nil && m != nil {
		a.logger.Info().
			Str("class", c.QualifiedName).
			Str("method", m.Name).
			Int("line", line).
			Msg("test can be generated")
	}
	return result, nil
}

// ClassesToTest returns the class surrounding offset followed by its
// superclasses, up to the configured poly depth.
func (a *Analyzer) ClassesToTest(file string, offset int) ([]*codemodel.Class, error) {
	cut, err := a.SurroundingClass(file, offset)
	if err != nil {
		return nil, err
	}
	if cut == nil {
		return nil, ErrNoClass
	}
	classes := codemodel.ClassesToTest(a.model, cut, a.args.MaxPolyDepth(0), a.prefix)
	a.logger.Info().Int("count", len(classes)).Msg("classes to test")
	return classes, nil
}

// InterestingClasses discovers the classes reachable through method
// parameters from classesToTest, to the configured params depth less
// polyDepthReducing.
func (a *Analyzer) InterestingClasses(classesToTest []*codemodel.Class, polyDepthReducing int) *codemodel.ClassSet {
	set := codemodel.Discover(a.model, classesToTest, a.args.MaxInputParamsDepth(polyDepthReducing), a.prefix)
	a.logger.Info().Int("count", set.Len()).Msg("interesting classes")
	return set
}

// InterestingClassesForMethod returns cut together with the parameter
// classes of method and of every constructor of cut.
func (a *Analyzer) InterestingClassesForMethod(cut *codemodel.Class, method *codemodel.Method) *codemodel.ClassSet {
	set := codemodel.InterestingForMethod(a.model, cut, method, a.prefix)
	a.logger.Info().
		Int("count", set.Len()).
		Str("method", codemodel.MethodDescriptor(a.model, method)).
		Msg("interesting classes for method")
	return set
}

// MethodDescriptor returns the JVM descriptor of m prefixed by its name.
func (a *Analyzer) MethodDescriptor(m *codemodel.Method) string {
	d := codemodel.MethodDescriptor(a.model, m)
	a.logger.Info().Str("descriptor", d).Msg("method descriptor")
	return d
}
