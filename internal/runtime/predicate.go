package runtime

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"

	"github.com/jward/testscope/internal/codemodel"
)

// Predicate is a Risor script that decides whether a class is testable.
// The script sees these globals and must evaluate to a bool:
//
//	name, qualified_name, kind, file   string
//	is_nested, is_external             bool
//	method_count                       int
//	has_modifier(m)                    bool
type Predicate struct {
	rt     *Runtime
	source string
	label  string
}

// NewPredicate resolves spec through ScriptSource and returns the
// resulting Predicate.
func (r *Runtime) NewPredicate(spec string) (*Predicate, error) {
	src, label, err := r.ScriptSource(spec)
	if err != nil {
		return nil, err
	}
	return &Predicate{rt: r, source: src, label: label}, nil
}

// Testable evaluates the script for c.
func (p *Predicate) Testable(ctx context.Context, c *codemodel.Class) (bool, error) {
	result, err := p.rt.Eval(ctx, p.source, p.label, classGlobals(c))
	if err != nil {
		return false, err
	}
	b, ok := result.(*object.Bool)
	if !ok {
		return false, fmt.Errorf("runtime: script %s: want bool result, got %s", p.label, result.Type())
	}
	return b.Value(), nil
}

// Func adapts the predicate to codemodel.TestableFunc, evaluating each
// class at most once.
func (p *Predicate) Func(ctx context.Context) codemodel.TestableFunc {
	cache := make(map[string]bool)
	return func(c *codemodel.Class) (bool, error) {
		if v, ok := cache[c.QualifiedName]; ok {
			return v, nil
		}
		v, err := p.Testable(ctx, c)
		if err != nil {
			return false, err
		}
		cache[c.QualifiedName] = v
		return v, nil
	}
}

func classGlobals(c *codemodel.Class) map[string]any {
	return map[string]any{
		"name":           object.NewString(c.Name),
		"qualified_name": object.NewString(c.QualifiedName),
		"kind":           object.NewString(c.Kind),
		"file":           object.NewString(c.File),
		"is_nested":      object.NewBool(c.Enclosing != codemodel.NoClass),
		"is_external":    object.NewBool(c.External),
		"method_count":   object.NewInt(int64(len(c.Methods))),
		"has_modifier":   makeHasModifierFn(c),
	}
}

// makeHasModifierFn creates the "has_modifier" host function.
//
// has_modifier(modifier) → bool
func makeHasModifierFn(c *codemodel.Class) *object.Builtin {
	return object.NewBuiltin("has_modifier", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("has_modifier", 1, len(args))
		}
		mod, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("has_modifier: modifier must be a string, got %s", args[0].Type())
		}
		return object.NewBool(c.HasModifier(mod.Value()))
	})
}
