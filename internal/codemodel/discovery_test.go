package codemodel

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ref builds a parameter of a reference type resolved to qualifiedName.
func ref(qualifiedName string) Param {
	return Param{TypeExpr: simpleName(qualifiedName), Base: simpleName(qualifiedName), Resolved: qualifiedName}
}

// graph builds a model where each key is a class and each value lists the
// parameter types of a single method on it.
func graph(t *testing.T, edges map[string][]Param) *Model {
	t.Helper()
	b := NewBuilder()
	for name, params := range edges {
		b.AddClass(ClassSpec{QualifiedName: name})
		b.AddMethod(name, MethodSpec{Name: "m", Params: params, HasBody: true})
	}
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

func classes(t *testing.T, m *Model, names ...string) []*Class {
	t.Helper()
	out := make([]*Class, 0, len(names))
	for _, n := range names {
		c, ok := m.ClassByName(n)
		require.True(t, ok, "class %s", n)
		out = append(out, c)
	}
	return out
}

func TestDiscover_StopsAtExcludedPrefix(t *testing.T) {
	t.Parallel()
	m := graph(t, map[string][]Param{
		"com.A": {ref("com.B")},
		"com.B": {ref("java.util.C")},
	})
	start := classes(t, m, "com.A")

	assert.Equal(t, []string{"com.B"}, Discover(m, start, 1, "java.").Names())
	assert.Equal(t, []string{"com.B"}, Discover(m, start, 2, "java.").Names())
}

func TestDiscover_ZeroDepthIsEmpty(t *testing.T) {
	t.Parallel()
	m := graph(t, map[string][]Param{"com.A": {ref("com.B")}, "com.B": nil})

	assert.Zero(t, Discover(m, classes(t, m, "com.A"), 0, "java.").Len())
	assert.Zero(t, Discover(m, classes(t, m, "com.A"), -3, "java.").Len())
}

func TestDiscover_SkipsUnresolvableParams(t *testing.T) {
	t.Parallel()
	arrayOfB := ref("com.B")
	arrayOfB.Dimensions = 1
	m := graph(t, map[string][]Param{
		"com.A": {
			{TypeExpr: "int", Base: "int", Primitive: true},
			{TypeExpr: "T", Base: "T"},
			arrayOfB,
		},
		"com.B": nil,
	})

	assert.Zero(t, Discover(m, classes(t, m, "com.A"), 3, "java.").Len())
}

func TestDiscover_ExcludesStartClasses(t *testing.T) {
	t.Parallel()
	m := graph(t, map[string][]Param{
		"com.A": {ref("com.A"), ref("com.B")},
		"com.B": {ref("com.A")},
	})

	got := Discover(m, classes(t, m, "com.A", "com.B"), 4, "java.")
	assert.Zero(t, got.Len())
}

func TestDiscover_Cycle(t *testing.T) {
	t.Parallel()
	m := graph(t, map[string][]Param{
		"com.A": {ref("com.B")},
		"com.B": {ref("com.A"), ref("com.B")},
	})

	assert.Equal(t, []string{"com.B"}, Discover(m, classes(t, m, "com.A"), 10, "java.").Names())
}

func TestDiscover_Diamond(t *testing.T) {
	t.Parallel()
	m := graph(t, map[string][]Param{
		"com.A": {ref("com.B"), ref("com.C")},
		"com.B": {ref("com.D")},
		"com.C": {ref("com.D")},
		"com.D": {ref("com.E")},
	})

	got := Discover(m, classes(t, m, "com.A"), 2, "java.").Names()
	if diff := cmp.Diff([]string{"com.B", "com.C", "com.D"}, got); diff != "" {
		t.Errorf("Discover mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscover_IncludesExternalClasses(t *testing.T) {
	t.Parallel()
	m := graph(t, map[string][]Param{
		"com.A": {ref("org.lib.Widget"), ref("java.lang.String")},
	})

	got := Discover(m, classes(t, m, "com.A"), 1, "java.").Sorted()
	require.Len(t, got, 1)
	assert.Equal(t, "org.lib.Widget", got[0].QualifiedName)
	assert.True(t, got[0].External)
}

func TestDiscover_EmptyPrefixExcludesNothing(t *testing.T) {
	t.Parallel()
	m := graph(t, map[string][]Param{
		"com.A": {ref("java.lang.String")},
	})

	assert.Equal(t, []string{"java.lang.String"}, Discover(m, classes(t, m, "com.A"), 1, "").Names())
}

func TestDiscover_Properties(t *testing.T) {
	t.Parallel()
	m := graph(t, map[string][]Param{
		"com.A": {ref("com.B"), ref("java.io.File")},
		"com.B": {ref("com.C")},
		"com.C": {ref("com.D"), ref("java.util.Map")},
		"com.D": {ref("com.E")},
		"com.E": {ref("com.A")},
	})
	start := classes(t, m, "com.A")

	var prev *ClassSet
	for depth := 0; depth <= 6; depth++ {
		got := Discover(m, start, depth, "java.")

		for _, name := range got.Names() {
			assert.NotContains(t, name, "java.", "depth %d", depth)
			assert.NotEqual(t, "com.A", name, "depth %d", depth)
		}

		again := Discover(m, start, depth, "java.")
		assert.Equal(t, got.Names(), again.Names(), "idempotent at depth %d", depth)

		if prev != nil {
			for _, name := range prev.Names() {
				assert.True(t, got.Contains(name), "depth %d lost %s", depth, name)
			}
		}
		prev = got
	}
	assert.Equal(t, []string{"com.B", "com.C", "com.D", "com.E"}, prev.Names())
}

func TestDiscover_ChainGrowsOneLevelPerDepth(t *testing.T) {
	t.Parallel()
	m := graph(t, map[string][]Param{
		"com.A": {ref("com.B")},
		"com.B": {ref("com.C")},
		"com.C": {ref("com.D")},
		"com.D": nil,
	})
	start := classes(t, m, "com.A")

	tests := []struct {
		depth int
		want  []string
	}{
		{1, []string{"com.B"}},
		{2, []string{"com.B", "com.C"}},
		{3, []string{"com.B", "com.C", "com.D"}},
		{4, []string{"com.B", "com.C", "com.D"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Discover(m, start, tt.depth, "java.").Names(), "depth %d", tt.depth)
	}
}

func TestInterestingForMethod(t *testing.T) {
	t.Parallel()
	b := NewBuilder()
	b.AddClass(ClassSpec{QualifiedName: "com.Cut"})
	b.AddClass(ClassSpec{QualifiedName: "com.Dep"})
	b.AddClass(ClassSpec{QualifiedName: "com.Arg"})
	b.AddClass(ClassSpec{QualifiedName: "com.Other"})
	b.AddMethod("com.Cut", MethodSpec{Name: "Cut", IsConstructor: true, HasBody: true, Params: []Param{ref("com.Dep"), ref("java.lang.String")}})
	b.AddMethod("com.Cut", MethodSpec{Name: "run", HasBody: true, Params: []Param{ref("com.Arg")}})
	b.AddMethod("com.Cut", MethodSpec{Name: "skip", HasBody: true, Params: []Param{ref("com.Other")}})
	m, err := b.Build()
	require.NoError(t, err)

	cut, _ := m.ClassByName("com.Cut")
	var run *Method
	for _, mid := range cut.Methods {
		if m.Method(mid).Name == "run" {
			run = m.Method(mid)
		}
	}
	require.NotNil(t, run)

	got := InterestingForMethod(m, cut, run, "java.")
	assert.Equal(t, []string{"com.Arg", "com.Cut", "com.Dep"}, got.Names())
}

func TestBuild_RejectsDuplicateClass(t *testing.T) {
	t.Parallel()
	_, err := NewBuilder().
		AddClass(ClassSpec{QualifiedName: "com.A"}).
		AddClass(ClassSpec{QualifiedName: "com.A"}).
		Build()
	require.Error(t, err)
}

func TestBuild_RejectsMethodOnUnknownClass(t *testing.T) {
	t.Parallel()
	_, err := NewBuilder().
		AddClass(ClassSpec{QualifiedName: "com.A"}).
		AddMethod("com.Missing", MethodSpec{Name: "m"}).
		Build()
	require.Error(t, err)
}
