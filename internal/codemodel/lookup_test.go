package codemodel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nestedModel lays out Shop.java as:
//
//	[0,100]  class com.Shop
//	  [10,30]  checkout() {...}
//	    [15,28]  local class com.Shop$1Helper
//	      [18,26]  inner() {...}
//	  [32,38]  abstract total();
//	  [40,80]  class com.Shop.Cart
//	    [50,70]  add() {...}
//	  [85,95]  enum com.Shop.State
func nestedModel(t *testing.T) *Model {
	t.Helper()
	m, err := NewBuilder().
		AddClass(ClassSpec{QualifiedName: "com.Shop", File: "Shop.java", Span: Span{StartByte: 0, EndByte: 100}}).
		AddClass(ClassSpec{QualifiedName: "com.Shop$1Helper", Name: "Helper", File: "Shop.java", Enclosing: "com.Shop", Span: Span{StartByte: 15, EndByte: 28}}).
		AddClass(ClassSpec{QualifiedName: "com.Shop.Cart", File: "Shop.java", Enclosing: "com.Shop", Span: Span{StartByte: 40, EndByte: 80}}).
		AddClass(ClassSpec{QualifiedName: "com.Shop.State", Kind: KindEnum, File: "Shop.java", Enclosing: "com.Shop", Span: Span{StartByte: 85, EndByte: 95}}).
		AddMethod("com.Shop", MethodSpec{Name: "checkout", HasBody: true, Span: Span{StartByte: 10, EndByte: 30}}).
		AddMethod("com.Shop", MethodSpec{Name: "total", Modifiers: []string{"abstract"}, Span: Span{StartByte: 32, EndByte: 38}}).
		AddMethod("com.Shop$1Helper", MethodSpec{Name: "inner", HasBody: true, Span: Span{StartByte: 18, EndByte: 26}}).
		AddMethod("com.Shop.Cart", MethodSpec{Name: "add", HasBody: true, Span: Span{StartByte: 50, EndByte: 70}}).
		AddMethod("com.Shop.State", MethodSpec{Name: "next", HasBody: true, Span: Span{StartByte: 88, EndByte: 93}}).
		Build()
	require.NoError(t, err)
	return m
}

func TestSurroundingClass(t *testing.T) {
	t.Parallel()
	m := nestedModel(t)

	tests := []struct {
		name   string
		offset int
		want   string
	}{
		{"outer body", 5, "com.Shop"},
		{"outer start", 0, "com.Shop"},
		{"local class in method", 20, "com.Shop$1Helper"},
		{"method around local class", 12, "com.Shop"},
		{"outer end", 100, "com.Shop"},
		{"nested start", 40, "com.Shop.Cart"},
		{"nested body", 60, "com.Shop.Cart"},
		{"nested end", 80, "com.Shop.Cart"},
		{"after nested", 81, "com.Shop"},
		{"inside enum falls back to outer", 90, "com.Shop"},
		{"past file", 101, ""},
		{"other file", 5, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := "Shop.java"
			if tt.name == "other file" {
				file = "Other.java"
			}
			got, err := SurroundingClass(m, file, tt.offset, nil)
			require.NoError(t, err)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.QualifiedName)
		})
	}
}

func TestSurroundingMethod(t *testing.T) {
	t.Parallel()
	m := nestedModel(t)

	tests := []struct {
		name   string
		offset int
		want   string
	}{
		{"method body", 12, "checkout"},
		{"local class method", 20, "inner"},
		{"local class outside its method", 16, "checkout"},
		{"after local class", 29, "checkout"},
		{"method start", 10, "checkout"},
		{"method end", 30, "checkout"},
		{"bodiless method", 35, ""},
		{"nested class method", 60, "add"},
		{"between methods", 45, ""},
		{"enum method", 90, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SurroundingMethod(m, "Shop.java", tt.offset, nil)
			require.NoError(t, err)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Name)
		})
	}
}

func TestSurrounding_CustomPredicate(t *testing.T) {
	t.Parallel()
	m := nestedModel(t)
	notCart := func(c *Class) (bool, error) { return c.Name != "Cart", nil }

	c, err := SurroundingClass(m, "Shop.java", 60, notCart)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "com.Shop", c.QualifiedName)

	method, err := SurroundingMethod(m, "Shop.java", 60, notCart)
	require.NoError(t, err)
	assert.Nil(t, method)
}

func TestSurrounding_PredicateErrorPropagates(t *testing.T) {
	t.Parallel()
	m := nestedModel(t)
	boom := errors.New("boom")
	failing := func(*Class) (bool, error) { return false, boom }

	_, err := SurroundingClass(m, "Shop.java", 5, failing)
	require.ErrorIs(t, err, boom)

	_, err = SurroundingMethod(m, "Shop.java", 20, failing)
	require.ErrorIs(t, err, boom)
}

func TestSurroundingLine(t *testing.T) {
	t.Parallel()
	src := []byte("class A {\n\n  void m() {}\n   \n}")

	tests := []struct {
		name     string
		offset   int
		wantLine int
		wantOK   bool
	}{
		{"first char", 0, 1, true},
		{"end of first line", 9, 1, true},
		{"blank line", 10, 2, false},
		{"code line", 14, 3, true},
		{"whitespace-only line", 25, 4, false},
		{"last char", len(src) - 1, 5, true},
		{"end of document", len(src), 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, ok, err := SurroundingLine(src, tt.offset)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantLine, line)
		})
	}
}

func TestSurroundingLine_OutOfRange(t *testing.T) {
	t.Parallel()
	_, _, err := SurroundingLine([]byte("abc"), 4)
	require.ErrorIs(t, err, ErrOffsetOutOfRange)

	_, _, err = SurroundingLine([]byte("abc"), -1)
	require.ErrorIs(t, err, ErrOffsetOutOfRange)
}

func TestDefaultTestable(t *testing.T) {
	t.Parallel()
	for kind, want := range map[string]bool{
		KindClass:      true,
		KindInterface:  true,
		KindRecord:     true,
		KindEnum:       false,
		KindAnnotation: false,
	} {
		ok, err := DefaultTestable(&Class{Kind: kind})
		require.NoError(t, err)
		assert.Equal(t, want, ok, kind)
	}
}

func TestSurroundingMethod_InnermostIgnoresDeclarationOrder(t *testing.T) {
	t.Parallel()
	// The local class is added before the class whose method contains it.
	m, err := NewBuilder().
		AddClass(ClassSpec{QualifiedName: "p.Host$1", File: "Host.java", Enclosing: "p.Host", Span: Span{StartByte: 20, EndByte: 40}}).
		AddClass(ClassSpec{QualifiedName: "p.Host", File: "Host.java", Span: Span{StartByte: 0, EndByte: 60}}).
		AddMethod("p.Host$1", MethodSpec{Name: "run", HasBody: true, Span: Span{StartByte: 25, EndByte: 35}}).
		AddMethod("p.Host", MethodSpec{Name: "outer", HasBody: true, Span: Span{StartByte: 5, EndByte: 50}}).
		Build()
	require.NoError(t, err)

	method, err := SurroundingMethod(m, "Host.java", 30, nil)
	require.NoError(t, err)
	require.NotNil(t, method)
	assert.Equal(t, "run", method.Name)

	c, err := SurroundingClass(m, "Host.java", 30, nil)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "p.Host$1", c.QualifiedName)
	assert.Equal(t, "Host$1", c.Name)
}
