package codemodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(cs []*Class) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.QualifiedName
	}
	return out
}

func TestClassesToTest(t *testing.T) {
	t.Parallel()
	m, err := NewBuilder().
		AddClass(ClassSpec{QualifiedName: "com.Base", Superclass: "java.lang.Object"}).
		AddClass(ClassSpec{QualifiedName: "com.Middle", Superclass: "com.Base"}).
		AddClass(ClassSpec{QualifiedName: "com.Leaf", Superclass: "com.Middle"}).
		Build()
	require.NoError(t, err)
	leaf, _ := m.ClassByName("com.Leaf")

	tests := []struct {
		depth int
		want  []string
	}{
		{0, []string{}},
		{1, []string{"com.Leaf"}},
		{2, []string{"com.Leaf", "com.Middle"}},
		{3, []string{"com.Leaf", "com.Middle", "com.Base"}},
		{5, []string{"com.Leaf", "com.Middle", "com.Base"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, names(ClassesToTest(m, leaf, tt.depth, "java.")), "depth %d", tt.depth)
	}
}

func TestClassesToTest_FollowsExternalSuperclass(t *testing.T) {
	t.Parallel()
	m, err := NewBuilder().
		AddClass(ClassSpec{QualifiedName: "com.Service", Superclass: "org.framework.AbstractService"}).
		Build()
	require.NoError(t, err)
	svc, _ := m.ClassByName("com.Service")

	got := ClassesToTest(m, svc, 3, "java.")
	assert.Equal(t, []string{"com.Service", "org.framework.AbstractService"}, names(got))
	assert.True(t, got[1].External)
}

func TestClassesToTest_NilClass(t *testing.T) {
	t.Parallel()
	m, err := NewBuilder().Build()
	require.NoError(t, err)
	assert.Empty(t, ClassesToTest(m, nil, 3, "java."))
}
