package javasrc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()
	known := map[string]bool{
		"com.shop.Cart":         true,
		"com.shop.Cart.Line":    true,
		"com.shop.Order":        true,
		"com.shop.model.Item":   true,
		"com.shop.util.Clock":   true,
		"com.shop.util.Clock.Z": true,
	}
	r := NewResolver(func(q string) bool { return known[q] })

	scope := Scope{
		Package: "com.shop",
		Imports: []Import{
			{Path: "com.shop.model.Item"},
			{Path: "java.util.List"},
			{Path: "com.shop.util", Wildcard: true},
			{Path: "org.other", Wildcard: true},
		},
		Enclosing:  []string{"com.shop.Cart"},
		TypeParams: []string{"T"},
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"type variable", "T", ""},
		{"member class", "Line", "com.shop.Cart.Line"},
		{"enclosing class by name", "Cart", "com.shop.Cart"},
		{"single-type import", "Item", "com.shop.model.Item"},
		{"single-type import of unindexed class", "List", "java.util.List"},
		{"same package", "Order", "com.shop.Order"},
		{"on-demand import", "Clock", "com.shop.util.Clock"},
		{"nested through on-demand import", "Clock.Z", "com.shop.util.Clock.Z"},
		{"java.lang", "String", "java.lang.String"},
		{"fully qualified", "java.util.Map", "java.util.Map"},
		{"unknown simple name", "Widget", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.in, scope))
		})
	}
}

func TestResolver_DefaultPackage(t *testing.T) {
	t.Parallel()
	r := NewResolver(func(q string) bool { return q == "Helper" })

	assert.Equal(t, "Helper", r.Resolve("Helper", Scope{}))
	assert.Equal(t, "", r.Resolve("Missing", Scope{}))
}
