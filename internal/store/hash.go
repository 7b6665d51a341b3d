package store

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"github.com/jward/testscope/internal/javasrc"
)

// ComputeSignatureHash computes a deterministic hash of a class's shape:
// name, kind, modifiers, type parameters, superclass and the parameter and
// return types of every method. Bodies and locations do not affect it, so
// an edit inside a method leaves the hash unchanged.
func ComputeSignatureHash(c *javasrc.Class) string {
	h := sha256.New()

	fmt.Fprintf(h, "name:%s\n", c.QualifiedName)
	fmt.Fprintf(h, "kind:%s\n", c.Kind)

	mods := make([]string, len(c.Modifiers))
	copy(mods, c.Modifiers)
	sort.Strings(mods)
	fmt.Fprintf(h, "modifiers:%s\n", strings.Join(mods, ","))
	fmt.Fprintf(h, "typeparams:%s\n", strings.Join(c.TypeParams, ","))

	if c.Superclass != nil {
		fmt.Fprintf(h, "super:%s\n", c.Superclass.Expr)
	}

	// Methods sorted by signature so member reordering is not a change.
	sigs := make([]string, len(c.Methods))
	for i, m := range c.Methods {
		var b strings.Builder
		fmt.Fprintf(&b, "%s:%v:%s(", m.Name, m.IsConstructor, m.Return.Expr)
		for _, p := range m.Params {
			b.WriteString(p.Type.Expr)
			b.WriteByte(',')
		}
		b.WriteByte(')')
		sigs[i] = b.String()
	}
	sort.Strings(sigs)
	for _, sig := range sigs {
		fmt.Fprintf(h, "method:%s\n", sig)
	}

	return fmt.Sprintf("%x", h.Sum(nil))
}
