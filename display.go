package testscope

import (
	"fmt"

	"github.com/jward/testscope/internal/codemodel"
)

// ClassType returns how a class is labelled in display names.
func ClassType(c *codemodel.Class) string {
	switch c.Kind {
	case codemodel.KindInterface, codemodel.KindEnum, codemodel.KindRecord, codemodel.KindAnnotation:
		return c.Kind
	}
	if c.IsAbstract() {
		return "abstract class"
	}
	return "class"
}

// ClassDisplayName is the HTML label offered for generating tests for c.
func ClassDisplayName(c *codemodel.Class) string {
	return fmt.Sprintf("<html><b><font color='orange'>%s</font> %s</b></html>", ClassType(c), c.QualifiedName)
}

// MethodDisplayName is the HTML label offered for generating tests for m.
// Constructors are labelled without their name.
func MethodDisplayName(m *codemodel.Method) string {
	switch {
	case m.IsDefaultConstructor():
		return "<html><b><font color='orange'>default constructor</font></b></html>"
	case m.IsConstructor:
		return "<html><b><font color='orange'>constructor</font></b></html>"
	case m.IsDefault():
		return fmt.Sprintf("<html><b><font color='orange'>default method</font> %s</b></html>", m.Name)
	default:
		return fmt.Sprintf("<html><b><font color='orange'>method</font> %s</b></html>", m.Name)
	}
}

// LineDisplayName is the HTML label offered for generating tests for a
// 1-based line.
func LineDisplayName(line int) string {
	return fmt.Sprintf("<html><b><font color='orange'>line</font> %d</b></html>", line)
}
