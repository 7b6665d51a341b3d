package codemodel

import "strings"

var primitiveDescriptors = map[string]string{
	"byte":    "B",
	"char":    "C",
	"double":  "D",
	"float":   "F",
	"int":     "I",
	"long":    "J",
	"short":   "S",
	"boolean": "Z",
	"void":    "V",
}

// MethodDescriptor returns the method name followed by its erased JVM
// signature, e.g. "add(ILjava/lang/String;)V". Constructors return V.
// Type variables and unresolved names erase to java/lang/Object.
func MethodDescriptor(m *Model, method *Method) string {
	var b strings.Builder
	b.WriteString(method.Name)
	b.WriteByte('(')
	for _, p := range method.Params {
		b.WriteString(typeDescriptor(m, p.Base, p.Resolved, p.Primitive, p.Dimensions))
	}
	b.WriteByte(')')
	if method.IsConstructor {
		b.WriteByte('V')
	} else {
		r := method.Return
		b.WriteString(typeDescriptor(m, r.Base, r.Resolved, r.Primitive, r.Dimensions))
	}
	return b.String()
}

func typeDescriptor(m *Model, base, resolved string, primitive bool, dims int) string {
	elem := "Ljava/lang/Object;"
	if primitive {
		if d, ok := primitiveDescriptors[base]; ok {
			elem = d
		}
	} else if resolved != "" {
		elem = "L" + InternalName(m, resolved) + ";"
	}
	return strings.Repeat("[", dims) + elem
}

// InternalName returns the JVM internal name for a qualified class name:
// package separators become '/' and nested classes are joined with '$'.
// Local and anonymous classes already carry their binary suffix, as in
// p.Host$1. Nesting is only known for classes present in m; other names
// are taken to be top-level.
func InternalName(m *Model, qualifiedName string) string {
	c, ok := m.ClassByName(qualifiedName)
	if !ok || c.Enclosing == NoClass {
		return strings.ReplaceAll(qualifiedName, ".", "/")
	}
	outer := m.Class(c.Enclosing)
	suffix, ok := strings.CutPrefix(c.QualifiedName, outer.QualifiedName)
	if !ok {
		return InternalName(m, outer.QualifiedName) + "$" + c.Name
	}
	return InternalName(m, outer.QualifiedName) + "$" + strings.TrimLeft(suffix, ".$")
}
