// Package codemodel holds an immutable, in-memory view of indexed Java
// classes and the traversals that run over it: type discovery, enclosing
// element lookup, superclass collection and JVM method descriptors.
//
// Classes and methods live in arenas owned by a Model and refer to each
// other by ID, so the structure is acyclic from the Go side even when the
// Java type graph is not.
package codemodel

import (
	"fmt"
	"sort"
	"strings"
)

// ClassID identifies a class within a Model. The zero value means "none".
type ClassID int

// MethodID identifies a method within a Model. The zero value means "none".
type MethodID int

// NoClass is the ClassID of an unresolvable type reference.
const NoClass ClassID = 0

// Class kinds.
const (
	KindClass      = "class"
	KindInterface  = "interface"
	KindEnum       = "enum"
	KindRecord     = "record"
	KindAnnotation = "annotation"
)

// Span locates an element in its file. Lines are 1-based.
type Span struct {
	StartByte int
	EndByte   int
	StartLine int
	EndLine   int
}

// Contains reports whether offset lies within s, bounds included.
func (s Span) Contains(offset int) bool {
	return s.StartByte <= offset && offset <= s.EndByte
}

// Class is a read-only descriptor of a Java class, interface, enum, record
// or annotation type.
type Class struct {
	ID            ClassID
	Name          string
	QualifiedName string
	Kind          string
	Modifiers     []string
	File          string
	Span          Span
	Enclosing     ClassID
	Superclass    ClassID
	Methods       []MethodID

	// External classes are referenced by indexed code but not indexed
	// themselves (for example java.lang.String). They have no methods.
	External bool
}

// HasModifier reports whether the class declares modifier m.
func (c *Class) HasModifier(m string) bool {
	for _, mod := range c.Modifiers {
		if mod == m {
			return true
		}
	}
	return false
}

// IsAbstract reports whether the class is declared abstract.
func (c *Class) IsAbstract() bool { return c.HasModifier("abstract") }

// Param is a single method parameter.
type Param struct {
	Name     string
	TypeExpr string
	// Base is the element type name as written, generics stripped.
	Base       string
	Dimensions int
	Primitive  bool
	// Resolved is the qualified name Base resolved to, or "".
	Resolved string
	// Class is the class the parameter type resolves to. Arrays, primitives
	// and unresolvable names yield NoClass.
	Class ClassID
}

// ReturnType describes a method's declared return type.
type ReturnType struct {
	TypeExpr   string
	Base       string
	Dimensions int
	Primitive  bool
	Resolved   string
}

// Method is a read-only descriptor of a method or constructor.
type Method struct {
	ID            MethodID
	Class         ClassID
	Name          string
	Modifiers     []string
	Params        []Param
	Return        ReturnType
	TypeParams    []string
	IsConstructor bool
	HasBody       bool
	BodyEmpty     bool
	Span          Span
}

// IsDefault reports whether the method is an interface default method.
func (m *Method) IsDefault() bool {
	for _, mod := range m.Modifiers {
		if mod == "default" {
			return true
		}
	}
	return false
}

// IsDefaultConstructor reports whether the method is a constructor with an
// empty body.
func (m *Method) IsDefaultConstructor() bool {
	return m.IsConstructor && m.HasBody && m.BodyEmpty
}

// Model is an immutable arena of classes and methods. Build one with a
// Builder; the zero Model is empty and usable.
type Model struct {
	classes []Class
	methods []Method
	byName  map[string]ClassID
	byFile  map[string][]ClassID
}

// Class returns the class with the given ID, or nil for NoClass or an
// unknown ID.
func (m *Model) Class(id ClassID) *Class {
	if id <= 0 || int(id) > len(m.classes) {
		return nil
	}
	return &m.classes[id-1]
}

// Method returns the method with the given ID, or nil.
func (m *Model) Method(id MethodID) *Method {
	if id <= 0 || int(id) > len(m.methods) {
		return nil
	}
	return &m.methods[id-1]
}

// ClassByName looks up a class by qualified name.
func (m *Model) ClassByName(qualifiedName string) (*Class, bool) {
	id, ok := m.byName[qualifiedName]
	if !ok {
		return nil, false
	}
	return m.Class(id), true
}

// ClassesInFile returns the classes declared in file in source pre-order:
// an enclosing class always precedes the classes nested in it.
func (m *Model) ClassesInFile(file string) []*Class {
	ids := m.byFile[file]
	out := make([]*Class, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.Class(id))
	}
	return out
}

// MethodsInFile returns the methods declared in file in source pre-order.
func (m *Model) MethodsInFile(file string) []*Method {
	var out []*Method
	for _, c := range m.ClassesInFile(file) {
		for _, mid := range c.Methods {
			out = append(out, m.Method(mid))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Span.StartByte < out[j].Span.StartByte
	})
	return out
}

// Len returns the number of classes in the model, external ones included.
func (m *Model) Len() int { return len(m.classes) }

// ClassSpec describes a class handed to a Builder.
type ClassSpec struct {
	Name          string
	QualifiedName string
	Kind          string
	Modifiers     []string
	File          string
	Span          Span
	// Enclosing and Superclass are qualified names; "" means none.
	Enclosing  string
	Superclass string
}

// MethodSpec describes a method handed to a Builder. Parameter and return
// types are linked by their Resolved qualified name.
type MethodSpec struct {
	Name          string
	Modifiers     []string
	Params        []Param
	Return        ReturnType
	TypeParams    []string
	IsConstructor bool
	HasBody       bool
	BodyEmpty     bool
	Span          Span
}

// Builder assembles a Model. Classes may reference classes added later;
// links are resolved in Build.
type Builder struct {
	classes []ClassSpec
	methods map[string][]MethodSpec
	order   []string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{methods: make(map[string][]MethodSpec)}
}

// AddClass registers a class. Adding the same qualified name twice is an
// error reported by Build.
func (b *Builder) AddClass(spec ClassSpec) *Builder {
	if spec.Name == "" {
		spec.Name = simpleName(spec.QualifiedName)
	}
	if spec.Kind == "" {
		spec.Kind = KindClass
	}
	b.classes = append(b.classes, spec)
	b.order = append(b.order, spec.QualifiedName)
	return b
}

// AddMethod registers a method on the class with the given qualified name.
func (b *Builder) AddMethod(owner string, spec MethodSpec) *Builder {
	b.methods[owner] = append(b.methods[owner], spec)
	return b
}

// Build links classes, methods and type references into a Model. Resolved
// names that match no added class become external classes.
func (b *Builder) Build() (*Model, error) {
	m := &Model{
		byName: make(map[string]ClassID, len(b.classes)),
		byFile: make(map[string][]ClassID),
	}

	for _, spec := range b.classes {
		if spec.QualifiedName == "" {
			return nil, fmt.Errorf("build model: class %q has no qualified name", spec.Name)
		}
		if _, dup := m.byName[spec.QualifiedName]; dup {
			return nil, fmt.Errorf("build model: duplicate class %q", spec.QualifiedName)
		}
		id := ClassID(len(m.classes) + 1)
		m.classes = append(m.classes, Class{
			ID:            id,
			Name:          spec.Name,
			QualifiedName: spec.QualifiedName,
			Kind:          spec.Kind,
			Modifiers:     spec.Modifiers,
			File:          spec.File,
			Span:          spec.Span,
		})
		m.byName[spec.QualifiedName] = id
		if spec.File != "" {
			m.byFile[spec.File] = append(m.byFile[spec.File], id)
		}
	}

	for i, spec := range b.classes {
		if spec.Enclosing != "" {
			m.classes[i].Enclosing = m.byName[spec.Enclosing]
		}
		if spec.Superclass != "" {
			// intern may grow the arena, so index rather than hold a pointer.
			sup := m.intern(spec.Superclass)
			m.classes[i].Superclass = sup
		}
	}

	for _, owner := range b.order {
		ownerID := m.byName[owner]
		for _, spec := range b.methods[owner] {
			id := MethodID(len(m.methods) + 1)
			params := make([]Param, len(spec.Params))
			copy(params, spec.Params)
			for j := range params {
				params[j].Class = NoClass
				if params[j].Resolved != "" && params[j].Dimensions == 0 && !params[j].Primitive {
					params[j].Class = m.intern(params[j].Resolved)
				}
			}
			m.methods = append(m.methods, Method{
				ID:            id,
				Class:         ownerID,
				Name:          spec.Name,
				Modifiers:     spec.Modifiers,
				Params:        params,
				Return:        spec.Return,
				TypeParams:    spec.TypeParams,
				IsConstructor: spec.IsConstructor,
				HasBody:       spec.HasBody,
				BodyEmpty:     spec.BodyEmpty,
				Span:          spec.Span,
			})
			oc := &m.classes[ownerID-1]
			oc.Methods = append(oc.Methods, id)
		}
	}

	for owner := range b.methods {
		if _, ok := m.byName[owner]; !ok {
			return nil, fmt.Errorf("build model: methods added to unknown class %q", owner)
		}
	}

	// Keep per-file order stable by source position.
	for file, ids := range m.byFile {
		sort.SliceStable(ids, func(i, j int) bool {
			return m.classes[ids[i]-1].Span.StartByte < m.classes[ids[j]-1].Span.StartByte
		})
		m.byFile[file] = ids
	}
	return m, nil
}

// intern returns the ID for qualifiedName, creating an external class if
// the name is not yet known.
func (m *Model) intern(qualifiedName string) ClassID {
	if id, ok := m.byName[qualifiedName]; ok {
		return id
	}
	id := ClassID(len(m.classes) + 1)
	m.classes = append(m.classes, Class{
		ID:            id,
		Name:          simpleName(qualifiedName),
		QualifiedName: qualifiedName,
		Kind:          KindClass,
		External:      true,
	})
	m.byName[qualifiedName] = id
	return id
}

func simpleName(qualifiedName string) string {
	if i := strings.LastIndexByte(qualifiedName, '.'); i >= 0 {
		return qualifiedName[i+1:]
	}
	return qualifiedName
}
