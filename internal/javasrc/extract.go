// Package javasrc extracts class, method and import facts from Java source
// using tree-sitter, and resolves the type names those facts mention.
package javasrc

import (
	"bytes"
	"context"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/testscope/internal/codemodel"
)

// FileFacts is everything extracted from one Java file.
type FileFacts struct {
	Package   string
	Imports   []Import
	Classes   []Class // source pre-order
	LineCount int
}

// Import is a single import declaration.
type Import struct {
	Path     string // dotted name without the trailing ".*"
	Static   bool
	Wildcard bool
}

// TypeRef is a type as written in source.
type TypeRef struct {
	Expr       string // full text, whitespace removed
	Base       string // element type, generics stripped
	Dimensions int
	Primitive  bool
}

// Class is an extracted type declaration.
type Class struct {
	Name          string
	QualifiedName string
	Kind          string
	Modifiers     []string
	TypeParams    []string
	Superclass    *TypeRef
	Enclosing     string // qualified name of the enclosing class, "" if top-level
	Span          codemodel.Span
	Methods       []Method
}

// Method is an extracted method or constructor.
type Method struct {
	Name          string
	Modifiers     []string
	TypeParams    []string
	Params        []Param
	Return        TypeRef
	IsConstructor bool
	HasBody       bool
	BodyEmpty     bool
	Span          codemodel.Span
}

// Param is an extracted formal parameter.
type Param struct {
	Name    string
	Type    TypeRef
	Varargs bool
}

var declKinds = map[string]string{
	"class_declaration":           codemodel.KindClass,
	"interface_declaration":       codemodel.KindInterface,
	"enum_declaration":            codemodel.KindEnum,
	"record_declaration":          codemodel.KindRecord,
	"annotation_type_declaration": codemodel.KindAnnotation,
}

var primitiveTypes = map[string]bool{
	"integral_type":       true,
	"floating_point_type": true,
	"boolean_type":        true,
	"void_type":           true,
}

// Extract parses src and returns its facts. Syntax errors do not fail
// extraction; tree-sitter recovers and whatever parsed cleanly is kept.
func Extract(ctx context.Context, src []byte) (*FileFacts, error) {
	tree, err := Parse(ctx, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	x := &extractor{
		src:    src,
		facts:  &FileFacts{LineCount: bytes.Count(src, []byte{'\n'}) + 1},
		locals: make(map[string]int),
	}
	root := tree.RootNode()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		switch n.Type() {
		case "package_declaration":
			x.facts.Package = x.packageName(n)
		case "import_declaration":
			x.facts.Imports = append(x.facts.Imports, x.importDecl(n))
		default:
			if _, ok := declKinds[n.Type()]; ok {
				x.classDecl(n, "")
			}
		}
	}
	return x.facts, nil
}

type extractor struct {
	src   []byte
	facts *FileFacts
	// locals counts local and anonymous classes per binary name prefix.
	locals map[string]int
}

func (x *extractor) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(x.src)
}

func (x *extractor) packageName(n *sitter.Node) string {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "scoped_identifier" || c.Type() == "identifier" {
			return compact(x.text(c))
		}
	}
	return ""
}

func (x *extractor) importDecl(n *sitter.Node) Import {
	s := strings.TrimSpace(x.text(n))
	s = strings.TrimPrefix(s, "import")
	s = strings.TrimSuffix(strings.TrimSpace(s), ";")
	s = strings.TrimSpace(s)

	var imp Import
	if rest, ok := strings.CutPrefix(s, "static"); ok && len(rest) > 0 && (rest[0] == ' ' || rest[0] == '\t' || rest[0] == '\n') {
		imp.Static = true
		s = rest
	}
	s = compact(s)
	if rest, ok := strings.CutSuffix(s, ".*"); ok {
		imp.Wildcard = true
		s = rest
	}
	imp.Path = s
	return imp
}

func (x *extractor) classDecl(n *sitter.Node, enclosing string) {
	name := x.text(n.ChildByFieldName("name"))
	qualified := name
	switch {
	case enclosing != "":
		qualified = enclosing + "." + name
	case x.facts.Package != "":
		qualified = x.facts.Package + "." + name
	}
	x.declare(n, name, qualified, enclosing)
}

// localClassDecl records a class declared inside a method body or an
// initializer. It gets the binary name javac gives it, e.g. p.Host$1Helper.
func (x *extractor) localClassDecl(n *sitter.Node, host string) {
	name := x.text(n.ChildByFieldName("name"))
	x.declare(n, name, x.binaryName(host, name), host)
}

func (x *extractor) declare(n *sitter.Node, name, qualified, enclosing string) {
	c := Class{
		Name:          name,
		QualifiedName: qualified,
		Kind:          declKinds[n.Type()],
		Modifiers:     x.modifiers(n),
		TypeParams:    x.typeParams(n),
		Enclosing:     enclosing,
		Span:          span(n),
	}
	if sup := n.ChildByFieldName("superclass"); sup != nil && sup.NamedChildCount() > 0 {
		ref := x.typeRef(sup.NamedChild(int(sup.NamedChildCount()) - 1))
		c.Superclass = &ref
	}

	idx := len(x.facts.Classes)
	x.facts.Classes = append(x.facts.Classes, c)
	x.classBody(n.ChildByFieldName("body"), idx, qualified)
}

// anonymousClass records the class body of an anonymous class creation or
// an enum constant. The class has no simple name; its qualified name is the
// binary one, e.g. p.Host$1, and its span is the body.
func (x *extractor) anonymousClass(body *sitter.Node, supertype TypeRef, host string) {
	qualified := x.binaryName(host, "")
	c := Class{
		QualifiedName: qualified,
		Kind:          codemodel.KindClass,
		Enclosing:     host,
		Span:          span(body),
	}
	if supertype.Base != "" {
		c.Superclass = &supertype
	}
	idx := len(x.facts.Classes)
	x.facts.Classes = append(x.facts.Classes, c)
	x.classBody(body, idx, qualified)
}

// binaryName numbers local classes per host and name, anonymous ones
// (name "") per host.
func (x *extractor) binaryName(host, name string) string {
	key := host + "$" + name
	x.locals[key]++
	return host + "$" + strconv.Itoa(x.locals[key]) + name
}

func (x *extractor) classBody(body *sitter.Node, idx int, qualified string) {
	if body == nil {
		return
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		n := body.NamedChild(i)
		switch n.Type() {
		case "method_declaration":
			x.addMethod(idx, x.method(n, false))
			x.localClasses(n.ChildByFieldName("body"), qualified)
		case "constructor_declaration", "compact_constructor_declaration":
			x.addMethod(idx, x.method(n, true))
			x.localClasses(n.ChildByFieldName("body"), qualified)
		case "enum_body_declarations":
			x.classBody(n, idx, qualified)
		case "enum_constant":
			x.localClasses(n.ChildByFieldName("arguments"), qualified)
			if cb := n.ChildByFieldName("body"); cb != nil {
				enum := x.facts.Classes[idx].Name
				x.anonymousClass(cb, TypeRef{Expr: enum, Base: enum}, qualified)
			}
		default:
			if _, ok := declKinds[n.Type()]; ok {
				x.classDecl(n, qualified)
				continue
			}
			// Field initializers and initializer blocks.
			x.localClasses(n, qualified)
		}
	}
}

// localClasses records the local and anonymous classes found under n,
// which belongs to the class named host. It does not descend into the
// bodies of the classes it records; classBody handles those.
func (x *extractor) localClasses(n *sitter.Node, host string) {
	if n == nil {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if _, ok := declKinds[c.Type()]; ok {
			x.localClassDecl(c, host)
			continue
		}
		if c.Type() != "object_creation_expression" {
			x.localClasses(c, host)
			continue
		}
		var body *sitter.Node
		for j := 0; j < int(c.NamedChildCount()); j++ {
			arg := c.NamedChild(j)
			if arg.Type() == "class_body" {
				body = arg
				continue
			}
			x.localClasses(arg, host)
		}
		if body != nil {
			x.anonymousClass(body, x.typeRef(c.ChildByFieldName("type")), host)
		}
	}
}

func (x *extractor) addMethod(idx int, m Method) {
	x.facts.Classes[idx].Methods = append(x.facts.Classes[idx].Methods, m)
}

func (x *extractor) method(n *sitter.Node, ctor bool) Method {
	m := Method{
		Name:          x.text(n.ChildByFieldName("name")),
		Modifiers:     x.modifiers(n),
		TypeParams:    x.typeParams(n),
		IsConstructor: ctor,
		Span:          span(n),
	}
	if !ctor {
		m.Return = x.typeRef(n.ChildByFieldName("type"))
	}
	if body := n.ChildByFieldName("body"); body != nil {
		m.HasBody = true
		m.BodyEmpty = isEmptyBlock(body)
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			if p, ok := x.param(params.NamedChild(i)); ok {
				m.Params = append(m.Params, p)
			}
		}
	}
	return m
}

func (x *extractor) param(n *sitter.Node) (Param, bool) {
	switch n.Type() {
	case "formal_parameter":
		p := Param{
			Name: x.text(n.ChildByFieldName("name")),
			Type: x.typeRef(n.ChildByFieldName("type")),
		}
		// C-style "int a[]".
		if dims := n.ChildByFieldName("dimensions"); dims != nil {
			p.Type.Dimensions += strings.Count(x.text(dims), "[")
			p.Type.Expr += strings.Repeat("[]", strings.Count(x.text(dims), "["))
		}
		return p, true
	case "spread_parameter":
		p := Param{Varargs: true}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			switch c.Type() {
			case "modifiers":
			case "variable_declarator":
				p.Name = x.text(c.ChildByFieldName("name"))
			default:
				if p.Type.Expr == "" {
					p.Type = x.typeRef(c)
				}
			}
		}
		p.Type.Dimensions++
		p.Type.Expr += "..."
		return p, true
	}
	return Param{}, false
}

func (x *extractor) typeRef(n *sitter.Node) TypeRef {
	if n == nil {
		return TypeRef{}
	}
	t := TypeRef{Expr: compact(x.text(n))}
	x.fillType(n, &t)
	return t
}

func (x *extractor) fillType(n *sitter.Node, t *TypeRef) {
	switch {
	case primitiveTypes[n.Type()]:
		t.Base = x.text(n)
		t.Primitive = true
	case n.Type() == "type_identifier":
		t.Base = x.text(n)
	case n.Type() == "generic_type" && n.NamedChildCount() > 0:
		x.fillType(n.NamedChild(0), t)
	case n.Type() == "array_type":
		if elem := n.ChildByFieldName("element"); elem != nil {
			x.fillType(elem, t)
		}
		t.Dimensions += strings.Count(x.text(n.ChildByFieldName("dimensions")), "[")
	case n.Type() == "annotated_type" && n.NamedChildCount() > 0:
		x.fillType(n.NamedChild(int(n.NamedChildCount())-1), t)
	default:
		t.Base = stripGenerics(compact(x.text(n)))
	}
}

func (x *extractor) modifiers(n *sitter.Node) []string {
	var mods []string
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Type() != "modifiers" {
			continue
		}
		for j := 0; j < int(c.ChildCount()); j++ {
			switch m := c.Child(j); m.Type() {
			case "marker_annotation", "annotation", "line_comment", "block_comment":
			default:
				mods = append(mods, x.text(m))
			}
		}
	}
	return mods
}

func (x *extractor) typeParams(n *sitter.Node) []string {
	var names []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "type_parameters" {
			continue
		}
		for j := 0; j < int(c.NamedChildCount()); j++ {
			tp := c.NamedChild(j)
			if tp.Type() != "type_parameter" {
				continue
			}
			for k := 0; k < int(tp.NamedChildCount()); k++ {
				id := tp.NamedChild(k)
				if id.Type() == "type_identifier" || id.Type() == "identifier" {
					names = append(names, x.text(id))
					break
				}
			}
		}
	}
	return names
}

func isEmptyBlock(body *sitter.Node) bool {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		switch body.NamedChild(i).Type() {
		case "line_comment", "block_comment":
		default:
			return false
		}
	}
	return true
}

func span(n *sitter.Node) codemodel.Span {
	return codemodel.Span{
		StartByte: int(n.StartByte()),
		EndByte:   int(n.EndByte()),
		StartLine: int(n.StartPoint().Row) + 1,
		EndLine:   int(n.EndPoint().Row) + 1,
	}
}

// compact removes all whitespace.
func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// stripGenerics removes every <...> section, nested ones included.
func stripGenerics(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '<':
			depth++
		case r == '>':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
