package store

import (
	"fmt"

	"github.com/jward/testscope/internal/codemodel"
)

// LoadModel bulk-loads every indexed class, method and parameter into an
// in-memory codemodel.Model. When the same qualified name is declared in
// more than one file, the first file by path wins and the others are left
// out of the model.
func (s *Store) LoadModel() (*codemodel.Model, error) {
	files, err := s.Files()
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	paths := make(map[int64]string, len(files))
	fileOrder := make(map[int64]int, len(files))
	for i, f := range files {
		paths[f.ID] = f.Path
		fileOrder[f.ID] = i
	}

	classes, err := s.AllClasses()
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	byID := make(map[int64]*Class, len(classes))
	owner := make(map[string]int64, len(classes))
	for _, c := range classes {
		byID[c.ID] = c
		prev, dup := owner[c.QualifiedName]
		if !dup || fileOrder[c.FileID] < fileOrder[byID[prev].FileID] {
			owner[c.QualifiedName] = c.ID
		}
	}

	b := codemodel.NewBuilder()
	for _, c := range classes {
		if owner[c.QualifiedName] != c.ID {
			continue
		}
		var enclosing string
		if c.ParentClassID != nil {
			if parent, ok := byID[*c.ParentClassID]; ok {
				enclosing = parent.QualifiedName
			}
		}
		b.AddClass(codemodel.ClassSpec{
			Name:          c.Name,
			QualifiedName: c.QualifiedName,
			Kind:          c.Kind,
			Modifiers:     c.Modifiers,
			File:          paths[c.FileID],
			Span: codemodel.Span{
				StartByte: c.StartByte, EndByte: c.EndByte,
				StartLine: c.StartLine, EndLine: c.EndLine,
			},
			Enclosing:  enclosing,
			Superclass: nullString(c.ResolvedSuper),
		})
	}

	methods, err := s.AllMethods()
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	params, err := s.AllParameters()
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	paramsByMethod := make(map[int64][]*Parameter, len(methods))
	for _, p := range params {
		paramsByMethod[p.MethodID] = append(paramsByMethod[p.MethodID], p)
	}

	for _, m := range methods {
		c, ok := byID[m.ClassID]
		if !ok || owner[c.QualifiedName] != c.ID {
			continue
		}
		spec := codemodel.MethodSpec{
			Name:       m.Name,
			Modifiers:  m.Modifiers,
			TypeParams: m.TypeParams,
			Return: codemodel.ReturnType{
				TypeExpr:   m.ReturnExpr,
				Base:       m.ReturnBase,
				Dimensions: m.ReturnDims,
				Primitive:  m.ReturnPrim,
				Resolved:   nullString(m.ResolvedRet),
			},
			IsConstructor: m.IsConstructor,
			HasBody:       m.HasBody,
			BodyEmpty:     m.BodyEmpty,
			Span: codemodel.Span{
				StartByte: m.StartByte, EndByte: m.EndByte,
				StartLine: m.StartLine, EndLine: m.EndLine,
			},
		}
		for _, p := range paramsByMethod[m.ID] {
			spec.Params = append(spec.Params, codemodel.Param{
				Name:       p.Name,
				TypeExpr:   p.TypeExpr,
				Base:       p.BaseType,
				Dimensions: p.Dimensions,
				Primitive:  p.Primitive,
				Resolved:   nullString(p.ResolvedType),
			})
		}
		b.AddMethod(c.QualifiedName, spec)
	}

	model, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return model, nil
}
