package codemodel

import (
	"sort"
	"strings"
)

// ClassSet is a set of classes keyed by qualified name.
type ClassSet struct {
	byName map[string]*Class
}

// NewClassSet returns a set holding the given classes. Nil entries are
// ignored.
func NewClassSet(classes ...*Class) *ClassSet {
	s := &ClassSet{byName: make(map[string]*Class, len(classes))}
	for _, c := range classes {
		s.Add(c)
	}
	return s
}

// Add inserts c and reports whether it was not already present.
func (s *ClassSet) Add(c *Class) bool {
	if c == nil {
		return false
	}
	if s.byName == nil {
		s.byName = make(map[string]*Class)
	}
	if _, ok := s.byName[c.QualifiedName]; ok {
		return false
	}
	s.byName[c.QualifiedName] = c
	return true
}

// Contains reports whether a class with the given qualified name is in the set.
func (s *ClassSet) Contains(qualifiedName string) bool {
	_, ok := s.byName[qualifiedName]
	return ok
}

// Len returns the number of classes in the set.
func (s *ClassSet) Len() int { return len(s.byName) }

// Sorted returns the classes ordered by qualified name.
func (s *ClassSet) Sorted() []*Class {
	out := make([]*Class, 0, len(s.byName))
	for _, c := range s.byName {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].QualifiedName < out[j].QualifiedName
	})
	return out
}

// Names returns the qualified names in the set, sorted.
func (s *ClassSet) Names() []string {
	out := make([]string, 0, len(s.byName))
	for name := range s.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// isExcluded reports whether qualifiedName falls under prefix. An empty
// prefix excludes nothing.
func isExcluded(qualifiedName, prefix string) bool {
	return prefix != "" && strings.HasPrefix(qualifiedName, prefix)
}

// Discover walks parameter types breadth-first from start, one level per
// iteration, for at most maxDepth levels. Every class reached through a
// method parameter is collected unless its qualified name starts with
// excludedPrefix or it is one of the start classes. Only classes not seen
// before are expanded on the next level.
//
// maxDepth <= 0 yields an empty set. The walk does no I/O and cannot fail.
func Discover(m *Model, start []*Class, maxDepth int, excludedPrefix string) *ClassSet {
	found := NewClassSet()
	if maxDepth <= 0 {
		return found
	}

	starts := NewClassSet(start...)
	frontier := starts.Sorted()

	for level := 0; level < maxDepth && len(frontier) > 0; level++ {
		var next []*Class
		for _, c := range frontier {
			for _, mid := range c.Methods {
				method := m.Method(mid)
				if method == nil {
					continue
				}
				for _, p := range method.Params {
					target := m.Class(p.Class)
					if target == nil {
						continue
					}
					if isExcluded(target.QualifiedName, excludedPrefix) || starts.Contains(target.QualifiedName) {
						continue
					}
					if found.Add(target) {
						next = append(next, target)
					}
				}
			}
		}
		frontier = next
	}
	return found
}

// InterestingForMethod returns cut together with the classes of the
// parameters of method and of every constructor of cut. Classes under
// excludedPrefix are left out; cut itself is always included.
func InterestingForMethod(m *Model, cut *Class, method *Method, excludedPrefix string) *ClassSet {
	result := NewClassSet(cut)
	if cut == nil {
		return result
	}

	methods := []*Method{}
	if method != nil {
		methods = append(methods, method)
	}
	for _, mid := range cut.Methods {
		if ctor := m.Method(mid); ctor != nil && ctor.IsConstructor {
			methods = append(methods, ctor)
		}
	}

	for _, mm := range methods {
		for _, p := range mm.Params {
			target := m.Class(p.Class)
			if target == nil || isExcluded(target.QualifiedName, excludedPrefix) {
				continue
			}
			result.Add(target)
		}
	}
	return result
}
