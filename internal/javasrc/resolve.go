package javasrc

import "strings"

// javaLang lists the java.lang types visible without an import.
var javaLang = map[string]bool{
	"AutoCloseable": true, "Boolean": true, "Byte": true, "CharSequence": true,
	"Character": true, "Class": true, "ClassCastException": true, "Cloneable": true,
	"Comparable": true, "Deprecated": true, "Double": true, "Enum": true,
	"Error": true, "Exception": true, "Float": true, "FunctionalInterface": true,
	"IllegalArgumentException": true, "IllegalStateException": true,
	"IndexOutOfBoundsException": true, "Integer": true, "Iterable": true,
	"Long": true, "Math": true, "NullPointerException": true, "Number": true,
	"Object": true, "Override": true, "Process": true, "ProcessBuilder": true,
	"Record": true, "Runnable": true, "Runtime": true, "RuntimeException": true,
	"SafeVarargs": true, "Short": true, "StackTraceElement": true, "String": true,
	"StringBuffer": true, "StringBuilder": true, "SuppressWarnings": true,
	"System": true, "Thread": true, "ThreadLocal": true, "Throwable": true,
	"UnsupportedOperationException": true, "Void": true,
}

// Scope is the naming context a type reference is written in.
type Scope struct {
	Package string
	Imports []Import
	// Enclosing lists the qualified names of the classes around the
	// reference, innermost first.
	Enclosing []string
	// TypeParams are the type variables in scope (method and class).
	TypeParams []string
}

// Resolver maps simple or dotted type names to qualified class names.
type Resolver struct {
	known func(qualifiedName string) bool
}

// NewResolver returns a Resolver that consults known to decide which
// candidate names exist.
func NewResolver(known func(qualifiedName string) bool) *Resolver {
	return &Resolver{known: known}
}

// Resolve returns the qualified name name refers to in scope, or "" when it
// names a type variable or cannot be resolved. The rules, in order: type
// variables, member classes of the enclosing chain, single-type imports, the
// current package, on-demand imports, java.lang, then dotted names taken as
// already qualified.
func (r *Resolver) Resolve(name string, scope Scope) string {
	if name == "" {
		return ""
	}
	head, rest, dotted := strings.Cut(name, ".")
	suffix := ""
	if dotted {
		suffix = "." + rest
	}

	if !dotted {
		for _, tp := range scope.TypeParams {
			if tp == name {
				return ""
			}
		}
	}

	for _, outer := range scope.Enclosing {
		if cand := outer + "." + head; r.known(cand) {
			return cand + suffix
		}
		if simple(outer) == head {
			return outer + suffix
		}
	}

	for _, imp := range scope.Imports {
		if !imp.Wildcard && simple(imp.Path) == head {
			return imp.Path + suffix
		}
	}

	if cand := qualify(scope.Package, head); r.known(cand) {
		return cand + suffix
	}

	for _, imp := range scope.Imports {
		if !imp.Wildcard {
			continue
		}
		if cand := imp.Path + "." + head; r.known(cand) {
			return cand + suffix
		}
	}

	if javaLang[head] {
		return "java.lang." + head + suffix
	}

	if dotted {
		return name
	}
	return ""
}

func qualify(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

func simple(qualifiedName string) string {
	if i := strings.LastIndexByte(qualifiedName, '.'); i >= 0 {
		return qualifiedName[i+1:]
	}
	return qualifiedName
}
