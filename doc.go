// Package testscope decides, for a cursor position in a Java source tree,
// what a generated unit test should target and which classes are worth
// showing to the model that writes it.
//
// # Pipeline
//
// testscope operates in two phases:
//
//  1. Index: For each .java file, parse with tree-sitter, extract its
//     package, imports, classes, methods and parameters, and write them to
//     SQLite. Unchanged files are skipped by content hash.
//
//  2. Resolve: Map every superclass, return and parameter type name to a
//     qualified class name using the file's package, imports and enclosing
//     classes. Resolution only runs when a class signature, an import list
//     or the set of files changed.
//
// # Usage
//
//	e, err := testscope.New(".testscope/index.db", testscope.WithLogger(logger))
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	err = e.IndexDirectory(ctx, "path/to/project")
//	err = e.Resolve(ctx)
//
//	a, err := e.Analyzer(ctx, testscope.DefaultSettings())
//	cut, err := a.SurroundingClass("src/main/java/shop/Cart.java", 412)
//
// # Analyzer API
//
//   - [Analyzer.SurroundingClass], [Analyzer.SurroundingMethod] and
//     [Analyzer.SurroundingLine] locate the innermost testable element at
//     a byte offset.
//   - [Analyzer.CodeTypesAt] lists the display names of those elements.
//   - [Analyzer.ClassesToTest] walks superclasses from the class under test.
//   - [Analyzer.InterestingClasses] discovers the classes reachable through
//     method parameters, breadth first, to a bounded depth.
//   - [Analyzer.InterestingClassesForMethod] narrows that to one method and
//     the constructors of its class.
//   - [Analyzer.MethodDescriptor] renders a JVM method descriptor.
//
// Which classes count as testable can be customized with a Risor script;
// see [WithTestableScript]. Depths and the excluded package prefix come
// from [Settings]; [LoadSettings] reads them from a TOML file.
package testscope
