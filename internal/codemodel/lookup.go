package codemodel

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrOffsetOutOfRange is returned when an offset lies outside a document.
var ErrOffsetOutOfRange = errors.New("offset out of range")

// TestableFunc decides whether a class can be the subject of generated
// tests.
type TestableFunc func(c *Class) (bool, error)

// DefaultTestable accepts every class kind except enums and annotation
// types.
func DefaultTestable(c *Class) (bool, error) {
	switch c.Kind {
	case KindEnum, KindAnnotation:
		return false, nil
	}
	return true, nil
}

// SurroundingClass returns the innermost testable class in file whose span
// contains offset, or nil if there is none.
func SurroundingClass(m *Model, file string, offset int, testable TestableFunc) (*Class, error) {
	if testable == nil {
		testable = DefaultTestable
	}
	var match *Class
	// Pre-order means a later containing class is nested in an earlier one.
	for _, c := range m.ClassesInFile(file) {
		if !c.Span.Contains(offset) {
			continue
		}
		ok, err := testable(c)
		if err != nil {
			return nil, fmt.Errorf("surrounding class: %s: %w", c.QualifiedName, err)
		}
		if ok {
			match = c
		}
	}
	return match, nil
}

// SurroundingMethod returns the innermost method in file that has a body,
// contains offset, and belongs to a testable class. It returns nil if no
// method qualifies.
func SurroundingMethod(m *Model, file string, offset int, testable TestableFunc) (*Method, error) {
	if testable == nil {
		testable = DefaultTestable
	}
	verdicts := make(map[ClassID]bool)
	var match *Method
	for _, method := range m.MethodsInFile(file) {
		if !method.HasBody || !method.Span.Contains(offset) {
			continue
		}
		ok, seen := verdicts[method.Class]
		if !seen {
			var err error
			ok, err = testable(m.Class(method.Class))
			if err != nil {
				return nil, fmt.Errorf("surrounding method: %s: %w", method.Name, err)
			}
			verdicts[method.Class] = ok
		}
		if ok {
			match = method
		}
	}
	return match, nil
}

// SurroundingLine returns the 1-based number of the line containing offset.
// ok is false when that line is blank. An offset beyond the end of src
// returns ErrOffsetOutOfRange.
func SurroundingLine(src []byte, offset int) (line int, ok bool, err error) {
	if offset < 0 || offset > len(src) {
		return 0, false, fmt.Errorf("surrounding line: offset %d in %d bytes: %w", offset, len(src), ErrOffsetOutOfRange)
	}
	line = bytes.Count(src[:offset], []byte{'\n'}) + 1

	start := bytes.LastIndexByte(src[:offset], '\n') + 1
	end := len(src)
	if i := bytes.IndexByte(src[offset:], '\n'); i >= 0 {
		end = offset + i
	}
	if len(bytes.TrimSpace(src[start:end])) == 0 {
		return line, false, nil
	}
	return line, true, nil
}
