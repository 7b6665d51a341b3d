package codemodel

// ClassesToTest returns cut followed by its superclasses, nearest first,
// holding at most maxPolyDepth classes in total. The walk stops early at a
// class without a superclass or whose superclass is under excludedPrefix.
// A maxPolyDepth of zero or less yields nothing.
func ClassesToTest(m *Model, cut *Class, maxPolyDepth int, excludedPrefix string) []*Class {
	var result []*Class
	seen := make(map[ClassID]bool)

	current := cut
	for range max(maxPolyDepth, 0) {
		if current == nil || seen[current.ID] {
			break
		}
		seen[current.ID] = true
		result = append(result, current)

		super := m.Class(current.Superclass)
		if super == nil || isExcluded(super.QualifiedName, excludedPrefix) {
			break
		}
		current = super
	}
	return result
}
