package settings

// Arguments derives traversal depths from Settings.
type Arguments struct {
	s *Settings
}

// NewArguments wraps s.
func NewArguments(s *Settings) Arguments {
	return Arguments{s: s}
}

// MaxPolyDepth returns the superclass walk depth less reduce, floored at 0.
// A negative reduce counts as 0.
func (a Arguments) MaxPolyDepth(reduce int) int {
	return floorZero(a.s.MaxPolyDepth - floorZero(reduce))
}

// MaxInputParamsDepth returns the parameter discovery depth less reduce,
// floored at 0. A negative reduce counts as 0.
func (a Arguments) MaxInputParamsDepth(reduce int) int {
	return floorZero(a.s.MaxInputParamsDepth - floorZero(reduce))
}

func floorZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
