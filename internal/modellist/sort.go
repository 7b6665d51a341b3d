package modellist

import (
	"sort"
	"strings"
)

// SortModels returns a sorted copy of models: lastChosen first, then every
// id containing "gpt" in descending order, then the rest ascending.
func SortModels(models []string, lastChosen string) []string {
	out := make([]string, len(models))
	copy(out, models)
	sort.SliceStable(out, func(i, j int) bool {
		return modelLess(out[i], out[j], lastChosen)
	})
	return out
}

func modelLess(a, b, lastChosen string) bool {
	switch {
	case a == lastChosen && b != lastChosen:
		return true
	case b == lastChosen:
		return false
	}
	aGPT, bGPT := strings.Contains(a, "gpt"), strings.Contains(b, "gpt")
	switch {
	case aGPT && bGPT:
		return a > b
	case aGPT != bGPT:
		return aGPT
	default:
		return a < b
	}
}
