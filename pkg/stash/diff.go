package stash

import (
	"sort"

	"github.com/withgalaxy/stash/pkg/shallow"
)

// Changed returns the sorted keys that were added, removed, or whose values
// are not shallowly equal between prev and next.
func Changed[T Record](prev, next T) []string {
	var keys []string
	for k, v := range next {
		if pv, ok := prev[k]; !ok || !shallow.Equal(pv, v) {
			keys = append(keys, k)
		}
	}
	for k := range prev {
		if _, ok := next[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
