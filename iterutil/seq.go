package iterutil

import (
	"iter"
)

// Nearest yields the indexes in [0, n) within radius of center, closest
// first. On equal distance the lower index comes first.
func Nearest(center, radius, n int) iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		for d := 0; d <= radius; d++ {
			for _, i := range []int{center - d, center + d} {
				if i < 0 || i >= n {
					continue
				}
				if !yield(i, d) {
					return
				}
				if d == 0 {
					break
				}
			}
		}
	}
}
