/*
Copyright 2025 The blofeld Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package random

import (
	"fmt"

	"github.com/ku-awdc/blofeld/pkg/core"
)

// Multinomial draws n individuals into len(probs) categories by sequential
// conditional binomials, writing the counts to out. The probabilities may sum
// to less than one; the individuals left in no category are returned.
func Multinomial(src Source, n int, probs []float64, out []int) int {
	remaining := n
	mass := 1.0
	for i, p := range probs {
		if remaining == 0 || p <= 0 {
			out[i] = 0
			mass -= max(p, 0)
			continue
		}
		cond := 1.0
		if mass > p {
			cond = p / mass
		}
		k := src.Binomial(remaining, cond)
		out[i] = k
		remaining -= k
		mass -= p
	}
	return remaining
}

// Spread scatters n individuals over len(out) slots with equal probability.
// The counts always sum to exactly n.
func Spread(src Source, n int, out []int) {
	slots := len(out)
	if slots == 0 {
		return
	}
	remaining := n
	for i := 0; i < slots-1; i++ {
		k := src.Binomial(remaining, 1/float64(slots-i))
		out[i] = k
		remaining -= k
	}
	out[slots-1] = remaining
}

// Remove picks k individuals uniformly without replacement from slots holding
// counts and writes how many come from each slot to out.
func Remove(src Source, k int, counts []int, out []int) error {
	left := 0
	for _, c := range counts {
		if c < 0 {
			return fmt.Errorf("%w: negative count %d", core.ErrInvalidArgument, c)
		}
		left += c
	}
	if k < 0 || k > left {
		return fmt.Errorf("%w: cannot remove %d of %d individuals", core.ErrInvalidArgument, k, left)
	}
	for i, c := range counts {
		if i == len(counts)-1 {
			out[i] = k
			break
		}
		// hypergeometric draw as k sequential trials
		taken := 0
		for j := 0; j < k && taken < c; j++ {
			p := float64(c-taken) / float64(left-j)
			taken += src.Binomial(1, p)
		}
		out[i] = taken
		k -= taken
		left -= c
	}
	return nil
}
