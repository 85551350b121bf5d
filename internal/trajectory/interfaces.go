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

package trajectory

// Reader provides read-only access to recorded trajectories.
// This interface is used by the CLI to report a finished ensemble.
type Reader interface {
	// Series returns the points of one replicate in step order.
	// Returns nil if the replicate has not recorded anything.
	Series(replicate int) []Point

	// Final returns the last point of one replicate.
	Final(replicate int) (Point, bool)

	// Replicates returns the replicates that recorded at least one point, sorted.
	Replicates() []int

	// Quantiles returns, for every step, the given quantiles of one
	// compartment's total across replicates. Every quantile must lie in [0, 1].
	Quantiles(compartment string, qs []float64) ([]Summary, error)
}

// Writer provides write access to the store.
// This interface is used by the engine observer while replicates run.
type Writer interface {
	// Append stores one point of a replicate. Points must arrive in step order.
	Append(replicate int, p Point) error

	// Reset drops every recorded point.
	Reset()
}

// ReadWriter combines both read and write access to the store.
type ReadWriter interface {
	Reader
	Writer
}
