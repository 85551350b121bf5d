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

package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument marks a negative amount, a proportion sum above one,
	// an invalid shape or an out of domain parameter.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrSequencing marks a commit or carry extraction made out of step order.
	ErrSequencing = errors.New("sequencing error")
	// ErrConservationViolation marks a step whose named totals no longer
	// cancel against the balance compartment.
	ErrConservationViolation = errors.New("conservation violation")
	// ErrOutOfRange marks an index or resize beyond a container's maximum.
	ErrOutOfRange = errors.New("out of range")
)

// StepError records which step of a model failed.
type StepError struct {
	Step int
	Time float64
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (time %g): %v", e.Step, e.Time, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
