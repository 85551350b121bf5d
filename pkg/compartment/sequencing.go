//go:build !blofeld_fast

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

package compartment

import (
	"fmt"

	"github.com/ku-awdc/blofeld/pkg/core"
)

// sequencer enforces that carry is drained exactly once per step.
type sequencer struct {
	carried bool
}

func (s *sequencer) beforeCarry() error {
	if s.carried {
		return fmt.Errorf("%w: carry extracted twice without applying changes", core.ErrSequencing)
	}
	return nil
}

// beforeApply requires a carry extraction since the last commit unless the
// compartment is exempt: sinks and compartments without a chain.
func (s *sequencer) beforeApply(exempt bool) error {
	if !exempt && !s.carried {
		return fmt.Errorf("%w: changes applied without a carry extraction since the last commit", core.ErrSequencing)
	}
	return nil
}

func (s *sequencer) markCarried()  { s.carried = true }
func (s *sequencer) markApplied()  { s.carried = false }
func (s *sequencer) pending() bool { return s.carried }
