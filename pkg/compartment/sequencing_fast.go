//go:build blofeld_fast

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

// sequencer is compiled out of fast builds.
type sequencer struct{}

func (sequencer) beforeCarry() error     { return nil }
func (sequencer) beforeApply(bool) error { return nil }
func (sequencer) markCarried()           {}
func (sequencer) markApplied()           {}
func (sequencer) pending() bool          { return false }
