// Package engine drives groups through time.
//
// Run steps one group, checking its context between steps and notifying
// observers of every committed state. RunEnsemble runs independent replicates
// of a model concurrently, each built by a Factory, and stops every replicate
// at the first failure.
package engine
