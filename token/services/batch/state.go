/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package batch

// State of a Job. A job moves forward only: Initializing, Dispatching, Draining and then
// Finalized, or Aborted from any earlier state.
type State int32

const (
	Initializing State = iota
	Dispatching
	Draining
	Finalized
	Aborted
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "Initializing"
	case Dispatching:
		return "Dispatching"
	case Draining:
		return "Draining"
	case Finalized:
		return "Finalized"
	case Aborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}
