// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package collab

// State is the state of a session.
type State uint8

const (
	// StateInit is the state of a session that has not run.
	StateInit State = iota

	// StateFunding is entered while parties fund their share.
	StateFunding

	// StateJoining is entered while the funded PSBTs are joined.
	StateJoining

	// StateReconstructing is entered while the shared output is
	// collapsed and the PSBT rebuilt.
	StateReconstructing

	// StateSigning is entered while parties sign in turn.
	StateSigning

	// StateFinalizing is entered while the PSBT is finalized.
	StateFinalizing

	// StateBroadcasting is entered while the transaction is submitted.
	StateBroadcasting

	// StateBroadcast is the terminal state of a successful session.
	StateBroadcast

	// StateSigningIncomplete is the terminal state of a session whose
	// PSBT is still missing signatures after every party signed.
	StateSigningIncomplete

	// StateFundingFailed is the terminal state of a session in which a
	// party could not fund its share.
	StateFundingFailed

	// StateFailed is the terminal state of any other failure.
	StateFailed
)

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateFunding:
		return "funding"
	case StateJoining:
		return "joining"
	case StateReconstructing:
		return "reconstructing"
	case StateSigning:
		return "signing"
	case StateFinalizing:
		return "finalizing"
	case StateBroadcasting:
		return "broadcasting"
	case StateBroadcast:
		return "broadcast"
	case StateSigningIncomplete:
		return "signing incomplete"
	case StateFundingFailed:
		return "funding failed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal returns true if the session cannot advance from s.
func (s State) IsTerminal() bool {
	return s >= StateBroadcast
}
