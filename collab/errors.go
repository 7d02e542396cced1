// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package collab

import (
	"errors"
	"fmt"

	"github.com/lightningnetwork/lnd/fn/v2"
)

var (
	// ErrFundingFailed is returned when a party could not fund its share.
	// No transaction exists yet, so nothing can have been broadcast.
	ErrFundingFailed = errors.New("funding failed")

	// ErrSigningIncomplete is returned when finalization reports missing
	// signatures after every party signed. It is terminal for the
	// session; the last PSBT travels with the error.
	ErrSigningIncomplete = errors.New("signing incomplete")

	// ErrSharedOutputCount is returned when a PSBT does not carry the
	// expected number of shared outputs.
	ErrSharedOutputCount = errors.New("unexpected number of shared " +
		"outputs")

	// ErrChangeCollision is returned when a party's change output pays the
	// shared address. Such a change output cannot be told apart from the
	// shared output after joining.
	ErrChangeCollision = errors.New("change output pays the shared " +
		"address")

	// ErrChangeIndex is returned when the reported change position does
	// not exist in the funded PSBT.
	ErrChangeIndex = errors.New("change position out of range")

	// ErrMissingTx is returned when a complete finalization does not carry
	// the network transaction.
	ErrMissingTx = errors.New("finalized psbt has no transaction")

	// ErrTxIDMismatch is returned when the daemon reports a different txid
	// for the broadcast transaction.
	ErrTxIDMismatch = errors.New("broadcast txid mismatch")

	// ErrNoParties is returned when a session has no contributions.
	ErrNoParties = errors.New("session needs at least one party")

	// ErrDuplicateParty is returned when two contributions come from
	// parties with the same name.
	ErrDuplicateParty = errors.New("duplicate party")

	// ErrInvalidAmount is returned for a non-positive contribution or
	// total.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrMissingTarget is returned when the session has no target
	// address.
	ErrMissingTarget = errors.New("missing target address")

	// ErrMissingCoordinator is returned when the session has no
	// coordinator.
	ErrMissingCoordinator = errors.New("missing coordinator")

	// ErrSessionUsed is returned when Run is called on a session that has
	// already run.
	ErrSessionUsed = errors.New("session already run")
)

// StepError is the failure of a session step.
type StepError struct {
	// Step is the state the session was in.
	Step State

	// Party is the party whose call failed, if the step is per party.
	Party fn.Option[string]

	// Err is the underlying failure.
	Err error
}

// Error returns a human readable description of the failed step.
func (e *StepError) Error() string {
	step := e.Step.String()
	e.Party.WhenSome(func(name string) {
		step = fmt.Sprintf("%s (party %s)", step, name)
	})

	return fmt.Sprintf("%s: %v", step, e.Err)
}

// Unwrap returns the underlying failure.
func (e *StepError) Unwrap() error {
	return e.Err
}

// IncompleteError reports a PSBT that is still missing signatures after
// every party processed it.
type IncompleteError struct {
	// Psbt is the last PSBT state, as returned by finalization.
	Psbt string
}

// Error returns a human readable description of the failure.
func (e *IncompleteError) Error() string {
	return ErrSigningIncomplete.Error()
}

// Unwrap makes errors.Is match ErrSigningIncomplete.
func (e *IncompleteError) Unwrap() error {
	return ErrSigningIncomplete
}
