// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package collab drives a collaborative PSBT session: several wallets fund
// one transaction toward a shared output, the funded PSBTs are joined, the
// duplicated shared output is collapsed, every party signs in turn and the
// final transaction is broadcast.
package collab

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcharness/bitcoind"
	"github.com/btcsuite/btcharness/pkg/btcunit"
	"github.com/davecgh/go-spew/spew"
	"github.com/lightningnetwork/lnd/fn/v2"
	"golang.org/x/sync/errgroup"
)

// Party is a wallet taking part in a session.
type Party interface {
	// Name identifies the party. It must be unique within a session.
	Name() string

	// FundPsbt creates a PSBT paying outputs, funded from the party's
	// own coins with change back to the party.
	FundPsbt(ctx context.Context, outputs []bitcoind.Output,
		opts fn.Option[bitcoind.FundPsbtOpts]) (*bitcoind.FundedPsbt,
		error)

	// ProcessPsbt attaches the party's signatures to a PSBT.
	ProcessPsbt(ctx context.Context,
		psbt string) (*bitcoind.ProcessedPsbt, error)
}

// Coordinator performs the node-global steps of a session.
type Coordinator interface {
	// JoinPsbts merges PSBTs into one.
	JoinPsbts(ctx context.Context, psbts []string) (string, error)

	// FinalizePsbt finalizes a PSBT and extracts the transaction when
	// complete.
	FinalizePsbt(ctx context.Context,
		psbt string) (*bitcoind.FinalizedPsbt, error)

	// BroadcastTx submits a signed transaction.
	BroadcastTx(ctx context.Context, tx *wire.MsgTx) (chainhash.Hash,
		error)
}

// Contribution is the amount a party funds toward the shared output.
type Contribution struct {
	Party  Party
	Amount btcutil.Amount
}

// Target is the shared output every party funds.
type Target struct {
	// Address is the shared address.
	Address btcutil.Address

	// Total is the agreed value of the shared output. When None, it is
	// the sum of the contributions.
	Total fn.Option[btcutil.Amount]
}

// Config is the configuration of a session.
type Config struct {
	// Target is the shared output.
	Target Target

	// Contributions lists the parties in signing order.
	Contributions []Contribution

	// Coordinator joins, finalizes and broadcasts.
	Coordinator Coordinator

	// FundOpts are passed to every funding call.
	FundOpts fn.Option[bitcoind.FundPsbtOpts]
}

// Result is the outcome of a session.
type Result struct {
	// State is the terminal state reached.
	State State

	// TxID is set once broadcast succeeded.
	TxID fn.Option[chainhash.Hash]

	// Tx is the final transaction, set once finalization succeeded.
	Tx fn.Option[*wire.MsgTx]

	// Fee is the fee the final transaction pays, set with Tx. It is what
	// the funding wallets added, adjusted by the difference between the
	// contributions and the agreed total.
	Fee fn.Option[btcutil.Amount]

	// FeeRate is the fee rate of the final transaction, set with Tx.
	FeeRate fn.Option[btcunit.SatPerVByte]

	// Psbt is the last PSBT produced by the session.
	Psbt string
}

// Session runs one collaborative transaction. A session is single use.
type Session struct {
	cfg      Config
	pkScript []byte
	sum      btcutil.Amount
	total    btcutil.Amount
	state    State
	started  atomic.Bool
}

// NewSession validates cfg and prepares a session.
func NewSession(cfg Config) (*Session, error) {
	if len(cfg.Contributions) == 0 {
		return nil, ErrNoParties
	}

	if cfg.Target.Address == nil {
		return nil, ErrMissingTarget
	}

	if cfg.Coordinator == nil {
		return nil, ErrMissingCoordinator
	}

	var (
		sum   btcutil.Amount
		names = make(map[string]struct{}, len(cfg.Contributions))
	)
	for _, c := range cfg.Contributions {
		name := c.Party.Name()
		if _, ok := names[name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateParty, name)
		}
		names[name] = struct{}{}

		if c.Amount <= 0 {
			return nil, fmt.Errorf("%w: %s contributes %v",
				ErrInvalidAmount, name, c.Amount)
		}
		sum += c.Amount
	}

	total := cfg.Target.Total.UnwrapOr(sum)
	if total <= 0 {
		return nil, fmt.Errorf("%w: total %v", ErrInvalidAmount, total)
	}

	pkScript, err := txscript.PayToAddrScript(cfg.Target.Address)
	if err != nil {
		return nil, fmt.Errorf("target script: %w", err)
	}

	return &Session{
		cfg:      cfg,
		pkScript: pkScript,
		sum:      sum,
		total:    total,
		state:    StateInit,
	}, nil
}

// State returns the state the session is in.
func (s *Session) State() State {
	return s.state
}

// Total returns the agreed value of the shared output.
func (s *Session) Total() btcutil.Amount {
	return s.total
}

// Run executes the session to a terminal state.
//
// A funding failure ends in StateFundingFailed with ErrFundingFailed. An
// incomplete finalization ends in StateSigningIncomplete with an
// *IncompleteError. Any other failure ends in StateFailed. Every failure is
// wrapped in a *StepError. No step is retried.
//
// A second call returns ErrSessionUsed without contacting any party.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	if !s.started.CompareAndSwap(false, true) {
		return nil, ErrSessionUsed
	}

	result := &Result{}

	fail := func(state State, err error) (*Result, error) {
		s.state = state
		result.State = state

		log.Errorf("Session aborted in %v: %v", state, err)

		return result, err
	}

	s.state = StateFunding
	funded, fees, err := s.fund(ctx)
	if err != nil {
		return fail(StateFundingFailed, err)
	}

	s.state = StateJoining
	joined, err := s.cfg.Coordinator.JoinPsbts(ctx, funded)
	if err != nil {
		return fail(StateFailed, s.stepErr(err))
	}
	result.Psbt = joined

	s.state = StateReconstructing
	rebuilt, err := s.reconstruct(joined)
	if err != nil {
		return fail(StateFailed, s.stepErr(err))
	}
	result.Psbt = rebuilt

	s.state = StateSigning
	signed, err := s.sign(ctx, rebuilt, result)
	if err != nil {
		return fail(StateFailed, err)
	}

	s.state = StateFinalizing
	final, err := s.cfg.Coordinator.FinalizePsbt(ctx, signed)
	if err != nil {
		return fail(StateFailed, s.stepErr(err))
	}

	if !final.Complete {
		result.Psbt = final.Psbt.UnwrapOr(signed)

		return fail(StateSigningIncomplete, &StepError{
			Step:  StateFinalizing,
			Party: fn.None[string](),
			Err:   &IncompleteError{Psbt: result.Psbt},
		})
	}

	if final.Tx.IsNone() {
		return fail(StateFailed, s.stepErr(ErrMissingTx))
	}
	tx := final.Tx.UnwrapOr(nil)
	result.Tx = fn.Some(tx)

	fee := fees + s.sum - s.total
	feeRate := btcunit.TxFeeRate(fee, tx)
	result.Fee = fn.Some(fee)
	result.FeeRate = fn.Some(feeRate)

	log.Debugf("Finalized tx %v: %v", tx.TxHash(),
		newLogClosure(func() string {
			return spew.Sdump(tx)
		}))

	s.state = StateBroadcasting
	txid, err := s.cfg.Coordinator.BroadcastTx(ctx, tx)
	if err != nil {
		return fail(StateFailed, s.stepErr(err))
	}

	if txid != tx.TxHash() {
		return fail(StateFailed, s.stepErr(fmt.Errorf("%w: got %v, "+
			"want %v", ErrTxIDMismatch, txid, tx.TxHash())))
	}

	s.state = StateBroadcast
	result.State = StateBroadcast
	result.TxID = fn.Some(txid)

	log.Infof("Broadcast collaborative tx %v with %d parties, fee %v "+
		"(%v)", txid, len(s.cfg.Contributions), fee, feeRate)

	return result, nil
}

// stepErr wraps err with the current state.
func (s *Session) stepErr(err error) error {
	return &StepError{Step: s.state, Party: fn.None[string](), Err: err}
}

// fund asks every party to fund its contribution concurrently and returns
// the funded PSBTs in party order with the sum of the fees they pay.
func (s *Session) fund(ctx context.Context) ([]string, btcutil.Amount,
	error) {

	psbts := make([]string, len(s.cfg.Contributions))
	fees := make([]btcutil.Amount, len(s.cfg.Contributions))

	eg, ctx := errgroup.WithContext(ctx)
	for i, c := range s.cfg.Contributions {
		eg.Go(func() error {
			name := c.Party.Name()
			outputs := []bitcoind.Output{{
				Address: s.cfg.Target.Address,
				Amount:  c.Amount,
			}}

			funded, err := c.Party.FundPsbt(ctx, outputs, s.cfg.FundOpts)
			if err == nil {
				err = s.checkFunded(funded)
			}
			if err != nil {
				return fmt.Errorf("%w: %w", ErrFundingFailed,
					&StepError{
						Step:  StateFunding,
						Party: fn.Some(name),
						Err:   err,
					})
			}

			log.Debugf("Party %s funded %v with fee %v", name,
				c.Amount, funded.Fee)

			psbts[i] = funded.Psbt
			fees[i] = funded.Fee

			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, 0, err
	}

	var total btcutil.Amount
	for _, fee := range fees {
		total += fee
	}

	return psbts, total, nil
}

// checkFunded checks that a funded PSBT pays the shared output once and that
// its change does not pay the shared address.
func (s *Session) checkFunded(funded *bitcoind.FundedPsbt) error {
	packet, err := decodePsbt(funded.Psbt)
	if err != nil {
		return err
	}
	outputs := packet.UnsignedTx.TxOut

	if funded.ChangePos >= 0 {
		if int(funded.ChangePos) >= len(outputs) {
			return fmt.Errorf("%w: %d of %d outputs", ErrChangeIndex,
				funded.ChangePos, len(outputs))
		}

		change := outputs[funded.ChangePos]
		if bytes.Equal(change.PkScript, s.pkScript) {
			return ErrChangeCollision
		}
	}

	if n := countOutputs(packet.UnsignedTx, s.pkScript); n != 1 {
		return fmt.Errorf("%w: want 1, got %d", ErrSharedOutputCount,
			n)
	}

	return nil
}

// reconstruct collapses the shared outputs of the joined PSBT and builds a
// fresh unsigned PSBT from the corrected transaction.
func (s *Session) reconstruct(joined string) (string, error) {
	packet, err := decodePsbt(joined)
	if err != nil {
		return "", err
	}

	tx, err := DedupeSharedOutput(
		packet.UnsignedTx, s.pkScript, s.total, len(s.cfg.Contributions),
	)
	if err != nil {
		return "", err
	}

	rebuilt, err := psbt.NewFromUnsignedTx(tx)
	if err != nil {
		return "", fmt.Errorf("build psbt: %w", err)
	}

	encoded, err := rebuilt.B64Encode()
	if err != nil {
		return "", fmt.Errorf("encode psbt: %w", err)
	}

	log.Debugf("Reconstructed tx with %d inputs and %d outputs: %v",
		len(tx.TxIn), len(tx.TxOut), newLogClosure(func() string {
			return spew.Sdump(tx)
		}))

	return encoded, nil
}

// sign passes the PSBT through every party in order, each consuming the
// output of the previous one.
func (s *Session) sign(ctx context.Context, current string,
	result *Result) (string, error) {

	for _, c := range s.cfg.Contributions {
		name := c.Party.Name()

		processed, err := c.Party.ProcessPsbt(ctx, current)
		if err != nil {
			return "", &StepError{
				Step:  StateSigning,
				Party: fn.Some(name),
				Err:   err,
			}
		}

		current = processed.Psbt
		result.Psbt = current

		log.Debugf("Party %s signed, complete=%v", name,
			processed.Complete)
	}

	return current, nil
}

// decodePsbt parses a base64 PSBT.
func decodePsbt(b64 string) (*psbt.Packet, error) {
	packet, err := psbt.NewFromRawBytes(strings.NewReader(b64), true)
	if err != nil {
		return nil, fmt.Errorf("decode psbt: %w", err)
	}

	return packet, nil
}
