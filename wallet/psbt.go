// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcharness/bitcoind"
	"github.com/btcsuite/btcharness/collab"
	"github.com/btcsuite/btcharness/pkg/btcunit"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// FundPsbt asks the wallet to fund a PSBT paying the given outputs. The
// wallet selects its own inputs and may append a change output at a position
// of its choosing.
func (w *Wallet) FundPsbt(ctx context.Context, outputs []bitcoind.Output,
	opts fn.Option[bitcoind.FundPsbtOpts]) (*bitcoind.FundedPsbt, error) {

	return w.client.WalletCreateFundedPsbt(
		ctx, w.name, nil, outputs, fn.None[uint32](), opts,
		fn.None[bool](),
	)
}

// ProcessPsbt attaches the wallet's input data and signatures to a PSBT.
func (w *Wallet) ProcessPsbt(ctx context.Context,
	psbt string) (*bitcoind.ProcessedPsbt, error) {

	return w.client.WalletProcessPsbt(
		ctx, w.name, psbt, fn.Some(true), fn.None[string](),
		fn.None[bool](),
	)
}

// JoinPsbts merges PSBTs on the node the wallet lives on.
func (w *Wallet) JoinPsbts(ctx context.Context,
	psbts []string) (string, error) {

	return w.client.JoinPsbts(ctx, psbts)
}

// FinalizePsbt finalizes a PSBT and extracts the transaction when complete.
func (w *Wallet) FinalizePsbt(ctx context.Context,
	psbt string) (*bitcoind.FinalizedPsbt, error) {

	return w.client.FinalizePsbt(ctx, psbt, fn.None[bool]())
}

// BroadcastTx submits a signed transaction to the node's mempool.
func (w *Wallet) BroadcastTx(ctx context.Context,
	tx *wire.MsgTx) (chainhash.Hash, error) {

	return w.client.SendRawTransaction(
		ctx, tx, fn.None[btcunit.SatPerKVByte](),
	)
}

var (
	_ collab.Party       = (*Wallet)(nil)
	_ collab.Coordinator = (*Wallet)(nil)
)
