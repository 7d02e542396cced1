// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package collab

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
)

// countOutputs returns the number of outputs of tx paying pkScript.
func countOutputs(tx *wire.MsgTx, pkScript []byte) int {
	var n int
	for _, out := range tx.TxOut {
		if bytes.Equal(out.PkScript, pkScript) {
			n++
		}
	}

	return n
}

// DedupeSharedOutput collapses the copies of a shared output in a joined
// transaction into a single output.
//
// The transaction must pay pkScript exactly copies times. The result pays
// pkScript once, with the given total, at the position of the first copy.
// Every other output is kept in order and unchanged, as are the inputs,
// version and lock time. The total is the amount the parties agreed on; it
// is never derived from the duplicated entries. The input transaction is not
// modified.
func DedupeSharedOutput(tx *wire.MsgTx, pkScript []byte,
	total btcutil.Amount, copies int) (*wire.MsgTx, error) {

	if total <= 0 {
		return nil, fmt.Errorf("%w: total %v", ErrInvalidAmount, total)
	}

	if n := countOutputs(tx, pkScript); copies < 1 || n != copies {
		return nil, fmt.Errorf("%w: want %d, got %d",
			ErrSharedOutputCount, copies, n)
	}

	deduped := tx.Copy()
	outputs := deduped.TxOut
	deduped.TxOut = make([]*wire.TxOut, 0, len(outputs)-copies+1)

	var inserted bool
	for _, out := range outputs {
		if !bytes.Equal(out.PkScript, pkScript) {
			deduped.TxOut = append(deduped.TxOut, out)

			continue
		}

		if inserted {
			continue
		}

		out.Value = int64(total)
		deduped.TxOut = append(deduped.TxOut, out)
		inserted = true
	}

	return deduped, nil
}
