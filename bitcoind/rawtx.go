// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bitcoind

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcharness/pkg/btcunit"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// SendRawTransaction submits a signed transaction to the mempool and returns
// its txid. An absent max fee rate leaves the daemon's default in place.
func (c *Client) SendRawTransaction(ctx context.Context, tx *wire.MsgTx,
	maxFeeRate fn.Option[btcunit.SatPerKVByte]) (chainhash.Hash, error) {

	const method = "sendrawtransaction"
	none := fn.None[string]()

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return chainhash.Hash{}, encodeError(method, none, err)
	}

	var maxFee interface{}
	if maxFeeRate.IsSome() {
		rate := maxFeeRate.UnwrapOr(btcunit.ZeroSatPerKVByte)
		btcPerKVB, err := rate.BTCPerKVByte()
		if err != nil {
			return chainhash.Hash{}, encodeError(method, none, err)
		}
		maxFee = json.Number(btcPerKVB)
	}

	args := []interface{}{hex.EncodeToString(buf.Bytes()), maxFee}

	var txid string
	if err := c.nodeCall(ctx, method, args, &txid); err != nil {
		return chainhash.Hash{}, err
	}

	hash, err := parseHash(txid)
	if err != nil {
		return chainhash.Hash{}, decodeError(method, none, err)
	}

	return hash, nil
}

// GetRawTransaction returns a transaction from the mempool or, with
// -txindex, from the chain.
func (c *Client) GetRawTransaction(ctx context.Context,
	txid chainhash.Hash) (*wire.MsgTx, error) {

	const method = "getrawtransaction"

	var raw string
	err := c.nodeCall(
		ctx, method, []interface{}{txid.String(), false}, &raw,
	)
	if err != nil {
		return nil, err
	}

	tx, err := decodeTx(raw)
	if err != nil {
		return nil, decodeError(method, fn.None[string](), err)
	}

	return tx, nil
}

type rawTransactionResult struct {
	TxID          *string `json:"txid" validate:"required"`
	Hex           *string `json:"hex" validate:"required"`
	BlockHash     *string `json:"blockhash"`
	Confirmations *int64  `json:"confirmations"`
	BlockTime     *int64  `json:"blocktime"`
}

func (r *rawTransactionResult) toInfo() (*RawTransactionInfo, error) {
	txid, err := parseHash(*r.TxID)
	if err != nil {
		return nil, err
	}

	tx, err := decodeTx(*r.Hex)
	if err != nil {
		return nil, err
	}

	blockHash := fn.None[chainhash.Hash]()
	if r.BlockHash != nil {
		hash, err := parseHash(*r.BlockHash)
		if err != nil {
			return nil, fmt.Errorf("blockhash: %w", err)
		}
		blockHash = fn.Some(hash)
	}

	blockTime := fn.MapOption(func(ts int64) time.Time {
		return time.Unix(ts, 0)
	})(optValue(r.BlockTime))

	return &RawTransactionInfo{
		TxID:          txid,
		Tx:            tx,
		BlockHash:     blockHash,
		Confirmations: optValue(r.Confirmations),
		BlockTime:     blockTime,
	}, nil
}

// GetRawTransactionVerbose returns a transaction with its chain context. The
// block hash is None while the transaction is unconfirmed.
func (c *Client) GetRawTransactionVerbose(ctx context.Context,
	txid chainhash.Hash) (*RawTransactionInfo, error) {

	const method = "getrawtransaction"

	var res rawTransactionResult
	err := c.nodeCall(ctx, method, []interface{}{txid.String(), true}, &res)
	if err != nil {
		return nil, err
	}

	info, err := res.toInfo()
	if err != nil {
		return nil, decodeError(method, fn.None[string](), err)
	}

	return info, nil
}

// TxBlockHeight returns the height of the block that confirmed txid, or None
// while it is unconfirmed. An unconfirmed transaction is not an error.
func (c *Client) TxBlockHeight(ctx context.Context,
	txid chainhash.Hash) (fn.Option[int32], error) {

	none := fn.None[int32]()

	info, err := c.GetRawTransactionVerbose(ctx, txid)
	if err != nil {
		return none, err
	}

	if info.BlockHash.IsNone() {
		return none, nil
	}

	block, err := c.GetBlock(ctx, info.BlockHash.UnwrapOr(chainhash.Hash{}))
	if err != nil {
		return none, err
	}

	return fn.Some(block.Height), nil
}
