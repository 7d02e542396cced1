// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bitcoind

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"
)

type psbtInputArg struct {
	TxID     string  `json:"txid"`
	Vout     uint32  `json:"vout"`
	Sequence *uint32 `json:"sequence,omitempty"`
}

// outputsArg encodes outputs as an ordered list of single entry objects. The
// list form keeps the caller's order, which a plain object would not.
func (c *Client) outputsArg(outputs []Output) ([]map[string]json.Number,
	error) {

	seen := make(map[string]struct{}, len(outputs))
	encoded := make([]map[string]json.Number, 0, len(outputs))

	for _, out := range outputs {
		addr, err := c.addressArg(out.Address)
		if err != nil {
			return nil, err
		}

		if _, ok := seen[addr]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateOutput, addr)
		}
		seen[addr] = struct{}{}

		amount, err := amountArg(out.Amount)
		if err != nil {
			return nil, err
		}

		encoded = append(encoded, map[string]json.Number{addr: amount})
	}

	return encoded, nil
}

// fundOptsArg encodes the options object, leaving out every absent member.
func (c *Client) fundOptsArg(opts FundPsbtOpts) (map[string]interface{},
	error) {

	obj := make(map[string]interface{})
	set := func(key string, value interface{}) {
		if value != nil {
			obj[key] = value
		}
	}

	set("add_inputs", optArg(opts.AddInputs))
	set("changePosition", optArg(opts.ChangePosition))
	set("change_type", optArg(opts.ChangeType))
	set("includeWatching", optArg(opts.IncludeWatching))
	set("lockUnspents", optArg(opts.LockUnspents))
	set("fee_rate", feeRateArg(opts.FeeRate))
	set("subtractFeeFromOutputs", optArg(opts.SubtractFeeFromOutputs))
	set("replaceable", optArg(opts.Replaceable))
	set("conf_target", optArg(opts.ConfTarget))
	set("estimate_mode", optArg(opts.EstimateMode))

	var addrErr error
	opts.ChangeAddress.WhenSome(func(addr btcutil.Address) {
		var encoded string
		encoded, addrErr = c.addressArg(addr)
		set("changeAddress", encoded)
	})
	if addrErr != nil {
		return nil, addrErr
	}

	return obj, nil
}

type fundedPsbtResult struct {
	Psbt      *string      `json:"psbt" validate:"required"`
	Fee       *json.Number `json:"fee" validate:"required"`
	ChangePos *int32       `json:"changepos" validate:"required"`
}

// WalletCreateFundedPsbt creates a PSBT paying the given outputs, in order,
// and lets the wallet add inputs and a change output. The change position
// is chosen by the daemon and must not be assumed stable.
func (c *Client) WalletCreateFundedPsbt(ctx context.Context, wallet string,
	inputs []PsbtInput, outputs []Output, locktime fn.Option[uint32],
	opts fn.Option[FundPsbtOpts],
	bip32Derivs fn.Option[bool]) (*FundedPsbt, error) {

	const method = "walletcreatefundedpsbt"

	inputArgs := make([]psbtInputArg, 0, len(inputs))
	for _, in := range inputs {
		arg := psbtInputArg{
			TxID: in.OutPoint.Hash.String(),
			Vout: in.OutPoint.Index,
		}
		in.Sequence.WhenSome(func(seq uint32) {
			arg.Sequence = &seq
		})
		inputArgs = append(inputArgs, arg)
	}

	outputArgs, err := c.outputsArg(outputs)
	if err != nil {
		return nil, encodeError(method, fn.Some(wallet), err)
	}

	var optsArg interface{}
	if opts.IsSome() {
		obj, err := c.fundOptsArg(opts.UnwrapOr(FundPsbtOpts{}))
		if err != nil {
			return nil, encodeError(method, fn.Some(wallet), err)
		}
		optsArg = obj
	}

	args := []interface{}{
		inputArgs,
		outputArgs,
		optArg(locktime),
		optsArg,
		optArg(bip32Derivs),
	}

	var res fundedPsbtResult
	if err := c.walletCall(ctx, wallet, method, args, &res); err != nil {
		return nil, err
	}

	fee, err := parseAmount(res.Fee)
	if err != nil {
		return nil, decodeError(method, fn.Some(wallet), err)
	}

	return &FundedPsbt{
		Psbt:      *res.Psbt,
		Fee:       fee,
		ChangePos: *res.ChangePos,
	}, nil
}

// JoinPsbts merges the inputs and outputs of several PSBTs into one.
func (c *Client) JoinPsbts(ctx context.Context,
	psbts []string) (string, error) {

	var merged string
	err := c.nodeCall(ctx, "joinpsbts", []interface{}{psbts}, &merged)
	if err != nil {
		return "", err
	}

	return merged, nil
}

type processedPsbtResult struct {
	Psbt     *string `json:"psbt" validate:"required"`
	Complete *bool   `json:"complete" validate:"required"`
}

// WalletProcessPsbt updates a PSBT with the wallet's input data and, unless
// sign is false, its signatures.
func (c *Client) WalletProcessPsbt(ctx context.Context, wallet, psbt string,
	sign fn.Option[bool], sighashType fn.Option[string],
	bip32Derivs fn.Option[bool]) (*ProcessedPsbt, error) {

	args := []interface{}{
		psbt,
		optArg(sign),
		optArg(sighashType),
		optArg(bip32Derivs),
	}

	var res processedPsbtResult
	err := c.walletCall(ctx, wallet, "walletprocesspsbt", args, &res)
	if err != nil {
		return nil, err
	}

	return &ProcessedPsbt{Psbt: *res.Psbt, Complete: *res.Complete}, nil
}

type finalizedPsbtResult struct {
	Psbt     *string `json:"psbt"`
	Hex      *string `json:"hex"`
	Complete *bool   `json:"complete" validate:"required"`
}

// FinalizePsbt finalizes the inputs of a PSBT. When the PSBT is complete and
// extraction is not disabled, the network transaction is returned.
func (c *Client) FinalizePsbt(ctx context.Context, psbt string,
	extract fn.Option[bool]) (*FinalizedPsbt, error) {

	const method = "finalizepsbt"

	args := []interface{}{psbt, optArg(extract)}

	var res finalizedPsbtResult
	if err := c.nodeCall(ctx, method, args, &res); err != nil {
		return nil, err
	}

	tx := fn.None[*wire.MsgTx]()
	if res.Hex != nil {
		decoded, err := decodeTx(*res.Hex)
		if err != nil {
			return nil, decodeError(method, fn.None[string](), err)
		}
		tx = fn.Some(decoded)
	}

	return &FinalizedPsbt{
		Psbt:     optValue(res.Psbt),
		Tx:       tx,
		Complete: *res.Complete,
	}, nil
}
