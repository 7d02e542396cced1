// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bitcoind

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// blockVerbosity selects the getblock form with txids.
const blockVerbosity = 1

var (
	// ErrUnknownChain is returned when the daemon reports a chain name
	// with no known parameters.
	ErrUnknownChain = errors.New("unknown chain")
)

type blockResult struct {
	Hash          *string  `json:"hash" validate:"required"`
	Height        *int32   `json:"height" validate:"required"`
	Confirmations *int64   `json:"confirmations" validate:"required"`
	Time          *int64   `json:"time" validate:"required"`
	MedianTime    *int64   `json:"mediantime" validate:"required"`
	Tx            []string `json:"tx" validate:"required"`
}

func (r *blockResult) toBlockInfo() (*BlockInfo, error) {
	hash, err := parseHash(*r.Hash)
	if err != nil {
		return nil, err
	}

	txids := make([]chainhash.Hash, 0, len(r.Tx))
	for _, s := range r.Tx {
		txid, err := parseHash(s)
		if err != nil {
			return nil, err
		}
		txids = append(txids, txid)
	}

	return &BlockInfo{
		Hash:          hash,
		Height:        *r.Height,
		Confirmations: *r.Confirmations,
		Time:          time.Unix(*r.Time, 0),
		MedianTime:    time.Unix(*r.MedianTime, 0),
		Tx:            txids,
	}, nil
}

// GetBlock returns the header data and txids of a block.
func (c *Client) GetBlock(ctx context.Context,
	hash chainhash.Hash) (*BlockInfo, error) {

	const method = "getblock"

	args := []interface{}{hash.String(), blockVerbosity}

	var res blockResult
	if err := c.nodeCall(ctx, method, args, &res); err != nil {
		return nil, err
	}

	info, err := res.toBlockInfo()
	if err != nil {
		return nil, decodeError(method, fn.None[string](), err)
	}

	return info, nil
}

// GetBlockCount returns the height of the best chain.
func (c *Client) GetBlockCount(ctx context.Context) (int32, error) {
	var height int32
	if err := c.nodeCall(ctx, "getblockcount", nil, &height); err != nil {
		return 0, err
	}

	return height, nil
}

// GenerateToAddress mines n blocks paying the coinbase to addr and returns
// their hashes. Only available on regtest.
func (c *Client) GenerateToAddress(ctx context.Context, n int64,
	addr btcutil.Address,
	maxTries fn.Option[int64]) ([]chainhash.Hash, error) {

	const method = "generatetoaddress"

	encoded, err := c.addressArg(addr)
	if err != nil {
		return nil, encodeError(method, fn.None[string](), err)
	}

	args := []interface{}{n, encoded, optArg(maxTries)}

	var res []string
	if err := c.nodeCall(ctx, method, args, &res); err != nil {
		return nil, err
	}

	hashes := make([]chainhash.Hash, 0, len(res))
	for _, s := range res {
		hash, err := parseHash(s)
		if err != nil {
			return nil, decodeError(method, fn.None[string](), err)
		}
		hashes = append(hashes, hash)
	}

	return hashes, nil
}

type blockchainInfoResult struct {
	Chain                *string `json:"chain" validate:"required"`
	Blocks               *int32  `json:"blocks" validate:"required"`
	Headers              *int32  `json:"headers" validate:"required"`
	BestBlockHash        *string `json:"bestblockhash" validate:"required"`
	MedianTime           *int64  `json:"mediantime" validate:"required"`
	InitialBlockDownload *bool   `json:"initialblockdownload" validate:"required"`
}

// GetBlockchainInfo returns the state of the best chain.
func (c *Client) GetBlockchainInfo(ctx context.Context) (*BlockchainInfo,
	error) {

	const method = "getblockchaininfo"

	var res blockchainInfoResult
	if err := c.nodeCall(ctx, method, nil, &res); err != nil {
		return nil, err
	}

	best, err := parseHash(*res.BestBlockHash)
	if err != nil {
		return nil, decodeError(method, fn.None[string](), err)
	}

	return &BlockchainInfo{
		Chain:                *res.Chain,
		Blocks:               *res.Blocks,
		Headers:              *res.Headers,
		BestBlockHash:        best,
		MedianTime:           time.Unix(*res.MedianTime, 0),
		InitialBlockDownload: *res.InitialBlockDownload,
	}, nil
}

// ParamsForChain maps a chain name reported by bitcoind to its network
// parameters.
func ParamsForChain(chain string) (*chaincfg.Params, error) {
	switch chain {
	case "main":
		return &chaincfg.MainNetParams, nil

	case "test":
		return &chaincfg.TestNet3Params, nil

	case "signet":
		return &chaincfg.SigNetParams, nil

	case "regtest":
		return &chaincfg.RegressionNetParams, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownChain, chain)
	}
}

// Network returns the parameters of the chain the daemon runs on.
func (c *Client) Network(ctx context.Context) (*chaincfg.Params, error) {
	info, err := c.GetBlockchainInfo(ctx)
	if err != nil {
		return nil, err
	}

	params, err := ParamsForChain(info.Chain)
	if err != nil {
		return nil, decodeError("getblockchaininfo", fn.None[string](),
			err)
	}

	return params, nil
}

// MedianTime returns the median time past of the best block.
func (c *Client) MedianTime(ctx context.Context) (time.Time, error) {
	info, err := c.GetBlockchainInfo(ctx)
	if err != nil {
		return time.Time{}, err
	}

	return info.MedianTime, nil
}
