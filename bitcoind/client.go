// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package bitcoind provides a typed client for the bitcoind JSON-RPC
// interface. Every method maps to exactly one daemon command. Arguments are
// sent positionally, with absent optional arguments encoded as null so the
// daemon applies its own defaults. Amounts are btcutil.Amount values and are
// converted exactly to and from the decimal coin values used on the wire.
package bitcoind

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcharness/pkg/btcunit"
	"github.com/btcsuite/btcharness/rpc"
	"github.com/lightningnetwork/lnd/fn/v2"
)

var (
	// ErrNegativeAmount is returned when a negative amount is passed where
	// a payment amount is expected.
	ErrNegativeAmount = errors.New("amount must not be negative")

	// ErrWrongNetwork is returned when an address does not belong to the
	// network the client is configured for.
	ErrWrongNetwork = errors.New("address is for a different network")

	// ErrDuplicateOutput is returned when the same address appears twice
	// in an output list.
	ErrDuplicateOutput = errors.New("duplicate output address")

	// ErrInvalidTxID is returned when a transaction id is not 64 hex
	// characters.
	ErrInvalidTxID = errors.New("invalid transaction id")
)

// txidLen is the length of a hex encoded transaction or block hash.
const txidLen = chainhash.MaxHashStringSize

// Config is the configuration of a Client.
type Config struct {
	// RPC is the connection configuration.
	RPC rpc.Config

	// ChainParams is the network of the daemon, used to encode and
	// decode addresses. Defaults to regtest.
	ChainParams *chaincfg.Params
}

// Client is a typed bitcoind JSON-RPC client. It holds no state besides its
// immutable configuration and is safe for concurrent use.
type Client struct {
	rpc         *rpc.Client
	chainParams *chaincfg.Params
}

// New creates a client over HTTP from the given config.
func New(cfg *Config) (*Client, error) {
	rpcClient, err := rpc.Dial(&cfg.RPC)
	if err != nil {
		return nil, err
	}

	return NewFromRPC(rpcClient, cfg.ChainParams), nil
}

// NewFromRPC creates a client on top of an existing rpc client. A nil params
// selects regtest.
func NewFromRPC(rpcClient *rpc.Client, params *chaincfg.Params) *Client {
	if params == nil {
		params = &chaincfg.RegressionNetParams
	}

	return &Client{
		rpc:         rpcClient,
		chainParams: params,
	}
}

// ChainParams returns the network the client encodes addresses for.
func (c *Client) ChainParams() *chaincfg.Params {
	return c.chainParams
}

// nodeCall issues a call against the node-global endpoint.
func (c *Client) nodeCall(ctx context.Context, method string,
	args []interface{}, result interface{}) error {

	return c.rpc.Call(ctx, fn.None[string](), method, args, result)
}

// walletCall issues a call against the endpoint of the named wallet.
func (c *Client) walletCall(ctx context.Context, wallet, method string,
	args []interface{}, result interface{}) error {

	return c.rpc.Call(ctx, fn.Some(wallet), method, args, result)
}

// encodeError reports an argument that cannot be sent. It is raised before
// any I/O.
func encodeError(method string, wallet fn.Option[string], err error) error {
	return &rpc.CallError{
		Method: method,
		Wallet: wallet,
		Err:    fmt.Errorf("%w: %w", rpc.ErrEncoding, err),
	}
}

// decodeError reports a result that was received but could not be turned
// into its domain type.
func decodeError(method string, wallet fn.Option[string], err error) error {
	return &rpc.CallError{
		Method: method,
		Wallet: wallet,
		Err:    fmt.Errorf("%w: %w", rpc.ErrDecode, err),
	}
}

// optArg returns the value of o, or nil when absent so that it is sent as
// null.
func optArg[T any](o fn.Option[T]) interface{} {
	var arg interface{}
	o.WhenSome(func(v T) {
		arg = v
	})

	return arg
}

// amountArg converts an amount into its wire form.
func amountArg(amt btcutil.Amount) (json.Number, error) {
	if amt < 0 {
		return "", fmt.Errorf("%w: %v", ErrNegativeAmount, amt)
	}

	s, err := btcunit.FormatBTC(amt)
	if err != nil {
		return "", err
	}

	return json.Number(s), nil
}

// addressArg encodes an address after checking it belongs to the client's
// network.
func (c *Client) addressArg(addr btcutil.Address) (string, error) {
	if addr == nil || !addr.IsForNet(c.chainParams) {
		return "", fmt.Errorf("%w: %v not for %s", ErrWrongNetwork,
			addr, c.chainParams.Name)
	}

	return addr.EncodeAddress(), nil
}

// parseAmount converts a wire amount into satoshis.
func parseAmount(n *json.Number) (btcutil.Amount, error) {
	return btcunit.ParseBTC(n.String())
}

// parseOptAmount converts an optional wire amount.
func parseOptAmount(n *json.Number) (fn.Option[btcutil.Amount], error) {
	if n == nil {
		return fn.None[btcutil.Amount](), nil
	}

	amt, err := parseAmount(n)
	if err != nil {
		return fn.None[btcutil.Amount](), err
	}

	return fn.Some(amt), nil
}

// parseHash decodes a transaction or block hash. Unlike
// chainhash.NewHashFromStr, short strings are rejected.
func parseHash(s string) (chainhash.Hash, error) {
	if len(s) != txidLen {
		return chainhash.Hash{}, fmt.Errorf("%w: %q has length %d",
			ErrInvalidTxID, s, len(s))
	}

	if _, err := hex.DecodeString(s); err != nil {
		return chainhash.Hash{}, fmt.Errorf("%w: %q: %w",
			ErrInvalidTxID, s, err)
	}

	hash, err := chainhash.NewHashFromStr(s)
	if err != nil {
		return chainhash.Hash{}, fmt.Errorf("%w: %w", ErrInvalidTxID,
			err)
	}

	return *hash, nil
}

// parseAddress decodes an address for the client's network.
func (c *Client) parseAddress(s string) (btcutil.Address, error) {
	addr, err := btcutil.DecodeAddress(s, c.chainParams)
	if err != nil {
		return nil, fmt.Errorf("address %q: %w", s, err)
	}

	if !addr.IsForNet(c.chainParams) {
		return nil, fmt.Errorf("%w: %s not for %s", ErrWrongNetwork, s,
			c.chainParams.Name)
	}

	return addr, nil
}

// parseOptHex decodes an optional hex string.
func parseOptHex(s *string) (fn.Option[[]byte], error) {
	if s == nil {
		return fn.None[[]byte](), nil
	}

	b, err := hex.DecodeString(*s)
	if err != nil {
		return fn.None[[]byte](), err
	}

	return fn.Some(b), nil
}

// optValue converts an optional wire pointer into an Option.
func optValue[T any](v *T) fn.Option[T] {
	if v == nil {
		return fn.None[T]()
	}

	return fn.Some(*v)
}
