// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package rpc implements the bitcoind JSON-RPC 1.0 wire protocol: request and
// response envelopes, per-wallet routing and a transport over HTTP.
//
// Every failed call is returned as a *CallError wrapping one of ErrTransport,
// ErrDecode, ErrEncoding or the *btcjson.RPCError reported by the daemon.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// redactedMethods take secrets or local file paths as params. Their params
// are never logged.
var redactedMethods = map[string]struct{}{
	"backupwallet":              {},
	"createwallet":              {},
	"dumpprivkey":               {},
	"dumpwallet":                {},
	"encryptwallet":             {},
	"importprivkey":             {},
	"importwallet":              {},
	"sethdseed":                 {},
	"signrawtransactionwithkey": {},
	"walletpassphrase":          {},
	"walletpassphrasechange":    {},
}

// logParams renders the params of a call for the trace log.
func logParams(method string, params []json.RawMessage) string {
	if _, ok := redactedMethods[method]; ok {
		return fmt.Sprintf("<%d redacted>", len(params))
	}

	return fmt.Sprintf("%s", params)
}

// Client issues typed calls over a Transport.
type Client struct {
	transport Transport
	metrics   *Metrics
}

// NewClient creates a client on top of the given transport. The metrics may
// be nil.
func NewClient(transport Transport, metrics *Metrics) *Client {
	return &Client{
		transport: transport,
		metrics:   metrics,
	}
}

// Dial creates a client over HTTP using the given config. No connection is
// made until the first call.
func Dial(cfg *Config) (*Client, error) {
	transport, err := NewHTTPTransport(cfg)
	if err != nil {
		return nil, err
	}

	return NewClient(transport, cfg.Metrics), nil
}

// Call invokes method with positional args and decodes the result into
// result, which must be a pointer or nil. The call is routed to the given
// wallet when set.
func (c *Client) Call(ctx context.Context, wallet fn.Option[string],
	method string, args []interface{}, result interface{}) error {

	start := time.Now()
	err := c.call(ctx, wallet, method, args, result)
	elapsed := time.Since(start)

	c.metrics.observe(method, err, elapsed)

	if err != nil {
		log.Debugf("Call %s failed after %v: %v", method, elapsed, err)

		return &CallError{Method: method, Wallet: wallet, Err: err}
	}

	log.Tracef("Call %s took %v", method, elapsed)

	return nil
}

// call performs a single round trip.
func (c *Client) call(ctx context.Context, wallet fn.Option[string],
	method string, args []interface{}, result interface{}) error {

	req, err := NewRequest(method, args...)
	if err != nil {
		return err
	}

	log.Tracef("Sending %s id=%v params=%v", method, req.ID,
		newLogClosure(func() string {
			return logParams(method, req.Params)
		}))

	raw, err := c.transport.Send(ctx, wallet, req)
	if err != nil {
		return err
	}

	return ParseResponse(raw, result)
}
