// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/lightningnetwork/lnd/fn/v2"
)

var (
	// ErrTransport is returned when no usable response was obtained from
	// the daemon: dial and DNS failures, timeouts, a cancelled context or
	// an HTTP error status without a JSON-RPC body.
	ErrTransport = errors.New("rpc transport failure")

	// ErrDecode is returned when a response was received but its envelope
	// or result does not have the expected shape.
	ErrDecode = errors.New("rpc decode failure")

	// ErrEncoding is returned when a request argument cannot be represented
	// on the wire. It is always raised before any I/O takes place.
	ErrEncoding = errors.New("rpc encoding failure")

	// ErrEmptyMethod is returned when a request is built without a method.
	ErrEmptyMethod = errors.New("empty method name")

	// ErrNullResult is returned when the daemon answers with a null result
	// where a value was expected.
	ErrNullResult = errors.New("null result")
)

// CallError annotates a failed call with the method and the wallet it was
// routed to. The wrapped error is one of ErrTransport, ErrDecode, ErrEncoding
// or a *btcjson.RPCError returned by the daemon.
type CallError struct {
	// Method is the remote procedure name.
	Method string

	// Wallet is the wallet the call was routed to, if any.
	Wallet fn.Option[string]

	// Err is the underlying failure.
	Err error
}

// Error returns a human readable description of the failed call.
func (e *CallError) Error() string {
	target := e.Method
	e.Wallet.WhenSome(func(name string) {
		target = fmt.Sprintf("%s (wallet %q)", e.Method, name)
	})

	return fmt.Sprintf("%s: %v", target, e.Err)
}

// Unwrap returns the underlying failure.
func (e *CallError) Unwrap() error {
	return e.Err
}

// AsRPCError returns the structured error reported by the daemon, if err
// carries one.
func AsRPCError(err error) (*btcjson.RPCError, bool) {
	var rpcErr *btcjson.RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr, true
	}

	return nil, false
}

// IsRPCErrorCode returns true if err carries a daemon error with the given
// code.
func IsRPCErrorCode(err error, code btcjson.RPCErrorCode) bool {
	rpcErr, ok := AsRPCError(err)

	return ok && rpcErr.Code == code
}

// outcome classifies an error for metrics and logging.
func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK

	case errors.Is(err, ErrEncoding):
		return outcomeEncoding

	case errors.Is(err, ErrTransport):
		return outcomeTransport

	case errors.Is(err, ErrDecode):
		return outcomeDecode
	}

	if _, ok := AsRPCError(err); ok {
		return outcomeProtocol
	}

	return outcomeTransport
}
