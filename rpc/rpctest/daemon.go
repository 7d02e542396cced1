// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package rpctest provides an in-process fake bitcoind JSON-RPC server for
// unit tests.
package rpctest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/stretchr/testify/require"
)

// Call is a request observed by the fake daemon.
type Call struct {
	// Path is the escaped URL path the call was posted to.
	Path string

	// Method is the JSON-RPC method.
	Method string

	// Params are the positional params as sent.
	Params []json.RawMessage
}

// Wallet returns the wallet a call was routed to, or "" for node calls.
func (c Call) Wallet() string {
	const prefix = "/wallet/"
	if len(c.Path) < len(prefix) || c.Path[:len(prefix)] != prefix {
		return ""
	}

	return c.Path[len(prefix):]
}

// Handler computes the reply of a call. A non-nil error is sent as the
// envelope's error member.
type Handler func(call Call) (interface{}, *btcjson.RPCError)

// Daemon is a fake bitcoind answering JSON-RPC calls from a per-method
// handler table and recording every request. Unknown methods are answered
// with the daemon's method not found error.
type Daemon struct {
	*httptest.Server

	mu       sync.Mutex
	calls    []Call
	handlers map[string]Handler
}

// NewDaemon starts a fake daemon that is closed when the test ends.
func NewDaemon(t *testing.T) *Daemon {
	t.Helper()

	d := &Daemon{handlers: make(map[string]Handler)}
	d.Server = httptest.NewServer(http.HandlerFunc(d.serve))
	t.Cleanup(d.Close)

	return d
}

// request is the envelope of a received call. Params are kept as sent so
// tests can check the exact encoding of each argument.
type request struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	ID     json.RawMessage   `json:"id"`
}

func (d *Daemon) serve(w http.ResponseWriter, r *http.Request) {
	var req request
	raw, err := io.ReadAll(r.Body)
	if err == nil {
		err = json.Unmarshal(raw, &req)
	}
	if err != nil {
		reply(w, nil, btcjson.ErrRPCParse, nil)
		return
	}

	call := Call{
		Path:   r.URL.EscapedPath(),
		Method: req.Method,
		Params: req.Params,
	}

	d.mu.Lock()
	d.calls = append(d.calls, call)
	handler, ok := d.handlers[req.Method]
	d.mu.Unlock()

	var (
		result interface{}
		rpcErr = btcjson.ErrRPCMethodNotFound
	)
	if ok {
		result, rpcErr = handler(call)
	}

	reply(w, result, rpcErr, req.ID)
}

// reply writes a response envelope. An RPC error is sent with an HTTP error
// status, as bitcoind does.
func reply(w http.ResponseWriter, result interface{},
	rpcErr *btcjson.RPCError, id json.RawMessage) {

	status := http.StatusOK
	if rpcErr != nil {
		status = http.StatusInternalServerError
	}

	if id == nil {
		id = json.RawMessage("null")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"result": result,
		"error":  rpcErr,
		"id":     id,
	})
}

// Handle installs the handler of a method.
func (d *Daemon) Handle(method string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[method] = handler
}

// Set answers every call of a method with the given result.
func (d *Daemon) Set(method string, result interface{}) {
	d.Handle(method, func(Call) (interface{}, *btcjson.RPCError) {
		return result, nil
	})
}

// SetRaw answers every call of a method with the given JSON result text.
func (d *Daemon) SetRaw(method, result string) {
	d.Set(method, json.RawMessage(result))
}

// SetErr answers every call of a method with an RPC error.
func (d *Daemon) SetErr(method string, code btcjson.RPCErrorCode,
	msg string) {

	d.Handle(method, func(Call) (interface{}, *btcjson.RPCError) {
		return nil, btcjson.NewRPCError(code, msg)
	})
}

// Calls returns the recorded calls of a method.
func (d *Daemon) Calls(method string) []Call {
	d.mu.Lock()
	defer d.mu.Unlock()

	var matched []Call
	for _, c := range d.calls {
		if c.Method == method {
			matched = append(matched, c)
		}
	}

	return matched
}

// LastCall returns the last recorded call of a method, failing the test if
// there is none.
func (d *Daemon) LastCall(t *testing.T, method string) Call {
	t.Helper()

	calls := d.Calls(method)
	require.NotEmpty(t, calls, "no call to %s", method)

	return calls[len(calls)-1]
}
