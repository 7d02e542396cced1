// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wallet provides a handle on a named bitcoind wallet. A Wallet owns
// no state besides its name and the shared client: every call goes to the
// live daemon and is routed to the wallet's endpoint.
package wallet

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcharness/bitcoind"
	"github.com/btcsuite/btcharness/rpc"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Wallet is a named wallet on a bitcoind daemon.
type Wallet struct {
	name   string
	client *bitcoind.Client
}

// New returns a handle on a wallet that is known to be loaded. No call is
// made.
func New(client *bitcoind.Client, name string) *Wallet {
	return &Wallet{
		name:   name,
		client: client,
	}
}

// Open returns a handle on the named wallet, loading it from the daemon's
// wallet directory if it is not loaded, and creating it with the given
// options if it does not exist.
//
// Existence is probed with getwalletinfo. Only an RPC error from the daemon
// is read as "not loaded"; a transport or decode failure is returned as is.
// The wallet is created only when loadwallet reports that no wallet file
// exists. The wallet is never destroyed by the client.
func Open(ctx context.Context, client *bitcoind.Client, name string,
	opts bitcoind.CreateWalletOpts) (*Wallet, error) {

	_, err := client.GetWalletInfo(ctx, name)
	if err == nil {
		log.Debugf("Wallet %q already loaded", name)

		return New(client, name), nil
	}

	rpcErr, ok := rpc.AsRPCError(err)
	if !ok {
		return nil, fmt.Errorf("probe wallet %q: %w", name, err)
	}

	log.Debugf("Wallet %q not loaded (%d: %s), loading it", name,
		rpcErr.Code, rpcErr.Message)

	loaded, err := client.LoadWallet(ctx, name, fn.None[bool]())
	switch {
	case err == nil:
		logWarning(loaded.Name, loaded.Warning)
		log.Infof("Loaded wallet %q", loaded.Name)

		return New(client, loaded.Name), nil

	// Another client loaded it after the probe.
	case rpc.IsRPCErrorCode(err, bitcoind.RPCWalletAlreadyLoaded):
		return New(client, name), nil

	case !rpc.IsRPCErrorCode(err, btcjson.ErrRPCWalletNotFound):
		return nil, fmt.Errorf("load wallet %q: %w", name, err)
	}

	res, err := client.CreateWallet(ctx, name, opts)
	if err != nil {
		return nil, fmt.Errorf("create wallet %q: %w", name, err)
	}

	logWarning(res.Name, res.Warning)
	log.Infof("Created wallet %q", res.Name)

	return New(client, res.Name), nil
}

// logWarning logs a warning the daemon attached to a wallet operation.
func logWarning(name, warning string) {
	if warning != "" {
		log.Warnf("Wallet %q: %s", name, warning)
	}
}

// Name returns the wallet name, which is also its routing key.
func (w *Wallet) Name() string {
	return w.name
}

// Client returns the client the wallet calls through.
func (w *Wallet) Client() *bitcoind.Client {
	return w.client
}

// Info returns the wallet state.
func (w *Wallet) Info(ctx context.Context) (*bitcoind.WalletInfo, error) {
	return w.client.GetWalletInfo(ctx, w.name)
}

// NewAddress derives a new bech32 receiving address.
func (w *Wallet) NewAddress(ctx context.Context) (btcutil.Address, error) {
	return w.client.GetNewAddress(
		ctx, w.name, fn.None[string](),
		fn.Some(bitcoind.AddressTypeBech32),
	)
}

// Balance returns the trusted balance of the wallet.
func (w *Wallet) Balance(ctx context.Context) (btcutil.Amount, error) {
	return w.client.GetBalance(ctx, w.name, bitcoind.BalanceOpts{})
}

// SendToAddress pays amt to addr and returns the txid.
func (w *Wallet) SendToAddress(ctx context.Context, addr btcutil.Address,
	amt btcutil.Amount) (chainhash.Hash, error) {

	return w.client.SendToAddress(ctx, w.name, addr, amt,
		bitcoind.SendOpts{})
}

// ListUnspent returns every output of the wallet, including unconfirmed
// ones, in the daemon's order.
func (w *Wallet) ListUnspent(ctx context.Context) ([]bitcoind.Unspent,
	error) {

	return w.client.ListUnspent(ctx, w.name, bitcoind.ListUnspentOpts{
		MinConf: fn.Some(int32(0)),
	})
}

// AddressInfo returns what the wallet knows about addr.
func (w *Wallet) AddressInfo(ctx context.Context,
	addr btcutil.Address) (*bitcoind.AddressInfo, error) {

	return w.client.GetAddressInfo(ctx, w.name, addr)
}

// Transaction returns the wallet's record of one of its transactions,
// including the fee it paid.
func (w *Wallet) Transaction(ctx context.Context,
	txid chainhash.Hash) (*bitcoind.WalletTransaction, error) {

	return w.client.GetTransaction(ctx, w.name, txid, fn.None[bool]())
}

// RawTransaction returns a transaction known to the node.
func (w *Wallet) RawTransaction(ctx context.Context,
	txid chainhash.Hash) (*wire.MsgTx, error) {

	return w.client.GetRawTransaction(ctx, txid)
}

// Confirmation returns the height txid was confirmed at, or None while it is
// unconfirmed.
func (w *Wallet) Confirmation(ctx context.Context,
	txid chainhash.Hash) (fn.Option[int32], error) {

	return w.client.TxBlockHeight(ctx, txid)
}

// DumpWallet writes the wallet keys to a file on the daemon host.
func (w *Wallet) DumpWallet(ctx context.Context,
	filename string) (string, error) {

	return w.client.DumpWallet(ctx, w.name, filename)
}

// SetHDSeed rotates the HD seed of a legacy wallet to a daemon generated
// one.
func (w *Wallet) SetHDSeed(ctx context.Context) error {
	return w.client.SetHDSeed(
		ctx, w.name, fn.None[bool](), fn.None[*btcutil.WIF](),
	)
}
