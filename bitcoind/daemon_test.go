package bitcoind

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcharness/rpc"
	"github.com/btcsuite/btcharness/rpc/rpctest"
	"github.com/stretchr/testify/require"
)

// newTestClient starts a fake daemon and returns a regtest client for it.
func newTestClient(t *testing.T) (*Client, *rpctest.Daemon) {
	t.Helper()

	daemon := rpctest.NewDaemon(t)

	client, err := New(&Config{
		RPC: rpc.Config{Host: daemon.URL, User: "u", Pass: "p"},
	})
	require.NoError(t, err)

	return client, daemon
}

// newAddress returns a fresh P2WPKH address for the given network.
func newAddress(t *testing.T, params *chaincfg.Params) btcutil.Address {
	t.Helper()

	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	addr, err := btcutil.NewAddressWitnessPubKeyHash(
		btcutil.Hash160(key.PubKey().SerializeCompressed()), params,
	)
	require.NoError(t, err)

	return addr
}

// newTx returns a transaction with one input and one output paying addr.
func newTx(t *testing.T, addr btcutil.Address) *wire.MsgTx {
	t.Helper()

	script, err := txscript.PayToAddrScript(addr)
	require.NoError(t, err)

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(
		wire.NewOutPoint(&chainhash.Hash{1}, 0), nil, nil,
	))
	tx.AddTxOut(wire.NewTxOut(50_000, script))

	return tx
}

// txHex serializes a transaction to hex.
func txHex(t *testing.T, tx *wire.MsgTx) string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, tx.Serialize(&buf))

	return hex.EncodeToString(buf.Bytes())
}

// paramString decodes a JSON string parameter.
func paramString(t *testing.T, raw json.RawMessage) string {
	t.Helper()

	var s string
	require.NoError(t, json.Unmarshal(raw, &s))

	return s
}
