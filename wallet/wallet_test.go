package wallet

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcharness/bitcoind"
	"github.com/btcsuite/btcharness/rpc"
	"github.com/btcsuite/btcharness/rpc/rpctest"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

// walletInfo returns a getwalletinfo result for the named wallet.
func walletInfo(name string) map[string]any {
	return map[string]any{
		"walletname":           name,
		"walletversion":        169900,
		"txcount":              0,
		"private_keys_enabled": true,
		"avoid_reuse":          false,
		"scanning":             false,
	}
}

// newClient returns a regtest client talking to the given daemon.
func newClient(t *testing.T, host string) *bitcoind.Client {
	t.Helper()

	client, err := bitcoind.New(&bitcoind.Config{
		RPC: rpc.Config{Host: host},
	})
	require.NoError(t, err)

	return client
}

// TestOpenExisting checks that a loaded wallet is not created again, and
// that reading its info twice yields the same values.
func TestOpenExisting(t *testing.T) {
	t.Parallel()

	// Arrange.
	daemon := rpctest.NewDaemon(t)
	daemon.Set("getwalletinfo", walletInfo("alice"))
	daemon.SetRaw("createwallet", `{"name":"alice"}`)
	client := newClient(t, daemon.URL)

	// Act.
	w, err := Open(
		context.Background(), client, "alice",
		bitcoind.CreateWalletOpts{},
	)
	require.NoError(t, err)

	first, err := w.Info(context.Background())
	require.NoError(t, err)
	second, err := w.Info(context.Background())
	require.NoError(t, err)

	// Assert.
	require.Equal(t, "alice", w.Name())
	require.Equal(t, first.Name, second.Name)
	require.Equal(t, first.Version, second.Version)
	require.Empty(t, daemon.Calls("createwallet"))
	require.Len(t, daemon.Calls("getwalletinfo"), 3)

	for _, call := range daemon.Calls("getwalletinfo") {
		require.Equal(t, "alice", call.Wallet())
	}
}

// TestOpenCreatesAbsent checks that a wallet with no file on the daemon is
// created with a single createwallet on the node endpoint.
func TestOpenCreatesAbsent(t *testing.T) {
	t.Parallel()

	// Arrange.
	daemon := rpctest.NewDaemon(t)
	daemon.SetErr("getwalletinfo", -18, "Requested wallet does not "+
		"exist or is not loaded")
	daemon.SetErr("loadwallet", -18, "Wallet file verification failed. "+
		"Failed to load database path. Path does not exist.")
	daemon.SetRaw("createwallet", `{"name":"bob","warning":""}`)
	client := newClient(t, daemon.URL)

	// Act.
	w, err := Open(
		context.Background(), client, "bob", bitcoind.CreateWalletOpts{
			Descriptors: fn.Some(true),
		},
	)

	// Assert.
	require.NoError(t, err)
	require.Equal(t, "bob", w.Name())

	require.Len(t, daemon.Calls("loadwallet"), 1)

	creates := daemon.Calls("createwallet")
	require.Len(t, creates, 1)
	require.Equal(t, "", creates[0].Wallet())
	require.Equal(t, `"bob"`, string(creates[0].Params[0]))
	require.Equal(t, "true", string(creates[0].Params[5]))
}

// TestOpenLoads checks that a wallet that exists on disk but is not loaded is
// loaded rather than created.
func TestOpenLoads(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		setup func(d *rpctest.Daemon)
	}{
		{
			name:  "loaded",
			setup: func(d *rpctest.Daemon) {
				d.SetRaw("loadwallet",
					`{"name":"frank","warnings":[]}`)
			},
		},
		{
			name:  "loaded by another client",
			setup: func(d *rpctest.Daemon) {
				d.SetErr("loadwallet",
					bitcoind.RPCWalletAlreadyLoaded,
					"Wallet \"frank\" is already loaded.")
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// Arrange: A wallet file the daemon has not loaded.
			daemon := rpctest.NewDaemon(t)
			daemon.SetErr("getwalletinfo", -18, "Requested wallet "+
				"does not exist or is not loaded")
			daemon.SetRaw("createwallet", `{"name":"frank"}`)
			tc.setup(daemon)
			client := newClient(t, daemon.URL)

			// Act.
			w, err := Open(
				context.Background(), client, "frank",
				bitcoind.CreateWalletOpts{},
			)

			// Assert: The wallet was loaded by name on the node
			// endpoint and never created.
			require.NoError(t, err)
			require.Equal(t, "frank", w.Name())
			require.Empty(t, daemon.Calls("createwallet"))

			load := daemon.LastCall(t, "loadwallet")
			require.Equal(t, "", load.Wallet())
			require.Equal(t, `"frank"`, string(load.Params[0]))
			require.Equal(t, "null", string(load.Params[1]))
		})
	}
}

// TestOpenLoadFailure checks that a load failure other than a missing wallet
// file is returned without creating a wallet.
func TestOpenLoadFailure(t *testing.T) {
	t.Parallel()

	daemon := rpctest.NewDaemon(t)
	daemon.SetErr("getwalletinfo", -18, "not loaded")
	daemon.SetErr("loadwallet", -4, "Wallet corrupted")
	daemon.SetRaw("createwallet", `{"name":"gina"}`)
	client := newClient(t, daemon.URL)

	_, err := Open(
		context.Background(), client, "gina",
		bitcoind.CreateWalletOpts{},
	)

	require.True(t, rpc.IsRPCErrorCode(err, -4))
	require.Empty(t, daemon.Calls("createwallet"))
}

// TestOpenTransportFailure checks that a transport failure during the probe
// is escalated and no wallet is created.
func TestOpenTransportFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(nil)
	host := server.URL
	server.Close()

	client := newClient(t, host)

	_, err := Open(
		context.Background(), client, "carol",
		bitcoind.CreateWalletOpts{},
	)
	require.ErrorIs(t, err, rpc.ErrTransport)
}

// TestOpenCreateFailure checks that a failing createwallet is returned with
// the daemon's error intact.
func TestOpenCreateFailure(t *testing.T) {
	t.Parallel()

	daemon := rpctest.NewDaemon(t)
	daemon.SetErr("getwalletinfo", -18, "not loaded")
	daemon.SetErr("loadwallet", -18, "Path does not exist.")
	daemon.SetErr("createwallet", -4, "Wallet file verification failed.")
	client := newClient(t, daemon.URL)

	_, err := Open(
		context.Background(), client, "dave",
		bitcoind.CreateWalletOpts{},
	)

	rpcErr, ok := rpc.AsRPCError(err)
	require.True(t, ok)
	require.Equal(t, btcjson.RPCErrorCode(-4), rpcErr.Code)
}

// TestWalletRouting checks that wallet calls go to the wallet endpoint and
// node calls to the node endpoint.
func TestWalletRouting(t *testing.T) {
	t.Parallel()

	// Arrange.
	daemon := rpctest.NewDaemon(t)
	daemon.SetRaw("getbalance", `2.5`)
	daemon.SetRaw("joinpsbts", `"cHNidP8="`)
	daemon.SetRaw("walletprocesspsbt", `{"psbt":"cHNidP8=",`+
		`"complete":true}`)
	w := New(newClient(t, daemon.URL), "erin")

	// Act.
	balance, err := w.Balance(context.Background())
	require.NoError(t, err)

	_, err = w.JoinPsbts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)

	processed, err := w.ProcessPsbt(context.Background(), "cHNidP8=")
	require.NoError(t, err)

	// Assert.
	require.EqualValues(t, 250_000_000, balance)
	require.True(t, processed.Complete)
	require.Equal(t, "erin", daemon.LastCall(t, "getbalance").Wallet())
	require.Equal(t, "", daemon.LastCall(t, "joinpsbts").Wallet())

	process := daemon.LastCall(t, "walletprocesspsbt")
	require.Equal(t, "erin", process.Wallet())
	require.Equal(t, "true", string(process.Params[1]))
}
