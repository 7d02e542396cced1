//go:build itest

package itest

import (
	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcharness/bitcoind"
	"github.com/btcsuite/btcharness/bwtest"
	"github.com/btcsuite/btcharness/rpc"
	"github.com/btcsuite/btcharness/wallet"
	"github.com/stretchr/testify/require"
)

// testWalletOpenIdempotent verifies opening an existing wallet neither fails
// nor recreates it, and that wallet info is stable across calls.
func testWalletOpenIdempotent(h *bwtest.HarnessTest) {
	h.Helper()

	w := h.CreateWallet("idem")

	first, err := w.Info(h.Context())
	require.NoError(h, err, "first getwalletinfo")

	again, err := wallet.Open(
		h.Context(), h.Client, w.Name(), bitcoind.CreateWalletOpts{},
	)
	require.NoError(h, err, "reopen wallet")
	require.Equal(h, w.Name(), again.Name())

	second, err := again.Info(h.Context())
	require.NoError(h, err, "second getwalletinfo")

	require.Equal(h, first.Name, second.Name)
	require.Equal(h, first.TxCount, second.TxCount)
	require.Equal(h, first.PrivateKeysEnabled, second.PrivateKeysEnabled)

	names, err := h.Client.ListWallets(h.Context())
	require.NoError(h, err, "listwallets")
	require.Contains(h, names, w.Name())
}

// testWalletSendConfirm verifies a wallet-routed payment confirms and shows
// up on both sides.
func testWalletSendConfirm(h *bwtest.HarnessTest) {
	h.Helper()

	const (
		funding = 2 * btcutil.SatoshiPerBitcoin
		payment = btcutil.SatoshiPerBitcoin / 2
	)

	sender := h.CreateFundedWallet("sender", funding)
	receiver := h.CreateWallet("receiver")

	addr, err := receiver.NewAddress(h.Context())
	require.NoError(h, err, "receiver address")

	info, err := receiver.AddressInfo(h.Context(), addr)
	require.NoError(h, err, "getaddressinfo")
	require.True(h, info.IsMine, "receiver does not own its address")

	txid, err := sender.SendToAddress(h.Context(), addr, payment)
	require.NoError(h, err, "sendtoaddress")

	h.MineBlocks(1)
	height := h.AssertTxConfirmed(txid)
	require.Equal(h, h.BestHeight(), height)

	h.AssertBalance(receiver, payment)

	sent, err := sender.Transaction(h.Context(), txid)
	require.NoError(h, err, "gettransaction")
	require.Equal(h, txid, sent.TxID)
	require.True(h, sent.Fee.IsSome(), "sender tx has no fee")

	unspent, err := receiver.ListUnspent(h.Context())
	require.NoError(h, err, "listunspent")
	require.Len(h, unspent, 1)
	require.Equal(h, payment, unspent[0].Amount)
}

// testWalletUnknownRejected verifies a call routed to an unknown wallet fails
// with the daemon's error rather than a transport error.
func testWalletUnknownRejected(h *bwtest.HarnessTest) {
	h.Helper()

	_, err := h.Client.GetWalletInfo(h.Context(), h.WalletName("missing"))
	require.Error(h, err)
	require.True(h, rpc.IsRPCErrorCode(err, btcjson.ErrRPCWalletNotFound),
		"unexpected error: %v", err)
	require.NotErrorIs(h, err, rpc.ErrTransport)
}
