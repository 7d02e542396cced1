package bwtest

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcharness/bitcoind"
	"github.com/btcsuite/btcharness/wallet"
	"github.com/stretchr/testify/require"
)

// CreateWallet opens a wallet named after the current test and the given
// suffix, creating it on the node, and registers it with the harness.
func (h *HarnessTest) CreateWallet(suffix string) *wallet.Wallet {
	h.Helper()

	w, err := wallet.Open(
		h.Context(), h.Client, h.WalletName(suffix),
		bitcoind.CreateWalletOpts{},
	)
	require.NoError(h, err, "failed to create wallet")

	h.RegisterWallet(w)

	return w
}

// CreateFundedWallet creates a wallet and mints amt to one confirmed output
// of it.
func (h *HarnessTest) CreateFundedWallet(suffix string,
	amt btcutil.Amount) *wallet.Wallet {

	h.Helper()

	w := h.CreateWallet(suffix)

	addr, err := w.NewAddress(h.Context())
	require.NoError(h, err, "failed to create address")

	h.Mint(addr, amt)
	h.AssertBalance(w, amt)

	return w
}
