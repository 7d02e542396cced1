//go:build itest

package itest

import (
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcharness/bitcoind"
	"github.com/btcsuite/btcharness/bwtest"
	"github.com/btcsuite/btcharness/bwtest/wait"
	"github.com/btcsuite/btcharness/collab"
	"github.com/btcsuite/btcharness/rpc"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

// testCollabTwoParty verifies two wallets can fund, sign and broadcast one
// transaction paying a shared output.
func testCollabTwoParty(h *bwtest.HarnessTest) {
	h.Helper()

	const (
		funding = 2 * btcutil.SatoshiPerBitcoin
		share   = btcutil.SatoshiPerBitcoin
	)

	alice := h.CreateFundedWallet("alice", funding)
	bob := h.CreateFundedWallet("bob", funding)
	carol := h.CreateWallet("carol")

	target, err := carol.NewAddress(h.Context())
	require.NoError(h, err, "target address")

	session, err := collab.NewSession(collab.Config{
		Target: collab.Target{
			Address: target,
			Total:   fn.None[btcutil.Amount](),
		},
		Contributions: []collab.Contribution{
			{Party: alice, Amount: share},
			{Party: bob, Amount: share},
		},
		Coordinator: alice,
		FundOpts:    fn.None[bitcoind.FundPsbtOpts](),
	})
	require.NoError(h, err, "new session")

	result, err := session.Run(h.Context())
	require.NoError(h, err, "run session")
	require.Equal(h, collab.StateBroadcast, result.State)

	txid := result.TxID.UnwrapOr(chainhash.Hash{})
	require.Len(h, txid.String(), 64)

	tx := result.Tx.UnwrapOr(nil)
	require.NotNil(h, tx)
	require.Equal(h, txid, tx.TxHash())

	// One input per party, the shared output and one change per party.
	require.Len(h, tx.TxIn, 2)
	require.Len(h, tx.TxOut, 3)

	pkScript, err := txscript.PayToAddrScript(target)
	require.NoError(h, err)

	var shared int
	for _, out := range tx.TxOut {
		if string(out.PkScript) == string(pkScript) {
			require.Equal(h, int64(2*share), out.Value)
			shared++
		}
	}
	require.Equal(h, 1, shared, "shared output count")

	h.MineBlocks(1)
	h.AssertTxConfirmed(txid)
	h.AssertBalance(carol, 2*share)
}

// testCollabFundingFailure verifies a party without coins aborts the session
// before anything is broadcast.
func testCollabFundingFailure(h *bwtest.HarnessTest) {
	h.Helper()

	alice := h.CreateFundedWallet("alice", btcutil.SatoshiPerBitcoin)
	broke := h.CreateWallet("broke")

	target, err := alice.NewAddress(h.Context())
	require.NoError(h, err, "target address")

	session, err := collab.NewSession(collab.Config{
		Target: collab.Target{Address: target},
		Contributions: []collab.Contribution{
			{Party: alice, Amount: btcutil.SatoshiPerBitcoin / 2},
			{Party: broke, Amount: btcutil.SatoshiPerBitcoin / 2},
		},
		Coordinator: alice,
	})
	require.NoError(h, err, "new session")

	result, err := session.Run(h.Context())
	require.ErrorIs(h, err, collab.ErrFundingFailed)
	require.Equal(h, collab.StateFundingFailed, result.State)
	require.True(h, result.TxID.IsNone())

	var stepErr *collab.StepError
	require.ErrorAs(h, err, &stepErr)
	require.Equal(h, fn.Some(broke.Name()), stepErr.Party)

	_, isRPC := rpc.AsRPCError(err)
	require.True(h, isRPC, "funding failure is not a daemon error: %v",
		err)
}

// testMinerBackground verifies the background miner extends the chain.
func testMinerBackground(h *bwtest.HarnessTest) {
	h.Helper()

	start := h.BestHeight()
	h.StartMiner(200 * time.Millisecond)

	err := wait.Predicate(func() bool {
		return h.BestHeight() >= start+3
	}, 30*time.Second)
	require.NoError(h, err, "background miner did not mine")
}
