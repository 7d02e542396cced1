package bwtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcharness/bitcoind"
	"github.com/btcsuite/btcharness/bwtest/wait"
	"github.com/btcsuite/btcharness/wallet"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/stretchr/testify/require"
)

const (
	// coinbaseMaturity is the number of confirmations a coinbase output
	// needs before it can be spent.
	coinbaseMaturity = 100
)

var (
	// ErrTxUnconfirmed is returned when a transaction has not been mined
	// yet.
	ErrTxUnconfirmed = errors.New("transaction not confirmed")

	// ErrBalanceMismatch is returned when a wallet balance differs from
	// the expected one.
	ErrBalanceMismatch = errors.New("wallet balance mismatch")
)

// Init creates the miner wallet and mines enough blocks for spendable
// coinbase outputs to be mature, plus one so at least one is.
//
// Init must be called on the top level harness before any Subtest.
func (h *HarnessTest) Init(spendable int) {
	h.Helper()

	if spendable < 0 {
		h.Fatalf("invalid spendable block count: %d", spendable)
	}

	miner, err := wallet.Open(
		h.Context(), h.Client, minerWalletName,
		bitcoind.CreateWalletOpts{},
	)
	require.NoError(h, err, "unable to open miner wallet")

	addr, err := miner.NewAddress(h.Context())
	require.NoError(h, err, "unable to derive miner address")

	h.miner = &minerState{wallet: miner, addr: addr}

	h.MineBlocks(coinbaseMaturity + 1 + spendable)

	balance, err := miner.Balance(h.Context())
	require.NoError(h, err, "unable to get miner balance")
	require.Positive(h, int64(balance), "miner has no mature coins")
}

// Miner returns the miner wallet.
func (h *HarnessTest) Miner() *wallet.Wallet {
	h.Helper()

	h.requireMiner()

	return h.miner.wallet
}

// MineBlocks mines num blocks to the miner address and returns their
// hashes.
func (h *HarnessTest) MineBlocks(num int) []chainhash.Hash {
	h.Helper()

	h.requireMiner()

	if num < 0 {
		h.Fatalf("invalid block count: %d", num)
	}

	if num == 0 {
		return nil
	}

	hashes, err := h.Client.GenerateToAddress(
		h.Context(), int64(num), h.miner.addr, fn.None[int64](),
	)
	require.NoError(h, err, "unable to generate blocks")
	require.Len(h, hashes, num, "unexpected number of mined blocks")

	return hashes
}

// Mint sends amt from the miner to addr and confirms it with one block.
func (h *HarnessTest) Mint(addr btcutil.Address,
	amt btcutil.Amount) chainhash.Hash {

	h.Helper()

	h.requireMiner()

	txid, err := h.miner.wallet.SendToAddress(h.Context(), addr, amt)
	require.NoError(h, err, "unable to send from miner")

	h.MineBlocks(1)
	h.AssertTxConfirmed(txid)

	return txid
}

// StartMiner mines one block every interval in the background until the
// test ends.
func (h *HarnessTest) StartMiner(interval time.Duration) {
	h.Helper()

	h.requireMiner()

	ctx, cancel := context.WithCancel(context.Background())

	t := ticker.New(interval)
	t.Resume()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case <-t.Ticks():
				_, err := h.Client.GenerateToAddress(
					ctx, 1, h.miner.addr, fn.None[int64](),
				)
				if err != nil && ctx.Err() == nil {
					h.Logf("background miner: %v", err)
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	h.Cleanup(func() {
		cancel()
		t.Stop()
		wg.Wait()
	})
}

// BestHeight returns the height of the chain tip.
func (h *HarnessTest) BestHeight() int32 {
	h.Helper()

	height, err := h.Client.GetBlockCount(h.Context())
	require.NoError(h, err, "unable to get block count")

	return height
}

// AssertTxConfirmed polls until txid is mined and returns its block height.
func (h *HarnessTest) AssertTxConfirmed(txid chainhash.Hash) int32 {
	h.Helper()

	var height int32
	err := wait.NoError(func() error {
		conf, err := h.Client.TxBlockHeight(h.Context(), txid)
		if err != nil {
			return fmt.Errorf("tx block height: %w", err)
		}

		if conf.IsNone() {
			return fmt.Errorf("%w: %v", ErrTxUnconfirmed, txid)
		}

		height = conf.UnwrapOr(0)

		return nil
	}, defaultTestTimeout)
	require.NoError(h, err, "timeout waiting for confirmation")

	return height
}

// AssertBalance polls until w reports the given trusted balance.
func (h *HarnessTest) AssertBalance(w *wallet.Wallet, want btcutil.Amount) {
	h.Helper()

	err := wait.NoError(func() error {
		got, err := w.Balance(h.Context())
		if err != nil {
			return fmt.Errorf("get balance: %w", err)
		}

		if got != want {
			return fmt.Errorf("%w: wallet=%s want=%v got=%v",
				ErrBalanceMismatch, w.Name(), want, got)
		}

		return nil
	}, defaultTestTimeout)
	require.NoError(h, err, "timeout waiting for balance")
}

func (h *HarnessTest) requireMiner() {
	h.Helper()

	if h.miner == nil {
		h.Fatalf("harness miner not initialized, call Init first")
	}
}
