package bwtest

import (
	"runtime/debug"
	"strings"
	"sync"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcharness/bitcoind"
	"github.com/btcsuite/btcharness/wallet"
	"github.com/stretchr/testify/require"
)

// minerWalletName is the wallet receiving every coinbase.
const minerWalletName = "miner"

// harnessNetParams are the chain parameters of every backend.
var harnessNetParams = &chaincfg.RegressionNetParams

// HarnessTest is the integration test harness.
type HarnessTest struct {
	*testing.T

	// Backend is the node under test.
	Backend Backend

	// Client is the typed client connected to Backend.
	Client *bitcoind.Client

	// miner is the wallet mined blocks pay to. It is nil until Init.
	miner *minerState

	// logs is the log directory of the run.
	logs *runLogs

	// mu protects the state below, which is shared between the main test
	// and its subtests.
	mu sync.Mutex

	// wallets is the set of wallets created by a test case.
	wallets []*wallet.Wallet

	// stopped prevents stopping shared infrastructure more than once.
	stopped bool
}

// minerState is shared by a harness and all its subtests.
type minerState struct {
	wallet *wallet.Wallet
	addr   btcutil.Address
}

// SetupHarness starts the backend and connects a client to it.
func SetupHarness(t *testing.T, backendType string) *HarnessTest {
	t.Helper()

	validateBackendType(t, backendType)

	logs := newRunLogs(t, testLogsRootDir, backendType)
	closeLog := setUpLogging(t, logs.harnessLog())

	backend := NewBackend(t, backendType, logs.nodeDir())

	ht := &HarnessTest{
		T:       t,
		Backend: backend,
		logs:    logs,
	}

	// Cleanups run last in first out, so the log file outlives the
	// backend shutdown.
	t.Cleanup(closeLog)
	t.Cleanup(ht.Stop)

	err := backend.Start(t.Context())
	require.NoError(t, err, "failed to start backend")

	rpcCfg := backend.RPCConfig()
	client, err := bitcoind.New(&bitcoind.Config{
		RPC:         rpcCfg,
		ChainParams: harnessNetParams,
	})
	require.NoError(t, err, "unable to create client")

	ht.Client = client

	return ht
}

// Subtest creates a child harness that shares the backend, client and miner.
// When the subtest ends, the wallets it created are summarized in its wallet
// log.
//
// Callers should not call Stop on the returned harness as it would stop
// shared infrastructure.
func (h *HarnessTest) Subtest(t *testing.T) *HarnessTest {
	h.Helper()

	st := &HarnessTest{
		T:       t,
		Backend: h.Backend,
		Client:  h.Client,
		miner:   h.miner,
		logs:    h.logs,
		stopped: true,
	}
	t.Cleanup(st.writeWalletLog)

	return st
}

// RegisterWallet registers a wallet with the harness.
func (h *HarnessTest) RegisterWallet(w *wallet.Wallet) {
	h.Helper()

	if w == nil {
		h.Fatalf("cannot register nil wallet")
	}

	h.mu.Lock()
	h.wallets = append(h.wallets, w)
	h.mu.Unlock()
}

// ActiveWallets returns a snapshot of wallets registered with this harness.
func (h *HarnessTest) ActiveWallets() []*wallet.Wallet {
	h.Helper()

	h.mu.Lock()
	wallets := append([]*wallet.Wallet(nil), h.wallets...)
	h.mu.Unlock()

	return wallets
}

// RunTestCase executes a harness test case.
//
// Any panic from the test function is converted into a fatal test failure with
// a stack trace.
func (h *HarnessTest) RunTestCase(name string,
	testFunc func(t *HarnessTest)) {

	h.Helper()

	defer func() {
		r := recover()
		if r == nil {
			return
		}

		stack := debug.Stack()
		h.Fatalf("failed (%s): panic=%v\n%s", name, r, stack)
	}()

	if testFunc == nil {
		h.Fatalf("nil test func for %s", name)
	}

	testFunc(h)
}

// NetParams returns the chain parameters used by the harness.
func (h *HarnessTest) NetParams() *chaincfg.Params {
	h.Helper()

	return harnessNetParams
}

// WalletName returns a wallet name unique to the current test. Wallets
// outlive test cases on the shared node, so names must not be reused.
func (h *HarnessTest) WalletName(suffix string) string {
	name := h.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	return sanitizeLogToken(name) + "-" + sanitizeLogToken(suffix)
}

// Stop shuts down the backend. Subtest harnesses never stop it.
func (h *HarnessTest) Stop() {
	h.Helper()

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()

	require.NoError(h, h.Backend.Stop(), "failed to stop backend")
}
