package bwtest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/require"
)

// TestSanitizeLogToken checks that names are safe to use as file names.
func TestSanitizeLogToken(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in   string
		want string
	}{
		{in: "", want: "unknown"},
		{in: "bitcoind", want: "bitcoind"},
		{in: "collab two_party", want: "collab_two_party"},
		{in: "a/b:c", want: "a_b_c"},
		{in: "Alice-1", want: "Alice-1"},
	}

	for _, tc := range testCases {
		require.Equal(t, tc.want, sanitizeLogToken(tc.in), tc.in)
	}
}

// TestNewRunLogs checks the layout of a run log directory.
func TestNewRunLogs(t *testing.T) {
	t.Parallel()

	// Arrange: An empty log root.
	root := filepath.Join(t.TempDir(), testLogsRootDir)

	// Act: Create two runs for the same backend.
	first := newRunLogs(t, root, "docker")
	second := newRunLogs(t, root, "docker")

	// Assert: Each run has its own directory with the node and wallet
	// sub-directories.
	require.NotEqual(t, first.dir, second.dir)
	require.Equal(t, root, filepath.Dir(first.dir))
	require.True(t, strings.HasPrefix(
		filepath.Base(first.dir), "run-docker-",
	))

	for _, dir := range []string{
		first.nodeDir(), filepath.Join(first.dir, walletLogSubDir),
	} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		require.True(t, info.IsDir(), dir)
	}

	require.Equal(t, filepath.Join(first.dir, "harness.log"),
		first.harnessLog())
}

// TestWalletLog checks the naming and content of a case wallet log.
func TestWalletLog(t *testing.T) {
	t.Parallel()

	logs := &runLogs{dir: "/logs/run"}

	require.Equal(t,
		"/logs/run/wallets/TestBitcoindHarness_collab_two_party.log",
		logs.walletLog("TestBitcoindHarness/collab_two_party"),
	)

	line := walletLogLine(
		"collab_two_party-alice", btcutil.Amount(150_000_000), 2,
	)
	require.Equal(t, "collab_two_party-alice balance=1.5 BTC utxos=2\n",
		line)
}
