package bwtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/require"
)

// Every harness run writes its logs to one directory:
//
//	test-logs/
//	  run-<backend>-<YYYYMMDD-HHMMSS>-<random>/
//	    harness.log          client stack logs of every subsystem
//	    node/                bitcoind datadir and output, or container.log
//	    wallets/<case>.log   one line per wallet a test case created
//
// When running `go test ./itest`, the working directory is `itest`, so logs
// end up under `itest/test-logs`.
const (
	testLogsRootDir = "test-logs"

	harnessLogFilename = "harness.log"

	nodeLogSubDir = "node"

	walletLogSubDir = "wallets"

	containerLogFilename = "container.log"
)

// runLogs is the log directory of one harness run.
type runLogs struct {
	dir string
}

// newRunLogs creates the log directory of a run under root.
func newRunLogs(t *testing.T, root, backend string) *runLogs {
	t.Helper()

	err := os.MkdirAll(root, logDirPerm)
	require.NoError(t, err, "unable to create test log root")

	pattern := fmt.Sprintf("run-%s-%s-", sanitizeLogToken(backend),
		time.Now().Format("20060102-150405"))

	dir, err := os.MkdirTemp(root, pattern)
	require.NoError(t, err, "unable to create run log dir")

	for _, sub := range []string{nodeLogSubDir, walletLogSubDir} {
		err := os.MkdirAll(filepath.Join(dir, sub), logDirPerm)
		require.NoError(t, err, "unable to create %s log dir", sub)
	}

	t.Logf("harness logs: %s", dir)

	return &runLogs{dir: dir}
}

// harnessLog is the file receiving the client stack logs.
func (l *runLogs) harnessLog() string {
	return filepath.Join(l.dir, harnessLogFilename)
}

// nodeDir is the directory handed to the backend.
func (l *runLogs) nodeDir() string {
	return filepath.Join(l.dir, nodeLogSubDir)
}

// walletLog is the wallet summary file of a test case.
func (l *runLogs) walletLog(testName string) string {
	return filepath.Join(
		l.dir, walletLogSubDir, sanitizeLogToken(testName)+".log",
	)
}

// walletLogLine renders one wallet of a case summary.
func walletLogLine(name string, balance btcutil.Amount, utxos int) string {
	return fmt.Sprintf("%s balance=%v utxos=%d\n", name, balance, utxos)
}

// writeWalletLog records the final balance and coin count of every wallet
// the test case created. It runs as a test cleanup, after the test context
// is done, so it uses its own deadline.
func (h *HarnessTest) writeWalletLog() {
	wallets := h.ActiveWallets()
	if len(wallets) == 0 || h.logs == nil {
		return
	}

	ctx, cancel := context.WithTimeout(
		context.Background(), defaultTestTimeout,
	)
	defer cancel()

	var b strings.Builder
	for _, w := range wallets {
		balance, err := w.Balance(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(&b, "%s error=%v\n", w.Name(), err)
			continue
		}

		utxos, err := w.ListUnspent(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(&b, "%s error=%v\n", w.Name(), err)
			continue
		}

		b.WriteString(walletLogLine(w.Name(), balance, len(utxos)))
	}

	path := h.logs.walletLog(h.Name())
	err := os.WriteFile(path, []byte(b.String()), harnessLogFilePerm)
	if err != nil {
		h.Logf("unable to write wallet log %s: %v", path, err)
	}
}

// sanitizeLogToken converts a string into a safe filename token.
func sanitizeLogToken(token string) string {
	if token == "" {
		return "unknown"
	}

	return strings.Map(func(r rune) rune {
		if isSafeLogRune(r) {
			return r
		}

		return '_'
	}, token)
}

// isSafeLogRune reports whether r can be used in log file names without
// escaping.
func isSafeLogRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true

	case r >= '0' && r <= '9', r == '-' || r == '_':
		return true

	default:
		return false
	}
}
