package bwtest

import (
	"os"
	"testing"

	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcharness/bitcoind"
	"github.com/btcsuite/btcharness/collab"
	"github.com/btcsuite/btcharness/rpc"
	"github.com/btcsuite/btcharness/wallet"
	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/require"
)

// harnessLogFilePerm is more restrictive than logDirPerm because client logs
// carry addresses, txids and PSBTs.
const harnessLogFilePerm = 0o600

// setUpLogging points the package loggers of the client stack at logPath and
// returns a function closing the file.
//
// NOTE: This is package-global logger configuration. It should only be used
// in serial integration tests.
func setUpLogging(t *testing.T, logPath string) func() {
	t.Helper()

	// #nosec G304 -- logPath is created by the test harness.
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC,
		harnessLogFilePerm)
	require.NoError(t, err, "unable to create harness log file")

	backend := btclog.NewBackend(f)

	loggers := map[string]func(btclog.Logger){
		rpc.Subsystem:      rpc.UseLogger,
		bitcoind.Subsystem: bitcoind.UseLogger,
		wallet.Subsystem:   wallet.UseLogger,
		collab.Subsystem:   collab.UseLogger,
		"PRBE":             rpcclient.UseLogger,
	}
	for tag, use := range loggers {
		logger := backend.Logger(tag)
		logger.SetLevel(btclog.LevelDebug)
		use(logger)
	}

	return func() {
		rpc.DisableLog()
		bitcoind.DisableLog()
		wallet.DisableLog()
		collab.DisableLog()
		rpcclient.DisableLog()

		_ = f.Sync()
		_ = f.Close()
	}
}
