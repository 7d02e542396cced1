package bwtest

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcharness/bwtest/port"
	"github.com/btcsuite/btcharness/rpc"
	"github.com/stretchr/testify/require"
)

const (
	// bitcoindLogFilePerm protects daemon stdout/stderr logs written by the
	// harness.
	bitcoindLogFilePerm = 0o600

	// bitcoindMaxConnections keeps descriptor requirements low in CI.
	bitcoindMaxConnections = 16

	// bitcoindMaxMempoolMB reduces memory usage for short-lived test runs.
	bitcoindMaxMempoolMB = 50
)

// BitcoindBackend is a Backend backed by a local bitcoind process.
type BitcoindBackend struct {
	// binary is the resolved bitcoind executable path.
	binary string

	// cmd is the running bitcoind process.
	cmd *exec.Cmd

	// dataDir is the bitcoind data directory, which also holds its logs.
	dataDir string

	// rpcPort is the HTTP-RPC port used by bitcoind.
	rpcPort int

	// p2pPort is the p2p port used by bitcoind. No peer ever connects.
	p2pPort int

	// stdoutPath/stderrPath are harness-managed daemon log files.
	stdoutPath string
	stderrPath string

	// stdoutFile/stderrFile stay open for the lifetime of the process.
	stdoutFile *os.File
	stderrFile *os.File

	// cmdCancel cancels the process context to unblock shutdown paths.
	cmdCancel context.CancelFunc
}

// NewBitcoindBackend creates a new BitcoindBackend writing its data and logs
// to dataDir.
func NewBitcoindBackend(t *testing.T, dataDir string) *BitcoindBackend {
	t.Helper()

	binary, err := bitcoindBinary()
	require.NoError(t, err, "unable to find bitcoind binary")

	absDir, err := filepath.Abs(dataDir)
	require.NoError(t, err, "unable to get absolute bitcoind data dir")

	err = os.MkdirAll(absDir, logDirPerm)
	require.NoError(t, err, "unable to create bitcoind data dir")

	return &BitcoindBackend{
		binary:     binary,
		dataDir:    absDir,
		rpcPort:    port.NextAvailablePort(),
		p2pPort:    port.NextAvailablePort(),
		stdoutPath: filepath.Join(absDir, "bitcoind.stdout.log"),
		stderrPath: filepath.Join(absDir, "bitcoind.stderr.log"),
	}
}

// Name returns the identifier of the backend.
func (b *BitcoindBackend) Name() string {
	return backendBitcoind
}

// Start launches the daemon and waits until it serves RPC.
func (b *BitcoindBackend) Start(ctx context.Context) error {
	// bitcoind checks RLIMIT_NOFILE on startup.
	_ = raiseNoFileLimit()

	args := append(regtestArgs(),
		"-datadir="+b.dataDir,
		"-listen=0",
		fmt.Sprintf("-rpcport=%d", b.rpcPort),
		fmt.Sprintf("-port=%d", b.p2pPort),
		fmt.Sprintf("-maxconnections=%d", bitcoindMaxConnections),
		fmt.Sprintf("-maxmempool=%d", bitcoindMaxMempoolMB),
	)

	cmdCtx, cmdCancel := context.WithCancel(context.Background())
	b.cmdCancel = cmdCancel

	// #nosec G204 -- b.binary is looked up from PATH and args are controlled.
	cmd := exec.CommandContext(cmdCtx, b.binary, args...)

	stdout, err := openLog(b.stdoutPath)
	if err != nil {
		return err
	}

	stderr, err := openLog(b.stderrPath)
	if err != nil {
		_ = stdout.Close()
		return err
	}

	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		_ = stdout.Close()
		_ = stderr.Close()

		return fmt.Errorf("start bitcoind: %w", err)
	}

	b.cmd = cmd
	b.stdoutFile = stdout
	b.stderrFile = stderr

	if err := waitReady(b.host()); err != nil {
		_ = b.Stop()

		const errFmt = "bitcoind not ready: %w; logs: %s %s"

		return fmt.Errorf(errFmt, err, b.stdoutPath, b.stderrPath)
	}

	return nil
}

// Stop shuts down the daemon.
func (b *BitcoindBackend) Stop() error {
	if b.cmdCancel != nil {
		b.cmdCancel()
		b.cmdCancel = nil
	}

	if b.cmd != nil && b.cmd.Process != nil {
		_ = b.cmd.Process.Kill()
		_ = b.cmd.Wait()
	}
	b.cmd = nil

	if b.stdoutFile != nil {
		_ = b.stdoutFile.Close()
		b.stdoutFile = nil
	}

	if b.stderrFile != nil {
		_ = b.stderrFile.Close()
		b.stderrFile = nil
	}

	return nil
}

// RPCConfig returns the connection settings of the daemon.
func (b *BitcoindBackend) RPCConfig() rpc.Config {
	return rpc.Config{
		Host: b.host(),
		User: harnessRPCUser,
		Pass: harnessRPCPass,
	}
}

// LogDir returns the bitcoind data directory, which holds its logs.
func (b *BitcoindBackend) LogDir() string {
	return b.dataDir
}

func (b *BitcoindBackend) host() string {
	return fmt.Sprintf(port.ListenerFormat, b.rpcPort)
}

// bitcoindBinary returns the absolute path of bitcoind found in PATH.
func bitcoindBinary() (string, error) {
	path, err := exec.LookPath("bitcoind")
	if err != nil {
		return "", fmt.Errorf("failed to find bitcoind binary: %w", err)
	}

	path, err = filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	return path, nil
}

// openLog opens a daemon log file for appending.
func openLog(path string) (*os.File, error) {
	// #nosec G304 -- path is created by the test harness.
	f, err := os.OpenFile(
		path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, bitcoindLogFilePerm,
	)
	if err != nil {
		return nil, fmt.Errorf("open bitcoind log %s: %w", path, err)
	}

	return f, nil
}

var _ Backend = (*BitcoindBackend)(nil)
