package bwtest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcharness/bwtest/wait"
	"github.com/btcsuite/btcharness/rpc"
)

const (
	backendBitcoind = "bitcoind"
	backendDocker   = "docker"

	// harnessRPCUser/harnessRPCPass are test-only credentials. They match
	// harnessRPCAuth.
	harnessRPCUser = "weks"
	harnessRPCPass = "weks"

	// harnessRPCAuth enables RPC access without storing cleartext
	// credentials in the datadir.
	//
	// Generated with: bitcoind -rpcauth=weks:weks.
	harnessRPCAuth = "weks:469e9bb14ab2360f8e226efed5ca6f" +
		"d$507c670e800a95284294edb5773b05544b" +
		"220110063096c221be9933c82d38e1"

	// harnessFallbackFee lets regtest wallets fund transactions before the
	// node has seen enough blocks to estimate fees.
	harnessFallbackFee = "0.0002"

	// defaultTestTimeout bounds polling and setup steps.
	defaultTestTimeout = 30 * time.Second
)

var (
	errWrongChain = errors.New("node is not on regtest")
)

// Backend is a regtest bitcoind the harness drives over RPC.
//
// A Backend instance is shared across the whole itest suite run and must be
// safe to reuse across subtests that run serially.
type Backend interface {
	// Name returns the name of the backend ("bitcoind", "docker").
	Name() string

	// Start launches the node and returns once it serves RPC.
	Start(ctx context.Context) error

	// Stop shuts the node down. Repeated calls are no-ops.
	Stop() error

	// RPCConfig returns the connection settings of the node.
	RPCConfig() rpc.Config

	// LogDir returns the directory where the backend writes its logs, if
	// any.
	LogDir() string
}

// NewBackend creates a Backend based on the type string.
func NewBackend(t *testing.T, backendType, logDir string) Backend {
	t.Helper()

	switch backendType {
	case backendBitcoind:
		return NewBitcoindBackend(t, logDir)

	case backendDocker:
		return NewContainerBackend(t, defaultBitcoindImage, logDir)

	default:
		t.Fatalf("unknown chain backend %q", backendType)
		return nil
	}
}

// validateBackendType validates the backend identifier provided by test flags
// before backend construction starts.
func validateBackendType(t *testing.T, backendType string) {
	t.Helper()

	switch backendType {
	case backendBitcoind, backendDocker:
		return

	default:
		t.Fatalf("unknown chain backend %q", backendType)
	}
}

// regtestArgs are the daemon flags shared by every backend.
func regtestArgs() []string {
	return []string{
		"-regtest",
		"-server",
		"-txindex",
		"-rpcauth=" + harnessRPCAuth,
		"-fallbackfee=" + harnessFallbackFee,
	}
}

// waitReady polls the node with rpcclient until it answers
// getblockchaininfo on regtest.
func waitReady(host string) error {
	cfg := &rpcclient.ConnConfig{
		Host:                host,
		User:                harnessRPCUser,
		Pass:                harnessRPCPass,
		DisableConnectOnNew: true,
		DisableTLS:          true,
		HTTPPostMode:        true,
	}

	return wait.NoError(func() error {
		client, err := rpcclient.New(cfg, nil)
		if err != nil {
			return fmt.Errorf("create rpc client: %w", err)
		}
		defer client.Shutdown()

		info, err := client.GetBlockChainInfo()
		if err != nil {
			return fmt.Errorf("get blockchain info: %w", err)
		}

		// A fresh chain stays in initial block download until the
		// first block, so that flag is not checked.
		if info.Chain != "regtest" {
			return fmt.Errorf("%w: chain=%s", errWrongChain,
				info.Chain)
		}

		return nil
	}, defaultTestTimeout)
}
