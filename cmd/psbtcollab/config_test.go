package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcharness/bitcoind"
	"github.com/btcsuite/btcharness/pkg/btcunit"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

// newAddress returns a fresh P2WPKH address for the given network.
func newAddress(t *testing.T, params *chaincfg.Params) string {
	t.Helper()

	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	addr, err := btcutil.NewAddressWitnessPubKeyHash(
		btcutil.Hash160(key.PubKey().SerializeCompressed()), params,
	)
	require.NoError(t, err)

	return addr.EncodeAddress()
}

// TestParseContribution checks the <wallet>=<amount> syntax.
func TestParseContribution(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		raw     string
		want    contribution
		wantErr error
	}{
		{
			name: "whole coin",
			raw:  "alice=1",
			want: contribution{wallet: "alice", amount: 1e8},
		},
		{
			name: "fraction with spaces",
			raw:  " bob = 0.00012345 ",
			want: contribution{wallet: "bob", amount: 12345},
		},
		{
			name:    "missing separator",
			raw:     "alice",
			wantErr: errBadContribution,
		},
		{
			name:    "missing wallet",
			raw:     "=1",
			wantErr: errBadContribution,
		},
		{
			name:    "sub satoshi",
			raw:     "alice=0.000000001",
			wantErr: btcunit.ErrAmountPrecision,
		},
		{
			name:    "not a number",
			raw:     "alice=lots",
			wantErr: btcunit.ErrAmountSyntax,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseContribution(tc.raw)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

// TestLoadConfigValidate checks that flags turn into session parameters.
func TestLoadConfigValidate(t *testing.T) {
	t.Parallel()

	// Arrange: A two party regtest session with an explicit fee rate.
	target := newAddress(t, &chaincfg.RegressionNetParams)
	args := []string{
		"--rpcuser=u", "--rpcpass=p",
		"--contribution=alice=1", "--contribution=bob=0.5",
		"--target=" + target,
		"--feerate=2.5",
		"--logdir=" + t.TempDir(),
	}

	// Act: Parse and validate.
	cfg, err := loadConfig(args)
	require.NoError(t, err)

	s, err := cfg.validate()
	require.NoError(t, err)

	// Assert: Defaults and derived values are in place.
	require.Equal(t, &chaincfg.RegressionNetParams, s.params)
	require.Equal(t, "127.0.0.1:18443", s.rpc.Host)
	require.Equal(t, "u", s.rpc.User)
	require.Equal(t, "p", s.rpc.Pass)
	require.Equal(t, []contribution{
		{wallet: "alice", amount: 1e8},
		{wallet: "bob", amount: 5e7},
	}, s.contributions)
	require.Equal(t, target, s.target.EncodeAddress())
	require.True(t, s.total.IsNone())
	require.Equal(t, "alice", s.coordinator)
	require.Equal(t, fn.Some("2.500"), fn.MapOption(
		func(r btcunit.SatPerVByte) string { return r.Decimal() },
	)(s.feeRate))
}

// TestValidateErrors checks the rejected configurations.
func TestValidateErrors(t *testing.T) {
	t.Parallel()

	regtest := newAddress(t, &chaincfg.RegressionNetParams)
	mainnet := newAddress(t, &chaincfg.MainNetParams)

	testCases := []struct {
		name    string
		cfg     config
		wantErr error
	}{
		{
			name:    "no contributions",
			cfg:     config{Network: "regtest", Target: regtest},
			wantErr: errNoContributions,
		},
		{
			name: "no target",
			cfg: config{
				Network:       "regtest",
				Contributions: []string{"alice=1"},
			},
			wantErr: errNoTarget,
		},
		{
			name: "target on another network",
			cfg: config{
				Network:       "regtest",
				Contributions: []string{"alice=1"},
				Target:        mainnet,
			},
			wantErr: bitcoind.ErrWrongNetwork,
		},
		{
			name: "bad total",
			cfg: config{
				Network:       "regtest",
				Contributions: []string{"alice=1"},
				Target:        regtest,
				Total:         "1.123456789",
			},
			wantErr: btcunit.ErrAmountPrecision,
		},
		{
			name: "unknown network",
			cfg: config{
				Network:       "simnet",
				Contributions: []string{"alice=1"},
				Target:        regtest,
			},
			wantErr: bitcoind.ErrUnknownChain,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := tc.cfg.validate()
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

// TestLoadConfigFile checks that the INI file is read and the command line
// overrides it.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	// Arrange: A config file setting the host and the user.
	path := filepath.Join(t.TempDir(), "psbtcollab.conf")
	ini := "[Application Options]\nrpchost=10.0.0.1:8332\nrpcuser=fromfile\n"
	require.NoError(t, os.WriteFile(path, []byte(ini), 0o600))

	// Act: Load it with a command line user.
	cfg, err := loadConfig([]string{
		"--configfile=" + path, "--rpcuser=fromflag",
	})

	// Assert: The file fills in what the flags leave out.
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1:8332", cfg.RPCHost)
	require.Equal(t, "fromflag", cfg.RPCUser)
}

// TestChainName checks the network flag mapping.
func TestChainName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "main", chainName("mainnet"))
	require.Equal(t, "test", chainName("testnet"))
	require.Equal(t, "signet", chainName("signet"))
	require.Equal(t, "regtest", chainName("regtest"))
}
