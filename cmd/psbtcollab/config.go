// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcharness/bitcoind"
	"github.com/btcsuite/btcharness/pkg/btcunit"
	"github.com/btcsuite/btcharness/rpc"
	"github.com/jessevdk/go-flags"
	"github.com/lightningnetwork/lnd/fn/v2"
)

const (
	defaultNetwork      = "regtest"
	defaultLogLevel     = "info"
	defaultLogFilename  = "psbtcollab.log"
	defaultPollInterval = 5 * time.Second
	defaultMaxLogSizeKB = 10 * 1024
	defaultMaxLogFiles  = 3
)

var (
	defaultAppDir = btcutil.AppDataDir("psbtcollab", false)
	defaultLogDir = filepath.Join(defaultAppDir, "logs")

	errNoContributions = errors.New("at least one --contribution is " +
		"required")
	errBadContribution = errors.New("contribution must be " +
		"<wallet>=<amount in BTC>")
	errNoTarget = errors.New("--target is required")
)

// config defines the configuration options for psbtcollab.
type config struct {
	ConfigFile string `short:"C" long:"configfile" description:"Path to an INI configuration file"`

	RPCHost string `long:"rpchost" description:"bitcoind RPC address, host:port or URL"`
	RPCUser string `long:"rpcuser" description:"bitcoind RPC username"`
	RPCPass string `long:"rpcpass" default-mask:"-" description:"bitcoind RPC password; prompted for when empty on a terminal"`
	Network string `long:"network" description:"Network of the daemon" choice:"mainnet" choice:"testnet" choice:"signet" choice:"regtest"`

	Contributions []string `long:"contribution" description:"Funding party as <wallet>=<amount in BTC>; repeat once per party, in signing order"`
	Target        string   `long:"target" description:"Shared output address"`
	Total         string   `long:"total" description:"Agreed value of the shared output in BTC; defaults to the sum of the contributions"`
	Coordinator   string   `long:"coordinator" description:"Wallet joining, finalizing and broadcasting; defaults to the first contributor"`
	FeeRate       float64  `long:"feerate" description:"Funding fee rate in sat/vB; the wallet estimates one when unset"`

	WaitConf     bool          `long:"waitconf" description:"Wait for the transaction to confirm"`
	PollInterval time.Duration `long:"pollinterval" description:"Confirmation polling interval"`

	MetricsListen string `long:"metricslisten" description:"Serve Prometheus metrics on this address"`

	LogDir     string `long:"logdir" description:"Directory to log output"`
	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
}

// contribution is a parsed --contribution.
type contribution struct {
	wallet string
	amount btcutil.Amount
}

// session is the validated run configuration derived from config.
type session struct {
	params        *chaincfg.Params
	rpc           rpc.Config
	contributions []contribution
	target        btcutil.Address
	total         fn.Option[btcutil.Amount]
	coordinator   string
	feeRate       fn.Option[btcunit.SatPerVByte]
}

func defaultConfig() config {
	return config{
		RPCHost:      rpc.DefaultHost,
		Network:      defaultNetwork,
		PollInterval: defaultPollInterval,
		LogDir:       defaultLogDir,
		DebugLevel:   defaultLogLevel,
	}
}

// loadConfig parses the command line, and the config file when one is
// given, on top of the defaults. Command line options win over the file.
func loadConfig(args []string) (*config, error) {
	// Pre-parse to find the config file.
	preCfg := defaultConfig()
	preParser := flags.NewParser(&preCfg, flags.HelpFlag)
	if _, err := preParser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, err
		}
	}

	cfg := defaultConfig()
	parser := flags.NewParser(&cfg, flags.Default)

	if preCfg.ConfigFile != "" {
		err := flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	cfg.LogDir = cleanPath(cfg.LogDir)

	return &cfg, nil
}

// validate checks cfg and derives the session parameters from it.
func (c *config) validate() (*session, error) {
	params, err := bitcoind.ParamsForChain(chainName(c.Network))
	if err != nil {
		return nil, err
	}

	if len(c.Contributions) == 0 {
		return nil, errNoContributions
	}

	s := &session{
		params: params,
		rpc: rpc.Config{
			Host: c.RPCHost,
			User: c.RPCUser,
			Pass: c.RPCPass,
		},
		total:   fn.None[btcutil.Amount](),
		feeRate: fn.None[btcunit.SatPerVByte](),
	}

	for _, raw := range c.Contributions {
		contrib, err := parseContribution(raw)
		if err != nil {
			return nil, err
		}
		s.contributions = append(s.contributions, contrib)
	}

	if c.Target == "" {
		return nil, errNoTarget
	}

	s.target, err = btcutil.DecodeAddress(c.Target, params)
	if err != nil {
		return nil, fmt.Errorf("invalid target: %w", err)
	}
	if !s.target.IsForNet(params) {
		return nil, fmt.Errorf("%w: target %s is not a %s address",
			bitcoind.ErrWrongNetwork, c.Target, params.Name)
	}

	if c.Total != "" {
		total, err := btcunit.ParseBTC(c.Total)
		if err != nil {
			return nil, fmt.Errorf("invalid total: %w", err)
		}
		s.total = fn.Some(total)
	}

	s.coordinator = c.Coordinator
	if s.coordinator == "" {
		s.coordinator = s.contributions[0].wallet
	}

	if c.FeeRate < 0 {
		return nil, fmt.Errorf("invalid fee rate %v", c.FeeRate)
	}
	if c.FeeRate > 0 {
		// Kept to the 0.001 sat/vB the daemon accepts.
		milliSats := btcutil.Amount(math.Round(c.FeeRate * 1000))
		s.feeRate = fn.Some(btcunit.CalcSatPerVByte(milliSats, 1000))
	}

	return s, nil
}

// parseContribution parses <wallet>=<amount in BTC>.
func parseContribution(raw string) (contribution, error) {
	name, amt, ok := strings.Cut(raw, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return contribution{}, fmt.Errorf("%w: %q", errBadContribution,
			raw)
	}

	amount, err := btcunit.ParseBTC(strings.TrimSpace(amt))
	if err != nil {
		return contribution{}, fmt.Errorf("contribution of %s: %w",
			name, err)
	}

	return contribution{wallet: name, amount: amount}, nil
}

// chainName maps a --network choice to the chain name bitcoind reports.
func chainName(network string) string {
	switch network {
	case "mainnet":
		return "main"
	case "testnet":
		return "test"
	default:
		return network
	}
}

// cleanPath expands a leading ~ and environment variables and cleans the
// result.
func cleanPath(path string) string {
	if path == "" {
		return ""
	}

	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[1:])
		}
	}

	return filepath.Clean(os.ExpandEnv(path))
}
