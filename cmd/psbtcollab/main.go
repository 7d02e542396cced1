// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command psbtcollab runs a collaborative PSBT session against a bitcoind
// node: every contributing wallet funds its share of one shared output, the
// wallets sign in turn and the transaction is broadcast.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcharness/bitcoind"
	"github.com/btcsuite/btcharness/collab"
	"github.com/btcsuite/btcharness/pkg/btcunit"
	"github.com/btcsuite/btcharness/rpc"
	"github.com/btcsuite/btcharness/wallet"
	"github.com/jessevdk/go-flags"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/term"
)

func main() {
	if err := run(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}

		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		return err
	}

	if err := initLogRotator(
		filepath.Join(cfg.LogDir, defaultLogFilename),
	); err != nil {
		return err
	}
	defer closeLogRotator()

	if err := setLogLevels(cfg.DebugLevel); err != nil {
		return err
	}

	if cfg.RPCPass == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		cfg.RPCPass, err = promptPassword()
		if err != nil {
			return err
		}
	}

	s, err := cfg.validate()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	if cfg.MetricsListen != "" {
		registry := prometheus.NewRegistry()
		s.rpc.Metrics = rpc.NewMetrics(registry)

		shutdown, err := serveMetrics(cfg.MetricsListen, registry)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	client, err := bitcoind.New(&bitcoind.Config{
		RPC:         s.rpc,
		ChainParams: s.params,
	})
	if err != nil {
		return err
	}

	txid, err := runSession(ctx, client, s)
	if err != nil {
		return err
	}

	fmt.Println(txid)

	if !cfg.WaitConf {
		return nil
	}

	height, err := waitConfirmation(ctx, client, txid, cfg.PollInterval)
	if err != nil {
		return err
	}

	log.Infof("Transaction %v confirmed at height %d", txid, height)

	return nil
}

// runSession checks the network, loads the wallets and runs the session.
func runSession(ctx context.Context, client *bitcoind.Client,
	s *session) (chainhash.Hash, error) {

	params, err := client.Network(ctx)
	if err != nil {
		return chainhash.Hash{}, fmt.Errorf("query network: %w", err)
	}
	if params.Name != s.params.Name {
		return chainhash.Hash{}, fmt.Errorf("daemon runs %s, not %s",
			params.Name, s.params.Name)
	}

	wallets := make(map[string]*wallet.Wallet)
	load := func(name string) (*wallet.Wallet, error) {
		if w, ok := wallets[name]; ok {
			return w, nil
		}

		// Wallets must already be loaded on the node.
		w := wallet.New(client, name)
		if _, err := w.Info(ctx); err != nil {
			return nil, fmt.Errorf("wallet %q: %w", name, err)
		}
		wallets[name] = w

		return w, nil
	}

	cfg := collab.Config{
		Target: collab.Target{
			Address: s.target,
			Total:   s.total,
		},
		FundOpts: fn.None[bitcoind.FundPsbtOpts](),
	}

	s.feeRate.WhenSome(func(rate btcunit.SatPerVByte) {
		cfg.FundOpts = fn.Some(bitcoind.FundPsbtOpts{
			FeeRate: fn.Some(rate),
		})
	})

	for _, c := range s.contributions {
		w, err := load(c.wallet)
		if err != nil {
			return chainhash.Hash{}, err
		}

		cfg.Contributions = append(cfg.Contributions, collab.Contribution{
			Party:  w,
			Amount: c.amount,
		})
	}

	coordinator, err := load(s.coordinator)
	if err != nil {
		return chainhash.Hash{}, err
	}
	cfg.Coordinator = coordinator

	session, err := collab.NewSession(cfg)
	if err != nil {
		return chainhash.Hash{}, err
	}

	log.Infof("Starting session: %d parties paying %v to %v",
		len(cfg.Contributions), session.Total(), s.target)

	result, err := session.Run(ctx)
	if err != nil {
		var incomplete *collab.IncompleteError
		if errors.As(err, &incomplete) {
			log.Errorf("Last PSBT: %s", incomplete.Psbt)
		}

		return chainhash.Hash{}, fmt.Errorf("session %v: %w",
			result.State, err)
	}

	return result.TxID.UnwrapOr(chainhash.Hash{}), nil
}

// waitConfirmation polls the node every interval until txid is mined.
func waitConfirmation(ctx context.Context, client *bitcoind.Client,
	txid chainhash.Hash, interval time.Duration) (int32, error) {

	t := ticker.New(interval)
	t.Resume()
	defer t.Stop()

	for {
		conf, err := client.TxBlockHeight(ctx, txid)
		if err != nil {
			return 0, fmt.Errorf("poll confirmation: %w", err)
		}

		if conf.IsSome() {
			return conf.UnwrapOr(0), nil
		}

		log.Debugf("Transaction %v not confirmed yet", txid)

		select {
		case <-t.Ticks():
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// serveMetrics exposes the registry over HTTP and returns a function
// stopping the server.
func serveMetrics(addr string, registry *prometheus.Registry) (func(),
	error) {

	lc := &net.ListenConfig{}
	listener, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(
		registry, promhttp.HandlerOpts{},
	))

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Metrics server: %v", err)
		}
	}()

	log.Infof("Serving metrics on %v", listener.Addr())

	return func() {
		_ = server.Close()
	}, nil
}

// promptPassword reads the RPC password from the terminal without echo.
func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "RPC password: ")
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	return string(pass), nil
}
