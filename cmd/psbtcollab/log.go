// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcharness/bitcoind"
	"github.com/btcsuite/btcharness/collab"
	"github.com/btcsuite/btcharness/rpc"
	"github.com/btcsuite/btcharness/wallet"
	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

// logWriter implements an io.Writer that outputs to both standard output and
// the write-end pipe of an initialized log rotator.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	os.Stdout.Write(p)
	if logRotator != nil {
		logRotator.Write(p)
	}

	return len(p), nil
}

var (
	// backendLog is the logging backend used to create all subsystem
	// loggers.
	backendLog = btclog.NewBackend(logWriter{})

	// logRotator is one of the logging outputs. It is nil until
	// initLogRotator is called.
	logRotator *rotator.Rotator

	log = backendLog.Logger("PSBT")

	// subsystemLoggers maps each subsystem identifier to its associated
	// logger.
	subsystemLoggers = map[string]btclog.Logger{
		"PSBT":             log,
		rpc.Subsystem:      backendLog.Logger(rpc.Subsystem),
		bitcoind.Subsystem: backendLog.Logger(bitcoind.Subsystem),
		wallet.Subsystem:   backendLog.Logger(wallet.Subsystem),
		collab.Subsystem:   backendLog.Logger(collab.Subsystem),
	}
)

func init() {
	rpc.UseLogger(subsystemLoggers[rpc.Subsystem])
	bitcoind.UseLogger(subsystemLoggers[bitcoind.Subsystem])
	wallet.UseLogger(subsystemLoggers[wallet.Subsystem])
	collab.UseLogger(subsystemLoggers[collab.Subsystem])
}

// initLogRotator initializes the logging rotator to write logs to logFile and
// create roll files in the same directory. It must be called before the
// package-global log rotator variables are used.
func initLogRotator(logFile string) error {
	logDir, _ := filepath.Split(logFile)
	if err := os.MkdirAll(logDir, 0o700); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	r, err := rotator.New(
		logFile, defaultMaxLogSizeKB, false, defaultMaxLogFiles,
	)
	if err != nil {
		return fmt.Errorf("create file rotator: %w", err)
	}

	logRotator = r

	return nil
}

// closeLogRotator flushes and closes the log rotator when one is in use.
func closeLogRotator() {
	if logRotator != nil {
		_ = logRotator.Close()
	}
}

// setLogLevels sets the log level of every subsystem.
func setLogLevels(debugLevel string) error {
	level, ok := btclog.LevelFromString(debugLevel)
	if !ok {
		return fmt.Errorf("invalid debug level %q", debugLevel)
	}

	for _, logger := range subsystemLoggers {
		logger.SetLevel(level)
	}

	return nil
}
