// Package port hands out free local TCP ports to harness processes. A lock
// file in the system temp directory keeps parallel test binaries on the same
// machine from picking the same port.
package port

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

const (
	// ListenerFormat is the format of a local listener address.
	ListenerFormat = "127.0.0.1:%d"

	// firstPort is where the search starts after a fresh boot or once the
	// range is exhausted.
	firstPort = 20000

	// lastPort is the highest port handed out.
	lastPort = 65535

	// stateFile stores the last port handed out, lockFile guards it.
	stateFile = "btcharness-port"
	lockFile  = stateFile + ".lock"

	filePerms = 0o600

	lockTimeout   = 30 * time.Second
	lockRetryWait = 10 * time.Millisecond
)

// mu serializes goroutines of this process; the lock file serializes
// processes.
var mu sync.Mutex

// NextAvailablePort returns a port that was free to listen on at the time of
// the call and that no other caller has been handed out since the state file
// was last reset.
func NextAvailablePort() int {
	mu.Lock()
	defer mu.Unlock()

	lockPath := filepath.Join(os.TempDir(), lockFile)
	release := acquire(lockPath)
	defer release()

	statePath := filepath.Join(os.TempDir(), stateFile)

	last := firstPort
	if raw, err := os.ReadFile(statePath); err == nil {
		if n, err := strconv.Atoi(string(raw)); err == nil {
			last = n
		}
	}

	next := last + 1
	if next > lastPort {
		next = firstPort
	}

	port := findFree(next)

	err := os.WriteFile(statePath, []byte(strconv.Itoa(port)), filePerms)
	if err != nil {
		panic(fmt.Errorf("write port state: %w", err))
	}

	return port
}

// findFree returns the first port from start on that accepts a listener,
// wrapping around once.
func findFree(start int) int {
	lc := &net.ListenConfig{}

	for port := start; ; {
		addr := fmt.Sprintf(ListenerFormat, port)

		l, err := lc.Listen(context.Background(), "tcp4", addr)
		if err == nil {
			_ = l.Close()

			return port
		}

		port++
		if port > lastPort {
			port = firstPort
		}

		if port == start {
			panic("no ports available for listening")
		}
	}
}

// acquire creates the lock file, waiting for another holder to release it.
// A lock file left behind by a killed process must be removed by hand.
func acquire(path string) func() {
	timeout := time.After(lockTimeout)

	for {
		// #nosec G304 -- path is built from os.TempDir and a constant.
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL, filePerms)
		if err == nil {
			return func() {
				_ = f.Close()
				_ = os.Remove(path)
			}
		}

		select {
		case <-timeout:
			panic("timeout waiting for port lock file " + path)

		case <-time.After(lockRetryWait):
		}
	}
}
