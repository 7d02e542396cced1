//go:build darwin || linux

package bwtest

import (
	"fmt"
	"syscall"
)

const (
	// wantNoFile is the soft descriptor limit requested before launching
	// bitcoind.
	wantNoFile = 4096

	// infiniteNoFile is the value above which a limit is treated as
	// unlimited. bitcoind refuses to start on such values.
	infiniteNoFile = 1 << 60
)

// raiseNoFileLimit moves the soft RLIMIT_NOFILE of the process to wantNoFile,
// capped by the hard limit. It is best effort.
func raiseNoFileLimit() error {
	var rlim syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rlim); err != nil {
		return fmt.Errorf("get rlimit: %w", err)
	}

	cur, ok := noFileTarget(rlim.Cur, rlim.Max)
	if !ok {
		return nil
	}

	rlim.Cur = cur
	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rlim); err != nil {
		return fmt.Errorf("set rlimit: %w", err)
	}

	return nil
}

// noFileTarget returns the soft limit to set given the current soft and hard
// limits, and whether a change is needed at all.
func noFileTarget(cur, hard uint64) (uint64, bool) {
	target := uint64(wantNoFile)
	if hard > 0 && target > hard {
		target = hard
	}

	switch {
	case cur >= infiniteNoFile:
		return target, true

	case cur >= wantNoFile, target <= cur:
		return 0, false

	default:
		return target, true
	}
}
