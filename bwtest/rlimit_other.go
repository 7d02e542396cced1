//go:build !(darwin || linux)

package bwtest

// raiseNoFileLimit is a no-op on platforms without RLIMIT_NOFILE.
func raiseNoFileLimit() error {
	return nil
}
