package bwtest

// logDirPerm keeps harness logs and datadirs private to the current user and
// group.
const logDirPerm = 0o750
