//go:build itest

package itest

import "github.com/btcsuite/btcharness/bwtest"

// testCase defines a single integration test case.
type testCase struct {
	// Name is the human-readable name of the test case.
	Name string

	// TestFunc executes the test case.
	TestFunc func(t *bwtest.HarnessTest)
}

// allTestCases is the full set of integration test cases.
var allTestCases = []*testCase{
	{
		Name:     "wallet open idempotent",
		TestFunc: testWalletOpenIdempotent,
	},
	{
		Name:     "wallet send confirm",
		TestFunc: testWalletSendConfirm,
	},
	{
		Name:     "wallet unknown rejected",
		TestFunc: testWalletUnknownRejected,
	},
	{
		Name:     "collab two party",
		TestFunc: testCollabTwoParty,
	},
	{
		Name:     "collab funding failure",
		TestFunc: testCollabFundingFailure,
	},
	{
		Name:     "miner background blocks",
		TestFunc: testMinerBackground,
	},
}
