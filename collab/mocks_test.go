package collab

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcharness/bitcoind"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/mock"
)

var (
	_ Party       = (*mockParty)(nil)
	_ Coordinator = (*mockCoordinator)(nil)
)

// mockParty is a mock implementation of the Party interface.
type mockParty struct {
	mock.Mock

	name string
}

func newMockParty(name string) *mockParty {
	return &mockParty{name: name}
}

func (m *mockParty) Name() string {
	return m.name
}

func (m *mockParty) FundPsbt(ctx context.Context, outputs []bitcoind.Output,
	opts fn.Option[bitcoind.FundPsbtOpts]) (*bitcoind.FundedPsbt, error) {

	args := m.Called(ctx, outputs, opts)
	return args.Get(0).(*bitcoind.FundedPsbt), args.Error(1)
}

func (m *mockParty) ProcessPsbt(ctx context.Context,
	psbt string) (*bitcoind.ProcessedPsbt, error) {

	args := m.Called(ctx, psbt)
	return args.Get(0).(*bitcoind.ProcessedPsbt), args.Error(1)
}

// mockCoordinator is a mock implementation of the Coordinator interface.
type mockCoordinator struct {
	mock.Mock
}

func (m *mockCoordinator) JoinPsbts(ctx context.Context,
	psbts []string) (string, error) {

	args := m.Called(ctx, psbts)
	return args.String(0), args.Error(1)
}

func (m *mockCoordinator) FinalizePsbt(ctx context.Context,
	psbt string) (*bitcoind.FinalizedPsbt, error) {

	args := m.Called(ctx, psbt)
	return args.Get(0).(*bitcoind.FinalizedPsbt), args.Error(1)
}

func (m *mockCoordinator) BroadcastTx(ctx context.Context,
	tx *wire.MsgTx) (chainhash.Hash, error) {

	args := m.Called(ctx, tx)
	return args.Get(0).(chainhash.Hash), args.Error(1)
}
