package collab

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

// newAddress returns a fresh regtest P2WPKH address and its script.
func newAddress(t *testing.T) (btcutil.Address, []byte) {
	t.Helper()

	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	addr, err := btcutil.NewAddressWitnessPubKeyHash(
		btcutil.Hash160(key.PubKey().SerializeCompressed()),
		&chaincfg.RegressionNetParams,
	)
	require.NoError(t, err)

	script, err := txscript.PayToAddrScript(addr)
	require.NoError(t, err)

	return addr, script
}

// newOutPoint returns a distinct outpoint per seed.
func newOutPoint(seed byte) wire.OutPoint {
	return *wire.NewOutPoint(&chainhash.Hash{seed}, uint32(seed))
}

// buildTx returns an unsigned transaction spending ins and paying outs.
func buildTx(ins []wire.OutPoint, outs ...*wire.TxOut) *wire.MsgTx {
	tx := wire.NewMsgTx(2)
	for i := range ins {
		tx.AddTxIn(wire.NewTxIn(&ins[i], nil, nil))
	}
	for _, out := range outs {
		tx.AddTxOut(out)
	}

	return tx
}

// encodePsbt returns the base64 PSBT of an unsigned transaction.
func encodePsbt(t *testing.T, tx *wire.MsgTx) string {
	t.Helper()

	packet, err := psbt.NewFromUnsignedTx(tx)
	require.NoError(t, err)

	b64, err := packet.B64Encode()
	require.NoError(t, err)

	return b64
}
