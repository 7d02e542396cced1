package btcunit

import (
	"fmt"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
)

// WeightUnit is a transaction size in weight units. The weight is
// `base size * 3 + total size`, where the base size excludes witness data.
type WeightUnit struct {
	wu uint64
}

// NewWeightUnit creates a new WeightUnit from a uint64 value.
func NewWeightUnit(val uint64) WeightUnit {
	return WeightUnit{wu: val}
}

// TxWeight returns the weight of tx.
func TxWeight(tx *wire.MsgTx) WeightUnit {
	weight := blockchain.GetTransactionWeight(btcutil.NewTx(tx))

	return NewWeightUnit(uint64(weight))
}

// ToVB converts the weight to virtual bytes.
func (w WeightUnit) ToVB() VByte {
	return VByte{w}
}

// String returns the string representation of the weight unit.
func (w WeightUnit) String() string {
	return fmt.Sprintf("%d wu", w.wu)
}

// VByte is a transaction size in virtual bytes, a quarter of a weight unit.
type VByte struct {
	weight WeightUnit
}

// NewVByte creates a new VByte from a uint64 value.
func NewVByte(val uint64) VByte {
	return VByte{NewWeightUnit(val * blockchain.WitnessScaleFactor)}
}

// ToWU converts the size to weight units.
func (v VByte) ToWU() WeightUnit {
	return v.weight
}

// Uint64 returns the size in virtual bytes, rounded up the way the daemon
// reports vsize.
func (v VByte) Uint64() uint64 {
	return (v.weight.wu + blockchain.WitnessScaleFactor - 1) /
		blockchain.WitnessScaleFactor
}

// String returns the string representation of the virtual byte.
func (v VByte) String() string {
	return fmt.Sprintf("%d vb", v.Uint64())
}

// TxFeeRate returns the fee rate paid by tx when it pays fee.
func TxFeeRate(fee btcutil.Amount, tx *wire.MsgTx) SatPerVByte {
	return CalcSatPerVByte(fee, TxWeight(tx).ToVB().Uint64())
}
