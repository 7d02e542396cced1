// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package btcunit provides a set of types for dealing with bitcoin units as
// they cross the bitcoind JSON-RPC boundary.
package btcunit

import (
	"log/slog"
	"math"
	"math/big"

	"github.com/btcsuite/btcd/btcutil"
)

const (
	// kilo is a generic multiplier for kilo units.
	kilo = 1000

	// floatStringPrecision is the number of decimal places bitcoind accepts
	// for a sat/vB fee rate. 1 sat/kvB is 0.001 sat/vB, so three places
	// keep the lowest non-zero rate from being rounded to zero.
	floatStringPrecision = 3
)

var (
	// ZeroSatPerVByte is a fee rate of 0 sat/vb.
	ZeroSatPerVByte = NewSatPerVByte(0)

	// ZeroSatPerKVByte is a fee rate of 0 sat/kvb.
	ZeroSatPerKVByte = NewSatPerKVByte(0)
)

// baseFeeRate stores the canonical representation of a fee rate, which is
// satoshis per kilo-virtual-byte (sat/kvB), the unit bitcoind uses for its
// own fee policy. Every other unit is derived from it.
type baseFeeRate struct {
	satsPerKVB *big.Rat
}

// newBaseFeeRate creates a fee rate of numerator sat/kvB divided by
// denominator. A zero denominator yields a zero fee rate.
func newBaseFeeRate(numerator btcutil.Amount, denominator uint64) baseFeeRate {
	if denominator == 0 {
		return baseFeeRate{satsPerKVB: big.NewRat(0, 1)}
	}

	return baseFeeRate{satsPerKVB: big.NewRat(
		int64(numerator), safeUint64ToInt64(denominator),
	)}
}

// ToSatPerVByte converts the fee rate to sat/vb.
func (f baseFeeRate) ToSatPerVByte() SatPerVByte {
	return SatPerVByte{f}
}

// ToSatPerKVByte converts the fee rate to sat/kvb.
func (f baseFeeRate) ToSatPerKVByte() SatPerKVByte {
	return SatPerKVByte{f}
}

// FeeForVSize returns the fee for a transaction of the given virtual size,
// rounded down to the satoshi.
func (f baseFeeRate) FeeForVSize(vbytes uint64) btcutil.Amount {
	fee := new(big.Rat).Mul(
		f.satsPerKVB, big.NewRat(safeUint64ToInt64(vbytes), kilo),
	)

	return btcutil.Amount(new(big.Int).Quo(fee.Num(), fee.Denom()).Int64())
}

// FeeForVSizeRoundUp returns the fee for a transaction of the given virtual
// size, rounded up to the satoshi.
func (f baseFeeRate) FeeForVSizeRoundUp(vbytes uint64) btcutil.Amount {
	fee := new(big.Rat).Mul(
		f.satsPerKVB, big.NewRat(safeUint64ToInt64(vbytes), kilo),
	)

	// Ceiling division: (num + denom - 1) / denom.
	result := new(big.Int).Add(fee.Num(), fee.Denom())
	result.Sub(result, big.NewInt(1))
	result.Quo(result, fee.Denom())

	return btcutil.Amount(result.Int64())
}

// cmp compares two fee rates.
func (f baseFeeRate) cmp(other baseFeeRate) int {
	return f.satsPerKVB.Cmp(other.satsPerKVB)
}

// SatPerVByte represents a fee rate in sat/vbyte. This is the unit of the
// `fee_rate` option accepted by the bitcoind wallet RPCs.
type SatPerVByte struct {
	baseFeeRate
}

// NewSatPerVByte creates a new fee rate in sat/vb.
func NewSatPerVByte(rate btcutil.Amount) SatPerVByte {
	return CalcSatPerVByte(rate, 1)
}

// CalcSatPerVByte calculates the fee rate in sat/vb for a given fee and
// virtual size.
func CalcSatPerVByte(fee btcutil.Amount, vbytes uint64) SatPerVByte {
	return SatPerVByte{newBaseFeeRate(fee*kilo, vbytes)}
}

// Decimal returns the rate in sat/vB as a decimal string with three
// fractional digits, the form bitcoind expects for `fee_rate`.
func (s SatPerVByte) Decimal() string {
	perVByte := new(big.Rat).Mul(s.satsPerKVB, big.NewRat(1, kilo))

	return perVByte.FloatString(floatStringPrecision)
}

// String returns a human-readable string of the fee rate.
func (s SatPerVByte) String() string {
	return s.Decimal() + " sat/vb"
}

// Equal returns true if the fee rate is equal to the other fee rate.
func (s SatPerVByte) Equal(other SatPerVByte) bool {
	return s.cmp(other.baseFeeRate) == 0
}

// GreaterThan returns true if the fee rate is greater than the other fee rate.
func (s SatPerVByte) GreaterThan(other SatPerVByte) bool {
	return s.cmp(other.baseFeeRate) > 0
}

// LessThan returns true if the fee rate is less than the other fee rate.
func (s SatPerVByte) LessThan(other SatPerVByte) bool {
	return s.cmp(other.baseFeeRate) < 0
}

// SatPerKVByte represents a fee rate in sat/kvb.
type SatPerKVByte struct {
	baseFeeRate
}

// NewSatPerKVByte creates a new fee rate in sat/kvb.
func NewSatPerKVByte(rate btcutil.Amount) SatPerKVByte {
	return SatPerKVByte{newBaseFeeRate(rate, 1)}
}

// BTCPerKVByte returns the rate as a decimal whole-coin amount per kvB,
// truncated to the satoshi. This is the unit of the legacy `feeRate` option.
func (s SatPerKVByte) BTCPerKVByte() (string, error) {
	sats := new(big.Int).Quo(s.satsPerKVB.Num(), s.satsPerKVB.Denom())

	return FormatBTC(btcutil.Amount(sats.Int64()))
}

// String returns a human-readable string of the fee rate.
func (s SatPerKVByte) String() string {
	return s.satsPerKVB.FloatString(floatStringPrecision) + " sat/kvb"
}

// Equal returns true if the fee rate is equal to the other fee rate.
func (s SatPerKVByte) Equal(other SatPerKVByte) bool {
	return s.cmp(other.baseFeeRate) == 0
}

// GreaterThan returns true if the fee rate is greater than the other fee rate.
func (s SatPerKVByte) GreaterThan(other SatPerKVByte) bool {
	return s.cmp(other.baseFeeRate) > 0
}

// LessThan returns true if the fee rate is less than the other fee rate.
func (s SatPerKVByte) LessThan(other SatPerKVByte) bool {
	return s.cmp(other.baseFeeRate) < 0
}

// safeUint64ToInt64 converts a uint64 to an int64, capping at math.MaxInt64.
// Sizes passed in here are bounded by consensus and never reach the cap.
func safeUint64ToInt64(u uint64) int64 {
	if u > math.MaxInt64 {
		slog.Warn("Capping uint64 value to math.MaxInt64",
			slog.Uint64("old", u), slog.Int64("new", math.MaxInt64))

		return math.MaxInt64
	}

	return int64(u)
}
