// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package btcunit

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/shopspring/decimal"
)

// btcDecimals is the number of fractional digits of a whole-coin amount as
// used by the bitcoind JSON-RPC interface.
const btcDecimals = 8

var (
	// ErrAmountSyntax is returned when a string is not a decimal number.
	ErrAmountSyntax = errors.New("invalid decimal amount")

	// ErrAmountPrecision is returned when a decimal coin amount carries more
	// fractional digits than a satoshi can represent.
	ErrAmountPrecision = errors.New("amount is not a whole number of " +
		"satoshis")

	// ErrAmountRange is returned when an amount exceeds the total supply.
	ErrAmountRange = errors.New("amount out of range")
)

// maxExponent is the largest decimal exponent a non-zero amount within the
// total supply can have once trailing zeros are removed.
const maxExponent = 7

// maxSatoshi is the total supply expressed as a decimal.
var maxSatoshi = decimal.NewFromInt(btcutil.MaxSatoshi)

// ten is the radix used to strip trailing zeros.
var ten = big.NewInt(10)

// ParseBTC converts a decimal whole-coin amount, as produced by bitcoind, into
// satoshis.
//
// The conversion is exact. A value with a non-zero digit below the eighth
// decimal place is rejected with ErrAmountPrecision rather than rounded, and a
// value whose magnitude exceeds the total supply is rejected with
// ErrAmountRange.
func ParseBTC(s string) (btcutil.Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrAmountSyntax, s)
	}

	// Trailing zeros only raise the exponent, so a value already above
	// the window is out of range.
	if d.Sign() != 0 && d.Exponent() > maxExponent {
		return 0, fmt.Errorf("%w: %s", ErrAmountRange, s)
	}

	coef, exp := trimZeros(d.Coefficient(), d.Exponent())
	switch {
	case coef.Sign() == 0:
		return 0, nil

	case exp < -btcDecimals:
		return 0, fmt.Errorf("%w: %s", ErrAmountPrecision, s)

	case exp > maxExponent:
		return 0, fmt.Errorf("%w: %s", ErrAmountRange, s)
	}

	sats := decimal.NewFromBigInt(coef, exp+btcDecimals)
	if sats.Abs().GreaterThan(maxSatoshi) {
		return 0, fmt.Errorf("%w: %s", ErrAmountRange, s)
	}

	return btcutil.Amount(sats.IntPart()), nil
}

// trimZeros removes the trailing zero digits of a non-zero coefficient,
// raising the exponent to keep the value. The loop runs once per digit of the
// coefficient.
func trimZeros(coef *big.Int, exp int32) (*big.Int, int32) {
	if coef.Sign() == 0 {
		return coef, 0
	}

	var q, r big.Int
	for {
		q.QuoRem(coef, ten, &r)
		if r.Sign() != 0 {
			return coef, exp
		}

		coef = new(big.Int).Set(&q)
		exp++
	}
}

// FormatBTC renders an amount as a decimal whole-coin string with exactly
// eight fractional digits, e.g. 150000000 -> "1.50000000".
//
// Every amount within the total supply is representable, and ParseBTC of the
// result returns the original amount.
func FormatBTC(amt btcutil.Amount) (string, error) {
	if amt > btcutil.MaxSatoshi || amt < -btcutil.MaxSatoshi {
		return "", fmt.Errorf("%w: %d sat", ErrAmountRange, int64(amt))
	}

	return decimal.New(int64(amt), -btcDecimals).StringFixed(btcDecimals),
		nil
}
