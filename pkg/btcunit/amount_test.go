package btcunit

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/require"
)

// TestParseBTC checks that decimal coin strings are converted to satoshis
// exactly, and that malformed or out of range values are rejected.
func TestParseBTC(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		input   string
		want    btcutil.Amount
		wantErr error
	}{
		{name: "whole coin", input: "1", want: btcutil.SatoshiPerBitcoin},
		{name: "one sat", input: "0.00000001", want: 1},
		{name: "trailing zeros", input: "0.10000000", want: 10_000_000},
		{name: "negative", input: "-0.5", want: -50_000_000},
		{name: "exponent", input: "1e-8", want: 1},
		{
			name:  "positive exponent",
			input: "2.1E7",
			want:  btcutil.MaxSatoshi,
		},
		{name: "scaled sats", input: "150e-8", want: 150},
		{
			name:  "padded zeros",
			input: "0.100000000000000000000000000000000000",
			want:  10_000_000,
		},
		{name: "zero", input: "0.00000000", want: 0},
		{name: "negative zero", input: "-0", want: 0},
		{name: "zero huge negative exponent", input: "0e-2000000000"},
		{name: "zero huge exponent", input: "0e2000000000"},
		{
			name:    "one sat tiny exponent",
			input:   "1e-2000000000",
			wantErr: ErrAmountPrecision,
		},
		{
			name:    "huge exponent",
			input:   "1e2000000000",
			wantErr: ErrAmountRange,
		},
		{
			name:    "zeros beyond eighth place",
			input:   "0.123456789",
			wantErr: ErrAmountPrecision,
		},
		{
			name:    "exponent below one sat",
			input:   "15e-10",
			wantErr: ErrAmountPrecision,
		},
		{
			name:    "beyond supply exponent",
			input:   "1e8",
			wantErr: ErrAmountRange,
		},
		{
			name:  "max supply",
			input: "21000000",
			want:  btcutil.MaxSatoshi,
		},
		{
			name:    "too precise",
			input:   "0.000000001",
			wantErr: ErrAmountPrecision,
		},
		{
			name:    "beyond supply",
			input:   "21000000.00000001",
			wantErr: ErrAmountRange,
		},
		{name: "garbage", input: "one", wantErr: ErrAmountSyntax},
		{name: "empty", input: "", wantErr: ErrAmountSyntax},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseBTC(tc.input)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

// TestFormatBTC checks the fixed eight place rendering of amounts.
func TestFormatBTC(t *testing.T) {
	t.Parallel()

	s, err := FormatBTC(1)
	require.NoError(t, err)
	require.Equal(t, "0.00000001", s)

	s, err = FormatBTC(-150_000_000)
	require.NoError(t, err)
	require.Equal(t, "-1.50000000", s)

	_, err = FormatBTC(btcutil.MaxSatoshi + 1)
	require.ErrorIs(t, err, ErrAmountRange)
}

// TestAmountRoundTrip checks that formatting then parsing any amount in range
// yields the same number of satoshis.
func TestAmountRoundTrip(t *testing.T) {
	t.Parallel()

	amounts := []btcutil.Amount{
		0, 1, 99, 546, 12_345_678, btcutil.SatoshiPerBitcoin,
		btcutil.MaxSatoshi - 1, btcutil.MaxSatoshi, -1, -btcutil.MaxSatoshi,
	}

	// A fixed seed keeps failures reproducible.
	rng := rand.New(rand.NewSource(1))
	for range 10_000 {
		amt := btcutil.Amount(rng.Int63n(btcutil.MaxSatoshi + 1))
		amounts = append(amounts, amt, -amt)
	}

	for _, amt := range amounts {
		s, err := FormatBTC(amt)
		require.NoError(t, err)

		got, err := ParseBTC(s)
		require.NoError(t, err)
		require.Equal(t, amt, got, "round trip of %v", s)
	}
}

// TestParseBTCScaledForms checks that the same amount written with an
// exponent or with extra trailing zeros parses to the same value.
func TestParseBTCScaledForms(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(2))
	for range 1_000 {
		// Arrange: A random amount and equivalent spellings of it.
		amt := btcutil.Amount(rng.Int63n(btcutil.MaxSatoshi + 1))
		forms := []string{
			fmt.Sprintf("%de-8", int64(amt)),
			fmt.Sprintf("%d0e-9", int64(amt)),
		}

		fixed, err := FormatBTC(amt)
		require.NoError(t, err)
		forms = append(forms, fixed+"000000")

		for _, form := range forms {
			// Act: Parse the spelling.
			got, err := ParseBTC(form)

			// Assert: It is the original amount.
			require.NoError(t, err, form)
			require.Equal(t, amt, got, form)
		}

		// Assert: One more significant digit is always rejected.
		_, err = ParseBTC(fmt.Sprintf("%d1e-9", int64(amt)))
		require.ErrorIs(t, err, ErrAmountPrecision)
	}
}
