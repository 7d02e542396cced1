//go:build darwin || linux

package bwtest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestNoFileTarget checks the soft limit normalization.
func TestNoFileTarget(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		cur     uint64
		hard    uint64
		want    uint64
		wantSet bool
	}{
		{
			name:    "low soft limit is raised",
			cur:     256,
			hard:    1 << 20,
			want:    wantNoFile,
			wantSet: true,
		},
		{
			name:    "raise is capped by the hard limit",
			cur:     256,
			hard:    1024,
			want:    1024,
			wantSet: true,
		},
		{
			name:    "high enough soft limit is kept",
			cur:     8192,
			hard:    1 << 20,
			wantSet: false,
		},
		{
			name:    "hard limit at soft limit",
			cur:     1024,
			hard:    1024,
			wantSet: false,
		},
		{
			name:    "unlimited is normalized",
			cur:     1 << 62,
			hard:    1 << 62,
			want:    wantNoFile,
			wantSet: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, ok := noFileTarget(tc.cur, tc.hard)
			require.Equal(t, tc.wantSet, ok)
			require.Equal(t, tc.want, got)
		})
	}
}
