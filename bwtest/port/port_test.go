package port

import (
	"context"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestNextAvailablePortDistinct checks that consecutive calls hand out
// distinct ports that can be listened on.
func TestNextAvailablePortDistinct(t *testing.T) {
	seen := make(map[int]struct{})

	for range 5 {
		p := NextAvailablePort()
		require.GreaterOrEqual(t, p, firstPort)
		require.LessOrEqual(t, p, lastPort)

		_, dup := seen[p]
		require.False(t, dup, "port %d handed out twice", p)
		seen[p] = struct{}{}

		lc := &net.ListenConfig{}
		l, err := lc.Listen(
			context.Background(), "tcp4", fmt.Sprintf(ListenerFormat, p),
		)
		require.NoError(t, err)
		require.NoError(t, l.Close())
	}
}
