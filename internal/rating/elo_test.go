package rating

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpdate(t *testing.T) {
	cases := []struct {
		name                  string
		winner, loser         uint64
		wantWinner, wantLoser uint64
	}{
		{"equal ratings", 1200, 1200, 1216, 1184},
		{"favourite capped", 2000, 1000, 2000, 968},
		{"favourite small gap", 1300, 1200, 1312, 1180},
		{"underdog small gap", 1200, 1300, 1220, 1288},
		{"underdog at clamp edge", 1000, 1400, 1032, 1400},
		{"underdog past clamp", 1000, 1500, 1032, 1500},
		{"loser floors at zero", 100, 10, 112, 0},
		{"both zero", 0, 0, 16, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, l := Update(tc.winner, tc.loser)
			require.Equal(t, tc.wantWinner, w, "winner")
			require.Equal(t, tc.wantLoser, l, "loser")
		})
	}
}

func TestExpected(t *testing.T) {
	require.Equal(t, uint64(500), Expected(1200, 1200))
	require.Equal(t, uint64(625), Expected(1300, 1200))
	require.Equal(t, uint64(1000), Expected(1600, 1200))
	require.Equal(t, uint64(1000), Expected(2400, 1200))
	require.Equal(t, uint64(375), Expected(1200, 1300))
	// Deduction of exactly 500 still yields 0 through subtraction.
	require.Equal(t, uint64(0), Expected(1000, 1400))
	// Past the edge the clamp forces 0.
	require.Equal(t, uint64(0), Expected(1000, 1401))
}

func TestUpdate_ConservesWithinK(t *testing.T) {
	for w := uint64(0); w <= 3000; w += 137 {
		for l := uint64(0); l <= 3000; l += 151 {
			nw, nl := Update(w, l)
			require.GreaterOrEqual(t, nw, w)
			require.LessOrEqual(t, nw-w, KFactor)
			require.LessOrEqual(t, nl, l)
			require.LessOrEqual(t, l-nl, KFactor)
		}
	}
}
