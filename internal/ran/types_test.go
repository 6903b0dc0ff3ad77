package ran

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSymbolIntervalOverlaps(t *testing.T) {
	a := SymbolInterval{Start: 0, Length: 4}
	b := SymbolInterval{Start: 3, Length: 4}
	c := SymbolInterval{Start: 4, Length: 2}

	require.True(t, a.Overlaps(b))
	require.True(t, b.Overlaps(a))
	require.False(t, a.Overlaps(c))
}

func TestPRBIntervalOverlaps(t *testing.T) {
	a := PRBInterval{Start: 0, Length: 2}
	b := PRBInterval{Start: 1, Length: 2}
	c := PRBInterval{Start: 2, Length: 2}

	require.True(t, a.Overlaps(b))
	require.False(t, a.Overlaps(c))
}

func TestPRBIntervalWiden(t *testing.T) {
	bwp := PRBInterval{Start: 0, Length: 52}

	t.Run("widens symmetrically", func(t *testing.T) {
		p := PRBInterval{Start: 10, Length: 4}
		w := p.Widen(2, bwp)
		require.Equal(t, PRBInterval{Start: 8, Length: 8}, w)
	})

	t.Run("clamps to bwp edges", func(t *testing.T) {
		p := PRBInterval{Start: 0, Length: 1}
		w := p.Widen(3, bwp)
		require.Equal(t, uint16(0), w.Start)

		p2 := PRBInterval{Start: 51, Length: 1}
		w2 := p2.Widen(3, bwp)
		require.EqualValues(t, 52, w2.End())
	})

	t.Run("zero guard is a no-op", func(t *testing.T) {
		p := PRBInterval{Start: 5, Length: 3}
		require.Equal(t, p, p.Widen(0, bwp))
	})

	t.Run("empty interval stays empty", func(t *testing.T) {
		p := PRBInterval{}
		require.True(t, p.Widen(4, bwp).Empty())
	})
}
