package interner

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/errors"
)

func TestRoundTripTrimsAndIsIdempotent(t *testing.T) {
	in := New()
	for _, s := range []string{"Font Size", "  Editor  ", "appearance", "Ünïcode ✓", "\tgeneral\n"} {
		id, err := in.ToID(s)
		require.NoError(t, err)

		again, err := in.ToID(s)
		require.NoError(t, err)
		assert.Equal(t, id, again, "ToID(%q) must be idempotent", s)
		assert.NotEqual(t, Null, id)
		assert.Equal(t, strings.TrimSpace(s), in.FromID(id))
	}
	assert.Equal(t, 5, in.Len())
}

func TestEqualAfterTrimShareID(t *testing.T) {
	in := New()
	a, err := in.ToID("font")
	require.NoError(t, err)
	b, err := in.ToID("  font ")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, 1, in.Len())
}

func TestIDsAreStableAcrossGrowth(t *testing.T) {
	in := New()
	first, err := in.ToID("first")
	require.NoError(t, err)
	for i := 0; i < 10_000; i++ {
		_, err := in.ToID(fmt.Sprintf("word-%d", i))
		require.NoError(t, err)
	}
	again, err := in.ToID("first")
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, "first", in.FromID(first))
}

func TestNullDecodesEmpty(t *testing.T) {
	assert.Equal(t, "", New().FromID(Null))
}

func TestFromIDUnallocatedPanics(t *testing.T) {
	assert.Panics(t, func() { New().FromID(3) })
}

func TestCapacityExceeded(t *testing.T) {
	in := New()
	for i := 0; i < Capacity; i++ {
		id, err := in.ToID(fmt.Sprintf("s%d", i))
		require.NoError(t, err)
		require.Equal(t, ID(i), id)
	}

	_, err := in.ToID("one too many")
	require.ErrorIs(t, err, apperrors.ErrCapacityExceeded)
	assert.Equal(t, Capacity, in.Len())

	// existing strings still resolve after the failure
	id, err := in.ToID("s42")
	require.NoError(t, err)
	assert.Equal(t, ID(42), id)
}

func TestConcurrentToID(t *testing.T) {
	in := New()
	words := []string{"alpha", "beta", "gamma", "delta"}

	var wg sync.WaitGroup
	results := make([][]ID, 8)
	for g := range results {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for _, w := range words {
				id, err := in.ToID(w)
				if err == nil {
					results[g] = append(results[g], id)
				}
			}
		}(g)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
	assert.Equal(t, len(words), in.Len())
}
