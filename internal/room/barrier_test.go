package room

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBarrierReleasesOnExactlyTheKthSubmission(t *testing.T) {
	for k := 1; k <= 6; k++ {
		t.Run(fmt.Sprintf("K=%d", k), func(t *testing.T) {
			ids := make([]string, k)
			for i := range ids {
				ids[i] = fmt.Sprintf("p%d", i)
			}
			b := NewBarrier(ids)

			releases := 0
			for i, id := range ids {
				require.NoError(t, b.Submit(id))
				if b.Release() {
					releases++
					assert.Equal(t, k-1, i, "released before the last submission")
				}
			}
			assert.Equal(t, 1, releases)
			assert.False(t, b.Release(), "must never release twice")
			assert.Equal(t, ids, b.Submitted())
		})
	}
}

func TestBarrierRejectsDuplicatesAndStrangers(t *testing.T) {
	b := NewBarrier([]string{"a", "b"})

	require.NoError(t, b.Submit("a"))
	require.ErrorIs(t, b.Submit("a"), ErrAlreadySubmitted)
	require.ErrorIs(t, b.Submit("z"), ErrNotExpected)
	assert.Equal(t, 1, b.Remaining())

	require.NoError(t, b.Submit("b"))
	assert.True(t, b.Release())
	require.ErrorIs(t, b.Submit("b"), ErrBarrierClosed)
	assert.Zero(t, b.Remaining())
}

func TestBarrierDrop(t *testing.T) {
	b := NewBarrier([]string{"a", "b", "c"})
	require.NoError(t, b.Submit("a"))

	b.Drop("a")
	b.Drop("c")
	assert.Equal(t, 1, b.Remaining())
	assert.Equal(t, []string{"a"}, b.Submitted(), "a submission survives a drop")

	require.NoError(t, b.Submit("b"))
	assert.True(t, b.Release())
}

func TestBarrierRename(t *testing.T) {
	b := NewBarrier([]string{"a", "b"})
	require.NoError(t, b.Submit("b"))

	b.Rename("a", "a2")
	b.Rename("b", "b2")

	assert.True(t, b.Expects("a2"))
	assert.False(t, b.Expects("a"))
	require.ErrorIs(t, b.Submit("b2"), ErrAlreadySubmitted)
	require.NoError(t, b.Submit("a2"))
	assert.Equal(t, []string{"a2", "b2"}, b.Submitted())
}

func TestEmptyBarrierIsDone(t *testing.T) {
	b := NewBarrier(nil)
	assert.True(t, b.Done())
	assert.True(t, b.Release())
}
