package btree

import (
	"testing"

	"github.com/cynos-db/cynos/internal/value"
	"github.com/stretchr/testify/require"
)

func keysOf(t *testing.T, tr *Tree) []int64 {
	t.Helper()
	limit := 10000
	ids := tr.GetRange(All(), false, &limit, 0)
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

// TestBTreeChurn replays spec §8 scenario 1: order-5 tree, insert a fixed
// permutation, delete forward then delete the same permutation again in
// reverse, expecting an empty tree and an empty range scan after each pass.
func TestBTreeChurn(t *testing.T) {
	seq := []int64{13, 9, 21, 17, 5, 11, 3, 25, 27, 14, 15, 31, 29, 22, 23, 38, 45, 47, 49, 1, 10, 12, 16}

	tr := New(5, true)
	for _, k := range seq {
		require.NoError(t, tr.Add(value.Int64(k), value.RowId(k)))
	}
	require.Equal(t, len(seq), tr.Len())
	require.Equal(t, len(seq), len(keysOf(t, tr)))

	for _, k := range seq {
		require.True(t, tr.Remove(value.Int64(k), nil))
	}
	require.Equal(t, 0, tr.Len())
	require.True(t, tr.IsEmpty())
	require.Empty(t, tr.GetRange(All(), false, nil, 0))

	for _, k := range seq {
		require.NoError(t, tr.Add(value.Int64(k), value.RowId(k)))
	}
	require.Equal(t, len(seq), tr.Len())

	for i := len(seq) - 1; i >= 0; i-- {
		require.True(t, tr.Remove(value.Int64(seq[i]), nil))
	}
	require.Equal(t, 0, tr.Len())
	require.True(t, tr.IsEmpty())
	require.Empty(t, tr.GetRange(All(), false, nil, 0))
}

func TestBTreeOrderedEnumerationAndReverse(t *testing.T) {
	tr := New(4, false)
	vals := []int64{50, 10, 30, 20, 40}
	for _, v := range vals {
		require.NoError(t, tr.Add(value.Int64(v), value.RowId(v)))
	}

	forward := keysOf(t, tr)
	require.Equal(t, []int64{10, 20, 30, 40, 50}, forward)

	ids := tr.GetRange(All(), true, nil, 0)
	reversed := make([]int64, len(ids))
	for i, id := range ids {
		reversed[i] = int64(id)
	}
	require.Equal(t, []int64{50, 40, 30, 20, 10}, reversed)
}

func TestBTreeDuplicateKeyOnUniqueIndex(t *testing.T) {
	tr := New(4, true)
	require.NoError(t, tr.Add(value.Int64(1), value.RowId(1)))
	require.ErrorIs(t, tr.Add(value.Int64(1), value.RowId(2)), ErrDuplicateKey)
}

func TestBTreeNonUniqueAccumulatesRowIds(t *testing.T) {
	tr := New(4, false)
	require.NoError(t, tr.Add(value.Int64(7), value.RowId(1)))
	require.NoError(t, tr.Add(value.Int64(7), value.RowId(2)))
	require.ElementsMatch(t, []value.RowId{1, 2}, tr.Get(value.Int64(7)))
}

func TestBTreeRangeBounds(t *testing.T) {
	tr := New(4, true)
	for i := int64(0); i < 20; i++ {
		require.NoError(t, tr.Add(value.Int64(i), value.RowId(i)))
	}

	ids := tr.GetRange(Bound(value.Int64(5), value.Int64(10), false, true), false, nil, 0)
	want := []value.RowId{5, 6, 7, 8, 9}
	require.Equal(t, want, ids)

	two := 2
	limited := tr.GetRange(Lower(value.Int64(15), false), false, &two, 0)
	require.Equal(t, []value.RowId{15, 16}, limited)

	skipped := tr.GetRange(Upper(value.Int64(3), false), false, nil, 2)
	require.Equal(t, []value.RowId{2, 3}, skipped)
}

func TestBTreeSetReplacesExistingEntries(t *testing.T) {
	tr := New(4, true)
	require.NoError(t, tr.Set(value.Int64(1), value.RowId(10)))
	require.NoError(t, tr.Set(value.Int64(1), value.RowId(20)))
	require.Equal(t, []value.RowId{20}, tr.Get(value.Int64(1)))
}
