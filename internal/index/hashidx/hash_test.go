package hashidx

import (
	"testing"

	"github.com/cynos-db/cynos/internal/value"
	"github.com/stretchr/testify/require"
)

func TestHashIndexPointLookup(t *testing.T) {
	idx := New(false)
	require.NoError(t, idx.Add(value.String("a"), value.RowId(1)))
	require.NoError(t, idx.Add(value.String("a"), value.RowId(2)))
	require.ElementsMatch(t, []value.RowId{1, 2}, idx.Get(value.String("a")))
	require.Nil(t, idx.Get(value.String("b")))
}

func TestHashIndexUniqueRejectsDuplicate(t *testing.T) {
	idx := New(true)
	require.NoError(t, idx.Add(value.Int64(1), value.RowId(1)))
	require.ErrorIs(t, idx.Add(value.Int64(1), value.RowId(2)), ErrDuplicateKey)
}

func TestHashIndexRemoveSpecificRowId(t *testing.T) {
	idx := New(false)
	require.NoError(t, idx.Add(value.Int64(1), value.RowId(1)))
	require.NoError(t, idx.Add(value.Int64(1), value.RowId(2)))
	rid := value.RowId(1)
	require.True(t, idx.Remove(value.Int64(1), &rid))
	require.Equal(t, []value.RowId{2}, idx.Get(value.Int64(1)))
	require.Equal(t, 1, idx.Len())
}

func TestHashIndexSetReplaces(t *testing.T) {
	idx := New(true)
	require.NoError(t, idx.Set(value.Int64(1), value.RowId(10)))
	require.NoError(t, idx.Set(value.Int64(1), value.RowId(20)))
	require.Equal(t, []value.RowId{20}, idx.Get(value.Int64(1)))
}
