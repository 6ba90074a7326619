package value

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueCompareNullIsMinimum(t *testing.T) {
	assert.Equal(t, 0, Null().Compare(Null()))
	assert.Equal(t, -1, Null().Compare(Int64(0)))
	assert.Equal(t, 1, Int64(0).Compare(Null()))
	assert.Equal(t, -1, Null().Compare(String("")))
}

func TestValueCompareCrossNumericKinds(t *testing.T) {
	assert.Equal(t, 0, Int32(5).Compare(Int64(5)))
	assert.Equal(t, 0, Int64(5).Compare(Float64(5.0)))
	assert.Equal(t, -1, Int32(4).Compare(Float64(4.5)))
}

func TestValueOrderedEnumerationMatchesSort(t *testing.T) {
	vals := []Value{Int64(9), Int64(3), Int64(27), Int64(1), Int64(15)}
	sort.Slice(vals, func(i, j int) bool { return vals[i].Compare(vals[j]) < 0 })
	want := []int64{1, 3, 9, 15, 27}
	for i, w := range want {
		require.Equal(t, w, vals[i].Int())
	}
}

func TestValueEqualUsesBitwiseFloat(t *testing.T) {
	assert.True(t, Float64(0.1+0.2).Equal(Float64(0.1+0.2)))
	assert.True(t, Float64(1.0).EqualEpsilon(Int64(1)))
}

func TestValueKeyDistinguishesKinds(t *testing.T) {
	assert.NotEqual(t, Int64(1).Key(), String("1").Key())
	assert.Equal(t, Int64(1).Key(), Int32(1).Key())
}

func TestRowWithNewValuesPreservesId(t *testing.T) {
	r := NewRow(RowId(42), []Value{Int64(1)})
	r2 := r.WithNewValues([]Value{Int64(2)})
	require.Equal(t, r.Id, r2.Id)
	require.Equal(t, r.Version+1, r2.Version)
	require.Equal(t, int64(2), r2.Values[0].Int())
}
