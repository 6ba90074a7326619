package gin

import (
	"testing"

	"github.com/cynos-db/cynos/internal/value"
	"github.com/stretchr/testify/require"
)

func TestExtractTopLevelPairs(t *testing.T) {
	raw := []byte(`{"status":"open","count":3,"tags":["a","b"],"meta":{"x":1},"flag":true}`)
	pairs := ExtractTopLevelPairs(raw)

	byKey := map[string]Pair{}
	for _, p := range pairs {
		byKey[p.Key] = p
	}

	require.True(t, byKey["status"].IsScalar)
	require.Equal(t, "open", byKey["status"].Value)
	require.True(t, byKey["count"].IsScalar)
	require.Equal(t, "3", byKey["count"].Value)
	require.False(t, byKey["tags"].IsScalar)
	require.False(t, byKey["meta"].IsScalar)
	require.True(t, byKey["flag"].IsScalar)
	require.Equal(t, "true", byKey["flag"].Value)
}

func TestExtractHandlesEscapedQuotes(t *testing.T) {
	raw := []byte(`{"note":"a \"quoted\" value", "n":2}`)
	pairs := ExtractTopLevelPairs(raw)
	require.Len(t, pairs, 2)
	require.Equal(t, `a "quoted" value`, pairs[0].Value)
}

func TestGinIndexKeyAndKeyValueLookup(t *testing.T) {
	idx := New()
	idx.IndexJSON(1, []byte(`{"status":"open","priority":1}`))
	idx.IndexJSON(2, []byte(`{"status":"closed","priority":1}`))
	idx.IndexJSON(3, []byte(`{"status":"open","priority":2}`))

	require.ElementsMatch(t, []value.RowId{1, 2, 3}, idx.GetByKey("priority"))
	require.ElementsMatch(t, []value.RowId{1, 3}, idx.GetByKeyValue("status", "open"))
}

func TestGinIndexMultiKeyIntersection(t *testing.T) {
	idx := New()
	idx.IndexJSON(1, []byte(`{"status":"open","priority":"1"}`))
	idx.IndexJSON(2, []byte(`{"status":"open","priority":"2"}`))
	idx.IndexJSON(3, []byte(`{"status":"closed","priority":"1"}`))

	got := idx.GetByKeyValuesAll([]Pair{
		{Key: "status", Value: "open", IsScalar: true},
		{Key: "priority", Value: "1", IsScalar: true},
	})
	require.Equal(t, []value.RowId{1}, got)
}

func TestGinIndexRemoveJSON(t *testing.T) {
	idx := New()
	raw := []byte(`{"status":"open"}`)
	idx.IndexJSON(1, raw)
	require.ElementsMatch(t, []value.RowId{1}, idx.GetByKeyValue("status", "open"))
	idx.RemoveJSON(1, raw)
	require.Empty(t, idx.GetByKeyValue("status", "open"))
	require.Empty(t, idx.GetByKey("status"))
}
