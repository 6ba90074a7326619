// Package gin implements the generalized inverted index used to accelerate
// JSON key-existence and path-equality queries on JSONB columns: one
// posting list per key, and one per (key, value) pair, both deduplicated
// and kept sorted so multi-key lookups can be answered by a sorted merge
// intersection.
package gin

import (
	"sort"

	"github.com/cynos-db/cynos/internal/value"
)

// Index is the GIN index itself.
type Index struct {
	byKey      map[string][]value.RowId
	byKeyValue map[string][]value.RowId
}

// New creates an empty GIN index.
func New() *Index {
	return &Index{byKey: make(map[string][]value.RowId), byKeyValue: make(map[string][]value.RowId)}
}

func kvKey(key, val string) string { return key + "\x00" + val }

// IndexJSON extracts raw's top-level pairs and records rowId under each
// key and, for scalar values, each (key, value) pair.
func (g *Index) IndexJSON(rowId value.RowId, raw []byte) {
	for _, p := range ExtractTopLevelPairs(raw) {
		g.insertSorted(g.byKey, p.Key, rowId)
		if p.IsScalar {
			g.insertSorted(g.byKeyValue, kvKey(p.Key, p.Value), rowId)
		}
	}
}

// RemoveJSON reverses a prior IndexJSON call for rowId.
func (g *Index) RemoveJSON(rowId value.RowId, raw []byte) {
	for _, p := range ExtractTopLevelPairs(raw) {
		g.removeSorted(g.byKey, p.Key, rowId)
		if p.IsScalar {
			g.removeSorted(g.byKeyValue, kvKey(p.Key, p.Value), rowId)
		}
	}
}

// GetByKey returns every row id that has raw[key] present, regardless of
// value or nesting.
func (g *Index) GetByKey(key string) []value.RowId {
	return copyIds(g.byKey[key])
}

// GetByKeyValue returns every row id whose raw[key] == val (scalar,
// stringified).
func (g *Index) GetByKeyValue(key, val string) []value.RowId {
	return copyIds(g.byKeyValue[kvKey(key, val)])
}

// GetByKeyValuesAll returns the intersection of GetByKeyValue across every
// pair, i.e. rows matching the AND of all path equalities.
func (g *Index) GetByKeyValuesAll(pairs []Pair) []value.RowId {
	if len(pairs) == 0 {
		return nil
	}
	lists := make([][]value.RowId, len(pairs))
	for i, p := range pairs {
		lists[i] = g.byKeyValue[kvKey(p.Key, p.Value)]
	}
	return intersectSorted(lists)
}

func (g *Index) insertSorted(m map[string][]value.RowId, key string, id value.RowId) {
	list := m[key]
	i := sort.Search(len(list), func(i int) bool { return list[i] >= id })
	if i < len(list) && list[i] == id {
		return
	}
	list = append(list, 0)
	copy(list[i+1:], list[i:])
	list[i] = id
	m[key] = list
}

func (g *Index) removeSorted(m map[string][]value.RowId, key string, id value.RowId) {
	list := m[key]
	i := sort.Search(len(list), func(i int) bool { return list[i] >= id })
	if i >= len(list) || list[i] != id {
		return
	}
	list = append(list[:i:i], list[i+1:]...)
	if len(list) == 0 {
		delete(m, key)
	} else {
		m[key] = list
	}
}

func copyIds(src []value.RowId) []value.RowId {
	if src == nil {
		return nil
	}
	out := make([]value.RowId, len(src))
	copy(out, src)
	return out
}

// intersectSorted computes the intersection of N sorted, deduplicated id
// lists via a k-way sorted merge.
func intersectSorted(lists [][]value.RowId) []value.RowId {
	for _, l := range lists {
		if len(l) == 0 {
			return nil
		}
	}
	idxs := make([]int, len(lists))
	var result []value.RowId

	for {
		maxId := lists[0][idxs[0]]
		for i := 1; i < len(lists); i++ {
			if lists[i][idxs[i]] > maxId {
				maxId = lists[i][idxs[i]]
			}
		}

		allMatch := true
		for i := range lists {
			for idxs[i] < len(lists[i]) && lists[i][idxs[i]] < maxId {
				idxs[i]++
			}
			if idxs[i] >= len(lists[i]) {
				return result
			}
			if lists[i][idxs[i]] != maxId {
				allMatch = false
			}
		}

		if allMatch {
			result = append(result, maxId)
			for i := range lists {
				idxs[i]++
				if idxs[i] >= len(lists[i]) {
					return result
				}
			}
		}
	}
}
