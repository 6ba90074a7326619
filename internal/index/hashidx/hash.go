// Package hashidx implements the hash index: a map from Value to the row
// ids stored under that value, supporting point lookups, full enumeration
// and optional uniqueness enforcement.
package hashidx

import (
	"errors"

	"github.com/cynos-db/cynos/internal/value"
)

// ErrDuplicateKey is returned by Add on a unique index when the key
// already has an entry.
var ErrDuplicateKey = errors.New("hashidx: duplicate key")

// Index is an unordered point-lookup index.
type Index struct {
	unique  bool
	buckets map[string][]entry
	size    int
}

type entry struct {
	key value.Value
	ids []value.RowId
}

// New creates an empty hash index.
func New(unique bool) *Index {
	return &Index{unique: unique, buckets: make(map[string][]entry)}
}

func (idx *Index) Len() int      { return idx.size }
func (idx *Index) IsEmpty() bool { return idx.size == 0 }

// Add inserts rowId under key.
func (idx *Index) Add(key value.Value, rowId value.RowId) error {
	k := key.Key()
	bucket := idx.buckets[k]
	for i := range bucket {
		if bucket[i].key.Equal(key) {
			if idx.unique {
				return ErrDuplicateKey
			}
			if !containsRowId(bucket[i].ids, rowId) {
				bucket[i].ids = append(bucket[i].ids, rowId)
				idx.size++
			}
			return nil
		}
	}
	idx.buckets[k] = append(bucket, entry{key: key, ids: []value.RowId{rowId}})
	idx.size++
	return nil
}

// Set removes any existing entries for key, then adds rowId.
func (idx *Index) Set(key value.Value, rowId value.RowId) error {
	idx.Remove(key, nil)
	return idx.Add(key, rowId)
}

// Remove deletes rowId from key's entry. If rowId is nil, every entry
// under key is removed. Returns whether anything was removed.
func (idx *Index) Remove(key value.Value, rowId *value.RowId) bool {
	k := key.Key()
	bucket := idx.buckets[k]
	for i := range bucket {
		if !bucket[i].key.Equal(key) {
			continue
		}
		if rowId == nil {
			idx.size -= len(bucket[i].ids)
			idx.buckets[k] = append(bucket[:i:i], bucket[i+1:]...)
			idx.pruneEmptyBucket(k)
			return true
		}
		list, ok := removeRowId(bucket[i].ids, *rowId)
		if !ok {
			return false
		}
		idx.size--
		if len(list) == 0 {
			idx.buckets[k] = append(bucket[:i:i], bucket[i+1:]...)
			idx.pruneEmptyBucket(k)
		} else {
			bucket[i].ids = list
		}
		return true
	}
	return false
}

func (idx *Index) pruneEmptyBucket(k string) {
	if len(idx.buckets[k]) == 0 {
		delete(idx.buckets, k)
	}
}

// Get returns the row ids stored under key.
func (idx *Index) Get(key value.Value) []value.RowId {
	bucket := idx.buckets[key.Key()]
	for _, e := range bucket {
		if e.key.Equal(key) {
			out := make([]value.RowId, len(e.ids))
			copy(out, e.ids)
			return out
		}
	}
	return nil
}

// Contains reports whether key has at least one entry.
func (idx *Index) Contains(key value.Value) bool {
	return len(idx.Get(key)) > 0
}

// All enumerates every (key, rowIds) pair. Order is unspecified.
func (idx *Index) All(fn func(key value.Value, ids []value.RowId)) {
	for _, bucket := range idx.buckets {
		for _, e := range bucket {
			fn(e.key, e.ids)
		}
	}
}

func containsRowId(list []value.RowId, id value.RowId) bool {
	for _, r := range list {
		if r == id {
			return true
		}
	}
	return false
}

func removeRowId(list []value.RowId, id value.RowId) ([]value.RowId, bool) {
	for i, r := range list {
		if r == id {
			return append(list[:i:i], list[i+1:]...), true
		}
	}
	return list, false
}
