// Package storage owns per-table row storage: a map from row id to Row,
// kept in lockstep with a primary-key index (if any) and every secondary
// and GIN index the schema declares. A failed insert or update rolls back
// every index mutation it made, leaving the store byte-for-byte unchanged
// (spec §4.2, §7).
package storage

import (
	"sort"
	"strings"

	"github.com/cynos-db/cynos/internal/index/btree"
	"github.com/cynos-db/cynos/internal/index/gin"
	"github.com/cynos-db/cynos/internal/index/hashidx"
	"github.com/cynos-db/cynos/internal/value"
)

const pkIndexName = "__pk__"

// RowStore owns one table's rows and indexes.
type RowStore struct {
	schema *Schema
	rows   map[value.RowId]*value.Row
	nextID value.RowId

	pkCols []int
	btrees map[string]*btree.Tree
	hashes map[string]*hashidx.Index
	gins   map[string]*gin.Index
}

// New creates an empty RowStore for schema.
func New(schema *Schema) *RowStore {
	rs := &RowStore{
		schema: schema,
		rows:   make(map[value.RowId]*value.Row),
		nextID: 1,
		btrees: make(map[string]*btree.Tree),
		hashes: make(map[string]*hashidx.Index),
		gins:   make(map[string]*gin.Index),
	}
	if len(schema.PrimaryKey) > 0 {
		rs.pkCols = columnIndices(schema, schema.PrimaryKey)
		rs.btrees[pkIndexName] = btree.New(btree.DefaultOrder, true)
	}
	for _, idx := range schema.Indexes {
		switch idx.Kind {
		case IndexBTree:
			rs.btrees[idx.Name] = btree.New(btree.DefaultOrder, idx.Unique)
		case IndexHash:
			rs.hashes[idx.Name] = hashidx.New(idx.Unique)
		case IndexGin:
			rs.gins[idx.Name] = gin.New()
		}
	}
	return rs
}

func (rs *RowStore) Schema() *Schema { return rs.schema }

// PKColumns returns the schema's primary-key column names.
func (rs *RowStore) PKColumns() []string { return rs.schema.PrimaryKey }

// ExtractPK computes a row's primary-key value: the column value itself
// for a single-column key, or a delimited-string encoding of each column's
// Key() for a composite key (spec §4.2).
func (rs *RowStore) ExtractPK(row *value.Row) value.Value {
	return rs.extractPKFromValues(row.Values)
}

func (rs *RowStore) extractPKFromValues(values []value.Value) value.Value {
	if len(rs.pkCols) == 0 {
		return value.Null()
	}
	if len(rs.pkCols) == 1 {
		return values[rs.pkCols[0]]
	}
	parts := make([]string, len(rs.pkCols))
	for i, ci := range rs.pkCols {
		parts[i] = values[ci].Key()
	}
	return value.String(strings.Join(parts, "|"))
}

func (rs *RowStore) extractIndexKey(idx IndexDef, row *value.Row) value.Value {
	if len(idx.Columns) == 1 {
		ci, _ := rs.schema.ColumnIndex(idx.Columns[0])
		return row.Values[ci]
	}
	parts := make([]string, len(idx.Columns))
	for i, name := range idx.Columns {
		ci, _ := rs.schema.ColumnIndex(name)
		parts[i] = row.Values[ci].Key()
	}
	return value.String(strings.Join(parts, "|"))
}

// Insert validates row-id uniqueness is not a concern (ids are assigned
// internally) and adds the row to every index; any index-side failure
// rolls back prior additions and the store is left unchanged.
func (rs *RowStore) Insert(values []value.Value) (*value.Row, error) {
	id := rs.nextID
	row := value.NewRow(id, values)
	if err := rs.indexRow(row); err != nil {
		return nil, err
	}
	rs.rows[id] = row
	rs.nextID++
	return row, nil
}

func (rs *RowStore) indexRow(row *value.Row) error {
	var undo []func()
	rollback := func() {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}

	if len(rs.pkCols) > 0 {
		pk := rs.ExtractPK(row)
		t := rs.btrees[pkIndexName]
		if err := t.Add(pk, row.Id); err != nil {
			rollback()
			return wrapf("insert", ErrUniqueConstraint)
		}
		undo = append(undo, func() { t.Remove(pk, &row.Id) })
	}

	for _, idx := range rs.schema.Indexes {
		key := rs.extractIndexKey(idx, row)
		switch idx.Kind {
		case IndexBTree:
			t := rs.btrees[idx.Name]
			if err := t.Add(key, row.Id); err != nil {
				rollback()
				return wrapf("insert", ErrUniqueConstraint)
			}
			undo = append(undo, func() { t.Remove(key, &row.Id) })
		case IndexHash:
			h := rs.hashes[idx.Name]
			if err := h.Add(key, row.Id); err != nil {
				rollback()
				return wrapf("insert", ErrUniqueConstraint)
			}
			undo = append(undo, func() { h.Remove(key, &row.Id) })
		case IndexGin:
			g := rs.gins[idx.Name]
			raw := rs.ginColumnValue(idx, row).JsonbBytes()
			g.IndexJSON(row.Id, raw)
			undo = append(undo, func() { g.RemoveJSON(row.Id, raw) })
		}
	}
	return nil
}

func (rs *RowStore) ginColumnValue(idx IndexDef, row *value.Row) value.Value {
	ci, _ := rs.schema.ColumnIndex(idx.Columns[0])
	return row.Values[ci]
}

// Update re-keys every index whose key-column values changed; indexes that
// did not change are skipped. A unique-constraint failure on any index
// rolls back every re-key already applied.
func (rs *RowStore) Update(id value.RowId, newValues []value.Value) (*value.Row, error) {
	old, ok := rs.rows[id]
	if !ok {
		return nil, wrapf("update", ErrRowNotFound)
	}
	newRow := old.WithNewValues(newValues)

	var undo []func()
	rollback := func() {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}

	rekey := func(oldKey, newKey value.Value, add func(value.Value) error, remove func(value.Value)) error {
		if oldKey.Equal(newKey) {
			return nil
		}
		remove(oldKey)
		if err := add(newKey); err != nil {
			_ = add(oldKey)
			rollback()
			return err
		}
		undo = append(undo, func() {
			remove(newKey)
			_ = add(oldKey)
		})
		return nil
	}

	if len(rs.pkCols) > 0 {
		t := rs.btrees[pkIndexName]
		err := rekey(rs.ExtractPK(old), rs.ExtractPK(newRow),
			func(k value.Value) error { return t.Add(k, id) },
			func(k value.Value) { t.Remove(k, &id) })
		if err != nil {
			return nil, wrapf("update", ErrUniqueConstraint)
		}
	}

	for _, idx := range rs.schema.Indexes {
		switch idx.Kind {
		case IndexBTree:
			t := rs.btrees[idx.Name]
			err := rekey(rs.extractIndexKey(idx, old), rs.extractIndexKey(idx, newRow),
				func(k value.Value) error { return t.Add(k, id) },
				func(k value.Value) { t.Remove(k, &id) })
			if err != nil {
				return nil, wrapf("update", ErrUniqueConstraint)
			}
		case IndexHash:
			h := rs.hashes[idx.Name]
			err := rekey(rs.extractIndexKey(idx, old), rs.extractIndexKey(idx, newRow),
				func(k value.Value) error { return h.Add(k, id) },
				func(k value.Value) { h.Remove(k, &id) })
			if err != nil {
				return nil, wrapf("update", ErrUniqueConstraint)
			}
		case IndexGin:
			g := rs.gins[idx.Name]
			oldRaw := rs.ginColumnValue(idx, old).JsonbBytes()
			newRaw := rs.ginColumnValue(idx, newRow).JsonbBytes()
			if string(oldRaw) != string(newRaw) {
				g.RemoveJSON(id, oldRaw)
				g.IndexJSON(id, newRaw)
				undo = append(undo, func() {
					g.RemoveJSON(id, newRaw)
					g.IndexJSON(id, oldRaw)
				})
			}
		}
	}

	rs.rows[id] = newRow
	return newRow, nil
}

// Delete removes id from the row map and every index.
func (rs *RowStore) Delete(id value.RowId) (*value.Row, error) {
	row, ok := rs.rows[id]
	if !ok {
		return nil, wrapf("delete", ErrRowNotFound)
	}
	rs.removeFromIndexes(row)
	delete(rs.rows, id)
	return row, nil
}

func (rs *RowStore) removeFromIndexes(row *value.Row) {
	if len(rs.pkCols) > 0 {
		pk := rs.ExtractPK(row)
		rs.btrees[pkIndexName].Remove(pk, &row.Id)
	}
	for _, idx := range rs.schema.Indexes {
		key := rs.extractIndexKey(idx, row)
		switch idx.Kind {
		case IndexBTree:
			rs.btrees[idx.Name].Remove(key, &row.Id)
		case IndexHash:
			rs.hashes[idx.Name].Remove(key, &row.Id)
		case IndexGin:
			raw := rs.ginColumnValue(idx, row).JsonbBytes()
			rs.gins[idx.Name].RemoveJSON(row.Id, raw)
		}
	}
}

// InsertOrReplace uses the primary key to decide between insert and
// update; on update the returned row retains its original row id so
// dataflow subscribers see a delete+insert rather than a brand-new id.
// The bool result reports whether a new row was inserted (true) or an
// existing one replaced (false).
func (rs *RowStore) InsertOrReplace(values []value.Value) (*value.Row, bool, error) {
	if len(rs.pkCols) == 0 {
		row, err := rs.Insert(values)
		return row, true, err
	}
	pk := rs.extractPKFromValues(values)
	if id, found := rs.findRowIDByPKValue(pk); found {
		row, err := rs.Update(id, values)
		return row, false, err
	}
	row, err := rs.Insert(values)
	return row, true, err
}

func (rs *RowStore) findRowIDByPKValue(pk value.Value) (value.RowId, bool) {
	t, ok := rs.btrees[pkIndexName]
	if !ok {
		return 0, false
	}
	ids := t.Get(pk)
	if len(ids) == 0 {
		return 0, false
	}
	return ids[0], true
}

// Get returns the row with id, if present.
func (rs *RowStore) Get(id value.RowId) (*value.Row, bool) {
	r, ok := rs.rows[id]
	return r, ok
}

// GetMany returns the subset of ids that are present, in the order of ids.
func (rs *RowStore) GetMany(ids []value.RowId) []*value.Row {
	out := make([]*value.Row, 0, len(ids))
	for _, id := range ids {
		if r, ok := rs.rows[id]; ok {
			out = append(out, r)
		}
	}
	return out
}

// GetByPK looks up a row by its primary-key value.
func (rs *RowStore) GetByPK(pk value.Value) (*value.Row, bool) {
	id, found := rs.findRowIDByPKValue(pk)
	if !found {
		return nil, false
	}
	return rs.Get(id)
}

// FindRowIDByPK reports the row id bound to pk, if any.
func (rs *RowStore) FindRowIDByPK(pk value.Value) (value.RowId, bool) {
	return rs.findRowIDByPKValue(pk)
}

// PKExists reports whether pk is currently bound to a row.
func (rs *RowStore) PKExists(pk value.Value) bool {
	_, found := rs.findRowIDByPKValue(pk)
	return found
}

// Scan returns every row, ordered by row id for determinism.
func (rs *RowStore) Scan() []*value.Row {
	out := make([]*value.Row, 0, len(rs.rows))
	for _, r := range rs.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out
}

// RowIDs returns every live row id, sorted ascending.
func (rs *RowStore) RowIDs() []value.RowId {
	out := make([]value.RowId, 0, len(rs.rows))
	for id := range rs.rows {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IndexScan pushes a range/limit/offset/reverse walk into a named B+Tree
// index.
func (rs *RowStore) IndexScan(name string, r btree.KeyRange, limit *int, offset int, reverse bool) ([]*value.Row, error) {
	t, ok := rs.btrees[name]
	if !ok {
		return nil, wrapf("index_scan", ErrIndexNotFound)
	}
	ids := t.GetRange(r, reverse, limit, offset)
	return rs.GetMany(ids), nil
}

// SecondaryIndexContains checks a B+Tree or hash index for key, used by
// unique-constraint probes ahead of a mutation.
func (rs *RowStore) SecondaryIndexContains(name string, key value.Value) (bool, error) {
	if t, ok := rs.btrees[name]; ok {
		return len(t.Get(key)) > 0, nil
	}
	if h, ok := rs.hashes[name]; ok {
		return h.Contains(key), nil
	}
	return false, wrapf("secondary_index_contains", ErrIndexNotFound)
}

// GinIndexGetByKey returns every row whose indexed JSONB column has key
// present, regardless of value.
func (rs *RowStore) GinIndexGetByKey(name, key string) ([]*value.Row, error) {
	g, ok := rs.gins[name]
	if !ok {
		return nil, wrapf("gin_index_get_by_key", ErrIndexNotFound)
	}
	return rs.GetMany(g.GetByKey(key)), nil
}

// GinIndexGetByKeyValue returns every row whose indexed JSONB column has
// key == val.
func (rs *RowStore) GinIndexGetByKeyValue(name, key, val string) ([]*value.Row, error) {
	g, ok := rs.gins[name]
	if !ok {
		return nil, wrapf("gin_index_get_by_key_value", ErrIndexNotFound)
	}
	return rs.GetMany(g.GetByKeyValue(key, val)), nil
}

// GinIndexGetByKeyValuesAll answers an AND of path equalities via sorted
// posting-list intersection.
func (rs *RowStore) GinIndexGetByKeyValuesAll(name string, pairs []gin.Pair) ([]*value.Row, error) {
	g, ok := rs.gins[name]
	if !ok {
		return nil, wrapf("gin_index_get_by_key_values_all", ErrIndexNotFound)
	}
	return rs.GetMany(g.GetByKeyValuesAll(pairs)), nil
}

// Clear removes every row and resets every index to empty.
func (rs *RowStore) Clear() {
	rs.rows = make(map[value.RowId]*value.Row)
	if len(rs.pkCols) > 0 {
		rs.btrees[pkIndexName] = btree.New(btree.DefaultOrder, true)
	}
	for _, idx := range rs.schema.Indexes {
		switch idx.Kind {
		case IndexBTree:
			rs.btrees[idx.Name] = btree.New(btree.DefaultOrder, idx.Unique)
		case IndexHash:
			rs.hashes[idx.Name] = hashidx.New(idx.Unique)
		case IndexGin:
			rs.gins[idx.Name] = gin.New()
		}
	}
}

// InsertWithDelta inserts values and returns the resulting row alongside
// its +1 delta, for pipelines that fan out changes to a MaterializedView.
func (rs *RowStore) InsertWithDelta(values []value.Value) (*value.Row, value.RowDelta, error) {
	row, err := rs.Insert(values)
	if err != nil {
		return nil, value.RowDelta{}, err
	}
	return row, value.Insert(row), nil
}

// DeleteWithDelta deletes id and returns its -1 delta.
func (rs *RowStore) DeleteWithDelta(id value.RowId) (value.RowDelta, error) {
	row, err := rs.Delete(id)
	if err != nil {
		return value.RowDelta{}, err
	}
	return value.Remove(row), nil
}

// UpdateWithDelta updates id and returns [delete(old), insert(new)], the
// canonical two-delta representation of a logical update (spec §3).
func (rs *RowStore) UpdateWithDelta(id value.RowId, newValues []value.Value) ([]value.RowDelta, error) {
	old, ok := rs.rows[id]
	if !ok {
		return nil, wrapf("update", ErrRowNotFound)
	}
	oldCopy := old.Clone()
	newRow, err := rs.Update(id, newValues)
	if err != nil {
		return nil, err
	}
	return []value.RowDelta{value.Remove(oldCopy), value.Insert(newRow)}, nil
}
