package storage

import (
	"testing"

	"github.com/cynos-db/cynos/internal/index/btree"
	"github.com/cynos-db/cynos/internal/index/gin"
	"github.com/cynos-db/cynos/internal/value"
	"github.com/stretchr/testify/require"
)

func employeeSchema() *Schema {
	return &Schema{
		Name:       "employees",
		Columns:    []Column{{Name: "id", Type: value.KindInt64}, {Name: "name", Type: value.KindString}, {Name: "dept_id", Type: value.KindInt64}},
		PrimaryKey: []string{"id"},
		Indexes: []IndexDef{
			{Name: "idx_dept", Columns: []string{"dept_id"}, Kind: IndexBTree},
			{Name: "idx_name", Columns: []string{"name"}, Kind: IndexHash, Unique: true},
		},
	}
}

func TestRowStoreInsertGetScan(t *testing.T) {
	rs := New(employeeSchema())
	row, err := rs.Insert([]value.Value{value.Int64(1), value.String("alice"), value.Int64(3)})
	require.NoError(t, err)
	require.Equal(t, value.RowId(1), row.Id)

	got, ok := rs.Get(row.Id)
	require.True(t, ok)
	require.Equal(t, "alice", got.Values[1].Str())

	_, err = rs.Insert([]value.Value{value.Int64(2), value.String("bob"), value.Int64(3)})
	require.NoError(t, err)
	require.Len(t, rs.Scan(), 2)
}

func TestRowStoreUniqueConstraintRollsBack(t *testing.T) {
	rs := New(employeeSchema())
	_, err := rs.Insert([]value.Value{value.Int64(1), value.String("alice"), value.Int64(3)})
	require.NoError(t, err)

	before := rs.Scan()
	_, err = rs.Insert([]value.Value{value.Int64(2), value.String("alice"), value.Int64(4)})
	require.ErrorIs(t, err, ErrUniqueConstraint)

	// store must be unchanged: exactly one row, and the dept index must not
	// contain a half-added entry for the failed insert.
	after := rs.Scan()
	require.Equal(t, before, after)
	rows, err := rs.IndexScan("idx_dept", btree.Only(value.Int64(4)), nil, 0, false)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestRowStoreCompositePrimaryKey(t *testing.T) {
	schema := &Schema{
		Name:       "memberships",
		Columns:    []Column{{Name: "team_id", Type: value.KindInt64}, {Name: "user_id", Type: value.KindInt64}},
		PrimaryKey: []string{"team_id", "user_id"},
	}
	rs := New(schema)
	row, err := rs.Insert([]value.Value{value.Int64(1), value.Int64(5)})
	require.NoError(t, err)

	pk := rs.ExtractPK(row)
	got, ok := rs.GetByPK(pk)
	require.True(t, ok)
	require.Equal(t, row.Id, got.Id)

	_, err = rs.Insert([]value.Value{value.Int64(1), value.Int64(5)})
	require.ErrorIs(t, err, ErrUniqueConstraint)
}

func TestRowStoreUpdateRekeysOnlyChangedIndexes(t *testing.T) {
	rs := New(employeeSchema())
	row, err := rs.Insert([]value.Value{value.Int64(1), value.String("alice"), value.Int64(3)})
	require.NoError(t, err)

	updated, err := rs.Update(row.Id, []value.Value{value.Int64(1), value.String("alice"), value.Int64(9)})
	require.NoError(t, err)
	require.Equal(t, row.Id, updated.Id)
	require.Equal(t, row.Version+1, updated.Version)

	rows, err := rs.IndexScan("idx_dept", btree.Only(value.Int64(9)), nil, 0, false)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	rows, err = rs.IndexScan("idx_dept", btree.Only(value.Int64(3)), nil, 0, false)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestRowStoreDeleteRemovesFromEveryIndex(t *testing.T) {
	rs := New(employeeSchema())
	row, err := rs.Insert([]value.Value{value.Int64(1), value.String("alice"), value.Int64(3)})
	require.NoError(t, err)

	_, err = rs.Delete(row.Id)
	require.NoError(t, err)

	_, ok := rs.Get(row.Id)
	require.False(t, ok)
	contains, err := rs.SecondaryIndexContains("idx_name", value.String("alice"))
	require.NoError(t, err)
	require.False(t, contains)
}

func TestRowStoreInsertOrReplacePreservesRowId(t *testing.T) {
	rs := New(employeeSchema())
	row, err := rs.Insert([]value.Value{value.Int64(1), value.String("alice"), value.Int64(3)})
	require.NoError(t, err)

	replaced, inserted, err := rs.InsertOrReplace([]value.Value{value.Int64(1), value.String("alice"), value.Int64(7)})
	require.NoError(t, err)
	require.False(t, inserted)
	require.Equal(t, row.Id, replaced.Id)
	require.Equal(t, int64(7), replaced.Values[2].Int())
}

func TestRowStoreDeltaVariants(t *testing.T) {
	rs := New(employeeSchema())
	row, delta, err := rs.InsertWithDelta([]value.Value{value.Int64(1), value.String("alice"), value.Int64(3)})
	require.NoError(t, err)
	require.Equal(t, int32(1), delta.Diff)
	require.Equal(t, row.Id, delta.Data.Id)

	deltas, err := rs.UpdateWithDelta(row.Id, []value.Value{value.Int64(1), value.String("alice"), value.Int64(9)})
	require.NoError(t, err)
	require.Len(t, deltas, 2)
	require.Equal(t, int32(-1), deltas[0].Diff)
	require.Equal(t, int32(1), deltas[1].Diff)
	require.Equal(t, int64(3), deltas[0].Data.Values[2].Int())
	require.Equal(t, int64(9), deltas[1].Data.Values[2].Int())

	removeDelta, err := rs.DeleteWithDelta(row.Id)
	require.NoError(t, err)
	require.Equal(t, int32(-1), removeDelta.Diff)
}

func TestRowStoreGinIndexLifecycle(t *testing.T) {
	schema := &Schema{
		Name:       "docs",
		Columns:    []Column{{Name: "id", Type: value.KindInt64}, {Name: "attrs", Type: value.KindJsonb}},
		PrimaryKey: []string{"id"},
		Indexes:    []IndexDef{{Name: "idx_attrs", Columns: []string{"attrs"}, Kind: IndexGin}},
	}
	rs := New(schema)
	row, err := rs.Insert([]value.Value{value.Int64(1), value.Jsonb([]byte(`{"status":"open"}`))})
	require.NoError(t, err)

	rows, err := rs.GinIndexGetByKeyValue("idx_attrs", "status", "open")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, row.Id, rows[0].Id)

	_, err = rs.Update(row.Id, []value.Value{value.Int64(1), value.Jsonb([]byte(`{"status":"closed"}`))})
	require.NoError(t, err)

	rows, err = rs.GinIndexGetByKeyValue("idx_attrs", "status", "open")
	require.NoError(t, err)
	require.Empty(t, rows)

	rows, err = rs.GinIndexGetByKeyValuesAll("idx_attrs", []gin.Pair{{Key: "status", Value: "closed", IsScalar: true}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestRowStoreClear(t *testing.T) {
	rs := New(employeeSchema())
	_, err := rs.Insert([]value.Value{value.Int64(1), value.String("alice"), value.Int64(3)})
	require.NoError(t, err)
	rs.Clear()
	require.Empty(t, rs.Scan())
	contains, err := rs.SecondaryIndexContains("idx_name", value.String("alice"))
	require.NoError(t, err)
	require.False(t, contains)
}
