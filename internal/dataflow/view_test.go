package dataflow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cynos-db/cynos/internal/value"
)

const (
	employeesTable value.TableId = iota
	departmentsTable
)

func row(id value.RowId, values ...value.Value) *value.Row {
	return value.NewRow(id, values)
}

func keyOf(col int) KeyFunc {
	return func(r *value.Row) []value.Value { return []value.Value{r.Values[col]} }
}

func TestMaterializedViewNewIsEmpty(t *testing.T) {
	v := NewMaterializedView(NewSource(employeesTable))
	require.True(t, v.IsEmpty())
	require.Equal(t, 0, v.Len())
	require.Equal(t, []value.TableId{employeesTable}, v.Dependencies())
}

func TestMaterializedViewSourcePropagation(t *testing.T) {
	v := NewMaterializedView(NewSource(employeesTable))

	out := v.OnTableChange(employeesTable, []value.RowDelta{
		value.Insert(row(1, value.Int64(1), value.String("alice"))),
	})
	require.Len(t, out, 1)
	require.Equal(t, 1, v.Len())

	out = v.OnTableChange(employeesTable, []value.RowDelta{
		value.Remove(row(1, value.Int64(1), value.String("alice"))),
	})
	require.Len(t, out, 1)
	require.True(t, v.IsEmpty())
}

func TestMaterializedViewWrongTableIsIgnored(t *testing.T) {
	v := NewMaterializedView(NewSource(employeesTable))
	out := v.OnTableChange(departmentsTable, []value.RowDelta{
		value.Insert(row(1, value.Int64(1))),
	})
	require.Nil(t, out)
	require.True(t, v.IsEmpty())
}

func TestMaterializedViewFilterPropagation(t *testing.T) {
	root := &Filter{
		Input: NewSource(employeesTable),
		Predicate: func(r *value.Row) bool {
			n, _ := r.Values[1].AsFloat()
			return n >= 100
		},
	}
	v := NewMaterializedView(root)

	out := v.OnTableChange(employeesTable, []value.RowDelta{
		value.Insert(row(1, value.Int64(1), value.Int64(50))),
		value.Insert(row(2, value.Int64(2), value.Int64(150))),
	})
	require.Len(t, out, 1)
	require.Equal(t, 1, v.Len())
}

func TestInnerJoinMatchesBothSidesAsTheyArrive(t *testing.T) {
	root := &Join{
		Left:          NewSource(employeesTable),
		Right:         NewSource(departmentsTable),
		LeftKey:       keyOf(1),
		RightKey:      keyOf(0),
		Type:          JoinInner,
		LeftColCount:  2,
		RightColCount: 2,
	}
	v := NewMaterializedView(root)

	out := v.OnTableChange(employeesTable, []value.RowDelta{
		value.Insert(row(1, value.Int64(1), value.Int64(10))),
	})
	require.Empty(t, out)
	require.True(t, v.IsEmpty())

	out = v.OnTableChange(departmentsTable, []value.RowDelta{
		value.Insert(row(10, value.Int64(10), value.String("eng"))),
	})
	require.Len(t, out, 1)
	require.Equal(t, 1, v.Len())

	out = v.OnTableChange(employeesTable, []value.RowDelta{
		value.Remove(row(1, value.Int64(1), value.Int64(10))),
	})
	require.Len(t, out, 1)
	require.True(t, v.IsEmpty())
}

func TestLeftOuterJoinNoMatchEmitsNullPaddedRow(t *testing.T) {
	root := &Join{
		Left:          NewSource(employeesTable),
		Right:         NewSource(departmentsTable),
		LeftKey:       keyOf(1),
		RightKey:      keyOf(0),
		Type:          JoinLeftOuter,
		LeftColCount:  2,
		RightColCount: 2,
	}
	v := NewMaterializedView(root)

	out := v.OnTableChange(employeesTable, []value.RowDelta{
		value.Insert(row(1, value.Int64(1), value.Int64(999))),
	})
	require.Len(t, out, 1)
	require.Equal(t, int32(1), out[0].Diff)
	require.True(t, out[0].Data.Values[2].IsNull())
	require.True(t, out[0].Data.Values[3].IsNull())
}

func TestLeftOuterJoinMatchThenUnmatchRestoresPadding(t *testing.T) {
	root := &Join{
		Left:          NewSource(employeesTable),
		Right:         NewSource(departmentsTable),
		LeftKey:       keyOf(1),
		RightKey:      keyOf(0),
		Type:          JoinLeftOuter,
		LeftColCount:  2,
		RightColCount: 2,
	}
	v := NewMaterializedView(root)

	v.OnTableChange(departmentsTable, []value.RowDelta{
		value.Insert(row(10, value.Int64(10), value.String("eng"))),
	})
	out := v.OnTableChange(employeesTable, []value.RowDelta{
		value.Insert(row(1, value.Int64(1), value.Int64(10))),
	})
	require.Len(t, out, 1)
	require.False(t, out[0].Data.Values[2].IsNull())
	require.Equal(t, 1, v.Len())

	out = v.OnTableChange(departmentsTable, []value.RowDelta{
		value.Remove(row(10, value.Int64(10), value.String("eng"))),
	})
	require.Len(t, out, 2)
	require.Equal(t, 1, v.Len())
	for _, d := range out {
		if d.Diff > 0 {
			require.True(t, d.Data.Values[2].IsNull())
		}
	}
}

func TestAggregateCountSum(t *testing.T) {
	root := &Aggregate{
		Input:   NewSource(employeesTable),
		GroupBy: []int{0},
		Functions: []AggregateFn{
			{Column: 1, Func: AggCount},
			{Column: 1, Func: AggSum},
		},
	}
	v := NewMaterializedView(root)

	out := v.OnTableChange(employeesTable, []value.RowDelta{
		value.Insert(row(1, value.Int64(10), value.Int64(100))),
		value.Insert(row(2, value.Int64(10), value.Int64(200))),
	})
	require.Len(t, out, 1)
	require.Equal(t, 1, v.Len())
	result := v.Result()[0]
	require.Equal(t, int64(2), mustInt(result.Values[1]))
	sum, _ := result.Values[2].AsFloat()
	require.Equal(t, 300.0, sum)

	out = v.OnTableChange(employeesTable, []value.RowDelta{
		value.Insert(row(3, value.Int64(10), value.Int64(50))),
	})
	require.Len(t, out, 2)
	require.Equal(t, 1, v.Len())
	result = v.Result()[0]
	require.Equal(t, int64(3), mustInt(result.Values[1]))
}

func TestAggregateMinMaxDeleteRescansMultiset(t *testing.T) {
	root := &Aggregate{
		Input:   NewSource(employeesTable),
		GroupBy: []int{0},
		Functions: []AggregateFn{
			{Column: 1, Func: AggMax},
		},
	}
	v := NewMaterializedView(root)

	v.OnTableChange(employeesTable, []value.RowDelta{
		value.Insert(row(1, value.Int64(10), value.Int64(100))),
		value.Insert(row(2, value.Int64(10), value.Int64(500))),
		value.Insert(row(3, value.Int64(10), value.Int64(300))),
	})
	require.Equal(t, 500.0, mustFloat(v.Result()[0].Values[1]))

	v.OnTableChange(employeesTable, []value.RowDelta{
		value.Remove(row(2, value.Int64(10), value.Int64(500))),
	})
	require.Equal(t, 300.0, mustFloat(v.Result()[0].Values[1]))
}

func TestBuilder(t *testing.T) {
	v := NewMaterializedViewBuilder().
		Dataflow(NewSource(employeesTable)).
		Initial([]*value.Row{row(1, value.Int64(1))}).
		Build()
	require.NotNil(t, v)
	require.Equal(t, 1, v.Len())

	empty := NewMaterializedViewBuilder().Build()
	require.Nil(t, empty)
}

func mustInt(v value.Value) int64 {
	f, _ := v.AsFloat()
	return int64(f)
}

func mustFloat(v value.Value) float64 {
	f, _ := v.AsFloat()
	return f
}
