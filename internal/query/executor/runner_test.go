package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cynos-db/cynos/internal/query/ast"
	"github.com/cynos-db/cynos/internal/query/physical"
	"github.com/cynos-db/cynos/internal/value"
)

func newSource() *InMemoryDataSource {
	ds := NewInMemoryDataSource()
	ds.AddTable("employees", []*value.Row{
		value.NewRow(1, []value.Value{value.Int64(1), value.String("alice"), value.Int64(10)}),
		value.NewRow(2, []value.Value{value.Int64(2), value.String("bob"), value.Int64(20)}),
		value.NewRow(3, []value.Value{value.Int64(3), value.String("carol"), value.Int64(10)}),
	}, 3)
	ds.AddTable("departments", []*value.Row{
		value.NewRow(1, []value.Value{value.Int64(10), value.String("eng")}),
		value.NewRow(2, []value.Value{value.Int64(20), value.String("sales")}),
	}, 2)
	return ds
}

func TestExecuteTableScanAndFilter(t *testing.T) {
	r := NewRunner(newSource())
	plan := &physical.Filter{
		Input:     &physical.TableScan{Table: "employees"},
		Predicate: ast.Bin(ast.Col("employees", "dept_id", 2), ast.OpEq, ast.Lit(value.Int64(10))),
	}
	out, err := r.Execute(plan)
	require.NoError(t, err)
	assert.Len(t, out.Entries, 2)
}

func TestExecuteProject(t *testing.T) {
	r := NewRunner(newSource())
	plan := &physical.Project{
		Input: &physical.TableScan{Table: "employees"},
		Columns: []ast.ProjectColumn{
			{Expr: ast.Col("employees", "name", 1), Alias: "name"},
		},
	}
	out, err := r.Execute(plan)
	require.NoError(t, err)
	require.Len(t, out.Entries, 3)
	assert.Equal(t, "alice", out.Entries[0].Values[0].Str())
}

func TestHashJoinAndNestedLoopJoinProduceEquivalentRows(t *testing.T) {
	leftKey := ast.Col("employees", "dept_id", 2)
	rightKey := ast.Col("departments", "id", 0)
	cond := ast.Bin(leftKey, ast.OpEq, rightKey)

	hashPlan := &physical.HashJoin{
		Left:      &physical.TableScan{Table: "employees"},
		Right:     &physical.TableScan{Table: "departments"},
		LeftKeys:  []ast.Expr{leftKey},
		RightKeys: []ast.Expr{rightKey},
		Condition: cond,
		Type:      ast.JoinInner,
	}
	nestedPlan := &physical.NestedLoopJoin{
		Left:      &physical.TableScan{Table: "employees"},
		Right:     &physical.TableScan{Table: "departments"},
		Condition: cond,
		Type:      ast.JoinInner,
	}

	r := NewRunner(newSource())
	hashOut, err := r.Execute(hashPlan)
	require.NoError(t, err)
	nestedOut, err := r.Execute(nestedPlan)
	require.NoError(t, err)

	require.Len(t, hashOut.Entries, 3)
	require.Len(t, nestedOut.Entries, len(hashOut.Entries))

	hashKeys := map[string]bool{}
	for _, e := range hashOut.Entries {
		hashKeys[entryKey(e)] = true
	}
	for _, e := range nestedOut.Entries {
		assert.True(t, hashKeys[entryKey(e)])
	}
}

func TestHashJoinLeftOuterPadsUnmatchedRows(t *testing.T) {
	ds := NewInMemoryDataSource()
	ds.AddTable("employees", []*value.Row{
		value.NewRow(1, []value.Value{value.Int64(1), value.Int64(99)}),
	}, 2)
	ds.AddTable("departments", []*value.Row{
		value.NewRow(1, []value.Value{value.Int64(10)}),
	}, 1)

	leftKey := ast.Col("employees", "dept_id", 1)
	rightKey := ast.Col("departments", "id", 0)
	plan := &physical.HashJoin{
		Left:      &physical.TableScan{Table: "employees"},
		Right:     &physical.TableScan{Table: "departments"},
		LeftKeys:  []ast.Expr{leftKey},
		RightKeys: []ast.Expr{rightKey},
		Condition: ast.Bin(leftKey, ast.OpEq, rightKey),
		Type:      ast.JoinLeftOuter,
	}
	r := NewRunner(ds)
	out, err := r.Execute(plan)
	require.NoError(t, err)
	require.Len(t, out.Entries, 1)
	assert.True(t, out.Entries[0].Values[2].IsNull())
}

func TestHashAggregateComputesCountSumAvg(t *testing.T) {
	r := NewRunner(newSource())
	plan := &physical.HashAggregate{
		Input:   &physical.TableScan{Table: "employees"},
		GroupBy: []ast.Expr{ast.Col("employees", "dept_id", 2)},
		Aggregates: []ast.AggExpr{
			{Func: ast.AggCount, Arg: nil, Alias: "cnt"},
			{Func: ast.AggSum, Arg: ast.Col("employees", "id", 0), Alias: "sum_id"},
			{Func: ast.AggAvg, Arg: ast.Col("employees", "id", 0), Alias: "avg_id"},
		},
	}
	out, err := r.Execute(plan)
	require.NoError(t, err)
	require.Len(t, out.Entries, 2)

	byGroup := map[int64]Entry{}
	for _, e := range out.Entries {
		byGroup[e.Values[0].Int()] = e
	}
	dept10 := byGroup[10]
	assert.Equal(t, int64(2), dept10.Values[1].Int())
	assert.Equal(t, int64(4), dept10.Values[2].Int())
}

func TestHashAggregateRejectsDistinct(t *testing.T) {
	r := NewRunner(newSource())
	plan := &physical.HashAggregate{
		Input: &physical.TableScan{Table: "employees"},
		Aggregates: []ast.AggExpr{
			{Func: ast.AggDistinct, Arg: ast.Col("employees", "dept_id", 2)},
		},
	}
	_, err := r.Execute(plan)
	require.Error(t, err)
}

func TestExecuteSortAndLimit(t *testing.T) {
	r := NewRunner(newSource())
	sortPlan := &physical.Sort{
		Input:   &physical.TableScan{Table: "employees"},
		OrderBy: []ast.SortKey{{Expr: ast.Col("employees", "id", 0), Desc: true}},
	}
	limitPlan := &physical.Limit{Input: sortPlan, Limit: 2, HasLimit: true}

	out, err := r.Execute(limitPlan)
	require.NoError(t, err)
	require.Len(t, out.Entries, 2)
	assert.Equal(t, int64(3), out.Entries[0].Values[0].Int())
	assert.Equal(t, int64(2), out.Entries[1].Values[0].Int())
}

func TestExecuteTopNMatchesSortThenLimit(t *testing.T) {
	r := NewRunner(newSource())
	orderBy := []ast.SortKey{{Expr: ast.Col("employees", "id", 0), Desc: false}}
	topN := &physical.TopN{Input: &physical.TableScan{Table: "employees"}, OrderBy: orderBy, N: 2}
	out, err := r.Execute(topN)
	require.NoError(t, err)
	require.Len(t, out.Entries, 2)
	assert.Equal(t, int64(1), out.Entries[0].Values[0].Int())
	assert.Equal(t, int64(2), out.Entries[1].Values[0].Int())
}

func TestExecuteUnionDeduplicatesUnlessAll(t *testing.T) {
	r := NewRunner(newSource())
	scan := &physical.TableScan{Table: "employees"}
	dedup := &physical.Union{Left: scan, Right: scan, All: false}
	out, err := r.Execute(dedup)
	require.NoError(t, err)
	assert.Len(t, out.Entries, 3)

	all := &physical.Union{Left: scan, Right: scan, All: true}
	out2, err := r.Execute(all)
	require.NoError(t, err)
	assert.Len(t, out2.Entries, 6)
}
