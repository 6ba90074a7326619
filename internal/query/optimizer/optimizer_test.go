package optimizer

import (
	"testing"

	"github.com/cynos-db/cynos/internal/query/ast"
	"github.com/cynos-db/cynos/internal/storage"
	"github.com/cynos-db/cynos/internal/value"
	"github.com/stretchr/testify/require"
)

func testContext() *Context {
	ctx := NewContext()
	ctx.indexes["employees"] = []IndexInfo{
		{Name: "idx_dept", Kind: storage.IndexBTree, Columns: []string{"dept_id"}},
		{Name: "idx_name", Kind: storage.IndexHash, Columns: []string{"name"}, Unique: true},
	}
	ctx.SetCardinality("employees", 500)
	ctx.SetCardinality("departments", 5)
	return ctx
}

func TestIndexSelectionPointLookup(t *testing.T) {
	pass := &IndexSelection{Context: testContext()}
	plan := &ast.Filter{
		Input:     &ast.Scan{Table: "employees"},
		Predicate: ast.Bin(ast.Col("employees", "name", 1), ast.OpEq, ast.Lit(value.String("alice"))),
	}
	out := pass.Optimize(plan)
	get, ok := out.(*ast.IndexGet)
	require.True(t, ok, "expected IndexGet, got %T", out)
	require.Equal(t, "idx_name", get.Index)
}

func TestIndexSelectionRangeMerge(t *testing.T) {
	pass := &IndexSelection{Context: testContext()}
	col := ast.Col("employees", "dept_id", 2)
	predicate := ast.Bin(
		ast.Bin(col, ast.OpGe, ast.Lit(value.Int64(3))),
		ast.OpAnd,
		ast.Bin(col, ast.OpLe, ast.Lit(value.Int64(9))),
	)
	plan := &ast.Filter{Input: &ast.Scan{Table: "employees"}, Predicate: predicate}
	out := pass.Optimize(plan)
	scan, ok := out.(*ast.IndexScan)
	require.True(t, ok, "expected IndexScan, got %T", out)
	require.Equal(t, "idx_dept", scan.Index)
	require.Equal(t, int64(3), scan.Range.Lo.Int())
	require.Equal(t, int64(9), scan.Range.Hi.Int())
	require.False(t, scan.Range.LoExclusive)
	require.False(t, scan.Range.HiExclusive)
}

func TestIndexSelectionLeavesResidualFilter(t *testing.T) {
	pass := &IndexSelection{Context: testContext()}
	predicate := ast.Bin(
		ast.Bin(ast.Col("employees", "name", 1), ast.OpEq, ast.Lit(value.String("alice"))),
		ast.OpAnd,
		ast.Bin(ast.Col("employees", "dept_id", 2), ast.OpGt, ast.Lit(value.Int64(1))),
	)
	plan := &ast.Filter{Input: &ast.Scan{Table: "employees"}, Predicate: predicate}
	out := pass.Optimize(plan)
	filter, ok := out.(*ast.Filter)
	require.True(t, ok, "expected residual Filter, got %T", out)
	_, ok = filter.Input.(*ast.IndexGet)
	require.True(t, ok)
}

func TestOuterJoinSimplificationDowngradesLeftOuterToInner(t *testing.T) {
	pass := &OuterJoinSimplification{}
	left := &ast.Scan{Table: "employees"}
	right := &ast.Scan{Table: "departments"}
	join := &ast.Join{Left: left, Right: right, Type: ast.JoinLeftOuter, Condition: ast.Bin(ast.Col("employees", "dept_id", 0), ast.OpEq, ast.Col("departments", "id", 0))}
	predicate := ast.Bin(ast.Col("departments", "active", 1), ast.OpEq, ast.Lit(value.Boolean(true)))
	plan := &ast.Filter{Input: join, Predicate: predicate}

	out := pass.Optimize(plan)
	filter := out.(*ast.Filter)
	rewritten := filter.Input.(*ast.Join)
	require.Equal(t, ast.JoinInner, rewritten.Type)
}

func TestOuterJoinSimplificationLeavesUnrejectingPredicateAlone(t *testing.T) {
	pass := &OuterJoinSimplification{}
	left := &ast.Scan{Table: "employees"}
	right := &ast.Scan{Table: "departments"}
	join := &ast.Join{Left: left, Right: right, Type: ast.JoinLeftOuter, Condition: ast.Bin(ast.Col("employees", "dept_id", 0), ast.OpEq, ast.Col("departments", "id", 0))}
	predicate := ast.Un(ast.OpIsNull, ast.Col("departments", "active", 1))
	plan := &ast.Filter{Input: join, Predicate: predicate}

	out := pass.Optimize(plan)
	filter := out.(*ast.Filter)
	rewritten := filter.Input.(*ast.Join)
	require.Equal(t, ast.JoinLeftOuter, rewritten.Type)
}

func TestJoinReorderOrdersSmallestTableFirst(t *testing.T) {
	ctx := NewContext()
	ctx.SetCardinality("big", 10000)
	ctx.SetCardinality("small", 5)
	pass := &JoinReorder{Context: ctx}

	big := &ast.Scan{Table: "big"}
	small := &ast.Scan{Table: "small"}
	cond := ast.Bin(ast.Col("big", "id", 0), ast.OpEq, ast.Col("small", "big_id", 0))
	plan := &ast.Join{Left: big, Right: small, Type: ast.JoinInner, Condition: cond}

	out := pass.Optimize(plan)
	join, ok := out.(*ast.Join)
	require.True(t, ok)
	leftScan, ok := join.Left.(*ast.Scan)
	require.True(t, ok)
	require.Equal(t, "small", leftScan.Table)
}

func TestPredicatePushdownSplitsConjunctsAcrossJoinSides(t *testing.T) {
	pass := &PredicatePushdown{}
	left := &ast.Scan{Table: "employees"}
	right := &ast.Scan{Table: "departments"}
	join := &ast.Join{Left: left, Right: right, Type: ast.JoinInner, Condition: ast.Bin(ast.Col("employees", "dept_id", 0), ast.OpEq, ast.Col("departments", "id", 0))}
	predicate := ast.Bin(
		ast.Bin(ast.Col("employees", "name", 1), ast.OpEq, ast.Lit(value.String("alice"))),
		ast.OpAnd,
		ast.Bin(ast.Col("departments", "active", 1), ast.OpEq, ast.Lit(value.Boolean(true))),
	)
	plan := &ast.Filter{Input: join, Predicate: predicate}

	out := pass.Optimize(plan)
	rewritten, ok := out.(*ast.Join)
	require.True(t, ok, "expected conjuncts pushed below join, got %T", out)
	_, ok = rewritten.Left.(*ast.Filter)
	require.True(t, ok)
	_, ok = rewritten.Right.(*ast.Filter)
	require.True(t, ok)
}

func TestOptimizePipelineComposesAllPasses(t *testing.T) {
	ctx := testContext()
	join := &ast.Join{
		Left:      &ast.Scan{Table: "employees"},
		Right:     &ast.Scan{Table: "departments"},
		Type:      ast.JoinLeftOuter,
		Condition: ast.Bin(ast.Col("employees", "dept_id", 0), ast.OpEq, ast.Col("departments", "id", 0)),
	}
	predicate := ast.Bin(
		ast.Bin(ast.Col("employees", "name", 1), ast.OpEq, ast.Lit(value.String("alice"))),
		ast.OpAnd,
		ast.Bin(ast.Col("departments", "id", 0), ast.OpEq, ast.Lit(value.Int64(2))),
	)
	plan := &ast.Filter{Input: join, Predicate: predicate}

	out := Optimize(plan, ctx)
	require.NotNil(t, out)
}
