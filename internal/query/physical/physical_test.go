package physical

import (
	"testing"

	"github.com/cynos-db/cynos/internal/query/ast"
	"github.com/cynos-db/cynos/internal/query/optimizer"
	"github.com/cynos-db/cynos/internal/storage"
	"github.com/stretchr/testify/require"
)

func TestConvertEquiJoinWithIndexUsesIndexNestedLoop(t *testing.T) {
	ctx := optimizer.NewContext()
	ctx.RegisterIndex("departments", optimizer.IndexInfo{Name: "__pk__", Kind: storage.IndexBTree, Columns: []string{"id"}, Unique: true})
	plan := &ast.Join{
		Left:      &ast.Scan{Table: "employees"},
		Right:     &ast.Scan{Table: "departments"},
		Type:      ast.JoinInner,
		Condition: ast.Bin(ast.Col("employees", "dept_id", 0), ast.OpEq, ast.Col("departments", "id", 0)),
	}
	out := Convert(plan, ctx)
	join, ok := out.(*IndexNestedLoopJoin)
	require.True(t, ok, "expected IndexNestedLoopJoin, got %T", out)
	require.Equal(t, "departments", join.InnerTable)
	require.Equal(t, "__pk__", join.InnerIndex)
}

func TestConvertEquiJoinWithoutIndexUsesHashJoin(t *testing.T) {
	ctx := optimizer.NewContext()
	plan := &ast.Join{
		Left:      &ast.Scan{Table: "employees"},
		Right:     &ast.Scan{Table: "departments"},
		Type:      ast.JoinInner,
		Condition: ast.Bin(ast.Col("employees", "dept_id", 0), ast.OpEq, ast.Col("departments", "id", 0)),
	}
	out := Convert(plan, ctx)
	_, ok := out.(*HashJoin)
	require.True(t, ok, "expected HashJoin, got %T", out)
}

func TestConvertNonEquiJoinUsesNestedLoop(t *testing.T) {
	ctx := optimizer.NewContext()
	plan := &ast.Join{
		Left:      &ast.Scan{Table: "employees"},
		Right:     &ast.Scan{Table: "departments"},
		Type:      ast.JoinInner,
		Condition: ast.Bin(ast.Col("employees", "dept_id", 0), ast.OpGt, ast.Col("departments", "id", 0)),
	}
	out := Convert(plan, ctx)
	_, ok := out.(*NestedLoopJoin)
	require.True(t, ok, "expected NestedLoopJoin, got %T", out)
}

func TestOrderByIndexReplacesSortOverTableScan(t *testing.T) {
	ctx := optimizer.NewContext()
	ctx.RegisterIndex("employees", optimizer.IndexInfo{Name: "idx_dept", Kind: storage.IndexBTree, Columns: []string{"dept_id"}})
	plan := &ast.Sort{
		Input:   &ast.Scan{Table: "employees"},
		OrderBy: []ast.SortKey{{Expr: ast.Col("employees", "dept_id", 0)}},
	}
	out := Convert(plan, ctx)
	scan, ok := out.(*IndexScan)
	require.True(t, ok, "expected IndexScan, got %T", out)
	require.Equal(t, "idx_dept", scan.Index)
	require.False(t, scan.Reverse)
}

func TestOrderByIndexLeavesSortWhenNoIndexCoversColumn(t *testing.T) {
	ctx := optimizer.NewContext()
	plan := &ast.Sort{
		Input:   &ast.Scan{Table: "employees"},
		OrderBy: []ast.SortKey{{Expr: ast.Col("employees", "dept_id", 0)}},
	}
	out := Convert(plan, ctx)
	_, ok := out.(*Sort)
	require.True(t, ok, "expected Sort to remain, got %T", out)
}

func TestConvertLimitOverSortBecomesTopN(t *testing.T) {
	ctx := optimizer.NewContext()
	plan := &ast.Limit{
		Input: &ast.Sort{
			Input:   &ast.Scan{Table: "employees"},
			OrderBy: []ast.SortKey{{Expr: ast.Col("employees", "hired_at", 2)}},
		},
		Limit: 10, HasLimit: true,
	}
	out := Convert(plan, ctx)
	_, ok := out.(*TopN)
	require.True(t, ok, "expected TopN, got %T", out)
}

func TestConvertCrossProductWhenNoCondition(t *testing.T) {
	ctx := optimizer.NewContext()
	plan := &ast.CrossProduct{Left: &ast.Scan{Table: "a"}, Right: &ast.Scan{Table: "b"}}
	out := Convert(plan, ctx)
	_, ok := out.(*CrossProduct)
	require.True(t, ok)
}
