package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cynos-db/cynos/internal/query/ast"
	"github.com/cynos-db/cynos/internal/storage"
	"github.com/cynos-db/cynos/internal/value"
)

func employeesSchema() *storage.Schema {
	return &storage.Schema{
		Name:       "employees",
		Columns:    []storage.Column{{Name: "id", Type: value.KindInt64}, {Name: "name", Type: value.KindString}, {Name: "dept_id", Type: value.KindInt64}},
		PrimaryKey: []string{"id"},
	}
}

func departmentsSchema() *storage.Schema {
	return &storage.Schema{
		Name:       "departments",
		Columns:    []storage.Column{{Name: "id", Type: value.KindInt64}, {Name: "name", Type: value.KindString}},
		PrimaryKey: []string{"id"},
	}
}

func TestCreateTableAndInsert(t *testing.T) {
	db := New()
	require.NoError(t, db.CreateTable(employeesSchema()))
	require.Error(t, db.CreateTable(employeesSchema()))

	row, err := db.Insert("employees", []value.Value{value.Int64(1), value.String("alice"), value.Int64(3)})
	require.NoError(t, err)
	require.Equal(t, "alice", row.Values[1].Str())

	rs, ok := db.Table("employees")
	require.True(t, ok)
	require.Len(t, rs.Scan(), 1)
}

func TestExecuteFilterScan(t *testing.T) {
	db := New()
	require.NoError(t, db.CreateTable(employeesSchema()))
	_, err := db.Insert("employees", []value.Value{value.Int64(1), value.String("alice"), value.Int64(3)})
	require.NoError(t, err)
	_, err = db.Insert("employees", []value.Value{value.Int64(2), value.String("bob"), value.Int64(4)})
	require.NoError(t, err)

	plan := &ast.Filter{
		Input:     &ast.Scan{Table: "employees"},
		Predicate: ast.Bin(ast.Col("employees", "dept_id", 2), ast.OpEq, ast.Lit(value.Int64(3))),
	}
	result, err := db.Execute(plan)
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	require.Equal(t, "alice", result.Entries[0].Values[1].Str())
}

func TestExecuteCachesCompiledPlan(t *testing.T) {
	db := New()
	require.NoError(t, db.CreateTable(employeesSchema()))

	plan := &ast.Scan{Table: "employees"}
	first := db.Compile(plan)
	require.NotNil(t, first)
	require.Equal(t, 1, db.ec.Len())

	second := db.Compile(plan)
	require.Same(t, first, second)
}

func TestExplainProducesThreeStages(t *testing.T) {
	db := New()
	require.NoError(t, db.CreateTable(employeesSchema()))

	plan := &ast.Filter{
		Input:     &ast.Scan{Table: "employees"},
		Predicate: ast.Bin(ast.Col("employees", "dept_id", 2), ast.OpEq, ast.Lit(value.Int64(3))),
	}
	result := db.Explain(plan)
	require.Contains(t, result.Logical, "Filter")
	require.Contains(t, result.Logical, "Scan(employees)")
	require.Contains(t, result.Physical, "TableScan(employees)")
}

func TestCreateViewMaintainsIncrementally(t *testing.T) {
	db := New()
	require.NoError(t, db.CreateTable(employeesSchema()))
	_, err := db.Insert("employees", []value.Value{value.Int64(1), value.String("alice"), value.Int64(3)})
	require.NoError(t, err)

	plan := &ast.Filter{
		Input:     &ast.Scan{Table: "employees"},
		Predicate: ast.Bin(ast.Col("employees", "dept_id", 2), ast.OpEq, ast.Lit(value.Int64(3))),
	}
	require.NoError(t, db.CreateView("eng_employees", plan))

	rows, ok := db.ViewResult("eng_employees")
	require.True(t, ok)
	require.Len(t, rows, 1)

	_, err = db.Insert("employees", []value.Value{value.Int64(2), value.String("bob"), value.Int64(3)})
	require.NoError(t, err)

	rows, ok = db.ViewResult("eng_employees")
	require.True(t, ok)
	require.Len(t, rows, 2)

	_, err = db.Insert("employees", []value.Value{value.Int64(3), value.String("carol"), value.Int64(9)})
	require.NoError(t, err)

	rows, ok = db.ViewResult("eng_employees")
	require.True(t, ok)
	require.Len(t, rows, 2)
}

func TestCreateViewRejectsSortPlan(t *testing.T) {
	db := New()
	require.NoError(t, db.CreateTable(employeesSchema()))

	plan := &ast.Sort{
		Input:   &ast.Scan{Table: "employees"},
		OrderBy: []ast.SortKey{{Expr: ast.Col("employees", "name", 1)}},
	}
	err := db.CreateView("sorted", plan)
	require.Error(t, err)
}

func TestCreateViewAcrossJoinTracksBothTables(t *testing.T) {
	db := New()
	require.NoError(t, db.CreateTable(employeesSchema()))
	require.NoError(t, db.CreateTable(departmentsSchema()))

	_, err := db.Insert("departments", []value.Value{value.Int64(3), value.String("eng")})
	require.NoError(t, err)
	_, err = db.Insert("employees", []value.Value{value.Int64(1), value.String("alice"), value.Int64(3)})
	require.NoError(t, err)

	plan := &ast.Join{
		Left:      &ast.Scan{Table: "employees"},
		Right:     &ast.Scan{Table: "departments"},
		Type:      ast.JoinInner,
		Condition: ast.Bin(ast.Col("employees", "dept_id", 2), ast.OpEq, ast.Col("departments", "id", 0)),
	}
	require.NoError(t, db.CreateView("staffed_depts", plan))

	rows, ok := db.ViewResult("staffed_depts")
	require.True(t, ok)
	require.Len(t, rows, 1)

	_, err = db.Insert("departments", []value.Value{value.Int64(4), value.String("sales")})
	require.NoError(t, err)
	_, err = db.Insert("employees", []value.Value{value.Int64(2), value.String("bob"), value.Int64(4)})
	require.NoError(t, err)

	rows, ok = db.ViewResult("staffed_depts")
	require.True(t, ok)
	require.Len(t, rows, 2)
}

func TestDropView(t *testing.T) {
	db := New()
	require.NoError(t, db.CreateTable(employeesSchema()))
	require.NoError(t, db.CreateView("all_employees", &ast.Scan{Table: "employees"}))

	_, ok := db.ViewResult("all_employees")
	require.True(t, ok)

	db.DropView("all_employees")
	_, ok = db.ViewResult("all_employees")
	require.False(t, ok)
}
