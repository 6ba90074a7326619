package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cynos-db/cynos/internal/query/ast"
	"github.com/cynos-db/cynos/internal/value"
)

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Print the logical, optimized and physical plan for a fixed join query",
	Long: `explain builds the demo schema, seeds it with a handful of rows, and
prints the three-stage plan dump (logical, optimized, physical) for:

  SELECT employees.name, departments.name
  FROM employees JOIN departments ON employees.dept_id = departments.id
  WHERE employees.dept_id = 1`,
	RunE: runExplain,
}

func runExplain(cmd *cobra.Command, args []string) error {
	db := buildDemoDatabase(engineCfg)
	seedDemoData(db, 20)

	plan := &ast.Filter{
		Input: &ast.Join{
			Left:      &ast.Scan{Table: "employees"},
			Right:     &ast.Scan{Table: "departments"},
			Type:      ast.JoinInner,
			Condition: ast.Bin(ast.Col("employees", "dept_id", 2), ast.OpEq, ast.Col("departments", "id", 0)),
		},
		Predicate: ast.Bin(ast.Col("employees", "dept_id", 2), ast.OpEq, ast.Lit(value.Int64(1))),
	}

	result := db.Explain(plan)
	fmt.Println("== logical ==")
	fmt.Println(result.Logical)
	fmt.Println("== optimized ==")
	fmt.Println(result.Optimized)
	fmt.Println("== physical ==")
	fmt.Println(result.Physical)
	return nil
}
