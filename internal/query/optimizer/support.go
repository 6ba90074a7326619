package optimizer

import "github.com/cynos-db/cynos/internal/query/ast"

// SplitConjuncts flattens a predicate into its top-level AND operands.
// A non-AND predicate is returned as the sole element.
func SplitConjuncts(e ast.Expr) []ast.Expr {
	bin, ok := e.(*ast.BinaryExpr)
	if !ok || bin.Op != ast.OpAnd {
		return []ast.Expr{e}
	}
	return append(SplitConjuncts(bin.Left), SplitConjuncts(bin.Right)...)
}

// CombineConjuncts ANDs together every element of exprs, left to right.
// Panics on an empty slice; callers must check length first.
func CombineConjuncts(exprs []ast.Expr) ast.Expr {
	out := exprs[0]
	for _, e := range exprs[1:] {
		out = ast.Bin(out, ast.OpAnd, e)
	}
	return out
}

// ExtractTables returns the set of table names scanned anywhere under
// plan.
func ExtractTables(plan ast.LogicalPlan) map[string]bool {
	tables := map[string]bool{}
	var walk func(ast.LogicalPlan)
	walk = func(p ast.LogicalPlan) {
		switch n := p.(type) {
		case *ast.Scan:
			tables[n.Table] = true
		case *ast.IndexScan:
			tables[n.Table] = true
		case *ast.IndexGet:
			tables[n.Table] = true
		case *ast.IndexInGet:
			tables[n.Table] = true
		case *ast.GinIndexScan:
			tables[n.Table] = true
		case *ast.GinIndexScanMulti:
			tables[n.Table] = true
		default:
			for _, child := range ast.Inputs(p) {
				walk(child)
			}
		}
	}
	walk(plan)
	return tables
}

// ExprReferencesTables reports whether e mentions any column from tables.
func ExprReferencesTables(e ast.Expr, tables map[string]bool) bool {
	switch n := e.(type) {
	case *ast.Column:
		return tables[n.Table]
	case *ast.Literal:
		return false
	case *ast.BinaryExpr:
		return ExprReferencesTables(n.Left, tables) || ExprReferencesTables(n.Right, tables)
	case *ast.UnaryExpr:
		return ExprReferencesTables(n.Expr, tables)
	case *ast.InExpr:
		if ExprReferencesTables(n.Expr, tables) {
			return true
		}
		for _, e := range n.List {
			if ExprReferencesTables(e, tables) {
				return true
			}
		}
		return false
	case *ast.BetweenExpr:
		return ExprReferencesTables(n.Expr, tables) || ExprReferencesTables(n.Lo, tables) || ExprReferencesTables(n.Hi, tables)
	case *ast.LikeExpr:
		return ExprReferencesTables(n.Expr, tables) || ExprReferencesTables(n.Pattern, tables)
	case *ast.MatchExpr:
		return ExprReferencesTables(n.Expr, tables) || ExprReferencesTables(n.Pattern, tables)
	case *ast.FuncCall:
		for _, a := range n.Args {
			if ExprReferencesTables(a, tables) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func singleTable(tables map[string]bool) (string, bool) {
	if len(tables) != 1 {
		return "", false
	}
	for t := range tables {
		return t, true
	}
	return "", false
}

func exprTables(e ast.Expr) map[string]bool {
	tables := map[string]bool{}
	var walk func(ast.Expr)
	walk = func(e ast.Expr) {
		switch n := e.(type) {
		case *ast.Column:
			tables[n.Table] = true
		case *ast.BinaryExpr:
			walk(n.Left)
			walk(n.Right)
		case *ast.UnaryExpr:
			walk(n.Expr)
		case *ast.InExpr:
			walk(n.Expr)
			for _, e := range n.List {
				walk(e)
			}
		case *ast.BetweenExpr:
			walk(n.Expr)
			walk(n.Lo)
			walk(n.Hi)
		case *ast.LikeExpr:
			walk(n.Expr)
			walk(n.Pattern)
		case *ast.MatchExpr:
			walk(n.Expr)
			walk(n.Pattern)
		case *ast.FuncCall:
			for _, a := range n.Args {
				walk(a)
			}
		}
	}
	walk(e)
	return tables
}
