package engine

import (
	"fmt"
	"strings"

	"github.com/cynos-db/cynos/internal/index/btree"
	"github.com/cynos-db/cynos/internal/query/ast"
	"github.com/cynos-db/cynos/internal/query/physical"
)

// formatLogicalPlan and formatPhysicalPlan produce an indented tree dump
// of a plan, one node per line, children indented two spaces under their
// parent — the Go shape of what explain_plan's {:#?} pretty-printed
// Debug dump gave the Rust original: every field of every node visible,
// without needing every plan type to implement its own String().
func formatLogicalPlan(plan ast.LogicalPlan, depth int) string {
	var b strings.Builder
	writeLogicalPlan(&b, plan, depth)
	return b.String()
}

func writeLogicalPlan(b *strings.Builder, plan ast.LogicalPlan, depth int) {
	indent := strings.Repeat("  ", depth)
	if plan == nil {
		fmt.Fprintf(b, "%s<nil>\n", indent)
		return
	}
	switch n := plan.(type) {
	case *ast.Scan:
		fmt.Fprintf(b, "%sScan(%s)\n", indent, n.Table)
	case *ast.IndexScan:
		fmt.Fprintf(b, "%sIndexScan(%s.%s range=%s reverse=%v)\n", indent, n.Table, n.Index, formatRange(n.Range), n.Reverse)
	case *ast.IndexGet:
		fmt.Fprintf(b, "%sIndexGet(%s.%s key=%s)\n", indent, n.Table, n.Index, formatExpr(n.Key))
	case *ast.IndexInGet:
		fmt.Fprintf(b, "%sIndexInGet(%s.%s keys=%d)\n", indent, n.Table, n.Index, len(n.Keys))
	case *ast.GinIndexScan:
		fmt.Fprintf(b, "%sGinIndexScan(%s.%s key=%q)\n", indent, n.Table, n.Index, n.Key)
	case *ast.GinIndexScanMulti:
		fmt.Fprintf(b, "%sGinIndexScanMulti(%s.%s pairs=%d)\n", indent, n.Table, n.Index, len(n.Pairs))
	case *ast.Filter:
		fmt.Fprintf(b, "%sFilter(%s)\n", indent, formatExpr(n.Predicate))
		writeLogicalPlan(b, n.Input, depth+1)
	case *ast.Project:
		fmt.Fprintf(b, "%sProject(%s)\n", indent, formatProjectColumns(n.Columns))
		writeLogicalPlan(b, n.Input, depth+1)
	case *ast.Join:
		fmt.Fprintf(b, "%sJoin(type=%s on=%s)\n", indent, formatJoinType(n.Type), formatExpr(n.Condition))
		writeLogicalPlan(b, n.Left, depth+1)
		writeLogicalPlan(b, n.Right, depth+1)
	case *ast.CrossProduct:
		fmt.Fprintf(b, "%sCrossProduct\n", indent)
		writeLogicalPlan(b, n.Left, depth+1)
		writeLogicalPlan(b, n.Right, depth+1)
	case *ast.Aggregate:
		fmt.Fprintf(b, "%sAggregate(groupBy=%s, aggregates=%s)\n", indent, formatExprList(n.GroupBy), formatAggExprs(n.Aggregates))
		writeLogicalPlan(b, n.Input, depth+1)
	case *ast.Sort:
		fmt.Fprintf(b, "%sSort(%s)\n", indent, formatSortKeys(n.OrderBy))
		writeLogicalPlan(b, n.Input, depth+1)
	case *ast.Limit:
		fmt.Fprintf(b, "%sLimit(limit=%d offset=%d hasLimit=%v)\n", indent, n.Limit, n.Offset, n.HasLimit)
		writeLogicalPlan(b, n.Input, depth+1)
	case *ast.Union:
		fmt.Fprintf(b, "%sUnion(all=%v)\n", indent, n.All)
		writeLogicalPlan(b, n.Left, depth+1)
		writeLogicalPlan(b, n.Right, depth+1)
	case *ast.Empty:
		fmt.Fprintf(b, "%sEmpty\n", indent)
	default:
		fmt.Fprintf(b, "%s?(%T)\n", indent, n)
	}
}

func formatPhysicalPlan(plan physical.Plan, depth int) string {
	var b strings.Builder
	writePhysicalPlan(&b, plan, depth)
	return b.String()
}

func writePhysicalPlan(b *strings.Builder, plan physical.Plan, depth int) {
	indent := strings.Repeat("  ", depth)
	if plan == nil {
		fmt.Fprintf(b, "%s<nil>\n", indent)
		return
	}
	switch n := plan.(type) {
	case *physical.TableScan:
		fmt.Fprintf(b, "%sTableScan(%s)\n", indent, n.Table)
	case *physical.IndexScan:
		fmt.Fprintf(b, "%sIndexScan(%s.%s range=%s reverse=%v)\n", indent, n.Table, n.Index, formatRange(n.Range), n.Reverse)
	case *physical.IndexGet:
		fmt.Fprintf(b, "%sIndexGet(%s.%s key=%s)\n", indent, n.Table, n.Index, formatExpr(n.Key))
	case *physical.IndexInGet:
		fmt.Fprintf(b, "%sIndexInGet(%s.%s keys=%d)\n", indent, n.Table, n.Index, len(n.Keys))
	case *physical.GinIndexScan:
		fmt.Fprintf(b, "%sGinIndexScan(%s.%s key=%q)\n", indent, n.Table, n.Index, n.Key)
	case *physical.GinIndexScanMulti:
		fmt.Fprintf(b, "%sGinIndexScanMulti(%s.%s pairs=%d)\n", indent, n.Table, n.Index, len(n.Pairs))
	case *physical.Filter:
		fmt.Fprintf(b, "%sFilter(%s)\n", indent, formatExpr(n.Predicate))
		writePhysicalPlan(b, n.Input, depth+1)
	case *physical.Project:
		fmt.Fprintf(b, "%sProject(%s)\n", indent, formatProjectColumns(n.Columns))
		writePhysicalPlan(b, n.Input, depth+1)
	case *physical.CrossProduct:
		fmt.Fprintf(b, "%sCrossProduct\n", indent)
		writePhysicalPlan(b, n.Left, depth+1)
		writePhysicalPlan(b, n.Right, depth+1)
	case *physical.HashJoin:
		fmt.Fprintf(b, "%sHashJoin(type=%s on=%s)\n", indent, formatJoinType(n.Type), formatExpr(n.Condition))
		writePhysicalPlan(b, n.Left, depth+1)
		writePhysicalPlan(b, n.Right, depth+1)
	case *physical.SortMergeJoin:
		fmt.Fprintf(b, "%sSortMergeJoin(type=%s on=%s)\n", indent, formatJoinType(n.Type), formatExpr(n.Condition))
		writePhysicalPlan(b, n.Left, depth+1)
		writePhysicalPlan(b, n.Right, depth+1)
	case *physical.NestedLoopJoin:
		fmt.Fprintf(b, "%sNestedLoopJoin(type=%s on=%s)\n", indent, formatJoinType(n.Type), formatExpr(n.Condition))
		writePhysicalPlan(b, n.Left, depth+1)
		writePhysicalPlan(b, n.Right, depth+1)
	case *physical.IndexNestedLoopJoin:
		fmt.Fprintf(b, "%sIndexNestedLoopJoin(type=%s inner=%s.%s probeKey=%s on=%s)\n",
			indent, formatJoinType(n.Type), n.InnerTable, n.InnerIndex, formatExpr(n.ProbeKey), formatExpr(n.Condition))
		writePhysicalPlan(b, n.Outer, depth+1)
	case *physical.HashAggregate:
		fmt.Fprintf(b, "%sHashAggregate(groupBy=%s, aggregates=%s)\n", indent, formatExprList(n.GroupBy), formatAggExprs(n.Aggregates))
		writePhysicalPlan(b, n.Input, depth+1)
	case *physical.Sort:
		fmt.Fprintf(b, "%sSort(%s)\n", indent, formatSortKeys(n.OrderBy))
		writePhysicalPlan(b, n.Input, depth+1)
	case *physical.TopN:
		fmt.Fprintf(b, "%sTopN(n=%d, %s)\n", indent, n.N, formatSortKeys(n.OrderBy))
		writePhysicalPlan(b, n.Input, depth+1)
	case *physical.Limit:
		fmt.Fprintf(b, "%sLimit(limit=%d offset=%d hasLimit=%v)\n", indent, n.Limit, n.Offset, n.HasLimit)
		writePhysicalPlan(b, n.Input, depth+1)
	case *physical.Union:
		fmt.Fprintf(b, "%sUnion(all=%v)\n", indent, n.All)
		writePhysicalPlan(b, n.Left, depth+1)
		writePhysicalPlan(b, n.Right, depth+1)
	case *physical.Empty:
		fmt.Fprintf(b, "%sEmpty\n", indent)
	case *physical.NoOp:
		fmt.Fprintf(b, "%sNoOp\n", indent)
		writePhysicalPlan(b, n.Input, depth+1)
	default:
		fmt.Fprintf(b, "%s?(%T)\n", indent, n)
	}
}

func formatJoinType(t ast.JoinType) string {
	switch t {
	case ast.JoinInner:
		return "inner"
	case ast.JoinLeftOuter:
		return "left"
	case ast.JoinRightOuter:
		return "right"
	case ast.JoinFullOuter:
		return "full"
	case ast.JoinCross:
		return "cross"
	default:
		return "?"
	}
}

func formatRange(r btree.KeyRange) string {
	switch r.Kind {
	case btree.RangeAll:
		return "all"
	case btree.RangeOnly:
		return fmt.Sprintf("=%s", r.Lo.String())
	case btree.RangeLower:
		op := ">="
		if r.LoExclusive {
			op = ">"
		}
		return fmt.Sprintf("%s%s", op, r.Lo.String())
	case btree.RangeUpper:
		op := "<="
		if r.HiExclusive {
			op = "<"
		}
		return fmt.Sprintf("%s%s", op, r.Hi.String())
	case btree.RangeBound:
		loOp, hiOp := ">=", "<="
		if r.LoExclusive {
			loOp = ">"
		}
		if r.HiExclusive {
			hiOp = "<"
		}
		return fmt.Sprintf("%s%s,%s%s", loOp, r.Lo.String(), hiOp, r.Hi.String())
	default:
		return "?"
	}
}

func formatProjectColumns(cols []ast.ProjectColumn) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		if c.Alias != "" {
			parts[i] = fmt.Sprintf("%s AS %s", formatExpr(c.Expr), c.Alias)
		} else {
			parts[i] = formatExpr(c.Expr)
		}
	}
	return strings.Join(parts, ", ")
}

func formatExprList(exprs []ast.Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = formatExpr(e)
	}
	return strings.Join(parts, ", ")
}

func formatAggExprs(aggs []ast.AggExpr) string {
	parts := make([]string, len(aggs))
	for i, a := range aggs {
		arg := "*"
		if a.Arg != nil {
			arg = formatExpr(a.Arg)
		}
		if a.Alias != "" {
			parts[i] = fmt.Sprintf("%s(%s) AS %s", a.Func, arg, a.Alias)
		} else {
			parts[i] = fmt.Sprintf("%s(%s)", a.Func, arg)
		}
	}
	return strings.Join(parts, ", ")
}

func formatSortKeys(keys []ast.SortKey) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		dir := "asc"
		if k.Desc {
			dir = "desc"
		}
		parts[i] = fmt.Sprintf("%s %s", formatExpr(k.Expr), dir)
	}
	return strings.Join(parts, ", ")
}

func formatExpr(e ast.Expr) string {
	if e == nil {
		return "-"
	}
	switch x := e.(type) {
	case *ast.Column:
		if x.Table != "" {
			return fmt.Sprintf("%s.%s", x.Table, x.Name)
		}
		return x.Name
	case *ast.Literal:
		return x.Value.String()
	case *ast.BinaryExpr:
		return fmt.Sprintf("(%s %s %s)", formatExpr(x.Left), formatBinaryOp(x.Op), formatExpr(x.Right))
	case *ast.UnaryExpr:
		return fmt.Sprintf("%s(%s)", formatUnaryOp(x.Op), formatExpr(x.Expr))
	case *ast.InExpr:
		op := "IN"
		if x.Negated {
			op = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", formatExpr(x.Expr), op, formatExprList(x.List))
	case *ast.BetweenExpr:
		op := "BETWEEN"
		if x.Negated {
			op = "NOT BETWEEN"
		}
		return fmt.Sprintf("%s %s %s AND %s", formatExpr(x.Expr), op, formatExpr(x.Lo), formatExpr(x.Hi))
	case *ast.LikeExpr:
		op := "LIKE"
		if x.Negated {
			op = "NOT LIKE"
		}
		return fmt.Sprintf("%s %s %s", formatExpr(x.Expr), op, formatExpr(x.Pattern))
	case *ast.MatchExpr:
		op := "MATCH"
		if x.Negated {
			op = "NOT MATCH"
		}
		return fmt.Sprintf("%s %s %s", formatExpr(x.Expr), op, formatExpr(x.Pattern))
	case *ast.FuncCall:
		return fmt.Sprintf("%s(%s)", x.Name, formatExprList(x.Args))
	case *ast.AggExpr:
		arg := "*"
		if x.Arg != nil {
			arg = formatExpr(x.Arg)
		}
		return fmt.Sprintf("%s(%s)", x.Func, arg)
	default:
		return fmt.Sprintf("?(%T)", x)
	}
}

func formatBinaryOp(op ast.BinaryOp) string {
	switch op {
	case ast.OpAdd:
		return "+"
	case ast.OpSub:
		return "-"
	case ast.OpMul:
		return "*"
	case ast.OpDiv:
		return "/"
	case ast.OpMod:
		return "%"
	case ast.OpEq:
		return "="
	case ast.OpNe:
		return "!="
	case ast.OpLt:
		return "<"
	case ast.OpLe:
		return "<="
	case ast.OpGt:
		return ">"
	case ast.OpGe:
		return ">="
	case ast.OpAnd:
		return "AND"
	case ast.OpOr:
		return "OR"
	default:
		return "?"
	}
}

func formatUnaryOp(op ast.UnaryOp) string {
	switch op {
	case ast.OpNot:
		return "NOT"
	case ast.OpNeg:
		return "-"
	case ast.OpIsNull:
		return "IS NULL"
	case ast.OpIsNotNull:
		return "IS NOT NULL"
	default:
		return "?"
	}
}
