package physical

import (
	"github.com/cynos-db/cynos/internal/index/btree"
	"github.com/cynos-db/cynos/internal/query/ast"
	"github.com/cynos-db/cynos/internal/query/optimizer"
	"github.com/cynos-db/cynos/internal/storage"
)

// OrderByIndex replaces a Sort sitting directly over a full TableScan, or
// over an unordered IndexScan on the same column, with an IndexScan that
// already produces rows in the requested order — avoiding the explicit
// sort entirely. It only fires for a single-column ORDER BY whose column
// is the leading column of a B+Tree index on the scanned table.
func OrderByIndex(plan Plan, ctx *optimizer.Context) Plan {
	return traverse(plan, ctx)
}

func traverse(plan Plan, ctx *optimizer.Context) Plan {
	switch n := plan.(type) {
	case *Sort:
		input := traverse(n.Input, ctx)
		if optimized, ok := tryOptimizeTableScan(input, n.OrderBy, ctx); ok {
			return optimized
		}
		if optimized, ok := tryOptimizeIndexScan(input, n.OrderBy, ctx); ok {
			return optimized
		}
		return &Sort{Input: input, OrderBy: n.OrderBy}
	case *TopN:
		input := traverse(n.Input, ctx)
		if optimized, ok := tryOptimizeTableScan(input, n.OrderBy, ctx); ok {
			limit := n.N
			return &Limit{Input: optimized, Limit: limit, HasLimit: true}
		}
		return &TopN{Input: input, OrderBy: n.OrderBy, N: n.N}
	case *Filter:
		return &Filter{Input: traverse(n.Input, ctx), Predicate: n.Predicate}
	case *Project:
		return &Project{Input: traverse(n.Input, ctx), Columns: n.Columns}
	case *Limit:
		return &Limit{Input: traverse(n.Input, ctx), Limit: n.Limit, Offset: n.Offset, HasLimit: n.HasLimit}
	case *CrossProduct:
		return &CrossProduct{Left: traverse(n.Left, ctx), Right: traverse(n.Right, ctx)}
	case *HashJoin:
		return &HashJoin{Left: traverse(n.Left, ctx), Right: traverse(n.Right, ctx), LeftKeys: n.LeftKeys, RightKeys: n.RightKeys, Condition: n.Condition, Type: n.Type}
	case *SortMergeJoin:
		return &SortMergeJoin{Left: traverse(n.Left, ctx), Right: traverse(n.Right, ctx), LeftKeys: n.LeftKeys, RightKeys: n.RightKeys, Condition: n.Condition, Type: n.Type}
	case *NestedLoopJoin:
		return &NestedLoopJoin{Left: traverse(n.Left, ctx), Right: traverse(n.Right, ctx), Condition: n.Condition, Type: n.Type}
	case *IndexNestedLoopJoin:
		return &IndexNestedLoopJoin{Outer: traverse(n.Outer, ctx), InnerTable: n.InnerTable, InnerIndex: n.InnerIndex, ProbeKey: n.ProbeKey, Condition: n.Condition, Type: n.Type}
	case *HashAggregate:
		return &HashAggregate{Input: traverse(n.Input, ctx), GroupBy: n.GroupBy, Aggregates: n.Aggregates}
	case *Union:
		return &Union{Left: traverse(n.Left, ctx), Right: traverse(n.Right, ctx), All: n.All}
	default:
		return plan
	}
}

func tryOptimizeTableScan(input Plan, orderBy []ast.SortKey, ctx *optimizer.Context) (Plan, bool) {
	if ctx == nil || len(orderBy) != 1 {
		return nil, false
	}
	scan, ok := input.(*TableScan)
	if !ok {
		return nil, false
	}
	col, ok := orderBy[0].Expr.(*ast.Column)
	if !ok {
		return nil, false
	}
	idx, ok := ctx.IndexOnColumn(scan.Table, col.Name, storage.IndexBTree, storage.IndexBTree)
	if !ok {
		return nil, false
	}
	return &IndexScan{Table: scan.Table, Index: idx.Name, Range: btree.All(), Reverse: orderBy[0].Desc}, true
}

// tryOptimizeIndexScan flips an existing ascending IndexScan on the sort
// column to reverse order instead of sorting its output — the index's
// natural scan order already matches ORDER BY ... DESC on the same
// column once walked backward.
func tryOptimizeIndexScan(input Plan, orderBy []ast.SortKey, ctx *optimizer.Context) (Plan, bool) {
	if ctx == nil || len(orderBy) != 1 {
		return nil, false
	}
	scan, ok := input.(*IndexScan)
	if !ok {
		return nil, false
	}
	col, ok := orderBy[0].Expr.(*ast.Column)
	if !ok || col.Table != scan.Table {
		return nil, false
	}
	indexed := false
	for _, idx := range ctx.IndexesFor(scan.Table) {
		if idx.Name == scan.Index && len(idx.Columns) > 0 && idx.Columns[0] == col.Name {
			indexed = true
			break
		}
	}
	if !indexed {
		return nil, false
	}
	if orderBy[0].Desc == scan.Reverse {
		return scan, true
	}
	return &IndexScan{Table: scan.Table, Index: scan.Index, Range: scan.Range, Reverse: orderBy[0].Desc, Limit: scan.Limit, Offset: scan.Offset}, true
}
