package physical

import (
	"github.com/cynos-db/cynos/internal/query/ast"
	"github.com/cynos-db/cynos/internal/query/optimizer"
	"github.com/cynos-db/cynos/internal/storage"
)

// Convert lowers an optimized logical plan into a physical plan, picking
// a join algorithm for every Join node and a final ordering rewrite
// (OrderByIndex) to drop Sorts an index already satisfies.
func Convert(plan ast.LogicalPlan, ctx *optimizer.Context) Plan {
	return OrderByIndex(convert(plan, ctx), ctx)
}

func convert(plan ast.LogicalPlan, ctx *optimizer.Context) Plan {
	switch n := plan.(type) {
	case *ast.Scan:
		return &TableScan{Table: n.Table}
	case *ast.IndexScan:
		return &IndexScan{Table: n.Table, Index: n.Index, Range: n.Range, Reverse: n.Reverse, Limit: n.Limit, Offset: n.Offset}
	case *ast.IndexGet:
		return &IndexGet{Table: n.Table, Index: n.Index, Key: n.Key}
	case *ast.IndexInGet:
		return &IndexInGet{Table: n.Table, Index: n.Index, Keys: n.Keys}
	case *ast.GinIndexScan:
		return &GinIndexScan{Table: n.Table, Index: n.Index, Key: n.Key, Value: n.Value}
	case *ast.GinIndexScanMulti:
		return &GinIndexScanMulti{Table: n.Table, Index: n.Index, Pairs: n.Pairs}
	case *ast.Filter:
		return &Filter{Input: convert(n.Input, ctx), Predicate: n.Predicate}
	case *ast.Project:
		return &Project{Input: convert(n.Input, ctx), Columns: n.Columns}
	case *ast.CrossProduct:
		return &CrossProduct{Left: convert(n.Left, ctx), Right: convert(n.Right, ctx)}
	case *ast.Join:
		return convertJoin(n, ctx)
	case *ast.Aggregate:
		return &HashAggregate{Input: convert(n.Input, ctx), GroupBy: n.GroupBy, Aggregates: n.Aggregates}
	case *ast.Sort:
		return &Sort{Input: convert(n.Input, ctx), OrderBy: n.OrderBy}
	case *ast.Limit:
		if sort, ok := n.Input.(*ast.Sort); ok && n.HasLimit && n.Offset == 0 {
			return &TopN{Input: convert(sort.Input, ctx), OrderBy: sort.OrderBy, N: n.Limit}
		}
		return &Limit{Input: convert(n.Input, ctx), Limit: n.Limit, Offset: n.Offset, HasLimit: n.HasLimit}
	case *ast.Union:
		return &Union{Left: convert(n.Left, ctx), Right: convert(n.Right, ctx), All: n.All}
	case *ast.Empty:
		return &Empty{}
	default:
		return &Empty{}
	}
}

// convertJoin picks an algorithm: a cross product for a cross join or a
// join with no condition; for an inner join on a single col = col key, an
// index-nested-loop probe when the key is covered by an index on the right
// table; otherwise a hash join for a single col = col key, and a
// nested-loop join for any other condition.
func convertJoin(n *ast.Join, ctx *optimizer.Context) Plan {
	left, right := convert(n.Left, ctx), convert(n.Right, ctx)
	if n.Type == ast.JoinCross || n.Condition == nil {
		return &CrossProduct{Left: left, Right: right}
	}
	leftKey, rightKey, ok := equiJoinKeys(n.Condition)
	if !ok {
		return &NestedLoopJoin{Left: left, Right: right, Condition: n.Condition, Type: n.Type}
	}
	if ctx != nil && n.Type == ast.JoinInner {
		if idx, ok := ctx.IndexOnColumn(rightKey.Table, rightKey.Name, storage.IndexBTree, storage.IndexBTree); ok {
			return &IndexNestedLoopJoin{Outer: left, InnerTable: rightKey.Table, InnerIndex: idx.Name, ProbeKey: leftKey, Condition: n.Condition, Type: n.Type}
		}
		if idx, ok := ctx.IndexOnColumn(rightKey.Table, rightKey.Name, storage.IndexHash, storage.IndexHash); ok {
			return &IndexNestedLoopJoin{Outer: left, InnerTable: rightKey.Table, InnerIndex: idx.Name, ProbeKey: leftKey, Condition: n.Condition, Type: n.Type}
		}
	}
	return &HashJoin{Left: left, Right: right, LeftKeys: []ast.Expr{leftKey}, RightKeys: []ast.Expr{rightKey}, Condition: n.Condition, Type: n.Type}
}

// equiJoinKeys extracts the two column references of a single `a.x =
// b.y` equality condition; compound conditions fall back to
// NestedLoopJoin rather than guessing which conjunct to hash on.
func equiJoinKeys(condition ast.Expr) (*ast.Column, *ast.Column, bool) {
	bin, ok := condition.(*ast.BinaryExpr)
	if !ok || bin.Op != ast.OpEq {
		return nil, nil, false
	}
	left, ok1 := bin.Left.(*ast.Column)
	right, ok2 := bin.Right.(*ast.Column)
	if !ok1 || !ok2 {
		return nil, nil, false
	}
	return left, right, true
}
