package dataflow

import (
	"errors"

	"github.com/cynos-db/cynos/internal/query/ast"
	"github.com/cynos-db/cynos/internal/query/executor"
	"github.com/cynos-db/cynos/internal/query/physical"
	"github.com/cynos-db/cynos/internal/value"
)

// errNotIncrementalizable marks a physical node this package has no
// dataflow equivalent for — Compile's caller falls back to re-query.
var errNotIncrementalizable = errors.New("dataflow: plan node has no incremental equivalent")

// errUnsupportedAggregate marks an aggregate function this package has no
// incremental state for (Distinct, StdDev, GeoMean). Unlike the Rust
// dataflow compiler, which silently folds these onto Count, this port
// rejects them at compile time — the same way executor's
// computeSingleAggregate rejects them for one-shot execution — so a
// dataflow-maintained view can never disagree with a re-query over the
// same aggregate.
var errUnsupportedAggregate = errors.New("dataflow: aggregate function has no incremental equivalent")

// layout mirrors an executor.Relation's shape with no rows attached —
// just enough for executor.EvalContext to resolve a table-relative
// column reference once, at compile time, instead of per row.
type layout struct {
	tables []string
	counts []int
}

func (l *layout) evalContext() *executor.EvalContext {
	return &executor.EvalContext{Tables: l.tables, ColumnCounts: l.counts}
}

// sumCounts is a layout's total output width across every table it spans,
// used to size an outer join's NULL padding for a side that has not
// produced a row yet.
func sumCounts(l *layout) int {
	total := 0
	for _, c := range l.counts {
		total += c
	}
	return total
}

func concatLayout(a, b *layout) *layout {
	return &layout{
		tables: append(append([]string{}, a.tables...), b.tables...),
		counts: append(append([]int{}, a.counts...), b.counts...),
	}
}

// Compile translates a physical plan into a dataflow graph against the
// table ids in tableIDs (assigning a fresh id for any table seen for the
// first time), or returns ok=false if the plan contains a
// non-incrementalizable operator — Sort, Limit and TopN have no
// meaningful delta-level semantics, so a view built over one of these
// must fall back to re-query instead.
func Compile(plan physical.Plan, source executor.DataSource, tableIDs map[string]value.TableId) (Node, bool) {
	if !isIncrementalizable(plan) {
		return nil, false
	}
	lay, err := computeLayout(plan, source)
	if err != nil {
		return nil, false
	}
	node, err := compileNode(plan, source, tableIDs, lay)
	if err != nil {
		return nil, false
	}
	return node, true
}

func isIncrementalizable(plan physical.Plan) bool {
	switch n := plan.(type) {
	case *physical.Sort, *physical.Limit, *physical.TopN:
		return false
	case *physical.Filter:
		return isIncrementalizable(n.Input)
	case *physical.Project:
		return isIncrementalizable(n.Input)
	case *physical.CrossProduct:
		return isIncrementalizable(n.Left) && isIncrementalizable(n.Right)
	case *physical.HashJoin:
		return isIncrementalizable(n.Left) && isIncrementalizable(n.Right)
	case *physical.SortMergeJoin:
		return isIncrementalizable(n.Left) && isIncrementalizable(n.Right)
	case *physical.NestedLoopJoin:
		return isIncrementalizable(n.Left) && isIncrementalizable(n.Right)
	case *physical.IndexNestedLoopJoin:
		return isIncrementalizable(n.Outer)
	case *physical.HashAggregate:
		return isIncrementalizable(n.Input)
	case *physical.NoOp:
		return isIncrementalizable(n.Input)
	default:
		return true
	}
}

// emptyLayout is computeLayout's result for physical.Empty: no columns,
// no table name to resolve against.
var emptyLayout = &layout{}

func singleTableLayout(table string, source executor.DataSource) (*layout, error) {
	count, err := source.ColumnCount(table)
	if err != nil {
		return nil, err
	}
	return &layout{tables: []string{table}, counts: []int{count}}, nil
}

// computeLayout derives a node's output shape structurally, the same way
// executor's combinedShape does at runtime — without needing any actual
// rows, since Compile only ever needs to resolve column offsets.
func computeLayout(plan physical.Plan, source executor.DataSource) (*layout, error) {
	switch n := plan.(type) {
	case *physical.TableScan:
		return singleTableLayout(n.Table, source)
	case *physical.IndexScan:
		return singleTableLayout(n.Table, source)
	case *physical.IndexGet:
		return singleTableLayout(n.Table, source)
	case *physical.IndexInGet:
		return singleTableLayout(n.Table, source)
	case *physical.GinIndexScan:
		return singleTableLayout(n.Table, source)
	case *physical.GinIndexScanMulti:
		return singleTableLayout(n.Table, source)
	case *physical.Filter:
		return computeLayout(n.Input, source)
	case *physical.Project:
		return &layout{tables: []string{""}, counts: []int{len(n.Columns)}}, nil
	case *physical.CrossProduct:
		return joinLayout(n.Left, n.Right, source)
	case *physical.HashJoin:
		return joinLayout(n.Left, n.Right, source)
	case *physical.SortMergeJoin:
		return joinLayout(n.Left, n.Right, source)
	case *physical.NestedLoopJoin:
		return joinLayout(n.Left, n.Right, source)
	case *physical.IndexNestedLoopJoin:
		outerLay, err := computeLayout(n.Outer, source)
		if err != nil {
			return nil, err
		}
		innerLay, err := singleTableLayout(n.InnerTable, source)
		if err != nil {
			return nil, err
		}
		return concatLayout(outerLay, innerLay), nil
	case *physical.HashAggregate:
		return &layout{tables: []string{""}, counts: []int{len(n.GroupBy) + len(n.Aggregates)}}, nil
	case *physical.NoOp:
		return computeLayout(n.Input, source)
	case *physical.Empty:
		return emptyLayout, nil
	default:
		return nil, errNotIncrementalizable
	}
}

func joinLayout(left, right physical.Plan, source executor.DataSource) (*layout, error) {
	l, err := computeLayout(left, source)
	if err != nil {
		return nil, err
	}
	r, err := computeLayout(right, source)
	if err != nil {
		return nil, err
	}
	return concatLayout(l, r), nil
}

func getOrAssignTableID(table string, tableIDs map[string]value.TableId) value.TableId {
	if id, ok := tableIDs[table]; ok {
		return id
	}
	id := value.TableId(len(tableIDs))
	tableIDs[table] = id
	return id
}

func compileNode(plan physical.Plan, source executor.DataSource, tableIDs map[string]value.TableId, lay *layout) (Node, error) {
	switch n := plan.(type) {
	case *physical.TableScan:
		return NewSource(getOrAssignTableID(n.Table, tableIDs)), nil
	case *physical.IndexScan:
		return NewSource(getOrAssignTableID(n.Table, tableIDs)), nil
	case *physical.IndexGet:
		return NewSource(getOrAssignTableID(n.Table, tableIDs)), nil
	case *physical.IndexInGet:
		return NewSource(getOrAssignTableID(n.Table, tableIDs)), nil
	case *physical.GinIndexScan:
		return NewSource(getOrAssignTableID(n.Table, tableIDs)), nil
	case *physical.GinIndexScanMulti:
		return NewSource(getOrAssignTableID(n.Table, tableIDs)), nil

	case *physical.Filter:
		inputLay, err := computeLayout(n.Input, source)
		if err != nil {
			return nil, err
		}
		input, err := compileNode(n.Input, source, tableIDs, inputLay)
		if err != nil {
			return nil, err
		}
		ec := inputLay.evalContext()
		predicate := n.Predicate
		return &Filter{
			Input: input,
			Predicate: func(row *value.Row) bool {
				ok, _ := executor.EvalPredicate(predicate, row.Values, ec)
				return ok
			},
		}, nil

	case *physical.Project:
		inputLay, err := computeLayout(n.Input, source)
		if err != nil {
			return nil, err
		}
		input, err := compileNode(n.Input, source, tableIDs, inputLay)
		if err != nil {
			return nil, err
		}
		ec := inputLay.evalContext()
		if indices, ok := columnIndicesOf(n.Columns, ec); ok {
			return &Project{Input: input, Columns: indices}, nil
		}
		columns := n.Columns
		return &Map{
			Input: input,
			Mapper: func(row *value.Row) []value.Value {
				values := make([]value.Value, len(columns))
				for i, c := range columns {
					v, _ := executor.EvalExpr(c.Expr, row.Values, ec)
					values[i] = v
				}
				return values
			},
		}, nil

	case *physical.CrossProduct:
		leftNode, err := compileNode(n.Left, source, tableIDs, nil)
		if err != nil {
			return nil, err
		}
		rightNode, err := compileNode(n.Right, source, tableIDs, nil)
		if err != nil {
			return nil, err
		}
		leftLay, err := computeLayout(n.Left, source)
		if err != nil {
			return nil, err
		}
		rightLay, err := computeLayout(n.Right, source)
		if err != nil {
			return nil, err
		}
		return &Join{
			Left: leftNode, Right: rightNode,
			LeftKey: crossProductKeyFn, RightKey: crossProductKeyFn,
			Type:         JoinInner,
			LeftColCount: sumCounts(leftLay), RightColCount: sumCounts(rightLay),
		}, nil
	case *physical.HashJoin:
		return compileJoin(n.Left, n.Right, n.Condition, convertJoinType(n.Type), source, tableIDs)
	case *physical.SortMergeJoin:
		return compileJoin(n.Left, n.Right, n.Condition, convertJoinType(n.Type), source, tableIDs)
	case *physical.NestedLoopJoin:
		return compileJoin(n.Left, n.Right, n.Condition, convertJoinType(n.Type), source, tableIDs)

	case *physical.IndexNestedLoopJoin:
		outerLay, err := computeLayout(n.Outer, source)
		if err != nil {
			return nil, err
		}
		outerNode, err := compileNode(n.Outer, source, tableIDs, outerLay)
		if err != nil {
			return nil, err
		}
		innerID := getOrAssignTableID(n.InnerTable, tableIDs)
		innerLay, err := singleTableLayout(n.InnerTable, source)
		if err != nil {
			return nil, err
		}
		leftKey, rightKey := joinKeyFuncs(n.Condition, outerLay, innerLay)
		return &Join{
			Left:          outerNode,
			Right:         NewSource(innerID),
			LeftKey:       leftKey,
			RightKey:      rightKey,
			Type:          convertJoinType(n.Type),
			LeftColCount:  sumCounts(outerLay),
			RightColCount: sumCounts(innerLay),
		}, nil

	case *physical.HashAggregate:
		inputLay, err := computeLayout(n.Input, source)
		if err != nil {
			return nil, err
		}
		input, err := compileNode(n.Input, source, tableIDs, inputLay)
		if err != nil {
			return nil, err
		}
		ec := inputLay.evalContext()
		groupBy := make([]int, len(n.GroupBy))
		for i, g := range n.GroupBy {
			groupBy[i] = resolveOrZero(g, ec)
		}
		functions := make([]AggregateFn, len(n.Aggregates))
		for i, agg := range n.Aggregates {
			col := 0
			if agg.Arg != nil {
				col = resolveOrZero(agg.Arg, ec)
			}
			fn, ok := convertAggregateFunc(agg.Func)
			if !ok {
				return nil, errUnsupportedAggregate
			}
			functions[i] = AggregateFn{Column: col, Func: fn}
		}
		return &Aggregate{Input: input, GroupBy: groupBy, Functions: functions}, nil

	case *physical.NoOp:
		return compileNode(n.Input, source, tableIDs, lay)

	case *physical.Empty:
		return NewEmptySource(), nil

	default:
		return nil, errNotIncrementalizable
	}
}

// crossProductKeyFn is every row's join key for an unconditional
// Cartesian product: a fixed zero-length slice, so every left row matches
// every right row without allocating a per-row key from the row's values.
func crossProductKeyFn(*value.Row) []value.Value { return nil }

func compileJoin(left, right physical.Plan, condition ast.Expr, joinType JoinType, source executor.DataSource, tableIDs map[string]value.TableId) (Node, error) {
	leftLay, err := computeLayout(left, source)
	if err != nil {
		return nil, err
	}
	rightLay, err := computeLayout(right, source)
	if err != nil {
		return nil, err
	}
	leftNode, err := compileNode(left, source, tableIDs, leftLay)
	if err != nil {
		return nil, err
	}
	rightNode, err := compileNode(right, source, tableIDs, rightLay)
	if err != nil {
		return nil, err
	}
	leftKey, rightKey := joinKeyFuncs(condition, leftLay, rightLay)
	return &Join{
		Left: leftNode, Right: rightNode,
		LeftKey: leftKey, RightKey: rightKey,
		Type:          joinType,
		LeftColCount:  sumCounts(leftLay),
		RightColCount: sumCounts(rightLay),
	}, nil
}

// columnIndicesOf returns the absolute offsets of columns if every one of
// them is a bare column reference, so Project (cheaper, no per-row
// closure) can be used instead of Map.
func columnIndicesOf(columns []ast.ProjectColumn, ec *executor.EvalContext) ([]int, bool) {
	indices := make([]int, len(columns))
	for i, c := range columns {
		col, ok := c.Expr.(*ast.Column)
		if !ok {
			return nil, false
		}
		indices[i] = ec.ResolveColumnIndex(col.Table, col.Index)
	}
	return indices, true
}

func resolveOrZero(e ast.Expr, ec *executor.EvalContext) int {
	if col, ok := e.(*ast.Column); ok {
		return ec.ResolveColumnIndex(col.Table, col.Index)
	}
	return 0
}

// joinKeyFuncs extracts equi-join key extractors from condition — a direct
// col = col comparison, or a conjunction of them (the physical converter's
// equiJoinKeys accepts only the single comparison). Anything else degenerates to a
// whole-row key, matching every row against every row (the join
// condition is then re-evaluated downstream by a wrapping Filter, if the
// planner needed one).
//
// LeftKey and RightKey are each invoked on a row from one side only (see
// view.go's propagate), so leftIdx must resolve against leftLay's own
// EvalContext and rightIdx against rightLay's own — never against a
// combined layout, which would produce offsets that only make sense for
// an already-joined row. This mirrors executor/joins.go's equiJoin,
// which builds a separate EvalContext per side for the same reason.
func joinKeyFuncs(condition ast.Expr, leftLay, rightLay *layout) (KeyFunc, KeyFunc) {
	leftEC := leftLay.evalContext()
	rightEC := rightLay.evalContext()
	var leftIdx, rightIdx []int
	collectEquiJoinKeys(condition, leftEC, rightEC, &leftIdx, &rightIdx)
	if len(leftIdx) == 0 {
		return wholeRowKey, wholeRowKey
	}
	return func(row *value.Row) []value.Value {
		return pickColumns(row, leftIdx)
	}, func(row *value.Row) []value.Value {
		return pickColumns(row, rightIdx)
	}
}

func collectEquiJoinKeys(e ast.Expr, leftEC, rightEC *executor.EvalContext, leftIdx, rightIdx *[]int) {
	bin, ok := e.(*ast.BinaryExpr)
	if !ok {
		return
	}
	if bin.Op == ast.OpAnd {
		collectEquiJoinKeys(bin.Left, leftEC, rightEC, leftIdx, rightIdx)
		collectEquiJoinKeys(bin.Right, leftEC, rightEC, leftIdx, rightIdx)
		return
	}
	if bin.Op != ast.OpEq {
		return
	}
	lc, lok := bin.Left.(*ast.Column)
	rc, rok := bin.Right.(*ast.Column)
	if !lok || !rok {
		return
	}
	*leftIdx = append(*leftIdx, leftEC.ResolveColumnIndex(lc.Table, lc.Index))
	*rightIdx = append(*rightIdx, rightEC.ResolveColumnIndex(rc.Table, rc.Index))
}

func pickColumns(row *value.Row, indices []int) []value.Value {
	out := make([]value.Value, len(indices))
	for i, idx := range indices {
		if idx >= 0 && idx < len(row.Values) {
			out[i] = row.Values[idx]
		} else {
			out[i] = value.Null()
		}
	}
	return out
}

func wholeRowKey(row *value.Row) []value.Value { return row.Values }

func convertJoinType(t ast.JoinType) JoinType {
	switch t {
	case ast.JoinLeftOuter:
		return JoinLeftOuter
	case ast.JoinRightOuter:
		return JoinRightOuter
	case ast.JoinFullOuter:
		return JoinFullOuter
	default:
		return JoinInner
	}
}

func convertAggregateFunc(f ast.AggregateFunc) (AggregateFunc, bool) {
	switch f {
	case ast.AggCount:
		return AggCount, true
	case ast.AggSum:
		return AggSum, true
	case ast.AggAvg:
		return AggAvg, true
	case ast.AggMin:
		return AggMin, true
	case ast.AggMax:
		return AggMax, true
	default:
		return 0, false
	}
}
