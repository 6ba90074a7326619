// Package physical turns an optimized logical plan into an executable
// physical plan: join algorithms are chosen, aggregation becomes hash
// aggregation, and a final rewrite pass swaps a Sort sitting over a full
// table scan for an already-ordered IndexScan when an index covers the
// sort key.
package physical

import (
	"github.com/cynos-db/cynos/internal/index/btree"
	"github.com/cynos-db/cynos/internal/query/ast"
)

// Plan is any node in the physical plan tree.
type Plan interface {
	physicalNode()
}

// TableScan reads every row of a table.
type TableScan struct {
	Table string
}

// IndexScan walks a B+Tree index over Range.
type IndexScan struct {
	Table, Index string
	Range        btree.KeyRange
	Reverse      bool
	Limit        *int
	Offset       int
}

// IndexGet is a point lookup.
type IndexGet struct {
	Table, Index string
	Key          ast.Expr
}

// IndexInGet repeats a point lookup across Keys.
type IndexInGet struct {
	Table, Index string
	Keys         []ast.Expr
}

// GinIndexScan looks up rows by one JSON key or key/value pair.
type GinIndexScan struct {
	Table, Index string
	Key          string
	Value        ast.Expr
}

// GinIndexScanMulti looks up rows matching every pair (AND semantics).
type GinIndexScanMulti struct {
	Table, Index string
	Pairs        []ast.GinPair
}

// Filter keeps rows of Input for which Predicate is truthy.
type Filter struct {
	Input     Plan
	Predicate ast.Expr
}

// Project computes a fixed output row shape over Input.
type Project struct {
	Input   Plan
	Columns []ast.ProjectColumn
}

// CrossProduct is an unconditional Cartesian product.
type CrossProduct struct {
	Left, Right Plan
}

// HashJoin builds an in-memory hash table over Right keyed by RightKeys,
// then probes it once per Left row using LeftKeys. Physical conversion
// keeps the logical join's sides; it does not pick the smaller input as
// Right.
type HashJoin struct {
	Left, Right         Plan
	LeftKeys, RightKeys []ast.Expr
	Condition           ast.Expr
	Type                ast.JoinType
}

// SortMergeJoin merges two inputs already ordered by their join keys.
type SortMergeJoin struct {
	Left, Right         Plan
	LeftKeys, RightKeys []ast.Expr
	Condition           ast.Expr
	Type                ast.JoinType
}

// NestedLoopJoin evaluates Condition for every (left, right) row pair;
// the fallback when no equi-join key or usable index exists.
type NestedLoopJoin struct {
	Left, Right Plan
	Condition   ast.Expr
	Type        ast.JoinType
}

// IndexNestedLoopJoin probes InnerIndex once per Outer row using ProbeKey
// instead of materializing the inner side into a hash table.
type IndexNestedLoopJoin struct {
	Outer                  Plan
	InnerTable, InnerIndex string
	ProbeKey               ast.Expr
	Condition              ast.Expr
	Type                   ast.JoinType
}

// HashAggregate groups Input by GroupBy and computes Aggregates per
// group using an in-memory hash table keyed by the group-by tuple.
type HashAggregate struct {
	Input      Plan
	GroupBy    []ast.Expr
	Aggregates []ast.AggExpr
}

// Sort orders Input, most-significant key first.
type Sort struct {
	Input   Plan
	OrderBy []ast.SortKey
}

// TopN is Sort fused with a row-count cap, letting the executor keep only
// the N best rows seen so far instead of sorting the full input.
type TopN struct {
	Input   Plan
	OrderBy []ast.SortKey
	N       int
}

// Limit restricts Input to at most Limit rows after Offset.
type Limit struct {
	Input    Plan
	Limit    int
	Offset   int
	HasLimit bool
}

// Union concatenates Left and Right, deduplicating unless All is set.
type Union struct {
	Left, Right Plan
	All         bool
}

// Empty produces zero rows.
type Empty struct{}

// NoOp passes Input through unchanged. Neither Convert nor OrderByIndex
// emits it.
type NoOp struct {
	Input Plan
}

func (*TableScan) physicalNode()          {}
func (*IndexScan) physicalNode()          {}
func (*IndexGet) physicalNode()           {}
func (*IndexInGet) physicalNode()         {}
func (*GinIndexScan) physicalNode()       {}
func (*GinIndexScanMulti) physicalNode()  {}
func (*Filter) physicalNode()             {}
func (*Project) physicalNode()            {}
func (*CrossProduct) physicalNode()       {}
func (*HashJoin) physicalNode()           {}
func (*SortMergeJoin) physicalNode()      {}
func (*NestedLoopJoin) physicalNode()     {}
func (*IndexNestedLoopJoin) physicalNode() {}
func (*HashAggregate) physicalNode()      {}
func (*Sort) physicalNode()               {}
func (*TopN) physicalNode()               {}
func (*Limit) physicalNode()              {}
func (*Union) physicalNode()              {}
func (*Empty) physicalNode()              {}
func (*NoOp) physicalNode()               {}
