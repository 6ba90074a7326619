package ast

import "github.com/cynos-db/cynos/internal/index/btree"

// JoinType enumerates the join kinds the planner and executor support.
type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeftOuter
	JoinRightOuter
	JoinFullOuter
	JoinCross
)

// LogicalPlan is any node in the logical query plan tree.
type LogicalPlan interface {
	planNode()
}

// Scan is a full table scan.
type Scan struct {
	Table string
}

// IndexScan walks a B+Tree index over a key range, optionally reversed,
// limited and offset.
type IndexScan struct {
	Table, Index string
	Range        btree.KeyRange
	Reverse      bool
	Limit        *int
	Offset       int
}

// IndexGet is a point lookup on an index for a single computed key.
type IndexGet struct {
	Table, Index string
	Key          Expr
}

// IndexInGet is a point lookup repeated across a set of keys (the result
// of index selection collapsing an IN-predicate into per-key lookups).
type IndexInGet struct {
	Table, Index string
	Keys         []Expr
}

// GinIndexScan looks up rows by a single JSON key or key/value pair in a
// GIN index.
type GinIndexScan struct {
	Table, Index string
	Key          string
	Value        Expr // nil for a key-only existence probe
}

// GinPair is one key/value predicate in a multi-key GIN AND query.
type GinPair struct {
	Key   string
	Value Expr
}

// GinIndexScanMulti looks up rows matching every pair in Pairs (AND
// semantics via sorted-posting-list intersection).
type GinIndexScanMulti struct {
	Table, Index string
	Pairs        []GinPair
}

// Filter keeps only rows of Input for which Predicate evaluates truthy.
type Filter struct {
	Input     LogicalPlan
	Predicate Expr
}

// ProjectColumn is one output column of a Project node.
type ProjectColumn struct {
	Expr  Expr
	Alias string
}

// Project computes a fixed list of output expressions over Input.
type Project struct {
	Input   LogicalPlan
	Columns []ProjectColumn
}

// Join combines Left and Right rows matching Condition, per Type. Cross
// is expressed as its own node (CrossProduct) rather than Join{Type:
// JoinCross} once reordered, but the planner may still emit
// Join{Type: JoinCross} with a nil Condition before that rewrite runs.
type Join struct {
	Left, Right LogicalPlan
	Condition   Expr
	Type        JoinType
}

// CrossProduct is an unconditional Cartesian product of Left and Right.
type CrossProduct struct {
	Left, Right LogicalPlan
}

// Aggregate groups Input by GroupBy and computes Aggregates per group.
// An empty GroupBy produces a single group over the whole input.
type Aggregate struct {
	Input      LogicalPlan
	GroupBy    []Expr
	Aggregates []AggExpr
}

// SortKey is one ORDER BY term.
type SortKey struct {
	Expr Expr
	Desc bool
}

// Sort orders Input by OrderBy, most-significant key first.
type Sort struct {
	Input   LogicalPlan
	OrderBy []SortKey
}

// Limit restricts Input to at most Limit rows after skipping Offset, when
// HasLimit is true; Offset alone (HasLimit false) skips without bounding.
type Limit struct {
	Input    LogicalPlan
	Limit    int
	Offset   int
	HasLimit bool
}

// Union concatenates Left and Right rows, deduplicating unless All is set.
type Union struct {
	Left, Right LogicalPlan
	All         bool
}

// Empty produces zero rows. No optimizer pass emits it; physical
// conversion lowers it to physical.Empty.
type Empty struct{}

func (*Scan) planNode()              {}
func (*IndexScan) planNode()         {}
func (*IndexGet) planNode()          {}
func (*IndexInGet) planNode()        {}
func (*GinIndexScan) planNode()      {}
func (*GinIndexScanMulti) planNode() {}
func (*Filter) planNode()            {}
func (*Project) planNode()           {}
func (*Join) planNode()              {}
func (*CrossProduct) planNode()      {}
func (*Aggregate) planNode()         {}
func (*Sort) planNode()              {}
func (*Limit) planNode()             {}
func (*Union) planNode()             {}
func (*Empty) planNode()             {}

// Inputs returns the direct children of a plan node, in left-to-right
// order, for generic tree walks (predicate pushdown, cardinality
// estimation, pretty-printing).
func Inputs(p LogicalPlan) []LogicalPlan {
	switch n := p.(type) {
	case *Filter:
		return []LogicalPlan{n.Input}
	case *Project:
		return []LogicalPlan{n.Input}
	case *Join:
		return []LogicalPlan{n.Left, n.Right}
	case *CrossProduct:
		return []LogicalPlan{n.Left, n.Right}
	case *Aggregate:
		return []LogicalPlan{n.Input}
	case *Sort:
		return []LogicalPlan{n.Input}
	case *Limit:
		return []LogicalPlan{n.Input}
	case *Union:
		return []LogicalPlan{n.Left, n.Right}
	default:
		return nil
	}
}
