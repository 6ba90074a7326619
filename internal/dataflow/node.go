// Package dataflow implements incremental view maintenance: a compiled
// DataflowNode graph that turns a batch of Delta[*Row] changes on some
// source table into the matching batch of changes on a query's result,
// without re-running the query. It is held to one correctness property
// against internal/query/executor: replaying every delta this package
// ever emitted against an empty relation must equal a fresh one-shot
// execution of the same query (IVM ≡ re-query).
package dataflow

import "github.com/cynos-db/cynos/internal/value"

// JoinType mirrors ast.JoinType without importing the query package —
// the dataflow compiler only needs to know how to pad unmatched rows,
// not anything else about the query layer.
type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeftOuter
	JoinRightOuter
	JoinFullOuter
)

// AggregateFunc enumerates the aggregates the dataflow engine can
// maintain incrementally. COUNT/SUM/AVG need only running totals; MIN/MAX
// need the ordered multiset AggregateState keeps so a delete never forces
// a full recompute.
type AggregateFunc int

const (
	AggCount AggregateFunc = iota
	AggSum
	AggAvg
	AggMin
	AggMax
)

// KeyFunc extracts a join or group-by key from a row.
type KeyFunc func(*value.Row) []value.Value

// PredicateFunc is a compiled Filter predicate.
type PredicateFunc func(*value.Row) bool

// MapFunc is a compiled Project/Map row transform.
type MapFunc func(*value.Row) []value.Value

// Node is one operator in a compiled dataflow graph.
type Node interface {
	dataflowNode()
}

// Source is a leaf node: rows straight from one table's change stream.
type Source struct {
	TableID value.TableId
}

// EmptySource never emits a row and never matches any TableId — the
// dataflow equivalent of physical.Empty. A dedicated node kind instead of
// overloading a sentinel TableId (e.g. math.MaxUint32) means "this source
// is empty" can never collide with a real table, however many tables a
// caller registers.
type EmptySource struct{}

// Filter keeps only rows Predicate accepts.
type Filter struct {
	Input     Node
	Predicate PredicateFunc
}

// Project keeps a fixed subset of columns, by absolute index.
type Project struct {
	Input   Node
	Columns []int
}

// Map replaces each row's values with Mapper's output — used instead of
// Project whenever the projection includes a computed expression.
type Map struct {
	Input  Node
	Mapper MapFunc
}

// Join combines Left and Right rows whose LeftKey/RightKey agree.
// LeftColCount/RightColCount are each side's static output width, known at
// compile time from the side's layout — needed so an outer join can pad a
// row with the correct number of NULLs even when the other side has never
// produced a row yet (see JoinState's doc comment).
type Join struct {
	Left, Right                 Node
	LeftKey, RightKey           KeyFunc
	Type                        JoinType
	LeftColCount, RightColCount int
}

// AggregateFn is one (column, function) pair computed per group.
type AggregateFn struct {
	Column int
	Func   AggregateFunc
}

// Aggregate groups Input by the columns at GroupBy and maintains
// Functions per group.
type Aggregate struct {
	Input     Node
	GroupBy   []int
	Functions []AggregateFn
}

func (*Source) dataflowNode()      {}
func (*EmptySource) dataflowNode() {}
func (*Filter) dataflowNode()      {}
func (*Project) dataflowNode()     {}
func (*Map) dataflowNode()         {}
func (*Join) dataflowNode()        {}
func (*Aggregate) dataflowNode()   {}

// NewSource builds a source node over tableID.
func NewSource(tableID value.TableId) *Source { return &Source{TableID: tableID} }

// NewEmptySource builds a source node that never emits a row.
func NewEmptySource() *EmptySource { return &EmptySource{} }

// CollectSources walks n and returns every distinct table it reads from,
// in first-visited order.
func CollectSources(n Node) []value.TableId {
	seen := map[value.TableId]bool{}
	var order []value.TableId
	var walk func(Node)
	walk = func(n Node) {
		switch x := n.(type) {
		case *Source:
			if !seen[x.TableID] {
				seen[x.TableID] = true
				order = append(order, x.TableID)
			}
		case *Filter:
			walk(x.Input)
		case *Project:
			walk(x.Input)
		case *Map:
			walk(x.Input)
		case *Join:
			walk(x.Left)
			walk(x.Right)
		case *Aggregate:
			walk(x.Input)
		}
	}
	walk(n)
	return order
}
