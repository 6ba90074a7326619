package dataflow

import "github.com/cynos-db/cynos/internal/value"

// propagateState is the per-Join/per-Aggregate state a running
// MaterializedView accumulates, indexed by each operator's position in a
// single upfront depth-first labeling of the dataflow tree. Labeling the
// whole tree once at construction time (rather than threading a counter
// through propagate calls, as the Rust original does) keeps a join's
// state slot stable across every on_table_change call regardless of
// which source table triggered it.
type propagateState struct {
	joins      map[int]*JoinState
	aggregates map[int]*GroupAggregateState
}

// joinSources is a Join node's two sides' source tables, computed once at
// labelNodes time instead of walking each subtree on every delta that
// passes through the node.
type joinSources struct {
	left, right []value.TableId
}

// MaterializedView maintains a query's result set incrementally: each
// on_table_change call propagates a batch of source deltas through the
// compiled dataflow graph and returns exactly the deltas needed to bring
// the maintained result up to date.
type MaterializedView struct {
	root         Node
	resultMap    map[value.RowId]*value.Row
	dependencies []value.TableId
	state        propagateState
	joinID       map[Node]int
	aggID        map[Node]int
	joinSrc      map[Node]joinSources
}

// NewMaterializedView builds an empty view over root.
func NewMaterializedView(root Node) *MaterializedView {
	v := &MaterializedView{
		root:         root,
		resultMap:    map[value.RowId]*value.Row{},
		dependencies: CollectSources(root),
		state:        propagateState{joins: map[int]*JoinState{}, aggregates: map[int]*GroupAggregateState{}},
		joinID:       map[Node]int{},
		aggID:        map[Node]int{},
		joinSrc:      map[Node]joinSources{},
	}
	v.labelNodes(root, new(int), new(int))
	return v
}

// WithInitial builds a view pre-populated with initial rows, typically
// the bootstrap query's one-shot result.
func WithInitial(root Node, initial []*value.Row) *MaterializedView {
	v := NewMaterializedView(root)
	for _, row := range initial {
		v.resultMap[row.Id] = row
	}
	return v
}

// labelNodes assigns every Join and Aggregate node in root a stable
// integer id via one depth-first walk, so propagate can look up state by
// node identity instead of a threaded counter.
func (v *MaterializedView) labelNodes(n Node, nextJoin, nextAgg *int) {
	switch x := n.(type) {
	case *Join:
		v.joinID[n] = *nextJoin
		*nextJoin++
		v.joinSrc[n] = joinSources{left: CollectSources(x.Left), right: CollectSources(x.Right)}
		v.labelNodes(x.Left, nextJoin, nextAgg)
		v.labelNodes(x.Right, nextJoin, nextAgg)
	case *Aggregate:
		v.aggID[n] = *nextAgg
		*nextAgg++
		v.labelNodes(x.Input, nextJoin, nextAgg)
	case *Filter:
		v.labelNodes(x.Input, nextJoin, nextAgg)
	case *Project:
		v.labelNodes(x.Input, nextJoin, nextAgg)
	case *Map:
		v.labelNodes(x.Input, nextJoin, nextAgg)
	}
}

// Result returns every row currently in the maintained result set, in no
// particular order.
func (v *MaterializedView) Result() []*value.Row {
	out := make([]*value.Row, 0, len(v.resultMap))
	for _, r := range v.resultMap {
		out = append(out, r)
	}
	return out
}

// Len returns the maintained result set's size.
func (v *MaterializedView) Len() int { return len(v.resultMap) }

// IsEmpty reports whether the maintained result set is empty.
func (v *MaterializedView) IsEmpty() bool { return len(v.resultMap) == 0 }

// Dependencies returns the source tables this view reads from.
func (v *MaterializedView) Dependencies() []value.TableId { return v.dependencies }

// DependsOn reports whether tableID is one of this view's sources.
func (v *MaterializedView) DependsOn(tableID value.TableId) bool {
	for _, d := range v.dependencies {
		if d == tableID {
			return true
		}
	}
	return false
}

// OnTableChange propagates deltas observed on tableID through the
// dataflow graph, applies the resulting output deltas to the maintained
// result, and returns those output deltas so a caller (e.g. a
// subscriber) can react to exactly what changed.
func (v *MaterializedView) OnTableChange(tableID value.TableId, deltas []value.RowDelta) []value.RowDelta {
	if !v.DependsOn(tableID) {
		return nil
	}
	output := v.propagate(v.root, tableID, deltas)
	for _, d := range output {
		if d.Diff > 0 {
			v.resultMap[d.Data.Id] = d.Data
		} else {
			delete(v.resultMap, d.Data.Id)
		}
	}
	return output
}

func (v *MaterializedView) propagate(n Node, sourceTable value.TableId, deltas []value.RowDelta) []value.RowDelta {
	switch x := n.(type) {
	case *Source:
		if x.TableID == sourceTable {
			return deltas
		}
		return nil

	case *EmptySource:
		return nil

	case *Filter:
		input := v.propagate(x.Input, sourceTable, deltas)
		return filterIncremental(input, x.Predicate)

	case *Project:
		input := v.propagate(x.Input, sourceTable, deltas)
		return projectIncremental(input, x.Columns)

	case *Map:
		input := v.propagate(x.Input, sourceTable, deltas)
		return mapIncremental(input, x.Mapper)

	case *Join:
		id := v.joinID[n]
		js, ok := v.state.joins[id]
		if !ok {
			js = NewJoinState(x.LeftColCount, x.RightColCount)
			v.state.joins[id] = js
		}

		src := v.joinSrc[n]
		isLeft := containsTable(src.left, sourceTable)
		isRight := containsTable(src.right, sourceTable)

		var output []value.RowDelta

		if isLeft {
			leftDeltas := v.propagate(x.Left, sourceTable, deltas)
			for _, d := range leftDeltas {
				key := x.LeftKey(d.Data)
				if x.Type == JoinInner {
					if d.Diff > 0 {
						for _, row := range js.OnLeftInsert(d.Data, key) {
							output = append(output, value.Insert(row))
						}
					} else {
						for _, row := range js.OnLeftDelete(d.Data, key) {
							output = append(output, value.Remove(row))
						}
					}
				} else if d.Diff > 0 {
					output = append(output, js.OnLeftInsertOuter(d.Data, key, x.Type)...)
				} else {
					output = append(output, js.OnLeftDeleteOuter(d.Data, key, x.Type)...)
				}
			}
		}

		if isRight {
			rightDeltas := v.propagate(x.Right, sourceTable, deltas)
			for _, d := range rightDeltas {
				key := x.RightKey(d.Data)
				if x.Type == JoinInner {
					if d.Diff > 0 {
						for _, row := range js.OnRightInsert(d.Data, key) {
							output = append(output, value.Insert(row))
						}
					} else {
						for _, row := range js.OnRightDelete(d.Data, key) {
							output = append(output, value.Remove(row))
						}
					}
				} else if d.Diff > 0 {
					output = append(output, js.OnRightInsertOuter(d.Data, key, x.Type)...)
				} else {
					output = append(output, js.OnRightDeleteOuter(d.Data, key, x.Type)...)
				}
			}
		}

		return output

	case *Aggregate:
		input := v.propagate(x.Input, sourceTable, deltas)
		if len(input) == 0 {
			return nil
		}
		id := v.aggID[n]
		as, ok := v.state.aggregates[id]
		if !ok {
			as = NewGroupAggregateState(x.GroupBy, x.Functions)
			v.state.aggregates[id] = as
		}
		return as.ProcessDeltas(input)

	default:
		return nil
	}
}

func containsTable(tables []value.TableId, t value.TableId) bool {
	for _, x := range tables {
		if x == t {
			return true
		}
	}
	return false
}

func filterIncremental(deltas []value.RowDelta, pred PredicateFunc) []value.RowDelta {
	var out []value.RowDelta
	for _, d := range deltas {
		if pred(d.Data) {
			out = append(out, d)
		}
	}
	return out
}

func projectIncremental(deltas []value.RowDelta, columns []int) []value.RowDelta {
	out := make([]value.RowDelta, len(deltas))
	for i, d := range deltas {
		values := make([]value.Value, len(columns))
		for j, c := range columns {
			if c < len(d.Data.Values) {
				values[j] = d.Data.Values[c]
			} else {
				values[j] = value.Null()
			}
		}
		out[i] = value.RowDelta{Data: value.NewRow(d.Data.Id, values), Diff: d.Diff}
	}
	return out
}

func mapIncremental(deltas []value.RowDelta, mapper MapFunc) []value.RowDelta {
	out := make([]value.RowDelta, len(deltas))
	for i, d := range deltas {
		out[i] = value.RowDelta{Data: value.NewRow(d.Data.Id, mapper(d.Data)), Diff: d.Diff}
	}
	return out
}

// Clear empties the maintained result set without touching operator
// state — used when a caller wants to force a full rebuild via SetResult.
func (v *MaterializedView) Clear() {
	v.resultMap = map[value.RowId]*value.Row{}
}

// SetResult replaces the maintained result set wholesale, e.g. after a
// re-query fallback for a non-incrementalizable plan.
func (v *MaterializedView) SetResult(rows []*value.Row) {
	v.resultMap = make(map[value.RowId]*value.Row, len(rows))
	for _, r := range rows {
		v.resultMap[r.Id] = r
	}
}

// MaterializedViewBuilder assembles a MaterializedView from a dataflow
// graph and an optional bootstrap result set.
type MaterializedViewBuilder struct {
	root    Node
	initial []*value.Row
}

// NewMaterializedViewBuilder starts an empty builder.
func NewMaterializedViewBuilder() *MaterializedViewBuilder {
	return &MaterializedViewBuilder{}
}

// Dataflow sets the compiled graph to maintain.
func (b *MaterializedViewBuilder) Dataflow(root Node) *MaterializedViewBuilder {
	b.root = root
	return b
}

// Initial sets the bootstrap rows to pre-populate the view with.
func (b *MaterializedViewBuilder) Initial(rows []*value.Row) *MaterializedViewBuilder {
	b.initial = rows
	return b
}

// Build constructs the MaterializedView, or returns nil if no Dataflow
// was set.
func (b *MaterializedViewBuilder) Build() *MaterializedView {
	if b.root == nil {
		return nil
	}
	if len(b.initial) == 0 {
		return NewMaterializedView(b.root)
	}
	return WithInitial(b.root, b.initial)
}
