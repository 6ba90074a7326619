package dataflow

import (
	"github.com/google/btree"

	"github.com/cynos-db/cynos/internal/value"
)

// AggregateState is per-(group, function) incremental state. COUNT/SUM/
// AVG need only a running total, updated in O(1) per delta. MIN/MAX keep
// an ordered multiset (degree-32 B-tree, keyed by value with a
// multiplicity) so a delete of the current extremum is an O(log n)
// lookup of the new one instead of a full rescan.
type AggregateState struct {
	fn       AggregateFunc
	count    int64
	sum      float64
	multiset *btree.BTree
}

type aggItem struct {
	key   value.Value
	count int32
}

func (a *aggItem) Less(than btree.Item) bool {
	return a.key.Compare(than.(*aggItem).key) < 0
}

// NewAggregateState builds the zero state for fn.
func NewAggregateState(fn AggregateFunc) *AggregateState {
	s := &AggregateState{fn: fn}
	if fn == AggMin || fn == AggMax {
		s.multiset = btree.New(32)
	}
	return s
}

func extractNumeric(v value.Value) float64 {
	f, ok := v.AsFloat()
	if !ok {
		return 0
	}
	return f
}

// Apply folds one delta (value, diff) into the state.
func (s *AggregateState) Apply(v value.Value, diff int32) {
	switch s.fn {
	case AggCount:
		s.count += int64(diff)
	case AggSum:
		s.sum += extractNumeric(v) * float64(diff)
		s.count += int64(diff)
	case AggAvg:
		s.sum += extractNumeric(v) * float64(diff)
		s.count += int64(diff)
	case AggMin, AggMax:
		probe := &aggItem{key: v}
		cnt := int32(0)
		if existing := s.multiset.Get(probe); existing != nil {
			cnt = existing.(*aggItem).count
		}
		cnt += diff
		if cnt <= 0 {
			s.multiset.Delete(probe)
		} else {
			s.multiset.ReplaceOrInsert(&aggItem{key: v, count: cnt})
		}
	}
}

// Value returns the aggregate's current value, Null for an empty group.
func (s *AggregateState) Value() value.Value {
	switch s.fn {
	case AggCount:
		return value.Int64(s.count)
	case AggSum:
		return value.Float64(s.sum)
	case AggAvg:
		if s.count == 0 {
			return value.Null()
		}
		return value.Float64(s.sum / float64(s.count))
	case AggMin:
		if s.multiset.Len() == 0 {
			return value.Null()
		}
		return s.multiset.Min().(*aggItem).key
	case AggMax:
		if s.multiset.Len() == 0 {
			return value.Null()
		}
		return s.multiset.Max().(*aggItem).key
	default:
		return value.Null()
	}
}

// IsEmpty reports whether this group has no rows left, not whether its
// aggregate value happens to equal zero — a SUM of +5 and -5 is a
// two-row group whose value is coincidentally 0, not an empty group.
func (s *AggregateState) IsEmpty() bool {
	switch s.fn {
	case AggCount, AggSum, AggAvg:
		return s.count == 0
	case AggMin, AggMax:
		return s.multiset.Len() == 0
	default:
		return true
	}
}

// GroupAggregateState maintains one AggregateState slice per distinct
// group-by key, retracting the group's previous output row and inserting
// its new one on every affected batch — the batch-retract-reinsert
// pattern that lets HashAggregate's output be maintained without ever
// rescanning untouched groups.
type GroupAggregateState struct {
	groups     map[string][]*AggregateState
	functions  []AggregateFn
	groupBy    []int
	lastRowIDs map[string]value.RowId
	nextRowID  value.RowId
}

// NewGroupAggregateState builds empty per-group state for groupBy columns
// and the requested (column, function) pairs.
func NewGroupAggregateState(groupBy []int, functions []AggregateFn) *GroupAggregateState {
	return &GroupAggregateState{
		groups:     map[string][]*AggregateState{},
		functions:  functions,
		groupBy:    groupBy,
		lastRowIDs: map[string]value.RowId{},
		nextRowID:  value.AggregateRowIDBase,
	}
}

func groupKeyOf(row *value.Row, groupBy []int) []value.Value {
	key := make([]value.Value, len(groupBy))
	for i, col := range groupBy {
		if col < len(row.Values) {
			key[i] = row.Values[col]
		} else {
			key[i] = value.Null()
		}
	}
	return key
}

// ProcessDeltas applies a batch of input deltas, grouped by key, and
// returns the output deltas: a delete of each affected group's previous
// row (if it existed) followed by an insert of its new row (if the group
// is still non-empty).
func (g *GroupAggregateState) ProcessDeltas(deltas []value.RowDelta) []value.RowDelta {
	type rowDiff struct {
		row  *value.Row
		diff int32
	}
	grouped := map[string][]rowDiff{}
	keyValues := map[string][]value.Value{}
	for _, d := range deltas {
		key := groupKeyOf(d.Data, g.groupBy)
		k := keyString(key)
		grouped[k] = append(grouped[k], rowDiff{row: d.Data, diff: d.Diff})
		keyValues[k] = key
	}

	var output []value.RowDelta
	for k, rows := range grouped {
		key := keyValues[k]
		_, existed := g.groups[k]

		var oldRow *value.Row
		if existed {
			oldRow = g.buildOutputRow(k, key)
		}

		states, ok := g.groups[k]
		if !ok {
			states = make([]*AggregateState, len(g.functions))
			for i, fn := range g.functions {
				states[i] = NewAggregateState(fn.Func)
			}
			g.groups[k] = states
		}

		for _, rd := range rows {
			for i, fn := range g.functions {
				var v value.Value
				if fn.Column < len(rd.row.Values) {
					v = rd.row.Values[fn.Column]
				} else {
					v = value.Null()
				}
				states[i].Apply(v, rd.diff)
			}
		}

		isEmpty := true
		for _, s := range states {
			if !s.IsEmpty() {
				isEmpty = false
				break
			}
		}

		if oldID, ok := g.lastRowIDs[k]; ok && oldRow != nil {
			oldRow.Id = oldID
			output = append(output, value.Remove(oldRow))
		}

		if !isEmpty {
			newRow := g.buildOutputRow(k, key)
			g.lastRowIDs[k] = newRow.Id
			output = append(output, value.Insert(newRow))
		} else {
			delete(g.groups, k)
			delete(g.lastRowIDs, k)
		}
	}
	return output
}

func (g *GroupAggregateState) buildOutputRow(k string, key []value.Value) *value.Row {
	states := g.groups[k]
	values := make([]value.Value, 0, len(key)+len(states))
	values = append(values, key...)
	for _, s := range states {
		values = append(values, s.Value())
	}
	id := g.nextRowID
	g.nextRowID++
	return value.NewRow(id, values)
}
