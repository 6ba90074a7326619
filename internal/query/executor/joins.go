package executor

import (
	"github.com/cynos-db/cynos/internal/query/ast"
	"github.com/cynos-db/cynos/internal/query/physical"
	"github.com/cynos-db/cynos/internal/value"
)

func (r *Runner) executeHashJoin(n *physical.HashJoin) (*Relation, error) {
	left, err := r.Execute(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := r.Execute(n.Right)
	if err != nil {
		return nil, err
	}
	return equiJoin(left, right, n.LeftKeys, n.RightKeys, n.Type)
}

// executeSortMergeJoin delegates to the same equi-join core as
// executeHashJoin: a sort-merge join's output is, by definition,
// identical to a hash join's for the same equality keys. Physical
// conversion does not emit SortMergeJoin; a hand-built one runs here and
// yields the rows a HashJoin with the same keys would.
func (r *Runner) executeSortMergeJoin(n *physical.SortMergeJoin) (*Relation, error) {
	left, err := r.Execute(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := r.Execute(n.Right)
	if err != nil {
		return nil, err
	}
	return equiJoin(left, right, n.LeftKeys, n.RightKeys, n.Type)
}

// equiJoin builds a hash table over right keyed by rightKeys, then
// probes it once per left row. Unmatched rows are padded with NULLs on
// the opposite side for LeftOuter/RightOuter/FullOuter, mirroring the
// dataflow compiler's JoinState antijoin bookkeeping so a one-shot query
// and its incremental view agree (see internal/dataflow).
func equiJoin(left, right *Relation, leftKeys, rightKeys []ast.Expr, joinType ast.JoinType) (*Relation, error) {
	leftEC := NewEvalContext(left)
	rightEC := NewEvalContext(right)

	buckets := map[string][]int{}
	for i, entry := range right.Entries {
		key, err := makeKey(rightKeys, entry, rightEC)
		if err != nil {
			return nil, err
		}
		buckets[key] = append(buckets[key], i)
	}

	rightMatched := make([]bool, len(right.Entries))
	out := combinedShape(left, right)

	for _, l := range left.Entries {
		key, err := makeKey(leftKeys, l, leftEC)
		if err != nil {
			return nil, err
		}
		matches := buckets[key]
		if len(matches) == 0 {
			if joinType == ast.JoinLeftOuter || joinType == ast.JoinFullOuter {
				out.Entries = append(out.Entries, combineEntries(l, nullEntry(right.ColumnCounts)))
			}
			continue
		}
		for _, idx := range matches {
			rightMatched[idx] = true
			out.Entries = append(out.Entries, combineEntries(l, right.Entries[idx]))
		}
	}

	if joinType == ast.JoinRightOuter || joinType == ast.JoinFullOuter {
		for i, matched := range rightMatched {
			if !matched {
				out.Entries = append(out.Entries, combineEntries(nullEntry(left.ColumnCounts), right.Entries[i]))
			}
		}
	}
	return out, nil
}

func nullEntry(columnCounts []int) Entry {
	total := 0
	for _, c := range columnCounts {
		total += c
	}
	values := make([]value.Value, total)
	for i := range values {
		values[i] = value.Null()
	}
	return Entry{Values: values}
}

func makeKey(keys []ast.Expr, entry Entry, ec *EvalContext) (string, error) {
	var b []byte
	for _, k := range keys {
		v, err := evalExpr(k, entry, ec)
		if err != nil {
			return "", err
		}
		b = append(b, v.Key()...)
		b = append(b, '|')
	}
	return string(b), nil
}

func (r *Runner) executeNestedLoopJoin(n *physical.NestedLoopJoin) (*Relation, error) {
	left, err := r.Execute(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := r.Execute(n.Right)
	if err != nil {
		return nil, err
	}
	out := combinedShape(left, right)
	ec := &EvalContext{Tables: out.Tables, ColumnCounts: out.ColumnCounts}
	rightMatched := make([]bool, len(right.Entries))

	for _, l := range left.Entries {
		matchedAny := false
		for ri, rr := range right.Entries {
			combined := combineEntries(l, rr)
			ok, err := evalPredicate(n.Condition, combined, ec)
			if err != nil {
				return nil, err
			}
			if ok {
				matchedAny = true
				rightMatched[ri] = true
				out.Entries = append(out.Entries, combined)
			}
		}
		if !matchedAny && (n.Type == ast.JoinLeftOuter || n.Type == ast.JoinFullOuter) {
			out.Entries = append(out.Entries, combineEntries(l, nullEntry(right.ColumnCounts)))
		}
	}
	if n.Type == ast.JoinRightOuter || n.Type == ast.JoinFullOuter {
		for i, matched := range rightMatched {
			if !matched {
				out.Entries = append(out.Entries, combineEntries(nullEntry(left.ColumnCounts), right.Entries[i]))
			}
		}
	}
	return out, nil
}

// executeIndexNestedLoopJoin probes InnerIndex once per Outer row
// instead of materializing the inner table into a hash table, the way
// the optimizer's index selection pass intends IndexGet to be used
// inside a join.
func (r *Runner) executeIndexNestedLoopJoin(n *physical.IndexNestedLoopJoin) (*Relation, error) {
	outer, err := r.Execute(n.Outer)
	if err != nil {
		return nil, err
	}
	innerColumnCount, err := r.Source.ColumnCount(n.InnerTable)
	if err != nil {
		return nil, err
	}
	outerEC := NewEvalContext(outer)
	out := &Relation{
		Tables:       append(append([]string{}, outer.Tables...), n.InnerTable),
		ColumnCounts: append(append([]int{}, outer.ColumnCounts...), innerColumnCount),
	}

	for _, o := range outer.Entries {
		probe, err := evalExpr(n.ProbeKey, o, outerEC)
		if err != nil {
			return nil, err
		}
		innerRows, err := r.Source.IndexPoint(n.InnerTable, n.InnerIndex, probe)
		if err != nil {
			return nil, err
		}
		if len(innerRows) == 0 {
			if n.Type == ast.JoinLeftOuter || n.Type == ast.JoinFullOuter {
				out.Entries = append(out.Entries, combineEntries(o, nullEntry([]int{innerColumnCount})))
			}
			continue
		}
		for _, row := range innerRows {
			out.Entries = append(out.Entries, combineEntries(o, Entry{Values: row.Values}))
		}
	}
	return out, nil
}

func (r *Runner) executeUnion(n *physical.Union) (*Relation, error) {
	left, err := r.Execute(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := r.Execute(n.Right)
	if err != nil {
		return nil, err
	}
	out := &Relation{Tables: left.Tables, ColumnCounts: left.ColumnCounts}
	if n.All {
		out.Entries = append(out.Entries, left.Entries...)
		out.Entries = append(out.Entries, right.Entries...)
		return out, nil
	}
	seen := map[string]bool{}
	for _, side := range [][]Entry{left.Entries, right.Entries} {
		for _, e := range side {
			k := entryKey(e)
			if !seen[k] {
				seen[k] = true
				out.Entries = append(out.Entries, e)
			}
		}
	}
	return out, nil
}

func entryKey(e Entry) string {
	var b []byte
	for _, v := range e.Values {
		b = append(b, v.Key()...)
		b = append(b, '|')
	}
	return string(b)
}
