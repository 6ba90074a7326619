package executor

import (
	"sort"

	"github.com/cynos-db/cynos/internal/query/ast"
	"github.com/cynos-db/cynos/internal/query/physical"
	"github.com/cynos-db/cynos/internal/value"
)

// executeHashAggregate groups input rows by GroupBy, keyed by the
// pipe-joined value keys (make_group_key), then folds each group's rows
// through computeSingleAggregate per requested aggregate.
func (r *Runner) executeHashAggregate(n *physical.HashAggregate) (*Relation, error) {
	input, err := r.Execute(n.Input)
	if err != nil {
		return nil, err
	}
	ec := NewEvalContext(input)

	type group struct {
		keyValues []value.Value
		entries   []Entry
	}
	order := []string{}
	groups := map[string]*group{}

	for _, entry := range input.Entries {
		keyValues := make([]value.Value, len(n.GroupBy))
		for i, g := range n.GroupBy {
			v, err := evalExpr(g, entry, ec)
			if err != nil {
				return nil, err
			}
			keyValues[i] = v
		}
		key := makeGroupKey(keyValues)
		g, ok := groups[key]
		if !ok {
			g = &group{keyValues: keyValues}
			groups[key] = g
			order = append(order, key)
		}
		g.entries = append(g.entries, entry)
	}

	if len(groups) == 0 && len(n.GroupBy) == 0 {
		// An aggregate over zero rows with no GROUP BY still produces
		// exactly one row (e.g. COUNT(*) = 0).
		order = append(order, "")
		groups[""] = &group{}
	}

	out := &Relation{Tables: []string{""}, ColumnCounts: []int{len(n.GroupBy) + len(n.Aggregates)}}
	for _, key := range order {
		g := groups[key]
		values := make([]value.Value, 0, len(n.GroupBy)+len(n.Aggregates))
		values = append(values, g.keyValues...)
		for _, agg := range n.Aggregates {
			v, err := computeSingleAggregate(agg, g.entries, ec)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		out.Entries = append(out.Entries, Entry{Values: values})
	}
	return out, nil
}

func makeGroupKey(values []value.Value) string {
	var b []byte
	for _, v := range values {
		b = append(b, v.Key()...)
		b = append(b, '|')
	}
	return string(b)
}

// computeSingleAggregate ports compute_single_aggregate: Sum/Min/Max
// preserve the input's numeric kind (Int stays Int unless a Float
// operand forces widening), Avg always produces a Float, and
// Distinct/StdDev/GeoMean are rejected outright per the decision to
// drop sampled statistical aggregates from incremental maintenance.
func computeSingleAggregate(agg ast.AggExpr, entries []Entry, ec *EvalContext) (value.Value, error) {
	switch agg.Func {
	case ast.AggDistinct, ast.AggStdDev, ast.AggGeoMean:
		return value.Value{}, invalidOp("aggregate function not supported: " + agg.Func.String())
	case ast.AggCount:
		if agg.Arg == nil {
			return value.Int64(int64(len(entries))), nil
		}
		count := int64(0)
		for _, e := range entries {
			v, err := evalExpr(agg.Arg, e, ec)
			if err != nil {
				return value.Value{}, err
			}
			if !v.IsNull() {
				count++
			}
		}
		return value.Int64(count), nil

	case ast.AggSum:
		return foldNumeric(agg.Arg, entries, ec, value.Int64(0), func(acc, v value.Value) (value.Value, error) {
			return evalBinaryOp(ast.OpAdd, acc, v)
		})

	case ast.AggAvg:
		sum, err := foldNumeric(agg.Arg, entries, ec, value.Int64(0), func(acc, v value.Value) (value.Value, error) {
			return evalBinaryOp(ast.OpAdd, acc, v)
		})
		if err != nil {
			return value.Value{}, err
		}
		count := nonNullCount(agg.Arg, entries, ec)
		if count == 0 {
			return value.Null(), nil
		}
		sumF, _ := sum.AsFloat()
		return value.Float64(sumF / float64(count)), nil

	case ast.AggMin:
		return foldComparable(agg.Arg, entries, ec, func(a, b value.Value) bool { return a.Compare(b) < 0 })

	case ast.AggMax:
		return foldComparable(agg.Arg, entries, ec, func(a, b value.Value) bool { return a.Compare(b) > 0 })

	default:
		return value.Value{}, invalidOp("unknown aggregate function")
	}
}

func foldNumeric(arg ast.Expr, entries []Entry, ec *EvalContext, zero value.Value, combine func(acc, v value.Value) (value.Value, error)) (value.Value, error) {
	acc := zero
	any := false
	for _, e := range entries {
		v, err := evalExpr(arg, e, ec)
		if err != nil {
			return value.Value{}, err
		}
		if v.IsNull() {
			continue
		}
		if !any {
			acc = v
			any = true
			continue
		}
		acc, err = combine(acc, v)
		if err != nil {
			return value.Value{}, err
		}
	}
	if !any {
		return value.Int64(0), nil
	}
	return acc, nil
}

func nonNullCount(arg ast.Expr, entries []Entry, ec *EvalContext) int {
	count := 0
	for _, e := range entries {
		v, err := evalExpr(arg, e, ec)
		if err != nil {
			continue
		}
		if !v.IsNull() {
			count++
		}
	}
	return count
}

func foldComparable(arg ast.Expr, entries []Entry, ec *EvalContext, better func(a, b value.Value) bool) (value.Value, error) {
	var best value.Value
	any := false
	for _, e := range entries {
		v, err := evalExpr(arg, e, ec)
		if err != nil {
			return value.Value{}, err
		}
		if v.IsNull() {
			continue
		}
		if !any || better(v, best) {
			best = v
			any = true
		}
	}
	if !any {
		return value.Null(), nil
	}
	return best, nil
}

func (r *Runner) executeSort(n *physical.Sort) (*Relation, error) {
	input, err := r.Execute(n.Input)
	if err != nil {
		return nil, err
	}
	ec := NewEvalContext(input)
	entries := append([]Entry{}, input.Entries...)
	var sortErr error
	sort.SliceStable(entries, func(i, j int) bool {
		less, err := sortLess(n.OrderBy, entries[i], entries[j], ec)
		if err != nil {
			sortErr = err
		}
		return less
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return &Relation{Tables: input.Tables, ColumnCounts: input.ColumnCounts, Entries: entries}, nil
}

func sortLess(orderBy []ast.SortKey, a, b Entry, ec *EvalContext) (bool, error) {
	for _, key := range orderBy {
		va, err := evalExpr(key.Expr, a, ec)
		if err != nil {
			return false, err
		}
		vb, err := evalExpr(key.Expr, b, ec)
		if err != nil {
			return false, err
		}
		cmp := va.Compare(vb)
		if cmp == 0 {
			continue
		}
		if key.Desc {
			return cmp > 0, nil
		}
		return cmp < 0, nil
	}
	return false, nil
}

func (r *Runner) executeTopN(n *physical.TopN) (*Relation, error) {
	sorted, err := r.executeSort(&physical.Sort{Input: n.Input, OrderBy: n.OrderBy})
	if err != nil {
		return nil, err
	}
	if n.N < len(sorted.Entries) {
		sorted.Entries = sorted.Entries[:n.N]
	}
	return sorted, nil
}

func (r *Runner) executeLimit(n *physical.Limit) (*Relation, error) {
	input, err := r.Execute(n.Input)
	if err != nil {
		return nil, err
	}
	if !n.HasLimit {
		if n.Offset > 0 && n.Offset < len(input.Entries) {
			input.Entries = input.Entries[n.Offset:]
		} else if n.Offset >= len(input.Entries) {
			input.Entries = nil
		}
		return input, nil
	}
	start := n.Offset
	if start > len(input.Entries) {
		start = len(input.Entries)
	}
	end := start + n.Limit
	if end > len(input.Entries) {
		end = len(input.Entries)
	}
	input.Entries = input.Entries[start:end]
	return input, nil
}
