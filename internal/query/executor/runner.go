package executor

import (
	"github.com/cynos-db/cynos/internal/index/gin"
	"github.com/cynos-db/cynos/internal/query/physical"
	"github.com/cynos-db/cynos/internal/value"
)

// Runner executes a physical plan against a DataSource.
type Runner struct {
	Source DataSource
}

// NewRunner wraps source for plan execution.
func NewRunner(source DataSource) *Runner {
	return &Runner{Source: source}
}

// Execute recursively evaluates plan and returns its result Relation.
func (r *Runner) Execute(plan physical.Plan) (*Relation, error) {
	switch n := plan.(type) {
	case *physical.TableScan:
		rows, err := r.Source.TableRows(n.Table)
		if err != nil {
			return nil, err
		}
		count, err := r.Source.ColumnCount(n.Table)
		if err != nil {
			return nil, err
		}
		return NewRelation(n.Table, count, rows), nil

	case *physical.IndexScan:
		rows, err := r.Source.IndexRange(n.Table, n.Index, n.Range, n.Limit, n.Offset, n.Reverse)
		if err != nil {
			return nil, err
		}
		count, err := r.Source.ColumnCount(n.Table)
		if err != nil {
			return nil, err
		}
		return NewRelation(n.Table, count, rows), nil

	case *physical.IndexGet:
		key, err := evalExpr(n.Key, Entry{}, nil)
		if err != nil {
			return nil, err
		}
		rows, err := r.Source.IndexPoint(n.Table, n.Index, key)
		if err != nil {
			return nil, err
		}
		count, err := r.Source.ColumnCount(n.Table)
		if err != nil {
			return nil, err
		}
		return NewRelation(n.Table, count, rows), nil

	case *physical.IndexInGet:
		count, err := r.Source.ColumnCount(n.Table)
		if err != nil {
			return nil, err
		}
		var rows []*value.Row
		for _, keyExpr := range n.Keys {
			key, err := evalExpr(keyExpr, Entry{}, nil)
			if err != nil {
				return nil, err
			}
			got, err := r.Source.IndexPoint(n.Table, n.Index, key)
			if err != nil {
				return nil, err
			}
			rows = append(rows, got...)
		}
		return NewRelation(n.Table, count, rows), nil

	case *physical.GinIndexScan:
		count, err := r.Source.ColumnCount(n.Table)
		if err != nil {
			return nil, err
		}
		var rows []*value.Row
		if n.Value == nil {
			rows, err = r.Source.GinRowsByKey(n.Table, n.Index, n.Key)
		} else {
			v, evalErr := evalExpr(n.Value, Entry{}, nil)
			if evalErr != nil {
				return nil, evalErr
			}
			rows, err = r.Source.GinRows(n.Table, n.Index, n.Key, v)
		}
		if err != nil {
			return nil, err
		}
		return NewRelation(n.Table, count, rows), nil

	case *physical.GinIndexScanMulti:
		return r.executeGinMulti(n)

	case *physical.Filter:
		return r.executeFilter(n)

	case *physical.Project:
		return r.executeProject(n)

	case *physical.CrossProduct:
		return r.executeCrossProduct(n)

	case *physical.HashJoin:
		return r.executeHashJoin(n)

	case *physical.SortMergeJoin:
		return r.executeSortMergeJoin(n)

	case *physical.NestedLoopJoin:
		return r.executeNestedLoopJoin(n)

	case *physical.IndexNestedLoopJoin:
		return r.executeIndexNestedLoopJoin(n)

	case *physical.HashAggregate:
		return r.executeHashAggregate(n)

	case *physical.Sort:
		return r.executeSort(n)

	case *physical.TopN:
		return r.executeTopN(n)

	case *physical.Limit:
		return r.executeLimit(n)

	case *physical.Union:
		return r.executeUnion(n)

	case *physical.Empty:
		return &Relation{}, nil

	case *physical.NoOp:
		return r.Execute(n.Input)

	default:
		return nil, invalidOp("unsupported physical plan node")
	}
}

func (r *Runner) executeGinMulti(n *physical.GinIndexScanMulti) (*Relation, error) {
	count, err := r.Source.ColumnCount(n.Table)
	if err != nil {
		return nil, err
	}
	pairs := make([]gin.Pair, len(n.Pairs))
	for i, p := range n.Pairs {
		v, err := evalExpr(p.Value, Entry{}, nil)
		if err != nil {
			return nil, err
		}
		pairs[i] = gin.Pair{Key: p.Key, Value: v.Str(), IsScalar: true}
	}
	rows, err := r.Source.GinRowsMulti(n.Table, n.Index, pairs)
	if err != nil {
		return nil, err
	}
	return NewRelation(n.Table, count, rows), nil
}

func (r *Runner) executeFilter(n *physical.Filter) (*Relation, error) {
	input, err := r.Execute(n.Input)
	if err != nil {
		return nil, err
	}
	ec := NewEvalContext(input)
	out := &Relation{Tables: input.Tables, ColumnCounts: input.ColumnCounts}
	for _, entry := range input.Entries {
		ok, err := evalPredicate(n.Predicate, entry, ec)
		if err != nil {
			return nil, err
		}
		if ok {
			out.Entries = append(out.Entries, entry)
		}
	}
	return out, nil
}

func (r *Runner) executeProject(n *physical.Project) (*Relation, error) {
	input, err := r.Execute(n.Input)
	if err != nil {
		return nil, err
	}
	ec := NewEvalContext(input)
	out := &Relation{Tables: []string{""}, ColumnCounts: []int{len(n.Columns)}}
	for _, entry := range input.Entries {
		values := make([]value.Value, len(n.Columns))
		for i, col := range n.Columns {
			v, err := evalExpr(col.Expr, entry, ec)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		out.Entries = append(out.Entries, Entry{Values: values})
	}
	return out, nil
}

func (r *Runner) executeCrossProduct(n *physical.CrossProduct) (*Relation, error) {
	left, err := r.Execute(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := r.Execute(n.Right)
	if err != nil {
		return nil, err
	}
	out := combinedShape(left, right)
	for _, l := range left.Entries {
		for _, rr := range right.Entries {
			out.Entries = append(out.Entries, combineEntries(l, rr))
		}
	}
	return out, nil
}

func combinedShape(left, right *Relation) *Relation {
	return &Relation{
		Tables:       append(append([]string{}, left.Tables...), right.Tables...),
		ColumnCounts: append(append([]int{}, left.ColumnCounts...), right.ColumnCounts...),
	}
}

func combineEntries(left, right Entry) Entry {
	values := make([]value.Value, 0, len(left.Values)+len(right.Values))
	values = append(values, left.Values...)
	values = append(values, right.Values...)
	return Entry{Values: values}
}

