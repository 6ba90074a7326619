// Package executor runs a physical plan one shot at a time against a
// DataSource, producing a Relation of combined rows. It mirrors the
// differential dataflow engine's semantics exactly — IVM ≡ re-query is a
// correctness property this package and internal/dataflow are both held
// to.
package executor

import (
	"fmt"

	"github.com/cynos-db/cynos/internal/value"
)

// Entry is one row of a Relation: the combined column values across
// every table the relation currently spans, in Relation.Tables order.
type Entry struct {
	Values []value.Value
}

// Relation is the executor's working result set: a flat list of combined
// rows plus enough metadata (which tables contributed columns, and how
// many columns each contributed) for EvalContext to resolve a
// table-relative column reference to an offset into Entry.Values.
type Relation struct {
	Tables       []string
	ColumnCounts []int
	Entries      []Entry
}

// NewRelation builds a single-table relation directly from rows.
func NewRelation(table string, columnCount int, rows []*value.Row) *Relation {
	entries := make([]Entry, len(rows))
	for i, r := range rows {
		entries[i] = Entry{Values: r.Values}
	}
	return &Relation{Tables: []string{table}, ColumnCounts: []int{columnCount}, Entries: entries}
}

// EvalContext resolves a (table, table-relative column index) pair to an
// absolute offset into a combined Entry's Values, so expressions don't
// need rewriting when the join order changes underneath them.
type EvalContext struct {
	Tables       []string
	ColumnCounts []int
}

// NewEvalContext builds an EvalContext from a Relation's shape.
func NewEvalContext(r *Relation) *EvalContext {
	return &EvalContext{Tables: r.Tables, ColumnCounts: r.ColumnCounts}
}

// ResolveColumnIndex returns the absolute offset of table.column (given
// as its table-relative index) within a combined row. Falls back to
// tableRelativeIndex unchanged if table isn't present, which is correct
// for single-table relations and for columns surviving a Project.
func (ec *EvalContext) ResolveColumnIndex(table string, tableRelativeIndex int) int {
	offset := 0
	for i, t := range ec.Tables {
		if t == table {
			return offset + tableRelativeIndex
		}
		if i < len(ec.ColumnCounts) {
			offset += ec.ColumnCounts[i]
		}
	}
	return tableRelativeIndex
}

// ErrorKind classifies an ExecutionError for callers using errors.As.
type ErrorKind int

const (
	ErrTableNotFound ErrorKind = iota
	ErrIndexNotFound
	ErrColumnNotFound
	ErrTypeMismatch
	ErrInvalidOperation
)

// ExecutionError is the structured error taxonomy plan execution raises:
// missing tables/indexes/columns, type mismatches during evaluation, and
// catch-all invalid operations (unsupported aggregate, malformed regex).
type ExecutionError struct {
	Kind    ErrorKind
	Table   string
	Index   string
	Column  string
	Message string
}

func (e *ExecutionError) Error() string {
	switch e.Kind {
	case ErrTableNotFound:
		return fmt.Sprintf("table not found: %s", e.Table)
	case ErrIndexNotFound:
		return fmt.Sprintf("index %s not found on table %s", e.Index, e.Table)
	case ErrColumnNotFound:
		return fmt.Sprintf("column %s.%s not found", e.Table, e.Column)
	case ErrTypeMismatch:
		return fmt.Sprintf("type mismatch: %s", e.Message)
	default:
		return fmt.Sprintf("invalid operation: %s", e.Message)
	}
}

func tableNotFound(table string) error { return &ExecutionError{Kind: ErrTableNotFound, Table: table} }
func indexNotFound(table, index string) error {
	return &ExecutionError{Kind: ErrIndexNotFound, Table: table, Index: index}
}
func columnNotFound(table, column string) error {
	return &ExecutionError{Kind: ErrColumnNotFound, Table: table, Column: column}
}
func typeMismatch(msg string) error { return &ExecutionError{Kind: ErrTypeMismatch, Message: msg} }
func invalidOp(msg string) error    { return &ExecutionError{Kind: ErrInvalidOperation, Message: msg} }
