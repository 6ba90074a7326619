package value

// RowId identifies a row within a single table. It is stable across
// updates: an update produces a new Row with the same Id and an
// incremented Version.
type RowId uint64

// TableId is the stable numeric identifier a row store is assigned so
// dataflow sources can route change batches without string comparisons.
type TableId uint32

// AggregateRowIDBase is the reserved namespace for row ids synthesized by
// group aggregation in the dataflow engine (see internal/dataflow), carried
// byte-for-byte from the original implementation so "was this row
// synthesized by aggregation?" is answerable without a side table.
const AggregateRowIDBase RowId = 0xA660_0000_0000_0000

// Row is the unit of storage: a stable id, a monotonic version counter used
// for change detection in aggregate outputs, and its column values.
type Row struct {
	Id      RowId
	Version uint64
	Values  []Value
}

// NewRow constructs a version-0 row.
func NewRow(id RowId, values []Value) *Row {
	return &Row{Id: id, Version: 0, Values: values}
}

// WithNewValues returns a copy of the row with the same id, version+1, and
// the supplied values — the shape every RowStore.Update call produces.
func (r *Row) WithNewValues(values []Value) *Row {
	return &Row{Id: r.Id, Version: r.Version + 1, Values: values}
}

// Clone returns a shallow copy sharing no backing slice with the receiver.
func (r *Row) Clone() *Row {
	values := make([]Value, len(r.Values))
	copy(values, r.Values)
	return &Row{Id: r.Id, Version: r.Version, Values: values}
}

// Delta pairs a payload with a signed multiplicity: diff > 0 is an insert
// weight, diff < 0 is a delete weight. A logical update is represented as
// [Delta{old, -1}, Delta{new, +1}] so every dataflow operator only ever
// observes +1/-1 changes (a Z-set, see GLOSSARY).
type Delta[T any] struct {
	Data T
	Diff int32
}

// Insert wraps data as a +1 delta.
func Insert[T any](data T) Delta[T] { return Delta[T]{Data: data, Diff: 1} }

// Remove wraps data as a -1 delta.
func Remove[T any](data T) Delta[T] { return Delta[T]{Data: data, Diff: -1} }

// RowDelta is the common specialization used throughout the storage and
// dataflow layers.
type RowDelta = Delta[*Row]
