package storage

import "github.com/cynos-db/cynos/internal/value"

// IndexKind distinguishes which index structure backs a secondary index.
type IndexKind uint8

const (
	IndexBTree IndexKind = iota
	IndexHash
	IndexGin
)

// Column describes one table column.
type Column struct {
	Name     string
	Type     value.Kind
	Nullable bool
}

// IndexDef describes one secondary index.
type IndexDef struct {
	Name      string
	Columns   []string
	Unique    bool
	Kind      IndexKind
	AutoIncPK bool
}

// Schema is a table's shape: ordered columns, an optional primary key
// (one-or-more column names), and secondary indexes.
type Schema struct {
	Name          string
	Columns       []Column
	PrimaryKey    []string
	AutoIncrement bool
	Indexes       []IndexDef
}

// ColumnIndex returns the position of name within Columns.
func (s *Schema) ColumnIndex(name string) (int, bool) {
	for i, c := range s.Columns {
		if c.Name == name {
			return i, true
		}
	}
	return 0, false
}

func columnIndices(s *Schema, names []string) []int {
	out := make([]int, len(names))
	for i, n := range names {
		idx, _ := s.ColumnIndex(n)
		out[i] = idx
	}
	return out
}
