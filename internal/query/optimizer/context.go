package optimizer

import "github.com/cynos-db/cynos/internal/storage"

// IndexInfo is what the optimizer needs to know about one index to decide
// whether a predicate can use it: its name, kind, and the columns it
// covers, in order.
type IndexInfo struct {
	Name    string
	Kind    storage.IndexKind
	Columns []string
	Unique  bool
}

// Context carries table statistics and the index catalog the optimizer
// passes consult. A nil *Context is valid: passes fall back to the
// default cardinality estimates used when nothing is known about a table.
type Context struct {
	cardinality map[string]int
	indexes     map[string][]IndexInfo
}

// NewContext builds an empty Context.
func NewContext() *Context {
	return &Context{cardinality: map[string]int{}, indexes: map[string][]IndexInfo{}}
}

// NewContextFromSchemas derives a Context directly from table schemas,
// registering every declared index (plus a synthetic primary-key index
// when the schema has one) and seeding cardinality with the observed row
// counts.
func NewContextFromSchemas(schemas map[string]*storage.Schema, rowCounts map[string]int) *Context {
	ctx := NewContext()
	for table, schema := range schemas {
		if len(schema.PrimaryKey) > 0 {
			ctx.indexes[table] = append(ctx.indexes[table], IndexInfo{
				Name: "__pk__", Kind: storage.IndexBTree, Columns: schema.PrimaryKey, Unique: true,
			})
		}
		for _, idx := range schema.Indexes {
			ctx.indexes[table] = append(ctx.indexes[table], IndexInfo{
				Name: idx.Name, Kind: idx.Kind, Columns: idx.Columns, Unique: idx.Unique,
			})
		}
		if n, ok := rowCounts[table]; ok {
			ctx.cardinality[table] = n
		}
	}
	return ctx
}

// RegisterIndex adds idx to table's known index catalog.
func (c *Context) RegisterIndex(table string, idx IndexInfo) {
	if c == nil {
		return
	}
	c.indexes[table] = append(c.indexes[table], idx)
}

// SetCardinality records an observed or estimated row count for a table.
func (c *Context) SetCardinality(table string, n int) {
	if c == nil {
		return
	}
	c.cardinality[table] = n
}

// Cardinality returns the known row count for table, or ok=false if
// unknown.
func (c *Context) Cardinality(table string) (int, bool) {
	if c == nil {
		return 0, false
	}
	n, ok := c.cardinality[table]
	return n, ok
}

// IndexesFor returns the indexes known to exist on table.
func (c *Context) IndexesFor(table string) []IndexInfo {
	if c == nil {
		return nil
	}
	return c.indexes[table]
}

// IndexOnColumn returns the first index on table of kind wantKind whose
// leading column is column; indexes of other kinds are not considered, and
// preferKind does not change which index is returned.
func (c *Context) IndexOnColumn(table, column string, preferKind storage.IndexKind, wantKind storage.IndexKind) (IndexInfo, bool) {
	if c == nil {
		return IndexInfo{}, false
	}
	var fallback IndexInfo
	found := false
	for _, idx := range c.indexes[table] {
		if len(idx.Columns) == 0 || idx.Columns[0] != column {
			continue
		}
		if idx.Kind != wantKind {
			continue
		}
		if idx.Kind == preferKind {
			return idx, true
		}
		if !found {
			fallback, found = idx, true
		}
	}
	return fallback, found
}
