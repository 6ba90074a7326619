package executor

import (
	"github.com/cynos-db/cynos/internal/index/btree"
	"github.com/cynos-db/cynos/internal/index/gin"
	"github.com/cynos-db/cynos/internal/value"
)

// DataSource is whatever the runner reads table and index data from. A
// single implementation (InMemoryDataSource here, RowStoreDataSource in
// rowstore_source.go) can sit behind both this runner and the
// dataflow compiler's bootstrap, since both only ever need "give me the
// rows" and "give me an index range".
type DataSource interface {
	TableRows(table string) ([]*value.Row, error)
	ColumnCount(table string) (int, error)
	IndexRange(table, index string, r btree.KeyRange, limit *int, offset int, reverse bool) ([]*value.Row, error)
	IndexPoint(table, index string, key value.Value) ([]*value.Row, error)
	GinRows(table, index, key string, val value.Value) ([]*value.Row, error)
	GinRowsByKey(table, index, key string) ([]*value.Row, error)
	GinRowsMulti(table, index string, pairs []gin.Pair) ([]*value.Row, error)
}

type memTable struct {
	rows        []*value.Row
	columnCount int
}

// InMemoryDataSource is a DataSource backed by plain slices, with no
// index acceleration: every index and GIN method returns the table's full
// row set, applying no range, key or JSON filter. It exists for tests and
// for ad hoc query running
// against data that hasn't been loaded into a storage.RowStore.
type InMemoryDataSource struct {
	tables map[string]*memTable
}

// NewInMemoryDataSource builds an empty InMemoryDataSource.
func NewInMemoryDataSource() *InMemoryDataSource {
	return &InMemoryDataSource{tables: map[string]*memTable{}}
}

// AddTable registers rows under table, recording columnCount for
// EvalContext offset resolution.
func (ds *InMemoryDataSource) AddTable(table string, rows []*value.Row, columnCount int) {
	ds.tables[table] = &memTable{rows: rows, columnCount: columnCount}
}

func (ds *InMemoryDataSource) TableRows(table string) ([]*value.Row, error) {
	t, ok := ds.tables[table]
	if !ok {
		return nil, tableNotFound(table)
	}
	return t.rows, nil
}

func (ds *InMemoryDataSource) ColumnCount(table string) (int, error) {
	t, ok := ds.tables[table]
	if !ok {
		return 0, tableNotFound(table)
	}
	return t.columnCount, nil
}

func (ds *InMemoryDataSource) IndexRange(table, index string, r btree.KeyRange, limit *int, offset int, reverse bool) ([]*value.Row, error) {
	rows, err := ds.TableRows(table)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (ds *InMemoryDataSource) IndexPoint(table, index string, key value.Value) ([]*value.Row, error) {
	return ds.TableRows(table)
}

func (ds *InMemoryDataSource) GinRows(table, index, key string, val value.Value) ([]*value.Row, error) {
	return ds.TableRows(table)
}

func (ds *InMemoryDataSource) GinRowsByKey(table, index, key string) ([]*value.Row, error) {
	return ds.TableRows(table)
}

func (ds *InMemoryDataSource) GinRowsMulti(table, index string, pairs []gin.Pair) ([]*value.Row, error) {
	return ds.TableRows(table)
}
