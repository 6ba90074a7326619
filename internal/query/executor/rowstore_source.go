package executor

import (
	"github.com/cynos-db/cynos/internal/index/btree"
	"github.com/cynos-db/cynos/internal/index/gin"
	"github.com/cynos-db/cynos/internal/storage"
	"github.com/cynos-db/cynos/internal/value"
)

// RowStoreDataSource adapts a set of storage.RowStore tables to
// DataSource, giving the runner real index-accelerated access instead of
// InMemoryDataSource's table-scan fallback.
type RowStoreDataSource struct {
	stores map[string]*storage.RowStore
}

// NewRowStoreDataSource wraps stores (table name -> its backing
// RowStore) as a DataSource.
func NewRowStoreDataSource(stores map[string]*storage.RowStore) *RowStoreDataSource {
	return &RowStoreDataSource{stores: stores}
}

func (ds *RowStoreDataSource) store(table string) (*storage.RowStore, error) {
	rs, ok := ds.stores[table]
	if !ok {
		return nil, tableNotFound(table)
	}
	return rs, nil
}

func (ds *RowStoreDataSource) TableRows(table string) ([]*value.Row, error) {
	rs, err := ds.store(table)
	if err != nil {
		return nil, err
	}
	return rs.Scan(), nil
}

func (ds *RowStoreDataSource) ColumnCount(table string) (int, error) {
	rs, err := ds.store(table)
	if err != nil {
		return 0, err
	}
	return len(rs.Schema().Columns), nil
}

func (ds *RowStoreDataSource) IndexRange(table, index string, r btree.KeyRange, limit *int, offset int, reverse bool) ([]*value.Row, error) {
	rs, err := ds.store(table)
	if err != nil {
		return nil, err
	}
	rows, err := rs.IndexScan(index, r, limit, offset, reverse)
	if err != nil {
		return nil, indexNotFound(table, index)
	}
	return rows, nil
}

func (ds *RowStoreDataSource) IndexPoint(table, index string, key value.Value) ([]*value.Row, error) {
	return ds.IndexRange(table, index, btree.Only(key), nil, 0, false)
}

func (ds *RowStoreDataSource) GinRows(table, index, key string, val value.Value) ([]*value.Row, error) {
	rs, err := ds.store(table)
	if err != nil {
		return nil, err
	}
	rows, err := rs.GinIndexGetByKeyValue(index, key, val.Str())
	if err != nil {
		return nil, indexNotFound(table, index)
	}
	return rows, nil
}

func (ds *RowStoreDataSource) GinRowsByKey(table, index, key string) ([]*value.Row, error) {
	rs, err := ds.store(table)
	if err != nil {
		return nil, err
	}
	rows, err := rs.GinIndexGetByKey(index, key)
	if err != nil {
		return nil, indexNotFound(table, index)
	}
	return rows, nil
}

func (ds *RowStoreDataSource) GinRowsMulti(table, index string, pairs []gin.Pair) ([]*value.Row, error) {
	rs, err := ds.store(table)
	if err != nil {
		return nil, err
	}
	rows, err := rs.GinIndexGetByKeyValuesAll(index, pairs)
	if err != nil {
		return nil, indexNotFound(table, index)
	}
	return rows, nil
}
